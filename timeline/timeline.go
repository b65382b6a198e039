// Package timeline merges a task's audit log and comments into one
// chronologically ordered view. It is a pure read-side projection: it never
// writes and is safe to call repeatedly and concurrently.
package timeline

import (
	"context"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"
)

// AuditKind classifies a task mutation recorded in the audit log.
type AuditKind string

const (
	StatusChange   AuditKind = "status_change"
	TitleChange    AuditKind = "title_change"
	AssigneeChange AuditKind = "assignee_change"
	DueDateChange  AuditKind = "due_date_change"
)

// AuditEntry is an append-only record of a task mutation. Seq is the strictly
// increasing insertion sequence assigned by the store; it is the final
// tie-break, so ordering stays total even with coarse timestamps.
type AuditEntry struct {
	Seq        int64     `json:"seq"`
	TaskID     int       `json:"taskId"`
	Kind       AuditKind `json:"kind"`
	ActorID    int       `json:"actorId"`
	Before     string    `json:"before"`
	After      string    `json:"after"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Comment is a task comment as stored by the comment layer.
type Comment struct {
	Seq        int64     `json:"seq"`
	TaskID     int       `json:"taskId"`
	AuthorID   int       `json:"authorId"`
	Body       string    `json:"body"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Item is one element of the merged timeline. Exactly one of Audit/Comment is
// set, matching Type.
type Item struct {
	Type       string      `json:"type"` // "audit" or "comment"
	Summary    string      `json:"summary"`
	ActorID    int         `json:"actorId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Audit      *AuditEntry `json:"audit,omitempty"`
	Comment    *Comment    `json:"comment,omitempty"`
}

// AuditSource and CommentSource are the read boundaries to the persistence
// layer. Both return unordered sets; ordering is the builder's job.
type AuditSource interface {
	ListByTask(ctx context.Context, taskID int) ([]AuditEntry, error)
}

type CommentSource interface {
	ListByTask(ctx context.Context, taskID int) ([]Comment, error)
}

// Builder assembles the merged timeline for a task.
type Builder struct {
	audits   AuditSource
	comments CommentSource
}

func NewBuilder(audits AuditSource, comments CommentSource) *Builder {
	return &Builder{audits: audits, comments: comments}
}

// Build fetches both record sets and returns them as a single sequence sorted
// ascending by occurrence time. On an exact timestamp collision audit entries
// come before comments; within the same kind the insertion sequence decides.
func (b *Builder) Build(ctx context.Context, taskID int) ([]Item, error) {
	audits, err := b.audits.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list audits for task %d: %w", taskID, err)
	}
	comments, err := b.comments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments for task %d: %w", taskID, err)
	}

	items := make([]Item, 0, len(audits)+len(comments))
	for i := range audits {
		a := audits[i]
		items = append(items, Item{
			Type:       "audit",
			Summary:    auditSummary(a),
			ActorID:    a.ActorID,
			OccurredAt: a.OccurredAt,
			Audit:      &a,
		})
	}
	for i := range comments {
		cm := comments[i]
		items = append(items, Item{
			Type:       "comment",
			Summary:    commentSummary(cm),
			ActorID:    cm.AuthorID,
			OccurredAt: cm.OccurredAt,
			Comment:    &cm,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	return items, nil
}

// less is the total order of the timeline: occurrence time, then audit before
// comment, then insertion sequence.
func less(a, b Item) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.Before(b.OccurredAt)
	}
	if (a.Type == "audit") != (b.Type == "audit") {
		return a.Type == "audit"
	}
	return seqOf(a) < seqOf(b)
}

func seqOf(it Item) int64 {
	if it.Audit != nil {
		return it.Audit.Seq
	}
	return it.Comment.Seq
}

func auditSummary(a AuditEntry) string {
	switch a.Kind {
	case StatusChange:
		return fmt.Sprintf("changed status from %s to %s", a.Before, a.After)
	case TitleChange:
		return fmt.Sprintf("renamed '%s' to '%s'", a.Before, a.After)
	case AssigneeChange:
		if a.After == "" {
			return fmt.Sprintf("removed assignee %s", a.Before)
		}
		if a.Before == "" {
			return fmt.Sprintf("assigned %s", a.After)
		}
		return fmt.Sprintf("reassigned from %s to %s", a.Before, a.After)
	case DueDateChange:
		return fmt.Sprintf("moved due date from %s to %s", a.Before, a.After)
	default:
		return string(a.Kind)
	}
}

const excerptLen = 120

func commentSummary(cm Comment) string {
	body := cm.Body
	if len(body) > excerptLen {
		// Cut on a rune boundary so the excerpt stays valid UTF-8.
		cut := excerptLen
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "…"
	}
	return "commented: " + body
}
