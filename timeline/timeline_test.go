package timeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAudits struct {
	entries []AuditEntry
	err     error
}

func (f *fakeAudits) ListByTask(ctx context.Context, taskID int) ([]AuditEntry, error) {
	return f.entries, f.err
}

type fakeComments struct {
	comments []Comment
	err      error
}

func (f *fakeComments) ListByTask(ctx context.Context, taskID int) ([]Comment, error) {
	return f.comments, f.err
}

func TestBuildSortsAscendingByTime(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	audits := &fakeAudits{entries: []AuditEntry{
		{Seq: 2, Kind: StatusChange, Before: "todo", After: "done", OccurredAt: base.Add(2 * time.Minute)},
		{Seq: 1, Kind: TitleChange, Before: "a", After: "b", OccurredAt: base},
	}}
	comments := &fakeComments{comments: []Comment{
		{Seq: 1, Body: "first", OccurredAt: base.Add(time.Minute)},
		{Seq: 2, Body: "second", OccurredAt: base.Add(3 * time.Minute)},
	}}

	items, err := NewBuilder(audits, comments).Build(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 4)

	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].OccurredAt.Before(items[i-1].OccurredAt))
	}
	assert.Equal(t, []string{"audit", "comment", "audit", "comment"},
		[]string{items[0].Type, items[1].Type, items[2].Type, items[3].Type})
}

func TestBuildAuditBeforeCommentAtSameInstant(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	audits := &fakeAudits{entries: []AuditEntry{
		{Seq: 1, Kind: StatusChange, Before: "todo", After: "done", OccurredAt: at},
	}}
	comments := &fakeComments{comments: []Comment{
		{Seq: 1, Body: "done!", OccurredAt: at},
	}}

	items, err := NewBuilder(audits, comments).Build(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "audit", items[0].Type)
	assert.Equal(t, "comment", items[1].Type)
}

func TestBuildSameKindSameInstantOrdersBySeq(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	comments := &fakeComments{comments: []Comment{
		{Seq: 9, Body: "later", OccurredAt: at},
		{Seq: 3, Body: "earlier", OccurredAt: at},
	}}

	items, err := NewBuilder(&fakeAudits{}, comments).Build(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].Comment.Seq)
	assert.Equal(t, int64(9), items[1].Comment.Seq)
}

func TestBuildEmptyTask(t *testing.T) {
	items, err := NewBuilder(&fakeAudits{}, &fakeComments{}).Build(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestBuildPropagatesSourceErrors(t *testing.T) {
	_, err := NewBuilder(&fakeAudits{err: errors.New("down")}, &fakeComments{}).Build(context.Background(), 1)
	assert.Error(t, err)

	_, err = NewBuilder(&fakeAudits{}, &fakeComments{err: errors.New("down")}).Build(context.Background(), 1)
	assert.Error(t, err)
}

func TestAuditSummaries(t *testing.T) {
	tests := []struct {
		name  string
		entry AuditEntry
		want  string
	}{
		{"status", AuditEntry{Kind: StatusChange, Before: "todo", After: "done"}, "changed status from todo to done"},
		{"title", AuditEntry{Kind: TitleChange, Before: "Draft", After: "Final"}, "renamed 'Draft' to 'Final'"},
		{"assigned", AuditEntry{Kind: AssigneeChange, After: "Bob"}, "assigned Bob"},
		{"unassigned", AuditEntry{Kind: AssigneeChange, Before: "Bob"}, "removed assignee Bob"},
		{"reassigned", AuditEntry{Kind: AssigneeChange, Before: "Bob", After: "Carol"}, "reassigned from Bob to Carol"},
		{"due date", AuditEntry{Kind: DueDateChange, Before: "2026-09-01", After: "2026-09-15"}, "moved due date from 2026-09-01 to 2026-09-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auditSummary(tt.entry))
		})
	}
}

func TestCommentSummaryTruncatesLongBodies(t *testing.T) {
	short := commentSummary(Comment{Body: "hello"})
	assert.Equal(t, "commented: hello", short)

	long := commentSummary(Comment{Body: strings.Repeat("x", 500)})
	assert.True(t, strings.HasPrefix(long, "commented: "))
	assert.Less(t, len(long), 200)
}

func TestCommentSummaryKeepsValidUTF8(t *testing.T) {
	// Two-byte runes place a continuation byte exactly at the cut point.
	long := commentSummary(Comment{Body: strings.Repeat("é", 200)})
	assert.True(t, utf8.ValidString(long))
	assert.True(t, strings.HasSuffix(long, "…"))

	wide := commentSummary(Comment{Body: strings.Repeat("日本語", 100)})
	assert.True(t, utf8.ValidString(wide))
}
