package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskpulse-api/pkg/events"
)

// AuditWriter is the append side of the audit log.
type AuditWriter interface {
	Append(ctx context.Context, entry AuditEntry) (AuditEntry, error)
}

// Recorder subscribes to task-mutation events and appends the matching audit
// entries. It registers before the notification dispatcher, so by the time a
// client reacts to a push the audit trail already contains the change.
type Recorder struct {
	store AuditWriter
}

func NewRecorder(store AuditWriter) *Recorder {
	return &Recorder{store: store}
}

// Register subscribes the recorder to every auditable kind.
func (r *Recorder) Register(bus *events.Bus) {
	bus.Subscribe(r.Handle, events.TaskKinds()...)
}

// auditFields is the common payload slice the recorder needs; the remaining
// payload fields belong to notification rendering and are ignored here.
type auditFields struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Before       string `json:"before"`
	After        string `json:"after"`
	AssigneeName string `json:"assigneeName"`
	Removed      bool   `json:"removed"`
}

// Handle maps one event to an audit entry and appends it.
func (r *Recorder) Handle(ctx context.Context, ev events.Event) error {
	var f auditFields
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &f); err != nil {
			return fmt.Errorf("decode payload for %s: %w", ev.Kind, err)
		}
	}

	entry := AuditEntry{
		TaskID:     ev.SubjectID,
		ActorID:    ev.ActorID,
		OccurredAt: ev.OccurredAt,
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}

	switch ev.Kind {
	case events.TaskStatusChanged:
		entry.Kind = StatusChange
		entry.Before, entry.After = f.From, f.To
	case events.TaskTitleChanged:
		entry.Kind = TitleChange
		entry.Before, entry.After = f.Before, f.After
	case events.TaskAssigneeChanged:
		entry.Kind = AssigneeChange
		if f.Removed {
			entry.Before = f.AssigneeName
		} else {
			entry.After = f.AssigneeName
		}
	case events.TaskDueDateChanged:
		entry.Kind = DueDateChange
		entry.Before, entry.After = f.From, f.To
	default:
		return nil
	}

	if _, err := r.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry for task %d: %w", ev.SubjectID, err)
	}
	return nil
}
