package events

import (
	"encoding/json"
	"time"
)

// Kind identifies the type of a domain event. Values are dotted, stable wire
// names; changes should be additive.
type Kind string

const (
	TaskStatusChanged   Kind = "task.status.changed"
	TaskTitleChanged    Kind = "task.title.changed"
	TaskAssigneeChanged Kind = "task.assignee.changed"
	TaskDueDateChanged  Kind = "task.due_date.changed"
	TaskCommented       Kind = "task.commented"
	MemberAdded         Kind = "project.member.added"
	MemberRemoved       Kind = "project.member.removed"
)

// TaskKinds lists every kind that mutates a task and produces an audit entry.
func TaskKinds() []Kind {
	return []Kind{TaskStatusChanged, TaskTitleChanged, TaskAssigneeChanged, TaskDueDateChanged}
}

// AllKinds lists every known event kind.
func AllKinds() []Kind {
	return []Kind{
		TaskStatusChanged, TaskTitleChanged, TaskAssigneeChanged,
		TaskDueDateChanged, TaskCommented, MemberAdded, MemberRemoved,
	}
}

// Event is an immutable record of a domain occurrence. Domain code builds one,
// publishes it to the Bus and never touches it again. Payload is opaque
// structured data whose shape depends on Kind.
type Event struct {
	Kind       Kind            `json:"kind"`
	ActorID    int             `json:"actorId"`
	SubjectID  int             `json:"subjectId"` // task id for task.* kinds, project id otherwise
	ProjectID  int             `json:"projectId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// New builds an event stamped with the current UTC time.
func New(kind Kind, actorID, subjectID, projectID int, payload any) (Event, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		raw = b
	}
	return Event{
		Kind:       kind,
		ActorID:    actorID,
		SubjectID:  subjectID,
		ProjectID:  projectID,
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	}, nil
}
