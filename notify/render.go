package notify

import (
	"encoding/json"
	"fmt"

	"taskpulse-api/pkg/events"
)

// Payload shapes carried by events, one per kind. These are intentionally
// small and versionable; changes should be additive.

type StatusChangePayload struct {
	TaskName  string `json:"taskName"`
	ActorName string `json:"actorName"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type TitleChangePayload struct {
	ActorName string `json:"actorName"`
	Before    string `json:"before"`
	After     string `json:"after"`
}

type AssigneeChangePayload struct {
	TaskName     string `json:"taskName"`
	ActorName    string `json:"actorName"`
	AssigneeName string `json:"assigneeName"`
	Removed      bool   `json:"removed,omitempty"`
}

type DueDateChangePayload struct {
	TaskName  string `json:"taskName"`
	ActorName string `json:"actorName"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type CommentPayload struct {
	TaskName  string `json:"taskName"`
	ActorName string `json:"actorName"`
	Excerpt   string `json:"excerpt"`
}

type MemberPayload struct {
	ProjectTitle string `json:"projectTitle"`
	ActorName    string `json:"actorName"`
	MemberName   string `json:"memberName"`
}

// Render produces the human-readable notification message for an event. The
// same text is persisted, searched over, and pushed through every driver.
// Unknown or malformed payloads degrade to a generic message rather than
// failing the fan-out.
func Render(ev events.Event) string {
	switch ev.Kind {
	case events.TaskStatusChanged:
		var p StatusChangePayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			return fmt.Sprintf("%s changed status of task '%s' from %s to %s", p.ActorName, p.TaskName, p.From, p.To)
		}
	case events.TaskTitleChanged:
		var p TitleChangePayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			return fmt.Sprintf("%s renamed task '%s' to '%s'", p.ActorName, p.Before, p.After)
		}
	case events.TaskAssigneeChanged:
		var p AssigneeChangePayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			if p.Removed {
				return fmt.Sprintf("%s removed %s from task '%s'", p.ActorName, p.AssigneeName, p.TaskName)
			}
			return fmt.Sprintf("%s assigned %s to task '%s'", p.ActorName, p.AssigneeName, p.TaskName)
		}
	case events.TaskDueDateChanged:
		var p DueDateChangePayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			return fmt.Sprintf("%s moved the due date of task '%s' from %s to %s", p.ActorName, p.TaskName, p.From, p.To)
		}
	case events.TaskCommented:
		var p CommentPayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			return fmt.Sprintf("%s commented on task '%s': %s", p.ActorName, p.TaskName, p.Excerpt)
		}
	case events.MemberAdded:
		var p MemberPayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			return fmt.Sprintf("%s added %s to project '%s'", p.ActorName, p.MemberName, p.ProjectTitle)
		}
	case events.MemberRemoved:
		var p MemberPayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			return fmt.Sprintf("%s removed %s from project '%s'", p.ActorName, p.MemberName, p.ProjectTitle)
		}
	}
	return fmt.Sprintf("Activity on your project (%s)", ev.Kind)
}
