package notify

import (
	"encoding/json"
	"testing"

	"taskpulse-api/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderEvent(t *testing.T, kind events.Kind, payload any) string {
	t.Helper()
	ev, err := events.New(kind, 1, 10, 100, payload)
	require.NoError(t, err)
	return Render(ev)
}

func TestRenderMessages(t *testing.T) {
	tests := []struct {
		name    string
		kind    events.Kind
		payload any
		want    string
	}{
		{
			name: "status change",
			kind: events.TaskStatusChanged,
			payload: StatusChangePayload{
				TaskName: "Ship v2", ActorName: "Alice", From: "in_progress", To: "done",
			},
			want: "Alice changed status of task 'Ship v2' from in_progress to done",
		},
		{
			name: "title change",
			kind: events.TaskTitleChanged,
			payload: TitleChangePayload{
				ActorName: "Alice", Before: "Draft", After: "Final",
			},
			want: "Alice renamed task 'Draft' to 'Final'",
		},
		{
			name: "assignee added",
			kind: events.TaskAssigneeChanged,
			payload: AssigneeChangePayload{
				TaskName: "Ship v2", ActorName: "Alice", AssigneeName: "Bob",
			},
			want: "Alice assigned Bob to task 'Ship v2'",
		},
		{
			name: "assignee removed",
			kind: events.TaskAssigneeChanged,
			payload: AssigneeChangePayload{
				TaskName: "Ship v2", ActorName: "Alice", AssigneeName: "Bob", Removed: true,
			},
			want: "Alice removed Bob from task 'Ship v2'",
		},
		{
			name: "due date change",
			kind: events.TaskDueDateChanged,
			payload: DueDateChangePayload{
				TaskName: "Ship v2", ActorName: "Alice", From: "2026-09-01", To: "2026-09-15",
			},
			want: "Alice moved the due date of task 'Ship v2' from 2026-09-01 to 2026-09-15",
		},
		{
			name: "comment",
			kind: events.TaskCommented,
			payload: CommentPayload{
				TaskName: "Ship v2", ActorName: "Alice", Excerpt: "looks good to me",
			},
			want: "Alice commented on task 'Ship v2': looks good to me",
		},
		{
			name: "member added",
			kind: events.MemberAdded,
			payload: MemberPayload{
				ProjectTitle: "Apollo", ActorName: "Alice", MemberName: "Bob",
			},
			want: "Alice added Bob to project 'Apollo'",
		},
		{
			name: "member removed",
			kind: events.MemberRemoved,
			payload: MemberPayload{
				ProjectTitle: "Apollo", ActorName: "Alice", MemberName: "Bob",
			},
			want: "Alice removed Bob from project 'Apollo'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderEvent(t, tt.kind, tt.payload))
		})
	}
}

func TestRenderMalformedPayloadFallsBack(t *testing.T) {
	ev := events.Event{Kind: events.TaskStatusChanged, Payload: json.RawMessage(`not json`)}
	assert.Equal(t, "Activity on your project (task.status.changed)", Render(ev))
}

func TestRenderUnknownKindFallsBack(t *testing.T) {
	ev := events.Event{Kind: events.Kind("task.mystery")}
	assert.Equal(t, "Activity on your project (task.mystery)", Render(ev))
}
