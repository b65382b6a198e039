package repository

import (
	"context"
	"database/sql"

	"taskpulse-api/pkg/events"
)

// MembershipsRepository resolves the audience of an event: every member of
// the subject project plus the task's assignees, minus the actor. It backs
// notify.RecipientResolver.
type MembershipsRepository struct {
	db *sql.DB
}

func NewMembershipsRepository(db *sql.DB) *MembershipsRepository {
	return &MembershipsRepository{db: db}
}

func (r *MembershipsRepository) Resolve(ctx context.Context, ev events.Event) ([]int, error) {
	taskID := 0
	for _, k := range events.TaskKinds() {
		if ev.Kind == k {
			taskID = ev.SubjectID
		}
	}
	if ev.Kind == events.TaskCommented {
		taskID = ev.SubjectID
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT m.user_id FROM (
			SELECT user_id FROM project_members WHERE project_id = $1
			UNION
			SELECT user_id FROM task_assignees WHERE task_id = $2
		) m
		WHERE m.user_id > 0 AND m.user_id <> $3
	`, ev.ProjectID, taskID, ev.ActorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		recipients = append(recipients, id)
	}
	return recipients, rows.Err()
}
