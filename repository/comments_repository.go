package repository

import (
	"context"
	"database/sql"

	"taskpulse-api/timeline"
)

// CommentsRepository reads task comments for the timeline. Comment CRUD is
// owned by the excluded data layer; Create exists for that layer and for
// seeding.
type CommentsRepository struct {
	db *sql.DB
}

func NewCommentsRepository(db *sql.DB) *CommentsRepository {
	return &CommentsRepository{db: db}
}

func (r *CommentsRepository) Create(ctx context.Context, c timeline.Comment) (timeline.Comment, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO task_comments (task_id, author_id, body, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING seq
	`, c.TaskID, c.AuthorID, c.Body, c.OccurredAt).Scan(&c.Seq)
	if err != nil {
		return timeline.Comment{}, err
	}
	return c, nil
}

func (r *CommentsRepository) ListByTask(ctx context.Context, taskID int) ([]timeline.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, task_id, author_id, body, occurred_at
		FROM task_comments
		WHERE task_id = $1
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []timeline.Comment
	for rows.Next() {
		var c timeline.Comment
		if err := rows.Scan(&c.Seq, &c.TaskID, &c.AuthorID, &c.Body, &c.OccurredAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
