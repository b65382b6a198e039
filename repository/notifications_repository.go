package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskpulse-api/notify"
)

// escapeLike neutralizes LIKE wildcards so a search term matches as a
// literal substring.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// NotificationsRepository implements notify.Store on PostgreSQL.
type NotificationsRepository struct {
	db *sql.DB
}

func NewNotificationsRepository(db *sql.DB) *NotificationsRepository {
	return &NotificationsRepository{db: db}
}

func (r *NotificationsRepository) Create(ctx context.Context, n notify.Notification) (notify.Notification, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (recipient_id, actor_id, project_id, task_id, kind, message)
		VALUES ($1, $2, NULLIF($3, 0), NULLIF($4, 0), $5, $6)
		RETURNING id, created_at
	`, n.RecipientID, n.ActorID, n.ProjectID, n.TaskID, n.Kind, n.Message).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return notify.Notification{}, err
	}
	return n, nil
}

func (r *NotificationsRepository) List(ctx context.Context, userID int, params notify.ListParams) ([]notify.Notification, int, error) {
	where := "recipient_id = $1"
	args := []any{userID}
	if params.Search != "" {
		args = append(args, escapeLike(params.Search))
		where += fmt.Sprintf(` AND message ILIKE '%%' || $%d || '%%' ESCAPE '\'`, len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "DESC"
	if params.Sort == notify.SortOldest {
		order = "ASC"
	}
	query := fmt.Sprintf(`
		SELECT id, recipient_id, actor_id, COALESCE(project_id, 0), COALESCE(task_id, 0),
		       kind, message, is_read, created_at, read_at
		FROM notifications
		WHERE %s
		ORDER BY created_at %s, id %s
		LIMIT $%d OFFSET $%d
	`, where, order, order, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := make([]notify.Notification, 0, params.PerPage)
	for rows.Next() {
		var n notify.Notification
		var readAt sql.NullTime
		if err := rows.Scan(
			&n.ID, &n.RecipientID, &n.ActorID, &n.ProjectID, &n.TaskID,
			&n.Kind, &n.Message, &n.IsRead, &n.CreatedAt, &readAt,
		); err != nil {
			return nil, 0, err
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		result = append(result, n)
	}
	return result, total, rows.Err()
}

func (r *NotificationsRepository) MarkRead(ctx context.Context, id, userID int) error {
	var recipientID int
	var isRead bool
	err := r.db.QueryRowContext(ctx, `
		SELECT recipient_id, is_read FROM notifications WHERE id = $1
	`, id).Scan(&recipientID, &isRead)
	if errors.Is(err, sql.ErrNoRows) {
		return notify.ErrNotFound
	}
	if err != nil {
		return err
	}
	if recipientID != userID {
		return notify.ErrNotOwned
	}
	if isRead {
		// Idempotent: re-marking is a no-op.
		return nil
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = NOW()
		WHERE id = $1 AND is_read = FALSE
	`, id)
	return err
}

func (r *NotificationsRepository) MarkAllRead(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = NOW()
		WHERE recipient_id = $1 AND is_read = FALSE
	`, userID)
	return err
}
