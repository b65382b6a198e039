package repository

import (
	"context"
	"database/sql"

	"taskpulse-api/timeline"
)

// AuditsRepository stores the append-only task audit log. The seq column is a
// bigserial, which gives the strictly increasing insertion sequence the
// timeline tie-break relies on.
type AuditsRepository struct {
	db *sql.DB
}

func NewAuditsRepository(db *sql.DB) *AuditsRepository {
	return &AuditsRepository{db: db}
}

func (r *AuditsRepository) Append(ctx context.Context, entry timeline.AuditEntry) (timeline.AuditEntry, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO task_audits (task_id, kind, actor_id, before_value, after_value, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`, entry.TaskID, string(entry.Kind), entry.ActorID, entry.Before, entry.After, entry.OccurredAt).Scan(&entry.Seq)
	if err != nil {
		return timeline.AuditEntry{}, err
	}
	return entry, nil
}

func (r *AuditsRepository) ListByTask(ctx context.Context, taskID int) ([]timeline.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, task_id, kind, actor_id, before_value, after_value, occurred_at
		FROM task_audits
		WHERE task_id = $1
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []timeline.AuditEntry
	for rows.Next() {
		var e timeline.AuditEntry
		var kind string
		if err := rows.Scan(&e.Seq, &e.TaskID, &kind, &e.ActorID, &e.Before, &e.After, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Kind = timeline.AuditKind(kind)
		result = append(result, e)
	}
	return result, rows.Err()
}
