package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// webhookEventRepo owns the webhook_events table.
type webhookEventRepo struct {
	db *sql.DB
}

func (r *webhookEventRepo) Create(ctx context.Context, event *repository.WebhookEvent) (*repository.WebhookEvent, error) {
	event.CreatedAt = time.Now().Unix()

	const stmt = `INSERT INTO webhook_events(event_type, reference, dedupe_key, payload, processed, created_at)
		VALUES(?, ?, ?, ?, 0, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		event.EventType,
		event.Reference,
		event.DedupeKey,
		encodeJSON(event.Payload),
		event.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}
	return event, nil
}

func (r *webhookEventRepo) FindByDedupeKey(ctx context.Context, dedupeKey string) (*repository.WebhookEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, event_type, reference, dedupe_key, payload, processed, processed_at, error, created_at
		 FROM webhook_events WHERE dedupe_key = ?`, dedupeKey)

	var event repository.WebhookEvent
	var payload sql.NullString
	var processedAt sql.NullInt64
	var procErr sql.NullString
	if err := row.Scan(
		&event.ID,
		&event.EventType,
		&event.Reference,
		&event.DedupeKey,
		&payload,
		&event.Processed,
		&processedAt,
		&procErr,
		&event.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if payload.Valid {
		event.Payload = []byte(payload.String)
	}
	event.ProcessedAt = nullableIntPtr(processedAt)
	event.Error = nullableStrPtr(procErr)
	return &event, nil
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, id int64, at int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE webhook_events SET processed = 1, processed_at = ?, error = NULL WHERE id = ?`,
		at, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkFailed keeps processed at 0 so a provider retry reprocesses the row.
func (r *webhookEventRepo) MarkFailed(ctx context.Context, id int64, at int64, message string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE webhook_events SET processed_at = ?, error = ? WHERE id = ?`,
		at, message, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
