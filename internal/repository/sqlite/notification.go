package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// notificationRepo owns the notifications table.
type notificationRepo struct {
	db *sql.DB
}

const notificationColumns = `id, user_id, type, title, message, is_read, transaction_id,
		metadata, read_at, created_at, updated_at`

func (r *notificationRepo) Create(ctx context.Context, notification *repository.Notification) (*repository.Notification, error) {
	now := time.Now().Unix()
	notification.CreatedAt = now
	notification.UpdatedAt = now

	const stmt = `INSERT INTO notifications(user_id, type, title, message, is_read, transaction_id,
		metadata, read_at, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Message,
		boolToInt(notification.IsRead),
		nullableInt(notification.TransactionID),
		encodeJSON(notification.Metadata),
		nullableInt(notification.ReadAt),
		notification.CreatedAt,
		notification.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		notification.ID = id
	}
	return notification, nil
}

func notificationFilterClauses(filter repository.NotificationFilter) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{filter.UserID}
	if filter.IsRead != nil {
		conds = append(conds, "is_read = ?")
		args = append(args, boolToInt(*filter.IsRead))
	}
	if filter.Type != nil {
		conds = append(conds, "type = ?")
		args = append(args, *filter.Type)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *notificationRepo) List(ctx context.Context, filter repository.NotificationFilter) ([]*repository.Notification, error) {
	where, args := notificationFilterClauses(filter)
	query := "SELECT " + notificationColumns + " FROM notifications" + where +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"

	limit := 20
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	offset := 0
	if filter.Offset > 0 {
		offset = filter.Offset
	}
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*repository.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	return notifications, rows.Err()
}

func (r *notificationRepo) Count(ctx context.Context, filter repository.NotificationFilter) (int64, error) {
	where, args := notificationFilterClauses(filter)
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications"+where, args...).Scan(&count)
	return count, err
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID).Scan(&count)
	return count, err
}

func (r *notificationRepo) FindByID(ctx context.Context, id int64) (*repository.Notification, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id)
	return scanNotification(row)
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID int64, at int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, read_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND is_read = 0`, at, at, id, userID)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID int64, at int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, read_at = ?, updated_at = ?
		 WHERE user_id = ? AND is_read = 0`, at, at, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type notificationScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row notificationScanner) (*repository.Notification, error) {
	var n repository.Notification
	var transactionID, readAt sql.NullInt64
	var metadata sql.NullString
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.IsRead,
		&transactionID,
		&metadata,
		&readAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	n.TransactionID = nullableIntPtr(transactionID)
	n.Metadata = decodeJSON(metadata)
	n.ReadAt = nullableIntPtr(readAt)
	return &n, nil
}
