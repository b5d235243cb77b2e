package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// trackingRepo owns the tracking_history table.
type trackingRepo struct {
	db *sql.DB
}

func (r *trackingRepo) Append(ctx context.Context, entry *repository.TrackingEntry) (*repository.TrackingEntry, error) {
	const stmt = `INSERT INTO tracking_history(order_id, status, location, latitude, longitude, notes, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}
	res, err := r.db.ExecContext(ctx, stmt,
		entry.OrderID,
		entry.Status,
		entry.Location,
		nullableFloat(entry.Latitude),
		nullableFloat(entry.Longitude),
		entry.Notes,
		entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return entry, nil
}

func (r *trackingRepo) ListForOrder(ctx context.Context, orderID int64, limit int) ([]*repository.TrackingEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, order_id, status, location, latitude, longitude, notes, created_at
		FROM tracking_history WHERE order_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, orderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*repository.TrackingEntry
	for rows.Next() {
		var entry repository.TrackingEntry
		var lat, lng sql.NullFloat64
		if err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.Status,
			&entry.Location,
			&lat,
			&lng,
			&entry.Notes,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Latitude = nullableFloatPtr(lat)
		entry.Longitude = nullableFloatPtr(lng)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
