package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// loginLogRepo persists login attempts into SQLite for auditing.
type loginLogRepo struct {
	db *sql.DB
}

func (r *loginLogRepo) Create(ctx context.Context, entry *repository.LoginLog) error {
	if entry == nil {
		return fmt.Errorf("login log entry is required")
	}
	if strings.TrimSpace(entry.Email) == "" {
		return fmt.Errorf("login log email is required")
	}
	const stmt = `INSERT INTO login_logs(user_id, email, ip, user_agent, success, reason, created_at)
                  VALUES(?, ?, ?, ?, ?, ?, ?)`
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}
	var userID any
	if entry.UserID != nil && *entry.UserID > 0 {
		userID = *entry.UserID
	}
	_, err := r.db.ExecContext(
		ctx,
		stmt,
		userID,
		entry.Email,
		nullableString(entry.IP),
		nullableString(entry.UserAgent),
		boolToInt(entry.Success),
		nullableStr(entry.Reason),
		entry.CreatedAt,
	)
	return err
}

func (r *loginLogRepo) ListRecent(ctx context.Context, limit int) ([]*repository.LoginLog, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, user_id, email, ip, user_agent, success, reason, created_at
		FROM login_logs ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*repository.LoginLog
	for rows.Next() {
		var entry repository.LoginLog
		var userID sql.NullInt64
		var ip, agent, reason sql.NullString
		if err := rows.Scan(&entry.ID, &userID, &entry.Email, &ip, &agent, &entry.Success, &reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.UserID = nullableIntPtr(userID)
		if ip.Valid {
			entry.IP = ip.String
		}
		if agent.Valid {
			entry.UserAgent = agent.String
		}
		entry.Reason = nullableStrPtr(reason)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (r *loginLogRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM login_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
