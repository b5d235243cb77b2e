package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// passwordResetRepo owns the password_reset_tokens table.
// Only token hashes are stored; raw tokens never touch the database.
type passwordResetRepo struct {
	db *sql.DB
}

func (r *passwordResetRepo) Create(ctx context.Context, token *repository.PasswordResetToken) (*repository.PasswordResetToken, error) {
	const stmt = `INSERT INTO password_reset_tokens(user_id, token_hash, expires_at, used_at, created_at)
		VALUES(?, ?, ?, ?, ?)`
	token.CreatedAt = time.Now().Unix()

	res, err := r.db.ExecContext(ctx, stmt,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		nullableInt(token.UsedAt),
		token.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		token.ID = id
	}
	return token, nil
}

func (r *passwordResetRepo) FindByHash(ctx context.Context, tokenHash string) (*repository.PasswordResetToken, error) {
	const query = `SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_reset_tokens WHERE token_hash = ?`
	var t repository.PasswordResetToken
	var usedAt sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	t.UsedAt = nullableIntPtr(usedAt)
	return &t, nil
}

func (r *passwordResetRepo) MarkUsed(ctx context.Context, id int64, at int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL`, at, id)
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

func (r *passwordResetRepo) InvalidateUnusedForUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE user_id = ? AND used_at IS NULL`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *passwordResetRepo) CountRecentForUser(ctx context.Context, userID int64, since int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM password_reset_tokens WHERE user_id = ? AND created_at >= ?`,
		userID, since).Scan(&count)
	return count, err
}

func (r *passwordResetRepo) DeleteExpired(ctx context.Context, before int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
