package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// phoneVerificationRepo owns the phone_verifications table.
type phoneVerificationRepo struct {
	db *sql.DB
}

const phoneVerificationColumns = `id, phone_number, provider_sid, method, expires_at,
		attempts, max_attempts, is_verified, is_active, verified_at, created_at`

func (r *phoneVerificationRepo) Create(ctx context.Context, verification *repository.PhoneVerification) (*repository.PhoneVerification, error) {
	verification.CreatedAt = time.Now().Unix()

	const stmt = `INSERT INTO phone_verifications(phone_number, provider_sid, method, expires_at,
		attempts, max_attempts, is_verified, is_active, verified_at, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		verification.PhoneNumber,
		verification.ProviderSID,
		verification.Method,
		verification.ExpiresAt,
		verification.Attempts,
		verification.MaxAttempts,
		boolToInt(verification.IsVerified),
		boolToInt(verification.IsActive),
		nullableInt(verification.VerifiedAt),
		verification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		verification.ID = id
	}
	return verification, nil
}

func (r *phoneVerificationRepo) LatestForPhone(ctx context.Context, phone string) (*repository.PhoneVerification, error) {
	query := "SELECT " + phoneVerificationColumns + ` FROM phone_verifications
		WHERE phone_number = ? ORDER BY created_at DESC, id DESC LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, phone)
	return scanPhoneVerification(row)
}

func (r *phoneVerificationRepo) LatestActiveForPhone(ctx context.Context, phone string) (*repository.PhoneVerification, error) {
	query := "SELECT " + phoneVerificationColumns + ` FROM phone_verifications
		WHERE phone_number = ? AND is_active = 1 ORDER BY created_at DESC, id DESC LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, phone)
	return scanPhoneVerification(row)
}

func (r *phoneVerificationRepo) DeactivateForPhone(ctx context.Context, phone string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE phone_verifications SET is_active = 0 WHERE phone_number = ? AND is_active = 1`, phone)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *phoneVerificationRepo) IncrementAttempts(ctx context.Context, id int64) (int64, error) {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE phone_verifications SET attempts = attempts + 1 WHERE id = ?`, id); err != nil {
		return 0, err
	}
	var attempts int64
	err := r.db.QueryRowContext(ctx,
		`SELECT attempts FROM phone_verifications WHERE id = ?`, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	return attempts, err
}

func (r *phoneVerificationRepo) MarkVerified(ctx context.Context, id int64, at int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE phone_verifications SET is_verified = 1, is_active = 0, verified_at = ? WHERE id = ?`, at, id)
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

func (r *phoneVerificationRepo) DeleteExpired(ctx context.Context, before int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM phone_verifications WHERE is_verified = 0 AND expires_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type phoneVerificationScanner interface {
	Scan(dest ...any) error
}

func scanPhoneVerification(row phoneVerificationScanner) (*repository.PhoneVerification, error) {
	var v repository.PhoneVerification
	var verifiedAt sql.NullInt64
	if err := row.Scan(
		&v.ID,
		&v.PhoneNumber,
		&v.ProviderSID,
		&v.Method,
		&v.ExpiresAt,
		&v.Attempts,
		&v.MaxAttempts,
		&v.IsVerified,
		&v.IsActive,
		&verifiedAt,
		&v.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	v.VerifiedAt = nullableIntPtr(verifiedAt)
	return &v, nil
}
