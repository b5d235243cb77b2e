package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// userRepo owns the users table, wallet balance included.
type userRepo struct {
	db *sql.DB
}

const userSelectColumns = `id, email, password, phone_number, user_type, balance, is_active, is_staff,
		phone_verified, last_login_at, created_at, updated_at`

func userSelectBy(field string) string {
	return fmt.Sprintf("SELECT %s FROM users WHERE %s = ?", userSelectColumns, field)
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*repository.User, error) {
	row := r.db.QueryRowContext(ctx, userSelectBy("id"), id)
	return scanUser(row)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	row := r.db.QueryRowContext(ctx, userSelectBy("email"), email)
	return scanUser(row)
}

func (r *userRepo) FindByPhone(ctx context.Context, phone string) (*repository.User, error) {
	row := r.db.QueryRowContext(ctx, userSelectBy("phone_number"), phone)
	return scanUser(row)
}

func (r *userRepo) Create(ctx context.Context, user *repository.User) (*repository.User, error) {
	const stmt = `INSERT INTO users(
		email,
		password,
		phone_number,
		user_type,
		balance,
		is_active,
		is_staff,
		phone_verified,
		last_login_at,
		created_at,
		updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, stmt,
		user.Email,
		user.Password,
		user.PhoneNumber,
		user.UserType,
		user.BalanceKobo,
		boolToInt(user.IsActive),
		boolToInt(user.IsStaff),
		boolToInt(user.PhoneVerified),
		nullableInt(user.LastLoginAt),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		user.ID = id
	}
	return user, nil
}

func (r *userRepo) Save(ctx context.Context, user *repository.User) error {
	const stmt = `UPDATE users SET
		email = ?,
		password = ?,
		phone_number = ?,
		user_type = ?,
		is_active = ?,
		is_staff = ?,
		phone_verified = ?,
		last_login_at = ?,
		updated_at = ?
		WHERE id = ?`
	user.UpdatedAt = time.Now().Unix()
	res, err := r.db.ExecContext(ctx, stmt,
		user.Email,
		user.Password,
		user.PhoneNumber,
		user.UserType,
		boolToInt(user.IsActive),
		boolToInt(user.IsStaff),
		boolToInt(user.PhoneVerified),
		nullableInt(user.LastLoginAt),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
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

func (r *userRepo) UpdateLastLogin(ctx context.Context, id int64, at int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`, at, at, id)
	return err
}

func (r *userRepo) SetPhoneVerified(ctx context.Context, phone string, at int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET phone_verified = 1, updated_at = ? WHERE phone_number = ?`, at, phone)
	return err
}

func (r *userRepo) AdjustBalance(ctx context.Context, userID int64, deltaKobo int64) (bool, error) {
	// Balance never goes negative; a refused debit affects zero rows.
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ? AND (balance + ?) >= 0`,
		deltaKobo, time.Now().Unix(), userID, deltaKobo,
	)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *userRepo) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	return balance, err
}

func (r *userRepo) ListActiveCourierIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id FROM users u
		 JOIN courier_profiles cp ON cp.user_id = u.id
		 WHERE u.user_type = ? AND u.is_active = 1
		   AND cp.approval_status = ? AND cp.is_available = 1`,
		repository.UserTypeCourier, repository.ApprovalApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

func (r *userRepo) CountByType(ctx context.Context, userType string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE user_type = ?", userType).Scan(&count)
	return count, err
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type userScanner interface {
	Scan(dest ...any) error
}

func scanUser(row userScanner) (*repository.User, error) {
	var u repository.User
	var lastLogin sql.NullInt64

	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Password,
		&u.PhoneNumber,
		&u.UserType,
		&u.BalanceKobo,
		&u.IsActive,
		&u.IsStaff,
		&u.PhoneVerified,
		&lastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.LastLoginAt = nullableIntPtr(lastLogin)
	return &u, nil
}
