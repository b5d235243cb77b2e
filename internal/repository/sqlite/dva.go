package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// dvaRepo owns the dedicated_virtual_accounts table.
type dvaRepo struct {
	db *sql.DB
}

const dvaColumns = `id, user_id, customer_code, account_number, account_name,
		bank_name, bank_slug, currency, created_at, updated_at`

func (r *dvaRepo) FindByUser(ctx context.Context, userID int64) (*repository.DedicatedVirtualAccount, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+dvaColumns+" FROM dedicated_virtual_accounts WHERE user_id = ?", userID)
	return scanDVA(row)
}

func (r *dvaRepo) FindByAccountNumber(ctx context.Context, accountNumber string) (*repository.DedicatedVirtualAccount, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+dvaColumns+" FROM dedicated_virtual_accounts WHERE account_number = ?", accountNumber)
	return scanDVA(row)
}

func (r *dvaRepo) Create(ctx context.Context, account *repository.DedicatedVirtualAccount) (*repository.DedicatedVirtualAccount, error) {
	now := time.Now().Unix()
	account.CreatedAt = now
	account.UpdatedAt = now
	if account.Currency == "" {
		account.Currency = "NGN"
	}

	const stmt = `INSERT INTO dedicated_virtual_accounts(user_id, customer_code, account_number,
		account_name, bank_name, bank_slug, currency, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		account.UserID,
		account.CustomerCode,
		account.AccountNumber,
		account.AccountName,
		account.BankName,
		account.BankSlug,
		account.Currency,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		account.ID = id
	}
	return account, nil
}

type dvaScanner interface {
	Scan(dest ...any) error
}

func scanDVA(row dvaScanner) (*repository.DedicatedVirtualAccount, error) {
	var a repository.DedicatedVirtualAccount
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.CustomerCode,
		&a.AccountNumber,
		&a.AccountName,
		&a.BankName,
		&a.BankSlug,
		&a.Currency,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
