package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// recipientRepo owns the transfer_recipients table.
type recipientRepo struct {
	db *sql.DB
}

const recipientColumns = `id, user_id, recipient_code, recipient_type, name, account_number,
		bank_code, bank_name, currency, is_active, created_at, updated_at`

func (r *recipientRepo) Create(ctx context.Context, recipient *repository.TransferRecipient) (*repository.TransferRecipient, error) {
	now := time.Now().Unix()
	recipient.CreatedAt = now
	recipient.UpdatedAt = now
	if recipient.Currency == "" {
		recipient.Currency = "NGN"
	}
	if recipient.RecipientType == "" {
		recipient.RecipientType = "nuban"
	}

	const stmt = `INSERT INTO transfer_recipients(user_id, recipient_code, recipient_type, name,
		account_number, bank_code, bank_name, currency, is_active, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		recipient.UserID,
		recipient.RecipientCode,
		recipient.RecipientType,
		recipient.Name,
		recipient.AccountNumber,
		nullableStr(recipient.BankCode),
		nullableStr(recipient.BankName),
		recipient.Currency,
		boolToInt(recipient.IsActive),
		recipient.CreatedAt,
		recipient.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		recipient.ID = id
	}
	return recipient, nil
}

func (r *recipientRepo) ListForUser(ctx context.Context, userID int64) ([]*repository.TransferRecipient, error) {
	query := "SELECT " + recipientColumns + ` FROM transfer_recipients
		WHERE user_id = ? AND is_active = 1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []*repository.TransferRecipient
	for rows.Next() {
		recipient, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)
	}
	return recipients, rows.Err()
}

func (r *recipientRepo) FindByID(ctx context.Context, id int64) (*repository.TransferRecipient, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+recipientColumns+" FROM transfer_recipients WHERE id = ?", id)
	return scanRecipient(row)
}

func (r *recipientRepo) FindByCode(ctx context.Context, code string) (*repository.TransferRecipient, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+recipientColumns+" FROM transfer_recipients WHERE recipient_code = ?", code)
	return scanRecipient(row)
}

func (r *recipientRepo) Save(ctx context.Context, recipient *repository.TransferRecipient) error {
	recipient.UpdatedAt = time.Now().Unix()
	const stmt = `UPDATE transfer_recipients SET name = ?, account_number = ?, bank_code = ?,
		bank_name = ?, currency = ?, is_active = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt,
		recipient.Name,
		recipient.AccountNumber,
		nullableStr(recipient.BankCode),
		nullableStr(recipient.BankName),
		recipient.Currency,
		boolToInt(recipient.IsActive),
		recipient.UpdatedAt,
		recipient.ID,
	)
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

type recipientScanner interface {
	Scan(dest ...any) error
}

func scanRecipient(row recipientScanner) (*repository.TransferRecipient, error) {
	var t repository.TransferRecipient
	var bankCode, bankName sql.NullString
	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.RecipientCode,
		&t.RecipientType,
		&t.Name,
		&t.AccountNumber,
		&bankCode,
		&bankName,
		&t.Currency,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	t.BankCode = nullableStrPtr(bankCode)
	t.BankName = nullableStrPtr(bankName)
	return &t, nil
}
