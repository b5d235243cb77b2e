package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// transactionRepo owns the transactions table and the settlement flows
// that touch the wallet balance.
type transactionRepo struct {
	db *sql.DB
}

const transactionColumns = `id, user_id, type, status, payment_method, amount, fee, net_amount,
		reference, provider_txn_id, provider_reference, description, metadata, completed_at,
		created_at, updated_at`

func transactionSelectBy(field string) string {
	return fmt.Sprintf("SELECT %s FROM transactions WHERE %s = ?", transactionColumns, field)
}

func (r *transactionRepo) Create(ctx context.Context, txn *repository.Transaction) (*repository.Transaction, error) {
	const stmt = `INSERT INTO transactions(
		user_id,
		type,
		status,
		payment_method,
		amount,
		fee,
		net_amount,
		reference,
		provider_txn_id,
		provider_reference,
		description,
		metadata,
		completed_at,
		created_at,
		updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	if txn.NetAmountKobo == 0 {
		txn.NetAmountKobo = txn.AmountKobo - txn.FeeKobo
	}

	res, err := r.db.ExecContext(ctx, stmt,
		txn.UserID,
		txn.Type,
		txn.Status,
		txn.PaymentMethod,
		txn.AmountKobo,
		txn.FeeKobo,
		txn.NetAmountKobo,
		txn.Reference,
		nullableStr(txn.ProviderTxnID),
		nullableStr(txn.ProviderReference),
		nullableStr(txn.Description),
		encodeJSON(txn.Metadata),
		nullableInt(txn.CompletedAt),
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		txn.ID = id
	}
	return txn, nil
}

func (r *transactionRepo) FindByID(ctx context.Context, id int64) (*repository.Transaction, error) {
	row := r.db.QueryRowContext(ctx, transactionSelectBy("id"), id)
	return scanTransaction(row)
}

func (r *transactionRepo) FindByReference(ctx context.Context, reference string) (*repository.Transaction, error) {
	row := r.db.QueryRowContext(ctx, transactionSelectBy("reference"), reference)
	return scanTransaction(row)
}

func (r *transactionRepo) FindByProviderReference(ctx context.Context, reference string) (*repository.Transaction, error) {
	row := r.db.QueryRowContext(ctx, transactionSelectBy("provider_reference"), reference)
	return scanTransaction(row)
}

func transactionFilterClauses(filter repository.TransactionFilter) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{filter.UserID}

	if filter.Type != nil {
		conds = append(conds, "type = ?")
		args = append(args, *filter.Type)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.StartAt != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *filter.StartAt)
	}
	if filter.EndAt != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, *filter.EndAt)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *transactionRepo) List(ctx context.Context, filter repository.TransactionFilter) ([]*repository.Transaction, error) {
	where, args := transactionFilterClauses(filter)
	query := "SELECT " + transactionColumns + " FROM transactions" + where +
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

	var txns []*repository.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func (r *transactionRepo) Count(ctx context.Context, filter repository.TransactionFilter) (int64, error) {
	where, args := transactionFilterClauses(filter)
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&count)
	return count, err
}

func (r *transactionRepo) Save(ctx context.Context, txn *repository.Transaction) error {
	const stmt = `UPDATE transactions SET
		status = ?,
		provider_txn_id = ?,
		provider_reference = ?,
		description = ?,
		metadata = ?,
		completed_at = ?,
		updated_at = ?
		WHERE id = ?`
	txn.UpdatedAt = time.Now().Unix()
	res, err := r.db.ExecContext(ctx, stmt,
		txn.Status,
		nullableStr(txn.ProviderTxnID),
		nullableStr(txn.ProviderReference),
		nullableStr(txn.Description),
		encodeJSON(txn.Metadata),
		nullableInt(txn.CompletedAt),
		txn.UpdatedAt,
		txn.ID,
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

func (r *transactionRepo) MarkSuccessAndCredit(ctx context.Context, txnID int64, completedAt int64) (bool, error) {
	return r.settle(ctx, txnID, completedAt, settlement{
		fromStatuses: []string{repository.TxnPending, repository.TxnProcessing},
		toStatus:     repository.TxnSuccess,
		creditNet:    true,
	})
}

func (r *transactionRepo) MarkStatus(ctx context.Context, txnID int64, status string, completedAt int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		status, completedAt, completedAt, txnID, repository.TxnPending, repository.TxnProcessing)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *transactionRepo) MarkFailedAndRefund(ctx context.Context, txnID int64, completedAt int64) (bool, error) {
	return r.settle(ctx, txnID, completedAt, settlement{
		fromStatuses: []string{repository.TxnPending, repository.TxnProcessing},
		toStatus:     repository.TxnFailed,
		creditGross:  true,
	})
}

func (r *transactionRepo) MarkReversedAndRefund(ctx context.Context, txnID int64, completedAt int64) (bool, error) {
	return r.settle(ctx, txnID, completedAt, settlement{
		fromStatuses: []string{repository.TxnSuccess, repository.TxnPending, repository.TxnProcessing},
		toStatus:     repository.TxnReversed,
		creditGross:  true,
	})
}

type settlement struct {
	fromStatuses []string
	toStatus     string
	creditNet    bool // credit net_amount (deposit settled)
	creditGross  bool // credit amount (withdrawal returned)
}

// settle flips the transaction status and adjusts the wallet in one
// database transaction. The conditional status update makes repeated
// webhook deliveries no-ops.
func (r *transactionRepo) settle(ctx context.Context, txnID int64, completedAt int64, s settlement) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT user_id, amount, net_amount, status FROM transactions WHERE id = ?`, txnID)
	var userID, amount, netAmount int64
	var status string
	if err := row.Scan(&userID, &amount, &netAmount, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, repository.ErrNotFound
		}
		return false, err
	}

	eligible := false
	for _, from := range s.fromStatuses {
		if status == from {
			eligible = true
			break
		}
	}
	if !eligible {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		s.toStatus, completedAt, completedAt, txnID); err != nil {
		return false, err
	}

	var delta int64
	switch {
	case s.creditNet:
		delta = netAmount
	case s.creditGross:
		delta = amount
	}
	if delta != 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ?`,
			delta, completedAt, userID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

type transactionScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row transactionScanner) (*repository.Transaction, error) {
	var t repository.Transaction
	var providerTxnID, providerRef, description, metadata sql.NullString
	var completedAt sql.NullInt64

	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Type,
		&t.Status,
		&t.PaymentMethod,
		&t.AmountKobo,
		&t.FeeKobo,
		&t.NetAmountKobo,
		&t.Reference,
		&providerTxnID,
		&providerRef,
		&description,
		&metadata,
		&completedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	t.ProviderTxnID = nullableStrPtr(providerTxnID)
	t.ProviderReference = nullableStrPtr(providerRef)
	t.Description = nullableStrPtr(description)
	t.Metadata = decodeJSON(metadata)
	t.CompletedAt = nullableIntPtr(completedAt)
	return &t, nil
}
