package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// helpRequestRepo owns the help_requests table.
type helpRequestRepo struct {
	db *sql.DB
}

const helpRequestColumns = `id, user_id, user_email, user_name, phone_number, subject, message,
		category, priority, status, workflow_triggered, workflow_id, created_at, updated_at`

func (r *helpRequestRepo) Create(ctx context.Context, request *repository.HelpRequest) (*repository.HelpRequest, error) {
	now := time.Now().Unix()
	request.CreatedAt = now
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = repository.HelpPending
	}
	if request.Priority == "" {
		request.Priority = "NORMAL"
	}

	const stmt = `INSERT INTO help_requests(user_id, user_email, user_name, phone_number, subject,
		message, category, priority, status, workflow_triggered, workflow_id, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		nullableInt(request.UserID),
		request.UserEmail,
		nullableStr(request.UserName),
		nullableStr(request.PhoneNumber),
		request.Subject,
		request.Message,
		request.Category,
		request.Priority,
		request.Status,
		boolToInt(request.WorkflowTriggered),
		nullableStr(request.WorkflowID),
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		request.ID = id
	}
	return request, nil
}

func (r *helpRequestRepo) FindByID(ctx context.Context, id int64) (*repository.HelpRequest, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+helpRequestColumns+" FROM help_requests WHERE id = ?", id)
	return scanHelpRequest(row)
}

func helpRequestFilterClauses(filter repository.HelpRequestFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Email != nil {
		conds = append(conds, "user_email = ?")
		args = append(args, *filter.Email)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *helpRequestRepo) List(ctx context.Context, filter repository.HelpRequestFilter) ([]*repository.HelpRequest, error) {
	where, args := helpRequestFilterClauses(filter)
	query := "SELECT " + helpRequestColumns + " FROM help_requests" + where +
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

	var requests []*repository.HelpRequest
	for rows.Next() {
		request, err := scanHelpRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func (r *helpRequestRepo) Count(ctx context.Context, filter repository.HelpRequestFilter) (int64, error) {
	where, args := helpRequestFilterClauses(filter)
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM help_requests"+where, args...).Scan(&count)
	return count, err
}

func (r *helpRequestRepo) Save(ctx context.Context, request *repository.HelpRequest) error {
	request.UpdatedAt = time.Now().Unix()
	const stmt = `UPDATE help_requests SET user_email = ?, user_name = ?, phone_number = ?,
		subject = ?, message = ?, category = ?, priority = ?, status = ?,
		workflow_triggered = ?, workflow_id = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt,
		request.UserEmail,
		nullableStr(request.UserName),
		nullableStr(request.PhoneNumber),
		request.Subject,
		request.Message,
		request.Category,
		request.Priority,
		request.Status,
		boolToInt(request.WorkflowTriggered),
		nullableStr(request.WorkflowID),
		request.UpdatedAt,
		request.ID,
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

func (r *helpRequestRepo) SetWorkflow(ctx context.Context, id int64, triggered bool, workflowID *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE help_requests SET workflow_triggered = ?, workflow_id = ?, updated_at = ? WHERE id = ?`,
		boolToInt(triggered), nullableStr(workflowID), time.Now().Unix(), id)
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

func (r *helpRequestRepo) SetStatus(ctx context.Context, id int64, status string, at int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE help_requests SET status = ?, updated_at = ? WHERE id = ?`, status, at, id)
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

type helpRequestScanner interface {
	Scan(dest ...any) error
}

func scanHelpRequest(row helpRequestScanner) (*repository.HelpRequest, error) {
	var h repository.HelpRequest
	var userID sql.NullInt64
	var userName, phone, workflowID sql.NullString
	if err := row.Scan(
		&h.ID,
		&userID,
		&h.UserEmail,
		&userName,
		&phone,
		&h.Subject,
		&h.Message,
		&h.Category,
		&h.Priority,
		&h.Status,
		&h.WorkflowTriggered,
		&workflowID,
		&h.CreatedAt,
		&h.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	h.UserID = nullableIntPtr(userID)
	h.UserName = nullableStrPtr(userName)
	h.PhoneNumber = nullableStrPtr(phone)
	h.WorkflowID = nullableStrPtr(workflowID)
	return &h, nil
}
