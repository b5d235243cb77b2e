package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// faqRepo owns the faqs table.
type faqRepo struct {
	db *sql.DB
}

const faqColumns = `id, question, answer, category, display_order, is_active, created_at, updated_at`

func (r *faqRepo) ListActive(ctx context.Context, category *string) ([]*repository.FAQ, error) {
	query := "SELECT " + faqColumns + " FROM faqs WHERE is_active = 1"
	var args []any
	if category != nil {
		query += " AND category = ?"
		args = append(args, *category)
	}
	query += " ORDER BY category ASC, display_order ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faqs []*repository.FAQ
	for rows.Next() {
		faq, err := scanFAQ(rows)
		if err != nil {
			return nil, err
		}
		faqs = append(faqs, faq)
	}
	return faqs, rows.Err()
}

func (r *faqRepo) FindByID(ctx context.Context, id int64) (*repository.FAQ, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+faqColumns+" FROM faqs WHERE id = ?", id)
	return scanFAQ(row)
}

func (r *faqRepo) Create(ctx context.Context, faq *repository.FAQ) (*repository.FAQ, error) {
	now := time.Now().Unix()
	faq.CreatedAt = now
	faq.UpdatedAt = now

	const stmt = `INSERT INTO faqs(question, answer, category, display_order, is_active, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		faq.Question,
		faq.Answer,
		faq.Category,
		faq.DisplayOrder,
		boolToInt(faq.IsActive),
		faq.CreatedAt,
		faq.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		faq.ID = id
	}
	return faq, nil
}

func (r *faqRepo) Save(ctx context.Context, faq *repository.FAQ) error {
	faq.UpdatedAt = time.Now().Unix()
	const stmt = `UPDATE faqs SET question = ?, answer = ?, category = ?, display_order = ?,
		is_active = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt,
		faq.Question,
		faq.Answer,
		faq.Category,
		faq.DisplayOrder,
		boolToInt(faq.IsActive),
		faq.UpdatedAt,
		faq.ID,
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

type faqScanner interface {
	Scan(dest ...any) error
}

func scanFAQ(row faqScanner) (*repository.FAQ, error) {
	var f repository.FAQ
	if err := row.Scan(
		&f.ID,
		&f.Question,
		&f.Answer,
		&f.Category,
		&f.DisplayOrder,
		&f.IsActive,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}
