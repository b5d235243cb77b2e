package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// categoryRepo owns the categories table.
type categoryRepo struct {
	db *sql.DB
}

const categoryColumns = `id, name, slug, description, icon_url, is_featured, is_active, created_at, updated_at`

func (r *categoryRepo) ListActive(ctx context.Context) ([]*repository.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE is_active = 1 ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*repository.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *categoryRepo) FindByID(ctx context.Context, id int64) (*repository.Category, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	return scanCategory(row)
}

func (r *categoryRepo) FindBySlug(ctx context.Context, slug string) (*repository.Category, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE slug = ?", slug)
	return scanCategory(row)
}

func (r *categoryRepo) Create(ctx context.Context, category *repository.Category) (*repository.Category, error) {
	const stmt = `INSERT INTO categories(name, slug, description, icon_url, is_featured, is_active, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	category.CreatedAt = now
	category.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, stmt,
		category.Name,
		category.Slug,
		category.Description,
		nullableStr(category.IconURL),
		boolToInt(category.IsFeatured),
		boolToInt(category.IsActive),
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		category.ID = id
	}
	return category, nil
}

func (r *categoryRepo) Save(ctx context.Context, category *repository.Category) error {
	const stmt = `UPDATE categories SET
		name = ?,
		slug = ?,
		description = ?,
		icon_url = ?,
		is_featured = ?,
		is_active = ?,
		updated_at = ?
		WHERE id = ?`
	category.UpdatedAt = time.Now().Unix()
	res, err := r.db.ExecContext(ctx, stmt,
		category.Name,
		category.Slug,
		category.Description,
		nullableStr(category.IconURL),
		boolToInt(category.IsFeatured),
		boolToInt(category.IsActive),
		category.UpdatedAt,
		category.ID,
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

type categoryScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row categoryScanner) (*repository.Category, error) {
	var c repository.Category
	var iconURL sql.NullString

	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&iconURL,
		&c.IsFeatured,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	c.IconURL = nullableStrPtr(iconURL)
	return &c, nil
}
