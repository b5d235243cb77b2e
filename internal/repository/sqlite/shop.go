package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// shopRepo owns the shops table.
type shopRepo struct {
	db *sql.DB
}

const shopColumns = `id, name, slug, description, owner_name, logo_url, cover_image_url, address,
		phone_number, email, rating, total_sales, is_verified, is_active, created_at, updated_at`

func shopFilterClauses(filter repository.ShopFilter) (string, []any) {
	conds := []string{"is_active = 1"}
	var args []any
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		conds = append(conds, "(name LIKE ? OR description LIKE ?)")
		args = append(args, like, like)
	}
	if filter.CategoryID != nil {
		conds = append(conds, "EXISTS (SELECT 1 FROM products p WHERE p.shop_id = shops.id AND p.category_id = ?)")
		args = append(args, *filter.CategoryID)
	}
	if filter.Verified != nil {
		conds = append(conds, "is_verified = ?")
		args = append(args, boolToInt(*filter.Verified))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *shopRepo) List(ctx context.Context, filter repository.ShopFilter) ([]*repository.Shop, error) {
	where, args := shopFilterClauses(filter)
	query := "SELECT " + shopColumns + " FROM shops" + where + " ORDER BY name ASC LIMIT ? OFFSET ?"

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

	var shops []*repository.Shop
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		shops = append(shops, shop)
	}
	return shops, rows.Err()
}

func (r *shopRepo) Count(ctx context.Context, filter repository.ShopFilter) (int64, error) {
	where, args := shopFilterClauses(filter)
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shops"+where, args...).Scan(&count)
	return count, err
}

func (r *shopRepo) FindByID(ctx context.Context, id int64) (*repository.Shop, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+shopColumns+" FROM shops WHERE id = ?", id)
	return scanShop(row)
}

func (r *shopRepo) FindBySlug(ctx context.Context, slug string) (*repository.Shop, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+shopColumns+" FROM shops WHERE slug = ?", slug)
	return scanShop(row)
}

func (r *shopRepo) Create(ctx context.Context, shop *repository.Shop) (*repository.Shop, error) {
	const stmt = `INSERT INTO shops(
		name,
		slug,
		description,
		owner_name,
		logo_url,
		cover_image_url,
		address,
		phone_number,
		email,
		rating,
		total_sales,
		is_verified,
		is_active,
		created_at,
		updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	shop.CreatedAt = now
	shop.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, stmt,
		shop.Name,
		shop.Slug,
		shop.Description,
		shop.OwnerName,
		nullableStr(shop.LogoURL),
		nullableStr(shop.CoverImageURL),
		shop.Address,
		shop.PhoneNumber,
		shop.Email,
		shop.Rating,
		shop.TotalSales,
		boolToInt(shop.IsVerified),
		boolToInt(shop.IsActive),
		shop.CreatedAt,
		shop.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		shop.ID = id
	}
	return shop, nil
}

func (r *shopRepo) Save(ctx context.Context, shop *repository.Shop) error {
	const stmt = `UPDATE shops SET
		name = ?,
		slug = ?,
		description = ?,
		owner_name = ?,
		logo_url = ?,
		cover_image_url = ?,
		address = ?,
		phone_number = ?,
		email = ?,
		rating = ?,
		total_sales = ?,
		is_verified = ?,
		is_active = ?,
		updated_at = ?
		WHERE id = ?`
	shop.UpdatedAt = time.Now().Unix()
	res, err := r.db.ExecContext(ctx, stmt,
		shop.Name,
		shop.Slug,
		shop.Description,
		shop.OwnerName,
		nullableStr(shop.LogoURL),
		nullableStr(shop.CoverImageURL),
		shop.Address,
		shop.PhoneNumber,
		shop.Email,
		shop.Rating,
		shop.TotalSales,
		boolToInt(shop.IsVerified),
		boolToInt(shop.IsActive),
		shop.UpdatedAt,
		shop.ID,
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

type shopScanner interface {
	Scan(dest ...any) error
}

func scanShop(row shopScanner) (*repository.Shop, error) {
	var s repository.Shop
	var logoURL, coverURL sql.NullString

	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Slug,
		&s.Description,
		&s.OwnerName,
		&logoURL,
		&coverURL,
		&s.Address,
		&s.PhoneNumber,
		&s.Email,
		&s.Rating,
		&s.TotalSales,
		&s.IsVerified,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	s.LogoURL = nullableStrPtr(logoURL)
	s.CoverImageURL = nullableStrPtr(coverURL)
	return &s, nil
}
