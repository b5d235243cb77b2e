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

// productRepo owns the products table.
type productRepo struct {
	db *sql.DB
}

const productColumns = `id, shop_id, category_id, name, slug, description, short_description, sku,
		price, compare_at_price, stock_quantity, primary_image_url, images, weight_kg, dimensions,
		is_available, is_featured, rating, total_sales, metadata, created_at, updated_at`

func productFilterClauses(filter repository.ProductFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.ShopID != nil {
		conds = append(conds, "shop_id = ?")
		args = append(args, *filter.ShopID)
	}
	if filter.CategoryID != nil {
		conds = append(conds, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		conds = append(conds, "(name LIKE ? OR description LIKE ? OR sku LIKE ?)")
		args = append(args, like, like, like)
	}
	if filter.Featured != nil {
		conds = append(conds, "is_featured = ?")
		args = append(args, boolToInt(*filter.Featured))
	}
	if filter.Available != nil {
		conds = append(conds, "is_available = ?")
		args = append(args, boolToInt(*filter.Available))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *productRepo) List(ctx context.Context, filter repository.ProductFilter) ([]*repository.Product, error) {
	where, args := productFilterClauses(filter)
	query := "SELECT " + productColumns + " FROM products" + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"

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

	var products []*repository.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *productRepo) Count(ctx context.Context, filter repository.ProductFilter) (int64, error) {
	where, args := productFilterClauses(filter)
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&count)
	return count, err
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (*repository.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	return scanProduct(row)
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*repository.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE sku = ?", sku)
	return scanProduct(row)
}

func (r *productRepo) Create(ctx context.Context, product *repository.Product) (*repository.Product, error) {
	const stmt = `INSERT INTO products(
		shop_id,
		category_id,
		name,
		slug,
		description,
		short_description,
		sku,
		price,
		compare_at_price,
		stock_quantity,
		primary_image_url,
		images,
		weight_kg,
		dimensions,
		is_available,
		is_featured,
		rating,
		total_sales,
		metadata,
		created_at,
		updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	product.CreatedAt = now
	product.UpdatedAt = now

	images, err := encodeStringSlice(product.Images)
	if err != nil {
		return nil, fmt.Errorf("encode product images: %w", err)
	}
	res, err := r.db.ExecContext(ctx, stmt,
		product.ShopID,
		product.CategoryID,
		product.Name,
		product.Slug,
		product.Description,
		product.ShortDescription,
		product.SKU,
		product.PriceKobo,
		nullableInt(product.CompareAtPriceKobo),
		product.StockQuantity,
		nullableStr(product.PrimaryImageURL),
		images,
		product.WeightKG,
		product.Dimensions,
		boolToInt(product.IsAvailable),
		boolToInt(product.IsFeatured),
		product.Rating,
		product.TotalSales,
		encodeJSON(product.Metadata),
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		product.ID = id
	}
	return product, nil
}

func (r *productRepo) Save(ctx context.Context, product *repository.Product) error {
	const stmt = `UPDATE products SET
		shop_id = ?,
		category_id = ?,
		name = ?,
		slug = ?,
		description = ?,
		short_description = ?,
		sku = ?,
		price = ?,
		compare_at_price = ?,
		stock_quantity = ?,
		primary_image_url = ?,
		images = ?,
		weight_kg = ?,
		dimensions = ?,
		is_available = ?,
		is_featured = ?,
		rating = ?,
		total_sales = ?,
		metadata = ?,
		updated_at = ?
		WHERE id = ?`
	product.UpdatedAt = time.Now().Unix()

	images, err := encodeStringSlice(product.Images)
	if err != nil {
		return fmt.Errorf("encode product images: %w", err)
	}
	res, err := r.db.ExecContext(ctx, stmt,
		product.ShopID,
		product.CategoryID,
		product.Name,
		product.Slug,
		product.Description,
		product.ShortDescription,
		product.SKU,
		product.PriceKobo,
		nullableInt(product.CompareAtPriceKobo),
		product.StockQuantity,
		nullableStr(product.PrimaryImageURL),
		images,
		product.WeightKG,
		product.Dimensions,
		boolToInt(product.IsAvailable),
		boolToInt(product.IsFeatured),
		product.Rating,
		product.TotalSales,
		encodeJSON(product.Metadata),
		product.UpdatedAt,
		product.ID,
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

type productScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row productScanner) (*repository.Product, error) {
	var p repository.Product
	var compareAt sql.NullInt64
	var primaryImage, images, metadata sql.NullString

	if err := row.Scan(
		&p.ID,
		&p.ShopID,
		&p.CategoryID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.ShortDescription,
		&p.SKU,
		&p.PriceKobo,
		&compareAt,
		&p.StockQuantity,
		&primaryImage,
		&images,
		&p.WeightKG,
		&p.Dimensions,
		&p.IsAvailable,
		&p.IsFeatured,
		&p.Rating,
		&p.TotalSales,
		&metadata,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	p.CompareAtPriceKobo = nullableIntPtr(compareAt)
	p.PrimaryImageURL = nullableStrPtr(primaryImage)
	decoded, err := decodeJSONSlice(images.String)
	if err != nil {
		return nil, fmt.Errorf("decode product images: %w", err)
	}
	p.Images = decoded
	p.Metadata = decodeJSON(metadata)
	return &p, nil
}
