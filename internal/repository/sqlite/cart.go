package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// cartRepo owns the carts and cart_items tables.
type cartRepo struct {
	db *sql.DB
}

func (r *cartRepo) FindByUser(ctx context.Context, userID int64) (*repository.Cart, error) {
	const query = `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ?`
	var c repository.Cart
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *cartRepo) Create(ctx context.Context, userID int64) (*repository.Cart, error) {
	now := time.Now().Unix()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO carts(user_id, created_at, updated_at) VALUES(?, ?, ?)`, userID, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	cart := &repository.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}
	if id, err := res.LastInsertId(); err == nil {
		cart.ID = id
	}
	return cart, nil
}

func (r *cartRepo) Items(ctx context.Context, cartID int64) ([]*repository.CartItem, error) {
	const query = `SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items WHERE cart_id = ? ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*repository.CartItem
	for rows.Next() {
		var item repository.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *cartRepo) Lines(ctx context.Context, cartID int64) ([]*repository.CartLine, error) {
	const query = `SELECT ci.id, ci.product_id, p.shop_id, p.name, p.price, ci.quantity, p.stock_quantity, p.is_available
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = ?
		ORDER BY ci.created_at ASC, ci.id ASC`
	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*repository.CartLine
	for rows.Next() {
		var line repository.CartLine
		if err := rows.Scan(
			&line.ItemID,
			&line.ProductID,
			&line.ShopID,
			&line.Name,
			&line.UnitPriceKobo,
			&line.Quantity,
			&line.StockQuantity,
			&line.IsAvailable,
		); err != nil {
			return nil, err
		}
		lines = append(lines, &line)
	}
	return lines, rows.Err()
}

func (r *cartRepo) UpsertItem(ctx context.Context, cartID, productID, quantity int64) (*repository.CartItem, error) {
	const stmt = `INSERT INTO cart_items(cart_id, product_id, quantity, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(cart_id, product_id) DO UPDATE SET
			quantity = quantity + excluded.quantity,
			updated_at = excluded.updated_at`
	now := time.Now().Unix()
	if _, err := r.db.ExecContext(ctx, stmt, cartID, productID, quantity, now, now); err != nil {
		return nil, err
	}
	if err := r.touch(ctx, cartID, now); err != nil {
		return nil, err
	}

	const query = `SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items WHERE cart_id = ? AND product_id = ?`
	var item repository.CartItem
	err := r.db.QueryRowContext(ctx, query, cartID, productID).Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *cartRepo) SetItemQuantity(ctx context.Context, cartID, itemID, quantity int64) (bool, error) {
	now := time.Now().Unix()
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ?, updated_at = ? WHERE id = ? AND cart_id = ?`,
		quantity, now, itemID, cartID)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		if err := r.touch(ctx, cartID, now); err != nil {
			return false, err
		}
	}
	return affected > 0, nil
}

func (r *cartRepo) DeleteItem(ctx context.Context, cartID, itemID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = ? AND cart_id = ?`, itemID, cartID)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		if err := r.touch(ctx, cartID, time.Now().Unix()); err != nil {
			return false, err
		}
	}
	return affected > 0, nil
}

func (r *cartRepo) Clear(ctx context.Context, cartID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return err
	}
	return r.touch(ctx, cartID, time.Now().Unix())
}

func (r *cartRepo) DeleteStale(ctx context.Context, before int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM carts WHERE updated_at < ?)`, before); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE updated_at < ?`, before)
	if err != nil {
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *cartRepo) touch(ctx context.Context, cartID int64, at int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE carts SET updated_at = ? WHERE id = ?`, at, cartID)
	return err
}
