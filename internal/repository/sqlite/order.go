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

// orderRepo owns the orders and order_offers tables.
type orderRepo struct {
	db *sql.DB
}

const orderColumns = `id, order_number, tracking_number, sender_id, assigned_courier_id,
		pickup_address, pickup_latitude, pickup_longitude, dropoff_address, dropoff_latitude, dropoff_longitude,
		recipient_name, recipient_email, recipient_phone, recipient_alternate_phone, delivery_instructions,
		require_recipient_signature, parcel_type, parcel_description, parcel_condition, parcel_quantity,
		parcel_weight_kg, parcel_worth, parcel_images, delivery_fee, service_charge, insurance_fee,
		total_amount, courier_payout, payment_status, status, current_location, estimated_delivery_at,
		offer_expires_at, picked_up_at, delivered_at, cancelled_at, metadata, created_at, updated_at`

func orderSelectBy(field string) string {
	return fmt.Sprintf("SELECT %s FROM orders WHERE %s = ?", orderColumns, field)
}

func (r *orderRepo) Create(ctx context.Context, order *repository.Order) (*repository.Order, error) {
	now := time.Now().Unix()
	order.CreatedAt = now
	order.UpdatedAt = now

	res, err := insertOrder(ctx, r.db, order)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		order.ID = id
	}
	return order, nil
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertOrder(ctx context.Context, db execer, order *repository.Order) (sql.Result, error) {
	const stmt = `INSERT INTO orders(
		order_number,
		tracking_number,
		sender_id,
		assigned_courier_id,
		pickup_address,
		pickup_latitude,
		pickup_longitude,
		dropoff_address,
		dropoff_latitude,
		dropoff_longitude,
		recipient_name,
		recipient_email,
		recipient_phone,
		recipient_alternate_phone,
		delivery_instructions,
		require_recipient_signature,
		parcel_type,
		parcel_description,
		parcel_condition,
		parcel_quantity,
		parcel_weight_kg,
		parcel_worth,
		parcel_images,
		delivery_fee,
		service_charge,
		insurance_fee,
		total_amount,
		courier_payout,
		payment_status,
		status,
		current_location,
		estimated_delivery_at,
		offer_expires_at,
		picked_up_at,
		delivered_at,
		cancelled_at,
		metadata,
		created_at,
		updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	images, err := encodeStringSlice(order.ParcelImages)
	if err != nil {
		return nil, fmt.Errorf("encode parcel images: %w", err)
	}
	return db.ExecContext(ctx, stmt,
		order.OrderNumber,
		order.TrackingNumber,
		order.SenderID,
		nullableInt(order.AssignedCourierID),
		order.PickupAddress,
		nullableFloat(order.PickupLatitude),
		nullableFloat(order.PickupLongitude),
		order.DropoffAddress,
		nullableFloat(order.DropoffLatitude),
		nullableFloat(order.DropoffLongitude),
		order.RecipientName,
		nullableStr(order.RecipientEmail),
		order.RecipientPhone,
		nullableStr(order.RecipientAlternatePhone),
		order.DeliveryInstructions,
		boolToInt(order.RequireRecipientSignature),
		order.ParcelType,
		order.ParcelDescription,
		order.ParcelCondition,
		order.ParcelQuantity,
		order.ParcelWeightKG,
		order.ParcelWorthKobo,
		images,
		order.DeliveryFeeKobo,
		order.ServiceChargeKobo,
		order.InsuranceFeeKobo,
		order.TotalAmountKobo,
		order.CourierPayoutKobo,
		order.PaymentStatus,
		order.Status,
		order.CurrentLocation,
		nullableInt(order.EstimatedDeliveryAt),
		nullableInt(order.OfferExpiresAt),
		nullableInt(order.PickedUpAt),
		nullableInt(order.DeliveredAt),
		nullableInt(order.CancelledAt),
		encodeJSON(order.Metadata),
		order.CreatedAt,
		order.UpdatedAt,
	)
}

func (r *orderRepo) CreateFromCart(ctx context.Context, order *repository.Order, cartID int64, lines []*repository.CartLine) (*repository.Order, error) {
	now := time.Now().Unix()
	order.CreatedAt = now
	order.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := insertOrder(ctx, tx, order)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		order.ID = id
	}

	// Conditional decrement re-checks stock under the write lock.
	for _, line := range lines {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET stock_quantity = stock_quantity - ?, total_sales = total_sales + ?, updated_at = ?
			 WHERE id = ? AND is_available = 1 AND stock_quantity >= ?`,
			line.Quantity, line.Quantity, now, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, repository.ErrInsufficientStock)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE carts SET updated_at = ? WHERE id = ?`, now, cartID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepo) FindByID(ctx context.Context, id int64) (*repository.Order, error) {
	row := r.db.QueryRowContext(ctx, orderSelectBy("id"), id)
	return scanOrder(row)
}

func (r *orderRepo) FindByNumber(ctx context.Context, orderNumber string) (*repository.Order, error) {
	row := r.db.QueryRowContext(ctx, orderSelectBy("order_number"), orderNumber)
	return scanOrder(row)
}

func (r *orderRepo) FindByTracking(ctx context.Context, trackingNumber string) (*repository.Order, error) {
	row := r.db.QueryRowContext(ctx, orderSelectBy("tracking_number"), trackingNumber)
	return scanOrder(row)
}

func orderFilterClauses(filter repository.OrderFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.SenderID != nil {
		conds = append(conds, "sender_id = ?")
		args = append(args, *filter.SenderID)
	}
	if filter.CourierID != nil {
		conds = append(conds, "assigned_courier_id = ?")
		args = append(args, *filter.CourierID)
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

func (r *orderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]*repository.Order, error) {
	where, args := orderFilterClauses(filter)
	query := "SELECT " + orderColumns + " FROM orders" + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"

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
	return collectOrders(rows)
}

func (r *orderRepo) Count(ctx context.Context, filter repository.OrderFilter) (int64, error) {
	where, args := orderFilterClauses(filter)
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&count)
	return count, err
}

func (r *orderRepo) Save(ctx context.Context, order *repository.Order) error {
	const stmt = `UPDATE orders SET
		assigned_courier_id = ?,
		pickup_address = ?,
		pickup_latitude = ?,
		pickup_longitude = ?,
		dropoff_address = ?,
		dropoff_latitude = ?,
		dropoff_longitude = ?,
		recipient_name = ?,
		recipient_email = ?,
		recipient_phone = ?,
		recipient_alternate_phone = ?,
		delivery_instructions = ?,
		require_recipient_signature = ?,
		parcel_type = ?,
		parcel_description = ?,
		parcel_condition = ?,
		parcel_quantity = ?,
		parcel_weight_kg = ?,
		parcel_worth = ?,
		parcel_images = ?,
		delivery_fee = ?,
		service_charge = ?,
		insurance_fee = ?,
		total_amount = ?,
		courier_payout = ?,
		payment_status = ?,
		status = ?,
		current_location = ?,
		estimated_delivery_at = ?,
		offer_expires_at = ?,
		picked_up_at = ?,
		delivered_at = ?,
		cancelled_at = ?,
		metadata = ?,
		updated_at = ?
		WHERE id = ?`
	order.UpdatedAt = time.Now().Unix()

	images, err := encodeStringSlice(order.ParcelImages)
	if err != nil {
		return fmt.Errorf("encode parcel images: %w", err)
	}
	res, err := r.db.ExecContext(ctx, stmt,
		nullableInt(order.AssignedCourierID),
		order.PickupAddress,
		nullableFloat(order.PickupLatitude),
		nullableFloat(order.PickupLongitude),
		order.DropoffAddress,
		nullableFloat(order.DropoffLatitude),
		nullableFloat(order.DropoffLongitude),
		order.RecipientName,
		nullableStr(order.RecipientEmail),
		order.RecipientPhone,
		nullableStr(order.RecipientAlternatePhone),
		order.DeliveryInstructions,
		boolToInt(order.RequireRecipientSignature),
		order.ParcelType,
		order.ParcelDescription,
		order.ParcelCondition,
		order.ParcelQuantity,
		order.ParcelWeightKG,
		order.ParcelWorthKobo,
		images,
		order.DeliveryFeeKobo,
		order.ServiceChargeKobo,
		order.InsuranceFeeKobo,
		order.TotalAmountKobo,
		order.CourierPayoutKobo,
		order.PaymentStatus,
		order.Status,
		order.CurrentLocation,
		nullableInt(order.EstimatedDeliveryAt),
		nullableInt(order.OfferExpiresAt),
		nullableInt(order.PickedUpAt),
		nullableInt(order.DeliveredAt),
		nullableInt(order.CancelledAt),
		encodeJSON(order.Metadata),
		order.UpdatedAt,
		order.ID,
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

func (r *orderRepo) SetPaymentStatus(ctx context.Context, orderID int64, status string, at int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ?`, status, at, orderID)
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

func (r *orderRepo) Accept(ctx context.Context, orderID, courierID int64, at int64) (bool, error) {
	// First courier to run this wins; everyone else affects zero rows.
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, assigned_courier_id = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND assigned_courier_id IS NULL`,
		repository.OrderAccepted, courierID, at, orderID, repository.OrderAvailable)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *orderRepo) OfferToCouriers(ctx context.Context, orderID int64, courierIDs []int64, expiresAt int64) error {
	if len(courierIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	const stmt = `INSERT INTO order_offers(order_id, courier_id, expires_at, created_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(order_id, courier_id) DO UPDATE SET expires_at = excluded.expires_at`
	for _, courierID := range courierIDs {
		if _, err := tx.ExecContext(ctx, stmt, orderID, courierID, expiresAt, now); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET offer_expires_at = ?, updated_at = ? WHERE id = ?`, expiresAt, now, orderID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *orderRepo) OfferedCourierIDs(ctx context.Context, orderID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT courier_id FROM order_offers WHERE order_id = ? ORDER BY id ASC`, orderID)
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

func (r *orderRepo) HasOffer(ctx context.Context, orderID, courierID int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_offers WHERE order_id = ? AND courier_id = ? AND expires_at > ?`,
		orderID, courierID, time.Now().Unix()).Scan(&count)
	return count > 0, err
}

func (r *orderRepo) RemoveOffer(ctx context.Context, orderID, courierID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM order_offers WHERE order_id = ? AND courier_id = ?`, orderID, courierID)
	return err
}

func (r *orderRepo) ClearOffers(ctx context.Context, orderID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM order_offers WHERE order_id = ?`, orderID)
	return err
}

func (r *orderRepo) ListAvailableForCourier(ctx context.Context, courierID int64, limit int) ([]*repository.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + orderColumnsPrefixed("o") + `
		FROM orders o
		JOIN order_offers oo ON oo.order_id = o.id
		WHERE oo.courier_id = ? AND oo.expires_at > ? AND o.status = ? AND o.assigned_courier_id IS NULL
		ORDER BY o.created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, courierID, time.Now().Unix(), repository.OrderAvailable, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *orderRepo) ListWithExpiredOffers(ctx context.Context, nowUnix int64, limit int) ([]*repository.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status = ? AND assigned_courier_id IS NULL AND offer_expires_at IS NOT NULL AND offer_expires_at < ?
		ORDER BY offer_expires_at ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, repository.OrderAvailable, nowUnix, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *orderRepo) StatusCountsForSender(ctx context.Context, senderID int64) (map[string]int64, error) {
	return r.statusCounts(ctx, "sender_id", senderID)
}

func (r *orderRepo) StatusCountsForCourier(ctx context.Context, courierID int64) (map[string]int64, error) {
	return r.statusCounts(ctx, "assigned_courier_id", courierID)
}

func (r *orderRepo) statusCounts(ctx context.Context, field string, id int64) (map[string]int64, error) {
	query := fmt.Sprintf(`SELECT status, COUNT(*) FROM orders WHERE %s = ? GROUP BY status`, field)
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func orderColumnsPrefixed(alias string) string {
	cols := strings.Split(orderColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

func collectOrders(rows *sql.Rows) ([]*repository.Order, error) {
	var orders []*repository.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

type orderScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row orderScanner) (*repository.Order, error) {
	var o repository.Order
	var courierID sql.NullInt64
	var pickupLat, pickupLng, dropoffLat, dropoffLng sql.NullFloat64
	var recipientEmail, altPhone, images, metadata sql.NullString
	var estimatedAt, offerExpires, pickedUp, delivered, cancelled sql.NullInt64

	if err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.TrackingNumber,
		&o.SenderID,
		&courierID,
		&o.PickupAddress,
		&pickupLat,
		&pickupLng,
		&o.DropoffAddress,
		&dropoffLat,
		&dropoffLng,
		&o.RecipientName,
		&recipientEmail,
		&o.RecipientPhone,
		&altPhone,
		&o.DeliveryInstructions,
		&o.RequireRecipientSignature,
		&o.ParcelType,
		&o.ParcelDescription,
		&o.ParcelCondition,
		&o.ParcelQuantity,
		&o.ParcelWeightKG,
		&o.ParcelWorthKobo,
		&images,
		&o.DeliveryFeeKobo,
		&o.ServiceChargeKobo,
		&o.InsuranceFeeKobo,
		&o.TotalAmountKobo,
		&o.CourierPayoutKobo,
		&o.PaymentStatus,
		&o.Status,
		&o.CurrentLocation,
		&estimatedAt,
		&offerExpires,
		&pickedUp,
		&delivered,
		&cancelled,
		&metadata,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	o.AssignedCourierID = nullableIntPtr(courierID)
	o.PickupLatitude = nullableFloatPtr(pickupLat)
	o.PickupLongitude = nullableFloatPtr(pickupLng)
	o.DropoffLatitude = nullableFloatPtr(dropoffLat)
	o.DropoffLongitude = nullableFloatPtr(dropoffLng)
	o.RecipientEmail = nullableStrPtr(recipientEmail)
	o.RecipientAlternatePhone = nullableStrPtr(altPhone)
	decoded, err := decodeJSONSlice(images.String)
	if err != nil {
		return nil, fmt.Errorf("decode parcel images: %w", err)
	}
	o.ParcelImages = decoded
	o.EstimatedDeliveryAt = nullableIntPtr(estimatedAt)
	o.OfferExpiresAt = nullableIntPtr(offerExpires)
	o.PickedUpAt = nullableIntPtr(pickedUp)
	o.DeliveredAt = nullableIntPtr(delivered)
	o.CancelledAt = nullableIntPtr(cancelled)
	o.Metadata = decodeJSON(metadata)
	return &o, nil
}
