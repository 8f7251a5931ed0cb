package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"
	"restaurant-order-service/internal/sharding"

	"github.com/shopspring/decimal"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

const orderColumns = `id, order_code, order_type, customer_id, user_id, status, payment_method, sub_total,
	discount_id, discount_amount, total_amount, version, created_at, updated_at, deleted_at`

type OrderRepository struct {
	dbShards []*sql.DB
	router   *sharding.ShardRouter
}

func NewOrderRepository(dbShards []*sql.DB, router *sharding.ShardRouter) *OrderRepository {
	return &OrderRepository{dbShards, router}
}

func (r *OrderRepository) shard(id string) *sql.DB {
	return r.dbShards[r.router.GetShard(id)]
}

// CreateOrder inserts the order with its lines and tables in one transaction.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *entity.Order, idempotentKey string) error {
	db := r.shard(order.ID)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	orderQuery := `INSERT INTO orders (id, order_code, order_type, customer_id, user_id, status, payment_method, sub_total,
		discount_id, discount_amount, total_amount, version, idempotent_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, orderQuery, order.ID, order.OrderID, order.OrderType, nullString(order.CustomerID),
		order.UserID, order.Status, order.PaymentMethod, order.SubTotal, nullString(order.DiscountID),
		order.DiscountAmount, nullDecimal(order.TotalAmount), order.Version, nullKey(idempotentKey),
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := insertChildren(ctx, tx, order); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// NewOrderCode draws a display code that cannot clash with codes on other shards.
func (r *OrderRepository) NewOrderCode(orderID string) string {
	return r.router.OrderCode(orderID)
}

// GetOrderByIdempotentKey finds the order created under key on any shard.
func (r *OrderRepository) GetOrderByIdempotentKey(ctx context.Context, key string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE idempotent_key = ?`
	for _, db := range r.dbShards {
		order, err := scanOrder(db.QueryRowContext(ctx, query, key))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := loadChildren(ctx, db, order); err != nil {
			return nil, err
		}
		return order, nil
	}
	return nil, common.ErrNotFound.WithDetails(map[string]string{"idempotency_key": key})
}

// UpdateOrder writes order back if the stored version still equals
// expectedVersion. Line items and tables are fully replaced. On success
// order.Version is bumped to the stored value.
func (r *OrderRepository) UpdateOrder(ctx context.Context, order *entity.Order, expectedVersion int) error {
	db := r.shard(order.ID)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	orderQuery := `UPDATE orders SET status = ?, payment_method = ?, sub_total = ?, discount_id = ?, discount_amount = ?,
		total_amount = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND deleted_at IS NULL`
	res, err := tx.ExecContext(ctx, orderQuery, order.Status, order.PaymentMethod, order.SubTotal,
		nullString(order.DiscountID), order.DiscountAmount, nullDecimal(order.TotalAmount), order.UpdatedAt,
		order.ID, expectedVersion)
	if err != nil {
		tx.Rollback()
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return common.ErrConflict.WithDetails(map[string]any{"id": order.ID, "expected_version": expectedVersion})
	}

	// Delete existing lines and tables
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, order.ID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_tables WHERE order_id = ?`, order.ID); err != nil {
		tx.Rollback()
		return err
	}
	if err := insertChildren(ctx, tx, order); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	order.Version = expectedVersion + 1
	return nil
}

func insertChildren(ctx context.Context, tx *sql.Tx, order *entity.Order) error {
	if len(order.OrderItems) > 0 {
		// Insert order items with batch
		itemQuery := `INSERT INTO order_items (order_id, item_id, item_variation_id, quantity, unit_price, total_price) VALUES `
		var values []interface{}
		for _, line := range order.OrderItems {
			itemQuery += "(?, ?, ?, ?, ?, ?),"
			values = append(values, order.ID, line.ItemID, nullString(line.ItemVariationID), line.Quantity, line.UnitPrice, line.TotalPrice)
		}
		itemQuery = itemQuery[:len(itemQuery)-1]
		if _, err := tx.ExecContext(ctx, itemQuery, values...); err != nil {
			return err
		}
	}

	if len(order.Tables) > 0 {
		tableQuery := `INSERT INTO order_tables (order_id, table_id) VALUES `
		var values []interface{}
		for _, t := range order.Tables {
			tableQuery += "(?, ?),"
			values = append(values, order.ID, t.ID)
		}
		tableQuery = tableQuery[:len(tableQuery)-1]
		if _, err := tx.ExecContext(ctx, tableQuery, values...); err != nil {
			return err
		}
	}
	return nil
}

// GetOrderByID loads an order. Trashed orders are reported as not found
// unless withTrashed is set.
func (r *OrderRepository) GetOrderByID(ctx context.Context, id string, withTrashed bool) (*entity.Order, error) {
	db := r.shard(id)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	if !withTrashed {
		query += ` AND deleted_at IS NULL`
	}
	order, err := scanOrder(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound.WithDetails(map[string]string{"id": id})
		}
		return nil, err
	}

	if err := loadChildren(ctx, db, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders fans out over every shard and merges newest first.
func (r *OrderRepository) ListOrders(ctx context.Context, filter entity.OrderFilter) ([]*entity.Order, error) {
	limit := NormalizeLimit(filter.Limit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var where []string
	var args []interface{}
	if filter.Trashed {
		where = append(where, "deleted_at IS NOT NULL")
	} else {
		where = append(where, "deleted_at IS NULL")
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.OrderType != "" {
		where = append(where, "order_type = ?")
		args = append(args, filter.OrderType)
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC LIMIT ?`
	args = append(args, offset+limit)

	var orders []*entity.Order
	for _, db := range r.dbShards {
		found, err := queryOrders(ctx, db, query, args...)
		if err != nil {
			return nil, err
		}
		for _, o := range found {
			if err := loadChildren(ctx, db, o); err != nil {
				return nil, err
			}
		}
		orders = append(orders, found...)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	if offset >= len(orders) {
		return []*entity.Order{}, nil
	}
	orders = orders[offset:]
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

// TrashOrders soft-deletes live orders and returns the ids that changed.
func (r *OrderRepository) TrashOrders(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	return r.bulk(ctx, ids,
		`UPDATE orders SET deleted_at = ?, version = version + 1, updated_at = ? WHERE deleted_at IS NULL AND id IN (%s)`,
		`SELECT id FROM orders WHERE deleted_at IS NULL AND id IN (%s)`,
		at, at)
}

// RestoreOrders takes trashed orders back out of the trash.
func (r *OrderRepository) RestoreOrders(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	return r.bulk(ctx, ids,
		`UPDATE orders SET deleted_at = NULL, version = version + 1, updated_at = ? WHERE deleted_at IS NOT NULL AND id IN (%s)`,
		`SELECT id FROM orders WHERE deleted_at IS NOT NULL AND id IN (%s)`,
		at)
}

// PurgeOrders permanently removes orders that are already in the trash.
func (r *OrderRepository) PurgeOrders(ctx context.Context, ids []string) ([]string, error) {
	var purged []string
	for shard, group := range r.router.Group(ids) {
		db := r.dbShards[shard]
		in := placeholders(len(group))

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return purged, err
		}
		matched, err := selectIDs(ctx, tx, fmt.Sprintf(`SELECT id FROM orders WHERE deleted_at IS NOT NULL AND id IN (%s) FOR UPDATE`, in), toArgs(group)...)
		if err != nil {
			tx.Rollback()
			return purged, err
		}
		if len(matched) == 0 {
			tx.Rollback()
			continue
		}

		in = placeholders(len(matched))
		args := toArgs(matched)
		for _, q := range []string{
			`DELETE FROM order_items WHERE order_id IN (%s)`,
			`DELETE FROM order_tables WHERE order_id IN (%s)`,
			`DELETE FROM orders WHERE id IN (%s)`,
		} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(q, in), args...); err != nil {
				tx.Rollback()
				return purged, err
			}
		}
		if err := tx.Commit(); err != nil {
			return purged, err
		}
		purged = append(purged, matched...)
	}
	return purged, nil
}

// bulk runs a per-shard update inside a transaction, selecting the matching
// ids first so callers learn exactly which orders changed.
func (r *OrderRepository) bulk(ctx context.Context, ids []string, update, match string, leading ...interface{}) ([]string, error) {
	var changed []string
	for shard, group := range r.router.Group(ids) {
		db := r.dbShards[shard]
		in := placeholders(len(group))

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return changed, err
		}
		matched, err := selectIDs(ctx, tx, fmt.Sprintf(match+" FOR UPDATE", in), toArgs(group)...)
		if err != nil {
			tx.Rollback()
			return changed, err
		}
		if len(matched) == 0 {
			tx.Rollback()
			continue
		}

		args := append(append([]interface{}{}, leading...), toArgs(matched)...)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(update, placeholders(len(matched))), args...); err != nil {
			tx.Rollback()
			return changed, err
		}
		if err := tx.Commit(); err != nil {
			return changed, err
		}
		changed = append(changed, matched...)
	}
	return changed, nil
}

func selectIDs(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*entity.Order, error) {
	var (
		order      entity.Order
		customerID sql.NullString
		discountID sql.NullString
		total      decimal.NullDecimal
		deletedAt  sql.NullTime
	)
	err := row.Scan(&order.ID, &order.OrderID, &order.OrderType, &customerID, &order.UserID, &order.Status,
		&order.PaymentMethod, &order.SubTotal, &discountID, &order.DiscountAmount, &total, &order.Version,
		&order.CreatedAt, &order.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		order.CustomerID = &customerID.String
	}
	if discountID.Valid {
		order.DiscountID = &discountID.String
	}
	if total.Valid {
		order.TotalAmount = &total.Decimal
	}
	if deletedAt.Valid {
		order.DeletedAt = &deletedAt.Time
	}
	return &order, nil
}

func queryOrders(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]*entity.Order, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*entity.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func loadChildren(ctx context.Context, db *sql.DB, order *entity.Order) error {
	rows, err := db.QueryContext(ctx, `SELECT item_id, item_variation_id, quantity, unit_price, total_price FROM order_items WHERE order_id = ? ORDER BY id`, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	order.OrderItems = []entity.OrderLineItem{}
	for rows.Next() {
		var line entity.OrderLineItem
		var variationID sql.NullString
		if err := rows.Scan(&line.ItemID, &variationID, &line.Quantity, &line.UnitPrice, &line.TotalPrice); err != nil {
			return err
		}
		if variationID.Valid {
			line.ItemVariationID = &variationID.String
		}
		order.OrderItems = append(order.OrderItems, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	tableRows, err := db.QueryContext(ctx, `SELECT table_id FROM order_tables WHERE order_id = ? ORDER BY table_id`, order.ID)
	if err != nil {
		return err
	}
	defer tableRows.Close()

	order.Tables = []entity.TableRef{}
	for tableRows.Next() {
		var ref entity.TableRef
		if err := tableRows.Scan(&ref.ID); err != nil {
			return err
		}
		order.Tables = append(order.Tables, ref)
	}
	return tableRows.Err()
}

// NormalizeLimit applies the listing default and cap.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullKey(key string) sql.NullString {
	return sql.NullString{String: key, Valid: key != ""}
}
