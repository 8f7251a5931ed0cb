package repository

import (
	"context"
	"database/sql"
	"errors"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"
)

type TableRepository struct {
	db *sql.DB
}

func NewTableRepository(db *sql.DB) *TableRepository {
	return &TableRepository{db}
}

func (r *TableRepository) GetTables(ctx context.Context) ([]entity.Table, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, number, seat, location, status FROM dining_tables ORDER BY number`)
	if err != nil {
		return nil, err
	}
	return collectTables(rows)
}

// GetTablesByIDs returns the tables that exist among ids.
func (r *TableRepository) GetTablesByIDs(ctx context.Context, ids []string) ([]entity.Table, error) {
	if len(ids) == 0 {
		return []entity.Table{}, nil
	}
	query := `SELECT id, number, seat, location, status FROM dining_tables WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY number`
	rows, err := r.db.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, err
	}
	return collectTables(rows)
}

func collectTables(rows *sql.Rows) ([]entity.Table, error) {
	defer rows.Close()

	tables := []entity.Table{}
	for rows.Next() {
		var t entity.Table
		if err := rows.Scan(&t.ID, &t.Number, &t.Seat, &t.Location, &t.Status); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

type DiscountRepository struct {
	db *sql.DB
}

func NewDiscountRepository(db *sql.DB) *DiscountRepository {
	return &DiscountRepository{db}
}

func (r *DiscountRepository) GetDiscountByID(ctx context.Context, id string) (*entity.Discount, error) {
	return r.getDiscount(ctx, `SELECT id, code, type, value, active FROM discounts WHERE id = ?`, id)
}

func (r *DiscountRepository) GetDiscountByCode(ctx context.Context, code string) (*entity.Discount, error) {
	return r.getDiscount(ctx, `SELECT id, code, type, value, active FROM discounts WHERE code = ?`, code)
}

func (r *DiscountRepository) getDiscount(ctx context.Context, query, key string) (*entity.Discount, error) {
	var d entity.Discount
	err := r.db.QueryRowContext(ctx, query, key).Scan(&d.ID, &d.Code, &d.Type, &d.Value, &d.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound.WithDetails(map[string]string{"discount": key})
		}
		return nil, err
	}
	return &d, nil
}
