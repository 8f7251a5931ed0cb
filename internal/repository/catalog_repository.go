package repository

import (
	"context"
	"database/sql"
	"errors"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"
)

const itemColumns = `i.id, i.name, i.slug, i.regular_price, i.sale_price, i.has_variations, i.type, i.status`

// CatalogRepository reads menu items from the primary database. The catalog
// is authored elsewhere; this service never writes it.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db}
}

func (r *CatalogRepository) GetItemByID(ctx context.Context, id string) (*entity.CatalogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM catalog_items i WHERE i.id = ?`
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound.WithDetails(map[string]string{"item_id": id})
		}
		return nil, err
	}

	if err := r.loadDetails(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItems lists items, optionally restricted to one category slug.
func (r *CatalogRepository) GetItems(ctx context.Context, filter entity.ItemFilter) ([]*entity.CatalogItem, error) {
	limit := NormalizeLimit(filter.Limit)

	var rows *sql.Rows
	var err error
	if filter.CategorySlug != "" {
		query := `SELECT ` + itemColumns + ` FROM catalog_items i
			JOIN item_categories c ON c.item_id = i.id
			WHERE c.category_slug = ? ORDER BY i.name LIMIT ?`
		rows, err = r.db.QueryContext(ctx, query, filter.CategorySlug, limit)
	} else {
		query := `SELECT ` + itemColumns + ` FROM catalog_items i ORDER BY i.name LIMIT ?`
		rows, err = r.db.QueryContext(ctx, query, limit)
	}
	if err != nil {
		return nil, err
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if err := r.loadDetails(ctx, item); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// GetAllItems returns the whole catalog, used to warm the cache.
func (r *CatalogRepository) GetAllItems(ctx context.Context) ([]*entity.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM catalog_items i ORDER BY i.id`)
	if err != nil {
		return nil, err
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if err := r.loadDetails(ctx, item); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *CatalogRepository) loadDetails(ctx context.Context, item *entity.CatalogItem) error {
	item.Categories = []string{}
	catRows, err := r.db.QueryContext(ctx, `SELECT category_slug FROM item_categories WHERE item_id = ? ORDER BY category_slug`, item.ID)
	if err != nil {
		return err
	}
	defer catRows.Close()
	for catRows.Next() {
		var slug string
		if err := catRows.Scan(&slug); err != nil {
			return err
		}
		item.Categories = append(item.Categories, slug)
	}
	if err := catRows.Err(); err != nil {
		return err
	}

	if !item.HasVariations {
		return nil
	}

	query := `SELECT id, item_id, name, regular_price, sale_price, status, sort_order
		FROM item_variations WHERE item_id = ? ORDER BY sort_order`
	rows, err := r.db.QueryContext(ctx, query, item.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var v entity.Variation
		if err := rows.Scan(&v.ID, &v.ItemID, &v.Name, &v.RegularPrice, &v.SalePrice, &v.Status, &v.SortOrder); err != nil {
			return err
		}
		item.Variations = append(item.Variations, v)
	}
	return rows.Err()
}

func scanItem(row rowScanner) (*entity.CatalogItem, error) {
	var item entity.CatalogItem
	err := row.Scan(&item.ID, &item.Name, &item.Slug, &item.RegularPrice, &item.SalePrice, &item.HasVariations, &item.Type, &item.Status)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func collectItems(rows *sql.Rows) ([]*entity.CatalogItem, error) {
	defer rows.Close()

	items := []*entity.CatalogItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
