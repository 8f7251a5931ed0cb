package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var catalogTables = []string{
	`CREATE TABLE IF NOT EXISTS catalog_items (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		slug VARCHAR(255) NOT NULL UNIQUE,
		regular_price DECIMAL(12,2) NOT NULL DEFAULT 0,
		sale_price DECIMAL(12,2) NOT NULL DEFAULT 0,
		has_variations BOOLEAN NOT NULL DEFAULT FALSE,
		type VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'available'
	);`,
	`CREATE TABLE IF NOT EXISTS item_variations (
		id VARCHAR(36) PRIMARY KEY,
		item_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		regular_price DECIMAL(12,2) NOT NULL DEFAULT 0,
		sale_price DECIMAL(12,2) NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL DEFAULT 'available',
		sort_order INT NOT NULL,
		UNIQUE KEY uq_item_sort (item_id, sort_order),
		FOREIGN KEY (item_id) REFERENCES catalog_items(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS item_categories (
		item_id VARCHAR(36) NOT NULL,
		category_slug VARCHAR(255) NOT NULL,
		PRIMARY KEY (item_id, category_slug),
		FOREIGN KEY (item_id) REFERENCES catalog_items(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS dining_tables (
		id VARCHAR(36) PRIMARY KEY,
		number INT NOT NULL UNIQUE,
		seat INT NOT NULL,
		location VARCHAR(64) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL DEFAULT 'available'
	);`,
	`CREATE TABLE IF NOT EXISTS discounts (
		id VARCHAR(36) PRIMARY KEY,
		code VARCHAR(64) NOT NULL UNIQUE,
		type VARCHAR(16) NOT NULL,
		value DECIMAL(12,2) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);`,
}

// order_code is only UNIQUE per shard. Codes are drawn from the shard's own
// residue class (ShardRouter.OrderCode), which keeps them unique overall.
var orderTables = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(36) PRIMARY KEY,
		order_code VARCHAR(16) NOT NULL UNIQUE,
		order_type VARCHAR(16) NOT NULL,
		customer_id VARCHAR(36) NULL,
		user_id VARCHAR(36) NOT NULL,
		status VARCHAR(16) NOT NULL,
		payment_method VARCHAR(32) NOT NULL DEFAULT '',
		sub_total DECIMAL(12,2) NOT NULL,
		discount_id VARCHAR(36) NULL,
		discount_amount DECIMAL(12,2) NOT NULL DEFAULT 0,
		total_amount DECIMAL(12,2) NULL,
		version INT NOT NULL DEFAULT 1,
		idempotent_key VARCHAR(255) NULL UNIQUE,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		deleted_at DATETIME(6) NULL,
		INDEX idx_orders_status (status, deleted_at)
	);`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id VARCHAR(36) NOT NULL,
		item_id VARCHAR(36) NOT NULL,
		item_variation_id VARCHAR(36) NULL,
		quantity INT NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		total_price DECIMAL(12,2) NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS order_tables (
		order_id VARCHAR(36) NOT NULL,
		table_id VARCHAR(36) NOT NULL,
		PRIMARY KEY (order_id, table_id),
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	);`,
}

// AutoMigrateCatalog creates the catalog, table and discount tables on the
// primary database.
func AutoMigrateCatalog(ctx context.Context, retries int, db *sql.DB) error {
	return migrate(ctx, retries, catalogTables, db)
}

// AutoMigrateOrders creates the order tables on every shard.
func AutoMigrateOrders(ctx context.Context, retries int, dbs ...*sql.DB) error {
	return migrate(ctx, retries, orderTables, dbs...)
}

func migrate(ctx context.Context, retries int, queries []string, dbs ...*sql.DB) error {
	for shard, db := range dbs {
		for _, query := range queries {
			_, err := db.ExecContext(ctx, query)
			// Retry creating the table
			for i := 0; err != nil && i < retries; i++ {
				time.Sleep(retryDelay)
				_, err = db.ExecContext(ctx, query)
			}
			if err != nil {
				return fmt.Errorf("migrate shard %d: %w", shard, err)
			}
		}
	}
	return nil
}

var retryDelay = 1 * time.Second
