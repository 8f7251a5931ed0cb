package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "DINEIN"
	OrderTypeTakeaway OrderType = "TAKEAWAY"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

type TableRef struct {
	ID string `json:"id"`
}

// OrderLineSelection is what a front end collects before pricing. Category is
// only a filter key for the item picker and is never persisted.
type OrderLineSelection struct {
	Category    string `json:"category,omitempty"`
	ItemID      string `json:"item_id"`
	VariationID string `json:"variation_id,omitempty"`
	Quantity    int    `json:"quantity"`
}

// OrderLineItem is the persisted, price-snapshotted line.
type OrderLineItem struct {
	ItemID          string          `json:"item_id"`
	ItemVariationID *string         `json:"item_variation_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// OrderDraft is the creation payload produced by the aggregator.
type OrderDraft struct {
	OrderType     OrderType       `json:"order_type"`
	Tables        []TableRef      `json:"tables"`
	UserID        string          `json:"user_id"`
	CustomerID    *string         `json:"customer_id"`
	Status        OrderStatus     `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	OrderItems    []OrderLineItem `json:"order_items"`
	SubTotal      decimal.Decimal `json:"sub_total"`
}

type Order struct {
	ID             string           `json:"id"`
	OrderID        string           `json:"order_id"`
	OrderType      OrderType        `json:"order_type"`
	Tables         []TableRef       `json:"tables"`
	CustomerID     *string          `json:"customer_id,omitempty"`
	UserID         string           `json:"user_id"`
	Status         OrderStatus      `json:"status"`
	PaymentMethod  string           `json:"payment_method"`
	SubTotal       decimal.Decimal  `json:"sub_total"`
	DiscountID     *string          `json:"discount_id,omitempty"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	TotalAmount    *decimal.Decimal `json:"total_amount"`
	OrderItems     []OrderLineItem  `json:"order_items"`
	Version        int              `json:"version"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      *time.Time       `json:"deleted_at,omitempty"`
}

// Trashed reports whether the order sits in the trash.
func (o *Order) Trashed() bool {
	return o.DeletedAt != nil
}

type OrderFilter struct {
	Status    OrderStatus
	OrderType OrderType
	Trashed   bool
	Limit     int
	Offset    int
}

/*
MySQL schema (one copy per shard):

CREATE TABLE orders (
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
	created_at, updated_at DATETIME(6), deleted_at DATETIME(6) NULL
);

order_items(order_id, item_id, item_variation_id, quantity, unit_price, total_price)
order_tables(order_id, table_id)
*/
