package service

import (
	"context"
	"os"
	"time"

	"restaurant-order-service/internal/entity"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// SetLogger replaces the package logger, normally with the one built from config.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// OrderStore is implemented by repository.OrderRepository.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *entity.Order, idempotentKey string) error
	NewOrderCode(orderID string) string
	GetOrderByIdempotentKey(ctx context.Context, key string) (*entity.Order, error)
	UpdateOrder(ctx context.Context, order *entity.Order, expectedVersion int) error
	GetOrderByID(ctx context.Context, id string, withTrashed bool) (*entity.Order, error)
	ListOrders(ctx context.Context, filter entity.OrderFilter) ([]*entity.Order, error)
	TrashOrders(ctx context.Context, ids []string, at time.Time) ([]string, error)
	RestoreOrders(ctx context.Context, ids []string, at time.Time) ([]string, error)
	PurgeOrders(ctx context.Context, ids []string) ([]string, error)
}

// CatalogStore is implemented by repository.CatalogRepository.
type CatalogStore interface {
	GetItemByID(ctx context.Context, id string) (*entity.CatalogItem, error)
	GetItems(ctx context.Context, filter entity.ItemFilter) ([]*entity.CatalogItem, error)
	GetAllItems(ctx context.Context) ([]*entity.CatalogItem, error)
}

// TableStore is implemented by repository.TableRepository.
type TableStore interface {
	GetTables(ctx context.Context) ([]entity.Table, error)
	GetTablesByIDs(ctx context.Context, ids []string) ([]entity.Table, error)
}

// DiscountStore is implemented by repository.DiscountRepository.
type DiscountStore interface {
	GetDiscountByID(ctx context.Context, id string) (*entity.Discount, error)
	GetDiscountByCode(ctx context.Context, code string) (*entity.Discount, error)
}

// EventWriter is the part of *kafka.Writer the services use.
type EventWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}
