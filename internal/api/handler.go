package api

import (
	"context"
	"os"

	"restaurant-order-service/internal/entity"
	"restaurant-order-service/internal/service"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

func SetLogger(l zerolog.Logger) {
	logger = l
}

type OrderUseCase interface {
	SubmitOrder(ctx context.Context, in service.CreateOrderInput, idempotentKey string) (*entity.Order, bool, error)
	GetOrder(ctx context.Context, id string) (*entity.Order, error)
	ListOrders(ctx context.Context, filter entity.OrderFilter) ([]*entity.Order, error)
	UpdateOrderItems(ctx context.Context, id string, selections []entity.OrderLineSelection, expectedVersion int) (*entity.Order, error)
	UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, expectedVersion int) (*entity.Order, error)
	ApplyDiscount(ctx context.Context, id string, in service.DiscountInput, expectedVersion int) (*entity.Order, error)
	TrashOrder(ctx context.Context, id string) error
	RestoreOrder(ctx context.Context, id string) error
	PurgeOrder(ctx context.Context, id string, confirm bool) error
	TrashOrders(ctx context.Context, ids []string) ([]string, error)
	RestoreOrders(ctx context.Context, ids []string) ([]string, error)
	PurgeOrders(ctx context.Context, ids []string, confirm bool) ([]string, error)
}

type CatalogUseCase interface {
	GetItem(ctx context.Context, id string) (*entity.CatalogItem, error)
	ListItems(ctx context.Context, filter entity.ItemFilter) ([]*entity.CatalogItem, error)
	WarmCache(ctx context.Context) (int, error)
	InvalidateItem(ctx context.Context, id string) error
}

type TableUseCase interface {
	ListTables(ctx context.Context) ([]entity.Table, error)
}

type StationUseCase interface {
	ListTickets(ctx context.Context, station entity.ItemType, limit int) ([]entity.StationTicket, error)
}
