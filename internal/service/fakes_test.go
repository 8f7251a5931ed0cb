package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

// stalledRedis returns a client whose server accepts connections and never
// answers. Only a context deadline ends a call against it.
func stalledRedis(t *testing.T) *redis.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()

	rdb := redis.NewClient(&redis.Options{Addr: ln.Addr().String(), ReadTimeout: time.Minute, WriteTimeout: time.Minute, MaxRetries: -1})
	t.Cleanup(func() {
		rdb.Close()
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return rdb
}

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]*entity.Order
	keys   map[string]string
	err    error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[string]*entity.Order{}, keys: map[string]string{}}
}

func clone(o *entity.Order) *entity.Order {
	data, _ := json.Marshal(o)
	var c entity.Order
	_ = json.Unmarshal(data, &c)
	return &c
}

func (f *fakeOrderStore) CreateOrder(_ context.Context, order *entity.Order, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if key != "" {
		if _, ok := f.keys[key]; ok {
			return common.ErrDuplicateRequest
		}
		f.keys[key] = order.ID
	}
	f.orders[order.ID] = clone(order)
	return nil
}

func (f *fakeOrderStore) NewOrderCode(string) string {
	return fmt.Sprintf("ORD-%06d", rand.Intn(1000000))
}

func (f *fakeOrderStore) GetOrderByIdempotentKey(_ context.Context, key string) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.keys[key]; ok {
		if o, ok := f.orders[id]; ok {
			return clone(o), nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeOrderStore) UpdateOrder(_ context.Context, order *entity.Order, expectedVersion int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	stored, ok := f.orders[order.ID]
	if !ok || stored.DeletedAt != nil || stored.Version != expectedVersion {
		return common.ErrConflict
	}
	order.Version = expectedVersion + 1
	f.orders[order.ID] = clone(order)
	return nil
}

func (f *fakeOrderStore) GetOrderByID(_ context.Context, id string, withTrashed bool) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || (o.DeletedAt != nil && !withTrashed) {
		return nil, common.ErrNotFound
	}
	return clone(o), nil
}

func (f *fakeOrderStore) ListOrders(_ context.Context, filter entity.OrderFilter) ([]*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Order
	for _, o := range f.orders {
		if (o.DeletedAt != nil) != filter.Trashed {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, clone(o))
	}
	return out, nil
}

func (f *fakeOrderStore) TrashOrders(_ context.Context, ids []string, at time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var changed []string
	for _, id := range ids {
		if o, ok := f.orders[id]; ok && o.DeletedAt == nil {
			t := at
			o.DeletedAt = &t
			o.Version++
			changed = append(changed, id)
		}
	}
	return changed, nil
}

func (f *fakeOrderStore) RestoreOrders(_ context.Context, ids []string, _ time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var changed []string
	for _, id := range ids {
		if o, ok := f.orders[id]; ok && o.DeletedAt != nil {
			o.DeletedAt = nil
			o.Version++
			changed = append(changed, id)
		}
	}
	return changed, nil
}

func (f *fakeOrderStore) PurgeOrders(_ context.Context, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var purged []string
	for _, id := range ids {
		if o, ok := f.orders[id]; ok && o.DeletedAt != nil {
			delete(f.orders, id)
			purged = append(purged, id)
		}
	}
	return purged, nil
}

type fakeCatalog struct {
	items map[string]*entity.CatalogItem
	calls int
}

func (f *fakeCatalog) GetItemByID(_ context.Context, id string) (*entity.CatalogItem, error) {
	f.calls++
	item, ok := f.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return item, nil
}

func (f *fakeCatalog) GetItems(_ context.Context, filter entity.ItemFilter) ([]*entity.CatalogItem, error) {
	var out []*entity.CatalogItem
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeCatalog) GetAllItems(ctx context.Context) ([]*entity.CatalogItem, error) {
	return f.GetItems(ctx, entity.ItemFilter{})
}

// GetItem lets the fake stand in directly as an ordering.ItemSource.
func (f *fakeCatalog) GetItem(ctx context.Context, id string) (*entity.CatalogItem, error) {
	return f.GetItemByID(ctx, id)
}

func menu() *fakeCatalog {
	return &fakeCatalog{items: map[string]*entity.CatalogItem{
		"A": {ID: "A", Name: "Fried rice", RegularPrice: d("100"), SalePrice: d("80"), Type: entity.ItemTypeKitchen, Status: entity.ItemAvailable},
		"B": {ID: "B", Name: "Iced tea", HasVariations: true, Type: entity.ItemTypeBar, Status: entity.ItemAvailable,
			Variations: []entity.Variation{{ID: "B-reg", Name: "Regular", RegularPrice: d("50"), Status: entity.ItemAvailable, SortOrder: 1}}},
	}}
}

type fakeTables map[string]entity.Table

func (f fakeTables) GetTables(_ context.Context, ids []string) ([]entity.Table, error) {
	var out []entity.Table
	for _, id := range ids {
		if t, ok := f[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeDiscounts map[string]*entity.Discount

func (f fakeDiscounts) GetDiscountByID(_ context.Context, id string) (*entity.Discount, error) {
	for _, d := range f {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f fakeDiscounts) GetDiscountByCode(_ context.Context, code string) (*entity.Discount, error) {
	if d, ok := f[code]; ok {
		return d, nil
	}
	return nil, common.ErrNotFound
}

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) keys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var keys []string
	for _, m := range w.msgs {
		keys = append(keys, string(m.Key))
	}
	return keys
}
