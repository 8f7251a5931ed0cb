package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"
	"restaurant-order-service/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeOrders struct {
	orders map[string]*entity.Order
	byKey  map[string]string

	lastInput   service.CreateOrderInput
	lastKey     string
	lastVersion int
	lastFilter  entity.OrderFilter
	lastConfirm bool
	lastIDs     []string
	err         error
}

func newFakeOrders() *fakeOrders {
	total := decimal.NewFromInt(200)
	return &fakeOrders{byKey: map[string]string{}, orders: map[string]*entity.Order{
		"o-1": {ID: "o-1", OrderID: "ORD-000001", Status: entity.StatusPending, SubTotal: decimal.NewFromInt(210), Version: 1},
		"o-2": {ID: "o-2", OrderID: "ORD-000002", Status: entity.StatusProcessing, SubTotal: decimal.NewFromInt(210),
			DiscountAmount: decimal.NewFromInt(10), TotalAmount: &total, Version: 3},
	}}
}

func (f *fakeOrders) SubmitOrder(_ context.Context, in service.CreateOrderInput, key string) (*entity.Order, bool, error) {
	f.lastInput, f.lastKey = in, key
	if f.err != nil {
		return nil, false, f.err
	}
	if key != "" {
		if id, ok := f.byKey[key]; ok {
			return f.orders[id], false, nil
		}
	}
	order := &entity.Order{ID: "new", OrderID: "ORD-123456", UserID: in.UserID, Status: entity.StatusPending, Version: 1}
	f.orders[order.ID] = order
	if key != "" {
		f.byKey[key] = order.ID
	}
	return order, true, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, id string) (*entity.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) ListOrders(_ context.Context, filter entity.OrderFilter) ([]*entity.Order, error) {
	f.lastFilter = filter
	return []*entity.Order{f.orders["o-1"]}, f.err
}

func (f *fakeOrders) UpdateOrderItems(_ context.Context, id string, _ []entity.OrderLineSelection, v int) (*entity.Order, error) {
	f.lastVersion = v
	return f.GetOrder(context.Background(), id)
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id string, status entity.OrderStatus, v int) (*entity.Order, error) {
	f.lastVersion = v
	if f.err != nil {
		return nil, f.err
	}
	o, err := f.GetOrder(context.Background(), id)
	if err != nil {
		return nil, err
	}
	o.Status = status
	return o, nil
}

func (f *fakeOrders) ApplyDiscount(_ context.Context, id string, _ service.DiscountInput, v int) (*entity.Order, error) {
	f.lastVersion = v
	return f.GetOrder(context.Background(), id)
}

func (f *fakeOrders) TrashOrder(_ context.Context, id string) error   { return f.err }
func (f *fakeOrders) RestoreOrder(_ context.Context, id string) error { return f.err }

func (f *fakeOrders) PurgeOrder(_ context.Context, _ string, confirm bool) error {
	if !confirm {
		return common.ErrConfirmationRequired
	}
	return f.err
}

func (f *fakeOrders) TrashOrders(_ context.Context, ids []string) ([]string, error) {
	f.lastIDs = ids
	return ids[:1], f.err
}

func (f *fakeOrders) RestoreOrders(_ context.Context, ids []string) ([]string, error) {
	f.lastIDs = ids
	return nil, f.err
}

func (f *fakeOrders) PurgeOrders(_ context.Context, ids []string, confirm bool) ([]string, error) {
	f.lastIDs, f.lastConfirm = ids, confirm
	if !confirm {
		return nil, common.ErrConfirmationRequired
	}
	return ids, nil
}

type fakeCatalog struct {
	warmed int
}

func (f *fakeCatalog) GetItem(_ context.Context, id string) (*entity.CatalogItem, error) {
	if id != "A" {
		return nil, common.ErrNotFound
	}
	return &entity.CatalogItem{ID: "A", RegularPrice: decimal.NewFromInt(100)}, nil
}

func (f *fakeCatalog) ListItems(context.Context, entity.ItemFilter) ([]*entity.CatalogItem, error) {
	return []*entity.CatalogItem{{ID: "A"}}, nil
}

func (f *fakeCatalog) WarmCache(context.Context) (int, error) {
	f.warmed++
	return 4, nil
}

func (f *fakeCatalog) InvalidateItem(context.Context, string) error { return nil }

type fakeTables struct{}

func (fakeTables) ListTables(context.Context) ([]entity.Table, error) {
	return []entity.Table{{ID: "T1", Number: 1}}, nil
}

type fakeStations struct {
	station entity.ItemType
}

func (f *fakeStations) ListTickets(_ context.Context, station entity.ItemType, _ int) ([]entity.StationTicket, error) {
	f.station = station
	return []entity.StationTicket{{OrderID: "o-1", Station: station}}, nil
}

type testServer struct {
	e        *echo.Echo
	orders   *fakeOrders
	catalog  *fakeCatalog
	stations *fakeStations
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWith(t, RouterConfig{JWTSecret: testSecret, RateLimit: 1000, RateBurst: 1000, Service: "order-service"})
}

func newTestServerWith(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	ts := &testServer{e: echo.New(), orders: newFakeOrders(), catalog: &fakeCatalog{}, stations: &fakeStations{}}
	Register(ts.e, cfg, NewOrderHandler(ts.orders), NewCatalogHandler(ts.catalog, fakeTables{}, ts.stations))
	return ts
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := GenerateToken(testSecret, Claims{UserID: "staff-1", Name: "Sam", Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, body, tok string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}
