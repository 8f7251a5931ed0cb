package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"
	"restaurant-order-service/internal/ordering"
	"restaurant-order-service/internal/pricing"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	idempotencyTTL     = 24 * time.Hour
	orderCacheTTL      = 10 * time.Minute
	orderCodeTries     = 3
	idempotencyPending = "pending"
)

// LineInput is one submitted line. Prices are optional; when present they are
// checked against the catalog instead of trusted.
type LineInput struct {
	ItemID          string           `json:"item_id"`
	ItemVariationID *string          `json:"item_variation_id"`
	Quantity        int              `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	TotalPrice      *decimal.Decimal `json:"total_price"`
}

// CreateOrderInput mirrors the order creation payload.
type CreateOrderInput struct {
	OrderType     entity.OrderType  `json:"order_type" validate:"required"`
	Tables        []entity.TableRef `json:"tables"`
	UserID        string            `json:"user_id"`
	CustomerID    *string           `json:"customer_id"`
	PaymentMethod string            `json:"payment_method" validate:"max=32"`
	OrderItems    []LineInput       `json:"order_items"`
	SubTotal      *decimal.Decimal  `json:"sub_total"`
}

// DiscountInput picks a stored discount by id or code, or gives a manual amount.
type DiscountInput struct {
	DiscountID string           `json:"discount_id"`
	Code       string           `json:"code"`
	Amount     *decimal.Decimal `json:"discount_amount"`
}

// TableLookup is the table check OrderService needs; TableService provides it.
type TableLookup interface {
	GetTables(ctx context.Context, ids []string) ([]entity.Table, error)
}

// OrderService recomputes every price server side and drives the order lifecycle.
type OrderService struct {
	orderRepo   OrderStore
	tables      TableLookup
	discounts   DiscountStore
	aggregator  *ordering.Aggregator
	kafkaWriter EventWriter
	rdb         *redis.Client
	timeout     time.Duration
	now         func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orderRepo OrderStore, items ordering.ItemSource, tables TableLookup, discounts DiscountStore,
	kafkaWriter EventWriter, rdb *redis.Client, timeout time.Duration) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		tables:      tables,
		discounts:   discounts,
		aggregator:  ordering.NewAggregator(items),
		kafkaWriter: kafkaWriter,
		rdb:         rdb,
		timeout:     timeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder prices the submitted lines against the catalog and persists a PENDING order.
// Replaying an idempotency key returns the order the first request created.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput, idempotentKey string) (*entity.Order, error) {
	order, _, err := s.SubmitOrder(ctx, in, idempotentKey)
	return order, err
}

// SubmitOrder is CreateOrder that also reports whether a new order was stored
// (false when the key replays an earlier request).
func (s *OrderService) SubmitOrder(ctx context.Context, in CreateOrderInput, idempotentKey string) (*entity.Order, bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	claimed, err := s.claimIdempotentKey(ctx, idempotentKey)
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		order, err := s.replayOrder(ctx, idempotentKey)
		return order, false, err
	}

	order, err := s.createOrder(ctx, in, idempotentKey)
	if errors.Is(err, common.ErrDuplicateRequest) {
		// the key is in the database but redis lost it
		if existing, lookupErr := s.orderRepo.GetOrderByIdempotentKey(ctx, idempotentKey); lookupErr == nil {
			s.rememberIdempotentKey(ctx, idempotentKey, existing.ID)
			return existing, false, nil
		}
	}
	if err != nil {
		s.releaseIdempotentKey(ctx, idempotentKey)
		return nil, false, err
	}

	s.rememberIdempotentKey(ctx, idempotentKey, order.ID)
	s.publishOrderEvent(ctx, order, entity.EventCreated, "")
	return order, true, nil
}

// replayOrder returns the order stored under an already claimed key. A key
// that is still being worked on by the first request is a DuplicateRequest.
func (s *OrderService) replayOrder(ctx context.Context, key string) (*entity.Order, error) {
	id, err := s.rdb.Get(ctx, idempotencyKey(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Error().Err(err).Msg("Error reading idempotent key")
		return nil, common.ErrTransient.Wrap(err)
	}
	if id != "" && id != idempotencyPending {
		order, err := s.orderRepo.GetOrderByID(ctx, id, true)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return nil, classify(err)
		}
	}

	// the first request may have committed without recording the order id
	order, err := s.orderRepo.GetOrderByIdempotentKey(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrDuplicateRequest.WithDetails(map[string]string{"idempotency_key": key})
		}
		return nil, classify(err)
	}
	s.rememberIdempotentKey(ctx, key, order.ID)
	return order, nil
}

func (s *OrderService) createOrder(ctx context.Context, in CreateOrderInput, idempotentKey string) (*entity.Order, error) {
	selections := make([]entity.OrderLineSelection, len(in.OrderItems))
	for i, line := range in.OrderItems {
		selections[i] = entity.OrderLineSelection{ItemID: line.ItemID, Quantity: line.Quantity}
		if line.ItemVariationID != nil {
			selections[i].VariationID = *line.ItemVariationID
		}
	}

	oc := ordering.Context{
		OrderType:     in.OrderType,
		TableIDs:      tableIDs(in.Tables),
		UserID:        in.UserID,
		PaymentMethod: in.PaymentMethod,
	}
	if in.CustomerID != nil {
		oc.CustomerID = *in.CustomerID
	}

	draft, err := s.aggregator.Build(ctx, selections, oc)
	if err != nil {
		logger.Warn().Err(err).Msg("Rejected order draft")
		return nil, classify(err)
	}
	if err := checkSubmittedPrices(in, draft); err != nil {
		return nil, err
	}
	if err := s.checkTables(ctx, draft); err != nil {
		return nil, err
	}

	order := ordering.NewOrder(draft)
	order.ID = uuid.NewString()
	order.CreatedAt = s.now()
	order.UpdatedAt = order.CreatedAt

	for attempt := 1; ; attempt++ {
		order.OrderID = s.orderRepo.NewOrderCode(order.ID)
		err = classify(s.orderRepo.CreateOrder(ctx, order, idempotentKey))
		if err == nil {
			break
		}
		// order_code collided; anything else is final
		if !errors.Is(err, common.ErrConflict) || attempt == orderCodeTries {
			logger.Error().Err(err).Msg("Error creating order")
			return nil, err
		}
	}

	logger.Info().Msgf("Created order %s (%s) with %d lines", order.OrderID, order.ID, len(order.OrderItems))
	return order, nil
}

// checkSubmittedPrices compares client-computed prices with the server's.
func checkSubmittedPrices(in CreateOrderInput, draft *entity.OrderDraft) error {
	for i, line := range in.OrderItems {
		want := draft.OrderItems[i]
		for _, got := range []struct {
			field string
			value *decimal.Decimal
			want  decimal.Decimal
		}{
			{"unit_price", line.UnitPrice, want.UnitPrice},
			{"total_price", line.TotalPrice, want.TotalPrice},
		} {
			if got.value == nil || got.value.Equal(got.want) {
				continue
			}
			details := map[string]any{"line": i, "field": got.field, "submitted": got.value.String(), "expected": got.want.String()}
			if got.value.IsZero() {
				return common.ErrZeroPricedLine.WithDetails(details)
			}
			return common.ErrPriceMismatch.WithDetails(details)
		}
	}
	if in.SubTotal != nil && !in.SubTotal.Equal(draft.SubTotal) {
		return common.ErrPriceMismatch.WithDetails(map[string]any{
			"field": "sub_total", "submitted": in.SubTotal.String(), "expected": draft.SubTotal.String(),
		})
	}
	return nil
}

func (s *OrderService) checkTables(ctx context.Context, draft *entity.OrderDraft) error {
	ids := tableIDs(draft.Tables)
	if err := ordering.ValidateTables(draft.OrderType, ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	found, err := s.tables.GetTables(ctx, ids)
	if err != nil {
		return classify(err)
	}
	known := make(map[string]bool, len(found))
	for _, t := range found {
		known[t.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return common.ErrNotFound.WithDetails(map[string][]string{"tables": missing})
	}
	return nil
}

// GetOrder returns a live order, from cache when possible.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	key := orderCacheKey(id)
	cached, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var order entity.Order
		if err := json.Unmarshal([]byte(cached), &order); err == nil {
			return &order, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.Error().Err(err).Msgf("Error getting order %s from cache", id)
	}

	order, err := s.orderRepo.GetOrderByID(ctx, id, false)
	if err != nil {
		return nil, classify(err)
	}

	if data, err := json.Marshal(order); err == nil {
		if err := s.rdb.Set(ctx, key, data, orderCacheTTL).Err(); err != nil {
			logger.Error().Err(err).Msgf("Error setting order %s in cache", id)
		}
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter entity.OrderFilter) ([]*entity.Order, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if filter.Status != "" && !ordering.ValidStatus(filter.Status) {
		return nil, common.ErrInvalidInput.WithDetails(map[string]string{"status": string(filter.Status)})
	}
	if filter.OrderType != "" && !ordering.ValidOrderType(filter.OrderType) {
		return nil, common.ErrInvalidOrderType.WithDetails(map[string]string{"order_type": string(filter.OrderType)})
	}

	orders, err := s.orderRepo.ListOrders(ctx, filter)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing orders")
		return nil, classify(err)
	}
	return orders, nil
}

// UpdateOrderItems re-prices selections and replaces every line of the order.
func (s *OrderService) UpdateOrderItems(ctx context.Context, id string, selections []entity.OrderLineSelection, expectedVersion int) (*entity.Order, error) {
	return s.mutate(ctx, id, expectedVersion, entity.EventItemsUpdated, func(ctx context.Context, order *entity.Order) error {
		if !ordering.Editable(order.Status) {
			return common.ErrOrderLocked
		}
		lines, err := s.aggregator.PriceLines(ctx, selections)
		if err != nil {
			return err
		}
		if err := ordering.ReplaceItems(order, lines); err != nil {
			return err
		}
		return s.reapplyDiscount(ctx, order)
	})
}

// reapplyDiscount recomputes a stored discount against the current sub total.
// Manual amounts have no rule to re-run and keep the clamp from reconcile.
func (s *OrderService) reapplyDiscount(ctx context.Context, order *entity.Order) error {
	if order.DiscountID == nil {
		return nil
	}
	discount, err := s.discounts.GetDiscountByID(ctx, *order.DiscountID)
	if errors.Is(err, common.ErrNotFound) {
		logger.Warn().Msgf("Discount %s of order %s no longer exists, keeping the clamped amount", *order.DiscountID, order.ID)
		return nil
	}
	if err != nil {
		return err
	}
	amount, err := pricing.RecomputeDiscount(discount, order.SubTotal)
	if err != nil {
		return err
	}
	return ordering.SetDiscount(order, amount, order.DiscountID)
}

// UpdateStatus moves the order along its lifecycle.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, expectedVersion int) (*entity.Order, error) {
	if !ordering.ValidStatus(status) {
		return nil, common.ErrInvalidInput.WithDetails(map[string]string{"status": string(status)})
	}
	return s.mutate(ctx, id, expectedVersion, strings.ToLower(string(status)), func(_ context.Context, order *entity.Order) error {
		return ordering.Transition(order, status)
	})
}

// ApplyDiscount sets the discount from a stored discount or a manual amount.
func (s *OrderService) ApplyDiscount(ctx context.Context, id string, in DiscountInput, expectedVersion int) (*entity.Order, error) {
	return s.mutate(ctx, id, expectedVersion, entity.EventDiscounted, func(ctx context.Context, order *entity.Order) error {
		if !ordering.Editable(order.Status) {
			return common.ErrOrderLocked
		}

		var discount *entity.Discount
		var err error
		switch {
		case in.DiscountID != "":
			discount, err = s.discounts.GetDiscountByID(ctx, in.DiscountID)
		case in.Code != "":
			discount, err = s.discounts.GetDiscountByCode(ctx, in.Code)
		case in.Amount != nil:
			amount, err := pricing.ManualDiscount(*in.Amount, order.SubTotal)
			if err != nil {
				return err
			}
			return ordering.SetDiscount(order, amount, nil)
		default:
			return common.ErrInvalidDiscount.WithDetails("discount_id, code or discount_amount is required")
		}
		if err != nil {
			return err
		}

		amount, err := pricing.DiscountAmount(discount, order.SubTotal)
		if err != nil {
			return err
		}
		return ordering.SetDiscount(order, amount, &discount.ID)
	})
}

// mutate loads the live order, applies change and writes it back under the
// version check. A failed change or write leaves the stored order untouched.
func (s *OrderService) mutate(ctx context.Context, id string, expectedVersion int, event string,
	change func(context.Context, *entity.Order) error) (*entity.Order, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.orderRepo.GetOrderByID(ctx, id, false)
	if err != nil {
		return nil, classify(err)
	}
	if expectedVersion <= 0 {
		expectedVersion = order.Version
	}
	if order.Version != expectedVersion {
		return nil, common.ErrConflict.WithDetails(map[string]int{"expected_version": expectedVersion, "current_version": order.Version})
	}

	previous := order.Status
	if err := change(ctx, order); err != nil {
		return nil, classify(err)
	}
	order.UpdatedAt = s.now()

	if err := s.orderRepo.UpdateOrder(ctx, order, expectedVersion); err != nil {
		logger.Error().Err(err).Msgf("Error updating order %s", id)
		return nil, classify(err)
	}

	s.InvalidateOrder(ctx, id)
	s.publishOrderEvent(ctx, order, event, previous)
	return order, nil
}

// TrashOrders soft-deletes orders and returns the ids that were moved.
func (s *OrderService) TrashOrders(ctx context.Context, ids []string) ([]string, error) {
	return s.bulk(ctx, ids, entity.EventTrashed, func(ctx context.Context, ids []string) ([]string, error) {
		return s.orderRepo.TrashOrders(ctx, ids, s.now())
	})
}

// RestoreOrders brings trashed orders back.
func (s *OrderService) RestoreOrders(ctx context.Context, ids []string) ([]string, error) {
	return s.bulk(ctx, ids, entity.EventRestored, func(ctx context.Context, ids []string) ([]string, error) {
		return s.orderRepo.RestoreOrders(ctx, ids, s.now())
	})
}

// PurgeOrders permanently deletes trashed orders. Ids outside the trash are skipped.
func (s *OrderService) PurgeOrders(ctx context.Context, ids []string, confirm bool) ([]string, error) {
	if !confirm {
		return nil, common.ErrConfirmationRequired
	}
	return s.bulk(ctx, ids, entity.EventPurged, s.orderRepo.PurgeOrders)
}

func (s *OrderService) TrashOrder(ctx context.Context, id string) error {
	changed, err := s.TrashOrders(ctx, []string{id})
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return common.ErrNotFound.WithDetails(map[string]string{"id": id})
	}
	return nil
}

func (s *OrderService) RestoreOrder(ctx context.Context, id string) error {
	changed, err := s.RestoreOrders(ctx, []string{id})
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return common.ErrNotFound.WithDetails(map[string]string{"id": id, "reason": "not in trash"})
	}
	return nil
}

// PurgeOrder permanently deletes one order, which must already be in the trash.
func (s *OrderService) PurgeOrder(ctx context.Context, id string, confirm bool) error {
	if !confirm {
		return common.ErrConfirmationRequired
	}

	lookupCtx, cancel := withTimeout(ctx, s.timeout)
	order, err := s.orderRepo.GetOrderByID(lookupCtx, id, true)
	cancel()
	if err != nil {
		return classify(err)
	}
	if !order.Trashed() {
		return common.ErrNotInTrash
	}

	purged, err := s.PurgeOrders(ctx, []string{id}, true)
	if err != nil {
		return err
	}
	if len(purged) == 0 {
		return common.ErrNotInTrash
	}
	return nil
}

func (s *OrderService) bulk(ctx context.Context, ids []string, event string,
	apply func(context.Context, []string) ([]string, error)) ([]string, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, common.ErrInvalidInput.WithDetails("ids must not be empty")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	changed, err := apply(ctx, ids)
	for _, id := range changed {
		s.InvalidateOrder(ctx, id)
		s.publishOrderEvent(ctx, &entity.Order{ID: id}, event, "")
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error running %s on %d orders", event, len(ids))
		return changed, classify(err)
	}
	return changed, nil
}

// InvalidateOrder drops the cached copy of an order.
func (s *OrderService) InvalidateOrder(ctx context.Context, id string) {
	if err := s.rdb.Del(ctx, orderCacheKey(id)).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error deleting order %s from cache", id)
	}
}

func (s *OrderService) publishOrderEvent(ctx context.Context, order *entity.Order, event string, previous entity.OrderStatus) {
	if s.kafkaWriter == nil {
		return
	}

	value, err := json.Marshal(entity.OrderEvent{Event: event, Order: *order, PreviousStatus: previous, OccurredAt: s.now()})
	if err != nil {
		logger.Error().Err(err).Msgf("Error marshalling %s event for order %s", event, order.ID)
		return
	}

	// order.created.<id>, order.processing.<id>, ...
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order.%s.%s", event, order.ID)),
		Value: value,
	}
	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s event for order %s", event, order.ID)
	}
}

// claimIdempotentKey reports false when key was already claimed. An empty key
// always claims.
func (s *OrderService) claimIdempotentKey(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	ok, err := s.rdb.SetNX(ctx, idempotencyKey(key), idempotencyPending, idempotencyTTL).Result()
	if err != nil {
		logger.Error().Err(err).Msg("Error checking idempotent key")
		return false, common.ErrTransient.Wrap(err)
	}
	return ok, nil
}

// rememberIdempotentKey points key at the order it created.
func (s *OrderService) rememberIdempotentKey(ctx context.Context, key, orderID string) {
	if key == "" {
		return
	}
	if err := s.rdb.Set(context.WithoutCancel(ctx), idempotencyKey(key), orderID, idempotencyTTL).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error recording idempotent key for order %s", orderID)
	}
}

// releaseIdempotentKey lets the client retry a request that failed before anything was stored.
func (s *OrderService) releaseIdempotentKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.rdb.Del(context.WithoutCancel(ctx), idempotencyKey(key)).Err(); err != nil {
		logger.Error().Err(err).Msg("Error releasing idempotent key")
	}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}

func orderCacheKey(id string) string {
	return fmt.Sprintf("order:%s", id)
}

func tableIDs(refs []entity.TableRef) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		if id := strings.TrimSpace(r.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
