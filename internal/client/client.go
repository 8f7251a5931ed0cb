package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"
	"restaurant-order-service/internal/ordering"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 10 * time.Second

// createAttempts bounds how often CreateOrder resends a transiently failed
// submission. Every attempt carries the same idempotency key.
var (
	createAttempts = 3
	retryDelay     = 200 * time.Millisecond
)

// Client talks to the order service on behalf of a front end. It prices
// orders with the same aggregator the server uses, so the server's
// recomputation is expected to agree.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1",
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type createOrderRequest struct {
	OrderType     entity.OrderType       `json:"order_type"`
	Tables        []entity.TableRef      `json:"tables"`
	CustomerID    *string                `json:"customer_id"`
	PaymentMethod string                 `json:"payment_method"`
	OrderItems    []entity.OrderLineItem `json:"order_items"`
	SubTotal      decimal.Decimal        `json:"sub_total"`
}

type errorBody struct {
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details"`
}

// GetItem implements ordering.ItemSource.
func (c *Client) GetItem(ctx context.Context, id string) (*entity.CatalogItem, error) {
	item := &entity.CatalogItem{}
	if err := c.do(ctx, http.MethodGet, "/catalog/items/"+url.PathEscape(id), nil, nil, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (c *Client) ListItems(ctx context.Context, category string) ([]*entity.CatalogItem, error) {
	path := "/catalog/items"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var items []*entity.CatalogItem
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListTables(ctx context.Context) ([]entity.Table, error) {
	var tables []entity.Table
	if err := c.do(ctx, http.MethodGet, "/tables", nil, nil, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// CreateOrder builds the draft locally and submits it. Empty optional
// fields are stripped from the payload before it is sent. idempotencyKey
// may be empty, in which case a fresh one is generated. Transient failures
// are retried under the same key, so a request the server already committed
// comes back as the original order.
func (c *Client) CreateOrder(ctx context.Context, selections []entity.OrderLineSelection, oc ordering.Context, idempotencyKey string) (*entity.Order, error) {
	draft, err := ordering.NewAggregator(c).Build(ctx, selections, oc)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(draft.Tables))
	for _, t := range draft.Tables {
		ids = append(ids, t.ID)
	}
	if err := ordering.ValidateTables(draft.OrderType, ids); err != nil {
		return nil, err
	}

	body, err := ordering.MarshalPayload(createOrderRequest{
		OrderType:     draft.OrderType,
		Tables:        draft.Tables,
		CustomerID:    draft.CustomerID,
		PaymentMethod: draft.PaymentMethod,
		OrderItems:    draft.OrderItems,
		SubTotal:      draft.SubTotal,
	})
	if err != nil {
		return nil, common.ErrInvalidInput.Wrap(err)
	}

	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	for attempt := 1; ; attempt++ {
		order := &entity.Order{}
		err = c.do(ctx, http.MethodPost, "/orders", body, headers, order)
		if err == nil {
			return order, nil
		}
		if !common.IsTransient(err) || attempt >= createAttempts {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, common.ErrTransient.Wrap(ctx.Err())
		case <-time.After(retryDelay):
		}
	}
}

func (c *Client) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, version int) (*entity.Order, error) {
	body, err := json.Marshal(map[string]any{"status": status, "version": version})
	if err != nil {
		return nil, err
	}
	order := &entity.Order{}
	if err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", body, nil, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Client) UpdateItems(ctx context.Context, id string, selections []entity.OrderLineSelection, version int) (*entity.Order, error) {
	body, err := json.Marshal(map[string]any{"order_items": selections, "version": version})
	if err != nil {
		return nil, err
	}
	order := &entity.Order{}
	if err := c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id)+"/items", body, nil, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, headers map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return common.ErrInternal.Wrap(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// timeouts, refused connections and cancelled contexts all land here
		return common.ErrTransient.Wrap(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.ErrTransient.Wrap(err)
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return common.ErrInternal.Wrap(fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

var knownErrors = []*common.Error{
	common.ErrMissingSelection, common.ErrMissingVariation, common.ErrUnexpectedVariation,
	common.ErrZeroPricedLine, common.ErrInvalidQuantity, common.ErrEmptyOrder,
	common.ErrItemUnavailable, common.ErrMissingTables, common.ErrMissingUser,
	common.ErrInvalidOrderType, common.ErrInvalidDiscount, common.ErrInvalidInput,
	common.ErrInvalidTransition, common.ErrOrderLocked, common.ErrDiscountInactive,
	common.ErrPriceMismatch, common.ErrDuplicateRequest, common.ErrConfirmationRequired,
	common.ErrNotInTrash, common.ErrNotFound, common.ErrConflict,
	common.ErrTransient, common.ErrInternal, common.ErrUnauthorized,
}

// decodeError maps an error response back onto the typed error it came from.
func decodeError(status int, raw []byte) error {
	if status >= 500 {
		return common.ErrTransient.Wrap(errors.New("server returned " + strconv.Itoa(status)))
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Code != "" {
		for _, known := range knownErrors {
			if known.Code.Code != body.Code {
				continue
			}
			e := known
			if len(body.Details) > 0 && string(body.Details) != "null" {
				var details any
				if err := json.Unmarshal(body.Details, &details); err == nil {
					e = e.WithDetails(details)
				}
			}
			return e
		}
	}

	switch status {
	case http.StatusUnauthorized:
		return common.ErrUnauthorized
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusConflict:
		return common.ErrConflict
	case http.StatusTooManyRequests:
		return common.ErrTransient.WithDetails(body.Error)
	}
	return common.NewError(common.CodeValidation, body.Error, status, nil)
}
