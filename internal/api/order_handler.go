package api

import (
	"net/http"
	"strconv"
	"strings"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"
	"restaurant-order-service/internal/ordering"
	"restaurant-order-service/internal/service"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orderService OrderUseCase
}

func NewOrderHandler(orderService OrderUseCase) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

type orderResponse struct {
	*entity.Order
	Summary ordering.Summary `json:"summary"`
}

type updateItemsRequest struct {
	OrderItems []entity.OrderLineSelection `json:"order_items"`
	Version    int                         `json:"version" validate:"gte=0"`
}

type statusRequest struct {
	Status  entity.OrderStatus `json:"status" validate:"required"`
	Version int                `json:"version" validate:"gte=0"`
}

type discountRequest struct {
	service.DiscountInput
	Version int `json:"version" validate:"gte=0"`
}

type bulkRequest struct {
	IDs     []string `json:"ids" validate:"required,min=1"`
	Confirm bool     `json:"confirm"`
}

type bulkResponse struct {
	Requested int      `json:"requested"`
	Affected  []string `json:"affected"`
}

// CreateOrder --> POST /orders
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	in := service.CreateOrderInput{}
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	claims, err := GetClaims(c)
	if err != nil {
		return respondError(c, common.ErrUnauthorized)
	}
	in.UserID = claims.UserID

	key := c.Request().Header.Get("Idempotency-Key")
	if key == "" {
		key = c.Request().Header.Get("Idempotent-Key")
	}

	order, created, err := h.orderService.SubmitOrder(c.Request().Context(), in, key)
	if err != nil {
		return respondError(c, err)
	}
	status := http.StatusCreated
	if !created {
		// replayed idempotency key
		status = http.StatusOK
	}
	return c.JSON(status, orderResponse{Order: order, Summary: ordering.Summarize(order)})
}

// GetOrder --> GET /orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	order, err := h.orderService.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orderResponse{Order: order, Summary: ordering.Summarize(order)})
}

// ListOrders --> GET /orders
func (h *OrderHandler) ListOrders(c echo.Context) error {
	return h.list(c, false)
}

// ListTrash --> GET /orders/trash
func (h *OrderHandler) ListTrash(c echo.Context) error {
	return h.list(c, true)
}

func (h *OrderHandler) list(c echo.Context, trashed bool) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return respondError(c, err)
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return respondError(c, err)
	}

	orders, err := h.orderService.ListOrders(c.Request().Context(), entity.OrderFilter{
		Status:    entity.OrderStatus(strings.ToUpper(c.QueryParam("status"))),
		OrderType: entity.OrderType(strings.ToUpper(c.QueryParam("order_type"))),
		Trashed:   trashed,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"orders": orders, "count": len(orders)})
}

// UpdateItems --> PUT /orders/:id/items
func (h *OrderHandler) UpdateItems(c echo.Context) error {
	req := updateItemsRequest{}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	version, err := expectedVersion(c, req.Version)
	if err != nil {
		return respondError(c, err)
	}

	order, err := h.orderService.UpdateOrderItems(c.Request().Context(), c.Param("id"), req.OrderItems, version)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orderResponse{Order: order, Summary: ordering.Summarize(order)})
}

// UpdateStatus --> PATCH /orders/:id/status
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	req := statusRequest{}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	version, err := expectedVersion(c, req.Version)
	if err != nil {
		return respondError(c, err)
	}

	status := entity.OrderStatus(strings.ToUpper(string(req.Status)))
	order, err := h.orderService.UpdateStatus(c.Request().Context(), c.Param("id"), status, version)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orderResponse{Order: order, Summary: ordering.Summarize(order)})
}

// ApplyDiscount --> PATCH /orders/:id/discount
func (h *OrderHandler) ApplyDiscount(c echo.Context) error {
	req := discountRequest{}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	version, err := expectedVersion(c, req.Version)
	if err != nil {
		return respondError(c, err)
	}

	order, err := h.orderService.ApplyDiscount(c.Request().Context(), c.Param("id"), req.DiscountInput, version)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orderResponse{Order: order, Summary: ordering.Summarize(order)})
}

// TrashOrder --> DELETE /orders/:id
func (h *OrderHandler) TrashOrder(c echo.Context) error {
	if err := h.orderService.TrashOrder(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "order moved to trash"})
}

// RestoreOrder --> POST /orders/:id/restore
func (h *OrderHandler) RestoreOrder(c echo.Context) error {
	if err := h.orderService.RestoreOrder(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "order restored"})
}

// PurgeOrder --> DELETE /orders/:id/permanent?confirm=true
func (h *OrderHandler) PurgeOrder(c echo.Context) error {
	confirm, _ := strconv.ParseBool(c.QueryParam("confirm"))
	if err := h.orderService.PurgeOrder(c.Request().Context(), c.Param("id"), confirm); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "order permanently deleted"})
}

// BulkTrash --> POST /orders/bulk/delete
func (h *OrderHandler) BulkTrash(c echo.Context) error {
	req := bulkRequest{}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	affected, err := h.orderService.TrashOrders(c.Request().Context(), req.IDs)
	return bulkResult(c, len(req.IDs), affected, err)
}

// BulkRestore --> POST /orders/bulk/restore
func (h *OrderHandler) BulkRestore(c echo.Context) error {
	req := bulkRequest{}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	affected, err := h.orderService.RestoreOrders(c.Request().Context(), req.IDs)
	return bulkResult(c, len(req.IDs), affected, err)
}

// BulkPurge --> POST /orders/bulk/permanent-delete
func (h *OrderHandler) BulkPurge(c echo.Context) error {
	req := bulkRequest{}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if !req.Confirm {
		req.Confirm, _ = strconv.ParseBool(c.QueryParam("confirm"))
	}
	affected, err := h.orderService.PurgeOrders(c.Request().Context(), req.IDs, req.Confirm)
	return bulkResult(c, len(req.IDs), affected, err)
}

func bulkResult(c echo.Context, requested int, affected []string, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	if affected == nil {
		affected = []string{}
	}
	return c.JSON(http.StatusOK, bulkResponse{Requested: requested, Affected: affected})
}

// expectedVersion takes the version from the body, then ?version=, then If-Match.
// Zero means the caller did not send one.
func expectedVersion(c echo.Context, fromBody int) (int, error) {
	if fromBody > 0 {
		return fromBody, nil
	}
	raw := c.QueryParam("version")
	if raw == "" {
		raw = strings.Trim(c.Request().Header.Get("If-Match"), `"`)
	}
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, common.ErrInvalidInput.WithDetails(map[string]string{"version": raw})
	}
	return v, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, common.ErrInvalidInput.WithDetails(map[string]string{name: raw})
	}
	return v, nil
}
