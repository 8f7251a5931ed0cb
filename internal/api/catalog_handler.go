package api

import (
	"net/http"

	"restaurant-order-service/internal/entity"
	"restaurant-order-service/internal/service"

	"github.com/labstack/echo/v4"
)

type CatalogHandler struct {
	catalogService CatalogUseCase
	tableService   TableUseCase
	stationService StationUseCase
}

func NewCatalogHandler(catalogService CatalogUseCase, tableService TableUseCase, stationService StationUseCase) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		tableService:   tableService,
		stationService: stationService,
	}
}

// ListItems --> GET /catalog/items
func (h *CatalogHandler) ListItems(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return respondError(c, err)
	}
	items, err := h.catalogService.ListItems(c.Request().Context(), entity.ItemFilter{
		CategorySlug: c.QueryParam("category"),
		Limit:        limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// GetItem --> GET /catalog/items/:id
func (h *CatalogHandler) GetItem(c echo.Context) error {
	item, err := h.catalogService.GetItem(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// WarmCache --> POST /catalog/cache/warmup
func (h *CatalogHandler) WarmCache(c echo.Context) error {
	n, err := h.catalogService.WarmCache(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"cached": n})
}

// InvalidateItem --> DELETE /catalog/cache/items/:id
func (h *CatalogHandler) InvalidateItem(c echo.Context) error {
	if err := h.catalogService.InvalidateItem(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTables --> GET /tables
func (h *CatalogHandler) ListTables(c echo.Context) error {
	tables, err := h.tableService.ListTables(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tables)
}

// ListTickets --> GET /stations/:station/tickets
func (h *CatalogHandler) ListTickets(c echo.Context) error {
	station, err := service.ParseStation(c.Param("station"))
	if err != nil {
		return respondError(c, err)
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return respondError(c, err)
	}
	tickets, err := h.stationService.ListTickets(c.Request().Context(), station, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tickets)
}
