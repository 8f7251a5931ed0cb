package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	JWTSecret string
	RateLimit float64
	RateBurst int
	Service   string
}

func RateLimiter(limit float64, burst int) echo.MiddlewareFunc {
	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(limit),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}
	return middleware.RateLimiterWithConfig(limiterConfig)
}

// Register mounts every route on e. /health stays outside auth and rate limiting.
func Register(e *echo.Echo, cfg RouterConfig, orders *OrderHandler, catalog *CatalogHandler) {
	e.Validator = NewValidator()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":  "ok",
			"service": cfg.Service,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	v1 := e.Group("/api/v1", RateLimiter(cfg.RateLimit, cfg.RateBurst), JWTMiddleware(cfg.JWTSecret))

	v1.GET("/catalog/items", catalog.ListItems)
	v1.GET("/catalog/items/:id", catalog.GetItem)
	v1.POST("/catalog/cache/warmup", catalog.WarmCache, RequireRole(RoleAdmin))
	v1.DELETE("/catalog/cache/items/:id", catalog.InvalidateItem, RequireRole(RoleAdmin))
	v1.GET("/tables", catalog.ListTables)
	v1.GET("/stations/:station/tickets", catalog.ListTickets)

	v1.POST("/orders", orders.CreateOrder)
	v1.GET("/orders", orders.ListOrders)
	v1.GET("/orders/trash", orders.ListTrash)
	v1.GET("/orders/:id", orders.GetOrder)
	v1.PUT("/orders/:id/items", orders.UpdateItems)
	v1.PATCH("/orders/:id/status", orders.UpdateStatus)
	v1.PATCH("/orders/:id/discount", orders.ApplyDiscount)
	v1.DELETE("/orders/:id", orders.TrashOrder)
	v1.POST("/orders/:id/restore", orders.RestoreOrder)
	v1.DELETE("/orders/:id/permanent", orders.PurgeOrder, RequireRole(RoleAdmin))
	v1.POST("/orders/bulk/delete", orders.BulkTrash)
	v1.POST("/orders/bulk/restore", orders.BulkRestore)
	v1.POST("/orders/bulk/permanent-delete", orders.BulkPurge, RequireRole(RoleAdmin))
}
