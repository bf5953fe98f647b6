package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/exposome-labs/causeway/backend/internal/server/middleware"
	"github.com/exposome-labs/causeway/backend/internal/server/routes"
	"github.com/exposome-labs/causeway/backend/pkg/metrics"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route; the service stays up when the knowledge base is
	// unreachable (fallback data still serves), so this always returns 200.
	e.GET("/health", func(c echo.Context) error {
		upstream := "ok"
		client := c.(*middleware.AppContext).App.Biokb
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := client.Health(ctx); err != nil {
			upstream = "unreachable"
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":        "ok",
			"knowledgeBase": upstream,
		})
	})

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	apiRoutes := e.Group("/api/v1", middleware.AuthMiddleware)
	apiRoutes.POST("/causal-discovery", routes.PostCausalDiscoveryHandler)
	apiRoutes.POST("/causal-discovery/async", routes.PostCausalDiscoveryAsyncHandler)
}
