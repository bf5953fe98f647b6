package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/exposome-labs/causeway/backend/internal/server/middleware"
	"github.com/exposome-labs/causeway/backend/pkg/discovery"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
)

// PostCausalDiscoveryHandler runs one discovery request synchronously.
//
// Business failures (NO_CAUSAL_PATH, TIMEOUT, INTERNAL_CONTRACT_ERROR) come
// back as HTTP 200 with a status:"error" body so callers handle one envelope;
// only an undecodable or invalid request shape yields a 400.
func PostCausalDiscoveryHandler(c echo.Context) error {
	data := new(discovery.Request)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest,
			discovery.ErrorResponse("", discovery.CodeInvalidRequest, "invalid request body"))
	}
	if err := c.Validate(data); err != nil {
		logger.Debug("[Server] Request failed validation", "err", err)
		return c.JSON(http.StatusBadRequest,
			discovery.ErrorResponse(data.RequestID, discovery.CodeInvalidRequest, "invalid request body"))
	}

	orchestrator := c.(*middleware.AppContext).App.Orchestrator
	response := orchestrator.Discover(c.Request().Context(), *data)

	return c.JSON(http.StatusOK, response)
}
