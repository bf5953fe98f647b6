package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/exposome-labs/causeway/backend/internal/queue"
	"github.com/exposome-labs/causeway/backend/internal/server/middleware"
	"github.com/exposome-labs/causeway/backend/pkg/discovery"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
)

// PostCausalDiscoveryAsyncHandler enqueues a discovery request for the
// worker instead of running it inline. The caller gets the request id back
// immediately and picks the finished response up from the results topic.
func PostCausalDiscoveryAsyncHandler(c echo.Context) error {
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

	app := c.(*middleware.AppContext).App
	if app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "queue not configured",
		})
	}

	if data.RequestID == "" {
		data.RequestID = gonanoid.Must()
	}

	body, err := json.Marshal(data)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "failed to encode request",
		})
	}

	if err := app.Queue.Enqueue(queue.DiscoveryQueue, body); err != nil {
		logger.Error("[Server] Failed to enqueue discovery request",
			"request", data.RequestID, "err", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "failed to enqueue request",
		})
	}

	logger.Info("[Server] Discovery request enqueued", "request", data.RequestID)
	return c.JSON(http.StatusAccepted, map[string]string{
		"requestId": data.RequestID,
		"status":    "accepted",
	})
}
