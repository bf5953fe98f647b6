package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/exposome-labs/causeway/backend/pkg/biokb"
	"github.com/exposome-labs/causeway/backend/pkg/discovery"
)

// Enqueuer hands serialized work to a queue for a worker to pick up. Nil
// when the process runs without a broker; handlers that need it must check.
type Enqueuer interface {
	Enqueue(queueName string, body []byte) error
}

// App holds the shared process-lifetime collaborators every handler needs.
type App struct {
	Orchestrator *discovery.Orchestrator
	Biokb        biokb.Client
	Queue        Enqueuer
	MasterAPIKey string
}

// AppContext wraps the echo context with the shared application state.
type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware injects the shared App into every request context.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
