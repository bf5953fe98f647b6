package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/exposome-labs/causeway/backend/internal/queue"
	mid "github.com/exposome-labs/causeway/backend/internal/server/middleware"
	"github.com/exposome-labs/causeway/backend/internal/util"
	"github.com/exposome-labs/causeway/backend/pkg/biokb/rest"
	"github.com/exposome-labs/causeway/backend/pkg/discovery"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	biokbClient := rest.NewClient(rest.NewClientParams{
		BaseURL:            util.GetEnv("BIOKB_URL"),
		APIKey:             util.GetEnv("BIOKB_API_KEY"),
		CallTimeout:        util.GetEnvDuration("BIOKB_CALL_TIMEOUT", 10*time.Second),
		MaxConcurrentCalls: int64(util.GetEnvNumeric("BIOKB_PARALLEL_REQ", 5)),
		CallsPerMinute:     int(util.GetEnvNumeric("BIOKB_CALLS_PER_MINUTE", 30)),
	})

	dctx := discovery.NewContext(discovery.NewContextParams{
		Client:          biokbClient,
		RequestDeadline: util.GetEnvDuration("DISCOVERY_DEADLINE", 5*time.Second),
		PairConcurrency: int(util.GetEnvNumeric("DISCOVERY_PAIR_CONCURRENCY", 5)),
	})

	app := &mid.App{
		Orchestrator: discovery.NewOrchestrator(dctx),
		Biokb:        biokbClient,
		MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
	}

	// Async submission needs a broker; without one the sync route still works.
	if util.GetEnv("RABBITMQ_HOST") != "" {
		conn := queue.Init()
		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open RabbitMQ channel", "err", err)
		}
		if err := queue.SetupQueues(ch, []string{queue.DiscoveryQueue}); err != nil {
			logger.Fatal("Failed to set up queues", "err", err)
		}
		app.Queue = queue.NewPublisher(ch)
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
