// Package main provides the Loom API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/loomhq/loom/pkg/eventbus"
	"github.com/loomhq/loom/pkg/execution"
	"github.com/loomhq/loom/pkg/persistence"
	"github.com/loomhq/loom/pkg/registry"
	"github.com/loomhq/loom/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	log *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      log,
		persistence: store,
		registry:    reg,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	triggers := execution.NewTriggerService(a.persistence, a.eventBus, a.logger)
	handlers := web.NewAPIHandlers(a.persistence, triggers, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Loom API")
	})

	v1 := app.Group("/v1")
	v1.Get("/workflows", handlers.GetWorkflows)
	v1.Post("/workflows", handlers.CreateWorkflow)
	v1.Get("/workflows/:id", handlers.GetWorkflow)
	v1.Delete("/workflows/:id", handlers.DeleteWorkflow)
	v1.Post("/workflows/:id/executions", handlers.TriggerWorkflow)
	v1.Get("/workflows/:id/executions", handlers.GetWorkflowExecutions)
	v1.Get("/executions/:id", handlers.GetExecution)
	v1.Post("/hooks/:workflowID", handlers.Webhook)
	v1.Get("/adapters", handlers.GetAdapters)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
