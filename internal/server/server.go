package server

import (
	"time"

	"productapi/internal/handlers"
	"productapi/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Options controls how the Fiber app is assembled.
type Options struct {
	// RequestLogging enables the per-request logger middleware.
	RequestLogging bool
	Metrics        *metrics.Metrics
}

// NewApp builds the Fiber app with middleware, the /api/v1 product routes,
// the health check and the metrics endpoint.
func NewApp(productHandler *handlers.ProductHandler, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "product-api",
	})

	app.Use(recover.New())
	if opts.RequestLogging {
		app.Use(logger.New())
	}

	apiV1 := app.Group("/api/v1")
	productHandler.RegisterRoutes(apiV1)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	return app
}
