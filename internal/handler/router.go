package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bugtracker/server/internal/middleware"
	"github.com/bugtracker/server/internal/service"
)

// Services bundles everything the routes need.
type Services struct {
	Analysis   service.AnalysisService
	Search     service.SearchService
	Embeddings service.EmbeddingService
	Bugs       service.BugService
	Reports    service.ReportService
}

// RegisterRoutes mounts every authenticated route under /api/v1.
func RegisterRoutes(app *fiber.App, svc Services, auth fiber.Handler, production bool) {
	v1 := app.Group("/api/v1", auth)
	NewAIHandler(svc.Analysis, svc.Search, svc.Embeddings, production).Register(v1)
	NewBugHandler(svc.Bugs, svc.Embeddings, svc.Reports).Register(v1)
}

// NewApp builds the Fiber app with the shared error handler, panic
// recovery and request logging. Routes are mounted by the caller.
func NewApp(cfg fiber.Config) *fiber.App {
	cfg.ErrorHandler = ErrorHandler
	app := fiber.New(cfg)
	app.Use(recover.New())
	app.Use(middleware.Logging())
	return app
}
