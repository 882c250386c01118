// Package http содержит HTTP API сервиса заметок на fiber.
package http

import (
	"context"
	nethttp "net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	grpcAdapter "notecache/internal/notes/adapters/grpc"
	"notecache/internal/notes/config"
	"notecache/internal/notes/ports/api"
	"notecache/internal/notes/ports/services"
	"notecache/pkg/logger"
)

const appName = "notecache"

// HealthChecker проверяет зависимости сервиса.
type HealthChecker interface {
	Check(ctx context.Context) grpcAdapter.Snapshot
}

// MetricsProvider отдает метрики и учитывает запросы.
type MetricsProvider interface {
	HTTPObserver
	Handler() nethttp.Handler
}

// Deps - зависимости маршрутизатора.
type Deps struct {
	Notes   api.NoteService
	Tokens  services.TokenService
	Health  HealthChecker
	Metrics MetricsProvider
	Logger  *logger.Logger
}

// NewApp создает fiber-приложение с таймаутами из конфигурации.
func NewApp(cfg *config.HTTPConfig) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      appName,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// SetupRouter настраивает маршрутизацию для HTTP сервера.
func SetupRouter(app *fiber.App, deps Deps) {
	var observer HTTPObserver
	if deps.Metrics != nil {
		observer = deps.Metrics
	}

	// Middleware для всех запросов.
	app.Use(NewRequestIDMiddleware(deps.Logger))
	app.Use(NewLoggerMiddleware(observer))
	app.Use(NewRecoveryMiddleware())

	app.Get("/health", healthHandler(deps.Health))
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	handler := NewHandler(deps.Notes)

	// Маршруты заметок (требуют авторизации).
	notesRoutes := app.Group("/api/v1/notes")
	notesRoutes.Use(NewAuthMiddleware(deps.Tokens))
	notesRoutes.Post("/", handler.CreateNote)
	notesRoutes.Get("/", handler.ListNotes)
	notesRoutes.Get("/count", handler.CountNotes)
	notesRoutes.Get("/search", handler.SearchNotes)
	notesRoutes.Get("/:note_id", handler.GetNote)
	notesRoutes.Put("/:note_id", handler.UpdateNote)
	notesRoutes.Patch("/:note_id", handler.UpdateNote)
	notesRoutes.Delete("/:note_id", handler.DeleteNote)

	// Обработчик для несуществующих маршрутов.
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "route not found"})
	})
}

func healthHandler(checker HealthChecker) fiber.Handler {
	return func(c fiber.Ctx) error {
		if checker == nil {
			return c.JSON(fiber.Map{"status": grpcAdapter.StatusOK})
		}
		snap := checker.Check(requestContext(c))
		status := fiber.StatusOK
		if snap.Status() == grpcAdapter.StatusDown {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status": snap.Status(),
			"store":  snap.Store,
			"cache":  snap.Cache,
		})
	}
}
