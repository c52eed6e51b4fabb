package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"churninsight/dashboard/internal/services"
)

type Handlers struct {
	Prediction *PredictionHandler
	Batch      *BatchHandler
	Clients    *ClientsHandler
	Dashboard  *DashboardHandler
}

// RegisterRoutes attaches the dashboard API under /api/v1. Every route there
// runs inside an operator session.
func RegisterRoutes(app *fiber.App, registry services.SessionRegistry, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api := app.Group("/api/v1", SessionMiddleware(registry))

	predictions := api.Group("/predictions")
	predictions.Get("/", h.Prediction.HandleState)
	predictions.Post("/", h.Prediction.HandlePredict)
	predictions.Post("/stats", h.Prediction.HandleFullStats)
	predictions.Delete("/", h.Prediction.HandleReset)

	batch := api.Group("/batch")
	batch.Post("/", h.Batch.HandleUpload)
	batch.Get("/", h.Batch.HandleState)
	batch.Post("/check", h.Batch.HandleCheck)
	batch.Delete("/", h.Batch.HandleReset)
	batch.Get("/history", h.Batch.HandleHistory)

	clients := api.Group("/clients")
	clients.Get("/", h.Clients.HandleSearch)
	clients.Get("/state", h.Clients.HandleState)
	clients.Post("/next", h.Clients.HandleNext)
	clients.Post("/previous", h.Clients.HandlePrevious)
	clients.Post("/page/:page", h.Clients.HandleGoToPage)
	clients.Post("/sort", h.Clients.HandleSort)
	clients.Post("/filter", h.Clients.HandleFilter)
	clients.Delete("/filters", h.Clients.HandleClearFilters)
	clients.Post("/high-risk", h.Clients.HandleHighRisk)
	clients.Get("/filter-options", h.Clients.HandleFilterOptions)
	clients.Get("/autocomplete", h.Clients.HandleAutocomplete)
	clients.Get("/by-status/:status", h.Clients.HandleByStatus)

	dashboard := api.Group("/dashboard")
	dashboard.Get("/", h.Dashboard.HandleOverview)
	dashboard.Get("/risk-factors", h.Dashboard.HandleRiskFactors)
	dashboard.Get("/aggregates", h.Dashboard.HandleAggregates)

	api.Post("/system/cache/clear", h.Dashboard.HandleClearCache)
}
