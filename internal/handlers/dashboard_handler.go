package handlers

import (
	"github.com/gofiber/fiber/v2"

	"churninsight/dashboard/internal/services"
)

type DashboardHandler struct {
	dashboard services.DashboardService
}

func NewDashboardHandler(dashboard services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// HandleOverview handles GET /dashboard
func (h *DashboardHandler) HandleOverview(c *fiber.Ctx) error {
	return c.JSON(h.dashboard.Snapshot(c.UserContext()))
}

// HandleRiskFactors handles GET /dashboard/risk-factors
func (h *DashboardHandler) HandleRiskFactors(c *fiber.Ctx) error {
	factors, err := h.dashboard.RiskFactors(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"factors": factors})
}

// HandleAggregates handles GET /dashboard/aggregates
func (h *DashboardHandler) HandleAggregates(c *fiber.Ctx) error {
	agg, err := h.dashboard.Aggregates(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(agg)
}

// HandleClearCache handles POST /system/cache/clear
func (h *DashboardHandler) HandleClearCache(c *fiber.Ctx) error {
	if err := h.dashboard.ClearCache(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "cache cleared"})
}
