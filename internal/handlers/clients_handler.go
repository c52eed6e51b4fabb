package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"churninsight/dashboard/internal/models"
	"churninsight/dashboard/internal/services"
)

type ClientsHandler struct {
	dashboard services.DashboardService
}

func NewClientsHandler(dashboard services.DashboardService) *ClientsHandler {
	return &ClientsHandler{dashboard: dashboard}
}

type sortRequest struct {
	SortBy  string `json:"sort_by"`
	SortDir string `json:"sort_dir"`
}

type filterRequest struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// HandleSearch handles GET /clients. Known filter keys in the query string
// override the session's current filters.
func (h *ClientsHandler) HandleSearch(c *fiber.Ctx) error {
	overrides := models.FilterState{}
	known := models.DefaultFilters()
	for key, value := range c.Queries() {
		if _, ok := known[key]; ok {
			overrides[key] = value
		}
	}

	search := sessionFrom(c).Search
	if _, err := search.Search(c.UserContext(), overrides); err != nil {
		return err
	}
	return c.JSON(search.Snapshot())
}

// HandleState handles GET /clients/state
func (h *ClientsHandler) HandleState(c *fiber.Ctx) error {
	return c.JSON(sessionFrom(c).Search.Snapshot())
}

// HandleNext handles POST /clients/next
func (h *ClientsHandler) HandleNext(c *fiber.Ctx) error {
	search := sessionFrom(c).Search
	if _, err := search.NextPage(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(search.Snapshot())
}

// HandlePrevious handles POST /clients/previous
func (h *ClientsHandler) HandlePrevious(c *fiber.Ctx) error {
	search := sessionFrom(c).Search
	if _, err := search.PreviousPage(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(search.Snapshot())
}

// HandleGoToPage handles POST /clients/page/:page
func (h *ClientsHandler) HandleGoToPage(c *fiber.Ctx) error {
	page, err := c.ParamsInt("page")
	if err != nil {
		return &services.ValidationError{Message: "invalid page number"}
	}

	search := sessionFrom(c).Search
	if _, err := search.GoToPage(c.UserContext(), page); err != nil {
		return err
	}
	return c.JSON(search.Snapshot())
}

// HandleSort handles POST /clients/sort
func (h *ClientsHandler) HandleSort(c *fiber.Ctx) error {
	var req sortRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request payload")
	}
	if strings.TrimSpace(req.SortBy) == "" {
		return &services.ValidationError{Message: "sort_by is required"}
	}

	search := sessionFrom(c).Search
	if _, err := search.UpdateSort(c.UserContext(), req.SortBy, req.SortDir); err != nil {
		return err
	}
	return c.JSON(search.Snapshot())
}

// HandleFilter handles POST /clients/filter
func (h *ClientsHandler) HandleFilter(c *fiber.Ctx) error {
	var req filterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request payload")
	}

	search := sessionFrom(c).Search
	if _, err := search.UpdateFilter(c.UserContext(), req.Key, req.Value); err != nil {
		return err
	}
	return c.JSON(search.Snapshot())
}

// HandleClearFilters handles DELETE /clients/filters
func (h *ClientsHandler) HandleClearFilters(c *fiber.Ctx) error {
	search := sessionFrom(c).Search
	if _, err := search.ClearFilters(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(search.Snapshot())
}

// HandleHighRisk handles POST /clients/high-risk
func (h *ClientsHandler) HandleHighRisk(c *fiber.Ctx) error {
	search := sessionFrom(c).Search
	if _, err := search.SearchHighRisk(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(search.Snapshot())
}

// HandleFilterOptions handles GET /clients/filter-options
func (h *ClientsHandler) HandleFilterOptions(c *fiber.Ctx) error {
	options, err := sessionFrom(c).Search.LoadFilterOptions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(options)
}

// HandleAutocomplete handles GET /clients/autocomplete?prefix=
func (h *ClientsHandler) HandleAutocomplete(c *fiber.Ctx) error {
	ids, err := sessionFrom(c).Search.Autocomplete(c.UserContext(), c.Query("prefix"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"suggestions": ids})
}

// HandleByStatus handles GET /clients/by-status/:status
func (h *ClientsHandler) HandleByStatus(c *fiber.Ctx) error {
	page, err := h.dashboard.ClientsByStatus(
		c.UserContext(),
		c.Params("status"),
		c.QueryInt("page", 0),
		c.QueryInt("size", models.DefaultPageSize),
	)
	if err != nil {
		return err
	}
	return c.JSON(page)
}
