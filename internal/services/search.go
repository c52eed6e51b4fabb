package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"churninsight/dashboard/internal/metrics"
	"churninsight/dashboard/internal/models"
)

const (
	DefaultHighRiskThreshold = 0.7
	highRiskPageSize         = 10
	minAutocompletePrefix    = 2
)

type SearchOptions struct {
	HighRiskThreshold float64
	Metrics           *metrics.Collector
	Logger            *zap.Logger
}

// SearchController holds the client search filters and the last page. Only
// the most recent request may update it: starting a search cancels the one
// in flight.
type SearchController struct {
	client            BackendClient
	metrics           *metrics.Collector
	log               *zap.Logger
	highRiskThreshold float64

	mu         sync.Mutex
	filters    models.FilterState
	page       *models.ClientPage
	options    models.Payload
	loading    bool
	lastErr    string
	generation uint64
	cancel     context.CancelFunc
}

func NewSearchController(client BackendClient, opts SearchOptions) *SearchController {
	if opts.HighRiskThreshold <= 0 {
		opts.HighRiskThreshold = DefaultHighRiskThreshold
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &SearchController{
		client:            client,
		metrics:           opts.Metrics,
		log:               opts.Logger,
		highRiskThreshold: opts.HighRiskThreshold,
		filters:           models.DefaultFilters(),
	}
}

// Search merges overrides onto the current filters and fetches that page.
// It returns ErrAborted when a newer request supersedes it.
func (c *SearchController) Search(ctx context.Context, overrides models.FilterState) (models.ClientPage, error) {
	return c.run(ctx, func(current models.FilterState) models.FilterState {
		return NormalizeFilters(current.Merge(overrides))
	})
}

// GoToPage searches the given 0-based page with the current filters.
func (c *SearchController) GoToPage(ctx context.Context, page int) (models.ClientPage, error) {
	if page < 0 {
		return models.ClientPage{}, &ValidationError{Message: "page must not be negative"}
	}
	c.mu.Lock()
	current := c.page
	c.mu.Unlock()
	if current != nil && current.TotalPages > 0 && page >= current.TotalPages {
		return models.ClientPage{}, &ValidationError{Message: fmt.Sprintf("page %d is out of range", page)}
	}
	return c.Search(ctx, models.FilterState{models.FilterPage: page})
}

// NextPage moves one page forward. On the last page, or before any search,
// it returns the current page without a request.
func (c *SearchController) NextPage(ctx context.Context) (models.ClientPage, error) {
	c.mu.Lock()
	current := c.page
	c.mu.Unlock()

	if current == nil || current.Last {
		return pageOrEmpty(current), nil
	}
	return c.Search(ctx, models.FilterState{models.FilterPage: current.Number + 1})
}

// PreviousPage moves one page back. On the first page, or before any search,
// it returns the current page without a request.
func (c *SearchController) PreviousPage(ctx context.Context) (models.ClientPage, error) {
	c.mu.Lock()
	current := c.page
	c.mu.Unlock()

	if current == nil || current.First || current.Number <= 0 {
		return pageOrEmpty(current), nil
	}
	return c.Search(ctx, models.FilterState{models.FilterPage: current.Number - 1})
}

// UpdateFilter sets one filter and returns to the first page.
func (c *SearchController) UpdateFilter(ctx context.Context, key string, value interface{}) (models.ClientPage, error) {
	if _, ok := models.DefaultFilters()[key]; !ok {
		return models.ClientPage{}, &ValidationError{Message: fmt.Sprintf("unknown filter %q", key)}
	}
	return c.Search(ctx, models.FilterState{key: value, models.FilterPage: 0})
}

// ClearFilters restores every filter to its default and searches again.
func (c *SearchController) ClearFilters(ctx context.Context) (models.ClientPage, error) {
	return c.run(ctx, func(models.FilterState) models.FilterState {
		return models.DefaultFilters()
	})
}

// UpdateSort changes the ordering and returns to the first page. An empty
// direction means descending.
func (c *SearchController) UpdateSort(ctx context.Context, sortBy, sortDir string) (models.ClientPage, error) {
	if strings.TrimSpace(sortDir) == "" {
		sortDir = models.DefaultSortDir
	}
	return c.Search(ctx, models.FilterState{
		models.FilterSortBy:  sortBy,
		models.FilterSortDir: sortDir,
		models.FilterPage:    0,
	})
}

// SearchHighRisk loads the first page of high-risk clients, then records the
// equivalent filters.
func (c *SearchController) SearchHighRisk(ctx context.Context) (models.ClientPage, error) {
	c.mu.Lock()
	ctx, gen := c.beginLocked(ctx)
	filters := c.filters.Clone()
	c.mu.Unlock()

	raw, err := c.client.HighRiskClients(ctx, 0, highRiskPageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	page, err := c.finishLocked(gen, raw, err, models.FilterState{
		models.FilterPage: 0,
		models.FilterSize: highRiskPageSize,
	})
	if err != nil {
		return models.ClientPage{}, err
	}
	c.filters = NormalizeFilters(filters.Merge(models.FilterState{
		models.FilterStatus:         models.StatusWillChurn,
		models.FilterMinProbability: c.highRiskThreshold,
		models.FilterPage:           0,
		models.FilterSize:           highRiskPageSize,
	}))
	return page, nil
}

// LoadFilterOptions fetches the values offered by the filter inputs. A
// failure leaves the previous options in place.
func (c *SearchController) LoadFilterOptions(ctx context.Context) (models.Payload, error) {
	options, err := c.client.FilterOptions(ctx)
	if err != nil {
		c.log.Warn("failed to load filter options", zap.Error(err))
		return nil, fmt.Errorf("filter options: %w", err)
	}

	c.mu.Lock()
	c.options = options
	c.mu.Unlock()
	return options, nil
}

// Autocomplete suggests user ids. Prefixes shorter than two characters return
// nothing without a request.
func (c *SearchController) Autocomplete(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if utf8.RuneCountInString(prefix) < minAutocompletePrefix {
		return []string{}, nil
	}
	ids, err := c.client.AutocompleteUserID(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("autocomplete: %w", err)
	}
	return ids, nil
}

func (c *SearchController) Filters() models.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters.Clone()
}

func (c *SearchController) Snapshot() models.SearchSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := models.SearchSnapshot{
		Filters:       c.filters.Clone(),
		FilterOptions: c.options,
		Loading:       c.loading,
		Error:         c.lastErr,
	}
	if c.page != nil {
		page := *c.page
		snap.Page = &page
	}
	snap.Pagination = ComputePagination(snap.Page, snap.Filters)
	return snap
}

// Close cancels the request in flight, if any.
func (c *SearchController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.loading = false
}

func (c *SearchController) run(ctx context.Context, next func(models.FilterState) models.FilterState) (models.ClientPage, error) {
	c.mu.Lock()
	filters := next(c.filters.Clone())
	c.filters = filters
	ctx, gen := c.beginLocked(ctx)
	c.mu.Unlock()

	raw, err := c.client.SearchClients(ctx, filters)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finishLocked(gen, raw, err, filters)
}

// beginLocked cancels the request in flight and returns the context and
// generation of the new one.
func (c *SearchController) beginLocked(ctx context.Context) (context.Context, uint64) {
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.generation++
	c.loading = true
	return ctx, c.generation
}

func (c *SearchController) finishLocked(gen uint64, raw interface{}, err error, filters models.FilterState) (models.ClientPage, error) {
	if gen != c.generation {
		c.metrics.RecordSearch("aborted")
		return models.ClientPage{}, ErrAborted
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false

	if err != nil {
		if IsAborted(err) {
			c.metrics.RecordSearch("aborted")
			return models.ClientPage{}, ErrAborted
		}
		c.lastErr = err.Error()
		c.metrics.RecordSearch("failed")
		c.log.Warn("client search failed", zap.Error(err))
		return models.ClientPage{}, fmt.Errorf("client search: %w", err)
	}

	page := NormalizeClientPage(raw, filters)
	c.page = &page
	c.lastErr = ""
	c.metrics.RecordSearch("ok")
	return page, nil
}

func pageOrEmpty(page *models.ClientPage) models.ClientPage {
	if page == nil {
		return models.ClientPage{Content: []models.ClientRecord{}}
	}
	return *page
}
