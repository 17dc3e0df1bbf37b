package storefront

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/storefront-cache/pkg/httpcache"
	"github.com/Sternrassler/storefront-cache/pkg/invalidation"
	"github.com/Sternrassler/storefront-cache/pkg/metrics"
	"github.com/Sternrassler/storefront-cache/pkg/swr"
	"github.com/labstack/echo/v4"
)

const (
	defaultProductLimit = 12
	maxProductLimit     = 100
)

// envelope is the JSON body of every successful API response.
type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Cached   bool            `json:"cached"`
	CacheTTL int             `json:"cache_ttl"`
}

// Handlers exposes Service over HTTP.
type Handlers struct {
	svc *Service
}

// NewHandlers creates the HTTP handlers.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// Register mounts every route on e.
func (h *Handlers) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api")
	api.GET("/homepage", h.Homepage)
	api.GET("/homepage/sections", h.HomepageSections)
	api.GET("/categories/tree", h.CategoryTree)
	api.GET("/products/type/:type", h.ProductsByType)
	api.GET("/product-sections", h.ProductSections)
	api.GET("/notification-bar/active", h.NotificationBar)
	api.POST("/admin/cache/invalidate", h.Invalidate)
	api.POST("/admin/cache/warmup", h.Warmup)
}

// Health reports liveness and the cache capabilities in use.
func (h *Handlers) Health(c echo.Context) error {
	caps := h.svc.engine.Capabilities()
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"cache": map[string]bool{
			"tags":     caps.Tags,
			"ttl":      caps.TTL,
			"patterns": caps.Patterns,
		},
	})
}

// Homepage serves the aggregated homepage.
func (h *Handlers) Homepage(c echo.Context) error {
	res, err := h.svc.Homepage(c.Request().Context(), forceRefresh(c))
	if err != nil {
		return apiError(err)
	}
	return respond(c, res, 0)
}

// HomepageSections serves the homepage parts named in ?sections=a,b.
func (h *Handlers) HomepageSections(c echo.Context) error {
	names := splitList(c.QueryParam("sections"))
	if len(names) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "sections parameter is required")
	}
	parts, cached, err := h.svc.HomepageSections(c.Request().Context(), names)
	if err != nil {
		return apiError(err)
	}
	data, err := json.Marshal(parts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{Status: "success", Data: data, Cached: cached})
}

// CategoryTree serves the active category tree.
func (h *Handlers) CategoryTree(c echo.Context) error {
	res, err := h.svc.CategoryTree(c.Request().Context(), forceRefresh(c))
	if err != nil {
		return apiError(err)
	}
	return respond(c, res, 0)
}

// ProductsByType serves products of the :type path parameter.
func (h *Handlers) ProductsByType(c echo.Context) error {
	limit, err := queryLimit(c, defaultProductLimit)
	if err != nil {
		return err
	}
	res, err := h.svc.ProductsByType(c.Request().Context(), c.Param("type"), limit)
	if err != nil {
		return apiError(err)
	}
	return respond(c, res, 0)
}

// ProductSections serves merchandised sections, filtered by ?type=.
func (h *Handlers) ProductSections(c echo.Context) error {
	limit, err := queryLimit(c, 0)
	if err != nil {
		return err
	}
	res, err := h.svc.ProductSections(c.Request().Context(), c.QueryParam("type"), limit, forceRefresh(c))
	if err != nil {
		return apiError(err)
	}
	return respond(c, res, 0)
}

// NotificationBar serves the active notification bar.
func (h *Handlers) NotificationBar(c echo.Context) error {
	res, err := h.svc.NotificationBar(c.Request().Context(), forceRefresh(c))
	if err != nil {
		return apiError(err)
	}
	return respond(c, res, 0)
}

// Invalidate drops cache entries by tags, keys or pattern.
func (h *Handlers) Invalidate(c echo.Context) error {
	var req InvalidateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if len(req.Tags) == 0 && len(req.Keys) == 0 && req.Pattern == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tags, keys or pattern required")
	}

	result, err := h.svc.Invalidate(c.Request().Context(), req)
	if errors.Is(err, invalidation.ErrPatternUnsupported) {
		return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "success", "data": result})
}

// Warmup primes the storefront cache entries.
func (h *Handlers) Warmup(c echo.Context) error {
	report := h.svc.Warmup(c.Request().Context())

	failed := make(map[string]string)
	for _, res := range report.Results {
		if res.Err != nil {
			failed[res.Name] = res.Err.Error()
		}
	}
	status := http.StatusOK
	if report.Failed > 0 {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, map[string]any{
		"status": "success",
		"data": map[string]any{
			"warmed":      report.Warmed,
			"failed":      report.Failed,
			"skipped":     report.Skipped,
			"errors":      failed,
			"duration_ms": report.Duration.Milliseconds(),
		},
	})
}

// respond writes res wrapped in the API envelope with caching headers.
// Results that were never cached keep the no-store headers.
func respond(c echo.Context, res swr.Result, maxAge time.Duration) error {
	if res.TTL <= 0 {
		return c.JSON(http.StatusOK, envelope{Status: "success", Data: res.Value})
	}
	return httpcache.JSON(c, res, maxAge, envelope{
		Status:   "success",
		Data:     res.Value,
		Cached:   res.Hit,
		CacheTTL: int(res.TTL / time.Second),
	})
}

// apiError maps service errors to HTTP errors.
func apiError(err error) error {
	switch {
	case errors.Is(err, swr.ErrProducer):
		return echo.NewHTTPError(http.StatusBadGateway, "upstream data unavailable").SetInternal(err)
	case errors.Is(err, swr.ErrEmptyKey):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}

func forceRefresh(c echo.Context) bool {
	refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))
	return refresh
}

func queryLimit(c echo.Context, defaultLimit int) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxProductLimit {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 100")
	}
	return limit, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
