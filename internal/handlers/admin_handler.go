package handlers

import (
	"context"
	"net/http"
	"strconv"

	"ticket-tracker/internal/store"
	"ticket-tracker/utils"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const defaultRunsLimit = 20

type RunLister interface {
	Recent(ctx context.Context, limit int64) ([]store.ScrapeRun, error)
}

type AdminHandler struct {
	redis redis.Cmdable
	runs  RunLister
}

func NewAdminHandler(redis redis.Cmdable, runs RunLister) *AdminHandler {
	return &AdminHandler{
		redis: redis,
		runs:  runs,
	}
}

// Health - Report whether the event store is reachable
func (h *AdminHandler) Health(e *core.RequestEvent) error {
	if err := utils.RedisHealthCheck(e.Request.Context(), h.redis); err != nil {
		return e.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// GetScrapeRuns - Get the most recent scrape runs
func (h *AdminHandler) GetScrapeRuns(e *core.RequestEvent) error {
	limit := int64(defaultRunsLimit)
	if raw := e.Request.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return apis.NewBadRequestError("Invalid limit", err)
		}
		limit = n
	}

	runs, err := h.runs.Recent(e.Request.Context(), limit)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to get scrape runs", err)
	}
	if runs == nil {
		runs = []store.ScrapeRun{}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// Metrics - Expose prometheus metrics
func (h *AdminHandler) Metrics(e *core.RequestEvent) error {
	promhttp.Handler().ServeHTTP(e.Response, e.Request)
	return nil
}
