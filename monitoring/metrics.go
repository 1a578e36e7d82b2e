package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	trackedEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracked_events_total",
			Help: "Current number of tracked events",
		},
	)

	scrapeRuns = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_run_duration_seconds",
			Help:    "Duration of scrape runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"mode"},
	)

	eventOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_event_outcomes_total",
			Help: "Total per-event scrape outcomes",
		},
		[]string{"outcome"},
	)

	zoneFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zone_listings_fetch_duration_seconds",
			Help:    "Duration of zone listing requests to a ticket source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "status"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_history_notifications_total",
			Help: "Total price history notifications",
		},
		[]string{"status"},
	)
)

// Monitor records scrape metrics. The store client is only needed by Run.
type Monitor struct {
	redis redis.Cmdable
}

func NewMonitor(redisClient redis.Cmdable) *Monitor {
	return &Monitor{redis: redisClient}
}

// Run refreshes store backed gauges every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if m.redis == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.collectTrackedEvents(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) collectTrackedEvents(ctx context.Context) {
	n, err := m.redis.SCard(ctx, "events:tracked").Result()
	if err != nil {
		slog.Debug("collect tracked events", "error", err)
		return
	}
	trackedEvents.Set(float64(n))
}

func (m *Monitor) TrackScrapeRun(mode string, duration time.Duration) {
	scrapeRuns.WithLabelValues(mode).Observe(duration.Seconds())
}

func (m *Monitor) TrackEventOutcome(outcome string) {
	eventOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Monitor) TrackZoneFetch(source string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	zoneFetchDuration.WithLabelValues(source, status).Observe(duration.Seconds())
}

func (m *Monitor) TrackNotification(status string) {
	notifications.WithLabelValues(status).Inc()
}
