package lifecycle

import (
	"testing"
	"time"

	"ticket-tracker/internal/clock"
	"ticket-tracker/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveScrapeStatus(t *testing.T) {
	tests := map[string]models.ScrapeStatus{
		"Active":     models.ScrapeStatusActive,
		"Contingent": models.ScrapeStatusActive,
		"Postponed":  models.ScrapeStatusActive,
		"Scheduled":  models.ScrapeStatusActive,
		"Cancelled":  models.ScrapeStatusInactive,
		"Completed":  models.ScrapeStatusInactive,
		"active":     models.ScrapeStatusInactive,
		"":           models.ScrapeStatusInactive,
	}

	for eventStatus, want := range tests {
		t.Run(eventStatus, func(t *testing.T) {
			assert.Equal(t, want, DeriveScrapeStatus(eventStatus))
		})
	}
}

func eventStartingAt(dt time.Time) *models.Event {
	return &models.Event{ID: 1, DateTime: &dt, ScrapeStatus: models.ScrapeStatusActive}
}

func TestLifecycle_Check(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC))
	now := clk.Now()
	l := New(0)
	require.Equal(t, DefaultGraceWindow, l.GraceWindow())

	t.Run("started 119 minutes ago is scraped", func(t *testing.T) {
		d := l.Check(eventStartingAt(now.Add(-119*time.Minute)), now)
		assert.Equal(t, Decision{Scrape: true, Reason: ReasonEligible}, d)
	})

	t.Run("started exactly at the grace window is scraped", func(t *testing.T) {
		d := l.Check(eventStartingAt(now.Add(-120*time.Minute)), now)
		assert.True(t, d.Scrape)
	})

	t.Run("started 121 minutes ago is retired", func(t *testing.T) {
		d := l.Check(eventStartingAt(now.Add(-121*time.Minute)), now)
		assert.Equal(t, Decision{Retire: true, Reason: ReasonExpired}, d)
	})

	t.Run("future event is scraped", func(t *testing.T) {
		assert.True(t, l.Check(eventStartingAt(now.Add(48*time.Hour)), now).Scrape)
	})

	t.Run("no date time is scraped", func(t *testing.T) {
		event := &models.Event{ID: 1, ScrapeStatus: models.ScrapeStatusActive}
		assert.True(t, l.Check(event, now).Scrape)
	})

	t.Run("inactive event is skipped without retiring", func(t *testing.T) {
		event := eventStartingAt(now.Add(-10 * time.Hour))
		event.ScrapeStatus = models.ScrapeStatusInactive
		assert.Equal(t, Decision{Reason: ReasonInactive}, l.Check(event, now))
	})

	t.Run("never refreshed event is skipped", func(t *testing.T) {
		assert.False(t, l.Check(&models.Event{ID: 1}, now).Scrape)
	})
}

func TestLifecycle_CustomGraceWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	l := New(30 * time.Minute)

	assert.True(t, l.Expired(eventStartingAt(now.Add(-31*time.Minute)), now))
	assert.False(t, l.Expired(eventStartingAt(now.Add(-29*time.Minute)), now))
}

func TestLifecycle_ExpiredAcrossTimeZones(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	now := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	// 14:59 in New York is 19:59 UTC, 121 minutes before now.
	start := time.Date(2024, 3, 1, 14, 59, 0, 0, ny)

	assert.True(t, New(0).Expired(eventStartingAt(start), now))
}

func TestRefresh(t *testing.T) {
	now := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	fromSource := &models.Event{ID: 9, Name: "Show", EventStatus: "Postponed", ScrapeStatus: models.ScrapeStatusInactive}

	refreshed := Refresh(fromSource, now)

	assert.Equal(t, models.ScrapeStatusActive, refreshed.ScrapeStatus)
	require.NotNil(t, refreshed.LastScrapedDateTime)
	assert.Equal(t, now, *refreshed.LastScrapedDateTime)
	assert.Equal(t, "Show", refreshed.Name)
	// the source event is left untouched
	assert.Equal(t, models.ScrapeStatusInactive, fromSource.ScrapeStatus)

	cancelled := Refresh(&models.Event{ID: 9, EventStatus: "Cancelled"}, now)
	assert.Equal(t, models.ScrapeStatusInactive, cancelled.ScrapeStatus)
}

func TestManualUpdate_Apply(t *testing.T) {
	scraped := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	dt := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	event := &models.Event{ID: 9, Name: "Old", EventStatus: "Cancelled", LastScrapedDateTime: &scraped, ScrapeStatus: models.ScrapeStatusInactive}

	updated := ManualUpdate{
		EventID:          9,
		PrimaryPerformer: "Band",
		Name:             "New",
		VenueCity:        "Auckland",
		VenueName:        "Spark Arena",
		DateTime:         &dt,
		EventStatus:      "Cancelled",
		ScrapeStatus:     models.ScrapeStatusActive,
	}.Apply(event)

	// scrape status is written verbatim, not derived from the event status
	assert.Equal(t, models.ScrapeStatusActive, updated.ScrapeStatus)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "Spark Arena", updated.VenueName)
	assert.Equal(t, &dt, updated.DateTime)
	assert.Equal(t, &scraped, updated.LastScrapedDateTime)
	assert.Equal(t, int64(9), updated.ID)
}
