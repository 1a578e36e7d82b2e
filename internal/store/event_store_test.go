package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ticket-tracker/internal/status"
	"ticket-tracker/models"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestEventStore() (*EventStore, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return NewEventStore(db), mock
}

func storedEventFields(id string) map[string]string {
	return map[string]string{
		"id":                     id,
		"name":                   "Coldplay",
		"date_time":              "2019-10-26T23:30:00Z",
		"event_status":           "Active",
		"venue_name":             "MetLife Stadium",
		"venue_city":             "East Rutherford",
		"primary_performer":      "Coldplay",
		"last_scraped_date_time": "",
		"scrape_status":          "Active",
	}
}

func TestEventStore_Exists(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	mock.ExpectExists("event:1").SetVal(1)
	mock.ExpectExists("event:2").SetVal(0)

	ok, err := s.Exists(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_Get(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	mock.ExpectHGetAll("event:103968456").SetVal(storedEventFields("103968456"))

	event, err := s.Get(context.Background(), 103968456)
	require.NoError(t, err)

	assert.Equal(t, int64(103968456), event.ID)
	assert.Equal(t, "MetLife Stadium", event.VenueName)
	assert.Equal(t, models.ScrapeStatusActive, event.ScrapeStatus)
	require.NotNil(t, event.DateTime)
	assert.True(t, event.DateTime.Equal(time.Date(2019, 10, 26, 23, 30, 0, 0, time.UTC)))
	assert.Nil(t, event.LastScrapedDateTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_GetNotFound(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	mock.ExpectHGetAll("event:5").SetVal(map[string]string{})

	event, err := s.Get(context.Background(), 5)

	assert.Nil(t, event)
	assert.ErrorIs(t, err, status.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_Put(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	dt := time.Date(2019, 10, 26, 23, 30, 0, 0, time.UTC)
	scraped := time.Date(2019, 10, 1, 12, 0, 0, 0, time.UTC)
	event := &models.Event{
		ID:                  7,
		Name:                "Coldplay",
		DateTime:            &dt,
		EventStatus:         "Active",
		VenueName:           "MetLife Stadium",
		VenueCity:           "East Rutherford",
		PrimaryPerformer:    "Coldplay",
		LastScrapedDateTime: &scraped,
		ScrapeStatus:        models.ScrapeStatusActive,
	}

	mock.ExpectTxPipeline()
	mock.ExpectHSet("event:7",
		"id", "7",
		"name", "Coldplay",
		"date_time", "2019-10-26T23:30:00Z",
		"event_status", "Active",
		"venue_name", "MetLife Stadium",
		"venue_city", "East Rutherford",
		"primary_performer", "Coldplay",
		"last_scraped_date_time", "2019-10-01T12:00:00Z",
		"scrape_status", "Active",
	).SetVal(9)
	mock.ExpectSAdd("events:tracked", int64(7)).SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, s.Put(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_Create(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	mock.ExpectEval(createEventScript, []string{"event:7", "events:tracked"}, "7").SetVal(int64(1))
	mock.ExpectEval(createEventScript, []string{"event:7", "events:tracked"}, "7").SetVal(int64(0))

	created, err := s.Create(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Create(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_UpdateScrapeState(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	now := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	mock.ExpectEval(updateScrapeStateScript, []string{"event:7"}, "Inactive", "2024-03-01T20:00:00Z").SetVal(int64(1))
	mock.ExpectEval(updateScrapeStateScript, []string{"event:8"}, "Inactive", "2024-03-01T20:00:00Z").SetVal(int64(0))

	require.NoError(t, s.UpdateScrapeState(context.Background(), 7, models.ScrapeStatusInactive, now))

	err := s.UpdateScrapeState(context.Background(), 8, models.ScrapeStatusInactive, now)
	assert.ErrorIs(t, err, status.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_ScanTracked(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	mock.ExpectSScan("events:tracked", 0, "", scanBatch).SetVal([]string{"1", "2"}, 7)
	mock.ExpectHGetAll("event:1").SetVal(storedEventFields("1"))
	mock.ExpectHGetAll("event:2").SetVal(map[string]string{})
	mock.ExpectSScan("events:tracked", 7, "", scanBatch).SetVal([]string{"3"}, 0)
	mock.ExpectHGetAll("event:3").SetVal(storedEventFields("3"))

	var ids []int64
	for event, err := range s.ScanTracked(context.Background()) {
		require.NoError(t, err)
		ids = append(ids, event.ID)
	}

	assert.Equal(t, []int64{1, 3}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_ScanTrackedStopsEarly(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	mock.ExpectSScan("events:tracked", 0, "", scanBatch).SetVal([]string{"1", "3"}, 0)
	mock.ExpectHGetAll("event:1").SetVal(storedEventFields("1"))

	for event, err := range s.ScanTracked(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, int64(1), event.ID)
		break
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_ScanTrackedError(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	mock.ExpectSScan("events:tracked", 0, "", scanBatch).SetErr(errors.New("connection reset"))

	var errs []error
	for _, err := range s.ScanTracked(context.Background()) {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], status.ErrStoreScan)
	assert.Contains(t, errs[0].Error(), "connection reset")
}

func TestEventStore_ScanTrackedSkipsDuplicates(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	mock.ExpectSScan("events:tracked", 0, "", scanBatch).SetVal([]string{"1", "3"}, 4)
	mock.ExpectHGetAll("event:1").SetVal(storedEventFields("1"))
	mock.ExpectHGetAll("event:3").SetVal(storedEventFields("3"))
	mock.ExpectSScan("events:tracked", 4, "", scanBatch).SetVal([]string{"3", "1"}, 0)

	var ids []int64
	for event, err := range s.ScanTracked(context.Background()) {
		require.NoError(t, err)
		ids = append(ids, event.ID)
	}

	assert.Equal(t, []int64{1, 3}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_AppendPriceHistory(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	accurate := true
	history := &models.PriceHistory{
		EventID:  7,
		DateTime: time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC),
		ZonePrices: []models.ZonePrice{{
			ZoneID:           1,
			ZoneName:         "Floor",
			MinPrice:         decimal.RequireFromString("45.5"),
			AvgPrice:         decimal.NewNullDecimal(decimal.RequireFromString("52.25")),
			AvgPriceAccurate: &accurate,
			TotalTickets:     4,
			TotalListings:    2,
		}},
	}
	data, err := json.Marshal(history)
	require.NoError(t, err)

	mock.ExpectZAddNX("price_history:7", redis.Z{
		Score:  float64(history.DateTime.UnixMilli()),
		Member: string(data),
	}).SetVal(1)

	require.NoError(t, s.AppendPriceHistory(context.Background(), history))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_QueryPriceHistory(t *testing.T) {
	s, mock := setupTestEventStore()
	defer mock.ClearExpected()

	mock.ExpectZRange("price_history:7", 0, -1).SetVal([]string{
		`{"event_id":7,"date_time":"2024-03-01T20:00:00Z","zone_prices":[{"zone_id":1,"zone_name":"Floor","min_price":"45.5","avg_price":"52.25","max_ticket_quantity":null,"total_tickets":4,"total_listings":2}]}`,
		`{"event_id":7,"date_time":"2024-03-01T20:30:00Z","zone_prices":[]}`,
	})

	history, err := s.QueryPriceHistory(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.True(t, history[0].DateTime.Before(history[1].DateTime))
	zp := history[0].ZonePrices[0]
	assert.Equal(t, "Floor", zp.ZoneName)
	assert.True(t, decimal.RequireFromString("45.5").Equal(zp.MinPrice))
	assert.True(t, zp.AvgPrice.Valid)
	assert.Nil(t, zp.AvgPriceAccurate)
	assert.Nil(t, zp.MaxTicketQuantity)
	assert.Empty(t, history[1].ZonePrices)
	assert.NoError(t, mock.ExpectationsWereMet())
}
