package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"time"

	"ticket-tracker/internal/status"
	"ticket-tracker/models"

	"github.com/redis/go-redis/v9"
)

const (
	trackedKey = "events:tracked"

	// scanBatch is the COUNT hint of every SSCAN round trip.
	scanBatch = 100

	timeLayout = time.RFC3339Nano
)

func eventKey(eventID int64) string {
	return fmt.Sprintf("event:%d", eventID)
}

func historyKey(eventID int64) string {
	return fmt.Sprintf("price_history:%d", eventID)
}

// createEventScript adds a bare event unless one exists already.
const createEventScript = `
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'id', ARGV[1])
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`

// updateScrapeStateScript touches the scrape fields of an existing event only.
const updateScrapeStateScript = `
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'scrape_status', ARGV[1], 'last_scraped_date_time', ARGV[2])
return 1
`

// EventStore keeps tracked events as hashes and their price history as
// sorted sets scored by snapshot time in unix milliseconds.
type EventStore struct {
	rdb redis.Cmdable
}

func NewEventStore(rdb redis.Cmdable) *EventStore {
	return &EventStore{rdb: rdb}
}

func (s *EventStore) Exists(ctx context.Context, eventID int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, eventKey(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("exists event %d: %w", eventID, err)
	}
	return n == 1, nil
}

// Get returns the event or status.ErrNotFound.
func (s *EventStore) Get(ctx context.Context, eventID int64) (*models.Event, error) {
	fields, err := s.rdb.HGetAll(ctx, eventKey(eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", eventID, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("event %d: %w", eventID, status.ErrNotFound)
	}

	event, err := decodeEvent(fields)
	if err != nil {
		return nil, fmt.Errorf("decode event %d: %w", eventID, err)
	}
	return event, nil
}

// Put writes every field of the event and marks it tracked.
func (s *EventStore) Put(ctx context.Context, event *models.Event) error {
	key := eventKey(event.ID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, encodeEvent(event)...)
		pipe.SAdd(ctx, trackedKey, event.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put event %d: %w", event.ID, err)
	}
	return nil
}

// Create adds a bare event holding only its id. It reports false when the
// event existed already.
func (s *EventStore) Create(ctx context.Context, eventID int64) (bool, error) {
	id := strconv.FormatInt(eventID, 10)
	created, err := s.rdb.Eval(ctx, createEventScript, []string{eventKey(eventID), trackedKey}, id).Int64()
	if err != nil {
		return false, fmt.Errorf("create event %d: %w", eventID, err)
	}
	return created == 1, nil
}

// UpdateScrapeState sets the scrape status and last scraped time of an
// existing event. It fails with status.ErrNotFound otherwise.
func (s *EventStore) UpdateScrapeState(ctx context.Context, eventID int64, scrapeStatus models.ScrapeStatus, lastScraped time.Time) error {
	updated, err := s.rdb.Eval(ctx, updateScrapeStateScript, []string{eventKey(eventID)},
		string(scrapeStatus), lastScraped.UTC().Format(timeLayout)).Int64()
	if err != nil {
		return fmt.Errorf("update scrape state of event %d: %w", eventID, err)
	}
	if updated == 0 {
		return fmt.Errorf("event %d: %w", eventID, status.ErrNotFound)
	}
	return nil
}

// ScanTracked iterates the tracked events lazily, one SSCAN page at a time.
// Ids whose hash has gone are skipped and each id is yielded at most once.
// A failed SSCAN yields an error matching status.ErrStoreScan and ends the
// iteration; per-event load errors are yielded and iteration continues.
func (s *EventStore) ScanTracked(ctx context.Context) iter.Seq2[*models.Event, error] {
	return func(yield func(*models.Event, error) bool) {
		var cursor uint64
		seen := make(map[string]struct{})
		for {
			ids, next, err := s.rdb.SScan(ctx, trackedKey, cursor, "", scanBatch).Result()
			if err != nil {
				yield(nil, fmt.Errorf("%w: %w", status.ErrStoreScan, err))
				return
			}

			for _, raw := range ids {
				// SSCAN can return a member more than once.
				if _, dup := seen[raw]; dup {
					continue
				}
				seen[raw] = struct{}{}

				eventID, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					if !yield(nil, fmt.Errorf("tracked event id %q: %w", raw, err)) {
						return
					}
					continue
				}

				event, err := s.Get(ctx, eventID)
				if errors.Is(err, status.ErrNotFound) {
					continue
				}
				if !yield(event, err) {
					return
				}
			}

			cursor = next
			if cursor == 0 {
				return
			}
		}
	}
}

// AppendPriceHistory adds one snapshot. The write is a single ZADD NX, so a
// snapshot is stored whole or not at all and never overwritten.
func (s *EventStore) AppendPriceHistory(ctx context.Context, history *models.PriceHistory) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode price history of event %d: %w", history.EventID, err)
	}

	err = s.rdb.ZAddNX(ctx, historyKey(history.EventID), redis.Z{
		Score:  float64(history.DateTime.UnixMilli()),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("append price history of event %d: %w", history.EventID, err)
	}
	return nil
}

// QueryPriceHistory returns every snapshot of the event, oldest first.
func (s *EventStore) QueryPriceHistory(ctx context.Context, eventID int64) ([]models.PriceHistory, error) {
	members, err := s.rdb.ZRange(ctx, historyKey(eventID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("query price history of event %d: %w", eventID, err)
	}

	history := make([]models.PriceHistory, 0, len(members))
	for _, m := range members {
		var ph models.PriceHistory
		if err := json.Unmarshal([]byte(m), &ph); err != nil {
			return nil, fmt.Errorf("decode price history of event %d: %w", eventID, err)
		}
		history = append(history, ph)
	}
	return history, nil
}

// encodeEvent flattens an event into HSET arguments in a fixed field order.
// Unset times are stored as empty strings.
func encodeEvent(e *models.Event) []any {
	return []any{
		"id", strconv.FormatInt(e.ID, 10),
		"name", e.Name,
		"date_time", formatOptionalTime(e.DateTime),
		"event_status", e.EventStatus,
		"venue_name", e.VenueName,
		"venue_city", e.VenueCity,
		"primary_performer", e.PrimaryPerformer,
		"last_scraped_date_time", formatOptionalTime(e.LastScrapedDateTime),
		"scrape_status", string(e.ScrapeStatus),
	}
}

func decodeEvent(fields map[string]string) (*models.Event, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	dateTime, err := parseOptionalTime(fields["date_time"])
	if err != nil {
		return nil, fmt.Errorf("date_time: %w", err)
	}
	lastScraped, err := parseOptionalTime(fields["last_scraped_date_time"])
	if err != nil {
		return nil, fmt.Errorf("last_scraped_date_time: %w", err)
	}

	return &models.Event{
		ID:                  id,
		Name:                fields["name"],
		DateTime:            dateTime,
		EventStatus:         fields["event_status"],
		VenueName:           fields["venue_name"],
		VenueCity:           fields["venue_city"],
		PrimaryPerformer:    fields["primary_performer"],
		LastScrapedDateTime: lastScraped,
		ScrapeStatus:        models.ScrapeStatus(fields["scrape_status"]),
	}, nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
