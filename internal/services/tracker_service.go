package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"ticket-tracker/config"
	"ticket-tracker/internal/clock"
	"ticket-tracker/internal/services/lifecycle"
	"ticket-tracker/internal/services/notify"
	"ticket-tracker/internal/services/pricing"
	"ticket-tracker/internal/services/ticketsource"
	"ticket-tracker/internal/status"
	"ticket-tracker/internal/store"
	"ticket-tracker/models"
	"ticket-tracker/monitoring"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase/tools/types"
)

// EventStore persists tracked events and their price history.
type EventStore interface {
	Exists(ctx context.Context, eventID int64) (bool, error)
	Get(ctx context.Context, eventID int64) (*models.Event, error)
	Put(ctx context.Context, event *models.Event) error
	Create(ctx context.Context, eventID int64) (bool, error)
	UpdateScrapeState(ctx context.Context, eventID int64, scrapeStatus models.ScrapeStatus, lastScraped time.Time) error
	ScanTracked(ctx context.Context) iter.Seq2[*models.Event, error]
	AppendPriceHistory(ctx context.Context, history *models.PriceHistory) error
	QueryPriceHistory(ctx context.Context, eventID int64) ([]models.PriceHistory, error)
}

type ArtifactStore interface {
	Put(ctx context.Context, bucket, key string, body []byte, contentType, contentEncoding string) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, n notify.Notification) error
}

type RunRecorder interface {
	Record(ctx context.Context, run *store.ScrapeRun) error
}

type OutcomeKind string

const (
	OutcomeScraped  OutcomeKind = "scraped"
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeRetired  OutcomeKind = "retired"
	OutcomeFailed   OutcomeKind = "failed"
	OutcomeNotFound OutcomeKind = "not_found"
)

// Outcome is what happened to one event during a scrape.
type Outcome struct {
	EventID int64
	Kind    OutcomeKind
	Reason  string
	Err     error
}

type ScrapeResult struct {
	RunID    string
	Scraped  []int64
	Outcomes []Outcome
}

func (r *ScrapeResult) count(kind OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

func (r *ScrapeResult) Failed() int {
	return r.count(OutcomeFailed)
}

// ScrapeTarget selects one event or every tracked event.
type ScrapeTarget struct {
	EventID int64
	All     bool
}

func AllEvents() ScrapeTarget {
	return ScrapeTarget{All: true}
}

func SingleEvent(eventID int64) ScrapeTarget {
	return ScrapeTarget{EventID: eventID}
}

func (t ScrapeTarget) mode() string {
	if t.All {
		return "all"
	}
	return "single"
}

type TrackerOption func(*TrackerService)

func WithClock(c clock.Clock) TrackerOption {
	return func(s *TrackerService) { s.clock = c }
}

func WithPublisher(p Publisher) TrackerOption {
	return func(s *TrackerService) { s.publisher = p }
}

func WithArtifactStore(a ArtifactStore) TrackerOption {
	return func(s *TrackerService) { s.artifacts = a }
}

func WithRunRecorder(r RunRecorder) TrackerOption {
	return func(s *TrackerService) { s.runs = r }
}

func WithMonitor(m *monitoring.Monitor) TrackerOption {
	return func(s *TrackerService) { s.monitor = m }
}

// WithListingSource sets where zone listings come from. Without it the
// metadata source serves listings too.
func WithListingSource(src ticketsource.TicketSource) TrackerOption {
	return func(s *TrackerService) { s.listings = src }
}

// TrackerService tracks events from a metadata source and scrapes their
// zone prices from a listing source.
type TrackerService struct {
	source    ticketsource.TicketSource
	listings  ticketsource.TicketSource
	events    EventStore
	lifecycle *lifecycle.Lifecycle
	clock     clock.Clock
	publisher Publisher
	artifacts ArtifactStore
	runs      RunRecorder
	monitor   *monitoring.Monitor

	minQuantity              int
	persistMaxTicketQuantity bool
	artifactBucket           string
	artifactKeyPrefix        string
}

func NewTrackerService(source ticketsource.TicketSource, events EventStore, cfg *config.Config, opts ...TrackerOption) *TrackerService {
	s := &TrackerService{
		source:                   source,
		events:                   events,
		lifecycle:                lifecycle.New(cfg.GraceWindow),
		clock:                    clock.NewSystem(),
		monitor:                  monitoring.NewMonitor(nil),
		minQuantity:              1,
		persistMaxTicketQuantity: cfg.PersistMaxTicketQuantity,
		artifactBucket:           cfg.ArtifactBucket,
		artifactKeyPrefix:        cfg.ArtifactKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.listings == nil {
		s.listings = source
	}
	return s
}

func (s *TrackerService) Source() ticketsource.TicketSource {
	return s.source
}

// GetEvent returns a tracked event or status.ErrNotFound.
func (s *TrackerService) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	return s.events.Get(ctx, eventID)
}

// Events returns every tracked event.
func (s *TrackerService) Events(ctx context.Context) ([]*models.Event, error) {
	var events []*models.Event
	for event, err := range s.events.ScanTracked(ctx) {
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *TrackerService) PriceHistory(ctx context.Context, eventID int64) ([]models.PriceHistory, error) {
	return s.events.QueryPriceHistory(ctx, eventID)
}

// Track starts tracking an event and refreshes it from the source.
func (s *TrackerService) Track(ctx context.Context, eventID int64) (*models.Event, error) {
	created, err := s.events.Create(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if created {
		slog.Info("tracking event", "eventID", eventID)
	} else {
		slog.Info("event already tracked", "eventID", eventID)
	}
	return s.UpdateEvent(ctx, eventID)
}

// UpdateEvent refreshes a tracked event from the source and derives its
// scrape status. The event must already be tracked.
func (s *TrackerService) UpdateEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	if err := s.requireTracked(ctx, eventID); err != nil {
		return nil, err
	}

	fromSource, err := s.source.FetchEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("fetch event %d: %w", eventID, err)
	}
	if fromSource.ID != eventID {
		return nil, fmt.Errorf("requested event %d but source returned event %d: %w", eventID, fromSource.ID, status.ErrAmbiguousResult)
	}
	slog.Debug("retrieved event from source", "eventID", eventID, "event", fromSource.String())

	event := lifecycle.Refresh(fromSource, s.clock.Now())
	if err := s.events.Put(ctx, event); err != nil {
		return nil, err
	}

	slog.Info("updated event", "eventID", eventID, "eventStatus", event.EventStatus, "scrapeStatus", event.ScrapeStatus)
	return event, nil
}

// UpdateEventManual writes operator supplied fields verbatim. The event
// must already be tracked.
func (s *TrackerService) UpdateEventManual(ctx context.Context, update lifecycle.ManualUpdate) (*models.Event, error) {
	if !update.ScrapeStatus.Valid() {
		return nil, fmt.Errorf("invalid scrape status %q", update.ScrapeStatus)
	}

	current, err := s.events.Get(ctx, update.EventID)
	if err != nil {
		return nil, fmt.Errorf("cannot update event %d: %w", update.EventID, err)
	}

	event := update.Apply(current)
	if err := s.events.Put(ctx, event); err != nil {
		return nil, err
	}

	slog.Info("manually updated event", "eventID", event.ID, "scrapeStatus", event.ScrapeStatus)
	return event, nil
}

func (s *TrackerService) requireTracked(ctx context.Context, eventID int64) error {
	exists, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("cannot update event %d, track it first: %w", eventID, status.ErrNotFound)
	}
	return nil
}

// Scrape scrapes the target and records the run. In all mode a failing
// event is logged and the batch goes on, but a failure to enumerate the
// tracked set ends the run with an error. In single mode a missing event is
// a logged outcome and any other failure is returned.
func (s *TrackerService) Scrape(ctx context.Context, target ScrapeTarget) (*ScrapeResult, error) {
	started := s.clock.Now()
	result := &ScrapeResult{RunID: uuid.NewString()}

	var err error
	if target.All {
		err = s.scrapeAll(ctx, result)
	} else {
		err = s.scrapeSingle(ctx, target.EventID, result)
	}

	s.recordRun(ctx, target, started, result, err)
	return result, err
}

func (s *TrackerService) scrapeAll(ctx context.Context, result *ScrapeResult) error {
	for event, err := range s.events.ScanTracked(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, status.ErrStoreScan) {
				return err
			}
			slog.Error("failed to load tracked event", "error", err)
			result.add(Outcome{Kind: OutcomeFailed, Err: err}, s.monitor)
			continue
		}

		outcome := s.scrapeEvent(ctx, event)
		result.add(outcome, s.monitor)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (s *TrackerService) scrapeSingle(ctx context.Context, eventID int64, result *ScrapeResult) error {
	event, err := s.events.Get(ctx, eventID)
	if errors.Is(err, status.ErrNotFound) {
		slog.Warn("no such event, track it first", "eventID", eventID)
		result.add(Outcome{EventID: eventID, Kind: OutcomeNotFound}, s.monitor)
		return nil
	}
	if err != nil {
		return err
	}

	outcome := s.scrapeEvent(ctx, event)
	result.add(outcome, s.monitor)
	return outcome.Err
}

func (r *ScrapeResult) add(o Outcome, m *monitoring.Monitor) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Kind == OutcomeScraped {
		r.Scraped = append(r.Scraped, o.EventID)
	}
	m.TrackEventOutcome(string(o.Kind))
}

// scrapeEvent runs the per-event procedure. The snapshot is written whole
// or not at all.
func (s *TrackerService) scrapeEvent(ctx context.Context, event *models.Event) Outcome {
	log := slog.With("eventID", event.ID)
	log.Info("scraping event", "name", event.Name)

	now := s.clock.Now()
	decision := s.lifecycle.Check(event, now)
	if !decision.Scrape {
		if !decision.Retire {
			log.Info("skipping event", "reason", decision.Reason, "scrapeStatus", event.ScrapeStatus)
			return Outcome{EventID: event.ID, Kind: OutcomeSkipped, Reason: string(decision.Reason)}
		}

		log.Info("retiring expired event", "scheduled", event.DateTime)
		if err := s.events.UpdateScrapeState(ctx, event.ID, models.ScrapeStatusInactive, now); err != nil {
			log.Error("failed to retire event", "error", err)
			return Outcome{EventID: event.ID, Kind: OutcomeFailed, Err: err}
		}
		return Outcome{EventID: event.ID, Kind: OutcomeRetired, Reason: string(decision.Reason)}
	}

	zones, err := s.ListingsByZone(ctx, event.ID)
	if err != nil {
		log.Error("failed to fetch listings", "error", err)
		return Outcome{EventID: event.ID, Kind: OutcomeFailed, Err: err}
	}

	history := &models.PriceHistory{
		EventID:    event.ID,
		DateTime:   now,
		ZonePrices: make([]models.ZonePrice, 0, len(zones)),
	}
	for _, zl := range zones {
		zp, err := pricing.Aggregate(zl)
		if errors.Is(err, status.ErrNoListingsObserved) {
			log.Info("omitting zone without listings", "zone", zl.ZoneName)
			continue
		}
		if err != nil {
			return Outcome{EventID: event.ID, Kind: OutcomeFailed, Err: err}
		}
		if !s.persistMaxTicketQuantity {
			zp.MaxTicketQuantity = nil
		}
		history.ZonePrices = append(history.ZonePrices, zp)
	}

	if err := s.events.AppendPriceHistory(ctx, history); err != nil {
		log.Error("failed to append price history", "error", err)
		return Outcome{EventID: event.ID, Kind: OutcomeFailed, Err: err}
	}
	if err := s.events.UpdateScrapeState(ctx, event.ID, event.ScrapeStatus, now); err != nil {
		log.Error("failed to update last scraped time", "error", err)
		return Outcome{EventID: event.ID, Kind: OutcomeFailed, Err: err}
	}

	log.Info("scraped event", "zones", len(history.ZonePrices))
	return Outcome{EventID: event.ID, Kind: OutcomeScraped}
}

// ListingsByZone fetches the raw listings of every zone of an event, one
// zone at a time. The first failing zone aborts the whole fetch.
func (s *TrackerService) ListingsByZone(ctx context.Context, eventID int64) ([]*models.ZoneListings, error) {
	zones, err := s.listings.ListZones(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list zones of event %d: %w", eventID, err)
	}

	listings := make([]*models.ZoneListings, 0, len(zones))
	for _, zone := range zones {
		start := time.Now()
		zl, err := s.listings.FetchZoneListings(ctx, eventID, zone, s.minQuantity)
		s.monitor.TrackZoneFetch(string(s.listings.Provider()), time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("fetch listings of zone %q (%d) for event %d: %w", zone.Name, zone.ID, eventID, err)
		}
		listings = append(listings, zl)
	}
	return listings, nil
}

func (s *TrackerService) recordRun(ctx context.Context, target ScrapeTarget, started time.Time, result *ScrapeResult, runErr error) {
	finished := s.clock.Now()
	s.monitor.TrackScrapeRun(target.mode(), finished.Sub(started))

	slog.Info("scrape finished",
		"runID", result.RunID,
		"mode", target.mode(),
		"scraped", len(result.Scraped),
		"failed", result.Failed(),
	)

	if s.runs == nil {
		return
	}

	run := &store.ScrapeRun{
		ID:       result.RunID,
		Mode:     target.mode(),
		EventID:  target.EventID,
		Scraped:  len(result.Scraped),
		Skipped:  result.count(OutcomeSkipped),
		Retired:  result.count(OutcomeRetired),
		Failed:   result.Failed(),
		NotFound: result.count(OutcomeNotFound),
	}
	run.StartedAt, _ = types.ParseDateTime(started)
	run.FinishedAt, _ = types.ParseDateTime(finished)
	if runErr != nil {
		run.Error = runErr.Error()
	}

	// run log failures are logged only
	if err := s.runs.Record(context.WithoutCancel(ctx), run); err != nil {
		slog.Error("failed to record scrape run", "runID", run.ID, "error", err)
	}
}

// NotifyNewPriceHistory publishes the ids of events with new price history.
// Nothing is sent for an empty list.
func (s *TrackerService) NotifyNewPriceHistory(ctx context.Context, topic string, eventIDs []int64) error {
	if len(eventIDs) == 0 {
		return nil
	}
	if s.publisher == nil {
		return errors.New("notifications are not configured")
	}

	if err := s.publisher.Publish(ctx, topic, notify.NewPriceHistoryNotification(eventIDs)); err != nil {
		s.monitor.TrackNotification("error")
		return err
	}
	s.monitor.TrackNotification("sent")
	slog.Info("published price history notification", "topic", topic, "eventIDs", eventIDs)
	return nil
}

// PriceHistoryFormatted renders the price history of an event as text or
// chart JSON. With store set, the chart is also saved gzipped as
// <prefix>/<id>.js; a failed save is logged only.
func (s *TrackerService) PriceHistoryFormatted(ctx context.Context, eventID int64, format string, storeChart bool) (string, error) {
	history, err := s.events.QueryPriceHistory(ctx, eventID)
	if err != nil {
		return "", err
	}

	switch format {
	case FormatText:
		return FormatPriceHistoryText(history), nil

	case FormatJSON:
		data, err := EncodeChart(FormatChart(history))
		if err != nil {
			return "", err
		}
		if storeChart {
			s.storeChart(ctx, eventID, data)
		}
		return string(data), nil

	default:
		return "", fmt.Errorf("unsupported price history format %q", format)
	}
}

// ChartKey is the artifact key of an event's chart.
func (s *TrackerService) ChartKey(eventID int64) string {
	return fmt.Sprintf("%s/%d.js", s.artifactKeyPrefix, eventID)
}

func (s *TrackerService) storeChart(ctx context.Context, eventID int64, data []byte) {
	if s.artifacts == nil {
		slog.Warn("no artifact store configured, chart not saved", "eventID", eventID)
		return
	}

	body, err := GzipChart(data)
	if err != nil {
		slog.Error("failed to compress chart", "eventID", eventID, "error", err)
		return
	}

	key := s.ChartKey(eventID)
	if err := s.artifacts.Put(ctx, s.artifactBucket, key, body, "application/javascript", "gzip"); err != nil {
		slog.Error("failed to save chart", "eventID", eventID, "key", key, "error", err)
		return
	}
	slog.Info("saved price history chart", "eventID", eventID, "key", key)
}
