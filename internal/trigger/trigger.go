package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"ticket-tracker/internal/services"
)

const (
	ActionScrape           = "scrape"
	ActionDumpPriceHistory = "dump_price_history"
)

var (
	ErrUnknownAction = errors.New("trigger: unknown action")
	ErrEmptyPayload  = errors.New("trigger: empty payload")
)

// Tracker is the part of services.TrackerService a trigger drives.
type Tracker interface {
	Scrape(ctx context.Context, target services.ScrapeTarget) (*services.ScrapeResult, error)
	NotifyNewPriceHistory(ctx context.Context, topic string, eventIDs []int64) error
	PriceHistoryFormatted(ctx context.Context, eventID int64, format string, storeChart bool) (string, error)
}

// Request is a single trigger action.
type Request struct {
	Action   string  `json:"action"`
	EventID  *int64  `json:"event_id,omitempty"`
	EventIDs []int64 `json:"event_ids,omitempty"`
}

// envelope is either a bare Request or a batch of records, each an object
// or a JSON encoded string.
type envelope struct {
	Records []json.RawMessage `json:"records"`
	Request
}

type Handler struct {
	tracker     Tracker
	notifyTopic string
}

// NewHandler returns a handler that publishes scraped event ids to
// notifyTopic after a scrape. An empty topic disables notifications.
func NewHandler(tracker Tracker, notifyTopic string) *Handler {
	return &Handler{tracker: tracker, notifyTopic: notifyTopic}
}

// HandlePayload decodes a raw trigger payload and runs every action in it.
// Batched records are all attempted; their errors are joined.
func (h *Handler) HandlePayload(ctx context.Context, payload []byte) error {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode trigger payload: %w", err)
	}
	if env.Records == nil {
		return h.Handle(ctx, env.Request)
	}

	var errs []error
	for i, record := range env.Records {
		body, err := recordBody(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		if err := h.HandlePayload(ctx, body); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func recordBody(record json.RawMessage) ([]byte, error) {
	record = bytes.TrimSpace(record)
	if len(record) > 0 && record[0] == '"' {
		var s string
		if err := json.Unmarshal(record, &s); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		return []byte(s), nil
	}
	return record, nil
}

func (h *Handler) Handle(ctx context.Context, req Request) error {
	slog.Info("handling trigger action", "action", req.Action)

	switch req.Action {
	case ActionScrape:
		return h.scrape(ctx, req)
	case ActionDumpPriceHistory:
		return h.dumpPriceHistory(ctx, req.EventIDs)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

func (h *Handler) scrape(ctx context.Context, req Request) error {
	target := services.AllEvents()
	if req.EventID != nil {
		target = services.SingleEvent(*req.EventID)
	}

	result, err := h.tracker.Scrape(ctx, target)
	if err != nil {
		return err
	}

	if h.notifyTopic == "" {
		return nil
	}
	return h.tracker.NotifyNewPriceHistory(ctx, h.notifyTopic, result.Scraped)
}

func (h *Handler) dumpPriceHistory(ctx context.Context, eventIDs []int64) error {
	var errs []error
	for _, id := range eventIDs {
		if _, err := h.tracker.PriceHistoryFormatted(ctx, id, services.FormatJSON, true); err != nil {
			slog.Error("failed to dump price history", "eventID", id, "error", err)
			errs = append(errs, fmt.Errorf("event %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
