package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"ticket-tracker/internal/services"
	"ticket-tracker/internal/status"
	"ticket-tracker/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// EventReader is the read side of services.TrackerService.
type EventReader interface {
	Events(ctx context.Context) ([]*models.Event, error)
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
	PriceHistoryFormatted(ctx context.Context, eventID int64, format string, storeChart bool) (string, error)
}

type EventHandler struct {
	tracker EventReader
}

func NewEventHandler(tracker EventReader) *EventHandler {
	return &EventHandler{tracker: tracker}
}

// eventView is the web client's representation of an event.
type eventView struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	DateTime            *time.Time `json:"dateTime"`
	EventStatus         string     `json:"eventStatus"`
	VenueName           string     `json:"venueName"`
	VenueCity           string     `json:"venueCity"`
	PrimaryPerformer    string     `json:"primaryPerformer"`
	LastScrapedDateTime *time.Time `json:"lastScrapedDateTime"`
	ScrapeStatus        string     `json:"scrapeStatus"`
}

func newEventView(e *models.Event) eventView {
	return eventView{
		ID:                  e.ID,
		Name:                e.Name,
		DateTime:            e.DateTime,
		EventStatus:         e.EventStatus,
		VenueName:           e.VenueName,
		VenueCity:           e.VenueCity,
		PrimaryPerformer:    e.PrimaryPerformer,
		LastScrapedDateTime: e.LastScrapedDateTime,
		ScrapeStatus:        string(e.ScrapeStatus),
	}
}

// SortByDate orders events by scheduled time. Events without one go last.
func SortByDate(events []*models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].DateTime, events[j].DateTime
		if a == nil || b == nil {
			return a != nil
		}
		return a.Before(*b)
	})
}

// GetEvents - Get all tracked events ordered by date
func (h *EventHandler) GetEvents(e *core.RequestEvent) error {
	events, err := h.tracker.Events(e.Request.Context())
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to get events", err)
	}
	SortByDate(events)

	views := make([]eventView, 0, len(events))
	for _, event := range events {
		views = append(views, newEventView(event))
	}
	return e.JSON(http.StatusOK, views)
}

// GetEvent - Get a single tracked event
func (h *EventHandler) GetEvent(e *core.RequestEvent) error {
	eventID, err := pathEventID(e)
	if err != nil {
		return err
	}

	event, err := h.tracker.GetEvent(e.Request.Context(), eventID)
	if err != nil {
		return lookupError("Failed to get event", err)
	}
	return e.JSON(http.StatusOK, newEventView(event))
}

// GetPriceHistory - Get the price history of an event as chart JSON or text
func (h *EventHandler) GetPriceHistory(e *core.RequestEvent) error {
	eventID, err := pathEventID(e)
	if err != nil {
		return err
	}

	format := e.Request.URL.Query().Get("format")
	if format == "" {
		format = services.FormatJSON
	}
	if format != services.FormatJSON && format != services.FormatText {
		return apis.NewBadRequestError("Unsupported format", nil)
	}

	out, err := h.tracker.PriceHistoryFormatted(e.Request.Context(), eventID, format, false)
	if err != nil {
		return lookupError("Failed to get price history", err)
	}

	if format == services.FormatText {
		return e.String(http.StatusOK, out)
	}
	return e.Blob(http.StatusOK, "application/json", []byte(out))
}

func pathEventID(e *core.RequestEvent) (int64, error) {
	eventID, err := strconv.ParseInt(e.Request.PathValue("eventId"), 10, 64)
	if err != nil {
		return 0, apis.NewBadRequestError("Invalid event id", err)
	}
	return eventID, nil
}

func lookupError(message string, err error) error {
	if errors.Is(err, status.ErrNotFound) {
		return apis.NewNotFoundError("Event not found", err)
	}
	return apis.NewApiError(http.StatusInternalServerError, message, err)
}
