package ticketsource

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ticket-tracker/internal/services/ticketsource/ticketmaster"
	"ticket-tracker/internal/status"
	"ticket-tracker/models"
)

// TicketmasterAdapter wraps the discovery API client. Ticketmaster exposes
// no listing inventory, so the zone operations are unsupported.
type TicketmasterAdapter struct {
	client *ticketmaster.Client
}

func NewTicketmasterAdapter(config *ticketmaster.Config) *TicketmasterAdapter {
	return &TicketmasterAdapter{client: ticketmaster.New(config)}
}

func (t *TicketmasterAdapter) Provider() Provider {
	return ProviderTicketmaster
}

func (t *TicketmasterAdapter) String() string {
	return t.client.String()
}

func (t *TicketmasterAdapter) FetchEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	e, err := t.client.GetEvent(ctx, eventID)
	if errors.Is(err, ticketmaster.ErrNoEvent) {
		return nil, fmt.Errorf("ticketmaster event %d: %w", eventID, status.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	id := eventID
	if parsed, perr := strconv.ParseInt(e.ID, 10, 64); perr == nil {
		id = parsed
	}

	event := &models.Event{
		ID:          id,
		Name:        e.Name,
		EventStatus: ticketmasterStatus(e.Dates.Status.Code),
	}

	if raw := e.Dates.Start.DateTime; raw != "" {
		dt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("ticketmaster event %d: parse date %q: %w", eventID, raw, err)
		}
		dt = dt.UTC()
		event.DateTime = &dt
	}

	if len(e.Embedded.Venues) > 0 {
		event.VenueName = e.Embedded.Venues[0].Name
		event.VenueCity = e.Embedded.Venues[0].City.Name
	}

	performers := make([]string, 0, len(e.Embedded.Attractions))
	for _, a := range e.Embedded.Attractions {
		performers = append(performers, a.Name)
	}
	event.PrimaryPerformer = strings.Join(performers, ", ")

	return event, nil
}

// ticketmasterStatus maps a discovery status code onto an event status.
func ticketmasterStatus(code string) string {
	if code == "onsale" {
		return "Active"
	}
	return "Inactive"
}

func (t *TicketmasterAdapter) SearchEvents(ctx context.Context, name, city, country string) (string, error) {
	reply, err := t.client.SearchEvents(ctx, name, city, country)
	if err != nil {
		return "", err
	}

	rows := make([]searchRow, 0, len(reply.Embedded.Events))
	for _, e := range reply.Embedded.Events {
		row := searchRow{
			ID:   e.ID,
			Name: e.Name,
			Date: e.Dates.Start.DateTime,
		}
		if len(e.Embedded.Attractions) > 0 {
			row.Performer = e.Embedded.Attractions[0].Name
		}
		if len(e.Embedded.Venues) > 0 {
			row.Venue = e.Embedded.Venues[0].Name
			row.City = e.Embedded.Venues[0].City.Name
		}
		rows = append(rows, row)
	}

	return searchReport(reply.Page.TotalElements, rows), nil
}

func (t *TicketmasterAdapter) ListZones(ctx context.Context, eventID int64) ([]models.Zone, error) {
	return nil, fmt.Errorf("ticketmaster list zones: %w", status.ErrUnsupported)
}

func (t *TicketmasterAdapter) FetchZoneListings(ctx context.Context, eventID int64, zone models.Zone, minQuantity int) (*models.ZoneListings, error) {
	return nil, fmt.Errorf("ticketmaster zone listings: %w", status.ErrUnsupported)
}
