package ticketsource

import (
	"context"
	"fmt"
	"strings"

	"ticket-tracker/models"
)

// Provider names a ticket marketplace.
type Provider string

const (
	ProviderStubHub      Provider = "stubhub"
	ProviderTicketmaster Provider = "ticketmaster"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderStubHub, ProviderTicketmaster:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported ticket source: %q", s)
	}
}

// TicketSource is the common interface of the marketplace adapters.
type TicketSource interface {
	// Provider returns the marketplace this source talks to
	Provider() Provider

	// FetchEvent returns the event metadata. It fails with status.ErrNotFound
	// when the marketplace has no such event.
	FetchEvent(ctx context.Context, eventID int64) (*models.Event, error)

	// SearchEvents returns a human readable report of matching events
	SearchEvents(ctx context.Context, name, city, country string) (string, error)

	// ListZones returns the zones of an event in marketplace order
	ListZones(ctx context.Context, eventID int64) ([]models.Zone, error)

	// FetchZoneListings returns the listings of one zone with at least
	// minQuantity tickets, plus the totals the marketplace reports.
	FetchZoneListings(ctx context.Context, eventID int64, zone models.Zone, minQuantity int) (*models.ZoneListings, error)
}

type searchRow struct {
	ID        string
	Name      string
	Performer string
	Venue     string
	City      string
	Date      string
}

func searchReport(found int, rows []searchRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Number of events found: %d\n", found)
	for _, r := range rows {
		fmt.Fprintf(&b, "ID: %s, Name: %s, Performer: %s, Venue: %s (%s), Date: %s\n",
			r.ID, r.Name, r.Performer, r.Venue, r.City, r.Date)
	}
	return b.String()
}
