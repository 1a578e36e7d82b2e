package ticketsource

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ticket-tracker/internal/services/ticketsource/stubhub"
	"ticket-tracker/internal/status"
	"ticket-tracker/models"
)

// StubHubDateLayout is the layout of eventDateLocal.
const StubHubDateLayout = "2006-01-02T15:04:05-0700"

// StubHubAdapter wraps the StubHub client to conform to TicketSource
type StubHubAdapter struct {
	client *stubhub.Client
}

func NewStubHubAdapter(config *stubhub.Config) *StubHubAdapter {
	return &StubHubAdapter{client: stubhub.New(config)}
}

func (s *StubHubAdapter) Provider() Provider {
	return ProviderStubHub
}

func (s *StubHubAdapter) String() string {
	return s.client.String()
}

func (s *StubHubAdapter) FetchEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	reply, err := s.client.SearchEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if reply.NumFound == nil || *reply.NumFound == 0 || len(reply.Events) == 0 {
		return nil, fmt.Errorf("stubhub event %d: %w", eventID, status.ErrNotFound)
	}
	if *reply.NumFound != 1 {
		return nil, fmt.Errorf("search for stubhub event %d returned %d results: %w", eventID, *reply.NumFound, status.ErrAmbiguousResult)
	}

	return stubHubEvent(reply.Events[0])
}

func stubHubEvent(e stubhub.SearchEvent) (*models.Event, error) {
	event := &models.Event{
		ID:          e.ID,
		Name:        e.Description,
		EventStatus: e.Status,
		VenueName:   e.Venue.Name,
		VenueCity:   e.Venue.City,
	}
	if event.Name == "" {
		event.Name = e.Name
	}

	if e.EventDateLocal != "" {
		dt, err := time.Parse(StubHubDateLayout, e.EventDateLocal)
		if err != nil {
			return nil, fmt.Errorf("stubhub event %d: parse date %q: %w", e.ID, e.EventDateLocal, err)
		}
		dt = dt.UTC()
		event.DateTime = &dt
	}

	performers := make([]string, 0, len(e.Performers))
	for _, p := range e.Performers {
		performers = append(performers, p.Name)
	}
	event.PrimaryPerformer = strings.Join(performers, ", ")

	return event, nil
}

func (s *StubHubAdapter) SearchEvents(ctx context.Context, name, city, country string) (string, error) {
	reply, err := s.client.SearchEvents(ctx, name, city, country)
	if err != nil {
		return "", err
	}

	found := 0
	if reply.NumFound != nil {
		found = *reply.NumFound
	}

	rows := make([]searchRow, 0, len(reply.Events))
	for _, e := range reply.Events {
		row := searchRow{
			ID:    strconv.FormatInt(e.ID, 10),
			Name:  e.Name,
			Venue: e.Venue.Name,
			City:  e.Venue.City,
			Date:  e.EventDateLocal,
		}
		if len(e.Performers) > 0 {
			row.Performer = e.Performers[0].Name
		}
		rows = append(rows, row)
	}

	return searchReport(found, rows), nil
}

func (s *StubHubAdapter) ListZones(ctx context.Context, eventID int64) ([]models.Zone, error) {
	sectionZones, err := s.client.SectionZones(ctx, eventID)
	if err != nil {
		return nil, err
	}

	zones := make([]models.Zone, 0, len(sectionZones))
	for _, z := range sectionZones {
		zones = append(zones, models.Zone{ID: z.ID, Name: z.Name})
	}
	return zones, nil
}

func (s *StubHubAdapter) FetchZoneListings(ctx context.Context, eventID int64, zone models.Zone, minQuantity int) (*models.ZoneListings, error) {
	reply, err := s.client.FindListings(ctx, eventID, zone.ID, minQuantity)
	if err != nil {
		return nil, err
	}

	listings := make([]models.Listing, 0, len(reply.Listings))
	for _, l := range reply.Listings {
		listings = append(listings, models.Listing{
			Quantity:  l.Quantity,
			UnitPrice: l.PricePerProduct.Amount,
		})
	}

	return &models.ZoneListings{
		ZoneID:        zone.ID,
		ZoneName:      zone.Name,
		Listings:      listings,
		TotalTickets:  reply.TotalTickets,
		TotalListings: reply.TotalListings,
	}, nil
}
