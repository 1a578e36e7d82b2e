package ticketsource

import (
	"context"

	"ticket-tracker/models"
	"ticket-tracker/utils"
)

// Guarded runs every call of a source through a circuit breaker so a dead
// marketplace fails fast for the rest of a batch.
type Guarded struct {
	source  TicketSource
	breaker *utils.CircuitBreaker
}

func NewGuarded(source TicketSource, breaker *utils.CircuitBreaker) *Guarded {
	return &Guarded{source: source, breaker: breaker}
}

func (g *Guarded) Provider() Provider {
	return g.source.Provider()
}

func (g *Guarded) Unwrap() TicketSource {
	return g.source
}

func (g *Guarded) FetchEvent(ctx context.Context, eventID int64) (event *models.Event, err error) {
	err = g.breaker.Execute(func() error {
		event, err = g.source.FetchEvent(ctx, eventID)
		return err
	})
	return event, err
}

func (g *Guarded) SearchEvents(ctx context.Context, name, city, country string) (report string, err error) {
	err = g.breaker.Execute(func() error {
		report, err = g.source.SearchEvents(ctx, name, city, country)
		return err
	})
	return report, err
}

func (g *Guarded) ListZones(ctx context.Context, eventID int64) (zones []models.Zone, err error) {
	err = g.breaker.Execute(func() error {
		zones, err = g.source.ListZones(ctx, eventID)
		return err
	})
	return zones, err
}

func (g *Guarded) FetchZoneListings(ctx context.Context, eventID int64, zone models.Zone, minQuantity int) (listings *models.ZoneListings, err error) {
	err = g.breaker.Execute(func() error {
		listings, err = g.source.FetchZoneListings(ctx, eventID, zone, minQuantity)
		return err
	})
	return listings, err
}
