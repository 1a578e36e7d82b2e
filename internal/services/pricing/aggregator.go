package pricing

import (
	"fmt"

	"ticket-tracker/internal/status"
	"ticket-tracker/models"

	"github.com/shopspring/decimal"
)

// AvgPlaces is the number of fractional digits kept for averages. Display
// rounding happens in the formatter.
const AvgPlaces = 8

// Aggregate summarises the listings of one zone. It returns
// status.ErrNoListingsObserved instead of dividing by zero tickets.
func Aggregate(zone *models.ZoneListings) (models.ZonePrice, error) {
	if zone == nil || len(zone.Listings) == 0 {
		return models.ZonePrice{}, noListings(zone)
	}

	minPrice := zone.Listings[0].UnitPrice
	maxQuantity := 0
	ticketsSeen := 0
	totalPrice := decimal.Zero

	for _, listing := range zone.Listings {
		ticketsSeen += listing.Quantity
		if listing.Quantity > maxQuantity {
			maxQuantity = listing.Quantity
		}
		if listing.UnitPrice.LessThan(minPrice) {
			minPrice = listing.UnitPrice
		}
		totalPrice = totalPrice.Add(listing.UnitPrice.Mul(decimal.NewFromInt(int64(listing.Quantity))))
	}

	if ticketsSeen <= 0 {
		return models.ZonePrice{}, noListings(zone)
	}

	avg := totalPrice.DivRound(decimal.NewFromInt(int64(ticketsSeen)), AvgPlaces)
	accurate := ticketsSeen == zone.TotalTickets

	return models.ZonePrice{
		ZoneID:            zone.ZoneID,
		ZoneName:          zone.ZoneName,
		MinPrice:          minPrice,
		AvgPrice:          decimal.NewNullDecimal(avg),
		AvgPriceAccurate:  &accurate,
		MaxTicketQuantity: &maxQuantity,
		TotalTickets:      ticketsSeen,
		TotalListings:     len(zone.Listings),
	}, nil
}

func noListings(zone *models.ZoneListings) error {
	if zone == nil {
		return status.ErrNoListingsObserved
	}
	return fmt.Errorf("zone %q (%d): %w", zone.ZoneName, zone.ZoneID, status.ErrNoListingsObserved)
}
