package models

import "github.com/shopspring/decimal"

// Zone is a seating category of an event as reported by a ticket source.
type Zone struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Listing is one sell offer in a zone.
type Listing struct {
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ZoneListings is the reply of a single zone price query. The reported
// totals can exceed what Listings holds when the source truncates results.
type ZoneListings struct {
	ZoneID        int64     `json:"zone_id"`
	ZoneName      string    `json:"zone_name"`
	Listings      []Listing `json:"listings"`
	TotalTickets  int       `json:"total_tickets"`
	TotalListings int       `json:"total_listings"`
}
