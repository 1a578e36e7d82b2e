package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceHistory is one snapshot of every zone's price summary for an event.
// Snapshots are append-only and ordered by DateTime.
type PriceHistory struct {
	EventID    int64       `json:"event_id"`
	DateTime   time.Time   `json:"date_time"`
	ZonePrices []ZonePrice `json:"zone_prices"`
}

type ZonePrice struct {
	ZoneID   int64           `json:"zone_id"`
	ZoneName string          `json:"zone_name"`
	MinPrice decimal.Decimal `json:"min_price"`
	// AvgPrice is null when no average was computed.
	AvgPrice decimal.NullDecimal `json:"avg_price"`
	// AvgPriceAccurate is false when the average only covers part of the
	// listings the source reported. Older snapshots may not carry it.
	AvgPriceAccurate  *bool `json:"avg_price_accurate,omitempty"`
	MaxTicketQuantity *int  `json:"max_ticket_quantity"`
	// TotalTickets and TotalListings count what was observed, not what the
	// source reported.
	TotalTickets  int `json:"total_tickets"`
	TotalListings int `json:"total_listings"`
}
