package services

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"ticket-tracker/models"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	// ChartTimeLayout is the layout of chart x values.
	ChartTimeLayout = "2006-01-02T15:04:05.000Z07:00"

	textTimeLayout = "2006-01-02 15:04:05Z07:00"
)

// ChartSeries is the price history of one zone as drawn by the web client.
type ChartSeries struct {
	Zone string       `json:"zone"`
	Data []ChartPoint `json:"data"`
}

type ChartPoint struct {
	X                string   `json:"x"`
	Y                float64  `json:"y"`
	AvgPrice         *float64 `json:"avgPrice"`
	TotalTickets     int      `json:"totalTickets"`
	TotalListings    int      `json:"totalListings"`
	AvgPriceAccurate *bool    `json:"avgPriceAccurate,omitempty"`
}

// FormatPriceHistoryText renders one block per snapshot with its zones
// sorted by name.
func FormatPriceHistoryText(history []models.PriceHistory) string {
	var b strings.Builder
	for _, ph := range history {
		fmt.Fprintf(&b, "PriceHistory event_id=%d, date_time=%s, zone_prices=",
			ph.EventID, ph.DateTime.UTC().Format(textTimeLayout))

		zones := make([]models.ZonePrice, len(ph.ZonePrices))
		copy(zones, ph.ZonePrices)
		sort.SliceStable(zones, func(i, j int) bool { return zones[i].ZoneName < zones[j].ZoneName })

		for _, z := range zones {
			fmt.Fprintf(&b, "\n zone_id=%d, zone_name=%-10s min_price=%s, avg_price=%s, max_ticket_quantity=%2s, total_tickets=%3d, total_listings=%2d",
				z.ZoneID, z.ZoneName+",", z.MinPrice.StringFixed(2), avgText(z), maxQuantityText(z), z.TotalTickets, z.TotalListings)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func avgText(z models.ZonePrice) string {
	if !z.AvgPrice.Valid {
		return "None"
	}
	return z.AvgPrice.Decimal.StringFixed(3)
}

func maxQuantityText(z models.ZonePrice) string {
	if z.MaxTicketQuantity == nil {
		return "None"
	}
	return fmt.Sprint(*z.MaxTicketQuantity)
}

// FormatChart regroups snapshots by zone name. Series are sorted by zone and
// keep the snapshot order within a zone.
func FormatChart(history []models.PriceHistory) []ChartSeries {
	series := make([]ChartSeries, 0)
	byZone := make(map[string]int)

	for _, ph := range history {
		for _, z := range ph.ZonePrices {
			idx, ok := byZone[z.ZoneName]
			if !ok {
				idx = len(series)
				byZone[z.ZoneName] = idx
				series = append(series, ChartSeries{Zone: z.ZoneName})
			}
			series[idx].Data = append(series[idx].Data, chartPoint(ph.DateTime, z))
		}
	}

	sort.SliceStable(series, func(i, j int) bool { return series[i].Zone < series[j].Zone })
	return series
}

func chartPoint(at time.Time, z models.ZonePrice) ChartPoint {
	p := ChartPoint{
		X:                at.UTC().Format(ChartTimeLayout),
		Y:                z.MinPrice.Round(2).InexactFloat64(),
		TotalTickets:     z.TotalTickets,
		TotalListings:    z.TotalListings,
		AvgPriceAccurate: z.AvgPriceAccurate,
	}
	if z.AvgPrice.Valid {
		avg := z.AvgPrice.Decimal.Round(2).InexactFloat64()
		p.AvgPrice = &avg
	}
	return p
}

func EncodeChart(series []ChartSeries) ([]byte, error) {
	if series == nil {
		series = []ChartSeries{}
	}
	data, err := json.Marshal(series)
	if err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return data, nil
}

func GzipChart(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip chart: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip chart: %w", err)
	}
	return buf.Bytes(), nil
}
