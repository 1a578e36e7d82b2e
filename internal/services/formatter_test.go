package services

import (
	"testing"
	"time"

	"ticket-tracker/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPriceHistoryText(t *testing.T) {
	maxQuantity := 3
	history := []models.PriceHistory{{
		EventID:  7,
		DateTime: time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC),
		ZonePrices: []models.ZonePrice{
			{ZoneID: 2, ZoneName: "Balcony", MinPrice: decimal.RequireFromString("5.5"), MaxTicketQuantity: &maxQuantity, TotalTickets: 12, TotalListings: 10},
			{ZoneID: 1, ZoneName: "A", MinPrice: decimal.RequireFromString("10"), AvgPrice: decimal.NewNullDecimal(decimal.RequireFromString("12")), TotalTickets: 4, TotalListings: 2},
		},
	}}

	expected := "PriceHistory event_id=7, date_time=2024-03-01 22:00:00Z, zone_prices=" +
		"\n zone_id=1, zone_name=A,         min_price=10.00, avg_price=12.000, max_ticket_quantity=None, total_tickets=  4, total_listings= 2" +
		"\n zone_id=2, zone_name=Balcony,   min_price=5.50, avg_price=None, max_ticket_quantity= 3, total_tickets= 12, total_listings=10" +
		"\n"

	assert.Equal(t, expected, FormatPriceHistoryText(history))
}

func TestFormatPriceHistoryText_Empty(t *testing.T) {
	assert.Equal(t, "", FormatPriceHistoryText(nil))
}

func TestFormatChart(t *testing.T) {
	first := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	second := first.Add(30 * time.Minute)
	accurate := true

	history := []models.PriceHistory{
		{EventID: 1, DateTime: first, ZonePrices: []models.ZonePrice{
			{ZoneName: "B", MinPrice: decimal.RequireFromString("20.005"), AvgPrice: decimal.NewNullDecimal(decimal.RequireFromString("25.4449")), TotalTickets: 3, TotalListings: 1},
			{ZoneName: "A", MinPrice: decimal.RequireFromString("10"), TotalTickets: 2, TotalListings: 2},
		}},
		{EventID: 1, DateTime: second, ZonePrices: []models.ZonePrice{
			{ZoneName: "A", MinPrice: decimal.RequireFromString("9.5"), AvgPrice: decimal.NewNullDecimal(decimal.RequireFromString("11")), AvgPriceAccurate: &accurate, TotalTickets: 5, TotalListings: 3},
		}},
	}

	series := FormatChart(history)

	require.Len(t, series, 2)
	assert.Equal(t, "A", series[0].Zone)
	assert.Equal(t, "B", series[1].Zone)

	require.Len(t, series[0].Data, 2)
	assert.Equal(t, "2024-03-01T22:00:00.000Z", series[0].Data[0].X)
	assert.Nil(t, series[0].Data[0].AvgPrice)
	assert.Equal(t, "2024-03-01T22:30:00.000Z", series[0].Data[1].X)
	assert.Equal(t, 9.5, series[0].Data[1].Y)
	assert.Equal(t, true, *series[0].Data[1].AvgPriceAccurate)

	b := series[1].Data[0]
	assert.Equal(t, 20.01, b.Y)
	assert.Equal(t, 25.44, *b.AvgPrice)
	assert.Nil(t, b.AvgPriceAccurate)
}

func TestEncodeChart(t *testing.T) {
	data, err := EncodeChart(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	avg := 12.5
	data, err = EncodeChart([]ChartSeries{{Zone: "A", Data: []ChartPoint{{X: "2024-03-01T22:00:00.000Z", Y: 10, AvgPrice: &avg, TotalTickets: 2, TotalListings: 1}}}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"zone":"A","data":[{"x":"2024-03-01T22:00:00.000Z","y":10,"avgPrice":12.5,"totalTickets":2,"totalListings":1}]}]`, string(data))

	data, err = EncodeChart([]ChartSeries{{Zone: "A", Data: []ChartPoint{{X: "x"}}}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"avgPrice":null`)
}

func TestGzipChart(t *testing.T) {
	body, err := GzipChart([]byte(`[{"zone":"A"}]`))
	require.NoError(t, err)
	assert.Equal(t, `[{"zone":"A"}]`, gunzip(t, body))
}
