package models

import (
	"fmt"
	"time"
)

type ScrapeStatus string

const (
	ScrapeStatusActive   ScrapeStatus = "Active"
	ScrapeStatusInactive ScrapeStatus = "Inactive"
)

// Valid reports whether s is one of the statuses an operator may set.
func (s ScrapeStatus) Valid() bool {
	return s == ScrapeStatusActive || s == ScrapeStatusInactive
}

type Event struct {
	ID                  int64        `json:"id"`
	Name                string       `json:"name"`
	DateTime            *time.Time   `json:"date_time,omitempty"`
	EventStatus         string       `json:"event_status"`
	VenueName           string       `json:"venue_name"`
	VenueCity           string       `json:"venue_city"`
	PrimaryPerformer    string       `json:"primary_performer"`
	LastScrapedDateTime *time.Time   `json:"last_scraped_date_time,omitempty"`
	ScrapeStatus        ScrapeStatus `json:"scrape_status"`
}

func (e *Event) String() string {
	return fmt.Sprintf("Event id=%d, name=%s, date_time=%s, event_status=%s, venue_name=%s, venue_city=%s, primary_performer=%s, last_scraped_date_time=%s, scrape_status=%s",
		e.ID, e.Name, formatTime(e.DateTime), e.EventStatus, e.VenueName, e.VenueCity, e.PrimaryPerformer, formatTime(e.LastScrapedDateTime), e.ScrapeStatus)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "None"
	}
	return t.UTC().Format(time.RFC3339)
}
