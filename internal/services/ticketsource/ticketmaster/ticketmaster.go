package ticketmaster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ticket-tracker/internal/status"

	"github.com/go-resty/resty/v2"
)

const sourceName = "Ticketmaster"

// ErrNoEvent is returned when the discovery API answers 404 for an event.
var ErrNoEvent = errors.New("ticketmaster: event not found")

type (
	Config struct {
		BaseURL string        `json:"base_url" mapstructure:"base_url"`
		APIKey  string        `json:"api_key" mapstructure:"api_key"`
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	}

	Client struct {
		apiKey string
		hc     *resty.Client
	}
)

func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	hc := resty.New()
	hc.SetBaseURL(cfg.BaseURL)
	hc.SetTimeout(timeout)
	hc.SetHeader("Accept", "application/json")

	return &Client{apiKey: cfg.APIKey, hc: hc}
}

func (c *Client) String() string {
	return "Ticketmaster API"
}

type (
	Event struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Dates    Dates    `json:"dates"`
		Embedded Embedded `json:"_embedded"`
	}

	Dates struct {
		Start struct {
			DateTime string `json:"dateTime"`
		} `json:"start"`
		Status struct {
			Code string `json:"code"`
		} `json:"status"`
	}

	Embedded struct {
		Venues      []Venue      `json:"venues"`
		Attractions []Attraction `json:"attractions"`
	}

	Venue struct {
		Name string `json:"name"`
		City struct {
			Name string `json:"name"`
		} `json:"city"`
	}

	Attraction struct {
		Name string `json:"name"`
	}

	SearchReply struct {
		Embedded struct {
			Events []Event `json:"events"`
		} `json:"_embedded"`
		Page struct {
			TotalElements int `json:"totalElements"`
		} `json:"page"`
	}
)

// GetEvent fetches one event from the discovery API. A 404 yields ErrNoEvent.
func (c *Client) GetEvent(ctx context.Context, eventID int64) (*Event, error) {
	resp, err := c.hc.R().
		SetContext(ctx).
		SetPathParam("eventId", strconv.FormatInt(eventID, 10)).
		SetQueryParam("apikey", c.apiKey).
		Get("/discovery/v2/events/{eventId}.json")
	if err != nil {
		return nil, fmt.Errorf("getEventTicketmaster: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNoEvent
	default:
		return nil, status.NewSourceError(sourceName, "get Event", eventID, resp.StatusCode(), resp.String())
	}

	var event Event
	if err := json.Unmarshal(resp.Body(), &event); err != nil {
		return nil, fmt.Errorf("getEventTicketmaster: json.Unmarshal: %w", err)
	}
	return &event, nil
}

func (c *Client) SearchEvents(ctx context.Context, name, city, country string) (*SearchReply, error) {
	resp, err := c.hc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":      c.apiKey,
			"keyword":     name,
			"city":        city,
			"countryCode": strings.ToLower(country),
			"locale":      "en",
		}).
		Get("/discovery/v2/events.json")
	if err != nil {
		return nil, fmt.Errorf("searchEventsTicketmaster: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, status.NewSourceError(sourceName, "search Events", 0, resp.StatusCode(), resp.String())
	}

	var reply SearchReply
	if err := json.Unmarshal(resp.Body(), &reply); err != nil {
		return nil, fmt.Errorf("searchEventsTicketmaster: json.Unmarshal: %w", err)
	}
	return &reply, nil
}
