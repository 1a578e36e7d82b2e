package stubhub

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const sourceName = "StubHub"

type (
	Config struct {
		BaseURL string `json:"base_url" mapstructure:"base_url"`

		ConsumerKey    string `json:"consumer_key" mapstructure:"consumer_key"`
		ConsumerSecret string `json:"consumer_secret" mapstructure:"consumer_secret"`

		User     string `json:"user" mapstructure:"user"`
		Password string `json:"password" mapstructure:"password"`

		// SearchRows caps the number of events returned by a search.
		SearchRows int `json:"search_rows" mapstructure:"search_rows"`

		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	}

	Client struct {
		consumerKey    string
		consumerSecret string
		user           string
		password       string
		searchRows     int

		// accessToken is the cached bearer token.
		accessToken string

		// mu guards accessToken.
		mu sync.Mutex

		hc *resty.Client
	}
)

// New creates a StubHub client. The bearer token is obtained on first use.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rows := cfg.SearchRows
	if rows <= 0 {
		rows = 50
	}

	hc := resty.New()
	hc.SetBaseURL(cfg.BaseURL)
	hc.SetTimeout(timeout)
	hc.SetHeader("Accept", "application/json")

	return &Client{
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		user:           cfg.User,
		password:       cfg.Password,
		searchRows:     rows,
		hc:             hc,
	}
}

func (c *Client) String() string {
	return "StubHub API"
}

// SearchEventByID looks an event up by id through the search endpoint.
func (c *Client) SearchEventByID(ctx context.Context, eventID int64) (*EventSearchReply, error) {
	return c.searchEventByID(ctx, eventID)
}

func (c *Client) SearchEvents(ctx context.Context, name, city, country string) (*EventSearchReply, error) {
	return c.searchEvents(ctx, name, city, country)
}

func (c *Client) SectionZones(ctx context.Context, eventID int64) ([]SectionZone, error) {
	return c.sectionZones(ctx, eventID)
}

// FindListings returns the listings of one zone sorted by price ascending.
func (c *Client) FindListings(ctx context.Context, eventID, zoneID int64, quantity int) (*ListingsReply, error) {
	return c.findListings(ctx, eventID, zoneID, quantity)
}
