package stubhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ticket-tracker/internal/status"

	"github.com/shopspring/decimal"
)

const (
	GrantTypeDefaultStr = "client_credentials"
)

// setAccessToken set access token to client.
func (c *Client) setAccessToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
}

// getAccessToken get access token from client.
func (c *Client) getAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// authenticate returns the cached bearer token, logging in when there is none.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	if token := c.getAccessToken(); token != "" {
		return token, nil
	}

	token, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	c.setAccessToken(token)
	return token, nil
}

// connect exchanges the consumer credentials for a bearer token.
func (c *Client) connect(ctx context.Context) (string, error) {
	resp, err := c.hc.R().
		SetContext(ctx).
		SetBasicAuth(c.consumerKey, c.consumerSecret).
		SetQueryParam("grant_type", GrantTypeDefaultStr).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"username": c.user,
			"password": c.password,
		}).
		Post("/sellers/oauth/accesstoken")
	if err != nil {
		return "", fmt.Errorf("connectStubHub: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", status.NewAuthError(sourceName, resp.StatusCode(), resp.String())
	}

	var reply struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(resp.Body(), &reply); err != nil {
		return "", fmt.Errorf("connectStubHub: json.Unmarshal: %w", err)
	}
	if reply.AccessToken == "" {
		return "", status.NewAuthError(sourceName, resp.StatusCode(), "empty access token")
	}

	return reply.AccessToken, nil
}

type (
	EventSearchReply struct {
		NumFound *int          `json:"numFound"`
		Events   []SearchEvent `json:"events"`
	}

	SearchEvent struct {
		ID             int64       `json:"id"`
		Name           string      `json:"name"`
		Description    string      `json:"description"`
		EventDateLocal string      `json:"eventDateLocal"`
		Status         string      `json:"status"`
		Venue          Venue       `json:"venue"`
		Performers     []Performer `json:"performers"`
	}

	Venue struct {
		Name string `json:"name"`
		City string `json:"city"`
	}

	Performer struct {
		Name string `json:"name"`
	}
)

func (c *Client) searchEventByID(ctx context.Context, eventID int64) (*EventSearchReply, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("id", strconv.FormatInt(eventID, 10)).
		Get("/sellers/search/events/v3")
	if err != nil {
		return nil, fmt.Errorf("searchEventByIDStubHub: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, status.NewSourceError(sourceName, "get Event", eventID, resp.StatusCode(), resp.String())
	}

	var reply EventSearchReply
	if err := json.Unmarshal(resp.Body(), &reply); err != nil {
		return nil, fmt.Errorf("searchEventByIDStubHub: json.Unmarshal: %w", err)
	}
	return &reply, nil
}

func (c *Client) searchEvents(ctx context.Context, name, city, country string) (*EventSearchReply, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"name":    name,
			"city":    city,
			"country": country,
			"parking": "false",
			"rows":    strconv.Itoa(c.searchRows),
		}).
		Get("/sellers/search/events/v3")
	if err != nil {
		return nil, fmt.Errorf("searchEventsStubHub: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, status.NewSourceError(sourceName, "search Events", 0, resp.StatusCode(), resp.String())
	}

	var reply EventSearchReply
	if err := json.Unmarshal(resp.Body(), &reply); err != nil {
		return nil, fmt.Errorf("searchEventsStubHub: json.Unmarshal: %w", err)
	}
	return &reply, nil
}

type SectionZone struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (c *Client) sectionZones(ctx context.Context, eventID int64) ([]SectionZone, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParam("eventId", strconv.FormatInt(eventID, 10)).
		Get("/partners/catalog/events/v3/{eventId}/sectionZones")
	if err != nil {
		return nil, fmt.Errorf("sectionZonesStubHub: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, status.NewSourceError(sourceName, "get Section Zones", eventID, resp.StatusCode(), resp.String())
	}

	var reply struct {
		Zones []SectionZone `json:"zones"`
	}
	if err := json.Unmarshal(resp.Body(), &reply); err != nil {
		return nil, fmt.Errorf("sectionZonesStubHub: json.Unmarshal: %w", err)
	}
	return reply.Zones, nil
}

type (
	ListingsReply struct {
		TotalListings int       `json:"totalListings"`
		TotalTickets  int       `json:"totalTickets"`
		Listings      []Listing `json:"listings"`
	}

	Listing struct {
		ListingID       int64 `json:"listingId"`
		Quantity        int   `json:"quantity"`
		PricePerProduct Money `json:"pricePerProduct"`
	}

	Money struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
)

func (c *Client) findListings(ctx context.Context, eventID, zoneID int64, quantity int) (*ListingsReply, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"eventid":    strconv.FormatInt(eventID, 10),
			"sort":       "currentprice asc",
			"zoneIdList": strconv.FormatInt(zoneID, 10),
			"quantity":   strconv.Itoa(quantity),
		}).
		Get("/sellers/find/listings/v3/")
	if err != nil {
		return nil, fmt.Errorf("findListingsStubHub: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, status.NewSourceError(sourceName, "get Listings", eventID, resp.StatusCode(), resp.String())
	}

	var reply ListingsReply
	if err := json.Unmarshal(resp.Body(), &reply); err != nil {
		return nil, fmt.Errorf("findListingsStubHub: json.Unmarshal: %w", err)
	}
	return &reply, nil
}
