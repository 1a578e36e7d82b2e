package ticketsource

import (
	"context"
	"fmt"
	"testing"

	"ticket-tracker/config"
	"ticket-tracker/internal/status"
	"ticket-tracker/models"
	"ticket-tracker/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" StubHub ")
	require.NoError(t, err)
	assert.Equal(t, ProviderStubHub, p)

	p, err = ParseProvider("ticketmaster")
	require.NoError(t, err)
	assert.Equal(t, ProviderTicketmaster, p)

	_, err = ParseProvider("viagogo")
	assert.Error(t, err)
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := &config.Config{TicketSource: "ticketmaster"}

	registry, err := NewRegistryFromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, []Provider{ProviderStubHub, ProviderTicketmaster}, registry.Providers())

	primary, err := registry.Primary()
	require.NoError(t, err)
	assert.Equal(t, ProviderTicketmaster, primary.Provider())

	guarded, ok := primary.(*Guarded)
	require.True(t, ok)
	assert.IsType(t, &TicketmasterAdapter{}, guarded.Unwrap())
}

func TestNewRegistryFromConfig_UnknownSource(t *testing.T) {
	_, err := NewRegistryFromConfig(&config.Config{TicketSource: "viagogo"})
	assert.Error(t, err)
}

func TestRegistry_SetPrimaryUnregistered(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Primary()
	assert.Error(t, err)
	assert.Error(t, registry.SetPrimary(ProviderStubHub))
}

type flakySource struct {
	calls int
	err   error
}

func (f *flakySource) Provider() Provider { return ProviderStubHub }

func (f *flakySource) FetchEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Event{ID: eventID}, nil
}

func (f *flakySource) SearchEvents(ctx context.Context, name, city, country string) (string, error) {
	f.calls++
	return "", f.err
}

func (f *flakySource) ListZones(ctx context.Context, eventID int64) ([]models.Zone, error) {
	f.calls++
	return nil, f.err
}

func (f *flakySource) FetchZoneListings(ctx context.Context, eventID int64, zone models.Zone, minQuantity int) (*models.ZoneListings, error) {
	f.calls++
	return nil, f.err
}

func TestGuarded_OpensOnSourceFailures(t *testing.T) {
	source := &flakySource{err: fmt.Errorf("listings: %w", status.ErrSourceRequest)}
	guarded := NewGuarded(source, utils.NewCircuitBreakerWithSettings("stubhub", utils.BreakerSettings{
		MaxRequests:  2,
		FailureRatio: 0.5,
		IsFailure:    countsAgainstSource,
	}))

	for i := 0; i < 2; i++ {
		_, err := guarded.ListZones(context.Background(), 1)
		assert.ErrorIs(t, err, status.ErrSourceRequest)
	}

	_, err := guarded.FetchZoneListings(context.Background(), 1, models.Zone{ID: 1}, 1)
	assert.ErrorIs(t, err, utils.ErrBreakerOpen)
	assert.Equal(t, 2, source.calls)
}

func TestGuarded_NotFoundKeepsBreakerClosed(t *testing.T) {
	source := &flakySource{err: fmt.Errorf("event 1: %w", status.ErrNotFound)}
	breaker := utils.NewCircuitBreakerWithSettings("stubhub", utils.BreakerSettings{
		MaxRequests:  2,
		FailureRatio: 0.5,
		IsFailure:    countsAgainstSource,
	})
	guarded := NewGuarded(source, breaker)

	for i := 0; i < 4; i++ {
		event, err := guarded.FetchEvent(context.Background(), 1)
		assert.Nil(t, event)
		assert.ErrorIs(t, err, status.ErrNotFound)
	}

	assert.Equal(t, utils.StateClosed, breaker.State())
	assert.Equal(t, 4, source.calls)
}

func TestGuarded_PassesResults(t *testing.T) {
	guarded := NewGuarded(&flakySource{}, utils.NewCircuitBreaker("stubhub"))

	event, err := guarded.FetchEvent(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, int64(77), event.ID)
}
