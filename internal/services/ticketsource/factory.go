package ticketsource

import (
	"errors"
	"fmt"
	"sort"

	"ticket-tracker/config"
	"ticket-tracker/internal/services/ticketsource/stubhub"
	"ticket-tracker/internal/services/ticketsource/ticketmaster"
	"ticket-tracker/internal/status"
	"ticket-tracker/utils"
)

// Factory creates ticket sources from the application configuration.
type Factory struct {
	cfg *config.Config
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg}
}

// CreateSource creates a source for provider, guarded by a circuit breaker.
func (f *Factory) CreateSource(provider Provider) (TicketSource, error) {
	var source TicketSource

	switch provider {
	case ProviderStubHub:
		source = NewStubHubAdapter(&stubhub.Config{
			BaseURL:        f.cfg.StubHub.BaseURL,
			ConsumerKey:    f.cfg.StubHub.ConsumerKey,
			ConsumerSecret: f.cfg.StubHub.ConsumerSecret,
			User:           f.cfg.StubHub.User,
			Password:       f.cfg.StubHub.Password,
			SearchRows:     f.cfg.StubHub.SearchRows,
			Timeout:        f.cfg.SourceTimeout,
		})

	case ProviderTicketmaster:
		source = NewTicketmasterAdapter(&ticketmaster.Config{
			BaseURL: f.cfg.Ticketmaster.BaseURL,
			APIKey:  f.cfg.Ticketmaster.APIKey,
			Timeout: f.cfg.SourceTimeout,
		})

	default:
		return nil, fmt.Errorf("unsupported ticket source: %s", provider)
	}

	return NewGuarded(source, utils.NewCircuitBreakerWithSettings(string(provider), utils.BreakerSettings{
		IsFailure: countsAgainstSource,
	})), nil
}

// countsAgainstSource ignores outcomes that say nothing about the health
// of the marketplace.
func countsAgainstSource(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, status.ErrNotFound) &&
		!errors.Is(err, status.ErrAmbiguousResult) &&
		!errors.Is(err, status.ErrUnsupported)
}

func (f *Factory) SupportedProviders() []Provider {
	return []Provider{ProviderStubHub, ProviderTicketmaster}
}

// Registry manages the configured ticket sources
type Registry struct {
	sources map[Provider]TicketSource
	primary Provider
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[Provider]TicketSource)}
}

// NewRegistryFromConfig registers every supported source and makes the
// configured one primary.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	primary, err := ParseProvider(cfg.TicketSource)
	if err != nil {
		return nil, err
	}

	factory := NewFactory(cfg)
	registry := NewRegistry()
	for _, provider := range factory.SupportedProviders() {
		source, err := factory.CreateSource(provider)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s source: %w", provider, err)
		}
		registry.Register(source)
	}

	if err := registry.SetPrimary(primary); err != nil {
		return nil, err
	}
	return registry, nil
}

// Register adds a source. The first registered source becomes primary.
func (r *Registry) Register(source TicketSource) {
	r.sources[source.Provider()] = source
	if r.primary == "" {
		r.primary = source.Provider()
	}
}

func (r *Registry) Get(provider Provider) (TicketSource, error) {
	source, ok := r.sources[provider]
	if !ok {
		return nil, fmt.Errorf("ticket source %s not registered", provider)
	}
	return source, nil
}

func (r *Registry) Primary() (TicketSource, error) {
	if r.primary == "" {
		return nil, errors.New("no primary ticket source configured")
	}
	return r.Get(r.primary)
}

func (r *Registry) SetPrimary(provider Provider) error {
	if _, ok := r.sources[provider]; !ok {
		return fmt.Errorf("ticket source %s not registered", provider)
	}
	r.primary = provider
	return nil
}

func (r *Registry) Providers() []Provider {
	providers := make([]Provider, 0, len(r.sources))
	for provider := range r.sources {
		providers = append(providers, provider)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}
