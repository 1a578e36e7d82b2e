package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"ticket-tracker/config"
	"ticket-tracker/internal/handlers"
	"ticket-tracker/internal/services"
	"ticket-tracker/internal/services/notify"
	"ticket-tracker/internal/services/ticketsource"
	"ticket-tracker/internal/store"
	"ticket-tracker/internal/trigger"
	"ticket-tracker/monitoring"
	"ticket-tracker/security"
	"ticket-tracker/utils"

	_ "ticket-tracker/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/redis/go-redis/v9"
)

const (
	triggerRateLimit  = 30
	triggerRateWindow = time.Minute
	monitorInterval   = 30 * time.Second
)

// runtime holds everything built from configuration. It is created on first
// use so that persistent flags are parsed and the app is bootstrapped.
type runtime struct {
	app *pocketbase.PocketBase
	cfg *config.Config

	useTicketmaster bool
	debug           bool

	once      sync.Once
	err       error
	redis     *redis.Client
	registry  *ticketsource.Registry
	events    *store.EventStore
	artifacts *store.ArtifactStore
	runLog    *store.RunLog
	monitor   *monitoring.Monitor
	publisher *notify.Publisher
	tracker   *services.TrackerService
	trigger   *trigger.Handler
}

func (r *runtime) init() error {
	r.once.Do(func() { r.err = r.build() })
	return r.err
}

func (r *runtime) build() error {
	setupLogger(r.cfg.LogLevel, r.debug)

	redisClient, err := utils.NewRedisClient(context.Background(), r.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	r.redis = redisClient

	r.registry, err = ticketsource.NewRegistryFromConfig(r.cfg)
	if err != nil {
		return err
	}
	if r.useTicketmaster {
		if err := r.registry.SetPrimary(ticketsource.ProviderTicketmaster); err != nil {
			return err
		}
	}
	source, err := r.registry.Primary()
	if err != nil {
		return err
	}
	// Only StubHub publishes zone listings; the primary serves metadata.
	listing, err := r.registry.Get(ticketsource.ProviderStubHub)
	if err != nil {
		return err
	}

	r.events = store.NewEventStore(redisClient)
	r.artifacts = store.NewArtifactStore(redisClient)
	r.monitor = monitoring.NewMonitor(redisClient)

	opts := []services.TrackerOption{
		services.WithListingSource(listing),
		services.WithArtifactStore(r.artifacts),
		services.WithMonitor(r.monitor),
	}

	if err := store.EnsureSchema(r.app.DB()); err != nil {
		slog.Error("scrape run log unavailable", "error", err)
	} else {
		r.runLog = store.NewRunLog(r.app.DB())
		opts = append(opts, services.WithRunRecorder(r.runLog))
	}

	if r.cfg.NotificationsEnabled() {
		r.publisher = notify.NewPublisher(pubnubConfig(r.cfg))
		opts = append(opts, services.WithPublisher(r.publisher))
	}

	r.tracker = services.NewTrackerService(source, r.events, r.cfg, opts...)

	topic := ""
	if r.cfg.NotificationsEnabled() {
		topic = r.cfg.NotifyTopic
	}
	r.trigger = trigger.NewHandler(r.tracker, topic)

	slog.Debug("runtime ready", "source", source.Provider(), "listingSource", listing.Provider(), "environment", r.cfg.Environment)
	return nil
}

func (r *runtime) close() {
	if r.redis != nil {
		r.redis.Close()
	}
}

func pubnubConfig(cfg *config.Config) notify.Config {
	return notify.Config{
		PublishKey:   cfg.PubNubPublishKey,
		SubscribeKey: cfg.PubNubSubscribeKey,
		SecretKey:    cfg.PubNubSecretKey,
		UserID:       cfg.PubNubUserID,
		Secure:       true,
	}
}

func setupLogger(level string, debug bool) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if debug {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	rt := &runtime{app: app, cfg: cfg}
	defer rt.close()

	app.RootCmd.PersistentFlags().BoolVar(&rt.useTicketmaster, "ticketmaster", false, "source event info from Ticketmaster (default is StubHub)")
	app.RootCmd.PersistentFlags().BoolVar(&rt.debug, "debug", false, "print debug messages")

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	registerCommands(app.RootCmd, rt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		if err := rt.init(); err != nil {
			return err
		}

		adminHandler := handlers.NewAdminHandler(rt.redis, rt.runLog)
		eventHandler := handlers.NewEventHandler(rt.tracker)
		artifactHandler := handlers.NewArtifactHandler(rt.artifacts, cfg.ArtifactBucket, cfg.ArtifactKeyPrefix)
		triggerHandler := handlers.NewTriggerHandler(
			rt.trigger,
			security.NewTriggerAuth(cfg.TriggerTokenHash),
			security.NewRateLimiter(rt.redis, triggerRateLimit, triggerRateWindow),
		)

		// Event endpoints
		e.Router.GET("/api/v1/events", eventHandler.GetEvents)
		e.Router.GET("/api/v1/events/{eventId}", eventHandler.GetEvent)
		e.Router.GET("/api/v1/events/{eventId}/price-history", eventHandler.GetPriceHistory)

		// Stored charts
		e.Router.GET("/price_history/{file}", artifactHandler.GetChart)

		// Trigger endpoint
		e.Router.POST("/api/v1/trigger", triggerHandler.Trigger)

		// Admin endpoints
		if rt.runLog != nil {
			e.Router.GET("/api/v1/scrape-runs", adminHandler.GetScrapeRuns)
		}
		if cfg.EnableMetrics {
			e.Router.GET("/metrics", adminHandler.Metrics)
			go rt.monitor.Run(ctx, monitorInterval)
		}

		// Health check
		e.Router.GET("/health", adminHandler.Health)

		// Scheduled scrape
		if cfg.ScrapeSchedule != "" {
			if err := app.Cron().Add("scrape", cfg.ScrapeSchedule, func() {
				if err := rt.trigger.Handle(ctx, trigger.Request{Action: trigger.ActionScrape}); err != nil {
					slog.Error("scheduled scrape failed", "error", err)
				}
			}); err != nil {
				return fmt.Errorf("schedule scrape %q: %w", cfg.ScrapeSchedule, err)
			}
		}

		// Notifications
		if cfg.PubNubSubscribeKey != "" && cfg.NotifyTopic != "" {
			subscriber := notify.NewSubscriber(pubnubConfig(cfg), cfg.NotifyTopic, rt.trigger.HandlePayload)
			go func() {
				if err := subscriber.Run(ctx); err != nil {
					slog.Error("notification subscriber stopped", "error", err)
				}
			}()
		}

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
