package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Environment string
	LogLevel    string

	// Redis configuration
	RedisURL string

	// Ticket sources
	TicketSource  string
	SourceTimeout time.Duration
	StubHub       StubHubConfig
	Ticketmaster  TicketmasterConfig

	// Scrape configuration
	GraceWindow              time.Duration
	ScrapeSchedule           string
	PersistMaxTicketQuantity bool

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string
	NotifyTopic        string

	// Price history artifacts
	ArtifactBucket    string
	ArtifactKeyPrefix string

	// bcrypt hash of the bearer token accepted by the trigger endpoint
	TriggerTokenHash string

	// Monitoring
	EnableMetrics bool
}

type StubHubConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	User           string
	Password       string
	SearchRows     int
}

type TicketmasterConfig struct {
	BaseURL string
	APIKey  string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "localhost:6379"),

		// Sources
		TicketSource:  getEnv("TICKET_SOURCE", "stubhub"),
		SourceTimeout: getEnvAsDuration("SOURCE_TIMEOUT", "30s"),
		StubHub: StubHubConfig{
			BaseURL:        getEnv("STUBHUB_BASE_URL", "https://api.stubhub.com"),
			ConsumerKey:    getEnv("STUBHUB_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("STUBHUB_CONSUMER_SECRET", ""),
			User:           getEnv("STUBHUB_USER", ""),
			Password:       getEnv("STUBHUB_PASSWORD", ""),
			SearchRows:     getEnvAsInt("STUBHUB_SEARCH_ROWS", 50),
		},
		Ticketmaster: TicketmasterConfig{
			BaseURL: getEnv("TICKETMASTER_BASE_URL", "https://app.ticketmaster.com"),
			APIKey:  getEnv("TICKETMASTER_API_KEY", ""),
		},

		// Scrape
		GraceWindow:              getEnvAsDuration("SCRAPE_GRACE_WINDOW", "120m"),
		ScrapeSchedule:           getEnv("SCRAPE_SCHEDULE", "*/30 * * * *"),
		PersistMaxTicketQuantity: getEnvAsBool("PERSIST_MAX_TICKET_QUANTITY", false),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "ticket-tracker"),
		NotifyTopic:        getEnv("NOTIFY_TOPIC", "new-price-history"),

		// Artifacts
		ArtifactBucket:    getEnv("ARTIFACT_BUCKET", "price-history"),
		ArtifactKeyPrefix: getEnv("ARTIFACT_KEY_PREFIX", "price_history"),

		TriggerTokenHash: getEnv("TRIGGER_TOKEN_HASH", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

// NotificationsEnabled reports whether a publish key is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.PubNubPublishKey != "" && c.NotifyTopic != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
