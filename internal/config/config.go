package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ----------------------------
	// HTTP API
	// ----------------------------
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Storage
	// ----------------------------
	Store            string        `envconfig:"STORE" default:""`
	DatabaseURL      string        `envconfig:"DATABASE_URL" default:""`
	DBConnectTimeout time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"30s"`

	// ----------------------------
	// Queue
	// ----------------------------
	AMQPURL string `envconfig:"AMQP_URL" default:""`

	// ----------------------------
	// Dispatch
	// ----------------------------
	DispatchDelay      time.Duration `envconfig:"DISPATCH_DELAY" default:"2s"`
	DispatchRate       int           `envconfig:"DISPATCH_RATE" default:"50"`
	MailFrom           string        `envconfig:"MAIL_FROM" default:"campaigns@example.com"`
	TrackingBaseURL    string        `envconfig:"TRACKING_BASE_URL" default:"http://localhost:8080"`
	StrictSegmentCheck bool          `envconfig:"STRICT_SEGMENT_CHECK" default:"true"`
	// TrackingSecret keys click-link signatures. Every process that renders
	// or serves tracking links must share it.
	TrackingSecret string `envconfig:"TRACKING_SECRET" default:""`

	// ----------------------------
	// Background jobs
	// ----------------------------
	SchedulerInterval   time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"30s"`
	StuckSendingTimeout time.Duration `envconfig:"STUCK_SENDING_TIMEOUT" default:"15m"`
	SnapshotInterval    time.Duration `envconfig:"SNAPSHOT_INTERVAL" default:"1h"`
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// StoreKind resolves which repository backend to use. An explicit STORE wins;
// otherwise postgres is used whenever a DATABASE_URL is configured.
func (c *Config) StoreKind() string {
	switch c.Store {
	case StoreMemory, StorePostgres:
		return c.Store
	}
	if c.DatabaseURL != "" {
		return StorePostgres
	}
	return StoreMemory
}

// Load reads an optional .env file and then the process environment.
// It reports whether a .env file was found so the caller can log it.
func Load() (*Config, bool, error) {
	found := godotenv.Load() == nil

	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, found, err
}
