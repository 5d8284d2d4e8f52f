package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the daemon reads.
const EnvPrefix = "TABLESIDE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Flow selects which view of the upstream service this process drives.
const (
	FlowGuest = "guest"
	FlowStaff = "staff"
)

// Draft persistence backends.
const (
	DraftBackendSQLite = "sqlite"
	DraftBackendRedis  = "redis"
	DraftBackendMemory = "memory"
)

type Config struct {
	App      AppConfig
	Table    TableConfig
	Upstream UpstreamConfig
	Poll     PollConfig
	Events   EventsConfig
	Draft    DraftConfig
	Redis    RedisConfig
	Closure  ClosureConfig
	Metrics  MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Table.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Draft.validate(&cfg.Redis); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TABLESIDE_APP_ENV" required:"true"`
	Port         string `envconfig:"TABLESIDE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TABLESIDE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TABLESIDE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// TableConfig pins the process to one table session. There is no
// authentication upstream; table identity is carried on every request.
type TableConfig struct {
	ID   int64  `envconfig:"TABLESIDE_TABLE_ID" required:"true"`
	Flow string `envconfig:"TABLESIDE_FLOW" default:"guest"`
}

func (t TableConfig) validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("table id must be positive, got %d", t.ID)
	}
	switch t.Flow {
	case FlowGuest, FlowStaff:
		return nil
	}
	return fmt.Errorf("unknown flow %q (want %s or %s)", t.Flow, FlowGuest, FlowStaff)
}

type UpstreamConfig struct {
	BaseURL string        `envconfig:"TABLESIDE_UPSTREAM_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"TABLESIDE_UPSTREAM_TIMEOUT" default:"10s"`
}

type PollConfig struct {
	GuestInterval time.Duration `envconfig:"TABLESIDE_POLL_GUEST_INTERVAL" default:"5s"`
	StaffInterval time.Duration `envconfig:"TABLESIDE_POLL_STAFF_INTERVAL" default:"3s"`
}

// Interval returns the polling cadence for the configured flow.
func (p PollConfig) Interval(flow string) time.Duration {
	if flow == FlowStaff {
		return p.StaffInterval
	}
	return p.GuestInterval
}

type EventsConfig struct {
	URL            string        `envconfig:"TABLESIDE_EVENTS_URL"`
	Subject        string        `envconfig:"TABLESIDE_EVENTS_SUBJECT" default:"orders.events"`
	ReconnectWait  time.Duration `envconfig:"TABLESIDE_EVENTS_RECONNECT_WAIT" default:"3s"`
	ConnectRetry   time.Duration `envconfig:"TABLESIDE_EVENTS_CONNECT_RETRY" default:"5s"`
	ConnectTimeout time.Duration `envconfig:"TABLESIDE_EVENTS_CONNECT_TIMEOUT" default:"5s"`
}

// Enabled reports whether the push channel should be attempted at all.
// Polling carries correctness either way; the channel only trims latency.
func (e EventsConfig) Enabled() bool {
	return e.URL != ""
}

type DraftConfig struct {
	Backend    string `envconfig:"TABLESIDE_DRAFT_BACKEND" default:"sqlite"`
	SQLitePath string `envconfig:"TABLESIDE_DRAFT_SQLITE_PATH" default:"tableside-draft.db"`
	StorageKey string `envconfig:"TABLESIDE_DRAFT_STORAGE_KEY" default:"guest-cart"`
}

func (d DraftConfig) validate(redis *RedisConfig) error {
	switch d.Backend {
	case DraftBackendSQLite, DraftBackendMemory:
		return nil
	case DraftBackendRedis:
		if redis.URL == "" && redis.Address == "" {
			return fmt.Errorf("redis draft backend requires %s_REDIS_URL or %s_REDIS_ADDR", EnvPrefix, EnvPrefix)
		}
		return nil
	}
	return fmt.Errorf("unknown draft backend %q", d.Backend)
}

type RedisConfig struct {
	URL          string        `envconfig:"TABLESIDE_REDIS_URL"`
	Address      string        `envconfig:"TABLESIDE_REDIS_ADDR"`
	Password     string        `envconfig:"TABLESIDE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TABLESIDE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TABLESIDE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TABLESIDE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TABLESIDE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TABLESIDE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TABLESIDE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type ClosureConfig struct {
	Debounce        time.Duration `envconfig:"TABLESIDE_CLOSURE_DEBOUNCE" default:"2s"`
	NotificationTTL time.Duration `envconfig:"TABLESIDE_CLOSURE_NOTIFICATION_TTL" default:"6s"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"TABLESIDE_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"TABLESIDE_METRICS_PATH" default:"/metrics"`
}
