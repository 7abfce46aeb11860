package config

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the dashboard service.
type Config struct {
	Addr              string        `env:"ADDR,default=:3000"`
	PlatformURL       string        `env:"PLATFORM_API_URL,default=http://localhost:8080"`
	PlatformTimeout   time.Duration `env:"PLATFORM_TIMEOUT,default=10s"`
	RefreshInterval   time.Duration `env:"REFRESH_INTERVAL,default=10s"`
	DisplayTimezone   string        `env:"DISPLAY_TIMEZONE,default=Local"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	LogFormat         string        `env:"LOG_FORMAT,default=console"`
	OTLPEndpoint      string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins    []string      `env:"CORS_ALLOWED_ORIGINS,default=*"`
	ActionRateLimit   int           `env:"ACTION_RATE_LIMIT,default=60"`
	AuditDSN          string        `env:"AUDIT_DSN"`
	NATSURL           string        `env:"NATS_URL"`
	AuditSubject      string        `env:"AUDIT_SUBJECT,default=agentdash.audit"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT,default=10s"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	u, err := url.Parse(c.PlatformURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: PLATFORM_API_URL %q must be an http(s) origin", c.PlatformURL)
	}
	if c.PlatformTimeout <= 0 {
		return fmt.Errorf("config: PLATFORM_TIMEOUT must be positive")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("config: REFRESH_INTERVAL must be positive")
	}
	if c.ActionRateLimit <= 0 {
		return fmt.Errorf("config: ACTION_RATE_LIMIT must be positive")
	}

	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		return fmt.Errorf("config: DISPLAY_TIMEZONE: %w", err)
	}
	return nil
}

// Location is the zone timestamps are displayed in.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}
