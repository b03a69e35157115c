// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"slices"

	"github.com/okian/swatrank/internal/domain/model"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory or postgres.
	Store string `koanf:"store"`

	// DatabaseURL is the postgres connection string.
	DatabaseURL string `koanf:"database_url"`

	// Migrate applies embedded schema migrations on startup.
	Migrate bool `koanf:"migrate"`

	// RedisAddr enables standings publishing when set.
	RedisAddr string `koanf:"redis_addr"`

	// RedisKeyPrefix namespaces published keys.
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// PublishQueueSize bounds the pending recompute queue.
	PublishQueueSize int `koanf:"publish_queue_size"`

	// PublishWorkers sets the number of publishing workers.
	PublishWorkers int `koanf:"publish_workers"`

	// CollationLocale orders participant names on ties.
	CollationLocale string `koanf:"collation_locale"`

	// TotalPrecision is the number of decimals totals are compared at.
	TotalPrecision int `koanf:"total_precision"`

	// TracingEnabled exports spans over OTLP/HTTP.
	TracingEnabled bool `koanf:"tracing_enabled"`

	// OTLPEndpoint is the collector host:port.
	OTLPEndpoint string `koanf:"otlp_endpoint"`

	// TracingSampleRate is the fraction of traces kept.
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`

	// TracingInsecure disables TLS towards the collector.
	TracingInsecure bool `koanf:"tracing_insecure"`

	// Modes maps a competition mode to its ordered stage list. When empty
	// DefaultModes is used.
	Modes map[string][]StageConfig `koanf:"modes"`
}

// StageConfig describes one stage of a mode.
type StageConfig struct {
	ID     string  `koanf:"id"`
	Title  string  `koanf:"title"`
	Weight float64 `koanf:"weight"`
	Metric string  `koanf:"metric"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		Store:            StoreMemory,
		Migrate:          true,
		RedisKeyPrefix:   "swatrank",
		PublishQueueSize: 64,
		PublishWorkers:   2,
		CollationLocale:  "tr",
		TotalPrecision:   2,

		TracingSampleRate: 1,
	}
}

// DefaultModes returns the stage lists of the infantry and marksman modes.
func DefaultModes() map[string][]StageConfig {
	return map[string][]StageConfig{
		"piyade": {
			{ID: "atis", Title: "Atış", Weight: 0.4, Metric: string(model.MetricTime)},
			{ID: "anaerobik", Title: "Anaerobik Kondisyon", Weight: 0.2, Metric: string(model.MetricTime)},
			{ID: "aerobik", Title: "Aerobik Kondisyon", Weight: 0.2, Metric: string(model.MetricTime)},
			{ID: "kuvvet", Title: "Kuvvet", Weight: 0.2, Metric: string(model.MetricCount)},
		},
		"keskin": {
			{ID: "kuvvet-devamlilik", Title: "Kuvvette Devamlılık Test", Weight: 0.2, Metric: string(model.MetricTime)},
			{ID: "kuvvet", Title: "Kuvvet Test", Weight: 0.2, Metric: string(model.MetricTime)},
			{ID: "keskin-atis-1", Title: "Keskin Atış Etap 1", Weight: 0.2, Metric: string(model.MetricTime)},
			{ID: "keskin-atis-2", Title: "Keskin Atış Etap 2", Weight: 0.2, Metric: string(model.MetricTime)},
			{ID: "keskin-atis-3", Title: "Keskin Atış Etap 3", Weight: 0.2, Metric: string(model.MetricTime)},
		},
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if c.TotalPrecision < 0 || c.TotalPrecision > 9 {
		return fmt.Errorf("%w: total_precision must be within 0..9", ErrInvalidConfig)
	}
	if c.PublishQueueSize < 1 {
		return fmt.Errorf("%w: publish_queue_size must be positive", ErrInvalidConfig)
	}
	if c.PublishWorkers < 1 {
		return fmt.Errorf("%w: publish_workers must be positive", ErrInvalidConfig)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("%w: tracing_sample_rate must be within 0..1", ErrInvalidConfig)
	}
	if len(c.Modes) == 0 {
		return fmt.Errorf("%w: no modes configured", ErrInvalidConfig)
	}
	for mode, stages := range c.Modes {
		if err := validateStages(mode, stages); err != nil {
			return err
		}
	}
	return nil
}

func validateStages(mode string, stages []StageConfig) error {
	if mode == "" {
		return fmt.Errorf("%w: empty mode name", ErrInvalidConfig)
	}
	if len(stages) == 0 {
		return fmt.Errorf("%w: mode %q has no stages", ErrInvalidConfig, mode)
	}
	seen := make(map[string]struct{}, len(stages))
	for _, s := range stages {
		if s.ID == "" {
			return fmt.Errorf("%w: mode %q has a stage without id", ErrInvalidConfig, mode)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: mode %q repeats stage %q", ErrInvalidConfig, mode, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Weight < 0 || s.Weight > 1 {
			return fmt.Errorf("%w: stage %s/%s weight %v outside [0,1]", ErrInvalidConfig, mode, s.ID, s.Weight)
		}
		if !model.Metric(s.Metric).Valid() {
			return fmt.Errorf("%w: stage %s/%s has unknown metric %q", ErrInvalidConfig, mode, s.ID, s.Metric)
		}
	}
	return nil
}

// Catalog converts the configured modes into the domain stage catalog.
// Stage titles default to their ids.
func (c *Config) Catalog() model.Catalog {
	catalog := make(model.Catalog, len(c.Modes))
	for mode, stages := range c.Modes {
		out := make([]model.Stage, 0, len(stages))
		for _, s := range stages {
			title := s.Title
			if title == "" {
				title = s.ID
			}
			out = append(out, model.Stage{
				ID:     s.ID,
				Title:  title,
				Weight: s.Weight,
				Metric: model.Metric(s.Metric),
			})
		}
		catalog[mode] = slices.Clip(out)
	}
	return catalog
}
