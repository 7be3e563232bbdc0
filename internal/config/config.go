// Package config provides configuration loading and validation for scour.
// Supports YAML files with environment variable overrides.
//
// Configuration is loaded once at startup into an explicit Config value
// that is threaded through every component constructor; no component
// reads ambient process state.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a scour retention daemon.
type Config struct {
	Host          HostConfig          `yaml:"host"`
	Registry      RegistryConfig      `yaml:"registry"`
	Tiers         TierConfig          `yaml:"tiers"`
	Cleaner       CleanerConfig       `yaml:"cleaner"`
	Alerts        AlertConfig         `yaml:"alerts"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// HostConfig identifies this event builder within the fleet.
type HostConfig struct {
	// Name is this host's identifier in registry location entries.
	// Defaults to os.Hostname.
	Name string `yaml:"name" env:"SCOUR_HOST_NAME"`

	// SharedTier is the distinguished host label denoting the single
	// network-attached shared storage tier.
	SharedTier string `yaml:"sharedTier" env:"SCOUR_SHARED_TIER"`

	// Designated is the one host allowed to run shared-tier-affecting
	// modes. This is a configuration convention, not a lease: two hosts
	// configured with the same designation would race.
	Designated string `yaml:"designated" env:"SCOUR_DESIGNATED_HOST"`
}

// RegistryConfig configures the Oxia-backed run registry client.
type RegistryConfig struct {
	OxiaEndpoint     string `yaml:"oxiaEndpoint" env:"SCOUR_OXIA_ENDPOINT"`
	Namespace        string `yaml:"namespace" env:"SCOUR_OXIA_NAMESPACE"`
	RequestTimeoutMs int64  `yaml:"requestTimeoutMs" env:"SCOUR_REGISTRY_TIMEOUT_MS"`
	MutationRetries  int    `yaml:"mutationRetries" env:"SCOUR_REGISTRY_RETRIES"`
}

// RequestTimeout returns the request timeout as a duration.
func (c RegistryConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// TierConfig names the four storage tiers this host touches.
type TierConfig struct {
	// SharedRoot is the mount point of the shared storage tier.
	SharedRoot string `yaml:"sharedRoot" env:"SCOUR_SHARED_ROOT"`

	// ProcessedRoot holds this host's processed data products.
	ProcessedRoot string `yaml:"processedRoot" env:"SCOUR_PROCESSED_ROOT"`

	// StagingRoot holds data written by the pipeline before registration.
	StagingRoot string `yaml:"stagingRoot" env:"SCOUR_STAGING_ROOT"`

	// QuarantineRoot receives archived orphaned discoveries for
	// operator review.
	QuarantineRoot string `yaml:"quarantineRoot" env:"SCOUR_QUARANTINE_ROOT"`
}

// CleanerConfig tunes selection thresholds and the deletion worker pool.
type CleanerConfig struct {
	// DurableKinds are the irreplaceable low-level data kinds whose
	// copy count is guarded.
	DurableKinds []string `yaml:"durableKinds"`

	// PoolSize bounds concurrent shared-tier deletions. Forced to 1
	// when interactive confirmation is active.
	PoolSize int `yaml:"poolSize" env:"SCOUR_POOL_SIZE"`

	// TaskTimeoutMs is how long a pooled deletion may run before it is
	// reported as stuck. The task is not killed; it is surfaced via the
	// alert sink.
	TaskTimeoutMs int64 `yaml:"taskTimeoutMs" env:"SCOUR_TASK_TIMEOUT_MS"`

	// CycleSeconds is the interval between production-loop cycles.
	CycleSeconds int64 `yaml:"cycleSeconds" env:"SCOUR_CYCLE_SECONDS"`

	// BackoffSeconds is the sleep after an unexpected daemon error
	// before the sequence restarts.
	BackoffSeconds int64 `yaml:"backoffSeconds" env:"SCOUR_BACKOFF_SECONDS"`

	// SharedMinAgeHours is how old a run must be before its shared-tier
	// copy becomes eligible for cleanup.
	SharedMinAgeHours int64 `yaml:"sharedMinAgeHours" env:"SCOUR_SHARED_MIN_AGE_HOURS"`

	// HighLevelMinAgeDays is how old a run must be before this host's
	// non-durable products become eligible for cleanup.
	HighLevelMinAgeDays int64 `yaml:"highLevelMinAgeDays" env:"SCOUR_HIGH_LEVEL_MIN_AGE_DAYS"`

	// StagingDelayHours is how long staging artifacts are left alone
	// before unregistered staging cleanup may touch them.
	StagingDelayHours int64 `yaml:"stagingDelayHours" env:"SCOUR_STAGING_DELAY_HOURS"`

	// IterationCap bounds the drain loop of single-match modes so a
	// misbehaving predicate cannot loop forever.
	IterationCap int `yaml:"iterationCap" env:"SCOUR_ITERATION_CAP"`

	// AbandonedSharedBatch bounds shared-tier deletions per abandoned
	// cleanup pass.
	AbandonedSharedBatch int `yaml:"abandonedSharedBatch" env:"SCOUR_ABANDONED_SHARED_BATCH"`

	// Lineage maps each data kind to its currently active lineage tag.
	// Artifacts carrying a different tag were produced under an
	// outdated definition and are eligible for stale-lineage cleanup.
	Lineage map[string]string `yaml:"lineage"`
}

// CycleInterval returns the production-loop interval as a duration.
func (c CleanerConfig) CycleInterval() time.Duration {
	return time.Duration(c.CycleSeconds) * time.Second
}

// Backoff returns the error backoff as a duration.
func (c CleanerConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}

// TaskTimeout returns the pooled task timeout as a duration.
func (c CleanerConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutMs) * time.Millisecond
}

// AlertConfig configures the Kafka alert sink.
type AlertConfig struct {
	Enabled bool     `yaml:"enabled" env:"SCOUR_ALERTS_ENABLED"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic" env:"SCOUR_ALERTS_TOPIC"`
}

// ObservabilityConfig configures metrics and logging.
type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metricsAddr" env:"SCOUR_METRICS_ADDR"`
	LogLevel    string `yaml:"logLevel" env:"SCOUR_LOG_LEVEL"`
	LogFormat   string `yaml:"logFormat" env:"SCOUR_LOG_FORMAT"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	hostname, _ := os.Hostname()
	return &Config{
		Host: HostConfig{
			Name:       hostname,
			SharedTier: "array",
		},
		Registry: RegistryConfig{
			OxiaEndpoint:     "localhost:6648",
			Namespace:        "scour",
			RequestTimeoutMs: 5000,
			MutationRetries:  5,
		},
		Tiers: TierConfig{
			SharedRoot:     "/array/raw",
			ProcessedRoot:  "/data/processed",
			StagingRoot:    "/data/staging",
			QuarantineRoot: "/data/quarantine",
		},
		Cleaner: CleanerConfig{
			DurableKinds:         []string{"raw"},
			PoolSize:             5,
			TaskTimeoutMs:        30 * 60 * 1000, // 30 minutes
			CycleSeconds:         3600,
			BackoffSeconds:       60,
			SharedMinAgeHours:    72,
			HighLevelMinAgeDays:  30,
			StagingDelayHours:    24,
			IterationCap:         1000,
			AbandonedSharedBatch: 5,
		},
		Alerts: AlertConfig{
			Topic: "scour-alerts",
		},
		Observability: ObservabilityConfig{
			MetricsAddr: ":9090",
			LogLevel:    "info",
			LogFormat:   "json",
		},
	}
}

// Load returns the default configuration with environment overrides applied.
func Load() (*Config, error) {
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a YAML file, layered over the
// defaults, with environment overrides applied last.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for fatal inconsistencies.
func (c *Config) Validate() error {
	if c.Host.Name == "" {
		return errors.New("config: host.name is required")
	}
	if c.Host.SharedTier == "" {
		return errors.New("config: host.sharedTier is required")
	}
	if c.Host.Name == c.Host.SharedTier {
		return fmt.Errorf("config: host.name %q collides with the shared-tier label", c.Host.Name)
	}
	if c.Registry.OxiaEndpoint == "" {
		return errors.New("config: registry.oxiaEndpoint is required")
	}
	if c.Registry.Namespace == "" {
		return errors.New("config: registry.namespace is required")
	}
	if len(c.Cleaner.DurableKinds) == 0 {
		return errors.New("config: cleaner.durableKinds must name at least one kind")
	}
	if c.Cleaner.PoolSize <= 0 {
		return fmt.Errorf("config: cleaner.poolSize must be positive, got %d", c.Cleaner.PoolSize)
	}
	if c.Cleaner.IterationCap <= 0 {
		return fmt.Errorf("config: cleaner.iterationCap must be positive, got %d", c.Cleaner.IterationCap)
	}
	if c.Alerts.Enabled && len(c.Alerts.Brokers) == 0 {
		return errors.New("config: alerts.brokers is required when alerts are enabled")
	}
	return nil
}

// IsDesignated reports whether this host is the designated shared-tier host.
func (c *Config) IsDesignated() bool {
	return c.Host.Designated != "" && c.Host.Name == c.Host.Designated
}

func (c *Config) applyEnv() {
	envString(&c.Host.Name, "SCOUR_HOST_NAME")
	envString(&c.Host.SharedTier, "SCOUR_SHARED_TIER")
	envString(&c.Host.Designated, "SCOUR_DESIGNATED_HOST")
	envString(&c.Registry.OxiaEndpoint, "SCOUR_OXIA_ENDPOINT")
	envString(&c.Registry.Namespace, "SCOUR_OXIA_NAMESPACE")
	envInt64(&c.Registry.RequestTimeoutMs, "SCOUR_REGISTRY_TIMEOUT_MS")
	envInt(&c.Registry.MutationRetries, "SCOUR_REGISTRY_RETRIES")
	envString(&c.Tiers.SharedRoot, "SCOUR_SHARED_ROOT")
	envString(&c.Tiers.ProcessedRoot, "SCOUR_PROCESSED_ROOT")
	envString(&c.Tiers.StagingRoot, "SCOUR_STAGING_ROOT")
	envString(&c.Tiers.QuarantineRoot, "SCOUR_QUARANTINE_ROOT")
	envInt(&c.Cleaner.PoolSize, "SCOUR_POOL_SIZE")
	envInt64(&c.Cleaner.TaskTimeoutMs, "SCOUR_TASK_TIMEOUT_MS")
	envInt64(&c.Cleaner.CycleSeconds, "SCOUR_CYCLE_SECONDS")
	envInt64(&c.Cleaner.BackoffSeconds, "SCOUR_BACKOFF_SECONDS")
	envInt64(&c.Cleaner.SharedMinAgeHours, "SCOUR_SHARED_MIN_AGE_HOURS")
	envInt64(&c.Cleaner.HighLevelMinAgeDays, "SCOUR_HIGH_LEVEL_MIN_AGE_DAYS")
	envInt64(&c.Cleaner.StagingDelayHours, "SCOUR_STAGING_DELAY_HOURS")
	envInt(&c.Cleaner.IterationCap, "SCOUR_ITERATION_CAP")
	envInt(&c.Cleaner.AbandonedSharedBatch, "SCOUR_ABANDONED_SHARED_BATCH")
	envBool(&c.Alerts.Enabled, "SCOUR_ALERTS_ENABLED")
	envString(&c.Alerts.Topic, "SCOUR_ALERTS_TOPIC")
	envString(&c.Observability.MetricsAddr, "SCOUR_METRICS_ADDR")
	envString(&c.Observability.LogLevel, "SCOUR_LOG_LEVEL")
	envString(&c.Observability.LogFormat, "SCOUR_LOG_FORMAT")
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
