// Package config loads the service's YAML configuration file, following the
// teacher's gopkg.in/yaml.v3 load-then-validate convention (DefaultConfig +
// LoadConfig + Validate).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkerConfig is the per-job interval of a scheduled worker. The initial
// delay is shared by all three jobs and lives on WorkersConfig.
type WorkerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// FailedItemWorkerConfig additionally carries the failure-exhaustion
// threshold.
type FailedItemWorkerConfig struct {
	WorkerConfig `yaml:",inline"`
	MaxFailures  int `yaml:"max-failures"`
}

// WorkersConfig groups the three worker schedules.
type WorkersConfig struct {
	InitialDelay     time.Duration          `yaml:"initial-delay"`
	SDESWorker       WorkerConfig           `yaml:"sdes-worker"`
	ProcessedItem    WorkerConfig           `yaml:"processed-item-worker"`
	FailedItemWorker FailedItemWorkerConfig `yaml:"failed-item-worker"`
}

// SDESServiceConfig configures the outbound SDES notification.
type SDESServiceConfig struct {
	InformationType           string `yaml:"information-type"`
	RecipientOrSender         string `yaml:"recipient-or-sender"`
	ObjectStoreLocationPrefix string `yaml:"object-store-location-prefix"`
}

// ServicesConfig groups external-service configuration.
type ServicesConfig struct {
	SDES SDESServiceConfig `yaml:"sdes"`
}

// InternalAuthConfig configures the bearer-token stand-in for the
// out-of-scope external authentication service.
type InternalAuthConfig struct {
	Token string `yaml:"token"`
}

// Config is the full service configuration.
type Config struct {
	Listen                  string             `yaml:"listen"`
	DBPath                  string             `yaml:"db-path"`
	ScratchDir              string             `yaml:"scratch-dir"`
	ObjectStoreBaseURL      string             `yaml:"object-store-base-url"`
	SDESBaseURL             string             `yaml:"sdes-base-url"`
	AllowLocalhostCallbacks bool               `yaml:"allow-localhost-callbacks"`
	LockTTL                 time.Duration      `yaml:"lock-ttl"`
	Workers                 WorkersConfig      `yaml:"workers"`
	Services                ServicesConfig     `yaml:"services"`
	InternalAuth            InternalAuthConfig `yaml:"internal-auth"`
}

// DefaultConfig returns sane defaults, matching spec.md's stated defaults
// where one is given (lock-ttl: 30s) and reasonable values elsewhere.
func DefaultConfig() *Config {
	return &Config{
		Listen:     ":8080",
		DBPath:     "dms-submission.db",
		ScratchDir: "",
		LockTTL:    30 * time.Second,
		Workers: WorkersConfig{
			InitialDelay:  5 * time.Second,
			SDESWorker:    WorkerConfig{Interval: 10 * time.Second},
			ProcessedItem: WorkerConfig{Interval: 10 * time.Second},
			FailedItemWorker: FailedItemWorkerConfig{
				WorkerConfig: WorkerConfig{Interval: time.Minute},
				MaxFailures:  5,
			},
		},
	}
}

// LoadConfig reads and parses a YAML config file at path, merging it onto
// DefaultConfig, then validates the result. The internal-auth token may
// instead be supplied via the DMS_SUBMISSION_INTERNAL_AUTH_TOKEN
// environment variable, which takes precedence over the file — the
// teacher's services keep secrets out of the checked-in YAML the same way.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if tok := os.Getenv("DMS_SUBMISSION_INTERNAL_AUTH_TOKEN"); tok != "" {
		cfg.InternalAuth.Token = tok
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on the configuration a running service cannot operate
// without.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: db-path is required")
	}
	if c.ObjectStoreBaseURL == "" {
		return fmt.Errorf("config: object-store-base-url is required")
	}
	if c.SDESBaseURL == "" {
		return fmt.Errorf("config: sdes-base-url is required")
	}
	if c.InternalAuth.Token == "" {
		return fmt.Errorf("config: internal-auth.token is required")
	}
	if c.Services.SDES.InformationType == "" {
		return fmt.Errorf("config: services.sdes.information-type is required")
	}
	if c.Services.SDES.RecipientOrSender == "" {
		return fmt.Errorf("config: services.sdes.recipient-or-sender is required")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("config: lock-ttl must be > 0")
	}
	if c.Workers.FailedItemWorker.MaxFailures <= 0 {
		return fmt.Errorf("config: workers.failed-item-worker.max-failures must be > 0")
	}
	return nil
}
