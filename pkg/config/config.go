package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// ServerConfig describes one target media server whose series tosho keeps
// enriched.
type ServerConfig struct {
	Kind    string `koanf:"kind"` // komga or kavita
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
}

// ProviderConfig describes one metadata provider. Order in the Providers
// slice is the provider priority order used for matching and merging.
type ProviderConfig struct {
	Name    string        `koanf:"name"`
	Timeout time.Duration `koanf:"timeout"`
}

// MergeConfig controls how collection fields are combined across providers.
// When a flag is false, the first provider with a non-empty collection wins
// outright.
type MergeConfig struct {
	Genres  bool `koanf:"genres"`
	Tags    bool `koanf:"tags"`
	Authors bool `koanf:"authors"`
	Links   bool `koanf:"links"`
}

// EventsConfig controls ingestion of change notifications from media
// servers.
type EventsConfig struct {
	CoalesceWindow   time.Duration `koanf:"coalesce_window"`
	QueueSize        int           `koanf:"queue_size"`
	LibraryAllow     []string      `koanf:"library_allow"`
	SeriesExclude    []string      `koanf:"series_exclude"`
	DisableAutomatic bool          `koanf:"disable_automatic"`
}

type Config struct {
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path"`
	Hostname                  string        `koanf:"-"`
	ServerHost                string        `koanf:"server_host"`
	ServerPort                int           `koanf:"server_port"`

	Servers   []ServerConfig   `koanf:"servers"`
	Providers []ProviderConfig `koanf:"providers"`

	ProviderTimeout time.Duration `koanf:"provider_timeout"`
	MatchThreshold  float64       `koanf:"match_threshold"`
	Merge           MergeConfig   `koanf:"merge"`
	Events          EventsConfig  `koanf:"events"`

	SidecarEnabled bool   `koanf:"sidecar_enabled"`
	NotifyURL      string `koanf:"notify_url"`
}

const configFileENV = "CONFIG_FILE"

// New loads the config from defaults, then the YAML config file (if it
// exists), then environment variables. Later sources override earlier ones.
func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	configFilePath := os.Getenv(configFileENV)
	if configFilePath == "" {
		configFilePath = defaultConfigFilePath()
	}
	if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such file") {
			return nil, errors.Wrap(err, "config file error")
		}
	}

	// Flat env vars override file values, e.g. DATABASE_FILE_PATH or
	// SERVER_PORT. Nested keys use double underscores: EVENTS__QUEUE_SIZE.
	err = k.Load(env.Provider("", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := defaultConfig()
	cfg.Hostname = hostname

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "config unmarshal error")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseMaxRetries:        3,
		ServerHost:                "0.0.0.0",
		ServerPort:                8575,
		ProviderTimeout:           30 * time.Second,
		MatchThreshold:            0.9,
		Events: EventsConfig{
			CoalesceWindow: 5 * time.Second,
			QueueSize:      256,
		},
	}
}

func defaultConfigFilePath() string {
	configDir := os.Getenv("CONFIG_DIRECTORY")
	if configDir == "" {
		configDir = "/config"
	}
	return configDir + "/config.yaml"
}

func (cfg *Config) validate() error {
	if cfg.DatabaseFilePath == "" {
		return errors.New("missing required config: DATABASE_FILE_PATH (database_file_path)")
	}
	seen := map[string]bool{}
	for _, p := range cfg.Providers {
		if p.Name == "" {
			return errors.New("provider entries require a name")
		}
		if seen[p.Name] {
			return errors.Errorf("duplicate provider %q in config", p.Name)
		}
		seen[p.Name] = true
	}
	for _, s := range cfg.Servers {
		if s.Kind == "" || s.BaseURL == "" {
			return errors.New("server entries require kind and base_url")
		}
	}
	return nil
}

// ProviderNames returns the configured provider names in priority order.
func (cfg *Config) ProviderNames() []string {
	names := make([]string, len(cfg.Providers))
	for i, p := range cfg.Providers {
		names[i] = p.Name
	}
	return names
}

// TimeoutFor returns the per-provider timeout, falling back to the global
// provider timeout.
func (cfg *Config) TimeoutFor(provider string) time.Duration {
	for _, p := range cfg.Providers {
		if p.Name == provider && p.Timeout > 0 {
			return p.Timeout
		}
	}
	return cfg.ProviderTimeout
}
