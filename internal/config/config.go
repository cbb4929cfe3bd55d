package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheBackendFile     = "file"
	CacheBackendPostgres = "postgres"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. MONITOR_GH_API_URL.
const EnvPrefix = "MONITOR"

// Config holds application configuration.
type Config struct {
	Port int `mapstructure:"port" yaml:"port"`

	// Event feed
	FeedURL               string `mapstructure:"gh_api_url" yaml:"gh_api_url"`
	GitHubToken           string `mapstructure:"github_token" yaml:"github_token,omitempty"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`

	// Monitoring
	MonitoredEventTypes        []string `mapstructure:"monitored_event_types" yaml:"monitored_event_types"`
	EntityEventTypes           []string `mapstructure:"entity_event_types" yaml:"entity_event_types"`
	MonitoringFrequencySeconds int      `mapstructure:"monitoring_frequency_in_seconds" yaml:"monitoring_frequency_in_seconds"`

	// Event cache
	CacheEvents   bool   `mapstructure:"cache_events" yaml:"cache_events"`
	CacheBackend  string `mapstructure:"cache_backend" yaml:"cache_backend"`
	CacheFilepath string `mapstructure:"cache_filepath" yaml:"cache_filepath"`
	DatabaseURL   string `mapstructure:"database_url" yaml:"database_url,omitempty"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Port:                       8080,
		FeedURL:                    "https://api.github.com/events",
		RequestTimeoutSeconds:      30,
		MonitoredEventTypes:        []string{"WatchEvent", "PullRequestEvent", "IssuesEvent"},
		EntityEventTypes:           []string{"PullRequestEvent"},
		MonitoringFrequencySeconds: 60,
		CacheEvents:                false,
		CacheBackend:               CacheBackendFile,
		CacheFilepath:              "cache/events.jsonl",
	}
}

// Load reads configuration from defaults, a YAML file and the environment,
// in increasing order of precedence. With an empty path the file is looked
// up as configuration.yaml in ./cfg and the working directory and may be
// absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("configuration")
		v.SetConfigType("yaml")
		v.AddConfigPath("./cfg")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed names the deployment environment commonly provides.
	_ = v.BindEnv("port", EnvPrefix+"_PORT", "PORT")
	_ = v.BindEnv("github_token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.MonitoredEventTypes = cleanList(cfg.MonitoredEventTypes)
	cfg.EntityEventTypes = cleanList(cfg.EntityEventTypes)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("port", d.Port)
	v.SetDefault("gh_api_url", d.FeedURL)
	v.SetDefault("github_token", d.GitHubToken)
	v.SetDefault("request_timeout_seconds", d.RequestTimeoutSeconds)
	v.SetDefault("monitored_event_types", d.MonitoredEventTypes)
	v.SetDefault("entity_event_types", d.EntityEventTypes)
	v.SetDefault("monitoring_frequency_in_seconds", d.MonitoringFrequencySeconds)
	v.SetDefault("cache_events", d.CacheEvents)
	v.SetDefault("cache_backend", d.CacheBackend)
	v.SetDefault("cache_filepath", d.CacheFilepath)
	v.SetDefault("database_url", d.DatabaseURL)
}

// Validate reports configuration the monitor cannot start with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.FeedURL)
	if err != nil {
		return fmt.Errorf("invalid gh_api_url %q: %w", c.FeedURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid gh_api_url %q: must be an absolute http(s) URL", c.FeedURL)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MonitoringFrequencySeconds <= 0 {
		return fmt.Errorf("monitoring_frequency_in_seconds must be positive, got %d", c.MonitoringFrequencySeconds)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive, got %d", c.RequestTimeoutSeconds)
	}
	if len(c.MonitoredEventTypes) == 0 {
		return errors.New("monitored_event_types must list at least one event type")
	}

	if !c.CacheEvents {
		return nil
	}
	switch c.CacheBackend {
	case CacheBackendFile:
		if c.CacheFilepath == "" {
			return errors.New("cache_filepath is required when caching to a file")
		}
	case CacheBackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when caching to postgres")
		}
	default:
		return fmt.Errorf("unknown cache_backend %q", c.CacheBackend)
	}
	return nil
}

// PollInterval returns the time between ingestion cycles.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.MonitoringFrequencySeconds) * time.Second
}

// RequestTimeout returns the HTTP timeout for feed requests.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// WriteDefault writes the default configuration as YAML to path.
// An existing file is never overwritten.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

func cleanList(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
