package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "configuration.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoad_Defaults tests loading config when no file or environment is set.
// Follows AAA (Arrange, Act, Assert) pattern.
func TestLoad_Defaults(t *testing.T) {
	// Arrange
	t.Setenv("PORT", "")

	// Act
	cfg, err := Load("")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.FeedURL != "https://api.github.com/events" {
		t.Errorf("unexpected feed URL %q", cfg.FeedURL)
	}
	if cfg.PollInterval() != time.Minute {
		t.Errorf("expected 1m poll interval, got %v", cfg.PollInterval())
	}
	if cfg.CacheEvents {
		t.Error("expected caching to be disabled by default")
	}
}

// TestLoad_File tests reading the original configuration keys from YAML.
func TestLoad_File(t *testing.T) {
	// Arrange
	path := writeConfig(t, `
gh_api_url: https://example.test/events
monitored_event_types:
  - WatchEvent
  - PullRequestEvent
monitoring_frequency_in_seconds: 5
cache_events: true
cache_filepath: /tmp/events.jsonl
`)

	// Act
	cfg, err := Load(path)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.FeedURL != "https://example.test/events" {
		t.Errorf("unexpected feed URL %q", cfg.FeedURL)
	}
	if len(cfg.MonitoredEventTypes) != 2 || cfg.MonitoredEventTypes[1] != "PullRequestEvent" {
		t.Errorf("unexpected monitored types %v", cfg.MonitoredEventTypes)
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Errorf("expected 5s interval, got %v", cfg.PollInterval())
	}
	if !cfg.CacheEvents || cfg.CacheFilepath != "/tmp/events.jsonl" || cfg.CacheBackend != CacheBackendFile {
		t.Errorf("unexpected cache settings %+v", cfg)
	}
}

// TestLoad_EnvOverridesFile tests environment precedence over the file.
func TestLoad_EnvOverridesFile(t *testing.T) {
	// Arrange
	path := writeConfig(t, "monitoring_frequency_in_seconds: 5\n")
	t.Setenv("MONITOR_MONITORING_FREQUENCY_IN_SECONDS", "15")
	t.Setenv("MONITOR_MONITORED_EVENT_TYPES", "ForkEvent, WatchEvent")
	t.Setenv("GITHUB_TOKEN", "secret")
	t.Setenv("PORT", "3000")

	// Act
	cfg, err := Load(path)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.MonitoringFrequencySeconds != 15 {
		t.Errorf("expected env interval 15, got %d", cfg.MonitoringFrequencySeconds)
	}
	if len(cfg.MonitoredEventTypes) != 2 || cfg.MonitoredEventTypes[0] != "ForkEvent" || cfg.MonitoredEventTypes[1] != "WatchEvent" {
		t.Errorf("unexpected monitored types %v", cfg.MonitoredEventTypes)
	}
	if cfg.GitHubToken != "secret" {
		t.Errorf("expected token from GITHUB_TOKEN, got %q", cfg.GitHubToken)
	}
	if cfg.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Port)
	}
}

// TestLoad_MissingExplicitFile tests that an explicit path must exist.
func TestLoad_MissingExplicitFile(t *testing.T) {
	// Act
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	// Assert
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// TestValidate tests rejection of configurations the monitor cannot run with.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "relative url", mutate: func(c *Config) { c.FeedURL = "/events" }, wantErr: "gh_api_url"},
		{name: "bad scheme", mutate: func(c *Config) { c.FeedURL = "ftp://example.test/events" }, wantErr: "gh_api_url"},
		{name: "zero interval", mutate: func(c *Config) { c.MonitoringFrequencySeconds = 0 }, wantErr: "monitoring_frequency"},
		{name: "no kinds", mutate: func(c *Config) { c.MonitoredEventTypes = nil }, wantErr: "monitored_event_types"},
		{name: "bad port", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "port"},
		{name: "file cache without path", mutate: func(c *Config) { c.CacheEvents = true; c.CacheFilepath = "" }, wantErr: "cache_filepath"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.CacheEvents = true; c.CacheBackend = CacheBackendPostgres }, wantErr: "database_url"},
		{name: "unknown backend", mutate: func(c *Config) { c.CacheEvents = true; c.CacheBackend = "s3" }, wantErr: "cache_backend"},
		{name: "backend ignored when caching off", mutate: func(c *Config) { c.CacheBackend = "s3" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg := Default()
			tt.mutate(cfg)

			// Act
			err := cfg.Validate()

			// Assert
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestWriteDefault tests that the written file loads back as the defaults.
func TestWriteDefault(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "cfg", "configuration.yaml")

	// Act
	err := WriteDefault(path)
	cfg, loadErr := Load(path)
	secondErr := WriteDefault(path)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if loadErr != nil {
		t.Fatalf("expected written config to load, got %v", loadErr)
	}
	if cfg.FeedURL != Default().FeedURL || cfg.MonitoringFrequencySeconds != Default().MonitoringFrequencySeconds {
		t.Errorf("unexpected loaded config %+v", cfg)
	}
	if secondErr == nil {
		t.Error("expected existing file not to be overwritten")
	}
}
