package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pipewright/pipewright/pkg/engine"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipewright.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.Analyzer.Timeout.Std() != 240*time.Second {
		t.Errorf("analyzer timeout = %s, want 240s", s.Analyzer.Timeout.Std())
	}
	if s.Generator.Timeout.Std() != 240*time.Second {
		t.Errorf("generator timeout = %s, want 240s", s.Generator.Timeout.Std())
	}
	if s.Provider() != engine.ProviderGitHubActions {
		t.Errorf("default provider = %s", s.Provider())
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadSettingsEmptyPathReturnsDefaults(t *testing.T) {
	s, err := LoadSettings("")
	if err != nil {
		t.Fatal(err)
	}
	if s.Store.Path != "pipewright.db" {
		t.Errorf("store path = %q", s.Store.Path)
	}
}

func TestLoadSettingsFile(t *testing.T) {
	path := writeSettings(t, `
analyzer:
  base_url: https://analyzer.internal
  timeout: 90s
generator:
  base_url: https://generator.internal
store:
  path: /var/lib/pipewright/artifacts.db
default_provider: gitlab-ci
telemetry:
  log_level: debug
  metrics_enabled: true
  metrics_port: 9191
`)

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.Analyzer.BaseURL != "https://analyzer.internal" {
		t.Errorf("analyzer base url = %q", s.Analyzer.BaseURL)
	}
	if s.Analyzer.Timeout.Std() != 90*time.Second {
		t.Errorf("analyzer timeout = %s, want 90s", s.Analyzer.Timeout.Std())
	}
	// Unset timeout falls back to the default.
	if s.Generator.Timeout.Std() != 240*time.Second {
		t.Errorf("generator timeout = %s, want default 240s", s.Generator.Timeout.Std())
	}
	if s.Provider() != engine.ProviderGitLabCI {
		t.Errorf("provider = %s", s.Provider())
	}

	cfg := s.TelemetryConfig()
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.ListenAddress != ":9191" {
		t.Errorf("metrics config = %+v", cfg.Metrics)
	}
}

func TestLoadSettingsRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad provider", "default_provider: jenkins\n"},
		{"bad url", "analyzer:\n  base_url: not a url\n"},
		{"bad duration", "analyzer:\n  base_url: http://x\n  timeout: soon\n"},
		{"bad log level", "telemetry:\n  log_level: loud\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadSettings(writeSettings(t, tc.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
