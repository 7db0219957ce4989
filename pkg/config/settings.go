package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pipewright/pipewright/pkg/engine"
	"github.com/pipewright/pipewright/pkg/telemetry"
)

// Duration wraps time.Duration so settings files can use readable values
// like "240s" or "4m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServiceSettings configures one of the two remote services.
type ServiceSettings struct {
	// BaseURL is the root URL of the service, without a trailing slash.
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// Timeout is the upper bound for a single request. Attempts that
	// exceed it settle as timeouts and are never retried.
	Timeout Duration `yaml:"timeout"`
}

// StoreSettings configures artifact persistence.
type StoreSettings struct {
	// Path is the SQLite database file. The enclosing directory is
	// created on first use.
	Path string `yaml:"path" validate:"required"`
}

// TelemetrySettings is the settings-file view of telemetry configuration.
type TelemetrySettings struct {
	LogLevel        string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	LogFormat       string `yaml:"log_format" validate:"omitempty,oneof=console json"`
	MetricsEnabled  bool   `yaml:"metrics_enabled"`
	MetricsPort     int    `yaml:"metrics_port" validate:"omitempty,min=1,max=65535"`
	TracingEnabled  bool   `yaml:"tracing_enabled"`
	TracingExporter string `yaml:"tracing_exporter" validate:"omitempty,oneof=otlp stdout none"`
	TracingEndpoint string `yaml:"tracing_endpoint"`
}

// Settings is the full application configuration, loaded from a YAML file
// with defaults applied for anything left unset.
type Settings struct {
	// Analyzer is the repository analysis service.
	Analyzer ServiceSettings `yaml:"analyzer" validate:"required"`

	// Generator is the configuration generation service.
	Generator ServiceSettings `yaml:"generator" validate:"required"`

	// Store configures artifact persistence.
	Store StoreSettings `yaml:"store" validate:"required"`

	// DefaultProvider is the CI provider used when none is selected.
	DefaultProvider string `yaml:"default_provider" validate:"omitempty,oneof=github-actions gitlab-ci circleci"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetrySettings `yaml:"telemetry"`
}

// DefaultTimeout bounds a single analysis or generation request.
const DefaultTimeout = 240 * time.Second

// DefaultSettings returns the settings used when no file is provided.
func DefaultSettings() *Settings {
	return &Settings{
		Analyzer: ServiceSettings{
			BaseURL: "http://localhost:8040",
			Timeout: Duration(DefaultTimeout),
		},
		Generator: ServiceSettings{
			BaseURL: "http://localhost:8041",
			Timeout: Duration(DefaultTimeout),
		},
		Store: StoreSettings{
			Path: "pipewright.db",
		},
		DefaultProvider: string(engine.DefaultProvider),
		Telemetry: TelemetrySettings{
			LogLevel:        "info",
			LogFormat:       "console",
			MetricsPort:     9090,
			TracingExporter: "stdout",
		},
	}
}

// LoadSettings reads a YAML settings file and validates the result.
// An empty path returns the defaults.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	settings.applyDefaults()

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return settings, nil
}

// applyDefaults fills zero values left by a partial settings file.
func (s *Settings) applyDefaults() {
	def := DefaultSettings()
	if s.Analyzer.Timeout == 0 {
		s.Analyzer.Timeout = def.Analyzer.Timeout
	}
	if s.Generator.Timeout == 0 {
		s.Generator.Timeout = def.Generator.Timeout
	}
	if s.Store.Path == "" {
		s.Store.Path = def.Store.Path
	}
	if s.DefaultProvider == "" {
		s.DefaultProvider = def.DefaultProvider
	}
	if s.Telemetry.LogLevel == "" {
		s.Telemetry.LogLevel = def.Telemetry.LogLevel
	}
	if s.Telemetry.LogFormat == "" {
		s.Telemetry.LogFormat = def.Telemetry.LogFormat
	}
	if s.Telemetry.MetricsPort == 0 {
		s.Telemetry.MetricsPort = def.Telemetry.MetricsPort
	}
	if s.Telemetry.TracingExporter == "" {
		s.Telemetry.TracingExporter = def.Telemetry.TracingExporter
	}
}

// Validate checks the settings against their struct tags.
func (s *Settings) Validate() error {
	return validator.New().Struct(s)
}

// Provider returns the configured default provider as a typed value.
func (s *Settings) Provider() engine.CIProvider {
	return engine.CIProvider(s.DefaultProvider)
}

// TelemetryConfig maps the settings-file telemetry section onto the full
// telemetry configuration.
func (s *Settings) TelemetryConfig() *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = s.Telemetry.LogLevel
	cfg.Logging.Format = s.Telemetry.LogFormat
	cfg.Metrics.Enabled = s.Telemetry.MetricsEnabled
	cfg.Metrics.ListenAddress = fmt.Sprintf(":%d", s.Telemetry.MetricsPort)
	cfg.Tracing.Enabled = s.Telemetry.TracingEnabled
	if s.Telemetry.TracingExporter != "" {
		cfg.Tracing.Exporter = s.Telemetry.TracingExporter
	}
	if s.Telemetry.TracingEndpoint != "" {
		cfg.Tracing.Endpoint = s.Telemetry.TracingEndpoint
	}
	return cfg
}
