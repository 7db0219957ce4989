package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/pipewright/pipewright/pkg/analyzer"
	"github.com/pipewright/pipewright/pkg/config"
	"github.com/pipewright/pipewright/pkg/engine"
	"github.com/pipewright/pipewright/pkg/generator"
	"github.com/pipewright/pipewright/pkg/providers"
	"github.com/pipewright/pipewright/pkg/stores"
	"github.com/pipewright/pipewright/pkg/telemetry"
)

// app bundles the wired collaborators every command needs: settings,
// telemetry and client constructors bound to the configured endpoints.
type app struct {
	settings *config.Settings
	tel      *telemetry.Telemetry
}

// newApp loads settings and initializes telemetry, honoring the global
// --verbose and --json flags over the settings file.
func newApp() (*app, error) {
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}

	cfg := settings.TelemetryConfig()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if jsonOutput {
		cfg.Logging.Format = "json"
	}

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	// No-op unless metrics_enabled is set in the settings file.
	if err := tel.StartMetricsServer(); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}

	return &app{settings: settings, tel: tel}, nil
}

// close flushes and shuts down telemetry.
func (a *app) close(ctx context.Context) {
	_ = a.tel.Shutdown(ctx)
}

// analyzerClient builds the analysis service client from settings.
func (a *app) analyzerClient() *analyzer.Client {
	return analyzer.New(analyzer.Config{
		BaseURL: a.settings.Analyzer.BaseURL,
		Timeout: a.settings.Analyzer.Timeout.Std(),
	}, a.tel.Logger)
}

// generatorClient builds the generation service client from settings.
func (a *app) generatorClient() *generator.Client {
	return generator.New(generator.Config{
		BaseURL: a.settings.Generator.BaseURL,
		Timeout: a.settings.Generator.Timeout.Std(),
	}, a.tel.Logger)
}

// openStore opens and migrates the artifact store.
func (a *app) openStore(ctx context.Context) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: a.settings.Store.Path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// parseRepoArg splits an "owner/repo" argument into an analysis request.
func parseRepoArg(arg, source string) (engine.AnalysisRequest, error) {
	parts := strings.SplitN(arg, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return engine.AnalysisRequest{}, fmt.Errorf("repository must be given as owner/repo, got %q", arg)
	}
	req := engine.AnalysisRequest{
		Owner:  parts[0],
		Repo:   parts[1],
		Source: engine.SourceKind(source),
	}
	if err := req.Validate(); err != nil {
		return engine.AnalysisRequest{}, err
	}
	return req, nil
}

// resolveProvider routes the provider flag through a selection cell seeded
// with the settings default. An unsupported flag leaves the default in place
// and is reported as a validation error.
func (a *app) resolveProvider(flag string) (engine.CIProvider, error) {
	selection := providers.NewSelection()
	if err := selection.Select(a.settings.Provider()); err != nil {
		return "", err
	}
	if flag != "" {
		if err := selection.Select(engine.CIProvider(flag)); err != nil {
			return "", err
		}
	}
	return selection.Current(), nil
}
