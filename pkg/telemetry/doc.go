// Package telemetry provides observability instrumentation for Pipewright.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), metrics (Prometheus), and event publishing into a
// unified system for monitoring analysis and generation attempts.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Async event system for presentation and audit
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "pipewright"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with fluent field helpers:
//
//	logger := tel.Logger.NewComponentLogger("orchestrator")
//	logger = logger.WithRepository("acme/widgets").WithProvider("github-actions")
//	logger.Info("Starting configuration generation")
//	logger.WithError(err).Error("Generation failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// The two remote calls of the orchestration core, analysis and generation,
// each get a dedicated span helper:
//
//	ctx, span := tel.Tracer.StartAnalysisSpan(ctx, "acme/widgets", "github")
//	defer span.End()
//
// # Events
//
// The event publisher carries lifecycle notifications to subscribers; the
// generation.started event doubles as the signal a presentation layer uses to
// surface the in-progress configuration view:
//
//	tel.Events.Subscribe(func(e telemetry.Event) {
//	    // react to the event
//	}, telemetry.FilterByType(telemetry.EventTypeGenerationStarted))
package telemetry
