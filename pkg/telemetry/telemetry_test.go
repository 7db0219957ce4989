package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad := DefaultConfig()
	bad.Logging.Level = "loud"
	if err := bad.Validate(); err == nil {
		t.Error("invalid log level should fail validation")
	}

	bad = DefaultConfig()
	bad.Tracing.SamplingRate = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("out-of-range sampling rate should fail validation")
	}
}

func TestEventPublisherSyncDelivery(t *testing.T) {
	cfg := EventsConfig{Enabled: true, BufferSize: 10, EnableAsync: false}
	ep, err := NewEventPublisher(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ep.Shutdown(context.Background()) }()

	got := make(chan Event, 1)
	ep.Subscribe(func(e Event) { got <- e }, FilterByType(EventTypeGenerationStarted))

	if err := ep.PublishGenerationStarted("acme/widgets", "circleci"); err != nil {
		t.Fatal(err)
	}
	select {
	case e := <-got:
		if e.Provider != "circleci" || e.Repository != "acme/widgets" {
			t.Errorf("unexpected event fields: %+v", e)
		}
		if e.ID == "" || e.Timestamp.IsZero() {
			t.Error("event should carry an assigned ID and timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	// A filtered-out type must not reach the subscriber.
	if err := ep.PublishAnalysisStarted("acme/widgets", "github"); err != nil {
		t.Fatal(err)
	}
	select {
	case e := <-got:
		t.Errorf("filtered event delivered: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDisabledComponentsAreNoops(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	// Must not panic on a no-op instance.
	m.RecordAnalysisStarted("github")
	m.RecordAnalysisCompleted("github", "success", time.Second)
	m.RecordError("timeout", "analyze")

	ep, err := NewEventPublisher(EventsConfig{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	if err := ep.PublishArtifactSaved("id", "widgets", "circleci"); err != nil {
		t.Errorf("disabled publisher should accept events silently: %v", err)
	}
}

func TestNopTelemetry(t *testing.T) {
	tel := NewNopTelemetry()
	ctx := tel.WithContext(context.Background())
	if FromTelemetryContext(ctx) != tel {
		t.Error("telemetry should round-trip through the context")
	}
	ic := StartOperation(ctx, "analysis.execute")
	ic.End(nil)
}

func TestMetricsGraphGaugesServed(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "pipewright", Path: "/metrics"})
	if err != nil {
		t.Fatal(err)
	}
	m.SetGraphSize(4, 3)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	got := string(body)
	if !strings.Contains(got, "pipewright_graph_stages 4") {
		t.Error("graph stage gauge not exported")
	}
	if !strings.Contains(got, "pipewright_graph_links 3") {
		t.Error("graph link gauge not exported")
	}
}
