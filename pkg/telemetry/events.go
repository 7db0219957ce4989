package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the Pipewright system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// Repository is the associated repository identifier, if applicable.
	Repository string `json:"repository,omitempty"`

	// Provider is the associated CI provider, if applicable.
	Provider string `json:"provider,omitempty"`

	// ArtifactID is the associated artifact ID, if applicable.
	ArtifactID string `json:"artifact_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeAnalysisStarted    = "analysis.started"
	EventTypeAnalysisCompleted  = "analysis.completed"
	EventTypeAnalysisFailed     = "analysis.failed"
	EventTypeGenerationStarted  = "generation.started"
	EventTypeGenerationComplete = "generation.completed"
	EventTypeGenerationFailed   = "generation.failed"
	EventTypeArtifactSaved      = "artifact.saved"
	EventTypeGraphSynthesized   = "graph.synthesized"
	EventTypePolicyViolation    = "policy.violation"
	EventTypeError              = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise process immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishAnalysisStarted publishes an analysis started event.
func (ep *EventPublisher) PublishAnalysisStarted(repository, source string) error {
	return ep.Publish(Event{
		Type:       EventTypeAnalysisStarted,
		Source:     "orchestrator",
		Repository: repository,
		Message:    fmt.Sprintf("Analysis of %s started via %s", repository, source),
		Level:      EventLevelInfo,
		Data: map[string]interface{}{
			"source_kind": source,
		},
	})
}

// PublishAnalysisCompleted publishes an analysis completed event.
func (ep *EventPublisher) PublishAnalysisCompleted(repository string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:       EventTypeAnalysisCompleted,
		Source:     "orchestrator",
		Repository: repository,
		Message:    fmt.Sprintf("Analysis of %s completed", repository),
		Level:      EventLevelInfo,
		Data: map[string]interface{}{
			"duration": duration.Seconds(),
		},
	})
}

// PublishAnalysisFailed publishes an analysis failed event.
func (ep *EventPublisher) PublishAnalysisFailed(repository, reason string) error {
	return ep.Publish(Event{
		Type:       EventTypeAnalysisFailed,
		Source:     "orchestrator",
		Repository: repository,
		Message:    fmt.Sprintf("Analysis of %s failed: %s", repository, reason),
		Level:      EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishGenerationStarted publishes a generation started event. Presentation
// layers subscribe to this to surface the in-progress configuration view.
func (ep *EventPublisher) PublishGenerationStarted(repository, provider string) error {
	return ep.Publish(Event{
		Type:       EventTypeGenerationStarted,
		Source:     "orchestrator",
		Repository: repository,
		Provider:   provider,
		Message:    fmt.Sprintf("Configuration generation for %s targeting %s started", repository, provider),
		Level:      EventLevelInfo,
	})
}

// PublishGenerationCompleted publishes a generation completed event.
func (ep *EventPublisher) PublishGenerationCompleted(repository, provider string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:       EventTypeGenerationComplete,
		Source:     "orchestrator",
		Repository: repository,
		Provider:   provider,
		Message:    fmt.Sprintf("Configuration for %s targeting %s generated", repository, provider),
		Level:      EventLevelInfo,
		Data: map[string]interface{}{
			"duration": duration.Seconds(),
		},
	})
}

// PublishGenerationFailed publishes a generation failed event.
func (ep *EventPublisher) PublishGenerationFailed(repository, provider, reason string) error {
	return ep.Publish(Event{
		Type:       EventTypeGenerationFailed,
		Source:     "orchestrator",
		Repository: repository,
		Provider:   provider,
		Message:    fmt.Sprintf("Configuration generation for %s failed: %s", repository, reason),
		Level:      EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishArtifactSaved publishes an artifact saved event.
func (ep *EventPublisher) PublishArtifactSaved(artifactID, projectName, provider string) error {
	return ep.Publish(Event{
		Type:       EventTypeArtifactSaved,
		Source:     "store",
		ArtifactID: artifactID,
		Provider:   provider,
		Message:    fmt.Sprintf("Artifact %s saved for project %s", artifactID, projectName),
		Level:      EventLevelInfo,
		Data: map[string]interface{}{
			"project_name": projectName,
		},
	})
}

// PublishGraphSynthesized publishes a graph synthesized event.
func (ep *EventPublisher) PublishGraphSynthesized(repository string, stageCount int) error {
	return ep.Publish(Event{
		Type:       EventTypeGraphSynthesized,
		Source:     "pipeline",
		Repository: repository,
		Message:    fmt.Sprintf("Pipeline graph synthesized from %s (%d stages)", repository, stageCount),
		Level:      EventLevelInfo,
		Data: map[string]interface{}{
			"stage_count": stageCount,
		},
	})
}

// PublishPolicyViolation publishes a policy violation event.
func (ep *EventPublisher) PublishPolicyViolation(repository, policyName, reason string) error {
	return ep.Publish(Event{
		Type:       EventTypePolicyViolation,
		Source:     "policy_engine",
		Repository: repository,
		Message:    fmt.Sprintf("Policy violation for %s: %s - %s", repository, policyName, reason),
		Level:      EventLevelError,
		Data: map[string]interface{}{
			"policy": policyName,
			"reason": reason,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			// Flush batch if it reaches max size
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-time.After(ep.config.FlushInterval):
			if len(batch) > 0 {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Flush remaining events before shutting down
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Call subscriber in a goroutine to avoid blocking
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByRepository creates a filter that only allows events for a specific repository.
func FilterByRepository(repository string) EventFilter {
	return func(event Event) bool {
		return event.Repository == repository
	}
}

// FilterByProvider creates a filter that only allows events for a specific CI provider.
func FilterByProvider(provider string) EventFilter {
	return func(event Event) bool {
		return event.Provider == provider
	}
}
