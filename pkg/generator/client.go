// Package generator provides the HTTP client for the configuration
// generation service. It submits a serialized workflow with its analysis
// summary and target provider, and classifies failures into the engine error
// taxonomy.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pipewright/pipewright/pkg/engine"
	"github.com/pipewright/pipewright/pkg/telemetry"
)

// DefaultTimeout is the upper bound on the wait for one generation call.
// Generation shares the analysis bound of 240 seconds; attempts exceeding it
// settle as timeout errors and are never retried automatically.
const DefaultTimeout = 240 * time.Second

// generatePath is the generation endpoint path.
const generatePath = "/api/generate"

// Config configures the generator client.
type Config struct {
	// BaseURL is the generation service base URL.
	BaseURL string

	// Timeout bounds the wait for one generation call. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the HTTP client used for requests.
	HTTPClient *http.Client
}

// Client calls the configuration generation service.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *telemetry.Logger
}

// New creates a generator client.
func New(cfg Config, logger *telemetry.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		timeout: timeout,
		http:    httpClient,
		logger:  logger.NewComponentLogger("generator"),
	}
}

// Generate submits the workflow and returns the generated configuration. The
// returned error, when non-nil, is always a classified *engine.Error.
func (c *Client) Generate(ctx context.Context, req engine.GenerationRequest) (*engine.GenerationResult, error) {
	if err := req.Provider.Validate(); err != nil {
		return nil, engine.NewValidationError(err.Error(), err).WithOperation("generate")
	}

	endpoint := c.baseURL + generatePath
	log := c.logger.WithProvider(string(req.Provider))

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, engine.NewUnknownError("failed to encode generation request", err).
			WithOperation("generate").WithEndpoint(endpoint)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, engine.NewUnknownError("failed to build generation request", err).
			WithOperation("generate").WithEndpoint(endpoint)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	log.Debug("submitting workflow for generation")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		cerr := engine.ClassifyTransport("generate", endpoint, err)
		log.WithError(cerr).Warn("generation request failed in transport")
		return nil, cerr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, engine.NewUnknownError("failed to read generation response", err).
			WithOperation("generate").WithEndpoint(endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cerr := engine.ClassifyResponse("generate", endpoint, resp.StatusCode, body)
		log.WithError(cerr).Warnf("generation rejected with status %d", resp.StatusCode)
		return nil, cerr
	}

	result := &engine.GenerationResult{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, engine.NewUnknownError("generation response is not valid JSON", err).
			WithOperation("generate").WithEndpoint(endpoint)
	}
	if result.YAML == "" {
		return nil, engine.NewRemoteError("generation service returned no configuration", nil).
			WithOperation("generate").WithEndpoint(endpoint).WithStatusCode(resp.StatusCode)
	}

	log.Debug("generation completed")
	return result, nil
}
