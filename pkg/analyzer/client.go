// Package analyzer provides the HTTP client for the repository analysis
// service. The client validates input locally, dispatches to the endpoint
// matching the repository's hosting service, and classifies every failure
// into the engine error taxonomy.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pipewright/pipewright/pkg/engine"
	"github.com/pipewright/pipewright/pkg/telemetry"
)

// DefaultTimeout is the upper bound on the wait for one analysis call.
// Analysis of a large repository can take minutes; attempts exceeding this
// bound settle as timeout errors and are never retried automatically.
const DefaultTimeout = 240 * time.Second

// Analysis endpoint paths, one per supported hosting service.
const (
	githubAnalysisPath = "/api/analyze/github"
	gitlabAnalysisPath = "/api/analyze/gitlab"
)

// Config configures the analyzer client.
type Config struct {
	// BaseURL is the analysis service base URL.
	BaseURL string

	// Timeout bounds the wait for one analysis call. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the HTTP client used for requests. Nil means a
	// dedicated client with no client-level timeout; the per-call context
	// carries the bound.
	HTTPClient *http.Client
}

// Client calls the repository analysis service.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *telemetry.Logger
}

// New creates an analyzer client.
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
		logger:  logger.NewComponentLogger("analyzer"),
	}
}

// Analyze inspects the identified repository via the remote analysis service.
// Validation failures return before any network call. The returned error,
// when non-nil, is always a classified *engine.Error.
func (c *Client) Analyze(ctx context.Context, req engine.AnalysisRequest) (*engine.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	endpoint, err := c.endpointFor(req.Source)
	if err != nil {
		return nil, err
	}
	requestURL, err := buildURL(endpoint, req)
	if err != nil {
		return nil, engine.NewValidationError("invalid analysis service URL", err).
			WithOperation("analyze").WithEndpoint(endpoint)
	}

	log := c.logger.WithRepository(req.RepositoryID())
	log.WithField("source", string(req.Source)).Debug("dispatching analysis request")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, engine.NewUnknownError("failed to build analysis request", err).
			WithOperation("analyze").WithEndpoint(endpoint)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		cerr := engine.ClassifyTransport("analyze", endpoint, err)
		log.WithError(cerr).Warn("analysis request failed in transport")
		return nil, cerr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, engine.NewUnknownError("failed to read analysis response", err).
			WithOperation("analyze").WithEndpoint(endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cerr := engine.ClassifyResponse("analyze", endpoint, resp.StatusCode, body)
		log.WithError(cerr).Warnf("analysis rejected with status %d", resp.StatusCode)
		return nil, cerr
	}

	result := &engine.AnalysisResult{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, engine.NewUnknownError("analysis response is not valid JSON", err).
			WithOperation("analyze").WithEndpoint(endpoint)
	}
	if result.RepositoryID == "" {
		result.RepositoryID = req.RepositoryID()
	}
	// Keep the full payload so generation can forward unmodeled fields.
	result.Raw = json.RawMessage(body)

	log.Debug("analysis completed")
	return result, nil
}

// endpointFor returns the full analysis URL for the given source kind.
// The endpoint choice is the only behavioral difference between sources.
func (c *Client) endpointFor(source engine.SourceKind) (string, error) {
	var path string
	switch source {
	case engine.SourceGitHub:
		path = githubAnalysisPath
	case engine.SourceGitLab:
		path = gitlabAnalysisPath
	default:
		return "", engine.NewValidationError(fmt.Sprintf("unsupported source kind: %s", source), nil).
			WithOperation("analyze")
	}
	return c.baseURL + path, nil
}

// buildURL appends the owner/repo query parameters to the endpoint.
func buildURL(endpoint string, req engine.AnalysisRequest) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("owner", req.Owner)
	q.Set("repo", req.Repo)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
