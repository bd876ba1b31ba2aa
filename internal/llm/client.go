// Package llm talks to the external text-generation endpoint that produces
// and repairs PDP markup.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jonesrussell/structr/internal/logger"
)

// Defaults for the generation endpoint.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "mistral"
	DefaultTimeout = 60 * time.Second

	// maxCallRetries bounds transport retries before the call degrades.
	maxCallRetries = 2
)

// TransportFailure describes a failed round trip to the generation endpoint.
// It is carried as a value inside a Result rather than raised, so batch
// operations keep going.
type TransportFailure struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (f *TransportFailure) Error() string {
	if f.Err != nil {
		return f.Reason + ": " + f.Err.Error()
	}

	return f.Reason
}

// Unwrap exposes the underlying transport error.
func (f *TransportFailure) Unwrap() error { return f.Err }

// Result is the outcome of one generation call: either sanitized markup or a
// typed transport failure. Callers branch on Degraded instead of matching
// error text.
type Result struct {
	Markup  string
	Failure *TransportFailure
}

// Degraded reports whether the call failed at the transport boundary.
func (r Result) Degraded() bool { return r.Failure != nil }

// MarkupOrSentinel returns the generated markup, or the sentinel error
// document when the call degraded. The sentinel keeps persisted bundles
// well-formed so audits of a failed generation still produce a floor score.
func (r Result) MarkupOrSentinel() string {
	if r.Failure == nil {
		return r.Markup
	}

	return "<html><head><title>Error</title></head><body><h1>Generation Error</h1><p>" +
		r.Failure.Error() + "</p></body></html>"
}

// generateRequest is the wire request for the generation endpoint.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the wire response. Any other shape is a call failure.
type generateResponse struct {
	Response string `json:"response"`
}

// Config holds client settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client is an HTTP client for the generation endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	log        logger.Interface
}

// NewClient creates a generation client.
func NewClient(cfg Config, log logger.Interface) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.WithComponent("llm"),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Complete sends a prompt to the generation endpoint and returns the
// sanitized response text. Transport and protocol failures are retried with
// exponential backoff, then captured in the Result; Complete never returns
// an error.
func (c *Client) Complete(ctx context.Context, prompt string) Result {
	var text string

	operation := func() error {
		var callErr error
		text, callErr = c.callOnce(ctx, prompt)

		return callErr
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxCallRetries),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		c.log.Warn("generation call degraded", "error", err)

		return Result{Failure: &TransportFailure{Reason: "generation request failed", Err: err}}
	}

	return Result{Markup: sanitizeMarkup(text)}
}

// callOnce performs a single round trip.
func (c *Client) callOnce(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload),
	)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return decoded.Response, nil
}

// sanitizeMarkup strips the code-fence artifacts models wrap around output.
func sanitizeMarkup(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```html", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	return strings.TrimSpace(cleaned)
}
