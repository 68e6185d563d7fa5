// Package embedding adapts an external text-embedding provider. The client
// is a pure single-shot adapter: no retries are baked in, callers decide
// whether to retry or skip the cycle on failure.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
)

// ErrEmptyInput is returned when Embed is called with no text.
var ErrEmptyInput = errors.New("embedding input is empty")

const defaultTimeout = 30 * time.Second

// Config holds embedding provider configuration.
type Config struct {
	// Endpoint is the provider base URL (OpenAI-compatible /v1/embeddings).
	Endpoint string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Model is the embedding model name.
	Model string
	// ExpectedDim, when non-zero, rejects vectors of any other dimension.
	ExpectedDim int
	// Timeout bounds each provider call.
	Timeout time.Duration
}

// Client calls an OpenAI-format embeddings endpoint.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	expectedDim int
	httpClient  *http.Client
}

// NewClient creates an embedding client. An empty endpoint is a
// configuration error, fatal at startup.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("embedding endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		expectedDim: cfg.ExpectedDim,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// embedRequest is the JSON body sent to /v1/embeddings.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the OpenAI-format response from /v1/embeddings.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed returns the provider's vector for the given text. Failures are
// explicit provider errors, never a silent empty vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	body, err := json.Marshal(embedRequest{
		Model: c.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.ProviderError(fmt.Errorf("POST %s: %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.ProviderError(fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(respBody)))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, domain.ProviderError(fmt.Errorf("decode response: %w", err))
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, domain.ProviderError(fmt.Errorf("no embedding returned from %s", url))
	}

	vec := result.Data[0].Embedding
	if c.expectedDim > 0 && len(vec) != c.expectedDim {
		return nil, domain.DimensionError(c.expectedDim, len(vec))
	}

	return vec, nil
}
