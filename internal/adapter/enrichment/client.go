package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"
)

// ErrInvalidInput indicates the chart service rejected the order input.
// Retrying cannot succeed; the pipeline should fail the order directly.
var ErrInvalidInput = errors.New("enrichment input rejected")

// Client exposes operations to query the chart computation service.
type Client interface {
	Fetch(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// HTTPClient implements Client via HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates HTTP enrichment client with default timeout.
func NewHTTPClient(baseURL, apiKey string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse enrichment url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("enrichment url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Fetch posts the order input and returns the structured chart data.
func (c *HTTPClient) Fetch(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/chart")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(input))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if !json.Valid(body) {
			return nil, fmt.Errorf("enrichment returned malformed payload")
		}
		return body, nil
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("enrichment rejected input", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, ErrInvalidInput
	default:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("enrichment request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("enrichment error: %s", resp.Status)
	}
}
