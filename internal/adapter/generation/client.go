package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/weijianfa/ApolloOracle/internal/domain/model"
)

// Client exposes report generation for a single order.
type Client interface {
	Generate(ctx context.Context, kind model.ProductKind, input, enrichment json.RawMessage) (string, error)
}

// HTTPClient implements Client against a chat-completion style API.
type HTTPClient struct {
	baseURL    *url.URL
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewHTTPClient creates a generation client. The HTTP client carries no
// timeout of its own; each call is bounded by the caller's context.
func NewHTTPClient(baseURL, apiKey, generationModel string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse generation url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("generation url must be absolute")
	}
	return &HTTPClient{
		baseURL:    parsed,
		apiKey:     apiKey,
		model:      generationModel,
		logger:     logger,
		httpClient: &http.Client{},
	}, nil
}

// Generate requests a personalized report for the given product kind. The
// enrichment payload, when present, is embedded as the structured basis of
// the report.
func (c *HTTPClient) Generate(ctx context.Context, kind model.ProductKind, input, enrichment json.RawMessage) (string, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/chat/completions")

	payload, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: buildMessages(kind, input, enrichment),
		Stream:   false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("generation request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return "", fmt.Errorf("generation error: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var data chatResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", err
	}
	if len(data.Choices) == 0 || data.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("generation returned empty report")
	}

	c.logger.Info("report generated",
		slog.String("product", string(kind)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return data.Choices[0].Message.Content, nil
}

func buildMessages(kind model.ProductKind, input, enrichment json.RawMessage) []chatMessage {
	system := "You are a professional astrology report writer. Write a warm, personalized report for the product: " + string(kind) + "."
	user := "Order input: " + string(input)
	if len(enrichment) > 0 {
		user += "\nChart data (use as the factual basis of the report): " + string(enrichment)
	}
	return []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}
