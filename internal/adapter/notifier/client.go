package notifier

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
)

// Kind names a user-facing message variant.
type Kind string

const (
	KindPaymentAck  Kind = "payment_ack"
	KindReportReady Kind = "report_ready"
	KindFailure     Kind = "failure"
	KindRefundDone  Kind = "refund_done"
)

// Payload carries the order attributes a message may reference.
type Payload struct {
	OrderID     string
	ProductName string
	Amount      float64
	Currency    string
	Content     string
}

// Client delivers user-facing messages over the bot messaging channel.
type Client interface {
	Notify(ctx context.Context, userRef string, kind Kind, payload Payload) error
}

// HTTPClient implements Client against a bot send-message API.
type HTTPClient struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK bool `json:"ok"`
}

// NewHTTPClient creates notifier client with default timeout.
func NewHTTPClient(baseURL, token string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse notifier url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("notifier url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		token:   token,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Notify renders the message for the given kind and delivers it.
func (c *HTTPClient) Notify(ctx context.Context, userRef string, kind Kind, payload Payload) error {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/bot"+c.token+"/sendMessage")

	raw, err := json.Marshal(sendMessageRequest{
		ChatID: userRef,
		Text:   renderText(kind, payload),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("notifier request failed",
			slog.String("kind", string(kind)),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return fmt.Errorf("notifier error: %s", resp.Status)
	}

	var data sendMessageResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return err
	}
	if !data.OK {
		return fmt.Errorf("notifier rejected message")
	}
	return nil
}

func renderText(kind Kind, p Payload) string {
	switch kind {
	case KindPaymentAck:
		return fmt.Sprintf(
			"Payment received.\n\nOrder: %s\nProduct: %s\nAmount: %.2f %s\n\nYour report is being generated, this usually takes under a minute.",
			p.OrderID, p.ProductName, p.Amount, p.Currency,
		)
	case KindReportReady:
		return fmt.Sprintf("Your %s is ready.\n\n%s", p.ProductName, p.Content)
	case KindFailure:
		return fmt.Sprintf(
			"We could not complete order %s (%s). If your payment was captured it will be refunded.",
			p.OrderID, p.ProductName,
		)
	case KindRefundDone:
		return fmt.Sprintf(
			"Order %s has been refunded in full (%.2f %s). Sorry for the inconvenience.",
			p.OrderID, p.Amount, p.Currency,
		)
	default:
		return fmt.Sprintf("Update for order %s.", p.OrderID)
	}
}
