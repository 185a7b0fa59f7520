package payment

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

	domainErrors "github.com/weijianfa/ApolloOracle/internal/domain/errors"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	"github.com/weijianfa/ApolloOracle/internal/pkg/signature"
)

// Client exposes the payment provider operations the core consumes.
type Client interface {
	CreateCheckout(ctx context.Context, order *model.Order) (string, error)
	Refund(ctx context.Context, paymentReference string, amount float64, currency, reason string) error
}

// HTTPClient implements Client via the provider's HTTP API. Outbound
// requests are signed with the same shared secret the provider uses for
// webhook deliveries.
type HTTPClient struct {
	baseURL    *url.URL
	apiKey     string
	merchantID string
	signer     *signature.Verifier
	httpClient *http.Client
	logger     *slog.Logger
}

type checkoutRequest struct {
	MerchantID  string  `json:"merchant_id"`
	OrderID     string  `json:"order_id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	Timestamp   int64   `json:"timestamp"`
}

type checkoutResponse struct {
	PaymentURL string `json:"payment_url"`
}

type refundRequest struct {
	MerchantID       string  `json:"merchant_id"`
	PaymentReference string  `json:"payment_reference"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	Reason           string  `json:"reason"`
	Timestamp        int64   `json:"timestamp"`
}

type refundResponse struct {
	Status string `json:"status"`
}

// NewHTTPClient creates payment client with default timeout.
func NewHTTPClient(baseURL, apiKey, merchantID string, signer *signature.Verifier, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse payment url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("payment url must be absolute")
	}
	return &HTTPClient{
		baseURL:    parsed,
		apiKey:     apiKey,
		merchantID: merchantID,
		signer:     signer,
		logger:     logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// CreateCheckout registers a pending payment and returns the checkout link
// the front-end hands to the user.
func (c *HTTPClient) CreateCheckout(ctx context.Context, order *model.Order) (string, error) {
	product, _ := model.ProductByKind(order.ProductKind)
	body, err := c.post(ctx, "/v1/payments/create", checkoutRequest{
		MerchantID:  c.merchantID,
		OrderID:     order.ID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Description: fmt.Sprintf("%s - Order %s", product.Name, order.ID),
		Timestamp:   time.Now().Unix(),
	})
	if err != nil {
		return "", err
	}

	var data checkoutResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", err
	}
	if data.PaymentURL == "" {
		return "", fmt.Errorf("no payment_url in provider response")
	}
	return data.PaymentURL, nil
}

// Refund asks the provider to return a captured payment. Callers must not
// retry a failed refund automatically; a repeated request risks refunding
// twice.
func (c *HTTPClient) Refund(ctx context.Context, paymentReference string, amount float64, currency, reason string) error {
	body, err := c.post(ctx, "/v1/payments/refund", refundRequest{
		MerchantID:       c.merchantID,
		PaymentReference: paymentReference,
		Amount:           amount,
		Currency:         currency,
		Reason:           reason,
		Timestamp:        time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domainErrors.ErrRefundFailed, err)
	}

	var data refundResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("%w: %w", domainErrors.ErrRefundFailed, err)
	}
	if data.Status != "success" {
		return fmt.Errorf("%w: provider status %q", domainErrors.ErrRefundFailed, data.Status)
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, apiPath string, payload any) ([]byte, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, apiPath)

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Signature", c.signer.Sign(raw))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("payment request failed",
			slog.String("path", apiPath),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return nil, fmt.Errorf("payment provider error: %s", resp.Status)
	}
	return body, nil
}
