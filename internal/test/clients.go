package test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/weijianfa/ApolloOracle/internal/adapter/notifier"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
)

// PaymentClientStub simulates the payment provider API.
type PaymentClientStub struct {
	CreateCheckoutFn func(context.Context, *model.Order) (string, error)
	RefundFn         func(context.Context, string, float64, string, string) error

	Refunds []RefundCall

	mu sync.Mutex
}

// RefundCall stores information about Refund invocations.
type RefundCall struct {
	PaymentReference string
	Amount           float64
	Currency         string
	Reason           string
}

// CreateCheckout returns a deterministic checkout link.
func (s *PaymentClientStub) CreateCheckout(ctx context.Context, order *model.Order) (string, error) {
	if s.CreateCheckoutFn != nil {
		return s.CreateCheckoutFn(ctx, order)
	}
	return "https://pay.example/" + order.ID, nil
}

// Refund records the call and delegates to the override when present.
func (s *PaymentClientStub) Refund(ctx context.Context, paymentReference string, amount float64, currency, reason string) error {
	s.mu.Lock()
	s.Refunds = append(s.Refunds, RefundCall{PaymentReference: paymentReference, Amount: amount, Currency: currency, Reason: reason})
	s.mu.Unlock()
	if s.RefundFn != nil {
		return s.RefundFn(ctx, paymentReference, amount, currency, reason)
	}
	return nil
}

// EnrichmentClientStub simulates the chart data API.
type EnrichmentClientStub struct {
	FetchFn func(context.Context, json.RawMessage) (json.RawMessage, error)
	Calls   int

	mu sync.Mutex
}

// Fetch counts invocations and returns configured data.
func (s *EnrichmentClientStub) Fetch(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	s.mu.Lock()
	s.Calls++
	s.mu.Unlock()
	if s.FetchFn != nil {
		return s.FetchFn(ctx, input)
	}
	return json.RawMessage(`{"chart":"stub"}`), nil
}

// GenerationClientStub simulates the report generation API.
type GenerationClientStub struct {
	GenerateFn func(context.Context, model.ProductKind, json.RawMessage, json.RawMessage) (string, error)
	Calls      int

	mu sync.Mutex
}

// Generate counts invocations and returns configured content.
func (s *GenerationClientStub) Generate(ctx context.Context, kind model.ProductKind, input, enrichment json.RawMessage) (string, error) {
	s.mu.Lock()
	s.Calls++
	s.mu.Unlock()
	if s.GenerateFn != nil {
		return s.GenerateFn(ctx, kind, input, enrichment)
	}
	return "stub report", nil
}

// NotificationCall stores information about Notify invocations.
type NotificationCall struct {
	UserRef string
	Kind    notifier.Kind
	Payload notifier.Payload
}

// NotifierClientStub records delivered notifications.
type NotifierClientStub struct {
	NotifyFn      func(context.Context, string, notifier.Kind, notifier.Payload) error
	Notifications []NotificationCall

	mu sync.Mutex
}

// Notify records the call and delegates to the override when present.
func (s *NotifierClientStub) Notify(ctx context.Context, userRef string, kind notifier.Kind, payload notifier.Payload) error {
	s.mu.Lock()
	s.Notifications = append(s.Notifications, NotificationCall{UserRef: userRef, Kind: kind, Payload: payload})
	s.mu.Unlock()
	if s.NotifyFn != nil {
		return s.NotifyFn(ctx, userRef, kind, payload)
	}
	return nil
}

// Kinds returns the recorded notification kinds in delivery order.
func (s *NotifierClientStub) Kinds() []notifier.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]notifier.Kind, 0, len(s.Notifications))
	for _, n := range s.Notifications {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}
