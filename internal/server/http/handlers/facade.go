package handlers

import (
	"context"
	"encoding/json"

	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	"github.com/weijianfa/ApolloOracle/internal/usecase"
)

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	CreateOrder(ctx context.Context, userRef string, kind model.ProductKind, input json.RawMessage, affiliateCode string) (*model.Order, string, error)
	OrderStatus(ctx context.Context, orderID string) (model.StatusSnapshot, error)
}

// WebhookFacade applies verified payment events.
type WebhookFacade interface {
	ProcessPaymentEvent(ctx context.Context, evt model.WebhookEvent) (usecase.WebhookOutcome, error)
}

// Facade aggregates the full set of operations used across handlers.
type Facade interface {
	OrderFacade
	WebhookFacade
}
