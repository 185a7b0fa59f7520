package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/weijianfa/ApolloOracle/internal/domain/model"
)

// CreateOrderParams carries the immutable attributes of a new order.
type CreateOrderParams struct {
	ID                 string
	UserRef            string
	ProductKind        model.ProductKind
	Amount             float64
	Currency           string
	RequiresEnrichment bool
	UserInput          json.RawMessage
	AffiliateCode      string
	CommissionRate     *float64
	CommissionAmount   *float64
}

// TransitionPatch lists the optional fields a transition may set alongside
// the status change. Nil fields are left untouched.
type TransitionPatch struct {
	PaymentReference *string
	LastEventID      *string
	RefundPending    *bool
	ErrorMessage     *string
	CompletedAt      *time.Time
}

// OrderRepository describes persistence operations with orders. Every status
// mutation is conditional on the current state matching one of the expected
// sources; a false result means the write lost to a concurrent or earlier
// transition and the caller must re-read before deciding anything further.
type OrderRepository interface {
	Create(ctx context.Context, params CreateOrderParams) (*model.Order, error)
	GetByID(ctx context.Context, orderID string) (*model.Order, error)
	Transition(ctx context.Context, orderID string, sources []model.OrderStatus, target model.OrderStatus, patch TransitionPatch) (bool, error)
	SaveEnrichmentData(ctx context.Context, orderID string, data json.RawMessage) error
	SaveGeneratedContent(ctx context.Context, orderID, content string) error
	MarkRefundPending(ctx context.Context, orderID string) error
	SelectForRecovery(ctx context.Context, stuckFor time.Duration, limit int) ([]model.Order, error)
	ExpirePendingPayments(ctx context.Context, olderThan time.Duration, limit int) ([]model.Order, error)
}
