package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/weijianfa/ApolloOracle/internal/adapter/notifier"
	"github.com/weijianfa/ApolloOracle/internal/config"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	"github.com/weijianfa/ApolloOracle/internal/usecase"
)

// FulfillmentQueue accepts paid orders for asynchronous processing.
type FulfillmentQueue interface {
	Enqueue(orderID string)
}

// OrderFacade aggregates the application operations exposed to transports
// and to the worker.
type OrderFacade struct {
	orders      *usecase.OrderUseCase
	webhooks    *usecase.WebhookUseCase
	fulfillment *usecase.FulfillmentUseCase
	notifier    notifier.Client
	cfg         *config.Config
	logger      *slog.Logger

	queue FulfillmentQueue
}

// NewOrderFacade constructs OrderFacade.
func NewOrderFacade(
	orders *usecase.OrderUseCase,
	webhooks *usecase.WebhookUseCase,
	fulfillment *usecase.FulfillmentUseCase,
	notifierClient notifier.Client,
	cfg *config.Config,
	logger *slog.Logger,
) *OrderFacade {
	return &OrderFacade{
		orders:      orders,
		webhooks:    webhooks,
		fulfillment: fulfillment,
		notifier:    notifierClient,
		cfg:         cfg,
		logger:      logger,
	}
}

// AttachQueue binds the fulfillment worker's queue. Called once during
// wiring; the worker itself depends on this facade.
func (f *OrderFacade) AttachQueue(queue FulfillmentQueue) {
	f.queue = queue
}

// CreateOrder registers a new order and returns it with its checkout link.
func (f *OrderFacade) CreateOrder(ctx context.Context, userRef string, kind model.ProductKind, input json.RawMessage, affiliateCode string) (*model.Order, string, error) {
	return f.orders.Create(ctx, userRef, kind, input, affiliateCode)
}

// OrderStatus returns the externally visible order state.
func (f *OrderFacade) OrderStatus(ctx context.Context, orderID string) (model.StatusSnapshot, error) {
	return f.orders.Status(ctx, orderID)
}

// ProcessPaymentEvent applies a verified payment event and triggers the
// transition's side effects exactly once, on the applied outcome: the
// acknowledgment message and the asynchronous fulfillment hand-off for
// paid, the failure notice for failed.
func (f *OrderFacade) ProcessPaymentEvent(ctx context.Context, evt model.WebhookEvent) (usecase.WebhookOutcome, error) {
	outcome, order, err := f.webhooks.Process(ctx, evt)
	if err != nil || outcome != usecase.OutcomeApplied {
		return outcome, err
	}

	switch order.Status {
	case model.OrderStatusPaid:
		f.notifyAsync(order, notifier.KindPaymentAck)
		if f.queue != nil {
			f.queue.Enqueue(order.ID)
		} else {
			f.logger.Warn("no fulfillment queue attached, order waits for recovery scan", slog.String("order", order.ID))
		}
	case model.OrderStatusFailed:
		f.notifyAsync(order, notifier.KindFailure)
	}
	return outcome, nil
}

// PendingFulfillments claims orders stuck mid-pipeline.
func (f *OrderFacade) PendingFulfillments(ctx context.Context, limit int) ([]model.Order, error) {
	return f.fulfillment.PendingFulfillments(ctx, limit)
}

// Fulfill runs the pipeline for one order.
func (f *OrderFacade) Fulfill(ctx context.Context, orderID string) error {
	return f.fulfillment.Process(ctx, orderID)
}

// ExpirePayments fails checkouts that outlived the payment window and
// tells each affected user.
func (f *OrderFacade) ExpirePayments(ctx context.Context, limit int) error {
	expired, err := f.fulfillment.ExpirePayments(ctx, limit)
	if err != nil {
		return err
	}
	for i := range expired {
		f.logger.Info("payment window expired",
			slog.String("order", expired[i].ID),
		)
		f.notifyAsync(&expired[i], notifier.KindFailure)
	}
	return nil
}

// notifyAsync fires a user notification without holding up the webhook
// response. Delivery gets the same bounded attempts as the report message;
// exhausting them is logged, the order is unaffected.
func (f *OrderFacade) notifyAsync(order *model.Order, kind notifier.Kind) {
	product, _ := model.ProductByKind(order.ProductKind)
	payload := notifier.Payload{
		OrderID:     order.ID,
		ProductName: product.Name,
		Amount:      order.Amount,
		Currency:    order.Currency,
	}
	userRef := order.UserRef
	orderID := order.ID
	go func() {
		var lastErr error
		for attempt := 1; attempt <= f.cfg.NotifyAttempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), f.cfg.CallTimeout)
			lastErr = f.notifier.Notify(ctx, userRef, kind, payload)
			cancel()
			if lastErr == nil {
				return
			}
			if attempt < f.cfg.NotifyAttempts {
				time.Sleep(f.cfg.RetryBaseDelay << (attempt - 1))
			}
		}
		f.logger.Warn("notification failed",
			slog.String("order", orderID),
			slog.String("kind", string(kind)),
			slog.String("error", lastErr.Error()),
		)
	}()
}
