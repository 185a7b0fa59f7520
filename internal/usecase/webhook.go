package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/weijianfa/ApolloOracle/internal/domain/fsm"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	"github.com/weijianfa/ApolloOracle/internal/domain/repository"
)

// WebhookOutcome classifies how a verified payment event was handled.
type WebhookOutcome string

const (
	// OutcomeApplied means the event mutated the order.
	OutcomeApplied WebhookOutcome = "applied"
	// OutcomeDuplicate means the identical delivery was seen before.
	OutcomeDuplicate WebhookOutcome = "duplicate"
	// OutcomeStale means the event no longer matches the order's state.
	OutcomeStale WebhookOutcome = "stale"
)

// ErrUnknownPaymentStatus marks an event whose status field is not one the
// provider contract defines.
var ErrUnknownPaymentStatus = errors.New("unknown payment status")

// DedupCache is an advisory fast path over the durable processed-event
// record. Seen must never report true for a pair without a durable record,
// so Mark is called only after the database admitted or rejected the pair.
type DedupCache interface {
	Seen(ctx context.Context, orderID, eventID string) bool
	Mark(ctx context.Context, orderID, eventID string)
}

// WebhookUseCase applies verified payment events to orders. Two independent
// idempotency guards protect at-least-once delivery: the processed-event
// record catches replays of the identical delivery, the state machine's
// source-state check catches logically stale events under different ids.
type WebhookUseCase struct {
	orders     repository.OrderRepository
	events     repository.EventRepository
	dedupCache DedupCache
	logger     *slog.Logger
}

// NewWebhookUseCase constructs WebhookUseCase.
func NewWebhookUseCase(orders repository.OrderRepository, events repository.EventRepository, dedupCache DedupCache, logger *slog.Logger) *WebhookUseCase {
	return &WebhookUseCase{orders: orders, events: events, dedupCache: dedupCache, logger: logger}
}

// Process admits and applies one payment event. On OutcomeApplied the
// updated order is returned so the caller can trigger transition side
// effects exactly once.
func (u *WebhookUseCase) Process(ctx context.Context, evt model.WebhookEvent) (WebhookOutcome, *model.Order, error) {
	event, patch, err := mapPaymentEvent(evt)
	if err != nil {
		return "", nil, err
	}

	// Deliveries without an idempotency key rely on the source-state
	// check alone.
	if evt.EventID != "" {
		if u.dedupCache != nil && u.dedupCache.Seen(ctx, evt.OrderID, evt.EventID) {
			return OutcomeDuplicate, nil, nil
		}
		admitted, err := u.events.Admit(ctx, evt.OrderID, evt.EventID)
		if err != nil {
			// Nothing was recorded anywhere: the provider's retry of
			// this same event id starts over cleanly.
			return "", nil, fmt.Errorf("admit event: %w", err)
		}
		// The durable record exists either way now, so the fast path
		// may remember the pair.
		if u.dedupCache != nil {
			u.dedupCache.Mark(ctx, evt.OrderID, evt.EventID)
		}
		if !admitted {
			u.logger.Info("duplicate payment event acknowledged",
				slog.String("order", evt.OrderID),
				slog.String("event", evt.EventID),
			)
			return OutcomeDuplicate, nil, nil
		}
	}

	transition, _ := fsm.Lookup(event)
	applied, err := u.orders.Transition(ctx, evt.OrderID, transition.Sources, transition.Target, patch)
	if err != nil {
		return "", nil, fmt.Errorf("apply %s: %w", event, err)
	}
	if !applied {
		// Distinguish a missing order from a stale event; both are
		// acknowledged, only the former is suspicious enough to log
		// as an error.
		if _, err := u.orders.GetByID(ctx, evt.OrderID); err != nil {
			return "", nil, err
		}
		u.logger.Info("stale payment event acknowledged",
			slog.String("order", evt.OrderID),
			slog.String("event", string(event)),
		)
		return OutcomeStale, nil, nil
	}

	order, err := u.orders.GetByID(ctx, evt.OrderID)
	if err != nil {
		return "", nil, err
	}
	u.logger.Info("payment event applied",
		slog.String("order", evt.OrderID),
		slog.String("event", string(event)),
		slog.String("status", string(order.Status)),
	)
	return OutcomeApplied, order, nil
}

func mapPaymentEvent(evt model.WebhookEvent) (fsm.Event, repository.TransitionPatch, error) {
	patch := repository.TransitionPatch{}
	if evt.EventID != "" {
		eventID := evt.EventID
		patch.LastEventID = &eventID
	}

	switch evt.Status {
	case model.PaymentStatusPaid:
		ref := evt.PaymentReference
		patch.PaymentReference = &ref
		return fsm.EventPaymentConfirmed, patch, nil
	case model.PaymentStatusFailed, model.PaymentStatusCancelled:
		msg := evt.ErrorMessage
		if msg == "" {
			msg = "payment " + string(evt.Status)
		}
		patch.ErrorMessage = &msg
		return fsm.EventPaymentFailed, patch, nil
	default:
		return "", repository.TransitionPatch{}, fmt.Errorf("%w: %q", ErrUnknownPaymentStatus, evt.Status)
	}
}
