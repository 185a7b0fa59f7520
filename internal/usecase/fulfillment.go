package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/weijianfa/ApolloOracle/internal/adapter/enrichment"
	"github.com/weijianfa/ApolloOracle/internal/adapter/generation"
	"github.com/weijianfa/ApolloOracle/internal/adapter/notifier"
	"github.com/weijianfa/ApolloOracle/internal/adapter/payment"
	"github.com/weijianfa/ApolloOracle/internal/domain/fsm"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	"github.com/weijianfa/ApolloOracle/internal/domain/repository"
)

// FulfillmentConfig bounds the orchestrator's downstream calls.
type FulfillmentConfig struct {
	RetryAttempts  int
	RetryBaseDelay time.Duration
	CallTimeout    time.Duration
	NotifyAttempts int
	StuckThreshold time.Duration
	PaymentTimeout time.Duration
}

// FulfillmentUseCase runs the fixed pipeline for a paid order: optional
// enrichment, report generation, delivery, affiliate credit. Steps are
// idempotent: the order is re-read before acting and any step whose output
// is already recorded is skipped, so re-invocation after a crash resumes
// instead of restarting. Unrecoverable step failure compensates with a
// single refund attempt.
type FulfillmentUseCase struct {
	orders     repository.OrderRepository
	ledger     repository.LedgerRepository
	enrichment enrichment.Client
	generation generation.Client
	notifier   notifier.Client
	payments   payment.Client
	cfg        FulfillmentConfig
	logger     *slog.Logger
}

// NewFulfillmentUseCase constructs FulfillmentUseCase.
func NewFulfillmentUseCase(
	orders repository.OrderRepository,
	ledger repository.LedgerRepository,
	enrichmentClient enrichment.Client,
	generationClient generation.Client,
	notifierClient notifier.Client,
	payments payment.Client,
	cfg FulfillmentConfig,
	logger *slog.Logger,
) *FulfillmentUseCase {
	return &FulfillmentUseCase{
		orders:     orders,
		ledger:     ledger,
		enrichment: enrichmentClient,
		generation: generationClient,
		notifier:   notifierClient,
		payments:   payments,
		cfg:        cfg,
		logger:     logger,
	}
}

// PendingFulfillments claims orders stuck mid-pipeline for re-processing.
func (u *FulfillmentUseCase) PendingFulfillments(ctx context.Context, limit int) ([]model.Order, error) {
	return u.orders.SelectForRecovery(ctx, u.cfg.StuckThreshold, limit)
}

// ExpirePayments fails pending orders whose checkout was never completed
// within the payment window and returns them for user notification.
func (u *FulfillmentUseCase) ExpirePayments(ctx context.Context, limit int) ([]model.Order, error) {
	return u.orders.ExpirePendingPayments(ctx, u.cfg.PaymentTimeout, limit)
}

// Process drives one order through the pipeline to a terminal state.
func (u *FulfillmentUseCase) Process(ctx context.Context, orderID string) error {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}

	switch order.Status {
	case model.OrderStatusPaid, model.OrderStatusGenerating:
	default:
		// Terminal or not yet paid: nothing to do for this work item.
		return nil
	}

	if order.Status == model.OrderStatusPaid {
		order, err = u.enrichmentStep(ctx, order)
		if err != nil || order == nil {
			return err
		}
	}

	return u.generationStep(ctx, order)
}

// enrichmentStep fetches chart data when the product needs it, then applies
// the enrichment_done bookkeeping transition. Orders without enrichment
// pass through the same transition so every pipeline reaches generating.
// A nil order return means another worker took over.
func (u *FulfillmentUseCase) enrichmentStep(ctx context.Context, order *model.Order) (*model.Order, error) {
	if order.RequiresEnrichment && len(order.EnrichmentData) == 0 {
		var data json.RawMessage
		policy := u.retryPolicy()
		err := policy.run(ctx, u.logger, "enrichment", func(callCtx context.Context) error {
			var fetchErr error
			data, fetchErr = u.enrichment.Fetch(callCtx, order.UserInput)
			return fetchErr
		}, enrichment.ErrInvalidInput)
		if err != nil {
			return nil, u.failPipeline(ctx, order, fmt.Sprintf("enrichment failed: %v", err))
		}
		if err := u.orders.SaveEnrichmentData(ctx, order.ID, data); err != nil {
			return nil, fmt.Errorf("save enrichment data: %w", err)
		}
		order.EnrichmentData = data
	}

	transition, _ := fsm.Lookup(fsm.EventEnrichmentDone)
	applied, err := u.orders.Transition(ctx, order.ID, transition.Sources, transition.Target, repository.TransitionPatch{})
	if err != nil {
		return nil, fmt.Errorf("apply enrichment_done: %w", err)
	}
	if !applied {
		fresh, err := u.orders.GetByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if fresh.Status != model.OrderStatusGenerating {
			// Lost the race to a concurrent transition; whoever won
			// owns the rest of the pipeline.
			return nil, nil
		}
		return fresh, nil
	}
	order.Status = model.OrderStatusGenerating
	return order, nil
}

func (u *FulfillmentUseCase) generationStep(ctx context.Context, order *model.Order) error {
	if order.GeneratedContent == "" {
		var content string
		policy := u.retryPolicy()
		err := policy.run(ctx, u.logger, "generation", func(callCtx context.Context) error {
			var genErr error
			content, genErr = u.generation.Generate(callCtx, order.ProductKind, order.UserInput, order.EnrichmentData)
			return genErr
		})
		if err != nil {
			return u.failPipeline(ctx, order, fmt.Sprintf("generation failed: %v", err))
		}
		if err := u.orders.SaveGeneratedContent(ctx, order.ID, content); err != nil {
			return fmt.Errorf("save generated content: %w", err)
		}
		order.GeneratedContent = content
	}

	now := time.Now()
	transition, _ := fsm.Lookup(fsm.EventGenerationDone)
	applied, err := u.orders.Transition(ctx, order.ID, transition.Sources, transition.Target, repository.TransitionPatch{CompletedAt: &now})
	if err != nil {
		return fmt.Errorf("apply generation_done: %w", err)
	}
	if !applied {
		// Another worker completed the order and owns its side effects.
		return nil
	}
	order.Status = model.OrderStatusCompleted

	u.deliver(ctx, order)
	u.creditAffiliate(ctx, order)
	return nil
}

// deliver sends the report with a small bounded retry. Delivery failure is
// logged, not compensated: the report stays retrievable through the order.
func (u *FulfillmentUseCase) deliver(ctx context.Context, order *model.Order) {
	policy := retryPolicy{
		attempts:  u.cfg.NotifyAttempts,
		baseDelay: u.cfg.RetryBaseDelay,
		timeout:   u.cfg.CallTimeout,
	}
	err := policy.run(ctx, u.logger, "deliver", func(callCtx context.Context) error {
		return u.notifier.Notify(callCtx, order.UserRef, notifier.KindReportReady, u.payload(order))
	})
	if err != nil {
		u.logger.Error("report delivery failed, report remains available via order status",
			slog.String("order", order.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (u *FulfillmentUseCase) creditAffiliate(ctx context.Context, order *model.Order) {
	if order.AffiliateCode == "" || order.CommissionAmount == nil || order.CommissionRate == nil {
		return
	}
	credited, err := u.ledger.Credit(ctx, model.CommissionEntry{
		OrderID:       order.ID,
		AffiliateCode: order.AffiliateCode,
		OrderAmount:   order.Amount,
		Rate:          *order.CommissionRate,
		Amount:        *order.CommissionAmount,
	})
	if err != nil {
		u.logger.Error("affiliate credit failed",
			slog.String("order", order.ID),
			slog.String("affiliate", order.AffiliateCode),
			slog.String("error", err.Error()),
		)
		return
	}
	if credited {
		u.logger.Info("affiliate commission credited",
			slog.String("order", order.ID),
			slog.String("affiliate", order.AffiliateCode),
		)
	}
}

// failPipeline moves the order to failed and compensates the captured
// payment. The refund is attempted exactly once: retrying a refund whose
// outcome is unknown risks refunding twice, so a failed call only flags the
// order for manual resolution.
func (u *FulfillmentUseCase) failPipeline(ctx context.Context, order *model.Order, reason string) error {
	transition, _ := fsm.Lookup(fsm.EventPipelineError)
	applied, err := u.orders.Transition(ctx, order.ID, transition.Sources, transition.Target, repository.TransitionPatch{ErrorMessage: &reason})
	if err != nil {
		return fmt.Errorf("apply pipeline_error: %w", err)
	}
	if !applied {
		// A concurrent transition already settled the order.
		return nil
	}
	u.logger.Error("fulfillment pipeline failed",
		slog.String("order", order.ID),
		slog.String("reason", reason),
	)

	u.notifyBestEffort(ctx, order, notifier.KindFailure)

	refundCtx, cancel := context.WithTimeout(ctx, u.cfg.CallTimeout)
	err = u.payments.Refund(refundCtx, order.PaymentReference, order.Amount, order.Currency, reason)
	cancel()
	if err != nil {
		if markErr := u.orders.MarkRefundPending(ctx, order.ID); markErr != nil {
			u.logger.Error("flag refund pending failed", slog.String("order", order.ID), slog.String("error", markErr.Error()))
		}
		u.logger.Error("refund failed, order flagged for manual resolution",
			slog.String("order", order.ID),
			slog.String("payment_reference", order.PaymentReference),
			slog.String("error", err.Error()),
		)
		return nil
	}

	refundTransition, _ := fsm.Lookup(fsm.EventRefundDone)
	applied, err = u.orders.Transition(ctx, order.ID, refundTransition.Sources, refundTransition.Target, repository.TransitionPatch{})
	if err != nil {
		return fmt.Errorf("apply refund_done: %w", err)
	}
	if applied {
		u.notifyBestEffort(ctx, order, notifier.KindRefundDone)
	}
	return nil
}

func (u *FulfillmentUseCase) notifyBestEffort(ctx context.Context, order *model.Order, kind notifier.Kind) {
	notifyCtx, cancel := context.WithTimeout(ctx, u.cfg.CallTimeout)
	defer cancel()
	if err := u.notifier.Notify(notifyCtx, order.UserRef, kind, u.payload(order)); err != nil {
		u.logger.Warn("notification failed",
			slog.String("order", order.ID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}

func (u *FulfillmentUseCase) payload(order *model.Order) notifier.Payload {
	product, _ := model.ProductByKind(order.ProductKind)
	return notifier.Payload{
		OrderID:     order.ID,
		ProductName: product.Name,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Content:     order.GeneratedContent,
	}
}

func (u *FulfillmentUseCase) retryPolicy() retryPolicy {
	return retryPolicy{
		attempts:  u.cfg.RetryAttempts,
		baseDelay: u.cfg.RetryBaseDelay,
		timeout:   u.cfg.CallTimeout,
	}
}
