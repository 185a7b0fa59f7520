package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/weijianfa/ApolloOracle/internal/domain/model"
)

// FulfillmentFacade exposes the subset of application functionality required by the worker.
type FulfillmentFacade interface {
	PendingFulfillments(ctx context.Context, limit int) ([]model.Order, error)
	Fulfill(ctx context.Context, orderID string) error
	ExpirePayments(ctx context.Context, limit int) error
}

// FulfillmentProcessor runs fulfillment pipelines concurrently. Work arrives
// on two paths: webhooks enqueue freshly paid orders, and a periodic
// recovery scan re-dispatches orders left in paid or generating after a
// crash or restart. Conditional writes in the store make overlapping
// dispatches of the same order safe.
type FulfillmentProcessor struct {
	facade           FulfillmentFacade
	recoveryInterval time.Duration
	batchSize        int
	workers          int
	logger           *slog.Logger

	jobs    chan string
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.Mutex
	stopped bool
}

// NewFulfillmentProcessor constructs fulfillment worker pool.
func NewFulfillmentProcessor(facade FulfillmentFacade, recoveryInterval time.Duration, batchSize, workers int, logger *slog.Logger) *FulfillmentProcessor {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &FulfillmentProcessor{
		facade:           facade,
		recoveryInterval: recoveryInterval,
		batchSize:        batchSize,
		workers:          workers,
		logger:           logger,
		jobs:             make(chan string, batchSize*workers),
	}
}

// Start launches background processing.
func (p *FulfillmentProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.stopped = false

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (p *FulfillmentProcessor) Stop() {
	p.mu.Lock()
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// Enqueue hands a paid order to the pool without blocking the caller. A
// full queue is not an error: the recovery scan picks the order up later.
func (p *FulfillmentProcessor) Enqueue(orderID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	select {
	case p.jobs <- orderID:
	default:
		p.logger.Warn("fulfillment queue full, deferring to recovery scan", slog.String("order", orderID))
	}
}

func (p *FulfillmentProcessor) dispatch(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.recoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.recoverAndDispatch(ctx)
		}
	}
}

func (p *FulfillmentProcessor) recoverAndDispatch(ctx context.Context) {
	// Sweep abandoned checkouts first so their orders never linger in
	// pending_payment between scans.
	if err := p.facade.ExpirePayments(ctx, p.batchSize); err != nil {
		p.logger.Error("payment expiry sweep failed", slog.String("error", err.Error()))
	}

	orders, err := p.facade.PendingFulfillments(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("recovery scan failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case p.jobs <- order.ID:
			p.logger.Info("order recovered for fulfillment",
				slog.String("order", order.ID),
				slog.String("status", string(order.Status)),
			)
		}
	}
}

func (p *FulfillmentProcessor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case orderID, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := p.facade.Fulfill(ctx, orderID); err != nil {
				p.logger.Error("fulfillment run failed",
					slog.String("order", orderID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
