package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/weijianfa/ApolloOracle/internal/domain/model"
)

// WorkerFacadeStub mimics worker interactions with the application facade.
type WorkerFacadeStub struct {
	Batches   [][]model.Order
	PendingFn func(context.Context, int) ([]model.Order, error)
	FulfillFn func(context.Context, string) error
	ExpireFn  func(context.Context, int) error

	Fulfilled []string

	mu             sync.Mutex
	pendingCallNum int32
	expireCallNum  int32
}

// PendingFulfillments returns batches from the configured queue.
func (s *WorkerFacadeStub) PendingFulfillments(ctx context.Context, limit int) ([]model.Order, error) {
	if s.PendingFn != nil {
		return s.PendingFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.pendingCallNum, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// Fulfill records the processed order identifier.
func (s *WorkerFacadeStub) Fulfill(ctx context.Context, orderID string) error {
	if s.FulfillFn != nil {
		return s.FulfillFn(ctx, orderID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fulfilled = append(s.Fulfilled, orderID)
	return nil
}

// ExpirePayments counts expiry sweeps.
func (s *WorkerFacadeStub) ExpirePayments(ctx context.Context, limit int) error {
	atomic.AddInt32(&s.expireCallNum, 1)
	if s.ExpireFn != nil {
		return s.ExpireFn(ctx, limit)
	}
	return nil
}

// ExpireCalls returns how many expiry sweeps ran.
func (s *WorkerFacadeStub) ExpireCalls() int {
	return int(atomic.LoadInt32(&s.expireCallNum))
}

// FulfilledOrders returns a copy of the processed identifiers.
func (s *WorkerFacadeStub) FulfilledOrders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Fulfilled))
	copy(out, s.Fulfilled)
	return out
}
