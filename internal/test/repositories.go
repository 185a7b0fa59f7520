package test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	domainErrors "github.com/weijianfa/ApolloOracle/internal/domain/errors"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	"github.com/weijianfa/ApolloOracle/internal/domain/repository"
)

// TransitionCall stores information about Transition invocations.
type TransitionCall struct {
	OrderID string
	Sources []model.OrderStatus
	Target  model.OrderStatus
	Patch   repository.TransitionPatch
}

// OrderRepositoryStub keeps orders in-memory and applies transitions with
// the same source-state check real storage performs. Function overrides
// take precedence over the built-in behaviour.
type OrderRepositoryStub struct {
	CreateFn            func(context.Context, repository.CreateOrderParams) (*model.Order, error)
	GetByIDFn           func(context.Context, string) (*model.Order, error)
	TransitionFn        func(context.Context, string, []model.OrderStatus, model.OrderStatus, repository.TransitionPatch) (bool, error)
	SelectForRecoveryFn func(context.Context, time.Duration, int) ([]model.Order, error)
	ExpireFn            func(context.Context, time.Duration, int) ([]model.Order, error)

	Orders      map[string]*model.Order
	Transitions []TransitionCall
	Err         error

	mu sync.Mutex
}

// NewOrderRepositoryStub constructs stub repository with initialized maps.
func NewOrderRepositoryStub(orders ...*model.Order) *OrderRepositoryStub {
	s := &OrderRepositoryStub{Orders: make(map[string]*model.Order)}
	for _, o := range orders {
		s.Orders[o.ID] = o
	}
	return s
}

// Create registers order unless already exists or stub has explicit error.
func (s *OrderRepositoryStub) Create(ctx context.Context, params repository.CreateOrderParams) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, params)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Orders == nil {
		s.Orders = make(map[string]*model.Order)
	}
	if _, exists := s.Orders[params.ID]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	now := time.Now()
	order := &model.Order{
		ID:                 params.ID,
		UserRef:            params.UserRef,
		ProductKind:        params.ProductKind,
		Status:             model.OrderStatusPendingPayment,
		Amount:             params.Amount,
		Currency:           params.Currency,
		RequiresEnrichment: params.RequiresEnrichment,
		UserInput:          params.UserInput,
		AffiliateCode:      params.AffiliateCode,
		CommissionRate:     params.CommissionRate,
		CommissionAmount:   params.CommissionAmount,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.Orders[params.ID] = order
	return order, nil
}

// GetByID fetches order by identifier or returns not found.
func (s *OrderRepositoryStub) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, orderID)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if order, ok := s.Orders[orderID]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// Transition applies the status change when the stored status matches one
// of the expected sources, recording every attempt.
func (s *OrderRepositoryStub) Transition(ctx context.Context, orderID string, sources []model.OrderStatus, target model.OrderStatus, patch repository.TransitionPatch) (bool, error) {
	s.mu.Lock()
	s.Transitions = append(s.Transitions, TransitionCall{OrderID: orderID, Sources: sources, Target: target, Patch: patch})
	s.mu.Unlock()
	if s.TransitionFn != nil {
		return s.TransitionFn(ctx, orderID, sources, target, patch)
	}
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Orders[orderID]
	if !ok {
		return false, nil
	}
	matched := false
	for _, src := range sources {
		if order.Status == src {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	order.Status = target
	if patch.PaymentReference != nil {
		order.PaymentReference = *patch.PaymentReference
	}
	if patch.LastEventID != nil {
		order.LastEventID = *patch.LastEventID
	}
	if patch.RefundPending != nil {
		order.RefundPending = *patch.RefundPending
	}
	if patch.ErrorMessage != nil {
		order.ErrorMessage = *patch.ErrorMessage
	}
	if patch.CompletedAt != nil {
		completed := *patch.CompletedAt
		order.CompletedAt = &completed
	}
	order.UpdatedAt = time.Now()
	return true, nil
}

// SaveEnrichmentData stores enrichment payload on the order.
func (s *OrderRepositoryStub) SaveEnrichmentData(ctx context.Context, orderID string, data json.RawMessage) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.EnrichmentData = data
	return nil
}

// SaveGeneratedContent stores generated report text on the order.
func (s *OrderRepositoryStub) SaveGeneratedContent(ctx context.Context, orderID, content string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.GeneratedContent = content
	return nil
}

// MarkRefundPending flags a failed order for manual refund follow-up.
func (s *OrderRepositoryStub) MarkRefundPending(ctx context.Context, orderID string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.RefundPending = true
	return nil
}

// SelectForRecovery returns configured batches or nothing.
func (s *OrderRepositoryStub) SelectForRecovery(ctx context.Context, stuckFor time.Duration, limit int) ([]model.Order, error) {
	if s.SelectForRecoveryFn != nil {
		return s.SelectForRecoveryFn(ctx, stuckFor, limit)
	}
	return nil, s.Err
}

// ExpirePendingPayments fails pending orders created before the window and
// returns copies of the affected orders.
func (s *OrderRepositoryStub) ExpirePendingPayments(ctx context.Context, olderThan time.Duration, limit int) ([]model.Order, error) {
	if s.ExpireFn != nil {
		return s.ExpireFn(ctx, olderThan, limit)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var expired []model.Order
	for _, order := range s.Orders {
		if len(expired) >= limit {
			break
		}
		if order.Status != model.OrderStatusPendingPayment || !order.CreatedAt.Before(cutoff) {
			continue
		}
		order.Status = model.OrderStatusFailed
		order.ErrorMessage = "payment timeout"
		order.UpdatedAt = time.Now()
		expired = append(expired, *order)
	}
	return expired, nil
}

// EventRepositoryStub records admitted deliveries in-memory.
type EventRepositoryStub struct {
	AdmitFn func(context.Context, string, string) (bool, error)

	Admitted map[string]bool
	Err      error

	mu sync.Mutex
}

// Admit returns false on a repeated (order, event) pair.
func (s *EventRepositoryStub) Admit(ctx context.Context, orderID, eventID string) (bool, error) {
	if s.AdmitFn != nil {
		return s.AdmitFn(ctx, orderID, eventID)
	}
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Admitted == nil {
		s.Admitted = make(map[string]bool)
	}
	key := orderID + "/" + eventID
	if s.Admitted[key] {
		return false, nil
	}
	s.Admitted[key] = true
	return true, nil
}

// LedgerRepositoryStub keeps commission entries per order.
type LedgerRepositoryStub struct {
	CreditFn     func(context.Context, model.CommissionEntry) (bool, error)
	TotalSalesFn func(context.Context, string) (float64, error)

	Entries map[string]model.CommissionEntry
	Totals  map[string]float64
	Err     error

	mu sync.Mutex
}

// Credit appends an entry unless the order was already credited.
func (s *LedgerRepositoryStub) Credit(ctx context.Context, entry model.CommissionEntry) (bool, error) {
	if s.CreditFn != nil {
		return s.CreditFn(ctx, entry)
	}
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Entries == nil {
		s.Entries = make(map[string]model.CommissionEntry)
	}
	if _, exists := s.Entries[entry.OrderID]; exists {
		return false, nil
	}
	s.Entries[entry.OrderID] = entry
	return true, nil
}

// TotalSales returns the configured total for an affiliate code.
func (s *LedgerRepositoryStub) TotalSales(ctx context.Context, affiliateCode string) (float64, error) {
	if s.TotalSalesFn != nil {
		return s.TotalSalesFn(ctx, affiliateCode)
	}
	if s.Err != nil {
		return 0, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Totals[affiliateCode], nil
}
