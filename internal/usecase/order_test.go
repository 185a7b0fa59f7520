package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	domainErrors "github.com/weijianfa/ApolloOracle/internal/domain/errors"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	testhelpers "github.com/weijianfa/ApolloOracle/internal/test"
)

func TestOrderCreateSuccess(t *testing.T) {
	orders := testhelpers.NewOrderRepositoryStub()
	uc := NewOrderUseCase(orders, &testhelpers.LedgerRepositoryStub{}, &testhelpers.PaymentClientStub{})

	order, checkoutURL, err := uc.Create(context.Background(), "42", model.ProductNatalChart, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != model.OrderStatusPendingPayment {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if order.Amount != 29.99 || order.Currency != "USD" {
		t.Fatalf("unexpected price %v %s", order.Amount, order.Currency)
	}
	if !order.RequiresEnrichment {
		t.Fatal("expected natal chart to require enrichment")
	}
	if string(order.UserInput) != "{}" {
		t.Fatalf("expected empty input to default to {}, got %s", order.UserInput)
	}
	if !strings.HasPrefix(order.ID, "ORD-") {
		t.Fatalf("unexpected order id %q", order.ID)
	}
	if checkoutURL != "https://pay.example/"+order.ID {
		t.Fatalf("unexpected checkout url %q", checkoutURL)
	}
}

func TestOrderCreateRejectsUnknownProduct(t *testing.T) {
	orders := testhelpers.NewOrderRepositoryStub()
	uc := NewOrderUseCase(orders, &testhelpers.LedgerRepositoryStub{}, &testhelpers.PaymentClientStub{})

	if _, _, err := uc.Create(context.Background(), "42", "palm_reading", nil, ""); !errors.Is(err, domainErrors.ErrUnknownProduct) {
		t.Fatalf("expected unknown product error, got %v", err)
	}
	if len(orders.Orders) != 0 {
		t.Fatal("expected no order to be stored")
	}
}

func TestOrderCreateRejectsEmptyUserRef(t *testing.T) {
	uc := NewOrderUseCase(testhelpers.NewOrderRepositoryStub(), &testhelpers.LedgerRepositoryStub{}, &testhelpers.PaymentClientStub{})

	if _, _, err := uc.Create(context.Background(), "   ", model.ProductDailyTarot, nil, ""); err == nil {
		t.Fatal("expected empty user reference to be rejected")
	}
}

func TestOrderCreateResolvesCommissionTier(t *testing.T) {
	ledger := &testhelpers.LedgerRepositoryStub{Totals: map[string]float64{"AFF1": 1500}}
	uc := NewOrderUseCase(testhelpers.NewOrderRepositoryStub(), ledger, &testhelpers.PaymentClientStub{})

	order, _, err := uc.Create(context.Background(), "42", model.ProductCompatibility, nil, "AFF1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.CommissionRate == nil || *order.CommissionRate != 0.15 {
		t.Fatalf("expected tier rate 0.15, got %v", order.CommissionRate)
	}
	if order.CommissionAmount == nil || *order.CommissionAmount != 19.99*0.15 {
		t.Fatalf("unexpected commission amount %v", order.CommissionAmount)
	}
}

func TestOrderCreateWithoutAffiliateSkipsLedger(t *testing.T) {
	ledger := &testhelpers.LedgerRepositoryStub{TotalSalesFn: func(context.Context, string) (float64, error) {
		t.Fatal("ledger should not be consulted without an affiliate code")
		return 0, nil
	}}
	uc := NewOrderUseCase(testhelpers.NewOrderRepositoryStub(), ledger, &testhelpers.PaymentClientStub{})

	order, _, err := uc.Create(context.Background(), "42", model.ProductDailyTarot, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.CommissionRate != nil {
		t.Fatal("expected no commission without an affiliate code")
	}
}

func TestOrderCreatePropagatesCheckoutError(t *testing.T) {
	payments := &testhelpers.PaymentClientStub{CreateCheckoutFn: func(context.Context, *model.Order) (string, error) {
		return "", errors.New("provider down")
	}}
	uc := NewOrderUseCase(testhelpers.NewOrderRepositoryStub(), &testhelpers.LedgerRepositoryStub{}, payments)

	if _, _, err := uc.Create(context.Background(), "42", model.ProductDailyTarot, nil, ""); err == nil {
		t.Fatal("expected checkout failure to propagate")
	}
}

func TestOrderStatus(t *testing.T) {
	order := pendingOrder("ORD-1-A")
	order.Status = model.OrderStatusCompleted
	order.GeneratedContent = "the stars align"
	uc := NewOrderUseCase(testhelpers.NewOrderRepositoryStub(order), &testhelpers.LedgerRepositoryStub{}, &testhelpers.PaymentClientStub{})

	snapshot, err := uc.Status(context.Background(), "ORD-1-A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Status != model.OrderStatusCompleted {
		t.Fatalf("unexpected status %s", snapshot.Status)
	}
	if snapshot.GeneratedContent != "the stars align" {
		t.Fatal("expected content in snapshot")
	}
}

func TestOrderStatusNotFound(t *testing.T) {
	uc := NewOrderUseCase(testhelpers.NewOrderRepositoryStub(), &testhelpers.LedgerRepositoryStub{}, &testhelpers.PaymentClientStub{})

	if _, err := uc.Status(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
