package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weijianfa/ApolloOracle/internal/adapter/payment"
	domainErrors "github.com/weijianfa/ApolloOracle/internal/domain/errors"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	"github.com/weijianfa/ApolloOracle/internal/domain/repository"
)

// OrderUseCase encapsulates order creation and status reads.
type OrderUseCase struct {
	orders   repository.OrderRepository
	ledger   repository.LedgerRepository
	payments payment.Client
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, ledger repository.LedgerRepository, payments payment.Client) *OrderUseCase {
	return &OrderUseCase{orders: orders, ledger: ledger, payments: payments}
}

// Create registers a pending_payment order and returns it together with the
// checkout link the front-end hands to the user.
func (u *OrderUseCase) Create(ctx context.Context, userRef string, kind model.ProductKind, input json.RawMessage, affiliateCode string) (*model.Order, string, error) {
	if strings.TrimSpace(userRef) == "" {
		return nil, "", fmt.Errorf("user reference must not be empty")
	}
	product, ok := model.ProductByKind(kind)
	if !ok {
		return nil, "", domainErrors.ErrUnknownProduct
	}
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	params := repository.CreateOrderParams{
		ID:                 newOrderID(),
		UserRef:            userRef,
		ProductKind:        product.Kind,
		Amount:             product.PriceUSD,
		Currency:           "USD",
		RequiresEnrichment: product.RequiresEnrichment,
		UserInput:          input,
		AffiliateCode:      affiliateCode,
	}

	if affiliateCode != "" {
		totalSales, err := u.ledger.TotalSales(ctx, affiliateCode)
		if err != nil {
			return nil, "", fmt.Errorf("resolve affiliate sales: %w", err)
		}
		rate := model.CommissionRate(totalSales)
		amount := product.PriceUSD * rate
		params.CommissionRate = &rate
		params.CommissionAmount = &amount
	}

	order, err := u.orders.Create(ctx, params)
	if err != nil {
		return nil, "", err
	}

	checkoutURL, err := u.payments.CreateCheckout(ctx, order)
	if err != nil {
		return nil, "", fmt.Errorf("create checkout: %w", err)
	}
	return order, checkoutURL, nil
}

// Status returns the externally visible order state.
func (u *OrderUseCase) Status(ctx context.Context, orderID string) (model.StatusSnapshot, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return model.StatusSnapshot{}, err
	}
	return order.Snapshot(), nil
}

func newOrderID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%d-%s", time.Now().Unix(), suffix)
}
