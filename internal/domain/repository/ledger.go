package repository

import (
	"context"

	"github.com/weijianfa/ApolloOracle/internal/domain/model"
)

// LedgerRepository owns the append-only affiliate commission ledger.
type LedgerRepository interface {
	// Credit appends a commission entry. It returns false when the order
	// was already credited, keeping the ledger exactly-once per order.
	Credit(ctx context.Context, entry model.CommissionEntry) (bool, error)
	// TotalSales sums credited order amounts for an affiliate code.
	TotalSales(ctx context.Context, affiliateCode string) (float64, error)
}
