package model

import "time"

// CommissionEntry is an append-only affiliate ledger record, at most one
// per completed order.
type CommissionEntry struct {
	ID            int64
	OrderID       string
	AffiliateCode string
	OrderAmount   float64
	Rate          float64
	Amount        float64
	CreatedAt     time.Time
}

// Commission tiers keyed on the affiliate's cumulative credited sales.
const (
	commissionTier2Sales = 1000.0
	commissionTier3Sales = 5000.0
	commissionTier4Sales = 20000.0

	commissionTier1Rate = 0.10
	commissionTier2Rate = 0.15
	commissionTier3Rate = 0.20
	commissionTier4Rate = 0.25
)

// CommissionRate returns the commission rate for an affiliate whose prior
// credited sales total is given.
func CommissionRate(totalSales float64) float64 {
	switch {
	case totalSales >= commissionTier4Sales:
		return commissionTier4Rate
	case totalSales >= commissionTier3Sales:
		return commissionTier3Rate
	case totalSales >= commissionTier2Sales:
		return commissionTier2Rate
	default:
		return commissionTier1Rate
	}
}
