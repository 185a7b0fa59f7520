package model

import (
	"encoding/json"
	"time"
)

// OrderStatus describes order lifecycle state.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusGenerating     OrderStatus = "generating"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusFailed         OrderStatus = "failed"
	OrderStatusRefunded       OrderStatus = "refunded"
)

// Order describes a purchase moving through the fulfillment pipeline.
type Order struct {
	ID                 string
	UserRef            string
	ProductKind        ProductKind
	Status             OrderStatus
	Amount             float64
	Currency           string
	RequiresEnrichment bool
	PaymentReference   string
	UserInput          json.RawMessage
	EnrichmentData     json.RawMessage
	GeneratedContent   string
	AffiliateCode      string
	CommissionRate     *float64
	CommissionAmount   *float64
	RefundPending      bool
	ErrorMessage       string
	LastEventID        string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompletedAt        *time.Time
}

// StatusSnapshot is the read-only order view exposed to the front-end.
type StatusSnapshot struct {
	OrderID          string
	Status           OrderStatus
	ProductKind      ProductKind
	Amount           float64
	Currency         string
	GeneratedContent string
	RefundPending    bool
	UpdatedAt        time.Time
}

// Snapshot projects the order into its externally visible state.
func (o *Order) Snapshot() StatusSnapshot {
	return StatusSnapshot{
		OrderID:          o.ID,
		Status:           o.Status,
		ProductKind:      o.ProductKind,
		Amount:           o.Amount,
		Currency:         o.Currency,
		GeneratedContent: o.GeneratedContent,
		RefundPending:    o.RefundPending,
		UpdatedAt:        o.UpdatedAt,
	}
}
