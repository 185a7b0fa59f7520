package model

import "time"

// PaymentStatus is the payment outcome reported by the provider.
type PaymentStatus string

const (
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// WebhookEvent is a verified payment notification from the provider.
// EventID may be empty: not every provider delivery carries an idempotency
// key, in which case only the state machine's source-state check applies.
type WebhookEvent struct {
	OrderID          string
	EventID          string
	Status           PaymentStatus
	PaymentReference string
	Amount           float64
	Currency         string
	ErrorMessage     string
	Timestamp        time.Time
}

// ProcessedEvent records one applied provider delivery, keyed by
// (order id, event id). Written before side effects run and never deleted.
type ProcessedEvent struct {
	OrderID    string
	EventID    string
	ReceivedAt time.Time
}
