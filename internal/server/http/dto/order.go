package dto

import (
	"encoding/json"
	"time"
)

// CreateOrderRequest describes a new order submission.
type CreateOrderRequest struct {
	UserRef       string          `json:"user_ref"`
	Product       string          `json:"product"`
	UserInput     json.RawMessage `json:"user_input,omitempty"`
	AffiliateCode string          `json:"affiliate_code,omitempty"`
}

// CreateOrderResponse returns the registered order and its checkout link.
type CreateOrderResponse struct {
	OrderID    string  `json:"order_id"`
	Status     string  `json:"status"`
	Product    string  `json:"product"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	PaymentURL string  `json:"payment_url"`
}

// StatusResponse is the externally visible order state.
type StatusResponse struct {
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status"`
	Product       string    `json:"product"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Content       string    `json:"content,omitempty"`
	RefundPending bool      `json:"refund_pending,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
