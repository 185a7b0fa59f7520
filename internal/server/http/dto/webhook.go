package dto

// WebhookRequest is the payment provider's event payload. The raw body is
// signature-checked before this structure is decoded.
type WebhookRequest struct {
	OrderID          string  `json:"order_id"`
	EventID          string  `json:"event_id"`
	Status           string  `json:"status"`
	PaymentReference string  `json:"payment_reference"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	ErrorMessage     string  `json:"error_message"`
	Timestamp        int64   `json:"timestamp"`
}

// WebhookResponse acknowledges an event delivery.
type WebhookResponse struct {
	Result string `json:"result"`
}
