package repository

import "context"

// EventRepository guards against replays of identical provider deliveries.
type EventRepository interface {
	// Admit atomically records (orderID, eventID) as processed. It returns
	// false when the pair was already recorded, in which case the delivery
	// must be acknowledged without reapplying side effects.
	Admit(ctx context.Context, orderID, eventID string) (bool, error)
}
