package fsm

import "github.com/weijianfa/ApolloOracle/internal/domain/model"

// Event names a requested order state transition.
type Event string

const (
	EventPaymentConfirmed Event = "payment_confirmed"
	EventPaymentFailed    Event = "payment_failed"
	EventEnrichmentDone   Event = "enrichment_done"
	EventGenerationDone   Event = "generation_done"
	EventPipelineError    Event = "pipeline_error"
	EventRefundDone       Event = "refund_done"
)

// Transition holds the allowed source states and the target state of an event.
type Transition struct {
	Sources []model.OrderStatus
	Target  model.OrderStatus
}

var table = map[Event]Transition{
	EventPaymentConfirmed: {
		Sources: []model.OrderStatus{model.OrderStatusPendingPayment},
		Target:  model.OrderStatusPaid,
	},
	EventPaymentFailed: {
		Sources: []model.OrderStatus{model.OrderStatusPendingPayment},
		Target:  model.OrderStatusFailed,
	},
	EventEnrichmentDone: {
		Sources: []model.OrderStatus{model.OrderStatusPaid},
		Target:  model.OrderStatusGenerating,
	},
	EventGenerationDone: {
		Sources: []model.OrderStatus{model.OrderStatusGenerating},
		Target:  model.OrderStatusCompleted,
	},
	EventPipelineError: {
		Sources: []model.OrderStatus{model.OrderStatusPaid, model.OrderStatusGenerating},
		Target:  model.OrderStatusFailed,
	},
	EventRefundDone: {
		Sources: []model.OrderStatus{model.OrderStatusFailed},
		Target:  model.OrderStatusRefunded,
	},
}

// Lookup returns the transition definition for an event.
func Lookup(e Event) (Transition, bool) {
	t, ok := table[e]
	return t, ok
}

// Allowed reports whether an event may be applied from the given state.
func Allowed(e Event, from model.OrderStatus) bool {
	t, ok := table[e]
	if !ok {
		return false
	}
	for _, s := range t.Sources {
		if s == from {
			return true
		}
	}
	return false
}
