package fsm

import (
	"testing"

	"github.com/weijianfa/ApolloOracle/internal/domain/model"
)

func TestLookupKnownEvents(t *testing.T) {
	cases := []struct {
		event  Event
		target model.OrderStatus
	}{
		{EventPaymentConfirmed, model.OrderStatusPaid},
		{EventPaymentFailed, model.OrderStatusFailed},
		{EventEnrichmentDone, model.OrderStatusGenerating},
		{EventGenerationDone, model.OrderStatusCompleted},
		{EventPipelineError, model.OrderStatusFailed},
		{EventRefundDone, model.OrderStatusRefunded},
	}
	for _, tc := range cases {
		transition, ok := Lookup(tc.event)
		if !ok {
			t.Fatalf("expected %s to be defined", tc.event)
		}
		if transition.Target != tc.target {
			t.Fatalf("%s: expected target %s, got %s", tc.event, tc.target, transition.Target)
		}
		if len(transition.Sources) == 0 {
			t.Fatalf("%s: expected at least one source state", tc.event)
		}
	}
}

func TestLookupUnknownEvent(t *testing.T) {
	if _, ok := Lookup(Event("teleport")); ok {
		t.Fatal("expected unknown event to be rejected")
	}
}

func TestAllowedHappyPath(t *testing.T) {
	steps := []struct {
		event Event
		from  model.OrderStatus
	}{
		{EventPaymentConfirmed, model.OrderStatusPendingPayment},
		{EventEnrichmentDone, model.OrderStatusPaid},
		{EventGenerationDone, model.OrderStatusGenerating},
	}
	for _, s := range steps {
		if !Allowed(s.event, s.from) {
			t.Fatalf("expected %s to be allowed from %s", s.event, s.from)
		}
	}
}

func TestAllowedRejectsSkippedStates(t *testing.T) {
	cases := []struct {
		event Event
		from  model.OrderStatus
	}{
		{EventPaymentConfirmed, model.OrderStatusPaid},
		{EventPaymentConfirmed, model.OrderStatusCompleted},
		{EventPaymentFailed, model.OrderStatusPaid},
		{EventGenerationDone, model.OrderStatusPaid},
		{EventPipelineError, model.OrderStatusCompleted},
		{EventRefundDone, model.OrderStatusCompleted},
		{EventRefundDone, model.OrderStatusPendingPayment},
	}
	for _, tc := range cases {
		if Allowed(tc.event, tc.from) {
			t.Fatalf("expected %s from %s to be rejected", tc.event, tc.from)
		}
	}
}

func TestTerminalStatesHaveNoOutgoingTransitions(t *testing.T) {
	for _, terminal := range []model.OrderStatus{model.OrderStatusCompleted, model.OrderStatusRefunded} {
		for event := range table {
			if Allowed(event, terminal) {
				t.Fatalf("expected no transition out of %s, but %s is allowed", terminal, event)
			}
		}
	}
}
