package service

import (
	"testing"

	"github.com/spec-kit/waitlist-service/internal/domain"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		name   string
		action string
		from   domain.TicketStatus
		want   bool
	}{
		{"call waiting", actionCall, domain.TicketStatusWaiting, true},
		{"call called", actionCall, domain.TicketStatusCalled, false},
		{"call completed", actionCall, domain.TicketStatusCompleted, false},
		{"complete called", actionComplete, domain.TicketStatusCalled, true},
		{"complete waiting", actionComplete, domain.TicketStatusWaiting, false},
		{"complete completed", actionComplete, domain.TicketStatusCompleted, false},
		{"requeue called", actionRequeue, domain.TicketStatusCalled, true},
		{"requeue waiting", actionRequeue, domain.TicketStatusWaiting, false},
		{"requeue completed", actionRequeue, domain.TicketStatusCompleted, false},
		{"unknown action", "cancel", domain.TicketStatusWaiting, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidTransition(tc.action, tc.from); got != tc.want {
				t.Fatalf("ValidTransition(%q, %q) = %v, want %v", tc.action, tc.from, got, tc.want)
			}
		})
	}
}

func TestTransitionFor(t *testing.T) {
	rule, ok := TransitionFor(actionCall)
	if !ok {
		t.Fatalf("expected rule for %q", actionCall)
	}
	if rule.From != domain.TicketStatusWaiting || rule.To != domain.TicketStatusCalled {
		t.Fatalf("unexpected rule for call: %+v", rule)
	}

	if _, ok := TransitionFor("seat"); ok {
		t.Fatal("expected no rule for unknown action")
	}
}
