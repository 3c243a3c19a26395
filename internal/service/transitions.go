package service

import "github.com/spec-kit/waitlist-service/internal/domain"

// transitionRule names the single legal source and target status for one
// queue action. Requeue is the only backward edge; it exists for operator
// correction of a mistaken call.
type transitionRule struct {
	From domain.TicketStatus
	To   domain.TicketStatus
}

const (
	actionCall     = "call"
	actionComplete = "complete"
	actionRequeue  = "requeue"
)

var transitionTable = map[string]transitionRule{
	actionCall:     {From: domain.TicketStatusWaiting, To: domain.TicketStatusCalled},
	actionComplete: {From: domain.TicketStatusCalled, To: domain.TicketStatusCompleted},
	actionRequeue:  {From: domain.TicketStatusCalled, To: domain.TicketStatusWaiting},
}

// TransitionFor returns the rule for an action, if the action exists.
func TransitionFor(action string) (transitionRule, bool) {
	rule, ok := transitionTable[action]
	return rule, ok
}

// ValidTransition reports whether an action may be applied to a ticket in
// the given status.
func ValidTransition(action string, from domain.TicketStatus) bool {
	rule, ok := transitionTable[action]
	return ok && rule.From == from
}
