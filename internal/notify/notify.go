package notify

import "context"

// Outcome classifies one notification dispatch attempt. Skipped is a
// normal result for tickets without a linked channel; Failed is observed
// and logged but never propagated to the transition that triggered it.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Transport is the outbound chat-channel collaborator. Push addresses a
// linked recipient; Reply answers an inbound webhook event.
type Transport interface {
	Push(ctx context.Context, to, text string) error
	Reply(ctx context.Context, replyToken, text string) error
}
