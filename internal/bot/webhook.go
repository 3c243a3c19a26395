package bot

// CallbackPayload is the decoded webhook body: a batch of inbound events.
type CallbackPayload struct {
	Destination string         `json:"destination"`
	Events      []InboundEvent `json:"events"`
}

// InboundEvent is one platform event. Only text message events are routed;
// everything else is ignored.
type InboundEvent struct {
	Type           string       `json:"type"`
	WebhookEventID string       `json:"webhookEventId"`
	ReplyToken     string       `json:"replyToken"`
	Source         EventSource  `json:"source"`
	Message        EventMessage `json:"message"`
}

// EventSource identifies the sender; UserID is the opaque channel ref
// bound to tickets.
type EventSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// EventMessage carries the message content.
type EventMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Text string `json:"text"`
}
