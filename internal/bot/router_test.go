package bot

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/spec-kit/waitlist-service/internal/repository"
	"github.com/spec-kit/waitlist-service/internal/service"
	apperrors "github.com/spec-kit/waitlist-service/pkg/util"
)

const testSecret = "test-channel-secret"

type fakeTransport struct {
	mu      sync.Mutex
	pushes  []string
	replies []string
}

func (f *fakeTransport) Push(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, text)
	return nil
}

func (f *fakeTransport) Reply(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeTransport) replyTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.replies...)
}

type memoryDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memoryDeduper) Seen(_ context.Context, eventID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[eventID] {
		return true
	}
	d.seen[eventID] = true
	return false
}

func newTestRouter(t *testing.T) (*Router, *service.QueueService, *fakeTransport) {
	t.Helper()
	queue := service.NewQueueService(service.QueueDependencies{
		TicketRepo: repository.NewMemoryTicketRepository(),
	})
	transport := &fakeTransport{}
	router := NewRouter(RouterConfig{
		Queue:         queue,
		Transport:     transport,
		Dedup:         &memoryDeduper{},
		ChannelSecret: testSecret,
		StoreName:     "Test Store",
	})
	return router, queue, transport
}

func textEventBody(t *testing.T, eventID, userID, text string) []byte {
	t.Helper()
	payload := CallbackPayload{
		Destination: "dest",
		Events: []InboundEvent{{
			Type:           "message",
			WebhookEventID: eventID,
			ReplyToken:     "reply-token",
			Source:         EventSource{Type: "user", UserID: userID},
			Message:        EventMessage{Type: "text", ID: "m1", Text: text},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func deliver(t *testing.T, router *Router, body []byte) {
	t.Helper()
	if err := router.HandleCallback(context.Background(), body, sign(t, body, testSecret)); err != nil {
		t.Fatalf("handle callback: %v", err)
	}
}

func TestHandleCallbackRejectsBadSignature(t *testing.T) {
	router, queue, transport := newTestRouter(t)

	ticket, err := queue.Register(context.Background(), service.RegisterInput{Name: "Yamada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	body := textEventBody(t, "evt-1", "user-1", "register 1")
	err = router.HandleCallback(context.Background(), body, sign(t, body, "wrong-secret"))
	if err == nil {
		t.Fatal("expected rejection for bad signature")
	}
	if de := apperrors.ToDomainError(err); de.Code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}

	// No command ran: the ticket stays unlinked and nothing was sent.
	got, err := queue.GetTicket(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if got.HasChannel() {
		t.Fatal("expected no channel link after rejected delivery")
	}
	if len(transport.replyTexts()) != 0 {
		t.Fatal("expected no replies after rejected delivery")
	}
}

func TestHandleCallbackIgnoresUnparseableBody(t *testing.T) {
	router, _, transport := newTestRouter(t)

	body := []byte(`{"events": [`)
	if err := router.HandleCallback(context.Background(), body, sign(t, body, testSecret)); err != nil {
		t.Fatalf("expected nil error for unparseable verified body, got %v", err)
	}
	if len(transport.replyTexts()) != 0 {
		t.Fatal("expected no replies for unparseable body")
	}
}

func TestHandleCallbackRegisterOutcomes(t *testing.T) {
	router, queue, transport := newTestRouter(t)
	ctx := context.Background()

	ticket, err := queue.Register(ctx, service.RegisterInput{Name: "Yamada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	deliver(t, router, textEventBody(t, "evt-1", "user-1", "register 1"))
	deliver(t, router, textEventBody(t, "evt-2", "user-2", "register 1"))
	deliver(t, router, textEventBody(t, "evt-3", "user-3", "register 99"))

	if _, err := queue.Call(ctx, ticket.ID); err != nil {
		t.Fatalf("call: %v", err)
	}
	if _, err := queue.Complete(ctx, ticket.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	deliver(t, router, textEventBody(t, "evt-4", "user-4", "register 1"))

	replies := transport.replyTexts()
	if len(replies) != 4 {
		t.Fatalf("expected 4 replies, got %d: %v", len(replies), replies)
	}
	if !strings.Contains(replies[0], "registered for notifications") || !strings.Contains(replies[0], "number 1 in line") {
		t.Fatalf("unexpected link reply: %q", replies[0])
	}
	if !strings.Contains(replies[1], "already registered") {
		t.Fatalf("unexpected already-linked reply: %q", replies[1])
	}
	if !strings.Contains(replies[2], "not found") {
		t.Fatalf("unexpected not-found reply: %q", replies[2])
	}
	if !strings.Contains(replies[3], "already been completed") {
		t.Fatalf("unexpected completed reply: %q", replies[3])
	}

	got, err := queue.GetTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if got.ChannelRef == nil || *got.ChannelRef != "user-1" {
		t.Fatalf("expected first link to stick, got %v", got.ChannelRef)
	}
}

func TestHandleCallbackRegisterCalledTicket(t *testing.T) {
	router, queue, transport := newTestRouter(t)
	ctx := context.Background()

	ticket, err := queue.Register(ctx, service.RegisterInput{Name: "Yamada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := queue.Call(ctx, ticket.ID); err != nil {
		t.Fatalf("call: %v", err)
	}

	deliver(t, router, textEventBody(t, "evt-1", "user-1", "register 1"))

	replies := transport.replyTexts()
	if len(replies) != 1 || !strings.Contains(replies[0], "being called") {
		t.Fatalf("expected being-called reply, got %v", replies)
	}
}

func TestHandleCallbackStatus(t *testing.T) {
	router, queue, transport := newTestRouter(t)
	ctx := context.Background()

	deliver(t, router, textEventBody(t, "evt-1", "user-1", "status"))

	ticket, err := queue.Register(ctx, service.RegisterInput{Name: "Yamada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := queue.LinkChannel(ctx, ticket.ID, "user-1"); err != nil {
		t.Fatalf("link: %v", err)
	}
	deliver(t, router, textEventBody(t, "evt-2", "user-1", "status"))

	if _, err := queue.Call(ctx, ticket.ID); err != nil {
		t.Fatalf("call: %v", err)
	}
	deliver(t, router, textEventBody(t, "evt-3", "user-1", "status"))

	replies := transport.replyTexts()
	if len(replies) != 3 {
		t.Fatalf("expected 3 replies, got %d: %v", len(replies), replies)
	}
	if !strings.Contains(replies[0], "no active ticket") {
		t.Fatalf("unexpected no-ticket reply: %q", replies[0])
	}
	if !strings.Contains(replies[1], "number 1 in line") {
		t.Fatalf("unexpected waiting reply: %q", replies[1])
	}
	if !strings.Contains(replies[2], "being called") {
		t.Fatalf("unexpected called reply: %q", replies[2])
	}
}

func TestHandleCallbackHelpForUnknownText(t *testing.T) {
	router, _, transport := newTestRouter(t)

	deliver(t, router, textEventBody(t, "evt-1", "user-1", "what do I do"))

	replies := transport.replyTexts()
	if len(replies) != 1 || !strings.Contains(replies[0], "Test Store") {
		t.Fatalf("expected help reply naming the store, got %v", replies)
	}
}

func TestHandleCallbackDeduplicatesRedelivery(t *testing.T) {
	router, queue, transport := newTestRouter(t)
	ctx := context.Background()

	if _, err := queue.Register(ctx, service.RegisterInput{Name: "Yamada"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	body := textEventBody(t, "evt-1", "user-1", "register 1")
	deliver(t, router, body)
	deliver(t, router, body)

	if got := len(transport.replyTexts()); got != 1 {
		t.Fatalf("expected redelivered event suppressed, got %d replies", got)
	}
}

func TestHandleCallbackSkipsNonTextEvents(t *testing.T) {
	router, _, transport := newTestRouter(t)

	payload := CallbackPayload{Events: []InboundEvent{
		{Type: "follow", WebhookEventID: "evt-1", ReplyToken: "rt", Source: EventSource{UserID: "user-1"}},
		{Type: "message", WebhookEventID: "evt-2", ReplyToken: "rt",
			Source:  EventSource{UserID: "user-1"},
			Message: EventMessage{Type: "sticker", ID: "m1"}},
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	deliver(t, router, body)

	if got := len(transport.replyTexts()); got != 0 {
		t.Fatalf("expected non-text events ignored, got %d replies", got)
	}
}
