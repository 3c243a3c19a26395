package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/waitlist-service/internal/api/http"
	"github.com/spec-kit/waitlist-service/internal/api/http/handlers"
	"github.com/spec-kit/waitlist-service/internal/auth"
	"github.com/spec-kit/waitlist-service/internal/bot"
	"github.com/spec-kit/waitlist-service/internal/config"
	"github.com/spec-kit/waitlist-service/internal/events"
	"github.com/spec-kit/waitlist-service/internal/observability"
	"github.com/spec-kit/waitlist-service/internal/repository"
	"github.com/spec-kit/waitlist-service/internal/service"
)

const (
	testChannelSecret = "test-channel-secret"
	testStaffPassword = "hunter2"
)

type nullTransport struct {
	mu      sync.Mutex
	replies []string
}

func (n *nullTransport) Push(context.Context, string, string) error { return nil }

func (n *nullTransport) Reply(_ context.Context, _, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, text)
	return nil
}

func newTestApp(t *testing.T) (*fiber.App, *service.QueueService) {
	t.Helper()

	queue := service.NewQueueService(service.QueueDependencies{
		TicketRepo: repository.NewMemoryTicketRepository(),
		Dispatcher: events.NewInMemoryDispatcher(),
	})

	botRouter := bot.NewRouter(bot.RouterConfig{
		Queue:         queue,
		Transport:     &nullTransport{},
		ChannelSecret: testChannelSecret,
		StoreName:     "Test Store",
	})

	hash, err := auth.HashPassword(testStaffPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	authCfg := config.AuthConfig{
		JWTSecret:             "test-jwt-secret",
		AccessTokenTTLMinutes: 5,
		AdminPasswordHash:     hash,
	}
	tokens := auth.NewTokenManager(authCfg.JWTSecret, authCfg.AccessTokenTTLMinutes)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("test", "dev", nil, nil),
		Tickets:        handlers.NewTicketsHandler(queue),
		Admin:          handlers.NewAdminHandler(queue),
		Webhook:        handlers.NewWebhookHandler(botRouter),
		Auth:           handlers.NewAuthHandler(tokens, authCfg),
		AuthMiddleware: auth.NewMiddleware(tokens),
	})
	return app, queue
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	decoded := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp, decoded
}

func errorCode(body map[string]any) string {
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}

func staffToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, body := doJSON(t, app, fiber.MethodPost, "/auth/staff/login",
		map[string]any{"password": testStaffPassword}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %v", resp.StatusCode, body)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected login body: %v", body)
	}
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("empty token")
	}
	return token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestRegisterEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodPost, "/tickets",
		map[string]any{"name": "Yamada", "party_size": 3}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	ticket := data["ticket"].(map[string]any)
	if ticket["id"].(float64) != 1 || ticket["status"].(string) != "waiting" {
		t.Fatalf("unexpected ticket: %v", ticket)
	}
	if data["position"].(float64) != 1 || data["total_waiting"].(float64) != 1 {
		t.Fatalf("unexpected position info: %v", data)
	}

	resp, body = doJSON(t, app, fiber.MethodPost, "/tickets", map[string]any{"name": "  "}, nil)
	if resp.StatusCode != http.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("expected 400 VALIDATION_FAILED, got %d %v", resp.StatusCode, body)
	}
}

func TestPositionEndpoint(t *testing.T) {
	app, queue := newTestApp(t)

	if _, err := queue.Register(context.Background(), service.RegisterInput{Name: "Yamada"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, body := doJSON(t, app, fiber.MethodGet, "/tickets/1/position", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	if body["found"].(bool) != true || body["position"].(float64) != 1 {
		t.Fatalf("unexpected position body: %v", body)
	}

	resp, body = doJSON(t, app, fiber.MethodGet, "/tickets/99/position", nil, nil)
	if resp.StatusCode != http.StatusOK || body["found"].(bool) != false {
		t.Fatalf("expected found=false with 200, got %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, app, fiber.MethodGet, "/tickets/abc/position", nil, nil)
	if resp.StatusCode != http.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("expected 400 for bad id, got %d %v", resp.StatusCode, body)
	}
}

func TestStaffRoutesRequireToken(t *testing.T) {
	app, queue := newTestApp(t)

	if _, err := queue.Register(context.Background(), service.RegisterInput{Name: "Yamada"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, body := doJSON(t, app, fiber.MethodPost, "/tickets/1/call", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized || errorCode(body) != "UNAUTHORIZED" {
		t.Fatalf("expected 401 without token, got %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, app, fiber.MethodPost, "/tickets/1/call", nil, bearer("not-a-token"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d %v", resp.StatusCode, body)
	}
}

func TestStaffLifecycleEndpoints(t *testing.T) {
	app, queue := newTestApp(t)
	token := staffToken(t, app)

	if _, err := queue.Register(context.Background(), service.RegisterInput{Name: "Yamada"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, body := doJSON(t, app, fiber.MethodPost, "/tickets/1/call", nil, bearer(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("call status %d: %v", resp.StatusCode, body)
	}

	// Calling twice conflicts instead of re-notifying.
	resp, body = doJSON(t, app, fiber.MethodPost, "/tickets/1/call", nil, bearer(token))
	if resp.StatusCode != http.StatusConflict || errorCode(body) != "INVALID_TRANSITION" {
		t.Fatalf("expected 409 INVALID_TRANSITION, got %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, app, fiber.MethodPost, "/tickets/1/complete", nil, bearer(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete status %d: %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, app, fiber.MethodDelete, "/tickets/1", nil, bearer(token))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 removing completed ticket, got %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, app, fiber.MethodPost, "/queue/purge-completed", nil, bearer(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("purge status %d: %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, app, fiber.MethodGet, "/tickets/1/position", nil, nil)
	if resp.StatusCode != http.StatusOK || body["found"].(bool) != false {
		t.Fatalf("expected purged ticket to poll found=false, got %d %v", resp.StatusCode, body)
	}
}

func TestWebhookEndpoint(t *testing.T) {
	app, queue := newTestApp(t)

	if _, err := queue.Register(context.Background(), service.RegisterInput{Name: "Yamada"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	payload := []byte(`{"destination":"d","events":[{"type":"message","webhookEventId":"evt-1","replyToken":"rt","source":{"type":"user","userId":"user-1"},"message":{"type":"text","id":"m1","text":"register 1"}}]}`)
	mac := hmac.New(sha256.New, []byte(testChannelSecret))
	mac.Write(payload)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(fiber.MethodPost, "/callback", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Line-Signature", signature)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for signed callback, got %d", resp.StatusCode)
	}

	ticket, err := queue.GetTicket(context.Background(), 1)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if !ticket.HasChannel() {
		t.Fatal("expected webhook register command to link the channel")
	}

	req = httptest.NewRequest(fiber.MethodPost, "/callback", bytes.NewReader(payload))
	req.Header.Set("X-Line-Signature", "bogus")
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", resp.StatusCode)
	}
}

func TestStaffLoginRejectsBadPassword(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodPost, "/auth/staff/login",
		map[string]any{"password": "wrong"}, nil)
	if resp.StatusCode != http.StatusUnauthorized || errorCode(body) != "UNAUTHORIZED" {
		t.Fatalf("expected 401, got %d %v", resp.StatusCode, body)
	}
}

func TestHealthLive(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodGet, "/health/live", nil, nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "alive" {
		t.Fatalf("unexpected liveness response: %d %v", resp.StatusCode, body)
	}
}
