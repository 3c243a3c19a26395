package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/waitlist-service/internal/bot"
)

const signatureHeader = "X-Line-Signature"

// WebhookHandler receives chat-platform callbacks.
type WebhookHandler struct {
	router *bot.Router
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(router *bot.Router) *WebhookHandler {
	return &WebhookHandler{router: router}
}

// Callback POST /callback. The raw body bytes go to signature verification
// untouched; parsing only happens after the signature checks out.
func (h *WebhookHandler) Callback(c *fiber.Ctx) error {
	if err := h.router.HandleCallback(c.UserContext(), c.Body(), c.Get(signatureHeader)); err != nil {
		return err
	}
	return c.SendString("OK")
}
