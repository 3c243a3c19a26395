package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/waitlist-service/internal/config"
)

// LineTransport delivers messages through the LINE Messaging API. One
// best-effort call per message; retry policy, if any, stays on the
// platform side.
type LineTransport struct {
	client   *http.Client
	token    string
	pushURL  string
	replyURL string
	logger   *zap.Logger
}

// NewLineTransport builds the transport from channel configuration.
func NewLineTransport(cfg config.LineConfig, logger *zap.Logger) *LineTransport {
	return &LineTransport{
		client:   &http.Client{Timeout: cfg.Timeout()},
		token:    cfg.ChannelAccessToken,
		pushURL:  cfg.PushURL,
		replyURL: cfg.ReplyURL,
		logger:   logger,
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

// Push sends a text message to a linked recipient.
func (t *LineTransport) Push(ctx context.Context, to, text string) error {
	body := pushRequest{
		To:       to,
		Messages: []textMessage{{Type: "text", Text: text}},
	}
	return t.post(ctx, t.pushURL, body)
}

// Reply answers an inbound event using its reply token.
func (t *LineTransport) Reply(ctx context.Context, replyToken, text string) error {
	body := replyRequest{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: text}},
	}
	return t.post(ctx, t.replyURL, body)
}

func (t *LineTransport) post(ctx context.Context, url string, payload any) error {
	if t.token == "" {
		return fmt.Errorf("channel access token not configured")
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("line api status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
