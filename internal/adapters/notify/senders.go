package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	telegramAPI        = "https://api.telegram.org"
)

// WebhookSender posts {"content": ...} to a chat webhook (Discord, Slack-style
// incoming hooks and compatible relays).
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a WebhookSender for url.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{url: url, client: &http.Client{Timeout: defaultHTTPTimeout}}
}

// Name implements Sender.
func (w *WebhookSender) Name() string { return "webhook" }

// Send implements Sender.
func (w *WebhookSender) Send(ctx context.Context, title, message string) error {
	return post(ctx, w.client, w.url, map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", title, message),
	})
}

// TelegramSender delivers through the Bot API sendMessage method.
type TelegramSender struct {
	base   string
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSender creates a TelegramSender for a bot token and chat id.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{base: telegramAPI, token: token, chatID: chatID, client: &http.Client{Timeout: defaultHTTPTimeout}}
}

// WithBaseURL points the sender at another API host.
func (t *TelegramSender) WithBaseURL(base string) *TelegramSender {
	t.base = strings.TrimRight(base, "/")
	return t
}

// Name implements Sender.
func (t *TelegramSender) Name() string { return "telegram" }

// Send implements Sender.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)
	return post(ctx, t.client, url, map[string]string{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n%s", title, message),
		"parse_mode": "Markdown",
	})
}

func post(ctx context.Context, client *http.Client, url string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
