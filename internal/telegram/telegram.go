package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/newscrawler/internal/retry"
)

const defaultBaseURL = "https://api.telegram.org"

// Client posts messages to one chat through the Bot API.
type Client struct {
	Token   string
	ChatID  string
	BaseURL string
	HTTP    *http.Client
	Retry   retry.RetryConfig
}

func NewClient(token, chatID string) *Client {
	return &Client{
		Token:   token,
		ChatID:  chatID,
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Retry: retry.RetryConfig{
			MaxAttempts: 3,
			Delay:       2 * time.Second,
			Backoff:     true,
		},
	}
}

// SendMessage sends an HTML text message with retry
func (c *Client) SendMessage(ctx context.Context, text string) error {
	cfg := c.Retry
	cfg.OnRetry = func(attempt int, err error) {
		slog.Warn("telegram send failed, retrying", "attempt", attempt, "err", err)
	}
	if err := retry.WithRetry(ctx, cfg, func() error { return c.sendOnce(ctx, text) }); err != nil {
		return fmt.Errorf("can't send message: %w", err)
	}
	slog.Debug("message sent to telegram", "chat", c.ChatID)
	return nil
}

// sendOnce does one try to send message
func (c *Client) sendOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.BaseURL, c.Token)

	payload := map[string]interface{}{
		"chat_id":                  c.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("error make JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			slog.Warn("failed to close response body", "err", err)
		}
	}(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(fmt.Errorf("telegram API error: status %d", resp.StatusCode))
	default:
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
}
