// Package notify pushes short status messages to Telegram.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"newsforge/internal/logger"
)

const maxRetries = 3

// TelegramNotifier sends messages to a chat via the Bot API.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	backoff time.Duration
	client  *http.Client
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: "https://api.telegram.org",
		backoff: time.Second,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Notify sends text with retry and exponential backoff.
func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := t.sendOnce(ctx, text)
		if err == nil {
			return nil
		}

		logger.Warn("telegram send failed", "attempt", attempt, "error", err)
		if attempt < maxRetries {
			wait := time.Duration(1<<attempt) * t.backoff
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("can't send message after %d tries", maxRetries)
}

func (t *TelegramNotifier) sendOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	payload := map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %v", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return nil
}
