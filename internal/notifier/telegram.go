// Package notifier delivers run summaries to a Telegram chat.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/phuslu/log"
)

const telegramBaseURL = "https://api.telegram.org"

// Notifier delivers a formatted message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// TelegramOptions configures a TelegramNotifier.
type TelegramOptions struct {
	BotToken string
	ChatID   string
	Proxy    string
	// BaseURL overrides the Bot API host.
	BaseURL string
	Logger  *log.Logger
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	client *resty.Client
	chatID string
	logger *log.Logger
	// Backoff is the first retry delay; it doubles on every attempt.
	Backoff time.Duration
	// Retries is how many times Notify retries a failed send.
	Retries int
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(opts TelegramOptions) *TelegramNotifier {
	if opts.BaseURL == "" {
		opts.BaseURL = telegramBaseURL
	}
	client := resty.New().
		SetBaseURL(opts.BaseURL + "/bot" + opts.BotToken).
		SetTimeout(pollTimeout + 10*time.Second)
	if opts.Proxy != "" {
		client.SetProxy(opts.Proxy)
	}
	lg := opts.Logger
	if lg == nil {
		lg = &log.DefaultLogger
	}
	return &TelegramNotifier{
		client:  client,
		chatID:  opts.ChatID,
		logger:  lg,
		Backoff: time.Second,
		Retries: 3,
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	var out telegramResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		SetResult(&out).
		SetError(&out).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.IsError() || !out.OK {
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.Backoff << uint(i)
		t.logger.Warn().Err(err).Int("attempt", i+1).Dur("backoff", backoff).Msg("telegram send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// Notify implements Notifier.
func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	return t.SendWithRetry(ctx, text, t.Retries)
}
