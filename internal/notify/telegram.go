package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Channel delivers one rendered message to the outbound endpoint.
type Channel interface {
	Send(ctx context.Context, text string) error
}

// Telegram pushes messages through the Telegram Bot API. A 429 response
// carries a retry_after hint which is honoured with unbounded retries;
// every other failure surfaces after a single attempt.
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegram constructs the Telegram channel.
func NewTelegram(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *Telegram {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "telegram_channel").Logger(),
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send posts the text with Markdown formatting, backing off and retrying
// whenever the API signals it is rate limited.
func (t *Telegram) Send(ctx context.Context, text string) error {
	for {
		retryAfter, err := t.attempt(ctx, text)
		if err != nil {
			return err
		}
		if retryAfter <= 0 {
			return nil
		}

		t.logger.Warn().Int("retry_after_s", retryAfter).Msg("rate limited by telegram, backing off")
		timer := time.NewTimer(time.Duration(retryAfter) * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// attempt performs one sendMessage call. A positive retryAfter means the
// channel asked for a backoff; zero with nil error means delivered.
func (t *Telegram) attempt(ctx context.Context, text string) (retryAfter int, err error) {
	payload := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	var result telegramResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode == http.StatusTooManyRequests || (decodeErr == nil && result.ErrorCode == http.StatusTooManyRequests) {
		after := result.Parameters.RetryAfter
		if after <= 0 {
			after = 1
		}
		return after, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("telegram status %d: %s", resp.StatusCode, result.Description)
	}
	if decodeErr == nil && !result.OK {
		return 0, fmt.Errorf("telegram returned ok=false: %s", result.Description)
	}

	return 0, nil
}

var _ Channel = (*Telegram)(nil)
