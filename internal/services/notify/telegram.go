package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fgeck/openvpn-backup/internal/models"
)

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Telegram publishes notifications through the Telegram Bot API.
type Telegram struct {
	cfg        models.TelegramConfig
	httpClient HTTPClient
	baseURL    string
}

// NewTelegram creates a new Telegram publisher.
func NewTelegram(cfg models.TelegramConfig) *Telegram {
	return NewTelegramWithClient(cfg, &http.Client{Timeout: 30 * time.Second}, "https://api.telegram.org")
}

// NewTelegramWithClient creates a new Telegram publisher with a custom HTTP client (for testing).
func NewTelegramWithClient(cfg models.TelegramConfig, httpClient HTTPClient, baseURL string) *Telegram {
	return &Telegram{
		cfg:        cfg,
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// sendMessageRequest is the request body for Telegram sendMessage API.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Name implements Publisher.
func (p *Telegram) Name() string {
	return "telegram"
}

// Publish implements Publisher.
func (p *Telegram) Publish(ctx context.Context, n models.Notification) error {
	reqBody := sendMessageRequest{
		ChatID:    p.cfg.ChatID,
		Text:      formatTelegram(n),
		ParseMode: "HTML",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", p.baseURL, p.cfg.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

func formatTelegram(n models.Notification) string {
	var b bytes.Buffer

	if n.Failed {
		b.WriteString("❌ ")
	} else {
		b.WriteString("✅ ")
	}
	b.WriteString("<b>" + escapeHTML(n.Subject) + "</b>\n\n")
	b.WriteString(escapeHTML(n.Body))

	return b.String()
}

// escapeHTML escapes HTML special characters.
func escapeHTML(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
