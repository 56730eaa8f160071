// Package publish delivers final post text to the downstream messaging
// channel.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MaxMessageLen is the downstream channel's hard message-size cap.
const MaxMessageLen = 4096

// truncationMarker is appended when a post is cut at the cap.
const truncationMarker = "..."

// DefaultAPIBase is the production Telegram Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// TelegramConfig configures the Telegram publisher.
type TelegramConfig struct {
	Token     string
	ChannelID string
	// APIBase overrides the Bot API host (tests point it at httptest).
	APIBase string
	// ParseMode is empty for plain text or "HTML" for the digest.
	ParseMode string
	// DisablePreview suppresses link previews (used by the digest, whose
	// every line is a link).
	DisablePreview bool
	Timeout        time.Duration
}

// TelegramPublisher sends messages to one channel via the Bot API.
type TelegramPublisher struct {
	cfg     TelegramConfig
	chatID  string
	client  *http.Client
	logger  *zap.Logger
	apiBase string
}

// NewTelegram validates credentials and builds the publisher.
func NewTelegram(cfg TelegramConfig, logger *zap.Logger) (*TelegramPublisher, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if strings.TrimSpace(cfg.ChannelID) == "" {
		return nil, fmt.Errorf("telegram channel id is required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramPublisher{
		cfg:     cfg,
		chatID:  NormalizeChannelID(cfg.ChannelID),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		apiBase: strings.TrimSuffix(cfg.APIBase, "/"),
	}, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Publish sends one message to the configured channel.
func (p *TelegramPublisher) Publish(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                p.chatID,
		Text:                  text,
		ParseMode:             p.cfg.ParseMode,
		DisableWebPagePreview: p.cfg.DisablePreview,
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", p.apiBase, p.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode telegram response (status %d): %w", resp.StatusCode, err)
	}
	if !body.OK {
		if strings.Contains(strings.ToLower(body.Description), "chat not found") {
			p.logger.Error("telegram chat not found; check the channel id and that the bot is a channel admin",
				zap.String("chat_id", p.chatID),
			)
		}
		return fmt.Errorf("telegram api error (status %d): %s", resp.StatusCode, body.Description)
	}
	return nil
}

// NormalizeChannelID converts a raw channel identifier into the form the
// Bot API expects. Supergroup channel IDs copied from clients often lack
// the negative prefix: a purely numeric ID starting with "100" and longer
// than ten digits gets "-" prepended. Everything else (negative numerics,
// @channelname) passes through unchanged.
func NormalizeChannelID(raw string) string {
	id := strings.TrimSpace(raw)
	if isDigits(id) && strings.HasPrefix(id, "100") && len(id) > 10 {
		return "-" + id
	}
	return id
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// TruncatePost enforces the channel's hard size cap: oversized posts are
// cut to exactly MaxMessageLen runes, ending in the truncation marker.
func TruncatePost(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxMessageLen {
		return text
	}
	return string(runes[:MaxMessageLen-len(truncationMarker)]) + truncationMarker
}
