package alerts

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"go.uber.org/zap"
)

// DefaultTelegramAPIURL is the Bot API base URL.
const DefaultTelegramAPIURL = "https://api.telegram.org"

var telegramEmoji = map[arbitrage.Kind]string{
	arbitrage.KindInternal:      "🟢",
	arbitrage.KindCrossPlatform: "🔵",
	arbitrage.KindHedging:       "🟠",
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	BotToken   string
	ChatID     string
	APIURL     string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// TelegramChannel sends opportunities as HTML bot messages.
type TelegramChannel struct {
	endpoint string
	chatID   string
	client   *http.Client
	logger   *zap.Logger
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// NewTelegramChannel creates a Telegram channel.
func NewTelegramChannel(cfg TelegramConfig) *TelegramChannel {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultTelegramAPIURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TelegramChannel{
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", apiURL, cfg.BotToken),
		chatID:   cfg.ChatID,
		client:   client,
		logger:   logger,
	}
}

// Name implements Channel.
func (t *TelegramChannel) Name() string { return "telegram" }

// Send posts one message.
func (t *TelegramChannel) Send(ctx context.Context, opp *arbitrage.Opportunity) bool {
	err := t.post(ctx, formatTelegram(opp))
	if err != nil {
		t.logger.Error("telegram-send-failed",
			zap.String("opportunity-id", opp.ID),
			zap.Error(err))
		return false
	}
	return true
}

// SendBatch posts one message per opportunity.
func (t *TelegramChannel) SendBatch(ctx context.Context, opps []*arbitrage.Opportunity) int {
	sent := 0
	for _, opp := range opps {
		if t.Send(ctx, opp) {
			sent++
		}
	}
	return sent
}

func (t *TelegramChannel) post(ctx context.Context, text string) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func formatTelegram(opp *arbitrage.Opportunity) string {
	lines := []string{
		telegramEmoji[opp.Kind] + " <b>Arbitrage Alert</b>",
		"",
		"<b>Profit:</b> " + arbitrage.FormatPercent(opp.ProfitPercentage, 2),
		"<b>Type:</b> " + kindTitle(opp.Kind),
		"",
		"<i>" + html.EscapeString(opp.Description) + "</i>",
	}

	if len(opp.Instructions) > 0 {
		lines = append(lines, "", "<b>Instructions:</b>")
		for _, inst := range instructionPreview(opp, 5) {
			lines = append(lines, html.EscapeString(inst))
		}
	}

	return strings.Join(lines, "\n")
}
