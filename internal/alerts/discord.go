package alerts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"go.uber.org/zap"
)

// maxDiscordEmbeds is the webhook limit per message.
const maxDiscordEmbeds = 10

var discordColors = map[arbitrage.Kind]int{
	arbitrage.KindInternal:      0x00FF00,
	arbitrage.KindCrossPlatform: 0x0099FF,
	arbitrage.KindHedging:       0xFF9900,
}

type discordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []discordField `json:"fields"`
	Footer    discordFooter  `json:"footer"`
	Timestamp string         `json:"timestamp"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// DiscordConfig holds Discord webhook settings.
type DiscordConfig struct {
	WebhookURL string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// DiscordChannel posts opportunities as webhook embeds.
type DiscordChannel struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewDiscordChannel creates a Discord channel.
func NewDiscordChannel(cfg DiscordConfig) *DiscordChannel {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscordChannel{webhookURL: cfg.WebhookURL, client: client, logger: logger}
}

// Name implements Channel.
func (d *DiscordChannel) Name() string { return "discord" }

// Send posts a single embed.
func (d *DiscordChannel) Send(ctx context.Context, opp *arbitrage.Opportunity) bool {
	return d.SendBatch(ctx, []*arbitrage.Opportunity{opp}) == 1
}

// SendBatch posts embeds in messages of at most ten.
func (d *DiscordChannel) SendBatch(ctx context.Context, opps []*arbitrage.Opportunity) int {
	sent := 0
	for start := 0; start < len(opps); start += maxDiscordEmbeds {
		end := min(start+maxDiscordEmbeds, len(opps))
		chunk := opps[start:end]

		embeds := make([]discordEmbed, len(chunk))
		for i, opp := range chunk {
			embeds[i] = buildDiscordEmbed(opp)
		}

		err := d.post(ctx, discordPayload{Embeds: embeds})
		if err != nil {
			d.logger.Error("discord-send-failed",
				zap.Int("embeds", len(embeds)),
				zap.Error(err))
			continue
		}
		sent += len(chunk)
	}
	return sent
}

func (d *DiscordChannel) post(ctx context.Context, payload discordPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func buildDiscordEmbed(opp *arbitrage.Opportunity) discordEmbed {
	venues := make([]string, len(opp.Venues))
	for i, v := range opp.Venues {
		venues[i] = string(v)
	}

	fields := []discordField{
		{Name: "Profit", Value: arbitrage.FormatPercent(opp.ProfitPercentage, 2), Inline: true},
		{Name: "Type", Value: kindTitle(opp.Kind), Inline: true},
		{Name: "Confidence", Value: arbitrage.FormatPercent(opp.Confidence, 0), Inline: true},
		{Name: "Platforms", Value: strings.Join(venues, ", "), Inline: false},
	}
	if len(opp.Instructions) > 0 {
		fields = append(fields, discordField{
			Name:  "Instructions",
			Value: "```\n" + strings.Join(instructionPreview(opp, 5), "\n") + "\n```",
		})
	}

	return discordEmbed{
		Title:     "🎯 Arbitrage Opportunity",
		Color:     discordColors[opp.Kind],
		Fields:    fields,
		Footer:    discordFooter{Text: "ID: " + opp.ID},
		Timestamp: opp.DetectedAt.UTC().Format(time.RFC3339),
	}
}
