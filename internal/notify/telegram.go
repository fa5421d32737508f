package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"blend-quality-service/internal/config"
	"blend-quality-service/internal/logging"
	"blend-quality-service/internal/models"
)

// Telegram pushes non-compliant-hour alerts to the configured plant chats.
// A zero-value token disables dispatch without erroring, so deployments
// without a bot simply run silent.
type Telegram struct {
	token   string
	chatIDs []int64
	limiter *rate.Limiter
	logger  *logging.Logger
}

func NewTelegram(cfg config.Config, logger *logging.Logger) *Telegram {
	return &Telegram{
		token:   cfg.Telegram.BotToken,
		chatIDs: cfg.Telegram.ChatIDs,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.Telegram.RateLimit)), cfg.Telegram.RateLimit),
		logger:  logger,
	}
}

// Enabled reports whether dispatch is configured.
func (t *Telegram) Enabled() bool {
	return t.token != "" && len(t.chatIDs) > 0
}

// SendComplianceAlert notifies the configured chats about a non-compliant or
// alerting hour bucket.
func (t *Telegram) SendComplianceAlert(ctx context.Context, result models.ComplianceResult, summary models.BlendSummary) error {
	if !t.Enabled() {
		return nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	status := "ALERT"
	if !result.Compliant {
		status = "NON-COMPLIANT"
	}
	text := fmt.Sprintf(
		"*%s* %s %s %s\n"+
			"*Hour:* %s\n"+
			"*Dry matter:* %.2f%%\n"+
			"*Defect points:* %.1f\n"+
			"*Avg length:* %.1f mm\n"+
			"*Total weight:* %.0f kg (%d loads)",
		status,
		result.Key.PlantName, result.Key.PlantLine, result.Key.ProductName,
		result.Key.HourStart.Format("2006-01-02 15:04"),
		summary.DryMatterPct,
		summary.DefectPoints,
		summary.AvgLengthMM,
		summary.TotalWeight, summary.SampleCount,
	)

	b, err := bot.New(t.token)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}

	for _, chatID := range t.chatIDs {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := b.SendMessage(sendCtx, params)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", chatID, err)
		}
	}
	return nil
}
