// Package telegram provides Telegram bot functionality.
package telegram

import (
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/schedulebot/internal/storage"
	"github.com/user/schedulebot/pkg/logger"
)

// ErrNoWebhookURL is returned when a bot has no webhook URL configured.
var ErrNoWebhookURL = errors.New("webhook URL is not set")

// API is the part of the Telegram Bot API the bot uses.
// *tgbotapi.BotAPI satisfies it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// NewAPI creates a Telegram API session for token without calling getMe.
// Sessions are cheap and meant to live for a single webhook call.
func NewAPI(token string, debug bool, client *http.Client) *tgbotapi.BotAPI {
	if client == nil {
		client = http.DefaultClient
	}
	api := &tgbotapi.BotAPI{
		Token:  token,
		Debug:  debug,
		Client: client,
		Buffer: 100,
	}
	api.SetAPIEndpoint(tgbotapi.APIEndpoint)
	return api
}

// SetWebhook registers the bot's full webhook URL with Telegram.
func SetWebhook(api API, bot *storage.Bot) error {
	if bot.WebhookURL == "" {
		logger.Warn().Str("bot_id", bot.ID.String()).Msg("Webhook URL is not set")
		return ErrNoWebhookURL
	}

	wh, err := tgbotapi.NewWebhook(bot.FullWebhookURL())
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}

	if _, err := api.Request(wh); err != nil {
		logger.Error().Err(err).Str("bot_id", bot.ID.String()).Msg("Failed to set webhook")
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	logger.Info().Str("bot_id", bot.ID.String()).Str("bot", bot.Name).Msg("Webhook registered")
	return nil
}
