package telegram

import (
	"Onboarding/internal/core/ports"
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// chattableSender is the part of *tgbotapi.BotAPI the client uses.
type chattableSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// tgClient implements the BotClientPort.
type tgClient struct {
	api chattableSender
	log zerolog.Logger
}

var _ ports.BotClientPort = (*tgClient)(nil)

// Connect creates the Bot API for token and wraps it in a client.
func Connect(token string, debug bool, baseLogger *zerolog.Logger) (ports.BotClientPort, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	api.Debug = debug
	baseLogger.Info().Str("username", api.Self.UserName).Msg("Bot API connected")
	return NewClient(api, baseLogger), nil
}

// NewClient creates a new Telegram client adapter.
func NewClient(api chattableSender, baseLogger *zerolog.Logger) ports.BotClientPort {
	log := baseLogger.With().Str("component", "tg_client").Logger()
	return &tgClient{api: api, log: log}
}

// SendMessage translates our params into a tgbotapi message.
func (c *tgClient) SendMessage(ctx context.Context, params ports.SendMessageParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(params.ChatID, params.Text)
	msg.ParseMode = params.ParseMode
	msg.DisableWebPagePreview = true

	if _, err := c.api.Send(msg); err != nil {
		c.log.Error().Err(err).Int64("chat_id", params.ChatID).Msg("Failed to send message")
		return err
	}
	return nil
}
