package ports

import (
	"context"
)

// SendMessageParams holds the options for posting a bot message.
type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string // e.g., "MarkdownV2" or "HTML"
}

// BotClientPort sends messages to a chat. The ops notifier uses it to post
// registration events to a channel.
type BotClientPort interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
}
