package telegram

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier posts a short message to an ops channel whenever an account
// finishes registration.
type Notifier struct {
	client ports.BotClientPort
	chatID int64
	log    zerolog.Logger
}

func NewNotifier(client ports.BotClientPort, chatID int64, baseLogger *zerolog.Logger) *Notifier {
	return &Notifier{
		client: client,
		chatID: chatID,
		log:    baseLogger.With().Str("component", "tg_notifier").Logger(),
	}
}

// Subscribe registers the notifier for both registration topics.
func (n *Notifier) Subscribe(bus ports.EventBus) {
	bus.Subscribe(ports.TopicMerchantRegistered, n.handle)
	bus.Subscribe(ports.TopicCustomerRegistered, n.handle)
}

func (n *Notifier) handle(ctx context.Context, event ports.Event) error {
	ev, ok := event.Data.(ports.RegistrationEvent)
	if !ok {
		if p, isPtr := event.Data.(*ports.RegistrationEvent); isPtr && p != nil {
			ev = *p
		} else {
			n.log.Warn().Str("topic", event.Topic).Msg("Ignoring event with unexpected payload")
			return nil
		}
	}

	err := n.client.SendMessage(ctx, ports.SendMessageParams{
		ChatID:    n.chatID,
		Text:      FormatRegistration(ev),
		ParseMode: tgbotapi.ModeMarkdownV2,
	})
	if err != nil {
		return fmt.Errorf("notify %s: %w", event.Topic, err)
	}
	n.log.Debug().Str("topic", event.Topic).Str("account_id", ev.AccountID.String()).Msg("Registration notification sent")
	return nil
}

// FormatRegistration renders ev as a MarkdownV2 message. The phone number
// is masked.
func FormatRegistration(ev ports.RegistrationEvent) string {
	title := "New customer registered"
	if ev.Kind == domain.ActorMerchant {
		title = "New merchant registered"
	}
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s) }

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", esc(title))
	if name := ev.Name.Get(domain.DefaultLocale); name != "" {
		fmt.Fprintf(&b, "Name: %s\n", esc(name))
	}
	fmt.Fprintf(&b, "Phone: %s\n", esc(domain.MaskPhone(ev.PhoneNumber)))
	if ev.Flow != "" {
		fmt.Fprintf(&b, "Flow: %s\n", esc(ev.Flow))
	}
	fmt.Fprintf(&b, "At: %s", esc(ev.At.UTC().Format(time.RFC3339)))
	return b.String()
}
