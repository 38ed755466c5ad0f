package sms

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"

	"github.com/rs/zerolog"
)

// logSender is the development sender. It records that a message would have
// been sent and drops it; the body is not logged.
type logSender struct {
	log zerolog.Logger
}

var _ ports.SMSSender = (*logSender)(nil)

func NewLogSender(baseLogger *zerolog.Logger) ports.SMSSender {
	return &logSender{log: baseLogger.With().Str("component", "log_sms").Logger()}
}

func (s *logSender) SendText(ctx context.Context, phone, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info().
		Str("phone", domain.MaskPhone(phone)).
		Int("length", len(message)).
		Msg("SMS delivery skipped (log provider)")
	return nil
}
