package sms

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the part of the Twilio REST client the sender needs.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioConfig holds the account credentials and sender number.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	From        string
	CountryCode string // prefix for local numbers, e.g. "+966"
}

type twilioSender struct {
	api    messageCreator
	from   string
	phones domain.PhoneNormalizer
	log    zerolog.Logger
}

var _ ports.SMSSender = (*twilioSender)(nil)

// NewTwilioSender creates an SMSSender backed by the Twilio Messages API.
func NewTwilioSender(cfg TwilioConfig, baseLogger *zerolog.Logger) (ports.SMSSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, errors.New("missing Twilio credentials")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilioSender(client.Api, cfg, baseLogger), nil
}

func newTwilioSender(api messageCreator, cfg TwilioConfig, baseLogger *zerolog.Logger) *twilioSender {
	return &twilioSender{
		api:    api,
		from:   cfg.From,
		phones: domain.PhoneNormalizer{CountryCode: cfg.CountryCode},
		log:    baseLogger.With().Str("component", "twilio_sms").Logger(),
	}
}

// SendText delivers message to phone. The message body is never logged
// because it carries the verification code.
func (s *twilioSender) SendText(ctx context.Context, phone, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(s.toE164(phone))
	params.SetBody(message)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		s.log.Error().Err(err).Str("phone", domain.MaskPhone(phone)).Msg("Failed to send SMS")
		return fmt.Errorf("twilio create message: %w", err)
	}

	event := s.log.Info().Str("phone", domain.MaskPhone(phone))
	if resp != nil && resp.Sid != nil {
		event = event.Str("sid", *resp.Sid)
	}
	event.Msg("SMS sent")
	return nil
}

// toE164 turns a local number such as 0551234567 into +966551234567.
// Stored numbers are already in that form; anything the normalizer rejects
// is handed to Twilio unchanged so the API reports it.
func (s *twilioSender) toE164(phone string) string {
	if out, err := s.phones.Normalize(phone); err == nil {
		return out
	}
	return phone
}
