package otp

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const smsTemplate = "Your verification code is %s. It expires in %d minutes."

// Service issues and verifies one-time codes. Every method has a Tx variant
// so registration flows can run code handling inside their own transaction.
type Service struct {
	tx     ports.TxManager
	sms    ports.SMSSender
	cfg    Config
	now    ports.Clock
	random io.Reader
	log    zerolog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(c ports.Clock) Option {
	return func(s *Service) { s.now = c }
}

// WithRandom replaces crypto/rand as the code source.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

func NewService(tx ports.TxManager, sms ports.SMSSender, cfg Config, baseLogger *zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		tx:     tx,
		sms:    sms,
		cfg:    cfg,
		now:    time.Now,
		random: rand.Reader,
		log:    baseLogger.With().Str("component", "otp_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type IssueRequest struct {
	Phone   string
	Kind    domain.ActorKind
	Purpose domain.Purpose
	Payload map[string]any
}

// Issued describes a freshly issued code. Code is empty unless the service
// is configured to return codes to the client.
type Issued struct {
	PhoneNumber string
	Kind        domain.ActorKind
	Purpose     domain.Purpose
	ExpiresAt   time.Time
	Code        string
}

type VerifyRequest struct {
	Phone   string
	Kind    domain.ActorKind
	Purpose domain.Purpose
	Code    string
}

// Verified is the result of a successful verification. The code is gone.
type Verified struct {
	PhoneNumber string
	Kind        domain.ActorKind
	Purpose     domain.Purpose
	Payload     map[string]any
}

// PendingCode is the metadata of a live code, without the code itself.
type PendingCode struct {
	PhoneNumber string
	Kind        domain.ActorKind
	Purpose     domain.Purpose
	ExpiresAt   time.Time
	Attempts    int
	HasPayload  bool
	ResendAt    time.Time
}

// IsRejection reports whether err is a verification failure whose
// bookkeeping (attempt counter, deleted row) must still be committed.
func IsRejection(err error) bool {
	return domain.IsKind(err, domain.KindInvalidCode, domain.KindExpiredCode, domain.KindTooManyAttempts)
}

// NormalizePhone returns the key phone numbers are stored and locked under.
func (s *Service) NormalizePhone(raw string) (string, error) {
	return s.cfg.Phones.Normalize(raw)
}

// Issue generates and sends a new code, replacing any live one.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*Issued, error) {
	var out *Issued
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		var err error
		out, err = s.IssueTx(ctx, r, req)
		return err
	})
	return out, err
}

// IssueTx is Issue inside the caller's transaction. A delivery failure is
// returned so the caller rolls back.
func (s *Service) IssueTx(ctx context.Context, r ports.Repositories, req IssueRequest) (*Issued, error) {
	phone, err := s.cfg.Phones.Normalize(req.Phone)
	if err != nil {
		return nil, err
	}
	if !req.Kind.Valid() {
		return nil, domain.FieldError(domain.KindInvalidInput, "invalid actor kind", "actor_kind", "must be customer or merchant")
	}
	if !req.Purpose.Valid() {
		return nil, domain.FieldError(domain.KindInvalidInput, "invalid code purpose", "purpose", "must be registration or login")
	}

	log := s.log.With().
		Str("phone", domain.MaskPhone(phone)).
		Str("actor_kind", string(req.Kind)).
		Str("purpose", string(req.Purpose)).
		Logger()

	// 1. Generate
	policy := s.cfg.PolicyFor(req.Kind, req.Purpose)
	code, err := generateCode(s.random, policy.Length, s.cfg.LeadingZeros)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate verification code")
		return nil, domain.Internal("failed to generate verification code", err)
	}

	// 2. Persist, replacing any previous code for this phone and kind
	now := s.now()
	row := &domain.VerificationCode{
		ID:          uuid.New(),
		PhoneNumber: phone,
		ActorKind:   req.Kind,
		Purpose:     req.Purpose,
		CodeHash:    hashCode(code),
		Payload:     req.Payload,
		ExpiresAt:   now.Add(policy.TTL),
		CreatedAt:   now,
	}
	if err := r.Codes.Upsert(ctx, row); err != nil {
		log.Error().Err(err).Msg("Failed to store verification code")
		return nil, domain.Internal("failed to store verification code", err)
	}

	// 3. Deliver
	minutes := int(math.Ceil(policy.TTL.Minutes()))
	if err := s.sms.SendText(ctx, phone, fmt.Sprintf(smsTemplate, code, minutes)); err != nil {
		log.Error().Err(err).Msg("Failed to send verification code")
		return nil, domain.WrapError(domain.KindDeliveryFailed, "failed to send verification code", err)
	}

	log.Info().Time("expires_at", row.ExpiresAt).Msg("Verification code issued")

	out := &Issued{
		PhoneNumber: phone,
		Kind:        req.Kind,
		Purpose:     req.Purpose,
		ExpiresAt:   row.ExpiresAt,
	}
	if s.cfg.ReturnCodeToClient {
		out.Code = code
	}
	return out, nil
}

// Verify checks a submitted code and consumes it on success. Failed
// attempts are committed before the rejection is returned.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*Verified, error) {
	var (
		out       *Verified
		rejection error
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		v, err := s.VerifyTx(ctx, r, req)
		if IsRejection(err) {
			rejection = err
			return nil
		}
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}
	return out, nil
}

// VerifyTx is Verify inside the caller's transaction. The row is locked for
// the rest of the transaction so a code can only be consumed once. Callers
// should commit when IsRejection(err) is true.
func (s *Service) VerifyTx(ctx context.Context, r ports.Repositories, req VerifyRequest) (*Verified, error) {
	phone, err := s.cfg.Phones.Normalize(req.Phone)
	if err != nil {
		return nil, err
	}
	policy := s.cfg.PolicyFor(req.Kind, req.Purpose)
	if !wellFormed(req.Code, policy.Length) {
		return nil, domain.ErrInvalidCode.WithField("code", "must be "+strconv.Itoa(policy.Length)+" digits")
	}

	log := s.log.With().
		Str("phone", domain.MaskPhone(phone)).
		Str("actor_kind", string(req.Kind)).
		Logger()

	// 1. Lock the live row for this phone and kind
	row, err := r.Codes.GetForUpdate(ctx, phone, req.Kind)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load verification code")
		return nil, domain.Internal("failed to load verification code", err)
	}
	if row == nil || row.Purpose != req.Purpose {
		return nil, domain.ErrInvalidCode
	}

	matches := codeMatches(req.Code, row.CodeHash)

	// 2. Expired rows are removed whatever was submitted
	if row.IsExpired(s.now()) {
		if err := r.Codes.Delete(ctx, row.ID); err != nil {
			return nil, domain.Internal("failed to delete expired code", err)
		}
		log.Info().Msg("Expired verification code removed")
		if matches {
			return nil, domain.ErrExpiredCode
		}
		return nil, domain.ErrInvalidCode
	}

	// 3. Wrong code counts against the attempt limit
	if !matches {
		attempts, err := r.Codes.IncrementAttempts(ctx, row.ID)
		if err != nil {
			return nil, domain.Internal("failed to record attempt", err)
		}
		if s.cfg.MaxAttempts <= 0 {
			return nil, domain.ErrInvalidCode
		}
		if attempts >= s.cfg.MaxAttempts {
			if err := r.Codes.Delete(ctx, row.ID); err != nil {
				return nil, domain.Internal("failed to delete exhausted code", err)
			}
			log.Warn().Int("attempts", attempts).Msg("Verification code exhausted")
			return nil, domain.ErrTooManyAttempts
		}
		return nil, domain.ErrInvalidCode.WithField("attempts_remaining", strconv.Itoa(s.cfg.MaxAttempts-attempts))
	}

	// 4. Consume
	if err := r.Codes.Delete(ctx, row.ID); err != nil {
		log.Error().Err(err).Msg("Failed to consume verification code")
		return nil, domain.Internal("failed to consume verification code", err)
	}
	log.Info().Msg("Verification code consumed")

	return &Verified{
		PhoneNumber: phone,
		Kind:        row.ActorKind,
		Purpose:     row.Purpose,
		Payload:     row.Payload,
	}, nil
}

// CheckResendTx returns the current row for (phone, kind), which may be nil
// or expired, or ErrResendTooSoon when the last code is too recent.
func (s *Service) CheckResendTx(ctx context.Context, r ports.Repositories, phone string, kind domain.ActorKind) (*domain.VerificationCode, error) {
	phone, err := s.cfg.Phones.Normalize(phone)
	if err != nil {
		return nil, err
	}
	row, err := r.Codes.GetForUpdate(ctx, phone, kind)
	if err != nil {
		return nil, domain.Internal("failed to load verification code", err)
	}
	if row == nil || s.cfg.ResendDelay <= 0 {
		return row, nil
	}
	if wait := row.CreatedAt.Add(s.cfg.ResendDelay).Sub(s.now()); wait > 0 {
		secs := int(math.Ceil(wait.Seconds()))
		return nil, domain.ErrResendTooSoon.WithField("retry_after", strconv.Itoa(secs))
	}
	return row, nil
}

// Resend issues a fresh code after the resend delay. When req.Payload is
// nil the payload of the previous code is carried forward.
func (s *Service) Resend(ctx context.Context, req IssueRequest) (*Issued, error) {
	var out *Issued
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		prev, err := s.CheckResendTx(ctx, r, req.Phone, req.Kind)
		if err != nil {
			return err
		}
		if req.Payload == nil && prev != nil {
			req.Payload = prev.Payload
		}
		out, err = s.IssueTx(ctx, r, req)
		return err
	})
	return out, err
}

// Pending returns the live code for (phone, kind), or nil. An expired row
// found on the way is deleted.
func (s *Service) Pending(ctx context.Context, phone string, kind domain.ActorKind) (*PendingCode, error) {
	phone, err := s.cfg.Phones.Normalize(phone)
	if err != nil {
		return nil, err
	}

	var out *PendingCode
	err = s.tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		row, err := r.Codes.GetForUpdate(ctx, phone, kind)
		if err != nil || row == nil {
			return err
		}
		if row.IsExpired(s.now()) {
			return r.Codes.Delete(ctx, row.ID)
		}
		out = &PendingCode{
			PhoneNumber: row.PhoneNumber,
			Kind:        row.ActorKind,
			Purpose:     row.Purpose,
			ExpiresAt:   row.ExpiresAt,
			Attempts:    row.Attempts,
			HasPayload:  row.HasPayload(),
			ResendAt:    row.CreatedAt.Add(s.cfg.ResendDelay),
		}
		return nil
	})
	if err != nil {
		return nil, domain.Internal("failed to load pending code", err)
	}
	return out, nil
}
