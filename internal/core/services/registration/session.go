package registration

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"Onboarding/internal/core/services/otp"
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultSessionTTL is how long an unfinished registration session lives.
const DefaultSessionTTL = 24 * time.Hour

// SessionRegistration is the session-keyed flow: form data accumulates in a
// registration session and the account is only created by Complete.
type SessionRegistration struct {
	deps Deps
	ttl  time.Duration
	log  zerolog.Logger
}

func NewSessionRegistration(deps Deps, ttl time.Duration, baseLogger *zerolog.Logger) *SessionRegistration {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRegistration{
		deps: deps,
		ttl:  ttl,
		log:  baseLogger.With().Str("component", "session_registration").Logger(),
	}
}

// SessionFlow returns the step flow used for sessions of kind.
func SessionFlow(kind domain.ActorKind) domain.StepFlow {
	if kind == domain.ActorMerchant {
		return domain.MerchantSessionFlow
	}
	return domain.CustomerSessionFlow
}

// SessionView is a session plus its progress along its flow.
type SessionView struct {
	Session            *domain.RegistrationSession
	NextStep           domain.Step
	CompletedSteps     int
	TotalSteps         int
	ProgressPercentage int
	OTP                *otp.Issued // set when a code was sent by this call
}

func newSessionView(sess *domain.RegistrationSession) *SessionView {
	flow := SessionFlow(sess.ActorKind)
	done := sess.Completed()
	v := &SessionView{
		Session:    sess,
		NextStep:   flow.Next(done, ""),
		TotalSteps: flow.Len(),
	}
	v.CompletedSteps, v.ProgressPercentage = flow.Progress(done)
	return v
}

// Start opens a session with basic_info completed and sends a code.
func (s *SessionRegistration) Start(ctx context.Context, kind domain.ActorKind, form map[string]any) (*SessionView, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	data, phone, err := s.deps.registrationData(form)
	if err != nil {
		return nil, err
	}
	if _, err := requireName(data); err != nil {
		return nil, err
	}
	if _, err := domain.NormalizeEmail(domain.StringField(data, "email")); err != nil {
		return nil, err
	}

	log := s.log.With().Str("actor_kind", string(kind)).Str("phone", domain.MaskPhone(phone)).Logger()

	var out *SessionView
	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		now := s.deps.now()

		// 1. Opportunistic cleanup
		if n, err := r.Sessions.DeleteExpired(ctx, now); err != nil {
			return domain.Internal("failed to clean up sessions", err)
		} else if n > 0 {
			log.Debug().Int64("count", n).Msg("Expired sessions removed")
		}

		// 2. Permanent accounts win
		if err := checkAvailable(ctx, r, kind, phone, data); err != nil {
			return err
		}

		// 3. Create the session
		sess := &domain.RegistrationSession{
			ID:          uuid.NewString(),
			ActorKind:   kind,
			PhoneNumber: phone,
			Data:        data,
			ExpiresAt:   now.Add(s.ttl),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		sess.CompleteStep(SessionFlow(kind), domain.StepBasicInfo, now)
		if err := r.Sessions.Create(ctx, sess); err != nil {
			return domain.Internal("failed to create session", err)
		}

		// 4. Send the code
		issued, err := s.deps.OTP.IssueTx(ctx, r, otp.IssueRequest{Phone: phone, Kind: kind, Purpose: domain.PurposeRegistration})
		if err != nil {
			return err
		}
		out = newSessionView(sess)
		out.OTP = issued
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Registration session not started")
		return nil, err
	}
	log.Info().Str("session_id", out.Session.ID).Msg("Registration session started")
	return out, nil
}

// Get returns a live session. Expired sessions are deleted and reported
// as not found.
func (s *SessionRegistration) Get(ctx context.Context, id string) (*SessionView, error) {
	var out *SessionView
	err := s.deps.withinTxKeepingRejections(ctx, func(ctx context.Context, r ports.Repositories) error {
		sess, err := s.loadSession(ctx, r, id)
		if err != nil {
			return err
		}
		out = newSessionView(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitStep merges step data into the session and marks the step done.
// Changing the phone on basic_info before verification sends a new code.
func (s *SessionRegistration) SubmitStep(ctx context.Context, id string, step domain.Step, form map[string]any) (*SessionView, error) {
	if step == domain.StepPhoneVerification {
		return nil, domain.ErrStepNotAllowed.WithField("step", "submit the verification code instead")
	}
	data := maps.Clone(form)
	if data == nil {
		data = map[string]any{}
	}
	log := s.log.With().Str("session_id", id).Str("step", string(step)).Logger()

	var out *SessionView
	err := s.deps.withinTxKeepingRejections(ctx, func(ctx context.Context, r ports.Repositories) error {
		sess, err := s.loadSession(ctx, r, id)
		if err != nil {
			return err
		}
		flow := SessionFlow(sess.ActorKind)
		if err := flow.CheckSubmit(step, sess.CurrentStep, sess.OTPVerified); err != nil {
			return err
		}

		reissue := false
		if raw := domain.StringField(data, "phone_number"); raw != "" {
			phone, err := s.deps.normalizePhone(raw)
			if err != nil {
				return err
			}
			data["phone_number"] = phone
			if phone != sess.PhoneNumber {
				if step != domain.StepBasicInfo || sess.OTPVerified {
					return domain.ErrStepNotAllowed.WithField("phone_number", "cannot change after verification")
				}
				if err := checkAvailable(ctx, r, sess.ActorKind, phone, nil); err != nil {
					return err
				}
				sess.PhoneNumber = phone
				reissue = true
			}
		}
		now := s.deps.now()
		sess.MergeData(data)
		if err := validateData(sess.ActorKind, sess.Data, sess.PhoneNumber); err != nil {
			return err
		}
		sess.CompleteStep(flow, step, now)
		sess.UpdatedAt = now
		if err := r.Sessions.Update(ctx, sess); err != nil {
			return domain.Internal("failed to update session", err)
		}

		out = newSessionView(sess)
		if reissue {
			out.OTP, err = s.deps.OTP.IssueTx(ctx, r, otp.IssueRequest{Phone: sess.PhoneNumber, Kind: sess.ActorKind, Purpose: domain.PurposeRegistration})
			return err
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Session step rejected")
		return nil, err
	}
	return out, nil
}

// VerifyOTP verifies the session's phone and completes phone_verification.
func (s *SessionRegistration) VerifyOTP(ctx context.Context, id, code string) (*SessionView, error) {
	log := s.log.With().Str("session_id", id).Logger()

	var out *SessionView
	err := s.deps.withinTxKeepingRejections(ctx, func(ctx context.Context, r ports.Repositories) error {
		sess, err := s.loadSession(ctx, r, id)
		if err != nil {
			return err
		}
		if sess.OTPVerified {
			out = newSessionView(sess)
			return nil
		}

		if _, err := s.deps.OTP.VerifyTx(ctx, r, otp.VerifyRequest{
			Phone:   sess.PhoneNumber,
			Kind:    sess.ActorKind,
			Purpose: domain.PurposeRegistration,
			Code:    code,
		}); err != nil {
			return err
		}

		now := s.deps.now()
		sess.OTPVerified = true
		sess.CompleteStep(SessionFlow(sess.ActorKind), domain.StepPhoneVerification, now)
		sess.UpdatedAt = now
		if err := r.Sessions.Update(ctx, sess); err != nil {
			return domain.Internal("failed to update session", err)
		}
		out = newSessionView(sess)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Session verification failed")
		return nil, err
	}
	return out, nil
}

// ResendOTP sends a new code for the session's phone.
func (s *SessionRegistration) ResendOTP(ctx context.Context, id string) (*otp.Issued, error) {
	var out *otp.Issued
	err := s.deps.withinTxKeepingRejections(ctx, func(ctx context.Context, r ports.Repositories) error {
		sess, err := s.loadSession(ctx, r, id)
		if err != nil {
			return err
		}
		if sess.OTPVerified {
			return domain.ErrStepNotAllowed.WithField("phone_number", "already verified")
		}
		if _, err := s.deps.OTP.CheckResendTx(ctx, r, sess.PhoneNumber, sess.ActorKind); err != nil {
			return err
		}
		out, err = s.deps.OTP.IssueTx(ctx, r, otp.IssueRequest{Phone: sess.PhoneNumber, Kind: sess.ActorKind, Purpose: domain.PurposeRegistration})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Complete materializes the account once every step is done and deletes
// the session in the same transaction.
func (s *SessionRegistration) Complete(ctx context.Context, id string) (*AccountResult, error) {
	log := s.log.With().Str("session_id", id).Logger()

	var (
		out  *AccountResult
		kind domain.ActorKind
		now  time.Time
	)
	err := s.deps.withinTxKeepingRejections(ctx, func(ctx context.Context, r ports.Repositories) error {
		sess, err := s.loadSession(ctx, r, id)
		if err != nil {
			return err
		}
		kind = sess.ActorKind
		if !sess.OTPVerified {
			return domain.ErrOTPNotVerified
		}
		if next := SessionFlow(kind).Next(sess.Completed(), ""); next != domain.StepCompleted {
			return domain.ErrRegistrationIncomplete.WithField("step", string(next))
		}
		taken, err := phoneTaken(ctx, r, kind, sess.PhoneNumber)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrPhoneAlreadyRegistered
		}

		now = s.deps.now()
		if out, err = createAccount(ctx, r, kind, sess.Data, sess.PhoneNumber, sess.CompletedSteps, now); err != nil {
			return err
		}
		if out.Token, err = s.deps.issueToken(ctx, kind, out.AccountID); err != nil {
			return err
		}
		if err := r.Sessions.Delete(ctx, sess.ID); err != nil {
			return domain.Internal("failed to delete session", err)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Session completion failed")
		return nil, err
	}

	log.Info().Str("account_id", out.AccountID.String()).Str("actor_kind", string(kind)).Msg("Account created from session")
	s.deps.publish(ctx, log, topicFor(kind), out.event(SessionFlow(kind).Name(), now))
	return out, nil
}

// loadSession locks a live session. An expired one is deleted; callers run
// inside withinTxKeepingRejections so the deletion is committed.
func (s *SessionRegistration) loadSession(ctx context.Context, r ports.Repositories, id string) (*domain.RegistrationSession, error) {
	sess, err := r.Sessions.GetForUpdate(ctx, id)
	if err != nil {
		return nil, domain.Internal("failed to load session", err)
	}
	if sess == nil {
		return nil, domain.ErrSessionNotFound
	}
	if sess.IsExpired(s.deps.now()) {
		if err := r.Sessions.Delete(ctx, sess.ID); err != nil {
			return nil, domain.Internal("failed to delete expired session", err)
		}
		s.log.Info().Str("session_id", id).Msg("Expired session removed")
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}
