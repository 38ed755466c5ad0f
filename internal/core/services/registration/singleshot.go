package registration

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"Onboarding/internal/core/services/otp"
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SingleShotRegistration attaches the registration form to the verification
// code and creates the account in the same step that verifies the phone.
// It also handles code-based login for existing accounts.
type SingleShotRegistration struct {
	deps Deps
	log  zerolog.Logger
}

var _ PendingRegistration = (*SingleShotRegistration)(nil)

func NewSingleShotRegistration(deps Deps, baseLogger *zerolog.Logger) *SingleShotRegistration {
	return &SingleShotRegistration{
		deps: deps,
		log:  baseLogger.With().Str("component", "single_shot_registration").Logger(),
	}
}

// StartRegistration validates the form and sends a code carrying it.
func (s *SingleShotRegistration) StartRegistration(ctx context.Context, kind domain.ActorKind, payload map[string]any) (*otp.Issued, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	data, phone, err := s.deps.registrationData(payload)
	if err != nil {
		return nil, err
	}
	if err := validateData(kind, data, phone); err != nil {
		return nil, err
	}

	log := s.log.With().Str("actor_kind", string(kind)).Str("phone", domain.MaskPhone(phone)).Logger()

	var out *otp.Issued
	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		if err := checkAvailable(ctx, r, kind, phone, data); err != nil {
			return err
		}
		var err error
		out, err = s.deps.OTP.IssueTx(ctx, r, otp.IssueRequest{
			Phone:   phone,
			Kind:    kind,
			Purpose: domain.PurposeRegistration,
			Payload: data,
		})
		return err
	})
	if err != nil {
		log.Warn().Err(err).Msg("Registration start failed")
		return nil, err
	}
	log.Info().Msg("Registration started")
	return out, nil
}

// VerifyAndCreateAccount consumes the code and materializes the account from
// the attached form, exactly once.
func (s *SingleShotRegistration) VerifyAndCreateAccount(ctx context.Context, phoneNumber, code string, kind domain.ActorKind) (*AccountResult, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	phone, err := s.deps.normalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}
	log := s.log.With().Str("actor_kind", string(kind)).Str("phone", domain.MaskPhone(phone)).Logger()

	var (
		out *AccountResult
		now time.Time
	)
	err = s.deps.withinTxKeepingRejections(ctx, func(ctx context.Context, r ports.Repositories) error {
		// 1. Verify and consume the code
		v, err := s.deps.OTP.VerifyTx(ctx, r, otp.VerifyRequest{
			Phone:   phone,
			Kind:    kind,
			Purpose: domain.PurposeRegistration,
			Code:    code,
		})
		if err != nil {
			return err
		}
		if len(v.Payload) == 0 {
			return domain.ErrNoPendingRegistration
		}

		// 2. Another flow may have registered the phone meanwhile
		taken, err := phoneTaken(ctx, r, kind, phone)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrPhoneAlreadyRegistered
		}

		// 3. Materialize
		now = s.deps.now()
		completed := map[domain.Step]time.Time{domain.StepBasicInfo: now, domain.StepPhoneVerification: now}
		if out, err = createAccount(ctx, r, kind, v.Payload, phone, completed, now); err != nil {
			return err
		}

		// 4. Sign in
		out.Token, err = s.deps.issueToken(ctx, kind, out.AccountID)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Msg("Account creation failed")
		return nil, err
	}

	log.Info().Str("account_id", out.AccountID.String()).Msg("Account created")
	s.deps.publish(ctx, log, topicFor(kind), out.event(domain.SingleShotFlow.Name(), now))
	return out, nil
}

// ResendRegistrationOTP sends a fresh code carrying the pending form forward.
func (s *SingleShotRegistration) ResendRegistrationOTP(ctx context.Context, phoneNumber string, kind domain.ActorKind) (*otp.Issued, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	phone, err := s.deps.normalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	var out *otp.Issued
	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		prev, err := s.deps.OTP.CheckResendTx(ctx, r, phone, kind)
		if err != nil {
			return err
		}
		if prev == nil || prev.Purpose != domain.PurposeRegistration || !prev.HasPayload() {
			return domain.ErrNoPendingRegistration
		}
		taken, err := phoneTaken(ctx, r, kind, phone)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrPhoneAlreadyRegistered
		}
		out, err = s.deps.OTP.IssueTx(ctx, r, otp.IssueRequest{
			Phone:   phone,
			Kind:    kind,
			Purpose: domain.PurposeRegistration,
			Payload: prev.Payload,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StartLogin sends a login code to an existing account.
func (s *SingleShotRegistration) StartLogin(ctx context.Context, phoneNumber string, kind domain.ActorKind) (*otp.Issued, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	phone, err := s.deps.normalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	var out *otp.Issued
	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		acct, err := loadAccount(ctx, r, kind, phone)
		if err != nil {
			return err
		}
		if !acct.canLogin() {
			return domain.ErrAccountInactive
		}
		out, err = s.deps.OTP.IssueTx(ctx, r, otp.IssueRequest{Phone: phone, Kind: kind, Purpose: domain.PurposeLogin})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyLogin consumes a login code and signs the account in.
func (s *SingleShotRegistration) VerifyLogin(ctx context.Context, phoneNumber, code string, kind domain.ActorKind) (*AccountResult, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	phone, err := s.deps.normalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}
	log := s.log.With().Str("actor_kind", string(kind)).Str("phone", domain.MaskPhone(phone)).Logger()

	var out *AccountResult
	err = s.deps.withinTxKeepingRejections(ctx, func(ctx context.Context, r ports.Repositories) error {
		acct, err := loadAccount(ctx, r, kind, phone)
		if err != nil {
			return err
		}
		if _, err := s.deps.OTP.VerifyTx(ctx, r, otp.VerifyRequest{
			Phone:   phone,
			Kind:    kind,
			Purpose: domain.PurposeLogin,
			Code:    code,
		}); err != nil {
			return err
		}
		if !acct.canLogin() {
			return domain.ErrAccountInactive
		}

		now := s.deps.now()
		if err := acct.touchLogin(ctx, r, now); err != nil {
			return err
		}
		out = acct.AccountResult
		out.Token, err = s.deps.issueToken(ctx, kind, out.AccountID)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Msg("Login failed")
		return nil, err
	}
	log.Info().Str("account_id", out.AccountID.String()).Msg("Account signed in")
	return out, nil
}

// loadedAccount wraps either account kind for the login flow.
type loadedAccount struct {
	*AccountResult
}

// loadAccount finds the account for phone. Merchant rows are locked before
// any verification code row, the same order the wizard uses.
func loadAccount(ctx context.Context, r ports.Repositories, kind domain.ActorKind, phone string) (*loadedAccount, error) {
	if kind == domain.ActorMerchant {
		m, err := r.Merchants.GetByPhone(ctx, phone)
		if err != nil {
			return nil, domain.Internal("failed to load merchant", err)
		}
		if m == nil {
			return nil, domain.ErrPhoneNotRegistered
		}
		if m, err = r.Merchants.GetByIDForUpdate(ctx, m.ID); err != nil {
			return nil, domain.Internal("failed to lock merchant", err)
		}
		if m == nil || m.PhoneNumber != phone {
			return nil, domain.ErrPhoneNotRegistered
		}
		return &loadedAccount{&AccountResult{Kind: kind, AccountID: m.ID, Merchant: m}}, nil
	}
	c, err := r.Customers.GetByPhone(ctx, phone)
	if err != nil {
		return nil, domain.Internal("failed to load customer", err)
	}
	if c == nil {
		return nil, domain.ErrPhoneNotRegistered
	}
	return &loadedAccount{&AccountResult{Kind: kind, AccountID: c.ID, Customer: c}}, nil
}

func (a *loadedAccount) canLogin() bool {
	if a.Merchant != nil {
		return a.Merchant.CanLogin()
	}
	return a.Customer.CanLogin()
}

func (a *loadedAccount) touchLogin(ctx context.Context, r ports.Repositories, now time.Time) error {
	if a.Merchant != nil {
		a.Merchant.LastLoginAt = &now
		a.Merchant.UpdatedAt = now
		if err := r.Merchants.Update(ctx, a.Merchant); err != nil {
			return domain.Internal("failed to update merchant", err)
		}
		return nil
	}
	a.Customer.LastLoginAt = &now
	a.Customer.UpdatedAt = now
	if err := r.Customers.Update(ctx, a.Customer); err != nil {
		return domain.Internal("failed to update customer", err)
	}
	return nil
}
