package registration

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/services/otp"
	"context"

	"github.com/google/uuid"
)

// PendingRegistration is the common shape of the OTP-gated flows: Begin
// stores pending data and sends a code, Confirm verifies the code and
// returns the signed-in account. Flow tells how many steps follow.
type PendingRegistration interface {
	Begin(ctx context.Context, req BeginRequest) (*BeginResult, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error)
	Flow() domain.StepFlow
}

type BeginRequest struct {
	Kind      domain.ActorKind
	AccountID *uuid.UUID // stepwise only: resume an existing pending account
	Data      map[string]any
}

type BeginResult struct {
	Kind      domain.ActorKind
	AccountID *uuid.UUID // nil when no account exists yet
	OTP       *otp.Issued
	NextStep  domain.Step
}

type ConfirmRequest struct {
	Kind        domain.ActorKind
	PhoneNumber string
	Code        string
}

type ConfirmResult struct {
	Account  *AccountResult
	NextStep domain.Step
}

func (s *StepwiseRegistration) Flow() domain.StepFlow { return s.flow }

// Begin runs the basic_info step from a flat form.
func (s *StepwiseRegistration) Begin(ctx context.Context, req BeginRequest) (*BeginResult, error) {
	if req.Kind != domain.ActorMerchant {
		return nil, domain.FieldError(domain.KindInvalidInput, "stepwise registration is for merchants", "actor_kind", "must be merchant")
	}
	res, err := s.RegisterBasicInfo(ctx, BasicInfoInput{
		MerchantID:  req.AccountID,
		Name:        domain.TranslatedFromFlat(req.Data, "name"),
		PhoneNumber: domain.StringField(req.Data, "phone_number"),
		Email:       domain.StringField(req.Data, "email"),
	})
	if err != nil {
		return nil, err
	}
	id := res.Merchant.ID
	return &BeginResult{Kind: req.Kind, AccountID: &id, OTP: res.OTP, NextStep: res.NextStep}, nil
}

// Confirm runs the phone_verification step.
func (s *StepwiseRegistration) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if req.Kind != domain.ActorMerchant {
		return nil, domain.FieldError(domain.KindInvalidInput, "stepwise registration is for merchants", "actor_kind", "must be merchant")
	}
	res, err := s.VerifyPhone(ctx, req.PhoneNumber, req.Code)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{
		Account: &AccountResult{
			Kind:      domain.ActorMerchant,
			AccountID: res.Merchant.ID,
			Merchant:  res.Merchant,
			Token:     res.Token,
		},
		NextStep: res.NextStep,
	}, nil
}

func (s *SingleShotRegistration) Flow() domain.StepFlow { return domain.SingleShotFlow }

func (s *SingleShotRegistration) Begin(ctx context.Context, req BeginRequest) (*BeginResult, error) {
	issued, err := s.StartRegistration(ctx, req.Kind, req.Data)
	if err != nil {
		return nil, err
	}
	return &BeginResult{Kind: req.Kind, OTP: issued, NextStep: domain.StepPhoneVerification}, nil
}

func (s *SingleShotRegistration) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	acct, err := s.VerifyAndCreateAccount(ctx, req.PhoneNumber, req.Code, req.Kind)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Account: acct, NextStep: domain.StepCompleted}, nil
}
