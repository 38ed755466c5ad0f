package registration

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
)

// AccountResult is a materialized or authenticated account plus its token.
// Exactly one of Merchant and Customer is set.
type AccountResult struct {
	Kind      domain.ActorKind
	AccountID uuid.UUID
	Merchant  *domain.Merchant
	Customer  *domain.Customer
	Token     *domain.AuthToken
}

func (a *AccountResult) event(flow string, at time.Time) ports.RegistrationEvent {
	ev := ports.RegistrationEvent{AccountID: a.AccountID, Kind: a.Kind, Flow: flow, At: at}
	if a.Merchant != nil {
		ev.Name = a.Merchant.Name
		ev.PhoneNumber = a.Merchant.PhoneNumber
	}
	if a.Customer != nil {
		ev.Name = a.Customer.Name
		ev.PhoneNumber = a.Customer.PhoneNumber
	}
	return ev
}

func topicFor(kind domain.ActorKind) string {
	if kind == domain.ActorMerchant {
		return ports.TopicMerchantRegistered
	}
	return ports.TopicCustomerRegistered
}

func phoneTaken(ctx context.Context, r ports.Repositories, kind domain.ActorKind, phone string) (bool, error) {
	var (
		taken bool
		err   error
	)
	if kind == domain.ActorMerchant {
		taken, err = r.Merchants.ExistsByPhone(ctx, phone, nil)
	} else {
		taken, err = r.Customers.ExistsByPhone(ctx, phone, nil)
	}
	if err != nil {
		return false, domain.Internal("failed to check phone number", err)
	}
	return taken, nil
}

func emailTaken(ctx context.Context, r ports.Repositories, kind domain.ActorKind, email *string) (bool, error) {
	if email == nil {
		return false, nil
	}
	var (
		taken bool
		err   error
	)
	if kind == domain.ActorMerchant {
		taken, err = r.Merchants.ExistsByEmail(ctx, *email, nil)
	} else {
		taken, err = r.Customers.ExistsByEmail(ctx, *email, nil)
	}
	if err != nil {
		return false, domain.Internal("failed to check email", err)
	}
	return taken, nil
}

// checkAvailable fails when a permanent account already uses the phone or email.
func checkAvailable(ctx context.Context, r ports.Repositories, kind domain.ActorKind, phone string, data map[string]any) error {
	taken, err := phoneTaken(ctx, r, kind, phone)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrPhoneAlreadyRegistered
	}
	email, err := domain.NormalizeEmail(domain.StringField(data, "email"))
	if err != nil {
		return err
	}
	taken, err = emailTaken(ctx, r, kind, email)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrDuplicateEmail
	}
	return nil
}

// registrationData copies form data and pins the normalized phone number.
func (d Deps) registrationData(data map[string]any) (map[string]any, string, error) {
	phone, err := d.normalizePhone(domain.StringField(data, "phone_number"))
	if err != nil {
		return nil, "", err
	}
	out := maps.Clone(data)
	if out == nil {
		out = map[string]any{}
	}
	out["phone_number"] = phone
	return out, phone, nil
}

func requireName(data map[string]any) (domain.TranslatedText, error) {
	name := domain.TranslatedFromFlat(data, "name")
	if name.IsBlank() {
		return nil, domain.FieldError(domain.KindInvalidInput, "name is required", "name", "required")
	}
	return name, nil
}

func customerFromData(data map[string]any, phone string, now time.Time) (*domain.Customer, error) {
	name, err := requireName(data)
	if err != nil {
		return nil, err
	}
	email, err := domain.NormalizeEmail(domain.StringField(data, "email"))
	if err != nil {
		return nil, err
	}

	c := &domain.Customer{
		ID:              uuid.New(),
		Name:            name,
		PhoneNumber:     phone,
		Email:           email,
		IsPhoneVerified: true,
		PhoneVerifiedAt: &now,
		Gender:          domain.StringField(data, "gender"),
		AvatarPath:      domain.StringField(data, "avatar_path"),
		City:            domain.StringField(data, "city"),
		Status:          domain.CustomerActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if dob := domain.StringField(data, "date_of_birth"); dob != "" {
		t, err := time.Parse(time.DateOnly, dob)
		if err != nil {
			return nil, domain.FieldError(domain.KindInvalidInput, "invalid date of birth", "date_of_birth", "expected YYYY-MM-DD")
		}
		c.DateOfBirth = &t
	}
	return c, nil
}

func merchantFromData(data map[string]any, phone string, now time.Time) (*domain.Merchant, error) {
	name, err := requireName(data)
	if err != nil {
		return nil, err
	}
	email, err := domain.NormalizeEmail(domain.StringField(data, "email"))
	if err != nil {
		return nil, err
	}

	address := domain.TranslatedFromFlat(data, "business_address")
	if address == nil {
		address = domain.TranslatedFromFlat(data, "address")
	}

	return &domain.Merchant{
		ID:                 uuid.New(),
		Name:               name,
		PhoneNumber:        phone,
		Email:              email,
		IsPhoneVerified:    true,
		PhoneVerifiedAt:    &now,
		SubscriptionStatus: domain.SubscriptionNone,
		BusinessName:       domain.TranslatedFromFlat(data, "business_name"),
		BusinessType:       domain.StringField(data, "business_type"),
		TaxNumber:          domain.StringField(data, "tax_number"),
		CommercialRegister: domain.StringField(data, "commercial_register"),
		BusinessAddress:    address,
		City:               domain.StringField(data, "city"),
		Status:             domain.MerchantPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// validateData builds a throwaway account to surface validation errors
// before a code is sent.
func validateData(kind domain.ActorKind, data map[string]any, phone string) error {
	var err error
	if kind == domain.ActorMerchant {
		_, err = merchantFromData(data, phone, time.Time{})
	} else {
		_, err = customerFromData(data, phone, time.Time{})
	}
	return err
}

// createAccount materializes a verified registration. For merchants every
// step in completed is recorded so the wizard resumes after them.
func createAccount(ctx context.Context, r ports.Repositories, kind domain.ActorKind, data map[string]any, phone string, completed map[domain.Step]time.Time, now time.Time) (*AccountResult, error) {
	if kind == domain.ActorCustomer {
		c, err := customerFromData(data, phone, now)
		if err != nil {
			return nil, err
		}
		c.LastLoginAt = &now
		if err := r.Customers.Create(ctx, c); err != nil {
			return nil, mapCreateError(err)
		}
		return &AccountResult{Kind: kind, AccountID: c.ID, Customer: c}, nil
	}

	m, err := merchantFromData(data, phone, now)
	if err != nil {
		return nil, err
	}
	done := make(map[domain.Step]bool, len(completed))
	for step := range completed {
		done[step] = true
	}
	m.RegistrationStep = domain.MerchantFlow.Advance("", done)
	m.LastLoginAt = &now
	if m.RegistrationStep == domain.StepCompleted {
		m.MarkRegistered(now)
	}
	if err := r.Merchants.Create(ctx, m); err != nil {
		return nil, mapCreateError(err)
	}

	for step, at := range completed {
		if !domain.MerchantFlow.Contains(step) {
			continue
		}
		rec := &domain.MerchantRegistrationStep{
			ID:          uuid.New(),
			MerchantID:  m.ID,
			Step:        step,
			IsCompleted: true,
			CompletedAt: &at,
			Data:        maps.Clone(data),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := r.Merchants.UpsertStep(ctx, rec); err != nil {
			return nil, domain.Internal("failed to record registration step", err)
		}
	}
	return &AccountResult{Kind: kind, AccountID: m.ID, Merchant: m}, nil
}

// mapCreateError turns a lost uniqueness race into the registration error.
func mapCreateError(err error) error {
	if errors.Is(err, domain.ErrDuplicatePhone) {
		return domain.ErrPhoneAlreadyRegistered
	}
	return domain.Internal("failed to create account", err)
}
