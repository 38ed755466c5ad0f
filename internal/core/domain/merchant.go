package domain

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// MerchantStatus is the lifecycle status of a merchant account.
type MerchantStatus string

const (
	MerchantPending   MerchantStatus = "pending"
	MerchantActive    MerchantStatus = "active"
	MerchantSuspended MerchantStatus = "suspended"
	MerchantRejected  MerchantStatus = "rejected"
)

// SubscriptionStatus tracks the merchant's plan payment.
type SubscriptionStatus string

const (
	SubscriptionNone    SubscriptionStatus = "none"
	SubscriptionPending SubscriptionStatus = "pending"
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// Merchant is a permanent merchant account. It exists from the first
// wizard step onward and becomes active once every step is completed.
type Merchant struct {
	ID              uuid.UUID
	Name            TranslatedText
	PhoneNumber     string
	Email           *string
	IsPhoneVerified bool
	PhoneVerifiedAt *time.Time

	SubscriptionPlanID    *uuid.UUID
	SubscriptionStatus    SubscriptionStatus
	SubscriptionStartDate *time.Time
	SubscriptionEndDate   *time.Time
	SubscriptionAmount    int64 // minor currency units
	IsSubscriptionPaid    bool

	BusinessName       TranslatedText
	BusinessType       string
	TaxNumber          string
	CommercialRegister string
	BusinessDocuments  []string

	Description TranslatedText
	LogoPath    string
	CoverPath   string
	Website     string

	BusinessAddress TranslatedText
	City            string
	Latitude        *float64
	Longitude       *float64

	Status           MerchantStatus
	RegistrationStep Step
	IsVerified       bool
	IsApproved       bool
	RejectionReason  *string
	CompletedAt      *time.Time
	LastLoginAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CanLogin reports whether the merchant may sign in. A pending merchant
// needs a verified phone; until then the wizard's own code is the way in.
func (m *Merchant) CanLogin() bool {
	return m.Status == MerchantActive || (m.Status == MerchantPending && m.IsPhoneVerified)
}

// MarkRegistered applies the terminal transition of the wizard.
func (m *Merchant) MarkRegistered(at time.Time) {
	m.Status = MerchantActive
	m.IsVerified = true
	m.IsApproved = true
	m.RegistrationStep = StepCompleted
	m.CompletedAt = &at
}

func (m *Merchant) Clone() *Merchant {
	cp := *m
	cp.Name = m.Name.Clone()
	cp.BusinessName = m.BusinessName.Clone()
	cp.Description = m.Description.Clone()
	cp.BusinessAddress = m.BusinessAddress.Clone()
	cp.BusinessDocuments = slices.Clone(m.BusinessDocuments)
	return &cp
}

// MerchantRegistrationStep records one completed (or pending) wizard step.
// There is at most one per (MerchantID, Step); resubmission overwrites it.
type MerchantRegistrationStep struct {
	ID          uuid.UUID
	MerchantID  uuid.UUID
	Step        Step
	IsCompleted bool
	CompletedAt *time.Time
	Data        map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s *MerchantRegistrationStep) Clone() *MerchantRegistrationStep {
	cp := *s
	cp.Data = maps.Clone(s.Data)
	return &cp
}

// CompletedSet builds the completion set from step records.
func CompletedSet(steps []*MerchantRegistrationStep) map[Step]bool {
	out := make(map[Step]bool, len(steps))
	for _, s := range steps {
		if s.IsCompleted {
			out[s.Step] = true
		}
	}
	return out
}
