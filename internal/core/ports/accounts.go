package ports

import (
	"Onboarding/internal/core/domain"
	"context"

	"github.com/google/uuid"
)

// MerchantRepository defines the persistence operations for merchants and
// their registration step records.
type MerchantRepository interface {
	// Create saves a new merchant. A unique violation on phone or email is
	// reported as domain.ErrDuplicatePhone / domain.ErrDuplicateEmail.
	Create(ctx context.Context, m *domain.Merchant) error
	Update(ctx context.Context, m *domain.Merchant) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)

	// GetByIDForUpdate loads the merchant and locks its row.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)

	GetByPhone(ctx context.Context, phone string) (*domain.Merchant, error)

	// ExistsByPhone checks for another merchant with phone, ignoring excludeID.
	ExistsByPhone(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)

	// UpsertStep inserts or overwrites the record for (MerchantID, Step).
	UpsertStep(ctx context.Context, step *domain.MerchantRegistrationStep) error
	ListSteps(ctx context.Context, merchantID uuid.UUID) ([]*domain.MerchantRegistrationStep, error)
}

// CustomerRepository defines the persistence operations for customers.
type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	Update(ctx context.Context, c *domain.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	ExistsByPhone(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
}

// PlanRepository reads subscription plans. Plans are managed elsewhere.
type PlanRepository interface {
	Create(ctx context.Context, p *domain.SubscriptionPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error)
	ListActive(ctx context.Context) ([]*domain.SubscriptionPlan, error)
}
