package memory

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

type merchantRepository struct{ v view }

var _ ports.MerchantRepository = (*merchantRepository)(nil)

func (r *merchantRepository) Create(ctx context.Context, m *domain.Merchant) error {
	return r.v(func(st *state) error {
		if err := checkMerchantUnique(st, m); err != nil {
			return err
		}
		st.merchants[m.ID] = m.Clone()
		return nil
	})
}

func (r *merchantRepository) Update(ctx context.Context, m *domain.Merchant) error {
	return r.v(func(st *state) error {
		if _, ok := st.merchants[m.ID]; !ok {
			return fmt.Errorf("merchant %s not found", m.ID)
		}
		if err := checkMerchantUnique(st, m); err != nil {
			return err
		}
		st.merchants[m.ID] = m.Clone()
		return nil
	})
}

// checkMerchantUnique plays the part of the unique indexes.
func checkMerchantUnique(st *state, m *domain.Merchant) error {
	for id, other := range st.merchants {
		if id == m.ID {
			continue
		}
		if other.PhoneNumber == m.PhoneNumber {
			return domain.ErrDuplicatePhone
		}
		if m.Email != nil && other.Email != nil && strings.EqualFold(*other.Email, *m.Email) {
			return domain.ErrDuplicateEmail
		}
	}
	return nil
}

func (r *merchantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	var out *domain.Merchant
	err := r.v(func(st *state) error {
		if m, ok := st.merchants[id]; ok {
			out = m.Clone()
		}
		return nil
	})
	return out, err
}

func (r *merchantRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	return r.GetByID(ctx, id)
}

func (r *merchantRepository) GetByPhone(ctx context.Context, phone string) (*domain.Merchant, error) {
	var out *domain.Merchant
	err := r.v(func(st *state) error {
		for _, m := range st.merchants {
			if m.PhoneNumber == phone {
				out = m.Clone()
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *merchantRepository) ExistsByPhone(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	found := false
	err := r.v(func(st *state) error {
		for id, m := range st.merchants {
			if m.PhoneNumber == phone && (excludeID == nil || id != *excludeID) {
				found = true
			}
		}
		return nil
	})
	return found, err
}

func (r *merchantRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	found := false
	err := r.v(func(st *state) error {
		for id, m := range st.merchants {
			if m.Email != nil && strings.EqualFold(*m.Email, email) && (excludeID == nil || id != *excludeID) {
				found = true
			}
		}
		return nil
	})
	return found, err
}

func (r *merchantRepository) UpsertStep(ctx context.Context, step *domain.MerchantRegistrationStep) error {
	return r.v(func(st *state) error {
		if _, ok := st.merchants[step.MerchantID]; !ok {
			return fmt.Errorf("merchant %s not found", step.MerchantID)
		}
		steps, ok := st.steps[step.MerchantID]
		if !ok {
			steps = make(map[domain.Step]*domain.MerchantRegistrationStep)
			st.steps[step.MerchantID] = steps
		}
		cp := step.Clone()
		if existing, ok := steps[step.Step]; ok {
			cp.ID = existing.ID
			cp.CreatedAt = existing.CreatedAt
		}
		steps[step.Step] = cp
		return nil
	})
}

func (r *merchantRepository) ListSteps(ctx context.Context, merchantID uuid.UUID) ([]*domain.MerchantRegistrationStep, error) {
	var out []*domain.MerchantRegistrationStep
	err := r.v(func(st *state) error {
		for _, s := range st.steps[merchantID] {
			out = append(out, s.Clone())
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *domain.MerchantRegistrationStep) int {
		return domain.MerchantFlow.Index(a.Step) - domain.MerchantFlow.Index(b.Step)
	})
	return out, err
}

type customerRepository struct{ v view }

var _ ports.CustomerRepository = (*customerRepository)(nil)

func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	return r.v(func(st *state) error {
		if err := checkCustomerUnique(st, c); err != nil {
			return err
		}
		st.customers[c.ID] = c.Clone()
		return nil
	})
}

func (r *customerRepository) Update(ctx context.Context, c *domain.Customer) error {
	return r.v(func(st *state) error {
		if _, ok := st.customers[c.ID]; !ok {
			return fmt.Errorf("customer %s not found", c.ID)
		}
		if err := checkCustomerUnique(st, c); err != nil {
			return err
		}
		st.customers[c.ID] = c.Clone()
		return nil
	})
}

func checkCustomerUnique(st *state, c *domain.Customer) error {
	for id, other := range st.customers {
		if id == c.ID {
			continue
		}
		if other.PhoneNumber == c.PhoneNumber {
			return domain.ErrDuplicatePhone
		}
		if c.Email != nil && other.Email != nil && strings.EqualFold(*other.Email, *c.Email) {
			return domain.ErrDuplicateEmail
		}
	}
	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.v(func(st *state) error {
		if c, ok := st.customers[id]; ok {
			out = c.Clone()
		}
		return nil
	})
	return out, err
}

func (r *customerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.v(func(st *state) error {
		for _, c := range st.customers {
			if c.PhoneNumber == phone {
				out = c.Clone()
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *customerRepository) ExistsByPhone(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	found := false
	err := r.v(func(st *state) error {
		for id, c := range st.customers {
			if c.PhoneNumber == phone && (excludeID == nil || id != *excludeID) {
				found = true
			}
		}
		return nil
	})
	return found, err
}

func (r *customerRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	found := false
	err := r.v(func(st *state) error {
		for id, c := range st.customers {
			if c.Email != nil && strings.EqualFold(*c.Email, email) && (excludeID == nil || id != *excludeID) {
				found = true
			}
		}
		return nil
	})
	return found, err
}

type planRepository struct{ v view }

var _ ports.PlanRepository = (*planRepository)(nil)

func (r *planRepository) Create(ctx context.Context, p *domain.SubscriptionPlan) error {
	return r.v(func(st *state) error {
		cp := *p
		cp.Name = p.Name.Clone()
		st.plans[p.ID] = &cp
		return nil
	})
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error) {
	var out *domain.SubscriptionPlan
	err := r.v(func(st *state) error {
		if p, ok := st.plans[id]; ok {
			cp := *p
			cp.Name = p.Name.Clone()
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *planRepository) ListActive(ctx context.Context) ([]*domain.SubscriptionPlan, error) {
	var out []*domain.SubscriptionPlan
	err := r.v(func(st *state) error {
		for _, p := range st.plans {
			if p.IsActive {
				cp := *p
				cp.Name = p.Name.Clone()
				out = append(out, &cp)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *domain.SubscriptionPlan) int {
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, err
}
