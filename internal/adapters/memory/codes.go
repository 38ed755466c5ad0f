package memory

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"time"

	"github.com/google/uuid"
)

type codeRepository struct{ v view }

var _ ports.VerificationCodeRepository = (*codeRepository)(nil)

func (r *codeRepository) Upsert(ctx context.Context, code *domain.VerificationCode) error {
	return r.v(func(st *state) error {
		st.codes[codeKey{code.PhoneNumber, code.ActorKind}] = code.Clone()
		return nil
	})
}

// GetForUpdate is the same as Get: the store lock already serializes access.
func (r *codeRepository) GetForUpdate(ctx context.Context, phone string, kind domain.ActorKind) (*domain.VerificationCode, error) {
	return r.Get(ctx, phone, kind)
}

func (r *codeRepository) Get(ctx context.Context, phone string, kind domain.ActorKind) (*domain.VerificationCode, error) {
	var out *domain.VerificationCode
	err := r.v(func(st *state) error {
		if c, ok := st.codes[codeKey{phone, kind}]; ok {
			out = c.Clone()
		}
		return nil
	})
	return out, err
}

func (r *codeRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	attempts := 0
	err := r.v(func(st *state) error {
		for _, c := range st.codes {
			if c.ID == id {
				c.Attempts++
				attempts = c.Attempts
				return nil
			}
		}
		return nil
	})
	return attempts, err
}

func (r *codeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.v(func(st *state) error {
		for k, c := range st.codes {
			if c.ID == id {
				delete(st.codes, k)
			}
		}
		return nil
	})
}

func (r *codeRepository) CountLive(ctx context.Context, phone string, kind domain.ActorKind, now time.Time) (int, error) {
	n := 0
	err := r.v(func(st *state) error {
		if c, ok := st.codes[codeKey{phone, kind}]; ok && !c.IsExpired(now) {
			n = 1
		}
		return nil
	})
	return n, err
}

func (r *codeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.v(func(st *state) error {
		for k, c := range st.codes {
			if c.IsExpired(now) {
				delete(st.codes, k)
				n++
			}
		}
		return nil
	})
	return n, err
}
