package memory

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"fmt"
	"time"
)

type sessionRepository struct{ v view }

var _ ports.SessionRepository = (*sessionRepository)(nil)

func (r *sessionRepository) Create(ctx context.Context, s *domain.RegistrationSession) error {
	return r.v(func(st *state) error {
		if _, ok := st.sessions[s.ID]; ok {
			return fmt.Errorf("session %s already exists", s.ID)
		}
		st.sessions[s.ID] = s.Clone()
		return nil
	})
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.RegistrationSession, error) {
	var out *domain.RegistrationSession
	err := r.v(func(st *state) error {
		if s, ok := st.sessions[id]; ok {
			out = s.Clone()
		}
		return nil
	})
	return out, err
}

func (r *sessionRepository) GetForUpdate(ctx context.Context, id string) (*domain.RegistrationSession, error) {
	return r.Get(ctx, id)
}

func (r *sessionRepository) Update(ctx context.Context, s *domain.RegistrationSession) error {
	return r.v(func(st *state) error {
		if _, ok := st.sessions[s.ID]; !ok {
			return fmt.Errorf("session %s not found", s.ID)
		}
		st.sessions[s.ID] = s.Clone()
		return nil
	})
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.v(func(st *state) error {
		delete(st.sessions, id)
		return nil
	})
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.v(func(st *state) error {
		for id, s := range st.sessions {
			if s.IsExpired(now) {
				delete(st.sessions, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
