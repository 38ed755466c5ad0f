package memory

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type codeKey struct {
	phone string
	kind  domain.ActorKind
}

// state is one consistent snapshot of every table.
type state struct {
	codes     map[codeKey]*domain.VerificationCode
	sessions  map[string]*domain.RegistrationSession
	merchants map[uuid.UUID]*domain.Merchant
	steps     map[uuid.UUID]map[domain.Step]*domain.MerchantRegistrationStep
	customers map[uuid.UUID]*domain.Customer
	plans     map[uuid.UUID]*domain.SubscriptionPlan
}

func newState() *state {
	return &state{
		codes:     make(map[codeKey]*domain.VerificationCode),
		sessions:  make(map[string]*domain.RegistrationSession),
		merchants: make(map[uuid.UUID]*domain.Merchant),
		steps:     make(map[uuid.UUID]map[domain.Step]*domain.MerchantRegistrationStep),
		customers: make(map[uuid.UUID]*domain.Customer),
		plans:     make(map[uuid.UUID]*domain.SubscriptionPlan),
	}
}

func (s *state) clone() *state {
	cp := newState()
	for k, v := range s.codes {
		cp.codes[k] = v.Clone()
	}
	for k, v := range s.sessions {
		cp.sessions[k] = v.Clone()
	}
	for k, v := range s.merchants {
		cp.merchants[k] = v.Clone()
	}
	for k, steps := range s.steps {
		m := make(map[domain.Step]*domain.MerchantRegistrationStep, len(steps))
		for name, st := range steps {
			m[name] = st.Clone()
		}
		cp.steps[k] = m
	}
	for k, v := range s.customers {
		cp.customers[k] = v.Clone()
	}
	for k, v := range s.plans {
		p := *v
		p.Name = v.Name.Clone()
		cp.plans[k] = &p
	}
	return cp
}

// view gives repositories access to a state, either the committed one under
// the store lock or a transaction's working copy.
type view func(fn func(st *state) error) error

// Store is an in-process implementation of every repository port. A
// transaction works on a private copy of the state while holding the store
// lock and swaps it in on commit, so transactions are fully serialized.
type Store struct {
	mu    sync.Mutex
	state *state
	log   zerolog.Logger
}

var _ ports.TxManager = (*Store)(nil)

func NewStore(baseLogger *zerolog.Logger) *Store {
	return &Store{
		state: newState(),
		log:   baseLogger.With().Str("component", "memory_store").Logger(),
	}
}

// Repositories returns repositories that each lock the store per call.
func (s *Store) Repositories() ports.Repositories {
	return reposFor(func(fn func(st *state) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.state)
	})
}

// WithinTx runs fn against a working copy and commits it when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn ports.TxFunc) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.log.Error().Interface("panic", p).Msg("Transaction panicked, rolled back")
			err = domain.WrapError(domain.KindInternal, "transaction aborted", fmt.Errorf("panic: %v", p))
		}
	}()

	repos := reposFor(func(f func(st *state) error) error { return f(work) })
	if err := fn(ctx, repos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domain.Internal("transaction cancelled", err)
	}
	s.state = work
	return nil
}

func reposFor(v view) ports.Repositories {
	return ports.Repositories{
		Codes:     &codeRepository{v: v},
		Sessions:  &sessionRepository{v: v},
		Merchants: &merchantRepository{v: v},
		Customers: &customerRepository{v: v},
		Plans:     &planRepository{v: v},
	}
}
