package sweeper

import (
	"Onboarding/internal/adapters/memory"
	"Onboarding/internal/core/domain"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepOnce_RemovesOnlyExpiredRows(t *testing.T) {
	nopLogger := zerolog.Nop()
	store := memory.NewStore(&nopLogger)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := store.Repositories()

	require.NoError(t, r.Codes.Upsert(ctx, &domain.VerificationCode{
		ID: uuid.New(), PhoneNumber: "0551111111", ActorKind: domain.ActorCustomer,
		Purpose: domain.PurposeRegistration, CodeHash: "x", ExpiresAt: now.Add(-time.Second), CreatedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, r.Codes.Upsert(ctx, &domain.VerificationCode{
		ID: uuid.New(), PhoneNumber: "0552222222", ActorKind: domain.ActorCustomer,
		Purpose: domain.PurposeRegistration, CodeHash: "y", ExpiresAt: now.Add(time.Minute), CreatedAt: now,
	}))
	require.NoError(t, r.Sessions.Create(ctx, &domain.RegistrationSession{
		ID: "old", ActorKind: domain.ActorCustomer, PhoneNumber: "0553333333", ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, r.Sessions.Create(ctx, &domain.RegistrationSession{
		ID: "live", ActorKind: domain.ActorCustomer, PhoneNumber: "0554444444", ExpiresAt: now.Add(time.Hour),
	}))

	s := New(store, func() time.Time { return now }, &nopLogger)
	res, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Codes: 1, Sessions: 1}, res)

	gone, err := r.Codes.Get(ctx, "0551111111", domain.ActorCustomer)
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := r.Codes.Get(ctx, "0552222222", domain.ActorCustomer)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	sess, err := r.Sessions.Get(ctx, "live")
	require.NoError(t, err)
	assert.NotNil(t, sess)

	res, err = s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestRun_StopsOnCancel(t *testing.T) {
	nopLogger := zerolog.Nop()
	store := memory.NewStore(&nopLogger)
	s := New(store, nil, &nopLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	nopLogger := zerolog.Nop()
	s := New(memory.NewStore(&nopLogger), nil, &nopLogger)
	s.Run(context.Background(), 0)
}
