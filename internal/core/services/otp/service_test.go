package otp

import (
	"Onboarding/internal/adapters/memory"
	"Onboarding/internal/core/domain"
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendText(ctx context.Context, phone, message string) error {
	args := m.Called(ctx, phone, message)
	return args.Error(0)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const testPhone = "0551234567"

type fixture struct {
	svc   *Service
	store *memory.Store
	sms   *MockSMSSender
	clock *testClock
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	nopLogger := zerolog.Nop()

	cfg := DefaultConfig()
	cfg.ReturnCodeToClient = true
	if mutate != nil {
		mutate(&cfg)
	}

	sms := new(MockSMSSender)
	sms.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	clock := &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := memory.NewStore(&nopLogger)
	svc := NewService(store, sms, cfg, &nopLogger, WithClock(clock.Now))
	return &fixture{svc: svc, store: store, sms: sms, clock: clock}
}

func (f *fixture) issue(t *testing.T, kind domain.ActorKind) *Issued {
	t.Helper()
	issued, err := f.svc.Issue(context.Background(), IssueRequest{Phone: testPhone, Kind: kind, Purpose: domain.PurposeRegistration})
	require.NoError(t, err)
	return issued
}

func (f *fixture) verify(kind domain.ActorKind, code string) (*Verified, error) {
	return f.svc.Verify(context.Background(), VerifyRequest{Phone: testPhone, Kind: kind, Purpose: domain.PurposeRegistration, Code: code})
}

// wrongCode returns a well-formed code that differs from code.
func wrongCode(code string) string {
	first := '1'
	if code[0] == '1' {
		first = '2'
	}
	return string(first) + code[1:]
}

func TestService_IssueVerify_SingleUse(t *testing.T) {
	f := newFixture(t, nil)

	issued := f.issue(t, domain.ActorMerchant)
	require.Len(t, issued.Code, 4)
	assert.Equal(t, f.clock.Now().Add(10*time.Minute), issued.ExpiresAt)

	_, err := f.verify(domain.ActorMerchant, wrongCode(issued.Code))
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	v, err := f.verify(domain.ActorMerchant, issued.Code)
	require.NoError(t, err)
	assert.Equal(t, testPhone, v.PhoneNumber)

	_, err = f.verify(domain.ActorMerchant, issued.Code)
	assert.ErrorIs(t, err, domain.ErrInvalidCode, "a consumed code behaves as not found")
}

func TestService_Issue_OnlyLatestCodeIsLive(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxAttempts = 0 })

	var codes []string
	for i := 0; i < 3; i++ {
		codes = append(codes, f.issue(t, domain.ActorCustomer).Code)
	}
	latest := codes[len(codes)-1]

	for _, old := range codes[:len(codes)-1] {
		if old == latest {
			continue
		}
		_, err := f.verify(domain.ActorCustomer, old)
		assert.ErrorIs(t, err, domain.ErrInvalidCode)
	}

	_, err := f.verify(domain.ActorCustomer, latest)
	assert.NoError(t, err)
}

func TestService_Verify_Expired(t *testing.T) {
	f := newFixture(t, nil)
	issued := f.issue(t, domain.ActorCustomer)

	f.clock.Advance(10*time.Minute + time.Second)
	_, err := f.verify(domain.ActorCustomer, issued.Code)
	assert.ErrorIs(t, err, domain.ErrExpiredCode)

	// The row is gone, even if the clock went back.
	f.clock.Advance(-time.Hour)
	_, err = f.verify(domain.ActorCustomer, issued.Code)
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestService_Verify_ExpiryBoundaryIsExclusive(t *testing.T) {
	f := newFixture(t, nil)
	issued := f.issue(t, domain.ActorCustomer)

	f.clock.Advance(10 * time.Minute)
	_, err := f.verify(domain.ActorCustomer, issued.Code)
	assert.ErrorIs(t, err, domain.ErrExpiredCode, "expiry <= now means expired")
}

func TestService_Verify_TooManyAttempts(t *testing.T) {
	f := newFixture(t, nil)
	issued := f.issue(t, domain.ActorCustomer)
	bad := wrongCode(issued.Code)

	_, err := f.verify(domain.ActorCustomer, bad)
	require.ErrorIs(t, err, domain.ErrInvalidCode)
	assert.Equal(t, "2", err.(*domain.Error).Fields["attempts_remaining"])

	_, err = f.verify(domain.ActorCustomer, bad)
	require.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = f.verify(domain.ActorCustomer, bad)
	require.ErrorIs(t, err, domain.ErrTooManyAttempts)

	_, err = f.verify(domain.ActorCustomer, issued.Code)
	assert.ErrorIs(t, err, domain.ErrInvalidCode, "an exhausted code is deleted")
}

func TestService_Verify_MalformedCode(t *testing.T) {
	f := newFixture(t, nil)
	issued := f.issue(t, domain.ActorCustomer)

	for _, code := range []string{"", "12a4", "12345", "123"} {
		_, err := f.verify(domain.ActorCustomer, code)
		assert.ErrorIs(t, err, domain.ErrInvalidCode, "code %q", code)
	}

	// Malformed submissions do not burn attempts.
	_, err := f.verify(domain.ActorCustomer, issued.Code)
	assert.NoError(t, err)
}

func TestService_Verify_ScopedByKindAndPurpose(t *testing.T) {
	f := newFixture(t, nil)
	issued := f.issue(t, domain.ActorCustomer)

	_, err := f.verify(domain.ActorMerchant, issued.Code)
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = f.svc.Verify(context.Background(), VerifyRequest{Phone: testPhone, Kind: domain.ActorCustomer, Purpose: domain.PurposeLogin, Code: issued.Code})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = f.verify(domain.ActorCustomer, issued.Code)
	assert.NoError(t, err)
}

func TestService_Issue_CodeHiddenByDefault(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.ReturnCodeToClient = false })

	var sent string
	f.sms.ExpectedCalls = nil
	f.sms.On("SendText", mock.Anything, testPhone, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.String(2) }).
		Return(nil).Once()

	issued := f.issue(t, domain.ActorCustomer)
	assert.Empty(t, issued.Code)
	f.sms.AssertExpectations(t)

	code := strings.Fields(strings.TrimPrefix(sent, "Your verification code is "))[0]
	code = strings.TrimSuffix(code, ".")
	_, err := f.verify(domain.ActorCustomer, code)
	assert.NoError(t, err)
}

func TestService_Issue_SMSFailureRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	f.sms.ExpectedCalls = nil
	f.sms.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("provider down"))

	_, err := f.svc.Issue(context.Background(), IssueRequest{Phone: testPhone, Kind: domain.ActorCustomer, Purpose: domain.PurposeRegistration})
	require.Error(t, err)
	assert.Equal(t, domain.KindDeliveryFailed, domain.KindOf(err))

	n, err := f.store.Repositories().Codes.CountLive(context.Background(), testPhone, domain.ActorCustomer, f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_Issue_ConcurrentLeavesOneLiveCode(t *testing.T) {
	f := newFixture(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Issue(context.Background(), IssueRequest{Phone: testPhone, Kind: domain.ActorCustomer, Purpose: domain.PurposeRegistration})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := f.store.Repositories().Codes.CountLive(context.Background(), testPhone, domain.ActorCustomer, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_Verify_ConcurrentDoubleSubmit(t *testing.T) {
	f := newFixture(t, nil)
	issued := f.issue(t, domain.ActorCustomer)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.verify(domain.ActorCustomer, issued.Code); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestService_Resend(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	payload := map[string]any{"name": "Sara"}

	_, err := f.svc.Issue(ctx, IssueRequest{Phone: testPhone, Kind: domain.ActorCustomer, Purpose: domain.PurposeRegistration, Payload: payload})
	require.NoError(t, err)

	f.clock.Advance(20 * time.Second)
	_, err = f.svc.Resend(ctx, IssueRequest{Phone: testPhone, Kind: domain.ActorCustomer, Purpose: domain.PurposeRegistration})
	require.ErrorIs(t, err, domain.ErrResendTooSoon)
	assert.Equal(t, "40", err.(*domain.Error).Fields["retry_after"])

	f.clock.Advance(40 * time.Second)
	issued, err := f.svc.Resend(ctx, IssueRequest{Phone: testPhone, Kind: domain.ActorCustomer, Purpose: domain.PurposeRegistration})
	require.NoError(t, err)

	v, err := f.verify(domain.ActorCustomer, issued.Code)
	require.NoError(t, err)
	assert.Equal(t, payload, v.Payload)
}

func TestService_Pending(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	p, err := f.svc.Pending(ctx, testPhone, domain.ActorCustomer)
	require.NoError(t, err)
	assert.Nil(t, p)

	f.issue(t, domain.ActorCustomer)
	p, err = f.svc.Pending(ctx, testPhone, domain.ActorCustomer)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, domain.PurposeRegistration, p.Purpose)
	assert.Equal(t, f.clock.Now().Add(DefaultResendDelay), p.ResendAt)

	f.clock.Advance(time.Hour)
	p, err = f.svc.Pending(ctx, testPhone, domain.ActorCustomer)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestConfig_PolicyFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, Policy{Length: 4, TTL: 10 * time.Minute}, cfg.PolicyFor(domain.ActorMerchant, domain.PurposeRegistration))
	assert.Equal(t, Policy{Length: 4, TTL: 5 * time.Minute}, cfg.PolicyFor(domain.ActorCustomer, domain.PurposeLogin))

	cfg.SetPolicy(domain.ActorCustomer, domain.PurposeLogin, Policy{Length: 9, TTL: time.Minute})
	assert.Equal(t, 6, cfg.PolicyFor(domain.ActorCustomer, domain.PurposeLogin).Length)
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := generateCode(rand.Reader, 6, false)
		require.NoError(t, err)
		require.True(t, wellFormed(code, 6), code)
		require.NotEqual(t, byte('0'), code[0])
		seen[code] = true
	}
	assert.Greater(t, len(seen), 150, "codes should not repeat much")

	code, err := generateCode(rand.Reader, 4, true)
	require.NoError(t, err)
	assert.True(t, wellFormed(code, 4))
}
