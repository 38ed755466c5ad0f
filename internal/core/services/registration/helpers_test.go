package registration

import (
	"Onboarding/internal/adapters/memory"
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"Onboarding/internal/core/services/otp"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
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

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, topic string, data interface{}) error {
	args := m.Called(ctx, topic, data)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(topic string, handler ports.EventHandler) {
	m.Called(topic, handler)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ChargeResult), args.Error(1)
}

// --- Fakes ---

type fakeTokens struct{}

func (fakeTokens) Issue(ctx context.Context, p domain.Principal) (*domain.AuthToken, error) {
	return &domain.AuthToken{Value: fmt.Sprintf("%s:%s", p.Kind, p.AccountID), ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (fakeTokens) Parse(ctx context.Context, token string) (*domain.Principal, error) {
	return nil, fmt.Errorf("not supported")
}

type fakeStorage struct {
	mu      sync.Mutex
	stored  map[string]string
	deleted []string
	fail    bool
}

func (s *fakeStorage) Store(ctx context.Context, u ports.Upload, dir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", fmt.Errorf("disk full")
	}
	body, err := io.ReadAll(u.Content)
	if err != nil {
		return "", err
	}
	p := dir + "/" + uuid.NewString() + "-" + u.Filename
	if s.stored == nil {
		s.stored = map[string]string{}
	}
	s.stored[p] = string(body)
	return p, nil
}

func (s *fakeStorage) Delete(ctx context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stored, p)
	s.deleted = append(s.deleted, p)
	return nil
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

type harness struct {
	store    *memory.Store
	sms      *MockSMSSender
	bus      *MockEventBus
	payments *MockPaymentGateway
	storage  *fakeStorage
	clock    *testClock
	deps     Deps

	stepwise   *StepwiseRegistration
	singleShot *SingleShotRegistration
	sessions   *SessionRegistration
}

func newHarness(t *testing.T, mutate ...func(*otp.Config)) *harness {
	t.Helper()
	nopLogger := zerolog.Nop()

	h := &harness{
		store:    memory.NewStore(&nopLogger),
		sms:      new(MockSMSSender),
		bus:      new(MockEventBus),
		payments: new(MockPaymentGateway),
		storage:  &fakeStorage{},
		clock:    &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	h.sms.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	cfg := otp.DefaultConfig()
	cfg.ReturnCodeToClient = true
	for _, m := range mutate {
		m(&cfg)
	}
	otpSvc := otp.NewService(h.store, h.sms, cfg, &nopLogger, otp.WithClock(h.clock.Now))

	h.deps = Deps{
		Tx:       h.store,
		OTP:      otpSvc,
		Tokens:   fakeTokens{},
		Storage:  h.storage,
		Payments: h.payments,
		Bus:      h.bus,
		Clock:    h.clock.Now,
	}
	h.stepwise = NewStepwiseRegistration(h.deps, &nopLogger)
	h.singleShot = NewSingleShotRegistration(h.deps, &nopLogger)
	h.sessions = NewSessionRegistration(h.deps, DefaultSessionTTL, &nopLogger)
	return h
}

func (h *harness) repos() ports.Repositories {
	return h.store.Repositories()
}

func (h *harness) addPlan(t *testing.T, price int64, active bool) *domain.SubscriptionPlan {
	t.Helper()
	p := &domain.SubscriptionPlan{
		ID:       uuid.New(),
		Name:     domain.TranslatedText{"en": "Plan"},
		Price:    price,
		Currency: "SAR",
		Period:   domain.PeriodMonthly,
		IsActive: active,
	}
	require.NoError(t, h.repos().Plans.Create(context.Background(), p))
	return p
}

// verifiedMerchant runs basic_info and phone verification.
func (h *harness) verifiedMerchant(t *testing.T) *domain.Merchant {
	t.Helper()
	ctx := context.Background()
	res, err := h.stepwise.RegisterBasicInfo(ctx, BasicInfoInput{
		Name:        domain.TranslatedText{"en": "Bean Co", "ar": "بين"},
		PhoneNumber: testPhone,
		Email:       "owner@bean.co",
	})
	require.NoError(t, err)
	v, err := h.stepwise.VerifyPhone(ctx, testPhone, res.OTP.Code)
	require.NoError(t, err)
	return v.Merchant
}

// lockRecorder wraps a TxManager and records the order in which a
// transaction takes row locks on merchants and verification codes.
type lockRecorder struct {
	ports.TxManager
	mu    sync.Mutex
	locks []string
}

func (l *lockRecorder) WithinTx(ctx context.Context, fn ports.TxFunc) error {
	return l.TxManager.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		r.Codes = lockingCodes{VerificationCodeRepository: r.Codes, rec: l}
		r.Merchants = lockingMerchants{MerchantRepository: r.Merchants, rec: l}
		return fn(ctx, r)
	})
}

func (l *lockRecorder) record(what string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locks = append(l.locks, what)
}

func (l *lockRecorder) reset() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.locks
	l.locks = nil
	return out
}

type lockingCodes struct {
	ports.VerificationCodeRepository
	rec *lockRecorder
}

func (c lockingCodes) GetForUpdate(ctx context.Context, phone string, kind domain.ActorKind) (*domain.VerificationCode, error) {
	c.rec.record("code")
	return c.VerificationCodeRepository.GetForUpdate(ctx, phone, kind)
}

type lockingMerchants struct {
	ports.MerchantRepository
	rec *lockRecorder
}

func (m lockingMerchants) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	m.rec.record("merchant")
	return m.MerchantRepository.GetByIDForUpdate(ctx, id)
}

func wrongCode(code string) string {
	first := '1'
	if code[0] == '1' {
		first = '2'
	}
	return string(first) + code[1:]
}
