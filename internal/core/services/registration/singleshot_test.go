package registration

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"Onboarding/internal/core/services/otp"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func customerForm() map[string]any {
	return map[string]any{
		"name":          "Sara",
		"name_ar":       "سارة",
		"phone_number":  "055 123 4567",
		"email":         "Sara@Example.com",
		"gender":        "female",
		"date_of_birth": "1995-04-12",
	}
}

func TestSingleShot_CustomerCreatedExactlyOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	issued, err := h.singleShot.StartRegistration(ctx, domain.ActorCustomer, customerForm())
	require.NoError(t, err)
	assert.Equal(t, testPhone, issued.PhoneNumber)

	acct, err := h.singleShot.VerifyAndCreateAccount(ctx, testPhone, issued.Code, domain.ActorCustomer)
	require.NoError(t, err)
	require.NotNil(t, acct.Customer)
	assert.Nil(t, acct.Merchant)
	assert.Equal(t, "Sara", acct.Customer.Name.Get("en"))
	assert.Equal(t, "سارة", acct.Customer.Name.Get("ar"))
	require.NotNil(t, acct.Customer.Email)
	assert.Equal(t, "sara@example.com", *acct.Customer.Email)
	assert.True(t, acct.Customer.IsPhoneVerified)
	assert.Equal(t, domain.CustomerActive, acct.Customer.Status)
	require.NotNil(t, acct.Customer.DateOfBirth)
	assert.Equal(t, 1995, acct.Customer.DateOfBirth.Year())
	require.NotNil(t, acct.Token)

	code, err := h.repos().Codes.Get(ctx, testPhone, domain.ActorCustomer)
	require.NoError(t, err)
	assert.Nil(t, code, "code is consumed")

	_, err = h.singleShot.VerifyAndCreateAccount(ctx, testPhone, issued.Code, domain.ActorCustomer)
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	h.bus.AssertCalled(t, "Publish", mock.Anything, ports.TopicCustomerRegistered, mock.MatchedBy(func(ev ports.RegistrationEvent) bool {
		return ev.AccountID == acct.AccountID && ev.Flow == domain.SingleShotFlow.Name()
	}))
	h.bus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestSingleShot_ConcurrentVerifyCreatesOneAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	issued, err := h.singleShot.StartRegistration(ctx, domain.ActorCustomer, customerForm())
	require.NoError(t, err)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.singleShot.VerifyAndCreateAccount(ctx, testPhone, issued.Code, domain.ActorCustomer); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)

	exists, err := h.repos().Customers.ExistsByPhone(ctx, testPhone, nil)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSingleShot_MerchantResumesWizard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	issued, err := h.singleShot.StartRegistration(ctx, domain.ActorMerchant, map[string]any{
		"name":          "Bean Co",
		"phone_number":  testPhone,
		"business_name": "Bean",
		"city":          "Riyadh",
	})
	require.NoError(t, err)

	acct, err := h.singleShot.VerifyAndCreateAccount(ctx, testPhone, issued.Code, domain.ActorMerchant)
	require.NoError(t, err)
	require.NotNil(t, acct.Merchant)
	assert.Equal(t, domain.MerchantPending, acct.Merchant.Status)
	assert.Equal(t, domain.StepPhoneVerification, acct.Merchant.RegistrationStep)
	assert.True(t, acct.Merchant.IsPhoneVerified)
	assert.Equal(t, "Bean", acct.Merchant.BusinessName.Get("en"))

	status, err := h.stepwise.GetRegistrationStatus(ctx, acct.AccountID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.CompletedSteps)
	assert.Equal(t, domain.StepSubscription, status.NextStep)

	plan := h.addPlan(t, 0, true)
	_, err = h.stepwise.ChooseSubscription(ctx, acct.AccountID, plan.ID)
	assert.NoError(t, err)
}

func TestSingleShot_StartRejectsRegisteredPhone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	issued, err := h.singleShot.StartRegistration(ctx, domain.ActorCustomer, customerForm())
	require.NoError(t, err)
	_, err = h.singleShot.VerifyAndCreateAccount(ctx, testPhone, issued.Code, domain.ActorCustomer)
	require.NoError(t, err)

	_, err = h.singleShot.StartRegistration(ctx, domain.ActorCustomer, customerForm())
	assert.ErrorIs(t, err, domain.ErrPhoneAlreadyRegistered)

	// The same phone is free for the other actor kind.
	_, err = h.singleShot.StartRegistration(ctx, domain.ActorMerchant, map[string]any{"name": "Sara's", "phone_number": testPhone})
	assert.NoError(t, err)
}

func TestSingleShot_StartValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		kind  domain.ActorKind
		form  map[string]any
		field string
	}{
		{"bad kind", domain.ActorKind("admin"), customerForm(), "actor_kind"},
		{"bad phone", domain.ActorCustomer, map[string]any{"name": "Sara", "phone_number": "12"}, "phone_number"},
		{"missing name", domain.ActorCustomer, map[string]any{"phone_number": testPhone}, "name"},
		{"bad email", domain.ActorCustomer, map[string]any{"name": "Sara", "phone_number": testPhone, "email": "nope"}, "email"},
		{"bad birth date", domain.ActorCustomer, map[string]any{"name": "Sara", "phone_number": testPhone, "date_of_birth": "12/04/1995"}, "date_of_birth"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.singleShot.StartRegistration(ctx, tc.kind, tc.form)
			require.Error(t, err)
			var derr *domain.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, domain.KindInvalidInput, derr.Kind)
			assert.Contains(t, derr.Fields, tc.field)
		})
	}
	h.sms.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestSingleShot_ResendCarriesPayload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.singleShot.ResendRegistrationOTP(ctx, testPhone, domain.ActorCustomer)
	assert.ErrorIs(t, err, domain.ErrNoPendingRegistration)

	first, err := h.singleShot.StartRegistration(ctx, domain.ActorCustomer, customerForm())
	require.NoError(t, err)

	_, err = h.singleShot.ResendRegistrationOTP(ctx, testPhone, domain.ActorCustomer)
	assert.ErrorIs(t, err, domain.ErrResendTooSoon)

	h.clock.Advance(2 * time.Minute)
	second, err := h.singleShot.ResendRegistrationOTP(ctx, testPhone, domain.ActorCustomer)
	require.NoError(t, err)

	if first.Code != second.Code {
		_, err = h.singleShot.VerifyAndCreateAccount(ctx, testPhone, first.Code, domain.ActorCustomer)
		assert.ErrorIs(t, err, domain.ErrInvalidCode, "superseded code no longer works")
	}

	acct, err := h.singleShot.VerifyAndCreateAccount(ctx, testPhone, second.Code, domain.ActorCustomer)
	require.NoError(t, err)
	assert.Equal(t, "Sara", acct.Customer.Name.Get("en"))
}

func TestSingleShot_Login(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.singleShot.StartLogin(ctx, testPhone, domain.ActorCustomer)
	assert.ErrorIs(t, err, domain.ErrPhoneNotRegistered)

	issued, err := h.singleShot.StartRegistration(ctx, domain.ActorCustomer, customerForm())
	require.NoError(t, err)
	created, err := h.singleShot.VerifyAndCreateAccount(ctx, testPhone, issued.Code, domain.ActorCustomer)
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	login, err := h.singleShot.StartLogin(ctx, testPhone, domain.ActorCustomer)
	require.NoError(t, err)
	assert.Equal(t, domain.PurposeLogin, login.Purpose)
	assert.Equal(t, h.clock.Now().Add(otp.DefaultLoginTTL), login.ExpiresAt)

	// A login code cannot create an account.
	_, err = h.singleShot.VerifyAndCreateAccount(ctx, testPhone, login.Code, domain.ActorCustomer)
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	login, err = h.singleShot.StartLogin(ctx, testPhone, domain.ActorCustomer)
	require.NoError(t, err)
	acct, err := h.singleShot.VerifyLogin(ctx, testPhone, login.Code, domain.ActorCustomer)
	require.NoError(t, err)
	assert.Equal(t, created.AccountID, acct.AccountID)
	require.NotNil(t, acct.Token)

	stored, err := h.repos().Customers.GetByID(ctx, created.AccountID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
	assert.True(t, stored.LastLoginAt.Equal(h.clock.Now()))
}

func TestSingleShot_LoginRejectsInactiveAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	issued, err := h.singleShot.StartRegistration(ctx, domain.ActorCustomer, customerForm())
	require.NoError(t, err)
	acct, err := h.singleShot.VerifyAndCreateAccount(ctx, testPhone, issued.Code, domain.ActorCustomer)
	require.NoError(t, err)

	c := acct.Customer
	c.Status = domain.CustomerSuspended
	require.NoError(t, h.repos().Customers.Update(ctx, c))

	_, err = h.singleShot.StartLogin(ctx, testPhone, domain.ActorCustomer)
	assert.ErrorIs(t, err, domain.ErrAccountInactive)
}

func TestSingleShot_LoginRequiresVerifiedMerchantPhone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.stepwise.RegisterBasicInfo(ctx, BasicInfoInput{Name: domain.TranslatedText{"en": "Bean Co"}, PhoneNumber: testPhone})
	require.NoError(t, err)

	_, err = h.singleShot.StartLogin(ctx, testPhone, domain.ActorMerchant)
	assert.ErrorIs(t, err, domain.ErrAccountInactive)

	// The rejected login left the registration code live.
	_, err = h.stepwise.VerifyPhone(ctx, testPhone, res.OTP.Code)
	require.NoError(t, err)

	login, err := h.singleShot.StartLogin(ctx, testPhone, domain.ActorMerchant)
	require.NoError(t, err)
	acct, err := h.singleShot.VerifyLogin(ctx, testPhone, login.Code, domain.ActorMerchant)
	require.NoError(t, err)
	assert.Equal(t, res.Merchant.ID, acct.AccountID)
	assert.True(t, acct.Merchant.IsPhoneVerified)
	require.NotNil(t, acct.Token)
}

func TestSingleShot_LoginLocksMerchantBeforeCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	m := h.verifiedMerchant(t)

	rec := &lockRecorder{TxManager: h.store}
	deps := h.deps
	deps.Tx = rec
	singleShot := NewSingleShotRegistration(deps, &nopLogger)
	stepwise := NewStepwiseRegistration(deps, &nopLogger)

	login, err := singleShot.StartLogin(ctx, testPhone, domain.ActorMerchant)
	require.NoError(t, err)
	rec.reset()

	acct, err := singleShot.VerifyLogin(ctx, testPhone, login.Code, domain.ActorMerchant)
	require.NoError(t, err)
	assert.Equal(t, m.ID, acct.AccountID)
	assert.Equal(t, []string{"merchant", "code"}, rec.reset())

	// The wizard takes the same locks in the same order.
	other, err := stepwise.RegisterBasicInfo(ctx, BasicInfoInput{Name: domain.TranslatedText{"en": "Other"}, PhoneNumber: "0559999999"})
	require.NoError(t, err)
	rec.reset()
	_, err = stepwise.VerifyPhone(ctx, "0559999999", other.OTP.Code)
	require.NoError(t, err)
	assert.Equal(t, []string{"merchant", "code"}, rec.reset())
}

func TestSingleShot_PhoneSpellingsShareOneKey(t *testing.T) {
	h := newHarness(t, func(c *otp.Config) { c.Phones = domain.PhoneNormalizer{CountryCode: "+966"} })
	ctx := context.Background()

	first, err := h.stepwise.RegisterBasicInfo(ctx, BasicInfoInput{Name: domain.TranslatedText{"en": "A"}, PhoneNumber: "0551234567"})
	require.NoError(t, err)
	assert.Equal(t, "+966551234567", first.Merchant.PhoneNumber)

	_, err = h.stepwise.RegisterBasicInfo(ctx, BasicInfoInput{Name: domain.TranslatedText{"en": "B"}, PhoneNumber: "+966 55 123 4567"})
	assert.ErrorIs(t, err, domain.ErrDuplicatePhone)

	_, err = h.singleShot.StartRegistration(ctx, domain.ActorMerchant, map[string]any{"name": "C", "phone_number": "00966551234567"})
	assert.ErrorIs(t, err, domain.ErrPhoneAlreadyRegistered)

	// The code issued under the national spelling verifies under the
	// international one.
	v, err := h.stepwise.VerifyPhone(ctx, "+966551234567", first.OTP.Code)
	require.NoError(t, err)
	assert.True(t, v.Merchant.IsPhoneVerified)
	h.sms.AssertCalled(t, "SendText", mock.Anything, "+966551234567", mock.Anything)
}
