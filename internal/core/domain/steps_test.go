package domain

import (
	"errors"
	"testing"
)

func TestStepFlow_CheckSubmit(t *testing.T) {
	testCases := []struct {
		name     string
		step     Step
		current  Step
		verified bool
		wantErr  error
	}{
		{"first step on empty account", StepBasicInfo, "", false, nil},
		{"jump ahead from empty", StepPhoneVerification, "", false, ErrStepNotAllowed},
		{"gate before ordering", StepSubscription, StepBasicInfo, false, ErrOTPNotVerified},
		{"gate even far ahead", StepLocation, StepLocation, false, ErrOTPNotVerified},
		{"subscription after verification", StepSubscription, StepPhoneVerification, true, nil},
		{"skip one step", StepBusinessInfo, StepPhoneVerification, true, ErrStepNotAllowed},
		{"resubmit earlier step", StepBasicInfo, StepBusinessProfile, true, nil},
		{"unknown step", StepProfile, StepBasicInfo, true, ErrStepNotAllowed},
		{"anything after completion", StepLocation, StepCompleted, true, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := MerchantFlow.CheckSubmit(tc.step, tc.current, tc.verified)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStepFlow_AdvanceIsMonotonic(t *testing.T) {
	completed := map[Step]bool{StepBasicInfo: true, StepPhoneVerification: true, StepSubscription: true}
	current := MerchantFlow.Advance("", completed)
	if current != StepSubscription {
		t.Fatalf("expected subscription, got %s", current)
	}

	// Resubmitting basic_info must not move the marker back.
	current = MerchantFlow.Advance(current, map[Step]bool{StepBasicInfo: true})
	if current != StepSubscription {
		t.Fatalf("current step went backwards: %s", current)
	}

	all := map[Step]bool{}
	for _, s := range MerchantFlow.Steps() {
		all[s] = true
	}
	if got := MerchantFlow.Advance(current, all); got != StepCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestStepFlow_AdvanceStopsAtFirstGap(t *testing.T) {
	completed := map[Step]bool{StepBasicInfo: true, StepPhoneVerification: true, StepBusinessInfo: true}
	current := MerchantFlow.Advance("", completed)
	if current != StepPhoneVerification {
		t.Fatalf("expected phone_verification, got %s", current)
	}
	if err := MerchantFlow.CheckSubmit(StepBusinessProfile, current, true); !errors.Is(err, ErrStepNotAllowed) {
		t.Fatalf("business_profile past the subscription gap: expected StepNotAllowed, got %v", err)
	}
	if err := MerchantFlow.CheckSubmit(StepSubscription, current, true); err != nil {
		t.Fatalf("subscription should be allowed, got %v", err)
	}

	completed[StepSubscription] = true
	if got := MerchantFlow.Advance(current, completed); got != StepBusinessInfo {
		t.Fatalf("expected business_info once the gap is filled, got %s", got)
	}
}

func TestStepFlow_NextAndProgress(t *testing.T) {
	completed := map[Step]bool{StepBasicInfo: true, StepPhoneVerification: true}
	if next := MerchantFlow.Next(completed, ""); next != StepSubscription {
		t.Fatalf("expected subscription, got %s", next)
	}

	done, pct := MerchantFlow.Progress(completed)
	if done != 2 || pct != 33 {
		t.Fatalf("expected 2 steps / 33%%, got %d / %d%%", done, pct)
	}

	for _, s := range MerchantFlow.Steps() {
		completed[s] = true
	}
	if next := MerchantFlow.Next(completed, ""); next != StepCompleted {
		t.Fatalf("expected completed, got %s", next)
	}
	if _, pct := MerchantFlow.Progress(completed); pct != 100 {
		t.Fatalf("expected 100%%, got %d", pct)
	}
}

func TestStepFlow_SingleShotHasNoGatedSteps(t *testing.T) {
	if SingleShotFlow.Len() != 1 {
		t.Fatalf("expected one step, got %d", SingleShotFlow.Len())
	}
	if SingleShotFlow.RequiresVerification(StepPhoneVerification) {
		t.Fatal("phone_verification must not be gated by itself")
	}
}

func TestPhoneNormalizer_Normalize(t *testing.T) {
	saudi := PhoneNormalizer{CountryCode: "+966"}
	testCases := []struct {
		phones  PhoneNormalizer
		in      string
		want    string
		wantErr bool
	}{
		{PhoneNormalizer{}, "0551234567", "0551234567", false},
		{PhoneNormalizer{}, " +966 55-123-4567 ", "+966551234567", false},
		{PhoneNormalizer{}, "(055) 123.4567", "0551234567", false},
		{saudi, "0551234567", "+966551234567", false},
		{saudi, "551234567", "+966551234567", false},
		{saudi, "+966 55 123 4567", "+966551234567", false},
		{saudi, "00966551234567", "+966551234567", false},
		{saudi, "+971501234567", "+971501234567", false},
		{saudi, "", "", true},
		{PhoneNormalizer{}, "12345", "", true},
		{saudi, "055abc4567", "", true},
		{saudi, "05512+34567", "", true},
		{saudi, "+", "", true},
	}

	for _, tc := range testCases {
		got, err := tc.phones.Normalize(tc.in)
		if tc.wantErr {
			if KindOf(err) != KindInvalidInput {
				t.Errorf("Normalize(%q): expected invalid input, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("Normalize(%q) with %q = %q, %v; want %q", tc.in, tc.phones.CountryCode, got, err, tc.want)
		}
	}
}

func TestNewPhoneNormalizer(t *testing.T) {
	for _, cc := range []string{"", "+966", "+1", " +44 "} {
		if _, err := NewPhoneNormalizer(cc); err != nil {
			t.Errorf("NewPhoneNormalizer(%q): unexpected error %v", cc, err)
		}
	}
	for _, cc := range []string{"966", "+", "+0966", "+9a6", "+12345"} {
		if _, err := NewPhoneNormalizer(cc); err == nil {
			t.Errorf("NewPhoneNormalizer(%q): expected an error", cc)
		}
	}
}

func TestTranslatedFromFlat(t *testing.T) {
	data := map[string]any{
		"name_en":          "Coffee House",
		"name_ar":          "بيت القهوة",
		"business_name":    "Bean Co",
		"name_suffix_long": "ignored",
	}

	name := TranslatedFromFlat(data, "name")
	if name["en"] != "Coffee House" || name["ar"] != "بيت القهوة" || len(name) != 2 {
		t.Fatalf("unexpected name translations: %v", name)
	}

	biz := TranslatedFromFlat(data, "business_name")
	if biz.Get("ar") != "Bean Co" {
		t.Fatalf("expected fallback to default locale, got %q", biz.Get("ar"))
	}

	if TranslatedFromFlat(data, "address") != nil {
		t.Fatal("expected nil for missing prefix")
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := ErrInvalidCode.WithField("attempts_remaining", "2")
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatal("expected errors.Is to match by kind")
	}
	if errors.Is(err, ErrExpiredCode) {
		t.Fatal("different kinds must not match")
	}
	if _, ok := ErrInvalidCode.Fields["attempts_remaining"]; ok {
		t.Fatal("WithField must not mutate the sentinel")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("plain errors are internal")
	}
}
