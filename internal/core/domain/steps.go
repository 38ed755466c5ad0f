package domain

import (
	"math"
	"slices"
)

// Step names a registration step.
type Step string

const (
	StepBasicInfo         Step = "basic_info"
	StepPhoneVerification Step = "phone_verification"
	StepSubscription      Step = "subscription"
	StepBusinessInfo      Step = "business_info"
	StepBusinessProfile   Step = "business_profile"
	StepLocation          Step = "location"
	StepProfile           Step = "profile"

	// StepCompleted is the implicit terminal marker. It is never submitted.
	StepCompleted Step = "completed"
)

// StepFlow is an ordered list of registration steps. It is the only place
// step order is defined; every flow asks it for indexes and gates.
//
// The "current" step of an account or session is the last step of the
// unbroken run it has completed from the start (empty before the first one). A step S may be submitted iff
// Index(S) <= Index(current)+1, and steps after phone_verification also
// require a verified phone.
type StepFlow struct {
	name  string
	steps []Step
}

var (
	// MerchantFlow is the full merchant wizard.
	MerchantFlow = NewStepFlow("merchant",
		StepBasicInfo, StepPhoneVerification, StepSubscription,
		StepBusinessInfo, StepBusinessProfile, StepLocation)

	// CustomerSessionFlow is the session-keyed customer signup.
	CustomerSessionFlow = NewStepFlow("customer_session",
		StepBasicInfo, StepPhoneVerification, StepProfile)

	// MerchantSessionFlow is the session-keyed merchant signup. The created
	// merchant continues the wizard from subscription.
	MerchantSessionFlow = NewStepFlow("merchant_session",
		StepBasicInfo, StepPhoneVerification, StepBusinessInfo)

	// SingleShotFlow verifies a phone and materializes the account at once.
	SingleShotFlow = NewStepFlow("single_shot", StepPhoneVerification)
)

func NewStepFlow(name string, steps ...Step) StepFlow {
	return StepFlow{name: name, steps: slices.Clone(steps)}
}

func (f StepFlow) Name() string { return f.name }

// Steps returns a copy of the ordered steps, excluding the terminal marker.
func (f StepFlow) Steps() []Step { return slices.Clone(f.steps) }

// Len is the number of real steps (the terminal marker is not counted).
func (f StepFlow) Len() int { return len(f.steps) }

// Index returns the 0-based position of s. The empty step (nothing done yet)
// is -1, StepCompleted is Len(), and unknown steps are -2.
func (f StepFlow) Index(s Step) int {
	switch s {
	case "":
		return -1
	case StepCompleted:
		return len(f.steps)
	}
	if i := slices.Index(f.steps, s); i >= 0 {
		return i
	}
	return -2
}

// Contains reports whether s is a submittable step of this flow.
func (f StepFlow) Contains(s Step) bool {
	return slices.Contains(f.steps, s)
}

// RequiresVerification reports whether s lies behind the phone gate.
func (f StepFlow) RequiresVerification(s Step) bool {
	gate := slices.Index(f.steps, StepPhoneVerification)
	if gate < 0 {
		return false
	}
	return f.Index(s) > gate
}

// CheckSubmit validates submitting step s while at current. The phone gate is
// checked before ordering so an unverified actor always sees OTPNotVerified.
func (f StepFlow) CheckSubmit(s, current Step, phoneVerified bool) error {
	if !f.Contains(s) {
		return ErrStepNotAllowed.WithField("step", "unknown step")
	}
	if f.RequiresVerification(s) && !phoneVerified {
		return ErrOTPNotVerified
	}
	if f.Index(s) > f.Index(current)+1 {
		return ErrStepNotAllowed.WithField("step", "complete "+string(f.Next(nil, current))+" first")
	}
	return nil
}

// Next returns the first step not in completed, or StepCompleted. When
// completed is nil, every step up to and including current counts as done.
func (f StepFlow) Next(completed map[Step]bool, current Step) Step {
	ci := f.Index(current)
	for i, s := range f.steps {
		if completed == nil {
			if i > ci {
				return s
			}
			continue
		}
		if !completed[s] {
			return s
		}
	}
	return StepCompleted
}

// Advance returns the new current step after the given completions: the
// last step of the unbroken run of completed steps from the start of the
// flow, never behind previous. A step completed out of order (a merchant
// created from a session skips subscription) does not move the marker past
// the gap.
func (f StepFlow) Advance(previous Step, completed map[Step]bool) Step {
	var reached Step
	for _, s := range f.steps {
		if !completed[s] {
			break
		}
		reached = s
	}
	if f.Next(completed, "") == StepCompleted {
		return StepCompleted
	}
	if f.Index(previous) > f.Index(reached) {
		return previous
	}
	return reached
}

// Progress counts completed steps and the rounded completion percentage.
func (f StepFlow) Progress(completed map[Step]bool) (done int, percentage int) {
	for _, s := range f.steps {
		if completed[s] {
			done++
		}
	}
	if len(f.steps) == 0 {
		return 0, 100
	}
	return done, int(math.Round(float64(done) * 100 / float64(len(f.steps))))
}
