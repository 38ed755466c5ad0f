package domain

import (
	"maps"
	"time"
)

// RegistrationSession accumulates form data for the session-keyed flow
// before any permanent account exists.
type RegistrationSession struct {
	ID             string
	ActorKind      ActorKind
	PhoneNumber    string
	Data           map[string]any
	CompletedSteps map[Step]time.Time
	CurrentStep    Step
	OTPVerified    bool
	ExpiresAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsExpired reports whether the session is no longer usable at now.
func (s *RegistrationSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// MergeData adds or replaces individual keys, keeping earlier ones.
func (s *RegistrationSession) MergeData(data map[string]any) {
	if s.Data == nil {
		s.Data = make(map[string]any, len(data))
	}
	maps.Copy(s.Data, data)
}

// CompleteStep records a completion and advances the current step along flow.
func (s *RegistrationSession) CompleteStep(flow StepFlow, step Step, at time.Time) {
	if s.CompletedSteps == nil {
		s.CompletedSteps = make(map[Step]time.Time)
	}
	s.CompletedSteps[step] = at
	s.CurrentStep = flow.Advance(s.CurrentStep, s.Completed())
}

// Completed returns the completion set in the form StepFlow expects.
func (s *RegistrationSession) Completed() map[Step]bool {
	out := make(map[Step]bool, len(s.CompletedSteps))
	for step := range s.CompletedSteps {
		out[step] = true
	}
	return out
}

func (s *RegistrationSession) Clone() *RegistrationSession {
	cp := *s
	cp.Data = maps.Clone(s.Data)
	cp.CompletedSteps = maps.Clone(s.CompletedSteps)
	return &cp
}
