package otp

import (
	"Onboarding/internal/core/domain"
	"time"
)

const (
	MinCodeLength     = 4
	MaxCodeLength     = 6
	DefaultCodeLength = 4

	DefaultRegistrationTTL = 10 * time.Minute
	DefaultLoginTTL        = 5 * time.Minute
	DefaultMaxAttempts     = 3
	DefaultResendDelay     = 60 * time.Second
)

// Policy is the code shape for one (actor kind, purpose) pair.
type Policy struct {
	Length int
	TTL    time.Duration
}

type policyKey struct {
	kind    domain.ActorKind
	purpose domain.Purpose
}

// Config holds the OTP settings.
type Config struct {
	policies map[policyKey]Policy

	// LeadingZeros allows codes such as "0481". When false the first digit
	// is never zero.
	LeadingZeros bool

	// MaxAttempts is the number of wrong submissions that burns a code.
	// Zero disables the limit.
	MaxAttempts int

	ResendDelay time.Duration

	// ReturnCodeToClient exposes the code in Issued.Code. Development only;
	// config loading refuses it in production.
	ReturnCodeToClient bool

	// Phones produces the (phone, kind) keys. Registration flows normalize
	// through the same instance via Service.NormalizePhone.
	Phones domain.PhoneNormalizer
}

// DefaultConfig returns the documented defaults for every kind and purpose.
func DefaultConfig() Config {
	cfg := Config{
		policies:     make(map[policyKey]Policy),
		LeadingZeros: true,
		MaxAttempts:  DefaultMaxAttempts,
		ResendDelay:  DefaultResendDelay,
	}
	for _, k := range domain.ActorKinds {
		cfg.SetPolicy(k, domain.PurposeRegistration, Policy{Length: DefaultCodeLength, TTL: DefaultRegistrationTTL})
		cfg.SetPolicy(k, domain.PurposeLogin, Policy{Length: DefaultCodeLength, TTL: DefaultLoginTTL})
	}
	return cfg
}

// SetPolicy overrides the policy for (kind, purpose). Out of range lengths
// are clamped to 4..6.
func (c *Config) SetPolicy(kind domain.ActorKind, purpose domain.Purpose, p Policy) {
	if c.policies == nil {
		c.policies = make(map[policyKey]Policy)
	}
	p.Length = min(max(p.Length, MinCodeLength), MaxCodeLength)
	if p.TTL <= 0 {
		p.TTL = defaultTTL(purpose)
	}
	c.policies[policyKey{kind, purpose}] = p
}

// PolicyFor returns the policy for (kind, purpose), or the defaults.
func (c Config) PolicyFor(kind domain.ActorKind, purpose domain.Purpose) Policy {
	if p, ok := c.policies[policyKey{kind, purpose}]; ok {
		return p
	}
	return Policy{Length: DefaultCodeLength, TTL: defaultTTL(purpose)}
}

func defaultTTL(purpose domain.Purpose) time.Duration {
	if purpose == domain.PurposeLogin {
		return DefaultLoginTTL
	}
	return DefaultRegistrationTTL
}
