package domain

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// VerificationCode is a pending one-time code. Storage keeps at most one row
// per (PhoneNumber, ActorKind); issuing a new code replaces the old one.
type VerificationCode struct {
	ID          uuid.UUID
	PhoneNumber string
	ActorKind   ActorKind
	Purpose     Purpose
	CodeHash    string         // hex SHA-256 of the code, never the code itself
	Payload     map[string]any // registration data for the single-shot flow
	Attempts    int
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// IsExpired reports whether the code is no longer valid at now.
func (c *VerificationCode) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

func (c *VerificationCode) HasPayload() bool {
	return len(c.Payload) > 0
}

// Clone returns a copy whose payload map can be mutated independently.
func (c *VerificationCode) Clone() *VerificationCode {
	cp := *c
	cp.Payload = maps.Clone(c.Payload)
	return &cp
}
