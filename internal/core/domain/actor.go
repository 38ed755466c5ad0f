package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ActorKind is the type of account flowing through registration.
type ActorKind string

const (
	ActorCustomer ActorKind = "customer"
	ActorMerchant ActorKind = "merchant"
)

// ActorKinds lists every supported actor kind.
var ActorKinds = []ActorKind{ActorCustomer, ActorMerchant}

// Valid reports whether k is a known actor kind.
func (k ActorKind) Valid() bool {
	return k == ActorCustomer || k == ActorMerchant
}

// ParseActorKind converts user input into an ActorKind.
func ParseActorKind(s string) (ActorKind, error) {
	k := ActorKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", FieldError(KindInvalidInput, fmt.Sprintf("unknown actor kind %q", s), "actor_kind", "must be customer or merchant")
	}
	return k, nil
}

// Purpose scopes a verification code to the flow that requested it.
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeLogin        Purpose = "login"
)

// Purposes lists every supported code purpose.
var Purposes = []Purpose{PurposeRegistration, PurposeLogin}

func (p Purpose) Valid() bool {
	return p == PurposeRegistration || p == PurposeLogin
}

// Principal identifies an authenticated account.
type Principal struct {
	AccountID uuid.UUID
	Kind      ActorKind
}
