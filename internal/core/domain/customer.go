package domain

import (
	"time"

	"github.com/google/uuid"
)

type CustomerStatus string

const (
	CustomerActive    CustomerStatus = "active"
	CustomerInactive  CustomerStatus = "inactive"
	CustomerSuspended CustomerStatus = "suspended"
	CustomerBanned    CustomerStatus = "banned"
)

// Customer is a permanent customer account. It is only created after the
// phone number has been verified.
type Customer struct {
	ID              uuid.UUID
	Name            TranslatedText
	PhoneNumber     string
	Email           *string
	IsPhoneVerified bool
	PhoneVerifiedAt *time.Time
	IsEmailVerified bool

	Gender      string
	DateOfBirth *time.Time
	AvatarPath  string
	City        string

	Status        CustomerStatus
	LoyaltyPoints int
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (c *Customer) CanLogin() bool {
	return c.Status == CustomerActive
}

func (c *Customer) Clone() *Customer {
	cp := *c
	cp.Name = c.Name.Clone()
	return &cp
}
