package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlanPeriod is the billing period of a subscription plan.
type PlanPeriod string

const (
	PeriodMonthly  PlanPeriod = "monthly"
	PeriodHalfYear PlanPeriod = "half_year"
	PeriodAnnual   PlanPeriod = "annual"
)

// EndDate returns the subscription end for a subscription starting at start.
func (p PlanPeriod) EndDate(start time.Time) time.Time {
	switch p {
	case PeriodHalfYear:
		return start.AddDate(0, 6, 0)
	case PeriodAnnual:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

type SubscriptionPlan struct {
	ID        uuid.UUID
	Name      TranslatedText
	Price     int64 // minor currency units
	Currency  string
	Period    PlanPeriod
	IsActive  bool
	CreatedAt time.Time
}

func (p *SubscriptionPlan) IsFree() bool {
	return p.Price == 0
}

// AuthToken is a bearer token handed out after a successful verification.
type AuthToken struct {
	Value     string
	ExpiresAt time.Time
}
