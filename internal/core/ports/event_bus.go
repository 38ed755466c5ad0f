package ports

import (
	"Onboarding/internal/core/domain"
	"context"
	"time"

	"github.com/google/uuid"
)

// Topics published by the registration services.
const (
	TopicMerchantRegistered = "merchant.registered"
	TopicCustomerRegistered = "customer.registered"
)

// Event is a generic wrapper for any event payload
type Event struct {
	Topic string
	Data  interface{}
}

// RegistrationEvent is published once an account finishes registration.
type RegistrationEvent struct {
	AccountID   uuid.UUID
	Kind        domain.ActorKind
	Name        domain.TranslatedText
	PhoneNumber string
	Flow        string
	At          time.Time
}

// EventHandler is a function that can handle a specific event
type EventHandler func(ctx context.Context, event Event) error

// EventBus defines the interface for our in-process pub/sub system
type EventBus interface {
	// Publish sends an event to all subscribers of a topic
	Publish(ctx context.Context, topic string, data interface{}) error

	// Subscribe registers a handler for a specific topic
	Subscribe(topic string, handler EventHandler)
}
