package ports

import (
	"Onboarding/internal/core/domain"
	"context"
	"time"

	"github.com/google/uuid"
)

// VerificationCodeRepository persists pending one-time codes.
// Implementations return (nil, nil) when a row is not found.
type VerificationCodeRepository interface {
	// Upsert stores code, replacing any existing row for the same
	// (phone number, actor kind) pair.
	Upsert(ctx context.Context, code *domain.VerificationCode) error

	// GetForUpdate loads the row for (phone, kind) and locks it until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, phone string, kind domain.ActorKind) (*domain.VerificationCode, error)

	Get(ctx context.Context, phone string, kind domain.ActorKind) (*domain.VerificationCode, error)

	// IncrementAttempts bumps the failed-attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// CountLive counts non-expired rows for (phone, kind).
	CountLive(ctx context.Context, phone string, kind domain.ActorKind, now time.Time) (int, error)

	// DeleteExpired removes every row whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionRepository persists registration sessions for the session-keyed flow.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.RegistrationSession) error
	Get(ctx context.Context, id string) (*domain.RegistrationSession, error)
	GetForUpdate(ctx context.Context, id string) (*domain.RegistrationSession, error)
	Update(ctx context.Context, s *domain.RegistrationSession) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
