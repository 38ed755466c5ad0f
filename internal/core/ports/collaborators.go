package ports

import (
	"Onboarding/internal/core/domain"
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// SMSSender delivers text messages. A failure must be reported, never swallowed.
type SMSSender interface {
	SendText(ctx context.Context, phone, message string) error
}

// Upload is a file submitted with a registration step.
type Upload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// FileStorage stores uploaded files and returns their storage path.
type FileStorage interface {
	Store(ctx context.Context, upload Upload, dir string) (string, error)
	Delete(ctx context.Context, path string) error
}

// TokenIssuer creates and validates bearer tokens for verified accounts.
type TokenIssuer interface {
	Issue(ctx context.Context, principal domain.Principal) (*domain.AuthToken, error)
	Parse(ctx context.Context, token string) (*domain.Principal, error)
}

type ChargeRequest struct {
	MerchantID uuid.UUID
	PlanID     uuid.UUID
	Amount     int64
	Currency   string
	Method     string
	Reference  string
}

type ChargeResult struct {
	TransactionID string
	Approved      bool
	ProcessedAt   time.Time
}

// PaymentGateway charges a merchant for a subscription plan.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// Clock returns the current time. Services take one so tests can move time.
type Clock func() time.Time

type principalKey struct{}

// WithPrincipal attaches the authenticated caller to ctx.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}
