package registration

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"Onboarding/internal/core/services/otp"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Deps are the collaborators shared by every registration flow.
type Deps struct {
	Tx       ports.TxManager
	OTP      *otp.Service
	Tokens   ports.TokenIssuer
	Storage  ports.FileStorage
	Payments ports.PaymentGateway
	Bus      ports.EventBus
	Clock    ports.Clock
}

// normalizePhone keys accounts and sessions exactly like the OTP rows.
func (d Deps) normalizePhone(raw string) (string, error) {
	return d.OTP.NormalizePhone(raw)
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// withinTxKeepingRejections runs fn in a transaction that still commits when
// fn fails with a code rejection or an expired session. The failure is
// returned after the commit so attempt counters and lazy deletions persist.
// fn must not write anything else before such a failure.
func (d Deps) withinTxKeepingRejections(ctx context.Context, fn ports.TxFunc) error {
	var rejection error
	err := d.Tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		err := fn(ctx, r)
		if otp.IsRejection(err) || domain.IsKind(err, domain.KindSessionNotFound) {
			rejection = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return rejection
}

// publish emits a lifecycle event. Delivery problems never fail the
// registration that already committed.
func (d Deps) publish(ctx context.Context, log zerolog.Logger, topic string, ev ports.RegistrationEvent) {
	if d.Bus == nil {
		return
	}
	if err := d.Bus.Publish(ctx, topic, ev); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Failed to publish registration event")
	}
}

func (d Deps) issueToken(ctx context.Context, kind domain.ActorKind, id uuid.UUID) (*domain.AuthToken, error) {
	token, err := d.Tokens.Issue(ctx, domain.Principal{AccountID: id, Kind: kind})
	if err != nil {
		return nil, domain.Internal("failed to issue auth token", err)
	}
	return token, nil
}

// checkOwnership rejects a mutation when the caller is authenticated as a
// different account. Unauthenticated calls are left to the caller's policy.
func checkOwnership(ctx context.Context, kind domain.ActorKind, id uuid.UUID) error {
	p, ok := ports.PrincipalFrom(ctx)
	if !ok {
		return nil
	}
	if p.Kind != kind || p.AccountID != id {
		return domain.ErrOwnershipMismatch
	}
	return nil
}

func validKind(kind domain.ActorKind) error {
	if !kind.Valid() {
		return domain.FieldError(domain.KindInvalidInput, "invalid actor kind", "actor_kind", "must be customer or merchant")
	}
	return nil
}
