package postgres

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type codeRepository struct {
	q      querier
	secSvc ports.SecurityPort // seals the attached registration payload
	log    zerolog.Logger
}

var _ ports.VerificationCodeRepository = (*codeRepository)(nil)

const codeQueryCols = `
	id, phone_number, actor_kind, purpose, code_hash, payload, attempts, expires_at, created_at
`

// payloadAAD binds a sealed payload to its owner, so a ciphertext copied to
// another phone's row fails to open.
func payloadAAD(phone string, kind domain.ActorKind) []byte {
	return []byte(phone + "|" + string(kind))
}

func (r *codeRepository) sealPayload(code *domain.VerificationCode) ([]byte, error) {
	if len(code.Payload) == 0 {
		return nil, nil
	}
	plain, err := json.Marshal(code.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	sealed, err := r.secSvc.Encrypt(plain, payloadAAD(code.PhoneNumber, code.ActorKind))
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to encrypt registration payload")
		return nil, err
	}
	return sealed, nil
}

// Upsert replaces whatever row exists for the same phone and actor kind.
func (r *codeRepository) Upsert(ctx context.Context, code *domain.VerificationCode) error {
	sealed, err := r.sealPayload(code)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO verification_codes (` + codeQueryCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (phone_number, actor_kind) DO UPDATE SET
			id = EXCLUDED.id,
			purpose = EXCLUDED.purpose,
			code_hash = EXCLUDED.code_hash,
			payload = EXCLUDED.payload,
			attempts = EXCLUDED.attempts,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
	`
	_, err = r.q.Exec(ctx, query,
		code.ID,
		code.PhoneNumber,
		code.ActorKind,
		code.Purpose,
		code.CodeHash,
		sealed,
		code.Attempts,
		code.ExpiresAt,
		code.CreatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("actor_kind", string(code.ActorKind)).Msg("Failed to upsert verification code")
	}
	return err
}

func (r *codeRepository) scanCode(row pgx.Row) (*domain.VerificationCode, error) {
	var code domain.VerificationCode
	var sealed []byte

	err := row.Scan(
		&code.ID,
		&code.PhoneNumber,
		&code.ActorKind,
		&code.Purpose,
		&code.CodeHash,
		&sealed,
		&code.Attempts,
		&code.ExpiresAt,
		&code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Msg("Failed to scan verification code row")
		return nil, err
	}

	if len(sealed) > 0 {
		plain, err := r.secSvc.Decrypt(sealed, payloadAAD(code.PhoneNumber, code.ActorKind))
		if err != nil {
			r.log.Error().Err(err).Str("code_id", code.ID.String()).Msg("Failed to decrypt registration payload (tampered?)")
			return nil, err
		}
		if err := json.Unmarshal(plain, &code.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	return &code, nil
}

func (r *codeRepository) GetForUpdate(ctx context.Context, phone string, kind domain.ActorKind) (*domain.VerificationCode, error) {
	query := `SELECT ` + codeQueryCols + ` FROM verification_codes WHERE phone_number = $1 AND actor_kind = $2 FOR UPDATE`
	return r.scanCode(r.q.QueryRow(ctx, query, phone, kind))
}

func (r *codeRepository) Get(ctx context.Context, phone string, kind domain.ActorKind) (*domain.VerificationCode, error) {
	query := `SELECT ` + codeQueryCols + ` FROM verification_codes WHERE phone_number = $1 AND actor_kind = $2`
	return r.scanCode(r.q.QueryRow(ctx, query, phone, kind))
}

func (r *codeRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := r.q.QueryRow(ctx, `UPDATE verification_codes SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`, id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		r.log.Error().Err(err).Str("code_id", id.String()).Msg("Failed to increment attempts")
		return 0, err
	}
	return attempts, nil
}

func (r *codeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `DELETE FROM verification_codes WHERE id = $1`, id)
	if err != nil {
		r.log.Error().Err(err).Str("code_id", id.String()).Msg("Failed to delete verification code")
	}
	return err
}

func (r *codeRepository) CountLive(ctx context.Context, phone string, kind domain.ActorKind, now time.Time) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM verification_codes WHERE phone_number = $1 AND actor_kind = $2 AND expires_at > $3`,
		phone, kind, now,
	).Scan(&n)
	return n, err
}

func (r *codeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at <= $1`, now)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to delete expired verification codes")
		return 0, err
	}
	return tag.RowsAffected(), nil
}
