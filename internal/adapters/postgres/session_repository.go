package postgres

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type sessionRepository struct {
	q   querier
	log zerolog.Logger
}

var _ ports.SessionRepository = (*sessionRepository)(nil)

const sessionQueryCols = `
	id, actor_kind, phone_number, data, completed_steps, current_step, otp_verified,
	expires_at, created_at, updated_at
`

// sessionColumns encodes the JSONB columns of a session.
func sessionColumns(s *domain.RegistrationSession) (data, steps []byte, err error) {
	if data, err = marshalJSON(s.Data); err != nil {
		return nil, nil, err
	}
	if s.CompletedSteps != nil {
		if steps, err = json.Marshal(s.CompletedSteps); err != nil {
			return nil, nil, fmt.Errorf("encode completed steps: %w", err)
		}
	}
	return data, steps, nil
}

func (r *sessionRepository) Create(ctx context.Context, s *domain.RegistrationSession) error {
	data, steps, err := sessionColumns(s)
	if err != nil {
		return err
	}
	query := `INSERT INTO registration_sessions (` + sessionQueryCols + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.q.Exec(ctx, query,
		s.ID, s.ActorKind, s.PhoneNumber, data, steps, s.CurrentStep, s.OTPVerified,
		s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("session_id", s.ID).Msg("Failed to insert registration session")
	}
	return err
}

func (r *sessionRepository) scanSession(row pgx.Row) (*domain.RegistrationSession, error) {
	var s domain.RegistrationSession
	var data, steps []byte

	err := row.Scan(
		&s.ID, &s.ActorKind, &s.PhoneNumber, &data, &steps, &s.CurrentStep, &s.OTPVerified,
		&s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Msg("Failed to scan registration session row")
		return nil, err
	}

	if s.Data, err = unmarshalJSON[any](data); err != nil {
		return nil, err
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &s.CompletedSteps); err != nil {
			return nil, fmt.Errorf("decode completed steps: %w", err)
		}
	}
	return &s, nil
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.RegistrationSession, error) {
	query := `SELECT ` + sessionQueryCols + ` FROM registration_sessions WHERE id = $1`
	return r.scanSession(r.q.QueryRow(ctx, query, id))
}

func (r *sessionRepository) GetForUpdate(ctx context.Context, id string) (*domain.RegistrationSession, error) {
	query := `SELECT ` + sessionQueryCols + ` FROM registration_sessions WHERE id = $1 FOR UPDATE`
	return r.scanSession(r.q.QueryRow(ctx, query, id))
}

func (r *sessionRepository) Update(ctx context.Context, s *domain.RegistrationSession) error {
	data, steps, err := sessionColumns(s)
	if err != nil {
		return err
	}
	query := `
		UPDATE registration_sessions SET
			phone_number = $2, data = $3, completed_steps = $4, current_step = $5,
			otp_verified = $6, expires_at = $7, updated_at = $8
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query,
		s.ID, s.PhoneNumber, data, steps, s.CurrentStep, s.OTPVerified, s.ExpiresAt, s.UpdatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("session_id", s.ID).Msg("Failed to update registration session")
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("registration session %s not found", s.ID)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM registration_sessions WHERE id = $1`, id)
	if err != nil {
		r.log.Error().Err(err).Str("session_id", id).Msg("Failed to delete registration session")
	}
	return err
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM registration_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to delete expired registration sessions")
		return 0, err
	}
	return tag.RowsAffected(), nil
}
