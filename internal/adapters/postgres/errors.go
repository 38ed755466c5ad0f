package postgres

import (
	"Onboarding/internal/core/domain"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// constraint names from migrations/000001_init.up.sql
var uniqueConstraints = map[string]error{
	"merchants_phone_number_key": domain.ErrDuplicatePhone,
	"merchants_email_key":        domain.ErrDuplicateEmail,
	"customers_phone_number_key": domain.ErrDuplicatePhone,
	"customers_email_key":        domain.ErrDuplicateEmail,
}

// mapUniqueViolation turns a unique-index violation into the matching
// domain error and leaves every other error untouched.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	if mapped, ok := uniqueConstraints[pgErr.ConstraintName]; ok {
		return mapped
	}
	return err
}

// marshalJSON encodes v for a JSONB column. Nil maps become SQL NULL.
func marshalJSON[T any](v map[string]T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return b, nil
}

func unmarshalJSON[T any](b []byte) (map[string]T, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var out map[string]T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode json column: %w", err)
	}
	return out, nil
}
