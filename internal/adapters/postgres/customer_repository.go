package postgres

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type customerRepository struct {
	q   querier
	log zerolog.Logger
}

var _ ports.CustomerRepository = (*customerRepository)(nil)

const customerQueryCols = `
	id, name, phone_number, email, is_phone_verified, phone_verified_at, is_email_verified,
	gender, date_of_birth, avatar_path, city, status, loyalty_points, last_login_at,
	created_at, updated_at
`

func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	name, err := marshalJSON(c.Name)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO customers (` + customerQueryCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.q.Exec(ctx, query,
		c.ID, name, c.PhoneNumber, c.Email, c.IsPhoneVerified, c.PhoneVerifiedAt, c.IsEmailVerified,
		c.Gender, c.DateOfBirth, c.AvatarPath, c.City, c.Status, c.LoyaltyPoints, c.LastLoginAt,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("customer_id", c.ID.String()).Msg("Failed to insert customer")
		return mapUniqueViolation(err)
	}
	return nil
}

func (r *customerRepository) Update(ctx context.Context, c *domain.Customer) error {
	name, err := marshalJSON(c.Name)
	if err != nil {
		return err
	}
	query := `
		UPDATE customers SET
			name = $2, phone_number = $3, email = $4, is_phone_verified = $5, phone_verified_at = $6,
			is_email_verified = $7, gender = $8, date_of_birth = $9, avatar_path = $10, city = $11,
			status = $12, loyalty_points = $13, last_login_at = $14, updated_at = $15
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query,
		c.ID, name, c.PhoneNumber, c.Email, c.IsPhoneVerified, c.PhoneVerifiedAt,
		c.IsEmailVerified, c.Gender, c.DateOfBirth, c.AvatarPath, c.City,
		c.Status, c.LoyaltyPoints, c.LastLoginAt, c.UpdatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("customer_id", c.ID.String()).Msg("Failed to update customer")
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer %s not found", c.ID)
	}
	return nil
}

func (r *customerRepository) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	var name []byte

	err := row.Scan(
		&c.ID, &name, &c.PhoneNumber, &c.Email, &c.IsPhoneVerified, &c.PhoneVerifiedAt, &c.IsEmailVerified,
		&c.Gender, &c.DateOfBirth, &c.AvatarPath, &c.City, &c.Status, &c.LoyaltyPoints, &c.LastLoginAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Msg("Failed to scan customer row")
		return nil, err
	}
	if c.Name, err = unmarshalJSON[string](name); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerQueryCols + ` FROM customers WHERE id = $1`
	return r.scanCustomer(r.q.QueryRow(ctx, query, id))
}

func (r *customerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	query := `SELECT ` + customerQueryCols + ` FROM customers WHERE phone_number = $1`
	return r.scanCustomer(r.q.QueryRow(ctx, query, phone))
}

func (r *customerRepository) ExistsByPhone(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE phone_number = $1 AND ($2::uuid IS NULL OR id <> $2))`,
		phone, excludeID,
	).Scan(&exists)
	return exists, err
}

func (r *customerRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE lower(email) = lower($1) AND ($2::uuid IS NULL OR id <> $2))`,
		email, excludeID,
	).Scan(&exists)
	return exists, err
}
