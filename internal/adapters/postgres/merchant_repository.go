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

type merchantRepository struct {
	q   querier
	log zerolog.Logger
}

var _ ports.MerchantRepository = (*merchantRepository)(nil)

const merchantQueryCols = `
	id, name, phone_number, email, is_phone_verified, phone_verified_at,
	subscription_plan_id, subscription_status, subscription_start_date, subscription_end_date,
	subscription_amount, is_subscription_paid,
	business_name, business_type, tax_number, commercial_register, business_documents,
	description, logo_path, cover_path, website,
	business_address, city, latitude, longitude,
	status, registration_step, is_verified, is_approved, rejection_reason,
	completed_at, last_login_at, created_at, updated_at
`

// merchantArgs lists the column values in merchantQueryCols order.
func merchantArgs(m *domain.Merchant) ([]any, error) {
	name, err := marshalJSON(m.Name)
	if err != nil {
		return nil, err
	}
	businessName, err := marshalJSON(m.BusinessName)
	if err != nil {
		return nil, err
	}
	description, err := marshalJSON(m.Description)
	if err != nil {
		return nil, err
	}
	address, err := marshalJSON(m.BusinessAddress)
	if err != nil {
		return nil, err
	}
	docs := m.BusinessDocuments
	if docs == nil {
		docs = []string{}
	}
	return []any{
		m.ID, name, m.PhoneNumber, m.Email, m.IsPhoneVerified, m.PhoneVerifiedAt,
		m.SubscriptionPlanID, m.SubscriptionStatus, m.SubscriptionStartDate, m.SubscriptionEndDate,
		m.SubscriptionAmount, m.IsSubscriptionPaid,
		businessName, m.BusinessType, m.TaxNumber, m.CommercialRegister, docs,
		description, m.LogoPath, m.CoverPath, m.Website,
		address, m.City, m.Latitude, m.Longitude,
		m.Status, m.RegistrationStep, m.IsVerified, m.IsApproved, m.RejectionReason,
		m.CompletedAt, m.LastLoginAt, m.CreatedAt, m.UpdatedAt,
	}, nil
}

func (r *merchantRepository) Create(ctx context.Context, m *domain.Merchant) error {
	args, err := merchantArgs(m)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO merchants (` + merchantQueryCols + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34
		)
	`
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		r.log.Error().Err(err).Str("merchant_id", m.ID.String()).Msg("Failed to insert merchant")
		return mapUniqueViolation(err)
	}
	return nil
}

// Update overwrites every mutable column. id and created_at never change.
func (r *merchantRepository) Update(ctx context.Context, m *domain.Merchant) error {
	args, err := merchantArgs(m)
	if err != nil {
		return err
	}
	query := `
		UPDATE merchants SET
			name = $2, phone_number = $3, email = $4, is_phone_verified = $5, phone_verified_at = $6,
			subscription_plan_id = $7, subscription_status = $8, subscription_start_date = $9,
			subscription_end_date = $10, subscription_amount = $11, is_subscription_paid = $12,
			business_name = $13, business_type = $14, tax_number = $15, commercial_register = $16,
			business_documents = $17, description = $18, logo_path = $19, cover_path = $20, website = $21,
			business_address = $22, city = $23, latitude = $24, longitude = $25,
			status = $26, registration_step = $27, is_verified = $28, is_approved = $29,
			rejection_reason = $30, completed_at = $31, last_login_at = $32, updated_at = $33
		WHERE id = $1
	`
	// drop created_at
	args = append(args[:32], args[33])
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error().Err(err).Str("merchant_id", m.ID.String()).Msg("Failed to update merchant")
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("merchant %s not found", m.ID)
	}
	return nil
}

func (r *merchantRepository) scanMerchant(row pgx.Row) (*domain.Merchant, error) {
	var m domain.Merchant
	var name, businessName, description, address []byte

	err := row.Scan(
		&m.ID, &name, &m.PhoneNumber, &m.Email, &m.IsPhoneVerified, &m.PhoneVerifiedAt,
		&m.SubscriptionPlanID, &m.SubscriptionStatus, &m.SubscriptionStartDate, &m.SubscriptionEndDate,
		&m.SubscriptionAmount, &m.IsSubscriptionPaid,
		&businessName, &m.BusinessType, &m.TaxNumber, &m.CommercialRegister, &m.BusinessDocuments,
		&description, &m.LogoPath, &m.CoverPath, &m.Website,
		&address, &m.City, &m.Latitude, &m.Longitude,
		&m.Status, &m.RegistrationStep, &m.IsVerified, &m.IsApproved, &m.RejectionReason,
		&m.CompletedAt, &m.LastLoginAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Msg("Failed to scan merchant row")
		return nil, err
	}

	for _, col := range []struct {
		raw []byte
		dst *domain.TranslatedText
	}{
		{name, &m.Name},
		{businessName, &m.BusinessName},
		{description, &m.Description},
		{address, &m.BusinessAddress},
	} {
		text, err := unmarshalJSON[string](col.raw)
		if err != nil {
			r.log.Error().Err(err).Str("merchant_id", m.ID.String()).Msg("Failed to decode translated column")
			return nil, err
		}
		*col.dst = text
	}
	return &m, nil
}

func (r *merchantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT ` + merchantQueryCols + ` FROM merchants WHERE id = $1`
	return r.scanMerchant(r.q.QueryRow(ctx, query, id))
}

func (r *merchantRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT ` + merchantQueryCols + ` FROM merchants WHERE id = $1 FOR UPDATE`
	return r.scanMerchant(r.q.QueryRow(ctx, query, id))
}

func (r *merchantRepository) GetByPhone(ctx context.Context, phone string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantQueryCols + ` FROM merchants WHERE phone_number = $1`
	return r.scanMerchant(r.q.QueryRow(ctx, query, phone))
}

func (r *merchantRepository) ExistsByPhone(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM merchants WHERE phone_number = $1 AND ($2::uuid IS NULL OR id <> $2))`,
		phone, excludeID,
	).Scan(&exists)
	return exists, err
}

func (r *merchantRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM merchants WHERE lower(email) = lower($1) AND ($2::uuid IS NULL OR id <> $2))`,
		email, excludeID,
	).Scan(&exists)
	return exists, err
}

// UpsertStep keeps the original id and created_at of an existing record.
func (r *merchantRepository) UpsertStep(ctx context.Context, step *domain.MerchantRegistrationStep) error {
	data, err := marshalJSON(step.Data)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO merchant_registration_steps (
			id, merchant_id, step, is_completed, completed_at, data, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (merchant_id, step) DO UPDATE SET
			is_completed = EXCLUDED.is_completed,
			completed_at = EXCLUDED.completed_at,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.q.Exec(ctx, query,
		step.ID, step.MerchantID, step.Step, step.IsCompleted, step.CompletedAt, data, step.CreatedAt, step.UpdatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("merchant_id", step.MerchantID.String()).Str("step", string(step.Step)).Msg("Failed to upsert registration step")
	}
	return err
}

// ListSteps returns the merchant's step records in wizard order.
func (r *merchantRepository) ListSteps(ctx context.Context, merchantID uuid.UUID) ([]*domain.MerchantRegistrationStep, error) {
	query := `
		SELECT id, merchant_id, step, is_completed, completed_at, data, created_at, updated_at
		FROM merchant_registration_steps
		WHERE merchant_id = $1
		ORDER BY array_position($2::text[], step), created_at
	`
	order := make([]string, 0, domain.MerchantFlow.Len())
	for _, s := range domain.MerchantFlow.Steps() {
		order = append(order, string(s))
	}

	rows, err := r.q.Query(ctx, query, merchantID, order)
	if err != nil {
		r.log.Error().Err(err).Str("merchant_id", merchantID.String()).Msg("Failed to list registration steps")
		return nil, err
	}
	defer rows.Close()

	var out []*domain.MerchantRegistrationStep
	for rows.Next() {
		var s domain.MerchantRegistrationStep
		var data []byte
		if err := rows.Scan(&s.ID, &s.MerchantID, &s.Step, &s.IsCompleted, &s.CompletedAt, &data, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if s.Data, err = unmarshalJSON[any](data); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
