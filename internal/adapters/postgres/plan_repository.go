package postgres

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type planRepository struct {
	q   querier
	log zerolog.Logger
}

var _ ports.PlanRepository = (*planRepository)(nil)

const planQueryCols = `id, name, price, currency, period, is_active, created_at`

func (r *planRepository) Create(ctx context.Context, p *domain.SubscriptionPlan) error {
	name, err := marshalJSON(p.Name)
	if err != nil {
		return err
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = r.q.Exec(ctx,
		`INSERT INTO subscription_plans (`+planQueryCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, name, p.Price, p.Currency, p.Period, p.IsActive, createdAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("plan_id", p.ID.String()).Msg("Failed to insert subscription plan")
	}
	return err
}

func scanPlan(row pgx.Row) (*domain.SubscriptionPlan, error) {
	var p domain.SubscriptionPlan
	var name []byte
	if err := row.Scan(&p.ID, &name, &p.Price, &p.Currency, &p.Period, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.Name, err = unmarshalJSON[string](name); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error) {
	p, err := scanPlan(r.q.QueryRow(ctx, `SELECT `+planQueryCols+` FROM subscription_plans WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Str("plan_id", id.String()).Msg("Failed to load subscription plan")
		return nil, err
	}
	return p, nil
}

// ListActive returns active plans, cheapest first.
func (r *planRepository) ListActive(ctx context.Context) ([]*domain.SubscriptionPlan, error) {
	rows, err := r.q.Query(ctx, `SELECT `+planQueryCols+` FROM subscription_plans WHERE is_active ORDER BY price, created_at`)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list subscription plans")
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
