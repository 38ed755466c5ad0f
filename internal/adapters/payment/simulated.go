package payment

import (
	"Onboarding/internal/core/ports"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// simulatedGateway approves every well-formed charge. A request without a
// method or with a non-positive amount is declined, not failed.
type simulatedGateway struct {
	now func() time.Time
	log zerolog.Logger
}

var _ ports.PaymentGateway = (*simulatedGateway)(nil)

func NewSimulatedGateway(clock ports.Clock, baseLogger *zerolog.Logger) ports.PaymentGateway {
	if clock == nil {
		clock = time.Now
	}
	return &simulatedGateway{
		now: clock,
		log: baseLogger.With().Str("component", "simulated_payment").Logger(),
	}
}

func (g *simulatedGateway) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := g.log.With().
		Str("merchant_id", req.MerchantID.String()).
		Str("plan_id", req.PlanID.String()).
		Int64("amount", req.Amount).
		Str("currency", req.Currency).
		Logger()

	result := &ports.ChargeResult{ProcessedAt: g.now().UTC()}
	if strings.TrimSpace(req.Method) == "" || req.Amount <= 0 {
		log.Warn().Msg("Charge declined")
		return result, nil
	}

	result.Approved = true
	result.TransactionID = "sim_" + uuid.NewString()
	log.Info().Str("transaction_id", result.TransactionID).Msg("Charge approved")
	return result, nil
}
