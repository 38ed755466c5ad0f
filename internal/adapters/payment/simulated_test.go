package payment

import (
	"Onboarding/internal/core/ports"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedGateway_Charge(t *testing.T) {
	nopLogger := zerolog.Nop()
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	gw := NewSimulatedGateway(func() time.Time { return fixed }, &nopLogger)

	base := ports.ChargeRequest{
		MerchantID: uuid.New(),
		PlanID:     uuid.New(),
		Amount:     9900,
		Currency:   "SAR",
		Method:     "card",
	}

	testCases := []struct {
		name     string
		mutate   func(r *ports.ChargeRequest)
		approved bool
	}{
		{name: "approved", mutate: func(r *ports.ChargeRequest) {}, approved: true},
		{name: "missing method", mutate: func(r *ports.ChargeRequest) { r.Method = "  " }},
		{name: "zero amount", mutate: func(r *ports.ChargeRequest) { r.Amount = 0 }},
		{name: "negative amount", mutate: func(r *ports.ChargeRequest) { r.Amount = -1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)

			res, err := gw.Charge(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tc.approved, res.Approved)
			assert.Equal(t, fixed, res.ProcessedAt)
			if tc.approved {
				assert.True(t, strings.HasPrefix(res.TransactionID, "sim_"))
			} else {
				assert.Empty(t, res.TransactionID)
			}
		})
	}
}

func TestSimulatedGateway_CancelledContext(t *testing.T) {
	nopLogger := zerolog.Nop()
	gw := NewSimulatedGateway(nil, &nopLogger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Charge(ctx, ports.ChargeRequest{Amount: 1, Method: "card"})
	assert.ErrorIs(t, err, context.Canceled)
}
