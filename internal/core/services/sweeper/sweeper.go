package sweeper

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper removes expired verification codes and registration sessions.
// Every read path already treats expired rows as absent, so sweeping only
// keeps the tables small.
type Sweeper struct {
	tx  ports.TxManager
	now ports.Clock
	log zerolog.Logger
}

func New(tx ports.TxManager, clock ports.Clock, baseLogger *zerolog.Logger) *Sweeper {
	if clock == nil {
		clock = time.Now
	}
	return &Sweeper{
		tx:  tx,
		now: clock,
		log: baseLogger.With().Str("component", "sweeper").Logger(),
	}
}

// Result counts the rows removed by one sweep.
type Result struct {
	Codes    int64
	Sessions int64
}

// SweepOnce deletes everything that expired before now in one transaction.
func (s *Sweeper) SweepOnce(ctx context.Context) (Result, error) {
	var res Result
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r ports.Repositories) error {
		now := s.now()
		var err error
		if res.Codes, err = r.Codes.DeleteExpired(ctx, now); err != nil {
			return domain.Internal("failed to delete expired codes", err)
		}
		if res.Sessions, err = r.Sessions.DeleteExpired(ctx, now); err != nil {
			return domain.Internal("failed to delete expired sessions", err)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// disables sweeping and Run returns at once.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.log.Info().Msg("Sweeper disabled")
		return
	}
	s.log.Info().Dur("interval", interval).Msg("Sweeper started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Sweeper stopped")
			return
		case <-ticker.C:
			res, err := s.SweepOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				s.log.Error().Err(err).Msg("Failed to sweep expired rows")
				continue
			}
			if res.Codes > 0 || res.Sessions > 0 {
				s.log.Info().Int64("codes", res.Codes).Int64("sessions", res.Sessions).Msg("Expired rows swept")
			}
		}
	}
}
