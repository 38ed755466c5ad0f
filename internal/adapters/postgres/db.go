package postgres

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// querier is satisfied by both the pool and a transaction, so every
// repository works the same way inside and outside WithinTx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB holds the connection pool.
type DB struct {
	pool   *pgxpool.Pool
	secSvc ports.SecurityPort
	log    zerolog.Logger
}

var _ ports.TxManager = (*DB)(nil)

// NewDB creates and tests a new database connection. secSvc encrypts the
// registration payload attached to verification codes.
func NewDB(ctx context.Context, connString string, secSvc ports.SecurityPort, baseLogger *zerolog.Logger) (*DB, error) {
	log := baseLogger.With().Str("component", "postgres").Logger()

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse DB connection string")
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create connection pool")
		return nil, err
	}

	// Ping the database to ensure a valid connection
	if err := pool.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to ping database")
		pool.Close()
		return nil, err
	}

	log.Info().Msg("Database connection pool established")
	return &DB{pool: pool, secSvc: secSvc, log: log}, nil
}

// Close gracefully closes the connection pool.
func (db *DB) Close() {
	db.log.Info().Msg("Closing database connection pool")
	db.pool.Close()
}

// Repositories returns repositories bound to the pool.
func (db *DB) Repositories() ports.Repositories {
	return db.reposFor(db.pool)
}

// WithinTx runs fn in a transaction. The transaction commits only when fn
// returns nil; a panic rolls back and is returned as an internal error.
func (db *DB) WithinTx(ctx context.Context, fn ports.TxFunc) (err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		db.log.Error().Err(err).Msg("Failed to begin transaction")
		return domain.Internal("failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			db.log.Error().Interface("panic", p).Msg("Transaction panicked, rolled back")
			err = domain.Internal("transaction aborted", fmt.Errorf("panic: %v", p))
			return
		}
		if err != nil {
			if rbErr := tx.Rollback(context.Background()); rbErr != nil {
				db.log.Warn().Err(rbErr).Msg("Failed to roll back transaction")
			}
		}
	}()

	if err = fn(ctx, db.reposFor(tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		db.log.Error().Err(err).Msg("Failed to commit transaction")
		return domain.Internal("failed to commit transaction", err)
	}
	return nil
}

func (db *DB) reposFor(q querier) ports.Repositories {
	return ports.Repositories{
		Codes:     &codeRepository{q: q, secSvc: db.secSvc, log: db.log.With().Str("repo", "verification_codes").Logger()},
		Sessions:  &sessionRepository{q: q, log: db.log.With().Str("repo", "registration_sessions").Logger()},
		Merchants: &merchantRepository{q: q, log: db.log.With().Str("repo", "merchants").Logger()},
		Customers: &customerRepository{q: q, log: db.log.With().Str("repo", "customers").Logger()},
		Plans:     &planRepository{q: q, log: db.log.With().Str("repo", "subscription_plans").Logger()},
	}
}
