package ports

import "context"

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Codes     VerificationCodeRepository
	Sessions  SessionRepository
	Merchants MerchantRepository
	Customers CustomerRepository
	Plans     PlanRepository
}

// TxFunc runs inside a transaction with transaction-bound repositories.
type TxFunc func(ctx context.Context, repos Repositories) error

// TxManager runs units of work atomically.
type TxManager interface {
	// WithinTx commits when fn returns nil and rolls back otherwise. A panic
	// inside fn is rolled back and returned as an internal error.
	WithinTx(ctx context.Context, fn TxFunc) error

	// Repositories returns repositories that run outside any transaction.
	Repositories() Repositories
}
