package ports

import (
	"context"
	"time"
)

// Repository stores balances, supply, and allowances. Holders absent
// from the store have a zero balance.
type Repository interface {
	GetBalance(ctx context.Context, holderID string) (int64, error)
	PutBalance(ctx context.Context, holderID string, units int64) error
	GetTotalSupply(ctx context.Context) (int64, error)
	PutTotalSupply(ctx context.Context, units int64) error
	GetAllowance(ctx context.Context, ownerID string, spenderID string) (int64, error)
	PutAllowance(ctx context.Context, ownerID string, spenderID string, units int64) error
}

// UnitOfWork runs fn atomically: either every repository write issued
// through the fn context commits, or none do.
type UnitOfWork interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransferObserver is invoked synchronously before any balance
// mutation commits, with the parties' balances still at their
// pre-mutation values. Mints pass an empty fromID. An error aborts the
// mutation.
type TransferObserver interface {
	OnBeforeTransfer(ctx context.Context, fromID string, toID string) error
}

type Clock interface {
	Now() time.Time
}
