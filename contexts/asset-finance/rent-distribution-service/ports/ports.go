package ports

import (
	"context"
	"time"

	"rentshare/contexts/asset-finance/rent-distribution-service/domain/entities"
	contractsv1 "rentshare/contracts/gen/events/v1"
)

// DistributionLog is the append-only deposit record store.
type DistributionLog interface {
	AppendRecord(ctx context.Context, record entities.DistributionRecord) error
	GetRecord(ctx context.Context, index int64) (entities.DistributionRecord, error)
	ListRecordsAfter(ctx context.Context, checkpoint int64) ([]entities.DistributionRecord, error)
	RecordCount(ctx context.Context) (int64, error)
}

// HolderLedger stores per-holder accrual state. GetHolderState returns
// a zero-valued state for holders never seen before; entries are never
// deleted.
type HolderLedger interface {
	GetHolderState(ctx context.Context, holderID string) (entities.HolderAccrualState, error)
	PutHolderState(ctx context.Context, state entities.HolderAccrualState) error
}

type StatsStore interface {
	GetStats(ctx context.Context) (entities.AccrualStats, error)
	PutStats(ctx context.Context, stats entities.AccrualStats) error
}

// UnitLedger is the external fungible-unit ledger collaborator. The
// registry only ever reads it; balance mutations happen on the ledger
// side, which is contractually required to invoke the registry's
// pre-transfer checkpoint hook first. SnapshotSupply runs fn while the
// ledger's mutation lock is held, so the supply fn observes cannot
// change before fn returns; deposits record their supply snapshot
// inside it so no mint or transfer can commit between the snapshot and
// the record append. fn must not call back into ledger mutations.
type UnitLedger interface {
	BalanceOf(ctx context.Context, holderID string) (int64, error)
	TotalSupply(ctx context.Context) (int64, error)
	SnapshotSupply(ctx context.Context, fn func(supply int64) error) error
}

// UnitOfWork runs fn atomically: either every store write issued
// through the fn context commits, or none do.
type UnitOfWork interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CustodyAccount is the currency actually held by the registry.
// Credit is only reachable through the deposit path; PayOut is the
// single external side effect of a withdrawal.
type CustodyAccount interface {
	Balance(ctx context.Context) (int64, error)
	Credit(ctx context.Context, amount int64) error
	PayOut(ctx context.Context, holderID string, amount int64) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
