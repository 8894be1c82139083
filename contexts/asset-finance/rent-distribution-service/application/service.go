package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	domainerrors "rentshare/contexts/asset-finance/rent-distribution-service/domain/errors"
	"rentshare/contexts/asset-finance/rent-distribution-service/domain/entities"
	"rentshare/contexts/asset-finance/rent-distribution-service/ports"
)

// Service is the rent distribution engine. All state-changing
// operations serialize through mu, which stands in for the
// globally-ordered transaction model the accrual invariants assume.
// Deposit additionally runs under the ledger's supply snapshot, so the
// lock order is always ledger lock first, then mu; ledger balance
// reads made under mu never take the ledger lock. The custody payout
// in Withdraw runs outside the state lock; the per-holder entry guard
// keeps payout callbacks from re-entering.
type Service struct {
	Log     ports.DistributionLog
	Holders ports.HolderLedger
	Stats   ports.StatsStore
	Units   ports.UnitLedger
	Custody ports.CustodyAccount
	Outbox  ports.OutboxWriter
	Tx      ports.UnitOfWork
	Clock   ports.Clock
	IDGen   ports.IDGenerator

	DepositAuthority string
	Logger           *slog.Logger

	mu          sync.Mutex
	withdrawing map[string]struct{}
}

type HolderSummary struct {
	HolderID            string
	Holding             int64
	OwnershipShareBP    int64
	PendingWithdrawable int64
	LifetimeWithdrawn   int64
}

type GlobalSummary struct {
	TotalSupply         int64
	CumulativeDeposited int64
	TotalDistributed    int64
	TotalAvailable      int64
	DistributionCount   int64
	CustodyBalance      int64
}

// Deposit appends a distribution record for a rent inflow. The caller
// must be the configured deposit authority; amount and the current
// unit supply must both be positive. The whole append runs inside the
// ledger's supply snapshot, so no mint or transfer can commit between
// reading the supply and writing the record; the snapshot therefore
// matches the holdings the record will be divided against.
func (s *Service) Deposit(ctx context.Context, callerID string, amount int64) (entities.DistributionRecord, error) {
	callerID = strings.TrimSpace(callerID)
	if s.DepositAuthority != "" && callerID != s.DepositAuthority {
		return entities.DistributionRecord{}, domainerrors.ErrNotDepositAuthority
	}
	if amount <= 0 {
		return entities.DistributionRecord{}, domainerrors.ErrInvalidDeposit
	}

	var record entities.DistributionRecord
	err := s.Units.SnapshotSupply(ctx, func(supply int64) error {
		if supply <= 0 {
			return domainerrors.ErrInvalidDeposit
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		return s.inTransaction(ctx, func(ctx context.Context) error {
			count, err := s.Log.RecordCount(ctx)
			if err != nil {
				return err
			}
			record = entities.DistributionRecord{
				Index:          count + 1,
				Amount:         amount,
				RecordedAt:     s.now(),
				SupplySnapshot: supply,
			}
			if err := s.Log.AppendRecord(ctx, record); err != nil {
				return err
			}
			stats, err := s.Stats.GetStats(ctx)
			if err != nil {
				return err
			}
			stats.TotalAvailable += amount
			if err := s.Stats.PutStats(ctx, stats); err != nil {
				return err
			}
			if err := s.Custody.Credit(ctx, amount); err != nil {
				return err
			}
			return s.appendOutbox(ctx, "rent.deposited", record.RecordedAt, "distribution_index", formatIndex(record.Index), map[string]any{
				"distribution_index": record.Index,
				"amount":             record.Amount,
				"supply_snapshot":    record.SupplySnapshot,
				"recorded_at":        record.RecordedAt.UTC().Format(time.RFC3339),
			})
		})
	})
	if err != nil {
		return entities.DistributionRecord{}, err
	}

	ResolveLogger(s.Logger).Info("rent deposit recorded",
		"event", "rent_deposit_recorded",
		"module", "asset-finance/rent-distribution-service",
		"layer", "application",
		"distribution_index", record.Index,
		"amount", record.Amount,
		"supply_snapshot", record.SupplySnapshot,
	)
	return record, nil
}

// Pending reports the holder's withdrawable balance as if they were
// checkpointed now. It is a pure projection and mutates nothing.
func (s *Service) Pending(ctx context.Context, holderID string) (int64, error) {
	holderID = strings.TrimSpace(holderID)
	holding, err := s.Units.BalanceOf(ctx, holderID)
	if err != nil {
		return 0, err
	}
	state, err := s.Holders.GetHolderState(ctx, holderID)
	if err != nil {
		return 0, err
	}
	accrued, err := s.accruedSince(ctx, state.Checkpoint, holding)
	if err != nil {
		return 0, err
	}
	return state.Withdrawable + accrued, nil
}

// Checkpoint crystallizes the holder's entitlement over the log
// segment since their last checkpoint, using the supplied holding as
// the amount held throughout that segment, and advances the pointer to
// the log head. Callers that are about to change a holding must invoke
// this first with the pre-change balance.
func (s *Service) Checkpoint(ctx context.Context, holderID string, holding int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpointLocked(ctx, holderID, holding)
}

// OnBeforeTransfer is the pre-transfer hook the unit ledger invokes
// synchronously before mutating any balance, including mints (empty
// fromID). Both parties are checkpointed with their pre-mutation
// balances so the interval ending now is attributed to the holdings
// that existed during it.
func (s *Service) OnBeforeTransfer(ctx context.Context, fromID string, toID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, holderID := range []string{strings.TrimSpace(fromID), strings.TrimSpace(toID)} {
		if holderID == "" {
			continue
		}
		holding, err := s.Units.BalanceOf(ctx, holderID)
		if err != nil {
			return err
		}
		if err := s.checkpointLocked(ctx, holderID, holding); err != nil {
			return err
		}
	}
	return nil
}

// Withdraw checkpoints the holder, zeroes their withdrawable balance,
// and pays the currency out. State commits before the payout
// (checks-effects-interactions); a payout failure rolls the state
// back. The per-holder guard rejects re-entrant calls triggered from
// inside the payout.
func (s *Service) Withdraw(ctx context.Context, holderID string) (int64, error) {
	holderID = strings.TrimSpace(holderID)
	holding, err := s.Units.BalanceOf(ctx, holderID)
	if err != nil {
		return 0, err
	}
	if holding <= 0 {
		return 0, domainerrors.ErrNoEligibleHolding
	}

	s.mu.Lock()
	if s.withdrawing == nil {
		s.withdrawing = make(map[string]struct{})
	}
	if _, busy := s.withdrawing[holderID]; busy {
		s.mu.Unlock()
		return 0, domainerrors.ErrWithdrawalInProgress
	}
	s.withdrawing[holderID] = struct{}{}

	amount, prevState, prevStats, err := s.commitWithdrawalLocked(ctx, holderID, holding)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.withdrawing, holderID)
		s.mu.Unlock()
	}()
	if err != nil {
		return 0, err
	}

	if payErr := s.Custody.PayOut(ctx, holderID, amount); payErr != nil {
		s.mu.Lock()
		rollbackErr := s.rollbackWithdrawalLocked(ctx, prevState, prevStats)
		s.mu.Unlock()
		logger := ResolveLogger(s.Logger)
		logger.Error("rent withdrawal payout failed",
			"event", "rent_withdrawal_payout_failed",
			"module", "asset-finance/rent-distribution-service",
			"layer", "application",
			"holder_id", holderID,
			"amount", amount,
			"error", payErr.Error(),
		)
		if rollbackErr != nil {
			logger.Error("rent withdrawal rollback failed",
				"event", "rent_withdrawal_rollback_failed",
				"module", "asset-finance/rent-distribution-service",
				"layer", "application",
				"holder_id", holderID,
				"error", rollbackErr.Error(),
			)
		}
		return 0, domainerrors.ErrTransferFailed
	}

	if err := s.appendOutbox(ctx, "rent.withdrawn", s.now(), "holder_id", holderID, map[string]any{
		"holder_id": holderID,
		"amount":    amount,
	}); err != nil {
		// The payout is already delivered; losing the event beats
		// reporting a completed withdrawal as failed.
		ResolveLogger(s.Logger).Error("rent withdrawal event append failed",
			"event", "rent_withdrawal_outbox_failed",
			"module", "asset-finance/rent-distribution-service",
			"layer", "application",
			"holder_id", holderID,
			"amount", amount,
			"error", err.Error(),
		)
	}

	ResolveLogger(s.Logger).Info("rent withdrawal completed",
		"event", "rent_withdrawal_completed",
		"module", "asset-finance/rent-distribution-service",
		"layer", "application",
		"holder_id", holderID,
		"amount", amount,
	)
	return amount, nil
}

// HolderSummaryFor is the read-only per-holder projection.
func (s *Service) HolderSummaryFor(ctx context.Context, holderID string) (HolderSummary, error) {
	holderID = strings.TrimSpace(holderID)
	holding, err := s.Units.BalanceOf(ctx, holderID)
	if err != nil {
		return HolderSummary{}, err
	}
	supply, err := s.Units.TotalSupply(ctx)
	if err != nil {
		return HolderSummary{}, err
	}
	pending, err := s.Pending(ctx, holderID)
	if err != nil {
		return HolderSummary{}, err
	}
	state, err := s.Holders.GetHolderState(ctx, holderID)
	if err != nil {
		return HolderSummary{}, err
	}
	var shareBP int64
	if supply > 0 {
		shareBP = proRataShare(holding, 10000, supply)
	}
	return HolderSummary{
		HolderID:            holderID,
		Holding:             holding,
		OwnershipShareBP:    shareBP,
		PendingWithdrawable: pending,
		LifetimeWithdrawn:   state.LifetimeWithdrawn,
	}, nil
}

// GlobalSummaryNow is the read-only registry-wide projection.
func (s *Service) GlobalSummaryNow(ctx context.Context) (GlobalSummary, error) {
	supply, err := s.Units.TotalSupply(ctx)
	if err != nil {
		return GlobalSummary{}, err
	}
	stats, err := s.Stats.GetStats(ctx)
	if err != nil {
		return GlobalSummary{}, err
	}
	count, err := s.Log.RecordCount(ctx)
	if err != nil {
		return GlobalSummary{}, err
	}
	custody, err := s.Custody.Balance(ctx)
	if err != nil {
		return GlobalSummary{}, err
	}
	return GlobalSummary{
		TotalSupply:         supply,
		CumulativeDeposited: stats.TotalAvailable + stats.TotalDistributed,
		TotalDistributed:    stats.TotalDistributed,
		TotalAvailable:      stats.TotalAvailable,
		DistributionCount:   count,
		CustodyBalance:      custody,
	}, nil
}

// Record looks up one distribution record by 1-based index.
func (s *Service) Record(ctx context.Context, index int64) (entities.DistributionRecord, error) {
	if index <= 0 {
		return entities.DistributionRecord{}, domainerrors.ErrIndexOutOfRange
	}
	return s.Log.GetRecord(ctx, index)
}

func (s *Service) checkpointLocked(ctx context.Context, holderID string, holding int64) error {
	holderID = strings.TrimSpace(holderID)
	state, err := s.Holders.GetHolderState(ctx, holderID)
	if err != nil {
		return err
	}
	count, err := s.Log.RecordCount(ctx)
	if err != nil {
		return err
	}
	if state.Checkpoint == count {
		return nil
	}
	accrued, err := s.accruedSince(ctx, state.Checkpoint, holding)
	if err != nil {
		return err
	}
	state.HolderID = holderID
	state.Withdrawable += accrued
	state.Checkpoint = count
	return s.Holders.PutHolderState(ctx, state)
}

func (s *Service) commitWithdrawalLocked(
	ctx context.Context,
	holderID string,
	holding int64,
) (int64, entities.HolderAccrualState, entities.AccrualStats, error) {
	if err := s.checkpointLocked(ctx, holderID, holding); err != nil {
		return 0, entities.HolderAccrualState{}, entities.AccrualStats{}, err
	}
	state, err := s.Holders.GetHolderState(ctx, holderID)
	if err != nil {
		return 0, entities.HolderAccrualState{}, entities.AccrualStats{}, err
	}
	amount := state.Withdrawable
	if amount == 0 {
		return 0, entities.HolderAccrualState{}, entities.AccrualStats{}, domainerrors.ErrNothingToWithdraw
	}
	custody, err := s.Custody.Balance(ctx)
	if err != nil {
		return 0, entities.HolderAccrualState{}, entities.AccrualStats{}, err
	}
	if custody < amount {
		// Structurally impossible while the conservation invariant
		// holds; treat as bookkeeping drift to investigate.
		ResolveLogger(s.Logger).Error("custody balance below withdrawable",
			"event", "rent_withdrawal_custody_drift",
			"module", "asset-finance/rent-distribution-service",
			"layer", "application",
			"holder_id", holderID,
			"withdrawable", amount,
			"custody_balance", custody,
		)
		return 0, entities.HolderAccrualState{}, entities.AccrualStats{}, domainerrors.ErrInsufficientCustody
	}
	stats, err := s.Stats.GetStats(ctx)
	if err != nil {
		return 0, entities.HolderAccrualState{}, entities.AccrualStats{}, err
	}

	prevState := state
	prevStats := stats

	state.Withdrawable = 0
	state.LifetimeWithdrawn += amount
	stats.TotalAvailable -= amount
	stats.TotalDistributed += amount
	if err := s.inTransaction(ctx, func(ctx context.Context) error {
		if err := s.Holders.PutHolderState(ctx, state); err != nil {
			return err
		}
		return s.Stats.PutStats(ctx, stats)
	}); err != nil {
		return 0, entities.HolderAccrualState{}, entities.AccrualStats{}, err
	}
	return amount, prevState, prevStats, nil
}

func (s *Service) rollbackWithdrawalLocked(
	ctx context.Context,
	prevState entities.HolderAccrualState,
	prevStats entities.AccrualStats,
) error {
	return s.inTransaction(ctx, func(ctx context.Context) error {
		if err := s.Holders.PutHolderState(ctx, prevState); err != nil {
			return err
		}
		return s.Stats.PutStats(ctx, prevStats)
	})
}

func (s *Service) accruedSince(ctx context.Context, checkpoint int64, holding int64) (int64, error) {
	if holding <= 0 {
		return 0, nil
	}
	records, err := s.Log.ListRecordsAfter(ctx, checkpoint)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, record := range records {
		total += proRataShare(holding, record.Amount, record.SupplySnapshot)
	}
	return total, nil
}

// proRataShare computes floor(holding*amount/supply). The product is
// taken through big.Int so it cannot overflow int64; truncation dust
// stays in custody and is forfeited.
func proRataShare(holding int64, amount int64, supply int64) int64 {
	if holding <= 0 || amount <= 0 || supply <= 0 {
		return 0
	}
	product := new(big.Int).Mul(big.NewInt(holding), big.NewInt(amount))
	return product.Div(product, big.NewInt(supply)).Int64()
}

func (s *Service) appendOutbox(
	ctx context.Context,
	eventType string,
	occurredAt time.Time,
	partitionKeyPath string,
	partitionKey string,
	payload map[string]any,
) error {
	if s.Outbox == nil {
		return nil
	}
	eventID, err := s.newID(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "rent-distribution-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             data,
	})
}

func (s *Service) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.Tx == nil {
		return fn(ctx)
	}
	return s.Tx.InTransaction(ctx, fn)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) newID(ctx context.Context) (string, error) {
	if s.IDGen == nil {
		return "", nil
	}
	return s.IDGen.NewID(ctx)
}

func formatIndex(index int64) string {
	return strconv.FormatInt(index, 10)
}
