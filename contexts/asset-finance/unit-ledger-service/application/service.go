package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	domainerrors "rentshare/contexts/asset-finance/unit-ledger-service/domain/errors"
	"rentshare/contexts/asset-finance/unit-ledger-service/ports"
)

// Service is the fungible-unit ledger. Balance mutations serialize
// through mu and always invoke the registered observer before any
// balance commits. Reads go straight to the repository so the observer
// can query pre-mutation balances without deadlocking.
type Service struct {
	Repo          ports.Repository
	Tx            ports.UnitOfWork
	MintAuthority string
	Logger        *slog.Logger

	mu       sync.Mutex
	observer ports.TransferObserver
}

// RegisterObserver installs the pre-transfer observer. Transfers and
// mints fail until one is registered.
func (s *Service) RegisterObserver(observer ports.TransferObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = observer
}

func (s *Service) BalanceOf(ctx context.Context, holderID string) (int64, error) {
	return s.Repo.GetBalance(ctx, strings.TrimSpace(holderID))
}

func (s *Service) TotalSupply(ctx context.Context) (int64, error) {
	return s.Repo.GetTotalSupply(ctx)
}

// SnapshotSupply reads total supply and runs fn while the mutation lock
// is held, so no transfer or mint can commit until fn returns. fn must
// not call back into Transfer, TransferFrom, or Mint.
func (s *Service) SnapshotSupply(ctx context.Context, fn func(supply int64) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	supply, err := s.Repo.GetTotalSupply(ctx)
	if err != nil {
		return err
	}
	return fn(supply)
}

func (s *Service) Allowance(ctx context.Context, ownerID string, spenderID string) (int64, error) {
	return s.Repo.GetAllowance(ctx, strings.TrimSpace(ownerID), strings.TrimSpace(spenderID))
}

// Transfer moves units between holders. The observer sees both parties
// before either balance changes.
func (s *Service) Transfer(ctx context.Context, fromID string, toID string, units int64) error {
	fromID = strings.TrimSpace(fromID)
	toID = strings.TrimSpace(toID)
	if fromID == "" || toID == "" || fromID == toID || units <= 0 {
		return domainerrors.ErrInvalidTransfer
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferLocked(ctx, fromID, toID, units)
}

func (s *Service) Approve(ctx context.Context, ownerID string, spenderID string, units int64) error {
	ownerID = strings.TrimSpace(ownerID)
	spenderID = strings.TrimSpace(spenderID)
	if ownerID == "" || spenderID == "" || units < 0 {
		return domainerrors.ErrInvalidTransfer
	}
	if err := s.Repo.PutAllowance(ctx, ownerID, spenderID, units); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Info("unit allowance set",
		"event", "unit_allowance_set",
		"module", "asset-finance/unit-ledger-service",
		"layer", "application",
		"owner_id", ownerID,
		"spender_id", spenderID,
		"units", units,
	)
	return nil
}

// TransferFrom is transfer-on-behalf: the spender consumes allowance
// granted by the owner. The allowance is reduced only after the
// transfer itself succeeds.
func (s *Service) TransferFrom(ctx context.Context, spenderID string, fromID string, toID string, units int64) error {
	spenderID = strings.TrimSpace(spenderID)
	fromID = strings.TrimSpace(fromID)
	toID = strings.TrimSpace(toID)
	if spenderID == "" || fromID == "" || toID == "" || fromID == toID || units <= 0 {
		return domainerrors.ErrInvalidTransfer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	allowance, err := s.Repo.GetAllowance(ctx, fromID, spenderID)
	if err != nil {
		return err
	}
	if allowance < units {
		return domainerrors.ErrAllowanceExceeded
	}
	if err := s.transferLocked(ctx, fromID, toID, units); err != nil {
		return err
	}
	return s.Repo.PutAllowance(ctx, fromID, spenderID, allowance-units)
}

// Mint creates units for a holder and grows total supply. The caller
// must be the mint authority. The observer checkpoints the recipient
// with their pre-mint balance, so minted units only participate in
// distributions recorded after the mint.
func (s *Service) Mint(ctx context.Context, callerID string, toID string, units int64) error {
	callerID = strings.TrimSpace(callerID)
	toID = strings.TrimSpace(toID)
	if s.MintAuthority != "" && callerID != s.MintAuthority {
		return domainerrors.ErrNotMintAuthority
	}
	if toID == "" || units <= 0 {
		return domainerrors.ErrInvalidMint
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.observer == nil {
		return domainerrors.ErrObserverNotRegistered
	}
	if err := s.observer.OnBeforeTransfer(ctx, "", toID); err != nil {
		return err
	}

	balance, err := s.Repo.GetBalance(ctx, toID)
	if err != nil {
		return err
	}
	supply, err := s.Repo.GetTotalSupply(ctx)
	if err != nil {
		return err
	}
	if err := s.inTransaction(ctx, func(ctx context.Context) error {
		if err := s.Repo.PutBalance(ctx, toID, balance+units); err != nil {
			return err
		}
		return s.Repo.PutTotalSupply(ctx, supply+units)
	}); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("units minted",
		"event", "units_minted",
		"module", "asset-finance/unit-ledger-service",
		"layer", "application",
		"holder_id", toID,
		"units", units,
		"total_supply", supply+units,
	)
	return nil
}

func (s *Service) transferLocked(ctx context.Context, fromID string, toID string, units int64) error {
	if s.observer == nil {
		return domainerrors.ErrObserverNotRegistered
	}

	fromBalance, err := s.Repo.GetBalance(ctx, fromID)
	if err != nil {
		return err
	}
	if fromBalance < units {
		return domainerrors.ErrInsufficientUnits
	}
	toBalance, err := s.Repo.GetBalance(ctx, toID)
	if err != nil {
		return err
	}

	if err := s.observer.OnBeforeTransfer(ctx, fromID, toID); err != nil {
		return err
	}

	if err := s.inTransaction(ctx, func(ctx context.Context) error {
		if err := s.Repo.PutBalance(ctx, fromID, fromBalance-units); err != nil {
			return err
		}
		return s.Repo.PutBalance(ctx, toID, toBalance+units)
	}); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("units transferred",
		"event", "units_transferred",
		"module", "asset-finance/unit-ledger-service",
		"layer", "application",
		"from_id", fromID,
		"to_id", toID,
		"units", units,
	)
	return nil
}

func (s *Service) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.Tx == nil {
		return fn(ctx)
	}
	return s.Tx.InTransaction(ctx, fn)
}
