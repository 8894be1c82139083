package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"rentshare/contexts/asset-finance/unit-ledger-service/ports"
)

type Store struct {
	mu sync.RWMutex

	balances   map[string]int64
	allowances map[string]int64
	supply     int64
}

func NewStore() *Store {
	return &Store{
		balances:   make(map[string]int64),
		allowances: make(map[string]int64),
	}
}

func (s *Store) GetBalance(_ context.Context, holderID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[strings.TrimSpace(holderID)], nil
}

func (s *Store) PutBalance(_ context.Context, holderID string, units int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[strings.TrimSpace(holderID)] = units
	return nil
}

func (s *Store) GetTotalSupply(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.supply, nil
}

func (s *Store) PutTotalSupply(_ context.Context, units int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supply = units
	return nil
}

func (s *Store) GetAllowance(_ context.Context, ownerID string, spenderID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowances[allowanceKey(ownerID, spenderID)], nil
}

func (s *Store) PutAllowance(_ context.Context, ownerID string, spenderID string, units int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allowances[allowanceKey(ownerID, spenderID)] = units
	return nil
}

// InTransaction is a pass-through; the in-memory store has no
// transactional failure mode to roll back from.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func allowanceKey(ownerID string, spenderID string) string {
	return strings.TrimSpace(ownerID) + "|" + strings.TrimSpace(spenderID)
}

var _ ports.Repository = (*Store)(nil)
var _ ports.UnitOfWork = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
