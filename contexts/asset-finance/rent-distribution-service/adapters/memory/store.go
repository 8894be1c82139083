package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"rentshare/contexts/asset-finance/rent-distribution-service/domain/entities"
	domainerrors "rentshare/contexts/asset-finance/rent-distribution-service/domain/errors"
	"rentshare/contexts/asset-finance/rent-distribution-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

type payoutRecord struct {
	HolderID string
	Amount   int64
}

type Store struct {
	mu sync.RWMutex

	records []entities.DistributionRecord
	holders map[string]entities.HolderAccrualState
	stats   entities.AccrualStats
	custody int64
	payouts []payoutRecord
	outbox  map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		holders: make(map[string]entities.HolderAccrualState),
		outbox:  make(map[string]outboxRecord),
	}
}

func (s *Store) AppendRecord(_ context.Context, record entities.DistributionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Amount <= 0 || record.SupplySnapshot <= 0 {
		return domainerrors.ErrInvalidDeposit
	}
	if record.Index != int64(len(s.records))+1 {
		return domainerrors.ErrIndexOutOfRange
	}
	s.records = append(s.records, record)
	return nil
}

func (s *Store) GetRecord(_ context.Context, index int64) (entities.DistributionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index <= 0 || index > int64(len(s.records)) {
		return entities.DistributionRecord{}, domainerrors.ErrIndexOutOfRange
	}
	return s.records[index-1], nil
}

func (s *Store) ListRecordsAfter(_ context.Context, checkpoint int64) ([]entities.DistributionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if checkpoint < 0 {
		checkpoint = 0
	}
	if checkpoint >= int64(len(s.records)) {
		return nil, nil
	}
	return append([]entities.DistributionRecord(nil), s.records[checkpoint:]...), nil
}

func (s *Store) RecordCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

func (s *Store) GetHolderState(_ context.Context, holderID string) (entities.HolderAccrualState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.holders[strings.TrimSpace(holderID)]
	if !exists {
		return entities.HolderAccrualState{HolderID: strings.TrimSpace(holderID)}, nil
	}
	return state, nil
}

func (s *Store) PutHolderState(_ context.Context, state entities.HolderAccrualState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.holders[strings.TrimSpace(state.HolderID)] = state
	return nil
}

func (s *Store) GetStats(_ context.Context) (entities.AccrualStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

func (s *Store) PutStats(_ context.Context, stats entities.AccrualStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats = stats
	return nil
}

func (s *Store) Balance(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.custody, nil
}

func (s *Store) Credit(_ context.Context, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount <= 0 {
		return domainerrors.ErrInvalidDeposit
	}
	s.custody += amount
	return nil
}

func (s *Store) PayOut(_ context.Context, holderID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount <= 0 || s.custody < amount {
		return domainerrors.ErrInsufficientCustody
	}
	s.custody -= amount
	s.payouts = append(s.payouts, payoutRecord{HolderID: strings.TrimSpace(holderID), Amount: amount})
	return nil
}

// PayoutCount reports delivered payouts; used by tests to assert the
// custody side effect happened exactly once.
func (s *Store) PayoutCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payouts)
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, exists := s.outbox[outboxID]; exists {
		return nil
	}
	s.outbox[outboxID] = outboxRecord{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.PublishedAt == nil {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrOutboxNotFound
	}
	timestamp := publishedAt.UTC()
	row.PublishedAt = &timestamp
	s.outbox[outboxID] = row
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

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.UnitOfWork = (*Store)(nil)
var _ ports.DistributionLog = (*Store)(nil)
var _ ports.HolderLedger = (*Store)(nil)
var _ ports.StatsStore = (*Store)(nil)
var _ ports.CustodyAccount = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
