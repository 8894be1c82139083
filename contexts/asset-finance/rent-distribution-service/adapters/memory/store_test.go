package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentshare/contexts/asset-finance/rent-distribution-service/domain/entities"
	domainerrors "rentshare/contexts/asset-finance/rent-distribution-service/domain/errors"
	"rentshare/contexts/asset-finance/rent-distribution-service/ports"
)

func TestAppendRecordEnforcesSequentialIndex(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	record := entities.DistributionRecord{Index: 1, Amount: 100, RecordedAt: time.Now().UTC(), SupplySnapshot: 10}
	if err := store.AppendRecord(ctx, record); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	gap := entities.DistributionRecord{Index: 3, Amount: 100, RecordedAt: time.Now().UTC(), SupplySnapshot: 10}
	if err := store.AppendRecord(ctx, gap); !errors.Is(err, domainerrors.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange for index gap, got %v", err)
	}

	count, err := store.RecordCount(ctx)
	if err != nil {
		t.Fatalf("record count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}
}

func TestGetRecordBounds(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_ = store.AppendRecord(ctx, entities.DistributionRecord{Index: 1, Amount: 100, SupplySnapshot: 10})

	if _, err := store.GetRecord(ctx, 0); !errors.Is(err, domainerrors.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange for 0, got %v", err)
	}
	if _, err := store.GetRecord(ctx, 2); !errors.Is(err, domainerrors.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange for 2, got %v", err)
	}
	record, err := store.GetRecord(ctx, 1)
	if err != nil {
		t.Fatalf("get record failed: %v", err)
	}
	if record.Amount != 100 {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestListRecordsAfterCheckpoint(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		_ = store.AppendRecord(ctx, entities.DistributionRecord{Index: i, Amount: i * 100, SupplySnapshot: 10})
	}

	records, err := store.ListRecordsAfter(ctx, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 2 || records[0].Index != 2 || records[1].Index != 3 {
		t.Fatalf("expected records 2 and 3, got %+v", records)
	}

	records, err = store.ListRecordsAfter(ctx, 3)
	if err != nil {
		t.Fatalf("list at head failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records past the head, got %d", len(records))
	}
}

func TestCustodyRejectsOverdraft(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Credit(ctx, 100); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if err := store.PayOut(ctx, "holder-a", 150); !errors.Is(err, domainerrors.ErrInsufficientCustody) {
		t.Fatalf("expected ErrInsufficientCustody, got %v", err)
	}
	if err := store.PayOut(ctx, "holder-a", 100); err != nil {
		t.Fatalf("payout failed: %v", err)
	}
	balance, err := store.Balance(ctx)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected drained custody, got %d", balance)
	}
}

func TestOutboxPendingAndPublishLifecycle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	envelope := ports.EventEnvelope{
		EventID:    "evt-1",
		EventType:  "rent.deposited",
		OccurredAt: time.Now().UTC(),
	}
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}
	// Duplicate event ids are ignored.
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("duplicate append failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending message, got %d", len(pending))
	}

	if err := store.MarkOutboxPublished(ctx, pending[0].OutboxID, time.Now().UTC()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, got %d", len(pending))
	}

	if err := store.MarkOutboxPublished(ctx, "missing", time.Now().UTC()); !errors.Is(err, domainerrors.ErrOutboxNotFound) {
		t.Fatalf("expected ErrOutboxNotFound, got %v", err)
	}
}
