package application

import (
	"context"
	"errors"
	"testing"

	"rentshare/contexts/asset-finance/rent-distribution-service/adapters/memory"
	domainerrors "rentshare/contexts/asset-finance/rent-distribution-service/domain/errors"
	"rentshare/contexts/asset-finance/rent-distribution-service/ports"
)

const depositAuthority = "authority-1"

func newTestService(units *stubUnits) (*Service, *memory.Store) {
	store := memory.NewStore()
	service := &Service{
		Log:              store,
		Holders:          store,
		Stats:            store,
		Units:            units,
		Custody:          store,
		Outbox:           store,
		Clock:            store,
		IDGen:            store,
		DepositAuthority: depositAuthority,
	}
	return service, store
}

func TestDepositRejectsNonAuthorityAndBadAmounts(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100})
	service, _ := newTestService(units)
	ctx := context.Background()

	if _, err := service.Deposit(ctx, "someone-else", 100); !errors.Is(err, domainerrors.ErrNotDepositAuthority) {
		t.Fatalf("expected ErrNotDepositAuthority, got %v", err)
	}
	if _, err := service.Deposit(ctx, depositAuthority, 0); !errors.Is(err, domainerrors.ErrInvalidDeposit) {
		t.Fatalf("expected ErrInvalidDeposit for zero amount, got %v", err)
	}
	if _, err := service.Deposit(ctx, depositAuthority, -5); !errors.Is(err, domainerrors.ErrInvalidDeposit) {
		t.Fatalf("expected ErrInvalidDeposit for negative amount, got %v", err)
	}
}

func TestDepositRejectsZeroSupply(t *testing.T) {
	units := newStubUnits(nil)
	service, _ := newTestService(units)

	if _, err := service.Deposit(context.Background(), depositAuthority, 100); !errors.Is(err, domainerrors.ErrInvalidDeposit) {
		t.Fatalf("expected ErrInvalidDeposit with zero supply, got %v", err)
	}
}

func TestAccrualSplitsProportionally(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100, "holder-b": 300})
	service, _ := newTestService(units)
	ctx := context.Background()

	record, err := service.Deposit(ctx, depositAuthority, 1000)
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if record.Index != 1 || record.SupplySnapshot != 400 {
		t.Fatalf("unexpected record: %+v", record)
	}

	pendingA, err := service.Pending(ctx, "holder-a")
	if err != nil {
		t.Fatalf("pending holder-a failed: %v", err)
	}
	pendingB, err := service.Pending(ctx, "holder-b")
	if err != nil {
		t.Fatalf("pending holder-b failed: %v", err)
	}
	if pendingA != 250 || pendingB != 750 {
		t.Fatalf("expected 250/750 split, got %d/%d", pendingA, pendingB)
	}
}

func TestFloorRoundingLeavesDustInCustody(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 1, "holder-b": 1, "holder-c": 1})
	service, store := newTestService(units)
	ctx := context.Background()

	if _, err := service.Deposit(ctx, depositAuthority, 100); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	for _, holderID := range []string{"holder-a", "holder-b", "holder-c"} {
		amount, err := service.Withdraw(ctx, holderID)
		if err != nil {
			t.Fatalf("withdraw %s failed: %v", holderID, err)
		}
		if amount != 33 {
			t.Fatalf("expected 33 for %s, got %d", holderID, amount)
		}
	}

	summary, err := service.GlobalSummaryNow(ctx)
	if err != nil {
		t.Fatalf("global summary failed: %v", err)
	}
	if summary.TotalDistributed != 99 || summary.TotalAvailable != 1 {
		t.Fatalf("expected 99 distributed and 1 dust, got %d/%d", summary.TotalDistributed, summary.TotalAvailable)
	}
	if summary.CumulativeDeposited != 100 {
		t.Fatalf("conservation broken: cumulative %d", summary.CumulativeDeposited)
	}
	if summary.CustodyBalance != 1 {
		t.Fatalf("expected dust to remain in custody, got %d", summary.CustodyBalance)
	}
	if store.PayoutCount() != 3 {
		t.Fatalf("expected 3 payouts, got %d", store.PayoutCount())
	}
}

func TestTransferHookFreezesAccruedEntitlement(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100, "holder-c": 900})
	service, _ := newTestService(units)
	ctx := context.Background()

	if _, err := service.Deposit(ctx, depositAuthority, 1000); err != nil {
		t.Fatalf("first deposit failed: %v", err)
	}

	// Move all of holder-a's units to holder-b the way the ledger
	// would: hook first, balances after.
	if err := service.OnBeforeTransfer(ctx, "holder-a", "holder-b"); err != nil {
		t.Fatalf("transfer hook failed: %v", err)
	}
	units.move("holder-a", "holder-b", 100)

	if _, err := service.Deposit(ctx, depositAuthority, 1000); err != nil {
		t.Fatalf("second deposit failed: %v", err)
	}

	pendingA, err := service.Pending(ctx, "holder-a")
	if err != nil {
		t.Fatalf("pending holder-a failed: %v", err)
	}
	pendingB, err := service.Pending(ctx, "holder-b")
	if err != nil {
		t.Fatalf("pending holder-b failed: %v", err)
	}
	if pendingA != 100 {
		t.Fatalf("seller should keep pre-transfer accrual of 100, got %d", pendingA)
	}
	if pendingB != 100 {
		t.Fatalf("buyer should accrue only from the second deposit, got %d", pendingB)
	}

	// Seller no longer holds units, so withdrawal eligibility is gone
	// even though accrued funds remain on their state.
	if _, err := service.Withdraw(ctx, "holder-a"); !errors.Is(err, domainerrors.ErrNoEligibleHolding) {
		t.Fatalf("expected ErrNoEligibleHolding for zero-balance seller, got %v", err)
	}

	amount, err := service.Withdraw(ctx, "holder-b")
	if err != nil {
		t.Fatalf("withdraw holder-b failed: %v", err)
	}
	if amount != 100 {
		t.Fatalf("expected buyer to withdraw 100, got %d", amount)
	}
}

func TestWithdrawTwiceWithoutNewDeposit(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100})
	service, _ := newTestService(units)
	ctx := context.Background()

	if _, err := service.Deposit(ctx, depositAuthority, 500); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if amount, err := service.Withdraw(ctx, "holder-a"); err != nil || amount != 500 {
		t.Fatalf("first withdraw: amount=%d err=%v", amount, err)
	}
	if _, err := service.Withdraw(ctx, "holder-a"); !errors.Is(err, domainerrors.ErrNothingToWithdraw) {
		t.Fatalf("expected ErrNothingToWithdraw, got %v", err)
	}
}

func TestCheckpointIsIdempotent(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100, "holder-b": 400})
	service, _ := newTestService(units)
	ctx := context.Background()

	if _, err := service.Deposit(ctx, depositAuthority, 1000); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	if err := service.Checkpoint(ctx, "holder-a", 100); err != nil {
		t.Fatalf("first checkpoint failed: %v", err)
	}
	if err := service.Checkpoint(ctx, "holder-a", 100); err != nil {
		t.Fatalf("second checkpoint failed: %v", err)
	}

	pending, err := service.Pending(ctx, "holder-a")
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if pending != 200 {
		t.Fatalf("double checkpoint must not double-count, got %d", pending)
	}
}

func TestWithdrawPayoutFailureRollsBack(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100})
	store := memory.NewStore()
	custody := &failingCustody{Store: store, fail: true}
	service := &Service{
		Log:              store,
		Holders:          store,
		Stats:            store,
		Units:            units,
		Custody:          custody,
		Outbox:           store,
		Clock:            store,
		IDGen:            store,
		DepositAuthority: depositAuthority,
	}
	ctx := context.Background()

	if _, err := service.Deposit(ctx, depositAuthority, 500); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	if _, err := service.Withdraw(ctx, "holder-a"); !errors.Is(err, domainerrors.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	pending, err := service.Pending(ctx, "holder-a")
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if pending != 500 {
		t.Fatalf("rollback must restore withdrawable 500, got %d", pending)
	}
	summary, err := service.GlobalSummaryNow(ctx)
	if err != nil {
		t.Fatalf("global summary failed: %v", err)
	}
	if summary.TotalDistributed != 0 || summary.TotalAvailable != 500 {
		t.Fatalf("rollback must restore stats, got distributed=%d available=%d", summary.TotalDistributed, summary.TotalAvailable)
	}

	// Retry succeeds once the payout rail recovers.
	custody.fail = false
	amount, err := service.Withdraw(ctx, "holder-a")
	if err != nil {
		t.Fatalf("retry withdraw failed: %v", err)
	}
	if amount != 500 {
		t.Fatalf("expected retry to pay 500, got %d", amount)
	}
}

func TestWithdrawRejectsReentrantPayout(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100})
	store := memory.NewStore()
	custody := &reentrantCustody{Store: store}
	service := &Service{
		Log:              store,
		Holders:          store,
		Stats:            store,
		Units:            units,
		Custody:          custody,
		Outbox:           store,
		Clock:            store,
		IDGen:            store,
		DepositAuthority: depositAuthority,
	}
	custody.service = service
	ctx := context.Background()

	if _, err := service.Deposit(ctx, depositAuthority, 500); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	amount, err := service.Withdraw(ctx, "holder-a")
	if err != nil {
		t.Fatalf("outer withdraw failed: %v", err)
	}
	if amount != 500 {
		t.Fatalf("expected 500, got %d", amount)
	}
	if !errors.Is(custody.innerErr, domainerrors.ErrWithdrawalInProgress) {
		t.Fatalf("expected inner call to hit ErrWithdrawalInProgress, got %v", custody.innerErr)
	}
	if store.PayoutCount() != 1 {
		t.Fatalf("expected exactly one payout, got %d", store.PayoutCount())
	}
}

func TestHolderSummaryBasisPoints(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 1_000_000, "holder-b": 1_000_000})
	service, _ := newTestService(units)

	summary, err := service.HolderSummaryFor(context.Background(), "holder-a")
	if err != nil {
		t.Fatalf("holder summary failed: %v", err)
	}
	if summary.OwnershipShareBP != 5000 {
		t.Fatalf("expected 5000 bp for half the supply, got %d", summary.OwnershipShareBP)
	}
	if summary.Holding != 1_000_000 {
		t.Fatalf("unexpected holding %d", summary.Holding)
	}
}

func TestRecordIndexBounds(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100})
	service, _ := newTestService(units)
	ctx := context.Background()

	if _, err := service.Record(ctx, 0); !errors.Is(err, domainerrors.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange for index 0, got %v", err)
	}
	if _, err := service.Deposit(ctx, depositAuthority, 100); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if _, err := service.Record(ctx, 1); err != nil {
		t.Fatalf("expected record 1 to exist: %v", err)
	}
	if _, err := service.Record(ctx, 2); !errors.Is(err, domainerrors.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange past the head, got %v", err)
	}
}

func TestGlobalSummaryConservation(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100, "holder-b": 300})
	service, _ := newTestService(units)
	ctx := context.Background()

	if _, err := service.Deposit(ctx, depositAuthority, 500); err != nil {
		t.Fatalf("first deposit failed: %v", err)
	}
	if _, err := service.Deposit(ctx, depositAuthority, 700); err != nil {
		t.Fatalf("second deposit failed: %v", err)
	}
	if _, err := service.Withdraw(ctx, "holder-a"); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	summary, err := service.GlobalSummaryNow(ctx)
	if err != nil {
		t.Fatalf("global summary failed: %v", err)
	}
	if summary.CumulativeDeposited != 1200 {
		t.Fatalf("expected cumulative 1200, got %d", summary.CumulativeDeposited)
	}
	if summary.TotalAvailable+summary.TotalDistributed != summary.CumulativeDeposited {
		t.Fatalf("conservation broken: available=%d distributed=%d", summary.TotalAvailable, summary.TotalDistributed)
	}
	if summary.CustodyBalance != summary.TotalAvailable {
		t.Fatalf("custody %d must track available %d", summary.CustodyBalance, summary.TotalAvailable)
	}
	if summary.DistributionCount != 2 {
		t.Fatalf("expected 2 records, got %d", summary.DistributionCount)
	}
}

func TestDepositAndWithdrawWriteInsideUnitOfWork(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100})
	service, _ := newTestService(units)
	tx := &recordingTx{}
	service.Tx = tx
	ctx := context.Background()

	if _, err := service.Deposit(ctx, depositAuthority, 500); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if tx.calls != 1 {
		t.Fatalf("deposit must write through one transaction, got %d", tx.calls)
	}
	if amount, err := service.Withdraw(ctx, "holder-a"); err != nil || amount != 500 {
		t.Fatalf("withdraw: amount=%d err=%v", amount, err)
	}
	if tx.calls != 2 {
		t.Fatalf("withdrawal commit must write through one transaction, got %d total", tx.calls)
	}
}

func TestDepositLeavesNoTraceWhenTransactionFails(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100})
	service, _ := newTestService(units)
	tx := &recordingTx{fail: true}
	service.Tx = tx
	ctx := context.Background()

	if _, err := service.Deposit(ctx, depositAuthority, 500); err == nil {
		t.Fatal("expected deposit to fail with the transaction")
	}

	tx.fail = false
	summary, err := service.GlobalSummaryNow(ctx)
	if err != nil {
		t.Fatalf("global summary failed: %v", err)
	}
	if summary.DistributionCount != 0 || summary.TotalAvailable != 0 || summary.CustodyBalance != 0 {
		t.Fatalf("failed deposit must have no effect, got %+v", summary)
	}

	// The next deposit starts from a clean log.
	record, err := service.Deposit(ctx, depositAuthority, 500)
	if err != nil {
		t.Fatalf("retry deposit failed: %v", err)
	}
	if record.Index != 1 {
		t.Fatalf("expected index 1 after a failed attempt, got %d", record.Index)
	}
}

func TestWithdrawalCommitTransactionFailureLeavesStateIntact(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100})
	service, store := newTestService(units)
	tx := &recordingTx{}
	service.Tx = tx
	ctx := context.Background()

	if _, err := service.Deposit(ctx, depositAuthority, 500); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	tx.fail = true
	if _, err := service.Withdraw(ctx, "holder-a"); err == nil {
		t.Fatal("expected withdraw to fail with the transaction")
	}
	if store.PayoutCount() != 0 {
		t.Fatalf("no payout may happen when the commit fails, got %d", store.PayoutCount())
	}

	tx.fail = false
	pending, err := service.Pending(ctx, "holder-a")
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if pending != 500 {
		t.Fatalf("failed commit must leave withdrawable intact, got %d", pending)
	}
}

func TestWithdrawSucceedsWhenOutboxAppendFails(t *testing.T) {
	units := newStubUnits(map[string]int64{"holder-a": 100})
	store := memory.NewStore()
	outbox := &flakyOutbox{Store: store}
	service := &Service{
		Log:              store,
		Holders:          store,
		Stats:            store,
		Units:            units,
		Custody:          store,
		Outbox:           outbox,
		Clock:            store,
		IDGen:            store,
		DepositAuthority: depositAuthority,
	}
	ctx := context.Background()

	if _, err := service.Deposit(ctx, depositAuthority, 500); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	// The payout has already been delivered when the event append
	// runs; its failure must not turn the withdrawal into an error.
	outbox.fail = true
	amount, err := service.Withdraw(ctx, "holder-a")
	if err != nil {
		t.Fatalf("withdraw must succeed despite the outbox failure: %v", err)
	}
	if amount != 500 {
		t.Fatalf("expected 500, got %d", amount)
	}
	if store.PayoutCount() != 1 {
		t.Fatalf("expected the payout to have happened, got %d", store.PayoutCount())
	}

	summary, err := service.GlobalSummaryNow(ctx)
	if err != nil {
		t.Fatalf("global summary failed: %v", err)
	}
	if summary.TotalDistributed != 500 || summary.TotalAvailable != 0 {
		t.Fatalf("withdrawal state must stay committed, got %+v", summary)
	}
	if _, err := service.Withdraw(ctx, "holder-a"); !errors.Is(err, domainerrors.ErrNothingToWithdraw) {
		t.Fatalf("expected ErrNothingToWithdraw after the successful payout, got %v", err)
	}
}

func TestProRataShareLargeValues(t *testing.T) {
	// holding*amount overflows int64; the quotient must still be exact.
	holding := int64(4_000_000_000)
	amount := int64(9_000_000_000)
	supply := int64(12_000_000_000)

	if got := proRataShare(holding, amount, supply); got != 3_000_000_000 {
		t.Fatalf("expected 3000000000, got %d", got)
	}
	if got := proRataShare(0, amount, supply); got != 0 {
		t.Fatalf("expected 0 for zero holding, got %d", got)
	}
}

type stubUnits struct {
	balances map[string]int64
}

func newStubUnits(balances map[string]int64) *stubUnits {
	if balances == nil {
		balances = make(map[string]int64)
	}
	return &stubUnits{balances: balances}
}

func (s *stubUnits) BalanceOf(_ context.Context, holderID string) (int64, error) {
	return s.balances[holderID], nil
}

func (s *stubUnits) TotalSupply(_ context.Context) (int64, error) {
	var total int64
	for _, units := range s.balances {
		total += units
	}
	return total, nil
}

func (s *stubUnits) SnapshotSupply(ctx context.Context, fn func(supply int64) error) error {
	supply, err := s.TotalSupply(ctx)
	if err != nil {
		return err
	}
	return fn(supply)
}

func (s *stubUnits) move(fromID string, toID string, units int64) {
	s.balances[fromID] -= units
	s.balances[toID] += units
}

type failingCustody struct {
	*memory.Store
	fail bool
}

func (c *failingCustody) PayOut(ctx context.Context, holderID string, amount int64) error {
	if c.fail {
		return errors.New("payout rail unavailable")
	}
	return c.Store.PayOut(ctx, holderID, amount)
}

type recordingTx struct {
	calls int
	fail  bool
}

func (t *recordingTx) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	if t.fail {
		return errors.New("transaction aborted")
	}
	return fn(ctx)
}

type flakyOutbox struct {
	*memory.Store
	fail bool
}

func (o *flakyOutbox) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	if o.fail {
		return errors.New("outbox unavailable")
	}
	return o.Store.AppendOutbox(ctx, envelope)
}

type reentrantCustody struct {
	*memory.Store
	service  *Service
	innerErr error
}

func (c *reentrantCustody) PayOut(ctx context.Context, holderID string, amount int64) error {
	_, c.innerErr = c.service.Withdraw(ctx, holderID)
	return c.Store.PayOut(ctx, holderID, amount)
}
