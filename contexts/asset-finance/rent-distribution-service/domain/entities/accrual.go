package entities

import "time"

// DistributionRecord captures one rent deposit. Records are immutable
// once appended; Index is 1-based and strictly sequential.
type DistributionRecord struct {
	Index          int64
	Amount         int64
	RecordedAt     time.Time
	SupplySnapshot int64
}

// HolderAccrualState is the lazy catch-up state for a single holder.
// Checkpoint is the index of the last distribution record already
// folded into Withdrawable; it never exceeds the log length.
type HolderAccrualState struct {
	HolderID          string
	Withdrawable      int64
	Checkpoint        int64
	LifetimeWithdrawn int64
}

// AccrualStats is registry-wide bookkeeping. At all times
// TotalAvailable + TotalDistributed equals the sum of all record
// amounts.
type AccrualStats struct {
	TotalAvailable   int64
	TotalDistributed int64
}
