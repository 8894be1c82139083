package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type DepositRequest struct {
	Amount int64 `json:"amount"`
}

type DistributionRecordDTO struct {
	Index          int64  `json:"index"`
	Amount         int64  `json:"amount"`
	RecordedAt     string `json:"recorded_at"`
	SupplySnapshot int64  `json:"supply_snapshot"`
}

type WithdrawResponse struct {
	HolderID string `json:"holder_id"`
	Amount   int64  `json:"amount"`
}

type HolderSummaryDTO struct {
	HolderID            string `json:"holder_id"`
	Holding             int64  `json:"holding"`
	OwnershipShareBP    int64  `json:"ownership_share_bp"`
	PendingWithdrawable int64  `json:"pending_withdrawable"`
	LifetimeWithdrawn   int64  `json:"lifetime_withdrawn"`
}

type GlobalSummaryDTO struct {
	TotalSupply         int64 `json:"total_supply"`
	CumulativeDeposited int64 `json:"cumulative_deposited"`
	TotalDistributed    int64 `json:"total_distributed"`
	TotalAvailable      int64 `json:"total_available"`
	DistributionCount   int64 `json:"distribution_count"`
	CustodyBalance      int64 `json:"custody_balance"`
}
