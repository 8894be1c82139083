package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "rentshare/contexts/asset-finance/rent-distribution-service/application"
	httptransport "rentshare/contexts/asset-finance/rent-distribution-service/transport/http"
)

type Handler struct {
	Service *application.Service
	Logger  *slog.Logger
}

func (h Handler) DepositHandler(
	ctx context.Context,
	callerID string,
	req httptransport.DepositRequest,
) (httptransport.DistributionRecordDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	record, err := h.Service.Deposit(ctx, callerID, req.Amount)
	if err != nil {
		logger.Warn("rent http deposit failed",
			"event", "rent_http_deposit_failed",
			"module", "asset-finance/rent-distribution-service",
			"layer", "adapter",
			"caller_id", strings.TrimSpace(callerID),
			"amount", req.Amount,
			"error", err.Error(),
		)
		return httptransport.DistributionRecordDTO{}, err
	}
	logger.Info("rent http deposit completed",
		"event", "rent_http_deposit_completed",
		"module", "asset-finance/rent-distribution-service",
		"layer", "adapter",
		"distribution_index", record.Index,
		"amount", record.Amount,
	)
	return httptransport.DistributionRecordDTO{
		Index:          record.Index,
		Amount:         record.Amount,
		RecordedAt:     record.RecordedAt.Format(time.RFC3339),
		SupplySnapshot: record.SupplySnapshot,
	}, nil
}

func (h Handler) WithdrawHandler(ctx context.Context, holderID string) (httptransport.WithdrawResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	amount, err := h.Service.Withdraw(ctx, holderID)
	if err != nil {
		logger.Warn("rent http withdraw failed",
			"event", "rent_http_withdraw_failed",
			"module", "asset-finance/rent-distribution-service",
			"layer", "adapter",
			"holder_id", strings.TrimSpace(holderID),
			"error", err.Error(),
		)
		return httptransport.WithdrawResponse{}, err
	}
	logger.Info("rent http withdraw completed",
		"event", "rent_http_withdraw_completed",
		"module", "asset-finance/rent-distribution-service",
		"layer", "adapter",
		"holder_id", strings.TrimSpace(holderID),
		"amount", amount,
	)
	return httptransport.WithdrawResponse{
		HolderID: strings.TrimSpace(holderID),
		Amount:   amount,
	}, nil
}

func (h Handler) HolderSummaryHandler(ctx context.Context, holderID string) (httptransport.HolderSummaryDTO, error) {
	summary, err := h.Service.HolderSummaryFor(ctx, holderID)
	if err != nil {
		return httptransport.HolderSummaryDTO{}, err
	}
	return httptransport.HolderSummaryDTO{
		HolderID:            summary.HolderID,
		Holding:             summary.Holding,
		OwnershipShareBP:    summary.OwnershipShareBP,
		PendingWithdrawable: summary.PendingWithdrawable,
		LifetimeWithdrawn:   summary.LifetimeWithdrawn,
	}, nil
}

func (h Handler) GlobalSummaryHandler(ctx context.Context) (httptransport.GlobalSummaryDTO, error) {
	summary, err := h.Service.GlobalSummaryNow(ctx)
	if err != nil {
		return httptransport.GlobalSummaryDTO{}, err
	}
	return httptransport.GlobalSummaryDTO{
		TotalSupply:         summary.TotalSupply,
		CumulativeDeposited: summary.CumulativeDeposited,
		TotalDistributed:    summary.TotalDistributed,
		TotalAvailable:      summary.TotalAvailable,
		DistributionCount:   summary.DistributionCount,
		CustodyBalance:      summary.CustodyBalance,
	}, nil
}

func (h Handler) RecordHandler(ctx context.Context, index int64) (httptransport.DistributionRecordDTO, error) {
	record, err := h.Service.Record(ctx, index)
	if err != nil {
		return httptransport.DistributionRecordDTO{}, err
	}
	return httptransport.DistributionRecordDTO{
		Index:          record.Index,
		Amount:         record.Amount,
		RecordedAt:     record.RecordedAt.Format(time.RFC3339),
		SupplySnapshot: record.SupplySnapshot,
	}, nil
}
