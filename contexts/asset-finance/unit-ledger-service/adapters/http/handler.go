package httpadapter

import (
	"context"
	"log/slog"
	"strings"

	application "rentshare/contexts/asset-finance/unit-ledger-service/application"
	httptransport "rentshare/contexts/asset-finance/unit-ledger-service/transport/http"
)

type Handler struct {
	Service *application.Service
	Logger  *slog.Logger
}

func (h Handler) TransferHandler(
	ctx context.Context,
	callerID string,
	req httptransport.TransferRequest,
) error {
	logger := application.ResolveLogger(h.Logger)
	if err := h.Service.Transfer(ctx, callerID, req.ToID, req.Units); err != nil {
		logger.Warn("unit http transfer failed",
			"event", "unit_http_transfer_failed",
			"module", "asset-finance/unit-ledger-service",
			"layer", "adapter",
			"from_id", strings.TrimSpace(callerID),
			"to_id", strings.TrimSpace(req.ToID),
			"units", req.Units,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("unit http transfer completed",
		"event", "unit_http_transfer_completed",
		"module", "asset-finance/unit-ledger-service",
		"layer", "adapter",
		"from_id", strings.TrimSpace(callerID),
		"to_id", strings.TrimSpace(req.ToID),
		"units", req.Units,
	)
	return nil
}

func (h Handler) DelegatedTransferHandler(
	ctx context.Context,
	spenderID string,
	req httptransport.DelegatedTransferRequest,
) error {
	logger := application.ResolveLogger(h.Logger)
	if err := h.Service.TransferFrom(ctx, spenderID, req.FromID, req.ToID, req.Units); err != nil {
		logger.Warn("unit http delegated transfer failed",
			"event", "unit_http_delegated_transfer_failed",
			"module", "asset-finance/unit-ledger-service",
			"layer", "adapter",
			"spender_id", strings.TrimSpace(spenderID),
			"from_id", strings.TrimSpace(req.FromID),
			"to_id", strings.TrimSpace(req.ToID),
			"units", req.Units,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func (h Handler) ApproveHandler(
	ctx context.Context,
	ownerID string,
	req httptransport.ApproveRequest,
) error {
	return h.Service.Approve(ctx, ownerID, req.SpenderID, req.Units)
}

func (h Handler) MintHandler(
	ctx context.Context,
	callerID string,
	req httptransport.MintRequest,
) error {
	logger := application.ResolveLogger(h.Logger)
	if err := h.Service.Mint(ctx, callerID, req.ToID, req.Units); err != nil {
		logger.Warn("unit http mint failed",
			"event", "unit_http_mint_failed",
			"module", "asset-finance/unit-ledger-service",
			"layer", "adapter",
			"caller_id", strings.TrimSpace(callerID),
			"to_id", strings.TrimSpace(req.ToID),
			"units", req.Units,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func (h Handler) BalanceHandler(ctx context.Context, holderID string) (httptransport.BalanceResponse, error) {
	units, err := h.Service.BalanceOf(ctx, holderID)
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return httptransport.BalanceResponse{
		HolderID: strings.TrimSpace(holderID),
		Units:    units,
	}, nil
}
