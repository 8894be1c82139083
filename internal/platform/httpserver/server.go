package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	rentdistribution "rentshare/contexts/asset-finance/rent-distribution-service"
	rentdomainerrors "rentshare/contexts/asset-finance/rent-distribution-service/domain/errors"
	renthttp "rentshare/contexts/asset-finance/rent-distribution-service/transport/http"
	unitledger "rentshare/contexts/asset-finance/unit-ledger-service"
	unitdomainerrors "rentshare/contexts/asset-finance/unit-ledger-service/domain/errors"
	unithttp "rentshare/contexts/asset-finance/unit-ledger-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "rentshare/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	registry   rentdistribution.Module
	unitLedger unitledger.Module
}

func New(
	registry rentdistribution.Module,
	unitLedgerModule unitledger.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		registry:   registry,
		unitLedger: unitLedgerModule,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/registry/distributions", s.handleDeposit)
	s.mux.HandleFunc("GET /v1/registry/distributions/{index}", s.handleGetRecord)
	s.mux.HandleFunc("GET /v1/registry/summary", s.handleGlobalSummary)
	s.mux.HandleFunc("GET /v1/registry/holders/{holder_id}", s.handleHolderSummary)
	s.mux.HandleFunc("POST /v1/registry/withdrawals", s.handleWithdraw)

	s.mux.HandleFunc("POST /v1/units/transfers", s.handleTransfer)
	s.mux.HandleFunc("POST /v1/units/transfers/delegated", s.handleDelegatedTransfer)
	s.mux.HandleFunc("POST /v1/units/approvals", s.handleApprove)
	s.mux.HandleFunc("POST /v1/units/mint", s.handleMint)
	s.mux.HandleFunc("GET /v1/units/{holder_id}/balance", s.handleBalance)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeRegistryError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req renthttp.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.registry.Handler.DepositHandler(r.Context(), callerID, req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseInt(r.PathValue("index"), 10, 64)
	if err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_index", "index must be an integer")
		return
	}

	resp, err := s.registry.Handler.RecordHandler(r.Context(), index)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGlobalSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := s.registry.Handler.GlobalSummaryHandler(r.Context())
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHolderSummary(w http.ResponseWriter, r *http.Request) {
	holderID := r.PathValue("holder_id")
	resp, err := s.registry.Handler.HolderSummaryHandler(r.Context(), holderID)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	holderID := r.Header.Get("X-User-Id")
	if holderID == "" {
		writeRegistryError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	resp, err := s.registry.Handler.WithdrawHandler(r.Context(), holderID)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeUnitLedgerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req unithttp.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeUnitLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.unitLedger.Handler.TransferHandler(r.Context(), callerID, req); err != nil {
		writeUnitLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (s *Server) handleDelegatedTransfer(w http.ResponseWriter, r *http.Request) {
	spenderID := r.Header.Get("X-User-Id")
	if spenderID == "" {
		writeUnitLedgerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req unithttp.DelegatedTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeUnitLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.unitLedger.Handler.DelegatedTransferHandler(r.Context(), spenderID, req); err != nil {
		writeUnitLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	ownerID := r.Header.Get("X-User-Id")
	if ownerID == "" {
		writeUnitLedgerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req unithttp.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeUnitLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.unitLedger.Handler.ApproveHandler(r.Context(), ownerID, req); err != nil {
		writeUnitLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeUnitLedgerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req unithttp.MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeUnitLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.unitLedger.Handler.MintHandler(r.Context(), callerID, req); err != nil {
		writeUnitLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "minted"})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	holderID := r.PathValue("holder_id")
	resp, err := s.unitLedger.Handler.BalanceHandler(r.Context(), holderID)
	if err != nil {
		writeUnitLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeRegistryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rentdomainerrors.ErrInvalidDeposit):
		writeRegistryError(w, http.StatusBadRequest, "invalid_deposit", err.Error())
	case errors.Is(err, rentdomainerrors.ErrNotDepositAuthority):
		writeRegistryError(w, http.StatusForbidden, "not_deposit_authority", err.Error())
	case errors.Is(err, rentdomainerrors.ErrNoEligibleHolding):
		writeRegistryError(w, http.StatusForbidden, "no_eligible_holding", err.Error())
	case errors.Is(err, rentdomainerrors.ErrNothingToWithdraw):
		writeRegistryError(w, http.StatusConflict, "nothing_to_withdraw", err.Error())
	case errors.Is(err, rentdomainerrors.ErrWithdrawalInProgress):
		writeRegistryError(w, http.StatusConflict, "withdrawal_in_progress", err.Error())
	case errors.Is(err, rentdomainerrors.ErrIndexOutOfRange):
		writeRegistryError(w, http.StatusNotFound, "index_out_of_range", err.Error())
	case errors.Is(err, rentdomainerrors.ErrInsufficientCustody):
		writeRegistryError(w, http.StatusInternalServerError, "insufficient_custody", err.Error())
	case errors.Is(err, rentdomainerrors.ErrTransferFailed):
		writeRegistryError(w, http.StatusBadGateway, "transfer_failed", err.Error())
	default:
		writeRegistryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeUnitLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, unitdomainerrors.ErrInvalidTransfer),
		errors.Is(err, unitdomainerrors.ErrInvalidMint):
		writeUnitLedgerError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, unitdomainerrors.ErrNotMintAuthority):
		writeUnitLedgerError(w, http.StatusForbidden, "not_mint_authority", err.Error())
	case errors.Is(err, unitdomainerrors.ErrInsufficientUnits):
		writeUnitLedgerError(w, http.StatusUnprocessableEntity, "insufficient_units", err.Error())
	case errors.Is(err, unitdomainerrors.ErrAllowanceExceeded):
		writeUnitLedgerError(w, http.StatusUnprocessableEntity, "allowance_exceeded", err.Error())
	case errors.Is(err, unitdomainerrors.ErrObserverNotRegistered):
		writeUnitLedgerError(w, http.StatusServiceUnavailable, "observer_not_registered", err.Error())
	default:
		writeUnitLedgerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeRegistryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, renthttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeUnitLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, unithttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
