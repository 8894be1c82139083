package unit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	renthttp "rentshare/contexts/asset-finance/rent-distribution-service/transport/http"
	"rentshare/internal/platform/httpserver"
)

func newHTTPFixture() http.Handler {
	registry, ledger := newRegistryFixture()
	server := httpserver.New(registry, ledger, nil, ":0")
	return server.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, userID string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestHTTPDepositTransferWithdrawFlow(t *testing.T) {
	handler := newHTTPFixture()

	resp := doJSON(t, handler, http.MethodPost, "/v1/units/mint", testMintAuthority, `{"to_id":"holder-a","units":100}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("mint status %d: %s", resp.Code, resp.Body.String())
	}
	resp = doJSON(t, handler, http.MethodPost, "/v1/units/mint", testMintAuthority, `{"to_id":"holder-c","units":900}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("mint status %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, handler, http.MethodPost, "/v1/registry/distributions", testDepositAuthority, `{"amount":1000}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("deposit status %d: %s", resp.Code, resp.Body.String())
	}
	var record renthttp.DistributionRecordDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode deposit response: %v", err)
	}
	if record.Index != 1 || record.SupplySnapshot != 1000 {
		t.Fatalf("unexpected record: %+v", record)
	}

	resp = doJSON(t, handler, http.MethodPost, "/v1/units/transfers", "holder-a", `{"to_id":"holder-b","units":100}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("transfer status %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, handler, http.MethodGet, "/v1/registry/holders/holder-a", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("holder summary status %d: %s", resp.Code, resp.Body.String())
	}
	var summary renthttp.HolderSummaryDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode holder summary: %v", err)
	}
	if summary.Holding != 0 || summary.PendingWithdrawable != 100 {
		t.Fatalf("expected frozen entitlement after sale, got %+v", summary)
	}

	resp = doJSON(t, handler, http.MethodPost, "/v1/registry/withdrawals", "holder-b", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("buyer with nothing accrued should get 409, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, handler, http.MethodPost, "/v1/registry/distributions", testDepositAuthority, `{"amount":1000}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("second deposit status %d: %s", resp.Code, resp.Body.String())
	}
	resp = doJSON(t, handler, http.MethodPost, "/v1/registry/withdrawals", "holder-b", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("withdraw status %d: %s", resp.Code, resp.Body.String())
	}
	var withdrawal renthttp.WithdrawResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &withdrawal); err != nil {
		t.Fatalf("decode withdrawal: %v", err)
	}
	if withdrawal.Amount != 100 {
		t.Fatalf("expected withdrawal of 100, got %d", withdrawal.Amount)
	}
}

func TestHTTPDomainErrorMapping(t *testing.T) {
	handler := newHTTPFixture()

	// Deposit with no supply minted yet.
	resp := doJSON(t, handler, http.MethodPost, "/v1/registry/distributions", testDepositAuthority, `{"amount":1000}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for deposit against zero supply, got %d", resp.Code)
	}

	resp = doJSON(t, handler, http.MethodPost, "/v1/registry/distributions", "impostor", `{"amount":1000}`)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-authority deposit, got %d", resp.Code)
	}

	resp = doJSON(t, handler, http.MethodPost, "/v1/registry/distributions", "", `{"amount":1000}`)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity header, got %d", resp.Code)
	}

	resp = doJSON(t, handler, http.MethodGet, "/v1/registry/distributions/99", "", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown record, got %d", resp.Code)
	}

	resp = doJSON(t, handler, http.MethodPost, "/v1/registry/withdrawals", "holder-z", "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for holder without units, got %d", resp.Code)
	}

	resp = doJSON(t, handler, http.MethodPost, "/v1/units/mint", "impostor", `{"to_id":"holder-a","units":10}`)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-authority mint, got %d", resp.Code)
	}

	var errResp renthttp.ErrorResponse
	resp = doJSON(t, handler, http.MethodGet, "/v1/registry/distributions/99", "", "")
	if err := json.Unmarshal(resp.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != "index_out_of_range" {
		t.Fatalf("unexpected error code %q", errResp.Code)
	}
}

func TestHTTPUnitLedgerAllowanceFlow(t *testing.T) {
	handler := newHTTPFixture()

	resp := doJSON(t, handler, http.MethodPost, "/v1/units/mint", testMintAuthority, `{"to_id":"holder-a","units":100}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("mint status %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, handler, http.MethodPost, "/v1/units/transfers/delegated", "spender-1", `{"from_id":"holder-a","to_id":"holder-b","units":30}`)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without allowance, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, handler, http.MethodPost, "/v1/units/approvals", "holder-a", `{"spender_id":"spender-1","units":50}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("approve status %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, handler, http.MethodPost, "/v1/units/transfers/delegated", "spender-1", `{"from_id":"holder-a","to_id":"holder-b","units":30}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("delegated transfer status %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, handler, http.MethodGet, "/v1/units/holder-b/balance", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("balance status %d: %s", resp.Code, resp.Body.String())
	}
	var balance struct {
		HolderID string `json:"holder_id"`
		Units    int64  `json:"units"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Units != 30 {
		t.Fatalf("expected holder-b balance 30, got %d", balance.Units)
	}
}
