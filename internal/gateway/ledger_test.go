package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newLedgerTestServer(t *testing.T) (*httptest.Server, *HTTPLedger) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/ACC-ACTIVE", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"account_id":"ACC-ACTIVE","status":"active"}`)
	})
	mux.HandleFunc("/accounts/ACC-FROZEN", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"account_id":"ACC-FROZEN","status":"frozen","active":false}`)
	})
	mux.HandleFunc("/accounts/ACC-ACTIVE/balance", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"account_id":"ACC-ACTIVE","balance":"2500.75","currency":"USD"}`)
	})
	mux.HandleFunc("/accounts/ACC-BAD/balance", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"account_id":"ACC-BAD","balance":"not-a-number","currency":"USD"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, NewHTTPLedger(server.URL, 2*time.Second)
}

func TestValidateAccountActive(t *testing.T) {
	_, ledger := newLedgerTestServer(t)
	status, err := ledger.ValidateAccount(context.Background(), "ACC-ACTIVE")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !status.Exists || !status.Active {
		t.Fatalf("expected existing active account, got %+v", status)
	}
}

func TestValidateAccountInactive(t *testing.T) {
	_, ledger := newLedgerTestServer(t)
	status, err := ledger.ValidateAccount(context.Background(), "ACC-FROZEN")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !status.Exists || status.Active {
		t.Fatalf("expected existing inactive account, got %+v", status)
	}
}

func TestValidateAccountNotFound(t *testing.T) {
	_, ledger := newLedgerTestServer(t)
	status, err := ledger.ValidateAccount(context.Background(), "ACC-MISSING")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if status.Exists {
		t.Fatalf("404 should map to non existing account, got %+v", status)
	}
}

func TestCheckBalance(t *testing.T) {
	_, ledger := newLedgerTestServer(t)
	balance, err := ledger.CheckBalance(context.Background(), "ACC-ACTIVE")
	if err != nil {
		t.Fatalf("check balance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("2500.75")) {
		t.Fatalf("unexpected balance: %s", balance)
	}
}

func TestCheckBalanceInvalidPayload(t *testing.T) {
	_, ledger := newLedgerTestServer(t)
	_, err := ledger.CheckBalance(context.Background(), "ACC-BAD")
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got: %v", err)
	}
}

func TestRequestFailure(t *testing.T) {
	server, _ := newLedgerTestServer(t)
	server.Close()
	ledger := NewHTTPLedger(server.URL, time.Second)
	_, err := ledger.ValidateAccount(context.Background(), "ACC-ACTIVE")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got: %v", err)
	}
}
