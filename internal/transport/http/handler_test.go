package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gigledger/internal/model"
	"gigledger/internal/service"
)

type mockLedger struct {
	receipt    *model.Receipt
	payErr     error
	newBalance int64
	depositErr error
}

func (m *mockLedger) SettleJobPayment(ctx context.Context, callerID, jobID int64) (*model.Receipt, error) {
	if m.payErr != nil {
		return nil, m.payErr
	}
	return m.receipt, nil
}

func (m *mockLedger) ApplyDeposit(ctx context.Context, callerID, targetID, amount int64) (int64, error) {
	if m.depositErr != nil {
		return 0, m.depositErr
	}
	return m.newBalance, nil
}

type mockCatalog struct {
	contract *model.Contract
	err      error
	balance  int64
}

func (m *mockCatalog) ContractByID(ctx context.Context, callerID, contractID int64) (*model.Contract, error) {
	return m.contract, m.err
}

func (m *mockCatalog) ContractsFor(ctx context.Context, callerID int64) ([]model.Contract, error) {
	return nil, m.err
}

func (m *mockCatalog) UnpaidJobsFor(ctx context.Context, callerID int64) ([]model.Job, error) {
	return nil, m.err
}

func (m *mockCatalog) BalanceOf(ctx context.Context, callerID int64) (int64, error) {
	return m.balance, m.err
}

type mockDirectory struct {
	profiles map[int64]*model.Profile
}

func (m *mockDirectory) Profile(ctx context.Context, profileID int64) (*model.Profile, error) {
	p, ok := m.profiles[profileID]
	if !ok {
		return nil, service.ErrProfileNotFound
	}
	return p, nil
}

func newTestMux(ledger LedgerService, catalog CatalogService) *http.ServeMux {
	dir := &mockDirectory{profiles: map[int64]*model.Profile{
		1: {ID: 1, Role: model.RoleClient, Balance: 10000},
	}}
	mux := http.NewServeMux()
	NewHandler(ledger, catalog).Register(mux, Authenticate(dir))
	return mux
}

func doRequest(mux *http.ServeMux, method, target, profileID, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if profileID != "" {
		r.Header.Set(ProfileHeader, profileID)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestPayJob_Success(t *testing.T) {
	rec := &model.Receipt{ID: "r1", JobID: 100, PayerID: 1, PayeeID: 2, Amount: 4000, PaidAt: time.Now()}
	mux := newTestMux(&mockLedger{receipt: rec}, &mockCatalog{})

	w := doRequest(mux, http.MethodPost, "/jobs/100/pay", "1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got model.Receipt
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if got.JobID != 100 || got.Amount != 4000 {
		t.Errorf("wrong receipt body: %+v", got)
	}
}

func TestPayJob_ErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrAlreadyPaid, http.StatusBadRequest},
		{service.ErrInsufficientFunds, http.StatusBadRequest},
		{service.ErrJobNotFound, http.StatusNotFound},
		{service.ErrIntegrity, http.StatusNotFound},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		mux := newTestMux(&mockLedger{payErr: tc.err}, &mockCatalog{})
		w := doRequest(mux, http.MethodPost, "/jobs/100/pay", "1", "")
		if w.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}

func TestPayJob_BadJobID(t *testing.T) {
	mux := newTestMux(&mockLedger{}, &mockCatalog{})
	w := doRequest(mux, http.MethodPost, "/jobs/abc/pay", "1", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDeposit_Success(t *testing.T) {
	mux := newTestMux(&mockLedger{newBalance: 12500}, &mockCatalog{})

	w := doRequest(mux, http.MethodPost, "/balances/deposit/1", "1", `{"amount": 25}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got map[string]float64
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["balance"] != 125 {
		t.Errorf("balance = %v, want 125", got["balance"])
	}
}

func TestDeposit_InvalidAmounts(t *testing.T) {
	mux := newTestMux(&mockLedger{}, &mockCatalog{})

	for _, body := range []string{`{"amount": 0}`, `{"amount": -5}`, `{"amount": 0.001}`, `{}`, `not json`} {
		w := doRequest(mux, http.MethodPost, "/balances/deposit/1", "1", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestDeposit_ErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrDepositCapExceeded, http.StatusBadRequest},
		{service.ErrInvalidAmount, http.StatusBadRequest},
		{service.ErrProfileNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		mux := newTestMux(&mockLedger{depositErr: tc.err}, &mockCatalog{})
		w := doRequest(mux, http.MethodPost, "/balances/deposit/2", "1", `{"amount": 10}`)
		if w.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	mux := newTestMux(&mockLedger{}, &mockCatalog{balance: 100})

	// Missing header.
	if w := doRequest(mux, http.MethodGet, "/balance", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing header: status = %d, want 401", w.Code)
	}
	// Malformed id.
	if w := doRequest(mux, http.MethodGet, "/balance", "zero", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("malformed id: status = %d, want 401", w.Code)
	}
	// Unknown profile.
	if w := doRequest(mux, http.MethodGet, "/balance", "99", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("unknown profile: status = %d, want 401", w.Code)
	}
	// Known profile passes through.
	if w := doRequest(mux, http.MethodGet, "/balance", "1", ""); w.Code != http.StatusOK {
		t.Errorf("known profile: status = %d, want 200", w.Code)
	}
}

func TestContractByID_NotFound(t *testing.T) {
	mux := newTestMux(&mockLedger{}, &mockCatalog{err: service.ErrContractNotFound})
	if w := doRequest(mux, http.MethodGet, "/contracts/10", "1", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHealth_Unauthenticated(t *testing.T) {
	mux := newTestMux(&mockLedger{}, &mockCatalog{})
	if w := doRequest(mux, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	mux := newTestMux(&mockLedger{}, &mockCatalog{})
	limited := RateLimit(NewLimiterStore(1, 1))(mux)

	first := httptest.NewRequest(http.MethodGet, "/health", nil)
	w1 := httptest.NewRecorder()
	limited.ServeHTTP(w1, first)
	if w1.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", w1.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/health", nil)
	w2 := httptest.NewRecorder()
	limited.ServeHTTP(w2, second)
	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", w2.Code)
	}
}
