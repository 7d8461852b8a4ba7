package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gigledger/internal/metrics"
	"gigledger/internal/model"
	"gigledger/internal/service"
)

// LedgerService is the money-moving side of the API.
type LedgerService interface {
	SettleJobPayment(ctx context.Context, callerID, jobID int64) (*model.Receipt, error)
	ApplyDeposit(ctx context.Context, callerID, targetID, amount int64) (int64, error)
}

// CatalogService is the read-only side of the API.
type CatalogService interface {
	ContractByID(ctx context.Context, callerID, contractID int64) (*model.Contract, error)
	ContractsFor(ctx context.Context, callerID int64) ([]model.Contract, error)
	UnpaidJobsFor(ctx context.Context, callerID int64) ([]model.Job, error)
	BalanceOf(ctx context.Context, callerID int64) (int64, error)
}

type Handler struct {
	ledger  LedgerService
	catalog CatalogService
}

func NewHandler(ledger LedgerService, catalog CatalogService) *Handler {
	return &Handler{ledger: ledger, catalog: catalog}
}

func (h *Handler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	protected := func(fn http.HandlerFunc) http.Handler { return auth(fn) }
	mux.Handle("GET /contracts/{id}", protected(h.ContractByID))
	mux.Handle("GET /contracts", protected(h.Contracts))
	mux.Handle("GET /jobs/unpaid", protected(h.UnpaidJobs))
	mux.Handle("POST /jobs/{id}/pay", protected(h.PayJob))
	mux.Handle("POST /balances/deposit/{id}", protected(h.Deposit))
	mux.Handle("GET /balance", protected(h.Balance))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) ContractByID(w http.ResponseWriter, r *http.Request) {
	caller := CallerProfile(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_contract_id")
		return
	}
	contract, err := h.catalog.ContractByID(r.Context(), caller.ID, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, contract)
}

func (h *Handler) Contracts(w http.ResponseWriter, r *http.Request) {
	caller := CallerProfile(r.Context())
	contracts, err := h.catalog.ContractsFor(r.Context(), caller.ID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if contracts == nil {
		contracts = []model.Contract{}
	}
	h.respondJSON(w, http.StatusOK, contracts)
}

func (h *Handler) UnpaidJobs(w http.ResponseWriter, r *http.Request) {
	caller := CallerProfile(r.Context())
	jobs, err := h.catalog.UnpaidJobsFor(r.Context(), caller.ID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	h.respondJSON(w, http.StatusOK, jobs)
}

func (h *Handler) PayJob(w http.ResponseWriter, r *http.Request) {
	caller := CallerProfile(r.Context())
	jobID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_job_id")
		return
	}
	receipt, err := h.ledger.SettleJobPayment(r.Context(), caller.ID, jobID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, receipt)
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	caller := CallerProfile(r.Context())
	targetID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_profile_id")
		return
	}
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		h.respondServiceError(w, service.ErrInvalidAmount)
		return
	}
	balance, err := h.ledger.ApplyDeposit(r.Context(), caller.ID, targetID, amount)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]float64{"balance": model.FormatAmount(balance)})
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	caller := CallerProfile(r.Context())
	balance, err := h.catalog.BalanceOf(r.Context(), caller.ID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]float64{"balance": model.FormatAmount(balance)})
}

// respondServiceError maps the ledger's typed failures onto HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		h.respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrInvalidAmount):
		h.respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, service.ErrAlreadyPaid):
		h.respondError(w, http.StatusBadRequest, "already_paid")
	case errors.Is(err, service.ErrInsufficientFunds):
		h.respondError(w, http.StatusBadRequest, "insufficient_funds")
	case errors.Is(err, service.ErrDepositCapExceeded):
		h.respondError(w, http.StatusBadRequest, "deposit_cap_exceeded")
	case errors.Is(err, service.ErrJobNotFound):
		h.respondError(w, http.StatusNotFound, "job_not_found")
	case errors.Is(err, service.ErrProfileNotFound):
		h.respondError(w, http.StatusNotFound, "profile_not_found")
	case errors.Is(err, service.ErrContractNotFound), errors.Is(err, service.ErrIntegrity):
		h.respondError(w, http.StatusNotFound, "contract_not_found")
	case errors.Is(err, service.ErrConflict):
		h.respondError(w, http.StatusConflict, "conflict")
	case errors.Is(err, service.ErrUnavailable):
		h.respondError(w, http.StatusServiceUnavailable, "unavailable")
	default:
		h.respondError(w, http.StatusInternalServerError, "internal_error")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
