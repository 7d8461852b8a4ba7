package service

import (
	"context"
	"errors"
	"testing"

	"gigledger/internal/model"
)

type stubReader struct {
	contract  *model.Contract
	contracts []model.Contract
	jobs      []model.Job
	err       error
}

func (s *stubReader) Profile(ctx context.Context, profileID int64) (*model.Profile, error) {
	return nil, ErrProfileNotFound
}

func (s *stubReader) ContractByID(ctx context.Context, contractID int64) (*model.Contract, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.contract, nil
}

func (s *stubReader) ContractsFor(ctx context.Context, profileID int64) ([]model.Contract, error) {
	return s.contracts, s.err
}

func (s *stubReader) UnpaidJobsFor(ctx context.Context, profileID int64) ([]model.Job, error) {
	return s.jobs, s.err
}

type stubBalances struct {
	balance int64
	err     error
}

func (s *stubBalances) Balance(ctx context.Context, profileID int64) (int64, error) {
	return s.balance, s.err
}

func TestContractByID_PartyOnly(t *testing.T) {
	contract := &model.Contract{ID: 10, ClientID: 1, ContractorID: 2, Status: model.ContractInProgress}
	catalog := NewCatalog(&stubReader{contract: contract}, &stubBalances{})

	for _, caller := range []int64{1, 2} {
		got, err := catalog.ContractByID(context.Background(), caller, 10)
		if err != nil {
			t.Fatalf("caller %d: unexpected error: %v", caller, err)
		}
		if got.ID != 10 {
			t.Errorf("caller %d: got contract %d", caller, got.ID)
		}
	}

	// A non-party sees the same NotFound as a missing contract.
	if _, err := catalog.ContractByID(context.Background(), 3, 10); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("stranger: err = %v, want ErrContractNotFound", err)
	}
}

func TestContractByID_Missing(t *testing.T) {
	catalog := NewCatalog(&stubReader{err: ErrContractNotFound}, &stubBalances{})

	if _, err := catalog.ContractByID(context.Background(), 1, 99); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("err = %v, want ErrContractNotFound", err)
	}
}

func TestBalanceOf(t *testing.T) {
	catalog := NewCatalog(&stubReader{}, &stubBalances{balance: 4200})

	got, err := catalog.BalanceOf(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4200 {
		t.Errorf("balance = %d, want 4200", got)
	}
}
