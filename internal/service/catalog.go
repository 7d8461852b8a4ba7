package service

import (
	"context"

	"gigledger/internal/model"
)

// Reader is the non-transactional read side of the directory and catalog.
type Reader interface {
	Profile(ctx context.Context, profileID int64) (*model.Profile, error)
	ContractByID(ctx context.Context, contractID int64) (*model.Contract, error)
	ContractsFor(ctx context.Context, profileID int64) ([]model.Contract, error)
	UnpaidJobsFor(ctx context.Context, profileID int64) ([]model.Job, error)
}

// BalanceView serves balance reads, typically cache-backed.
type BalanceView interface {
	Balance(ctx context.Context, profileID int64) (int64, error)
}

// Catalog exposes the read-only marketplace views: contracts and unpaid jobs
// scoped to the calling profile, and the profile's current balance.
type Catalog struct {
	reader   Reader
	balances BalanceView
}

func NewCatalog(reader Reader, balances BalanceView) *Catalog {
	return &Catalog{reader: reader, balances: balances}
}

// ContractByID returns the contract only if the caller is one of its
// parties; anything else looks like a missing contract to the caller.
func (c *Catalog) ContractByID(ctx context.Context, callerID, contractID int64) (*model.Contract, error) {
	contract, err := c.reader.ContractByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !contract.IsParty(callerID) {
		return nil, ErrContractNotFound
	}
	return contract, nil
}

// ContractsFor lists the caller's non-terminated contracts.
func (c *Catalog) ContractsFor(ctx context.Context, callerID int64) ([]model.Contract, error) {
	return c.reader.ContractsFor(ctx, callerID)
}

// UnpaidJobsFor lists unpaid jobs on the caller's in-progress contracts,
// whichever side of the contract the caller is on.
func (c *Catalog) UnpaidJobsFor(ctx context.Context, callerID int64) ([]model.Job, error) {
	return c.reader.UnpaidJobsFor(ctx, callerID)
}

// BalanceOf returns the caller's current balance.
func (c *Catalog) BalanceOf(ctx context.Context, callerID int64) (int64, error) {
	return c.balances.Balance(ctx, callerID)
}
