package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"gigledger/internal/metrics"
	"gigledger/internal/model"
)

// Tx is a transaction-scoped view of the directory and catalog. Every method
// runs inside one storage transaction: either the whole sequence commits or
// none of it is visible. *ForUpdate methods lock the row until commit.
type Tx interface {
	JobForUpdate(ctx context.Context, jobID int64) (*model.Job, error)
	Contract(ctx context.Context, contractID int64) (*model.Contract, error)
	ProfileForUpdate(ctx context.Context, profileID int64) (*model.Profile, error)
	ApplyBalanceDelta(ctx context.Context, profileID, delta int64) (int64, error)
	MarkJobPaid(ctx context.Context, jobID int64, at time.Time) error
	SumUnpaidJobPrices(ctx context.Context, clientID int64) (int64, error)
}

// Store runs a function transactionally against the ledger storage.
// A non-nil error from fn rolls the transaction back.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Bus publishes settlement events for the receipt journal worker.
type Bus interface {
	Publish(topic string, data []byte) error
}

// Invalidator drops cached balance views after a ledger mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, profileIDs ...int64)
}

const TopicPaymentsSettled = "payments.settled"

const (
	conflictRetries = 3
	conflictBackoff = 25 * time.Millisecond
)

// Ledger implements the two money-moving operations of the marketplace:
// settling a job payment and applying a balance deposit.
type Ledger struct {
	store Store
	bus   Bus
	cache Invalidator
	now   func() time.Time
}

func NewLedger(store Store, bus Bus, cache Invalidator) *Ledger {
	return &Ledger{store: store, bus: bus, cache: cache, now: time.Now}
}

// SettleJobPayment transfers the job's price from the contract's client to
// its contractor and marks the job paid, all in one transaction.
//
// Preconditions are checked in order, each with its own failure mode: the job
// exists, is not yet paid, its contract exists, the caller is the contract's
// client, and the caller's balance covers the price. The job row is locked
// first, so concurrent attempts on one job serialize there and the loser
// observes the paid flag.
func (l *Ledger) SettleJobPayment(ctx context.Context, callerID, jobID int64) (*model.Receipt, error) {
	var rec *model.Receipt
	err := l.withConflictRetry(ctx, func(ctx context.Context) error {
		rec = nil
		return l.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
			job, err := tx.JobForUpdate(ctx, jobID)
			if err != nil {
				return err
			}
			if job.Paid {
				return ErrAlreadyPaid
			}

			contract, err := tx.Contract(ctx, job.ContractID)
			if errors.Is(err, ErrContractNotFound) {
				slog.Error("job references a missing contract",
					"job_id", job.ID, "contract_id", job.ContractID)
				return fmt.Errorf("%w: job %d references missing contract %d",
					ErrIntegrity, job.ID, job.ContractID)
			}
			if err != nil {
				return err
			}
			if contract.ClientID != callerID {
				return ErrForbidden
			}

			payer, payee, err := lockPair(ctx, tx, contract.ClientID, contract.ContractorID)
			if err != nil {
				return err
			}
			if payer.Balance < job.Price {
				return ErrInsufficientFunds
			}

			if _, err := tx.ApplyBalanceDelta(ctx, payer.ID, -job.Price); err != nil {
				return err
			}
			if _, err := tx.ApplyBalanceDelta(ctx, payee.ID, job.Price); err != nil {
				return err
			}

			paidAt := l.now().UTC()
			if err := tx.MarkJobPaid(ctx, job.ID, paidAt); err != nil {
				return err
			}

			rec = &model.Receipt{
				ID:      uuid.NewString(),
				JobID:   job.ID,
				PayerID: payer.ID,
				PayeeID: payee.ID,
				Amount:  job.Price,
				PaidAt:  paidAt,
			}
			return nil
		})
	})
	metrics.Settlements.WithLabelValues(outcomeLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	l.cache.Invalidate(ctx, rec.PayerID, rec.PayeeID)
	l.publishReceipt(rec)
	return rec, nil
}

// ApplyDeposit credits a profile's own balance. The amount must be positive
// and may not exceed a quarter of the client's outstanding unpaid in-progress
// job total; a client with no such jobs has a cap of zero and cannot deposit.
func (l *Ledger) ApplyDeposit(ctx context.Context, callerID, targetID, amount int64) (int64, error) {
	newBalance, err := l.applyDeposit(ctx, callerID, targetID, amount)
	metrics.Deposits.WithLabelValues(outcomeLabel(err)).Inc()
	if err != nil {
		return 0, err
	}
	l.cache.Invalidate(ctx, targetID)
	return newBalance, nil
}

func (l *Ledger) applyDeposit(ctx context.Context, callerID, targetID, amount int64) (int64, error) {
	if callerID != targetID {
		return 0, ErrForbidden
	}
	if amount <= 0 || amount > model.MaxAmount {
		return 0, ErrInvalidAmount
	}

	var newBalance int64
	err := l.withConflictRetry(ctx, func(ctx context.Context) error {
		return l.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
			if _, err := tx.ProfileForUpdate(ctx, targetID); err != nil {
				return err
			}
			outstanding, err := tx.SumUnpaidJobPrices(ctx, targetID)
			if err != nil {
				return err
			}
			// 25% cap, exact in integer math. outstanding == 0 means
			// the cap is zero and every positive amount is rejected.
			if amount*4 > outstanding {
				return ErrDepositCapExceeded
			}
			newBalance, err = tx.ApplyBalanceDelta(ctx, targetID, amount)
			return err
		})
	})
	return newBalance, err
}

// lockPair locks both profile rows in ascending id order so two settlements
// touching the same pair never deadlock, then returns them as (payer, payee).
func lockPair(ctx context.Context, tx Tx, payerID, payeeID int64) (*model.Profile, *model.Profile, error) {
	first, second := payerID, payeeID
	if second < first {
		first, second = second, first
	}
	a, err := tx.ProfileForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b := a
	if second != first {
		if b, err = tx.ProfileForUpdate(ctx, second); err != nil {
			return nil, nil, err
		}
	}
	if a.ID == payerID {
		return a, b, nil
	}
	return b, a, nil
}

// withConflictRetry re-runs fn on serialization or transient storage
// failures. The transaction is already rolled back when these surface, so a
// retry starts from a clean snapshot and reproduces the clean outcome.
func (l *Ledger) withConflictRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(conflictRetries, retry.NewExponential(conflictBackoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// publishReceipt hands the settlement to the journal pipeline. The money has
// already moved; a publish failure is logged, never surfaced to the payer.
func (l *Ledger) publishReceipt(rec *model.Receipt) {
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Error("marshal receipt event", "job_id", rec.JobID, "error", err)
		return
	}
	if err := l.bus.Publish(TopicPaymentsSettled, data); err != nil {
		slog.Error("publish receipt event", "job_id", rec.JobID, "error", err)
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyPaid):
		return "already_paid"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrDepositCapExceeded):
		return "cap_exceeded"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	case errors.Is(err, ErrJobNotFound),
		errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrContractNotFound):
		return "not_found"
	default:
		return "error"
	}
}
