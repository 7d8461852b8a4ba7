package service

import "errors"

// Every failure mode of the ledger is a distinct sentinel so transports can
// map outcomes without string matching.
var (
	ErrJobNotFound      = errors.New("job not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrContractNotFound = errors.New("contract not found")

	ErrForbidden          = errors.New("forbidden")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAlreadyPaid        = errors.New("job already paid")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDepositCapExceeded = errors.New("deposit exceeds 25% of outstanding unpaid jobs")

	// ErrConflict is a serialization failure between concurrent ledger
	// mutations; the operation was rolled back and may be retried.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrUnavailable is a transient storage failure; the operation was
	// rolled back and may be retried with backoff.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrIntegrity marks broken referential state, e.g. a job whose
	// contract is gone. Logged and never retried.
	ErrIntegrity = errors.New("data integrity violation")
)
