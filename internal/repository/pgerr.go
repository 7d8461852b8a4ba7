package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"gigledger/internal/service"
)

// Postgres error codes that mean the transaction lost a race and can be
// retried from a clean snapshot.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// SQLSTATE classes for failures of the connection or the server itself.
const (
	classConnection            = "08"
	classInsufficientResources = "53"
	classOperatorIntervention  = "57"
)

// mapPgError translates driver errors into the ledger's typed failures:
// serialization losses become ErrConflict (retry immediately), everything
// infrastructural becomes ErrUnavailable (retry with backoff). Context
// cancellation passes through untouched.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected:
			return fmt.Errorf("%w: %s", service.ErrConflict, pgErr.Message)
		case strings.HasPrefix(pgErr.Code, classConnection),
			strings.HasPrefix(pgErr.Code, classInsufficientResources),
			strings.HasPrefix(pgErr.Code, classOperatorIntervention):
			return fmt.Errorf("%w: %s", service.ErrUnavailable, pgErr.Message)
		}
		return fmt.Errorf("%w: %s (%s)", service.ErrUnavailable, pgErr.Message, pgErr.Code)
	}

	// Network errors, closed pools, timeouts: all transient from the
	// caller's point of view.
	return fmt.Errorf("%w: %v", service.ErrUnavailable, err)
}
