package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"gigledger/internal/service"
)

func TestMapPgError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"serialization failure", &pgconn.PgError{Code: "40001", Message: "could not serialize access"}, service.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}, service.ErrConflict},
		{"connection failure", &pgconn.PgError{Code: "08006", Message: "connection failure"}, service.ErrUnavailable},
		{"out of memory", &pgconn.PgError{Code: "53200", Message: "out of memory"}, service.ErrUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01", Message: "terminating connection"}, service.ErrUnavailable},
		{"unknown pg error", &pgconn.PgError{Code: "42601", Message: "syntax error"}, service.ErrUnavailable},
		{"plain error", errors.New("broken pipe"), service.ErrUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapPgError(tc.in)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("got %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMapPgError_ContextPassthrough(t *testing.T) {
	for _, err := range []error{context.Canceled, context.DeadlineExceeded} {
		got := mapPgError(err)
		if !errors.Is(got, err) {
			t.Errorf("got %v, want %v", got, err)
		}
		if errors.Is(got, service.ErrUnavailable) {
			t.Errorf("%v wrongly classified as unavailable", err)
		}
	}
}
