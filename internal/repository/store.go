package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gigledger/internal/model"
	"gigledger/internal/service"
)

// Store is the Postgres-backed directory and catalog. It implements
// service.Store for the transactional ledger mutations and service.Reader
// for the read-only views.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn inside one database transaction. Any error from fn or from
// commit rolls everything back, so a failed ledger operation leaves no
// partial state.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx service.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &ledgerTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

// ledgerTx implements service.Tx over one pgx transaction. Row locks taken
// by the *ForUpdate statements are held until the transaction ends, which is
// what serializes concurrent settlements and deposits on the same rows.
type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) JobForUpdate(ctx context.Context, jobID int64) (*model.Job, error) {
	var j model.Job
	err := t.tx.QueryRow(ctx,
		`SELECT id, contract_id, description, price, paid, payment_date
		   FROM jobs WHERE id = $1 FOR UPDATE`, jobID,
	).Scan(&j.ID, &j.ContractID, &j.Description, &j.Price, &j.Paid, &j.PaymentDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrJobNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return &j, nil
}

func (t *ledgerTx) Contract(ctx context.Context, contractID int64) (*model.Contract, error) {
	c, err := scanContract(t.tx.QueryRow(ctx,
		`SELECT id, client_id, contractor_id, terms, status
		   FROM contracts WHERE id = $1`, contractID))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (t *ledgerTx) ProfileForUpdate(ctx context.Context, profileID int64) (*model.Profile, error) {
	var p model.Profile
	err := t.tx.QueryRow(ctx,
		`SELECT id, first_name, last_name, profession, role, balance
		   FROM profiles WHERE id = $1 FOR UPDATE`, profileID,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Profession, &p.Role, &p.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrProfileNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

// ApplyBalanceDelta adjusts a balance with a non-negativity guard in the
// statement itself: a debit that would overdraw matches no row.
func (t *ledgerTx) ApplyBalanceDelta(ctx context.Context, profileID, delta int64) (int64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx,
		`UPDATE profiles SET balance = balance + $2
		  WHERE id = $1 AND balance + $2 >= 0
		  RETURNING balance`, profileID, delta,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		if delta < 0 {
			return 0, service.ErrInsufficientFunds
		}
		return 0, service.ErrProfileNotFound
	}
	if err != nil {
		return 0, mapPgError(err)
	}
	return balance, nil
}

// MarkJobPaid sets the paid flag and payment date exactly once; a job that
// is already paid matches no row and surfaces as ErrAlreadyPaid.
func (t *ledgerTx) MarkJobPaid(ctx context.Context, jobID int64, at time.Time) error {
	ct, err := t.tx.Exec(ctx,
		`UPDATE jobs SET paid = TRUE, payment_date = $2
		  WHERE id = $1 AND NOT paid`, jobID, at)
	if err != nil {
		return mapPgError(err)
	}
	if ct.RowsAffected() == 0 {
		return service.ErrAlreadyPaid
	}
	return nil
}

func (t *ledgerTx) SumUnpaidJobPrices(ctx context.Context, clientID int64) (int64, error) {
	var total int64
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(j.price), 0)
		   FROM jobs j
		   JOIN contracts c ON c.id = j.contract_id
		  WHERE c.client_id = $1
		    AND c.status = 'in_progress'
		    AND NOT j.paid`, clientID,
	).Scan(&total)
	if err != nil {
		return 0, mapPgError(err)
	}
	return total, nil
}

// ── Read side (service.Reader) ────────────────────────────────────────────

func (s *Store) Profile(ctx context.Context, profileID int64) (*model.Profile, error) {
	var p model.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, profession, role, balance
		   FROM profiles WHERE id = $1`, profileID,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Profession, &p.Role, &p.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrProfileNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

func (s *Store) ContractByID(ctx context.Context, contractID int64) (*model.Contract, error) {
	return scanContract(s.pool.QueryRow(ctx,
		`SELECT id, client_id, contractor_id, terms, status
		   FROM contracts WHERE id = $1`, contractID))
}

func (s *Store) ContractsFor(ctx context.Context, profileID int64) ([]model.Contract, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, client_id, contractor_id, terms, status
		   FROM contracts
		  WHERE (client_id = $1 OR contractor_id = $1)
		    AND status <> 'terminated'
		  ORDER BY id`, profileID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []model.Contract
	for rows.Next() {
		var c model.Contract
		if err := rows.Scan(&c.ID, &c.ClientID, &c.ContractorID, &c.Terms, &c.Status); err != nil {
			return nil, mapPgError(err)
		}
		out = append(out, c)
	}
	return out, mapPgError(rows.Err())
}

func (s *Store) UnpaidJobsFor(ctx context.Context, profileID int64) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT j.id, j.contract_id, j.description, j.price, j.paid, j.payment_date
		   FROM jobs j
		   JOIN contracts c ON c.id = j.contract_id
		  WHERE (c.client_id = $1 OR c.contractor_id = $1)
		    AND c.status = 'in_progress'
		    AND NOT j.paid
		  ORDER BY j.id`, profileID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(&j.ID, &j.ContractID, &j.Description, &j.Price, &j.Paid, &j.PaymentDate); err != nil {
			return nil, mapPgError(err)
		}
		out = append(out, j)
	}
	return out, mapPgError(rows.Err())
}

// ProfileBalance reads one balance straight from the profiles table. The
// redis cache falls back to this on a miss.
func (s *Store) ProfileBalance(ctx context.Context, profileID int64) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx,
		`SELECT balance FROM profiles WHERE id = $1`, profileID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, service.ErrProfileNotFound
	}
	if err != nil {
		return 0, mapPgError(err)
	}
	return balance, nil
}

// InsertReceipt journals a settlement. Keyed unique by job id, so replayed
// events are no-ops; returns whether a row was actually written.
func (s *Store) InsertReceipt(ctx context.Context, rec *model.Receipt) (bool, error) {
	ct, err := s.pool.Exec(ctx,
		`INSERT INTO receipts (id, job_id, payer_id, payee_id, amount, paid_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (job_id) DO NOTHING`,
		rec.ID, rec.JobID, rec.PayerID, rec.PayeeID, rec.Amount, rec.PaidAt)
	if err != nil {
		return false, mapPgError(err)
	}
	return ct.RowsAffected() > 0, nil
}

func scanContract(row pgx.Row) (*model.Contract, error) {
	var c model.Contract
	err := row.Scan(&c.ID, &c.ClientID, &c.ContractorID, &c.Terms, &c.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrContractNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return &c, nil
}
