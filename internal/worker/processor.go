package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"gigledger/internal/metrics"
	"gigledger/internal/model"
	"gigledger/internal/service"
)

// Journal persists settlement receipts. Implemented by repository.Store.
type Journal interface {
	InsertReceipt(ctx context.Context, rec *model.Receipt) (bool, error)
}

// ReceiptWorker listens on the payments.settled topic and journals each
// settlement into the receipts table. Inserts are keyed by job id, so a
// redelivered event is a no-op.
type ReceiptWorker struct {
	journal  Journal
	natsConn *nats.Conn
}

func NewReceiptWorker(journal Journal, nc *nats.Conn) *ReceiptWorker {
	return &ReceiptWorker{
		journal:  journal,
		natsConn: nc,
	}
}

// Run subscribes to payments.settled and blocks until ctx is cancelled.
func (w *ReceiptWorker) Run(ctx context.Context) error {
	// QueueSubscribe: with several API instances running, each event is
	// delivered to exactly one worker in the group.
	sub, err := w.natsConn.QueueSubscribe(service.TopicPaymentsSettled, "receipt_workers", func(m *nats.Msg) {
		w.handle(ctx, m.Data)
	})

	if err != nil {
		return fmt.Errorf("worker: failed to subscribe to NATS: %w", err)
	}

	slog.Info("Receipt worker is running")

	// Wait for shutdown signal.
	<-ctx.Done()

	slog.Info("Worker received shutdown signal, draining subscription...")
	// Close subscription gracefully, waiting for current processing to complete.
	return sub.Drain()
}

func (w *ReceiptWorker) handle(ctx context.Context, data []byte) {
	var rec model.Receipt
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Error("worker: failed to unmarshal receipt event", "error", err)
		return
	}

	inserted, err := w.journal.InsertReceipt(ctx, &rec)
	if err != nil {
		slog.Error("worker: failed to journal receipt",
			"job_id", rec.JobID,
			"receipt_id", rec.ID,
			"error", err,
		)
		return
	}
	if !inserted {
		slog.Info("worker: receipt already journaled", "job_id", rec.JobID)
		return
	}

	metrics.ReceiptsJournaled.Inc()
	slog.Info("worker: receipt journaled",
		"job_id", rec.JobID,
		"payer_id", rec.PayerID,
		"payee_id", rec.PayeeID,
		"amount", rec.Amount,
	)
}

// Start implements the infrastructure.Server interface.
func (w *ReceiptWorker) Start(ctx context.Context) error {
	return w.Run(ctx)
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (w *ReceiptWorker) Stop(ctx context.Context) error {
	return nil
}
