package persistence

import (
	"DiamondLedger/internal/observability"
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// Output mirrors core.CoreOutput to avoid an import cycle. The
// orchestrator (cmd/diamondledger) bridges between the two.
type Output struct {
	EventRow   EventRow
	Payouts    []PayoutRow
	Provenance *ProvenanceRow
}

// Worker drains the persist channel and batch-writes to Postgres. It
// runs on its own goroutine; the core's sends into the channel are
// BLOCKING, so if this worker falls behind the settlement loop stalls
// rather than lose an event.
type Worker struct {
	writer       *EventLogWriter
	db           *sql.DB
	inputChan    <-chan Output
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
}

func NewWorker(
	db *sql.DB,
	inputChan <-chan Output,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
) *Worker {
	return &Worker{
		writer:       NewEventLogWriter(db),
		db:           db,
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
	}
}

// Run starts the persistence loop. It batches incoming outputs and
// flushes either when the batch is full or the flush timeout expires.
// Blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	events := make([]EventRow, 0, w.batchSize)
	payouts := make([]PayoutRow, 0, w.batchSize*2)
	provenance := make([]ProvenanceRow, 0, w.batchSize)

	timer := time.NewTimer(w.flushTimeout)
	defer timer.Stop()

	flushAll := func(flushCtx context.Context) error {
		err := w.flushWithRetry(flushCtx, events, payouts, provenance)
		events = events[:0]
		payouts = payouts[:0]
		provenance = provenance[:0]
		return err
	}

	for {
		select {
		case <-ctx.Done():
			// Graceful shutdown: flush remaining with a fresh context
			if len(events) > 0 {
				if err := flushAll(context.Background()); err != nil {
					log.Printf("ERROR: final flush failed: %v", err)
				}
			}
			return ctx.Err()

		case output, ok := <-w.inputChan:
			if !ok {
				if len(events) > 0 {
					if err := flushAll(context.Background()); err != nil {
						log.Printf("ERROR: final flush failed: %v", err)
					}
				}
				return nil
			}

			events = append(events, output.EventRow)
			payouts = append(payouts, output.Payouts...)
			if output.Provenance != nil {
				provenance = append(provenance, *output.Provenance)
			}

			if len(events) >= w.batchSize {
				if err := flushAll(ctx); err != nil {
					log.Printf("ERROR: batch flush failed: %v", err)
				}
				timer.Reset(w.flushTimeout)
			}

		case <-timer.C:
			if len(events) > 0 {
				if err := flushAll(ctx); err != nil {
					log.Printf("ERROR: timeout flush failed: %v", err)
				}
			}
			timer.Reset(w.flushTimeout)
		}
	}
}

// flushWithRetry retries with exponential backoff. The worker never
// drops a batch: it keeps retrying until the write succeeds or, on
// shutdown, makes one last attempt with a background context.
func (w *Worker) flushWithRetry(ctx context.Context, events []EventRow, payouts []PayoutRow, provenance []ProvenanceRow) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Printf("WARN: persistence retry attempt %d (backoff=%v, events=%d)",
				attempt, backoff, len(events))
			if w.metrics != nil {
				w.metrics.PersistRetry.Inc()
			}
			select {
			case <-ctx.Done():
				finalErr := w.flush(context.Background(), events, payouts, provenance)
				if finalErr != nil {
					return fmt.Errorf("final flush on shutdown failed: %w", finalErr)
				}
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := w.flush(ctx, events, payouts, provenance)
		if err == nil {
			if attempt > 0 {
				log.Printf("INFO: persistence flush succeeded after %d retries", attempt)
			}
			return nil
		}
	}
}

func (w *Worker) flush(ctx context.Context, events []EventRow, payouts []PayoutRow, provenance []ProvenanceRow) error {
	start := time.Now()

	// All rows for a batch commit in one transaction
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("tx_begin").Inc()
		}
		return err
	}
	defer tx.Rollback()

	if err := w.writer.WriteEventBatch(ctx, tx, events); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("write_events").Inc()
		}
		return err
	}

	if err := w.writer.WritePayoutBatch(ctx, tx, payouts); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("write_payouts").Inc()
		}
		return err
	}

	if err := w.writer.WriteProvenanceBatch(ctx, tx, provenance); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("write_provenance").Inc()
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("tx_commit").Inc()
		}
		return err
	}

	if w.metrics != nil {
		w.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		w.metrics.PersistEventsWritten.Add(float64(len(events)))
		w.metrics.PersistRowsWritten.WithLabelValues("payouts").Add(float64(len(payouts)))
		w.metrics.PersistRowsWritten.WithLabelValues("provenance").Add(float64(len(provenance)))
		if len(events) > 0 {
			w.metrics.PersistLastSequence.Set(float64(events[len(events)-1].Sequence))
		}
	}

	return nil
}
