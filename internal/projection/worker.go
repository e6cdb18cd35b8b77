package projection

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Output mirrors the slice of core.CoreOutput the projections need.
// The orchestrator bridges between the two.
type Output struct {
	Sequence  int64
	EventType string
	Timestamp int64
	Payouts   []PayoutEntry
	Unlock    *UnlockEntry
}

// PayoutEntry is a payment or mint for projection consumption.
type PayoutEntry struct {
	Kind    string // "payment" or "mint"
	Account string
	Amount  int64
	Symbol  string
}

// UnlockEntry is an unlock provenance record for projection consumption.
type UnlockEntry struct {
	PKey          uint64
	CheckpointKey uint64
	UserAccount   string
	Creator       string
	JackpotFound  bool
	Payout        int64
	Timestamp     int64
}

// Worker updates the read-model tables the game website queries:
// per-account earnings and the unlock feed. The projection channel is
// non-blocking with drop; a projection that falls behind is rebuilt
// from the event log.
type Worker struct {
	db        *sql.DB
	inputChan <-chan Output
	history   *UnlockHistory
	lastSeq   int64
}

func NewWorker(db *sql.DB, inputChan <-chan Output, history *UnlockHistory) *Worker {
	return &Worker{
		db:        db,
		inputChan: inputChan,
		history:   history,
	}
}

// Run starts the projection loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-w.inputChan:
			if !ok {
				return nil
			}

			if err := w.processOutput(ctx, output); err != nil {
				log.Printf("WARN: projection update failed at seq=%d: %v", output.Sequence, err)
				// Continue — projections are eventually consistent
				// and can be rebuilt from the event log
			}

			w.lastSeq = output.Sequence
		}
	}
}

func (w *Worker) processOutput(ctx context.Context, output Output) error {
	if output.Unlock != nil && w.history != nil {
		w.history.Add(*output.Unlock)
	}

	if w.db == nil {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range output.Payouts {
		if err := w.updateEarnings(ctx, tx, p, output.Sequence); err != nil {
			return fmt.Errorf("earnings projection: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

func (w *Worker) updateEarnings(ctx context.Context, tx *sql.Tx, p PayoutEntry, sequence int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.earnings (account, symbol, kind, total, last_sequence)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account, symbol, kind)
		DO UPDATE SET total = projections.earnings.total + $4, last_sequence = $5
	`, p.Account, p.Symbol, p.Kind, p.Amount, sequence)
	return err
}

// Rebuild truncates the projection tables and re-derives them from the
// durable payout and provenance tables.
func Rebuild(ctx context.Context, db *sql.DB) error {
	truncateStatements := []string{
		`TRUNCATE projections.earnings`,
		`DELETE FROM projections.watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO projections.earnings (account, symbol, kind, total, last_sequence)
		SELECT
			account,
			symbol,
			kind,
			SUM(amount) AS total,
			MAX(sequence) AS last_sequence
		FROM settle.payouts
		GROUP BY account, symbol, kind
		ON CONFLICT (account, symbol, kind) DO UPDATE
			SET total = EXCLUDED.total, last_sequence = EXCLUDED.last_sequence
	`)
	if err != nil {
		return fmt.Errorf("rebuild earnings: %w", err)
	}

	log.Println("INFO: projection rebuild complete")
	return nil
}
