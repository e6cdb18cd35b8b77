package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// execer lets writer methods run against either the pool or a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// EventLogWriter writes settlement output to Postgres using multi-row
// INSERT batches. Every insert carries ON CONFLICT DO NOTHING so a
// redelivered batch after a crash is harmless.
type EventLogWriter struct {
	db *sql.DB
}

// EventRow represents a row in settle.events, the durable event log the
// core replays from on restart.
type EventRow struct {
	Sequence       int64
	EventType      string
	IdempotencyKey string
	Payload        []byte // JSON-encoded event
	StateHash      []byte
	PrevHash       []byte
	Timestamp      int64
	SourceSequence int64
}

// PayoutRow represents a row in settle.payouts: an outbound payment or
// token mint the event at Sequence produced.
type PayoutRow struct {
	Sequence int64
	Idx      int
	Kind     string // "payment" or "mint"
	Account  string
	Amount   int64
	Symbol   string
	Memo     string
}

// ProvenanceRow represents a row in settle.provenance, the permanent
// unlock history.
type ProvenanceRow struct {
	PKey          uint64
	CheckpointKey uint64
	UserAccount   string
	Creator       string
	Conqueror     string
	JackpotFound  bool
	Payout        int64
	Rate          int64
	MintedReward  int64
	Timestamp     int64
}

func NewEventLogWriter(db *sql.DB) *EventLogWriter {
	return &EventLogWriter{db: db}
}

// WriteEventBatch writes a batch of events to settle.events.
func (w *EventLogWriter) WriteEventBatch(ctx context.Context, ex execer, events []EventRow) error {
	if len(events) == 0 {
		return nil
	}

	query := `INSERT INTO settle.events
		(sequence, event_type, idempotency_key, payload, state_hash, prev_hash, timestamp, source_sequence)
		VALUES `

	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*8)

	for i, e := range events {
		base := i * 8
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args,
			e.Sequence, e.EventType, e.IdempotencyKey, e.Payload,
			e.StateHash, e.PrevHash, e.Timestamp, e.SourceSequence,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING"

	_, err := ex.ExecContext(ctx, query, args...)
	return err
}

// WritePayoutBatch writes a batch of payout rows to settle.payouts.
func (w *EventLogWriter) WritePayoutBatch(ctx context.Context, ex execer, payouts []PayoutRow) error {
	if len(payouts) == 0 {
		return nil
	}

	query := `INSERT INTO settle.payouts
		(sequence, idx, kind, account, amount, symbol, memo)
		VALUES `

	values := make([]string, 0, len(payouts))
	args := make([]interface{}, 0, len(payouts)*7)

	for i, p := range payouts {
		base := i * 7
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args,
			p.Sequence, p.Idx, p.Kind, p.Account, p.Amount, p.Symbol, p.Memo,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence, idx) DO NOTHING"

	_, err := ex.ExecContext(ctx, query, args...)
	return err
}

// WriteProvenanceBatch writes unlock provenance rows to settle.provenance.
func (w *EventLogWriter) WriteProvenanceBatch(ctx context.Context, ex execer, records []ProvenanceRow) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO settle.provenance
		(pkey, checkpoint_key, user_account, creator, conqueror, jackpot_found, payout, rate, minted_reward, timestamp)
		VALUES `

	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*10)

	for i, r := range records {
		base := i * 10
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))
		args = append(args,
			r.PKey, r.CheckpointKey, r.UserAccount, r.Creator, r.Conqueror,
			r.JackpotFound, r.Payout, r.Rate, r.MintedReward, r.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (pkey) DO NOTHING"

	_, err := ex.ExecContext(ctx, query, args...)
	return err
}

// MarshalEventPayload serializes an event to JSON for the payload column.
func MarshalEventPayload(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}
