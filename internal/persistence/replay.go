package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"DiamondLedger/internal/event"
)

// Replayer restores core state by re-reading the durable event log. The
// domain state is small enough (checkpoints, one live fund, the order
// book) that full replay beats snapshot maintenance: a restart reads
// settle.events in order and re-applies every envelope.
type Replayer struct {
	db *sql.DB
}

func NewReplayer(db *sql.DB) *Replayer {
	return &Replayer{db: db}
}

// LatestSequence returns the highest sequence in the event log, or -1
// for an empty log (sequences start at 0).
func (r *Replayer) LatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM settle.events
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return -1, nil
	}
	return seq.Int64, nil
}

// LoadEventsFrom loads a page of events for replay, ordered by sequence.
func (r *Replayer) LoadEventsFrom(ctx context.Context, fromSequence int64, limit int) ([]EventRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sequence, event_type, idempotency_key, payload,
		       state_hash, prev_hash, timestamp, source_sequence
		FROM settle.events
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(
			&e.Sequence, &e.EventType, &e.IdempotencyKey, &e.Payload,
			&e.StateHash, &e.PrevHash, &e.Timestamp, &e.SourceSequence,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// DecodeEvent turns a stored payload back into the typed event it was
// written from. The stored JSON uses the Go struct field names, so a
// plain unmarshal into the right type round-trips.
func DecodeEvent(eventType string, payload []byte) (event.Event, error) {
	evt, err := emptyEvent(eventType)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, evt); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return evt, nil
}

func emptyEvent(eventType string) (event.Event, error) {
	switch eventType {
	case "TransferNotice":
		return &event.TransferNotice{}, nil
	case "TokenTransferNotice":
		return &event.TokenTransferNotice{}, nil
	case "RegisterCheckpoint":
		return &event.RegisterCheckpoint{}, nil
	case "ModifyCheckpoint":
		return &event.ModifyCheckpoint{}, nil
	case "ModifyCheckpointImage":
		return &event.ModifyCheckpointImage{}, nil
	case "ModifyCheckpointGPS":
		return &event.ModifyCheckpointGPS{}, nil
	case "SetCheckpointJSON":
		return &event.SetCheckpointJSON{}, nil
	case "SetSecretCode":
		return &event.SetSecretCode{}, nil
	case "ActivateCheckpoint":
		return &event.ActivateCheckpoint{}, nil
	case "ResetSecretCode":
		return &event.ResetSecretCode{}, nil
	case "SetRankingPoints":
		return &event.SetRankingPoints{}, nil
	case "RenewCheckpointExpiry":
		return &event.RenewCheckpointExpiry{}, nil
	case "EraseCheckpoint":
		return &event.EraseCheckpoint{}, nil
	case "AddSalePrice":
		return &event.AddSalePrice{}, nil
	case "DeleteSalePrice":
		return &event.DeleteSalePrice{}, nil
	case "AddSponsorItem":
		return &event.AddSponsorItem{}, nil
	case "EraseSponsorItem":
		return &event.EraseSponsorItem{}, nil
	case "UnlockChest":
		return &event.UnlockChest{}, nil
	case "ComputeProvision":
		return &event.ComputeProvision{}, nil
	case "PreparePayout":
		return &event.PreparePayout{}, nil
	case "DrainInvestorPayouts":
		return &event.DrainInvestorPayouts{}, nil
	case "DrainHolderPayouts":
		return &event.DrainHolderPayouts{}, nil
	case "MonthlyAward":
		return &event.MonthlyAward{}, nil
	case "SetFundValue":
		return &event.SetFundValue{}, nil
	case "AddOwnerProvision":
		return &event.AddOwnerProvision{}, nil
	case "AddFundHistory":
		return &event.AddFundHistory{}, nil
	case "ExecuteChestFunding":
		return &event.ExecuteChestFunding{}, nil
	case "CancelSellOrder":
		return &event.CancelSellOrder{}, nil
	case "SetExchangeRate":
		return &event.SetExchangeRate{}, nil
	case "SetMinInteractionPrice":
		return &event.SetMinInteractionPrice{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q in event log", eventType)
	}
}
