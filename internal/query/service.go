package query

import (
	"context"
	"database/sql"
	"fmt"
)

// Service provides read-only access to the projection and settlement
// tables. Queries never touch the core's in-memory state; responses
// carry as_of_sequence so callers can reason about freshness.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// GetEarnings returns everything the engine has paid or minted for one
// account, grouped by symbol and kind.
func (s *Service) GetEarnings(ctx context.Context, account string) ([]EarningsResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, kind, total
		FROM projections.earnings
		WHERE account = $1
		ORDER BY symbol, kind
	`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var earnings []EarningsResponse
	for rows.Next() {
		e := EarningsResponse{Account: account, AsOfSequence: asOfSeq}
		if err := rows.Scan(&e.Symbol, &e.Kind, &e.Total); err != nil {
			return nil, err
		}
		earnings = append(earnings, e)
	}

	return earnings, rows.Err()
}

// GetUnlockHistory returns unlock provenance rows, newest first, with
// cursor pagination on the row key. Either account or checkpointKey may
// be zero-valued to skip that filter.
func (s *Service) GetUnlockHistory(
	ctx context.Context,
	account string,
	checkpointKey uint64,
	limit int,
	beforeKey *uint64,
) ([]UnlockResponse, error) {
	query := `
		SELECT pkey, checkpoint_key, user_account, creator, conqueror,
		       jackpot_found, payout, rate, minted_reward, timestamp
		FROM settle.provenance
		WHERE TRUE
	`
	args := []interface{}{}
	argIdx := 1

	if account != "" {
		query += fmt.Sprintf(" AND user_account = $%d", argIdx)
		args = append(args, account)
		argIdx++
	}

	if checkpointKey != 0 {
		query += fmt.Sprintf(" AND checkpoint_key = $%d", argIdx)
		args = append(args, checkpointKey)
		argIdx++
	}

	if beforeKey != nil {
		query += fmt.Sprintf(" AND pkey < $%d", argIdx)
		args = append(args, *beforeKey)
		argIdx++
	}

	query += " ORDER BY pkey DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []UnlockResponse
	for rows.Next() {
		var u UnlockResponse
		if err := rows.Scan(
			&u.PKey, &u.CheckpointKey, &u.UserAccount, &u.Creator, &u.Conqueror,
			&u.JackpotFound, &u.Payout, &u.Rate, &u.MintedReward, &u.Timestamp,
		); err != nil {
			return nil, err
		}
		history = append(history, u)
	}

	return history, rows.Err()
}

// GetPayoutHistory returns outbound payments and mints for one account,
// newest first, with cursor pagination on the event sequence.
func (s *Service) GetPayoutHistory(
	ctx context.Context,
	account string,
	limit int,
	afterSequence *int64,
) ([]PayoutResponse, error) {
	query := `
		SELECT sequence, kind, account, amount, symbol, memo
		FROM settle.payouts
		WHERE account = $1
	`
	args := []interface{}{account}
	argIdx := 2

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC, idx ASC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []PayoutResponse
	for rows.Next() {
		var p PayoutResponse
		if err := rows.Scan(
			&p.Sequence, &p.Kind, &p.Account, &p.Amount, &p.Symbol, &p.Memo,
		); err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}

	return payouts, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity walks the stored hash chain looking for breaks: every
// event's prev_hash must equal the previous event's state_hash.
func (s *Service) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e1.sequence
		FROM settle.events e1
		LEFT JOIN settle.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.sequence > 0 AND e1.prev_hash != COALESCE(e2.state_hash, e1.prev_hash)
		ORDER BY e1.sequence
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM settle.events
	`).Scan(&last); err != nil {
		return nil, err
	}
	if last.Valid {
		report.LastSequence = last.Int64
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0
	return report, nil
}

// --- helpers ---

func (s *Service) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}
