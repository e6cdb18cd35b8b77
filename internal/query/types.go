package query

// EarningsResponse is one account's accumulated payouts in one symbol.
type EarningsResponse struct {
	Account      string `json:"account"`
	Symbol       string `json:"symbol"`
	Kind         string `json:"kind"`
	Total        int64  `json:"total"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// UnlockResponse is one row of the permanent unlock history.
type UnlockResponse struct {
	PKey          uint64 `json:"pkey"`
	CheckpointKey uint64 `json:"checkpoint_key"`
	UserAccount   string `json:"user_account"`
	Creator       string `json:"creator"`
	Conqueror     string `json:"conqueror,omitempty"`
	JackpotFound  bool   `json:"jackpot_found"`
	Payout        int64  `json:"payout"`
	Rate          int64  `json:"rate"`
	MintedReward  int64  `json:"minted_reward"`
	Timestamp     int64  `json:"timestamp"`
}

// PayoutResponse is one outbound payment or mint from the event log.
type PayoutResponse struct {
	Sequence int64  `json:"sequence"`
	Kind     string `json:"kind"`
	Account  string `json:"account"`
	Amount   int64  `json:"amount"`
	Symbol   string `json:"symbol"`
	Memo     string `json:"memo,omitempty"`
}

// IntegrityReport summarizes the event-log audit.
type IntegrityReport struct {
	IsHealthy       bool    `json:"is_healthy"`
	HashChainBreaks []int64 `json:"hash_chain_breaks,omitempty"`
	LastSequence    int64   `json:"last_sequence"`
}
