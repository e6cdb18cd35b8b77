package jackpot

import "DiamondLedger/internal/money"

// Batch limits for the cursor-driven settlement phases. Each phase is
// bounded so a single event never touches an unbounded number of rows.
const (
	// ProvisionWindow is the primary-key span covered by one provision
	// calculation call.
	ProvisionWindow uint64 = 100
	// PrepareBatch is the number of investor rows moved to the payout
	// queue per preparation call.
	PrepareBatch = 99
	// DrainBatch is the number of queue entries settled per drain call.
	DrainBatch = 10
)

// BatchReady tags investor rows whose provision is final because the
// jackpot has been found.
const BatchReady = "readyforpayout"

// PercentScale expresses investor shares in basis points.
const PercentScale int64 = 10_000

// RelocationFeePercent is deducted from the fund each time the jackpot
// location moves.
const RelocationFeePercent int64 = 1

// Monthly ranking awards as percent-of-fund numerators over 1000.
const (
	FirstAwardPerMille  int64 = 25 // 2.5%
	SecondAwardPerMille int64 = 15 // 1.5%
	ThirdAwardPerMille  int64 = 10 // 1.0%
)

// Direct-deposit mint rewards in BLKBILL smallest units.
const (
	InvestorMintReward int64 = 10
	InteractMintReward int64 = 1
)

// Fund is one generation of the jackpot. At most one fund is unfound at a
// time; finding it freezes the generation and settlement begins.
type Fund struct {
	PKey           uint64
	Value          money.Asset // the jackpot itself
	ToTokenHolders money.Asset
	ToOwners       money.Asset // accrued provision for investors
	FoundAt        int64
	FoundBy        string
	FoundIn        uint64 // checkpoint key where it was found
}

// Investor is one account's stake in the live fund.
type Investor struct {
	PKey      uint64
	Account   string
	Invested  money.Asset
	PercentBP int64 // share of the fund in basis points
	Earned    money.Asset
	BatchTag  string
	CreatedAt int64
}

// PayoutEntry is one queued payment, keyed by account so repeated
// preparation runs accumulate instead of duplicating.
type PayoutEntry struct {
	Account string
	Amount  money.Asset
	Memo    string
}

// AwardWinner is one placement in the monthly ranking competition.
type AwardWinner struct {
	Account string
	Points  uint32
}

// AwardRecord is the stored outcome of one monthly award, keyed by yyyymm.
type AwardRecord struct {
	YYYYMM    uint64
	First     AwardWinner
	Second    AwardWinner
	Third     AwardWinner
	FirstEOS  money.Asset
	SecondEOS money.Asset
	ThirdEOS  money.Asset
	Rate      money.Asset
	Timestamp int64
}

// HistoryRecord tracks where the jackpot has been hidden over time.
type HistoryRecord struct {
	PKey          uint64
	CheckpointKey uint64
	ValueEOS      money.Asset
	ValueUSD      money.Asset
	FromTimestamp int64
	ToTimestamp   int64
}

// ChestFunding is a recorded donation earmarked for random chest refills,
// executed later by the operator's scheduler.
type ChestFunding struct {
	PKey      uint64
	From      string
	Amount    money.Asset
	Memo      string
	Executed  bool
	Timestamp int64
}
