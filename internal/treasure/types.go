package treasure

import (
	"DiamondLedger/internal/maptile"
	"DiamondLedger/internal/money"
)

// Checkpoint statuses.
const (
	// StatusActive means the checkpoint is live and can be interacted with.
	StatusActive = "active"
	// StatusCreated means the checkpoint was registered by the operator and
	// is waiting for activation with a secret code.
	StatusCreated = "created"
)

// Sponsor item statuses.
const (
	SponsorPendingPayment = "pendingforadfeepayment"
	SponsorActive         = "active"
	SponsorRobbed         = "robbed"
)

// Field bounds for player-supplied content.
const (
	MaxTitleLen       = 55
	MaxDescriptionLen = 650
	MaxURLLen         = 100
)

// OwnershipTerm is how long a checkpoint stays owned before it expires,
// three years in seconds.
const OwnershipTerm int64 = 94_608_000

// ListingTerm is how long a sale listing stays valid, one year in seconds.
const ListingTerm int64 = 31_536_000

// MinAskingPriceUSD is 1.0000 USD, the lowest permitted sale price.
const MinAskingPriceUSD int64 = 10_000

// RewardUnlocker is 0.0010 BLKBILL minted to whoever unlocks a checkpoint.
const RewardUnlocker int64 = 10

// RewardOwner is 0.0001 BLKBILL minted to the checkpoint owner on unlock.
const RewardOwner int64 = 1

// Checkpoint is a physical game location with an owned map tile.
type Checkpoint struct {
	PKey              uint64
	Owner             string
	Conqueror         string // set when someone else unlocked it last
	Title             string
	Description       string
	ImageURL          string
	ConquerorImageURL string
	VideoURL          string
	Latitude          float64
	Longitude         float64
	Tile              maptile.Tile
	RankingPoints     uint64
	Status            string
	SecretCode        string
	JSONData          string
	ExpiresAt         int64
	CreatedAt         int64
}

// SaleListing offers a checkpoint for sale at a USD asking price. Keyed by
// checkpoint, so each checkpoint has at most one listing.
type SaleListing struct {
	CheckpointKey uint64
	Seller        string
	AskingUSD     money.Asset
	Memo          string
	ExpiresAt     int64
	CreatedAt     int64
}

// SponsorItem is an advertised prize attached to a checkpoint. The sponsor
// pays an advertising fee to activate it; the fee is settled when the item
// is won.
type SponsorItem struct {
	PKey          uint64
	Sponsor       string
	CheckpointKey uint64
	ImageURL      string
	TargetURL     string
	Description   string
	PrizeUSD      money.Asset
	AdFee         money.Asset // EOS, set by the operator
	Status        string
	WonBy         string
	WonAt         int64
	CreatedAt     int64
}

// ProvenanceRecord is the audit row appended for every unlock.
type ProvenanceRecord struct {
	PKey          uint64
	CheckpointKey uint64
	User          string // who unlocked
	Creator       string // owner at unlock time
	Conqueror     string // conqueror before this unlock, if any
	JackpotFound  bool
	Payout        money.Asset // EOS, jackpot included when found
	Rate          money.Asset // USD per EOS at unlock time
	MintedReward  money.Asset // BLKBILL issued to the unlocker
	Timestamp     int64
}

// MintParams are the fields needed to create a checkpoint.
type MintParams struct {
	Title       string
	Description string
	ImageURL    string
	VideoURL    string
	Latitude    float64
	Longitude   float64
}

// UnlockResult reports the side effects of an unlock for downstream
// settlement.
type UnlockResult struct {
	Record         ProvenanceRecord
	ToTokenHolders money.Asset // sponsor ad-fee share for the jackpot
}
