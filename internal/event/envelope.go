package event

import "github.com/google/uuid"

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota

	// Transfer notices from the chain watcher
	EventTypeTransferNotice
	EventTypeTokenTransferNotice

	// Checkpoint lifecycle
	EventTypeRegisterCheckpoint
	EventTypeModifyCheckpoint
	EventTypeModifyCheckpointImage
	EventTypeModifyCheckpointGPS
	EventTypeSetCheckpointJSON
	EventTypeSetSecretCode
	EventTypeActivateCheckpoint
	EventTypeResetSecretCode
	EventTypeSetRankingPoints
	EventTypeRenewCheckpointExpiry
	EventTypeEraseCheckpoint
	EventTypeAddSalePrice
	EventTypeDeleteSalePrice

	// Sponsor items
	EventTypeAddSponsorItem
	EventTypeEraseSponsorItem

	// Jackpot settlement
	EventTypeUnlockChest
	EventTypeComputeProvision
	EventTypePreparePayout
	EventTypeDrainInvestorPayouts
	EventTypeDrainHolderPayouts
	EventTypeMonthlyAward
	EventTypeSetFundValue
	EventTypeAddOwnerProvision
	EventTypeAddFundHistory
	EventTypeExecuteChestFunding

	// Token market and oracle
	EventTypeCancelSellOrder
	EventTypeSetExchangeRate
	EventTypeSetMinInteractionPrice
)

// Envelope wraps every applied event in the log
type Envelope struct {
	// Global monotonic sequence assigned by the core
	Sequence int64

	// Stable idempotency key from upstream
	IdempotencyKey string

	// Event type discriminator
	EventType EventType

	// Versioned input timestamp in unix seconds (NOT wall-clock)
	Timestamp int64

	// Upstream sequence for ordering validation
	SourceSequence int64

	// SHA-256 of state AFTER applying this event
	StateHash [32]byte

	// Previous event's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is the interface all event payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// SourceSequence returns the upstream ordering key
	SourceSequence() int64

	// OccurredAt returns the versioned timestamp in unix seconds
	OccurredAt() int64
}

// Op is the common header of operator and player commands. Events embed
// it and add their payload fields; the request id doubles as the dedup
// key.
type Op struct {
	RequestID uuid.UUID
	Caller    string
	Sequence  int64
	Timestamp int64
}

func (o *Op) IdempotencyKey() string {
	return o.RequestID.String()
}

func (o *Op) SourceSequence() int64 {
	return o.Sequence
}

func (o *Op) OccurredAt() int64 {
	return o.Timestamp
}

func (et EventType) String() string {
	switch et {
	case EventTypeTransferNotice:
		return "TransferNotice"
	case EventTypeTokenTransferNotice:
		return "TokenTransferNotice"
	case EventTypeRegisterCheckpoint:
		return "RegisterCheckpoint"
	case EventTypeModifyCheckpoint:
		return "ModifyCheckpoint"
	case EventTypeModifyCheckpointImage:
		return "ModifyCheckpointImage"
	case EventTypeModifyCheckpointGPS:
		return "ModifyCheckpointGPS"
	case EventTypeSetCheckpointJSON:
		return "SetCheckpointJSON"
	case EventTypeSetSecretCode:
		return "SetSecretCode"
	case EventTypeActivateCheckpoint:
		return "ActivateCheckpoint"
	case EventTypeResetSecretCode:
		return "ResetSecretCode"
	case EventTypeSetRankingPoints:
		return "SetRankingPoints"
	case EventTypeRenewCheckpointExpiry:
		return "RenewCheckpointExpiry"
	case EventTypeEraseCheckpoint:
		return "EraseCheckpoint"
	case EventTypeAddSalePrice:
		return "AddSalePrice"
	case EventTypeDeleteSalePrice:
		return "DeleteSalePrice"
	case EventTypeAddSponsorItem:
		return "AddSponsorItem"
	case EventTypeEraseSponsorItem:
		return "EraseSponsorItem"
	case EventTypeUnlockChest:
		return "UnlockChest"
	case EventTypeComputeProvision:
		return "ComputeProvision"
	case EventTypePreparePayout:
		return "PreparePayout"
	case EventTypeDrainInvestorPayouts:
		return "DrainInvestorPayouts"
	case EventTypeDrainHolderPayouts:
		return "DrainHolderPayouts"
	case EventTypeMonthlyAward:
		return "MonthlyAward"
	case EventTypeSetFundValue:
		return "SetFundValue"
	case EventTypeAddOwnerProvision:
		return "AddOwnerProvision"
	case EventTypeAddFundHistory:
		return "AddFundHistory"
	case EventTypeExecuteChestFunding:
		return "ExecuteChestFunding"
	case EventTypeCancelSellOrder:
		return "CancelSellOrder"
	case EventTypeSetExchangeRate:
		return "SetExchangeRate"
	case EventTypeSetMinInteractionPrice:
		return "SetMinInteractionPrice"
	default:
		return "Unknown"
	}
}
