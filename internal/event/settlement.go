// internal/event/settlement.go
package event

import "DiamondLedger/internal/money"

// UnlockChest settles a solved checkpoint: the unlock fee held since
// the transfer notice is split between unlocker and owner side, token
// rewards are minted, and the provenance row is written. DiamondFound
// additionally folds the jackpot fund into the payout and closes the
// fund generation.
type UnlockChest struct {
	Op
	CheckpointKey  uint64
	ByUser         string      // the principal who solved the checkpoint; Caller stays the operator
	Payout         money.Asset // EOS held for this unlock
	DiamondFound   bool
	SponsorItemKey uint64 // 0 when no sponsor item is attached
}

func (e *UnlockChest) EventType() EventType { return EventTypeUnlockChest }

// ComputeProvision tags a window of investor rows with their pro-rata
// share of the found fund.
type ComputeProvision struct {
	Op
	FromKey  uint64
	BatchTag string
}

func (e *ComputeProvision) EventType() EventType { return EventTypeComputeProvision }

// PreparePayout moves tagged investor rows into the payout queue, one
// batch per event.
type PreparePayout struct {
	Op
}

func (e *PreparePayout) EventType() EventType { return EventTypePreparePayout }

type DrainInvestorPayouts struct {
	Op
}

func (e *DrainInvestorPayouts) EventType() EventType { return EventTypeDrainInvestorPayouts }

type DrainHolderPayouts struct {
	Op
}

func (e *DrainHolderPayouts) EventType() EventType { return EventTypeDrainHolderPayouts }

// MonthlyAward pays the month's top rankers out of the fund.
type MonthlyAward struct {
	Op
	YYYYMM       uint64
	First        string
	FirstPoints  uint32
	Second       string
	SecondPoints uint32
	Third        string
	ThirdPoints  uint32
}

func (e *MonthlyAward) EventType() EventType { return EventTypeMonthlyAward }

// SetFundValue overwrites the current fund value. Operator repair hook.
type SetFundValue struct {
	Op
	Value money.Asset
}

func (e *SetFundValue) EventType() EventType { return EventTypeSetFundValue }

// AddOwnerProvision credits the checkpoint-owner provision pool of the
// current fund generation.
type AddOwnerProvision struct {
	Op
	Amount money.Asset
}

func (e *AddOwnerProvision) EventType() EventType { return EventTypeAddOwnerProvision }

// AddFundHistory archives a closed fund generation and deducts the
// relocation fee.
type AddFundHistory struct {
	Op
	CheckpointKey uint64
	ValueEOS      money.Asset
	ValueUSD      money.Asset
	FromTimestamp int64
	ToTimestamp   int64
}

func (e *AddFundHistory) EventType() EventType { return EventTypeAddFundHistory }

// ExecuteChestFunding releases an escrowed random-chest funding row.
type ExecuteChestFunding struct {
	Op
	FundingKey uint64
}

func (e *ExecuteChestFunding) EventType() EventType { return EventTypeExecuteChestFunding }
