// internal/event/sponsor.go
package event

import "DiamondLedger/internal/money"

// AddSponsorItem attaches a pending sponsored prize to a checkpoint.
// The item stays pending until the sponsor pays the ad fee through a
// transfer notice.
type AddSponsorItem struct {
	Op
	CheckpointKey uint64
	Sponsor       string
	ImageURL      string
	TargetURL     string
	Description   string
	PrizeUSD      money.Asset
	AdFee         money.Asset // EOS
}

func (e *AddSponsorItem) EventType() EventType { return EventTypeAddSponsorItem }

type EraseSponsorItem struct {
	Op
	SponsorItemKey uint64
}

func (e *EraseSponsorItem) EventType() EventType { return EventTypeEraseSponsorItem }
