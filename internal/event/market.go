// internal/event/market.go
package event

import "DiamondLedger/internal/money"

// CancelSellOrder returns an open sell order's escrow to its owner.
type CancelSellOrder struct {
	Op
	OrderKey uint64
}

func (e *CancelSellOrder) EventType() EventType { return EventTypeCancelSellOrder }

// SetExchangeRate updates the oracle EOS price in USD. Rate updates
// arrive on their own sequence stream and tolerate gaps.
type SetExchangeRate struct {
	Op
	Rate money.Asset // USD per EOS
}

func (e *SetExchangeRate) EventType() EventType { return EventTypeSetExchangeRate }

type SetMinInteractionPrice struct {
	Op
	MinUSD money.Asset
}

func (e *SetMinInteractionPrice) EventType() EventType { return EventTypeSetMinInteractionPrice }
