// internal/event/transfer.go
package event

import (
	"DiamondLedger/internal/money"

	"github.com/google/uuid"
)

// TransferNotice is an incoming EOS transfer to the operator account.
// The memo decides the interaction: check fee, unlock fee, mint, token
// purchase, and so on. The transfer id from the chain watcher is the
// dedup key.
type TransferNotice struct {
	TransferID uuid.UUID
	From       string
	Quantity   money.Asset // EOS
	Memo       string
	Sequence   int64
	Timestamp  int64
}

func (t *TransferNotice) IdempotencyKey() string {
	return t.TransferID.String()
}

func (t *TransferNotice) EventType() EventType {
	return EventTypeTransferNotice
}

func (t *TransferNotice) SourceSequence() int64 {
	return t.Sequence
}

func (t *TransferNotice) OccurredAt() int64 {
	return t.Timestamp
}

// TokenTransferNotice is an incoming BLKBILL transfer. Escrowed tokens
// open a sell order at the price carried in the memo, in whole US cents
// per token.
type TokenTransferNotice struct {
	TransferID uuid.UUID
	From       string
	Quantity   money.Asset // BLKBILL
	PriceCents uint64
	Sequence   int64
	Timestamp  int64
}

func (t *TokenTransferNotice) IdempotencyKey() string {
	return t.TransferID.String()
}

func (t *TokenTransferNotice) EventType() EventType {
	return EventTypeTokenTransferNotice
}

func (t *TokenTransferNotice) SourceSequence() int64 {
	return t.Sequence
}

func (t *TokenTransferNotice) OccurredAt() int64 {
	return t.Timestamp
}
