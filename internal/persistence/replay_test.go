package persistence_test

import (
	"testing"

	"DiamondLedger/internal/event"
	"DiamondLedger/internal/money"
	"DiamondLedger/internal/persistence"

	"github.com/google/uuid"
)

func TestDecodeEvent_TransferNoticeRoundTrip(t *testing.T) {
	original := &event.TransferNotice{
		TransferID: uuid.MustParse("a81bc81b-dead-4e5d-abff-90865d1e13b1"),
		From:       "bob",
		Quantity:   money.New(50000, money.EOS),
		Memo:       "Check Treasure No.7",
		Sequence:   42,
		Timestamp:  1_700_000_042,
	}

	payload, err := persistence.MarshalEventPayload(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := persistence.DecodeEvent("TransferNotice", payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	notice, ok := decoded.(*event.TransferNotice)
	if !ok {
		t.Fatalf("decoded type = %T, want *event.TransferNotice", decoded)
	}
	if notice.IdempotencyKey() != original.IdempotencyKey() {
		t.Errorf("idempotency key = %s, want %s", notice.IdempotencyKey(), original.IdempotencyKey())
	}
	if notice.Memo != original.Memo || notice.From != original.From {
		t.Errorf("decoded notice = %+v, want %+v", notice, original)
	}
	if notice.Quantity.Amount != 50000 || notice.Quantity.Symbol != money.EOS {
		t.Errorf("quantity = %v, want 5.0000 EOS", notice.Quantity)
	}
	if notice.SourceSequence() != 42 {
		t.Errorf("source sequence = %d, want 42", notice.SourceSequence())
	}
}

func TestDecodeEvent_OperatorCommandRoundTrip(t *testing.T) {
	original := &event.UnlockChest{
		Op: event.Op{
			RequestID: uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7"),
			Caller:    "cptblackbill",
			Sequence:  7,
			Timestamp: 1_700_000_007,
		},
		CheckpointKey:  3,
		ByUser:         "bob",
		Payout:         money.New(12000, money.EOS),
		DiamondFound:   true,
		SponsorItemKey: 0,
	}

	payload, err := persistence.MarshalEventPayload(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := persistence.DecodeEvent("UnlockChest", payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	unlock, ok := decoded.(*event.UnlockChest)
	if !ok {
		t.Fatalf("decoded type = %T, want *event.UnlockChest", decoded)
	}
	if unlock.CheckpointKey != 3 || !unlock.DiamondFound {
		t.Errorf("decoded unlock = %+v, want checkpoint 3 with diamond found", unlock)
	}
	if unlock.Caller != "cptblackbill" || unlock.ByUser != "bob" {
		t.Errorf("caller/byUser = %s/%s, want cptblackbill/bob", unlock.Caller, unlock.ByUser)
	}
	if unlock.Payout.Amount != 12000 {
		t.Errorf("payout = %d, want 12000", unlock.Payout.Amount)
	}
}

func TestDecodeEvent_UnknownTypeFails(t *testing.T) {
	if _, err := persistence.DecodeEvent("LiquidatePosition", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown event type, got nil")
	}
}

func TestDecodeEvent_MalformedPayloadFails(t *testing.T) {
	if _, err := persistence.DecodeEvent("TransferNotice", []byte(`{not json`)); err == nil {
		t.Error("expected error for malformed payload, got nil")
	}
}
