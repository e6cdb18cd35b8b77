package ingestion_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"DiamondLedger/internal/event"
	"DiamondLedger/internal/ingestion"
	"DiamondLedger/internal/testutil"
)

func TestSubscribe_DeliversTransferNotice(t *testing.T) {
	testutil.RequireIntegration(t)

	nc, js, err := ingestion.ConnectNATS(testutil.TestNATSURL())
	if err != nil {
		t.Skipf("test nats not available (%v); run: docker compose -f docker-compose.test.yml up -d", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Drop any state left by a previous run so the durable consumer
	// starts from a clean stream.
	js.DeleteStream(ctx, "DIAMOND_TRANSFERS")

	if err := ingestion.EnsureStreams(ctx, js); err != nil {
		t.Fatalf("ensure streams: %v", err)
	}
	if err := ingestion.EnsureOutboundStreams(ctx, js); err != nil {
		t.Fatalf("ensure outbound streams: %v", err)
	}

	rawChan := make(chan ingestion.RawEvent, 16)
	sub := ingestion.NewNATSSubscriber(js, rawChan)

	eosOnly := ingestion.DefaultSubjects()[:1]
	if err := sub.Subscribe(ctx, eosOnly); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Stop()

	transferID := uuid.New()
	payload, err := json.Marshal(map[string]interface{}{
		"transfer_id": transferID.String(),
		"from":        "bob",
		"quantity":    50000,
		"memo":        "Check Treasure No.7",
		"sequence":    0,
		"timestamp":   time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	if _, err := js.Publish(ctx, "diamond.transfers.eos.itest", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var raw ingestion.RawEvent
	select {
	case raw = <-rawChan:
	case <-ctx.Done():
		t.Fatal("no message delivered before timeout")
	}
	raw.AckFunc()

	if raw.Subject != "diamond.transfers.eos.itest" {
		t.Errorf("subject = %s, want diamond.transfers.eos.itest", raw.Subject)
	}

	evt, err := ingestion.ParseRawEvent(raw, "TransferNotice")
	if err != nil {
		t.Fatalf("parse delivered event: %v", err)
	}
	notice, ok := evt.(*event.TransferNotice)
	if !ok {
		t.Fatalf("parsed event type = %T, want *event.TransferNotice", evt)
	}
	if notice.TransferID != transferID {
		t.Errorf("transfer id = %s, want %s", notice.TransferID, transferID)
	}
	if notice.Quantity.Amount != 50000 {
		t.Errorf("quantity = %d, want 50000", notice.Quantity.Amount)
	}
	if notice.Memo != "Check Treasure No.7" {
		t.Errorf("memo = %q, want %q", notice.Memo, "Check Treasure No.7")
	}
}
