package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"DiamondLedger/internal/gateway"

	"github.com/nats-io/nats.go/jetstream"
)

// OutboundPublisher publishes processed events to NATS for downstream
// consumers, after persistence is confirmed. Settled events go to
// diamond.settle.events.{event_type}; payment and mint requests go to
// diamond.payouts.{payment|mint} where the blockchain gateway picks
// them up and signs the actual transfers.
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan PublishableEvent
	requests  <-chan gateway.Request
}

// PublishableEvent is a processed event ready for outbound publishing.
type PublishableEvent struct {
	Sequence       int64     `json:"sequence"`
	EventType      string    `json:"event_type"`
	IdempotencyKey string    `json:"idempotency_key"`
	StateHash      []byte    `json:"state_hash"`
	Timestamp      int64     `json:"timestamp"`
	PublishedAt    time.Time `json:"published_at"`
}

type payoutJSON struct {
	Kind   string `json:"kind"` // "payment" or "mint"
	To     string `json:"to"`
	Amount int64  `json:"amount"`
	Symbol string `json:"symbol"`
	Memo   string `json:"memo"`
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan PublishableEvent, requests <-chan gateway.Request) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
		requests:  requests,
	}
}

// Run starts the outbound publisher loop. Event announcements are
// best-effort; payout requests are retried because a dropped payout is
// money the treasury owes and never sends.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt, ok := <-op.inputChan:
			if !ok {
				return nil
			}
			if err := op.publishEvent(ctx, evt); err != nil {
				log.Printf("WARN: outbound publish failed seq=%d: %v", evt.Sequence, err)
				// Non-fatal: downstream consumers can query the event log directly
			}

		case req, ok := <-op.requests:
			if !ok {
				return nil
			}
			if err := op.publishPayout(ctx, req); err != nil {
				return fmt.Errorf("publish payout: %w", err)
			}
		}
	}
}

func (op *OutboundPublisher) publishEvent(ctx context.Context, evt PublishableEvent) error {
	evt.PublishedAt = time.Now()
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("diamond.settle.events.%s", evt.EventType)
	_, err = op.js.Publish(ctx, subject, data)
	return err
}

func (op *OutboundPublisher) publishPayout(ctx context.Context, req gateway.Request) error {
	var p payoutJSON
	var subject string
	switch {
	case req.Payment != nil:
		p = payoutJSON{
			Kind:   "payment",
			To:     req.Payment.To,
			Amount: req.Payment.Amount.Amount,
			Symbol: string(req.Payment.Amount.Symbol),
			Memo:   req.Payment.Memo,
		}
		subject = "diamond.payouts.payment"
	case req.Mint != nil:
		p = payoutJSON{
			Kind:   "mint",
			To:     req.Mint.To,
			Amount: req.Mint.Amount.Amount,
			Symbol: string(req.Mint.Amount.Symbol),
			Memo:   req.Mint.Memo,
		}
		subject = "diamond.payouts.mint"
	default:
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payout: %w", err)
	}

	// Retry with backoff: the JetStream publish is idempotent on redelivery
	// only at the gateway, so give the broker every chance to take it.
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		if _, lastErr = op.js.Publish(ctx, subject, data); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}
	return lastErr
}

// EnsureOutboundStreams creates the outbound event and payout streams.
func EnsureOutboundStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      "DIAMOND_SETTLE_EVENTS",
			Subjects:  []string{"diamond.settle.events.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "DIAMOND_PAYOUTS",
			Subjects:  []string{"diamond.payouts.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.WorkQueuePolicy,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		log.Printf("INFO: ensured stream %s", cfg.Name)
	}
	return nil
}
