package core

import (
	"errors"
	"fmt"
	"time"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/event"
	"DiamondLedger/internal/exchange"
	"DiamondLedger/internal/gateway"
	"DiamondLedger/internal/jackpot"
	"DiamondLedger/internal/memo"
	"DiamondLedger/internal/money"
	"DiamondLedger/internal/observability"
	"DiamondLedger/internal/pricing"
	"DiamondLedger/internal/treasure"
)

// RaceEntryKey is the fixed row key race entry payments must reference.
const RaceEntryKey = 10

// SettlementCore is the single-threaded event processor. All game state
// lives in its managers; nothing here is safe for concurrent use.
type SettlementCore struct {
	sequence int64
	clock    int64 // versioned timestamp of the event being applied

	hasher   *StateHasher
	treasury *treasure.Manager
	jackpot  *jackpot.Processor
	book     *exchange.Book
	oracle   *pricing.Oracle

	outbox   *outbox
	outbound gateway.Dispatcher

	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	metrics           *observability.Metrics
	operator          string

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

// CoreOutput is everything one applied event produced. Event is the
// typed input itself; the persistence worker stores its JSON form so
// restarts can replay the log through the same dispatch path.
type CoreOutput struct {
	Event      event.Event
	Envelope   *event.Envelope
	Payments   []gateway.PaymentRequest
	Mints      []gateway.MintRequest
	Provenance *treasure.ProvenanceRecord
	StateDelta []byte
}

// outbox records the gateway requests of the event currently being
// applied. They are forwarded to the outbound dispatcher only after the
// handler succeeds, so a rejected event never pays anyone.
type outbox struct {
	payments []gateway.PaymentRequest
	mints    []gateway.MintRequest
}

func (o *outbox) Pay(p gateway.PaymentRequest) { o.payments = append(o.payments, p) }
func (o *outbox) Mint(m gateway.MintRequest)   { o.mints = append(o.mints, m) }

func (o *outbox) reset() {
	o.payments = nil
	o.mints = nil
}

func NewSettlementCore(
	startSequence int64,
	operator string,
	outbound gateway.Dispatcher,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
) *SettlementCore {
	c := &SettlementCore{
		sequence:          startSequence,
		hasher:            NewStateHasher(),
		oracle:            pricing.NewOracle(),
		outbox:            &outbox{},
		outbound:          outbound,
		idempotency:       NewIdempotencyChecker(1_000_000, dbChecker),
		sequenceValidator: NewSequenceValidator(),
		metrics:           metrics,
		operator:          operator,
		persistChan:       persistChan,
		projectionChan:    projectionChan,
	}
	clock := func() int64 { return c.clock }
	c.treasury = treasure.NewManager(c.outbox, operator, clock)
	c.jackpot = jackpot.NewProcessor(c.outbox, operator, clock)
	c.book = exchange.NewBook(c.outbox, clock)
	return c
}

// Treasury exposes the checkpoint manager for queries and tests.
func (c *SettlementCore) Treasury() *treasure.Manager { return c.treasury }

// Jackpot exposes the fund processor for queries and tests.
func (c *SettlementCore) Jackpot() *jackpot.Processor { return c.jackpot }

// Book exposes the token order book for queries and tests.
func (c *SettlementCore) Book() *exchange.Book { return c.book }

// Oracle exposes the price oracle for queries and tests.
func (c *SettlementCore) Oracle() *pricing.Oracle { return c.oracle }

// ProcessEvent is the main processing pipeline
func (c *SettlementCore) ProcessEvent(evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()
	idempotencyKey := evt.IdempotencyKey()

	// Step 1: Idempotency check (two-tier)
	isDuplicate, tier := c.idempotency.IsDuplicate(eventType, idempotencyKey)
	if isDuplicate && c.metrics != nil {
		c.metrics.IdempotencyDuplicates.WithLabelValues(eventType, tier).Inc()
	}

	// Step 2: Sequence validation. Oracle rate updates ride their own
	// sampled stream; stale ones are dropped without error.
	if rateEvt, ok := evt.(*event.SetExchangeRate); ok {
		if c.sequenceValidator.ValidateRateSequence(rateEvt.SourceSequence()) {
			return nil
		}
	} else {
		partition := c.getPartition(evt)
		if err := c.sequenceValidator.ValidateSequence(partition, evt.SourceSequence(), isDuplicate); err != nil {
			c.recordSequenceError(err)
			return fmt.Errorf("sequence validation failed: %w", err)
		}
	}

	if isDuplicate {
		if c.metrics != nil {
			c.metrics.CoreEventsRejected.WithLabelValues(eventType, "duplicate").Inc()
		}
		return nil
	}

	// Step 3: Apply. The clock is the event's versioned timestamp; the
	// core never reads wall-clock time into state.
	c.clock = evt.OccurredAt()
	c.outbox.reset()

	provenance, err := c.dispatchEvent(evt)
	if err != nil {
		c.outbox.reset()
		if c.metrics != nil {
			c.metrics.CoreEventsRejected.WithLabelValues(eventType, rejectReason(err)).Inc()
		}
		return fmt.Errorf("dispatch failed: %w", err)
	}

	// Step 4: Hash chain and envelope
	stateDigest := c.computeStateDigest()
	prevHash := c.hasher.GetPrevHash()
	stateHash := c.hasher.ComputeHash(c.sequence, stateDigest)

	output := CoreOutput{
		Event: evt,
		Envelope: &event.Envelope{
			Sequence:       c.sequence,
			IdempotencyKey: idempotencyKey,
			EventType:      evt.EventType(),
			Timestamp:      evt.OccurredAt(),
			SourceSequence: evt.SourceSequence(),
			StateHash:      stateHash,
			PrevHash:       prevHash,
		},
		Payments:   c.outbox.payments,
		Mints:      c.outbox.mints,
		Provenance: provenance,
		StateDelta: stateDigest,
	}
	c.sequence++

	// Step 5: Forward gateway requests to the outbound dispatcher
	if c.outbound != nil {
		for _, p := range output.Payments {
			c.outbound.Pay(p)
			if c.metrics != nil {
				c.metrics.PaymentsIssued.WithLabelValues(string(p.Amount.Symbol)).Inc()
			}
		}
		for _, m := range output.Mints {
			c.outbound.Mint(m)
			if c.metrics != nil {
				c.metrics.TokensMined.Add(float64(m.Amount.Amount))
			}
		}
	}

	// Step 6: Emit. Persistence uses a blocking send (backpressure);
	// projections are non-blocking with silent drop — they can rebuild
	// from the event log if they fall behind.
	if c.persistChan != nil {
		select {
		case c.persistChan <- output:
		default:
			if c.metrics != nil {
				c.metrics.PersistBackpressure.Inc()
			}
			c.persistChan <- output
		}
	}
	if c.projectionChan != nil {
		select {
		case c.projectionChan <- output:
		default:
			if c.metrics != nil {
				c.metrics.ProjectionDrops.WithLabelValues("core").Inc()
			}
		}
	}

	// Step 7: Mark as processed (add to LRU)
	c.idempotency.MarkProcessed(eventType, idempotencyKey)

	if c.metrics != nil {
		c.metrics.CoreEventsApplied.WithLabelValues(eventType).Inc()
		c.metrics.CoreEventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		c.metrics.CoreSequence.Set(float64(c.sequence))
		c.updateStateGauges()
	}

	return nil
}

// getPartition determines the partition key for sequence validation.
// Transfer notices follow the chain watcher's stream; everything else
// shares the operator command stream.
func (c *SettlementCore) getPartition(evt event.Event) string {
	switch evt.(type) {
	case *event.TransferNotice, *event.TokenTransferNotice:
		return "transfers"
	default:
		return "ops"
	}
}

func (c *SettlementCore) recordSequenceError(err error) {
	if c.metrics == nil {
		return
	}
	var seqErr *SequenceError
	if errors.As(err, &seqErr) {
		if seqErr.OutOfOrder {
			c.metrics.EventOutOfOrder.WithLabelValues(seqErr.Partition).Inc()
		} else {
			c.metrics.EventSequenceGap.WithLabelValues(seqErr.Partition).Inc()
		}
	}
}

// rejectReason maps handler errors onto metric labels.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, errs.ErrBounds):
		return "bounds"
	case errors.Is(err, errs.ErrInsufficientValue):
		return "insufficient_value"
	case errors.Is(err, errs.ErrInvariant):
		return "invariant"
	default:
		return "error"
	}
}

func (c *SettlementCore) updateStateGauges() {
	if fund, ok := c.jackpot.Current(); ok {
		c.metrics.JackpotValue.Set(float64(fund.Value.Amount))
		c.metrics.JackpotGeneration.Set(float64(fund.PKey))
	}
	c.metrics.CheckpointCount.Set(float64(c.treasury.Count()))
	c.metrics.InvestorCount.Set(float64(c.jackpot.InvestorCount()))
	c.metrics.OrderBookDepth.Set(float64(c.book.Depth()))
	c.metrics.PayoutsQueued.WithLabelValues("investors").Set(float64(c.jackpot.QueuedInvestorPayouts()))
	c.metrics.PayoutsQueued.WithLabelValues("holders").Set(float64(c.jackpot.QueuedHolderPayouts()))
}

// computeStateDigest creates canonical bytes for the state hash: the
// live fund row plus the aggregate counts every event can move.
func (c *SettlementCore) computeStateDigest() []byte {
	digest := make([]byte, 0, 64)

	if fund, ok := c.jackpot.Current(); ok {
		digest = appendInt64LE(digest, int64(fund.PKey))
		digest = appendInt64LE(digest, fund.Value.Amount)
		digest = appendInt64LE(digest, fund.ToTokenHolders.Amount)
		digest = appendInt64LE(digest, fund.ToOwners.Amount)
	}

	digest = appendInt64LE(digest, int64(c.treasury.Count()))
	digest = appendInt64LE(digest, int64(c.jackpot.InvestorCount()))
	digest = appendInt64LE(digest, int64(c.jackpot.QueuedInvestorPayouts()))
	digest = appendInt64LE(digest, int64(c.jackpot.QueuedHolderPayouts()))
	digest = appendInt64LE(digest, int64(c.book.Depth()))
	digest = appendInt64LE(digest, c.oracle.Rate().Amount)

	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

func (c *SettlementCore) dispatchEvent(evt event.Event) (*treasure.ProvenanceRecord, error) {
	switch e := evt.(type) {
	case *event.TransferNotice:
		return nil, c.handleTransferNotice(e)
	case *event.TokenTransferNotice:
		return nil, c.handleTokenTransferNotice(e)
	case *event.UnlockChest:
		return c.handleUnlockChest(e)

	case *event.RegisterCheckpoint:
		return nil, c.treasury.Register(e.Caller, e.CheckpointKey, e.Owner, treasure.MintParams{
			Title:       e.Title,
			Description: e.Description,
			ImageURL:    e.ImageURL,
			VideoURL:    e.VideoURL,
			Latitude:    e.Latitude,
			Longitude:   e.Longitude,
		})
	case *event.ModifyCheckpoint:
		return nil, c.treasury.Modify(e.Caller, e.CheckpointKey, e.Title, e.Description, e.ImageURL, e.VideoURL)
	case *event.ModifyCheckpointImage:
		return nil, c.treasury.ModifyImage(e.Caller, e.CheckpointKey, e.ImageURL)
	case *event.ModifyCheckpointGPS:
		return nil, c.treasury.ModifyGPS(e.Caller, e.CheckpointKey, e.Latitude, e.Longitude)
	case *event.SetCheckpointJSON:
		return nil, c.treasury.SetJSONData(e.Caller, e.CheckpointKey, e.JSONData)
	case *event.SetSecretCode:
		return nil, c.treasury.SetSecretCode(e.Caller, e.CheckpointKey, e.SecretCode)
	case *event.ActivateCheckpoint:
		return nil, c.treasury.Activate(e.Caller, e.CheckpointKey, e.SecretCode)
	case *event.ResetSecretCode:
		return nil, c.treasury.ResetSecret(e.Caller, e.CheckpointKey, e.SecretCode)
	case *event.SetRankingPoints:
		return nil, c.treasury.SetRankingPoints(e.Caller, e.CheckpointKey, e.Points)
	case *event.RenewCheckpointExpiry:
		return nil, c.treasury.RenewExpiry(e.Caller, e.CheckpointKey)
	case *event.EraseCheckpoint:
		return nil, c.treasury.Erase(e.Caller, e.CheckpointKey)
	case *event.AddSalePrice:
		return nil, c.treasury.AddSalePrice(e.Caller, e.CheckpointKey, e.AskingUSD, e.SaleMemo)
	case *event.DeleteSalePrice:
		return nil, c.treasury.DeleteSalePrice(e.Caller, e.CheckpointKey)

	case *event.AddSponsorItem:
		_, err := c.treasury.AddSponsorItem(e.Caller, e.Sponsor, e.CheckpointKey,
			e.ImageURL, e.TargetURL, e.Description, e.PrizeUSD, e.AdFee)
		return nil, err
	case *event.EraseSponsorItem:
		return nil, c.treasury.EraseSponsorItem(e.Caller, e.SponsorItemKey)

	case *event.ComputeProvision:
		n, err := c.jackpot.ComputeProvision(e.Caller, e.FromKey, e.BatchTag)
		if err == nil && c.metrics != nil {
			c.metrics.ProvisionRowsTagged.Add(float64(n))
		}
		return nil, err
	case *event.PreparePayout:
		_, err := c.jackpot.PreparePayout(e.Caller)
		return nil, err
	case *event.DrainInvestorPayouts:
		n, err := c.jackpot.DrainInvestorQueue(e.Caller)
		if err == nil && c.metrics != nil {
			c.metrics.PayoutsDrained.WithLabelValues("investors").Add(float64(n))
		}
		return nil, err
	case *event.DrainHolderPayouts:
		n, err := c.jackpot.DrainHolderQueue(e.Caller)
		if err == nil && c.metrics != nil {
			c.metrics.PayoutsDrained.WithLabelValues("holders").Add(float64(n))
		}
		return nil, err
	case *event.MonthlyAward:
		return nil, c.jackpot.MonthlyAward(e.Caller, e.YYYYMM,
			jackpot.AwardWinner{Account: e.First, Points: e.FirstPoints},
			jackpot.AwardWinner{Account: e.Second, Points: e.SecondPoints},
			jackpot.AwardWinner{Account: e.Third, Points: e.ThirdPoints},
			c.oracle.Rate())
	case *event.SetFundValue:
		return nil, c.jackpot.SetFundValue(e.Caller, e.Value)
	case *event.AddOwnerProvision:
		return nil, c.jackpot.AddToOwnerProvision(e.Caller, e.Amount)
	case *event.AddFundHistory:
		return nil, c.jackpot.AddHistory(e.Caller, e.CheckpointKey, e.ValueEOS, e.ValueUSD, e.FromTimestamp, e.ToTimestamp)
	case *event.ExecuteChestFunding:
		return nil, c.jackpot.ExecuteChestFunding(e.Caller, e.FundingKey)

	case *event.CancelSellOrder:
		return nil, c.book.Cancel(e.Caller, e.OrderKey)
	case *event.SetExchangeRate:
		return nil, c.oracle.SetRate(e.Rate)
	case *event.SetMinInteractionPrice:
		return nil, c.oracle.SetMinInteractionPrice(e.MinUSD)

	default:
		return nil, fmt.Errorf("unknown event type: %T", evt)
	}
}

// handleTransferNotice routes an incoming EOS transfer by its memo.
func (c *SettlementCore) handleTransferNotice(evt *event.TransferNotice) error {
	if evt.Quantity.Symbol != money.EOS || !evt.Quantity.IsPositive() {
		return fmt.Errorf("%w: transfers must carry a positive EOS quantity", errs.ErrBounds)
	}

	intent := memo.Classify(evt.Memo)
	floor := c.oracle.MinInteractionPriceEOS()

	switch intent.Kind {
	case memo.KindCheckFee, memo.KindWrongCode:
		if _, err := c.treasury.RequireActive(intent.Key); err != nil {
			return err
		}
		if evt.Quantity.LT(floor) {
			return fmt.Errorf("%w: interaction fee below %s", errs.ErrInsufficientValue, floor)
		}
		c.jackpot.CreditInteractionFee(evt.Quantity)

	case memo.KindUnlockFee:
		// The fee is held until the unlock settles through an
		// UnlockChest event carrying the verified payout. Only validate
		// the reference here: the checkpoint must be live and the payer
		// must actually be allowed to unlock it.
		if _, err := c.treasury.RequireUnlockable(intent.Key, evt.From); err != nil {
			return err
		}
		if evt.Quantity.LT(floor) {
			return fmt.Errorf("%w: unlock fee below %s", errs.ErrInsufficientValue, floor)
		}

	case memo.KindSponsorActivation:
		if _, err := c.treasury.ActivateSponsorItem(intent.Key, evt.Quantity); err != nil {
			return err
		}
		c.jackpot.CreditSponsorFee(evt.Quantity)

	case memo.KindRaceCreation:
		if intent.Title == "" {
			return fmt.Errorf("%w: race creation needs a title", errs.ErrBounds)
		}
		if evt.Quantity.LT(floor.Add(floor)) {
			return fmt.Errorf("%w: race creation fee below twice the interaction floor", errs.ErrInsufficientValue)
		}
		c.jackpot.CreditRaceCreationFee(evt.Quantity)

	case memo.KindRaceEntry:
		if intent.Key != RaceEntryKey {
			return fmt.Errorf("%w: race payment must reference row %d", errs.ErrInvariant, RaceEntryKey)
		}
		c.jackpot.CreditRaceEntryFee(evt.Quantity)

	case memo.KindBuyCheckpoint:
		fee, err := c.treasury.Buy(evt.From, intent.Key, evt.Quantity, c.oracle)
		if err != nil {
			return err
		}
		c.jackpot.CreditValue(fee)

	case memo.KindBuyTokens:
		_, err := c.book.Buy(evt.From, evt.Quantity, intent.Quantity, c.oracle.Rate())
		return err

	case memo.KindChestFunding:
		if evt.Quantity.LT(floor) {
			return fmt.Errorf("%w: chest funding below the interaction floor", errs.ErrInsufficientValue)
		}
		c.jackpot.AddChestFunding(evt.From, evt.Quantity, evt.Memo)

	case memo.KindMintCheckpoint:
		if evt.Quantity.LT(floor) {
			return fmt.Errorf("%w: mint fee below the interaction floor", errs.ErrInsufficientValue)
		}
		if _, err := c.treasury.Mint(evt.From, treasure.MintParams{
			Title:       intent.Mint.Title,
			Description: intent.Mint.Description,
			ImageURL:    intent.Mint.ImageURL,
			VideoURL:    intent.Mint.VideoURL,
			Latitude:    intent.Mint.Latitude,
			Longitude:   intent.Mint.Longitude,
		}); err != nil {
			return err
		}
		c.jackpot.CreditValue(evt.Quantity)

	default: // KindDirect
		c.jackpot.DirectDeposit(evt.From, evt.Quantity, floor)
	}

	return nil
}

// handleTokenTransferNotice opens a sell order for escrowed BLKBILL.
func (c *SettlementCore) handleTokenTransferNotice(evt *event.TokenTransferNotice) error {
	if evt.PriceCents == 0 {
		return fmt.Errorf("%w: sell orders need a positive cent price", errs.ErrBounds)
	}
	_, err := c.book.PlaceSellOrder(evt.From, evt.Quantity, evt.PriceCents)
	return err
}

// handleUnlockChest settles a solved checkpoint. When the lost diamond
// was found the live fund folds into the payout first, so the finder's
// split includes the jackpot.
func (c *SettlementCore) handleUnlockChest(evt *event.UnlockChest) (*treasure.ProvenanceRecord, error) {
	if evt.Caller != c.operator {
		return nil, fmt.Errorf("%w: unlock settlement is operator only", errs.ErrUnauthorized)
	}
	payout := evt.Payout
	if payout.Symbol != money.EOS || !payout.IsPositive() {
		return nil, fmt.Errorf("%w: unlock payout must be positive EOS", errs.ErrBounds)
	}

	// Validate the references before touching the fund, so a bad event
	// cannot close the generation and then fail the unlock. The unlocker
	// permission check runs here too: a self-unlock with DiamondFound set
	// must not close the generation on its way to the rejection.
	if _, err := c.treasury.RequireUnlockable(evt.CheckpointKey, evt.ByUser); err != nil {
		return nil, err
	}
	if evt.SponsorItemKey > 0 {
		if _, ok := c.treasury.SponsorItemByKey(evt.SponsorItemKey); !ok {
			return nil, fmt.Errorf("%w: sponsor item %d", errs.ErrNotFound, evt.SponsorItemKey)
		}
	}

	if evt.DiamondFound {
		fundValue, err := c.jackpot.FoldInAndMarkFound(evt.CheckpointKey, evt.ByUser)
		if err != nil {
			return nil, err
		}
		payout = payout.Add(fundValue)
	}

	result, err := c.treasury.Unlock(evt.CheckpointKey, evt.ByUser, payout, evt.DiamondFound, c.oracle.Rate(), evt.SponsorItemKey)
	if err != nil {
		return nil, err
	}

	if result.ToTokenHolders.IsPositive() {
		c.jackpot.AddToTokenHolders(result.ToTokenHolders)
	}

	record := result.Record
	return &record, nil
}

// GetSequence returns the current global sequence number.
func (c *SettlementCore) GetSequence() int64 {
	return c.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (c *SettlementCore) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}

// WarmLRU loads recent idempotency keys into the LRU cache so replayed
// history does not fall through to Postgres.
func (c *SettlementCore) WarmLRU(keys []string) {
	c.idempotency.lru.WarmFromKeys(keys)
}

// GoLive attaches the outbound dispatcher, the output channels, and the
// Postgres dedup tier. Called once, after log replay: a core without
// these rebuilds state from stored events without re-dispatching payouts
// or re-writing rows it was loaded from.
func (c *SettlementCore) GoLive(
	outbound gateway.Dispatcher,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
) {
	c.outbound = outbound
	c.persistChan = persistChan
	c.projectionChan = projectionChan
	c.idempotency.dbChecker = dbChecker
}
