package exchange_test

import (
	"errors"
	"testing"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/exchange"
	"DiamondLedger/internal/gateway"
	"DiamondLedger/internal/money"
)

func fixedClock() int64 { return 1_700_000_000 }

func newBook() (*exchange.Book, *gateway.Recorder) {
	rec := &gateway.Recorder{}
	return exchange.NewBook(rec, fixedClock), rec
}

func blkbill(units int64) money.Asset { return money.New(units, money.BLKBILL) }

func TestFullConsumePurchase(t *testing.T) {
	book, rec := newBook()
	// 500 whole tokens at 2 cents each.
	if _, err := book.PlaceSellOrder("seller", blkbill(5_000_000), 2); err != nil {
		t.Fatalf("PlaceSellOrder: %v", err)
	}

	rate := money.New(20_000, money.USD) // 2 USD per EOS
	res, err := book.Buy("buyer", money.New(50_000, money.EOS), 500, rate)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Tokens.Amount != 5_000_000 {
		t.Errorf("tokens = %s, want 500.0000 BLKBILL", res.Tokens)
	}
	if res.AvgPrice.Amount != 200 {
		t.Errorf("avg price = %s, want 0.0200 USD", res.AvgPrice)
	}
	if book.Depth() != 0 {
		t.Errorf("order book depth = %d, want 0 after full consume", book.Depth())
	}
	// The seller gets the full deposit back in EOS, the buyer the tokens.
	if got := rec.PaidTo("seller", money.EOS); got.Amount != 50_000 {
		t.Errorf("seller paid %s, want 5.0000 EOS", got)
	}
	if got := rec.PaidTo("buyer", money.BLKBILL); got.Amount != 5_000_000 {
		t.Errorf("buyer received %s, want 500.0000 BLKBILL", got)
	}

	log := book.BuyLog()
	if len(log) != 1 {
		t.Fatalf("buy log rows = %d, want 1", len(log))
	}
	if log[0].Account != "buyer" || log[0].AvgPrice.Amount != 200 || log[0].EOSPrice.Amount != 20_000 {
		t.Errorf("buy log row = %+v", log[0])
	}
}

func TestPartialFillReducesOrderInPlace(t *testing.T) {
	book, rec := newBook()
	keyA, err := book.PlaceSellOrder("ann", blkbill(1_000_000), 1) // 100 tokens at 1 cent
	if err != nil {
		t.Fatalf("PlaceSellOrder: %v", err)
	}
	keyB, err := book.PlaceSellOrder("ben", blkbill(1_000_000), 2) // 100 tokens at 2 cents
	if err != nil {
		t.Fatalf("PlaceSellOrder: %v", err)
	}

	rate := money.New(10_000, money.USD) // 1 USD per EOS
	res, err := book.Buy("buyer", money.New(20_000, money.EOS), 150, rate)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.Tokens.Amount != 1_500_000 {
		t.Errorf("tokens = %s, want 150.0000 BLKBILL", res.Tokens)
	}
	// 2.0000 USD over 150 tokens truncates to 0.0133 USD per token.
	if res.AvgPrice.Amount != 133 {
		t.Errorf("avg price = %s, want 0.0133 USD", res.AvgPrice)
	}
	if _, ok := book.Order(keyA); ok {
		t.Error("cheapest order survived a full consume")
	}
	partial, ok := book.Order(keyB)
	if !ok {
		t.Fatal("partially filled order was erased")
	}
	if partial.Quantity.Amount != 500_000 {
		t.Errorf("remaining quantity = %s, want 50.0000 BLKBILL", partial.Quantity)
	}
	// Both sellers converted their USD proceeds at the same rate.
	if got := rec.PaidTo("ann", money.EOS); got.Amount != 10_000 {
		t.Errorf("ann paid %s, want 1.0000 EOS", got)
	}
	if got := rec.PaidTo("ben", money.EOS); got.Amount != 10_000 {
		t.Errorf("ben paid %s, want 1.0000 EOS", got)
	}
}

func TestBuyWalksOrdersByPriceNotAge(t *testing.T) {
	book, _ := newBook()
	if _, err := book.PlaceSellOrder("pricey", blkbill(1_000_000), 9); err != nil {
		t.Fatalf("PlaceSellOrder: %v", err)
	}
	cheapKey, err := book.PlaceSellOrder("cheap", blkbill(1_000_000), 3)
	if err != nil {
		t.Fatalf("PlaceSellOrder: %v", err)
	}

	rate := money.New(10_000, money.USD)
	// Budget covers exactly the cheap order: 100 tokens at 3 cents = 3 USD.
	res, err := book.Buy("buyer", money.New(30_000, money.EOS), 100, rate)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if res.AvgPrice.Amount != 300 {
		t.Errorf("avg price = %s, want 0.0300 USD from the cheap order", res.AvgPrice)
	}
	if _, ok := book.Order(cheapKey); ok {
		t.Error("cheap order still open, expensive order must have filled first")
	}
}

func TestBuyRejectsWithoutSideEffects(t *testing.T) {
	book, rec := newBook()
	rate := money.New(10_000, money.USD)

	_, err := book.Buy("buyer", money.New(10_000, money.EOS), 1, rate)
	if !errors.Is(err, errs.ErrInsufficientValue) {
		t.Errorf("empty book error = %v, want ErrInsufficientValue", err)
	}

	key, err := book.PlaceSellOrder("seller", blkbill(500_000), 2) // 50 tokens
	if err != nil {
		t.Fatalf("PlaceSellOrder: %v", err)
	}
	// Promised 300 tokens, only 50 on the book.
	_, err = book.Buy("buyer", money.New(100_000, money.EOS), 300, rate)
	if !errors.Is(err, errs.ErrInsufficientValue) {
		t.Errorf("short book error = %v, want ErrInsufficientValue", err)
	}
	order, ok := book.Order(key)
	if !ok || order.Quantity.Amount != 500_000 {
		t.Errorf("order mutated by rejected purchase: %+v", order)
	}
	if len(rec.Payments) != 0 {
		t.Errorf("rejected purchase issued %d payments", len(rec.Payments))
	}
	if len(book.BuyLog()) != 0 {
		t.Error("rejected purchase wrote a log row")
	}
}

func TestCancelReturnsEscrowOnce(t *testing.T) {
	book, rec := newBook()
	key, err := book.PlaceSellOrder("seller", blkbill(250_000), 5)
	if err != nil {
		t.Fatalf("PlaceSellOrder: %v", err)
	}
	if err := book.Cancel("mallory", key); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("foreign cancel error = %v, want ErrUnauthorized", err)
	}
	if err := book.Cancel("seller", key); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := rec.PaidTo("seller", money.BLKBILL); got.Amount != 250_000 {
		t.Errorf("refund = %s, want 25.0000 BLKBILL", got)
	}
	if err := book.Cancel("seller", key); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second cancel error = %v, want ErrNotFound", err)
	}
}

func TestPlaceSellOrderValidation(t *testing.T) {
	book, _ := newBook()
	if _, err := book.PlaceSellOrder("seller", money.New(100, money.EOS), 2); !errors.Is(err, errs.ErrBounds) {
		t.Errorf("non-BLKBILL order error = %v, want ErrBounds", err)
	}
	if _, err := book.PlaceSellOrder("seller", blkbill(0), 2); !errors.Is(err, errs.ErrBounds) {
		t.Errorf("zero quantity error = %v, want ErrBounds", err)
	}
}
