// Package exchange implements the utility-token order book. Sellers escrow
// BLKBILL with the operator and name a USD price; buyers send EOS with a
// promised quantity and the book consumes sell orders ascending by price
// until the budget runs out.
package exchange

import (
	"fmt"
	"math/big"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/gateway"
	"DiamondLedger/internal/money"
	"DiamondLedger/internal/table"
)

// Order is an open sell order. Quantity is escrowed BLKBILL; UnitPrice is
// USD per whole token.
type Order struct {
	PKey      uint64
	Account   string
	Quantity  money.Asset
	UnitPrice money.Asset
	CreatedAt int64
}

// BuyLogEntry is the audit row appended after every completed purchase.
type BuyLogEntry struct {
	PKey      uint64
	Account   string
	Tokens    money.Asset // BLKBILL delivered
	AvgPrice  money.Asset // USD per whole token, truncated average
	EOSPrice  money.Asset // USD price of one EOS at purchase time
	Timestamp int64
}

// BuyResult summarizes a settled purchase.
type BuyResult struct {
	Tokens   money.Asset
	AvgPrice money.Asset
	SpentUSD *big.Int // smallest-unit USD with 8 implied decimals
}

// Book is the in-memory order book plus its purchase log.
type Book struct {
	orders   *table.Table[Order]
	buyLog   *table.Table[BuyLogEntry]
	dispatch gateway.Dispatcher
	now      func() int64
}

// NewBook creates an empty order book.
func NewBook(dispatch gateway.Dispatcher, now func() int64) *Book {
	orders := table.New("sellorders", func(o Order) uint64 { return o.PKey })
	orders.AddIndex("price", func(o Order) uint64 { return uint64(o.UnitPrice.Amount) })
	return &Book{
		orders:   orders,
		buyLog:   table.New("buylog", func(e BuyLogEntry) uint64 { return e.PKey }),
		dispatch: dispatch,
		now:      now,
	}
}

// PlaceSellOrder opens a sell order for escrowed tokens. The price arrives
// as whole US cents per token, the way the transfer memo encodes it.
func (b *Book) PlaceSellOrder(seller string, quantity money.Asset, priceCents uint64) (uint64, error) {
	if quantity.Symbol != money.BLKBILL || !quantity.IsPositive() {
		return 0, fmt.Errorf("%w: sell orders need a positive BLKBILL quantity", errs.ErrBounds)
	}
	key := b.orders.NextKey()
	order := Order{
		PKey:      key,
		Account:   seller,
		Quantity:  quantity,
		UnitPrice: money.New(int64(priceCents)*100, money.USD),
		CreatedAt: b.now(),
	}
	if err := b.orders.Insert(order); err != nil {
		return 0, err
	}
	return key, nil
}

// Order returns an open sell order.
func (b *Book) Order(key uint64) (Order, bool) {
	return b.orders.Get(key)
}

// Depth returns the number of open sell orders.
func (b *Book) Depth() int {
	return b.orders.Len()
}

// Cancel returns the escrowed tokens of a sell order to its owner and
// removes it. Only the order owner may cancel; a second cancel finds
// nothing.
func (b *Book) Cancel(caller string, key uint64) error {
	order, ok := b.orders.Get(key)
	if !ok {
		return fmt.Errorf("%w: sell order %d", errs.ErrNotFound, key)
	}
	if caller != order.Account {
		return fmt.Errorf("%w: sell order %d belongs to %s", errs.ErrUnauthorized, key, order.Account)
	}
	b.dispatch.Pay(gateway.PaymentRequest{
		To:     order.Account,
		Amount: order.Quantity,
		Memo:   "Returned BLKBILL tokens from cancelled sell order.",
	})
	return b.orders.Erase(key)
}

// Buy spends an EOS deposit on the cheapest open sell orders. The budget
// is deposit times the oracle rate, tracked in USD with 8 implied
// decimals. Orders are fully consumed while they fit; the first order that
// does not fit is reduced in place and the walk stops. The whole matched
// quantity must cover the promised whole-token quantity and the budget may
// never be exceeded, otherwise the purchase is rejected before any state
// changes.
func (b *Book) Buy(buyer string, deposit money.Asset, promisedTokens uint64, rate money.Asset) (BuyResult, error) {
	if deposit.Symbol != money.EOS || !deposit.IsPositive() {
		return BuyResult{}, fmt.Errorf("%w: token purchases are paid in EOS", errs.ErrBounds)
	}

	budget := money.Mul(rate.Amount, deposit.Amount)
	defer money.ReleaseBig(budget)

	fills, quantity, spent := b.matchOrders(budget, rate.Amount)
	if quantity == 0 {
		return BuyResult{}, fmt.Errorf("%w: no tokens available", errs.ErrInsufficientValue)
	}
	if quantity < int64(promisedTokens)*money.Scale {
		return BuyResult{}, fmt.Errorf("%w: promised token quantity is no longer available", errs.ErrInsufficientValue)
	}
	if spent.Cmp(budget) > 0 {
		return BuyResult{}, fmt.Errorf("%w: promised token quantity exceeds the agreed price", errs.ErrInsufficientValue)
	}

	// All checks passed; apply the fills.
	for _, f := range fills {
		if f.remaining == 0 {
			if err := b.orders.Erase(f.orderKey); err != nil {
				panic(err)
			}
		} else {
			if err := b.orders.Modify(f.orderKey, func(o *Order) {
				o.Quantity = money.New(f.remaining, money.BLKBILL)
			}); err != nil {
				panic(err)
			}
		}
		b.dispatch.Pay(gateway.PaymentRequest{
			To:     f.seller,
			Amount: money.New(f.sellerEOS, money.EOS),
			Memo:   fmt.Sprintf("Payment for selling %s on the token exchange.", money.New(f.filled, money.BLKBILL)),
		})
	}

	avg := new(big.Int).Quo(spent, big.NewInt(quantity))
	avgPrice := money.New(avg.Int64(), money.USD)
	tokens := money.New(quantity, money.BLKBILL)
	b.dispatch.Pay(gateway.PaymentRequest{
		To:     buyer,
		Amount: tokens,
		Memo:   fmt.Sprintf("Buying BLKBILL tokens on the exchange for %s per token.", avgPrice),
	})

	if err := b.buyLog.Insert(BuyLogEntry{
		PKey:      b.buyLog.NextKey(),
		Account:   buyer,
		Tokens:    tokens,
		AvgPrice:  avgPrice,
		EOSPrice:  money.New(rate.Amount, money.USD),
		Timestamp: b.now(),
	}); err != nil {
		panic(err)
	}

	return BuyResult{Tokens: tokens, AvgPrice: avgPrice, SpentUSD: new(big.Int).Set(spent)}, nil
}

// BuyLog returns all purchase log rows in order.
func (b *Book) BuyLog() []BuyLogEntry {
	out := make([]BuyLogEntry, 0, b.buyLog.Len())
	b.buyLog.Scan(0, ^uint64(0), func(e BuyLogEntry) bool {
		out = append(out, e)
		return true
	})
	return out
}

type fill struct {
	orderKey  uint64
	seller    string
	filled    int64 // token units taken from the order
	remaining int64 // token units left on the order, zero erases it
	sellerEOS int64 // payment owed to the seller
}

// matchOrders walks sell orders ascending by price and plans fills until
// the USD budget is exhausted. Nothing is mutated here; the caller applies
// the plan only after all purchase checks pass. Seller proceeds are the
// filled USD value converted back to EOS at the rate, truncated.
func (b *Book) matchOrders(budget *big.Int, rate int64) ([]fill, int64, *big.Int) {
	var fills []fill
	var quantity int64
	spent := new(big.Int)
	remaining := new(big.Int).Set(budget)

	b.orders.IndexScan("price", 0, func(o Order) bool {
		if remaining.Sign() <= 0 {
			return false
		}
		orderValue := money.Mul(o.Quantity.Amount, o.UnitPrice.Amount)
		defer money.ReleaseBig(orderValue)

		if orderValue.Cmp(remaining) <= 0 {
			// Full consume.
			quantity += o.Quantity.Amount
			spent.Add(spent, orderValue)
			remaining.Sub(remaining, orderValue)
			fills = append(fills, fill{
				orderKey:  o.PKey,
				seller:    o.Account,
				filled:    o.Quantity.Amount,
				remaining: 0,
				sellerEOS: money.MulDiv(o.Quantity.Amount, o.UnitPrice.Amount, rate),
			})
			return true
		}
		// Partial fill: take only what the rest of the budget buys.
		price := big.NewInt(o.UnitPrice.Amount)
		taken := new(big.Int).Quo(remaining, price).Int64()
		if taken > 0 {
			cost := new(big.Int).Mul(big.NewInt(taken), price)
			quantity += taken
			spent.Add(spent, cost)
			remaining.Sub(remaining, cost)
			fills = append(fills, fill{
				orderKey:  o.PKey,
				seller:    o.Account,
				filled:    taken,
				remaining: o.Quantity.Amount - taken,
				sellerEOS: money.MulDiv(taken, o.UnitPrice.Amount, rate),
			})
		}
		return false
	})
	return fills, quantity, spent
}
