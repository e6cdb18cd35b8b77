// Package gateway carries outbound value movements. The settlement core
// never moves funds directly; it records payment and mint requests through
// the Dispatcher and a downstream worker delivers them to the treasury.
package gateway

import "DiamondLedger/internal/money"

// PaymentRequest asks the treasury to transfer held funds to an account.
type PaymentRequest struct {
	To     string
	Amount money.Asset
	Memo   string
}

// MintRequest asks the treasury to issue new utility tokens to an account.
type MintRequest struct {
	To     string
	Amount money.Asset
	Memo   string
}

// Dispatcher is the capability the settlement core holds for moving value
// out. Implementations must preserve request order.
type Dispatcher interface {
	Pay(PaymentRequest)
	Mint(MintRequest)
}

// Request is the union carried on the outbound queue.
type Request struct {
	Payment *PaymentRequest
	Mint    *MintRequest
}

// ChannelDispatcher forwards requests onto a channel. The send blocks when
// the channel is full so outbound requests are never dropped.
type ChannelDispatcher struct {
	out chan Request
}

// NewChannelDispatcher creates a dispatcher with the given queue depth.
func NewChannelDispatcher(depth int) *ChannelDispatcher {
	return &ChannelDispatcher{out: make(chan Request, depth)}
}

// Requests exposes the outbound queue for the delivery worker.
func (d *ChannelDispatcher) Requests() <-chan Request {
	return d.out
}

// Close closes the outbound queue. Call only after the settlement loop has
// stopped.
func (d *ChannelDispatcher) Close() {
	close(d.out)
}

func (d *ChannelDispatcher) Pay(p PaymentRequest) {
	d.out <- Request{Payment: &p}
}

func (d *ChannelDispatcher) Mint(m MintRequest) {
	d.out <- Request{Mint: &m}
}

// Recorder captures requests in order for inspection in tests.
type Recorder struct {
	Payments []PaymentRequest
	Mints    []MintRequest
}

func (r *Recorder) Pay(p PaymentRequest) {
	r.Payments = append(r.Payments, p)
}

func (r *Recorder) Mint(m MintRequest) {
	r.Mints = append(r.Mints, m)
}

// TotalPaid sums recorded payments of one symbol.
func (r *Recorder) TotalPaid(symbol money.Symbol) money.Asset {
	total := money.Zero(symbol)
	for _, p := range r.Payments {
		if p.Amount.Symbol == symbol {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// PaidTo sums recorded payments of one symbol to one account.
func (r *Recorder) PaidTo(account string, symbol money.Symbol) money.Asset {
	total := money.Zero(symbol)
	for _, p := range r.Payments {
		if p.To == account && p.Amount.Symbol == symbol {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// MintedTo sums recorded mints to one account.
func (r *Recorder) MintedTo(account string) money.Asset {
	total := money.Zero(money.BLKBILL)
	for _, m := range r.Mints {
		if m.To == account {
			total = total.Add(m.Amount)
		}
	}
	return total
}
