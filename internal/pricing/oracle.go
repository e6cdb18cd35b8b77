// Package pricing holds the exchange-rate oracle and the price settings
// used to gate game interactions. Rates arrive through maintenance events;
// until the first update the engine runs on conservative defaults.
package pricing

import (
	"fmt"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/money"
)

// Defaults applied before the first oracle update.
const (
	// DefaultRate is 2.7600 USD per EOS.
	DefaultRate int64 = 27_600
	// DefaultMinInteractionUSD is 2.0000 USD.
	DefaultMinInteractionUSD int64 = 20_000
)

// Oracle provides the EOS/USD rate and interaction price floors.
type Oracle struct {
	rate        money.Asset // USD per 1 EOS
	minCheckUSD money.Asset // minimum qualifying interaction price
}

func NewOracle() *Oracle {
	return &Oracle{
		rate:        money.New(DefaultRate, money.USD),
		minCheckUSD: money.New(DefaultMinInteractionUSD, money.USD),
	}
}

// Rate returns the USD price of one EOS.
func (o *Oracle) Rate() money.Asset {
	return o.rate
}

// SetRate updates the EOS/USD rate.
func (o *Oracle) SetRate(rate money.Asset) error {
	if rate.Symbol != money.USD || !rate.IsPositive() {
		return fmt.Errorf("%w: oracle rate must be a positive USD amount, got %s", errs.ErrBounds, rate)
	}
	o.rate = rate
	return nil
}

// SetMinInteractionPrice updates the USD floor for qualifying interactions.
func (o *Oracle) SetMinInteractionPrice(usd money.Asset) error {
	if usd.Symbol != money.USD || !usd.IsPositive() {
		return fmt.Errorf("%w: interaction floor must be a positive USD amount, got %s", errs.ErrBounds, usd)
	}
	o.minCheckUSD = usd
	return nil
}

// MinInteractionPriceUSD returns the USD floor for qualifying interactions.
func (o *Oracle) MinInteractionPriceUSD() money.Asset {
	return o.minCheckUSD
}

// MinInteractionPriceEOS converts the USD floor to EOS at the current rate,
// truncating.
func (o *Oracle) MinInteractionPriceEOS() money.Asset {
	amount := money.MulDiv(o.minCheckUSD.Amount, money.Scale, o.rate.Amount)
	return money.New(amount, money.EOS)
}

// USDValue converts an EOS amount to USD at the current rate, truncating.
func (o *Oracle) USDValue(eos money.Asset) money.Asset {
	amount := money.MulDiv(eos.Amount, o.rate.Amount, money.Scale)
	return money.New(amount, money.USD)
}

// EOSValue converts a USD amount to EOS at the current rate, truncating.
func (o *Oracle) EOSValue(usd money.Asset) money.Asset {
	amount := money.MulDiv(usd.Amount, money.Scale, o.rate.Amount)
	return money.New(amount, money.EOS)
}
