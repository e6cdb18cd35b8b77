package pricing_test

import (
	"testing"

	"DiamondLedger/internal/money"
	"DiamondLedger/internal/pricing"
)

func TestDefaultFloorConversion(t *testing.T) {
	o := pricing.NewOracle()
	// 2.0000 USD at 2.7600 USD/EOS = 0.7246 EOS, truncated.
	got := o.MinInteractionPriceEOS()
	if got.Amount != 7_246 {
		t.Errorf("MinInteractionPriceEOS = %s, want 0.7246 EOS", got)
	}
	if got.Symbol != money.EOS {
		t.Errorf("symbol = %s, want EOS", got.Symbol)
	}
}

func TestUSDValueRoundTripTruncates(t *testing.T) {
	o := pricing.NewOracle()
	if err := o.SetRate(money.New(30_000, money.USD)); err != nil {
		t.Fatalf("SetRate: %v", err)
	}
	// 1.5000 EOS at 3.0000 USD/EOS = 4.5000 USD.
	usd := o.USDValue(money.New(15_000, money.EOS))
	if usd.Amount != 45_000 {
		t.Errorf("USDValue = %s, want 4.5000 USD", usd)
	}
	eos := o.EOSValue(money.New(10_000, money.USD))
	if eos.Amount != 3_333 {
		t.Errorf("EOSValue = %s, want 0.3333 EOS", eos)
	}
}

func TestSetRateRejectsBadInput(t *testing.T) {
	o := pricing.NewOracle()
	if err := o.SetRate(money.New(0, money.USD)); err == nil {
		t.Error("SetRate accepted zero rate")
	}
	if err := o.SetRate(money.New(100, money.EOS)); err == nil {
		t.Error("SetRate accepted non-USD rate")
	}
	if err := o.SetMinInteractionPrice(money.New(-1, money.USD)); err == nil {
		t.Error("SetMinInteractionPrice accepted negative floor")
	}
}
