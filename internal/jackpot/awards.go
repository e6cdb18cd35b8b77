package jackpot

import (
	"fmt"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/gateway"
	"DiamondLedger/internal/money"
)

// MonthlyAward pays the ranking competition winners out of the live
// jackpot: 2.5% to first place, 1.5% to second, 1.0% to third. Each month
// can be awarded once and only while the jackpot is unfound. Winners with
// zero points forfeit their share; forfeited shares stay in the fund.
func (p *Processor) MonthlyAward(caller string, yyyymm uint64, first, second, third AwardWinner, rate money.Asset) error {
	if err := p.requireOperator(caller); err != nil {
		return err
	}
	if _, ok := p.awards.Get(yyyymm); ok {
		return fmt.Errorf("%w: monthly ranking award %d already exists", errs.ErrInvariant, yyyymm)
	}
	fund, ok := p.funds.Last()
	if !ok || fund.FoundAt != 0 {
		return fmt.Errorf("%w: the jackpot is already found, no prize available", errs.ErrInvariant)
	}

	firstEOS := money.New(money.MulDiv(fund.Value.Amount, FirstAwardPerMille, 1000), money.EOS)
	secondEOS := money.New(money.MulDiv(fund.Value.Amount, SecondAwardPerMille, 1000), money.EOS)
	thirdEOS := money.New(money.MulDiv(fund.Value.Amount, ThirdAwardPerMille, 1000), money.EOS)

	if err := p.awards.Insert(AwardRecord{
		YYYYMM:    yyyymm,
		First:     first,
		Second:    second,
		Third:     third,
		FirstEOS:  firstEOS,
		SecondEOS: secondEOS,
		ThirdEOS:  thirdEOS,
		Rate:      rate,
		Timestamp: p.now(),
	}); err != nil {
		return err
	}

	paid := money.Zero(money.EOS)
	pay := func(w AwardWinner, amount money.Asset, place string) {
		if w.Points == 0 || !amount.IsPositive() {
			return
		}
		p.dispatch.Pay(gateway.PaymentRequest{
			To:     w.Account,
			Amount: amount,
			Memo:   fmt.Sprintf("Congrats! You won %s in the last month competition with %d points.", place, w.Points),
		})
		paid = paid.Add(amount)
	}
	pay(first, firstEOS, "first place")
	pay(second, secondEOS, "second place")
	pay(third, thirdEOS, "third place")

	return p.funds.Modify(fund.PKey, func(f *Fund) {
		f.Value = f.Value.Sub(paid)
	})
}

// AwardByMonth returns the stored award record for a month.
func (p *Processor) AwardByMonth(yyyymm uint64) (AwardRecord, bool) {
	return p.awards.Get(yyyymm)
}

// SetFundValue overrides the live jackpot value. Operator only, used when
// the oracle rate moves the USD target.
func (p *Processor) SetFundValue(caller string, value money.Asset) error {
	if err := p.requireOperator(caller); err != nil {
		return err
	}
	fund, ok := p.funds.Last()
	if !ok {
		return fmt.Errorf("%w: no jackpot fund", errs.ErrInvariant)
	}
	return p.funds.Modify(fund.PKey, func(f *Fund) {
		f.Value = value
	})
}

// AddHistory records a jackpot relocation and deducts the relocation fee
// from the fund. The deducted amount seeds a random checkpoint chest.
func (p *Processor) AddHistory(caller string, checkpointKey uint64, valueEOS, valueUSD money.Asset, fromTS, toTS int64) error {
	if err := p.requireOperator(caller); err != nil {
		return err
	}
	if err := p.history.Insert(HistoryRecord{
		PKey:          p.history.NextKey(),
		CheckpointKey: checkpointKey,
		ValueEOS:      valueEOS,
		ValueUSD:      valueUSD,
		FromTimestamp: fromTS,
		ToTimestamp:   toTS,
	}); err != nil {
		return err
	}
	fund, ok := p.funds.Last()
	if !ok {
		return fmt.Errorf("%w: no jackpot fund", errs.ErrInvariant)
	}
	fee := fund.Value.Percent(RelocationFeePercent)
	return p.funds.Modify(fund.PKey, func(f *Fund) {
		f.Value = f.Value.Sub(fee)
	})
}

// HistoryCount returns the number of relocation records.
func (p *Processor) HistoryCount() int {
	return p.history.Len()
}

// AddChestFunding records a donation earmarked for random chest refills.
func (p *Processor) AddChestFunding(from string, amount money.Asset, note string) uint64 {
	key := p.chestFunds.NextKey()
	if err := p.chestFunds.Insert(ChestFunding{
		PKey:      key,
		From:      from,
		Amount:    amount,
		Memo:      note,
		Timestamp: p.now(),
	}); err != nil {
		panic(err)
	}
	return key
}

// ExecuteChestFunding marks a recorded donation as distributed.
func (p *Processor) ExecuteChestFunding(caller string, key uint64) error {
	if err := p.requireOperator(caller); err != nil {
		return err
	}
	if _, ok := p.chestFunds.Get(key); !ok {
		return fmt.Errorf("%w: chest funding %d", errs.ErrNotFound, key)
	}
	return p.chestFunds.Modify(key, func(c *ChestFunding) {
		c.Executed = true
	})
}

// ChestFundingByKey returns a recorded donation.
func (p *Processor) ChestFundingByKey(key uint64) (ChestFunding, bool) {
	return p.chestFunds.Get(key)
}
