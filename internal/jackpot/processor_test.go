package jackpot_test

import (
	"errors"
	"fmt"
	"testing"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/gateway"
	"DiamondLedger/internal/jackpot"
	"DiamondLedger/internal/money"
)

const operator = "cptblackbill"

var floor = money.New(7_246, money.EOS)

func fixedClock() int64 { return 1_700_000_000 }

func newProcessor() (*jackpot.Processor, *gateway.Recorder) {
	rec := &gateway.Recorder{}
	return jackpot.NewProcessor(rec, operator, fixedClock), rec
}

func eos(amount int64) money.Asset { return money.New(amount, money.EOS) }

func TestInteractionFeeSplit(t *testing.T) {
	p, _ := newProcessor()
	p.CreditInteractionFee(eos(10_000))
	fund, ok := p.Current()
	if !ok {
		t.Fatal("no live fund")
	}
	if fund.ToTokenHolders.Amount != 1_000 {
		t.Errorf("token holders = %s, want 0.1000 EOS", fund.ToTokenHolders)
	}
	if fund.Value.Amount != 9_000 {
		t.Errorf("jackpot value = %s, want 0.9000 EOS", fund.Value)
	}
}

func TestDirectDepositThreshold(t *testing.T) {
	p, rec := newProcessor()

	// Below the floor: a token crumb, no investment.
	if qualified := p.DirectDeposit("alice", eos(100), floor); qualified {
		t.Error("sub-floor deposit reported as qualified")
	}
	if fund, _ := p.Current(); !fund.Value.IsZero() {
		t.Errorf("fund value = %s after sub-floor deposit, want zero", fund.Value)
	}
	if got := rec.MintedTo("alice"); got.Amount != jackpot.InteractMintReward {
		t.Errorf("minted %s, want one smallest unit", got)
	}
	if p.InvestorCount() != 0 {
		t.Errorf("investor rows = %d, want 0", p.InvestorCount())
	}

	// At the floor: full investment plus mining reward, stake accumulates.
	if qualified := p.DirectDeposit("alice", floor, floor); !qualified {
		t.Error("floor deposit not qualified")
	}
	p.DirectDeposit("alice", eos(10_000), floor)
	inv, ok := p.InvestorByAccount("alice")
	if !ok {
		t.Fatal("investor row missing")
	}
	if want := floor.Amount + 10_000; inv.Invested.Amount != want {
		t.Errorf("invested = %s, want %d units", inv.Invested, want)
	}
	if p.InvestorCount() != 1 {
		t.Errorf("investor rows = %d, want 1 after upsert", p.InvestorCount())
	}
	if fund, _ := p.Current(); fund.Value.Amount != floor.Amount+10_000 {
		t.Errorf("fund value = %s", fund.Value)
	}
}

func TestCreditAfterFoundStartsNewGeneration(t *testing.T) {
	p, _ := newProcessor()
	p.CreditValue(eos(5_000))
	if _, err := p.FoldInAndMarkFound(3, "bob"); err != nil {
		t.Fatalf("FoldInAndMarkFound: %v", err)
	}
	p.CreditValue(eos(700))
	fund, _ := p.Current()
	if fund.FoundAt != 0 {
		t.Error("credit landed in the found generation")
	}
	if fund.Value.Amount != 700 {
		t.Errorf("new generation value = %s, want 0.0700 EOS", fund.Value)
	}
	if _, err := p.FoldInAndMarkFound(4, "carol"); err != nil {
		t.Fatalf("second generation FoldInAndMarkFound: %v", err)
	}
	if _, err := p.FoldInAndMarkFound(5, "dave"); !errors.Is(err, errs.ErrInvariant) {
		t.Errorf("double find error = %v, want ErrInvariant", err)
	}
}

func TestFoldInReturnsValueAndMarks(t *testing.T) {
	p, _ := newProcessor()
	p.CreditValue(eos(123_456))
	value, err := p.FoldInAndMarkFound(9, "bob")
	if err != nil {
		t.Fatalf("FoldInAndMarkFound: %v", err)
	}
	if value.Amount != 123_456 {
		t.Errorf("folded value = %s, want 12.3456 EOS", value)
	}
	fund, _ := p.Current()
	if fund.FoundAt != fixedClock() || fund.FoundBy != "bob" || fund.FoundIn != 9 {
		t.Errorf("found fund = %+v", fund)
	}
}

func TestProvisionSharesAreBasisPoints(t *testing.T) {
	p, _ := newProcessor()
	p.DirectDeposit("alice", eos(30_000), floor)
	p.DirectDeposit("bob", eos(10_000), floor)
	if err := p.AddToOwnerProvision(operator, eos(1_000)); err != nil {
		t.Fatalf("AddToOwnerProvision: %v", err)
	}

	n, err := p.ComputeProvision(operator, 0, "batch1")
	if err != nil {
		t.Fatalf("ComputeProvision: %v", err)
	}
	if n != 2 {
		t.Errorf("processed %d rows, want 2", n)
	}
	alice, _ := p.InvestorByAccount("alice")
	bob, _ := p.InvestorByAccount("bob")
	if alice.PercentBP != 7_500 {
		t.Errorf("alice share = %d bp, want 7500", alice.PercentBP)
	}
	if bob.PercentBP != 2_500 {
		t.Errorf("bob share = %d bp, want 2500", bob.PercentBP)
	}
	if alice.Earned.Amount != 750 || bob.Earned.Amount != 250 {
		t.Errorf("earned = %s / %s, want 0.0750 / 0.0250", alice.Earned, bob.Earned)
	}
	if alice.BatchTag != "batch1" {
		t.Errorf("batch tag = %q, want batch1", alice.BatchTag)
	}
	if _, err := p.ComputeProvision("mallory", 0, "x"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("non-operator provision error = %v, want ErrUnauthorized", err)
	}
}

func TestProvisionOnEmptyFundDefaultsToFullShare(t *testing.T) {
	p, _ := newProcessor()
	p.DirectDeposit("alice", eos(10_000), floor)
	if err := p.SetFundValue(operator, money.Zero(money.EOS)); err != nil {
		t.Fatalf("SetFundValue: %v", err)
	}
	if _, err := p.ComputeProvision(operator, 0, "b"); err != nil {
		t.Fatalf("ComputeProvision: %v", err)
	}
	inv, _ := p.InvestorByAccount("alice")
	if inv.PercentBP != jackpot.PercentScale {
		t.Errorf("share on empty fund = %d bp, want full", inv.PercentBP)
	}
	if !inv.Earned.IsZero() {
		t.Errorf("earned on empty fund = %s, want zero", inv.Earned)
	}
}

func TestFullSettlementAcrossWindows(t *testing.T) {
	p, rec := newProcessor()
	for i := 0; i < 150; i++ {
		p.DirectDeposit(fmt.Sprintf("inv%03d", i), eos(10_000), floor)
	}
	if err := p.AddToOwnerProvision(operator, eos(150_000)); err != nil {
		t.Fatalf("AddToOwnerProvision: %v", err)
	}
	p.AddToTokenHolders(eos(42_000))
	if _, err := p.FoldInAndMarkFound(1, "finder"); err != nil {
		t.Fatalf("FoldInAndMarkFound: %v", err)
	}

	// First window covers keys 0..99.
	n, err := p.ComputeProvision(operator, 0, "ignored")
	if err != nil {
		t.Fatalf("ComputeProvision: %v", err)
	}
	if n != 100 {
		t.Errorf("first window processed %d rows, want 100", n)
	}

	// Preparation must refuse while 50 rows still lack a final provision.
	if _, err := p.PreparePayout(operator); !errors.Is(err, errs.ErrInvariant) {
		t.Errorf("premature prepare error = %v, want ErrInvariant", err)
	}

	n, err = p.ComputeProvision(operator, 100, "ignored")
	if err != nil {
		t.Fatalf("ComputeProvision: %v", err)
	}
	if n != 50 {
		t.Errorf("second window processed %d rows, want 50", n)
	}
	inv, _ := p.InvestorByAccount("inv000")
	if inv.BatchTag != jackpot.BatchReady {
		t.Errorf("batch tag after find = %q, want %q", inv.BatchTag, jackpot.BatchReady)
	}

	// Each investor holds 1/150 of the fund; earned truncates to 66 bp of
	// the provision pool.
	done, err := p.PreparePayout(operator)
	if err != nil {
		t.Fatalf("PreparePayout: %v", err)
	}
	if done {
		t.Error("first prepare call reported done with rows remaining")
	}
	if p.InvestorCount() != 51 {
		t.Errorf("investors after first prepare = %d, want 51", p.InvestorCount())
	}
	done, err = p.PreparePayout(operator)
	if err != nil {
		t.Fatalf("second PreparePayout: %v", err)
	}
	if !done {
		t.Error("second prepare call did not finish")
	}
	if p.QueuedInvestorPayouts() != 150 {
		t.Errorf("queued payouts = %d, want 150", p.QueuedInvestorPayouts())
	}
	if p.QueuedHolderPayouts() != 1 {
		t.Errorf("queued holder payouts = %d, want 1", p.QueuedHolderPayouts())
	}

	// A fresh empty generation replaces the found one.
	fund, _ := p.Current()
	if fund.FoundAt != 0 || !fund.Value.IsZero() {
		t.Errorf("new generation = %+v, want unfound and empty", fund)
	}

	// Drain in batches of ten.
	for i := 0; i < 15; i++ {
		n, err := p.DrainInvestorQueue(operator)
		if err != nil {
			t.Fatalf("DrainInvestorQueue: %v", err)
		}
		if n != jackpot.DrainBatch {
			t.Fatalf("drain batch %d settled %d entries, want %d", i, n, jackpot.DrainBatch)
		}
	}
	if p.QueuedInvestorPayouts() != 0 {
		t.Errorf("queue not empty after draining: %d", p.QueuedInvestorPayouts())
	}
	if len(rec.Payments) != 150 {
		t.Errorf("payments issued = %d, want 150", len(rec.Payments))
	}
	// The holder share sits under the operating account and is dropped,
	// not paid.
	if n, err := p.DrainHolderQueue(operator); err != nil || n != 1 {
		t.Fatalf("DrainHolderQueue = %d, %v", n, err)
	}
	if got := rec.PaidTo(operator, money.EOS); !got.IsZero() {
		t.Errorf("operator was paid %s, want nothing", got)
	}
}

func TestMonthlyAward(t *testing.T) {
	p, rec := newProcessor()
	p.CreditValue(eos(1_000_000))
	rate := money.New(27_600, money.USD)

	err := p.MonthlyAward(operator, 202_609,
		jackpot.AwardWinner{Account: "gold", Points: 90},
		jackpot.AwardWinner{Account: "silver", Points: 50},
		jackpot.AwardWinner{Account: "bronze", Points: 0},
		rate)
	if err != nil {
		t.Fatalf("MonthlyAward: %v", err)
	}
	if got := rec.PaidTo("gold", money.EOS); got.Amount != 25_000 {
		t.Errorf("first place paid %s, want 2.5000 EOS", got)
	}
	if got := rec.PaidTo("silver", money.EOS); got.Amount != 15_000 {
		t.Errorf("second place paid %s, want 1.5000 EOS", got)
	}
	// Zero points forfeits third place; the share stays in the fund.
	if got := rec.PaidTo("bronze", money.EOS); !got.IsZero() {
		t.Errorf("bronze paid %s, want nothing", got)
	}
	fund, _ := p.Current()
	if fund.Value.Amount != 960_000 {
		t.Errorf("fund after award = %s, want 96.0000 EOS", fund.Value)
	}
	record, ok := p.AwardByMonth(202_609)
	if !ok {
		t.Fatal("award record missing")
	}
	if record.ThirdEOS.Amount != 10_000 {
		t.Errorf("recorded third award = %s, want 1.0000 EOS", record.ThirdEOS)
	}
	if record.Rate != rate {
		t.Errorf("recorded rate = %s, want %s", record.Rate, rate)
	}

	// Same month twice is rejected.
	err = p.MonthlyAward(operator, 202_609,
		jackpot.AwardWinner{Account: "gold", Points: 1},
		jackpot.AwardWinner{}, jackpot.AwardWinner{}, rate)
	if !errors.Is(err, errs.ErrInvariant) {
		t.Errorf("duplicate month error = %v, want ErrInvariant", err)
	}

	// No award once the jackpot is found.
	if _, err := p.FoldInAndMarkFound(1, "bob"); err != nil {
		t.Fatalf("FoldInAndMarkFound: %v", err)
	}
	err = p.MonthlyAward(operator, 202_610,
		jackpot.AwardWinner{Account: "gold", Points: 1},
		jackpot.AwardWinner{}, jackpot.AwardWinner{}, rate)
	if !errors.Is(err, errs.ErrInvariant) {
		t.Errorf("award on found jackpot error = %v, want ErrInvariant", err)
	}
}

func TestRelocationHistoryDeductsFee(t *testing.T) {
	p, _ := newProcessor()
	p.CreditValue(eos(500_000))
	err := p.AddHistory(operator, 12, eos(500_000), money.New(1_380_000, money.USD), 100, 200)
	if err != nil {
		t.Fatalf("AddHistory: %v", err)
	}
	fund, _ := p.Current()
	if fund.Value.Amount != 495_000 {
		t.Errorf("fund after relocation = %s, want 49.5000 EOS", fund.Value)
	}
	if p.HistoryCount() != 1 {
		t.Errorf("history rows = %d, want 1", p.HistoryCount())
	}
}

func TestChestFundingLifecycle(t *testing.T) {
	p, _ := newProcessor()
	key := p.AddChestFunding("donor", eos(50_000), "{ChestAmount:2}")
	if err := p.ExecuteChestFunding("mallory", key); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("non-operator execute error = %v, want ErrUnauthorized", err)
	}
	if err := p.ExecuteChestFunding(operator, key); err != nil {
		t.Fatalf("ExecuteChestFunding: %v", err)
	}
	row, _ := p.ChestFundingByKey(key)
	if !row.Executed {
		t.Error("funding row not marked executed")
	}
	if err := p.ExecuteChestFunding(operator, 99); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing funding error = %v, want ErrNotFound", err)
	}
}
