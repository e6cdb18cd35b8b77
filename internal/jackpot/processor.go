// Package jackpot manages the lost-diamond fund: crediting fee shares,
// tracking investors, and the three-phase pro-rata settlement that runs
// when the jackpot is found. Settlement is cursor-driven so every call
// touches a bounded number of rows.
package jackpot

import (
	"fmt"
	"hash/fnv"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/gateway"
	"DiamondLedger/internal/money"
	"DiamondLedger/internal/table"
)

// Processor owns the fund generations, the investor ledger and the payout
// queues.
type Processor struct {
	funds         *table.Table[Fund]
	investors     *table.Table[Investor]
	investorQueue *table.Table[PayoutEntry]
	holderQueue   *table.Table[PayoutEntry]
	awards        *table.Table[AwardRecord]
	history       *table.Table[HistoryRecord]
	chestFunds    *table.Table[ChestFunding]
	dispatch      gateway.Dispatcher
	operator      string
	now           func() int64
}

// NewProcessor creates a processor with one empty live fund. The operator
// account never receives payouts; its queue entries are dropped.
func NewProcessor(dispatch gateway.Dispatcher, operator string, now func() int64) *Processor {
	investors := table.New("investors", func(i Investor) uint64 { return i.PKey })
	investors.AddIndex("account", func(i Investor) uint64 { return accountHash(i.Account) })
	p := &Processor{
		funds:         table.New("funds", func(f Fund) uint64 { return f.PKey }),
		investors:     investors,
		investorQueue: table.New("investorpayouts", func(e PayoutEntry) uint64 { return accountHash(e.Account) }),
		holderQueue:   table.New("holderpayouts", func(e PayoutEntry) uint64 { return accountHash(e.Account) }),
		awards:        table.New("monthlyawards", func(a AwardRecord) uint64 { return a.YYYYMM }),
		history:       table.New("jackpothistory", func(h HistoryRecord) uint64 { return h.PKey }),
		chestFunds:    table.New("chestfunding", func(c ChestFunding) uint64 { return c.PKey }),
		dispatch:      dispatch,
		operator:      operator,
		now:           now,
	}
	p.newFund()
	return p
}

// Current returns the newest fund generation.
func (p *Processor) Current() (Fund, bool) {
	return p.funds.Last()
}

// InvestorCount returns the number of open investor rows.
func (p *Processor) InvestorCount() int {
	return p.investors.Len()
}

// InvestorByAccount looks up an investor row by account name.
func (p *Processor) InvestorByAccount(account string) (Investor, bool) {
	return p.investors.IndexFind("account", accountHash(account), func(i Investor) bool {
		return i.Account == account
	})
}

// CreditValue adds the full amount to the live jackpot value.
func (p *Processor) CreditValue(amount money.Asset) {
	p.credit(money.Zero(money.EOS), amount)
}

// CreditInteractionFee settles a checkpoint interaction fee: 10% to token
// holders, 90% to the jackpot value.
func (p *Processor) CreditInteractionFee(amount money.Asset) {
	p.credit(amount.Percent(10), amount.Percent(90))
}

// CreditSponsorFee settles a sponsor activation fee: 10% to token holders,
// 20% to the jackpot value. The rest stays with the operator as chest
// funding for the sponsored checkpoint.
func (p *Processor) CreditSponsorFee(amount money.Asset) {
	p.credit(amount.Percent(10), amount.Percent(20))
}

// CreditRaceCreationFee settles a race creation fee half and half.
func (p *Processor) CreditRaceCreationFee(amount money.Asset) {
	p.credit(amount.Percent(50), amount.Percent(50))
}

// CreditRaceEntryFee settles a race entry fee: 20% to token holders, 80%
// to the jackpot value.
func (p *Processor) CreditRaceEntryFee(amount money.Asset) {
	p.credit(amount.Percent(20), amount.Percent(80))
}

// AddToTokenHolders adds an amount straight to the token holder share.
func (p *Processor) AddToTokenHolders(amount money.Asset) {
	p.credit(amount, money.Zero(money.EOS))
}

// AddToOwnerProvision adds an amount to the investor provision pool.
// Operator only; the pool is funded from operating income at the
// operator's discretion.
func (p *Processor) AddToOwnerProvision(caller string, amount money.Asset) error {
	if err := p.requireOperator(caller); err != nil {
		return err
	}
	fund, _ := p.funds.Last()
	key := fund.PKey
	if fund.FoundAt != 0 {
		key = p.newFund()
	}
	return p.funds.Modify(key, func(f *Fund) {
		f.ToOwners = f.ToOwners.Add(amount)
	})
}

// DirectDeposit handles an unclassified transfer. Amounts at or above the
// interaction floor become a jackpot investment: the full amount joins the
// fund, the sender's investor stake grows and mining rewards are issued.
// Smaller amounts only mine a token crumb. Returns whether the deposit
// qualified as an investment.
func (p *Processor) DirectDeposit(from string, amount, floorEOS money.Asset) bool {
	if amount.LT(floorEOS) {
		p.dispatch.Mint(gateway.MintRequest{
			To:     from,
			Amount: money.New(InteractMintReward, money.BLKBILL),
			Memo:   "Mined BLKBILLs for playing The Lost Diamond.",
		})
		return false
	}
	p.CreditValue(amount)
	p.upsertInvestor(from, amount)
	p.dispatch.Mint(gateway.MintRequest{
		To:     from,
		Amount: money.New(InvestorMintReward, money.BLKBILL),
		Memo:   "Mined BLKBILLs for investing in the lost diamond.",
	})
	return true
}

// FoldInAndMarkFound freezes the live fund when the jackpot is found and
// returns its value so it can be folded into the unlock payout.
func (p *Processor) FoldInAndMarkFound(checkpointKey uint64, byUser string) (money.Asset, error) {
	fund, ok := p.funds.Last()
	if !ok || fund.FoundAt != 0 {
		return money.Asset{}, fmt.Errorf("%w: the jackpot is already found", errs.ErrInvariant)
	}
	if err := p.funds.Modify(fund.PKey, func(f *Fund) {
		f.FoundAt = p.now()
		f.FoundBy = byUser
		f.FoundIn = checkpointKey
	}); err != nil {
		return money.Asset{}, err
	}
	return fund.Value, nil
}

// credit routes amounts into the live fund, starting a new generation
// first when the current one has been found.
func (p *Processor) credit(toHolders, toValue money.Asset) {
	fund, _ := p.funds.Last()
	key := fund.PKey
	if fund.FoundAt != 0 {
		key = p.newFund()
	}
	if err := p.funds.Modify(key, func(f *Fund) {
		f.ToTokenHolders = f.ToTokenHolders.Add(toHolders)
		f.Value = f.Value.Add(toValue)
	}); err != nil {
		panic(err)
	}
}

func (p *Processor) newFund() uint64 {
	key := p.funds.NextKey()
	fund := Fund{
		PKey:           key,
		Value:          money.Zero(money.EOS),
		ToTokenHolders: money.Zero(money.EOS),
		ToOwners:       money.Zero(money.EOS),
	}
	if err := p.funds.Insert(fund); err != nil {
		panic(err)
	}
	return key
}

func (p *Processor) upsertInvestor(account string, amount money.Asset) {
	existing, ok := p.InvestorByAccount(account)
	if ok {
		if err := p.investors.Modify(existing.PKey, func(i *Investor) {
			i.Invested = i.Invested.Add(amount)
		}); err != nil {
			panic(err)
		}
		return
	}
	if err := p.investors.Insert(Investor{
		PKey:      p.investors.NextKey(),
		Account:   account,
		Invested:  amount,
		Earned:    money.Zero(money.EOS),
		CreatedAt: p.now(),
	}); err != nil {
		panic(err)
	}
}

func (p *Processor) requireOperator(caller string) error {
	if caller != p.operator {
		return fmt.Errorf("%w: settlement maintenance is operator only", errs.ErrUnauthorized)
	}
	return nil
}

func accountHash(account string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(account))
	return h.Sum64()
}
