package jackpot

import (
	"fmt"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/gateway"
	"DiamondLedger/internal/money"
	"DiamondLedger/internal/table"
)

type payoutTable = table.Table[PayoutEntry]

// ComputeProvision recalculates investor shares for the primary-key window
// [fromKey, fromKey+ProvisionWindow). Shares are basis points of the fund
// value; earned provision is the investor's truncated share of the owner
// pool. Once the jackpot is found every touched row is tagged BatchReady
// regardless of the requested tag. Returns the number of rows updated.
func (p *Processor) ComputeProvision(caller string, fromKey uint64, batchTag string) (int, error) {
	if err := p.requireOperator(caller); err != nil {
		return 0, err
	}
	fund, ok := p.funds.Last()
	if !ok {
		return 0, fmt.Errorf("%w: no jackpot fund", errs.ErrInvariant)
	}
	if fund.FoundAt != 0 {
		batchTag = BatchReady
	}
	value := fund.Value.Amount
	toOwners := fund.ToOwners.Amount

	processed := 0
	p.investors.Scan(fromKey, fromKey+ProvisionWindow-1, func(inv Investor) bool {
		percentBP := PercentScale
		var earned int64
		if value > 0 {
			percentBP = money.MulDiv(inv.Invested.Amount, PercentScale, value)
			earned = money.MulDiv(toOwners, percentBP, PercentScale)
		}
		if err := p.investors.Modify(inv.PKey, func(i *Investor) {
			i.PercentBP = percentBP
			i.Earned = money.New(earned, money.EOS)
			i.BatchTag = batchTag
		}); err != nil {
			panic(err)
		}
		processed++
		return true
	})
	return processed, nil
}

// PreparePayout moves calculated investor rows into the payout queue, up
// to PrepareBatch rows per call. It requires the jackpot to be found and
// every investor row tagged BatchReady. When the last row is moved, a new
// empty fund generation starts and the token holder share is queued under
// the operating account. Returns true once the investor ledger is empty.
func (p *Processor) PreparePayout(caller string) (bool, error) {
	if err := p.requireOperator(caller); err != nil {
		return false, err
	}
	fund, ok := p.funds.Last()
	if !ok || fund.FoundAt == 0 {
		return false, fmt.Errorf("%w: the jackpot has not been found, payout preparation is not possible", errs.ErrInvariant)
	}

	total, ready := 0, 0
	p.investors.Scan(0, ^uint64(0), func(inv Investor) bool {
		total++
		if inv.BatchTag == BatchReady {
			ready++
		}
		return true
	})
	if total != ready {
		return false, fmt.Errorf("%w: %d of %d investor rows have no final provision", errs.ErrInvariant, total-ready, total)
	}

	moved := 0
	for moved < PrepareBatch {
		inv, ok := p.investors.First()
		if !ok {
			break
		}
		p.queueUpsert(p.investorQueue, inv.Account, inv.Earned, "Diamond Owner Provision")
		if err := p.investors.Erase(inv.PKey); err != nil {
			panic(err)
		}
		moved++
	}

	if p.investors.Len() > 0 {
		return false, nil
	}
	p.newFund()
	p.queueUpsert(p.holderQueue, p.operator, fund.ToTokenHolders, "Token holder distribution")
	return true, nil
}

// DrainInvestorQueue settles up to DrainBatch queued investor payouts.
func (p *Processor) DrainInvestorQueue(caller string) (int, error) {
	if err := p.requireOperator(caller); err != nil {
		return 0, err
	}
	return p.drain(p.investorQueue), nil
}

// DrainHolderQueue settles up to DrainBatch queued token holder payouts.
func (p *Processor) DrainHolderQueue(caller string) (int, error) {
	if err := p.requireOperator(caller); err != nil {
		return 0, err
	}
	return p.drain(p.holderQueue), nil
}

// drain pops queue entries in key order. Positive amounts are paid out;
// entries for the operating account are dropped without payment since the
// operator's share is redistributed elsewhere.
func (p *Processor) drain(queue *payoutTable) int {
	processed := 0
	for processed < DrainBatch {
		entry, ok := queue.First()
		if !ok {
			break
		}
		if entry.Amount.IsPositive() && entry.Account != p.operator {
			p.dispatch.Pay(gateway.PaymentRequest{
				To:     entry.Account,
				Amount: entry.Amount,
				Memo:   entry.Memo,
			})
		}
		if err := queue.Erase(accountHash(entry.Account)); err != nil {
			panic(err)
		}
		processed++
	}
	return processed
}

// QueuedInvestorPayouts returns the number of pending investor payouts.
func (p *Processor) QueuedInvestorPayouts() int {
	return p.investorQueue.Len()
}

// QueuedHolderPayouts returns the number of pending holder payouts.
func (p *Processor) QueuedHolderPayouts() int {
	return p.holderQueue.Len()
}

// QueuedPayout returns the pending payout for one account.
func (p *Processor) QueuedPayout(account string) (PayoutEntry, bool) {
	return p.investorQueue.Get(accountHash(account))
}

func (p *Processor) queueUpsert(queue *payoutTable, account string, amount money.Asset, memo string) {
	key := accountHash(account)
	if _, ok := queue.Get(key); ok {
		if err := queue.Modify(key, func(e *PayoutEntry) {
			e.Amount = e.Amount.Add(amount)
		}); err != nil {
			panic(err)
		}
		return
	}
	if err := queue.Insert(PayoutEntry{Account: account, Amount: amount, Memo: memo}); err != nil {
		panic(err)
	}
}
