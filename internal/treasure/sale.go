package treasure

import (
	"fmt"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/money"
	"DiamondLedger/internal/pricing"
)

// AddSalePrice lists a checkpoint for sale at a USD asking price. Owner
// only. Re-listing replaces the previous price and renews the listing term.
func (m *Manager) AddSalePrice(caller string, checkpointKey uint64, askingUSD money.Asset, saleMemo string) error {
	cp, ok := m.checkpoints.Get(checkpointKey)
	if !ok {
		return fmt.Errorf("%w: checkpoint %d", errs.ErrNotFound, checkpointKey)
	}
	if caller != cp.Owner {
		return fmt.Errorf("%w: only the owner can list checkpoint %d", errs.ErrUnauthorized, checkpointKey)
	}
	if askingUSD.Symbol != money.USD || askingUSD.Amount < MinAskingPriceUSD {
		return fmt.Errorf("%w: asking price must be at least %s", errs.ErrBounds, money.New(MinAskingPriceUSD, money.USD))
	}
	if _, ok := m.listings.Get(checkpointKey); ok {
		return m.listings.Modify(checkpointKey, func(l *SaleListing) {
			l.Seller = caller
			l.AskingUSD = askingUSD
			l.Memo = saleMemo
			l.ExpiresAt = m.now() + ListingTerm
		})
	}
	return m.listings.Insert(SaleListing{
		CheckpointKey: checkpointKey,
		Seller:        caller,
		AskingUSD:     askingUSD,
		Memo:          saleMemo,
		ExpiresAt:     m.now() + ListingTerm,
		CreatedAt:     m.now(),
	})
}

// DeleteSalePrice removes a listing. Owner only.
func (m *Manager) DeleteSalePrice(caller string, checkpointKey uint64) error {
	cp, ok := m.checkpoints.Get(checkpointKey)
	if !ok {
		return fmt.Errorf("%w: checkpoint %d", errs.ErrNotFound, checkpointKey)
	}
	if caller != cp.Owner {
		return fmt.Errorf("%w: only the owner can delist checkpoint %d", errs.ErrUnauthorized, checkpointKey)
	}
	return m.listings.Erase(checkpointKey)
}

// Listing returns the sale listing for a checkpoint.
func (m *Manager) Listing(checkpointKey uint64) (SaleListing, bool) {
	return m.listings.Get(checkpointKey)
}

// Buy settles a checkpoint purchase. The paid EOS must cover the USD
// asking price at the current rate, with a one-unit tolerance for rate
// truncation. Ownership transfers to the buyer, the listing is removed,
// the seller receives 99% of the payment and the remaining 1% is returned
// for the jackpot.
func (m *Manager) Buy(buyer string, checkpointKey uint64, paid money.Asset, oracle *pricing.Oracle) (money.Asset, error) {
	cp, ok := m.checkpoints.Get(checkpointKey)
	if !ok {
		return money.Asset{}, fmt.Errorf("%w: checkpoint %d", errs.ErrNotFound, checkpointKey)
	}
	listing, ok := m.listings.Get(checkpointKey)
	if !ok {
		return money.Asset{}, fmt.Errorf("%w: checkpoint %d is not for sale", errs.ErrNotFound, checkpointKey)
	}
	if buyer == cp.Owner {
		return money.Asset{}, fmt.Errorf("%w: you can not buy your own checkpoint", errs.ErrInvariant)
	}
	paidUSD := oracle.USDValue(paid)
	if paidUSD.Amount+1 < listing.AskingUSD.Amount {
		return money.Asset{}, fmt.Errorf("%w: paid %s, asking price is %s", errs.ErrInsufficientValue, paidUSD, listing.AskingUSD)
	}

	seller := cp.Owner
	if err := m.checkpoints.Modify(checkpointKey, func(c *Checkpoint) {
		c.Owner = buyer
	}); err != nil {
		return money.Asset{}, err
	}
	if err := m.listings.Erase(checkpointKey); err != nil {
		return money.Asset{}, err
	}

	fee := paid.Percent(1)
	sellerShare := paid.Sub(fee)
	m.pay(seller, sellerShare, fmt.Sprintf("Payment for selling checkpoint No.%d (1 percent fee to the jackpot)", checkpointKey))
	return fee, nil
}
