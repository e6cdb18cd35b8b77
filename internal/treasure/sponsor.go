package treasure

import (
	"fmt"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/money"
)

// AddSponsorItem registers a sponsor prize in pending state. Operator only.
// The sponsor must pay the advertising fee before the item goes live.
func (m *Manager) AddSponsorItem(caller, sponsor string, checkpointKey uint64, imageURL, targetURL, description string, prizeUSD, adFee money.Asset) (uint64, error) {
	if caller != m.operator {
		return 0, fmt.Errorf("%w: only the operator can add sponsor items", errs.ErrUnauthorized)
	}
	if len(imageURL) > MaxURLLen || len(targetURL) > MaxURLLen {
		return 0, fmt.Errorf("%w: url exceeds %d characters", errs.ErrBounds, MaxURLLen)
	}
	if len(description) > MaxDescriptionLen {
		return 0, fmt.Errorf("%w: description exceeds %d characters", errs.ErrBounds, MaxDescriptionLen)
	}
	if adFee.Symbol != money.EOS || !adFee.IsPositive() {
		return 0, fmt.Errorf("%w: advertising fee must be a positive EOS amount", errs.ErrBounds)
	}
	key := m.sponsors.NextKey()
	item := SponsorItem{
		PKey:          key,
		Sponsor:       sponsor,
		CheckpointKey: checkpointKey,
		ImageURL:      imageURL,
		TargetURL:     targetURL,
		Description:   description,
		PrizeUSD:      prizeUSD,
		AdFee:         adFee,
		Status:        SponsorPendingPayment,
		CreatedAt:     m.now(),
	}
	if err := m.sponsors.Insert(item); err != nil {
		return 0, err
	}
	return key, nil
}

// ActivateSponsorItem flips a pending item to active once the advertising
// fee has arrived. The paid amount must cover the fee set at registration.
func (m *Manager) ActivateSponsorItem(key uint64, paid money.Asset) (SponsorItem, error) {
	item, ok := m.sponsors.Get(key)
	if !ok {
		return SponsorItem{}, fmt.Errorf("%w: sponsor item %d", errs.ErrNotFound, key)
	}
	if item.Status != SponsorPendingPayment {
		return SponsorItem{}, fmt.Errorf("%w: sponsor item %d is not pending payment", errs.ErrInvariant, key)
	}
	if paid.LT(item.AdFee) {
		return SponsorItem{}, fmt.Errorf("%w: paid %s, advertising fee is %s", errs.ErrInsufficientValue, paid, item.AdFee)
	}
	if err := m.sponsors.Modify(key, func(s *SponsorItem) {
		s.Status = SponsorActive
	}); err != nil {
		return SponsorItem{}, err
	}
	item.Status = SponsorActive
	return item, nil
}

// EraseSponsorItem removes a sponsor item. Operator only.
func (m *Manager) EraseSponsorItem(caller string, key uint64) error {
	if caller != m.operator {
		return fmt.Errorf("%w: only the operator can erase sponsor items", errs.ErrUnauthorized)
	}
	return m.sponsors.Erase(key)
}

// SponsorItemByKey returns a sponsor item by key.
func (m *Manager) SponsorItemByKey(key uint64) (SponsorItem, bool) {
	return m.sponsors.Get(key)
}

// settleSponsorPrize closes a sponsor item when its checkpoint is robbed.
// A third of the advertising fee goes to token holders; the rest is paid to
// the owner, shared with the conqueror when one held the checkpoint.
func (m *Manager) settleSponsorPrize(itemKey, checkpointKey uint64, byUser, owner, priorConqueror string) (money.Asset, error) {
	item, ok := m.sponsors.Get(itemKey)
	if !ok {
		return money.Asset{}, fmt.Errorf("%w: sponsor item %d", errs.ErrNotFound, itemKey)
	}
	oneThird := money.New(item.AdFee.Amount/3, money.EOS)
	if err := m.sponsors.Modify(itemKey, func(s *SponsorItem) {
		s.Status = SponsorRobbed
		s.WonBy = byUser
		s.CheckpointKey = checkpointKey
		s.WonAt = m.now()
	}); err != nil {
		return money.Asset{}, err
	}

	adMemo := fmt.Sprintf("Earned advertising fee on checkpoint No.%d", checkpointKey)
	if priorConqueror != "" {
		ownerShare := item.AdFee.Sub(oneThird).Sub(oneThird)
		if ownerShare.IsPositive() {
			m.pay(owner, ownerShare, adMemo)
		}
		if oneThird.IsPositive() {
			m.pay(priorConqueror, oneThird, adMemo)
		}
	} else {
		ownerShare := item.AdFee.Sub(oneThird)
		if ownerShare.IsPositive() {
			m.pay(owner, ownerShare, adMemo)
		}
	}
	return oneThird, nil
}
