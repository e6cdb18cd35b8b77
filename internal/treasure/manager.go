// Package treasure manages the checkpoint lifecycle: minting on owned map
// tiles, unlock settlement with payout splits, sponsor prizes and the
// second-hand sale flow. All value leaves through the gateway dispatcher;
// the package never holds funds itself.
package treasure

import (
	"fmt"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/gateway"
	"DiamondLedger/internal/maptile"
	"DiamondLedger/internal/money"
	"DiamondLedger/internal/table"
)

// Manager owns the checkpoint, listing, sponsor and provenance tables.
type Manager struct {
	checkpoints *table.Table[Checkpoint]
	listings    *table.Table[SaleListing]
	sponsors    *table.Table[SponsorItem]
	results     *table.Table[ProvenanceRecord]
	dispatch    gateway.Dispatcher
	operator    string
	now         func() int64
}

// NewManager creates an empty checkpoint manager. The operator account is
// allowed to perform privileged maintenance; now supplies event time.
func NewManager(dispatch gateway.Dispatcher, operator string, now func() int64) *Manager {
	checkpoints := table.New("checkpoints", func(c Checkpoint) uint64 { return c.PKey })
	checkpoints.AddIndex("tile", func(c Checkpoint) uint64 { return c.Tile.Key() })
	return &Manager{
		checkpoints: checkpoints,
		listings:    table.New("listings", func(l SaleListing) uint64 { return l.CheckpointKey }),
		sponsors:    table.New("sponsoritems", func(s SponsorItem) uint64 { return s.PKey }),
		results:     table.New("results", func(r ProvenanceRecord) uint64 { return r.PKey }),
		dispatch:    dispatch,
		operator:    operator,
		now:         now,
	}
}

// Get returns a checkpoint by key.
func (m *Manager) Get(key uint64) (Checkpoint, bool) {
	return m.checkpoints.Get(key)
}

// Count returns the number of checkpoints.
func (m *Manager) Count() int {
	return m.checkpoints.Len()
}

// Results returns the provenance rows in insertion order.
func (m *Manager) Results() []ProvenanceRecord {
	out := make([]ProvenanceRecord, 0, m.results.Len())
	m.results.Scan(0, ^uint64(0), func(r ProvenanceRecord) bool {
		out = append(out, r)
		return true
	})
	return out
}

// RequireActive returns the checkpoint if it exists and is active.
func (m *Manager) RequireActive(key uint64) (Checkpoint, error) {
	cp, ok := m.checkpoints.Get(key)
	if !ok {
		return Checkpoint{}, fmt.Errorf("%w: checkpoint %d", errs.ErrNotFound, key)
	}
	if cp.Status != StatusActive {
		return Checkpoint{}, fmt.Errorf("%w: checkpoint %d is not active", errs.ErrInvariant, key)
	}
	return cp, nil
}

// RequireUnlockable returns the checkpoint if it is active and byUser is
// allowed to unlock it.
func (m *Manager) RequireUnlockable(key uint64, byUser string) (Checkpoint, error) {
	cp, err := m.RequireActive(key)
	if err != nil {
		return Checkpoint{}, err
	}
	if err := unlockAllowed(cp, byUser); err != nil {
		return Checkpoint{}, err
	}
	return cp, nil
}

// unlockAllowed enforces who may unlock: the owner cannot rob their own
// unconquered checkpoint, and the current conqueror cannot re-unlock
// what they already hold. An owner reclaiming from a conqueror is fine.
func unlockAllowed(cp Checkpoint, byUser string) error {
	if cp.Conqueror == "" {
		if byUser == cp.Owner {
			return fmt.Errorf("%w: you cannot unlock your own checkpoint No.%d", errs.ErrUnauthorized, cp.PKey)
		}
		return nil
	}
	if byUser == cp.Conqueror {
		return fmt.Errorf("%w: you already hold checkpoint No.%d", errs.ErrUnauthorized, cp.PKey)
	}
	return nil
}

// Mint creates a new active checkpoint owned by owner. The map tile derived
// from the coordinates must not already carry a checkpoint.
func (m *Manager) Mint(owner string, p MintParams) (uint64, error) {
	if err := validateContent(p.Title, p.Description, p.ImageURL, p.VideoURL); err != nil {
		return 0, err
	}
	tile, err := maptile.FromGPS(p.Latitude, p.Longitude)
	if err != nil {
		return 0, err
	}
	if holder, taken := m.tileHolder(tile); taken {
		if holder == owner {
			return 0, fmt.Errorf("%w: you already have a checkpoint on map tile %s", errs.ErrInvariant, tile)
		}
		return 0, fmt.Errorf("%w: map tile %s is held by %s", errs.ErrInvariant, tile, holder)
	}
	key := m.checkpoints.NextKey()
	cp := Checkpoint{
		PKey:        key,
		Owner:       owner,
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		VideoURL:    p.VideoURL,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Tile:        tile,
		Status:      StatusActive,
		ExpiresAt:   m.now() + OwnershipTerm,
		CreatedAt:   m.now(),
	}
	if err := m.checkpoints.Insert(cp); err != nil {
		return 0, err
	}
	return key, nil
}

// Unlock settles a solved checkpoint. The payout must already include the
// jackpot value when jackpotFound is set. The unlocker takes half; the
// other half goes to the owner, the conqueror, or both, depending on who
// held the checkpoint before this unlock. Returns the provenance row and
// the sponsor ad-fee share owed to the jackpot.
func (m *Manager) Unlock(key uint64, byUser string, payout money.Asset, jackpotFound bool, rate money.Asset, sponsorItemKey uint64) (UnlockResult, error) {
	cp, ok := m.checkpoints.Get(key)
	if !ok {
		return UnlockResult{}, fmt.Errorf("%w: checkpoint %d", errs.ErrNotFound, key)
	}
	if err := unlockAllowed(cp, byUser); err != nil {
		return UnlockResult{}, err
	}
	owner := cp.Owner
	priorConqueror := cp.Conqueror

	if err := m.checkpoints.Modify(key, func(c *Checkpoint) {
		c.Status = StatusActive
		if byUser != owner {
			// The robber now holds the checkpoint and can rearm it.
			c.Conqueror = byUser
		} else {
			// Owner conquered it back.
			c.Conqueror = ""
		}
	}); err != nil {
		return UnlockResult{}, err
	}

	reward := money.New(RewardUnlocker, money.BLKBILL)
	m.dispatch.Mint(gateway.MintRequest{
		To:     byUser,
		Amount: reward,
		Memo:   fmt.Sprintf("Reward for unlocking checkpoint No.%d", key),
	})
	m.dispatch.Mint(gateway.MintRequest{
		To:     owner,
		Amount: money.New(RewardOwner, money.BLKBILL),
		Memo:   fmt.Sprintf("Reward for someone unlocking your checkpoint No.%d", key),
	})

	rec := ProvenanceRecord{
		PKey:          m.results.NextKey(),
		CheckpointKey: key,
		User:          byUser,
		Creator:       owner,
		Conqueror:     priorConqueror,
		JackpotFound:  jackpotFound,
		Payout:        payout,
		Rate:          rate,
		MintedReward:  reward,
		Timestamp:     m.now(),
	}
	if err := m.results.Insert(rec); err != nil {
		return UnlockResult{}, err
	}

	if payout.IsPositive() {
		m.splitPayout(key, byUser, owner, priorConqueror, payout)
	}

	result := UnlockResult{Record: rec, ToTokenHolders: money.Zero(money.EOS)}
	if sponsorItemKey > 0 {
		toHolders, err := m.settleSponsorPrize(sponsorItemKey, key, byUser, owner, priorConqueror)
		if err != nil {
			return UnlockResult{}, err
		}
		result.ToTokenHolders = toHolders
	}
	return result, nil
}

// splitPayout pays the unlocker half of the chest and distributes the
// other half. The shares always sum to the full payout.
func (m *Manager) splitPayout(key uint64, byUser, owner, priorConqueror string, payout money.Asset) {
	unlockerShare, ownerSide := payout.Half()
	if unlockerShare.IsPositive() {
		m.pay(byUser, unlockerShare, fmt.Sprintf("Congrats for solving checkpoint No.%d!", key))
	}
	switch {
	case byUser == owner && priorConqueror != "":
		// Owner conquered back; the conqueror still gets the equal share.
		m.pay(priorConqueror, ownerSide, fmt.Sprintf("Checkpoint No.%d was solved by the owner. This is your equal share.", key))
	case priorConqueror != "":
		conquerorShare, _ := ownerSide.Half()
		ownerShare := ownerSide.Sub(conquerorShare)
		if ownerShare.IsPositive() {
			m.pay(owner, ownerShare, fmt.Sprintf("Your checkpoint No.%d was solved. You share with the current conqueror.", key))
		}
		if conquerorShare.IsPositive() {
			m.pay(priorConqueror, conquerorShare, fmt.Sprintf("Your conquered checkpoint No.%d was solved. You share with the owner.", key))
		}
	default:
		m.pay(owner, ownerSide, fmt.Sprintf("Your checkpoint No.%d was solved. This is your equal share.", key))
	}
}

func (m *Manager) pay(to string, amount money.Asset, memo string) {
	m.dispatch.Pay(gateway.PaymentRequest{To: to, Amount: amount, Memo: memo})
}

func (m *Manager) tileHolder(tile maptile.Tile) (string, bool) {
	cp, ok := m.checkpoints.IndexFind("tile", tile.Key(), func(c Checkpoint) bool {
		return c.Tile == tile
	})
	if !ok {
		return "", false
	}
	return cp.Owner, true
}

func validateContent(title, description, imageURL, videoURL string) error {
	if len(title) > MaxTitleLen {
		return fmt.Errorf("%w: title exceeds %d characters", errs.ErrBounds, MaxTitleLen)
	}
	if len(description) > MaxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", errs.ErrBounds, MaxDescriptionLen)
	}
	if len(imageURL) > MaxURLLen || len(videoURL) > MaxURLLen {
		return fmt.Errorf("%w: url exceeds %d characters", errs.ErrBounds, MaxURLLen)
	}
	return nil
}
