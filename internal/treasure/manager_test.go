package treasure_test

import (
	"errors"
	"testing"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/gateway"
	"DiamondLedger/internal/money"
	"DiamondLedger/internal/treasure"
)

const operator = "cptblackbill"

var testRate = money.New(27_600, money.USD)

func fixedClock() int64 { return 1_700_000_000 }

func newManager() (*treasure.Manager, *gateway.Recorder) {
	rec := &gateway.Recorder{}
	return treasure.NewManager(rec, operator, fixedClock), rec
}

func mintAt(t *testing.T, m *treasure.Manager, owner string, lat, lon float64) uint64 {
	t.Helper()
	key, err := m.Mint(owner, treasure.MintParams{
		Title:     "Old Lighthouse",
		Latitude:  lat,
		Longitude: lon,
	})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return key
}

func TestMintClaimsTileExclusively(t *testing.T) {
	m, _ := newManager()
	key := mintAt(t, m, "alice", 59.9139, 10.7522)

	cp, ok := m.Get(key)
	if !ok {
		t.Fatal("minted checkpoint not found")
	}
	if cp.Status != treasure.StatusActive {
		t.Errorf("status = %q, want active", cp.Status)
	}
	if cp.ExpiresAt != fixedClock()+treasure.OwnershipTerm {
		t.Errorf("ExpiresAt = %d, want three-year term", cp.ExpiresAt)
	}

	// Adjacent coordinates land on the same tile and must be rejected.
	_, err := m.Mint("bob", treasure.MintParams{Title: "x", Latitude: 59.9140, Longitude: 10.7523})
	if !errors.Is(err, errs.ErrInvariant) {
		t.Errorf("mint on taken tile error = %v, want ErrInvariant", err)
	}
	_, err = m.Mint("alice", treasure.MintParams{Title: "x", Latitude: 59.9140, Longitude: 10.7523})
	if !errors.Is(err, errs.ErrInvariant) {
		t.Errorf("mint on own tile error = %v, want ErrInvariant", err)
	}
}

func TestMintRejectsBadInput(t *testing.T) {
	m, _ := newManager()
	longTitle := make([]byte, treasure.MaxTitleLen+1)
	for i := range longTitle {
		longTitle[i] = 'a'
	}
	_, err := m.Mint("alice", treasure.MintParams{Title: string(longTitle), Latitude: 10, Longitude: 10})
	if !errors.Is(err, errs.ErrBounds) {
		t.Errorf("oversized title error = %v, want ErrBounds", err)
	}
	_, err = m.Mint("alice", treasure.MintParams{Title: "ok", Latitude: 0, Longitude: 10})
	if !errors.Is(err, errs.ErrBounds) {
		t.Errorf("zero latitude error = %v, want ErrBounds", err)
	}
}

func TestUnlockByStrangerSplitsEvenly(t *testing.T) {
	m, rec := newManager()
	key := mintAt(t, m, "alice", 59.9139, 10.7522)

	res, err := m.Unlock(key, "bob", money.New(1_000, money.EOS), false, testRate, 0)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	if got := rec.PaidTo("bob", money.EOS); got.Amount != 500 {
		t.Errorf("unlocker paid %s, want 0.0500 EOS", got)
	}
	if got := rec.PaidTo("alice", money.EOS); got.Amount != 500 {
		t.Errorf("owner paid %s, want 0.0500 EOS", got)
	}
	if got := rec.MintedTo("bob"); got.Amount != treasure.RewardUnlocker {
		t.Errorf("unlocker minted %s, want 0.0010 BLKBILL", got)
	}
	if got := rec.MintedTo("alice"); got.Amount != treasure.RewardOwner {
		t.Errorf("owner minted %s, want 0.0001 BLKBILL", got)
	}

	cp, _ := m.Get(key)
	if cp.Conqueror != "bob" {
		t.Errorf("conqueror = %q, want bob", cp.Conqueror)
	}

	r := res.Record
	if r.User != "bob" || r.Creator != "alice" || r.Conqueror != "" {
		t.Errorf("provenance = %+v, want user=bob creator=alice no prior conqueror", r)
	}
	if r.JackpotFound {
		t.Error("provenance reports jackpot found on plain unlock")
	}
}

func TestUnlockConservesOddPayout(t *testing.T) {
	m, rec := newManager()
	key := mintAt(t, m, "alice", 59.9139, 10.7522)
	// Give the checkpoint a prior conqueror.
	if _, err := m.Unlock(key, "carol", money.Zero(money.EOS), false, testRate, 0); err != nil {
		t.Fatalf("setup unlock: %v", err)
	}

	payout := money.New(1_001, money.EOS)
	if _, err := m.Unlock(key, "bob", payout, false, testRate, 0); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if got := rec.TotalPaid(money.EOS); got.Amount != payout.Amount {
		t.Errorf("total paid %s, payout was %s", got, payout)
	}
	// Unlocker half truncates; conqueror quarter truncates; remainders stay
	// with the owner side.
	if got := rec.PaidTo("bob", money.EOS); got.Amount != 500 {
		t.Errorf("unlocker paid %s, want 0.0500 EOS", got)
	}
	if got := rec.PaidTo("carol", money.EOS); got.Amount != 250 {
		t.Errorf("conqueror paid %s, want 0.0250 EOS", got)
	}
	if got := rec.PaidTo("alice", money.EOS); got.Amount != 251 {
		t.Errorf("owner paid %s, want 0.0251 EOS", got)
	}
}

func TestOwnerConqueringBackPaysConquerorFullShare(t *testing.T) {
	m, rec := newManager()
	key := mintAt(t, m, "alice", 59.9139, 10.7522)
	if _, err := m.Unlock(key, "bob", money.Zero(money.EOS), false, testRate, 0); err != nil {
		t.Fatalf("setup unlock: %v", err)
	}

	if _, err := m.Unlock(key, "alice", money.New(2_000, money.EOS), false, testRate, 0); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if got := rec.PaidTo("alice", money.EOS); got.Amount != 1_000 {
		t.Errorf("owner paid %s, want 0.1000 EOS", got)
	}
	if got := rec.PaidTo("bob", money.EOS); got.Amount != 1_000 {
		t.Errorf("conqueror paid %s, want 0.1000 EOS", got)
	}
	cp, _ := m.Get(key)
	if cp.Conqueror != "" {
		t.Errorf("conqueror = %q, want cleared after owner conquered back", cp.Conqueror)
	}
}

func TestUnlockRejectsOwnerOnUnconqueredCheckpoint(t *testing.T) {
	m, rec := newManager()
	key := mintAt(t, m, "alice", 59.9139, 10.7522)

	_, err := m.Unlock(key, "alice", money.New(1_000, money.EOS), false, testRate, 0)
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("owner self-unlock error = %v, want ErrUnauthorized", err)
	}
	if len(rec.Payments) != 0 || len(rec.Mints) != 0 {
		t.Errorf("rejected unlock moved value: %d payments, %d mints", len(rec.Payments), len(rec.Mints))
	}
	if got := len(m.Results()); got != 0 {
		t.Errorf("rejected unlock wrote %d provenance rows", got)
	}
	cp, _ := m.Get(key)
	if cp.Conqueror != "" {
		t.Errorf("conqueror = %q, want unchanged", cp.Conqueror)
	}
}

func TestUnlockRejectsCurrentConqueror(t *testing.T) {
	m, _ := newManager()
	key := mintAt(t, m, "alice", 59.9139, 10.7522)
	if _, err := m.Unlock(key, "bob", money.Zero(money.EOS), false, testRate, 0); err != nil {
		t.Fatalf("setup unlock: %v", err)
	}

	_, err := m.Unlock(key, "bob", money.New(1_000, money.EOS), false, testRate, 0)
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("conqueror re-unlock error = %v, want ErrUnauthorized", err)
	}

	// The owner reclaiming and a third party robbing both stay legal.
	if _, err := m.Unlock(key, "carol", money.Zero(money.EOS), false, testRate, 0); err != nil {
		t.Errorf("third-party unlock: %v", err)
	}
	if _, err := m.Unlock(key, "alice", money.Zero(money.EOS), false, testRate, 0); err != nil {
		t.Errorf("owner reclaim: %v", err)
	}
}

func TestRequireUnlockable(t *testing.T) {
	m, _ := newManager()
	key := mintAt(t, m, "alice", 59.9139, 10.7522)

	if _, err := m.RequireUnlockable(key, "bob"); err != nil {
		t.Errorf("stranger: %v", err)
	}
	if _, err := m.RequireUnlockable(key, "alice"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("owner error = %v, want ErrUnauthorized", err)
	}
	if _, err := m.RequireUnlockable(99, "bob"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing checkpoint error = %v, want ErrNotFound", err)
	}
}

func TestUnlockMissingCheckpoint(t *testing.T) {
	m, _ := newManager()
	_, err := m.Unlock(99, "bob", money.New(100, money.EOS), false, testRate, 0)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSponsorPrizeSettlement(t *testing.T) {
	m, rec := newManager()
	key := mintAt(t, m, "alice", 59.9139, 10.7522)

	itemKey, err := m.AddSponsorItem(operator, "brandco", key, "", "", "Free coffee",
		money.New(50_000, money.USD), money.New(30_000, money.EOS))
	if err != nil {
		t.Fatalf("AddSponsorItem: %v", err)
	}
	if _, err := m.ActivateSponsorItem(itemKey, money.New(30_000, money.EOS)); err != nil {
		t.Fatalf("ActivateSponsorItem: %v", err)
	}

	res, err := m.Unlock(key, "bob", money.Zero(money.EOS), false, testRate, itemKey)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if res.ToTokenHolders.Amount != 10_000 {
		t.Errorf("token holder share = %s, want 1.0000 EOS", res.ToTokenHolders)
	}
	// No prior conqueror: the owner keeps everything but the holder share.
	if got := rec.PaidTo("alice", money.EOS); got.Amount != 20_000 {
		t.Errorf("owner ad fee share = %s, want 2.0000 EOS", got)
	}
	item, _ := m.SponsorItemByKey(itemKey)
	if item.Status != treasure.SponsorRobbed || item.WonBy != "bob" {
		t.Errorf("sponsor item = %+v, want robbed by bob", item)
	}
}

func TestActivateSponsorItemRequiresFee(t *testing.T) {
	m, _ := newManager()
	itemKey, err := m.AddSponsorItem(operator, "brandco", 0, "", "", "",
		money.New(10_000, money.USD), money.New(30_000, money.EOS))
	if err != nil {
		t.Fatalf("AddSponsorItem: %v", err)
	}
	if _, err := m.ActivateSponsorItem(itemKey, money.New(29_999, money.EOS)); !errors.Is(err, errs.ErrInsufficientValue) {
		t.Errorf("underpaid activation error = %v, want ErrInsufficientValue", err)
	}
	if _, err := m.ActivateSponsorItem(itemKey, money.New(30_000, money.EOS)); err != nil {
		t.Fatalf("ActivateSponsorItem: %v", err)
	}
	if _, err := m.ActivateSponsorItem(itemKey, money.New(30_000, money.EOS)); !errors.Is(err, errs.ErrInvariant) {
		t.Errorf("double activation error = %v, want ErrInvariant", err)
	}
	if _, err := m.AddSponsorItem("mallory", "brandco", 0, "", "", "",
		money.New(10_000, money.USD), money.New(30_000, money.EOS)); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("non-operator add error = %v, want ErrUnauthorized", err)
	}
}
