package treasure_test

import (
	"errors"
	"testing"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/money"
	"DiamondLedger/internal/pricing"
	"DiamondLedger/internal/treasure"
)

func TestSaleFlow(t *testing.T) {
	m, rec := newManager()
	oracle := pricing.NewOracle()
	if err := oracle.SetRate(money.New(20_000, money.USD)); err != nil {
		t.Fatalf("SetRate: %v", err)
	}
	key := mintAt(t, m, "alice", 59.9139, 10.7522)

	// Only the owner can list.
	err := m.AddSalePrice("bob", key, money.New(100_000, money.USD), "")
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("non-owner listing error = %v, want ErrUnauthorized", err)
	}
	// Below the one-dollar floor.
	err = m.AddSalePrice("alice", key, money.New(9_999, money.USD), "")
	if !errors.Is(err, errs.ErrBounds) {
		t.Errorf("cheap listing error = %v, want ErrBounds", err)
	}
	// 10.0000 USD asking price.
	if err := m.AddSalePrice("alice", key, money.New(100_000, money.USD), "fixer-upper"); err != nil {
		t.Fatalf("AddSalePrice: %v", err)
	}

	// 4.0000 EOS at 2 USD/EOS is 8 USD, not enough.
	_, err = m.Buy("bob", key, money.New(40_000, money.EOS), oracle)
	if !errors.Is(err, errs.ErrInsufficientValue) {
		t.Errorf("underpaid buy error = %v, want ErrInsufficientValue", err)
	}
	// Owner can not buy back through the market.
	_, err = m.Buy("alice", key, money.New(50_000, money.EOS), oracle)
	if !errors.Is(err, errs.ErrInvariant) {
		t.Errorf("self buy error = %v, want ErrInvariant", err)
	}

	// 5.0000 EOS covers the asking price exactly.
	fee, err := m.Buy("bob", key, money.New(50_000, money.EOS), oracle)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if fee.Amount != 500 {
		t.Errorf("jackpot fee = %s, want 0.0500 EOS", fee)
	}
	if got := rec.PaidTo("alice", money.EOS); got.Amount != 49_500 {
		t.Errorf("seller paid %s, want 4.9500 EOS", got)
	}
	cp, _ := m.Get(key)
	if cp.Owner != "bob" {
		t.Errorf("owner = %q, want bob", cp.Owner)
	}
	if _, ok := m.Listing(key); ok {
		t.Error("listing survived the sale")
	}
	// Second buy fails: no listing.
	_, err = m.Buy("carol", key, money.New(50_000, money.EOS), oracle)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("buy without listing error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSalePrice(t *testing.T) {
	m, _ := newManager()
	key := mintAt(t, m, "alice", 59.9139, 10.7522)
	if err := m.AddSalePrice("alice", key, money.New(20_000, money.USD), ""); err != nil {
		t.Fatalf("AddSalePrice: %v", err)
	}
	if err := m.DeleteSalePrice("bob", key); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("non-owner delist error = %v, want ErrUnauthorized", err)
	}
	if err := m.DeleteSalePrice("alice", key); err != nil {
		t.Fatalf("DeleteSalePrice: %v", err)
	}
	if err := m.DeleteSalePrice("alice", key); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("double delist error = %v, want ErrNotFound", err)
	}
}

func TestAdminMaintenance(t *testing.T) {
	m, _ := newManager()
	key := mintAt(t, m, "alice", 59.9139, 10.7522)

	if err := m.Activate("mallory", key, "secret-hash"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("non-operator activate error = %v, want ErrUnauthorized", err)
	}
	if err := m.Activate(operator, key, "secret-hash"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	cp, _ := m.Get(key)
	if cp.SecretCode != "secret-hash" || cp.Status != treasure.StatusActive {
		t.Errorf("checkpoint after activate = %+v", cp)
	}

	// Conqueror may reset the secret and edits land in the conqueror image.
	if _, err := m.Unlock(key, "bob", money.Zero(money.EOS), false, testRate, 0); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := m.ResetSecret("bob", key, "new-hash"); err != nil {
		t.Fatalf("ResetSecret by conqueror: %v", err)
	}
	if err := m.ResetSecret("mallory", key, "x"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("stranger reset error = %v, want ErrUnauthorized", err)
	}
	if err := m.ModifyImage("bob", key, "https://img.example/new.jpg"); err != nil {
		t.Fatalf("ModifyImage: %v", err)
	}
	cp, _ = m.Get(key)
	if cp.ConquerorImageURL != "https://img.example/new.jpg" {
		t.Errorf("conqueror image = %q", cp.ConquerorImageURL)
	}
	if cp.ImageURL == "https://img.example/new.jpg" {
		t.Error("conqueror edit overwrote the owner image")
	}

	// Erase clears the listing too.
	if err := m.AddSalePrice("alice", key, money.New(20_000, money.USD), ""); err != nil {
		t.Fatalf("AddSalePrice: %v", err)
	}
	if err := m.Erase("alice", key); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if _, ok := m.Get(key); ok {
		t.Error("checkpoint survived erase")
	}
	if _, ok := m.Listing(key); ok {
		t.Error("listing survived erase")
	}
}

func TestRegisterIsOperatorOnly(t *testing.T) {
	m, _ := newManager()
	p := treasure.MintParams{Title: "Seeded", Latitude: 48.8584, Longitude: 2.2945}
	if err := m.Register("alice", 7, "alice", p); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("non-operator register error = %v, want ErrUnauthorized", err)
	}
	if err := m.Register(operator, 7, "alice", p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	cp, ok := m.Get(7)
	if !ok || cp.Status != treasure.StatusCreated {
		t.Errorf("registered checkpoint = %+v, want created status under key 7", cp)
	}
}
