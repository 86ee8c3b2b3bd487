package nft

import (
	"errors"
	"testing"

	"arenachain/state"
	"arenachain/storage"
)

func testLedger() *Ledger {
	return NewLedger(state.NewManager(storage.NewMemDB()))
}

func addr(seed byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = seed
	}
	return a
}

func TestMintAssignsSequentialIDs(t *testing.T) {
	ledger := testLedger()
	owner := addr(1)
	for want := uint64(1); want <= 3; want++ {
		id, err := ledger.Mint(CollectionHero, owner, 0)
		if err != nil {
			t.Fatalf("mint %d: %v", want, err)
		}
		if id != want {
			t.Fatalf("expected id %d, got %d", want, id)
		}
	}
	got, err := ledger.OwnerOf(CollectionHero, 2)
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if got != owner {
		t.Fatalf("unexpected owner %x", got)
	}
}

func TestMintWithIDRejectsZeroAndDuplicates(t *testing.T) {
	ledger := testLedger()
	owner := addr(2)
	if err := ledger.MintWithID(CollectionBanner, 0, owner, 0); err == nil {
		t.Fatalf("token id 0 must never mint")
	}
	if err := ledger.MintWithID(CollectionBanner, 7, owner, 0); err != nil {
		t.Fatalf("mint 7: %v", err)
	}
	if err := ledger.MintWithID(CollectionBanner, 7, owner, 0); !errors.Is(err, ErrTokenExists) {
		t.Fatalf("expected ErrTokenExists, got %v", err)
	}
	// Sequential allocation continues past explicitly minted ids.
	id, err := ledger.Mint(CollectionBanner, owner, 0)
	if err != nil {
		t.Fatalf("mint after explicit id: %v", err)
	}
	if id != 8 {
		t.Fatalf("expected id 8, got %d", id)
	}
}

func TestOrbQualityBounds(t *testing.T) {
	ledger := testLedger()
	owner := addr(3)
	if _, err := ledger.Mint(CollectionOrb, owner, 0); !errors.Is(err, ErrInvalidQuality) {
		t.Fatalf("quality 0 orb must fail, got %v", err)
	}
	if _, err := ledger.Mint(CollectionOrb, owner, QualityMax+1); !errors.Is(err, ErrInvalidQuality) {
		t.Fatalf("quality 7 orb must fail, got %v", err)
	}
	id, err := ledger.Mint(CollectionOrb, owner, 4)
	if err != nil {
		t.Fatalf("mint orb: %v", err)
	}
	quality, err := ledger.QualityOf(CollectionOrb, id)
	if err != nil {
		t.Fatalf("qualityOf: %v", err)
	}
	if quality != 4 {
		t.Fatalf("expected quality 4, got %d", quality)
	}
	if _, err := ledger.Mint(CollectionHero, owner, 3); !errors.Is(err, ErrInvalidQuality) {
		t.Fatalf("hero with quality must fail, got %v", err)
	}
}

func TestTransferRequiresOwnership(t *testing.T) {
	ledger := testLedger()
	owner := addr(4)
	thief := addr(5)
	id, err := ledger.Mint(CollectionHero, owner, 0)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(CollectionHero, id, thief, thief); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := ledger.Transfer(CollectionHero, id, owner, thief); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	got, err := ledger.OwnerOf(CollectionHero, id)
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if got != thief {
		t.Fatalf("transfer did not move ownership")
	}
}

func TestBurnRemovesToken(t *testing.T) {
	ledger := testLedger()
	owner := addr(6)
	id, err := ledger.Mint(CollectionOrb, owner, 2)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Burn(CollectionOrb, id, addr(7)); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := ledger.Burn(CollectionOrb, id, owner); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if _, err := ledger.OwnerOf(CollectionOrb, id); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestGeneratorRole(t *testing.T) {
	ledger := testLedger()
	backend := addr(8)
	ok, err := ledger.IsGenerator(CollectionHero, backend)
	if err != nil {
		t.Fatalf("isGenerator: %v", err)
	}
	if ok {
		t.Fatalf("role must default to false")
	}
	if err := ledger.SetGenerator(CollectionHero, backend, true); err != nil {
		t.Fatalf("setGenerator: %v", err)
	}
	ok, err = ledger.IsGenerator(CollectionHero, backend)
	if err != nil || !ok {
		t.Fatalf("expected granted role, ok=%v err=%v", ok, err)
	}
	if err := ledger.SetGenerator(CollectionHero, backend, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = ledger.IsGenerator(CollectionHero, backend)
	if err != nil || ok {
		t.Fatalf("expected revoked role, ok=%v err=%v", ok, err)
	}
	if _, err := ledger.IsGenerator(Collection("junk"), backend); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}
