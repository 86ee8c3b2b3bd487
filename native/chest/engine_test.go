package chest

import (
	"errors"
	"testing"

	"arenachain/native/authz"
	"arenachain/native/nft"
	"arenachain/state"
	"arenachain/storage"
)

func addr(seed byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = seed
	}
	return a
}

func testEngine(t *testing.T) (*Engine, *nft.Ledger, [20]byte) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	ledger := nft.NewLedger(manager)
	engine := NewEngine()
	engine.SetLedger(ledger)
	backend := addr(0xBE)
	for _, collection := range []nft.Collection{nft.CollectionHero, nft.CollectionBanner, nft.CollectionOrb, nft.CollectionHouse} {
		if err := ledger.SetGenerator(collection, backend, true); err != nil {
			t.Fatalf("grant generator: %v", err)
		}
	}
	return engine, ledger, backend
}

func TestValidateBatchShape(t *testing.T) {
	engine, _, _ := testEngine(t)
	if err := engine.Validate(authz.ChestPayload{}); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	if err := engine.Validate(authz.ChestPayload{Types: []uint8{0}, Items: []uint64{1, 2}}); !errors.Is(err, ErrBatchMismatch) {
		t.Fatalf("expected ErrBatchMismatch, got %v", err)
	}
	if err := engine.Validate(authz.ChestPayload{Types: []uint8{9}, Items: []uint64{1}}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}

	engine.SetMaxBatch(2)
	over := authz.ChestPayload{Types: []uint8{0, 0, 0}, Items: []uint64{1, 2, 3}}
	if err := engine.Validate(over); !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
}

func TestApplyDispensesMixedBatch(t *testing.T) {
	engine, ledger, backend := testEngine(t)
	player := addr(1)
	payload := authz.ChestPayload{
		Types: []uint8{TypeHero, TypeOrb, TypeBanner},
		Items: []uint64{11, 3, 12},
	}
	if err := engine.Validate(payload); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := engine.Apply(player, backend, payload); err != nil {
		t.Fatalf("apply: %v", err)
	}

	owner, err := ledger.OwnerOf(nft.CollectionHero, 11)
	if err != nil || owner != player {
		t.Fatalf("hero 11 owner=%x err=%v", owner, err)
	}
	owner, err = ledger.OwnerOf(nft.CollectionBanner, 12)
	if err != nil || owner != player {
		t.Fatalf("banner 12 owner=%x err=%v", owner, err)
	}
	// Orb ids are ledger-allocated starting at 1.
	quality, err := ledger.QualityOf(nft.CollectionOrb, 1)
	if err != nil || quality != 3 {
		t.Fatalf("orb quality=%d err=%v", quality, err)
	}
}

func TestApplyRequiresGeneratorRole(t *testing.T) {
	engine, ledger, backend := testEngine(t)
	if err := ledger.SetGenerator(nft.CollectionHero, backend, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	payload := authz.ChestPayload{Types: []uint8{TypeHero}, Items: []uint64{5}}
	if err := engine.Apply(addr(2), backend, payload); !errors.Is(err, ErrGeneratorRole) {
		t.Fatalf("expected ErrGeneratorRole, got %v", err)
	}
}

func TestApplyRejectsBadOrbQuality(t *testing.T) {
	engine, _, backend := testEngine(t)
	payload := authz.ChestPayload{Types: []uint8{TypeOrb}, Items: []uint64{99}}
	if err := engine.Apply(addr(3), backend, payload); !errors.Is(err, ErrBadItemCode) {
		t.Fatalf("expected ErrBadItemCode, got %v", err)
	}
}

func TestOrbItemCodeBeyondByteRange(t *testing.T) {
	engine, ledger, backend := testEngine(t)
	player := addr(4)
	// 262 truncates to quality 6 under a naive uint8 conversion; the engine
	// must reject the full 64-bit code instead of minting.
	payload := authz.ChestPayload{Types: []uint8{TypeOrb}, Items: []uint64{262}}
	if err := engine.Validate(payload); !errors.Is(err, ErrBadItemCode) {
		t.Fatalf("validate: expected ErrBadItemCode, got %v", err)
	}
	if err := engine.Apply(player, backend, payload); !errors.Is(err, ErrBadItemCode) {
		t.Fatalf("apply: expected ErrBadItemCode, got %v", err)
	}
	if _, err := ledger.OwnerOf(nft.CollectionOrb, 1); !errors.Is(err, nft.ErrTokenNotFound) {
		t.Fatalf("expected no orb minted, got %v", err)
	}
}
