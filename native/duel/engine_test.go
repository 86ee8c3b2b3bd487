package duel

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

func testEngine(t *testing.T) (*Engine, *nft.Ledger) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	ledger := nft.NewLedger(manager)
	engine := NewEngine()
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetCustody(addr(0xC0))
	return engine, ledger
}

func TestDuelCustodyHandshake(t *testing.T) {
	engine, ledger := testEngine(t)
	player := addr(1)
	if err := ledger.MintWithID(nft.CollectionHero, 42, player, 0); err != nil {
		t.Fatalf("mint: %v", err)
	}

	start := authz.DuelPayload{Phase: authz.KindDuelStart, From: player, TokenID: 42}
	if err := engine.Start(start); err != nil {
		t.Fatalf("start: %v", err)
	}

	holder, err := ledger.OwnerOf(nft.CollectionHero, 42)
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if holder != addr(0xC0) {
		t.Fatalf("hero must sit in custody during the duel")
	}
	record, ok, err := engine.Active(player)
	if err != nil || !ok {
		t.Fatalf("active: ok=%v err=%v", ok, err)
	}
	if record.TokenID != 42 {
		t.Fatalf("unexpected custody record %+v", record)
	}

	// A second concurrent duel for the same account is rejected; the data
	// model holds a single custody scalar.
	if err := ledger.MintWithID(nft.CollectionHero, 43, player, 0); err != nil {
		t.Fatalf("mint second hero: %v", err)
	}
	second := authz.DuelPayload{Phase: authz.KindDuelStart, From: player, TokenID: 43}
	if err := engine.Start(second); !errors.Is(err, ErrDuelActive) {
		t.Fatalf("expected ErrDuelActive, got %v", err)
	}

	finish := authz.DuelPayload{Phase: authz.KindDuelFinish, From: player, TokenID: 42}
	if err := engine.Finish(finish); err != nil {
		t.Fatalf("finish: %v", err)
	}
	holder, err = ledger.OwnerOf(nft.CollectionHero, 42)
	if err != nil {
		t.Fatalf("ownerOf after finish: %v", err)
	}
	if holder != player {
		t.Fatalf("custody must return to the player")
	}

	if err := engine.Finish(finish); !errors.Is(err, ErrNoDuel) {
		t.Fatalf("expected ErrNoDuel on double finish, got %v", err)
	}
}

func TestFinishRequiresMatchingToken(t *testing.T) {
	engine, ledger := testEngine(t)
	player := addr(2)
	if err := ledger.MintWithID(nft.CollectionHero, 7, player, 0); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := engine.Start(authz.DuelPayload{Phase: authz.KindDuelStart, From: player, TokenID: 7}); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := engine.Finish(authz.DuelPayload{Phase: authz.KindDuelFinish, From: player, TokenID: 8})
	if !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch, got %v", err)
	}
}

func TestStartRequiresOwnership(t *testing.T) {
	engine, ledger := testEngine(t)
	player := addr(3)
	other := addr(4)
	if err := ledger.MintWithID(nft.CollectionHero, 9, other, 0); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := engine.Start(authz.DuelPayload{Phase: authz.KindDuelStart, From: player, TokenID: 9})
	if !errors.Is(err, nft.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, ok, err := engine.Active(player); err != nil || ok {
		t.Fatalf("failed start must leave no record, ok=%v err=%v", ok, err)
	}
}
