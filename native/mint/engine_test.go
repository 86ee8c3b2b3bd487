package mint

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
	ledger := nft.NewLedger(state.NewManager(storage.NewMemDB()))
	engine := NewEngine()
	engine.SetLedger(ledger)
	return engine, ledger
}

func TestValidateShapes(t *testing.T) {
	engine, _ := testEngine(t)
	cases := []struct {
		name    string
		payload authz.MintPayload
		ok      bool
	}{
		{"hero", authz.MintPayload{Collection: "hero", TokenID: 1}, true},
		{"orb with quality", authz.MintPayload{Collection: "orb", TokenID: 1, Quality: 3}, true},
		{"unknown collection", authz.MintPayload{Collection: "sword", TokenID: 1}, false},
		{"zero token id", authz.MintPayload{Collection: "hero"}, false},
		{"orb quality 0", authz.MintPayload{Collection: "orb", TokenID: 1}, false},
		{"orb quality 7", authz.MintPayload{Collection: "orb", TokenID: 1, Quality: 7}, false},
		{"hero with quality", authz.MintPayload{Collection: "hero", TokenID: 1, Quality: 1}, false},
	}
	for _, tc := range cases {
		err := engine.Validate(tc.payload)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected validation failure", tc.name)
		}
	}
}

func TestApplyChecksGeneratorRole(t *testing.T) {
	engine, ledger := testEngine(t)
	backend := addr(1)
	player := addr(2)
	payload := authz.MintPayload{Collection: "hero", TokenID: 7}

	if err := engine.Apply(player, backend, payload); !errors.Is(err, ErrGeneratorRole) {
		t.Fatalf("expected ErrGeneratorRole, got %v", err)
	}
	if err := ledger.SetGenerator(nft.CollectionHero, backend, true); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := engine.Apply(player, backend, payload); err != nil {
		t.Fatalf("apply: %v", err)
	}
	owner, err := ledger.OwnerOf(nft.CollectionHero, 7)
	if err != nil || owner != player {
		t.Fatalf("owner=%x err=%v", owner, err)
	}
	if err := engine.Apply(player, backend, payload); !errors.Is(err, nft.ErrTokenExists) {
		t.Fatalf("expected ErrTokenExists, got %v", err)
	}
}
