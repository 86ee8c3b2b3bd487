package authz

import (
	"bytes"
	"math/big"
)

// Kind tags the operation an authorization approves. The tag is mixed into the
// canonical message so a signature for one operation can never be replayed as
// another even when the remaining fields coincide.
type Kind uint8

const (
	KindMint Kind = iota + 1
	KindOpenChest
	KindCraftOrb
	KindStakeOrbs
	KindUnstakeOrbs
	KindDuelStart
	KindDuelFinish
	KindSeasonWithdraw
	KindSetHouseParams
)

func (k Kind) String() string {
	switch k {
	case KindMint:
		return "mint"
	case KindOpenChest:
		return "openChest"
	case KindCraftOrb:
		return "craftOrb"
	case KindStakeOrbs:
		return "stakeOrbs"
	case KindUnstakeOrbs:
		return "unstakeOrbs"
	case KindDuelStart:
		return "duelStart"
	case KindDuelFinish:
		return "duelFinish"
	case KindSeasonWithdraw:
		return "seasonWithdraw"
	case KindSetHouseParams:
		return "setHouseParams"
	default:
		return "unknown"
	}
}

// Payload is the tagged variant the canonicalizer encodes. Every operation
// owns exactly one encoding rule; both the signing backend and the verifying
// engine go through the same rule, so the two sides cannot drift.
type Payload interface {
	Kind() Kind
	encode(buf *bytes.Buffer)
}

// MintPayload authorizes minting a single token into a collection. Quality is
// only meaningful for orbs and must be zero elsewhere.
type MintPayload struct {
	Collection string
	TokenID    uint64
	Quality    uint8
}

func (MintPayload) Kind() Kind { return KindMint }

func (p MintPayload) encode(buf *bytes.Buffer) {
	packString(buf, p.Collection)
	packUint(buf, p.TokenID)
	packUint(buf, uint64(p.Quality))
}

// ChestPayload authorizes opening a chest containing parallel arrays of token
// type indexes and item codes. Both arrays are length-prefixed; element order
// is part of the signed message.
type ChestPayload struct {
	Types []uint8
	Items []uint64
}

func (ChestPayload) Kind() Kind { return KindOpenChest }

func (p ChestPayload) encode(buf *bytes.Buffer) {
	packUint(buf, uint64(len(p.Types)))
	for _, t := range p.Types {
		packUint(buf, uint64(t))
	}
	packUint(buf, uint64(len(p.Items)))
	for _, item := range p.Items {
		packUint(buf, item)
	}
}

// CraftPayload authorizes burning five orbs for a single higher-tier orb.
type CraftPayload struct {
	OrbIDs [5]uint64
}

func (CraftPayload) Kind() Kind { return KindCraftOrb }

func (p CraftPayload) encode(buf *bytes.Buffer) {
	for _, id := range p.OrbIDs {
		packUint(buf, id)
	}
}

// StakePayload authorizes locking a batch of orbs under a stake slot.
type StakePayload struct {
	Index  uint64
	OrbIDs []uint64
}

func (StakePayload) Kind() Kind { return KindStakeOrbs }

func (p StakePayload) encode(buf *bytes.Buffer) {
	packUint(buf, p.Index)
	packUint(buf, uint64(len(p.OrbIDs)))
	for _, id := range p.OrbIDs {
		packUint(buf, id)
	}
}

// UnstakePayload authorizes releasing a previously staked slot.
type UnstakePayload struct {
	Index uint64
}

func (UnstakePayload) Kind() Kind { return KindUnstakeOrbs }

func (p UnstakePayload) encode(buf *bytes.Buffer) {
	packUint(buf, p.Index)
}

// DuelPayload authorizes either side of the duel custody handshake. From is
// the custody account, which may differ from the transaction submitter.
type DuelPayload struct {
	Phase   Kind
	From    [20]byte
	TokenID uint64
}

func (p DuelPayload) Kind() Kind { return p.Phase }

func (p DuelPayload) encode(buf *bytes.Buffer) {
	packAddress(buf, p.From)
	packUint(buf, p.TokenID)
}

// SeasonPayload authorizes withdrawing a season reward.
type SeasonPayload struct {
	Season uint64
	Amount *big.Int
}

func (SeasonPayload) Kind() Kind { return KindSeasonWithdraw }

func (p SeasonPayload) encode(buf *bytes.Buffer) {
	packUint(buf, p.Season)
	packBig(buf, p.Amount)
}

// HousePayload authorizes updating the parameters of a house token.
type HousePayload struct {
	TokenID  uint64
	Capacity uint8
	Level    uint8
}

func (HousePayload) Kind() Kind { return KindSetHouseParams }

func (p HousePayload) encode(buf *bytes.Buffer) {
	packUint(buf, p.TokenID)
	packUint(buf, uint64(p.Capacity))
	packUint(buf, uint64(p.Level))
}
