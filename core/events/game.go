package events

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"arenachain/core/types"
	"arenachain/crypto"
)

const (
	TypeTokenMinted      = "nft.minted"
	TypeTokenBurned      = "nft.burned"
	TypeTokenTransferred = "nft.transferred"
	TypeChestOpened      = "chest.opened"
	TypeOrbCrafted       = "forge.crafted"
	TypeOrbsStaked       = "forge.staked"
	TypeOrbsUnstaked     = "forge.unstaked"
	TypeDuelStarted      = "duel.started"
	TypeDuelFinished     = "duel.finished"
	TypeSeasonClaimed    = "season.claimed"
	TypeHouseConfigured  = "house.configured"
	TypeAuthorityRotated = "authz.authorityRotated"
)

func addr(a [20]byte) string {
	return crypto.NewAddress(crypto.HeroPrefix, a[:]).String()
}

func uintString(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func intString(v int64) string {
	return strconv.FormatInt(v, 10)
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func idList(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

type TokenMinted struct {
	Collection string
	TokenID    uint64
	Owner      [20]byte
	Quality    uint8
}

func (TokenMinted) EventType() string { return TypeTokenMinted }

func (e TokenMinted) Event() *types.Event {
	attrs := map[string]string{
		"collection": e.Collection,
		"tokenId":    uintString(e.TokenID),
		"owner":      addr(e.Owner),
	}
	if e.Quality > 0 {
		attrs["quality"] = uintString(uint64(e.Quality))
	}
	return &types.Event{Type: TypeTokenMinted, Attributes: attrs}
}

type TokenBurned struct {
	Collection string
	TokenID    uint64
	Owner      [20]byte
}

func (TokenBurned) EventType() string { return TypeTokenBurned }

func (e TokenBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenBurned,
		Attributes: map[string]string{
			"collection": e.Collection,
			"tokenId":    uintString(e.TokenID),
			"owner":      addr(e.Owner),
		},
	}
}

type TokenTransferred struct {
	Collection string
	TokenID    uint64
	From       [20]byte
	To         [20]byte
}

func (TokenTransferred) EventType() string { return TypeTokenTransferred }

func (e TokenTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenTransferred,
		Attributes: map[string]string{
			"collection": e.Collection,
			"tokenId":    uintString(e.TokenID),
			"from":       addr(e.From),
			"to":         addr(e.To),
		},
	}
}

type ChestOpened struct {
	Account [20]byte
	Count   int
}

func (ChestOpened) EventType() string { return TypeChestOpened }

func (e ChestOpened) Event() *types.Event {
	return &types.Event{
		Type: TypeChestOpened,
		Attributes: map[string]string{
			"account": addr(e.Account),
			"count":   fmt.Sprintf("%d", e.Count),
		},
	}
}

type OrbCrafted struct {
	Account  [20]byte
	Consumed []uint64
	Minted   uint64
}

func (OrbCrafted) EventType() string { return TypeOrbCrafted }

func (e OrbCrafted) Event() *types.Event {
	return &types.Event{
		Type: TypeOrbCrafted,
		Attributes: map[string]string{
			"account":  addr(e.Account),
			"consumed": idList(e.Consumed),
			"minted":   uintString(e.Minted),
		},
	}
}

type OrbsStaked struct {
	Account  [20]byte
	Index    uint64
	TokenIDs []uint64
	StakedAt int64
}

func (OrbsStaked) EventType() string { return TypeOrbsStaked }

func (e OrbsStaked) Event() *types.Event {
	return &types.Event{
		Type: TypeOrbsStaked,
		Attributes: map[string]string{
			"account":  addr(e.Account),
			"index":    uintString(e.Index),
			"tokenIds": idList(e.TokenIDs),
			"stakedAt": intString(e.StakedAt),
		},
	}
}

type OrbsUnstaked struct {
	Account  [20]byte
	Index    uint64
	TokenIDs []uint64
}

func (OrbsUnstaked) EventType() string { return TypeOrbsUnstaked }

func (e OrbsUnstaked) Event() *types.Event {
	return &types.Event{
		Type: TypeOrbsUnstaked,
		Attributes: map[string]string{
			"account":  addr(e.Account),
			"index":    uintString(e.Index),
			"tokenIds": idList(e.TokenIDs),
		},
	}
}

type DuelStarted struct {
	Account [20]byte
	TokenID uint64
}

func (DuelStarted) EventType() string { return TypeDuelStarted }

func (e DuelStarted) Event() *types.Event {
	return &types.Event{
		Type: TypeDuelStarted,
		Attributes: map[string]string{
			"account": addr(e.Account),
			"tokenId": uintString(e.TokenID),
		},
	}
}

type DuelFinished struct {
	Account [20]byte
	TokenID uint64
}

func (DuelFinished) EventType() string { return TypeDuelFinished }

func (e DuelFinished) Event() *types.Event {
	return &types.Event{
		Type: TypeDuelFinished,
		Attributes: map[string]string{
			"account": addr(e.Account),
			"tokenId": uintString(e.TokenID),
		},
	}
}

type SeasonClaimed struct {
	Account [20]byte
	Season  uint64
	Amount  *big.Int
}

func (SeasonClaimed) EventType() string { return TypeSeasonClaimed }

func (e SeasonClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeSeasonClaimed,
		Attributes: map[string]string{
			"account": addr(e.Account),
			"season":  uintString(e.Season),
			"amount":  amountString(e.Amount),
		},
	}
}

type HouseConfigured struct {
	TokenID  uint64
	Capacity uint8
	Level    uint8
}

func (HouseConfigured) EventType() string { return TypeHouseConfigured }

func (e HouseConfigured) Event() *types.Event {
	return &types.Event{
		Type: TypeHouseConfigured,
		Attributes: map[string]string{
			"tokenId":  uintString(e.TokenID),
			"capacity": uintString(uint64(e.Capacity)),
			"level":    uintString(uint64(e.Level)),
		},
	}
}

type AuthorityRotated struct {
	Previous [20]byte
	Next     [20]byte
}

func (AuthorityRotated) EventType() string { return TypeAuthorityRotated }

func (e AuthorityRotated) Event() *types.Event {
	return &types.Event{
		Type: TypeAuthorityRotated,
		Attributes: map[string]string{
			"previous": addr(e.Previous),
			"next":     addr(e.Next),
		},
	}
}
