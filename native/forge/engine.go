package forge

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"arenachain/core/events"
	"arenachain/native/authz"
	"arenachain/native/nft"
)

// MaxStakeSlots bounds how many stake slots one account may hold.
const MaxStakeSlots = 16

var (
	errNilLedger = errors.New("forge engine: token ledger not configured")
	errNilState  = errors.New("forge engine: state not configured")

	ErrDuplicateOrb   = errors.New("forge engine: duplicate orb id")
	ErrQualitySpread  = errors.New("forge engine: need exactly one orb of each quality 1..5")
	ErrSlotOutOfRange = errors.New("forge engine: stake slot out of range")
	ErrSlotOccupied   = errors.New("forge engine: stake slot already occupied")
	ErrSlotEmpty      = errors.New("forge engine: stake slot empty")
	ErrEmptyStake     = errors.New("forge engine: no orbs supplied")
)

// Storage abstracts the state manager surface the stake records persist
// through.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// StakeRecord is one occupied stake slot. Occupancy is explicit; a zero-value
// record never masquerades as a stake.
type StakeRecord struct {
	TokenIDs []uint64
	StakedAt int64
}

// storedStakeRecord shadows StakeRecord for persistence; RLP has no
// signed-integer encoding, so the timestamp travels as a uint64 word.
type storedStakeRecord struct {
	TokenIDs []uint64
	StakedAt uint64
}

// EncodeRLP implements rlp.Encoder via the storedStakeRecord shadow struct.
func (r *StakeRecord) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, storedStakeRecord{TokenIDs: r.TokenIDs, StakedAt: uint64(r.StakedAt)})
}

// DecodeRLP implements rlp.Decoder via the storedStakeRecord shadow struct.
func (r *StakeRecord) DecodeRLP(s *rlp.Stream) error {
	var stored storedStakeRecord
	if err := s.Decode(&stored); err != nil {
		return err
	}
	r.TokenIDs = stored.TokenIDs
	r.StakedAt = int64(stored.StakedAt)
	return nil
}

// Engine executes orb crafting and orb staking. Crafting burns one orb of
// each quality 1..5 and mints a quality-6 orb; staking moves orbs into module
// custody under a fixed-capacity slot index.
type Engine struct {
	state   Storage
	ledger  *nft.Ledger
	emitter events.Emitter
	custody [20]byte
	nowFn   func() int64
}

// NewEngine creates a forge engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used for stake records.
func (e *Engine) SetState(state Storage) { e.state = state }

// SetLedger configures the token custody collaborator.
func (e *Engine) SetLedger(ledger *nft.Ledger) { e.ledger = ledger }

// SetCustody configures the module address that holds staked orbs.
func (e *Engine) SetCustody(addr [20]byte) { e.custody = addr }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// ValidateCraft rejects payloads with repeated orb ids before signature work.
func (e *Engine) ValidateCraft(p authz.CraftPayload) error {
	seen := make(map[uint64]struct{}, len(p.OrbIDs))
	for _, id := range p.OrbIDs {
		if id == 0 {
			return fmt.Errorf("forge engine: orb id must be positive")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateOrb, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Craft consumes the five supplied orbs and mints one quality-6 orb. The
// inputs must be owned by account and cover qualities 1..5 exactly once each;
// any miss leaves every input untouched.
func (e *Engine) Craft(account [20]byte, p authz.CraftPayload) (uint64, error) {
	if e == nil || e.ledger == nil {
		return 0, errNilLedger
	}
	var tiers [nft.QualityCraft + 1]int
	for _, id := range p.OrbIDs {
		owner, err := e.ledger.OwnerOf(nft.CollectionOrb, id)
		if err != nil {
			return 0, err
		}
		if owner != account {
			return 0, fmt.Errorf("%w: orb %d", nft.ErrNotOwner, id)
		}
		quality, err := e.ledger.QualityOf(nft.CollectionOrb, id)
		if err != nil {
			return 0, err
		}
		if quality < nft.QualityMin || quality > nft.QualityCraft {
			return 0, fmt.Errorf("%w: orb %d has quality %d", ErrQualitySpread, id, quality)
		}
		tiers[quality]++
	}
	for q := nft.QualityMin; q <= nft.QualityCraft; q++ {
		if tiers[q] != 1 {
			return 0, fmt.Errorf("%w: quality %d appears %d times", ErrQualitySpread, q, tiers[q])
		}
	}
	for _, id := range p.OrbIDs {
		if err := e.ledger.Burn(nft.CollectionOrb, id, account); err != nil {
			return 0, err
		}
	}
	minted, err := e.ledger.Mint(nft.CollectionOrb, account, nft.QualityMax)
	if err != nil {
		return 0, err
	}
	e.emitter.Emit(events.OrbCrafted{Account: account, Consumed: p.OrbIDs[:], Minted: minted})
	return minted, nil
}

// ValidateStake checks slot bounds and id shape before signature work.
func (e *Engine) ValidateStake(p authz.StakePayload) error {
	if p.Index >= MaxStakeSlots {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, p.Index)
	}
	if len(p.OrbIDs) == 0 {
		return ErrEmptyStake
	}
	seen := make(map[uint64]struct{}, len(p.OrbIDs))
	for _, id := range p.OrbIDs {
		if id == 0 {
			return fmt.Errorf("forge engine: orb id must be positive")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateOrb, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Stake locks the supplied orbs under the slot index, transferring them into
// module custody.
func (e *Engine) Stake(account [20]byte, p authz.StakePayload) error {
	if e == nil || e.ledger == nil {
		return errNilLedger
	}
	if e.state == nil {
		return errNilState
	}
	key := stakeKey(account, p.Index)
	if ok, err := e.state.KVGet(key, nil); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %d", ErrSlotOccupied, p.Index)
	}
	for _, id := range p.OrbIDs {
		if err := e.ledger.Transfer(nft.CollectionOrb, id, account, e.custody); err != nil {
			return err
		}
	}
	record := &StakeRecord{TokenIDs: append([]uint64(nil), p.OrbIDs...), StakedAt: e.now()}
	if err := e.state.KVPut(key, record); err != nil {
		return err
	}
	e.emitter.Emit(events.OrbsStaked{Account: account, Index: p.Index, TokenIDs: record.TokenIDs, StakedAt: record.StakedAt})
	return nil
}

// ValidateUnstake checks slot bounds before signature work.
func (e *Engine) ValidateUnstake(p authz.UnstakePayload) error {
	if p.Index >= MaxStakeSlots {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, p.Index)
	}
	return nil
}

// Unstake releases the slot, returning custody of its orbs to account.
func (e *Engine) Unstake(account [20]byte, p authz.UnstakePayload) error {
	if e == nil || e.ledger == nil {
		return errNilLedger
	}
	if e.state == nil {
		return errNilState
	}
	key := stakeKey(account, p.Index)
	record := &StakeRecord{}
	ok, err := e.state.KVGet(key, record)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrSlotEmpty, p.Index)
	}
	for _, id := range record.TokenIDs {
		if err := e.ledger.Transfer(nft.CollectionOrb, id, e.custody, account); err != nil {
			return err
		}
	}
	if err := e.state.KVDelete(key); err != nil {
		return err
	}
	e.emitter.Emit(events.OrbsUnstaked{Account: account, Index: p.Index, TokenIDs: record.TokenIDs})
	return nil
}

// StakeAt returns the record stored under the slot, if occupied.
func (e *Engine) StakeAt(account [20]byte, index uint64) (*StakeRecord, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	record := &StakeRecord{}
	ok, err := e.state.KVGet(stakeKey(account, index), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record, true, nil
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}
