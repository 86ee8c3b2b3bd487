package chest

import (
	"errors"
	"fmt"

	"arenachain/core/events"
	"arenachain/native/authz"
	"arenachain/native/nft"
)

// DefaultMaxBatch bounds how many items one chest may dispense per call.
const DefaultMaxBatch = 20

var (
	errNilLedger = errors.New("chest engine: token ledger not configured")

	ErrEmptyBatch    = errors.New("chest engine: empty batch")
	ErrBatchMismatch = errors.New("chest engine: type and item arrays differ in length")
	ErrBatchTooLarge = errors.New("chest engine: batch exceeds configured maximum")
	ErrUnknownType   = errors.New("chest engine: unknown type index")
	ErrBadItemCode   = errors.New("chest engine: orb item code out of range")
	ErrGeneratorRole = errors.New("chest engine: authority lacks generator role")
)

// Type indexes carried in chest payloads. The index order is part of the
// signed protocol and must not be reshuffled.
const (
	TypeHero uint8 = iota
	TypeBanner
	TypeOrb
	TypeHouse
)

func collectionFor(typeIndex uint8) (nft.Collection, bool) {
	switch typeIndex {
	case TypeHero:
		return nft.CollectionHero, true
	case TypeBanner:
		return nft.CollectionBanner, true
	case TypeOrb:
		return nft.CollectionOrb, true
	case TypeHouse:
		return nft.CollectionHouse, true
	default:
		return "", false
	}
}

// Engine opens chests: each (type index, item code) pair dispatches to a
// per-collection mint. For orbs the item code is the quality tier and the
// ledger allocates the id; for every other collection the item code is the
// explicit token id the backend reserved.
type Engine struct {
	ledger   *nft.Ledger
	emitter  events.Emitter
	maxBatch int
}

// NewEngine creates a chest engine with the default batch bound.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}, maxBatch: DefaultMaxBatch}
}

// SetLedger configures the token custody collaborator.
func (e *Engine) SetLedger(ledger *nft.Ledger) { e.ledger = ledger }

// SetMaxBatch overrides the per-call item bound. Non-positive values restore
// the default.
func (e *Engine) SetMaxBatch(n int) {
	if n <= 0 {
		e.maxBatch = DefaultMaxBatch
		return
	}
	e.maxBatch = n
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Validate checks the parallel arrays line up and every type index resolves
// before any signature work happens.
func (e *Engine) Validate(p authz.ChestPayload) error {
	if len(p.Types) == 0 {
		return ErrEmptyBatch
	}
	if len(p.Types) != len(p.Items) {
		return ErrBatchMismatch
	}
	if len(p.Types) > e.maxBatch {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(p.Types), e.maxBatch)
	}
	for i, typeIndex := range p.Types {
		if _, ok := collectionFor(typeIndex); !ok {
			return fmt.Errorf("%w: index %d at position %d", ErrUnknownType, typeIndex, i)
		}
		// Orb item codes are quality tiers and must stay within uint8 range
		// before any narrowing conversion, or a signed code like 262 would
		// execute as 262 mod 256.
		if typeIndex == TypeOrb {
			if item := p.Items[i]; item < uint64(nft.QualityMin) || item > uint64(nft.QualityMax) {
				return fmt.Errorf("%w: %d at position %d", ErrBadItemCode, item, i)
			}
		}
	}
	return nil
}

// Apply dispenses every item in the chest to account. Either the whole batch
// lands or none of it does; callers stage the writes.
func (e *Engine) Apply(account, authority [20]byte, p authz.ChestPayload) error {
	if e == nil || e.ledger == nil {
		return errNilLedger
	}
	for i, typeIndex := range p.Types {
		collection, ok := collectionFor(typeIndex)
		if !ok {
			return fmt.Errorf("%w: index %d at position %d", ErrUnknownType, typeIndex, i)
		}
		allowed, err := e.ledger.IsGenerator(collection, authority)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrGeneratorRole
		}
		item := p.Items[i]
		if collection == nft.CollectionOrb {
			if item < uint64(nft.QualityMin) || item > uint64(nft.QualityMax) {
				return fmt.Errorf("%w: %d at position %d", ErrBadItemCode, item, i)
			}
			if _, err := e.ledger.Mint(collection, account, uint8(item)); err != nil {
				return fmt.Errorf("chest engine: mint orb at position %d: %w", i, err)
			}
			continue
		}
		if err := e.ledger.MintWithID(collection, item, account, 0); err != nil {
			return fmt.Errorf("chest engine: mint %s %d at position %d: %w", collection, item, i, err)
		}
	}
	e.emitter.Emit(events.ChestOpened{Account: account, Count: len(p.Types)})
	return nil
}
