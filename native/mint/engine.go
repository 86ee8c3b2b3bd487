package mint

import (
	"errors"
	"fmt"

	"arenachain/core/events"
	"arenachain/native/authz"
	"arenachain/native/nft"
)

var (
	errNilLedger = errors.New("mint engine: token ledger not configured")

	// ErrGeneratorRole rejects mints whose signing authority does not hold
	// the generator role for the target collection.
	ErrGeneratorRole = errors.New("mint engine: authority lacks generator role")
)

// Engine executes authorized single-token mints. The signature discipline is
// handled upstream; the engine validates payload shape, checks the generator
// role for the approving authority and performs the mint.
type Engine struct {
	ledger  *nft.Ledger
	emitter events.Emitter
}

// NewEngine creates a mint engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetLedger configures the token custody collaborator.
func (e *Engine) SetLedger(ledger *nft.Ledger) { e.ledger = ledger }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Validate checks the structural shape of the payload before any signature
// work happens.
func (e *Engine) Validate(p authz.MintPayload) error {
	collection := nft.Collection(p.Collection)
	if !collection.Valid() {
		return fmt.Errorf("mint engine: %w: %q", nft.ErrUnknownCollection, p.Collection)
	}
	if p.TokenID == 0 {
		return fmt.Errorf("mint engine: token id must be positive")
	}
	if collection == nft.CollectionOrb {
		if p.Quality < nft.QualityMin || p.Quality > nft.QualityMax {
			return fmt.Errorf("mint engine: %w: %d", nft.ErrInvalidQuality, p.Quality)
		}
	} else if p.Quality != 0 {
		return fmt.Errorf("mint engine: %w: collection %q carries no quality", nft.ErrInvalidQuality, p.Collection)
	}
	return nil
}

// Apply mints the token to account. authority is the address whose signature
// approved the operation; it must hold the generator role for the collection.
func (e *Engine) Apply(account, authority [20]byte, p authz.MintPayload) error {
	if e == nil || e.ledger == nil {
		return errNilLedger
	}
	collection := nft.Collection(p.Collection)
	allowed, err := e.ledger.IsGenerator(collection, authority)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrGeneratorRole
	}
	return e.ledger.MintWithID(collection, p.TokenID, account, p.Quality)
}
