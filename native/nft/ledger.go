package nft

import (
	"errors"
	"fmt"

	"arenachain/core/events"
)

// Collection identifies one of the game's token families.
type Collection string

const (
	CollectionHero   Collection = "hero"
	CollectionBanner Collection = "banner"
	CollectionOrb    Collection = "orb"
	CollectionHouse  Collection = "house"
)

// Valid reports whether the collection is one the ledger manages.
func (c Collection) Valid() bool {
	switch c {
	case CollectionHero, CollectionBanner, CollectionOrb, CollectionHouse:
		return true
	default:
		return false
	}
}

// Orb quality tiers. Crafting consumes one orb of each tier 1..5 and mints a
// tier-6 orb.
const (
	QualityMin   uint8 = 1
	QualityCraft uint8 = 5
	QualityMax   uint8 = 6
)

var (
	ErrUnknownCollection = errors.New("nft: unknown collection")
	ErrTokenNotFound     = errors.New("nft: token not found")
	ErrTokenExists       = errors.New("nft: token already exists")
	ErrNotOwner          = errors.New("nft: account does not own token")
	ErrInvalidQuality    = errors.New("nft: quality out of range")
	ErrNotGenerator      = errors.New("nft: account is not an authorized generator")
)

// Storage abstracts the state manager surface the ledger persists through.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Token is the stored record for a minted token. Quality is zero for
// collections without tiers.
type Token struct {
	Owner   [20]byte
	Quality uint8
}

// Ledger is the token custody collaborator: ownership bookkeeping for every
// collection, plus the generator role set gating mints. All failures are loud
// and leave no partial state behind; callers stage writes in an overlay.
type Ledger struct {
	store   Storage
	emitter events.Emitter
}

// NewLedger creates a ledger with a no-op emitter.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

var errNoStore = errors.New("nft: storage not configured")

// OwnerOf returns the current owner of the token.
func (l *Ledger) OwnerOf(collection Collection, id uint64) ([20]byte, error) {
	var zero [20]byte
	token, err := l.load(collection, id)
	if err != nil {
		return zero, err
	}
	return token.Owner, nil
}

// QualityOf returns the quality tier recorded for the token.
func (l *Ledger) QualityOf(collection Collection, id uint64) (uint8, error) {
	token, err := l.load(collection, id)
	if err != nil {
		return 0, err
	}
	return token.Quality, nil
}

// Mint creates the next token in the collection and assigns it to owner.
// Token ids start at 1; id 0 is never minted, and absence is always tracked
// explicitly by callers rather than through a zero sentinel.
func (l *Ledger) Mint(collection Collection, owner [20]byte, quality uint8) (uint64, error) {
	if err := l.checkCollection(collection); err != nil {
		return 0, err
	}
	if collection == CollectionOrb {
		if quality < QualityMin || quality > QualityMax {
			return 0, ErrInvalidQuality
		}
	} else if quality != 0 {
		return 0, ErrInvalidQuality
	}
	var lastID uint64
	if _, err := l.store.KVGet(nextIDKey(collection), &lastID); err != nil {
		return 0, err
	}
	id := lastID + 1
	if err := l.store.KVPut(nextIDKey(collection), id); err != nil {
		return 0, err
	}
	if err := l.store.KVPut(tokenKey(collection, id), &Token{Owner: owner, Quality: quality}); err != nil {
		return 0, err
	}
	l.emitter.Emit(events.TokenMinted{Collection: string(collection), TokenID: id, Owner: owner, Quality: quality})
	return id, nil
}

// MintWithID creates a token with an explicit id, used by authorized mints
// where the backend allocated the id off-chain.
func (l *Ledger) MintWithID(collection Collection, id uint64, owner [20]byte, quality uint8) error {
	if err := l.checkCollection(collection); err != nil {
		return err
	}
	if id == 0 {
		return fmt.Errorf("nft: token id must be positive")
	}
	if collection == CollectionOrb {
		if quality < QualityMin || quality > QualityMax {
			return ErrInvalidQuality
		}
	} else if quality != 0 {
		return ErrInvalidQuality
	}
	if ok, err := l.store.KVGet(tokenKey(collection, id), nil); err != nil {
		return err
	} else if ok {
		return ErrTokenExists
	}
	var lastID uint64
	if _, err := l.store.KVGet(nextIDKey(collection), &lastID); err != nil {
		return err
	}
	if id > lastID {
		if err := l.store.KVPut(nextIDKey(collection), id); err != nil {
			return err
		}
	}
	if err := l.store.KVPut(tokenKey(collection, id), &Token{Owner: owner, Quality: quality}); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenMinted{Collection: string(collection), TokenID: id, Owner: owner, Quality: quality})
	return nil
}

// Transfer moves the token from one account to another, failing loudly when
// from is not the current owner.
func (l *Ledger) Transfer(collection Collection, id uint64, from, to [20]byte) error {
	token, err := l.load(collection, id)
	if err != nil {
		return err
	}
	if token.Owner != from {
		return ErrNotOwner
	}
	token.Owner = to
	if err := l.store.KVPut(tokenKey(collection, id), token); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenTransferred{Collection: string(collection), TokenID: id, From: from, To: to})
	return nil
}

// Burn destroys the token, failing when owner does not hold it.
func (l *Ledger) Burn(collection Collection, id uint64, owner [20]byte) error {
	token, err := l.load(collection, id)
	if err != nil {
		return err
	}
	if token.Owner != owner {
		return ErrNotOwner
	}
	if err := l.store.KVDelete(tokenKey(collection, id)); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenBurned{Collection: string(collection), TokenID: id, Owner: owner})
	return nil
}

// SetGenerator grants or revokes the mint role for the collection.
func (l *Ledger) SetGenerator(collection Collection, account [20]byte, allowed bool) error {
	if err := l.checkCollection(collection); err != nil {
		return err
	}
	if !allowed {
		return l.store.KVDelete(generatorKey(collection, account))
	}
	return l.store.KVPut(generatorKey(collection, account), true)
}

// IsGenerator reports whether the account may mint into the collection.
func (l *Ledger) IsGenerator(collection Collection, account [20]byte) (bool, error) {
	if err := l.checkCollection(collection); err != nil {
		return false, err
	}
	var allowed bool
	ok, err := l.store.KVGet(generatorKey(collection, account), &allowed)
	if err != nil {
		return false, err
	}
	return ok && allowed, nil
}

func (l *Ledger) checkCollection(collection Collection) error {
	if l == nil || l.store == nil {
		return errNoStore
	}
	if !collection.Valid() {
		return ErrUnknownCollection
	}
	return nil
}

func (l *Ledger) load(collection Collection, id uint64) (*Token, error) {
	if err := l.checkCollection(collection); err != nil {
		return nil, err
	}
	token := &Token{}
	ok, err := l.store.KVGet(tokenKey(collection, id), token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	return token, nil
}
