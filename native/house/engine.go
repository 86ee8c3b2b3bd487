package house

import (
	"encoding/binary"
	"errors"
	"fmt"

	"arenachain/core/events"
	"arenachain/native/authz"
	"arenachain/native/nft"
)

// Parameter bounds for house tokens.
const (
	MaxCapacity uint8 = 50
	MaxLevel    uint8 = 10
)

var (
	errNilState  = errors.New("house engine: state not configured")
	errNilLedger = errors.New("house engine: token ledger not configured")

	ErrCapacityRange = errors.New("house engine: capacity out of range")
	ErrLevelRange    = errors.New("house engine: level out of range")
)

// Storage abstracts the state manager surface house params persist through.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Params are the configurable attributes of a house token.
type Params struct {
	Capacity uint8
	Level    uint8
}

var paramsPrefix = []byte("house/params/")

func paramsKey(tokenID uint64) []byte {
	buf := append([]byte(nil), paramsPrefix...)
	var word [8]byte
	binary.BigEndian.PutUint64(word[:], tokenID)
	return append(buf, word[:]...)
}

// Engine stores per-token house parameters behind the authorization
// discipline. The caller must own the house being configured.
type Engine struct {
	state   Storage
	ledger  *nft.Ledger
	emitter events.Emitter
}

// NewEngine creates a house engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state Storage) { e.state = state }

// SetLedger configures the token custody collaborator.
func (e *Engine) SetLedger(ledger *nft.Ledger) { e.ledger = ledger }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Validate checks parameter bounds before signature work.
func (e *Engine) Validate(p authz.HousePayload) error {
	if p.TokenID == 0 {
		return fmt.Errorf("house engine: token id must be positive")
	}
	if p.Capacity == 0 || p.Capacity > MaxCapacity {
		return fmt.Errorf("%w: %d", ErrCapacityRange, p.Capacity)
	}
	if p.Level == 0 || p.Level > MaxLevel {
		return fmt.Errorf("%w: %d", ErrLevelRange, p.Level)
	}
	return nil
}

// Apply stores the parameters for the house owned by account.
func (e *Engine) Apply(account [20]byte, p authz.HousePayload) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	owner, err := e.ledger.OwnerOf(nft.CollectionHouse, p.TokenID)
	if err != nil {
		return err
	}
	if owner != account {
		return nft.ErrNotOwner
	}
	if err := e.state.KVPut(paramsKey(p.TokenID), &Params{Capacity: p.Capacity, Level: p.Level}); err != nil {
		return err
	}
	e.emitter.Emit(events.HouseConfigured{TokenID: p.TokenID, Capacity: p.Capacity, Level: p.Level})
	return nil
}

// ParamsOf returns the stored parameters for the token, if configured.
func (e *Engine) ParamsOf(tokenID uint64) (*Params, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	params := &Params{}
	ok, err := e.state.KVGet(paramsKey(tokenID), params)
	if err != nil || !ok {
		return nil, false, err
	}
	return params, true, nil
}
