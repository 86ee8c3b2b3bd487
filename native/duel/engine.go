package duel

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"

	"arenachain/core/events"
	"arenachain/native/authz"
	"arenachain/native/nft"
)

var (
	errNilLedger = errors.New("duel engine: token ledger not configured")
	errNilState  = errors.New("duel engine: state not configured")

	// ErrDuelActive rejects a second duel while one is recorded. The data
	// model holds a single custody scalar per account.
	ErrDuelActive = errors.New("duel engine: duel already active for account")
	// ErrNoDuel rejects a finish with no matching active duel.
	ErrNoDuel = errors.New("duel engine: no active duel for account")
	// ErrTokenMismatch rejects a finish naming a different token than the
	// one in custody.
	ErrTokenMismatch = errors.New("duel engine: token does not match active duel")
)

// Storage abstracts the state manager surface the duel records persist
// through.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Record is the custody entry for an account's active duel. Presence of the
// record, not a sentinel token id, is what marks a duel active.
type Record struct {
	TokenID   uint64
	StartedAt int64
}

// storedRecord shadows Record for persistence; RLP has no signed-integer
// encoding, so the timestamp travels as a uint64 word.
type storedRecord struct {
	TokenID   uint64
	StartedAt uint64
}

// EncodeRLP implements rlp.Encoder via the storedRecord shadow struct.
func (r *Record) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, storedRecord{TokenID: r.TokenID, StartedAt: uint64(r.StartedAt)})
}

// DecodeRLP implements rlp.Decoder via the storedRecord shadow struct.
func (r *Record) DecodeRLP(s *rlp.Stream) error {
	var stored storedRecord
	if err := s.Decode(&stored); err != nil {
		return err
	}
	r.TokenID = stored.TokenID
	r.StartedAt = int64(stored.StartedAt)
	return nil
}

var duelPrefix = []byte("duel/active/")

func duelKey(account [20]byte) []byte {
	buf := make([]byte, 0, len(duelPrefix)+len(account))
	buf = append(buf, duelPrefix...)
	return append(buf, account[:]...)
}

// Engine runs the two-phase duel custody handshake: start transfers a hero
// into module custody and records it; finish returns custody and clears the
// record.
type Engine struct {
	state   Storage
	ledger  *nft.Ledger
	emitter events.Emitter
	custody [20]byte
	nowFn   func() int64
}

// NewEngine creates a duel engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used for duel records.
func (e *Engine) SetState(state Storage) { e.state = state }

// SetLedger configures the token custody collaborator.
func (e *Engine) SetLedger(ledger *nft.Ledger) { e.ledger = ledger }

// SetCustody configures the module address holding tokens during duels.
func (e *Engine) SetCustody(addr [20]byte) { e.custody = addr }

// SetNowFunc overrides the time source used for StartedAt stamps.
func (e *Engine) SetNowFunc(now func() int64) { e.nowFn = now }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Validate checks payload shape before signature work.
func (e *Engine) Validate(p authz.DuelPayload) error {
	if p.TokenID == 0 {
		return fmt.Errorf("duel engine: token id must be positive")
	}
	switch p.Phase {
	case authz.KindDuelStart, authz.KindDuelFinish:
		return nil
	default:
		return fmt.Errorf("duel engine: unexpected phase %d", p.Phase)
	}
}

// Start moves the token into custody and records the active duel for the
// custody account named in the payload.
func (e *Engine) Start(p authz.DuelPayload) error {
	if err := e.ready(); err != nil {
		return err
	}
	key := duelKey(p.From)
	if ok, err := e.state.KVGet(key, nil); err != nil {
		return err
	} else if ok {
		return ErrDuelActive
	}
	if err := e.ledger.Transfer(nft.CollectionHero, p.TokenID, p.From, e.custody); err != nil {
		return err
	}
	record := &Record{TokenID: p.TokenID}
	if e.nowFn != nil {
		record.StartedAt = e.nowFn()
	}
	if err := e.state.KVPut(key, record); err != nil {
		return err
	}
	e.emitter.Emit(events.DuelStarted{Account: p.From, TokenID: p.TokenID})
	return nil
}

// Finish returns custody of the recorded token and clears the record. The
// named token must match the recorded one exactly.
func (e *Engine) Finish(p authz.DuelPayload) error {
	if err := e.ready(); err != nil {
		return err
	}
	key := duelKey(p.From)
	record := &Record{}
	ok, err := e.state.KVGet(key, record)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoDuel
	}
	if record.TokenID != p.TokenID {
		return fmt.Errorf("%w: have %d, want %d", ErrTokenMismatch, record.TokenID, p.TokenID)
	}
	if err := e.ledger.Transfer(nft.CollectionHero, p.TokenID, e.custody, p.From); err != nil {
		return err
	}
	if err := e.state.KVDelete(key); err != nil {
		return err
	}
	e.emitter.Emit(events.DuelFinished{Account: p.From, TokenID: p.TokenID})
	return nil
}

// Active returns the recorded duel for account, if any.
func (e *Engine) Active(account [20]byte) (*Record, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	record := &Record{}
	ok, err := e.state.KVGet(duelKey(account), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record, true, nil
}

func (e *Engine) ready() error {
	if e == nil || e.ledger == nil {
		return errNilLedger
	}
	if e.state == nil {
		return errNilState
	}
	return nil
}
