package season

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"arenachain/core/events"
	"arenachain/native/authz"
)

var (
	errNilState = errors.New("season engine: state not configured")

	ErrSeasonNotFound = errors.New("season engine: season not found")
	ErrSeasonInactive = errors.New("season engine: season not active")
	ErrAlreadyClaimed = errors.New("season engine: reward already claimed for season")
	ErrInvalidAmount  = errors.New("season engine: amount must be positive")
	ErrPoolExhausted  = errors.New("season engine: season pool exhausted")
)

// Storage abstracts the state manager surface season records persist through.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Info describes one season's window.
type Info struct {
	StartTime int64
	Duration  int64
}

// storedInfo shadows Info for persistence; RLP has no signed-integer
// encoding, so the fields travel as uint64 words.
type storedInfo struct {
	StartTime uint64
	Duration  uint64
}

// EncodeRLP implements rlp.Encoder via the storedInfo shadow struct.
func (i *Info) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, storedInfo{StartTime: uint64(i.StartTime), Duration: uint64(i.Duration)})
}

// DecodeRLP implements rlp.Decoder via the storedInfo shadow struct.
func (i *Info) DecodeRLP(s *rlp.Stream) error {
	var stored storedInfo
	if err := s.Decode(&stored); err != nil {
		return err
	}
	i.StartTime = int64(stored.StartTime)
	i.Duration = int64(stored.Duration)
	return nil
}

// Active reports whether the season window covers now.
func (i Info) Active(now int64) bool {
	if i.StartTime <= 0 || i.Duration <= 0 {
		return false
	}
	return now >= i.StartTime && now < i.StartTime+i.Duration
}

var (
	seasonPrefix  = []byte("season/info/")
	poolPrefix    = []byte("season/pool/")
	claimedPrefix = []byte("season/claimed/")
	balancePrefix = []byte("season/balance/")
)

func seasonKey(id uint64) []byte {
	return appendUint(append([]byte(nil), seasonPrefix...), id)
}

func poolKey(id uint64) []byte {
	return appendUint(append([]byte(nil), poolPrefix...), id)
}

func claimedKey(account [20]byte, id uint64) []byte {
	buf := append([]byte(nil), claimedPrefix...)
	buf = append(buf, account[:]...)
	buf = append(buf, '/')
	return appendUint(buf, id)
}

func balanceKey(account [20]byte) []byte {
	buf := append([]byte(nil), balancePrefix...)
	return append(buf, account[:]...)
}

func appendUint(buf []byte, v uint64) []byte {
	var word [8]byte
	binary.BigEndian.PutUint64(word[:], v)
	return append(buf, word[:]...)
}

// Engine maintains the season registry and executes season-gated reward
// withdrawals. The per-account per-season claimed flag is independent of the
// nonce ledger so a second claim fails even with a fresh signature.
type Engine struct {
	state   Storage
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a season engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state Storage) { e.state = state }

// SetNowFunc overrides the time source used by the engine.
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

// Configure records or replaces a season window. Administrative.
func (e *Engine) Configure(id uint64, info Info) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if info.StartTime <= 0 || info.Duration <= 0 {
		return fmt.Errorf("season engine: start time and duration must be positive")
	}
	return e.state.KVPut(seasonKey(id), &info)
}

// Fund adds amount to the season's reward pool. Administrative.
func (e *Engine) Fund(id uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	pool, err := e.loadAmount(poolKey(id))
	if err != nil {
		return err
	}
	pool.Add(pool, amount)
	return e.storeAmount(poolKey(id), pool)
}

// IsActive reports whether the season exists and its window covers the
// engine's current time.
func (e *Engine) IsActive(id uint64) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	info := Info{}
	ok, err := e.state.KVGet(seasonKey(id), &info)
	if err != nil || !ok {
		return false, err
	}
	return info.Active(e.nowFn()), nil
}

// Claimed reports whether account already withdrew for the season.
func (e *Engine) Claimed(account [20]byte, id uint64) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	var claimed bool
	ok, err := e.state.KVGet(claimedKey(account, id), &claimed)
	if err != nil {
		return false, err
	}
	return ok && claimed, nil
}

// Balance returns the withdrawn-reward balance credited to account.
func (e *Engine) Balance(account [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadAmount(balanceKey(account))
}

// Validate checks payload shape before signature work.
func (e *Engine) Validate(p authz.SeasonPayload) error {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Withdraw pays the authorized amount from the season pool to account. The
// season must exist, be active, and not yet have been claimed by account; the
// claimed flag flips before the credit lands so even a reentrant replay within
// the same staging window cannot double-pay.
func (e *Engine) Withdraw(account [20]byte, p authz.SeasonPayload) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	info := Info{}
	ok, err := e.state.KVGet(seasonKey(p.Season), &info)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSeasonNotFound
	}
	if !info.Active(e.nowFn()) {
		return ErrSeasonInactive
	}
	claimed, err := e.Claimed(account, p.Season)
	if err != nil {
		return err
	}
	if claimed {
		return ErrAlreadyClaimed
	}
	pool, err := e.loadAmount(poolKey(p.Season))
	if err != nil {
		return err
	}
	if pool.Cmp(p.Amount) < 0 {
		return ErrPoolExhausted
	}
	if err := e.state.KVPut(claimedKey(account, p.Season), true); err != nil {
		return err
	}
	pool.Sub(pool, p.Amount)
	if err := e.storeAmount(poolKey(p.Season), pool); err != nil {
		return err
	}
	balance, err := e.loadAmount(balanceKey(account))
	if err != nil {
		return err
	}
	balance.Add(balance, p.Amount)
	if err := e.storeAmount(balanceKey(account), balance); err != nil {
		return err
	}
	e.emitter.Emit(events.SeasonClaimed{Account: account, Season: p.Season, Amount: new(big.Int).Set(p.Amount)})
	return nil
}

func (e *Engine) loadAmount(key []byte) (*big.Int, error) {
	var stored []byte
	if _, err := e.state.KVGet(key, &stored); err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(stored), nil
}

func (e *Engine) storeAmount(key []byte, amount *big.Int) error {
	return e.state.KVPut(key, amount.Bytes())
}
