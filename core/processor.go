package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"arenachain/core/events"
	"arenachain/native/authz"
	"arenachain/native/chest"
	"arenachain/native/common"
	"arenachain/native/duel"
	"arenachain/native/forge"
	"arenachain/native/house"
	"arenachain/native/mint"
	"arenachain/native/nft"
	"arenachain/native/season"
	"arenachain/observability/metrics"
	"arenachain/state"
)

// Module names used by the administrative pause switches.
const (
	ModuleMint   = "mint"
	ModuleChest  = "chest"
	ModuleForge  = "forge"
	ModuleDuel   = "duel"
	ModuleSeason = "season"
	ModuleHouse  = "house"
)

var errNilManager = errors.New("processor: state manager not configured")

// Config carries the deployment identity of the processor.
type Config struct {
	ChainID   uint64
	Contract  [20]byte
	Authority [20]byte
	Quota     common.Quota
}

// Processor is the generalized operation executor: one instance owns the
// reentrancy latch, the nonce ledger, the trusted-authority verifier and the
// game engines, and applies every operation as an all-or-nothing transition.
//
// Concurrent submissions queue on opMu and apply one at a time; the latch
// inside only ever fires on a true nested call from within an effect.
type Processor struct {
	opMu     sync.Mutex
	manager  *state.Manager
	verifier *authz.Verifier
	nonces   *authz.NonceLedger
	latch    common.ReentrancyLatch
	domain   authz.Domain
	quota    common.Quota
	clock    func() time.Time
	sink     events.Emitter
	buffer   *events.Buffer

	ledger  *nft.Ledger
	mints   *mint.Engine
	chests  *chest.Engine
	forges  *forge.Engine
	duels   *duel.Engine
	seasons *season.Engine
	houses  *house.Engine
}

// NewProcessor wires the engines over the shared state manager. The contract
// address doubles as the custody account for staked and dueling tokens.
func NewProcessor(manager *state.Manager, cfg Config) *Processor {
	p := &Processor{
		manager:  manager,
		verifier: authz.NewVerifier(cfg.Authority),
		nonces:   authz.NewNonceLedger(manager),
		domain:   authz.Domain{ChainID: cfg.ChainID, Contract: cfg.Contract},
		quota:    cfg.Quota,
		clock:    time.Now,
		sink:     events.NoopEmitter{},
		buffer:   &events.Buffer{},
	}

	p.ledger = nft.NewLedger(manager)
	p.ledger.SetEmitter(p.buffer)

	p.mints = mint.NewEngine()
	p.mints.SetLedger(p.ledger)
	p.mints.SetEmitter(p.buffer)

	p.chests = chest.NewEngine()
	p.chests.SetLedger(p.ledger)
	p.chests.SetEmitter(p.buffer)

	p.forges = forge.NewEngine()
	p.forges.SetState(manager)
	p.forges.SetLedger(p.ledger)
	p.forges.SetCustody(cfg.Contract)
	p.forges.SetEmitter(p.buffer)
	p.forges.SetNowFunc(func() int64 { return p.clock().Unix() })

	p.duels = duel.NewEngine()
	p.duels.SetState(manager)
	p.duels.SetLedger(p.ledger)
	p.duels.SetCustody(cfg.Contract)
	p.duels.SetEmitter(p.buffer)
	p.duels.SetNowFunc(func() int64 { return p.clock().Unix() })

	p.seasons = season.NewEngine()
	p.seasons.SetState(manager)
	p.seasons.SetEmitter(p.buffer)
	p.seasons.SetNowFunc(func() int64 { return p.clock().Unix() })

	p.houses = house.NewEngine()
	p.houses.SetState(manager)
	p.houses.SetLedger(p.ledger)
	p.houses.SetEmitter(p.buffer)

	return p
}

// SetClock overrides the processor clock. Engines share it, so deadline gates
// and season windows stay consistent in tests.
func (p *Processor) SetClock(now func() time.Time) {
	if now == nil {
		p.clock = time.Now
		return
	}
	p.clock = now
}

// SetEmitter configures where committed events are delivered.
func (p *Processor) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		p.sink = events.NoopEmitter{}
		return
	}
	p.sink = emitter
}

// Ledger exposes the token collaborator for queries. Role grants go through
// SetGenerator so they serialize with operation execution.
func (p *Processor) Ledger() *nft.Ledger { return p.ledger }

// Seasons exposes the season engine for administrative configuration.
func (p *Processor) Seasons() *season.Engine { return p.seasons }

// Forges exposes the forge engine for stake queries.
func (p *Processor) Forges() *forge.Engine { return p.forges }

// Duels exposes the duel engine for custody queries.
func (p *Processor) Duels() *duel.Engine { return p.duels }

// Houses exposes the house engine for parameter queries.
func (p *Processor) Houses() *house.Engine { return p.houses }

// Chests exposes the chest engine for batch-bound configuration.
func (p *Processor) Chests() *chest.Engine { return p.chests }

// Authority returns the currently trusted authority address.
func (p *Processor) Authority() [20]byte { return p.verifier.Authority() }

// RotateAuthority replaces the trusted authority. Unconsumed signatures under
// the old key stop verifying; consumed nonces are untouched. The rotation
// queues behind any in-flight operation so no operation observes a half
// rotated authority.
func (p *Processor) RotateAuthority(next [20]byte) {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	previous := p.verifier.Rotate(next)
	metrics.Authz().ObserveRotation()
	p.sink.Emit(events.AuthorityRotated{Previous: previous, Next: next})
}

// Nonce returns the next-expected nonce for account.
func (p *Processor) Nonce(account [20]byte) (uint64, error) {
	return p.nonces.Current(account)
}

// Pause toggles the administrative switch for a module. The write queues
// behind any in-flight operation so it never lands inside an open staging
// overlay.
func (p *Processor) Pause(module string, paused bool) error {
	if p.manager == nil {
		return errNilManager
	}
	p.opMu.Lock()
	defer p.opMu.Unlock()
	return p.manager.KVPut(pauseKey(module), paused)
}

// SetGenerator grants or revokes backend mint rights on a collection. Like
// Pause, the write queues behind any in-flight operation.
func (p *Processor) SetGenerator(collection nft.Collection, account [20]byte, allowed bool) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	return p.ledger.SetGenerator(collection, account, allowed)
}

// IsPaused implements common.PauseView over persisted switches.
func (p *Processor) IsPaused(module string) bool {
	if p.manager == nil {
		return false
	}
	var paused bool
	if _, err := p.manager.KVGet(pauseKey(module), &paused); err != nil {
		return true
	}
	return paused
}

func pauseKey(module string) []byte {
	return append([]byte("pause/"), module...)
}

// MintToken executes an authorized single mint for caller.
func (p *Processor) MintToken(caller [20]byte, payload authz.MintPayload, deadline int64, sig []byte) error {
	if err := p.mints.Validate(payload); err != nil {
		return p.reject(payload, err)
	}
	return p.execute(ModuleMint, caller, payload, deadline, sig, func() error {
		return p.mints.Apply(caller, p.verifier.Authority(), payload)
	})
}

// OpenChest executes an authorized chest opening for caller.
func (p *Processor) OpenChest(caller [20]byte, payload authz.ChestPayload, deadline int64, sig []byte) error {
	if err := p.chests.Validate(payload); err != nil {
		return p.reject(payload, err)
	}
	return p.execute(ModuleChest, caller, payload, deadline, sig, func() error {
		return p.chests.Apply(caller, p.verifier.Authority(), payload)
	})
}

// CraftOrb executes an authorized five-orb craft for caller.
func (p *Processor) CraftOrb(caller [20]byte, payload authz.CraftPayload, deadline int64, sig []byte) error {
	if err := p.forges.ValidateCraft(payload); err != nil {
		return p.reject(payload, err)
	}
	return p.execute(ModuleForge, caller, payload, deadline, sig, func() error {
		_, err := p.forges.Craft(caller, payload)
		return err
	})
}

// StakeOrbs executes an authorized stake for caller.
func (p *Processor) StakeOrbs(caller [20]byte, payload authz.StakePayload, deadline int64, sig []byte) error {
	if err := p.forges.ValidateStake(payload); err != nil {
		return p.reject(payload, err)
	}
	return p.execute(ModuleForge, caller, payload, deadline, sig, func() error {
		return p.forges.Stake(caller, payload)
	})
}

// UnstakeOrbs executes an authorized unstake for caller.
func (p *Processor) UnstakeOrbs(caller [20]byte, payload authz.UnstakePayload, deadline int64, sig []byte) error {
	if err := p.forges.ValidateUnstake(payload); err != nil {
		return p.reject(payload, err)
	}
	return p.execute(ModuleForge, caller, payload, deadline, sig, func() error {
		return p.forges.Unstake(caller, payload)
	})
}

// StartDuel executes the custody-in half of the duel handshake. The relevant
// account for nonce and signature purposes is the custody account named in
// the payload, not the transaction submitter.
func (p *Processor) StartDuel(payload authz.DuelPayload, deadline int64, sig []byte) error {
	payload.Phase = authz.KindDuelStart
	if err := p.duels.Validate(payload); err != nil {
		return p.reject(payload, err)
	}
	return p.execute(ModuleDuel, payload.From, payload, deadline, sig, func() error {
		return p.duels.Start(payload)
	})
}

// FinishDuel executes the custody-out half of the duel handshake.
func (p *Processor) FinishDuel(payload authz.DuelPayload, deadline int64, sig []byte) error {
	payload.Phase = authz.KindDuelFinish
	if err := p.duels.Validate(payload); err != nil {
		return p.reject(payload, err)
	}
	return p.execute(ModuleDuel, payload.From, payload, deadline, sig, func() error {
		return p.duels.Finish(payload)
	})
}

// WithdrawSeason executes an authorized season reward withdrawal for caller.
func (p *Processor) WithdrawSeason(caller [20]byte, payload authz.SeasonPayload, deadline int64, sig []byte) error {
	if err := p.seasons.Validate(payload); err != nil {
		return p.reject(payload, err)
	}
	return p.execute(ModuleSeason, caller, payload, deadline, sig, func() error {
		return p.seasons.Withdraw(caller, payload)
	})
}

// SetHouseParams executes an authorized house parameter update for caller.
func (p *Processor) SetHouseParams(caller [20]byte, payload authz.HousePayload, deadline int64, sig []byte) error {
	if err := p.houses.Validate(payload); err != nil {
		return p.reject(payload, err)
	}
	return p.execute(ModuleHouse, caller, payload, deadline, sig, func() error {
		return p.houses.Apply(caller, payload)
	})
}

// execute runs the guarded pipeline shared by every operation: serialization
// on opMu, reentrancy latch, pause guard, deadline gate, canonicalization at
// the account's current nonce, signature verification, nonce consumption,
// then the staged domain effect. Concurrent callers block here rather than
// fail. The nonce advances strictly after verification and strictly before
// any externally visible effect; a failure anywhere rolls the whole staging
// overlay back, events included.
func (p *Processor) execute(module string, account [20]byte, payload authz.Payload, deadline int64, sig []byte, effect func() error) error {
	if p == nil || p.manager == nil {
		return errNilManager
	}
	kind := payload.Kind().String()
	p.opMu.Lock()
	defer p.opMu.Unlock()
	release, err := p.latch.Enter()
	if err != nil {
		metrics.Authz().ObserveRejected(kind, "reentrancy")
		return err
	}
	defer release()
	p.buffer.Reset()

	if err := common.Guard(p, module); err != nil {
		metrics.Authz().ObserveRejected(kind, "paused")
		return err
	}

	started := p.clock()
	if err := authz.CheckDeadline(started, deadline); err != nil {
		metrics.Authz().ObserveRejected(kind, "expired")
		return err
	}

	p.manager.Begin()
	if err := p.executeStaged(account, payload, deadline, sig, effect); err != nil {
		p.manager.Rollback()
		p.buffer.Reset()
		metrics.Authz().ObserveRejected(kind, reasonFor(err))
		return err
	}
	if err := p.manager.Commit(); err != nil {
		p.buffer.Reset()
		metrics.Authz().ObserveRejected(kind, "storage")
		return fmt.Errorf("processor: commit: %w", err)
	}
	p.buffer.Flush(p.sink)
	metrics.Authz().ObserveAccepted(kind, p.clock().Sub(started))
	return nil
}

func (p *Processor) executeStaged(account [20]byte, payload authz.Payload, deadline int64, sig []byte, effect func() error) error {
	if err := p.consumeQuota(account); err != nil {
		return err
	}
	nonce, err := p.nonces.Current(account)
	if err != nil {
		return err
	}
	digest := authz.Digest(p.domain, authz.Message{
		Account:  account,
		Nonce:    nonce,
		Deadline: deadline,
		Payload:  payload,
	})
	if err := p.verifier.Verify(digest, sig); err != nil {
		return err
	}
	if _, err := p.nonces.Consume(account); err != nil {
		return err
	}
	return effect()
}

func (p *Processor) consumeQuota(account [20]byte) error {
	if !p.quota.Enabled() {
		return nil
	}
	key := append([]byte("quota/"), account[:]...)
	usage := common.QuotaNow{}
	if _, err := p.manager.KVGet(key, &usage); err != nil {
		return err
	}
	next, err := common.CheckQuota(p.quota, p.quota.Epoch(p.clock().Unix()), usage)
	if err != nil {
		return err
	}
	return p.manager.KVPut(key, &next)
}

func (p *Processor) reject(payload authz.Payload, err error) error {
	metrics.Authz().ObserveRejected(payload.Kind().String(), "precondition")
	return err
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, authz.ErrBadSignature):
		return "badSignature"
	case errors.Is(err, authz.ErrExpired):
		return "expired"
	case errors.Is(err, common.ErrQuotaRequestsExceeded):
		return "quota"
	default:
		return "precondition"
	}
}
