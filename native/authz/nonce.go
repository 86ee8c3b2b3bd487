package authz

import (
	"errors"
	"fmt"
)

// Storage abstracts the subset of state manager functionality the nonce
// ledger needs.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var nonceKeyPrefix = []byte("authz/nonce/")

func nonceKey(account [20]byte) []byte {
	buf := make([]byte, len(nonceKeyPrefix)+len(account))
	copy(buf, nonceKeyPrefix)
	copy(buf[len(nonceKeyPrefix):], account[:])
	return buf
}

// NonceLedger tracks one strictly increasing counter per account. A counter
// is created at zero on first reference, incremented by exactly one per
// consumed authorization, and never decremented or reset.
type NonceLedger struct {
	store Storage
}

// NewNonceLedger binds the ledger to a storage backend.
func NewNonceLedger(store Storage) *NonceLedger {
	return &NonceLedger{store: store}
}

var errNoStore = errors.New("authz: nonce ledger storage not configured")

// Current returns the account's next-expected nonce.
func (l *NonceLedger) Current(account [20]byte) (uint64, error) {
	if l == nil || l.store == nil {
		return 0, errNoStore
	}
	var nonce uint64
	if _, err := l.store.KVGet(nonceKey(account), &nonce); err != nil {
		return 0, fmt.Errorf("authz: load nonce: %w", err)
	}
	return nonce, nil
}

// Consume advances the account's nonce by one. It must be called exactly when
// a signature for the account verified, after verification and before any
// externally observable effect of the same request; that ordering is what
// stops a reentrant callee from replaying the authorization.
func (l *NonceLedger) Consume(account [20]byte) (uint64, error) {
	current, err := l.Current(account)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := l.store.KVPut(nonceKey(account), next); err != nil {
		return 0, fmt.Errorf("authz: store nonce: %w", err)
	}
	return next, nil
}
