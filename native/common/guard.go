package common

import (
	"errors"
	"sync"
)

var (
	ErrModulePaused = errors.New("module paused")
	// ErrReentrancy rejects a nested operation while another one is still
	// executing in the same module instance. Only the nested call fails.
	ErrReentrancy = errors.New("reentrant call")
)

// PauseView exposes the administrative pause switches per module.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects interactions with paused modules.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// ReentrancyLatch detects nested operation execution. Callers serialize
// concurrent operations with their own lock before entering; the latch is
// deliberately not a blocking mutex because a nested call from inside an
// executing effect is a protocol violation and must fail immediately rather
// than deadlock.
type ReentrancyLatch struct {
	mu   sync.Mutex
	held bool
}

// Enter acquires the latch. The returned release function must run on every
// exit path, error paths included.
func (l *ReentrancyLatch) Enter() (func(), error) {
	l.mu.Lock()
	if l.held {
		l.mu.Unlock()
		return nil, ErrReentrancy
	}
	l.held = true
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.held = false
		l.mu.Unlock()
	}, nil
}
