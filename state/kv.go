package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"arenachain/storage"
)

// Manager provides RLP-encoded structured access on top of a raw key-value
// database. Engines depend on the narrow KV* contract rather than on the
// manager itself so tests can substitute their own storage.
type Manager struct {
	mu sync.Mutex
	db storage.Database

	// overlay staging for atomic operation application; nil when not in a
	// transaction.
	overlay map[string]*overlayEntry
}

type overlayEntry struct {
	value   []byte
	deleted bool
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var errNoDatabase = errors.New("state: database not configured")

func (m *Manager) rawGet(key []byte) ([]byte, bool, error) {
	if m.overlay != nil {
		if entry, ok := m.overlay[string(key)]; ok {
			if entry.deleted {
				return nil, false, nil
			}
			return entry.value, true, nil
		}
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) rawPut(key, value []byte) error {
	if m.overlay != nil {
		buf := make([]byte, len(value))
		copy(buf, value)
		m.overlay[string(key)] = &overlayEntry{value: buf}
		return nil
	}
	return m.db.Put(key, value)
}

func (m *Manager) rawDelete(key []byte) error {
	if m.overlay != nil {
		m.overlay[string(key)] = &overlayEntry{deleted: true}
		return nil
	}
	return m.db.Delete(key)
}

// Begin opens a staging overlay. Writes land in the overlay until Commit moves
// them to the database; Rollback discards them. Exactly one transaction may be
// open at a time; the processor holds its guard across the whole window.
func (m *Manager) Begin() {
	m.mu.Lock()
	m.overlay = make(map[string]*overlayEntry)
}

// Commit flushes the overlay to the underlying database as one atomic batch
// and closes the transaction. A write failure leaves the database untouched.
func (m *Manager) Commit() error {
	defer func() {
		m.overlay = nil
		m.mu.Unlock()
	}()
	writes := make([]storage.BatchWrite, 0, len(m.overlay))
	for key, entry := range m.overlay {
		if entry.deleted {
			writes = append(writes, storage.BatchWrite{Key: []byte(key), Delete: true})
			continue
		}
		writes = append(writes, storage.BatchWrite{Key: []byte(key), Value: entry.value})
	}
	if len(writes) == 0 {
		return nil
	}
	return m.db.WriteBatch(writes)
}

// Rollback discards all staged writes and closes the transaction.
func (m *Manager) Rollback() {
	m.overlay = nil
	m.mu.Unlock()
}

// KVGet decodes the RLP value stored under key into out. The boolean reports
// whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m.db == nil {
		return false, errNoDatabase
	}
	value, ok, err := m.rawGet(key)
	if err != nil || !ok {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(value, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// KVPut RLP-encodes value and stores it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m.db == nil {
		return errNoDatabase
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.rawPut(key, encoded)
}

// KVDelete removes key from the store. Deleting an absent key is not an error.
func (m *Manager) KVDelete(key []byte) error {
	if m.db == nil {
		return errNoDatabase
	}
	return m.rawDelete(key)
}

// KVAppend appends value to the string list stored under key.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return err
	}
	list = append(list, value)
	return m.KVPut(key, list)
}

// KVGetList decodes the list stored under key into out, leaving out untouched
// when the key is absent.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	_, err := m.KVGet(key, out)
	return err
}
