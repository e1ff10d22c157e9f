package session

import (
	"context"
	"sync"
	"time"
)

type pairKey struct {
	userID   int64
	deviceID string
}

// MemoryStore is an in-process Store used by unit tests and local runs.
// A single mutex serializes all operations, which trivially satisfies the
// per-key atomicity the rotation path depends on.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[pairKey]Session
	used     map[string]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[pairKey]Session),
		used:     make(map[string]time.Time),
	}
}

// Store overwrites the session for (userID, deviceID).
func (m *MemoryStore) Store(_ context.Context, userID int64, deviceID string, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[pairKey{userID, deviceID}] = s
	return nil
}

// Get returns the live session for (userID, deviceID). Expired records are
// evicted lazily.
func (m *MemoryStore) Get(_ context.Context, now time.Time, userID int64, deviceID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey{userID, deviceID}
	s, ok := m.sessions[key]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !s.ExpiresAt.After(now) {
		delete(m.sessions, key)
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes the session for (userID, deviceID). Idempotent.
func (m *MemoryStore) Delete(_ context.Context, userID int64, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, pairKey{userID, deviceID})
	return nil
}

// DeleteAll removes every session for the user.
func (m *MemoryStore) DeleteAll(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.sessions {
		if key.userID == userID {
			delete(m.sessions, key)
		}
	}
	return nil
}

// Devices lists device ids with a live session for the user.
func (m *MemoryStore) Devices(_ context.Context, now time.Time, userID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var devices []string
	for key, s := range m.sessions {
		if key.userID != userID {
			continue
		}
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, key)
			continue
		}
		devices = append(devices, key.deviceID)
	}
	return devices, nil
}

// MarkUsed inserts tokenID into the replay ledger if absent.
func (m *MemoryStore) MarkUsed(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.used[tokenID]; ok {
		return false, nil
	}
	m.used[tokenID] = expiresAt
	return true, nil
}

// IsUsed reports whether tokenID has a live replay-ledger entry.
func (m *MemoryStore) IsUsed(_ context.Context, now time.Time, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.used[tokenID]
	if !ok {
		return false, nil
	}
	if !exp.After(now) {
		delete(m.used, tokenID)
		return false, nil
	}
	return true, nil
}

// PurgeExpired drops expired sessions and ledger entries.
func (m *MemoryStore) PurgeExpired(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, key)
		}
	}
	for id, exp := range m.used {
		if !exp.After(now) {
			delete(m.used, id)
		}
	}
	return nil
}
