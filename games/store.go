/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Seednode/promptparty/metrics"
)

// Kind identifies which game a session belongs to.
type Kind string

const (
	KindQuiz      Kind = "quiz"
	KindCharacter Kind = "character"
	KindHealthy   Kind = "healthy"
	KindPrice     Kind = "fpp"
	KindGlam      Kind = "glam"
	KindRiddle    Kind = "riddle"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Session is one in-progress game. State points at the game's own state
// struct and is only touched while the session is locked by Update.
type Session struct {
	Token      string
	Kind       Kind
	CreatedAt  time.Time
	LastActive time.Time
	State      any
}

// Store keeps game sessions keyed by an opaque token.
type Store interface {
	// Create stores state under a fresh token.
	Create(kind Kind, state any) (string, error)
	// Get returns the session for token if it exists and has the given kind.
	Get(token string, kind Kind) (*Session, error)
	// Update runs fn with the session locked. The session is deleted when
	// fn reports the game finished. Concurrent updates of one token fail
	// with ErrSessionBusy.
	Update(token string, kind Kind, fn func(s *Session) (finished bool, err error)) error
	// Delete removes the session.
	Delete(token string) error
	// Len returns the number of live sessions.
	Len() int
}

type entry struct {
	mu      sync.Mutex // held for the duration of a turn
	session Session
	gone    bool // guarded by MemoryStore.mu
}

// MemoryStore is a process-local Store. Sessions idle longer than ttl are
// treated as absent and removed by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	clock   Clock
	newID   func() string
}

// NewMemoryStore returns an empty store. A zero ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		ttl:     ttl,
		clock:   systemClock{},
		newID:   uuid.NewString,
	}
}

// WithClock replaces the time source.
func (m *MemoryStore) WithClock(c Clock) *MemoryStore {
	m.clock = c
	return m
}

func (m *MemoryStore) Create(kind Kind, state any) (string, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	token := m.newID()
	for {
		if _, exists := m.entries[token]; !exists {
			break
		}
		token = m.newID()
	}

	m.entries[token] = &entry{
		session: Session{
			Token:      token,
			Kind:       kind,
			CreatedAt:  now,
			LastActive: now,
			State:      state,
		},
	}

	metrics.SessionsStarted.WithLabelValues(string(kind)).Inc()
	metrics.SessionsActive.Inc()

	return token, nil
}

// lookup returns the live entry for token, dropping it if it has expired.
func (m *MemoryStore) lookup(token string, kind Kind) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.expired(e) {
		m.removeLocked(token, e, "expired")
		return nil, ErrSessionNotFound
	}
	if e.session.Kind != kind {
		return nil, ErrSessionNotFound
	}

	return e, nil
}

func (m *MemoryStore) expired(e *entry) bool {
	return m.ttl > 0 && m.clock.Now().Sub(e.session.LastActive) > m.ttl
}

func (m *MemoryStore) removeLocked(token string, e *entry, outcome string) {
	if cur, ok := m.entries[token]; !ok || cur != e {
		return
	}
	delete(m.entries, token)
	e.gone = true

	metrics.SessionsActive.Dec()
	metrics.SessionsFinished.WithLabelValues(string(e.session.Kind), outcome).Inc()
}

func (m *MemoryStore) isGone(e *entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return e.gone
}

func (m *MemoryStore) Get(token string, kind Kind) (*Session, error) {
	e, err := m.lookup(token, kind)
	if err != nil {
		return nil, err
	}

	if !e.mu.TryLock() {
		return nil, ErrSessionBusy
	}
	defer e.mu.Unlock()

	if m.isGone(e) {
		return nil, ErrSessionNotFound
	}

	s := e.session
	return &s, nil
}

func (m *MemoryStore) Update(token string, kind Kind, fn func(s *Session) (bool, error)) error {
	e, err := m.lookup(token, kind)
	if err != nil {
		return err
	}

	if !e.mu.TryLock() {
		return ErrSessionBusy
	}
	defer e.mu.Unlock()

	// Deleted between the lookup and taking the session lock.
	if m.isGone(e) {
		return ErrSessionNotFound
	}

	finished, err := fn(&e.session)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if finished {
		m.removeLocked(token, e, "finished")
		return nil
	}

	e.session.LastActive = m.clock.Now()

	return nil
}

func (m *MemoryStore) Delete(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[token]
	if !ok {
		return ErrSessionNotFound
	}
	m.removeLocked(token, e, "deleted")

	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// Sweep removes every expired session and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, e := range m.entries {
		if !m.expired(e) {
			continue
		}
		// A session mid-turn is not idle, whatever its timestamp says.
		if !e.mu.TryLock() {
			continue
		}
		m.removeLocked(token, e, "expired")
		e.mu.Unlock()
		removed++
	}

	return removed
}

// StartReaper sweeps expired sessions every interval until ctx is done.
func (m *MemoryStore) StartReaper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 && onSweep != nil {
					onSweep(n)
				}
			}
		}
	}()
}
