package sessions

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when a handle does not exist.
type ErrNotFound struct {
	Handle string
}

func (e *ErrNotFound) Error() string {
	return "session not found: " + e.Handle
}

// entry pairs a session with the lock that serializes its turns.
type entry struct {
	mu   sync.Mutex
	sess *Session
}

// MemoryStore is a thread-safe in-memory map of session handles.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry // key: handle
}

// NewMemoryStore creates an empty session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
	}
}

// Create registers a new session under a generated handle.
func (m *MemoryStore) Create() *Session {
	sess := New(uuid.NewString())

	m.mu.Lock()
	m.entries[sess.Handle] = &entry{sess: sess}
	n := len(m.entries)
	m.mu.Unlock()

	log.Debug().Str("handle", sess.Handle).Int("sessions", n).Msg("Session created")
	return sess.Clone()
}

// Lock acquires exclusive access to a session for one turn. The returned
// function releases it and must be called exactly once.
func (m *MemoryStore) Lock(handle string) (*Session, func(), error) {
	m.mu.RLock()
	e, ok := m.entries[handle]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, &ErrNotFound{Handle: handle}
	}

	e.mu.Lock()
	// Evicted while we waited.
	m.mu.RLock()
	current, still := m.entries[handle]
	m.mu.RUnlock()
	if !still || current != e {
		e.mu.Unlock()
		return nil, nil, &ErrNotFound{Handle: handle}
	}

	e.sess.Touch()
	return e.sess, e.mu.Unlock, nil
}

// Get returns a copy of the session. It waits for any turn in progress.
func (m *MemoryStore) Get(handle string) (*Session, error) {
	sess, unlock, err := m.Lock(handle)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return sess.Clone(), nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[handle]; !ok {
		return &ErrNotFound{Handle: handle}
	}
	delete(m.entries, handle)
	return nil
}

// Summary is the listing shape for a session.
type Summary struct {
	Handle     string    `json:"handle"`
	SessionID  string    `json:"session_id"`
	Selected   string    `json:"selected,omitempty"`
	Messages   int       `json:"messages"`
	LastActive time.Time `json:"last_active"`
}

// List summarizes sessions, most recently active first. Sessions busy with
// a turn are reported from their last known state.
func (m *MemoryStore) List() []Summary {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		if !e.mu.TryLock() {
			out = append(out, Summary{Handle: e.sess.Handle, LastActive: time.Now().UTC()})
			continue
		}
		s := Summary{
			Handle:     e.sess.Handle,
			SessionID:  e.sess.SessionID,
			Messages:   len(e.sess.Transcript),
			LastActive: e.sess.LastActive,
		}
		if e.sess.Selected != nil {
			s.Selected = e.sess.Selected.ID
		}
		e.mu.Unlock()
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	return out
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// EvictIdle removes sessions inactive since before cutoff. Sessions in the
// middle of a turn are never evicted.
func (m *MemoryStore) EvictIdle(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for handle, e := range m.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.sess.LastActive.Before(cutoff) {
			delete(m.entries, handle)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}
