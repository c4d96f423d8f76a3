package profile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/advisor-desk/pkg/models"
)

// snapshot is the JSON shape written to disk.
type snapshot struct {
	Profiles map[string]*models.Profile `json:"profiles"`
}

// MemoryStore keeps profiles in a map, optionally persisted to a JSON file
// so data survives restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile // key: user_id
	locks    *keyedMutex

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{}
	loopDone     chan struct{}
	debounce     time.Duration
}

// NewMemoryStore creates a memory store. If snapshotPath is non-empty the
// store loads it on start and writes it back after changes.
func NewMemoryStore(snapshotPath string) *MemoryStore {
	m := &MemoryStore{
		profiles: make(map[string]*models.Profile),
		locks:    newKeyedMutex(),
		saveCh:   make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
		debounce: 500 * time.Millisecond,
	}

	if snapshotPath != "" {
		if err := os.MkdirAll(filepath.Dir(snapshotPath), 0o755); err != nil {
			log.Warn().Err(err).Str("path", snapshotPath).Msg("Cannot create profile dir, persistence disabled")
		} else {
			m.snapshotPath = snapshotPath
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	} else {
		close(m.loopDone)
	}

	log.Info().
		Str("snapshot", m.snapshotPath).
		Int("profiles", len(m.profiles)).
		Msg("Memory profile store configured")
	return m
}

// requestSave signals the background goroutine to persist data.
// Rapid writes coalesce into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
	}
}

func (m *MemoryStore) saveLoop() {
	defer close(m.loopDone)
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			select {
			case <-time.After(m.debounce):
			case <-m.doneCh:
				return
			}
			m.saveSnapshot()
		}
	}
}

func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	data, err := json.MarshalIndent(snapshot{Profiles: m.profiles}, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal profile snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Failed to write profile snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to rename profile snapshot")
		return
	}
	log.Debug().Str("path", m.snapshotPath).Msg("Profile snapshot saved")
}

func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("No profile snapshot found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Failed to read profile snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to parse profile snapshot, starting fresh")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.Profiles != nil {
		m.profiles = snap.Profiles
	}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, notFound(userID)
	}
	return cloneProfile(p), nil
}

func (m *MemoryStore) List(_ context.Context) ([]models.ProfileSummary, error) {
	m.mu.RLock()
	out := make([]models.ProfileSummary, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, models.ProfileSummary{UserID: p.UserID, Name: p.Name, UpdatedAt: p.UpdatedAt})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, p *models.Profile) (*models.Profile, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	unlock := m.locks.Lock(p.UserID)
	defer unlock()

	now := time.Now().UTC()
	cp := cloneProfile(p)
	cp.UpdatedAt = now

	m.mu.Lock()
	if existing, ok := m.profiles[p.UserID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	m.profiles[p.UserID] = cp
	m.mu.Unlock()

	m.requestSave()
	log.Debug().Str("user_id", p.UserID).Msg("Profile saved")

	return cloneProfile(cp), nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	unlock := m.locks.Lock(userID)
	defer unlock()

	m.mu.Lock()
	_, ok := m.profiles[userID]
	delete(m.profiles, userID)
	m.mu.Unlock()
	if !ok {
		return notFound(userID)
	}

	m.requestSave()
	log.Debug().Str("user_id", userID).Msg("Profile deleted")
	return nil
}

// Close stops the save loop and flushes a final snapshot.
func (m *MemoryStore) Close() error {
	select {
	case <-m.doneCh:
		return nil
	default:
		close(m.doneCh)
	}
	<-m.loopDone

	if m.snapshotPath != "" {
		m.saveSnapshot()
	}
	log.Info().Msg("Memory profile store closed")
	return nil
}

// cloneProfile deep-copies p so callers never share section pointers with
// the map.
func cloneProfile(p *models.Profile) *models.Profile {
	cp := *p
	if b, err := json.Marshal(p.Data); err == nil {
		var d models.ProfileData
		if json.Unmarshal(b, &d) == nil {
			cp.Data = d
		}
	}
	return &cp
}
