package sessions

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultIdleTTL is how long an untouched session survives.
const DefaultIdleTTL = 2 * time.Hour

// Janitor periodically evicts sessions that have been idle longer than ttl.
// It bounds memory held by abandoned tabs; a live transcript is never trimmed.
type Janitor struct {
	store    *MemoryStore
	ttl      time.Duration
	interval time.Duration
}

// NewJanitor creates a janitor for store. The sweep interval is a quarter of
// the TTL, clamped to [1s, 10m].
func NewJanitor(store *MemoryStore, ttl time.Duration) *Janitor {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}
	return &Janitor{store: store, ttl: ttl, interval: interval}
}

// WithInterval overrides the sweep interval.
func (j *Janitor) WithInterval(d time.Duration) *Janitor {
	if d > 0 {
		j.interval = d
	}
	return j
}

// Start runs the sweep loop. It blocks until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Dur("ttl", j.ttl).
		Dur("interval", j.interval).
		Msg("Session janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session janitor stopped")
			return
		case <-ticker.C:
			j.RunCycle()
		}
	}
}

// RunCycle performs one sweep and returns the number of evicted sessions.
func (j *Janitor) RunCycle() int {
	start := time.Now()
	n := j.store.EvictIdle(start.UTC().Add(-j.ttl))
	if n > 0 {
		log.Info().
			Int("evicted", n).
			Int("remaining", j.store.Len()).
			Dur("duration", time.Since(start)).
			Msg("Session janitor: idle sessions evicted")
	}
	return n
}
