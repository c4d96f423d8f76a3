// Package catalog keeps a process-wide, read-mostly copy of the backend's
// agent and team lists.
//
// Lists are fetched concurrently and refreshed in the background. A failed
// fetch never empties the catalog: the previous list for that kind is kept,
// so a flaky backend degrades to stale data instead of an empty library.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/agentoven/advisor-desk/internal/router"
	"github.com/agentoven/advisor-desk/pkg/models"
)

// Source lists responders. *backend.Client satisfies it.
type Source interface {
	ListAgents(ctx context.Context) ([]models.Responder, error)
	ListTeams(ctx context.Context) ([]models.Responder, error)
}

// Catalog is a thread-safe, auto-refreshing responder list.
type Catalog struct {
	src Source

	mu        sync.RWMutex
	agents    []models.Responder
	teams     []models.Responder
	byID      map[string]models.Responder // agents shadow teams on id clash
	loaded    bool
	refreshed time.Time

	flight singleflight.Group

	runMu   sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// New creates an empty catalog backed by src. Call Refresh or Start to load it.
func New(src Source) *Catalog {
	return &Catalog{
		src:  src,
		byID: make(map[string]models.Responder),
	}
}

// Start runs an immediate refresh and then refreshes every interval until
// Stop is called or ctx is cancelled. A non-positive interval only performs
// the initial refresh.
func (c *Catalog) Start(ctx context.Context, interval time.Duration) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.running {
		return
	}

	if err := c.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Catalog: initial refresh incomplete")
	}
	if interval <= 0 {
		return
	}

	c.running = true
	c.stopCh = make(chan struct{})
	c.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					log.Warn().Err(err).Msg("Catalog: refresh failed, keeping cached lists")
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}(c.stopCh)

	log.Info().Dur("refresh_interval", interval).Msg("Catalog refresh loop started")
}

// Stop halts the background refresh and waits for it to exit.
func (c *Catalog) Stop() {
	c.runMu.Lock()
	if c.running {
		close(c.stopCh)
		c.running = false
	}
	c.runMu.Unlock()
	c.wg.Wait()
}

// Refresh re-fetches agents and teams. Concurrent callers share one fetch.
// The returned error joins the per-kind failures; kinds that succeeded are
// still applied.
func (c *Catalog) Refresh(ctx context.Context) error {
	_, err, _ := c.flight.Do("refresh", func() (interface{}, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

func (c *Catalog) refresh(ctx context.Context) error {
	var (
		agents, teams     []models.Responder
		agentErr, teamErr error
		g                 errgroup.Group
	)
	// Errors stay per kind rather than going through the group: Wait would
	// report only the first, and one kind is applied even if the other fails.
	g.Go(func() error {
		agents, agentErr = c.src.ListAgents(ctx)
		return nil
	})
	g.Go(func() error {
		teams, teamErr = c.src.ListTeams(ctx)
		return nil
	})
	_ = g.Wait()

	c.mu.Lock()
	if agentErr == nil {
		c.agents = agents
	}
	if teamErr == nil {
		c.teams = teams
	}
	if agentErr == nil || teamErr == nil {
		c.loaded = true
		c.refreshed = time.Now().UTC()
	}
	c.reindexLocked()
	nAgents, nTeams := len(c.agents), len(c.teams)
	c.mu.Unlock()

	var errs []error
	if agentErr != nil {
		errs = append(errs, fmt.Errorf("list agents: %w", agentErr))
	}
	if teamErr != nil {
		errs = append(errs, fmt.Errorf("list teams: %w", teamErr))
	}

	log.Debug().
		Int("agents", nAgents).
		Int("teams", nTeams).
		Int("errors", len(errs)).
		Msg("Catalog refreshed")

	return errors.Join(errs...)
}

func (c *Catalog) reindexLocked() {
	byID := make(map[string]models.Responder, len(c.agents)+len(c.teams))
	for _, t := range c.teams {
		t.Kind = models.KindTeam
		byID[t.ID] = t
	}
	for _, a := range c.agents {
		a.Kind = models.KindAgent
		byID[a.ID] = a
	}
	c.byID = byID
}

// EnsureLoaded refreshes only if no list has ever been fetched successfully.
func (c *Catalog) EnsureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.Refresh(ctx)
}

// Lookup resolves an id, checking agents before teams.
func (c *Catalog) Lookup(id string) (models.Responder, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byID[id]
	return r, ok
}

// Search matches query against cached ids and names.
func (c *Catalog) Search(query string) router.Results {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return router.Search(query, c.agents, c.teams)
}

// Agents returns a copy of the cached agent list.
func (c *Catalog) Agents() []models.Responder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Responder(nil), c.agents...)
}

// Teams returns a copy of the cached team list.
func (c *Catalog) Teams() []models.Responder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Responder(nil), c.teams...)
}

// RefreshedAt is the time of the last successful fetch, zero if none.
func (c *Catalog) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshed
}
