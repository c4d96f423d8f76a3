// Package server is the composition root of the advisor desk. It builds
// every component from configuration and exposes the assembled HTTP
// handler along with the services the CLI drives directly.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/advisor-desk/internal/api"
	"github.com/agentoven/advisor-desk/internal/api/handlers"
	"github.com/agentoven/advisor-desk/internal/backend"
	"github.com/agentoven/advisor-desk/internal/catalog"
	"github.com/agentoven/advisor-desk/internal/chat"
	"github.com/agentoven/advisor-desk/internal/config"
	"github.com/agentoven/advisor-desk/internal/profile"
	"github.com/agentoven/advisor-desk/internal/reply"
	"github.com/agentoven/advisor-desk/internal/sessions"
	"github.com/agentoven/advisor-desk/internal/telemetry"
)

// Server is the fully-wired advisor desk.
type Server struct {
	// Handler is the HTTP router, ready to pass to http.Server.
	Handler http.Handler

	Chat     *chat.Service
	Catalog  *catalog.Catalog
	Profiles profile.Store
	Backend  *backend.Client

	Config *config.Config
	Port   int

	// ShutdownFunc stops background loops, closes the profile store and
	// flushes traces.
	ShutdownFunc func(context.Context) error
}

// New builds a Server from environment configuration.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig builds a Server from cfg. Background loops (catalog refresh,
// session janitor) run until ShutdownFunc is called.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	profiles, err := OpenProfiles(ctx, cfg.Profiles)
	if err != nil {
		shutdownTelemetry(ctx)
		return nil, err
	}

	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	log.Info().
		Str("url", client.BaseURL()).
		Dur("timeout", cfg.Backend.Timeout).
		Msg("Backend client configured")

	bgCtx, cancel := context.WithCancel(context.Background())

	cat := catalog.New(client)
	cat.Start(bgCtx, cfg.Backend.CatalogRefresh)

	store := sessions.NewMemoryStore()
	janitor := sessions.NewJanitor(store, cfg.Sessions.IdleTTL)
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		janitor.Start(bgCtx)
	}()

	maxHistory := cfg.Chat.MaxHistory
	if maxHistory == 0 {
		maxHistory = chat.NoHistory
	}
	svc := chat.NewService(chat.Options{
		Sessions:   store,
		Catalog:    cat,
		Runner:     client,
		Replies:    reply.NewHandler(client.BaseURL()),
		Profiles:   profiles,
		MaxHistory: maxHistory,
	})

	router := api.NewRouter(cfg, handlers.New(svc, cat, profiles))

	shutdown := func(ctx context.Context) error {
		cancel()
		cat.Stop()
		<-janitorDone
		return errors.Join(
			profiles.Close(),
			shutdownTelemetry(ctx),
		)
	}

	log.Info().
		Int("agents", len(cat.Agents())).
		Int("teams", len(cat.Teams())).
		Int("max_history", cfg.Chat.MaxHistory).
		Msg("Advisor desk assembled")

	return &Server{
		Handler:      router,
		Chat:         svc,
		Catalog:      cat,
		Profiles:     profiles,
		Backend:      client,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// OpenProfiles opens the configured profile store.
func OpenProfiles(ctx context.Context, cfg config.ProfileConfig) (profile.Store, error) {
	switch cfg.Backend {
	case "postgres":
		s, err := profile.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("open profile store: %w", err)
		}
		return s, nil
	case "memory":
		return profile.NewMemoryStore(filepath.Join(cfg.DataDir, "profiles.json")), nil
	case "sqlite", "":
		s, err := profile.NewSQLiteStore(filepath.Join(cfg.DataDir, "users.db"))
		if err != nil {
			return nil, fmt.Errorf("open profile store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown profile backend %q", cfg.Backend)
	}
}

// ConfigureLogging sets the global zerolog logger to a console writer at
// the given level. Unknown levels fall back to info.
func ConfigureLogging(w io.Writer, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
