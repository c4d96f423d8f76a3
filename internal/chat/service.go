// Package chat runs conversation turns: it routes input, keeps session
// state consistent, composes the outbound message and records the reply.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/advisor-desk/internal/composer"
	"github.com/agentoven/advisor-desk/internal/profile"
	"github.com/agentoven/advisor-desk/internal/reply"
	"github.com/agentoven/advisor-desk/internal/router"
	"github.com/agentoven/advisor-desk/internal/sessions"
	"github.com/agentoven/advisor-desk/pkg/models"
)

// Runner executes a run against a responder. *backend.Client satisfies it.
type Runner interface {
	Run(ctx context.Context, ref models.ResponderRef, in models.RunRequest) (*models.RunResult, error)
}

// Catalog resolves and searches responders. *catalog.Catalog satisfies it.
type Catalog interface {
	router.Lookup
	Search(query string) router.Results
	EnsureLoaded(ctx context.Context) error
}

// OutcomeKind says what a submitted input turned into.
type OutcomeKind string

const (
	OutcomeSent    OutcomeKind = "sent"
	OutcomeSearch  OutcomeKind = "search"
	OutcomeHint    OutcomeKind = "hint"
	OutcomeIgnored OutcomeKind = "ignored"
)

// Outcome is the result of one Submit.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	// Set for OutcomeSent.
	Responder *models.ResponderRef `json:"responder,omitempty"`
	Reset     bool                 `json:"reset,omitempty"`
	User      *models.Message      `json:"user,omitempty"`
	Reply     *models.Message      `json:"reply,omitempty"`
	Class     reply.Class          `json:"class,omitempty"`

	Search *router.Results `json:"search,omitempty"`
	Hint   string          `json:"hint,omitempty"`

	Session *sessions.Session `json:"session"`
}

// ErrUnknownResponder is returned when a chosen id is not in the catalog.
type ErrUnknownResponder struct {
	ID string
}

func (e *ErrUnknownResponder) Error() string {
	return "unknown agent or team: " + e.ID
}

// Options wires a Service.
type Options struct {
	Sessions   *sessions.MemoryStore
	Catalog    Catalog
	Runner     Runner
	Replies    *reply.Handler
	Profiles   profile.Store // optional
	// MaxHistory caps prior entries sent with a query. Zero means
	// composer.DefaultMaxHistory; NoHistory sends none.
	MaxHistory int
}

// NoHistory disables history in Options.MaxHistory.
const NoHistory = -1

// Service runs chat turns. All methods are safe for concurrent use; turns
// on the same session are serialized.
type Service struct {
	sessions   *sessions.MemoryStore
	catalog    Catalog
	runner     Runner
	replies    *reply.Handler
	profiles   profile.Store
	maxHistory int
}

// NewService creates a chat service.
func NewService(opts Options) *Service {
	if opts.Sessions == nil {
		opts.Sessions = sessions.NewMemoryStore()
	}
	if opts.Replies == nil {
		opts.Replies = reply.NewHandler("")
	}
	switch {
	case opts.MaxHistory == 0:
		opts.MaxHistory = composer.DefaultMaxHistory
	case opts.MaxHistory < 0:
		opts.MaxHistory = 0
	}
	return &Service{
		sessions:   opts.Sessions,
		catalog:    opts.Catalog,
		runner:     opts.Runner,
		replies:    opts.Replies,
		profiles:   opts.Profiles,
		maxHistory: opts.MaxHistory,
	}
}

// Sessions exposes the underlying session store.
func (s *Service) Sessions() *sessions.MemoryStore {
	return s.sessions
}

// NewSession opens a new tab.
func (s *Service) NewSession() *sessions.Session {
	return s.sessions.Create()
}

// Snapshot returns a copy of the session for presentation.
func (s *Service) Snapshot(handle string) (*sessions.Session, error) {
	return s.sessions.Get(handle)
}

// CloseSession discards a tab.
func (s *Service) CloseSession(handle string) error {
	return s.sessions.Delete(handle)
}

// Submit handles one line of user input.
func (s *Service) Submit(ctx context.Context, handle, input string) (*Outcome, error) {
	sess, unlock, err := s.sessions.Lock(handle)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if sess.Selected == nil && strings.HasPrefix(strings.TrimSpace(input), "@") {
		if err := s.catalog.EnsureLoaded(ctx); err != nil {
			log.Warn().Err(err).Msg("Catalog unavailable, routing against cached lists")
		}
	}

	d := router.Route(input, sess.Selected, s.catalog)
	switch d.Action {
	case router.ActionIgnore:
		return &Outcome{Kind: OutcomeIgnored, Session: sess.Clone()}, nil

	case router.ActionHint:
		return &Outcome{Kind: OutcomeHint, Hint: router.HintText, Session: sess.Clone()}, nil

	case router.ActionSearch:
		res := s.catalog.Search(d.Query)
		log.Debug().
			Str("handle", handle).
			Str("query", d.Query).
			Int("teams", len(res.Teams)).
			Int("agents", len(res.Agents)).
			Msg("Catalog search")
		return &Outcome{Kind: OutcomeSearch, Search: &res, Session: sess.Clone()}, nil
	}

	return s.send(ctx, sess, d), nil
}

// send runs one turn against d.Target. The session lock is held.
func (s *Service) send(ctx context.Context, sess *sessions.Session, d router.Decision) *Outcome {
	target := d.Target
	// Pinning the target (again) resets when the transcript belongs to
	// another responder, which also covers a pin picked before deselecting.
	reset := sess.Select(target)
	if reset {
		log.Info().
			Str("handle", sess.Handle).
			Str("responder", target.ID).
			Str("session_id", sess.SessionID).
			Msg("Session reset for new responder")
	}

	userMsg := sess.Append(models.RoleUser, d.Message, 0)
	composed := composer.Compose(sess.Transcript, d.Message, s.profileText(ctx, sess.ActiveProfileID), s.maxHistory)

	start := time.Now()
	res, err := s.runner.Run(ctx, target, models.RunRequest{
		Message:   composed,
		SessionID: sess.SessionID,
		UserID:    sess.UserID,
	})
	out := s.replies.Classify(res, err)
	replyMsg := sess.Append(models.RoleAssistant, out.Content, out.Tokens)
	sess.ChatStarted = true

	evt := log.Info()
	if out.Failed() {
		evt = log.Warn().Err(err)
	}
	evt.Str("handle", sess.Handle).
		Str("responder", target.ID).
		Str("kind", string(target.Kind)).
		Str("class", string(out.Class)).
		Int("tokens", out.Tokens).
		Dur("latency", time.Since(start)).
		Msg("Chat turn completed")

	return &Outcome{
		Kind:      OutcomeSent,
		Responder: &target,
		Reset:     reset,
		User:      &userMsg,
		Reply:     &replyMsg,
		Class:     out.Class,
		Session:   sess.Clone(),
	}
}

// profileText renders the active profile. Lookup failures are logged and
// the turn proceeds without a profile block.
func (s *Service) profileText(ctx context.Context, userID string) string {
	if userID == "" || s.profiles == nil {
		return ""
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("profile", userID).Msg("Active profile unavailable, sending without it")
		return ""
	}
	return profile.FormatForPrompt(p)
}

// Choose pins a responder picked from search results or the library.
func (s *Service) Choose(ctx context.Context, handle, id string) (*sessions.Session, error) {
	sess, unlock, err := s.sessions.Lock(handle)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.catalog.EnsureLoaded(ctx); err != nil {
		log.Warn().Err(err).Msg("Catalog unavailable, resolving against cached lists")
	}
	r, ok := s.catalog.Lookup(id)
	if !ok {
		return nil, &ErrUnknownResponder{ID: id}
	}
	if sess.Select(r.Ref()) {
		log.Info().Str("handle", handle).Str("responder", r.ID).Msg("Session reset for new responder")
	}
	return sess.Clone(), nil
}

// ClearSelection unpins the responder and keeps the transcript.
func (s *Service) ClearSelection(handle string) (*sessions.Session, error) {
	return s.mutate(handle, (*sessions.Session).Deselect)
}

// ClearChat starts a fresh conversation with the same responder.
func (s *Service) ClearChat(handle string) (*sessions.Session, error) {
	return s.mutate(handle, (*sessions.Session).Reset)
}

// GoHome resets and unpins.
func (s *Service) GoHome(handle string) (*sessions.Session, error) {
	return s.mutate(handle, (*sessions.Session).Home)
}

// SetActiveProfile chooses the profile prepended to outbound messages.
// An empty userID clears it.
func (s *Service) SetActiveProfile(ctx context.Context, handle, userID string) (*sessions.Session, error) {
	if userID != "" {
		if s.profiles == nil {
			return nil, fmt.Errorf("set active profile: profile store not configured")
		}
		if _, err := s.profiles.Get(ctx, userID); err != nil {
			return nil, err
		}
	}
	return s.mutate(handle, func(sess *sessions.Session) {
		sess.ActiveProfileID = userID
	})
}

func (s *Service) mutate(handle string, fn func(*sessions.Session)) (*sessions.Session, error) {
	sess, unlock, err := s.sessions.Lock(handle)
	if err != nil {
		return nil, err
	}
	defer unlock()
	fn(sess)
	return sess.Clone(), nil
}
