// Package sessions holds per-tab conversation state and the in-memory store
// that owns it.
package sessions

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentoven/advisor-desk/pkg/models"
)

// Session is the conversation state of one browser tab or CLI window.
//
// A Session is not safe for concurrent use. Callers obtain it through
// MemoryStore.Lock, which serializes turns on the same handle.
type Session struct {
	// Handle is the stable key the presentation layer uses for this tab.
	Handle string `json:"handle"`
	// SessionID is sent to the backend and rotates on every reset.
	SessionID string `json:"session_id"`
	// UserID is sent to the backend and never changes for this handle.
	UserID string `json:"user_id"`
	// ActiveProfileID is the profile store key prepended to outbound
	// messages. Empty means none.
	ActiveProfileID string `json:"active_profile_id,omitempty"`

	Selected *models.ResponderRef `json:"selected,omitempty"`
	// OpenedWith is the responder the current transcript belongs to.
	OpenedWith  string           `json:"opened_with,omitempty"`
	ChatStarted bool             `json:"chat_started"`
	Transcript  []models.Message `json:"transcript"`

	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// New creates a session with a fresh session id and user id.
func New(handle string) *Session {
	now := time.Now().UTC()
	return &Session{
		Handle:     handle,
		SessionID:  uuid.NewString(),
		UserID:     uuid.NewString(),
		Transcript: []models.Message{},
		CreatedAt:  now,
		LastActive: now,
	}
}

// Reset starts a fresh conversation: the transcript is emptied and a new
// session id is issued. The selected responder is kept.
func (s *Session) Reset() {
	s.Transcript = []models.Message{}
	s.SessionID = uuid.NewString()
	s.ChatStarted = false
}

// Select pins a responder. Switching to a responder other than the one the
// transcript was opened with resets the session first, so history never
// crosses responders. It reports whether a reset happened.
func (s *Session) Select(ref models.ResponderRef) bool {
	reset := false
	if s.OpenedWith != ref.ID {
		s.Reset()
		s.OpenedWith = ref.ID
		reset = true
	}
	s.Selected = &ref
	return reset
}

// Deselect unpins the responder without touching the transcript. Picking
// a different responder afterwards still resets.
func (s *Session) Deselect() {
	s.Selected = nil
}

// Home resets and unpins, returning the tab to its initial state.
// UserID and ActiveProfileID survive.
func (s *Session) Home() {
	s.Reset()
	s.Selected = nil
	s.OpenedWith = ""
}

// Append adds a message to the transcript.
func (s *Session) Append(role models.Role, content string, tokens int) models.Message {
	m := models.NewMessage(role, content, tokens)
	s.Transcript = append(s.Transcript, m)
	return m
}

// Touch records activity for idle eviction.
func (s *Session) Touch() {
	s.LastActive = time.Now().UTC()
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *Session) Clone() *Session {
	c := *s
	c.Transcript = make([]models.Message, len(s.Transcript))
	copy(c.Transcript, s.Transcript)
	if s.Selected != nil {
		sel := *s.Selected
		c.Selected = &sel
	}
	return &c
}
