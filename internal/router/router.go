// Package router resolves a line of chat input to a responder.
//
// Input is routed in this order:
//
//	pinned responder  → send the whole input verbatim
//	"@id message"     → send message to id (caller pins id)
//	"@anything-else"  → catalog search, nothing is sent
//	plain text        → hint, nothing is sent
package router

import (
	"regexp"
	"strings"

	"github.com/agentoven/advisor-desk/pkg/models"
)

// Search result caps: teams are listed first.
const (
	MaxTeamResults  = 3
	MaxAgentResults = 5
)

// HintText is shown when input has neither a pinned responder nor a mention.
const HintText = "Type @agent-id to search or select from the Library."

// mentionPattern matches "@token rest". The token is word characters and
// hyphens; the rest may span lines.
var mentionPattern = regexp.MustCompile(`(?s)^@([\w-]+)\s*(.*)$`)

// Action is what the chat layer should do with the input.
type Action string

const (
	ActionSend   Action = "send"
	ActionSearch Action = "search"
	ActionHint   Action = "hint"
	ActionIgnore Action = "ignore"
)

// Decision is the result of routing one input event.
type Decision struct {
	Action  Action
	Target  models.ResponderRef
	Message string
	Query   string
	// Mentioned is set when Target came from an @mention rather than the
	// pinned responder. The caller pins it before sending.
	Mentioned bool
}

// Lookup resolves a catalog id.
type Lookup interface {
	Lookup(id string) (models.Responder, bool)
}

// ParseMention splits "@token rest" into its parts. ok is false when the
// input is not a well-formed mention.
func ParseMention(input string) (token, rest string, ok bool) {
	m := mentionPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// Route decides what to do with input given the pinned responder (nil if
// none) and the catalog.
func Route(input string, pinned *models.ResponderRef, cat Lookup) Decision {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Decision{Action: ActionIgnore}
	}

	if pinned != nil {
		return Decision{Action: ActionSend, Target: *pinned, Message: input}
	}

	if !strings.HasPrefix(trimmed, "@") {
		return Decision{Action: ActionHint}
	}

	token, rest, ok := ParseMention(trimmed)
	if ok && rest != "" {
		if r, found := cat.Lookup(token); found {
			return Decision{
				Action:    ActionSend,
				Target:    r.Ref(),
				Message:   rest,
				Mentioned: true,
			}
		}
		return Decision{Action: ActionSearch, Query: token}
	}

	// Bare mention, or something after "@" that is not a valid token.
	return Decision{Action: ActionSearch, Query: strings.TrimSpace(trimmed[1:])}
}

// Results are catalog matches for a search query.
type Results struct {
	Query  string             `json:"query"`
	Teams  []models.Responder `json:"teams"`
	Agents []models.Responder `json:"agents"`
}

// Empty reports whether nothing matched.
func (r Results) Empty() bool {
	return len(r.Teams) == 0 && len(r.Agents) == 0
}

// All returns teams then agents, the order they are presented in.
func (r Results) All() []models.Responder {
	out := make([]models.Responder, 0, len(r.Teams)+len(r.Agents))
	out = append(out, r.Teams...)
	return append(out, r.Agents...)
}

// Search matches query case-insensitively as a substring of id or name.
// An empty query matches nothing.
func Search(query string, agents, teams []models.Responder) Results {
	res := Results{Query: query, Teams: []models.Responder{}, Agents: []models.Responder{}}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return res
	}
	res.Teams = match(q, teams, MaxTeamResults)
	res.Agents = match(q, agents, MaxAgentResults)
	return res
}

func match(q string, items []models.Responder, limit int) []models.Responder {
	out := []models.Responder{}
	for _, it := range items {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(it.ID), q) || strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, it)
		}
	}
	return out
}
