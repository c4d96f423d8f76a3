package router_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentoven/advisor-desk/internal/router"
	"github.com/agentoven/advisor-desk/pkg/models"
)

// mapCatalog is a test Lookup.
type mapCatalog map[string]models.Responder

func (c mapCatalog) Lookup(id string) (models.Responder, bool) {
	r, ok := c[id]
	return r, ok
}

func newCatalog(rs ...models.Responder) mapCatalog {
	c := mapCatalog{}
	for _, r := range rs {
		c[r.ID] = r
	}
	return c
}

var (
	budgetBot = models.Responder{ID: "budget-bot", Name: "Budget Bot", Kind: models.KindAgent}
	taxHelper = models.Responder{ID: "tax-helper", Name: "Tax Helper", Kind: models.KindAgent}
	taxTeam   = models.Responder{ID: "tax-team", Name: "Tax Team", Kind: models.KindTeam}
)

func TestParseMention(t *testing.T) {
	tests := []struct {
		in    string
		token string
		rest  string
		ok    bool
	}{
		{"@tax-helper What is 80C?", "tax-helper", "What is 80C?", true},
		{"  @budget_bot   hi  ", "budget_bot", "hi", true},
		{"@solo", "solo", "", true},
		{"@bot line one\nline two", "bot", "line one\nline two", true},
		{"@ hello", "", "", false},
		{"hello @bot", "", "", false},
	}
	for _, tt := range tests {
		token, rest, ok := router.ParseMention(tt.in)
		assert.Equal(t, tt.ok, ok, "ParseMention(%q) ok", tt.in)
		assert.Equal(t, tt.token, token, "ParseMention(%q) token", tt.in)
		assert.Equal(t, tt.rest, rest, "ParseMention(%q) rest", tt.in)
	}
}

func TestRoute_PinnedSendsVerbatim(t *testing.T) {
	pinned := &models.ResponderRef{ID: "budget-bot", Kind: models.KindAgent}
	cat := newCatalog(budgetBot, taxHelper)

	d := router.Route("@foo bar", pinned, cat)

	assert.Equal(t, router.ActionSend, d.Action)
	assert.Equal(t, *pinned, d.Target)
	assert.Equal(t, "@foo bar", d.Message)
	assert.False(t, d.Mentioned)
}

func TestRoute_ResolvedMention(t *testing.T) {
	d := router.Route("@tax-helper What is 80C?", nil, newCatalog(budgetBot, taxHelper))

	assert.Equal(t, router.ActionSend, d.Action)
	assert.Equal(t, models.ResponderRef{ID: "tax-helper", Kind: models.KindAgent}, d.Target)
	assert.Equal(t, "What is 80C?", d.Message)
	assert.True(t, d.Mentioned)
}

func TestRoute_MentionResolvesTeamKind(t *testing.T) {
	d := router.Route("@tax-team file my return", nil, newCatalog(taxTeam))
	assert.Equal(t, models.KindTeam, d.Target.Kind)
}

func TestRoute_UnknownMentionSearches(t *testing.T) {
	d := router.Route("@unknown-xyz hello", nil, newCatalog(budgetBot))

	assert.Equal(t, router.ActionSearch, d.Action)
	assert.Equal(t, "unknown-xyz", d.Query)
	assert.Empty(t, d.Message)
}

func TestRoute_BareMentionSearches(t *testing.T) {
	d := router.Route("@budget-bot", nil, newCatalog(budgetBot))

	assert.Equal(t, router.ActionSearch, d.Action)
	assert.Equal(t, "budget-bot", d.Query)
}

func TestRoute_MalformedMentionSearchesRemainder(t *testing.T) {
	d := router.Route("@ tax", nil, newCatalog(taxHelper))

	assert.Equal(t, router.ActionSearch, d.Action)
	assert.Equal(t, "tax", d.Query)
}

func TestRoute_PlainTextHint(t *testing.T) {
	d := router.Route("how do I save?", nil, newCatalog(budgetBot))
	assert.Equal(t, router.ActionHint, d.Action)
}

func TestRoute_BlankIgnored(t *testing.T) {
	pinned := &models.ResponderRef{ID: "budget-bot", Kind: models.KindAgent}
	assert.Equal(t, router.ActionIgnore, router.Route("   ", pinned, newCatalog()).Action)
	assert.Equal(t, router.ActionIgnore, router.Route("", nil, newCatalog()).Action)
}

func TestSearch_TeamsFirstWithCaps(t *testing.T) {
	var agents, teams []models.Responder
	for i := 0; i < 8; i++ {
		agents = append(agents, models.Responder{ID: fmt.Sprintf("tax-agent-%d", i), Name: "Agent", Kind: models.KindAgent})
		teams = append(teams, models.Responder{ID: fmt.Sprintf("team-%d", i), Name: "TAX crew", Kind: models.KindTeam})
	}
	agents = append(agents, models.Responder{ID: "budget-bot", Name: "Budget Bot", Kind: models.KindAgent})

	res := router.Search("Tax", agents, teams)

	assert.Len(t, res.Teams, router.MaxTeamResults)
	assert.Len(t, res.Agents, router.MaxAgentResults)
	assert.Equal(t, "team-0", res.All()[0].ID)
	assert.Equal(t, "tax-agent-0", res.All()[router.MaxTeamResults].ID)
	for _, a := range res.Agents {
		assert.NotEqual(t, "budget-bot", a.ID)
	}
}

func TestSearch_MatchesNameCaseInsensitive(t *testing.T) {
	res := router.Search("bUdGeT b", []models.Responder{budgetBot, taxHelper}, nil)
	assert.Equal(t, []models.Responder{budgetBot}, res.Agents)
	assert.Empty(t, res.Teams)
}

func TestSearch_EmptyQuery(t *testing.T) {
	res := router.Search("  ", []models.Responder{budgetBot}, []models.Responder{taxTeam})
	assert.True(t, res.Empty())
}
