package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/advisor-desk/internal/backend"
	"github.com/agentoven/advisor-desk/pkg/models"
)

func TestListAgentsAndTeams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/agents":
			w.Write([]byte(`[{"id":"budget-bot","name":"Budget Bot","model":{"id":"gpt"}}]`))
		case "/teams":
			w.Write([]byte(`[{"id":"tax-team","name":"Tax Team","members":[{"id":"a"}]}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := backend.NewClient(srv.URL+"/", 0)
	ctx := context.Background()

	agents, err := c.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "budget-bot", agents[0].ID)
	assert.Equal(t, models.KindAgent, agents[0].Kind)
	assert.JSONEq(t, `{"id":"gpt"}`, string(agents[0].Extra["model"]))

	teams, err := c.ListTeams(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, models.KindTeam, teams[0].Kind)
	assert.Contains(t, teams[0].Extra, "members")
}

func TestRun_PostsFormAndDecodes(t *testing.T) {
	var gotPath string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"message":    r.PostForm.Get("message"),
			"stream":     r.PostForm.Get("stream"),
			"session_id": r.PostForm.Get("session_id"),
			"user_id":    r.PostForm.Get("user_id"),
		}
		w.Write([]byte(`{"content":"Save 20%","metrics":{"total_tokens":42,"input_tokens":30}}`))
	}))
	defer srv.Close()

	c := backend.NewClient(srv.URL, 0)
	res, err := c.Run(context.Background(),
		models.ResponderRef{ID: "tax-team", Kind: models.KindTeam},
		models.RunRequest{Message: "CURRENT USER QUERY: hi", SessionID: "s1", UserID: "u1"},
	)
	require.NoError(t, err)

	assert.Equal(t, "/teams/tax-team/runs", gotPath)
	assert.Equal(t, map[string]string{
		"message":    "CURRENT USER QUERY: hi",
		"stream":     "false",
		"session_id": "s1",
		"user_id":    "u1",
	}, gotForm)
	require.NotNil(t, res.Content)
	assert.Equal(t, "Save 20%", *res.Content)
	assert.Equal(t, 42, res.Metrics.TotalTokens)
}

func TestRun_MissingContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	res, err := backend.NewClient(srv.URL, 0).Run(context.Background(),
		models.ResponderRef{ID: "a", Kind: models.KindAgent}, models.RunRequest{})
	require.NoError(t, err)
	assert.Nil(t, res.Content)
	assert.Nil(t, res.Metrics)
}

func TestRun_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := backend.NewClient(srv.URL, 0).Run(context.Background(),
		models.ResponderRef{ID: "a", Kind: models.KindAgent}, models.RunRequest{})
	require.Error(t, err)

	var serr *backend.StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusInternalServerError, serr.Code)
	assert.Contains(t, serr.Error(), "agent exploded")
}
