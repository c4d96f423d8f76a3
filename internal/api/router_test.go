package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/advisor-desk/internal/api"
	"github.com/agentoven/advisor-desk/internal/api/handlers"
	"github.com/agentoven/advisor-desk/internal/backend"
	"github.com/agentoven/advisor-desk/internal/catalog"
	"github.com/agentoven/advisor-desk/internal/chat"
	"github.com/agentoven/advisor-desk/internal/config"
	"github.com/agentoven/advisor-desk/internal/profile"
	"github.com/agentoven/advisor-desk/internal/reply"
	"github.com/agentoven/advisor-desk/internal/sessions"
	"github.com/agentoven/advisor-desk/pkg/models"
)

// fakeBackend serves the agent service endpoints the desk calls.
func fakeBackend(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":"budget-bot","name":"Budget Bot","description":"Plans budgets"}]`)
	})
	mux.HandleFunc("/teams", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":"tax-team","name":"Tax Team"}]`)
	})
	mux.HandleFunc("/agents/budget-bot/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": "echo: " + r.PostForm.Get("message"),
			"metrics": map[string]int{"total_tokens": 7},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, keys ...string) http.Handler {
	t.Helper()
	be := fakeBackend(t)

	cfg := config.Defaults()
	cfg.Backend.URL = be.URL
	cfg.Auth.APIKeys = keys

	client := backend.NewClient(be.URL, 0)
	cat := catalog.New(client)
	profiles := profile.NewMemoryStore("")
	t.Cleanup(func() { profiles.Close() })

	svc := chat.NewService(chat.Options{
		Sessions:   sessions.NewMemoryStore(),
		Catalog:    cat,
		Runner:     client,
		Replies:    reply.NewHandler(client.BaseURL()),
		Profiles:   profiles,
		MaxHistory: cfg.Chat.MaxHistory,
	})
	return api.NewRouter(cfg, handlers.New(svc, cat, profiles))
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthAndVersion(t *testing.T) {
	h := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = do(t, h, http.MethodGet, "/version", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "advisor-desk")
}

func TestCatalogEndpoints(t *testing.T) {
	h := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cat struct {
		Agents []models.Responder `json:"agents"`
		Teams  []models.Responder `json:"teams"`
	}
	decodeBody(t, w, &cat)
	require.Len(t, cat.Agents, 1)
	assert.Equal(t, models.KindAgent, cat.Agents[0].Kind)
	assert.Contains(t, string(cat.Agents[0].Extra["description"]), "Plans budgets")
	require.Len(t, cat.Teams, 1)

	w = do(t, h, http.MethodGet, "/api/v1/catalog/search?q=tax", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tax-team")

	w = do(t, h, http.MethodPost, "/api/v1/catalog/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatFlow(t *testing.T) {
	h := newTestRouter(t)

	w := do(t, h, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var sess sessions.Session
	decodeBody(t, w, &sess)
	base := "/api/v1/sessions/" + sess.Handle

	w = do(t, h, http.MethodPost, base+"/messages", map[string]string{"input": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var out chat.Outcome
	decodeBody(t, w, &out)
	assert.Equal(t, chat.OutcomeHint, out.Kind)

	w = do(t, h, http.MethodPost, base+"/messages", map[string]string{"input": "@budget-bot How much should I save?"})
	require.Equal(t, http.StatusOK, w.Code)
	out = chat.Outcome{}
	decodeBody(t, w, &out)
	require.Equal(t, chat.OutcomeSent, out.Kind)
	assert.Equal(t, reply.ClassSuccess, out.Class)
	assert.Equal(t, "echo: CURRENT USER QUERY: How much should I save?", out.Reply.Content)
	assert.Equal(t, 7, out.Reply.TokenCount)

	w = do(t, h, http.MethodPost, base+"/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cleared sessions.Session
	decodeBody(t, w, &cleared)
	assert.Empty(t, cleared.Transcript)
	assert.NotEqual(t, out.Session.SessionID, cleared.SessionID)

	w = do(t, h, http.MethodPut, base+"/responder", map[string]string{"id": "tax-team"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPut, base+"/responder", map[string]string{"id": "nobody"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, base+"/home", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var home sessions.Session
	decodeBody(t, w, &home)
	assert.Nil(t, home.Selected)

	w = do(t, h, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileEndpoints(t *testing.T) {
	h := newTestRouter(t)

	age := 34
	body := models.Profile{
		Name: "Asha",
		Data: models.ProfileData{Personal: &models.PersonalInfo{Age: &age, City: "Pune"}},
	}
	w := do(t, h, http.MethodPut, "/api/v1/profiles/asha", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.ProfileSummary
	decodeBody(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "asha", list[0].UserID)

	w = do(t, h, http.MethodGet, "/api/v1/profiles/asha/prompt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var prompt map[string]string
	decodeBody(t, w, &prompt)
	assert.Contains(t, prompt["prompt"], "- City: Pune")

	// Attach to a session and check the outbound message carries it.
	w = do(t, h, http.MethodPost, "/api/v1/sessions", nil)
	var sess sessions.Session
	decodeBody(t, w, &sess)
	base := "/api/v1/sessions/" + sess.Handle

	w = do(t, h, http.MethodPut, base+"/profile", map[string]string{"user_id": "asha"})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, http.MethodPost, base+"/messages", map[string]string{"input": "@budget-bot hi"})
	require.Equal(t, http.StatusOK, w.Code)
	var out chat.Outcome
	decodeBody(t, w, &out)
	assert.Contains(t, out.Reply.Content, "USER PROFILE:")

	w = do(t, h, http.MethodPut, base+"/profile", map[string]string{"user_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodDelete, "/api/v1/profiles/asha", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodGet, "/api/v1/profiles/asha", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadBody(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profiles/asha", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIKeyRequired(t *testing.T) {
	h := newTestRouter(t, "secret")

	w := do(t, h, http.MethodGet, "/api/v1/profiles", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
}
