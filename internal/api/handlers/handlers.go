// Package handlers implements the HTTP handlers for the advisor desk API.
// Handlers return plain data; rendering is left to the client.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/advisor-desk/internal/catalog"
	"github.com/agentoven/advisor-desk/internal/chat"
	"github.com/agentoven/advisor-desk/internal/profile"
	"github.com/agentoven/advisor-desk/internal/sessions"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Chat     *chat.Service
	Catalog  *catalog.Catalog
	Profiles profile.Store
}

// New creates a Handlers instance.
func New(svc *chat.Service, cat *catalog.Catalog, profiles profile.Store) *Handlers {
	return &Handlers{
		Chat:     svc,
		Catalog:  cat,
		Profiles: profiles,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps domain errors to status codes.
func respondErr(w http.ResponseWriter, err error) {
	var (
		sessNF  *sessions.ErrNotFound
		profNF  *profile.ErrNotFound
		unknown *chat.ErrUnknownResponder
	)
	switch {
	case errors.As(err, &sessNF), errors.As(err, &profNF), errors.As(err, &unknown):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, profile.ErrInvalidProfile):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
