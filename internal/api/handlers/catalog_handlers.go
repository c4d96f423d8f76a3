package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/advisor-desk/pkg/models"
)

type catalogResponse struct {
	Agents      []models.Responder `json:"agents"`
	Teams       []models.Responder `json:"teams"`
	RefreshedAt *time.Time         `json:"refreshed_at,omitempty"`
}

func (h *Handlers) catalogSnapshot() catalogResponse {
	resp := catalogResponse{Agents: h.Catalog.Agents(), Teams: h.Catalog.Teams()}
	if resp.Agents == nil {
		resp.Agents = []models.Responder{}
	}
	if resp.Teams == nil {
		resp.Teams = []models.Responder{}
	}
	if t := h.Catalog.RefreshedAt(); !t.IsZero() {
		resp.RefreshedAt = &t
	}
	return resp
}

// ListCatalog returns the cached agents and teams, loading them on first use.
func (h *Handlers) ListCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.EnsureLoaded(r.Context()); err != nil {
		log.Warn().Err(err).Msg("Catalog load failed, serving cached lists")
	}
	respondJSON(w, http.StatusOK, h.catalogSnapshot())
}

// RefreshCatalog re-fetches both lists from the backend.
func (h *Handlers) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Refresh(r.Context()); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.catalogSnapshot())
}

// SearchCatalog matches ?q= against ids and names.
func (h *Handlers) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.EnsureLoaded(r.Context()); err != nil {
		log.Warn().Err(err).Msg("Catalog load failed, searching cached lists")
	}
	respondJSON(w, http.StatusOK, h.Catalog.Search(r.URL.Query().Get("q")))
}
