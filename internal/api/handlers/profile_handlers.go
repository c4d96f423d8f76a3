package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/advisor-desk/internal/profile"
	"github.com/agentoven/advisor-desk/pkg/models"
)

func (h *Handlers) ListProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.Profiles.List(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Profiles.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// PutProfile upserts the profile at the URL's user id. A user_id in the
// body is ignored.
func (h *Handlers) PutProfile(w http.ResponseWriter, r *http.Request) {
	var req models.Profile
	if !decode(w, r, &req) {
		return
	}
	req.UserID = chi.URLParam(r, "userID")

	saved, err := h.Profiles.Save(r.Context(), &req)
	if err != nil {
		respondErr(w, err)
		return
	}
	log.Info().Str("user_id", saved.UserID).Msg("Profile saved")
	respondJSON(w, http.StatusOK, saved)
}

func (h *Handlers) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.Profiles.Delete(r.Context(), userID); err != nil {
		respondErr(w, err)
		return
	}
	log.Info().Str("user_id", userID).Msg("Profile deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ProfilePrompt returns the prose block that is prepended to messages.
func (h *Handlers) ProfilePrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.Profiles.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"user_id": p.UserID,
		"prompt":  profile.FormatForPrompt(p),
	})
}
