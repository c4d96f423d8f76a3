package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Chat.Sessions().List())
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusCreated, h.Chat.NewSession())
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Chat.Snapshot(chi.URLParam(r, "handle"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Chat.CloseSession(chi.URLParam(r, "handle")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostMessage submits one line of input. The response describes what it
// turned into: a sent turn, search results, or a hint.
func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}
	if !decode(w, r, &req) {
		return
	}
	out, err := h.Chat.Submit(r.Context(), chi.URLParam(r, "handle"), req.Input)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handlers) SelectResponder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	sess, err := h.Chat.Choose(r.Context(), chi.URLParam(r, "handle"), req.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (h *Handlers) ClearResponder(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Chat.ClearSelection(chi.URLParam(r, "handle"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (h *Handlers) ClearChat(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Chat.ClearChat(chi.URLParam(r, "handle"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (h *Handlers) GoHome(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Chat.GoHome(chi.URLParam(r, "handle"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// SetActiveProfile takes {"user_id": "..."}; null or "" clears it.
func (h *Handlers) SetActiveProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID *string `json:"user_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	userID := ""
	if req.UserID != nil {
		userID = *req.UserID
	}
	sess, err := h.Chat.SetActiveProfile(r.Context(), chi.URLParam(r, "handle"), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}
