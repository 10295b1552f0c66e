package http

import (
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/service"

	"github.com/go-chi/chi/v5"
)

// GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, "ListUsers", err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// GET /users/search?q=&limit=
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	res, err := h.users.Search(r.Context(), currentUser(r), r.URL.Query().Get("q"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, "SearchUsers", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GET /users/{userId}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, "GetUser", err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// GET /presence
func (h *Handler) ListPresence(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.Presence(r.Context())
	if err != nil {
		writeError(w, r, "ListPresence", err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// PUT /me/presence
func (h *Handler) UpdatePresence(w http.ResponseWriter, r *http.Request) {
	var req service.PresenceUpdate
	if !decode(w, r, "UpdatePresence", &req) {
		return
	}
	u, err := h.users.UpdatePresence(r.Context(), currentUser(r), req)
	if err != nil {
		writeError(w, r, "UpdatePresence", err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}
