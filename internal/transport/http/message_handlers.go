package http

import (
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/service"

	"github.com/go-chi/chi/v5"
)

// POST /messages/direct
func (h *Handler) SendDirect(w http.ResponseWriter, r *http.Request) {
	var req SendDirectRequest
	if !decode(w, r, "SendDirect", &req) {
		return
	}
	msg, err := h.messages.SendDirect(r.Context(), currentUser(r), req.ToUserID, service.Content{
		Text:       req.Text,
		Attachment: req.Attachment,
	})
	if err != nil {
		writeError(w, r, "SendDirect", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// POST /messages/direct/by-username
func (h *Handler) SendDirectByUsername(w http.ResponseWriter, r *http.Request) {
	var req SendDirectByUsernameRequest
	if !decode(w, r, "SendDirectByUsername", &req) {
		return
	}
	msg, user, err := h.messages.SendDirectByUsername(r.Context(), currentUser(r), req.Username, service.Content{
		Text:       req.Text,
		Attachment: req.Attachment,
	})
	if err != nil {
		writeError(w, r, "SendDirectByUsername", err)
		return
	}

	writeJSON(w, http.StatusCreated, SendDirectByUsernameResponse{Message: msg, User: user})
}

// POST /messages/group
func (h *Handler) SendGroup(w http.ResponseWriter, r *http.Request) {
	var req SendGroupRequest
	if !decode(w, r, "SendGroup", &req) {
		return
	}
	msg, err := h.messages.SendGroup(r.Context(), currentUser(r), req.GroupID, service.Content{
		Text:       req.Text,
		Attachment: req.Attachment,
	})
	if err != nil {
		writeError(w, r, "SendGroup", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// POST /messages/mark-read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req MarkReadRequest
	if !decode(w, r, "MarkRead", &req) {
		return
	}
	n, err := h.messages.MarkRead(r.Context(), currentUser(r), req.MessageIDs)
	if err != nil {
		writeError(w, r, "MarkRead", err)
		return
	}

	writeJSON(w, http.StatusOK, MarkReadResponse{Updated: n})
}

// GET /messages/direct/{otherUserId}?before=&limit=
func (h *Handler) DirectHistory(w http.ResponseWriter, r *http.Request) {
	page, err := h.messages.DirectHistory(
		r.Context(),
		currentUser(r),
		chi.URLParam(r, "otherUserId"),
		r.URL.Query().Get("before"),
		queryInt(r, "limit"),
	)
	if err != nil {
		writeError(w, r, "DirectHistory", err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// GET /messages/group/{groupId}?before=&limit=
func (h *Handler) GroupHistory(w http.ResponseWriter, r *http.Request) {
	page, err := h.messages.GroupHistory(
		r.Context(),
		currentUser(r),
		chi.URLParam(r, "groupId"),
		r.URL.Query().Get("before"),
		queryInt(r, "limit"),
	)
	if err != nil {
		writeError(w, r, "GroupHistory", err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// GET /direct/partners
func (h *Handler) Partners(w http.ResponseWriter, r *http.Request) {
	partners, err := h.messages.Partners(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, "Partners", err)
		return
	}

	writeJSON(w, http.StatusOK, partners)
}

// GET /direct/unread-counts
func (h *Handler) DirectUnreadCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.messages.DirectUnreadCounts(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, "DirectUnreadCounts", err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

// GET /groups/unread-counts
func (h *Handler) GroupUnreadCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.messages.GroupUnreadCounts(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, "GroupUnreadCounts", err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}
