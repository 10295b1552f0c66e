package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GET /groups
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, "ListGroups", err)
		return
	}

	writeJSON(w, http.StatusOK, groups)
}

// POST /groups
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if !decode(w, r, "CreateGroup", &req) {
		return
	}
	g, err := h.groups.Create(r.Context(), currentUser(r), req.Name, req.Members)
	if err != nil {
		writeError(w, r, "CreateGroup", err)
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

// PUT /groups/{groupId}
func (h *Handler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	var req RenameGroupRequest
	if !decode(w, r, "RenameGroup", &req) {
		return
	}
	g, err := h.groups.Rename(r.Context(), currentUser(r), chi.URLParam(r, "groupId"), req.Name)
	if err != nil {
		writeError(w, r, "RenameGroup", err)
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// POST /groups/{groupId}/members
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req UserIDRequest
	if !decode(w, r, "AddMember", &req) {
		return
	}
	g, err := h.groups.AddMember(r.Context(), currentUser(r), chi.URLParam(r, "groupId"), req.UserID)
	if err != nil {
		writeError(w, r, "AddMember", err)
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// POST /groups/{groupId}/members/by-username
func (h *Handler) AddMemberByUsername(w http.ResponseWriter, r *http.Request) {
	var req UsernameRequest
	if !decode(w, r, "AddMemberByUsername", &req) {
		return
	}
	g, err := h.groups.AddMemberByUsername(r.Context(), currentUser(r), chi.URLParam(r, "groupId"), req.Username)
	if err != nil {
		writeError(w, r, "AddMemberByUsername", err)
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// GET /groups/{groupId}/members
func (h *Handler) GroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	members, err := h.groups.Members(r.Context(), currentUser(r), groupID)
	if err != nil {
		writeError(w, r, "GroupMembers", err)
		return
	}

	writeJSON(w, http.StatusOK, GroupMembersResponse{GroupID: groupID, Members: members})
}

// POST /groups/{groupId}/leave
func (h *Handler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.groups.Leave(r.Context(), currentUser(r), chi.URLParam(r, "groupId"))
	if err != nil {
		writeError(w, r, "LeaveGroup", err)
		return
	}

	writeJSON(w, http.StatusOK, LeaveGroupResponse{Left: true, Group: g})
}

// POST /groups/{groupId}/promote
func (h *Handler) PromoteMember(w http.ResponseWriter, r *http.Request) {
	var req UserIDRequest
	if !decode(w, r, "PromoteMember", &req) {
		return
	}
	g, err := h.groups.Promote(r.Context(), currentUser(r), chi.URLParam(r, "groupId"), req.UserID)
	if err != nil {
		writeError(w, r, "PromoteMember", err)
		return
	}

	writeJSON(w, http.StatusOK, g)
}
