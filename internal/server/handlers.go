package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GerritCodeReview/plugins-gitgroups/internal/groups"
)

type handlers struct {
	backend *groups.Backend
	index   *groups.RefIndex
	log     zerolog.Logger
}

// refsUpdatedRequest is the webhook payload a repository host posts after
// updating refs.
type refsUpdatedRequest struct {
	Project string   `json:"project"`
	Refs    []string `json:"refs"`
}

type refsUpdatedResponse struct {
	EventID string `json:"event_id"`
}

// refsUpdated accepts a repository-change event and hands it to the ref
// index. Refresh work happens in the background; the response only
// acknowledges receipt.
func (h *handlers) refsUpdated(w http.ResponseWriter, r *http.Request) {
	var req refsUpdatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Project == "" || len(req.Refs) == 0 {
		writeError(w, http.StatusBadRequest, "project and refs are required")
		return
	}

	eventID := uuid.NewString()
	h.log.Info().
		Str("event_id", eventID).
		Str("project", req.Project).
		Strs("refs", req.Refs).
		Msg("refs updated")

	h.index.OnRefsUpdated(req.Project, req.Refs)
	writeJSON(w, http.StatusAccepted, refsUpdatedResponse{EventID: eventID})
}

// describeGroup resolves a group UUID taken from the URL tail and returns
// its descriptor, or 404 when the group does not resolve.
func (h *handlers) describeGroup(w http.ResponseWriter, r *http.Request) {
	groupUUID := chi.URLParam(r, "*")
	if !h.backend.Handles(groupUUID) {
		writeError(w, http.StatusNotFound, "unknown group namespace")
		return
	}
	desc, ok := h.backend.Describe(r.Context(), groupUUID)
	if !ok {
		writeError(w, http.StatusNotFound, "group does not resolve")
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

type membershipResponse struct {
	Member bool `json:"member"`
}

// membership answers whether the caller described by user/email query
// parameters belongs to any of the given groups.
func (h *handlers) membership(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	groupIDs := q["group"]
	if len(groupIDs) == 0 {
		writeError(w, http.StatusBadRequest, "at least one group parameter is required")
		return
	}
	username := q.Get("user")
	emails := q["email"]
	if username == "" && len(emails) == 0 {
		writeError(w, http.StatusBadRequest, "user or email is required")
		return
	}

	m := h.backend.MembershipsOf(username, emails)
	var member bool
	if len(groupIDs) == 1 {
		member = m.Contains(r.Context(), groupIDs[0])
	} else {
		member = m.ContainsAnyOf(r.Context(), groupIDs)
	}
	writeJSON(w, http.StatusOK, membershipResponse{Member: member})
}

type suggestResponse struct {
	Groups []groups.Descriptor `json:"groups"`
}

// suggest returns candidate group names for a display-name prefix.
func (h *handlers) suggest(w http.ResponseWriter, r *http.Request) {
	matches := h.backend.Suggest(r.URL.Query().Get("q"))
	if matches == nil {
		matches = []groups.Descriptor{}
	}
	writeJSON(w, http.StatusOK, suggestResponse{Groups: matches})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
