package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sandevgo/crmchat/internal/core"
)

type createSessionRequest struct {
	ContactID string `json:"contact_id"`
	Title     string `json:"title,omitempty"`
	ModelTier string `json:"model_tier,omitempty"`
}

func (r *router) handleSessions(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost:
		r.handleSessionCreate(w, req)
	case http.MethodGet:
		r.handleSessionList(w, req)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (r *router) handleSessionCreate(w http.ResponseWriter, req *http.Request) {
	var payload createSessionRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if payload.ContactID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contact_id is required"})
		return
	}

	id, err := r.deps.Sessions.CreateSession(req.Context(), payload.ContactID, payload.Title, payload.ModelTier)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (r *router) handleSessionList(w http.ResponseWriter, req *http.Request) {
	contactID := strings.TrimSpace(req.URL.Query().Get("contact_id"))
	if contactID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contact_id query parameter is required"})
		return
	}
	limit := 50
	if raw := strings.TrimSpace(req.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	sessions, err := r.deps.Sessions.ListSessions(req.Context(), contactID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": sessions, "count": len(sessions)})
}

type renameSessionRequest struct {
	Title string `json:"title"`
}

func (r *router) handleSession(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	switch req.Method {
	case http.MethodGet:
		session, err := r.deps.Sessions.GetSession(req.Context(), id)
		if errors.Is(err, core.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, session)
	case http.MethodPatch:
		var payload renameSessionRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		if strings.TrimSpace(payload.Title) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
			return
		}
		if err := r.renameSession(req, id, payload.Title); err != nil {
			writeJSON(w, sessionErrorStatus(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "title": payload.Title})
	case http.MethodDelete:
		if err := r.deps.Sessions.DeleteSession(req.Context(), id); err != nil {
			writeJSON(w, sessionErrorStatus(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (r *router) renameSession(req *http.Request, id, title string) error {
	return r.deps.Sessions.RenameSession(req.Context(), id, title)
}

func (r *router) handleSessionTurns(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	turns, err := r.deps.Sessions.Turns(req.Context(), req.PathValue("id"))
	if err != nil {
		writeJSON(w, sessionErrorStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": turns, "count": len(turns)})
}

func sessionErrorStatus(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
