package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sandevgo/crmchat/internal/core"
	"github.com/sandevgo/crmchat/internal/service/chat"
)

func (r *router) handleAsk(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var payload chat.AskRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	answer, err := r.deps.Chat.Ask(req.Context(), payload)
	if err != nil {
		writeJSON(w, askErrorStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func askErrorStatus(err error) int {
	var modelErr *chat.ModelError
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &modelErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type analyzeStatusRequest struct {
	ContactID string `json:"contact_id"`
	SessionID string `json:"session_id,omitempty"`
}

func (r *router) handleAnalyzeStatus(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var payload analyzeStatusRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if payload.ContactID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contact_id is required"})
		return
	}

	status, err := r.deps.Chat.AnalyzeStatus(req.Context(), payload.ContactID, payload.SessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

type summaryRequest struct {
	ContactID string `json:"contact_id"`
	Force     bool   `json:"force,omitempty"`
}

func (r *router) handleSummaries(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost:
		r.handleSummaryGenerate(w, req)
	case http.MethodGet:
		r.handleSummaryGet(w, req)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (r *router) handleSummaryGenerate(w http.ResponseWriter, req *http.Request) {
	var payload summaryRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if payload.ContactID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contact_id is required"})
		return
	}

	summary, cached, err := r.deps.Chat.GenerateDailySummary(req.Context(), payload.ContactID, payload.Force)
	if err != nil {
		var modelErr *chat.ModelError
		status := http.StatusInternalServerError
		if errors.As(err, &modelErr) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary, "cached": cached})
}

func (r *router) handleSummaryGet(w http.ResponseWriter, req *http.Request) {
	contactID := strings.TrimSpace(req.URL.Query().Get("contact_id"))
	if contactID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contact_id query parameter is required"})
		return
	}
	date := strings.TrimSpace(req.URL.Query().Get("date"))

	summary, err := r.deps.Chat.DailySummary(req.Context(), contactID, date)
	if errors.Is(err, core.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "summary not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}
