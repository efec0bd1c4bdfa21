package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sandevgo/crmchat/internal/core"
)

const contactSearchLimit = 20

func (r *router) handleContactSearch(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := strings.TrimSpace(req.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q query parameter is required"})
		return
	}

	contacts, err := r.deps.Contacts.Search(req.Context(), query, contactSearchLimit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": contacts, "count": len(contacts)})
}

func (r *router) handleContact(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	contact, err := r.deps.Contacts.GetContact(req.Context(), req.PathValue("id"))
	if errors.Is(err, core.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "contact not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, contact)
}
