package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sandevgo/crmchat/internal/service/ingest"
)

func (r *router) handleIngestOrder(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var ev ingest.OrderEvent
	if err := json.NewDecoder(req.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	if err := r.deps.Ingest.IngestOrder(req.Context(), ev); err != nil {
		writeJSON(w, ingestErrorStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (r *router) handleIngestConversation(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var ev ingest.MessageEvent
	if err := json.NewDecoder(req.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	if err := r.deps.Ingest.IngestMessage(req.Context(), ev); err != nil {
		writeJSON(w, ingestErrorStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Validation failures and unknown contacts are caller errors; anything
// else is a storage fault.
func ingestErrorStatus(err error) int {
	switch {
	case errors.Is(err, ingest.ErrMissingContactID),
		errors.Is(err, ingest.ErrMissingOrderID),
		errors.Is(err, ingest.ErrMissingMessageID),
		errors.Is(err, ingest.ErrUnknownContact):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
