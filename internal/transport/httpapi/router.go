// Package httpapi exposes the service over a plain net/http mux:
// health probes, the ask endpoint, session CRUD, contact lookup,
// ingestion webhooks, status analysis and daily summaries.
package httpapi

import (
	"database/sql"
	"encoding/json"
	"net"
	"net/http"

	"github.com/sandevgo/crmchat/internal/config"
	"github.com/sandevgo/crmchat/internal/core"
	"github.com/sandevgo/crmchat/internal/service/chat"
	"github.com/sandevgo/crmchat/internal/service/ingest"
	"github.com/sandevgo/crmchat/internal/service/ratelimit"
)

type Dependencies struct {
	Config   *config.ServerConfig
	DB       *sql.DB
	Chat     *chat.Service
	Ingest   *ingest.Service
	Contacts core.ContactsRepository
	Sessions core.SessionsRepository
	Limiter  *ratelimit.Limiter
}

type router struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) http.Handler {
	rt := &router{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.handleHealth)
	mux.HandleFunc("/readyz", rt.handleReady)
	mux.HandleFunc("/api/v1/chat/ask", rt.limited("ask", ratelimit.LimitAsk, rt.handleAsk))
	mux.HandleFunc("/api/v1/chat/sessions", rt.handleSessions)
	mux.HandleFunc("/api/v1/chat/sessions/{id}", rt.handleSession)
	mux.HandleFunc("/api/v1/chat/sessions/{id}/turns", rt.handleSessionTurns)
	mux.HandleFunc("/api/v1/contacts/search", rt.handleContactSearch)
	mux.HandleFunc("/api/v1/contacts/{id}", rt.handleContact)
	mux.HandleFunc("/api/v1/ingest/order", rt.limited("ingest", ratelimit.LimitIngest, rt.withIngestSecret(rt.handleIngestOrder)))
	mux.HandleFunc("/api/v1/ingest/conversation", rt.limited("ingest", ratelimit.LimitIngest, rt.withIngestSecret(rt.handleIngestConversation)))
	mux.HandleFunc("/api/v1/analyze-status", rt.handleAnalyzeStatus)
	mux.HandleFunc("/api/v1/summaries", rt.limited("summary", ratelimit.LimitSummary, rt.handleSummaries))
	return mux
}

func (r *router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *router) handleReady(w http.ResponseWriter, req *http.Request) {
	if err := r.deps.DB.PingContext(req.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// limited wraps a handler with the per-endpoint-class sliding-window
// limiter, keyed by caller IP.
func (r *router) limited(class string, limit ratelimit.Limit, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if r.deps.Limiter != nil && !r.deps.Limiter.Allow(class+":"+clientIP(req), limit) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next(w, req)
	}
}

// withIngestSecret enforces the shared-secret header on webhook
// endpoints. An empty configured secret disables the check.
func (r *router) withIngestSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		secret := r.deps.Config.IngestSecret
		if secret != "" && req.Header.Get("x-ingest-secret") != secret {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, req)
	}
}

func clientIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
