package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/crmchat/internal/config"
	"github.com/sandevgo/crmchat/internal/core"
	"github.com/sandevgo/crmchat/internal/service/chat"
	"github.com/sandevgo/crmchat/internal/service/ingest"
	"github.com/sandevgo/crmchat/internal/service/ratelimit"
	"github.com/sandevgo/crmchat/internal/storage/sqlite"
)

type stubProvider struct {
	content string
}

func (p *stubProvider) Chat(ctx context.Context, req core.ChatRequest) (core.ChatResult, error) {
	return core.ChatResult{Content: p.content, Model: "test/model", PromptTokens: 10, CompletionTokens: 5}, nil
}

func (p *stubProvider) Model() string { return "test/model" }

type stubPicker struct{ provider core.AIProvider }

func (p *stubPicker) ForTier(tier string) core.AIProvider { return p.provider }

type testServer struct {
	handler  http.Handler
	db       *sql.DB
	contacts *sqlite.ContactsRepo
	orders   *sqlite.OrdersRepo
}

func newTestServer(t *testing.T, ingestSecret string) *testServer {
	t.Helper()

	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	contacts := sqlite.NewContactsRepo(db)
	orders := sqlite.NewOrdersRepo(db)
	conversations := sqlite.NewConversationsRepo(db)
	sessions := sqlite.NewSessionsRepo(db)
	summaries := sqlite.NewSummariesRepo(db)
	usage := sqlite.NewUsageRepo(db)

	budget := &config.BudgetConfig{
		MaxContextMessages: 50,
		LookbackDays:       120,
		MaxContextOrders:   5,
		MessageCharBudget:  1000,
		LightTokenLimit:    4000,
		MediumTokenLimit:   8000,
		HighTokenLimit:     12000,
		MaxTokensSummary:   400,
		MaxTokensGeneral:   350,
		MaxTokensStatus:    10,
	}
	appCfg := &config.AppConfig{SessionTurnWindow: 20}
	picker := &stubPicker{provider: &stubProvider{content: "generated answer"}}

	chatSvc := chat.NewService(contacts, orders, conversations, sessions, summaries, usage, picker, budget, appCfg)
	ingestSvc := ingest.NewService(contacts, orders, conversations)

	handler := NewRouter(Dependencies{
		Config:   &config.ServerConfig{ListenAddr: ":0", IngestSecret: ingestSecret},
		DB:       db,
		Chat:     chatSvc,
		Ingest:   ingestSvc,
		Contacts: contacts,
		Sessions: sessions,
		Limiter:  ratelimit.NewLimiter(),
	})

	return &testServer{handler: handler, db: db, contacts: contacts, orders: orders}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = ts.do(t, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeBody(t, rec)["status"])
}

func TestAsk_DeterministicAnswer(t *testing.T) {
	ts := newTestServer(t, "")
	ctx := context.Background()

	id, err := ts.contacts.UpsertByExternalID(ctx, "ghl-1", core.ContactProfile{Name: "Jane Doe"})
	require.NoError(t, err)
	require.NoError(t, ts.orders.UpsertOrder(ctx, core.Order{
		OrderID: "o-1001", ContactID: id, OrderDate: "2024-01-10", OrderTotal: 149.99,
	}))

	rec := ts.do(t, http.MethodPost, "/api/v1/chat/ask", map[string]string{
		"contact_id": id,
		"question":   "what was the total of her last order?",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, core.OriginDB, body["model"])
	assert.Contains(t, body["answer"], "$149.99")
}

func TestAsk_ErrorMapping(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(t, http.MethodPost, "/api/v1/chat/ask", map[string]string{"question": "hi"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/chat/ask", map[string]string{
		"contact_id": "missing", "question": "hi",
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/chat/ask", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAsk_RateLimited(t *testing.T) {
	ts := newTestServer(t, "")

	var last int
	for i := 0; i <= ratelimit.LimitAsk.Max; i++ {
		rec := ts.do(t, http.MethodPost, "/api/v1/chat/ask", map[string]string{"question": "hi"}, nil)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestIngest_SecretEnforced(t *testing.T) {
	ts := newTestServer(t, "hunter2")

	event := map[string]any{
		"external_contact_id": "ghl-1",
		"contact":             map[string]string{"name": "Jane Doe"},
		"order":               map[string]any{"order_id": "o-1", "order_total": 10.0},
	}

	rec := ts.do(t, http.MethodPost, "/api/v1/ingest/order", event, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/ingest/order", event, map[string]string{"x-ingest-secret": "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The webhook created the contact.
	found, err := ts.contacts.FindByExternalID(context.Background(), "ghl-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", found.Name)
}

func TestIngest_ValidationError(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(t, http.MethodPost, "/api/v1/ingest/order", map[string]any{
		"order": map[string]any{"order_id": "o-1"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessions_Lifecycle(t *testing.T) {
	ts := newTestServer(t, "")
	ctx := context.Background()

	contactID, err := ts.contacts.UpsertByExternalID(ctx, "ghl-1", core.ContactProfile{Name: "Jane Doe"})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/api/v1/chat/sessions", map[string]string{
		"contact_id": contactID, "title": "first chat",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID, _ := decodeBody(t, rec)["id"].(string)
	require.NotEmpty(t, sessionID)

	rec = ts.do(t, http.MethodGet, "/api/v1/chat/sessions?contact_id="+contactID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/v1/chat/sessions/"+sessionID, map[string]string{"title": "renamed"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/chat/sessions/"+sessionID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renamed", decodeBody(t, rec)["title"])

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chat/sessions/%s/turns", sessionID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/chat/sessions/"+sessionID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/chat/sessions/"+sessionID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContacts_SearchAndGet(t *testing.T) {
	ts := newTestServer(t, "")
	ctx := context.Background()

	id, err := ts.contacts.UpsertByExternalID(ctx, "ghl-1", core.ContactProfile{Name: "Jane Doe"})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/v1/contacts/search?q=jane", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/contacts/search", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/contacts/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jane Doe", decodeBody(t, rec)["name"])

	rec = ts.do(t, http.MethodGet, "/api/v1/contacts/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeStatus_RequiresContactID(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(t, http.MethodPost, "/api/v1/analyze-status", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
