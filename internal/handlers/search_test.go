package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/justinas/alice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxsearch/internal/access"
	"inboxsearch/internal/cache"
	"inboxsearch/internal/models"
	"inboxsearch/internal/ratelimit"
	"inboxsearch/internal/search"
	"inboxsearch/internal/session"
	"inboxsearch/internal/store"
)

type testEnv struct {
	server  *httptest.Server
	store   *store.SQLStore
	limiter *ratelimit.Limiter
}

func setupEnv(t *testing.T, rateMax int) *testEnv {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := store.NewWithDB(db)
	require.NoError(t, st.Migrate(context.Background()))

	seed := func(query string, args ...interface{}) {
		_, err := db.Exec(db.Rebind(query), args...)
		require.NoError(t, err)
	}
	seed(`INSERT INTO business_phones (id, label, area) VALUES (?, ?, ?)`, "phone-north", "North", "north")
	seed(`INSERT INTO business_phones (id, label, area) VALUES (?, ?, ?)`, "phone-south", "South", "south")
	seed(`INSERT INTO conversations (id, participant_phone, business_phone_id, participant_name,
			status, tags, notes, is_internal, is_retarget, retarget_stage, last_message_content, last_message_time)
		VALUES (?, ?, ?, ?, 'active', '', ?, 0, 0, '', ?, ?)`,
		"conv-1", "9999999999", "phone-north", "Ravi Kumar", "repeat guest", "see you tomorrow",
		time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	seed(`INSERT INTO messages (id, conversation_id, direction, type, content, caption, media_key, timestamp)
		VALUES (?, ?, 'incoming', 'text', ?, '', '', ?)`,
		"m1", "conv-1", "say hello world", time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC))

	phones, err := st.BusinessPhones(context.Background())
	require.NoError(t, err)
	policy := access.NewPolicy(phones)

	sessions := &session.StaticProvider{Callers: map[string]models.Caller{
		"admin-token": {ID: "admin-1", Role: models.RoleAdmin},
		"sales-token": {ID: "sales-1", Role: models.RoleSales, Areas: []string{"south"}},
	}}

	limiter := ratelimit.New(rateMax, time.Minute)
	results := cache.New(30 * time.Second)
	orch := search.NewOrchestrator(st, nil, 3*time.Second, true)
	unified := search.NewUnifiedEngine(st, nil, true)
	handler := NewSearchHandler(st, policy, orch, unified, results)

	r := mux.NewRouter()
	authed := alice.New(RequestLogger, Auth(sessions), RateLimit(limiter))
	r.Handle("/api/search", authed.ThenFunc(handler.Search())).Methods("GET")
	r.Handle("/api/search/unified", authed.ThenFunc(handler.UnifiedSearch())).Methods("GET")
	r.Handle("/health", alice.New(RequestLogger).ThenFunc(handler.Health())).Methods("GET")

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, store: st, limiter: limiter}
}

func (e *testEnv) get(t *testing.T, path, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestSearchRequiresQuery(t *testing.T) {
	env := setupEnv(t, 100)
	resp, body := env.get(t, "/api/search", "admin-token")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestSearchRejectsInvalidType(t *testing.T) {
	env := setupEnv(t, 100)
	resp, body := env.get(t, "/api/search?query=hello&type=bogus", "admin-token")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestSearchRejectsMissingCredentials(t *testing.T) {
	env := setupEnv(t, 100)
	resp, body := env.get(t, "/api/search?query=hello", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, _ = env.get(t, "/api/search?query=hello", "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSearchReturnsGroupedResults(t *testing.T) {
	env := setupEnv(t, 100)
	resp, body := env.get(t, "/api/search?query=hello&type=messages", "admin-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["success"])
	results := body["results"].(map[string]interface{})
	messages := results["messages"].([]interface{})
	require.Len(t, messages, 1)
	group := messages[0].(map[string]interface{})
	assert.Equal(t, "conv-1", group["conversationId"])
	assert.GreaterOrEqual(t, group["totalMatches"].(float64), float64(1))
}

func TestSecondIdenticalRequestIsCached(t *testing.T) {
	env := setupEnv(t, 100)

	_, first := env.get(t, "/api/search?query=hello", "admin-token")
	_, hasCached := first["cached"]
	assert.False(t, hasCached, "first response is not flagged cached")

	_, second := env.get(t, "/api/search?query=hello", "admin-token")
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, first["totalResults"], second["totalResults"])
	assert.Equal(t, first["results"], second["results"])
}

func TestRateLimitRejectsOverflow(t *testing.T) {
	env := setupEnv(t, 2)

	for i := 0; i < 2; i++ {
		resp, _ := env.get(t, "/api/search?query=hello", "admin-token")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := env.get(t, "/api/search?query=hello", "admin-token")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestScopedCallerSeesNothingOutsideAreas(t *testing.T) {
	env := setupEnv(t, 100)
	// conv-1 runs through phone-north; the sales caller only covers south.
	resp, body := env.get(t, "/api/search?query=Ravi", "sales-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	results := body["results"].(map[string]interface{})
	assert.Empty(t, results["conversations"])
	assert.Empty(t, results["messages"])
}

func TestUnifiedPhoneIdOutsideScopeIsForbidden(t *testing.T) {
	env := setupEnv(t, 100)
	resp, body := env.get(t, "/api/search/unified?query=hello&phoneId=phone-north", "sales-token")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestUnifiedSearchScenario(t *testing.T) {
	env := setupEnv(t, 100)
	resp, body := env.get(t, "/api/search/unified?query=9999", "admin-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["success"])
	rows := body["unifiedConversations"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "conv-1", row["conversationId"])
	flags := row["matches"].(map[string]interface{})
	assert.Equal(t, true, flags["phoneSuffix"])
}

func TestHealthEndpointNeedsNoAuth(t *testing.T) {
	env := setupEnv(t, 100)
	resp, body := env.get(t, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
