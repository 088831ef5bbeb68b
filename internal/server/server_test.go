package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigdesk/internal/app"
	"gigdesk/internal/domain"
	"gigdesk/internal/engine"
	"gigdesk/internal/repo"
)

const testSecret = "test-secret"

var testNow = time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

type testServer struct {
	*httptest.Server
	engine engine.Engine
}

func newTestServer(t *testing.T, legacy bool) *testServer {
	t.Helper()
	return newTestServerWith(t, AuthConfig{JWTSecret: testSecret, AllowLegacyUserHeader: legacy, DevLogin: true})
}

func newTestServerWith(t *testing.T, authCfg AuthConfig) *testServer {
	t.Helper()
	ctx := context.Background()
	ws, err := app.Open(ctx, app.Options{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	seed, err := app.LoadSeed(filepath.Join("testdata", "seed.yml"))
	require.NoError(t, err)
	_, err = app.ImportSeed(ctx, ws.Engine.Repo, ws.Engine.Events, seed, testNow)
	require.NoError(t, err)

	e := ws.Engine
	e.Now = func() time.Time { return testNow }
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: authCfg})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, engine: e}
}

func asUser(id string) map[string]string {
	return map[string]string{"X-User-Id": id}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env.Error.Code
}

func pending(t *testing.T, srv *testServer, user string) []engine.PendingAction {
	t.Helper()
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/agents/pending", nil, asUser(user))
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var items []engine.PendingAction
	require.NoError(t, json.Unmarshal(body, &items))
	return items
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t, false)
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRequiresCredentials(t *testing.T) {
	srv := newTestServer(t, false)
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/agents/pending", nil, nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "unauthorized", errorCode(t, body))

	// The legacy header only counts when enabled.
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/agents/pending", nil, asUser("u1"))
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestRunThenExecuteSmartSplit(t *testing.T) {
	srv := newTestServer(t, true)
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/agents/run", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var run RunAgentsResponse
	require.NoError(t, json.Unmarshal(body, &run))
	assert.True(t, run.Success)
	assert.Equal(t, len(run.Actions), run.Count)
	assert.GreaterOrEqual(t, run.ActionCount, 2)
	assert.Contains(t, run.Logs, "Collections: Action generated for inv_1")
	assert.Empty(t, run.FailedDomains)

	var split *engine.PendingAction
	for i := range run.Actions {
		if run.Actions[i].EventKind == domain.KindSmartSplit {
			split = &run.Actions[i]
		}
	}
	require.NotNil(t, split, "smart split suggested")
	assert.Equal(t, domain.DomainCFO, split.Domain)

	res, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/agents/execute", map[string]any{
		"agent":   split.Domain,
		"type":    split.EventKind,
		"payload": split.Payload,
		"id":      split.ID,
	}, asUser("u1"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var exec ExecuteActionResponse
	require.NoError(t, json.Unmarshal(body, &exec))
	assert.True(t, exec.Success)
	assert.Equal(t, "Funds allocated successfully", exec.Message)

	after := pending(t, srv, "u1")
	assert.Len(t, after, run.Count-1)
	for _, a := range after {
		assert.NotEqual(t, split.ID, a.ID)
	}
}

func TestGetRunMatchesPost(t *testing.T) {
	srv := newTestServer(t, true)
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/agents/run", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var first RunAgentsResponse
	require.NoError(t, json.Unmarshal(body, &first))

	// Same day: collections and the split are suppressed, schedule suggestions are always new.
	res, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/agents/run", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var second RunAgentsResponse
	require.NoError(t, json.Unmarshal(body, &second))
	assert.Contains(t, second.Logs, "Collections: Reminder for inv_1 already pending")
	assert.Contains(t, second.Logs, "CFO: Smart split for t1 already pending")
	assert.Equal(t, productivityCount(t, first.Logs), productivityCount(t, second.Logs))
	assert.Equal(t, productivityCount(t, second.Logs), second.ActionCount)
	assert.Empty(t, second.FailedDomains)
}

func productivityCount(t *testing.T, logs []string) int {
	t.Helper()
	for _, line := range logs {
		var n int
		if _, err := fmt.Sscanf(line, "Productivity: Generated %d schedule suggestions.", &n); err == nil {
			return n
		}
	}
	return 0
}

func TestExecuteRejectsUnknownAction(t *testing.T) {
	srv := newTestServer(t, true)
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/agents/execute", map[string]any{
		"agent": "CFO",
		"type":  "launch_rocket",
	}, asUser("u1"))
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(body))
	assert.Equal(t, "unknown_action", errorCode(t, body))

	res, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/agents/execute", map[string]any{
		"agent": "CFO",
		"type":  "",
	}, asUser("u1"))
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(body))
}

func TestExecuteInvalidPayload(t *testing.T) {
	srv := newTestServer(t, true)
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/agents/execute", map[string]any{
		"agent":   "Collections",
		"type":    "invoice_nudge",
		"payload": map[string]any{},
	}, asUser("u1"))
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(body))
	assert.Equal(t, "bad_request", errorCode(t, body))
}

func TestDismissNotification(t *testing.T) {
	srv := newTestServer(t, true)
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/notifications/missing/read", nil, asUser("u1"))
	require.Equal(t, http.StatusNotFound, res.StatusCode, string(body))
	assert.Equal(t, "not_found", errorCode(t, body))

	res, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/agents/run", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	before := pending(t, srv, "u1")
	require.NotEmpty(t, before)

	// Another user cannot dismiss u1's entry.
	res, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/notifications/"+before[0].ID+"/read", nil, asUser("c1"))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/notifications/"+before[0].ID+"/read", nil, asUser("u1"))
	require.Equal(t, http.StatusNoContent, res.StatusCode, string(body))
	assert.Len(t, pending(t, srv, "u1"), len(before)-1)
}

func TestClientEndpointsRequireClientRole(t *testing.T) {
	srv := newTestServer(t, true)
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/client/stats", nil, asUser("u1"))
	require.Equal(t, http.StatusUnauthorized, res.StatusCode, string(body))

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/client/stats", nil, asUser("c1"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var stats domain.ClientStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.ActiveJobs)

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/client/bids", nil, asUser("c1"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	assert.JSONEq(t, `[]`, string(body))
}

func TestDevLoginTokenAuthenticates(t *testing.T) {
	srv := newTestServer(t, false)
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{
		"user_id": "c1",
		"role":    "client",
	}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var login DevLoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.Token)

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var me WhoAmIResponse
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, WhoAmIResponse{UserID: "c1", Role: "client", Source: "jwt"}, me)

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "invalid_credentials", errorCode(t, body))
}

func TestAPIKeyAuthenticates(t *testing.T) {
	srv := newTestServer(t, false)
	require.NoError(t, srv.engine.Repo.InsertAPIKey(context.Background(), nil, domain.APIKey{
		ID:      "key1",
		UserID:  "u1",
		KeyHash: repo.HashAPIKey("gd_live_123"),
	}))
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Api-Key": "gd_live_123"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var me WhoAmIResponse
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, WhoAmIResponse{UserID: "u1", Role: "freelancer", Source: "api_key"}, me)

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Api-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestResumeWithoutAnalyzer(t *testing.T) {
	srv := newTestServer(t, true)
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/users/me/resume", map[string]any{
		"content_type": "text/plain",
		"text":         "Go engineer, 5 years",
	}, asUser("u1"))
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode, string(body))
	assert.Equal(t, "analyzer_unavailable", errorCode(t, body))
}

func TestOpenAPIIsPublic(t *testing.T) {
	srv := newTestServer(t, false)
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	assert.Contains(t, string(body), "/v0/agents/execute")
	assert.Contains(t, string(body), "bearerAuth")
}

func TestDevLoginDisabledByDefault(t *testing.T) {
	srv := newTestServerWith(t, AuthConfig{JWTSecret: testSecret})
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{
		"user_id": "c1",
		"role":    "client",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode, string(body))
	assert.Equal(t, "unauthorized", errorCode(t, body))

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotContains(t, string(body), "dev-login")
}

func TestOpenAPIConcurrentFirstRequests(t *testing.T) {
	srv := newTestServer(t, false)
	bodies := make([][]byte, 8)
	var wg sync.WaitGroup
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := srv.Client().Get(srv.URL + "/v0/openapi.json")
			if !assert.NoError(t, err) {
				return
			}
			defer res.Body.Close()
			bodies[i], _ = io.ReadAll(res.Body)
		}(i)
	}
	wg.Wait()
	require.NotEmpty(t, bodies[0])
	for _, b := range bodies[1:] {
		assert.Equal(t, string(bodies[0]), string(b))
	}
	assert.Contains(t, string(bodies[0]), "dev-login")
}
