package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vanisher/core"
	"vanisher/models"
)

type memorySettings struct {
	values map[string]string
}

func (m *memorySettings) Load(key string) (string, error) { return m.values[key], nil }
func (m *memorySettings) Save(key, value string) error    { m.values[key] = value; return nil }

type recordingExcluder struct {
	calls []string
}

func (r *recordingExcluder) ExcludeFromScope(urlString string) error {
	r.calls = append(r.calls, urlString)
	return nil
}

type staticLister struct {
	patterns []string
}

func (l *staticLister) ListExclusions() ([]string, error) { return l.patterns, nil }

func newTestServer(t *testing.T, lister core.ExclusionLister) (*httptest.Server, *core.Vanisher, *recordingExcluder) {
	t.Helper()
	excluder := &recordingExcluder{}
	v := core.NewVanisher(&memorySettings{values: make(map[string]string)}, excluder)
	require.NoError(t, v.LoadRules())
	server := httptest.NewServer(NewRouter(v, lister))
	t.Cleanup(server.Close)
	return server, v, excluder
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t, nil)
	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestAddAndListRules(t *testing.T) {
	server, _, excluder := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, server.URL+"/rules", `{"entry": "example.com"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var added core.AddResult
	decodeBody(t, resp, &added)
	assert.True(t, added.Added)
	assert.Equal(t, models.ScopeHost, added.Rule.Scope)
	assert.Len(t, excluder.calls, 2)

	resp = doJSON(t, http.MethodPost, server.URL+"/rules", `{"entry": "https://api.example.com/health"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/rules")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list models.RuleListResponse
	decodeBody(t, resp, &list)
	require.Len(t, list.Rules, 2)
	assert.Equal(t, "example.com", list.Rules[0].Host)
	assert.Equal(t, "/health", list.Rules[1].Path)
}

func TestAddRuleErrorStatuses(t *testing.T) {
	server, _, _ := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, server.URL+"/rules", `{"entry": "example.com"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Duplicate -> 409.
	resp = doJSON(t, http.MethodPost, server.URL+"/rules", `{"entry": "example.com"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Regex entry -> 400.
	resp = doJSON(t, http.MethodPost, server.URL+"/rules", `{"entry": "^.*track.*$"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Garbage body -> 400.
	resp = doJSON(t, http.MethodPost, server.URL+"/rules", `{bad json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestEditAndRemoveRule(t *testing.T) {
	server, v, _ := newTestServer(t, nil)
	doJSON(t, http.MethodPost, server.URL+"/rules", `{"entry": "old.example.com"}`).Body.Close()

	resp := doJSON(t, http.MethodPut, server.URL+"/rules/0", `{"entry": "new.example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, "new.example.com", v.Store().Rules()[0].Host)

	// Unknown position -> 404.
	resp = doJSON(t, http.MethodPut, server.URL+"/rules/9", `{"entry": "x.example.com"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, server.URL+"/rules/0", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, v.Store().Len())
}

func TestClearAndExcludeRules(t *testing.T) {
	server, v, excluder := newTestServer(t, nil)
	doJSON(t, http.MethodPost, server.URL+"/rules", `{"entry": "a.example.com"}`).Body.Close()
	doJSON(t, http.MethodPost, server.URL+"/rules", `{"entry": "b.example.com"}`).Body.Close()
	excluder.calls = nil

	// Empty body replays every rule.
	resp := doJSON(t, http.MethodPost, server.URL+"/rules/exclude", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report core.SyncReport
	decodeBody(t, resp, &report)
	assert.Equal(t, 2, report.Attempted)
	assert.Len(t, excluder.calls, 4)

	resp = doJSON(t, http.MethodPost, server.URL+"/rules/clear", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, v.Store().Len())
}

func TestIgnoreEndpoints(t *testing.T) {
	server, v, _ := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, server.URL+"/ignore/host", `{"url": "https://tracker.example.com/pixel?id=1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var res core.AddResult
	decodeBody(t, resp, &res)
	assert.Equal(t, "tracker.example.com", res.Rule.Host)

	// Second ignore of the same host re-excludes without duplicating.
	resp = doJSON(t, http.MethodPost, server.URL+"/ignore/host", `{"url": "https://tracker.example.com/other"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 1, v.Store().Len())

	resp = doJSON(t, http.MethodPost, server.URL+"/ignore/url", `{"url": "https://api.example.com/search?q=1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &res)
	assert.Equal(t, models.ScopeURL, res.Rule.Scope)
	assert.Equal(t, "/search", res.Rule.Path, "query string is stripped")
}

func TestSyncStatus(t *testing.T) {
	lister := &staticLister{patterns: []string{
		"http://example.com/", "https://example.com/",
	}}
	server, _, _ := newTestServer(t, lister)
	doJSON(t, http.MethodPost, server.URL+"/rules", `{"entry": "example.com"}`).Body.Close()
	doJSON(t, http.MethodPost, server.URL+"/rules", `{"entry": "missing.example.com"}`).Body.Close()

	resp, err := http.Get(server.URL + "/sync/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status struct {
		RuleCount int      `json:"rule_count"`
		Missing   []string `json:"missing"`
	}
	decodeBody(t, resp, &status)
	assert.Equal(t, 2, status.RuleCount)
	assert.ElementsMatch(t, []string{"http://missing.example.com/", "https://missing.example.com/"}, status.Missing)
}

func TestSyncStatusWithoutLister(t *testing.T) {
	server, _, _ := newTestServer(t, nil)
	resp, err := http.Get(server.URL + "/sync/status")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}
