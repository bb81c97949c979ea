package hostapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcludeFromScope(t *testing.T) {
	var gotPattern, gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/scope/exclusions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")

		var body struct {
			Pattern string `json:"pattern"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotPattern = body.Pattern
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := New(server.URL, "/api/scope/exclusions", "/api/scope/exclusions", "exclusions.#.pattern", "tok123", 5*time.Second)
	err := c.ExcludeFromScope("https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", gotPattern)
	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
}

func TestExcludeFromScopeConflictIsNoOp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	c := New(server.URL, "/exclude", "/list", "", "", 0)
	assert.NoError(t, c.ExcludeFromScope("https://example.com/"), "already-excluded must be a no-op")
}

func TestExcludeFromScopeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, "/exclude", "/list", "", "", 0)
	err := c.ExcludeFromScope("https://example.com/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestExcludeFromScopeOmitsAuthWhenUnset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "/exclude", "/list", "", "", 0)
	assert.NoError(t, c.ExcludeFromScope("https://example.com/"))
}

func TestListExclusionsWithPatternsPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/scope/exclusions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"exclusions": [
			{"pattern": "https://a.example.com/", "enabled": true},
			{"pattern": "https://b.example.com/login", "enabled": true}
		]}`))
	}))
	defer server.Close()

	c := New(server.URL, "/api/scope/exclusions", "/api/scope/exclusions", "exclusions.#.pattern", "", 0)
	patterns, err := c.ListExclusions()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com/", "https://b.example.com/login"}, patterns)
}

func TestListExclusionsPlainArrayFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["https://a.example.com/", "https://b.example.com/"]`))
	}))
	defer server.Close()

	c := New(server.URL, "/exclude", "/list", "exclusions.#.pattern", "", 0)
	patterns, err := c.ListExclusions()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com/", "https://b.example.com/"}, patterns)
}

func TestListExclusionsUnusablePayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": "nothing here"}`))
	}))
	defer server.Close()

	c := New(server.URL, "/exclude", "/list", "exclusions.#.pattern", "", 0)
	_, err := c.ListExclusions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no exclusion patterns")
}

func TestListExclusionsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := New(server.URL, "/exclude", "/list", "exclusions.#.pattern", "", 0)
	_, err := c.ListExclusions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
