package core

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lru "github.com/hashicorp/golang-lru/v2"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestMatchRequestTriesQueryQualifiedPathFirst(t *testing.T) {
	s := NewRuleStore()
	s.Add(mustURLRule(t, "example.com", "/search?q=1"))
	s.Add(mustURLRule(t, "example.com", "/plain"))

	_, ok := matchRequest(s, "example.com", mustParseURL(t, "https://example.com/search?q=1"))
	assert.True(t, ok, "query-qualified rule matches the full request target")

	_, ok = matchRequest(s, "example.com", mustParseURL(t, "https://example.com/search?q=2"))
	assert.False(t, ok)

	// A bare-path rule still matches a request carrying a query.
	_, ok = matchRequest(s, "example.com", mustParseURL(t, "https://example.com/plain?utm=x"))
	assert.True(t, ok)
}

func TestMatchRequestEmptyPathIsRoot(t *testing.T) {
	s := NewRuleStore()
	s.Add(mustURLRule(t, "example.com", "/"))

	_, ok := matchRequest(s, "example.com", mustParseURL(t, "https://example.com"))
	assert.True(t, ok)
}

func TestCachedMatchInvalidatesOnGenerationChange(t *testing.T) {
	s := NewRuleStore()
	cache, err := lru.New[string, matchDecision](16)
	require.NoError(t, err)

	u := mustParseURL(t, "https://example.com/a")
	_, matched := cachedMatch(s, cache, "example.com", u)
	assert.False(t, matched)

	// Same request again hits the cached verdict.
	_, matched = cachedMatch(s, cache, "example.com", u)
	assert.False(t, matched)

	// Adding a rule bumps the generation and invalidates the cached miss.
	s.Add(mustHostRule(t, "example.com"))
	rule, matched := cachedMatch(s, cache, "example.com", u)
	assert.True(t, matched)
	assert.Equal(t, "example.com", rule.Host)

	// Removing it invalidates the cached hit too.
	s.Clear()
	_, matched = cachedMatch(s, cache, "example.com", u)
	assert.False(t, matched)
}
