package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHostRuleNormalizes(t *testing.T) {
	r, err := NewHostRule("  Sub.Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, ScopeHost, r.Scope)
	assert.Equal(t, "sub.example.com", r.Host)
	assert.Empty(t, r.Path)
}

func TestNewHostRuleRejectsBadHosts(t *testing.T) {
	for _, host := range []string{"", "  ", "example.com/path", "http://example.com", "ex ample.com"} {
		_, err := NewHostRule(host)
		assert.Error(t, err, "host %q should be rejected", host)
	}
}

func TestNewURLRuleNormalizesPath(t *testing.T) {
	r, err := NewURLRule("Example.com", "a/b")
	require.NoError(t, err)
	assert.Equal(t, ScopeURL, r.Scope)
	assert.Equal(t, "example.com", r.Host)
	assert.Equal(t, "/a/b", r.Path)

	r, err = NewURLRule("example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "/", r.Path)
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		entry   string
		scope   RuleScope
		host    string
		path    string
		wantErr bool
	}{
		{entry: "example.com", scope: ScopeHost, host: "example.com"},
		{entry: "Tracker.Example.com", scope: ScopeHost, host: "tracker.example.com"},
		{entry: "https://example.com/a/b", scope: ScopeURL, host: "example.com", path: "/a/b"},
		{entry: "HTTP://example.com/health", scope: ScopeURL, host: "example.com", path: "/health"},
		{entry: "https://example.com/q?x=1", scope: ScopeURL, host: "example.com", path: "/q?x=1"},
		{entry: "https://example.com", scope: ScopeURL, host: "example.com", path: "/"},
		{entry: "^.*tracking.*", wantErr: true},
		{entry: "", wantErr: true},
		{entry: "https://", wantErr: true},
	}
	for _, tc := range tests {
		r, err := ParseEntry(tc.entry)
		if tc.wantErr {
			assert.Error(t, err, "entry %q", tc.entry)
			var malformed *MalformedEntryError
			assert.ErrorAs(t, err, &malformed, "entry %q should yield MalformedEntryError", tc.entry)
			continue
		}
		require.NoError(t, err, "entry %q", tc.entry)
		assert.Equal(t, tc.scope, r.Scope, "entry %q", tc.entry)
		assert.Equal(t, tc.host, r.Host, "entry %q", tc.entry)
		assert.Equal(t, tc.path, r.Path, "entry %q", tc.entry)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	hostRule, err := NewHostRule("example.com")
	require.NoError(t, err)
	urlRule, err := NewURLRule("api.example.com", "/health")
	require.NoError(t, err)

	for _, r := range []Rule{hostRule, urlRule} {
		parsed, err := ParseRecord(r.Record())
		require.NoError(t, err, "record %q", r.Record())
		assert.Equal(t, r, parsed)
	}
}

func TestParseRecordRejectsCorruptEntries(t *testing.T) {
	for _, line := range []string{
		"",
		"host",
		"host\t",
		"host\texample.com\t/extra",
		"url\texample.com",
		"bogus\texample.com",
		"host\thttp://example.com",
	} {
		_, err := ParseRecord(line)
		assert.Error(t, err, "record %q should be rejected", line)
		var malformed *MalformedEntryError
		assert.ErrorAs(t, err, &malformed, "record %q", line)
	}
}

func TestRuleKeyDistinguishesScopes(t *testing.T) {
	hostRule, _ := NewHostRule("example.com")
	urlRule, _ := NewURLRule("example.com", "/")
	assert.NotEqual(t, hostRule.Key(), urlRule.Key())
}
