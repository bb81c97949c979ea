package models

import (
	"fmt"
	"net/url"
	"strings"
)

// RuleScope distinguishes the two kinds of ignore rules.
type RuleScope string

const (
	// ScopeHost matches any path under a hostname, both HTTP and HTTPS.
	ScopeHost RuleScope = "host"
	// ScopeURL matches a single host + exact path combination only.
	ScopeURL RuleScope = "url"
)

// Rule is one ignore entry. A rule is uniquely identified by
// (Scope, Host, Path); Path is only set for ScopeURL rules.
type Rule struct {
	Scope RuleScope `json:"scope"`
	Host  string    `json:"host"`
	Path  string    `json:"path,omitempty"`
}

// MalformedEntryError reports a persisted or user-supplied rule record
// that could not be parsed. Bad records are skipped, never fatal.
type MalformedEntryError struct {
	Record string
	Reason string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed ignore rule entry %q: %s", e.Record, e.Reason)
}

func normalizeHost(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if strings.ContainsAny(host, "/\t\n ") {
		return "", fmt.Errorf("host %q contains invalid characters", host)
	}
	if strings.Contains(host, "://") {
		return "", fmt.Errorf("host %q must not include a scheme", host)
	}
	return host, nil
}

// NewHostRule builds a HOST-scope rule for the given hostname.
func NewHostRule(host string) (Rule, error) {
	h, err := normalizeHost(host)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid host rule: %w", err)
	}
	return Rule{Scope: ScopeHost, Host: h}, nil
}

// NewURLRule builds a URL-scope rule for the given hostname and literal path.
// The path may include a query string; matching is exact either way.
func NewURLRule(host, path string) (Rule, error) {
	h, err := normalizeHost(host)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid url rule: %w", err)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if strings.ContainsAny(path, "\t\n") {
		return Rule{}, fmt.Errorf("invalid url rule: path %q contains invalid characters", path)
	}
	return Rule{Scope: ScopeURL, Host: h, Path: path}, nil
}

// ParseEntry turns a raw user entry into a Rule. Entries starting with
// http:// or https:// become URL-scope rules; bare hostnames become
// HOST-scope rules. Regex entries (leading ^) are rejected: the host
// scope API cannot exclude them.
func ParseEntry(entry string) (Rule, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return Rule{}, &MalformedEntryError{Record: entry, Reason: "empty entry"}
	}
	if strings.HasPrefix(entry, "^") {
		return Rule{}, &MalformedEntryError{Record: entry, Reason: "regex entries are not supported"}
	}
	lower := strings.ToLower(entry)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		u, err := url.Parse(entry)
		if err != nil {
			return Rule{}, &MalformedEntryError{Record: entry, Reason: fmt.Sprintf("invalid URL: %v", err)}
		}
		if u.Hostname() == "" {
			return Rule{}, &MalformedEntryError{Record: entry, Reason: "URL has no host"}
		}
		path := u.Path
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		r, err := NewURLRule(u.Hostname(), path)
		if err != nil {
			return Rule{}, &MalformedEntryError{Record: entry, Reason: err.Error()}
		}
		return r, nil
	}
	r, err := NewHostRule(entry)
	if err != nil {
		return Rule{}, &MalformedEntryError{Record: entry, Reason: err.Error()}
	}
	return r, nil
}

// Record serializes the rule as a single tab-delimited line:
// scope<TAB>host for HOST rules, scope<TAB>host<TAB>path for URL rules.
func (r Rule) Record() string {
	if r.Scope == ScopeURL {
		return strings.Join([]string{string(r.Scope), r.Host, r.Path}, "\t")
	}
	return strings.Join([]string{string(r.Scope), r.Host}, "\t")
}

// ParseRecord is the inverse of Record. It validates as strictly as the
// constructors so corrupted persisted entries surface as MalformedEntryError.
func ParseRecord(line string) (Rule, error) {
	fields := strings.Split(line, "\t")
	switch RuleScope(fields[0]) {
	case ScopeHost:
		if len(fields) != 2 {
			return Rule{}, &MalformedEntryError{Record: line, Reason: "host record must have exactly 2 fields"}
		}
		r, err := NewHostRule(fields[1])
		if err != nil {
			return Rule{}, &MalformedEntryError{Record: line, Reason: err.Error()}
		}
		return r, nil
	case ScopeURL:
		if len(fields) != 3 {
			return Rule{}, &MalformedEntryError{Record: line, Reason: "url record must have exactly 3 fields"}
		}
		r, err := NewURLRule(fields[1], fields[2])
		if err != nil {
			return Rule{}, &MalformedEntryError{Record: line, Reason: err.Error()}
		}
		return r, nil
	default:
		return Rule{}, &MalformedEntryError{Record: line, Reason: fmt.Sprintf("unknown scope %q", fields[0])}
	}
}

// Key returns the identity tuple used for duplicate detection.
func (r Rule) Key() string {
	return string(r.Scope) + "\x00" + r.Host + "\x00" + r.Path
}

// String renders the rule the way the UI list shows it.
func (r Rule) String() string {
	if r.Scope == ScopeURL {
		return r.Host + r.Path
	}
	return r.Host + " (ANY)"
}
