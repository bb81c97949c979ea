package core

import (
	"fmt"
	"strings"
	"vanisher/logger"
	"vanisher/models"

	"github.com/google/uuid"
)

// ScopeExcluder is the host proxy's scope-exclusion API. Implementations
// must tolerate repeated calls for the same pattern; the host de-duplicates
// its own exclusion list.
type ScopeExcluder interface {
	ExcludeFromScope(urlString string) error
}

// ExclusionLister reports the patterns the host proxy currently excludes.
type ExclusionLister interface {
	ListExclusions() ([]string, error)
}

// NopExcluder is used when no host scope API is configured. Rules are
// still maintained and matched locally; nothing is mirrored.
type NopExcluder struct{}

func (NopExcluder) ExcludeFromScope(urlString string) error {
	logger.Debug("Host scope API disabled, not mirroring exclusion for %s", urlString)
	return nil
}

// ExclusionURLs returns the URL forms pushed to the host scope API for a
// rule. The host API requires a scheme, so both http and https forms are
// issued for either rule scope to avoid under-exclusion.
func ExclusionURLs(r models.Rule) []string {
	if r.Scope == models.ScopeURL {
		return []string{"http://" + r.Host + r.Path, "https://" + r.Host + r.Path}
	}
	return []string{"http://" + r.Host + "/", "https://" + r.Host + "/"}
}

// SyncFailure is one failed exclusion call inside a batch.
type SyncFailure struct {
	Entry  string `json:"entry"`
	Reason string `json:"reason"`
}

// SyncReport summarizes one sync batch. Failures never abort the batch.
type SyncReport struct {
	ID        string        `json:"id"`
	Attempted int           `json:"attempted"`
	Excluded  []string      `json:"excluded"`
	Failures  []SyncFailure `json:"failures,omitempty"`
}

// Summary renders the user-facing "N of M rules excluded" line.
func (r SyncReport) Summary() string {
	if len(r.Failures) == 0 {
		return fmt.Sprintf("%d of %d rules excluded", r.Attempted-len(r.Failures), r.Attempted)
	}
	reasons := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		reasons[i] = fmt.Sprintf("%s (%s)", f.Entry, f.Reason)
	}
	return fmt.Sprintf("%d of %d rules excluded; failures: %s",
		r.Attempted-len(r.Failures), r.Attempted, strings.Join(reasons, ", "))
}

// Syncer mirrors ignore rules into the host proxy's scope-exclusion list.
type Syncer struct {
	excluder ScopeExcluder
}

func NewSyncer(excluder ScopeExcluder) *Syncer {
	return &Syncer{excluder: excluder}
}

// SyncAdd pushes one rule to the host scope API. Re-pushing an
// already-excluded rule is a no-op from the caller's perspective.
func (s *Syncer) SyncAdd(r models.Rule) error {
	for _, u := range ExclusionURLs(r) {
		if err := s.excluder.ExcludeFromScope(u); err != nil {
			return &ScopeSyncError{Entry: r.String(), Err: err}
		}
	}
	return nil
}

// SyncAll applies SyncAdd to every rule, collecting per-entry failures
// instead of aborting. Used at startup and for bulk exclude actions.
func (s *Syncer) SyncAll(rules []models.Rule) SyncReport {
	report := SyncReport{ID: uuid.NewString(), Attempted: len(rules), Excluded: []string{}}
	for _, r := range rules {
		if err := s.SyncAdd(r); err != nil {
			logger.Error("Scope sync: %v", err)
			report.Failures = append(report.Failures, SyncFailure{Entry: r.String(), Reason: err.Error()})
			continue
		}
		report.Excluded = append(report.Excluded, r.String())
	}
	return report
}
