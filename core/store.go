package core

import (
	"sort"
	"strings"
	"sync"
	"vanisher/logger"
	"vanisher/models"
)

// RuleStore owns the ordered ignore rule list for the process lifetime.
// Single writer (UI/CLI surface), concurrent readers (proxy hook): all
// access goes through the RWMutex so the matcher never observes a
// half-updated list. Insertion order is the UI row identity and is
// preserved across removes and reloads.
type RuleStore struct {
	mu         sync.RWMutex
	rules      []models.Rule
	index      map[string]int // rule key -> position
	generation uint64
}

func NewRuleStore() *RuleStore {
	return &RuleStore{index: make(map[string]int)}
}

// Add appends the rule and returns its position. Duplicate
// (scope, host, path) tuples are rejected, never silently appended.
func (s *RuleStore) Add(r models.Rule) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[r.Key()]; exists {
		return 0, &DuplicateRuleError{Rule: r}
	}
	s.rules = append(s.rules, r)
	pos := len(s.rules) - 1
	s.index[r.Key()] = pos
	s.generation++
	return pos, nil
}

// Edit replaces the rule at position in place, preserving the row.
func (s *RuleStore) Edit(position int, r models.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position < 0 || position >= len(s.rules) {
		return &NotFoundError{Position: position}
	}
	if existing, ok := s.index[r.Key()]; ok && existing != position {
		return &DuplicateRuleError{Rule: r}
	}
	delete(s.index, s.rules[position].Key())
	s.rules[position] = r
	s.index[r.Key()] = position
	s.generation++
	return nil
}

// Remove deletes the rule at position and returns it. Remaining entries
// keep their relative order.
func (s *RuleStore) Remove(position int) (models.Rule, error) {
	removed, err := s.RemoveAll([]int{position})
	if err != nil {
		return models.Rule{}, err
	}
	return removed[0], nil
}

// RemoveAll deletes the rules at the given positions. Every position is
// validated before anything is removed, so an invalid position leaves
// the store untouched.
func (s *RuleStore) RemoveAll(positions []int) ([]models.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range positions {
		if p < 0 || p >= len(s.rules) {
			return nil, &NotFoundError{Position: p}
		}
	}

	// Remove highest positions first so earlier ones stay valid.
	sorted := append([]int(nil), positions...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	var removed []models.Rule
	seen := make(map[int]bool)
	for _, p := range sorted {
		if seen[p] {
			continue
		}
		seen[p] = true
		removed = append(removed, s.rules[p])
		s.rules = append(s.rules[:p], s.rules[p+1:]...)
	}
	s.reindexLocked()
	s.generation++
	return removed, nil
}

// Clear empties the store and returns the number of rules dropped.
// Host scope exclusions already pushed are left alone: there is no
// un-exclude capability on the host side.
func (s *RuleStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.rules)
	s.rules = nil
	s.index = make(map[string]int)
	s.generation++
	return n
}

func (s *RuleStore) reindexLocked() {
	s.index = make(map[string]int, len(s.rules))
	for i, r := range s.rules {
		s.index[r.Key()] = i
	}
}

// Rules returns a copy of the ordered rule list.
func (s *RuleStore) Rules() []models.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Rule(nil), s.rules...)
}

func (s *RuleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// Generation increments on every mutation. The proxy uses it to
// invalidate cached match decisions.
func (s *RuleStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Match reports the first rule in store order that applies to the
// request's (host, path). HOST rules match by case-insensitive exact
// host equality; URL rules additionally require exact path equality.
// No wildcards, no prefixes, no regexes.
func (s *RuleStore) Match(host, path string) (models.Rule, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return models.Rule{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rules {
		switch r.Scope {
		case models.ScopeHost:
			if r.Host == host {
				return r, true
			}
		case models.ScopeURL:
			if r.Host == host && r.Path == path {
				return r, true
			}
		}
	}
	return models.Rule{}, false
}

// Load replaces the store contents with the rules parsed from the
// serialized blob. Malformed records are skipped individually and
// returned; a corrupt entry never aborts loading the rest. Duplicate
// records collapse to the first occurrence.
func (s *RuleStore) Load(serialized string) (int, []error) {
	var rules []models.Rule
	index := make(map[string]int)
	var skipped []error

	for _, line := range strings.Split(serialized, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := models.ParseRecord(line)
		if err != nil {
			logger.Warn("Skipping malformed ignore rule record: %v", err)
			skipped = append(skipped, err)
			continue
		}
		if _, dup := index[r.Key()]; dup {
			logger.Warn("Skipping duplicate ignore rule record: %q", line)
			skipped = append(skipped, &DuplicateRuleError{Rule: r})
			continue
		}
		index[r.Key()] = len(rules)
		rules = append(rules, r)
	}

	s.mu.Lock()
	s.rules = rules
	s.index = index
	s.generation++
	n := len(rules)
	s.mu.Unlock()
	return n, skipped
}

// Serialize renders the store as one record per line, in insertion
// order. Load(Serialize()) reproduces an equal store.
func (s *RuleStore) Serialize() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]string, len(s.rules))
	for i, r := range s.rules {
		records[i] = r.Record()
	}
	return strings.Join(records, "\n")
}
