package core

import (
	"fmt"
	"vanisher/models"
)

// DuplicateRuleError is returned by Add/Edit when an equal
// (scope, host, path) rule already exists in the store.
type DuplicateRuleError struct {
	Rule models.Rule
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("ignore rule %q already exists", e.Rule.String())
}

// NotFoundError is returned by Edit/Remove for an invalid list position.
type NotFoundError struct {
	Position int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no ignore rule at position %d", e.Position)
}

// ScopeSyncError reports a failed host exclusion call for one entry.
// Sync batches collect these and keep going.
type ScopeSyncError struct {
	Entry string
	Err   error
}

func (e *ScopeSyncError) Error() string {
	return fmt.Sprintf("scope exclusion failed for %s: %v", e.Entry, e.Err)
}

func (e *ScopeSyncError) Unwrap() error {
	return e.Err
}
