package models

import (
	"database/sql"
)

// NullString is a helper function to create a sql.NullString from a string.
// If the input string is empty, it returns a NullString with Valid set to false.
func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{String: "", Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// ErrorResponse is the JSON error envelope returned by every API handler.
type ErrorResponse struct {
	Message string `json:"message"`
}

// RuleListResponse wraps the ordered rule list for the UI, carrying the
// load-time skip count so the surface can report corrupted entries.
type RuleListResponse struct {
	Rules   []Rule `json:"rules"`
	Skipped int    `json:"skipped_on_load,omitempty"`
}
