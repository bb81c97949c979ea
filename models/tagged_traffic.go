package models

import (
	"database/sql"
	"time"
)

// TaggedTraffic records one response the proxy rewrote because it matched
// an ignore rule. Metadata only; response bodies are never retained.
type TaggedTraffic struct {
	ID                  string         `json:"id" readOnly:"true"`
	Timestamp           time.Time      `json:"timestamp" readOnly:"true"`
	Host                string         `json:"host" example:"tracker.example.com"`
	Path                string         `json:"path" example:"/collect"`
	MatchedRule         string         `json:"matched_rule" example:"host\ttracker.example.com"`
	StatusCode          int            `json:"status_code,omitempty" example:"200"`
	OriginalContentType sql.NullString `json:"original_content_type,omitempty" example:"application/json"`
	IsHTTPS             bool           `json:"is_https" example:"true"`
}
