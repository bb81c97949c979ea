package core

import (
	"net/http"
)

const (
	// TaggedContentType replaces the Content-Type of matched responses so
	// they can be hidden via MIME-type filtering downstream.
	TaggedContentType = "text/css; charset=UTF-8"

	// MarkerHeader flags tagged responses for external filtering.
	MarkerHeader = "X-OFS-Vanisher"
	MarkerValue  = "ignored"
)

// TagResponse rewrites the response of a request that matched an ignore
// rule: Content-Type becomes text/css and the marker header is set,
// overwriting any previous marker (deterministic on re-tag). Body and
// status line are left untouched.
func TagResponse(resp *http.Response) *http.Response {
	if resp == nil {
		return nil
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Header.Set("Content-Type", TaggedContentType)
	resp.Header.Set(MarkerHeader, MarkerValue)
	return resp
}
