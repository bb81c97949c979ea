// Package hostapi is the HTTP client for the host web proxy's
// scope-exclusion API. The core only sees it through the ScopeExcluder
// and ExclusionLister interfaces.
package hostapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"vanisher/logger"

	"github.com/tidwall/gjson"
)

// Client talks to the host proxy's scope API. The shape of the host's
// exclusion-list response is not fixed, so the patterns are extracted
// with a configurable gjson path.
type Client struct {
	baseURL      string
	excludePath  string
	listPath     string
	patternsPath string
	authToken    string
	httpClient   *http.Client
}

func New(baseURL, excludePath, listPath, patternsPath, authToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		excludePath:  excludePath,
		listPath:     listPath,
		patternsPath: patternsPath,
		authToken:    authToken,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type excludeRequest struct {
	Pattern string `json:"pattern"`
}

// ExcludeFromScope asks the host proxy to add the URL pattern to its
// scope-exclusion list. A conflict response means the pattern is
// already excluded and is treated as success: repeats must be no-ops.
func (c *Client) ExcludeFromScope(urlString string) error {
	body, err := json.Marshal(excludeRequest{Pattern: urlString})
	if err != nil {
		return fmt.Errorf("marshalling exclusion request for %s: %w", urlString, err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+c.excludePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating exclusion request for %s: %w", urlString, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("host exclusion call for %s: %w", urlString, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		logger.Debug("Host scope API excluded %s", urlString)
		return nil
	case resp.StatusCode == http.StatusConflict:
		logger.Debug("Host scope API already excludes %s", urlString)
		return nil
	default:
		return fmt.Errorf("host exclusion call for %s returned status %d", urlString, resp.StatusCode)
	}
}

// ListExclusions fetches the host proxy's current scope-exclusion list
// and extracts the patterns via the configured gjson path.
func (c *Client) ListExclusions() ([]string, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+c.listPath, nil)
	if err != nil {
		return nil, fmt.Errorf("creating exclusion list request: %w", err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching host exclusion list: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading host exclusion list response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("host exclusion list returned status %d", resp.StatusCode)
	}

	result := gjson.GetBytes(body, c.patternsPath)
	if !result.Exists() {
		// Fall back to the root when the host returns a plain array.
		root := gjson.ParseBytes(body)
		if !root.IsArray() {
			return nil, fmt.Errorf("no exclusion patterns found at path %q in host response", c.patternsPath)
		}
		result = root
	}

	var patterns []string
	result.ForEach(func(_, value gjson.Result) bool {
		if s := value.String(); s != "" {
			patterns = append(patterns, s)
		}
		return true
	})
	return patterns, nil
}
