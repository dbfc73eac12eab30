// Package sefaria fetches passages and index metadata from the Sefaria API.
package sefaria

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/valpere/sefer/internal/reference"
)

const DefaultBaseURL = "https://www.sefaria.org"

const maxResponseSize = 32 * 1024 * 1024

// FetchError reports a failed request to the Sefaria API.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch from Sefaria API: %s returned status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to fetch from Sefaria API: %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client talks to the Sefaria texts and index endpoints.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type textResponse struct {
	Versions []struct {
		Text json.RawMessage `json:"text"`
	} `json:"versions"`
}

// FetchChapter returns the passages of a chapter in order.
func (c *Client) FetchChapter(ctx context.Context, ref reference.Chapter) ([]string, error) {
	path, err := ref.Ref().URLPath(reference.LevelChapter)
	if err != nil {
		return nil, err
	}
	var passages []string
	if err := c.fetchText(ctx, path, &passages); err != nil {
		return nil, err
	}
	return passages, nil
}

// FetchSection returns every chapter of ref's section.
func (c *Client) FetchSection(ctx context.Context, ref reference.Reference) ([][]string, error) {
	path, err := ref.URLPath(reference.LevelSection)
	if err != nil {
		return nil, err
	}
	var chapters [][]string
	if err := c.fetchText(ctx, path, &chapters); err != nil {
		return nil, err
	}
	return chapters, nil
}

func (c *Client) fetchText(ctx context.Context, path string, out interface{}) error {
	endpoint := fmt.Sprintf("%s/api/v3/texts/%s", c.baseURL, url.PathEscape(path))

	var resp textResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return err
	}
	if len(resp.Versions) == 0 {
		return &FetchError{URL: endpoint, Err: fmt.Errorf("no versions in response")}
	}
	if len(resp.Versions[0].Text) == 0 {
		return &FetchError{URL: endpoint, Err: fmt.Errorf("no text in version")}
	}
	if err := json.Unmarshal(resp.Versions[0].Text, out); err != nil {
		return &FetchError{URL: endpoint, Err: fmt.Errorf("unexpected text shape: %w", err)}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return &FetchError{URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &FetchError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &FetchError{URL: endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	c.logger.Debug("sefaria request", "url", endpoint, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return &FetchError{URL: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(body)))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{URL: endpoint, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

var imgTagRe = regexp.MustCompile(`<img[^>]+>`)

// CleanText removes embedded image tags from a passage.
func CleanText(s string) string {
	return imgTagRe.ReplaceAllString(s, "")
}

// CleanPassages applies CleanText to each passage and returns a new slice.
func CleanPassages(passages []string) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = CleanText(p)
	}
	return out
}

// JoinPassages cleans passages and separates them with blank lines.
func JoinPassages(passages []string) string {
	return strings.Join(CleanPassages(passages), "\n\n")
}
