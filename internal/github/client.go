// Package github fetches pull request metadata and diffs from the GitHub
// REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/prdiff"
	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/store"
)

var (
	ErrInvalidPRURL = errors.New("invalid GitHub PR URL")
	ErrPRNotFound   = errors.New("pull request not found")
)

var prURLPattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/pull/(\d+)$`)

// ValidPRURL reports whether s looks like a GitHub pull request page URL.
func ValidPRURL(s string) bool {
	return prURLPattern.MatchString(s)
}

// PullRequest carries everything the notify workflow needs from a PR.
type PullRequest struct {
	URL          string
	Title        string
	Body         string
	Diff         string
	ChangedFiles []store.ChangedFileRange
}

// Client talks to the GitHub REST API. The zero value is not usable; use
// NewClient.
type Client struct {
	apiBase string
	token   string
	httpc   *http.Client
}

// NewClient returns a client rooted at apiBase (https://api.github.com in
// production, an httptest server in tests). token may be empty for public
// repositories.
func NewClient(apiBase, token string) *Client {
	return &Client{
		apiBase: apiBase,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// GetPullRequest resolves a PR page URL to its metadata and unified diff,
// with added-line ranges already extracted from the diff.
func (c *Client) GetPullRequest(ctx context.Context, prURL string) (*PullRequest, error) {
	m := prURLPattern.FindStringSubmatch(prURL)
	if m == nil {
		return nil, ErrInvalidPRURL
	}
	owner, repo, number := m[1], m[2], m[3]

	apiURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%s", c.apiBase, owner, repo, number)

	var meta struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	body, err := c.get(ctx, apiURL, "application/vnd.github.v3+json")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode pull request: %w", err)
	}

	diffBody, err := c.get(ctx, apiURL+".diff", "application/vnd.github.v3.diff")
	if err != nil {
		return nil, fmt.Errorf("fetch PR diff: %w", err)
	}
	diffText := string(diffBody)

	changed, err := prdiff.ExtractChangedFiles(diffText)
	if err != nil {
		return nil, fmt.Errorf("extract changed files: %w", err)
	}

	return &PullRequest{
		URL:          prURL,
		Title:        meta.Title,
		Body:         meta.Body,
		Diff:         diffText,
		ChangedFiles: changed,
	}, nil
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPRNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("github API error: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
