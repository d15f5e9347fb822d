package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiVersion is the GitHub REST API version the installer speaks.
const apiVersion = "2022-11-28"

// lookupTimeout bounds one release index query. Index responses are
// small; anything slower is effectively down.
const lookupTimeout = 30 * time.Second

// LookupError reports a failed release resolution. It is fatal: the
// installer cannot proceed without knowing which assets exist.
type LookupError struct {
	Repo       string // "owner/name"
	Selector   string // "latest" or the requested tag
	StatusCode int    // zero when the request never completed
	Message    string
	Err        error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("release lookup %s@%s: %s", e.Repo, e.Selector, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Client queries a GitHub-style release API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
}

// NewClient creates a release client for the given API base. An empty
// token means unauthenticated requests, which is fine for public
// repositories.
func NewClient(baseURL, token, installerVersion string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: lookupTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		userAgent:  "pdfcat-install/" + installerVersion,
	}
}

// Token returns the bearer credential the client was built with, so
// the asset download can authenticate the same way the lookup did.
func (c *Client) Token() string {
	return c.token
}

// UserAgent returns the User-Agent header value for this client.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Resolve fetches the release named by selector, or the newest
// release when selector is Latest. The failure mode is always a
// *LookupError; there is no retry.
func (c *Client) Resolve(ctx context.Context, owner, repo, selector string) (*Release, error) {
	slug := owner + "/" + repo
	endpoint := c.baseURL + "/repos/" + slug + "/releases/latest"
	if selector != Latest {
		endpoint = c.baseURL + "/repos/" + slug + "/releases/tags/" + selector
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &LookupError{Repo: slug, Selector: selector, Message: "building request", Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &LookupError{Repo: slug, Selector: selector, Message: "contacting release index", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &LookupError{
			Repo:       slug,
			Selector:   selector,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("index returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, &LookupError{Repo: slug, Selector: selector, StatusCode: resp.StatusCode, Message: "decoding release", Err: err}
	}
	if rel.TagName == "" {
		return nil, &LookupError{Repo: slug, Selector: selector, StatusCode: resp.StatusCode, Message: "release record has no tag name"}
	}
	return &rel, nil
}
