package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/JakeFAU/linkvault/internal/enrichment"
)

// DefaultGitHubAPI is the public GitHub REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

// GitHub reads repository metadata from the unauthenticated repos endpoint.
type GitHub struct {
	client  *http.Client
	baseURL string
}

// NewGitHub returns the GitHub strategy. An empty baseURL uses the public API.
func NewGitHub(client *http.Client, baseURL string) *GitHub {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultGitHubAPI
	}
	return &GitHub{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Name implements Strategy.
func (g *GitHub) Name() string {
	return "github"
}

type githubRepo struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	Owner       struct {
		AvatarURL string `json:"avatar_url"`
	} `json:"owner"`
}

// Parse implements Strategy. URLs without owner and repo segments yield Empty.
func (g *GitHub) Parse(ctx context.Context, rawURL string) (Outcome, error) {
	owner, repo, ok := repoPath(rawURL)
	if !ok {
		return Empty(), nil
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s", g.baseURL, url.PathEscape(owner), url.PathEscape(repo))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Empty(), fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "linkvault")

	resp, err := g.client.Do(req)
	if err != nil {
		return Empty(), enrichment.ServiceUnavailable("github parse", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Empty(), enrichment.NotFound("github parse", fmt.Sprintf("repository %s/%s not found", owner, repo))
	case resp.StatusCode != http.StatusOK:
		return Empty(), enrichment.ServiceUnavailable("github parse",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var info githubRepo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Empty(), enrichment.ServiceUnavailable("github parse", fmt.Errorf("decode repo: %w", err))
	}
	return Found(enrichment.LinkMetadata{
		Platform:        enrichment.PlatformGitHub,
		Title:           info.FullName,
		Description:     info.Description,
		URL:             info.HTMLURL,
		PreviewImageURL: info.Owner.AvatarURL,
	}), nil
}

// repoPath returns the first two path segments of a GitHub URL.
func repoPath(rawURL string) (string, string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", "", false
	}
	return segments[0], strings.TrimSuffix(segments[1], ".git"), true
}
