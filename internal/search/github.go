// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/skill-research/internal/httputil"
	"github.com/pdiddy/skill-research/pkg/types"
)

// githubAPIBase is the GitHub repository search endpoint. Declared as a var
// so tests can substitute an httptest server.
var githubAPIBase = "https://api.github.com/search/repositories"

// GitHubProvider queries the GitHub repository search API for example
// repositories matching a skill.
type GitHubProvider struct {
	Client *http.Client
	Token  string
}

// Name returns the provider identifier recorded in search bookkeeping.
func (p *GitHubProvider) Name() string { return "github" }

// githubSearchResponse is the response body from the repository search API.
type githubSearchResponse struct {
	Items []githubRepo `json:"items"`
}

type githubRepo struct {
	FullName    string `json:"full_name"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	Stars       int    `json:"stargazers_count"`
	Language    string `json:"language"`
}

// Search returns up to limit example repositories for the query, ordered by
// stars. An optional language narrows the search.
func (p *GitHubProvider) Search(ctx context.Context, query, language string, limit int) ([]types.GitHubExample, error) {
	if limit <= 0 {
		limit = 5
	}

	q := query
	if language != "" {
		q = fmt.Sprintf("%s language:%s", query, language)
	}

	params := url.Values{
		"q":        {q},
		"sort":     {"stars"},
		"order":    {"desc"},
		"per_page": {fmt.Sprintf("%d", limit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("GitHub API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("GitHub API: rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned HTTP %d", resp.StatusCode)
	}

	var gr githubSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("parsing GitHub response: %w", err)
	}

	var examples []types.GitHubExample
	for _, repo := range gr.Items {
		if len(examples) >= limit {
			break
		}
		examples = append(examples, types.GitHubExample{
			Name:        repo.FullName,
			URL:         repo.HTMLURL,
			Stars:       repo.Stars,
			Description: repo.Description,
			Language:    repo.Language,
		})
	}
	return examples, nil
}
