// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/skill-research/internal/httputil"
	"github.com/pdiddy/skill-research/pkg/types"
)

// tavilyAPIBase is the Tavily search endpoint. Declared as a var so tests
// can substitute an httptest server.
var tavilyAPIBase = "https://api.tavily.com/search"

// Category is a search hint derived from textual signals in the skill gap
// and user context. Repository-flavored runs steer the provider toward
// code-hosting results.
type Category string

const (
	CategoryGeneral    Category = "general-research"
	CategoryRepository Category = "repository-search"
)

// repositorySignals are substrings that mark a run as repository-flavored.
var repositorySignals = []string{"github", "repository", "repositories", "open source", "open-source"}

// ClassifyCategory inspects free text for repository signals.
func ClassifyCategory(text string) Category {
	lower := strings.ToLower(text)
	for _, sig := range repositorySignals {
		if strings.Contains(lower, sig) {
			return CategoryRepository
		}
	}
	return CategoryGeneral
}

// TavilyProvider queries the Tavily web-search API.
type TavilyProvider struct {
	Client *http.Client
	APIKey string
}

// Name returns the provider identifier recorded in search bookkeeping.
func (p *TavilyProvider) Name() string { return "tavily" }

// tavilyRequest is the request body for the Tavily search API.
type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

// tavilyResponse is the response body from the Tavily search API.
type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Search issues one query and maps results onto Resources. A repository
// category restricts results to code-hosting domains.
func (p *TavilyProvider) Search(ctx context.Context, query string, limit int, category Category) ([]types.Resource, error) {
	if limit <= 0 {
		limit = 10
	}

	reqBody := tavilyRequest{
		APIKey:      p.APIKey,
		Query:       query,
		MaxResults:  limit,
		SearchDepth: "basic",
	}
	if category == CategoryRepository {
		reqBody.IncludeDomains = []string{"github.com", "gitlab.com"}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIBase, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Tavily API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Tavily API returned HTTP %d", resp.StatusCode)
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("parsing Tavily response: %w", err)
	}

	var results []types.Resource
	for _, r := range tr.Results {
		snippet := r.Content
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		results = append(results, types.Resource{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Content,
			Snippet:     snippet,
			Provider:    types.ProviderWebSearch,
		})
	}
	return results, nil
}
