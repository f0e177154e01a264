// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scrape fetches markdown content for candidate resources and
// produces bounded summaries, key points, and an audience label. The
// summary comes from the generation backend when one is configured and
// falls back to deterministic heuristics otherwise.
// See docs/ARCHITECTURE.md § Scraping.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/skill-research/internal/ai"
	"github.com/pdiddy/skill-research/internal/httputil"
	"github.com/pdiddy/skill-research/pkg/types"
)

// readerAPIBase is the markdown reader endpoint; the target URL is
// appended. Declared as a var so tests can substitute an httptest server.
var readerAPIBase = "https://r.jina.ai/"

const (
	defaultTimeout      = 8 * time.Second
	defaultContentChars = 12000
	maxKeyPoints        = 5
	snippetChars        = 300
	summaryChars        = 600
)

// Service fetches and summarizes resources. A nil AI backend routes every
// summary through the heuristic path.
type Service struct {
	Client     *http.Client
	AI         ai.Backend
	Cfg        types.ScrapeConfig
	MaxRetries int
}

// summarySystem frames the summarizer.
const summarySystem = "You summarize technical learning material for engineers choosing what to study. Respond only with JSON."

var summaryPromptTmpl = template.Must(template.New("summary").Parse(`Summarize the following learning resource.

Respond with a JSON object:
{"summary": "2-3 sentences", "key_points": ["up to 5 short points"], "audience": "beginner|intermediate|advanced"}

Do not include any text outside the JSON object.

Content:
{{.Content}}
`))

// summaryResponse is the schema expected from the summarizer.
type summaryResponse struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Audience  string   `json:"audience"`
}

// Scrape fetches one resource with the configured timeout, truncates the
// content, and attaches a summary. A timeout or fetch failure is a
// resource-level error: the caller skips the resource and continues.
func (s *Service) Scrape(ctx context.Context, res types.Resource) (types.ScrapedResource, error) {
	timeout := s.Cfg.ScrapeTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxChars := s.Cfg.MaxContentChars
	if maxChars <= 0 {
		maxChars = defaultContentChars
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	content, err := s.fetch(ctx, res.URL)
	if err != nil {
		return types.ScrapedResource{}, err
	}

	content = truncate(content, maxChars)

	sr := types.ScrapedResource{
		URL:       res.URL,
		Content:   content,
		Snippet:   truncate(content, snippetChars),
		ScrapedAt: time.Now().UTC(),
		Provider:  types.ProviderScrape,
	}

	summary, keyPoints, audience := s.summarize(ctx, content)
	sr.Summary = summary
	sr.KeyPoints = keyPoints
	sr.Audience = audience

	return sr, nil
}

// fetch retrieves markdown content through the reader endpoint.
func (s *Service) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, readerAPIBase+rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/markdown")
	if s.Cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.Cfg.UserAgent)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 1)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return string(body), nil
}

// summarize produces summary, key points, and audience via the generation
// backend, or heuristically when the backend is absent or its response
// fails validation.
func (s *Service) summarize(ctx context.Context, content string) (string, []string, string) {
	if s.AI != nil {
		var buf bytes.Buffer
		if err := summaryPromptTmpl.Execute(&buf, struct{ Content string }{content}); err == nil {
			raw, err := ai.CompleteWithRetry(ctx, s.AI, summarySystem, buf.String(), s.MaxRetries)
			if err == nil {
				var resp summaryResponse
				if err := ai.DecodeJSON(raw, &resp); err == nil && resp.Summary != "" {
					if len(resp.KeyPoints) > maxKeyPoints {
						resp.KeyPoints = resp.KeyPoints[:maxKeyPoints]
					}
					if !types.SkillLevel(resp.Audience).Valid() {
						resp.Audience = heuristicAudience(content)
					}
					return truncate(resp.Summary, summaryChars), resp.KeyPoints, resp.Audience
				}
			}
		}
	}

	return heuristicSummary(content), heuristicKeyPoints(content), heuristicAudience(content)
}

// heuristicSummary returns the first substantial paragraph, bounded.
func heuristicSummary(content string) string {
	for _, para := range strings.Split(content, "\n\n") {
		p := strings.TrimSpace(para)
		if p == "" || strings.HasPrefix(p, "#") || strings.HasPrefix(p, "```") {
			continue
		}
		if len(p) >= 40 {
			return truncate(strings.Join(strings.Fields(p), " "), summaryChars)
		}
	}
	return truncate(strings.Join(strings.Fields(content), " "), summaryChars)
}

// heuristicKeyPoints collects up to 5 headings or list items.
func heuristicKeyPoints(content string) []string {
	var points []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		var point string
		switch {
		case strings.HasPrefix(trimmed, "## "), strings.HasPrefix(trimmed, "### "):
			point = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			point = strings.TrimSpace(trimmed[2:])
		}
		if point == "" || len(point) < 4 {
			continue
		}
		points = append(points, truncate(point, 120))
		if len(points) >= maxKeyPoints {
			break
		}
	}
	return points
}

// beginnerSignals and advancedSignals drive the audience heuristic.
var (
	beginnerSignals = []string{"introduction", "getting started", "beginner", "basics", "first steps", "what is"}
	advancedSignals = []string{"advanced", "internals", "deep dive", "optimization", "performance tuning", "under the hood"}
)

// heuristicAudience labels the content's likely audience from keyword
// signals, defaulting to intermediate.
func heuristicAudience(content string) string {
	lower := strings.ToLower(truncate(content, 2000))

	beginner, advanced := 0, 0
	for _, sig := range beginnerSignals {
		beginner += strings.Count(lower, sig)
	}
	for _, sig := range advancedSignals {
		advanced += strings.Count(lower, sig)
	}

	switch {
	case beginner > advanced:
		return string(types.LevelBeginner)
	case advanced > beginner:
		return string(types.LevelAdvanced)
	default:
		return string(types.LevelIntermediate)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
