// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize combines evaluated resources, GitHub examples, and
// scraped summaries into typed recommendations, comparative insights, and
// a staged learning path. One structured-output call produces all three
// collections; deterministic generators backfill whatever fails
// validation or falls short. See docs/ARCHITECTURE.md § Synthesis.
package synthesize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/pdiddy/skill-research/internal/ai"
	"github.com/pdiddy/skill-research/internal/dedupe"
	"github.com/pdiddy/skill-research/pkg/types"
)

const (
	defaultMaxRecommendations = 6
	defaultMinRecommendations = 5
	defaultMaxPathSteps       = 6

	quotaResource = 3
	quotaExample  = 2
	quotaAction   = 2

	contextResources = 5
	contextExamples  = 5
)

// synthesisSystem frames the synthesizer.
const synthesisSystem = "You design learning plans from researched resources. Ground every item in the provided material. Respond only with JSON."

var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`Build a learning plan for the skill "{{.Skill}}"{{if .Language}} using {{.Language}} specifically — keep every recommendation and step {{.Language}}-focused{{end}}.

Respond with a JSON object:
{"recommendations": [{"type": "resource|example|action", "title": "...", "description": "...", "url": "...", "priority": "high|medium|low"}],
 "insights": [{"title": "...", "insight": "...", "supporting_urls": ["..."], "confidence": "low|medium|high"}],
 "learning_path": [{"title": "...", "description": "...", "difficulty": "beginner|intermediate|advanced", "estimated_hours": 0, "resource_url": "..."}]}

Produce 5-6 recommendations, 2-3 comparative insights about trade-offs between the resources, and a 4-6 step learning path. Do not include any text outside the JSON object.

Top resources:
{{range .Resources}}- {{.Title}} ({{.URL}}, score {{printf "%.2f" .Score}}){{if .Summary}} — {{.Summary}}{{end}}
{{end}}
{{if .Examples}}Example repositories:
{{range .Examples}}- {{.Name}} ({{.URL}}, {{.Stars}} stars) — {{.Description}}
{{end}}{{end}}
{{if .Scraped}}Scraped notes:
{{range .Scraped}}- {{.URL}}: {{.Summary}}
{{end}}{{end}}`))

// synthesisResponse is the schema expected from the synthesis call.
type synthesisResponse struct {
	Recommendations []recommendationEntry `json:"recommendations"`
	Insights        []insightEntry        `json:"insights"`
	LearningPath    []pathEntry           `json:"learning_path"`
}

type recommendationEntry struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Priority    string `json:"priority"`
}

type insightEntry struct {
	Title          string   `json:"title"`
	Insight        string   `json:"insight"`
	SupportingURLs []string `json:"supporting_urls"`
	Confidence     string   `json:"confidence"`
}

type pathEntry struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Difficulty     string  `json:"difficulty"`
	EstimatedHours float64 `json:"estimated_hours"`
	ResourceURL    string  `json:"resource_url"`
}

// Synthesizer produces the final caller-facing collections. A nil Backend
// routes everything through the deterministic generators.
type Synthesizer struct {
	Backend ai.Backend
	Cfg     types.SynthesisConfig
	W       io.Writer
}

// Synthesize fills state's recommendations, insights, and learning path.
// It never fails: generation errors degrade to deterministic output.
func (s *Synthesizer) Synthesize(ctx context.Context, state *types.ResearchState) {
	maxRecs := s.Cfg.MaxRecommendations
	if maxRecs <= 0 {
		maxRecs = defaultMaxRecommendations
	}
	minRecs := s.Cfg.MinRecommendations
	if minRecs <= 0 {
		minRecs = defaultMinRecommendations
	}

	resp := s.generate(ctx, state)

	recs := validateRecommendations(resp.Recommendations)
	insights := validateInsights(resp.Insights)
	path := validatePath(resp.LearningPath)

	// Backfill recommendations from the deterministic generator when the
	// validated set falls short, without duplicating titles.
	if len(recs) < minRecs {
		recs = backfill(recs, fallbackRecommendations(state), minRecs+1)
	}
	recs = applyQuota(recs, maxRecs)

	if len(insights) == 0 {
		insights = fallbackInsights(state)
	}

	// A known skill level always overrides the generated path with the
	// deterministic adaptive one.
	maxSteps := s.Cfg.MaxPathSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxPathSteps
	}
	if state.SkillLevel.Valid() {
		path = AdaptivePath(state, maxSteps)
	} else if len(path) == 0 {
		fallbackState := *state
		fallbackState.SkillLevel = types.LevelBeginner
		path = AdaptivePath(&fallbackState, maxSteps)
	}
	if len(path) > maxSteps {
		path = path[:maxSteps]
	}
	renumber(path)

	state.Recommendations = recs
	state.Insights = insights
	state.LearningPath = path
}

// generate performs the single structured synthesis call. Failures return
// an empty response so every collection falls back deterministically.
func (s *Synthesizer) generate(ctx context.Context, state *types.ResearchState) synthesisResponse {
	if s.Backend == nil {
		return synthesisResponse{}
	}

	topResources := state.Evaluated
	if len(topResources) > contextResources {
		topResources = topResources[:contextResources]
	}
	topExamples := state.Examples
	if len(topExamples) > contextExamples {
		topExamples = topExamples[:contextExamples]
	}

	var buf bytes.Buffer
	err := synthesisPromptTmpl.Execute(&buf, struct {
		Skill     string
		Language  string
		Resources []types.ScoredResource
		Examples  []types.GitHubExample
		Scraped   []types.ScrapedResource
	}{state.SkillGap, state.Language, topResources, topExamples, state.Scraped})
	if err != nil {
		s.warnf("warning: synthesis prompt failed: %v\n", err)
		return synthesisResponse{}
	}

	raw, err := ai.CompleteWithRetry(ctx, s.Backend, synthesisSystem, buf.String(), s.Cfg.MaxRetries)
	if err != nil {
		s.warnf("warning: synthesis call failed: %v\n", err)
		return synthesisResponse{}
	}

	var resp synthesisResponse
	if err := ai.DecodeJSON(raw, &resp); err != nil {
		s.warnf("warning: synthesis response invalid: %v\n", err)
		return synthesisResponse{}
	}
	return resp
}

// validateRecommendations keeps entries with a known type, a title, a
// description, and a known priority. URL stays optional.
func validateRecommendations(entries []recommendationEntry) []types.Recommendation {
	var out []types.Recommendation
	for _, e := range entries {
		t := types.RecommendationType(e.Type)
		if t != types.RecResource && t != types.RecExample && t != types.RecAction {
			continue
		}
		p := types.Priority(e.Priority)
		if p != types.PriorityHigh && p != types.PriorityMedium && p != types.PriorityLow {
			continue
		}
		if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Description) == "" {
			continue
		}
		out = append(out, types.Recommendation{
			Type:        t,
			Title:       e.Title,
			Description: e.Description,
			URL:         e.URL,
			Priority:    p,
		})
	}
	return out
}

// validateInsights keeps entries with a title, insight text, and at least
// one supporting URL. Unknown confidence degrades to low.
func validateInsights(entries []insightEntry) []types.ComparativeInsight {
	var out []types.ComparativeInsight
	for _, e := range entries {
		if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Insight) == "" {
			continue
		}
		var urls []string
		for _, u := range e.SupportingURLs {
			if _, ok := dedupe.NormalizeURL(u); ok {
				urls = append(urls, u)
			}
		}
		if len(urls) == 0 {
			continue
		}
		c := types.InsightConfidence(e.Confidence)
		if c != types.InsightLow && c != types.InsightMedium && c != types.InsightHigh {
			c = types.InsightLow
		}
		out = append(out, types.ComparativeInsight{
			Title:          e.Title,
			Insight:        e.Insight,
			SupportingURLs: urls,
			Confidence:     c,
		})
	}
	return out
}

// validatePath keeps steps with a description and a known difficulty.
func validatePath(entries []pathEntry) []types.LearningPathStep {
	var out []types.LearningPathStep
	for _, e := range entries {
		d := types.Difficulty(e.Difficulty)
		if d != types.DifficultyBeginner && d != types.DifficultyIntermediate && d != types.DifficultyAdvanced {
			continue
		}
		if strings.TrimSpace(e.Description) == "" {
			continue
		}
		title := e.Title
		if title == "" {
			title = e.Description
		}
		out = append(out, types.LearningPathStep{
			Title:          title,
			Description:    e.Description,
			Difficulty:     d,
			EstimatedHours: e.EstimatedHours,
			ResourceURL:    e.ResourceURL,
		})
	}
	return out
}

// fallbackRecommendations builds the deterministic recommendation pool:
// top resources, top examples, and two fixed actions.
func fallbackRecommendations(state *types.ResearchState) []types.Recommendation {
	var out []types.Recommendation

	for i, sr := range state.Evaluated {
		if i >= quotaResource {
			break
		}
		priority := types.PriorityMedium
		if i == 0 {
			priority = types.PriorityHigh
		}
		desc := sr.Summary
		if desc == "" {
			desc = sr.Description
		}
		if desc == "" {
			desc = fmt.Sprintf("Highly ranked resource for %s.", state.SkillGap)
		}
		out = append(out, types.Recommendation{
			Type:        types.RecResource,
			Title:       sr.Title,
			Description: desc,
			URL:         sr.URL,
			Priority:    priority,
		})
	}

	for i, ex := range state.Examples {
		if i >= quotaExample {
			break
		}
		out = append(out, types.Recommendation{
			Type:        types.RecExample,
			Title:       ex.Name,
			Description: fmt.Sprintf("Study this repository (%d stars) as a reference implementation.", ex.Stars),
			URL:         ex.URL,
			Priority:    types.PriorityMedium,
		})
	}

	skill := state.SkillGap
	if skill == "" {
		skill = "the target skill"
	}
	out = append(out,
		types.Recommendation{
			Type:        types.RecAction,
			Title:       fmt.Sprintf("Build a small project using %s", skill),
			Description: fmt.Sprintf("Apply %s in a scoped project to convert reading into working knowledge.", skill),
			Priority:    types.PriorityHigh,
		},
		types.Recommendation{
			Type:        types.RecAction,
			Title:       "Schedule weekly practice sessions",
			Description: "Block recurring time to work through the learning path and review progress.",
			Priority:    types.PriorityMedium,
		},
	)

	return out
}

// backfill appends pool entries to recs until target is reached, skipping
// case-insensitive title duplicates.
func backfill(recs, pool []types.Recommendation, target int) []types.Recommendation {
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		seen[dedupe.NormalizeTitle(r.Title)] = true
	}
	for _, p := range pool {
		if len(recs) >= target {
			break
		}
		key := dedupe.NormalizeTitle(p.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		recs = append(recs, p)
	}
	return recs
}

// applyQuota enforces the hard cap, the per-type quota
// (resource 3, example 2, action 2), and title uniqueness, preserving
// order.
func applyQuota(recs []types.Recommendation, maxRecs int) []types.Recommendation {
	quota := map[types.RecommendationType]int{
		types.RecResource: quotaResource,
		types.RecExample:  quotaExample,
		types.RecAction:   quotaAction,
	}
	seen := make(map[string]bool, len(recs))

	var out []types.Recommendation
	for _, r := range recs {
		if len(out) >= maxRecs {
			break
		}
		if quota[r.Type] <= 0 {
			continue
		}
		key := dedupe.NormalizeTitle(r.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		quota[r.Type]--
		out = append(out, r)
	}
	return out
}

// fallbackInsights derives comparative insights deterministically from the
// evaluated set.
func fallbackInsights(state *types.ResearchState) []types.ComparativeInsight {
	var out []types.ComparativeInsight

	if len(state.Evaluated) >= 2 {
		a, b := state.Evaluated[0], state.Evaluated[1]
		out = append(out, types.ComparativeInsight{
			Title: "Top resources compared",
			Insight: fmt.Sprintf("%q scored %.2f against %q at %.2f; start with the former and use the latter for a second perspective.",
				a.Title, a.Score, b.Title, b.Score),
			SupportingURLs: []string{a.URL, b.URL},
			Confidence:     types.InsightMedium,
		})
	}

	if len(state.Examples) > 0 && len(state.Evaluated) > 0 {
		out = append(out, types.ComparativeInsight{
			Title: "Reading versus reference code",
			Insight: fmt.Sprintf("Pair %q with the %s repository: the resource explains the concepts, the code shows them applied.",
				state.Evaluated[0].Title, state.Examples[0].Name),
			SupportingURLs: []string{state.Evaluated[0].URL, state.Examples[0].URL},
			Confidence:     types.InsightLow,
		})
	}

	return out
}

// renumber assigns 1-based step order.
func renumber(path []types.LearningPathStep) {
	for i := range path {
		path[i].Order = i + 1
	}
}

func (s *Synthesizer) warnf(format string, args ...any) {
	if s.W != nil {
		fmt.Fprintf(s.W, format, args...)
	}
}
