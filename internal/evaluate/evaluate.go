// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate scores accumulated resources on five weighted criteria,
// ranks them, and derives the aggregate confidence breakdown. Scoring runs
// as one batched structured-output call; when the backend is absent or the
// response fails validation every resource receives fixed neutral
// defaults. See docs/ARCHITECTURE.md § Evaluation.
package evaluate

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"text/template"

	"github.com/pdiddy/skill-research/internal/ai"
	"github.com/pdiddy/skill-research/internal/dedupe"
	"github.com/pdiddy/skill-research/pkg/types"
)

// Criterion weights. They must sum to 1.0; composite scores stay in [0,1].
const (
	weightRelevance         = 0.35
	weightAuthority         = 0.20
	weightRecency           = 0.15
	weightComprehensiveness = 0.20
	weightPracticality      = 0.10
)

// Neutral defaults applied when scoring is unavailable or schema-invalid.
var neutralScores = types.CriteriaScores{
	Relevance:         0.7,
	Authority:         0.6,
	Recency:           0.7,
	Comprehensiveness: 0.6,
	Practicality:      0.6,
}

const defaultTopN = 10

// evaluationSystem frames the scorer.
const evaluationSystem = "You assess the quality of technical learning resources. Respond only with JSON."

var evaluationPromptTmpl = template.Must(template.New("evaluation").Parse(`Score each resource below for a learner studying "{{.Skill}}"{{if .Language}} with {{.Language}}{{end}}.

Criteria, each in [0,1]:
- relevance: how directly the resource addresses the skill
- authority: credibility of the source
- recency: how current the material is
- comprehensiveness: depth and coverage
- practicality: hands-on applicability

Respond with a JSON object:
{"evaluations": [{"url": "...", "relevance": 0.0, "authority": 0.0, "recency": 0.0, "comprehensiveness": 0.0, "practicality": 0.0, "recency_label": "current|recent|dated"}]}

Include one entry per resource, keyed by its exact URL. Do not include any text outside the JSON object.

Resources:
{{range .Resources}}- {{.Title}} — {{.URL}}{{if .Description}} — {{.Description}}{{end}}
{{end}}`))

// evaluationResponse is the schema expected from the scoring call.
type evaluationResponse struct {
	Evaluations []evaluationEntry `json:"evaluations"`
}

type evaluationEntry struct {
	URL               string  `json:"url"`
	Relevance         float64 `json:"relevance"`
	Authority         float64 `json:"authority"`
	Recency           float64 `json:"recency"`
	Comprehensiveness float64 `json:"comprehensiveness"`
	Practicality      float64 `json:"practicality"`
	RecencyLabel      string  `json:"recency_label"`
}

// Evaluator scores and ranks resources. A nil Backend applies neutral
// defaults to every resource without any generation call.
type Evaluator struct {
	Backend ai.Backend
	Cfg     types.EvaluationConfig
}

// Evaluate returns the top-N scored resources and the confidence breakdown
// for state's accumulated resources. An empty input returns an empty slice
// and zero confidence with an explanatory note, without invoking the
// backend.
func (e *Evaluator) Evaluate(ctx context.Context, state *types.ResearchState) ([]types.ScoredResource, types.ConfidenceBreakdown) {
	resources := state.Resources
	if len(resources) == 0 {
		return nil, types.ConfidenceBreakdown{
			Notes: []string{"no resources were gathered; confidence is zero"},
		}
	}

	topN := e.Cfg.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	criteria, notes := e.scoreAll(ctx, state)

	scored := make([]types.ScoredResource, 0, len(resources))
	for _, res := range resources {
		key, _ := dedupe.NormalizeURL(res.URL)
		cs, ok := criteria[key]
		if !ok {
			cs = scoredCriteria{scores: neutralScores, label: "unknown"}
		}

		composite := Composite(cs.scores)
		sr := types.ScoredResource{
			Resource:     res,
			Score:        composite,
			Stars:        starRating(composite),
			RecencyLabel: cs.label,
			Criteria:     cs.scores,
		}
		if summary := findSummary(state.Scraped, key); summary != "" {
			sr.Summary = summary
		}
		scored = append(scored, sr)
	}

	// Rank descending by composite; ties keep original order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topN {
		scored = scored[:topN]
	}

	breakdown := confidence(scored, notes)
	return scored, breakdown
}

// scoredCriteria pairs criterion scores with the recency label.
type scoredCriteria struct {
	scores types.CriteriaScores
	label  string
}

// scoreAll performs the batched scoring call and returns per-URL criteria.
// Any failure falls back to neutral defaults for every resource.
func (e *Evaluator) scoreAll(ctx context.Context, state *types.ResearchState) (map[string]scoredCriteria, []string) {
	neutral := func(note string) (map[string]scoredCriteria, []string) {
		m := make(map[string]scoredCriteria, len(state.Resources))
		for _, res := range state.Resources {
			if key, ok := dedupe.NormalizeURL(res.URL); ok {
				m[key] = scoredCriteria{scores: neutralScores, label: "unknown"}
			}
		}
		return m, []string{note}
	}

	if e.Backend == nil {
		return neutral("scoring backend not configured; neutral default scores applied")
	}

	var buf bytes.Buffer
	err := evaluationPromptTmpl.Execute(&buf, struct {
		Skill     string
		Language  string
		Resources []types.Resource
	}{state.SkillGap, state.Language, state.Resources})
	if err != nil {
		return neutral(fmt.Sprintf("scoring prompt failed (%v); neutral default scores applied", err))
	}

	raw, err := ai.CompleteWithRetry(ctx, e.Backend, evaluationSystem, buf.String(), e.Cfg.MaxRetries)
	if err != nil {
		return neutral(fmt.Sprintf("scoring call failed (%v); neutral default scores applied", err))
	}

	var resp evaluationResponse
	if err := ai.DecodeJSON(raw, &resp); err != nil {
		return neutral(fmt.Sprintf("scoring response invalid (%v); neutral default scores applied", err))
	}

	m := make(map[string]scoredCriteria, len(resp.Evaluations))
	for _, ev := range resp.Evaluations {
		key, ok := dedupe.NormalizeURL(ev.URL)
		if !ok {
			continue
		}
		m[key] = scoredCriteria{
			scores: types.CriteriaScores{
				Relevance:         clamp01(ev.Relevance),
				Authority:         clamp01(ev.Authority),
				Recency:           clamp01(ev.Recency),
				Comprehensiveness: clamp01(ev.Comprehensiveness),
				Practicality:      clamp01(ev.Practicality),
			},
			label: recencyLabel(ev.RecencyLabel),
		}
	}
	if len(m) == 0 {
		return neutral("scoring response matched no resources; neutral default scores applied")
	}
	return m, nil
}

// Composite returns the weighted sum of the five criteria.
func Composite(c types.CriteriaScores) float64 {
	sum := weightRelevance*c.Relevance +
		weightAuthority*c.Authority +
		weightRecency*c.Recency +
		weightComprehensiveness*c.Comprehensiveness +
		weightPracticality*c.Practicality
	return clamp01(sum)
}

// confidence derives the aggregate breakdown from the evaluated set.
// Overall confidence is min(1.0, mean(top scores) * 1.1); sub-scores are
// per-criterion means across the evaluated resources.
func confidence(scored []types.ScoredResource, notes []string) types.ConfidenceBreakdown {
	if len(scored) == 0 {
		return types.ConfidenceBreakdown{
			Notes: append(notes, "no resources matched evaluation; confidence is zero"),
		}
	}

	var sum, rel, cov, rec, prac float64
	for _, sr := range scored {
		sum += sr.Score
		rel += sr.Criteria.Relevance
		cov += sr.Criteria.Comprehensiveness
		rec += sr.Criteria.Recency
		prac += sr.Criteria.Practicality
	}
	n := float64(len(scored))

	return types.ConfidenceBreakdown{
		Overall:      math.Min(1.0, sum/n*1.1),
		Relevance:    clamp01(rel / n),
		Coverage:     clamp01(cov / n),
		Recency:      clamp01(rec / n),
		Practicality: clamp01(prac / n),
		Notes:        notes,
	}
}

// starRating converts a composite score to a 1-5 star rating.
func starRating(score float64) int {
	stars := int(math.Round(score * 5))
	if stars < 1 {
		stars = 1
	}
	if stars > 5 {
		stars = 5
	}
	return stars
}

// recencyLabel normalizes the model's label to a known value.
func recencyLabel(label string) string {
	switch label {
	case "current", "recent", "dated":
		return label
	default:
		return "unknown"
	}
}

// findSummary returns the scraped summary for a normalized URL, if any.
func findSummary(scraped []types.ScrapedResource, key string) string {
	for _, s := range scraped {
		if k, ok := dedupe.NormalizeURL(s.URL); ok && k == key {
			return s.Summary
		}
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
