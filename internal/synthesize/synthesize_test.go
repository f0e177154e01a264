// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/skill-research/internal/ai"
	"github.com/pdiddy/skill-research/internal/dedupe"
	"github.com/pdiddy/skill-research/pkg/types"
)

type stubAI struct {
	response string
	err      error
	calls    int
}

func (s *stubAI) Complete(_ context.Context, _, _ string) (string, error) {
	s.calls++
	return s.response, s.err
}

func evaluated(n int) []types.ScoredResource {
	var out []types.ScoredResource
	for i := 0; i < n; i++ {
		out = append(out, types.ScoredResource{
			Resource: types.Resource{
				Title:       fmt.Sprintf("Evaluated Resource %d", i),
				URL:         fmt.Sprintf("https://r%d.com/guide", i),
				Description: "a well-ranked guide",
			},
			Score: 0.9 - float64(i)*0.1,
		})
	}
	return out
}

func examples(n int) []types.GitHubExample {
	var out []types.GitHubExample
	for i := 0; i < n; i++ {
		out = append(out, types.GitHubExample{
			Name:  fmt.Sprintf("example-repo-%d", i),
			URL:   fmt.Sprintf("https://github.com/org/example-repo-%d", i),
			Stars: 1000 - i,
		})
	}
	return out
}

func assertRecommendationInvariants(t *testing.T, recs []types.Recommendation) {
	t.Helper()
	if len(recs) > 6 {
		t.Errorf("recommendations = %d, want <= 6", len(recs))
	}
	seen := map[string]bool{}
	counts := map[types.RecommendationType]int{}
	for _, r := range recs {
		key := dedupe.NormalizeTitle(r.Title)
		if seen[key] {
			t.Errorf("duplicate title %q", r.Title)
		}
		seen[key] = true
		counts[r.Type]++
	}
	if counts[types.RecResource] > 3 || counts[types.RecExample] > 2 || counts[types.RecAction] > 2 {
		t.Errorf("per-type counts exceeded: %v", counts)
	}
}

func TestSynthesizeBackfillsToMinimum(t *testing.T) {
	// Two validated recommendations plus 3 resources and 2 examples must
	// backfill to at least 5 without duplicating titles.
	resp := `{"recommendations": [
		{"type": "resource", "title": "Evaluated Resource 0", "description": "already recommended", "priority": "high"},
		{"type": "action", "title": "Pair with a mentor", "description": "find a reviewer", "priority": "medium"}
	]}`
	s := &Synthesizer{Backend: &stubAI{response: resp}}
	state := &types.ResearchState{
		SkillGap:  "testing",
		Evaluated: evaluated(3),
		Examples:  examples(2),
	}

	s.Synthesize(context.Background(), state)

	if len(state.Recommendations) < 5 {
		t.Fatalf("recommendations = %d, want >= 5 after backfill", len(state.Recommendations))
	}
	assertRecommendationInvariants(t, state.Recommendations)

	// The duplicate title from the fallback pool must not appear twice.
	count := 0
	for _, r := range state.Recommendations {
		if dedupe.NormalizeTitle(r.Title) == dedupe.NormalizeTitle("Evaluated Resource 0") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Evaluated Resource 0 appears %d times, want 1", count)
	}
}

func TestSynthesizeFullyDeterministicWithoutBackend(t *testing.T) {
	s := &Synthesizer{}
	state := &types.ResearchState{
		SkillGap:   "testing",
		SkillLevel: types.LevelIntermediate,
		Evaluated:  evaluated(4),
		Examples:   examples(2),
	}

	s.Synthesize(context.Background(), state)

	if len(state.Recommendations) < 5 {
		t.Errorf("recommendations = %d, want >= 5 deterministic", len(state.Recommendations))
	}
	assertRecommendationInvariants(t, state.Recommendations)
	if len(state.Insights) == 0 {
		t.Error("expected deterministic fallback insights")
	}
	for _, in := range state.Insights {
		if len(in.SupportingURLs) == 0 {
			t.Errorf("insight %q has no supporting URLs", in.Title)
		}
	}
	if len(state.LearningPath) == 0 {
		t.Error("expected deterministic learning path")
	}
}

func TestSynthesizeValidationRejectsMalformedEntries(t *testing.T) {
	resp := `{"recommendations": [
		{"type": "bogus", "title": "bad type", "description": "x", "priority": "high"},
		{"type": "resource", "title": "", "description": "no title", "priority": "high"},
		{"type": "resource", "title": "no priority", "description": "x", "priority": "urgent"},
		{"type": "resource", "title": "Good One", "description": "valid", "priority": "high"}
	],
	"insights": [
		{"title": "unsupported", "insight": "no urls", "supporting_urls": [], "confidence": "high"},
		{"title": "supported", "insight": "cites a source", "supporting_urls": ["https://a.com"], "confidence": "nonsense"}
	],
	"learning_path": [
		{"title": "no difficulty", "description": "x", "difficulty": "expert", "estimated_hours": 1},
		{"title": "no description", "description": "", "difficulty": "beginner", "estimated_hours": 1},
		{"title": "ok", "description": "a valid step", "difficulty": "beginner", "estimated_hours": 2}
	]}`
	decoded := mustDecode(t, resp)

	recs := validateRecommendations(decoded.Recommendations)
	if len(recs) != 1 || recs[0].Title != "Good One" {
		t.Errorf("validated recs = %+v, want only Good One", recs)
	}

	insights := validateInsights(decoded.Insights)
	if len(insights) != 1 || insights[0].Title != "supported" {
		t.Fatalf("validated insights = %+v, want only supported", insights)
	}
	if insights[0].Confidence != types.InsightLow {
		t.Errorf("unknown confidence = %q, want degraded to low", insights[0].Confidence)
	}

	path := validatePath(decoded.LearningPath)
	if len(path) != 1 || path[0].Title != "ok" {
		t.Errorf("validated path = %+v, want only ok", path)
	}
}

func mustDecode(t *testing.T, raw string) synthesisResponse {
	t.Helper()
	var resp synthesisResponse
	if err := ai.DecodeJSON(raw, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestSynthesizeQuotaAndCap(t *testing.T) {
	// An oversized valid response must be trimmed to the cap and quotas.
	var entries []string
	for i := 0; i < 5; i++ {
		entries = append(entries, fmt.Sprintf(
			`{"type": "resource", "title": "Resource %d", "description": "x", "priority": "high"}`, i))
	}
	for i := 0; i < 4; i++ {
		entries = append(entries, fmt.Sprintf(
			`{"type": "action", "title": "Action %d", "description": "x", "priority": "low"}`, i))
	}
	resp := fmt.Sprintf(`{"recommendations": [%s]}`, strings.Join(entries, ","))

	s := &Synthesizer{Backend: &stubAI{response: resp}}
	state := &types.ResearchState{SkillGap: "testing"}
	s.Synthesize(context.Background(), state)

	assertRecommendationInvariants(t, state.Recommendations)
}

func TestSynthesizeSkillLevelOverridesGeneratedPath(t *testing.T) {
	resp := `{"learning_path": [
		{"title": "llm step", "description": "from the model", "difficulty": "advanced", "estimated_hours": 99}
	]}`
	s := &Synthesizer{Backend: &stubAI{response: resp}}
	state := &types.ResearchState{
		SkillGap:   "testing",
		SkillLevel: types.LevelBeginner,
	}

	s.Synthesize(context.Background(), state)

	for _, step := range state.LearningPath {
		if step.Title == "llm step" {
			t.Error("generated path survived despite known skill level")
		}
	}
	if len(state.LearningPath) == 0 {
		t.Fatal("expected adaptive path")
	}
	for i, step := range state.LearningPath {
		if step.Order != i+1 {
			t.Errorf("step %d order = %d, want %d", i, step.Order, i+1)
		}
	}
}

func TestAdaptivePathBeginnerLargeGap(t *testing.T) {
	state := &types.ResearchState{
		SkillGap:       "testing",
		SkillLevel:     types.LevelBeginner,
		ProficiencyGap: 2.5,
	}

	path := AdaptivePath(state, 6)
	if len(path) != 4 {
		t.Fatalf("steps = %d, want 4 focus areas (no hands-on for beginners)", len(path))
	}
	if path[0].Difficulty != types.DifficultyBeginner {
		t.Errorf("first step difficulty = %s, want beginner", path[0].Difficulty)
	}
	// First step: base 5 x difficulty 1.0 x beginner level 1.5 = 7.5.
	if path[0].EstimatedHours != 7.5 {
		t.Errorf("first step hours = %v, want 7.5", path[0].EstimatedHours)
	}
	// Beginners never get pushed past intermediate.
	for _, step := range path {
		if step.Difficulty == types.DifficultyAdvanced {
			t.Errorf("step %q is advanced for a beginner", step.Title)
		}
	}
}

func TestAdaptivePathSmallGapSkipsTierUp(t *testing.T) {
	state := &types.ResearchState{
		SkillGap:       "testing",
		SkillLevel:     types.LevelIntermediate,
		ProficiencyGap: 0.5,
	}

	path := AdaptivePath(state, 6)
	for _, step := range path[:4] {
		if step.Difficulty != types.DifficultyAdvanced {
			t.Errorf("step %q difficulty = %s, want advanced (one tier up)", step.Title, step.Difficulty)
		}
	}
}

func TestAdaptivePathHandsOnStep(t *testing.T) {
	state := &types.ResearchState{
		SkillGap:       "testing",
		SkillLevel:     types.LevelIntermediate,
		ProficiencyGap: 1.5,
		Examples:       examples(1),
	}

	path := AdaptivePath(state, 6)
	if len(path) != 5 {
		t.Fatalf("steps = %d, want 4 + hands-on", len(path))
	}
	last := path[len(path)-1]
	if !strings.Contains(last.Title, "example-repo-0") {
		t.Errorf("hands-on title = %q, want reference to top example", last.Title)
	}
	if last.ResourceURL != "https://github.com/org/example-repo-0" {
		t.Errorf("hands-on URL = %q", last.ResourceURL)
	}

	// Beginners never get the hands-on step.
	state.SkillLevel = types.LevelBeginner
	if got := AdaptivePath(state, 6); len(got) != 4 {
		t.Errorf("beginner steps = %d, want 4", len(got))
	}
}

func TestAdaptivePathCap(t *testing.T) {
	state := &types.ResearchState{
		SkillGap:       "testing",
		SkillLevel:     types.LevelAdvanced,
		ProficiencyGap: 1,
		Examples:       examples(1),
	}
	if got := AdaptivePath(state, 4); len(got) != 4 {
		t.Errorf("steps = %d, want capped at 4", len(got))
	}
}

func TestAdaptivePathMatchesResources(t *testing.T) {
	state := &types.ResearchState{
		SkillGap:   "testing",
		SkillLevel: types.LevelBeginner,
		Evaluated: []types.ScoredResource{
			{Resource: types.Resource{
				Title: "Foundation course for testing",
				URL:   "https://courses.com/foundation",
			}},
		},
	}

	path := AdaptivePath(state, 6)
	if path[0].ResourceURL != "https://courses.com/foundation" {
		t.Errorf("first step resource = %q, want keyword-matched URL", path[0].ResourceURL)
	}
}

func TestRoundHours(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.3, 1.5},
		{1.1, 1.0},
		{7.5, 7.5},
		{3.75, 4.0},
		{8.2, 8.0},
		{12.0, 10.0},
		{13.0, 15.0},
		{24.0, 25.0},
	}
	for _, tt := range tests {
		if got := roundHours(tt.in); got != tt.want {
			t.Errorf("roundHours(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
