// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/skill-research/internal/search"
	"github.com/pdiddy/skill-research/pkg/types"
)

// fakeSearcher scripts one PassResult per pass and records call order.
type fakeSearcher struct {
	results  []search.PassResult
	passes   int
	examples int
}

func (f *fakeSearcher) RunPass(_ context.Context, state *types.ResearchState) search.PassResult {
	r := search.PassResult{}
	if f.passes < len(f.results) {
		r = f.results[f.passes]
	}
	f.passes++
	state.Iteration++
	state.Resources = append(state.Resources, types.Resource{
		Title: fmt.Sprintf("resource %d", f.passes),
		URL:   fmt.Sprintf("https://r%d.com", f.passes),
	})
	return r
}

func (f *fakeSearcher) SearchExamples(_ context.Context, state *types.ResearchState) {
	f.examples++
	state.Examples = append(state.Examples, types.GitHubExample{
		Name: "example", URL: "https://github.com/org/example",
	})
}

type fakeEvaluator struct{ calls int }

func (f *fakeEvaluator) Evaluate(_ context.Context, state *types.ResearchState) ([]types.ScoredResource, types.ConfidenceBreakdown) {
	f.calls++
	var scored []types.ScoredResource
	for _, r := range state.Resources {
		scored = append(scored, types.ScoredResource{Resource: r, Score: 0.65})
	}
	return scored, types.ConfidenceBreakdown{Overall: 0.7}
}

type fakeSynthesizer struct{ calls int }

func (f *fakeSynthesizer) Synthesize(_ context.Context, state *types.ResearchState) {
	f.calls++
	state.Recommendations = []types.Recommendation{{
		Type: types.RecAction, Title: "practice", Description: "x", Priority: types.PriorityHigh,
	}}
}

type fakeSeeder struct {
	seed types.ResearchState
	err  error
}

func (f *fakeSeeder) Seed(_ context.Context, state *types.ResearchState) error {
	if f.err != nil {
		return f.err
	}
	state.FocusSkills = f.seed.FocusSkills
	state.Queries = f.seed.Queries
	state.Resources = f.seed.Resources
	state.Recommendations = f.seed.Recommendations
	return nil
}

func newController(s *fakeSearcher) (*Controller, *fakeEvaluator, *fakeSynthesizer) {
	e := &fakeEvaluator{}
	syn := &fakeSynthesizer{}
	return &Controller{Searcher: s, Evaluator: e, Synthesizer: syn}, e, syn
}

func TestNextTransitions(t *testing.T) {
	tests := []struct {
		name   string
		state  State
		result NodeResult
		want   State
	}{
		{"load to build", StateLoadContext, NodeResult{}, StateBuildQueries},
		{"build to search", StateBuildQueries, NodeResult{}, StateSearch},
		{"search loops below target", StateSearch,
			NodeResult{Pass: 1, MaxPasses: 3, BelowTarget: true}, StateSearch},
		{"search stops at target", StateSearch,
			NodeResult{Pass: 1, MaxPasses: 3, BelowTarget: false}, StateSearchGitHub},
		{"search stops at pass cap", StateSearch,
			NodeResult{Pass: 3, MaxPasses: 3, BelowTarget: true}, StateSearchGitHub},
		{"search stops on rate limit", StateSearch,
			NodeResult{Pass: 1, MaxPasses: 3, BelowTarget: true, RateLimited: true}, StateSearchGitHub},
		{"default pass cap applies", StateSearch,
			NodeResult{Pass: 3, BelowTarget: true}, StateSearchGitHub},
		{"github to evaluate", StateSearchGitHub, NodeResult{}, StateEvaluate},
		{"evaluate to synthesize", StateEvaluate, NodeResult{}, StateSynthesize},
		{"synthesize to done", StateSynthesize, NodeResult{}, StateDone},
		{"done is terminal", StateDone, NodeResult{}, StateDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.state, tt.result))
		})
	}
}

func TestRunRequiresSkillGap(t *testing.T) {
	c, _, _ := newController(&fakeSearcher{})

	err := c.Run(context.Background(), &types.ResearchState{})
	require.ErrorIs(t, err, ErrMissingSkillGap)

	err = c.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrMissingSkillGap)
}

func TestRunCompletesAllStages(t *testing.T) {
	s := &fakeSearcher{}
	c, e, syn := newController(s)
	state := &types.ResearchState{SkillGap: "testing", Language: "go"}

	require.NoError(t, c.Run(context.Background(), state))

	assert.NotEmpty(t, state.Queries, "queries built before search")
	assert.Equal(t, 1, s.passes, "single pass when at target")
	assert.Equal(t, 1, s.examples)
	assert.Equal(t, 1, e.calls)
	assert.Equal(t, 1, syn.calls)
	assert.NotEmpty(t, state.Evaluated)
	assert.NotEmpty(t, state.Recommendations)
}

func TestRunTerminatesWithinPassCap(t *testing.T) {
	// Provider never reaches the target; the run must still stop at the cap.
	s := &fakeSearcher{results: []search.PassResult{
		{BelowTarget: true}, {BelowTarget: true}, {BelowTarget: true},
		{BelowTarget: true}, {BelowTarget: true},
	}}
	c, _, _ := newController(s)
	c.MaxPasses = 3

	state := &types.ResearchState{SkillGap: "testing"}
	require.NoError(t, c.Run(context.Background(), state))

	assert.Equal(t, 3, s.passes)
	assert.Equal(t, 3, state.Iteration)
}

func TestRunHaltsPassesOnRateLimit(t *testing.T) {
	s := &fakeSearcher{results: []search.PassResult{
		{BelowTarget: true, RateLimited: true},
	}}
	c, e, syn := newController(s)
	c.MaxPasses = 3

	state := &types.ResearchState{SkillGap: "testing"}
	require.NoError(t, c.Run(context.Background(), state))

	assert.Equal(t, 1, s.passes, "rate limit halts further passes")
	assert.Equal(t, 1, e.calls, "pipeline still evaluates what it has")
	assert.Equal(t, 1, syn.calls)
}

func TestRunClearsSeededDerivedState(t *testing.T) {
	seeder := &fakeSeeder{seed: types.ResearchState{
		FocusSkills: []types.FocusSkill{{Name: "unit testing", Gap: 2, Priority: types.PriorityHigh}},
		Queries:     []string{"seeded query"},
		Resources:   []types.Resource{{Title: "stale", URL: "https://stale.com"}},
		Recommendations: []types.Recommendation{{
			Type: types.RecAction, Title: "stale rec", Description: "x", Priority: types.PriorityLow,
		}},
	}}
	s := &fakeSearcher{}
	c, _, _ := newController(s)
	c.Seeder = seeder

	state := &types.ResearchState{SkillGap: "testing"}
	require.NoError(t, c.Run(context.Background(), state))

	// Seed inputs survive; cached results do not.
	assert.NotEmpty(t, state.FocusSkills)
	assert.Contains(t, state.Queries, "seeded query")
	for _, r := range state.Resources {
		assert.NotEqual(t, "stale", r.Title, "seeded resources must be cleared before the run")
	}
	for _, r := range state.Recommendations {
		assert.NotEqual(t, "stale rec", r.Title)
	}
}

func TestRunSeederErrorAborts(t *testing.T) {
	boom := errors.New("database locked")
	s := &fakeSearcher{}
	c, e, _ := newController(s)
	c.Seeder = &fakeSeeder{err: boom}

	err := c.Run(context.Background(), &types.ResearchState{SkillGap: "testing"})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, s.passes)
	assert.Zero(t, e.calls)
}

func TestResearchAllRunsEveryGap(t *testing.T) {
	build := func() *Controller {
		c, _, _ := newController(&fakeSearcher{})
		return c
	}

	states := []*types.ResearchState{
		{SkillGap: "testing"},
		{SkillGap: "concurrency"},
		{SkillGap: "profiling"},
	}
	require.NoError(t, ResearchAll(context.Background(), build, states))

	for _, state := range states {
		assert.NotEmpty(t, state.Recommendations, "gap %q incomplete", state.SkillGap)
	}
}

func TestResearchAllPropagatesError(t *testing.T) {
	build := func() *Controller {
		c, _, _ := newController(&fakeSearcher{})
		return c
	}

	states := []*types.ResearchState{
		{SkillGap: "testing"},
		{}, // missing skill gap
	}
	err := ResearchAll(context.Background(), build, states)
	require.ErrorIs(t, err, ErrMissingSkillGap)
}
