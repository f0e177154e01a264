// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the research stages as an explicit finite-state
// machine: load context, build queries, search (looped up to the pass cap),
// GitHub example search, evaluation, synthesis. The transition function is
// pure so the iteration-cap and coverage predicates are unit-testable in
// isolation. See docs/ARCHITECTURE.md § Pipeline Interface.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/skill-research/internal/query"
	"github.com/pdiddy/skill-research/internal/search"
	"github.com/pdiddy/skill-research/pkg/types"
)

// State identifies a pipeline node.
type State string

const (
	StateLoadContext  State = "load_context"
	StateBuildQueries State = "build_queries"
	StateSearch       State = "search"
	StateSearchGitHub State = "search_github"
	StateEvaluate     State = "evaluate"
	StateSynthesize   State = "synthesize"
	StateDone         State = "done"
)

const defaultMaxPasses = 3

// ErrMissingSkillGap reports a run request without the required skill gap.
var ErrMissingSkillGap = errors.New("skill gap is required")

// NodeResult carries the signals the transition function inspects after a
// node completes.
type NodeResult struct {
	// Pass is the number of completed search passes.
	Pass int

	// MaxPasses is the configured pass cap.
	MaxPasses int

	// BelowTarget reports that accumulated resources are still under the
	// minimum target.
	BelowTarget bool

	// RateLimited reports that the web provider rate limited the run; no
	// further passes are attempted.
	RateLimited bool
}

// Next is the pure transition function. Search loops back on itself only
// while results are below target, passes remain, and the provider has not
// rate limited the run; every other state advances unconditionally.
func Next(s State, r NodeResult) State {
	switch s {
	case StateLoadContext:
		return StateBuildQueries
	case StateBuildQueries:
		return StateSearch
	case StateSearch:
		maxPasses := r.MaxPasses
		if maxPasses <= 0 {
			maxPasses = defaultMaxPasses
		}
		if r.BelowTarget && !r.RateLimited && r.Pass < maxPasses {
			return StateSearch
		}
		return StateSearchGitHub
	case StateSearchGitHub:
		return StateEvaluate
	case StateEvaluate:
		return StateSynthesize
	case StateSynthesize:
		return StateDone
	default:
		return StateDone
	}
}

// Seeder supplies an optional prior-state seed (focus skills, objectives,
// queries) before a run. Implemented by the store package.
type Seeder interface {
	Seed(ctx context.Context, state *types.ResearchState) error
}

// Searcher runs search passes and the example search. Implemented by
// search.Orchestrator.
type Searcher interface {
	RunPass(ctx context.Context, state *types.ResearchState) search.PassResult
	SearchExamples(ctx context.Context, state *types.ResearchState)
}

// Evaluator scores and ranks accumulated resources.
type Evaluator interface {
	Evaluate(ctx context.Context, state *types.ResearchState) ([]types.ScoredResource, types.ConfidenceBreakdown)
}

// Synthesizer produces the caller-facing recommendation collections.
type Synthesizer interface {
	Synthesize(ctx context.Context, state *types.ResearchState)
}

// Controller owns one research run per Run call. Each run mutates its own
// ResearchState; runs for different skill gaps share nothing, so
// ResearchAll executes them concurrently without locking.
type Controller struct {
	Seeder      Seeder // nil skips prior-state seeding
	Searcher    Searcher
	Evaluator   Evaluator
	Synthesizer Synthesizer

	// MaxPasses caps search iterations (default 3).
	MaxPasses int

	// W receives progress lines.
	W io.Writer
}

// Run executes the pipeline for one skill gap, completing state in place.
// Node failures degrade rather than abort: the pipeline always reaches
// synthesis with whatever was gathered. The only hard errors are a missing
// skill gap and a failing seed load.
func (c *Controller) Run(ctx context.Context, state *types.ResearchState) error {
	if state == nil || state.SkillGap == "" {
		return ErrMissingSkillGap
	}

	var last search.PassResult
	for s := StateLoadContext; s != StateDone; {
		var result NodeResult
		switch s {
		case StateLoadContext:
			if c.Seeder != nil {
				if err := c.Seeder.Seed(ctx, state); err != nil {
					return fmt.Errorf("loading prior context: %w", err)
				}
			}
			// Seeds never carry cached results into a fresh run.
			state.ClearDerived()

		case StateBuildQueries:
			state.Queries = query.Build(*state)
			c.progressf("built %d queries for %q\n", len(state.Queries), state.SkillGap)

		case StateSearch:
			last = c.Searcher.RunPass(ctx, state)
			result = NodeResult{
				Pass:        state.Iteration,
				MaxPasses:   c.MaxPasses,
				BelowTarget: last.BelowTarget,
				RateLimited: last.RateLimited,
			}
			c.progressf("pass %d gathered %d new resources (%d total)\n",
				state.Iteration, last.NewResources, len(state.Resources))

		case StateSearchGitHub:
			c.Searcher.SearchExamples(ctx, state)
			c.progressf("example search found %d repositories\n", len(state.Examples))

		case StateEvaluate:
			state.Evaluated, state.Confidence = c.Evaluator.Evaluate(ctx, state)
			c.progressf("evaluated %d resources, overall confidence %.2f\n",
				len(state.Evaluated), state.Confidence.Overall)

		case StateSynthesize:
			c.Synthesizer.Synthesize(ctx, state)
			c.progressf("synthesized %d recommendations, %d insights, %d path steps\n",
				len(state.Recommendations), len(state.Insights), len(state.LearningPath))
		}

		s = Next(s, result)
	}

	return nil
}

// ResearchAll runs one pipeline per skill gap concurrently. Controllers
// carry per-run pass state (disabled providers, executed queries), so
// build constructs a fresh controller for each run; states stay disjoint
// and need no locking. The first error cancels the remaining runs.
func ResearchAll(ctx context.Context, build func() *Controller, states []*types.ResearchState) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, state := range states {
		state := state
		g.Go(func() error {
			return build().Run(ctx, state)
		})
	}
	return g.Wait()
}

func (c *Controller) progressf(format string, args ...any) {
	if c.W != nil {
		fmt.Fprintf(c.W, format, args...)
	}
}
