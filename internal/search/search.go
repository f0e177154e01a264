// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search orchestrates provider search passes: web search with
// throttling and failure classification, a generation fallback when
// coverage is thin, GitHub example search, and bounded scraping of top
// candidates. Any single query, scrape, or fallback failure is logged and
// skipped; only rate limiting halts further passes.
// See docs/ARCHITECTURE.md § Search Orchestration.
package search

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/skill-research/internal/ai"
	"github.com/pdiddy/skill-research/internal/dedupe"
	"github.com/pdiddy/skill-research/internal/httputil"
	"github.com/pdiddy/skill-research/pkg/types"
)

// WebProvider searches the web for learning resources.
type WebProvider interface {
	Name() string
	Search(ctx context.Context, query string, limit int, category Category) ([]types.Resource, error)
}

// ExampleProvider searches for example repositories.
type ExampleProvider interface {
	Name() string
	Search(ctx context.Context, query, language string, limit int) ([]types.GitHubExample, error)
}

// Scraper fetches and summarizes one resource. Implemented by the scrape
// package; a nil Scraper disables scraping.
type Scraper interface {
	Scrape(ctx context.Context, res types.Resource) (types.ScrapedResource, error)
}

// Orchestrator runs search passes against the configured providers. It is
// single-owner per research run: pass state (disabled providers, executed
// queries, rate-limit flag) lives here, not in globals.
type Orchestrator struct {
	Web      WebProvider // nil when unconfigured
	Examples ExampleProvider
	Fallback ai.Backend // nil routes straight to provider-only coverage
	Scraper  Scraper
	Throttle *Throttle
	Cfg      types.SearchConfig

	// MaxScrapes bounds scrapes across the whole run (default 5).
	MaxScrapes int

	// W receives progress and warning lines.
	W io.Writer

	webDisabled bool
	rateLimited bool
	executed    map[string]bool
}

// PassResult summarizes one search pass for the pipeline's transition
// function.
type PassResult struct {
	NewResources int
	RateLimited  bool
	BelowTarget  bool
}

// RunPass executes one search pass over state: issue up to QueriesPerPass
// fresh queries, fall back to generation when below target, scrape a
// bounded subset of new candidates, and append a SearchIteration record.
func (o *Orchestrator) RunPass(ctx context.Context, state *types.ResearchState) PassResult {
	start := time.Now()
	iter := types.SearchIteration{Pass: state.Iteration + 1}

	if o.executed == nil {
		o.executed = make(map[string]bool)
	}

	queriesPerPass := o.Cfg.QueriesPerPass
	if queriesPerPass <= 0 {
		queriesPerPass = 3
	}
	minResults := o.Cfg.MinResults
	if minResults <= 0 {
		minResults = 12
	}

	category := ClassifyCategory(state.SkillGap + " " + state.UserContext)
	before := len(state.Resources)
	scrapedBefore := len(state.Scraped)

	// Step 1: web-search provider.
	if o.Web != nil && !o.webDisabled {
		for _, q := range o.nextQueries(state.Queries, queriesPerPass) {
			iter.Queries = append(iter.Queries, q)
			o.executed[q] = true

			o.Throttle.Wait()
			results, err := o.Web.Search(ctx, q, o.Cfg.MaxResults, category)
			if err != nil {
				switch {
				case httputil.IsUnavailable(err):
					// Degrade, don't crash: the provider is gone for
					// the rest of the run.
					o.webDisabled = true
					iter.Errors = append(iter.Errors, fmt.Sprintf("%s unavailable: %v", o.Web.Name(), err))
					o.warnf("provider %s disabled: %v\n", o.Web.Name(), err)
				case httputil.IsRateLimited(err):
					o.rateLimited = true
					iter.Errors = append(iter.Errors, fmt.Sprintf("%s rate limited: %v", o.Web.Name(), err))
					o.warnf("provider %s rate limited, halting passes\n", o.Web.Name())
				default:
					iter.Errors = append(iter.Errors, fmt.Sprintf("query %q: %v", q, err))
					o.warnf("warning: query %q failed: %v\n", q, err)
				}
				if o.webDisabled || o.rateLimited {
					break
				}
				continue
			}

			merged, _, invalid := MergeResources(state.Resources, results)
			state.Resources = merged
			if invalid > 0 {
				iter.Notes = append(iter.Notes, fmt.Sprintf("dropped %d results with unparseable URLs", invalid))
			}
		}
		if !o.webDisabled {
			iter.Providers = append(iter.Providers, o.Web.Name())
			state.SearchSources = appendUnique(state.SearchSources, o.Web.Name())
		}
	}

	// Step 2: generation fallback when coverage is thin.
	if len(state.Resources) < minResults && o.Fallback != nil && !o.rateLimited {
		resources, extraQueries, err := GenerateFallback(ctx, o.Fallback, *state, 0)
		if err != nil {
			iter.Errors = append(iter.Errors, err.Error())
			o.warnf("warning: %v\n", err)
		} else {
			merged, added, invalid := MergeResources(state.Resources, resources)
			state.Resources = merged
			if invalid > 0 {
				iter.Notes = append(iter.Notes, fmt.Sprintf("dropped %d generated resources with unparseable URLs", invalid))
			}
			iter.Notes = append(iter.Notes, fmt.Sprintf("generation fallback contributed %d resources", added))
			iter.Providers = append(iter.Providers, "generation-fallback")
			state.SearchSources = appendUnique(state.SearchSources, "generation-fallback")

			for _, q := range extraQueries {
				state.Queries = appendUniqueFold(state.Queries, q)
			}
		}
	}

	// Step 3: scrape a bounded subset of new candidates.
	o.scrapeCandidates(ctx, state, &iter)

	iter.ResultCount = len(state.Resources) - before
	iter.ScrapeCount = len(state.Scraped) - scrapedBefore
	iter.Duration = time.Since(start)
	state.Iterations = append(state.Iterations, iter)
	state.Iteration++

	return PassResult{
		NewResources: iter.ResultCount,
		RateLimited:  o.rateLimited,
		BelowTarget:  len(state.Resources) < minResults,
	}
}

// SearchExamples runs the parallel GitHub example search and merges new
// examples into the state by URL. Failures are recorded and skipped.
func (o *Orchestrator) SearchExamples(ctx context.Context, state *types.ResearchState) {
	if o.Examples == nil {
		return
	}

	maxExamples := o.Cfg.MaxExamples
	if maxExamples <= 0 {
		maxExamples = 5
	}

	q := strings.TrimSpace(state.SkillGap)
	if q == "" {
		q = "awesome learning resources"
	}

	o.Throttle.Wait()
	examples, err := o.Examples.Search(ctx, q, state.Language, maxExamples)
	if err != nil {
		o.warnf("warning: example search failed: %v\n", err)
		if n := len(state.Iterations); n > 0 {
			state.Iterations[n-1].Errors = append(state.Iterations[n-1].Errors,
				fmt.Sprintf("example search: %v", err))
		}
		return
	}

	state.Examples = dedupe.Merge(state.Examples, examples,
		func(e types.GitHubExample) string {
			key, _ := dedupe.NormalizeURL(e.URL)
			return key
		}, nil)
	if len(state.Examples) > maxExamples {
		state.Examples = state.Examples[:maxExamples]
	}
	state.SearchSources = appendUnique(state.SearchSources, o.Examples.Name())
}

// scrapeCandidates scrapes resources that have not been scraped yet, in
// accumulated order, until the run-wide budget is spent. A scrape timeout
// or error skips that single resource.
func (o *Orchestrator) scrapeCandidates(ctx context.Context, state *types.ResearchState, iter *types.SearchIteration) {
	if o.Scraper == nil {
		return
	}

	budget := o.MaxScrapes
	if budget <= 0 {
		budget = 5
	}

	scraped := make(map[string]bool, len(state.Scraped))
	for _, s := range state.Scraped {
		if key, ok := dedupe.NormalizeURL(s.URL); ok {
			scraped[key] = true
		}
	}

	for _, res := range state.Resources {
		if len(state.Scraped) >= budget {
			break
		}
		key, ok := dedupe.NormalizeURL(res.URL)
		if !ok || scraped[key] {
			continue
		}

		sr, err := o.Scraper.Scrape(ctx, res)
		if err != nil {
			iter.Errors = append(iter.Errors, fmt.Sprintf("scrape %s: %v", res.URL, err))
			o.warnf("warning: scrape %s failed: %v\n", res.URL, err)
			scraped[key] = true // don't retry a failing URL on later passes
			continue
		}

		scraped[key] = true
		state.Scraped = dedupe.Merge(state.Scraped, []types.ScrapedResource{sr},
			func(s types.ScrapedResource) string {
				k, _ := dedupe.NormalizeURL(s.URL)
				return k
			}, nil)
	}
}

// nextQueries returns up to n queries that have not been issued yet.
func (o *Orchestrator) nextQueries(queries []string, n int) []string {
	var out []string
	for _, q := range queries {
		if len(out) >= n {
			break
		}
		if o.executed[q] {
			continue
		}
		out = append(out, q)
	}
	return out
}

func (o *Orchestrator) warnf(format string, args ...any) {
	if o.W != nil {
		fmt.Fprintf(o.W, format, args...)
	}
}

// MergeResources merges src into dst, deduplicating first by normalized URL
// and then by normalized title. Resources whose URL fails to normalize are
// dropped and counted in invalid rather than silently discarded; callers
// surface the count in the iteration notes. The merge is idempotent.
func MergeResources(dst, src []types.Resource) (merged []types.Resource, added, invalid int) {
	valid := make([]types.Resource, 0, len(src))
	for _, r := range src {
		norm, ok := dedupe.NormalizeURL(r.URL)
		if !ok {
			invalid++
			continue
		}
		r.URL = norm
		valid = append(valid, r)
	}

	byURL := func(r types.Resource) string {
		key, _ := dedupe.NormalizeURL(r.URL)
		return key
	}
	byTitle := func(r types.Resource) string {
		return dedupe.NormalizeTitle(r.Title)
	}

	merged = dedupe.Merge(dst, valid, byURL, fillResource)
	merged = dedupe.Merge(nil, merged, byTitle, fillResource)
	added = len(merged) - len(dst)
	return merged, added, invalid
}

// fillResource completes empty fields of dst from src, keeping dst's
// provider tag and identity.
func fillResource(dst *types.Resource, src types.Resource) {
	if dst.Description == "" && src.Description != "" {
		dst.Description = src.Description
	}
	if dst.Snippet == "" && src.Snippet != "" {
		dst.Snippet = src.Snippet
	}
}

// appendUnique appends s when not already present.
func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// appendUniqueFold appends s when not already present, comparing
// case-insensitively.
func appendUniqueFold(list []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return list
	}
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return list
		}
	}
	return append(list, s)
}
