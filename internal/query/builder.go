// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query derives the prioritized search query set for a research run.
// Pure functions of ResearchState; no side effects.
// See docs/ARCHITECTURE.md § Query Building.
package query

import (
	"fmt"
	"strings"

	"github.com/pdiddy/skill-research/pkg/types"
)

// FallbackQuery is the generic query used when a run carries no usable
// signal at all (blank skill gap, no language, no focus skills).
const FallbackQuery = "software engineering learning resources"

// maxFocusSkills caps how many focus skills contribute queries.
const maxFocusSkills = 5

// Build returns an ordered, deduplicated query set for the state. The set
// is never empty. Language-qualified queries come first so that downstream
// truncation (callers typically issue only the first 3 per pass) favors
// language-specific results. Queries already present in the state are kept,
// appended after the derived ones.
func Build(state types.ResearchState) []string {
	skill := strings.TrimSpace(state.SkillGap)
	lang := strings.TrimSpace(state.Language)

	var queries []string

	if skill != "" && lang != "" {
		queries = append(queries,
			fmt.Sprintf("%s %s tutorial", lang, skill),
			fmt.Sprintf("%s %s best practices", skill, lang),
			fmt.Sprintf("%s %s example project", lang, skill),
		)
	}

	if skill != "" {
		queries = append(queries,
			fmt.Sprintf("%s tutorial", skill),
			fmt.Sprintf("learn %s", skill),
			fmt.Sprintf("%s best practices guide", skill),
		)
	}

	for i, fs := range state.FocusSkills {
		if i >= maxFocusSkills {
			break
		}
		name := strings.TrimSpace(fs.Name)
		if name == "" || strings.EqualFold(name, skill) {
			continue
		}
		if lang != "" {
			queries = append(queries, fmt.Sprintf("%s %s guide", lang, name))
		} else {
			queries = append(queries, fmt.Sprintf("%s guide", name))
		}
	}

	queries = append(queries, state.Queries...)

	deduped := dedup(queries)
	if len(deduped) == 0 {
		return []string{FallbackQuery}
	}
	return deduped
}

// dedup removes blank and case-insensitively duplicated queries, keeping
// first-occurrence order.
func dedup(queries []string) []string {
	seen := make(map[string]bool, len(queries))
	var out []string
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}
