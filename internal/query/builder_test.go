// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"strings"
	"testing"

	"github.com/pdiddy/skill-research/pkg/types"
)

func TestBuildLanguageQualifiedFirst(t *testing.T) {
	state := types.ResearchState{SkillGap: "testing", Language: "Go"}

	got := Build(state)
	if len(got) < 3 {
		t.Fatalf("len = %d, want >= 3", len(got))
	}
	// The first 3 queries must all mention the language so that callers
	// truncating to 3 get language-specific results.
	for i := 0; i < 3; i++ {
		if !strings.Contains(got[i], "Go") {
			t.Errorf("query %d = %q, want language-qualified", i, got[i])
		}
	}
	if got[0] != "Go testing tutorial" {
		t.Errorf("got[0] = %q, want %q", got[0], "Go testing tutorial")
	}
}

func TestBuildNoLanguage(t *testing.T) {
	state := types.ResearchState{SkillGap: "testing"}

	got := Build(state)
	if len(got) == 0 {
		t.Fatal("expected non-empty query set")
	}
	for _, q := range got {
		if q == FallbackQuery {
			t.Errorf("fallback query present despite skill gap signal")
		}
		if !strings.Contains(strings.ToLower(q), "testing") {
			t.Errorf("query %q does not mention the skill", q)
		}
	}
}

func TestBuildFallbackOnlyWhenNoSignal(t *testing.T) {
	got := Build(types.ResearchState{})
	if len(got) != 1 || got[0] != FallbackQuery {
		t.Errorf("got %v, want [%q]", got, FallbackQuery)
	}
}

func TestBuildFocusSkills(t *testing.T) {
	state := types.ResearchState{
		SkillGap: "testing",
		Language: "Go",
		FocusSkills: []types.FocusSkill{
			{Name: "mocking", Gap: 2, Priority: types.PriorityHigh},
			{Name: "benchmarking", Gap: 1, Priority: types.PriorityMedium},
		},
	}

	got := Build(state)
	joined := strings.ToLower(strings.Join(got, " | "))
	for _, want := range []string{"mocking", "benchmarking"} {
		if !strings.Contains(joined, want) {
			t.Errorf("queries missing focus skill %q: %v", want, got)
		}
	}
}

func TestBuildCapsFocusSkills(t *testing.T) {
	state := types.ResearchState{SkillGap: "x"}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		state.FocusSkills = append(state.FocusSkills, types.FocusSkill{Name: name})
	}

	got := Build(state)
	count := 0
	for _, q := range got {
		if strings.HasSuffix(q, " guide") && len(q) == len("a guide") {
			count++
		}
	}
	if count > 5 {
		t.Errorf("focus-skill queries = %d, want <= 5", count)
	}
}

func TestBuildKeepsExistingQueriesDeduped(t *testing.T) {
	state := types.ResearchState{
		SkillGap: "testing",
		Queries:  []string{"TESTING TUTORIAL", "advanced testing patterns"},
	}

	got := Build(state)
	seen := make(map[string]int)
	for _, q := range got {
		seen[strings.ToLower(q)]++
	}
	if seen["testing tutorial"] != 1 {
		t.Errorf("duplicate or missing %q: %v", "testing tutorial", got)
	}
	if seen["advanced testing patterns"] != 1 {
		t.Errorf("existing query dropped: %v", got)
	}
}

func TestBuildIsPure(t *testing.T) {
	state := types.ResearchState{SkillGap: "testing", Queries: []string{"q1"}}
	before := len(state.Queries)
	Build(state)
	Build(state)
	if len(state.Queries) != before {
		t.Error("Build mutated its input state")
	}
}
