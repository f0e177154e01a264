// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/skill-research/pkg/types"
)

// renderState writes a completed research state in the requested format.
func renderState(w io.Writer, state *types.ResearchState, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(state)
	case "table", "":
		renderTable(w, state)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q: use table, yaml, or json", format)
	}
}

func renderTable(w io.Writer, state *types.ResearchState) {
	fmt.Fprintf(w, "Research: %s", state.SkillGap)
	if state.Language != "" {
		fmt.Fprintf(w, " (%s)", state.Language)
	}
	fmt.Fprintf(w, "\nConfidence: %.2f", state.Confidence.Overall)
	if len(state.Confidence.Notes) > 0 {
		fmt.Fprintf(w, " — %s", strings.Join(state.Confidence.Notes, "; "))
	}
	fmt.Fprintf(w, "\nPasses: %d, resources: %d, scraped: %d, examples: %d\n",
		state.Iteration, len(state.Resources), len(state.Scraped), len(state.Examples))

	if len(state.Evaluated) > 0 {
		fmt.Fprintf(w, "\nTop resources:\n")
		for i, sr := range state.Evaluated {
			fmt.Fprintf(w, "%2d. %s %s\n    %s\n", i+1, stars(sr.Stars), sr.Title, sr.URL)
			if sr.Summary != "" {
				fmt.Fprintf(w, "    %s\n", clip(sr.Summary, 100))
			}
		}
	}

	if len(state.Recommendations) > 0 {
		fmt.Fprintf(w, "\nRecommendations:\n")
		for _, rec := range state.Recommendations {
			fmt.Fprintf(w, "- [%s/%s] %s\n  %s\n", rec.Type, rec.Priority, rec.Title, clip(rec.Description, 100))
			if rec.URL != "" {
				fmt.Fprintf(w, "  %s\n", rec.URL)
			}
		}
	}

	if len(state.Insights) > 0 {
		fmt.Fprintf(w, "\nInsights:\n")
		for _, in := range state.Insights {
			fmt.Fprintf(w, "- %s (%s confidence)\n  %s\n", in.Title, in.Confidence, clip(in.Insight, 140))
		}
	}

	if len(state.LearningPath) > 0 {
		fmt.Fprintf(w, "\nLearning path:\n")
		for _, step := range state.LearningPath {
			fmt.Fprintf(w, "%2d. %s [%s, %.1fh]\n", step.Order, step.Title, step.Difficulty, step.EstimatedHours)
			if step.ResourceTitle != "" {
				fmt.Fprintf(w, "    resource: %s\n", step.ResourceTitle)
			}
		}
	}
}

func stars(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func clip(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
