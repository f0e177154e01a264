// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/skill-research/pkg/types"
)

// Base hours before multipliers: first step, last step, everything between.
const (
	baseHoursFirst  = 5.0
	baseHoursLast   = 10.0
	baseHoursMiddle = 8.0
)

// focusAreas lists the fixed ordered focus areas per skill level.
var focusAreas = map[types.SkillLevel][]string{
	types.LevelBeginner:     {"Foundation", "Practice", "Application", "Next Steps"},
	types.LevelIntermediate: {"Core Review", "Advanced Techniques", "Real-World Projects", "Best Practices"},
	types.LevelAdvanced:     {"Deep Internals", "Architecture", "Performance", "Community Contribution"},
}

// AdaptivePath generates the learning path deterministically from the
// user's skill level and proficiency gap, overriding any generated path.
// Steps walk the level's focus areas with a gap-driven difficulty
// progression; a trailing hands-on step references the top example when
// the user is past beginner. Output is capped at maxSteps.
func AdaptivePath(state *types.ResearchState, maxSteps int) []types.LearningPathStep {
	level := state.SkillLevel
	if !level.Valid() {
		level = types.LevelBeginner
	}

	gap := state.ProficiencyGap
	if gap == 0 && state.TargetProficiency > state.CurrentProficiency {
		gap = state.TargetProficiency - state.CurrentProficiency
	}

	areas := focusAreas[level]
	n := len(areas)

	path := make([]types.LearningPathStep, 0, n+1)
	for i, area := range areas {
		difficulty := stepDifficulty(i, n, level, gap)

		base := baseHoursMiddle
		switch i {
		case 0:
			base = baseHoursFirst
		case n - 1:
			base = baseHoursLast
		}

		step := types.LearningPathStep{
			Title:          fmt.Sprintf("%s: %s", area, state.SkillGap),
			Description:    stepDescription(area, state.SkillGap, difficulty),
			Difficulty:     difficulty,
			EstimatedHours: roundHours(base * difficultyMultiplier(difficulty) * levelMultiplier(level)),
		}
		if match := matchResource(state.Evaluated, area); match != nil {
			step.ResourceURL = match.URL
			step.ResourceTitle = match.Title
		}
		path = append(path, step)
	}

	if len(state.Examples) > 0 && level != types.LevelBeginner {
		ex := state.Examples[0]
		difficulty := levelMax(level)
		path = append(path, types.LearningPathStep{
			Title:          fmt.Sprintf("Hands-on practice: %s", ex.Name),
			Description:    fmt.Sprintf("Read and extend the %s repository to apply what the earlier steps covered.", ex.Name),
			Difficulty:     difficulty,
			EstimatedHours: roundHours(baseHoursMiddle * difficultyMultiplier(difficulty) * levelMultiplier(level)),
			ResourceURL:    ex.URL,
			ResourceTitle:  ex.Name,
		})
	}

	if maxSteps > 0 && len(path) > maxSteps {
		path = path[:maxSteps]
	}
	return path
}

// stepDifficulty applies the gap-driven progression rule. Large gaps ramp
// from beginner through intermediate to the level's maximum; medium gaps
// blend around the user's own tier; small gaps start one tier up.
func stepDifficulty(i, n int, level types.SkillLevel, gap float64) types.Difficulty {
	frac := float64(i) / float64(n)
	switch {
	case gap >= 2:
		switch {
		case frac < 0.3:
			return types.DifficultyBeginner
		case frac < 0.7:
			return types.DifficultyIntermediate
		default:
			return levelMax(level)
		}
	case gap >= 1:
		if frac < 0.5 {
			return levelTier(level)
		}
		return tierUp(levelTier(level))
	default:
		return tierUp(levelTier(level))
	}
}

// levelTier maps a skill level to its own difficulty tier.
func levelTier(level types.SkillLevel) types.Difficulty {
	switch level {
	case types.LevelAdvanced:
		return types.DifficultyAdvanced
	case types.LevelIntermediate:
		return types.DifficultyIntermediate
	default:
		return types.DifficultyBeginner
	}
}

// levelMax caps the progression: beginners top out at intermediate.
func levelMax(level types.SkillLevel) types.Difficulty {
	if level == types.LevelBeginner {
		return types.DifficultyIntermediate
	}
	return types.DifficultyAdvanced
}

// tierUp returns the next difficulty tier, saturating at advanced.
func tierUp(d types.Difficulty) types.Difficulty {
	switch d {
	case types.DifficultyBeginner:
		return types.DifficultyIntermediate
	default:
		return types.DifficultyAdvanced
	}
}

func difficultyMultiplier(d types.Difficulty) float64 {
	switch d {
	case types.DifficultyAdvanced:
		return 2.0
	case types.DifficultyIntermediate:
		return 1.5
	default:
		return 1.0
	}
}

// levelMultiplier scales time by level: beginners need more time per
// step, advanced users less.
func levelMultiplier(level types.SkillLevel) float64 {
	switch level {
	case types.LevelBeginner:
		return 1.5
	case types.LevelAdvanced:
		return 0.75
	default:
		return 1.0
	}
}

// roundHours snaps estimates to human-friendly increments: half hours
// below ten hours, five-hour blocks above.
func roundHours(h float64) float64 {
	if h < 10 {
		return math.Round(h*2) / 2
	}
	return math.Round(h/5) * 5
}

// matchResource finds the first evaluated resource whose title or
// description mentions the focus area.
func matchResource(evaluated []types.ScoredResource, area string) *types.ScoredResource {
	keyword := strings.ToLower(area)
	first := keyword
	if fields := strings.Fields(keyword); len(fields) > 0 {
		first = fields[0]
	}
	for i := range evaluated {
		haystack := strings.ToLower(evaluated[i].Title + " " + evaluated[i].Description)
		if strings.Contains(haystack, keyword) || strings.Contains(haystack, first) {
			return &evaluated[i]
		}
	}
	return nil
}

// stepDescription writes a short imperative description per focus area.
func stepDescription(area, skill string, difficulty types.Difficulty) string {
	if skill == "" {
		skill = "the target skill"
	}
	switch {
	case strings.Contains(strings.ToLower(area), "hands"):
		return fmt.Sprintf("Apply %s in practice exercises.", skill)
	default:
		return fmt.Sprintf("Work through %s material for %s at the %s level.", strings.ToLower(area), skill, difficulty)
	}
}
