// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/skill-research/internal/ai"
	"github.com/pdiddy/skill-research/internal/evaluate"
	"github.com/pdiddy/skill-research/internal/pipeline"
	"github.com/pdiddy/skill-research/internal/scrape"
	"github.com/pdiddy/skill-research/internal/search"
	"github.com/pdiddy/skill-research/internal/secrets"
	"github.com/pdiddy/skill-research/internal/store"
	"github.com/pdiddy/skill-research/internal/synthesize"
	"github.com/pdiddy/skill-research/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research [skill gap]...",
	Short: "Research learning resources for one or more skill gaps",
	Long: `Research runs the full pipeline for each skill gap argument: query
building, provider search with bounded passes, GitHub example search,
scraping, quality evaluation, and recommendation synthesis. Multiple skill
gaps run concurrently, each with independent state.

Completed runs are saved to the history database unless --no-history is set;
prior runs for the same skill gap seed focus skills, objectives, and queries.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)

	states, err := statesFromFlags(cmd, args)
	if err != nil {
		return err
	}

	var st *store.Store
	noHistory, _ := cmd.Flags().GetBool("no-history")
	if !noHistory {
		st, err = store.NewStore(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	build := func() *pipeline.Controller {
		return newController(cfg, st)
	}

	ctx := context.Background()
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := pipeline.ResearchAll(ctx, build, states); err != nil {
		return err
	}

	if st != nil {
		for _, state := range states {
			if _, err := st.SaveRun(ctx, state); err != nil {
				fmt.Fprintf(os.Stderr, "warning: saving run for %q: %v\n", state.SkillGap, err)
			}
		}
	}

	format, _ := cmd.Flags().GetString("output")
	for i, state := range states {
		if i > 0 && format == "table" {
			fmt.Println()
		}
		if err := renderState(os.Stdout, state, format); err != nil {
			return err
		}
	}
	return nil
}

// pipelineConfig assembles stage configuration from flags, the config
// file, and loaded secrets.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	flags := cmd.Flags()

	model, _ := flags.GetString("model")
	if model == "" {
		model = viper.GetString("ai.model")
	}
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	anthropicKey, _ := flags.GetString("anthropic-key")
	tavilyKey, _ := flags.GetString("tavily-key")
	githubToken, _ := flags.GetString("github-token")

	aiCfg := types.AIConfig{
		Model:  model,
		APIKey: secretDefault(secrets.KeyAnthropic, anthropicKey),
	}

	maxPasses, _ := flags.GetInt("max-passes")
	minResults, _ := flags.GetInt("min-results")
	noWeb, _ := flags.GetBool("no-web")
	noGitHub, _ := flags.GetBool("no-github")
	maxScrapes, _ := flags.GetInt("max-scrapes")

	dataDir, _ := flags.GetString("data-dir")
	if dataDir == "" {
		dataDir = viper.GetString("store.data_dir")
	}
	if dataDir == "" {
		dataDir = "data"
	}

	httpCfg := types.HTTPConfig{
		Timeout:   30 * time.Second,
		UserAgent: "skill-research/" + version,
	}

	return types.PipelineConfig{
		Search: types.SearchConfig{
			HTTPConfig:          httpCfg,
			MaxPasses:           maxPasses,
			MinResults:          minResults,
			ProviderMinInterval: time.Second,
			EnableWebSearch:     !noWeb,
			TavilyAPIKey:        secretDefault(secrets.KeyTavily, tavilyKey),
			EnableGitHub:        !noGitHub,
			GitHubToken:         secretDefault(secrets.KeyGitHub, githubToken),
		},
		Scrape: types.ScrapeConfig{
			HTTPConfig: httpCfg,
			MaxScrapes: maxScrapes,
		},
		Evaluate:   types.EvaluationConfig{AIConfig: aiCfg},
		Synthesize: types.SynthesisConfig{AIConfig: aiCfg},
		Store:      types.StoreConfig{DataDir: dataDir},
	}
}

// newController wires one pipeline run. Called once per skill gap: the
// orchestrator carries per-run pass state and must not be shared.
func newController(cfg types.PipelineConfig, st *store.Store) *pipeline.Controller {
	client := &http.Client{Timeout: cfg.Search.Timeout}

	// A typed-nil backend must stay a nil interface so stages take their
	// heuristic paths.
	var backend ai.Backend
	if cb := ai.NewClaudeBackend(cfg.Evaluate.AIConfig, client); cb != nil {
		backend = cb
	}

	var web search.WebProvider
	if cfg.Search.EnableWebSearch && cfg.Search.TavilyAPIKey != "" {
		web = &search.TavilyProvider{Client: client, APIKey: cfg.Search.TavilyAPIKey}
	}
	var examples search.ExampleProvider
	if cfg.Search.EnableGitHub {
		examples = &search.GitHubProvider{Client: client, Token: cfg.Search.GitHubToken}
	}

	orchestrator := &search.Orchestrator{
		Web:      web,
		Examples: examples,
		Fallback: backend,
		Scraper: &scrape.Service{
			Client: client,
			AI:     backend,
			Cfg:    cfg.Scrape,
		},
		Throttle:   search.NewThrottle(cfg.Search.ProviderMinInterval),
		Cfg:        cfg.Search,
		MaxScrapes: cfg.Scrape.MaxScrapes,
		W:          os.Stderr,
	}

	c := &pipeline.Controller{
		Searcher:    orchestrator,
		Evaluator:   &evaluate.Evaluator{Backend: backend, Cfg: cfg.Evaluate},
		Synthesizer: &synthesize.Synthesizer{Backend: backend, Cfg: cfg.Synthesize, W: os.Stderr},
		MaxPasses:   cfg.Search.MaxPasses,
		W:           os.Stderr,
	}
	if st != nil {
		c.Seeder = st
	}
	return c
}

// statesFromFlags builds one ResearchState per skill gap argument.
func statesFromFlags(cmd *cobra.Command, args []string) ([]*types.ResearchState, error) {
	flags := cmd.Flags()

	language, _ := flags.GetString("language")
	userContext, _ := flags.GetString("context")
	level, _ := flags.GetString("level")
	current, _ := flags.GetFloat64("current")
	target, _ := flags.GetFloat64("target")
	objectives, _ := flags.GetStringSlice("objective")
	focus, _ := flags.GetStringSlice("focus")

	skillLevel := types.SkillLevel(level)
	if level != "" && !skillLevel.Valid() {
		return nil, fmt.Errorf("unknown skill level %q: use beginner, intermediate, or advanced", level)
	}

	focusSkills, err := parseFocusSkills(focus)
	if err != nil {
		return nil, err
	}

	var states []*types.ResearchState
	for _, gap := range args {
		gap = strings.TrimSpace(gap)
		if gap == "" {
			continue
		}
		state := &types.ResearchState{
			SkillGap:           gap,
			Language:           language,
			UserContext:        userContext,
			LearningObjectives: objectives,
			FocusSkills:        focusSkills,
			SkillLevel:         skillLevel,
			CurrentProficiency: current,
			TargetProficiency:  target,
		}
		if target > current {
			state.ProficiencyGap = target - current
		}
		states = append(states, state)
	}
	if len(states) == 0 {
		return nil, fmt.Errorf("at least one non-empty skill gap is required")
	}
	return states, nil
}

// parseFocusSkills parses --focus entries of the form "name" or "name:gap".
func parseFocusSkills(entries []string) ([]types.FocusSkill, error) {
	var out []types.FocusSkill
	for _, entry := range entries {
		name, gapStr, hasGap := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		fs := types.FocusSkill{Name: name, Priority: types.PriorityMedium}
		if hasGap {
			gap, err := strconv.ParseFloat(strings.TrimSpace(gapStr), 64)
			if err != nil {
				return nil, fmt.Errorf("focus skill %q: gap must be numeric: %w", entry, err)
			}
			fs.Gap = gap
			if gap >= 2 {
				fs.Priority = types.PriorityHigh
			}
		}
		out = append(out, fs)
	}
	return out, nil
}

func init() {
	researchCmd.Flags().String("language", "", "primary programming language (e.g. go)")
	researchCmd.Flags().String("context", "", "free-text background about the learner")
	researchCmd.Flags().String("level", "", "learner skill level: beginner, intermediate, advanced")
	researchCmd.Flags().Float64("current", 0, "current proficiency on a 1-5 scale")
	researchCmd.Flags().Float64("target", 0, "target proficiency on a 1-5 scale")
	researchCmd.Flags().StringSlice("objective", nil, "learning objective (repeatable)")
	researchCmd.Flags().StringSlice("focus", nil, "focus skill as name or name:gap (repeatable)")

	researchCmd.Flags().Int("max-passes", 3, "maximum search passes per skill gap")
	researchCmd.Flags().Int("min-results", 12, "resource target below which more passes run")
	researchCmd.Flags().Int("max-scrapes", 5, "maximum scrapes per run")
	researchCmd.Flags().Bool("no-web", false, "disable the web-search provider")
	researchCmd.Flags().Bool("no-github", false, "disable the GitHub example search")
	researchCmd.Flags().Duration("timeout", 0, "overall timeout for the whole invocation (0 = none)")

	researchCmd.Flags().String("model", "", "AI model identifier")
	researchCmd.Flags().String("anthropic-key", "", "Anthropic API key (default: .secrets/anthropic-api-key)")
	researchCmd.Flags().String("tavily-key", "", "Tavily API key (default: .secrets/tavily-api-key)")
	researchCmd.Flags().String("github-token", "", "GitHub token (default: .secrets/github-token)")

	researchCmd.Flags().String("output", "table", "output format: table, yaml, or json")
	researchCmd.Flags().String("data-dir", "", "history database directory (default: data/)")
	researchCmd.Flags().Bool("no-history", false, "skip saving and seeding from the history database")

	rootCmd.AddCommand(researchCmd)
}
