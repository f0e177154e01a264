// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the skill-research pipeline.
// See docs/ARCHITECTURE.md § Pipeline Interface, § Data Structures.
package types

import "time"

// SkillLevel classifies a learner's self-assessed proficiency tier.
type SkillLevel string

const (
	LevelBeginner     SkillLevel = "beginner"
	LevelIntermediate SkillLevel = "intermediate"
	LevelAdvanced     SkillLevel = "advanced"
)

// Valid reports whether the level is one of the three known tiers.
func (l SkillLevel) Valid() bool {
	return l == LevelBeginner || l == LevelIntermediate || l == LevelAdvanced
}

// Priority ranks a recommendation or focus skill.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// RecommendationType distinguishes the three recommendation families.
type RecommendationType string

const (
	RecResource RecommendationType = "resource"
	RecExample  RecommendationType = "example"
	RecAction   RecommendationType = "action"
)

// Difficulty tags a learning path step.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// InsightConfidence grades how well-supported a comparative insight is.
type InsightConfidence string

const (
	InsightLow    InsightConfidence = "low"
	InsightMedium InsightConfidence = "medium"
	InsightHigh   InsightConfidence = "high"
)

// ProviderTag identifies which provider produced a resource.
type ProviderTag string

const (
	ProviderWebSearch  ProviderTag = "web_search"
	ProviderAIFallback ProviderTag = "ai_fallback"
	ProviderGitHub     ProviderTag = "github"
	ProviderScrape     ProviderTag = "scrape"
)

// FocusSkill is a skill gap entry elevated for prioritized research.
type FocusSkill struct {
	// Name is the skill name (e.g. "unit testing").
	Name string `json:"name" yaml:"name"`

	// Gap is the numeric proficiency gap on a 1-5 scale.
	Gap float64 `json:"gap" yaml:"gap"`

	// Priority ranks the skill within the run.
	Priority Priority `json:"priority" yaml:"priority"`
}

// Resource is a candidate learning resource returned by a search provider.
// Read-only downstream of the search stage except for annotation.
type Resource struct {
	Title       string      `json:"title" yaml:"title"`
	URL         string      `json:"url" yaml:"url"`
	Description string      `json:"description" yaml:"description"`
	Snippet     string      `json:"snippet,omitempty" yaml:"snippet,omitempty"`
	Provider    ProviderTag `json:"provider" yaml:"provider"`
}

// CriteriaScores holds the five evaluation criteria, each in [0,1].
type CriteriaScores struct {
	Relevance         float64 `json:"relevance" yaml:"relevance"`
	Authority         float64 `json:"authority" yaml:"authority"`
	Recency           float64 `json:"recency" yaml:"recency"`
	Comprehensiveness float64 `json:"comprehensiveness" yaml:"comprehensiveness"`
	Practicality      float64 `json:"practicality" yaml:"practicality"`
}

// ScoredResource is a Resource plus its evaluation outcome. Immutable after
// the evaluation stage.
type ScoredResource struct {
	Resource `yaml:",inline"`

	// Score is the weighted composite in [0,1].
	Score float64 `json:"score" yaml:"score"`

	// Stars is a 1-5 rating derived from Score.
	Stars int `json:"stars" yaml:"stars"`

	// RecencyLabel is a human-readable freshness hint (e.g. "current").
	RecencyLabel string `json:"recency_label" yaml:"recency_label"`

	// Summary is the scraped or generated summary, when available.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Criteria holds the per-criterion scores behind the composite.
	Criteria CriteriaScores `json:"criteria" yaml:"criteria"`
}

// ScrapedResource holds fetched page content and its summary.
// Merged by URL across passes and capped at a maximum count.
type ScrapedResource struct {
	URL       string      `json:"url" yaml:"url"`
	Content   string      `json:"content" yaml:"content"`
	Snippet   string      `json:"snippet" yaml:"snippet"`
	Summary   string      `json:"summary" yaml:"summary"`
	KeyPoints []string    `json:"key_points" yaml:"key_points"`
	Audience  string      `json:"audience" yaml:"audience"`
	ScrapedAt time.Time   `json:"scraped_at" yaml:"scraped_at"`
	Provider  ProviderTag `json:"provider" yaml:"provider"`
}

// SearchIteration is the append-only audit record of one search pass.
type SearchIteration struct {
	Pass        int           `json:"pass" yaml:"pass"`
	Queries     []string      `json:"queries" yaml:"queries"`
	Providers   []string      `json:"providers" yaml:"providers"`
	Notes       []string      `json:"notes,omitempty" yaml:"notes,omitempty"`
	ResultCount int           `json:"result_count" yaml:"result_count"`
	ScrapeCount int           `json:"scrape_count" yaml:"scrape_count"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Errors      []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// GitHubExample is a reference repository candidate from the GitHub provider.
type GitHubExample struct {
	Name        string `json:"name" yaml:"name"`
	URL         string `json:"url" yaml:"url"`
	Stars       int    `json:"stars" yaml:"stars"`
	Description string `json:"description" yaml:"description"`
	Language    string `json:"language" yaml:"language"`
}

// Recommendation is one unit of caller-facing output.
type Recommendation struct {
	Type        RecommendationType `json:"type" yaml:"type"`
	Title       string             `json:"title" yaml:"title"`
	Description string             `json:"description" yaml:"description"`
	URL         string             `json:"url,omitempty" yaml:"url,omitempty"`
	Priority    Priority           `json:"priority" yaml:"priority"`
}

// ComparativeInsight is a trade-off observation across resources. It must
// cite at least one supporting URL.
type ComparativeInsight struct {
	Title          string            `json:"title" yaml:"title"`
	Insight        string            `json:"insight" yaml:"insight"`
	SupportingURLs []string          `json:"supporting_urls" yaml:"supporting_urls"`
	Confidence     InsightConfidence `json:"confidence" yaml:"confidence"`
}

// LearningPathStep is one ordered unit of the synthesized study plan.
type LearningPathStep struct {
	Order          int        `json:"order" yaml:"order"`
	Title          string     `json:"title" yaml:"title"`
	Description    string     `json:"description" yaml:"description"`
	Difficulty     Difficulty `json:"difficulty" yaml:"difficulty"`
	EstimatedHours float64    `json:"estimated_hours" yaml:"estimated_hours"`
	ResourceURL    string     `json:"resource_url,omitempty" yaml:"resource_url,omitempty"`
	ResourceTitle  string     `json:"resource_title,omitempty" yaml:"resource_title,omitempty"`
}

// ConfidenceBreakdown summarizes aggregate evaluation quality. All values
// lie in [0,1].
type ConfidenceBreakdown struct {
	Overall      float64  `json:"overall" yaml:"overall"`
	Relevance    float64  `json:"relevance" yaml:"relevance"`
	Coverage     float64  `json:"coverage" yaml:"coverage"`
	Recency      float64  `json:"recency" yaml:"recency"`
	Practicality float64  `json:"practicality" yaml:"practicality"`
	Notes        []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ResearchState is the single merge-mutated context threaded through the
// pipeline. Every list-valued field is merge-appended and deduplicated by
// normalized URL or normalized title across passes, never overwritten.
// One ResearchState is created per research request and discarded after
// the pipeline returns.
type ResearchState struct {
	// SkillGap names the skill being researched. Required.
	SkillGap string `json:"skill_gap" yaml:"skill_gap"`

	// Language is the detected primary programming language, if any.
	Language string `json:"language,omitempty" yaml:"language,omitempty"`

	// UserContext is free-text background supplied by the caller.
	UserContext string `json:"user_context,omitempty" yaml:"user_context,omitempty"`

	TargetRole string   `json:"target_role,omitempty" yaml:"target_role,omitempty"`
	Industry   string   `json:"industry,omitempty" yaml:"industry,omitempty"`
	Goals      []string `json:"goals,omitempty" yaml:"goals,omitempty"`

	FocusSkills        []FocusSkill `json:"focus_skills,omitempty" yaml:"focus_skills,omitempty"`
	LearningObjectives []string     `json:"learning_objectives,omitempty" yaml:"learning_objectives,omitempty"`

	Queries       []string          `json:"queries,omitempty" yaml:"queries,omitempty"`
	SearchSources []string          `json:"search_sources,omitempty" yaml:"search_sources,omitempty"`
	Iterations    []SearchIteration `json:"iterations,omitempty" yaml:"iterations,omitempty"`

	Resources []Resource        `json:"resources,omitempty" yaml:"resources,omitempty"`
	Scraped   []ScrapedResource `json:"scraped,omitempty" yaml:"scraped,omitempty"`
	Evaluated []ScoredResource  `json:"evaluated,omitempty" yaml:"evaluated,omitempty"`
	Examples  []GitHubExample   `json:"examples,omitempty" yaml:"examples,omitempty"`

	Confidence      ConfidenceBreakdown  `json:"confidence" yaml:"confidence"`
	Recommendations []Recommendation     `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	Insights        []ComparativeInsight `json:"insights,omitempty" yaml:"insights,omitempty"`
	LearningPath    []LearningPathStep   `json:"learning_path,omitempty" yaml:"learning_path,omitempty"`

	// Iteration counts completed search passes.
	Iteration int `json:"iteration" yaml:"iteration"`

	// Adaptive-learning fields. SkillLevel is empty when unknown;
	// proficiency values use a 1-5 scale.
	SkillLevel         SkillLevel `json:"skill_level,omitempty" yaml:"skill_level,omitempty"`
	CurrentProficiency float64    `json:"current_proficiency,omitempty" yaml:"current_proficiency,omitempty"`
	TargetProficiency  float64    `json:"target_proficiency,omitempty" yaml:"target_proficiency,omitempty"`
	ProficiencyGap     float64    `json:"proficiency_gap,omitempty" yaml:"proficiency_gap,omitempty"`
}

// ClearDerived removes all cached search and evaluation results, keeping
// only the seed inputs (skill gap, context, focus skills, objectives,
// queries). Prior-state seeds must pass through this before a run so each
// invocation performs fresh research.
func (s *ResearchState) ClearDerived() {
	s.SearchSources = nil
	s.Iterations = nil
	s.Resources = nil
	s.Scraped = nil
	s.Evaluated = nil
	s.Examples = nil
	s.Confidence = ConfidenceBreakdown{}
	s.Recommendations = nil
	s.Insights = nil
	s.LearningPath = nil
	s.Iteration = 0
}
