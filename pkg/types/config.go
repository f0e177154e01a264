// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "skill-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the provider search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxPasses caps the number of search iterations (default 3).
	MaxPasses int `json:"max_passes" yaml:"max_passes"`

	// QueriesPerPass caps the queries issued to the web provider in a
	// single pass (default 3).
	QueriesPerPass int `json:"queries_per_pass" yaml:"queries_per_pass"`

	// MinResults is the resource count below which the generation
	// fallback runs and further passes are attempted (default 12).
	MinResults int `json:"min_results" yaml:"min_results"`

	// MaxResults caps accumulated resources per provider call (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// ProviderMinInterval is the minimum delay between successive calls
	// to the same provider (default 1s).
	ProviderMinInterval time.Duration `json:"provider_min_interval" yaml:"provider_min_interval"`

	// EnableWebSearch controls whether the web-search provider is used.
	EnableWebSearch bool `json:"enable_web_search" yaml:"enable_web_search"`

	// TavilyAPIKey authenticates against the web-search provider. When
	// empty the web provider is treated as unconfigured.
	TavilyAPIKey string `json:"tavily_api_key,omitempty" yaml:"tavily_api_key,omitempty"`

	// EnableGitHub controls whether the GitHub example search runs.
	EnableGitHub bool `json:"enable_github" yaml:"enable_github"`

	// GitHubToken is an optional token for higher rate limits.
	GitHubToken string `json:"github_token,omitempty" yaml:"github_token,omitempty"`

	// MaxExamples caps GitHub example candidates (default 5).
	MaxExamples int `json:"max_examples" yaml:"max_examples"`
}

// ScrapeConfig holds settings for the scrape-and-summarize stage.
type ScrapeConfig struct {
	HTTPConfig `yaml:",inline"`

	// ScrapeTimeout bounds a single page fetch (default 8s). Exceeding it
	// skips that resource, it does not abort the pass.
	ScrapeTimeout time.Duration `json:"scrape_timeout" yaml:"scrape_timeout"`

	// MaxScrapes caps scrapes across the whole run (default 5).
	MaxScrapes int `json:"max_scrapes" yaml:"max_scrapes"`

	// MaxContentChars truncates fetched content (default 12000).
	MaxContentChars int `json:"max_content_chars" yaml:"max_content_chars"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API. When empty the
	// stage runs its deterministic fallback path.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// EvaluationConfig holds settings for the quality evaluation stage.
type EvaluationConfig struct {
	AIConfig `yaml:",inline"`

	// TopN is the number of scored resources kept after ranking (default 10).
	TopN int `json:"top_n" yaml:"top_n"`
}

// SynthesisConfig holds settings for the recommendation synthesis stage.
type SynthesisConfig struct {
	AIConfig `yaml:",inline"`

	// MaxRecommendations is the hard cap on the final list (default 6).
	MaxRecommendations int `json:"max_recommendations" yaml:"max_recommendations"`

	// MinRecommendations triggers deterministic backfill when validated
	// generation output falls short (default 5).
	MinRecommendations int `json:"min_recommendations" yaml:"min_recommendations"`

	// MaxPathSteps caps the learning path length (default 6).
	MaxPathSteps int `json:"max_path_steps" yaml:"max_path_steps"`
}

// StoreConfig holds settings for the run-history store.
type StoreConfig struct {
	// DataDir is the directory holding the history database (default
	// "data/"). The database file is DataDir/research.db.
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Search     SearchConfig     `json:"search" yaml:"search"`
	Scrape     ScrapeConfig     `json:"scrape" yaml:"scrape"`
	Evaluate   EvaluationConfig `json:"evaluate" yaml:"evaluate"`
	Synthesize SynthesisConfig  `json:"synthesize" yaml:"synthesize"`
	Store      StoreConfig      `json:"store" yaml:"store"`
}
