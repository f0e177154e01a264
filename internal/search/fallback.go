// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/pdiddy/skill-research/internal/ai"
	"github.com/pdiddy/skill-research/internal/dedupe"
	"github.com/pdiddy/skill-research/pkg/types"
)

// fallbackSystem frames the generation fallback as a curator, not a search
// engine, so it proposes well-known resources rather than inventing URLs.
const fallbackSystem = "You are a technical learning curator. You recommend real, well-known learning resources for software skills. Respond only with JSON."

// fallbackPromptTmpl asks the model for candidate resources plus optional
// supplemental queries that feed the next search pass.
var fallbackPromptTmpl = template.Must(template.New("fallback").Parse(`Suggest learning resources for the skill "{{.Skill}}"{{if .Language}} in the context of {{.Language}}{{end}}.
{{if .Context}}Learner context: {{.Context}}{{end}}

Propose between 3 and 10 resources. Prefer official documentation, widely used tutorials, and well-known books or courses. Also propose up to 3 supplemental search queries that would surface resources you could not name directly.

Respond with a JSON object:
{"resources": [{"title": "...", "url": "...", "description": "..."}], "queries": ["..."]}

Every resource must have a non-empty title, url, and description. Do not include any text outside the JSON object.`))

// fallbackResponse is the schema expected from the generation fallback.
type fallbackResponse struct {
	Resources []fallbackResource `json:"resources"`
	Queries   []string           `json:"queries"`
}

type fallbackResource struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// minFallbackResources and maxFallbackResources bound the accepted payload.
const (
	minFallbackResources = 3
	maxFallbackResources = 10
)

// GenerateFallback asks the generation backend to propose candidate
// resources when provider coverage is insufficient. The response is
// schema-validated: runs with fewer than 3 valid resources are discarded,
// and anything beyond 10 is truncated. Returned queries are deduplicated
// supplemental queries for the next pass.
func GenerateFallback(ctx context.Context, backend ai.Backend, state types.ResearchState, maxRetries int) ([]types.Resource, []string, error) {
	var buf bytes.Buffer
	err := fallbackPromptTmpl.Execute(&buf, struct {
		Skill    string
		Language string
		Context  string
	}{state.SkillGap, state.Language, state.UserContext})
	if err != nil {
		return nil, nil, fmt.Errorf("rendering fallback prompt: %w", err)
	}

	raw, err := ai.CompleteWithRetry(ctx, backend, fallbackSystem, buf.String(), maxRetries)
	if err != nil {
		return nil, nil, fmt.Errorf("generation fallback: %w", err)
	}

	var resp fallbackResponse
	if err := ai.DecodeJSON(raw, &resp); err != nil {
		return nil, nil, fmt.Errorf("generation fallback: %w", err)
	}

	var resources []types.Resource
	for _, r := range resp.Resources {
		if r.Title == "" || r.URL == "" || r.Description == "" {
			continue
		}
		if _, ok := dedupe.NormalizeURL(r.URL); !ok {
			continue
		}
		resources = append(resources, types.Resource{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
			Provider:    types.ProviderAIFallback,
		})
		if len(resources) >= maxFallbackResources {
			break
		}
	}

	if len(resources) < minFallbackResources {
		return nil, nil, fmt.Errorf("generation fallback: %d valid resources, need at least %d", len(resources), minFallbackResources)
	}

	return resources, resp.Queries, nil
}
