// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ai abstracts the text-generation provider used by the search
// fallback, scraper summaries, quality evaluation, and recommendation
// synthesis. Responses are schema-validated before use; every consumer
// branches explicitly between validated output and its deterministic
// fallback. See docs/ARCHITECTURE.md § Generation.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Backend produces a completion for a prompt. Implementations must be safe
// for concurrent use; tests supply mocks.
type Backend interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// backoffBase controls the base duration for exponential backoff between
// retries. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// CompleteWithRetry calls the backend with exponential backoff. A nil
// backend fails immediately so callers fall through to their heuristic path
// without waiting.
func CompleteWithRetry(ctx context.Context, backend Backend, system, prompt string, maxRetries int) (string, error) {
	if backend == nil {
		return "", fmt.Errorf("no generation backend configured")
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := backend.Complete(ctx, system, prompt)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// DecodeJSON parses a model response into v. Models sometimes wrap JSON in
// a fenced code block or surround it with prose; DecodeJSON extracts the
// first JSON object or array before unmarshaling. A response that still
// fails to parse is a schema-invalid result: the caller discards it and
// applies its documented fallback.
func DecodeJSON(raw string, v any) error {
	payload := extractJSON(raw)
	if payload == "" {
		return fmt.Errorf("no JSON payload in response")
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("parsing response JSON: %w", err)
	}
	return nil
}

// extractJSON returns the first balanced JSON object or array in raw,
// stripping Markdown code fences first.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		// Skip a language tag like "json" on the fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		} else {
			s = strings.TrimSpace(rest)
		}
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}

	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
