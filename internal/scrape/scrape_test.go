// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/skill-research/pkg/types"
)

const sampleMarkdown = `# Go Testing Guide

An introduction to writing tests in Go, covering the basics of the testing
package and how to get started with your first test.

## Table-driven tests

- Use subtests via t.Run
- Keep cases in a slice of structs

## Coverage

- go test -cover reports statement coverage
`

type stubAI struct {
	response string
	err      error
}

func (s *stubAI) Complete(_ context.Context, _, _ string) (string, error) {
	return s.response, s.err
}

func newReaderServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)

	old := readerAPIBase
	readerAPIBase = ts.URL + "/"
	t.Cleanup(func() { readerAPIBase = old })
	return ts
}

func TestScrapeWithAISummary(t *testing.T) {
	ts := newReaderServer(t, sampleMarkdown, http.StatusOK)

	svc := &Service{
		Client: ts.Client(),
		AI: &stubAI{response: `{"summary": "A practical guide to Go testing.",
			"key_points": ["subtests", "table tests", "coverage", "benchmarks", "fuzzing", "extra beyond cap"],
			"audience": "beginner"}`},
	}

	sr, err := svc.Scrape(context.Background(), types.Resource{URL: "https://example.com/guide", Title: "Guide"})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	if sr.Summary != "A practical guide to Go testing." {
		t.Errorf("Summary = %q", sr.Summary)
	}
	if len(sr.KeyPoints) != 5 {
		t.Errorf("key points = %d, want capped at 5", len(sr.KeyPoints))
	}
	if sr.Audience != "beginner" {
		t.Errorf("Audience = %q", sr.Audience)
	}
	if sr.ScrapedAt.IsZero() {
		t.Error("ScrapedAt not set")
	}
}

func TestScrapeHeuristicFallbackWithoutAI(t *testing.T) {
	ts := newReaderServer(t, sampleMarkdown, http.StatusOK)

	svc := &Service{Client: ts.Client()}
	sr, err := svc.Scrape(context.Background(), types.Resource{URL: "https://example.com/guide"})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	if !strings.Contains(sr.Summary, "introduction to writing tests") {
		t.Errorf("Summary = %q, want first paragraph", sr.Summary)
	}
	if len(sr.KeyPoints) == 0 || len(sr.KeyPoints) > 5 {
		t.Errorf("key points = %d, want 1-5", len(sr.KeyPoints))
	}
	if sr.Audience != string(types.LevelBeginner) {
		t.Errorf("Audience = %q, want beginner (introduction/basics signals)", sr.Audience)
	}
}

func TestScrapeHeuristicFallbackOnInvalidAIResponse(t *testing.T) {
	ts := newReaderServer(t, sampleMarkdown, http.StatusOK)

	svc := &Service{Client: ts.Client(), AI: &stubAI{response: "sorry, I can't summarize this"}}
	sr, err := svc.Scrape(context.Background(), types.Resource{URL: "https://example.com/guide"})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if sr.Summary == "" {
		t.Error("expected heuristic summary after schema-invalid AI response")
	}
}

func TestScrapeTruncatesContent(t *testing.T) {
	long := strings.Repeat("word ", 10000)
	ts := newReaderServer(t, long, http.StatusOK)

	svc := &Service{Client: ts.Client(), Cfg: types.ScrapeConfig{MaxContentChars: 1000}}
	sr, err := svc.Scrape(context.Background(), types.Resource{URL: "https://example.com/long"})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(sr.Content) != 1000 {
		t.Errorf("content = %d chars, want 1000", len(sr.Content))
	}
	if len(sr.Snippet) > 300 {
		t.Errorf("snippet = %d chars, want <= 300", len(sr.Snippet))
	}
}

func TestScrapeTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	old := readerAPIBase
	readerAPIBase = ts.URL + "/"
	defer func() { readerAPIBase = old }()

	svc := &Service{Client: ts.Client(), Cfg: types.ScrapeConfig{ScrapeTimeout: 20 * time.Millisecond}}
	_, err := svc.Scrape(context.Background(), types.Resource{URL: "https://example.com/slow"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestScrapeHTTPError(t *testing.T) {
	ts := newReaderServer(t, "nope", http.StatusNotFound)

	svc := &Service{Client: ts.Client()}
	_, err := svc.Scrape(context.Background(), types.Resource{URL: "https://example.com/missing"})
	if err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestHeuristicAudience(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"beginner", "An introduction to the basics. Getting started is easy.", "beginner"},
		{"advanced", "A deep dive into runtime internals and optimization.", "advanced"},
		{"neutral", "Some notes about things.", "intermediate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := heuristicAudience(tt.content); got != tt.want {
				t.Errorf("heuristicAudience = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeuristicKeyPointsCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "- point number %d\n", i)
	}
	points := heuristicKeyPoints(b.String())
	if len(points) != 5 {
		t.Errorf("key points = %d, want 5", len(points))
	}
}
