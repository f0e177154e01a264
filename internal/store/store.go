// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists completed research runs in a SQLite database and
// seeds new runs from prior context for the same skill gap. The seed only
// carries inputs (focus skills, objectives, queries); the pipeline clears
// any derived results before running so research is always fresh.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/skill-research/pkg/types"
)

const dbFile = "research.db"

// ErrRunNotFound reports a history lookup for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Store manages the run-history SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at DataDir/research.db,
// creating the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			skill_gap TEXT NOT NULL,
			language TEXT,
			confidence REAL,
			resource_count INTEGER,
			recommendation_count INTEGER,
			state TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_skill_gap ON runs(skill_gap)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun records a completed run. The full state is stored as JSON so
// later runs can seed from it and the history command can replay it.
func (s *Store) SaveRun(ctx context.Context, state *types.ResearchState) (int64, error) {
	blob, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("encoding state: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (skill_gap, language, confidence, resource_count, recommendation_count, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		state.SkillGap, state.Language, state.Confidence.Overall,
		len(state.Resources), len(state.Recommendations),
		string(blob), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return res.LastInsertId()
}

// Seed loads the most recent prior run for state's skill gap and copies
// its seed inputs (focus skills, learning objectives, queries) into state.
// No prior run is not an error. Satisfies the pipeline's Seeder contract.
func (s *Store) Seed(ctx context.Context, state *types.ResearchState) error {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM runs WHERE skill_gap = ? ORDER BY id DESC LIMIT 1`,
		state.SkillGap,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading prior run: %w", err)
	}

	var prior types.ResearchState
	if err := json.Unmarshal([]byte(blob), &prior); err != nil {
		return fmt.Errorf("decoding prior run: %w", err)
	}

	if len(state.FocusSkills) == 0 {
		state.FocusSkills = prior.FocusSkills
	}
	if len(state.LearningObjectives) == 0 {
		state.LearningObjectives = prior.LearningObjectives
	}
	state.Queries = mergeUnique(state.Queries, prior.Queries)
	if state.Language == "" {
		state.Language = prior.Language
	}
	if !state.SkillLevel.Valid() {
		state.SkillLevel = prior.SkillLevel
	}
	return nil
}

// RunSummary is one history listing row.
type RunSummary struct {
	ID              int64
	SkillGap        string
	Language        string
	Confidence      float64
	Resources       int
	Recommendations int
	CreatedAt       time.Time
}

// History returns the most recent runs, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, skill_gap, language, confidence, resource_count, recommendation_count, created_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var created string
		if err := rows.Scan(&r.ID, &r.SkillGap, &r.Language, &r.Confidence,
			&r.Resources, &r.Recommendations, &created); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadRun returns the full stored state for one run.
func (s *Store) LoadRun(ctx context.Context, id int64) (*types.ResearchState, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM runs WHERE id = ?`, id,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %d: %w", id, err)
	}

	var state types.ResearchState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("decoding run %d: %w", id, err)
	}
	return &state, nil
}

// mergeUnique appends src entries not already present in dst.
func mergeUnique(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range src {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		dst = append(dst, v)
	}
	return dst
}
