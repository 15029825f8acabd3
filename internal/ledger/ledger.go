// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists run summaries and per-person outcomes in a
// SQLite database so past runs stay auditable without trawling logs.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/civicdata/legislator-research/internal/pipeline"
	"github.com/civicdata/legislator-research/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "runs.db"
)

// Store manages the run ledger SQLite database.
type Store struct {
	db    *sql.DB
	runID string
}

// Open opens or creates the ledger at outputRoot/index/runs.db and creates
// the schema if it does not exist. runID tags every item recorded through
// this handle.
func Open(outputRoot, runID string) (*Store, error) {
	dbDir := filepath.Join(outputRoot, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	s := &Store{db: db, runID: runID}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
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
			run_id TEXT PRIMARY KEY,
			locale TEXT,
			started TEXT NOT NULL,
			finished TEXT NOT NULL,
			candidates INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			legislator_id TEXT NOT NULL,
			state TEXT NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			recorded TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_run_id ON items(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_legislator_id ON items(legislator_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordItem stores one person's outcome. Implements pipeline.Recorder.
func (s *Store) RecordItem(rec types.PersonRecord, status pipeline.ItemStatus, errMsg string) error {
	_, err := s.db.Exec(
		`INSERT INTO items (run_id, legislator_id, state, name, status, error, recorded)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID, rec.ID, rec.State, rec.Name, string(status), errMsg,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording item %s: %w", rec.ID, err)
	}
	return nil
}

// FinishRun stores the aggregated run summary. An existing row for the same
// run ID is replaced, so a re-run under one CI run number keeps one row.
func (s *Store) FinishRun(locale string, started, finished time.Time, summary pipeline.RunSummary) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO runs
		 (run_id, locale, started, finished, candidates, skipped, succeeded, failed, input_tokens, output_tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, locale,
		started.Format(time.RFC3339), finished.Format(time.RFC3339),
		summary.Candidates, summary.Skipped, summary.Succeeded, summary.Failed,
		summary.Usage.InputTokens, summary.Usage.OutputTokens,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", s.runID, err)
	}
	return nil
}

// RunRow is one row of the runs table, for listing.
type RunRow struct {
	RunID      string
	Locale     string
	Started    string
	Finished   string
	Candidates int
	Skipped    int
	Succeeded  int
	Failed     int
	Usage      types.TokenUsage
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT run_id, locale, started, finished, candidates, skipped, succeeded, failed, input_tokens, output_tokens
		 FROM runs ORDER BY started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var result []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.RunID, &r.Locale, &r.Started, &r.Finished,
			&r.Candidates, &r.Skipped, &r.Succeeded, &r.Failed,
			&r.Usage.InputTokens, &r.Usage.OutputTokens); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ItemRow is one row of the items table.
type ItemRow struct {
	RunID        string
	LegislatorID string
	State        string
	Name         string
	Status       string
	Error        string
	Recorded     string
}

// ListItems returns the items recorded for one run, in insertion order.
func (s *Store) ListItems(runID string) ([]ItemRow, error) {
	rows, err := s.db.Query(
		`SELECT run_id, legislator_id, state, name, status, error, recorded
		 FROM items WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var result []ItemRow
	for rows.Next() {
		var it ItemRow
		if err := rows.Scan(&it.RunID, &it.LegislatorID, &it.State, &it.Name,
			&it.Status, &it.Error, &it.Recorded); err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		result = append(result, it)
	}
	return result, rows.Err()
}
