// Package history keeps a local sqlite log of pipeline runs and the notes
// they created. It is reporting-only; the card store remains the source of
// truth for deck contents.
package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/macintoshm/auto-anki-maker/pkg/pipeline"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	deck TEXT NOT NULL,
	created INTEGER NOT NULL,
	skipped_duplicate INTEGER NOT NULL,
	skipped_no_match INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	ran_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS created_notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	word TEXT NOT NULL,
	surface TEXT NOT NULL,
	reading TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_created_notes_run ON created_notes(run_id)
`

// Run is one recorded pipeline run.
type Run struct {
	ID               int64
	Deck             string
	Created          int
	SkippedDuplicate int
	SkippedNoMatch   int
	Failed           int
	RanAt            time.Time
}

// NoteRecord is one note created during a run.
type NoteRecord struct {
	RunID   int64
	Word    string
	Surface string
	Reading string
}

// Store wraps the sqlite connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and applies
// the schema. ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply history schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun persists the summary and its created notes, returning the run
// id. The write is transactional so a run is either fully recorded or not
// at all.
func (s *Store) RecordRun(deck string, summary *pipeline.Summary) (int64, error) {
	if deck == "" {
		deck = "(none)"
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (deck, created, skipped_duplicate, skipped_no_match, failed, ran_at) VALUES (?, ?, ?, ?, ?, ?)`,
		deck, summary.Created, summary.SkippedDuplicate, summary.SkippedNoMatch, summary.Failed, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, r := range summary.Results {
		if r.Outcome != pipeline.OutcomeCreated || r.Note == nil {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO created_notes (run_id, word, surface, reading) VALUES (?, ?, ?, ?)`,
			runID, r.Word, r.Note.Key.Surface, r.Note.Key.Reading,
		); err != nil {
			return 0, fmt.Errorf("insert note for %s: %w", r.Word, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT id, deck, created, skipped_duplicate, skipped_no_match, failed, ran_at FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Deck, &r.Created, &r.SkippedDuplicate, &r.SkippedNoMatch, &r.Failed, &r.RanAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// NotesForRun returns the notes created in the given run.
func (s *Store) NotesForRun(runID int64) ([]NoteRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, word, surface, reading FROM created_notes WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NoteRecord
	for rows.Next() {
		var n NoteRecord
		if err := rows.Scan(&n.RunID, &n.Word, &n.Surface, &n.Reading); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
