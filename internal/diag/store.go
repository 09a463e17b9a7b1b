// Package diag persists batch outcomes to a local sqlite database for
// offline quality monitoring of the upstream model's command generation.
package diag

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/SnowriterMYX/PPTAgent/internal/executor"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	slide_idx   INTEGER NOT NULL,
	status      TEXT NOT NULL,
	error_code  TEXT NOT NULL DEFAULT '',
	error_line  TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS corrections (
	batch_id      TEXT NOT NULL,
	requested     INTEGER NOT NULL,
	max_available INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_corrections_batch ON corrections(batch_id);
`

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Store is the diagnostics database. Safe for concurrent use; database/sql
// serializes access to the single connection the driver hands out.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the diagnostics database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating diagnostics directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening diagnostics database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying diagnostics schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Path() string { return s.path }

// RecordBatch stores the outcome of one executed batch.
func (s *Store) RecordBatch(ctx context.Context, batchID, sessionID string, slideIdx int, failure *executor.Failure) error {
	status := StatusOK
	errorCode, errorLine := "", ""
	if failure != nil {
		status = StatusFailed
		errorCode = failure.Code
		errorLine = failure.Line
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO batches (id, session_id, slide_idx, status, error_code, error_line, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batchID, sessionID, slideIdx, status, errorCode, errorLine, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// RecordCorrections stores the auto-correction patterns a session observed.
func (s *Store) RecordCorrections(ctx context.Context, batchID string, mismatches []executor.Mismatch) error {
	if len(mismatches) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, m := range mismatches {
		for i := 0; i < m.Count; i++ {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO corrections (batch_id, requested, max_available, created_at)
				 VALUES (?, ?, ?, ?)`,
				batchID, m.Requested, m.MaxAvailable, now); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}

// Report aggregates the stored outcomes.
type Report struct {
	Batches         int                 `json:"batches"`
	Failed          int                 `json:"failed"`
	AutoCorrections int                 `json:"auto_corrections"`
	FailureCodes    map[string]int      `json:"failure_codes,omitempty"`
	Mismatches      []executor.Mismatch `json:"mismatches,omitempty"`
}

// Report queries the aggregate view used for offline monitoring.
func (s *Store) Report(ctx context.Context) (*Report, error) {
	r := &Report{FailureCodes: map[string]int{}}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(status = 'failed'), 0) FROM batches`).
		Scan(&r.Batches, &r.Failed); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT error_code, COUNT(*) FROM batches WHERE status = 'failed' GROUP BY error_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		r.FailureCodes[code] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mrows, err := s.db.QueryContext(ctx,
		`SELECT requested, max_available, COUNT(*) AS n
		 FROM corrections
		 GROUP BY requested, max_available
		 ORDER BY n DESC, requested ASC`)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()
	for mrows.Next() {
		var m executor.Mismatch
		if err := mrows.Scan(&m.Requested, &m.MaxAvailable, &m.Count); err != nil {
			return nil, err
		}
		r.AutoCorrections += m.Count
		r.Mismatches = append(r.Mismatches, m)
	}
	if err := mrows.Err(); err != nil {
		return nil, err
	}
	if len(r.FailureCodes) == 0 {
		r.FailureCodes = nil
	}
	return r, nil
}
