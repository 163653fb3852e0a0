package service

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/remedy-kit/remedy/domain"
)

// Journal events
const (
	JournalEventStaged    = "staged"
	JournalEventApplied   = "applied"
	JournalEventDiscarded = "discarded"
)

// MergeRecord is one journaled analysis merge
type MergeRecord struct {
	ID              int64  `json:"id" yaml:"id"`
	OccurredAt      string `json:"occurred_at" yaml:"occurred_at"`
	SourcePath      string `json:"source_path" yaml:"source_path"`
	ScopeFiles      int    `json:"scope_files" yaml:"scope_files"`
	Added           int    `json:"added" yaml:"added"`
	Evicted         int    `json:"evicted" yaml:"evicted"`
	Anomalies       int    `json:"anomalies" yaml:"anomalies"`
	AnalysisVersion uint64 `json:"analysis_version" yaml:"analysis_version"`
}

// ChangeEventRecord is one journaled change lifecycle event
type ChangeEventRecord struct {
	ID         int64  `json:"id" yaml:"id"`
	OccurredAt string `json:"occurred_at" yaml:"occurred_at"`
	ChangeID   string `json:"change_id" yaml:"change_id"`
	Path       string `json:"path" yaml:"path"`
	Event      string `json:"event" yaml:"event"`
	Detail     string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Journal keeps an append-only history of merges and change events in a
// SQLite database. It is an audit trail, not engine state: recording
// failures are logged and swallowed, and a nil journal is a valid no-op.
type Journal struct {
	conn   *sql.DB
	logger *slog.Logger
	path   string
}

// OpenJournal opens or creates the journal database at path
func OpenJournal(path string, logger *slog.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, domain.NewPersistenceError(fmt.Sprintf("cannot create journal directory for %s", path), err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.NewPersistenceError(fmt.Sprintf("cannot open journal %s", path), err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, domain.NewPersistenceError("cannot configure journal", err)
		}
	}

	j := &Journal{
		conn:   conn,
		logger: logger.With("component", "journal"),
		path:   path,
	}
	if err := j.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, domain.NewPersistenceError("cannot initialize journal schema", err)
	}
	return j, nil
}

func (j *Journal) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS merge_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			occurred_at TEXT NOT NULL,
			source_path TEXT,
			scope_files INTEGER NOT NULL DEFAULT 0,
			added INTEGER NOT NULL DEFAULT 0,
			evicted INTEGER NOT NULL DEFAULT 0,
			anomalies INTEGER NOT NULL DEFAULT 0,
			analysis_version INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_merge_runs_occurred ON merge_runs(occurred_at DESC);

		CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			occurred_at TEXT NOT NULL,
			change_id TEXT NOT NULL,
			path TEXT,
			event TEXT NOT NULL,
			detail TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_change_events_change ON change_events(change_id);
		CREATE INDEX IF NOT EXISTS idx_change_events_occurred ON change_events(occurred_at DESC);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`

	_, err := j.conn.Exec(schema)
	return err
}

// Close closes the journal database
func (j *Journal) Close() error {
	if j == nil || j.conn == nil {
		return nil
	}
	return j.conn.Close()
}

// RecordMerge journals one analysis merge
func (j *Journal) RecordMerge(sourcePath string, result domain.IngestResult) {
	if j == nil || j.conn == nil {
		return
	}

	_, err := j.conn.Exec(`
		INSERT INTO merge_runs (occurred_at, source_path, scope_files, added, evicted, anomalies, analysis_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		sourcePath,
		result.ScopeFiles,
		result.AddedIncidents,
		result.EvictedIncidents,
		len(result.Anomalies),
		result.AnalysisVersion,
	)
	if err != nil {
		j.logger.Warn("cannot journal merge", "error", err)
	}
}

// RecordChangeEvent journals one change lifecycle event
func (j *Journal) RecordChangeEvent(changeID, path, event, detail string) {
	if j == nil || j.conn == nil {
		return
	}

	_, err := j.conn.Exec(`
		INSERT INTO change_events (occurred_at, change_id, path, event, detail)
		VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		changeID,
		path,
		event,
		detail,
	)
	if err != nil {
		j.logger.Warn("cannot journal change event", "error", err)
	}
}

// MergeHistory returns the newest merge records, most recent first
func (j *Journal) MergeHistory(limit int) ([]MergeRecord, error) {
	if j == nil || j.conn == nil {
		return nil, nil
	}
	if limit < 1 {
		limit = 50
	}

	rows, err := j.conn.Query(`
		SELECT id, occurred_at, source_path, scope_files, added, evicted, anomalies, analysis_version
		FROM merge_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, domain.NewPersistenceError("cannot read merge history", err)
	}
	defer rows.Close()

	var records []MergeRecord
	for rows.Next() {
		var r MergeRecord
		var source sql.NullString
		if err := rows.Scan(&r.ID, &r.OccurredAt, &source, &r.ScopeFiles, &r.Added, &r.Evicted, &r.Anomalies, &r.AnalysisVersion); err != nil {
			return nil, domain.NewPersistenceError("cannot scan merge record", err)
		}
		r.SourcePath = source.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// ChangeHistory returns the newest change events, most recent first
func (j *Journal) ChangeHistory(limit int) ([]ChangeEventRecord, error) {
	if j == nil || j.conn == nil {
		return nil, nil
	}
	if limit < 1 {
		limit = 50
	}

	rows, err := j.conn.Query(`
		SELECT id, occurred_at, change_id, path, event, detail
		FROM change_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, domain.NewPersistenceError("cannot read change history", err)
	}
	defer rows.Close()

	var records []ChangeEventRecord
	for rows.Next() {
		var r ChangeEventRecord
		var path, detail sql.NullString
		if err := rows.Scan(&r.ID, &r.OccurredAt, &r.ChangeID, &path, &r.Event, &detail); err != nil {
			return nil, domain.NewPersistenceError("cannot scan change event", err)
		}
		r.Path = path.String
		r.Detail = detail.String
		records = append(records, r)
	}
	return records, rows.Err()
}
