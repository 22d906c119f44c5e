package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sigreer/fixswap/internal/remedy"
	_ "modernc.org/sqlite"
)

// Journal records every fixswap run and the outcome for each swap partition
type Journal struct {
	conn *sql.DB
	path string
}

// Run is one invocation of fixswap
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	DryRun     bool
	Error      string
}

// ActionRecord is one journaled outcome
type ActionRecord struct {
	ID        int64
	RunID     string
	Name      string
	UUID      string
	Partition string
	Drive     string
	PartNum   string
	Scheme    string
	Action    remedy.Action
	Timestamp time.Time
}

// Open opens or creates the journal database at path
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// PRAGMAs are per connection
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure journal: %w", err)
	}

	j := &Journal{conn: conn, path: path}

	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return j, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.conn.Close()
}

// Path returns the database file path
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) migrate() error {
	_, err := j.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	var version int
	err = j.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return err
	}

	migrations := []string{
		migrationV1,
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := j.conn.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    dry_run INTEGER NOT NULL DEFAULT 0,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS actions (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id),
    name TEXT,
    uuid TEXT NOT NULL,
    partition TEXT,
    drive TEXT,
    part_num TEXT,
    scheme TEXT,
    action TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_actions_run ON actions(run_id);
CREATE INDEX IF NOT EXISTS idx_actions_time ON actions(timestamp);
CREATE INDEX IF NOT EXISTS idx_actions_partition ON actions(partition);
`

// BeginRun records the start of a run and returns its ID
func (j *Journal) BeginRun(dryRun bool) (string, error) {
	id := uuid.NewString()
	_, err := j.conn.Exec(
		"INSERT INTO runs (id, started_at, dry_run) VALUES (?, ?, ?)",
		id, time.Now().UTC(), dryRun,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run as finished, keeping runErr's message if it failed
func (j *Journal) FinishRun(runID string, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := j.conn.Exec(
		"UPDATE runs SET finished_at = ?, error = ? WHERE id = ?",
		time.Now().UTC(), msg, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RecordOutcome stores one partition decision under runID
func (j *Journal) RecordOutcome(runID string, o remedy.Outcome) error {
	_, err := j.conn.Exec(`
		INSERT INTO actions (run_id, name, uuid, partition, drive, part_num, scheme, action, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, nullString(o.Name), o.UUID, nullString(o.Partition), nullString(o.Drive),
		nullString(o.PartNum), nullString(o.Scheme), string(o.Action), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// RecordReport stores every outcome of report under runID
func (j *Journal) RecordReport(runID string, report *remedy.Report) error {
	if report == nil {
		return nil
	}
	for _, o := range report.Outcomes {
		if err := j.RecordOutcome(runID, o); err != nil {
			return err
		}
	}
	return nil
}

// RecentActions returns the newest outcomes first
func (j *Journal) RecentActions(limit int) ([]*ActionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.conn.Query(`
		SELECT id, run_id, name, uuid, partition, drive, part_num, scheme, action, timestamp
		FROM actions
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var records []*ActionRecord
	for rows.Next() {
		var rec ActionRecord
		var name, partition, drive, partNum, scheme sql.NullString
		var action string

		err := rows.Scan(
			&rec.ID, &rec.RunID, &name, &rec.UUID, &partition,
			&drive, &partNum, &scheme, &action, &rec.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}

		rec.Name = name.String
		rec.Partition = partition.String
		rec.Drive = drive.String
		rec.PartNum = partNum.String
		rec.Scheme = scheme.String
		rec.Action = remedy.Action(action)
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Runs returns the newest runs first
func (j *Journal) Runs(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.conn.Query(`
		SELECT id, started_at, finished_at, dry_run, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var finished sql.NullTime
		var msg sql.NullString

		if err := rows.Scan(&run.ID, &run.StartedAt, &finished, &run.DryRun, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		run.Error = msg.String
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
