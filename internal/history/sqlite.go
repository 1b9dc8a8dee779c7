package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ancients-collective/sshcheck/internal/types"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		timestamp   TEXT NOT NULL,
		hostname    TEXT NOT NULL DEFAULT '',
		config_path TEXT NOT NULL,
		version     TEXT NOT NULL DEFAULT '',
		total       INTEGER NOT NULL,
		passed      INTEGER NOT NULL,
		failed      INTEGER NOT NULL,
		warnings    INTEGER NOT NULL,
		score       REAL NOT NULL,
		rating      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scan_results (
		scan_id     INTEGER NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		rule_id     TEXT NOT NULL,
		name        TEXT NOT NULL,
		category    TEXT NOT NULL,
		verdict     TEXT NOT NULL,
		details     TEXT NOT NULL DEFAULT '',
		remediation TEXT NOT NULL DEFAULT '',
		fixable     INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (scan_id, position)
	);

	CREATE TABLE IF NOT EXISTS remediations (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		timestamp   TEXT NOT NULL,
		config_path TEXT NOT NULL,
		state       TEXT NOT NULL,
		backup_path TEXT NOT NULL DEFAULT '',
		applied     TEXT NOT NULL DEFAULT '[]',
		message     TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_scans_path_time ON scans(config_path, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_remediations_path_time ON remediations(config_path, timestamp DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordScan inserts the scan summary and every result in one transaction.
func (s *SQLiteStore) RecordScan(ctx context.Context, runID string, report *types.ScanReport) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	sum := report.Summary
	res, err := tx.ExecContext(ctx,
		`INSERT INTO scans (run_id, timestamp, hostname, config_path, version, total, passed, failed, warnings, score, rating)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, report.Timestamp.UTC().Format(time.RFC3339), report.System.Hostname,
		report.ConfigPath, report.Version,
		sum.TotalChecks, sum.Passed, sum.Failed, sum.Warnings, sum.Score, sum.Rating,
	)
	if err != nil {
		return 0, fmt.Errorf("insert scan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scan_results (scan_id, position, rule_id, name, category, verdict, details, remediation, fixable)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare results: %w", err)
	}
	defer stmt.Close()

	for i, r := range report.Results {
		if _, err := stmt.ExecContext(ctx, id, i, r.ID, r.Name, r.Category, string(r.Verdict),
			r.Details, r.Remediation, boolToInt(r.Fixable)); err != nil {
			return 0, fmt.Errorf("insert result %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

const scanColumns = `id, run_id, timestamp, hostname, config_path, total, passed, failed, warnings, score, rating`

// ListScans returns scans newest first.
func (s *SQLiteStore) ListScans(ctx context.Context, filter ScanFilter) ([]Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + scanColumns + " FROM scans WHERE 1=1"
	var args []interface{}
	if filter.ConfigPath != "" {
		query += " AND config_path = ?"
		args = append(args, filter.ConfigPath)
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limitOrDefault(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		sc, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, *sc)
	}
	return scans, rows.Err()
}

// LatestScan returns the newest scan for configPath, or nil when none exists.
func (s *SQLiteStore) LatestScan(ctx context.Context, configPath string) (*Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+scanColumns+" FROM scans WHERE config_path = ? ORDER BY timestamp DESC, id DESC LIMIT 1",
		configPath)
	sc, err := scanScan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sc, err
}

// ScanResults returns the stored results of one scan in catalog order.
func (s *SQLiteStore) ScanResults(ctx context.Context, scanID int64) ([]types.CheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_id, name, category, verdict, details, remediation, fixable
		 FROM scan_results WHERE scan_id = ? ORDER BY position`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.CheckResult
	for rows.Next() {
		var r types.CheckResult
		var verdict string
		var fixable int
		if err := rows.Scan(&r.ID, &r.Name, &r.Category, &verdict, &r.Details, &r.Remediation, &fixable); err != nil {
			return nil, err
		}
		r.Verdict = types.Verdict(verdict)
		r.Fixable = fixable != 0
		results = append(results, r)
	}
	return results, rows.Err()
}

// RecordRemediation stores the outcome of one remediation pass.
func (s *SQLiteStore) RecordRemediation(ctx context.Context, r Remediation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied, err := json.Marshal(r.Applied)
	if err != nil {
		return err
	}
	if r.Applied == nil {
		applied = []byte("[]")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO remediations (run_id, timestamp, config_path, state, backup_path, applied, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Timestamp.UTC().Format(time.RFC3339), r.ConfigPath, r.State,
		r.BackupPath, string(applied), r.Message,
	)
	return err
}

// ListRemediations returns remediation passes newest first. An empty
// configPath lists every path.
func (s *SQLiteStore) ListRemediations(ctx context.Context, configPath string, limit int) ([]Remediation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT run_id, timestamp, config_path, state, backup_path, applied, message FROM remediations WHERE 1=1"
	var args []interface{}
	if configPath != "" {
		query += " AND config_path = ?"
		args = append(args, configPath)
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limitOrDefault(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Remediation
	for rows.Next() {
		var r Remediation
		var ts, applied string
		if err := rows.Scan(&r.RunID, &ts, &r.ConfigPath, &r.State, &r.BackupPath, &applied, &r.Message); err != nil {
			return nil, err
		}
		r.Timestamp, _ = time.Parse(time.RFC3339, ts)
		if err := json.Unmarshal([]byte(applied), &r.Applied); err != nil {
			return nil, fmt.Errorf("decode applied for run %s: %w", r.RunID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanScan(row rowScanner) (*Scan, error) {
	var sc Scan
	var ts string
	err := row.Scan(&sc.ID, &sc.RunID, &ts, &sc.Hostname, &sc.ConfigPath,
		&sc.Total, &sc.Passed, &sc.Failed, &sc.Warnings, &sc.Score, &sc.Rating)
	if err != nil {
		return nil, err
	}
	sc.Timestamp, _ = time.Parse(time.RFC3339, ts)
	return &sc, nil
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultListLimit
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
