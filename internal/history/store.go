// Package history persists scan summaries and remediation outcomes so an
// operator can see how a host's configuration drifts over time.
package history

import (
	"context"
	"time"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// Store defines the persistence interface for audit history.
// The primary implementation uses SQLite (see sqlite.go).
type Store interface {
	// RecordScan stores a report and its per-rule results, returning the scan ID.
	RecordScan(ctx context.Context, runID string, report *types.ScanReport) (int64, error)
	// ListScans returns scans newest first.
	ListScans(ctx context.Context, filter ScanFilter) ([]Scan, error)
	// LatestScan returns the newest scan for a config path, or nil when none exists.
	LatestScan(ctx context.Context, configPath string) (*Scan, error)
	// ScanResults returns the stored results of one scan in catalog order.
	ScanResults(ctx context.Context, scanID int64) ([]types.CheckResult, error)

	// RecordRemediation stores the outcome of one remediation pass.
	RecordRemediation(ctx context.Context, r Remediation) error
	// ListRemediations returns remediation passes newest first.
	ListRemediations(ctx context.Context, configPath string, limit int) ([]Remediation, error)

	Close() error
}

// Scan is one stored audit run.
type Scan struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	Hostname   string    `json:"hostname"`
	ConfigPath string    `json:"config_path"`
	Total      int       `json:"total"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Warnings   int       `json:"warnings"`
	Score      float64   `json:"score"`
	Rating     string    `json:"rating"`
}

// ScanFilter narrows ListScans. Zero values mean no restriction;
// Limit defaults to DefaultListLimit.
type ScanFilter struct {
	ConfigPath string
	Limit      int
}

// DefaultListLimit caps list queries when no limit is given.
const DefaultListLimit = 20

// Remediation is one stored remediation pass.
type Remediation struct {
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	ConfigPath string    `json:"config_path"`
	State      string    `json:"state"`
	BackupPath string    `json:"backup_path,omitempty"`
	Applied    []string  `json:"applied"`
	Message    string    `json:"message,omitempty"`
}
