// Package remediate applies directive fixes to sshd_config behind a
// verified backup, restoring the backup if the patched file cannot be written.
package remediate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ancients-collective/sshcheck/internal/directive"
	"github.com/ancients-collective/sshcheck/internal/logging"
	"github.com/ancients-collective/sshcheck/internal/types"
)

// State is the position of a remediation run.
//
//	Idle -> BackupPending -> Patching -> Committed
//	                                  -> RolledBack
type State string

const (
	StateIdle          State = "idle"
	StateBackupPending State = "backup_pending"
	StatePatching      State = "patching"
	StateCommitted     State = "committed"
	StateRolledBack    State = "rolled_back"
)

// Outcome describes what a remediation run did.
type Outcome struct {
	// State is the final state reached.
	State State

	// Backup is the verified copy taken before patching. Nil when Idle or
	// when the backup step failed.
	Backup *types.Backup

	// Applied lists the directives written, in selection order.
	Applied []types.PatchRequest

	// Skipped lists selected rule names that have no directive fix.
	Skipped []string

	// Changed is false when every directive already held its value.
	Changed bool

	// Message is a one-line summary.
	Message string
}

// RestoreError reports that the configuration could not be restored after a
// failed write. The file may be inconsistent; BackupPath holds the last good copy.
type RestoreError struct {
	BackupPath string
	WriteErr   error
	RestoreErr error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("%v: %v; restoring from %s also failed: %v",
		types.ErrPatchPersist, e.WriteErr, e.BackupPath, e.RestoreErr)
}

func (e *RestoreError) Unwrap() []error {
	return []error{types.ErrRestoreFailure, types.ErrPatchPersist, e.RestoreErr}
}

// Orchestrator runs backup, patch and commit-or-restore for selected rules.
type Orchestrator struct {
	// Fixes maps rule name to the directive that fixes it.
	Fixes map[string]types.PatchRequest

	// Patcher rewrites the configuration text.
	Patcher *directive.Patcher

	// Now stamps backups. Defaults to time.Now.
	Now func() time.Time

	// WriteFile persists the patched text. Defaults to ReplaceFile.
	WriteFile func(path string, data []byte, perm fs.FileMode) error

	// Restore puts a backup back in place. Defaults to Restore.
	Restore func(b *types.Backup) error
}

// NewOrchestrator creates an Orchestrator with default collaborators.
func NewOrchestrator(fixes map[string]types.PatchRequest) *Orchestrator {
	return &Orchestrator{
		Fixes:     fixes,
		Patcher:   &directive.Patcher{},
		Now:       time.Now,
		WriteFile: ReplaceFile,
		Restore:   Restore,
	}
}

// Candidates returns the results that may be offered for remediation:
// failures, plus warnings when includeWarnings is set, limited to rules
// with a directive fix. Order is evaluation order.
func Candidates(rs *types.ResultSet, fixes map[string]types.PatchRequest, includeWarnings bool) []types.CheckResult {
	var out []types.CheckResult
	for _, r := range rs.Results() {
		switch r.Verdict {
		case types.VerdictFail:
		case types.VerdictWarning:
			if !includeWarnings {
				continue
			}
		default:
			continue
		}
		if _, ok := fixes[r.Name]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Plan resolves selected results into patch requests. Selections without
// a fix are returned as skipped. A key selected twice is written once.
func (o *Orchestrator) Plan(selected []types.CheckResult) (requests []types.PatchRequest, skipped []string) {
	seen := make(map[string]bool)
	for _, r := range selected {
		req, ok := o.Fixes[r.Name]
		if !ok {
			skipped = append(skipped, r.Name)
			continue
		}
		if seen[req.Key] {
			continue
		}
		seen[req.Key] = true
		requests = append(requests, req)
	}
	return requests, skipped
}

// Remediate fixes the selected rules in the file at path.
//
// With nothing fixable selected it returns an Idle outcome and touches
// nothing. Otherwise it takes a verified backup, applies every fix in
// memory and writes the result once. A backup failure leaves the file
// untouched. A write failure restores the backup and returns an error
// wrapping types.ErrPatchPersist; if that restore fails too the error is
// a *RestoreError. The backup is kept in every case.
func (o *Orchestrator) Remediate(ctx context.Context, path string, selected []types.CheckResult) (*Outcome, error) {
	log := logging.From(ctx)

	requests, skipped := o.Plan(selected)
	out := &Outcome{State: StateIdle, Skipped: skipped}
	if len(requests) == 0 {
		out.Message = "nothing to do"
		return out, nil
	}
	for _, req := range requests {
		if err := directive.ValidateRequest(req.Key, req.Value); err != nil {
			return out, err
		}
	}

	data, err := directive.ReadFileLimited(path)
	if err != nil {
		return out, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return out, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}

	out.State = StateBackupPending
	backup, err := CreateBackup(path, o.now())
	if err != nil {
		log.Event(ctx, "remediation.backup_failed", map[string]any{"config": path, "error": err.Error()})
		return out, err
	}
	out.Backup = backup
	log.Event(ctx, "remediation.backup_created", map[string]any{"config": path, "backup": backup.Path})

	out.State = StatePatching
	original := string(data)
	text := original
	for _, req := range requests {
		text = o.patcher().Apply(text, req.Key, req.Value)
		log.Debug("remediate", "directive set", "key", req.Key, "value", req.Value)
	}
	out.Applied = requests

	if text == original {
		out.State = StateCommitted
		out.Message = "configuration already up to date"
		log.Event(ctx, "remediation.committed", map[string]any{"config": path, "changed": false, "backup": backup.Path})
		return out, nil
	}

	if werr := o.write(path, []byte(text), info.Mode().Perm()); werr != nil {
		log.Error("remediate", "write failed, restoring backup", "config", path, "error", werr.Error())
		if rerr := o.restore(backup); rerr != nil {
			log.Event(ctx, "remediation.restore_failed", map[string]any{
				"config": path, "backup": backup.Path, "error": rerr.Error(),
			})
			return out, &RestoreError{BackupPath: backup.Path, WriteErr: werr, RestoreErr: rerr}
		}
		out.State = StateRolledBack
		out.Message = "write failed; configuration restored from backup"
		log.Event(ctx, "remediation.rolled_back", map[string]any{"config": path, "backup": backup.Path})
		return out, fmt.Errorf("%w: %w", types.ErrPatchPersist, werr)
	}

	out.State = StateCommitted
	out.Changed = true
	out.Message = fmt.Sprintf("applied %d fix(es)", len(requests))
	log.Event(ctx, "remediation.committed", map[string]any{
		"config": path, "changed": true, "backup": backup.Path, "applied": len(requests),
	})
	return out, nil
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) patcher() *directive.Patcher {
	if o.Patcher != nil {
		return o.Patcher
	}
	return &directive.Patcher{}
}

func (o *Orchestrator) write(path string, data []byte, perm fs.FileMode) error {
	if o.WriteFile != nil {
		return o.WriteFile(path, data, perm)
	}
	return ReplaceFile(path, data, perm)
}

func (o *Orchestrator) restore(b *types.Backup) error {
	if o.Restore != nil {
		return o.Restore(b)
	}
	return Restore(b)
}

// IsRestoreFailure reports whether err means the configuration may be left
// inconsistent, and returns the backup to recover from.
func IsRestoreFailure(err error) (string, bool) {
	var re *RestoreError
	if errors.As(err, &re) {
		return re.BackupPath, true
	}
	return "", false
}
