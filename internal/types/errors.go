package types

import "errors"

// Error kinds. Callers wrap these with fmt.Errorf("...: %w", ...) and
// classify with errors.Is.
var (
	// ErrSourceUnavailable means the configuration source is missing,
	// unreadable or empty. Fatal for the run.
	ErrSourceUnavailable = errors.New("configuration source unavailable")

	// ErrUnsupportedPlatform means the host OS cannot be audited. Fatal
	// before any check runs.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrPermissionDenied means the process lacks privileges for the
	// configuration file.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrBackupFailure aborts remediation before any mutation.
	ErrBackupFailure = errors.New("backup failed")

	// ErrPatchPersist means the patched configuration could not be written.
	// A restore from backup is attempted.
	ErrPatchPersist = errors.New("failed to persist patched configuration")

	// ErrRestoreFailure means the restore after ErrPatchPersist also failed.
	// Manual recovery from the backup is required.
	ErrRestoreFailure = errors.New("failed to restore configuration from backup")

	// ErrCollaboratorUnavailable means a service or permission probe could
	// not run. Downgraded to a warning verdict.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)
