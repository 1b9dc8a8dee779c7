package remediate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ancients-collective/sshcheck/internal/directive"
	"github.com/ancients-collective/sshcheck/internal/types"
)

// Backup files sit next to the source as <path>.backup_YYYYMMDD_HHMMSS,
// with a _N suffix when two backups land in the same second.
const (
	backupInfix  = ".backup_"
	backupLayout = "20060102_150405"
)

// BackupPath returns the backup name for path at t, without a collision suffix.
func BackupPath(path string, t time.Time) string {
	return path + backupInfix + t.Format(backupLayout)
}

// CreateBackup copies path to a new timestamped backup and verifies the copy.
// The copy keeps the source's permission bits. Existing backups are never
// overwritten. Errors wrap types.ErrBackupFailure.
func CreateBackup(path string, now time.Time) (*types.Backup, error) {
	data, err := directive.ReadFileLimited(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrBackupFailure, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", types.ErrBackupFailure, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrBackupFailure, err)
	}

	f, dst, err := createExclusive(BackupPath(path, now), info.Mode().Perm())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrBackupFailure, err)
	}

	werr := f.Chmod(info.Mode().Perm())
	if werr == nil {
		_, werr = f.Write(data)
	}
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(dst)
		return nil, fmt.Errorf("%w: writing %s: %w", types.ErrBackupFailure, dst, werr)
	}

	if err := verifyBackup(dst, int64(len(data))); err != nil {
		_ = os.Remove(dst)
		return nil, fmt.Errorf("%w: %w", types.ErrBackupFailure, err)
	}

	return &types.Backup{SourcePath: path, Path: dst, CreatedAt: now}, nil
}

// createExclusive creates base, or base_1, base_2, ... if taken.
func createExclusive(base string, perm fs.FileMode) (*os.File, string, error) {
	name := base
	for n := 1; n < 100; n++ {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}
	return nil, "", fmt.Errorf("too many backups named %s", base)
}

// verifyBackup checks that the backup exists with the expected non-zero size.
func verifyBackup(path string, size int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 || info.Size() != size {
		return fmt.Errorf("backup %s has %d bytes, expected %d", path, info.Size(), size)
	}
	return nil
}

// Restore atomically replaces the backup's source with the backup's bytes,
// writing through a symlinked source. Errors wrap types.ErrRestoreFailure.
func Restore(b *types.Backup) error {
	data, err := directive.ReadFileLimited(b.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrRestoreFailure, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: backup %s is empty", types.ErrRestoreFailure, b.Path)
	}

	perm := fs.FileMode(0o644)
	if info, err := os.Stat(b.SourcePath); err == nil {
		perm = info.Mode().Perm()
	} else if info, err := os.Stat(b.Path); err == nil {
		perm = info.Mode().Perm()
	}

	if err := ReplaceFile(b.SourcePath, data, perm); err != nil {
		return fmt.Errorf("%w: writing %s: %w", types.ErrRestoreFailure, b.SourcePath, err)
	}
	return nil
}

// ListBackups returns the backups of path, newest first.
func ListBackups(path string) ([]types.Backup, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type entry struct {
		backup types.Backup
		seq    int
	}
	var found []entry
	prefix := base + backupInfix
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		at, seq, ok := parseBackupSuffix(strings.TrimPrefix(e.Name(), prefix))
		if !ok {
			continue
		}
		found = append(found, entry{
			backup: types.Backup{SourcePath: path, Path: filepath.Join(dir, e.Name()), CreatedAt: at},
			seq:    seq,
		})
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.backup.CreatedAt.Equal(b.backup.CreatedAt) {
			return a.backup.CreatedAt.After(b.backup.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]types.Backup, len(found))
	for i, f := range found {
		out[i] = f.backup
	}
	return out, nil
}

// LatestBackup returns the newest backup of path.
func LatestBackup(path string) (*types.Backup, error) {
	backups, err := ListBackups(path)
	if err != nil {
		return nil, err
	}
	if len(backups) == 0 {
		return nil, fmt.Errorf("no backups found for %s", path)
	}
	return &backups[0], nil
}

// parseBackupSuffix parses "YYYYMMDD_HHMMSS" or "YYYYMMDD_HHMMSS_N".
func parseBackupSuffix(s string) (time.Time, int, bool) {
	if len(s) < len(backupLayout) {
		return time.Time{}, 0, false
	}
	at, err := time.ParseInLocation(backupLayout, s[:len(backupLayout)], time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	rest := s[len(backupLayout):]
	if rest == "" {
		return at, 0, true
	}
	if !strings.HasPrefix(rest, "_") {
		return time.Time{}, 0, false
	}
	n, err := strconv.Atoi(rest[1:])
	if err != nil || n < 1 {
		return time.Time{}, 0, false
	}
	return at, n, true
}
