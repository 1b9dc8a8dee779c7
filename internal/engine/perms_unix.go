//go:build unix

package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// StatProber reads permission bits with stat(2), following symlinks.
type StatProber struct{}

// Mode returns the permission bits of path.
func (StatProber) Mode(path string) (fs.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: stat %s: %v", types.ErrCollaboratorUnavailable, path, err)
	}
	return info.Mode().Perm(), nil
}
