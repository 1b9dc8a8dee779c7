//go:build !unix

package engine

import (
	"fmt"
	"io/fs"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// StatProber has no Unix permission model to read on this platform.
type StatProber struct{}

// Mode always reports the probe as unavailable.
func (StatProber) Mode(path string) (fs.FileMode, error) {
	return 0, fmt.Errorf("%w: file permission bits are only checked on Unix systems", types.ErrCollaboratorUnavailable)
}
