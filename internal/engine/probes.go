package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// ServiceProber reports whether a named system service is running.
type ServiceProber interface {
	IsActive(ctx context.Context, name string) (bool, error)
}

// PermissionProber reports the permission bits of a file.
// A missing file is reported with an error wrapping fs.ErrNotExist.
// A probe that cannot run returns an error wrapping types.ErrCollaboratorUnavailable.
type PermissionProber interface {
	Mode(path string) (fs.FileMode, error)
}

// SystemctlProber queries systemd through the allowlisted executor.
type SystemctlProber struct {
	exec *AllowlistExecutor
}

// NewSystemctlProber creates a prober backed by the default allowlist.
func NewSystemctlProber() *SystemctlProber {
	return &SystemctlProber{exec: NewAllowlistExecutor()}
}

// IsActive runs "systemctl is-active <name>". A unit that systemd reports as
// anything but active is not running. A missing systemctl binary or a
// timeout is reported as an unavailable collaborator.
func (p *SystemctlProber) IsActive(ctx context.Context, name string) (bool, error) {
	if err := validateServiceName(name); err != nil {
		return false, err
	}

	out, err := p.exec.Execute(ctx, "systemctl", []string{"is-active", name})
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("%w: systemctl: %v", types.ErrCollaboratorUnavailable, err)
	}

	return string(bytes.TrimSpace(out)) == "active", nil
}
