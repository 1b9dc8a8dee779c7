package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/sshcheck/internal/types"
)

func TestSystemctlProber_RejectsBadServiceName(t *testing.T) {
	p := NewSystemctlProber()
	_, err := p.IsActive(context.Background(), "sshd; reboot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid service name")
}

func TestSystemctlProber_MissingBinary(t *testing.T) {
	p := &SystemctlProber{exec: &AllowlistExecutor{allowlist: map[string]CommandSpec{
		"systemctl": {Path: filepath.Join(t.TempDir(), "no-systemctl"), Subcommands: []string{"is-active"}, MaxArgs: 1, Timeout: time.Second},
	}}}

	active, err := p.IsActive(context.Background(), "sshd")
	assert.False(t, active)
	assert.ErrorIs(t, err, types.ErrCollaboratorUnavailable)
}

func TestStatProber(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "ssh_host_ed25519_key")
	require.NoError(t, os.WriteFile(path, []byte("key"), 0o600))
	require.NoError(t, os.Chmod(path, 0o640))

	mode, err := StatProber{}.Mode(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o640), mode)

	_, err = StatProber{}.Mode(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
