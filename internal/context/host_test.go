package context

import (
	"errors"
	"runtime"
	"testing"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHostInfo(t *testing.T, fn func() (*host.InfoStat, error)) {
	t.Helper()
	orig := hostInfo
	hostInfo = fn
	t.Cleanup(func() { hostInfo = orig })
}

func TestHostDetector_DetectOS(t *testing.T) {
	withHostInfo(t, func() (*host.InfoStat, error) {
		return &host.InfoStat{KernelVersion: "6.8.0-45-generic"}, nil
	})

	info, err := hostDetector{}.DetectOS()
	require.NoError(t, err)
	assert.Equal(t, runtime.GOOS, info.Name)
	assert.Equal(t, runtime.GOARCH, info.Arch)
	assert.Equal(t, "6.8.0-45-generic", info.Version)
}

func TestHostDetector_DetectOS_ProbeFailure(t *testing.T) {
	withHostInfo(t, func() (*host.InfoStat, error) {
		return nil, errors.New("permission denied")
	})

	info, err := hostDetector{}.DetectOS()
	require.NoError(t, err, "kernel version is best-effort")
	assert.Equal(t, runtime.GOOS, info.Name)
	assert.Empty(t, info.Version)
}

func TestHostDetector_DetectHostname(t *testing.T) {
	withHostInfo(t, func() (*host.InfoStat, error) {
		return &host.InfoStat{Hostname: "bastion-01"}, nil
	})

	name, err := hostDetector{}.DetectHostname()
	require.NoError(t, err)
	assert.Equal(t, "bastion-01", name)
}

func TestHostDetector_DetectHostname_Fallback(t *testing.T) {
	withHostInfo(t, func() (*host.InfoStat, error) {
		return nil, errors.New("unavailable")
	})

	name, err := hostDetector{}.DetectHostname()
	require.NoError(t, err)
	assert.NotEmpty(t, name)
}

func TestNewOSDetector(t *testing.T) {
	d := NewOSDetector()
	require.NotNil(t, d)

	info, err := d.DetectOS()
	require.NoError(t, err)
	assert.Equal(t, runtime.GOOS, info.Name)
}
