package context

import (
	"os"
	"runtime"

	"github.com/ancients-collective/sshcheck/internal/types"
	"github.com/shirou/gopsutil/v4/host"
)

// hostInfo is swapped in tests.
var hostInfo = host.Info

// hostDetector carries the detection shared by every platform. The per-OS
// detectors embed it and add their own DetectDistro.
type hostDetector struct{}

// DetectOS returns OS information. The kernel version is best-effort; the
// name always comes from the running binary so the platform gate cannot be
// fooled by a failing probe.
func (hostDetector) DetectOS() (types.OSInfo, error) {
	osInfo := types.OSInfo{Name: runtime.GOOS, Arch: runtime.GOARCH}
	if info, err := hostInfo(); err == nil {
		osInfo.Version = info.KernelVersion
	}
	return osInfo, nil
}

// DetectHostname prefers gopsutil and falls back to os.Hostname.
func (hostDetector) DetectHostname() (string, error) {
	if info, err := hostInfo(); err == nil && info.Hostname != "" {
		return info.Hostname, nil
	}
	return os.Hostname()
}

// IsRoot reports whether the effective UID is 0. Always false where
// Geteuid is unsupported.
func (hostDetector) IsRoot() bool {
	return os.Geteuid() == 0
}
