// Package context detects the host the audit runs on and refuses
// platforms whose sshd layout and permission model the rules do not cover.
package context

import (
	"fmt"
	"slices"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// SupportedPlatforms lists the GOOS values an audit may run on.
var SupportedPlatforms = []string{"linux", "darwin", "freebsd", "openbsd", "netbsd"}

// OSDetector abstracts platform-specific system detection.
// Each supported OS provides an implementation via build tags.
type OSDetector interface {
	// DetectOS returns operating system information.
	DetectOS() (types.OSInfo, error)

	// DetectDistro returns distribution information.
	// Returns empty DistroInfo where the concept does not apply.
	DetectDistro() (types.DistroInfo, error)

	// DetectHostname returns the system hostname.
	DetectHostname() (string, error)

	// IsRoot reports whether the process runs with effective UID 0.
	IsRoot() bool
}

// CheckPlatform returns ErrUnsupportedPlatform unless name is one of
// SupportedPlatforms.
func CheckPlatform(name string) error {
	if slices.Contains(SupportedPlatforms, name) {
		return nil
	}
	return fmt.Errorf("%q is not a Unix-like platform: %w", name, types.ErrUnsupportedPlatform)
}

// DetectSystemContext coordinates layered system detection using the provided detector.
//   - Layer 1: OS detection and the platform gate (must succeed)
//   - Layer 2: Distro detection (warning on failure, continues)
//   - Layer 3: Hostname detection (warning on failure, continues)
//
// Returns the system context, a list of non-fatal warnings, and an error for
// the fatal Layer 1 failures.
func DetectSystemContext(detector OSDetector) (types.SystemContext, []string, error) {
	var ctx types.SystemContext
	var warnings []string

	osInfo, err := detector.DetectOS()
	if err != nil {
		return ctx, nil, fmt.Errorf("OS detection failed: %w", err)
	}
	if err := CheckPlatform(osInfo.Name); err != nil {
		return ctx, nil, err
	}
	ctx.OS = osInfo

	distro, err := detector.DetectDistro()
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("distro detection failed: %v", err))
	} else {
		ctx.Distro = distro
	}

	hostname, err := detector.DetectHostname()
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("hostname detection failed: %v", err))
	} else {
		ctx.Hostname = hostname
	}

	ctx.IsRoot = detector.IsRoot()
	return ctx, warnings, nil
}
