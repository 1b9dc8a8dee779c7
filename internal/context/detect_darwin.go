//go:build darwin

package context

import (
	"github.com/ancients-collective/sshcheck/internal/types"
)

// DarwinDetector implements OSDetector for macOS systems.
type DarwinDetector struct {
	hostDetector
}

// NewOSDetector returns a DarwinDetector for macOS systems.
func NewOSDetector() OSDetector {
	return &DarwinDetector{}
}

// DetectDistro reports the macOS product version.
func (d *DarwinDetector) DetectDistro() (types.DistroInfo, error) {
	info, err := hostInfo()
	if err != nil {
		return types.DistroInfo{}, err
	}
	return types.DistroInfo{ID: "macos", Version: info.PlatformVersion, Family: "darwin"}, nil
}
