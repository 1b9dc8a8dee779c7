//go:build !linux && !darwin

package context

import (
	"github.com/ancients-collective/sshcheck/internal/types"
)

// GenericDetector implements OSDetector for the BSDs and for platforms the
// platform gate rejects.
type GenericDetector struct {
	hostDetector
}

// NewOSDetector returns a GenericDetector.
func NewOSDetector() OSDetector {
	return &GenericDetector{}
}

// DetectDistro reports whatever platform identity gopsutil exposes.
func (d *GenericDetector) DetectDistro() (types.DistroInfo, error) {
	info, err := hostInfo()
	if err != nil {
		return types.DistroInfo{}, err
	}
	return types.DistroInfo{
		ID:      info.Platform,
		Version: info.PlatformVersion,
		Family:  info.PlatformFamily,
	}, nil
}
