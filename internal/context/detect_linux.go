//go:build linux

package context

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// LinuxDetector implements OSDetector for Linux systems using gopsutil.
type LinuxDetector struct {
	hostDetector
}

// NewOSDetector returns a LinuxDetector for Linux systems.
func NewOSDetector() OSDetector {
	return &LinuxDetector{}
}

// DetectDistro returns Linux distribution information via gopsutil, falling
// back to /etc/os-release when gopsutil cannot identify the platform.
func (d *LinuxDetector) DetectDistro() (types.DistroInfo, error) {
	if info, err := hostInfo(); err == nil && info.Platform != "" {
		return types.DistroInfo{
			ID:      info.Platform,
			Version: info.PlatformVersion,
			Family:  info.PlatformFamily,
		}, nil
	}
	return detectDistroWith("/etc/os-release")
}

// detectDistroWith is the injectable core of the os-release fallback.
func detectDistroWith(osReleasePath string) (types.DistroInfo, error) {
	f, err := os.Open(osReleasePath)
	if err != nil {
		return types.DistroInfo{}, err
	}
	defer f.Close()

	fields := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[k] = strings.Trim(v, `"'`)
	}
	if err := sc.Err(); err != nil {
		return types.DistroInfo{}, err
	}

	id := fields["ID"]
	if id == "" {
		return types.DistroInfo{}, fmt.Errorf("%s: no ID field", osReleasePath)
	}
	family := id
	if like := strings.Fields(fields["ID_LIKE"]); len(like) > 0 {
		family = like[0]
	}
	return types.DistroInfo{
		ID:      id,
		Version: fields["VERSION_ID"],
		Family:  family,
	}, nil
}
