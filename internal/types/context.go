package types

// SystemContext describes the host whose sshd configuration is audited.
// internal/context fills it in once per run.
type SystemContext struct {
	OS       OSInfo
	Distro   DistroInfo
	Hostname string

	// IsRoot is true when the effective UID is 0. Remediation warns
	// without it because the config file is normally root-owned.
	IsRoot bool
}

// OSInfo identifies the kernel: GOOS-style name, kernel version and
// GOARCH-style architecture.
type OSInfo struct {
	Name    string
	Version string
	Arch    string
}

// DistroInfo identifies a Linux distribution. All fields are empty on
// macOS and the BSDs.
type DistroInfo struct {
	ID      string // "ubuntu", "rhel", "alpine"
	Version string // "22.04", "9", "3.18"
	Family  string // "debian" for ubuntu, "rhel" for rocky
}
