package types

import "time"

// ScanReport is the top-level structure for one audit run.
// It is serialized directly to JSON for the --format=json output.
type ScanReport struct {
	// Version is the sshcheck version that produced this report.
	Version string `json:"version"`

	// Timestamp is when the scan started.
	Timestamp time.Time `json:"timestamp"`

	// ConfigPath is the audited sshd_config.
	ConfigPath string `json:"config_path"`

	// System describes the scanned host.
	System ScanSystem `json:"system"`

	// Summary provides aggregate statistics.
	Summary ScanSummary `json:"summary"`

	// Results is the list of individual rule outcomes in catalog order.
	Results []CheckResult `json:"results"`
}

// ScanSystem describes the host that was scanned.
type ScanSystem struct {
	// Hostname is the system hostname.
	Hostname string `json:"hostname"`

	// OS is the operating system name.
	OS string `json:"os"`

	// OSVersion is the kernel version.
	OSVersion string `json:"os_version"`

	// Arch is the CPU architecture.
	Arch string `json:"arch"`

	// DistroID is the Linux distribution ID.
	DistroID string `json:"distro_id,omitempty"`

	// DistroVersion is the Linux distribution version.
	DistroVersion string `json:"distro_version,omitempty"`

	// DistroFamily groups related distributions, e.g. "debian" for Ubuntu.
	DistroFamily string `json:"distro_family,omitempty"`

	// IsRoot indicates whether the scan was run as root/sudo.
	IsRoot bool `json:"is_root"`
}

// ScanSummary provides aggregate statistics for a scan.
type ScanSummary struct {
	// TotalChecks is the number of rules evaluated.
	TotalChecks int `json:"total_checks"`

	// Passed is the number of rules that passed.
	Passed int `json:"passed"`

	// Failed is the number of rules that failed.
	Failed int `json:"failed"`

	// Warnings is the number of rules with a warning verdict.
	Warnings int `json:"warnings"`

	// Score is the percentage of passing rules.
	Score float64 `json:"score"`

	// Rating is the qualitative band for Score.
	Rating string `json:"rating"`

	// DurationMS is the total scan duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// NewScanReport builds a report from a result set.
func NewScanReport(version, configPath string, sys ScanSystem, rs *ResultSet, start time.Time, elapsed time.Duration) ScanReport {
	return ScanReport{
		Version:    version,
		Timestamp:  start,
		ConfigPath: configPath,
		System:     sys,
		Summary: ScanSummary{
			TotalChecks: rs.Total(),
			Passed:      rs.Passed(),
			Failed:      rs.Failed(),
			Warnings:    rs.Warnings(),
			Score:       rs.Score(),
			Rating:      rs.Rating(),
			DurationMS:  elapsed.Milliseconds(),
		},
		Results: rs.Results(),
	}
}

// SystemFromContext flattens a detected SystemContext into the report form.
func SystemFromContext(sc SystemContext) ScanSystem {
	return ScanSystem{
		Hostname:      sc.Hostname,
		OS:            sc.OS.Name,
		OSVersion:     sc.OS.Version,
		Arch:          sc.OS.Arch,
		DistroID:      sc.Distro.ID,
		DistroVersion: sc.Distro.Version,
		DistroFamily:  sc.Distro.Family,
		IsRoot:        sc.IsRoot,
	}
}
