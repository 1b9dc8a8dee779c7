package output

import (
	"time"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// testTimestamp is a fixed time for deterministic test output.
var testTimestamp = time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

// newTestReport builds a representative ScanReport for testing.
func newTestReport() *types.ScanReport {
	return &types.ScanReport{
		Version:    "1.0.0",
		Timestamp:  testTimestamp,
		ConfigPath: "/etc/ssh/sshd_config",
		System: types.ScanSystem{
			Hostname:      "test-host",
			OS:            "linux",
			OSVersion:     "6.1.0",
			Arch:          "amd64",
			DistroID:      "ubuntu",
			DistroVersion: "22.04",
			IsRoot:        true,
		},
		Summary: types.ScanSummary{
			TotalChecks: 5,
			Passed:      2,
			Failed:      2,
			Warnings:    1,
			Score:       40,
			Rating:      types.RatingPoor,
			DurationMS:  123,
		},
		Results: []types.CheckResult{
			{
				ID:          "root_login",
				Name:        "Root Login",
				Category:    "authentication",
				Description: "Checks if root login is disabled",
				Verdict:     types.VerdictFail,
				Details:     "Root login is enabled or not explicitly disabled",
				Remediation: "Set 'PermitRootLogin no' in sshd_config",
				Fixable:     true,
				DurationMS:  1,
			},
			{
				ID:          "pubkey_auth",
				Name:        "Public Key Authentication",
				Category:    "authentication",
				Description: "Checks if public key authentication is enabled",
				Verdict:     types.VerdictPass,
				Details:     "Public key authentication is enabled",
				Fixable:     true,
			},
			{
				ID:          "user_access",
				Name:        "User Access Control",
				Category:    "access-control",
				Description: "Checks if user access is restricted",
				Verdict:     types.VerdictWarning,
				Details:     "No user access restrictions configured",
				Remediation: "Consider using AllowUsers, AllowGroups, DenyUsers, or DenyGroups",
				DurationMS:  2,
			},
			{
				ID:          "x11_forwarding",
				Name:        "X11 Forwarding",
				Category:    "network",
				Description: "Checks if X11 forwarding is disabled",
				Verdict:     types.VerdictFail,
				Details:     "X11 forwarding is enabled",
				Remediation: "Set 'X11Forwarding no' in sshd_config",
				Fixable:     true,
			},
			{
				ID:          "ssh_service",
				Name:        "SSH Service Status",
				Category:    "system",
				Description: "Checks if SSH service is running",
				Verdict:     types.VerdictPass,
				Details:     "SSH service is running",
				DurationMS:  5,
			},
		},
	}
}

// newCleanReport builds a report with no findings.
func newCleanReport() *types.ScanReport {
	return &types.ScanReport{
		Version:    "1.0.0",
		Timestamp:  testTimestamp,
		ConfigPath: "/etc/ssh/sshd_config",
		System: types.ScanSystem{
			Hostname: "clean-host",
			OS:       "linux",
			IsRoot:   true,
		},
		Summary: types.ScanSummary{
			TotalChecks: 2,
			Passed:      2,
			Score:       100,
			Rating:      types.RatingExcellent,
			DurationMS:  50,
		},
		Results: []types.CheckResult{
			{ID: "empty_passwords", Name: "Empty Passwords", Category: "authentication", Verdict: types.VerdictPass, Details: "Empty passwords are not permitted", DurationMS: 1},
			{ID: "strict_modes", Name: "Strict Modes", Category: "access-control", Verdict: types.VerdictPass, Details: "Strict modes are enabled", DurationMS: 2},
		},
	}
}

// newEmptyReport builds a report with zero results.
func newEmptyReport() *types.ScanReport {
	return &types.ScanReport{
		Version:    "1.0.0",
		Timestamp:  testTimestamp,
		ConfigPath: "/etc/ssh/sshd_config",
		System: types.ScanSystem{
			Hostname: "empty-host",
			OS:       "linux",
			IsRoot:   true,
		},
		Summary: types.ScanSummary{
			DurationMS: 1,
			Rating:     types.RatingPoor,
		},
		Results: []types.CheckResult{},
	}
}
