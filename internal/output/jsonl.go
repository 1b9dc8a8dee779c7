package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// JSONLFormatter writes scan results as newline-delimited JSON (one object per line).
// The first line is a header with system and summary information.
// Subsequent lines are individual check results in catalog order.
type JSONLFormatter struct{}

// Write renders the scan as JSONL: header line + one line per result.
func (f *JSONLFormatter) Write(w io.Writer, report *types.ScanReport) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	header := struct {
		Type       string            `json:"type"`
		Version    string            `json:"version"`
		Timestamp  string            `json:"timestamp"`
		ConfigPath string            `json:"config_path"`
		System     types.ScanSystem  `json:"system"`
		Summary    types.ScanSummary `json:"summary"`
	}{
		Type:       "header",
		Version:    report.Version,
		Timestamp:  report.Timestamp.Format(time.RFC3339),
		ConfigPath: report.ConfigPath,
		System:     report.System,
		Summary:    report.Summary,
	}
	if err := enc.Encode(header); err != nil {
		return err
	}

	for _, r := range report.Results {
		line := struct {
			Type   string            `json:"type"`
			Result types.CheckResult `json:"result"`
		}{
			Type:   "result",
			Result: r,
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}

	return nil
}
