// Package output renders audit results for the console, for machine
// consumers and for the report file.
package output

import (
	"fmt"
	"io"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// Formatter writes a scan report to the given writer.
type Formatter interface {
	Write(w io.Writer, report *types.ScanReport) error
}

// Level classifies a display line so a renderer can pick a colour or icon.
type Level int

const (
	LevelInfo Level = iota
	LevelPass
	LevelWarning
	LevelFail
)

func (l Level) String() string {
	switch l {
	case LevelPass:
		return "pass"
	case LevelWarning:
		return "warning"
	case LevelFail:
		return "fail"
	default:
		return "info"
	}
}

// Line is one row of the display model. Indent counts nesting steps, not
// columns; the renderer decides how wide a step is.
type Line struct {
	Level  Level
	Indent int
	Text   string
}

// LevelFor maps a verdict onto its display level.
func LevelFor(v types.Verdict) Level {
	switch v {
	case types.VerdictPass:
		return LevelPass
	case types.VerdictFail:
		return LevelFail
	case types.VerdictWarning:
		return LevelWarning
	default:
		return LevelInfo
	}
}

// StatusLabel is the upper-case verdict tag used in badges and the report.
func StatusLabel(v types.Verdict) string {
	switch v {
	case types.VerdictPass:
		return "PASS"
	case types.VerdictFail:
		return "FAIL"
	case types.VerdictWarning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// Lines renders every result as a status line followed by its indented
// description, details and (for non-passing results) recommendation.
func Lines(rs *types.ResultSet) []Line {
	var out []Line
	for _, r := range rs.Results() {
		out = append(out, Line{
			Level: LevelFor(r.Verdict),
			Text:  fmt.Sprintf("[%s] %s", StatusLabel(r.Verdict), r.Name),
		})
		if r.Description != "" {
			out = append(out, Line{Level: LevelInfo, Indent: 1, Text: "Description: " + r.Description})
		}
		if r.Details != "" {
			out = append(out, Line{Level: LevelInfo, Indent: 1, Text: "Details: " + r.Details})
		}
		if !r.Passed() && r.Remediation != "" {
			out = append(out, Line{Level: LevelFor(r.Verdict), Indent: 1, Text: "Recommendation: " + r.Remediation})
		}
	}
	return out
}

// SummaryLines renders the counts, the score to one decimal, its rating band
// and the overall status.
func SummaryLines(rs *types.ResultSet) []Line {
	score := rs.Score()
	rating := rs.Rating()

	overall := Line{Level: LevelPass, Text: "Overall Status: SECURE"}
	if !rs.AllPassed() {
		overall = Line{Level: LevelFail, Text: "Overall Status: NEEDS ATTENTION"}
	}

	return []Line{
		{Level: LevelInfo, Text: fmt.Sprintf("Total Checks: %d", rs.Total())},
		{Level: LevelPass, Text: fmt.Sprintf("Passed: %d", rs.Passed())},
		{Level: LevelFail, Text: fmt.Sprintf("Failed: %d", rs.Failed())},
		{Level: LevelWarning, Text: fmt.Sprintf("Warnings: %d", rs.Warnings())},
		{Level: ratingLevel(rating), Text: fmt.Sprintf("Security Score: %.1f%%", score)},
		{Level: ratingLevel(rating), Text: fmt.Sprintf("Rating: %s", RatingMessage(rating))},
		overall,
	}
}

// RatingMessage is the sentence shown next to a rating band.
func RatingMessage(rating string) string {
	switch rating {
	case types.RatingExcellent:
		return "Excellent. Your SSH configuration is highly secure."
	case types.RatingGood:
		return "Good, but there is room for improvement."
	case types.RatingFair:
		return "Fair. Several settings need hardening."
	default:
		return "Poor. Your SSH configuration has security vulnerabilities."
	}
}

func ratingLevel(rating string) Level {
	switch rating {
	case types.RatingExcellent:
		return LevelPass
	case types.RatingGood, types.RatingFair:
		return LevelWarning
	default:
		return LevelFail
	}
}

// ChangeLines renders verdict changes, one line per rule. The line takes
// the level of the new verdict.
func ChangeLines(changes []types.VerdictChange) []Line {
	out := make([]Line, 0, len(changes))
	for _, c := range changes {
		out = append(out, Line{
			Level: LevelFor(c.After),
			Text:  fmt.Sprintf("%s: %s -> %s", c.Name, StatusLabel(c.Before), StatusLabel(c.After)),
		})
	}
	return out
}
