package output

import (
	"testing"

	"github.com/ancients-collective/sshcheck/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLines_ResultBlocks(t *testing.T) {
	rs := types.NewResultSet(newTestReport().Results...)
	lines := Lines(rs)

	require.NotEmpty(t, lines)
	assert.Equal(t, Line{Level: LevelFail, Text: "[FAIL] Root Login"}, lines[0])
	assert.Equal(t, Line{Level: LevelInfo, Indent: 1, Text: "Description: Checks if root login is disabled"}, lines[1])
	assert.Equal(t, Line{Level: LevelInfo, Indent: 1, Text: "Details: Root login is enabled or not explicitly disabled"}, lines[2])
	assert.Equal(t, Line{Level: LevelFail, Indent: 1, Text: "Recommendation: Set 'PermitRootLogin no' in sshd_config"}, lines[3])
	assert.Equal(t, Line{Level: LevelPass, Text: "[PASS] Public Key Authentication"}, lines[4])

	var headings []string
	for _, l := range lines {
		if l.Indent == 0 {
			headings = append(headings, l.Text)
		}
	}
	assert.Equal(t, []string{
		"[FAIL] Root Login",
		"[PASS] Public Key Authentication",
		"[WARNING] User Access Control",
		"[FAIL] X11 Forwarding",
		"[PASS] SSH Service Status",
	}, headings)
}

func TestLines_PassHasNoRecommendation(t *testing.T) {
	rs := types.NewResultSet(types.CheckResult{
		Name:        "Strict Modes",
		Verdict:     types.VerdictPass,
		Details:     "Strict modes are enabled",
		Remediation: "Set 'StrictModes yes' in sshd_config",
	})
	lines := Lines(rs)

	require.Len(t, lines, 2)
	assert.Equal(t, "Details: Strict modes are enabled", lines[1].Text)
}

func TestLines_Empty(t *testing.T) {
	assert.Empty(t, Lines(types.NewResultSet()))
}

func TestSummaryLines(t *testing.T) {
	rs := types.NewResultSet(newTestReport().Results...)
	lines := SummaryLines(rs)

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	assert.Equal(t, []string{
		"Total Checks: 5",
		"Passed: 2",
		"Failed: 2",
		"Warnings: 1",
		"Security Score: 40.0%",
		"Rating: Poor. Your SSH configuration has security vulnerabilities.",
		"Overall Status: NEEDS ATTENTION",
	}, texts)
	assert.Equal(t, LevelFail, lines[4].Level)
	assert.Equal(t, LevelFail, lines[6].Level)
}

func TestSummaryLines_SecureWithWarnings(t *testing.T) {
	results := make([]types.CheckResult, 0, 10)
	for i := 0; i < 9; i++ {
		results = append(results, types.CheckResult{Verdict: types.VerdictPass})
	}
	results = append(results, types.CheckResult{Verdict: types.VerdictWarning})
	lines := SummaryLines(types.NewResultSet(results...))

	assert.Equal(t, "Security Score: 90.0%", lines[4].Text)
	assert.Equal(t, LevelPass, lines[4].Level)
	assert.Equal(t, Line{Level: LevelPass, Text: "Overall Status: SECURE"}, lines[6])
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelPass, LevelFor(types.VerdictPass))
	assert.Equal(t, LevelFail, LevelFor(types.VerdictFail))
	assert.Equal(t, LevelWarning, LevelFor(types.VerdictWarning))
	assert.Equal(t, LevelInfo, LevelFor("bogus"))
	assert.Equal(t, "warning", LevelWarning.String())
}

func TestRatingMessage(t *testing.T) {
	assert.Contains(t, RatingMessage(types.RatingExcellent), "Excellent")
	assert.Contains(t, RatingMessage(types.RatingGood), "room for improvement")
	assert.Contains(t, RatingMessage(types.RatingFair), "Fair")
	assert.Contains(t, RatingMessage(types.RatingPoor), "vulnerabilities")
}

func TestChangeLines(t *testing.T) {
	lines := ChangeLines([]types.VerdictChange{
		{ID: "root_login", Name: "Root Login", Before: types.VerdictFail, After: types.VerdictPass},
		{ID: "banner", Name: "Login Banner", Before: types.VerdictPass, After: types.VerdictWarning},
	})
	require.Len(t, lines, 2)
	assert.Equal(t, "Root Login: FAIL -> PASS", lines[0].Text)
	assert.Equal(t, LevelPass, lines[0].Level)
	assert.Equal(t, "Login Banner: PASS -> WARNING", lines[1].Text)
	assert.Equal(t, LevelWarning, lines[1].Level)

	assert.Empty(t, ChangeLines(nil))
}
