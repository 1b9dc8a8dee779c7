package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ancients-collective/sshcheck/internal/types"
	"github.com/fatih/color"
)

// ─── Layout constants ────────────────────────────────────────────────
//
// Every result line follows a strict column grid:
//
//     col 0    4   6       14      16                          maxLine
//     │margin│ I │ BADGE   │2sp│ CHECK NAME ...           DURATION │
//              ↑   ↑              ↑                              ↑
//           colIcon colBadge    colName                    right-aligned
//
// Detail blocks start at colDetail and use labelWidth-padded labels
// so every value begins at colValue.
//
const (
	colMargin  = 4   // left margin (spaces) for result/detail lines
	colIcon    = 4   // column of the 1-char status icon
	colBadge   = 6   // column where the verdict badge starts
	badgeWidth = 8   // visible width of a padded badge, e.g. "[PASS]  "
	colName    = 16  // column where the check name starts
	colDetail  = 16  // column where detail-block lines start (= colName)
	labelWidth = 9   // fixed label field: "Result: " / "Fix:     " / etc.
	colValue   = 25  // column where label values start (colDetail + labelWidth)
	maxLine    = 110 // hard wrap cap, even on ultra-wide terminals
	ruleWidth  = 64  // width of horizontal divider rules
)

// Show modes accepted by TextFormatter.Show.
const (
	ShowFindings = "findings"
	ShowAll      = "all"
	ShowFail     = "fail"
	ShowPass     = "pass"
	ShowWarn     = "warn"
)

// ValidShow reports whether s is a recognised show mode.
func ValidShow(s string) bool {
	switch s {
	case ShowFindings, ShowAll, ShowFail, ShowPass, ShowWarn:
		return true
	}
	return false
}

// TextFormatter writes a colored, human-readable scan report.
type TextFormatter struct {
	Verbose bool   // show rule descriptions and details for passing rules
	Show    string // "findings" (default), "all", "fail", "pass", "warn"
	Width   int    // terminal width for text wrapping; 0 = unknown
	Dumb    bool   // TERM=dumb, use single-char ASCII fallback icons
}

// Color helpers. Each returns a sprint function.
var (
	cBold   = color.New(color.Bold).SprintFunc()
	cGreen  = color.New(color.FgGreen).SprintFunc()
	cRed    = color.New(color.FgRed).SprintFunc()
	cYellow = color.New(color.FgYellow).SprintFunc()
	cCyan   = color.New(color.FgCyan).SprintFunc()
	cDim    = color.New(color.Faint).SprintFunc()

	cRedBold    = color.New(color.FgRed, color.Bold).SprintFunc()
	cYellowBold = color.New(color.FgYellow, color.Bold).SprintFunc()
	cGreenBold  = color.New(color.FgGreen, color.Bold).SprintFunc()
)

// IsDumbTerm returns true when the terminal doesn't support Unicode.
func IsDumbTerm() bool {
	t := os.Getenv("TERM")
	return t == "dumb" || t == ""
}

// wrapWidth returns the effective line width: min(terminal, maxLine).
func (f *TextFormatter) wrapWidth() int {
	if f.Width > 0 && f.Width < maxLine {
		return f.Width
	}
	return maxLine
}

func (f *TextFormatter) show() string {
	if f.Show == "" {
		return ShowFindings
	}
	return f.Show
}

// ─── Public entry point ──────────────────────────────────────────────

// Write renders the full text report.
func (f *TextFormatter) Write(w io.Writer, report *types.ScanReport) error {
	show := f.show()

	f.writeHeader(w, report)
	f.writeSystem(w, report)
	f.writeLoading(w, report)
	if show != ShowFindings {
		f.writeResults(w, report)
	}
	f.writeSummary(w, report)
	if show == ShowFindings {
		f.writeFindings(w, report)
	}
	f.writeHints(w, report)
	fmt.Fprintln(w)
	return nil
}

// WriteLines prints a display model with level colours and icons. It is
// used for the compact output of watch mode and the re-evaluation diff.
func (f *TextFormatter) WriteLines(w io.Writer, lines []Line) {
	for _, l := range lines {
		pad := colPad(2 + 4*l.Indent)
		if l.Indent > 0 {
			fmt.Fprintf(w, "%s%s\n", pad, f.levelColor(l.Level)(l.Text))
			continue
		}
		fmt.Fprintf(w, "%s%s %s\n", pad, f.levelIcon(l.Level), l.Text)
	}
}

// ─── Header ──────────────────────────────────────────────────────────

func (f *TextFormatter) writeHeader(w io.Writer, r *types.ScanReport) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s  v%s\n", cBold("sshcheck"), r.Version)
	fmt.Fprintf(w, "  %s\n", cDim("OpenSSH daemon configuration audit"))
	fmt.Fprintf(w, "  %s %s\n", cDim("Scan started:"), r.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(w, "  %s %s\n", cDim("Config:      "), r.ConfigPath)
	fmt.Fprintln(w)
}

// ─── System context ──────────────────────────────────────────────────

func (f *TextFormatter) writeSystem(w io.Writer, r *types.ScanReport) {
	sys := r.System
	fmt.Fprintf(w, "  %s\n", cBold(f.icon("section")+" System"))
	fmt.Fprintf(w, "    OS:      %s %s (%s)\n", sys.OS, sys.OSVersion, sys.Arch)
	if sys.DistroID != "" {
		distro := strings.TrimSpace(sys.DistroID + " " + sys.DistroVersion)
		if sys.DistroFamily != "" && sys.DistroFamily != sys.DistroID {
			distro += " (" + sys.DistroFamily + " family)"
		}
		fmt.Fprintf(w, "    Distro:  %s\n", distro)
	}
	if sys.Hostname != "" {
		fmt.Fprintf(w, "    Host:    %s\n", sys.Hostname)
	}
	fmt.Fprintln(w)
	if !sys.IsRoot {
		fmt.Fprintf(w, "  %s %s\n", cYellow(f.icon("warn")),
			f.wrap("Running as non-root; permission and key checks may be incomplete", 4, 4))
		fmt.Fprintln(w)
	}
}

// ─── Loading ─────────────────────────────────────────────────────────

func (f *TextFormatter) writeLoading(w io.Writer, r *types.ScanReport) {
	fmt.Fprintf(w, "  %s Evaluated %d rule(s)\n", cBold(f.icon("section")), r.Summary.TotalChecks)
	if show := f.show(); show != ShowFindings {
		fmt.Fprintf(w, "    Filters: show=%s\n", show)
	}
	fmt.Fprintln(w)
}

// ─── Results (--show all/fail/pass/warn) ─────────────────────────────

func (f *TextFormatter) writeResults(w io.Writer, r *types.ScanReport) {
	fmt.Fprintf(w, "  %s\n", cBold(f.icon("section")+" Results"))

	selected := f.filterResults(r.Results)
	if len(selected) == 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s(no results match the current filters)\n", colPad(colMargin))
		return
	}

	for _, g := range groupByCategory(selected) {
		f.writeCategoryHeader(w, g.category)
		for _, res := range g.results {
			f.writeResultLine(w, res)
			f.writeDetailBlock(w, res)
			fmt.Fprintln(w)
		}
	}
}

// filterResults keeps catalog order and drops what the show mode hides.
func (f *TextFormatter) filterResults(results []types.CheckResult) []types.CheckResult {
	var want types.Verdict
	switch f.show() {
	case ShowFail:
		want = types.VerdictFail
	case ShowPass:
		want = types.VerdictPass
	case ShowWarn:
		want = types.VerdictWarning
	default:
		return results
	}
	var out []types.CheckResult
	for _, r := range results {
		if r.Verdict == want {
			out = append(out, r)
		}
	}
	return out
}

// ─── Findings (default view) ─────────────────────────────────────────

func (f *TextFormatter) writeFindings(w io.Writer, r *types.ScanReport) {
	findings := extractFindings(r.Results)
	if len(findings) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", cRedBold(f.icon("section")+" Findings"))

	for _, g := range groupByCategory(findings) {
		f.writeCategoryHeader(w, g.category)
		for _, fi := range g.results {
			f.writeResultLine(w, fi)
			f.writeDetailBlock(w, fi)
			fmt.Fprintln(w)
		}
	}
}

// extractFindings returns the fail and warning results in catalog order.
func extractFindings(results []types.CheckResult) []types.CheckResult {
	var findings []types.CheckResult
	for _, r := range results {
		if !r.Passed() {
			findings = append(findings, r)
		}
	}
	return findings
}

type categoryGroup struct {
	category string
	results  []types.CheckResult
}

// groupByCategory groups results by category, ordering the groups by first
// appearance so the catalog order survives.
func groupByCategory(results []types.CheckResult) []categoryGroup {
	order := make(map[string]int)
	var groups []categoryGroup
	for _, r := range results {
		idx, ok := order[r.Category]
		if !ok {
			idx = len(groups)
			order[r.Category] = idx
			groups = append(groups, categoryGroup{category: r.Category})
		}
		groups[idx].results = append(groups[idx].results, r)
	}
	return groups
}

// ─── Summary ─────────────────────────────────────────────────────────

func (f *TextFormatter) writeSummary(w io.Writer, r *types.ScanReport) {
	rule := cDim(strings.Repeat("─", ruleWidth))
	fmt.Fprintf(w, "  %s\n", rule)

	f.writeVerdict(w, r)

	s := r.Summary
	passed := cGreenBold(fmt.Sprintf("%d passed", s.Passed))
	failed := cRedBold(fmt.Sprintf("%d failed", s.Failed))
	warned := cYellowBold(fmt.Sprintf("%d warnings", s.Warnings))
	fmt.Fprintf(w, "  %s  %s · %s · %s\n", cBold("Summary:"), passed, failed, warned)

	score := fmt.Sprintf("%.1f%%", s.Score)
	fmt.Fprintf(w, "  %s    %s  %s\n", cBold("Score:"), f.levelColor(ratingLevel(s.Rating))(score),
		cDim(RatingMessage(s.Rating)))

	dur := fmt.Sprintf("%.1fs", float64(s.DurationMS)/1000.0)
	fmt.Fprintf(w, "  %s  %s\n", cDim("Completed in"), cBold(dur))
	fmt.Fprintf(w, "  %s\n", rule)
}

func (f *TextFormatter) writeVerdict(w io.Writer, r *types.ScanReport) {
	s := r.Summary
	if s.Failed == 0 && s.Warnings == 0 {
		fmt.Fprintf(w, "  %s %s\n", cGreenBold(f.icon("pass")), cGreenBold("Clean, no findings"))
		return
	}
	if s.Failed == 0 {
		fmt.Fprintf(w, "  %s %s\n", cYellowBold(f.icon("warn")),
			cYellowBold(fmt.Sprintf("No failures, %d warning(s) to review", s.Warnings)))
		return
	}

	var parts []string
	for _, g := range groupByCategory(extractFindings(r.Results)) {
		n := 0
		for _, res := range g.results {
			if res.Verdict == types.VerdictFail {
				n++
			}
		}
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, g.category))
		}
	}

	detail := ""
	if len(parts) > 0 {
		detail = fmt.Sprintf(" (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintf(w, "  %s %s\n", cRedBold(f.icon("shield")),
		cRedBold(fmt.Sprintf("%d failing check(s) require attention%s", s.Failed, detail)))
}

// ─── Hints ───────────────────────────────────────────────────────────

func (f *TextFormatter) writeHints(w io.Writer, r *types.ScanReport) {
	var hints []string
	s := r.Summary
	hasFindings := s.Failed > 0 || s.Warnings > 0

	if hasFindings && !f.Verbose {
		hints = append(hints, "Run with --verbose to see what each rule checks")
	}
	if f.show() == ShowFindings && hasFindings {
		hints = append(hints, "Use --show all to see every check result")
	}
	fixable := 0
	for _, res := range r.Results {
		if res.Fixable && res.Verdict == types.VerdictFail {
			fixable++
		}
	}
	if fixable > 0 {
		hints = append(hints, fmt.Sprintf("%d failing check(s) can be fixed automatically with --fix", fixable))
	}

	if len(hints) == 0 {
		return
	}

	fmt.Fprintln(w)
	for _, h := range hints {
		fmt.Fprintf(w, "  %s %s\n", cDim("›"), cDim(h))
	}
}

// ─── Category header ─────────────────────────────────────────────────

func (f *TextFormatter) writeCategoryHeader(w io.Writer, category string) {
	label := strings.ToUpper(category)
	fill := ruleWidth - 4 - len(label)
	if fill < 1 {
		fill = 1
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%s %s %s\n", colPad(colMargin), cDim("──"), cBold(label), cDim(strings.Repeat("─", fill)))
	fmt.Fprintln(w)
}

// ─── Result line ─────────────────────────────────────────────────────

func (f *TextFormatter) writeResultLine(w io.Writer, res types.CheckResult) {
	durRaw := durationRaw(res)
	ww := f.wrapWidth()

	// Layout: margin icon badge  Check:   name ... duration
	checkLabel := cBold(fmt.Sprintf("%-*s", labelWidth, "Check:"))
	nameAvail := ww - colValue - 2 - len(durRaw)
	namePad := nameAvail - len(res.Name)
	if namePad < 2 {
		namePad = 2
	}
	fmt.Fprintf(w, "%s%s %s  %s%s%s%s\n",
		colPad(colMargin),
		f.statusIcon(res.Verdict),
		verdictBadge(res.Verdict),
		checkLabel,
		res.Name,
		strings.Repeat(" ", namePad),
		cDim(durRaw),
	)
}

// ─── Detail block ────────────────────────────────────────────────────

func (f *TextFormatter) writeDetailBlock(w io.Writer, res types.CheckResult) {
	p := colPad(colDetail)

	if f.Verbose && res.Description != "" {
		f.writeLabel(w, p, "About:", cCyan, res.Description)
	}

	switch res.Verdict {
	case types.VerdictFail:
		f.writeLabel(w, p, "Result:", cRed, res.Details)
	case types.VerdictWarning:
		f.writeLabel(w, p, "Result:", cYellow, res.Details)
	default:
		if f.Verbose && res.Details != "" {
			f.writeLabel(w, p, "Result:", cDim, res.Details)
		}
	}

	if !res.Passed() && res.Remediation != "" {
		f.writeLabel(w, p, "Fix:", cGreen, res.Remediation)
	}
}

// writeLabel emits one detail line: prefix + colored label (padded to labelWidth) + wrapped value.
func (f *TextFormatter) writeLabel(w io.Writer, prefix, label string, colorFn func(a ...interface{}) string, value string) {
	colored := colorFn(fmt.Sprintf("%-*s", labelWidth, label))
	wrapped := f.wrap(value, colValue, colValue)
	fmt.Fprintf(w, "%s%s%s\n", prefix, colored, wrapped)
}

// ─── Text wrapping ───────────────────────────────────────────────────

func (f *TextFormatter) wrap(text string, startCol, wrapCol int) string {
	w := f.wrapWidth()
	if startCol+len(text) <= w {
		return text
	}

	avail := w - startCol
	if avail < 20 {
		return text
	}

	wrapPad := strings.Repeat(" ", wrapCol)
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var b strings.Builder
	lineLen := 0

	for i, word := range words {
		if i == 0 {
			b.WriteString(word)
			lineLen = len(word)
			continue
		}
		if lineLen+1+len(word) > avail {
			b.WriteByte('\n')
			b.WriteString(wrapPad)
			b.WriteString(word)
			lineLen = len(word)
			avail = w - wrapCol
		} else {
			b.WriteByte(' ')
			b.WriteString(word)
			lineLen += 1 + len(word)
		}
	}

	return b.String()
}

// ─── Icons ───────────────────────────────────────────────────────────

func (f *TextFormatter) icon(name string) string {
	if f.Dumb {
		switch name {
		case "pass":
			return "+"
		case "fail":
			return "x"
		case "warn":
			return "!"
		case "info":
			return "i"
		case "shield":
			return "!"
		case "section":
			return ">"
		default:
			return "?"
		}
	}
	switch name {
	case "pass":
		return "✓"
	case "fail":
		return "✗"
	case "warn":
		return "⚠"
	case "info":
		return "ℹ"
	case "shield":
		return "🛡"
	case "section":
		return "▸"
	default:
		return "?"
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────

func (f *TextFormatter) statusIcon(v types.Verdict) string {
	return f.levelIcon(LevelFor(v))
}

func (f *TextFormatter) levelIcon(l Level) string {
	switch l {
	case LevelPass:
		return cGreen(f.icon("pass"))
	case LevelFail:
		return cRed(f.icon("fail"))
	case LevelWarning:
		return cYellow(f.icon("warn"))
	default:
		return cCyan(f.icon("section"))
	}
}

func (f *TextFormatter) levelColor(l Level) func(a ...interface{}) string {
	switch l {
	case LevelPass:
		return cGreen
	case LevelFail:
		return cRed
	case LevelWarning:
		return cYellow
	default:
		return cDim
	}
}

func verdictBadge(v types.Verdict) string {
	padded := fmt.Sprintf("%-*s", badgeWidth, verdictBadgeRaw(v))
	switch v {
	case types.VerdictFail:
		return cRedBold(padded)
	case types.VerdictWarning:
		return cYellow(padded)
	case types.VerdictPass:
		return cGreen(padded)
	default:
		return padded
	}
}

func verdictBadgeRaw(v types.Verdict) string {
	switch v {
	case types.VerdictPass:
		return "[PASS]"
	case types.VerdictFail:
		return "[FAIL]"
	case types.VerdictWarning:
		return "[WARN]"
	default:
		return "[----]"
	}
}

func durationRaw(r types.CheckResult) string {
	ms := r.DurationMS
	if ms <= 0 {
		ms = r.Duration.Milliseconds()
	}
	if ms < 1 {
		return "(<1ms)"
	}
	return fmt.Sprintf("(%dms)", ms)
}

func colPad(n int) string {
	return strings.Repeat(" ", n)
}
