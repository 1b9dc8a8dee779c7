package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ancients-collective/sshcheck/internal/directive"
	"github.com/ancients-collective/sshcheck/internal/engine"
	"github.com/ancients-collective/sshcheck/internal/history"
	"github.com/ancients-collective/sshcheck/internal/logging"
	"github.com/ancients-collective/sshcheck/internal/output"
	"github.com/ancients-collective/sshcheck/internal/remediate"
	"github.com/ancients-collective/sshcheck/internal/types"
	"github.com/ancients-collective/sshcheck/internal/watch"
)

// evaluate loads the configuration and runs the catalog against it.
func (a *app) evaluate(ctx context.Context) (*types.ResultSet, error) {
	store, err := directive.Load(a.settings.ConfigPath)
	if err != nil {
		return nil, err
	}
	rules, err := a.settings.Rules()
	if err != nil {
		return nil, err
	}
	env := &engine.Env{
		Store:        store,
		ConfigPath:   a.settings.ConfigPath,
		HostKeys:     a.settings.HostKeys,
		ServiceNames: a.settings.ServiceNames,
		Services:     a.services,
		Perms:        a.perms,
	}
	return engine.NewEvaluator(rules, env).Run(ctx), nil
}

// scan evaluates and wraps the results in a report.
func (a *app) scan(ctx context.Context) (*types.ResultSet, *types.ScanReport, error) {
	start := time.Now()
	rs, err := a.evaluate(ctx)
	if err != nil {
		return nil, nil, err
	}
	report := types.NewScanReport(version, a.settings.ConfigPath, types.SystemFromContext(a.system), rs, start, time.Since(start))

	logging.From(ctx).Event(ctx, "audit.completed", map[string]any{
		"config":   a.settings.ConfigPath,
		"passed":   rs.Passed(),
		"failed":   rs.Failed(),
		"warnings": rs.Warnings(),
		"score":    rs.Score(),
	})
	return rs, &report, nil
}

// auditAndFix is the default command: audit, report, and optionally remediate.
func (a *app) auditAndFix(ctx context.Context) int {
	rs, report, err := a.scan(ctx)
	if err != nil {
		return a.reportError(err)
	}

	if err := a.formatter().Write(a.stdout, report); err != nil {
		a.fail("Failed to write output: %v", err)
		return 1
	}
	if err := a.writeReportFile(report); err != nil {
		a.fail("Failed to write report: %v", err)
		return 1
	}
	a.recordScan(ctx, report, a.cfg.Format == "text")

	if a.cfg.Fix {
		after, err := a.fix(ctx, rs)
		if err != nil {
			return a.reportError(err)
		}
		rs = after
	}
	return exitCode(rs)
}

// writeReportFile writes the plain-text report when a report path is set.
func (a *app) writeReportFile(report *types.ScanReport) error {
	path := a.settings.ReportPath
	if path == "" {
		return nil
	}
	if err := validateOutputPath(path); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := output.WriteReport(&buf, report); err != nil {
		return err
	}
	if err := remediate.WriteFileAtomic(path, buf.Bytes(), a.settings.ReportFileMode()); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "  ✓ Report written to %s\n", path)
	return nil
}

// recordScan stores the report in history. With showChanges it also prints
// the verdicts that moved since the previous recorded scan of the same file.
func (a *app) recordScan(ctx context.Context, report *types.ScanReport, showChanges bool) {
	if a.history == nil {
		return
	}
	log := logging.From(ctx)

	prev, err := a.history.LatestScan(ctx, report.ConfigPath)
	if err != nil {
		log.Warn("history", "failed to read previous scan", "error", err.Error())
	}
	id, err := a.history.RecordScan(ctx, logging.RunID(ctx), report)
	if err != nil {
		a.warn("Failed to record scan history: %v", err)
		return
	}
	log.Debug("history", "scan recorded", "id", id)

	if !showChanges || prev == nil {
		return
	}
	results, err := a.history.ScanResults(ctx, prev.ID)
	if err != nil {
		log.Warn("history", "failed to read previous results", "error", err.Error())
		return
	}
	changes := types.Diff(types.NewResultSet(results...), types.NewResultSet(report.Results...))
	if len(changes) == 0 {
		return
	}
	fmt.Fprintf(a.stdout, "  Changes since %s:\n", prev.Timestamp.Local().Format("2006-01-02 15:04:05"))
	a.text().WriteLines(a.stdout, output.ChangeLines(changes))
	fmt.Fprintln(a.stdout)
}

// watch audits once, then re-audits after every change to the file.
// Remediation is never offered in this mode.
func (a *app) watch(ctx context.Context) int {
	rs, report, err := a.scan(ctx)
	if err != nil {
		return a.reportError(err)
	}
	if err := a.formatter().Write(a.stdout, report); err != nil {
		a.fail("Failed to write output: %v", err)
		return 1
	}
	a.recordScan(ctx, report, false)

	w, err := watch.New(a.settings.ConfigPath, a.settings.Watch.Debounce)
	if err != nil {
		return a.reportError(err)
	}
	defer w.Close()
	fmt.Fprintf(a.stderr, "  ▸ Watching %s for changes (Ctrl+C to stop)\n", a.settings.ConfigPath)

	err = w.Run(ctx, func(ctx context.Context) {
		next, report, err := a.scan(ctx)
		if err != nil {
			a.warn("Re-audit failed: %v", err)
			return
		}
		a.recordScan(ctx, report, false)
		if a.cfg.Format != "text" {
			if err := a.formatter().Write(a.stdout, report); err != nil {
				a.warn("Failed to write output: %v", err)
			}
		} else {
			a.printWatchUpdate(rs, next)
		}
		rs = next
	})
	if err != nil {
		return a.reportError(err)
	}
	return exitCode(rs)
}

func (a *app) printWatchUpdate(prev, next *types.ResultSet) {
	fmt.Fprintf(a.stdout, "  [%s] %s changed: score %.1f%%, %d failed, %d warnings\n",
		time.Now().Format("15:04:05"), filepath.Base(a.settings.ConfigPath),
		next.Score(), next.Failed(), next.Warnings())

	changes := types.Diff(prev, next)
	if len(changes) == 0 {
		fmt.Fprintf(a.stdout, "      no verdict changes\n")
		return
	}
	lines := output.ChangeLines(changes)
	for i := range lines {
		lines[i].Indent = 1
	}
	a.text().WriteLines(a.stdout, lines)
}

// ruleInfo is the --list-rules entry for machine-readable formats.
type ruleInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Fixable  bool   `json:"fixable"`
	Fix      string `json:"fix,omitempty"`
}

// listRules prints the catalog in evaluation order with each rule's fix.
func (a *app) listRules() int {
	rules, err := a.settings.Rules()
	if err != nil {
		return a.reportError(err)
	}

	infos := make([]ruleInfo, len(rules))
	maxID, maxName := 0, 0
	for i, r := range rules {
		infos[i] = ruleInfo{ID: r.ID, Name: r.Name, Category: r.Category, Fixable: r.Fixable()}
		if r.Fix != nil {
			infos[i].Fix = r.Fix.Key + " " + r.Fix.Value
		}
		maxID = max(maxID, len(r.ID))
		maxName = max(maxName, len(r.Name))
	}

	if a.cfg.Format != "text" {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(infos); err != nil {
			a.fail("Failed to write output: %v", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(a.stdout, "\n  Available rules (%d):\n\n", len(infos))
	for _, r := range infos {
		fix := "-"
		if r.Fixable {
			fix = r.Fix
		}
		fmt.Fprintf(a.stdout, "    %-*s  %-14s  %-*s  %s\n", maxID, r.ID, r.Category, maxName, r.Name, fix)
	}
	fmt.Fprintln(a.stdout)
	return 0
}

// historyList prints recorded scans and remediations for the config file.
func (a *app) historyList(ctx context.Context) int {
	if a.history == nil {
		a.fail("--history-list needs a database: pass --history or set history_db")
		return 1
	}
	path := a.settings.ConfigPath

	scans, err := a.history.ListScans(ctx, history.ScanFilter{ConfigPath: path})
	if err != nil {
		return a.reportError(err)
	}
	rems, err := a.history.ListRemediations(ctx, path, history.DefaultListLimit)
	if err != nil {
		return a.reportError(err)
	}

	if a.cfg.Format != "text" {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		err := enc.Encode(struct {
			Scans        []history.Scan        `json:"scans"`
			Remediations []history.Remediation `json:"remediations"`
		}{scans, rems})
		if err != nil {
			a.fail("Failed to write output: %v", err)
			return 1
		}
		return 0
	}

	if len(scans) == 0 {
		fmt.Fprintf(a.stdout, "\n  No scans recorded for %s\n\n", path)
	} else {
		fmt.Fprintf(a.stdout, "\n  Scans of %s (newest first):\n\n", path)
		for _, s := range scans {
			fmt.Fprintf(a.stdout, "    %s  %5.1f%%  %-9s  %2d passed  %2d failed  %2d warnings\n",
				s.Timestamp.Local().Format("2006-01-02 15:04:05"), s.Score, s.Rating, s.Passed, s.Failed, s.Warnings)
		}
		fmt.Fprintln(a.stdout)
	}

	if len(rems) > 0 {
		fmt.Fprintf(a.stdout, "  Remediations:\n\n")
		for _, r := range rems {
			fmt.Fprintf(a.stdout, "    %s  %-11s  %s\n",
				r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.State, strings.Join(r.Applied, ", "))
			if r.BackupPath != "" {
				fmt.Fprintf(a.stdout, "      backup: %s\n", r.BackupPath)
			}
		}
		fmt.Fprintln(a.stdout)
	}
	return 0
}

// unsafeOutputPrefixes are path prefixes where writing report files is rejected.
// Prevents accidental overwrite of system files when running as root.
var unsafeOutputPrefixes = []string{"/etc/", "/proc/", "/sys/", "/dev/", "/boot/", "/sbin/", "/bin/", "/usr/"}

// validateOutputPath checks that the report path is safe to write to.
func validateOutputPath(path string) error {
	cleaned := filepath.Clean(path)
	if filepath.IsAbs(cleaned) {
		for _, prefix := range unsafeOutputPrefixes {
			if strings.HasPrefix(cleaned, prefix) {
				return fmt.Errorf("refusing to write to system path %q", cleaned)
			}
		}
	}
	return nil
}
