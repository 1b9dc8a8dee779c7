package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/ancients-collective/sshcheck/internal/engine"
	"github.com/ancients-collective/sshcheck/internal/history"
	"github.com/ancients-collective/sshcheck/internal/logging"
	"github.com/ancients-collective/sshcheck/internal/output"
	"github.com/ancients-collective/sshcheck/internal/remediate"
	"github.com/ancients-collective/sshcheck/internal/types"
)

// fix offers fixes for the audit results, applies the chosen ones
// and returns the re-evaluated results. When nothing changes the input
// results are returned.
func (a *app) fix(ctx context.Context, rs *types.ResultSet) (*types.ResultSet, error) {
	ui := a.ui()
	path := a.settings.ConfigPath

	rules, err := a.settings.Rules()
	if err != nil {
		return nil, err
	}
	fixes := engine.FixTable(rules)
	candidates := remediate.Candidates(rs, fixes, a.cfg.FixWarnings)
	if len(candidates) == 0 {
		fmt.Fprintf(ui, "  ✓ Nothing to fix automatically.\n")
		return rs, nil
	}

	selected, err := a.selectFixes(ctx, rules, candidates, fixes)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		fmt.Fprintf(ui, "  ▸ No fixes selected. Configuration unchanged.\n")
		return rs, nil
	}
	if !a.system.IsRoot {
		a.warn("Not running as root; writing %s may fail", path)
	}

	out, err := remediate.NewOrchestrator(fixes).Remediate(ctx, path, selected)
	a.recordRemediation(ctx, out, err)
	if err != nil {
		return nil, err
	}
	for _, name := range out.Skipped {
		a.warn("%s cannot be fixed automatically", name)
	}
	if out.State == remediate.StateIdle {
		fmt.Fprintf(ui, "  ▸ Nothing to apply.\n")
		return rs, nil
	}

	fmt.Fprintf(ui, "\n  ✓ Backup created: %s\n", out.Backup.Path)
	for _, req := range out.Applied {
		fmt.Fprintf(ui, "  ✓ Set %s %s\n", req.Key, req.Value)
	}
	if !out.Changed {
		fmt.Fprintf(ui, "  ▸ Configuration already up to date.\n")
		return rs, nil
	}

	after, err := a.evaluate(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(ui, "\n  Re-evaluation: score %.1f%% -> %.1f%%\n", rs.Score(), after.Score())
	if changes := types.Diff(rs, after); len(changes) > 0 {
		a.text().WriteLines(ui, output.ChangeLines(changes))
	}
	printNextSteps(ui, remediate.NextSteps(path, out.Backup))
	return after, nil
}

// selectFixes picks candidates by --fix-rule, --yes or by asking.
func (a *app) selectFixes(ctx context.Context, rules []engine.Rule, candidates []types.CheckResult, fixes map[string]types.PatchRequest) ([]types.CheckResult, error) {
	switch {
	case a.cfg.FixRule != "":
		return a.selectByRule(rules, candidates)
	case a.cfg.Yes:
		return candidates, nil
	default:
		title := "Automatic fixes for " + a.settings.ConfigPath
		return a.prompt().SelectFixes(ctx, title, candidates, fixes)
	}
}

// selectByRule resolves --fix-rule entries against the catalog. An unknown
// rule aborts with suggestions; a known rule with nothing to fix is skipped.
func (a *app) selectByRule(rules []engine.Rule, candidates []types.CheckResult) ([]types.CheckResult, error) {
	var selected []types.CheckResult
	for _, want := range splitList(a.cfg.FixRule) {
		rule, ok := engine.Lookup(rules, want)
		if !ok {
			a.fail("No rule found with ID or name %q", want)
			if suggestions := suggestIDs(want, engine.IDs(rules)); len(suggestions) > 0 {
				fmt.Fprintf(a.stderr, "\n  Did you mean:\n")
				for _, s := range suggestions {
					fmt.Fprintf(a.stderr, "    • %s\n", s)
				}
			}
			fmt.Fprintf(a.stderr, "\n  Use --list-rules to see all rule IDs.\n")
			return nil, errAlreadyReported
		}

		c, ok := findResult(candidates, rule.ID)
		switch {
		case !rule.Fixable():
			a.warn("%s cannot be fixed automatically", rule.ID)
		case !ok:
			a.warn("%s has nothing to fix", rule.ID)
		default:
			selected = append(selected, c)
		}
	}
	return selected, nil
}

func findResult(results []types.CheckResult, id string) (types.CheckResult, bool) {
	for _, r := range results {
		if r.ID == id {
			return r, true
		}
	}
	return types.CheckResult{}, false
}

// recordRemediation stores the outcome of a remediation pass in history.
func (a *app) recordRemediation(ctx context.Context, out *remediate.Outcome, runErr error) {
	if a.history == nil || out == nil || out.State == remediate.StateIdle {
		return
	}
	rec := history.Remediation{
		RunID:      logging.RunID(ctx),
		Timestamp:  time.Now(),
		ConfigPath: a.settings.ConfigPath,
		State:      string(out.State),
		Message:    out.Message,
	}
	if out.Backup != nil {
		rec.BackupPath = out.Backup.Path
	}
	for _, req := range out.Applied {
		rec.Applied = append(rec.Applied, req.Key+" "+req.Value)
	}
	if runErr != nil {
		rec.Message = runErr.Error()
	}
	if err := a.history.RecordRemediation(ctx, rec); err != nil {
		logging.From(ctx).Warn("history", "failed to record remediation", "error", err.Error())
	}
}

// listBackups prints the backups of the configuration, newest first.
func (a *app) listBackups() int {
	path := a.settings.ConfigPath
	backups, err := remediate.ListBackups(path)
	if err != nil {
		return a.reportError(err)
	}
	if len(backups) == 0 {
		fmt.Fprintf(a.stdout, "\n  No backups found for %s\n\n", path)
		return 0
	}
	fmt.Fprintf(a.stdout, "\n  Backups of %s (%d, newest first):\n\n", path, len(backups))
	for _, b := range backups {
		fmt.Fprintf(a.stdout, "    %s  %s\n", b.CreatedAt.Format("2006-01-02 15:04:05"), b.Path)
	}
	fmt.Fprintln(a.stdout)
	return 0
}

// restore puts a backup back in place after confirmation.
func (a *app) restore(ctx context.Context) int {
	path := a.settings.ConfigPath
	b, err := a.findBackup()
	if err != nil {
		return a.reportError(err)
	}

	if !a.cfg.Yes {
		ok, err := a.prompt().AskYesNo(fmt.Sprintf("Restore %s from %s?", path, b.Path))
		if err != nil && !errors.Is(err, io.EOF) {
			return a.reportError(err)
		}
		if !ok {
			fmt.Fprintf(a.ui(), "  ▸ Restore cancelled. Configuration unchanged.\n")
			return 0
		}
	}

	if err := remediate.Restore(b); err != nil {
		return a.reportError(err)
	}
	logging.From(ctx).Event(ctx, "remediation.restored", map[string]any{"config": path, "backup": b.Path})
	if a.history != nil {
		err := a.history.RecordRemediation(ctx, history.Remediation{
			RunID:      logging.RunID(ctx),
			Timestamp:  time.Now(),
			ConfigPath: path,
			State:      "restored",
			BackupPath: b.Path,
			Message:    "restored from backup",
		})
		if err != nil {
			logging.From(ctx).Warn("history", "failed to record restore", "error", err.Error())
		}
	}

	fmt.Fprintf(a.ui(), "  ✓ Restored %s from %s\n", path, b.Path)
	printNextSteps(a.ui(), remediate.NextSteps(path, nil))
	return 0
}

// findBackup resolves --restore to one of the configuration's backups.
func (a *app) findBackup() (*types.Backup, error) {
	path := a.settings.ConfigPath
	if a.cfg.Restore == "latest" {
		return remediate.LatestBackup(path)
	}

	want, err := filepath.Abs(a.cfg.Restore)
	if err != nil {
		return nil, err
	}
	backups, err := remediate.ListBackups(path)
	if err != nil {
		return nil, err
	}
	for i := range backups {
		if backups[i].Path == want {
			return &backups[i], nil
		}
	}
	return nil, fmt.Errorf("%s is not a backup of %s (see --list-backups)", want, path)
}

func printNextSteps(w io.Writer, steps []string) {
	fmt.Fprintf(w, "\n  Next steps:\n")
	for i, s := range steps {
		fmt.Fprintf(w, "    %d. %s\n", i+1, s)
	}
	fmt.Fprintln(w)
}
