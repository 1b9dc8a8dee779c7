// Package main is the entry point for sshcheck, an OpenSSH daemon configuration auditor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ancients-collective/sshcheck/internal/config"
	sysctx "github.com/ancients-collective/sshcheck/internal/context"
	"github.com/ancients-collective/sshcheck/internal/engine"
	"github.com/ancients-collective/sshcheck/internal/history"
	"github.com/ancients-collective/sshcheck/internal/logging"
	"github.com/ancients-collective/sshcheck/internal/output"
	"github.com/ancients-collective/sshcheck/internal/prompt"
	"github.com/ancients-collective/sshcheck/internal/remediate"
	"github.com/ancients-collective/sshcheck/internal/types"
)

// version is set at build time via -ldflags.
var version = "1.0.0"

// Config holds all parsed CLI flag values.
type Config struct {
	ConfigPath  string
	OutputFile  string
	Settings    string
	HistoryDB   string
	LogFile     string
	Format      string
	Show        string
	FixRule     string
	Restore     string
	Verbose     bool
	Fix         bool
	FixWarnings bool
	Yes         bool
	NoColor     bool
	HistoryList bool
	ListRules   bool
	ListBackups bool
	Watch       bool
	Debug       bool
	Version     bool
}

// errAlreadyReported marks an error whose message has been printed.
var errAlreadyReported = errors.New("already reported")

// parseFlags parses command-line arguments into a Config using a dedicated FlagSet,
// keeping the global flag.CommandLine clean for testability.
func parseFlags(args []string, stderr io.Writer) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("sshcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.ConfigPath, "config", "", "Path to sshd_config (default: /etc/ssh/sshd_config)")
	fs.StringVar(&cfg.ConfigPath, "c", "", "Path to sshd_config (shorthand)")
	fs.StringVar(&cfg.OutputFile, "output", "", "Write a plain-text report to this file")
	fs.StringVar(&cfg.OutputFile, "o", "", "Write a plain-text report (shorthand)")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Describe every rule and show details for passing checks")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose output (shorthand)")
	fs.BoolVar(&cfg.Fix, "fix", false, "Offer to fix failing checks after the audit")
	fs.BoolVar(&cfg.Fix, "f", false, "Offer to fix failing checks (shorthand)")
	fs.StringVar(&cfg.Format, "format", "text", "Output format: text, json, jsonl")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")
	fs.StringVar(&cfg.Show, "show", output.ShowFindings, "Which results to display: findings, all, fail, pass, warn")
	fs.BoolVar(&cfg.Yes, "yes", false, "Apply every offered fix without asking")
	fs.StringVar(&cfg.FixRule, "fix-rule", "", "Fix only these rules (comma-separated IDs or names)")
	fs.BoolVar(&cfg.FixWarnings, "fix-warnings", false, "Also offer fixes for warnings")
	fs.StringVar(&cfg.Settings, "settings", "", "Path to a YAML settings file")
	fs.StringVar(&cfg.HistoryDB, "history", "", "Record scans in this SQLite database")
	fs.BoolVar(&cfg.HistoryList, "history-list", false, "List recorded scans and remediations and exit")
	fs.BoolVar(&cfg.ListRules, "list-rules", false, "List all rules and exit")
	fs.BoolVar(&cfg.ListBackups, "list-backups", false, "List configuration backups and exit")
	fs.StringVar(&cfg.Restore, "restore", "", "Restore the configuration from a backup: latest or a backup path")
	fs.BoolVar(&cfg.Watch, "watch", false, "Re-audit whenever the configuration changes")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Append a JSONL audit log to this file")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug diagnostic output")
	fs.BoolVar(&cfg.Version, "version", false, "Print the version and exit")

	fs.Usage = func() { usage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "  ✗ Unexpected argument %q (see --help)\n", fs.Arg(0))
		return nil, errAlreadyReported
	}
	return cfg, nil
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  sshcheck  Audit and harden your OpenSSH daemon configuration\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Usage: sshcheck [options]\n\n")
	fmt.Fprintf(w, "  Options:\n")
	fmt.Fprintf(w, "    -c,  --config <file>      sshd_config to audit (default: /etc/ssh/sshd_config)\n")
	fmt.Fprintf(w, "    -o,  --output <file>      Write a plain-text report to file\n")
	fmt.Fprintf(w, "    -v,  --verbose            Describe every rule and show passing details\n")
	fmt.Fprintf(w, "         --show <mode>        Output filter: findings, all, fail, pass, warn (default: findings)\n")
	fmt.Fprintf(w, "         --format <type>      Output format: text, json, jsonl (default: text)\n")
	fmt.Fprintf(w, "         --no-color           Disable colored output\n")
	fmt.Fprintf(w, "    -f,  --fix                Offer to fix failing checks (backup taken first)\n")
	fmt.Fprintf(w, "         --fix-warnings       Also offer fixes for warnings\n")
	fmt.Fprintf(w, "         --fix-rule <list>    Fix only the named rules (IDs or names)\n")
	fmt.Fprintf(w, "         --yes                Apply fixes or restore without asking\n")
	fmt.Fprintf(w, "         --list-rules         List all rules and exit\n")
	fmt.Fprintf(w, "         --list-backups       List configuration backups and exit\n")
	fmt.Fprintf(w, "         --restore <backup>   Restore from a backup: latest or a path\n")
	fmt.Fprintf(w, "         --watch              Re-audit whenever the configuration changes\n")
	fmt.Fprintf(w, "         --history <db>       Record scans in a SQLite database\n")
	fmt.Fprintf(w, "         --history-list       Show recorded scans and remediations\n")
	fmt.Fprintf(w, "         --settings <file>    YAML settings file\n")
	fmt.Fprintf(w, "         --log-file <file>    Append a JSONL audit log\n")
	fmt.Fprintf(w, "         --debug              Enable debug diagnostic output\n")
	fmt.Fprintf(w, "         --version            Print the version\n")
	fmt.Fprintf(w, "\n  Examples:\n")
	fmt.Fprintf(w, "    sudo sshcheck                              Audit /etc/ssh/sshd_config\n")
	fmt.Fprintf(w, "    sudo sshcheck --show all -v                Every rule with details\n")
	fmt.Fprintf(w, "    sudo sshcheck -o /root/ssh-report.txt      Also write a report file\n")
	fmt.Fprintf(w, "    sudo sshcheck --fix                        Choose fixes interactively\n")
	fmt.Fprintf(w, "    sudo sshcheck --fix --fix-rule root_login  Fix a single rule\n")
	fmt.Fprintf(w, "    sudo sshcheck --restore latest             Undo the last fix\n")
	fmt.Fprintf(w, "    sshcheck -c ./sshd_config --format json    JSON for pipelines\n")
	fmt.Fprintf(w, "    sshcheck -c ./sshd_config --watch          Audit while you edit\n")
	fmt.Fprintf(w, "    sudo sshcheck && echo clean                Scripting with exit code\n")
	fmt.Fprintf(w, "\n")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run parses args and executes the requested command, returning the exit code.
func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, stdout, stderr)
	a.stdin = stdin
	return a.run(ctx)
}

// app carries one invocation's configuration and collaborators.
type app struct {
	cfg      *Config
	settings config.Settings
	stdin    *os.File
	stdout   io.Writer
	stderr   io.Writer

	detector sysctx.OSDetector
	services engine.ServiceProber
	perms    engine.PermissionProber
	prompter *prompt.Prompter
	history  history.Store
	system   types.SystemContext
}

func newApp(cfg *Config, stdout, stderr io.Writer) *app {
	return &app{
		cfg:      cfg,
		stdout:   stdout,
		stderr:   stderr,
		detector: sysctx.NewOSDetector(),
		services: engine.NewSystemctlProber(),
		perms:    engine.StatProber{},
	}
}

func (a *app) run(ctx context.Context) int {
	if a.cfg.Version {
		fmt.Fprintf(a.stdout, "sshcheck v%s\n", version)
		return 0
	}
	if code := validateFlags(a.cfg, a.stderr); code >= 0 {
		return code
	}
	if err := a.loadSettings(); err != nil {
		a.fail("Invalid settings: %v", err)
		return 1
	}

	log, err := a.newLogger()
	if err != nil {
		a.fail("Failed to open log: %v", err)
		return 1
	}
	defer log.Close()
	ctx = logging.WithLogger(logging.WithRunID(ctx), log)

	a.setupColor()

	if a.cfg.ListRules {
		return a.listRules()
	}

	if code := a.detectSystem(); code >= 0 {
		return code
	}
	log.Debug("main", "starting", "config", a.settings.ConfigPath, "run_id", logging.RunID(ctx))

	if a.history == nil && a.settings.HistoryDB != "" {
		store, err := history.NewSQLiteStore(a.settings.HistoryDB)
		if err != nil {
			if a.cfg.HistoryList {
				a.fail("Failed to open history database: %v", err)
				return 1
			}
			a.warn("History disabled: %v", err)
		} else {
			a.history = store
		}
	}
	if a.history != nil {
		defer a.history.Close()
	}

	switch {
	case a.cfg.ListBackups:
		return a.listBackups()
	case a.cfg.Restore != "":
		return a.restore(ctx)
	case a.cfg.HistoryList:
		return a.historyList(ctx)
	case a.cfg.Watch:
		return a.watch(ctx)
	}
	return a.auditAndFix(ctx)
}

// validateFlags checks flag values and combinations.
// Returns -1 if valid, or an exit code (1) if invalid.
func validateFlags(cfg *Config, stderr io.Writer) int {
	switch cfg.Format {
	case "text", "json", "jsonl":
	default:
		fmt.Fprintf(stderr, "  ✗ Invalid --format value %q (must be text, json, or jsonl)\n", cfg.Format)
		return 1
	}
	if !output.ValidShow(cfg.Show) {
		fmt.Fprintf(stderr, "  ✗ Invalid --show value %q (must be findings, all, fail, pass, or warn)\n", cfg.Show)
		return 1
	}

	modes := 0
	for _, set := range []bool{cfg.ListRules, cfg.ListBackups, cfg.Restore != "", cfg.HistoryList, cfg.Watch} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		fmt.Fprintf(stderr, "  ✗ Use only one of --list-rules, --list-backups, --restore, --history-list, --watch\n")
		return 1
	}
	if cfg.Fix && modes > 0 {
		fmt.Fprintf(stderr, "  ✗ --fix runs after an audit and cannot be combined with other commands\n")
		return 1
	}
	if !cfg.Fix && (cfg.FixRule != "" || cfg.FixWarnings) {
		fmt.Fprintf(stderr, "  ✗ --fix-rule and --fix-warnings require --fix\n")
		return 1
	}
	if cfg.Fix && cfg.Format != "text" && !cfg.Yes && cfg.FixRule == "" {
		fmt.Fprintf(stderr, "  ✗ --fix with --format %s needs --yes or --fix-rule\n", cfg.Format)
		return 1
	}
	return -1
}

// loadSettings layers command line flags over the settings file.
func (a *app) loadSettings() error {
	s := config.Default()
	if a.cfg.Settings != "" {
		p, err := filepath.Abs(a.cfg.Settings)
		if err != nil {
			return err
		}
		if s, err = config.Load(p); err != nil {
			return err
		}
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{a.cfg.ConfigPath, &s.ConfigPath},
		{a.cfg.OutputFile, &s.ReportPath},
		{a.cfg.HistoryDB, &s.HistoryDB},
		{a.cfg.LogFile, &s.Log.File},
	}
	for _, o := range overrides {
		if o.flag == "" {
			continue
		}
		p, err := filepath.Abs(o.flag)
		if err != nil {
			return err
		}
		*o.dst = p
	}
	if a.cfg.LogFile != "" {
		s.Log.Format = logging.FormatJSONL
	}
	if a.cfg.Debug {
		s.Log.Level = logging.LevelDebug
	}

	a.settings = s
	return s.Validate()
}

// newLogger writes diagnostics to stderr, or to the log file with warnings
// still echoed to stderr.
func (a *app) newLogger() (logging.Logger, error) {
	cfg := a.settings.LogConfig()
	if cfg.Output == "" || cfg.Output == "stderr" {
		return logging.NewLogger(cfg)
	}
	file, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	console, err := logging.NewLogger(logging.Config{Format: logging.FormatText, Level: logging.LevelWarn, Output: "stderr"})
	if err != nil {
		file.Close()
		return nil, err
	}
	return logging.Tee(console, file), nil
}

func (a *app) setupColor() {
	if a.cfg.NoColor || a.cfg.Format != "text" || output.IsDumbTerm() {
		color.NoColor = true
	}
}

// detectSystem gates on the platform and records the host description.
// Returns -1 if successful, or an exit code on failure.
func (a *app) detectSystem() int {
	sc, warnings, err := sysctx.DetectSystemContext(a.detector)
	if err != nil {
		if errors.Is(err, types.ErrUnsupportedPlatform) {
			a.fail("%v", err)
			fmt.Fprintf(a.stderr, "    sshcheck audits OpenSSH on Linux, macOS and the BSDs.\n")
			return 1
		}
		a.fail("Failed to detect system context: %v", err)
		return 1
	}
	for _, w := range warnings {
		a.warn("%s", w)
	}
	a.system = sc
	return -1
}

// formatter picks the console renderer for --format.
func (a *app) formatter() output.Formatter {
	switch a.cfg.Format {
	case "json":
		return &output.JSONFormatter{}
	case "jsonl":
		return &output.JSONLFormatter{}
	default:
		return a.text()
	}
}

func (a *app) text() *output.TextFormatter {
	return &output.TextFormatter{
		Verbose: a.cfg.Verbose,
		Show:    a.cfg.Show,
		Width:   termWidth(a.stdout),
		Dumb:    output.IsDumbTerm(),
	}
}

func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	if tw, _, err := term.GetSize(fd); err == nil && tw > 0 {
		return tw
	}
	return 0
}

// ui is where progress and remediation messages go: stdout for text
// output, stderr when stdout carries machine-readable results.
func (a *app) ui() io.Writer {
	if a.cfg.Format == "text" {
		return a.stdout
	}
	return a.stderr
}

func (a *app) prompt() *prompt.Prompter {
	if a.prompter == nil {
		in := a.stdin
		if in == nil {
			in = os.Stdin
		}
		a.prompter = prompt.NewPrompter(in, a.ui())
	}
	return a.prompter
}

func (a *app) fail(format string, args ...any) {
	fmt.Fprintf(a.stderr, "  ✗ "+format+"\n", args...)
}

func (a *app) warn(format string, args ...any) {
	fmt.Fprintf(a.stderr, "  ⚠ "+format+"\n", args...)
}

// reportError prints err with a hint for the operator and returns exit code 1.
func (a *app) reportError(err error) int {
	if errors.Is(err, errAlreadyReported) {
		return 1
	}
	if backupPath, ok := remediate.IsRestoreFailure(err); ok {
		a.fail("%v", err)
		fmt.Fprintf(a.stderr, "    The configuration may be inconsistent. Restore it manually:\n")
		fmt.Fprintf(a.stderr, "      sudo cp %s %s\n", backupPath, a.settings.ConfigPath)
		return 1
	}

	a.fail("%v", err)
	switch {
	case errors.Is(err, types.ErrPermissionDenied), errors.Is(err, os.ErrPermission):
		fmt.Fprintf(a.stderr, "    Permission denied. Run with sudo to access %s\n", a.settings.ConfigPath)
	case errors.Is(err, types.ErrBackupFailure):
		fmt.Fprintf(a.stderr, "    No changes were made.\n")
	case errors.Is(err, types.ErrPatchPersist):
		fmt.Fprintf(a.stderr, "    The original configuration was restored from backup.\n")
	case errors.Is(err, types.ErrSourceUnavailable):
		fmt.Fprintf(a.stderr, "    Use --config to point at your sshd_config.\n")
	}
	return 1
}

// exitCode is 0 when no check failed and 1 otherwise. Warnings do not count.
func exitCode(rs *types.ResultSet) int {
	if rs.Failed() > 0 {
		return 1
	}
	return 0
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
