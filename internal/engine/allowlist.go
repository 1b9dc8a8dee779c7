package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"time"
)

// ErrCommandTimeout is returned when a probe command outlives its timeout.
var ErrCommandTimeout = errors.New("command timed out")

// CommandSpec restricts how one external command may be invoked.
type CommandSpec struct {
	Path        string
	Subcommands []string // exactly one is required
	Flags       []string
	MaxArgs     int // positional arguments after the subcommand
	Timeout     time.Duration
}

// AllowlistExecutor runs external commands that are named in its table,
// with arguments checked against the command's spec. The service probe is
// its only caller.
type AllowlistExecutor struct {
	allowlist map[string]CommandSpec
}

// NewAllowlistExecutor returns an executor that may only ask systemd
// whether a unit is active.
func NewAllowlistExecutor() *AllowlistExecutor {
	return &AllowlistExecutor{allowlist: map[string]CommandSpec{
		"systemctl": {
			Path:        lookPathOr("systemctl", "/usr/bin/systemctl"),
			Subcommands: []string{"is-active"},
			Flags:       []string{"--quiet"},
			MaxArgs:     1,
			Timeout:     5 * time.Second,
		},
	}}
}

func lookPathOr(name, fallback string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return fallback
}

// IsAllowed reports whether cmd is in the table.
func (e *AllowlistExecutor) IsAllowed(cmd string) bool {
	_, ok := e.allowlist[cmd]
	return ok
}

// Execute runs cmd directly (no shell) and returns its stdout. A non-zero
// exit comes back as *exec.ExitError together with whatever was printed.
func (e *AllowlistExecutor) Execute(ctx context.Context, cmd string, args []string) ([]byte, error) {
	spec, ok := e.allowlist[cmd]
	if !ok {
		return nil, fmt.Errorf("command %q not in allowlist", cmd)
	}
	if err := validateArgs(spec, args); err != nil {
		return nil, fmt.Errorf("%s: %w", cmd, err)
	}

	ctx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, spec.Path, args...).Output()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s after %v", ErrCommandTimeout, cmd, spec.Timeout)
	}
	return out, err
}

func validateArgs(spec CommandSpec, args []string) error {
	var sub string
	positional := 0

	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "-"):
			if !slices.Contains(spec.Flags, arg) {
				return fmt.Errorf("flag %q not allowed (allowed: %s)", arg, strings.Join(spec.Flags, ", "))
			}
		case sub == "":
			if !slices.Contains(spec.Subcommands, arg) {
				return fmt.Errorf("subcommand %q not allowed", arg)
			}
			sub = arg
		default:
			positional++
		}
	}

	if len(args) > 0 && sub == "" {
		return errors.New("missing subcommand")
	}
	if positional > spec.MaxArgs {
		return fmt.Errorf("too many positional arguments: got %d, max %d", positional, spec.MaxArgs)
	}
	return nil
}
