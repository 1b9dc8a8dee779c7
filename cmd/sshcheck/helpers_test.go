package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/sshcheck/internal/prompt"
	"github.com/ancients-collective/sshcheck/internal/types"
)

func init() {
	color.NoColor = true
}

const hardenedConfig = `PermitRootLogin no
PasswordAuthentication no
PermitEmptyPasswords no
PubkeyAuthentication yes
HostbasedAuthentication no
KbdInteractiveAuthentication no
UsePAM yes
MaxAuthTries 3
Protocol 2
LoginGraceTime 30
StrictModes yes
AllowGroups sshusers
PermitUserEnvironment no
IgnoreRhosts yes
X11Forwarding no
AllowTcpForwarding no
AllowAgentForwarding no
PermitTunnel no
ClientAliveInterval 300
ClientAliveCountMax 2
`

// weakConfig fails root_login and password_auth and warns on x11_forwarding.
var weakConfig = strings.NewReplacer(
	"PermitRootLogin no", "PermitRootLogin yes",
	"PasswordAuthentication no", "PasswordAuthentication yes",
	"X11Forwarding no", "X11Forwarding yes",
).Replace(hardenedConfig)

type fakeDetector struct {
	os   string
	root bool
}

func (f fakeDetector) DetectOS() (types.OSInfo, error) {
	return types.OSInfo{Name: f.os, Version: "6.1.0", Arch: "amd64"}, nil
}

func (f fakeDetector) DetectDistro() (types.DistroInfo, error) {
	return types.DistroInfo{ID: "debian", Version: "12"}, nil
}

func (f fakeDetector) DetectHostname() (string, error) {
	return "bastion", nil
}

func (f fakeDetector) IsRoot() bool {
	return f.root
}

type fakeServices struct{ active bool }

func (f fakeServices) IsActive(context.Context, string) (bool, error) {
	return f.active, nil
}

// fakePerms reports 0644 for the config under test and nothing else.
type fakePerms struct{ config string }

func (f fakePerms) Mode(path string) (fs.FileMode, error) {
	if path == f.config {
		return 0o644, nil
	}
	return 0, fmt.Errorf("stat %s: %w", path, fs.ErrNotExist)
}

// testRun is one CLI invocation against a fake host.
type testRun struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	code   int
}

// writeConfig creates an sshd_config in a fresh directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sshd_config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI parses args and runs them with fake collaborators. input feeds
// the line-mode prompts.
func runCLI(t *testing.T, input string, args ...string) *testRun {
	t.Helper()
	return runWith(t, fakeDetector{os: "linux", root: true}, input, args...)
}

func runWith(t *testing.T, det fakeDetector, input string, args ...string) *testRun {
	t.Helper()
	r := &testRun{}

	cfg, err := parseFlags(args, io.Discard)
	require.NoError(t, err)

	a := newApp(cfg, &r.stdout, &r.stderr)
	a.detector = det
	a.services = fakeServices{active: true}
	if abs, err := filepath.Abs(cfg.ConfigPath); err == nil && cfg.ConfigPath != "" {
		a.perms = fakePerms{config: abs}
	} else {
		a.perms = fakePerms{}
	}
	a.prompter = &prompt.Prompter{In: strings.NewReader(input), Out: a.ui()}

	r.code = a.run(context.Background())
	return r
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
