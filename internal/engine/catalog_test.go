package engine

import (
	"context"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/sshcheck/internal/directive"
	"github.com/ancients-collective/sshcheck/internal/types"
)

type fakeServices struct {
	active map[string]bool
	err    error
}

func (f fakeServices) IsActive(_ context.Context, name string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.active[name], nil
}

type fakePerms struct {
	modes map[string]fs.FileMode
	err   error
}

func (f fakePerms) Mode(path string) (fs.FileMode, error) {
	if f.err != nil {
		return 0, f.err
	}
	m, ok := f.modes[path]
	if !ok {
		return 0, fmt.Errorf("stat %s: %w", path, fs.ErrNotExist)
	}
	return m, nil
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

func testEnv(t *testing.T, text string) *Env {
	t.Helper()
	store, err := directive.New(text)
	require.NoError(t, err)
	return &Env{
		Store:        store,
		ConfigPath:   DefaultConfigPath,
		HostKeys:     DefaultHostKeys,
		ServiceNames: DefaultServiceNames,
		Services:     fakeServices{active: map[string]bool{"sshd": true}},
		Perms: fakePerms{modes: map[string]fs.FileMode{
			DefaultConfigPath:               0o644,
			"/etc/ssh/ssh_host_rsa_key":     0o600,
			"/etc/ssh/ssh_host_ed25519_key": 0o600,
		}},
	}
}

func evaluate(t *testing.T, env *Env) *types.ResultSet {
	t.Helper()
	return NewEvaluator(Catalog(), env).Run(context.Background())
}

func verdictOf(t *testing.T, rs *types.ResultSet, name string) types.CheckResult {
	t.Helper()
	r, ok := rs.Find(name)
	require.True(t, ok, "missing result %q", name)
	return r
}

func TestCatalog_OrderAndShape(t *testing.T) {
	rules := Catalog()
	require.Len(t, rules, 23)

	wantIDs := []string{
		"root_login", "password_auth", "empty_passwords", "pubkey_auth", "hostbased_auth",
		"challenge_response", "use_pam", "max_auth_tries", "protocol_version",
		"login_grace_time", "strict_modes", "user_access", "user_environment", "ignore_rhosts",
		"x11_forwarding", "tcp_forwarding", "agent_forwarding", "permit_tunnel",
		"client_alive_interval", "client_alive_count_max",
		"service_status", "config_permissions", "host_key_permissions",
	}
	assert.Equal(t, wantIDs, IDs(rules))

	seenNames := map[string]bool{}
	for _, r := range rules {
		assert.NotEmpty(t, r.Name, r.ID)
		assert.NotEmpty(t, r.Category, r.ID)
		assert.NotEmpty(t, r.Description, r.ID)
		assert.NotEmpty(t, r.Remediation, r.ID)
		assert.NotNil(t, r.Check, r.ID)
		assert.False(t, seenNames[r.Name], "duplicate name %q", r.Name)
		seenNames[r.Name] = true
	}
}

func TestCatalog_FixTable(t *testing.T) {
	table := FixTable(Catalog())
	assert.Len(t, table, 18)

	assert.Equal(t, types.PatchRequest{Key: "PermitRootLogin", Value: "no"}, table["Root Login Configuration"])
	assert.Equal(t, types.PatchRequest{Key: "MaxAuthTries", Value: "4"}, table["Maximum Authentication Attempts"])
	assert.Equal(t, types.PatchRequest{Key: "ClientAliveCountMax", Value: "2"}, table["Client Alive Count Max"])

	for _, name := range []string{"SSH Protocol Version", "User Access Control", "SSH Service Status",
		"Config File Permissions", "Private Key Permissions"} {
		_, ok := table[name]
		assert.False(t, ok, "%s must not be fixable", name)
	}
}

func TestCatalog_HardenedConfigPassesAll(t *testing.T) {
	rs := evaluate(t, testEnv(t, hardenedConfig))
	for _, r := range rs.Results() {
		assert.Equal(t, types.VerdictPass, r.Verdict, "%s: %s", r.ID, r.Details)
		assert.Empty(t, r.Remediation, r.ID)
	}
	assert.Equal(t, 100.0, rs.Score())
}

func TestCatalog_FixesPassTheirRules(t *testing.T) {
	p := &directive.Patcher{Now: func() time.Time { return time.Time{} }}
	rules := Catalog()
	text := "Port 22\n"
	for _, r := range rules {
		if r.Fix != nil {
			text = p.Apply(text, r.Fix.Key, r.Fix.Value)
		}
	}

	env := testEnv(t, text)
	ev := NewEvaluator(rules, env)
	for _, r := range rules {
		if r.Fix == nil {
			continue
		}
		res := ev.RunRule(context.Background(), r)
		assert.Equal(t, types.VerdictPass, res.Verdict, "%s after fix: %s", r.ID, res.Details)
	}
}

func TestCatalog_RootLogin(t *testing.T) {
	tests := []struct {
		text    string
		verdict types.Verdict
		details string
	}{
		{"PermitRootLogin no\n", types.VerdictPass, "PermitRootLogin is set to 'no'"},
		{"PermitRootLogin prohibit-password\n", types.VerdictWarning, "PermitRootLogin is set to 'prohibit-password'"},
		{"PermitRootLogin yes\n", types.VerdictFail, "PermitRootLogin is not properly configured"},
		{"#PermitRootLogin no\n", types.VerdictFail, "PermitRootLogin is not properly configured"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r := verdictOf(t, evaluate(t, testEnv(t, tt.text)), "Root Login Configuration")
			assert.Equal(t, tt.verdict, r.Verdict)
			assert.Equal(t, tt.details, r.Details)
		})
	}
}

func TestCatalog_SeverityAsymmetry(t *testing.T) {
	rs := evaluate(t, testEnv(t, "Port 22\n"))

	assert.Equal(t, types.VerdictFail, verdictOf(t, rs, "Password Authentication").Verdict)
	assert.Equal(t, types.VerdictFail, verdictOf(t, rs, "Empty Passwords").Verdict)
	assert.Equal(t, types.VerdictFail, verdictOf(t, rs, "Host-Based Authentication").Verdict)
	assert.Equal(t, types.VerdictWarning, verdictOf(t, rs, "Public Key Authentication").Verdict)
	assert.Equal(t, types.VerdictWarning, verdictOf(t, rs, "X11 Forwarding").Verdict)
	assert.Equal(t, types.VerdictWarning, verdictOf(t, rs, "Permit Tunnel").Verdict)
}

func TestCatalog_ChallengeResponseEitherKey(t *testing.T) {
	for _, text := range []string{"ChallengeResponseAuthentication no\n", "KbdInteractiveAuthentication no\n"} {
		r := verdictOf(t, evaluate(t, testEnv(t, text)), "Challenge-Response Authentication")
		assert.Equal(t, types.VerdictPass, r.Verdict, text)
	}
	r := verdictOf(t, evaluate(t, testEnv(t, "KbdInteractiveAuthentication yes\n")), "Challenge-Response Authentication")
	assert.Equal(t, types.VerdictWarning, r.Verdict)
}

func TestCatalog_IntegerRanges(t *testing.T) {
	tests := []struct {
		rule    string
		text    string
		verdict types.Verdict
		details string
	}{
		{"Maximum Authentication Attempts", "MaxAuthTries 4\n", types.VerdictPass, "MaxAuthTries is set to 4"},
		{"Maximum Authentication Attempts", "MaxAuthTries 1\n", types.VerdictPass, "MaxAuthTries is set to 1"},
		{"Maximum Authentication Attempts", "MaxAuthTries 0\n", types.VerdictWarning, "MaxAuthTries is set to 0"},
		{"Maximum Authentication Attempts", "MaxAuthTries 6\n", types.VerdictWarning, "MaxAuthTries is set to 6"},
		{"Maximum Authentication Attempts", "MaxAuthTries many\n", types.VerdictWarning, "MaxAuthTries is set to many"},
		{"Maximum Authentication Attempts", "Port 22\n", types.VerdictWarning, "MaxAuthTries is not configured"},
		{"Client Alive Interval", "ClientAliveInterval 300\n", types.VerdictPass, "ClientAliveInterval is set to 300 seconds"},
		{"Client Alive Interval", "ClientAliveInterval 301\n", types.VerdictWarning, "ClientAliveInterval is 301"},
		{"Client Alive Interval", "ClientAliveInterval 0\n", types.VerdictWarning, "ClientAliveInterval is 0"},
		{"Client Alive Interval", "Port 22\n", types.VerdictWarning, "ClientAliveInterval not configured"},
		{"Client Alive Count Max", "ClientAliveCountMax 0\n", types.VerdictPass, "ClientAliveCountMax is set to 0"},
		{"Client Alive Count Max", "ClientAliveCountMax 3\n", types.VerdictPass, "ClientAliveCountMax is set to 3"},
		{"Client Alive Count Max", "ClientAliveCountMax 4\n", types.VerdictWarning, "ClientAliveCountMax is 4"},
		{"Client Alive Count Max", "ClientAliveCountMax -1\n", types.VerdictWarning, "ClientAliveCountMax is -1"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r := verdictOf(t, evaluate(t, testEnv(t, tt.text)), tt.rule)
			assert.Equal(t, tt.verdict, r.Verdict)
			assert.Equal(t, tt.details, r.Details)
		})
	}
}

func TestCatalog_Protocol(t *testing.T) {
	assert.Equal(t, types.VerdictFail, verdictOf(t, evaluate(t, testEnv(t, "Protocol 2,1\n")), "SSH Protocol Version").Verdict)
	assert.Equal(t, types.VerdictPass, verdictOf(t, evaluate(t, testEnv(t, "Protocol 2\n")), "SSH Protocol Version").Verdict)
	assert.Equal(t, types.VerdictPass, verdictOf(t, evaluate(t, testEnv(t, "Port 22\n")), "SSH Protocol Version").Verdict)
}

func TestCatalog_LoginGraceTimeAndUserAccess(t *testing.T) {
	rs := evaluate(t, testEnv(t, "LoginGraceTime 2m\nDenyUsers guest\n"))
	lg := verdictOf(t, rs, "Login Grace Time")
	assert.Equal(t, types.VerdictPass, lg.Verdict)
	assert.Equal(t, "LoginGraceTime is set to 2m", lg.Details)
	assert.Equal(t, types.VerdictPass, verdictOf(t, rs, "User Access Control").Verdict)

	rs = evaluate(t, testEnv(t, "Port 22\n"))
	assert.Equal(t, "LoginGraceTime uses default value", verdictOf(t, rs, "Login Grace Time").Details)
	ua := verdictOf(t, rs, "User Access Control")
	assert.Equal(t, types.VerdictWarning, ua.Verdict)
	assert.False(t, ua.Fixable)
}

func TestCatalog_ServiceStatus(t *testing.T) {
	env := testEnv(t, hardenedConfig)
	env.Services = fakeServices{active: map[string]bool{"ssh": true}}
	r := verdictOf(t, evaluate(t, env), "SSH Service Status")
	assert.Equal(t, types.VerdictPass, r.Verdict)
	assert.Equal(t, "SSH service is active (ssh)", r.Details)

	env.Services = fakeServices{active: map[string]bool{}}
	r = verdictOf(t, evaluate(t, env), "SSH Service Status")
	assert.Equal(t, types.VerdictFail, r.Verdict)
	assert.Equal(t, "SSH service is not running", r.Details)

	env.Services = fakeServices{err: types.ErrCollaboratorUnavailable}
	r = verdictOf(t, evaluate(t, env), "SSH Service Status")
	assert.Equal(t, types.VerdictFail, r.Verdict, "a failed probe counts as not running")
}

func TestCatalog_ConfigPermissions(t *testing.T) {
	env := testEnv(t, hardenedConfig)
	env.Perms = fakePerms{modes: map[string]fs.FileMode{DefaultConfigPath: 0o666}}
	r := verdictOf(t, evaluate(t, env), "Config File Permissions")
	assert.Equal(t, types.VerdictFail, r.Verdict)
	assert.Equal(t, "File permissions: 666", r.Details)
	assert.Equal(t, "Run: sudo chmod 644 /etc/ssh/sshd_config", r.Remediation)

	env.Perms = fakePerms{modes: map[string]fs.FileMode{DefaultConfigPath: 0o600}}
	r = verdictOf(t, evaluate(t, env), "Config File Permissions")
	assert.Equal(t, types.VerdictPass, r.Verdict)
	assert.Equal(t, "File permissions: 600", r.Details)

	env.Perms = fakePerms{err: types.ErrCollaboratorUnavailable}
	r = verdictOf(t, evaluate(t, env), "Config File Permissions")
	assert.Equal(t, types.VerdictWarning, r.Verdict)
	assert.Equal(t, "Manually verify config file permissions", r.Remediation)
}

func TestCatalog_HostKeyPermissions(t *testing.T) {
	env := testEnv(t, hardenedConfig)
	env.Perms = fakePerms{modes: map[string]fs.FileMode{
		DefaultConfigPath:               0o644,
		"/etc/ssh/ssh_host_rsa_key":     0o640,
		"/etc/ssh/ssh_host_ed25519_key": 0o604,
	}}
	r := verdictOf(t, evaluate(t, env), "Private Key Permissions")
	assert.Equal(t, types.VerdictFail, r.Verdict)
	assert.Equal(t, "Insecure keys: ssh_host_rsa_key, ssh_host_ed25519_key", r.Details)

	// Missing keys are skipped.
	env.Perms = fakePerms{modes: map[string]fs.FileMode{DefaultConfigPath: 0o644}}
	r = verdictOf(t, evaluate(t, env), "Private Key Permissions")
	assert.Equal(t, types.VerdictPass, r.Verdict)

	env.Perms = fakePerms{err: types.ErrCollaboratorUnavailable}
	r = verdictOf(t, evaluate(t, env), "Private Key Permissions")
	assert.Equal(t, types.VerdictWarning, r.Verdict)
}

func TestLookup(t *testing.T) {
	rules := Catalog()
	r, ok := Lookup(rules, "password_auth")
	require.True(t, ok)
	assert.Equal(t, "Password Authentication", r.Name)

	r, ok = Lookup(rules, "x11 forwarding")
	require.True(t, ok)
	assert.Equal(t, "x11_forwarding", r.ID)

	_, ok = Lookup(rules, "nope")
	assert.False(t, ok)
}

func TestWithFixValues(t *testing.T) {
	rules, err := WithFixValues(Catalog(), map[string]string{
		"max_auth_tries":        "3",
		"client_alive_interval": "120",
	})
	require.NoError(t, err)

	r, _ := Lookup(rules, "max_auth_tries")
	assert.Equal(t, "3", r.Fix.Value)
	assert.Equal(t, "Set 'MaxAuthTries 3' in sshd_config", r.Remediation)

	r, _ = Lookup(rules, "client_alive_interval")
	assert.Equal(t, "120", r.Fix.Value)

	// The original catalog is untouched.
	orig, _ := Lookup(Catalog(), "max_auth_tries")
	assert.Equal(t, "4", orig.Fix.Value)
}

func TestWithFixValues_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		override map[string]string
		want     string
	}{
		{"out of range", map[string]string{"max_auth_tries": "10"}, "would not pass"},
		{"zero interval", map[string]string{"client_alive_interval": "0"}, "would not pass"},
		{"unknown rule", map[string]string{"no_such_rule": "1"}, "unknown rule"},
		{"not fixable", map[string]string{"service_status": "on"}, "no directive fix"},
		{"bad token", map[string]string{"login_grace_time": "1 m"}, "single token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WithFixValues(Catalog(), tt.override)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
