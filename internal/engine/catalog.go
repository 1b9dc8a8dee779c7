package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ancients-collective/sshcheck/internal/directive"
	"github.com/ancients-collective/sshcheck/internal/logging"
	"github.com/ancients-collective/sshcheck/internal/types"
)

// Rule categories.
const (
	CategoryAuthentication = "authentication"
	CategoryProtocol       = "protocol"
	CategoryAccessControl  = "access-control"
	CategoryNetwork        = "network"
	CategorySession        = "session"
	CategorySystem         = "system"
)

// Defaults for the collaborators the system rules inspect.
const DefaultConfigPath = "/etc/ssh/sshd_config"

var (
	// DefaultHostKeys are the private host keys checked for permissions.
	DefaultHostKeys = []string{"/etc/ssh/ssh_host_rsa_key", "/etc/ssh/ssh_host_ed25519_key"}

	// DefaultServiceNames are the unit names the SSH daemon runs under.
	DefaultServiceNames = []string{"ssh", "sshd"}
)

// Fix is the single directive that makes a rule pass.
type Fix struct {
	Key   string
	Value string
}

// Finding is what a check observed.
type Finding struct {
	Verdict types.Verdict
	Details string

	// Remediation replaces the rule's remediation text when set.
	Remediation string
}

// CheckFunc evaluates one rule. A returned error is recorded as a warning.
type CheckFunc func(ctx context.Context, env *Env) (Finding, error)

// Rule is one entry of the catalog.
type Rule struct {
	// ID is the stable snake_case identifier.
	ID string

	// Name is shown to users and keys remediation.
	Name string

	Category    string
	Description string
	Remediation string

	// Fix is non-nil exactly when the rule can be corrected by writing one directive.
	Fix *Fix

	Check CheckFunc
}

// Fixable reports whether the rule has a directive fix.
func (r Rule) Fixable() bool {
	return r.Fix != nil
}

// Env is everything a check may inspect.
type Env struct {
	Store        *directive.Store
	ConfigPath   string
	HostKeys     []string
	ServiceNames []string
	Services     ServiceProber
	Perms        PermissionProber
}

// Catalog returns the rules in evaluation order. Each call returns a fresh slice.
func Catalog() []Rule {
	return []Rule{
		{
			ID:          "root_login",
			Name:        "Root Login Configuration",
			Category:    CategoryAuthentication,
			Description: "Root should not be allowed to login directly via SSH",
			Remediation: "Set 'PermitRootLogin no' in sshd_config",
			Fix:         &Fix{"PermitRootLogin", "no"},
			Check:       checkRootLogin,
		},
		equalsRule(equalsSpec{
			id: "password_auth", name: "Password Authentication", category: CategoryAuthentication,
			description: "Password authentication should be disabled in favor of key-based auth",
			key:         "PasswordAuthentication", want: "no", otherwise: types.VerdictFail,
			pass: "PasswordAuthentication is disabled", fail: "Password authentication is enabled",
			remediation: "Set 'PasswordAuthentication no' in sshd_config and use SSH keys instead",
		}),
		equalsRule(equalsSpec{
			id: "empty_passwords", name: "Empty Passwords", category: CategoryAuthentication,
			description: "Empty passwords should never be allowed",
			key:         "PermitEmptyPasswords", want: "no", otherwise: types.VerdictFail,
			pass: "Empty passwords are prohibited", fail: "Empty passwords may be allowed",
			remediation: "Set 'PermitEmptyPasswords no' in sshd_config",
		}),
		equalsRule(equalsSpec{
			id: "pubkey_auth", name: "Public Key Authentication", category: CategoryAuthentication,
			description: "SSH key-based authentication should be enabled",
			key:         "PubkeyAuthentication", want: "yes", otherwise: types.VerdictWarning,
			pass: "Public key authentication is enabled", fail: "Public key authentication may not be enabled",
			remediation: "Set 'PubkeyAuthentication yes' in sshd_config",
		}),
		// Fails rather than warns, unlike the other "may be enabled" rules.
		equalsRule(equalsSpec{
			id: "hostbased_auth", name: "Host-Based Authentication", category: CategoryAuthentication,
			description: "Host-based authentication should be disabled",
			key:         "HostbasedAuthentication", want: "no", otherwise: types.VerdictFail,
			pass: "Host-based authentication is disabled", fail: "Host-based authentication may be enabled",
			remediation: "Set 'HostbasedAuthentication no' in sshd_config",
		}),
		{
			ID:          "challenge_response",
			Name:        "Challenge-Response Authentication",
			Category:    CategoryAuthentication,
			Description: "Challenge-response authentication should be disabled",
			Remediation: "Set 'ChallengeResponseAuthentication no' in sshd_config",
			Fix:         &Fix{"ChallengeResponseAuthentication", "no"},
			Check:       checkChallengeResponse,
		},
		equalsRule(equalsSpec{
			id: "use_pam", name: "PAM Authentication", category: CategoryAuthentication,
			description: "PAM should be enabled for additional security layers",
			key:         "UsePAM", want: "yes", otherwise: types.VerdictWarning,
			pass: "PAM is enabled", fail: "PAM may not be enabled",
			remediation: "Set 'UsePAM yes' in sshd_config for additional security",
		}),
		intRangeRule(intRangeSpec{
			id: "max_auth_tries", name: "Maximum Authentication Attempts", category: CategoryAuthentication,
			description: "Limit authentication attempts to prevent brute force attacks",
			key:         "MaxAuthTries", min: 1, max: 4, fix: "4",
			pass: "MaxAuthTries is set to %d", bad: "MaxAuthTries is set to %s", absent: "MaxAuthTries is not configured",
			remediation: "Set 'MaxAuthTries 4' in sshd_config",
		}),
		{
			ID:          "protocol_version",
			Name:        "SSH Protocol Version",
			Category:    CategoryProtocol,
			Description: "Only SSH Protocol 2 should be used (Protocol 1 is deprecated)",
			Remediation: "Ensure 'Protocol 2' is set or the line is commented out (default is 2)",
			Check:       checkProtocol,
		},
		{
			ID:          "login_grace_time",
			Name:        "Login Grace Time",
			Category:    CategoryAccessControl,
			Description: "Time limit for authentication should be set",
			Remediation: "Set 'LoginGraceTime 60' in sshd_config (60 seconds)",
			Fix:         &Fix{"LoginGraceTime", "60"},
			Check:       checkLoginGraceTime,
		},
		equalsRule(equalsSpec{
			id: "strict_modes", name: "Strict Modes", category: CategoryAccessControl,
			description: "SSH should check file permissions before accepting login",
			key:         "StrictModes", want: "yes", otherwise: types.VerdictWarning,
			pass: "StrictModes is enabled", fail: "StrictModes may not be enabled",
			remediation: "Set 'StrictModes yes' in sshd_config",
		}),
		{
			ID:          "user_access",
			Name:        "User Access Control",
			Category:    CategoryAccessControl,
			Description: "Explicitly define which users/groups can access SSH",
			Remediation: "Consider setting 'AllowUsers' or 'AllowGroups' in sshd_config",
			Check:       checkUserAccess,
		},
		equalsRule(equalsSpec{
			id: "user_environment", name: "User Environment", category: CategoryAccessControl,
			description: "User environment variables should not be accepted",
			key:         "PermitUserEnvironment", want: "no", otherwise: types.VerdictWarning,
			pass: "PermitUserEnvironment is disabled", fail: "User environment may be permitted",
			remediation: "Set 'PermitUserEnvironment no' in sshd_config",
		}),
		equalsRule(equalsSpec{
			id: "ignore_rhosts", name: "Ignore Rhosts", category: CategoryAccessControl,
			description: ".rhosts and .shosts files should be ignored",
			key:         "IgnoreRhosts", want: "yes", otherwise: types.VerdictWarning,
			pass: "Rhosts files are ignored", fail: "Rhosts files may be used",
			remediation: "Set 'IgnoreRhosts yes' in sshd_config",
		}),
		equalsRule(equalsSpec{
			id: "x11_forwarding", name: "X11 Forwarding", category: CategoryNetwork,
			description: "X11 forwarding should be disabled unless explicitly needed",
			key:         "X11Forwarding", want: "no", otherwise: types.VerdictWarning,
			pass: "X11Forwarding is disabled", fail: "X11Forwarding may be enabled",
			remediation: "Set 'X11Forwarding no' in sshd_config unless X11 is required",
		}),
		equalsRule(equalsSpec{
			id: "tcp_forwarding", name: "TCP Forwarding", category: CategoryNetwork,
			description: "TCP forwarding should be disabled if not needed",
			key:         "AllowTcpForwarding", want: "no", otherwise: types.VerdictWarning,
			pass: "TCP forwarding is disabled", fail: "TCP forwarding may be enabled",
			remediation: "Set 'AllowTcpForwarding no' in sshd_config if not required",
		}),
		equalsRule(equalsSpec{
			id: "agent_forwarding", name: "Agent Forwarding", category: CategoryNetwork,
			description: "SSH agent forwarding should be disabled if not needed",
			key:         "AllowAgentForwarding", want: "no", otherwise: types.VerdictWarning,
			pass: "Agent forwarding is disabled", fail: "Agent forwarding may be enabled",
			remediation: "Set 'AllowAgentForwarding no' in sshd_config if not required",
		}),
		equalsRule(equalsSpec{
			id: "permit_tunnel", name: "Permit Tunnel", category: CategoryNetwork,
			description: "Tunneling should be disabled if not needed",
			key:         "PermitTunnel", want: "no", otherwise: types.VerdictWarning,
			pass: "Tunneling is disabled", fail: "Tunneling may be enabled",
			remediation: "Set 'PermitTunnel no' in sshd_config if not required",
		}),
		intRangeRule(intRangeSpec{
			id: "client_alive_interval", name: "Client Alive Interval", category: CategorySession,
			description: "Idle timeout should be configured",
			key:         "ClientAliveInterval", min: 1, max: 300, fix: "300",
			pass: "ClientAliveInterval is set to %d seconds", bad: "ClientAliveInterval is %s", absent: "ClientAliveInterval not configured",
			remediation: "Set 'ClientAliveInterval 300' in sshd_config (5 minutes)",
		}),
		intRangeRule(intRangeSpec{
			id: "client_alive_count_max", name: "Client Alive Count Max", category: CategorySession,
			description: "Maximum client alive messages before disconnect",
			key:         "ClientAliveCountMax", min: 0, max: 3, fix: "2",
			pass: "ClientAliveCountMax is set to %d", bad: "ClientAliveCountMax is %s", absent: "ClientAliveCountMax not configured",
			remediation: "Set 'ClientAliveCountMax 2' in sshd_config",
		}),
		{
			ID:          "service_status",
			Name:        "SSH Service Status",
			Category:    CategorySystem,
			Description: "SSH service should be running",
			Remediation: "Start SSH service: sudo systemctl start ssh",
			Check:       checkServiceStatus,
		},
		{
			ID:          "config_permissions",
			Name:        "Config File Permissions",
			Category:    CategorySystem,
			Description: "SSH config file should not be world-writable",
			Remediation: "Run: sudo chmod 644 /etc/ssh/sshd_config",
			Check:       checkConfigPermissions,
		},
		{
			ID:          "host_key_permissions",
			Name:        "Private Key Permissions",
			Category:    CategorySystem,
			Description: "SSH private keys should be readable by root only",
			Remediation: "Run: sudo chmod 600 /etc/ssh/ssh_host_*_key",
			Check:       checkHostKeyPermissions,
		},
	}
}

type equalsSpec struct {
	id, name, category, description string
	key, want                       string
	otherwise                       types.Verdict
	pass, fail                      string
	remediation                     string
}

// equalsRule builds a rule that passes when the first assignment of key is want.
func equalsRule(s equalsSpec) Rule {
	return Rule{
		ID:          s.id,
		Name:        s.name,
		Category:    s.category,
		Description: s.description,
		Remediation: s.remediation,
		Fix:         &Fix{s.key, s.want},
		Check: func(_ context.Context, env *Env) (Finding, error) {
			if env.Store.Equals(s.key, s.want) {
				return Finding{Verdict: types.VerdictPass, Details: s.pass}, nil
			}
			return Finding{Verdict: s.otherwise, Details: s.fail}, nil
		},
	}
}

type intRangeSpec struct {
	id, name, category, description string
	key                             string
	min, max                        int
	fix                             string
	pass, bad, absent               string
	remediation                     string
}

// intRangeRule builds a rule that passes when key holds an integer in
// [min, max]. Anything else, including an absent or non-numeric value, warns.
func intRangeRule(s intRangeSpec) Rule {
	return Rule{
		ID:          s.id,
		Name:        s.name,
		Category:    s.category,
		Description: s.description,
		Remediation: s.remediation,
		Fix:         &Fix{s.key, s.fix},
		Check: func(_ context.Context, env *Env) (Finding, error) {
			raw, ok := env.Store.Value(s.key)
			if !ok {
				return Finding{Verdict: types.VerdictWarning, Details: s.absent}, nil
			}
			n, err := strconv.Atoi(raw)
			if err != nil || n < s.min || n > s.max {
				return Finding{Verdict: types.VerdictWarning, Details: fmt.Sprintf(s.bad, raw)}, nil
			}
			return Finding{Verdict: types.VerdictPass, Details: fmt.Sprintf(s.pass, n)}, nil
		},
	}
}

func checkRootLogin(_ context.Context, env *Env) (Finding, error) {
	switch {
	case env.Store.Equals("PermitRootLogin", "no"):
		return Finding{Verdict: types.VerdictPass, Details: "PermitRootLogin is set to 'no'"}, nil
	case env.Store.Equals("PermitRootLogin", "prohibit-password"):
		return Finding{Verdict: types.VerdictWarning, Details: "PermitRootLogin is set to 'prohibit-password'"}, nil
	default:
		return Finding{Verdict: types.VerdictFail, Details: "PermitRootLogin is not properly configured"}, nil
	}
}

func checkChallengeResponse(_ context.Context, env *Env) (Finding, error) {
	if env.Store.Equals("ChallengeResponseAuthentication", "no") || env.Store.Equals("KbdInteractiveAuthentication", "no") {
		return Finding{Verdict: types.VerdictPass, Details: "Challenge-response auth is disabled"}, nil
	}
	return Finding{Verdict: types.VerdictWarning, Details: "Challenge-response auth may be enabled"}, nil
}

func checkProtocol(_ context.Context, env *Env) (Finding, error) {
	if env.Store.MatchesPattern(directive.ProtocolV1Pattern) {
		return Finding{Verdict: types.VerdictFail, Details: "Protocol 1 is enabled (insecure)"}, nil
	}
	return Finding{Verdict: types.VerdictPass, Details: "Protocol 2 is being used"}, nil
}

func checkLoginGraceTime(_ context.Context, env *Env) (Finding, error) {
	if v, ok := env.Store.Value("LoginGraceTime"); ok {
		return Finding{Verdict: types.VerdictPass, Details: "LoginGraceTime is set to " + v}, nil
	}
	return Finding{Verdict: types.VerdictWarning, Details: "LoginGraceTime uses default value"}, nil
}

func checkUserAccess(_ context.Context, env *Env) (Finding, error) {
	for _, key := range []string{"AllowUsers", "AllowGroups", "DenyUsers", "DenyGroups"} {
		if env.Store.Exists(key) {
			return Finding{Verdict: types.VerdictPass, Details: "User access restrictions are configured"}, nil
		}
	}
	return Finding{Verdict: types.VerdictWarning, Details: "No user access restrictions configured"}, nil
}

// checkServiceStatus passes when any of the configured unit names is active.
// Probe failures count as not running.
func checkServiceStatus(ctx context.Context, env *Env) (Finding, error) {
	if env.Services == nil {
		return Finding{}, fmt.Errorf("%w: no service prober", types.ErrCollaboratorUnavailable)
	}
	log := logging.From(ctx)
	for _, name := range env.ServiceNames {
		active, err := env.Services.IsActive(ctx, name)
		if err != nil {
			log.Debug("probe", "service probe failed", "service", name, "error", err.Error())
			continue
		}
		if active {
			return Finding{Verdict: types.VerdictPass, Details: fmt.Sprintf("SSH service is active (%s)", name)}, nil
		}
	}
	return Finding{Verdict: types.VerdictFail, Details: "SSH service is not running"}, nil
}

func checkConfigPermissions(_ context.Context, env *Env) (Finding, error) {
	if env.Perms == nil {
		return Finding{}, fmt.Errorf("%w: no permission prober", types.ErrCollaboratorUnavailable)
	}
	mode, err := env.Perms.Mode(env.ConfigPath)
	if err != nil {
		return Finding{
			Verdict:     types.VerdictWarning,
			Details:     "Could not verify file permissions: " + err.Error(),
			Remediation: "Manually verify config file permissions",
		}, nil
	}
	f := Finding{Verdict: types.VerdictPass, Details: fmt.Sprintf("File permissions: %o", mode.Perm())}
	if worldWritable(mode) {
		f.Verdict = types.VerdictFail
		f.Remediation = "Run: sudo chmod 644 " + env.ConfigPath
	}
	return f, nil
}

// checkHostKeyPermissions skips keys that do not exist.
func checkHostKeyPermissions(_ context.Context, env *Env) (Finding, error) {
	if env.Perms == nil {
		return Finding{}, fmt.Errorf("%w: no permission prober", types.ErrCollaboratorUnavailable)
	}
	var insecure []string
	for _, key := range env.HostKeys {
		mode, err := env.Perms.Mode(key)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Finding{
				Verdict:     types.VerdictWarning,
				Details:     "Could not verify private key permissions: " + err.Error(),
				Remediation: "Manually verify: ls -la /etc/ssh/ssh_host_*_key",
			}, nil
		}
		if groupOrOtherAccess(mode) {
			insecure = append(insecure, filepath.Base(key))
		}
	}
	if len(insecure) > 0 {
		return Finding{Verdict: types.VerdictFail, Details: "Insecure keys: " + strings.Join(insecure, ", ")}, nil
	}
	return Finding{Verdict: types.VerdictPass, Details: "Private key permissions are secure"}, nil
}

// Lookup finds a rule by ID or name, ignoring case.
func Lookup(rules []Rule, idOrName string) (Rule, bool) {
	for _, r := range rules {
		if strings.EqualFold(r.ID, idOrName) || strings.EqualFold(r.Name, idOrName) {
			return r, true
		}
	}
	return Rule{}, false
}

// IDs returns the rule IDs in catalog order.
func IDs(rules []Rule) []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

// FixTable maps rule name to the directive that fixes it, for fixable rules only.
func FixTable(rules []Rule) map[string]types.PatchRequest {
	table := make(map[string]types.PatchRequest)
	for _, r := range rules {
		if r.Fix != nil {
			table[r.Name] = types.PatchRequest{Key: r.Fix.Key, Value: r.Fix.Value}
		}
	}
	return table
}

// WithFixValues returns a copy of rules with fix values replaced, keyed by
// rule ID. Each replacement must itself satisfy its rule.
func WithFixValues(rules []Rule, overrides map[string]string) ([]Rule, error) {
	out := make([]Rule, len(rules))
	copy(out, rules)

	for id, value := range overrides {
		idx := -1
		for i, r := range out {
			if r.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("unknown rule %q", id)
		}
		r := out[idx]
		if r.Fix == nil {
			return nil, fmt.Errorf("rule %q has no directive fix", id)
		}
		if err := directive.ValidateRequest(r.Fix.Key, value); err != nil {
			return nil, fmt.Errorf("rule %q: %w", id, err)
		}

		store, err := directive.New(r.Fix.Key + " " + value + "\n")
		if err != nil {
			return nil, err
		}
		f, err := r.Check(context.Background(), &Env{Store: store})
		if err != nil || f.Verdict != types.VerdictPass {
			return nil, fmt.Errorf("fix value %q for %s would not pass %s", value, r.Fix.Key, id)
		}

		old := fmt.Sprintf("'%s %s'", r.Fix.Key, r.Fix.Value)
		r.Remediation = strings.Replace(r.Remediation, old, fmt.Sprintf("'%s %s'", r.Fix.Key, value), 1)
		r.Fix = &Fix{Key: r.Fix.Key, Value: value}
		out[idx] = r
	}

	return out, nil
}
