package directive

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/sshcheck/internal/types"
)

const sampleConfig = `# This is the sshd server system-wide configuration file.
Port 22
#PermitRootLogin prohibit-password
PermitRootLogin no
PasswordAuthentication no   # keys only
	MaxAuthTries 3
PubkeyAuthentication YES
UsePAM
X11Forwarding no extra
AllowUsers alice bob
ClientAliveInterval 300#inline
`

func mustStore(t *testing.T, text string) *Store {
	t.Helper()
	s, err := New(text)
	require.NoError(t, err)
	return s
}

func TestNew_RejectsBlankText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t\n"} {
		_, err := New(text)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrSourceUnavailable)
	}
}

func TestStore_Value(t *testing.T) {
	s := mustStore(t, sampleConfig)

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"PermitRootLogin", "no", true},
		{"permitrootlogin", "no", true},
		{"PasswordAuthentication", "no", true},
		{"MaxAuthTries", "3", true},
		{"PubkeyAuthentication", "YES", true},
		{"ClientAliveInterval", "300", true},
		{"AllowUsers", "alice", true},
		{"UsePAM", "", false},
		{"LoginGraceTime", "", false},
		{"Port", "22", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := s.Value(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_ValueIgnoresCommentedLines(t *testing.T) {
	s := mustStore(t, "#PermitRootLogin yes\n  # PasswordAuthentication yes\n")
	_, ok := s.Value("PermitRootLogin")
	assert.False(t, ok)
	assert.False(t, s.Exists("PasswordAuthentication"))
}

func TestStore_ValueDoesNotMatchKeyPrefix(t *testing.T) {
	s := mustStore(t, "PermitRootLoginExtra yes\n")
	_, ok := s.Value("PermitRootLogin")
	assert.False(t, ok)
}

func TestStore_ValueDoesNotSpanLines(t *testing.T) {
	s := mustStore(t, "MaxAuthTries\n3\n")
	_, ok := s.Value("MaxAuthTries")
	assert.False(t, ok)
}

func TestStore_FirstMatchWins(t *testing.T) {
	s := mustStore(t, "PasswordAuthentication yes\nPasswordAuthentication no\n")

	v, ok := s.Value("PasswordAuthentication")
	require.True(t, ok)
	assert.Equal(t, "yes", v)
	assert.False(t, s.Equals("PasswordAuthentication", "no"))
	assert.True(t, s.Equals("PasswordAuthentication", "yes"))
}

func TestStore_Equals(t *testing.T) {
	s := mustStore(t, sampleConfig)

	tests := []struct {
		name     string
		key      string
		expected string
		want     bool
	}{
		{"exact", "PermitRootLogin", "no", true},
		{"trailing comment", "PasswordAuthentication", "no", true},
		{"case insensitive value", "PubkeyAuthentication", "yes", true},
		{"case insensitive key", "pubkeyauthentication", "yes", true},
		{"leading indentation", "MaxAuthTries", "3", true},
		{"comment without space", "ClientAliveInterval", "300", true},
		{"extra token", "X11Forwarding", "no", false},
		{"missing value", "UsePAM", "yes", false},
		{"absent key", "StrictModes", "yes", false},
		{"different value", "PermitRootLogin", "yes", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Equals(tt.key, tt.expected))
		})
	}
}

func TestStore_EqualsAgreesWithValue(t *testing.T) {
	texts := []string{
		"PermitRootLogin no\n",
		"PermitRootLogin yes\nPermitRootLogin no\n",
		"#PermitRootLogin no\nPermitRootLogin prohibit-password # default\n",
		"PermitRootLogin NO\r\n",
		"PermitRootLogin no#trailing\n",
	}
	for _, text := range texts {
		s := mustStore(t, text)
		v, _ := s.Value("PermitRootLogin")
		assert.Equal(t, v == "no" || v == "NO", s.Equals("PermitRootLogin", "no"), "text %q", text)
	}
}

func TestStore_Exists(t *testing.T) {
	s := mustStore(t, sampleConfig)
	assert.True(t, s.Exists("AllowUsers"))
	assert.True(t, s.Exists("allowusers"))
	assert.False(t, s.Exists("AllowGroups"))
	assert.False(t, s.Exists("UsePAM"), "a keyword with no value is not an assignment")
}

func TestStore_MatchesPattern(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Protocol 1\n", true},
		{"Protocol 2,1\n", true},
		{"  protocol 1\n", true},
		{"Protocol 2\n", false},
		{"#Protocol 1\n", false},
		{"Protocol 2 # not 1\n", false},
		{"Port 22\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			s := mustStore(t, tt.text)
			assert.Equal(t, tt.want, s.MatchesPattern(ProtocolV1Pattern))
		})
	}

	s := mustStore(t, sampleConfig)
	assert.True(t, s.MatchesPattern(regexp.MustCompile(`(?m)^Port 22$`)))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshd_config")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleConfig, s.Text())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "nope")},
		{"empty", empty},
		{"directory", dir},
		{"relative", "sshd_config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrSourceUnavailable)
		})
	}
}

func TestLoad_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses file permissions")
	}
	path := filepath.Join(t.TempDir(), "sshd_config")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o000))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPermissionDenied)
}

func TestValidatePath(t *testing.T) {
	_, err := ValidatePath("")
	assert.Error(t, err)

	_, err = ValidatePath("etc/ssh/sshd_config")
	assert.ErrorContains(t, err, "absolute")

	got, err := ValidatePath("/etc/ssh/../ssh/sshd_config")
	require.NoError(t, err)
	assert.Equal(t, "/etc/ssh/sshd_config", got)
}
