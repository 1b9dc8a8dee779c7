package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestJSONLLogger_Event(t *testing.T) {
	var buf bytes.Buffer
	logger := &jsonlLogger{writer: &buf, minLevel: levelPriority(LevelError)}

	ctx := WithRunID(context.Background())
	logger.Event(ctx, "remediation.committed", map[string]any{"backup": "/etc/ssh/sshd_config.backup_20260314_092653"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "sshcheck.remediation.committed", entry["event"])
	assert.Equal(t, RunID(ctx), entry["run_id"])
	assert.Equal(t, SchemaVersion, entry["schema_version"])
	assert.NotEmpty(t, entry["ts"])
	fields, ok := entry["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields["backup"], "backup_")
}

func TestJSONLLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := &jsonlLogger{writer: &buf, minLevel: levelPriority(LevelWarn)}

	logger.Debug("engine", "skipped")
	logger.Info("engine", "skipped")
	logger.Warn("engine", "kept", "rule", "service_status")
	logger.Error("engine", "kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, LevelWarn, first["level"])
	assert.Equal(t, "engine", first["component"])
	assert.Equal(t, map[string]any{"rule": "service_status"}, first["fields"])
}

func TestTextLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := &textLogger{writer: &buf, minLevel: levelPriority(LevelDebug)}

	logger.Warn("probe", "systemctl unavailable", "service", "sshd", "attempt", 1)
	logger.Error("remediate", "write failed")

	out := buf.String()
	assert.Contains(t, out, "  ⚠ [probe] systemctl unavailable attempt=1 service=sshd\n")
	assert.Contains(t, out, "  ✗ [remediate] write failed\n")
}

func TestTextLogger_EventOnlyAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := &textLogger{writer: &buf, minLevel: levelPriority(LevelInfo)}
	logger.Event(context.Background(), "scan.completed", nil)
	assert.Empty(t, buf.String())

	logger.minLevel = levelPriority(LevelDebug)
	logger.Event(context.Background(), "scan.completed", map[string]any{"failed": 2})
	assert.Equal(t, "  ▸ [audit] sshcheck.scan.completed failed=2\n", buf.String())
}

func TestFrom_DefaultsToNoop(t *testing.T) {
	l := From(context.Background())
	require.NotNil(t, l)
	l.Info("x", "y")
	assert.NoError(t, l.Close())
}

func TestWithLogger_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := &textLogger{writer: &buf, minLevel: 0}
	ctx := WithLogger(context.Background(), l)
	From(ctx).Info("cli", "hello")
	assert.Contains(t, buf.String(), "[cli] hello")
}

func TestRunID(t *testing.T) {
	assert.Empty(t, RunID(context.Background()))
	a := RunID(WithRunID(context.Background()))
	b := RunID(WithRunID(context.Background()))
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestTee(t *testing.T) {
	var a, b bytes.Buffer
	l := Tee(&textLogger{writer: &a}, &jsonlLogger{writer: &b})
	l.Error("cli", "boom")
	l.Event(context.Background(), "scan.started", nil)
	assert.Contains(t, a.String(), "boom")
	assert.Equal(t, 2, strings.Count(b.String(), "\n"))
	assert.NoError(t, l.Close())
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := NewLogger(Config{Format: FormatJSONL, Level: LevelInfo, Output: path})
	require.NoError(t, err)

	l.Info("cli", "started")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"started"`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestNewLogger_BadPath(t *testing.T) {
	_, err := NewLogger(Config{Format: FormatJSONL, Output: filepath.Join(t.TempDir(), "missing", "x.jsonl")})
	assert.Error(t, err)
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		assert.True(t, ValidLevel(l))
	}
	assert.False(t, ValidLevel("trace"))
}
