package logging

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	faint  = color.New(color.Faint).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// textLogger writes indented single-line diagnostics in the CLI's own
// stderr style, e.g. "  ⚠ [probe] systemctl not found".
type textLogger struct {
	writer   io.Writer
	closer   io.Closer
	minLevel int
	mu       sync.Mutex
}

func (t *textLogger) log(level, icon, component, msg string, fields ...any) {
	if levelPriority(level) < t.minLevel {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %s [%s] %s", icon, component, msg)
	writeFields(&b, fieldMap(fields))
	b.WriteByte('\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.writer, b.String())
}

func (t *textLogger) Debug(component, msg string, fields ...any) {
	t.log(LevelDebug, faint("▸"), component, msg, fields...)
}

func (t *textLogger) Info(component, msg string, fields ...any) {
	t.log(LevelInfo, cyan("▸"), component, msg, fields...)
}

func (t *textLogger) Warn(component, msg string, fields ...any) {
	t.log(LevelWarn, yellow("⚠"), component, msg, fields...)
}

func (t *textLogger) Error(component, msg string, fields ...any) {
	t.log(LevelError, red("✗"), component, msg, fields...)
}

// Event is written at debug level; audit events belong in the JSONL log.
func (t *textLogger) Event(ctx context.Context, event string, fields map[string]any) {
	if levelPriority(LevelDebug) < t.minLevel {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  %s [audit] %s%s", faint("▸"), eventPrefix, event)
	writeFields(&b, fields)
	b.WriteByte('\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.writer, b.String())
}

func (t *textLogger) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// writeFields appends " k=v" pairs in key order.
func writeFields(b *strings.Builder, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, fields[k])
	}
}
