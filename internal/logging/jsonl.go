package logging

import (
	"context"
	"encoding/json"
	"io"
	"runtime"
	"sync"
	"time"
)

// SchemaVersion is the version of the JSONL entry layout.
const SchemaVersion = "1.0"

// eventPrefix namespaces audit events.
const eventPrefix = "sshcheck."

type jsonlLogger struct {
	writer   io.Writer
	closer   io.Closer
	minLevel int
	mu       sync.Mutex
}

type logEntry struct {
	Timestamp     string         `json:"ts"`
	Level         string         `json:"level"`
	Event         string         `json:"event,omitempty"`
	Component     string         `json:"component"`
	RunID         string         `json:"run_id,omitempty"`
	SchemaVersion string         `json:"schema_version"`
	GoVersion     string         `json:"go_version,omitempty"`
	Message       string         `json:"msg,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
}

func (j *jsonlLogger) log(level, component, msg string, fields ...any) {
	if levelPriority(level) < j.minLevel {
		return
	}

	j.writeEntry(logEntry{
		Timestamp:     time.Now().Format(time.RFC3339Nano),
		Level:         level,
		Component:     component,
		SchemaVersion: SchemaVersion,
		GoVersion:     runtime.Version(),
		Message:       msg,
		Fields:        fieldMap(fields),
	})
}

// Event entries are always written regardless of level.
func (j *jsonlLogger) Event(ctx context.Context, event string, fields map[string]any) {
	j.writeEntry(logEntry{
		Timestamp:     time.Now().Format(time.RFC3339Nano),
		Level:         LevelInfo,
		Event:         eventPrefix + event,
		Component:     "audit",
		RunID:         RunID(ctx),
		SchemaVersion: SchemaVersion,
		GoVersion:     runtime.Version(),
		Fields:        fields,
	})
}

func (j *jsonlLogger) writeEntry(entry logEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	_, _ = j.writer.Write(data)
}

func (j *jsonlLogger) Debug(component, msg string, fields ...any) {
	j.log(LevelDebug, component, msg, fields...)
}

func (j *jsonlLogger) Info(component, msg string, fields ...any) {
	j.log(LevelInfo, component, msg, fields...)
}

func (j *jsonlLogger) Warn(component, msg string, fields ...any) {
	j.log(LevelWarn, component, msg, fields...)
}

func (j *jsonlLogger) Error(component, msg string, fields ...any) {
	j.log(LevelError, component, msg, fields...)
}

func (j *jsonlLogger) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
