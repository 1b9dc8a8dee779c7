package logging

// Config selects the logger backend.
type Config struct {
	// Format is "text" (stderr diagnostics) or "jsonl" (audit trail).
	Format string

	// Level is the minimum level written: debug, info, warn or error.
	Level string

	// Output is "stderr" or a file path opened for append.
	Output string
}

// DefaultConfig logs warnings and errors to stderr as text.
func DefaultConfig() Config {
	return Config{
		Format: FormatText,
		Level:  LevelWarn,
		Output: "stderr",
	}
}

// Formats.
const (
	FormatText  = "text"
	FormatJSONL = "jsonl"
)

// Levels.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

func levelPriority(level string) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

// ValidLevel reports whether level is one of the known levels.
func ValidLevel(level string) bool {
	switch level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}
