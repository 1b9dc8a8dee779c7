// Package config reads and validates the optional YAML settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ancients-collective/sshcheck/internal/directive"
	"github.com/ancients-collective/sshcheck/internal/engine"
	"github.com/ancients-collective/sshcheck/internal/logging"
)

var (
	// idPattern matches rule IDs: lower-case snake_case.
	idPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

	// modePattern matches an octal permission string such as 600 or 0640.
	modePattern = regexp.MustCompile(`^0?[0-7]{3}$`)
)

// Defaults applied before a settings file is decoded.
const (
	DefaultReportMode = "0600"
	DefaultDebounce   = 300 * time.Millisecond
)

// Settings is the on-disk settings file. Every field is optional; command
// line flags override whatever is set here.
type Settings struct {
	ConfigPath   string            `yaml:"config_path" validate:"omitempty,abs_path"`
	ReportPath   string            `yaml:"report_path" validate:"omitempty,abs_path"`
	ReportMode   string            `yaml:"report_mode" validate:"omitempty,octal_mode"`
	HistoryDB    string            `yaml:"history_db" validate:"omitempty,abs_path"`
	HostKeys     []string          `yaml:"host_keys" validate:"omitempty,max=32,dive,abs_path"`
	ServiceNames []string          `yaml:"service_names" validate:"omitempty,max=8,dive,required,max=64"`
	FixValues    map[string]string `yaml:"fix_values" validate:"omitempty,dive,keys,sshcheck_id,endkeys,required,max=64"`
	Log          LogSettings       `yaml:"log"`
	Watch        WatchSettings     `yaml:"watch"`
}

// LogSettings configures the diagnostic and audit logger.
type LogSettings struct {
	File   string `yaml:"file" validate:"omitempty,abs_path"`
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text jsonl"`
}

// WatchSettings configures --watch.
type WatchSettings struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the settings used when no file is given.
func Default() Settings {
	return Settings{
		ConfigPath:   engine.DefaultConfigPath,
		ReportMode:   DefaultReportMode,
		HostKeys:     append([]string(nil), engine.DefaultHostKeys...),
		ServiceNames: append([]string(nil), engine.DefaultServiceNames...),
		Log: LogSettings{
			Level:  logging.LevelWarn,
			Format: logging.FormatText,
		},
		Watch: WatchSettings{Debounce: DefaultDebounce},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report YAML key names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("sshcheck_id", func(fl validator.FieldLevel) bool {
		return idPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("abs_path", func(fl validator.FieldLevel) bool {
		p := fl.Field().String()
		if strings.ContainsRune(p, 0) {
			return false
		}
		_, err := directive.ValidatePath(p)
		return err == nil
	})
	_ = v.RegisterValidation("octal_mode", func(fl validator.FieldLevel) bool {
		return modePattern.MatchString(fl.Field().String())
	})

	return v
}

// Load reads a settings file, layering it over Default. Unknown keys are
// rejected so a misspelt setting is not silently ignored.
func Load(path string) (Settings, error) {
	data, err := directive.ReadFileLimited(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings %q: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates settings YAML.
func Parse(data []byte) (Settings, error) {
	s := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate runs schema validation (struct tags) and the cross-field rules.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return formatValidationErrors(err)
	}

	if mode, err := ParseMode(s.ReportMode); err == nil && mode&0o022 != 0 {
		return fmt.Errorf("report_mode %s must not be group or world writable", s.ReportMode)
	}
	if d := s.Watch.Debounce; d != 0 && (d < 10*time.Millisecond || d > time.Minute) {
		return fmt.Errorf("watch.debounce %s must be between 10ms and 1m", d)
	}
	if len(s.FixValues) > 0 {
		if _, err := s.Rules(); err != nil {
			return fmt.Errorf("fix_values: %w", err)
		}
	}
	return nil
}

// Rules returns the rule catalog with the configured fix values applied.
func (s Settings) Rules() ([]engine.Rule, error) {
	return engine.WithFixValues(engine.Catalog(), s.FixValues)
}

// LogConfig converts the log settings into a logger config.
func (s Settings) LogConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if s.Log.Level != "" {
		cfg.Level = s.Log.Level
	}
	if s.Log.Format != "" {
		cfg.Format = s.Log.Format
	}
	if s.Log.File != "" {
		cfg.Output = s.Log.File
	}
	return cfg
}

// ReportFileMode returns the permission bits for the report file.
func (s Settings) ReportFileMode() fs.FileMode {
	mode, err := ParseMode(s.ReportMode)
	if err != nil {
		return 0o600
	}
	return mode
}

// ParseMode parses an octal permission string such as "0640".
func ParseMode(s string) (fs.FileMode, error) {
	if !modePattern.MatchString(s) {
		return 0, fmt.Errorf("invalid octal mode %q", s)
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, err
	}
	return fs.FileMode(n), nil
}

// formatValidationErrors converts validator errors into user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	var messages []string
	for _, fe := range validationErrors {
		messages = append(messages, formatFieldError(fe))
	}

	return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
}

// formatFieldError converts a single field validation error to a human-readable message.
func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "abs_path":
		return fmt.Sprintf("%s must be an absolute path without '..'", field)
	case "octal_mode":
		return fmt.Sprintf("%s must be an octal mode such as 0600", field)
	case "sshcheck_id":
		return fmt.Sprintf("%s must be a rule ID (lower-case letters, digits and underscores)", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
