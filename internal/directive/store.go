// Package directive reads and rewrites sshd_config text.
//
// The grammar is deliberately shallow: a directive is a line whose first
// token is the keyword. Include and Match scoping are not interpreted. When
// a keyword appears more than once, the first line top-down wins for both
// reads and patches, which mirrors how sshd itself takes the first value.
package directive

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// Store answers questions about one immutable configuration text.
type Store struct {
	text string
}

// New wraps configuration text. Blank text is reported as an unavailable source.
func New(text string) (*Store, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: configuration is empty", types.ErrSourceUnavailable)
	}
	return &Store{text: text}, nil
}

// Load reads path with ReadFileLimited and wraps the result.
func Load(path string) (*Store, error) {
	data, err := ReadFileLimited(path)
	if err != nil {
		return nil, err
	}
	s, err := New(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Text returns the source text.
func (s *Store) Text() string {
	return s.text
}

// Value returns the first value assigned to key.
func (s *Store) Value(key string) (string, bool) {
	m := assignmentPattern(key).FindStringSubmatch(s.text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Equals reports whether the first assignment of key is exactly expected,
// ignoring case and any trailing comment.
func (s *Store) Equals(key, expected string) bool {
	line := assignmentPattern(key).FindString(s.text)
	if line == "" {
		return false
	}
	return equalsPattern(key, expected).MatchString(line)
}

// Exists reports whether any active line assigns key a value.
func (s *Store) Exists(key string) bool {
	return assignmentPattern(key).MatchString(s.text)
}

// MatchesPattern reports whether re matches anywhere in the text.
func (s *Store) MatchesPattern(re *regexp.Regexp) bool {
	return re.MatchString(s.text)
}
