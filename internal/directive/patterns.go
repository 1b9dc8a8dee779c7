package directive

import (
	"fmt"
	"regexp"
)

// Patterns are line-anchored and case-insensitive. Horizontal whitespace
// only, so a key with no value never borrows the next line's token.

// ProtocolV1Pattern matches an active Protocol line that enables version 1.
var ProtocolV1Pattern = regexp.MustCompile(`(?im)^[ \t]*Protocol[ \t]+[^#\n]*1`)

// matchBlockPattern finds the first Match block header.
var matchBlockPattern = regexp.MustCompile(`(?im)^[ \t]*Match[ \t]+\S`)

// keyPattern and valuePattern bound what a patch may write.
var (
	keyPattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
	valuePattern = regexp.MustCompile(`^[^\s#]+$`)
)

// assignmentPattern matches an active line for key. Group 1 is the value
// token, which stops at whitespace or '#'. The whole match is the line
// without its terminator.
func assignmentPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?im)^[ \t]*%s[ \t]+([^\s#]+)[^\r\n]*`, regexp.QuoteMeta(key)))
}

// equalsPattern matches a single assignment line whose value is exactly
// expected, followed by nothing but whitespace and an optional comment.
func equalsPattern(key, expected string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)^[ \t]*%s[ \t]+%s[ \t]*(?:#.*)?$`,
		regexp.QuoteMeta(key), regexp.QuoteMeta(expected)))
}

// patchPattern matches the line a patch replaces: active or commented out
// with a single '#', followed by a value. The line terminator is not part
// of the match.
func patchPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?im)^[ \t]*#?[ \t]*%s[ \t]+\S[^\r\n]*`, regexp.QuoteMeta(key)))
}

// ValidateRequest checks that key and value are safe to write as one
// directive line.
func ValidateRequest(key, value string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid directive key %q: must be alphanumeric", key)
	}
	if !valuePattern.MatchString(value) {
		return fmt.Errorf("invalid value %q for %s: must be a single token without '#'", value, key)
	}
	return nil
}
