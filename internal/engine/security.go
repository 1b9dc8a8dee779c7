package engine

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

// MaxServiceNameLength is the maximum allowed length for service names.
const MaxServiceNameLength = 256

var serviceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_@.\-]+$`)

// validateServiceName checks that a service name contains only safe characters.
func validateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("service name must not be empty")
	}

	if len(name) > MaxServiceNameLength {
		return fmt.Errorf("service name too long: %d chars (max: %d)", len(name), MaxServiceNameLength)
	}

	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("service name %q must not start with '-'", name)
	}

	if !serviceNamePattern.MatchString(name) {
		return fmt.Errorf("invalid service name %q: only alphanumeric, underscores, dots, hyphens, @ allowed", name)
	}

	return nil
}

// worldWritable reports whether others may write the file.
func worldWritable(mode fs.FileMode) bool {
	return mode.Perm()&0o002 != 0
}

// groupOrOtherAccess reports whether any group or other permission bit is set.
// Private host keys must be 0600 or stricter.
func groupOrOtherAccess(mode fs.FileMode) bool {
	return mode.Perm()&0o077 != 0
}
