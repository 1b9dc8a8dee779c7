package directive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// MaxFileReadBytes is the maximum number of bytes read from a configuration file (10 MB).
const MaxFileReadBytes int64 = 10 * 1024 * 1024

// ValidatePath checks that a file path is safe to operate on.
// Rejects path traversal sequences and non-absolute paths.
func ValidatePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path must not be empty")
	}

	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("path must be absolute, got %q", path)
	}

	cleaned := filepath.Clean(path)
	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return "", fmt.Errorf("path traversal (..) not allowed in %q", path)
		}
	}

	return cleaned, nil
}

// ReadFileLimited reads a regular file with safety checks:
//   - absolute path, no traversal
//   - follows symlinks (distributions commonly link sshd_config)
//   - regular-file-only after resolution (no devices, pipes, sockets)
//   - bounded read (MaxFileReadBytes)
//
// Uses open-then-fstat so the checked file is the file read.
// Errors wrap types.ErrPermissionDenied or types.ErrSourceUnavailable.
func ReadFileLimited(path string) ([]byte, error) {
	cleaned, err := ValidatePath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSourceUnavailable, err)
	}

	f, err := os.Open(cleaned)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: cannot open %s", types.ErrPermissionDenied, cleaned)
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: file not found: %s", types.ErrSourceUnavailable, cleaned)
		}
		return nil, fmt.Errorf("%w: cannot open %q: %v", types.ErrSourceUnavailable, cleaned, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot stat %q: %v", types.ErrSourceUnavailable, cleaned, err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: refusing to read non-regular file %q (mode: %s)",
			types.ErrSourceUnavailable, cleaned, info.Mode().Type())
	}

	if info.Size() > MaxFileReadBytes {
		return nil, fmt.Errorf("%w: file %q too large: %d bytes (max: %d)",
			types.ErrSourceUnavailable, cleaned, info.Size(), MaxFileReadBytes)
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileReadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: error reading %q: %v", types.ErrSourceUnavailable, cleaned, err)
	}

	if int64(len(data)) > MaxFileReadBytes {
		return nil, fmt.Errorf("%w: file %q exceeded size limit during read", types.ErrSourceUnavailable, cleaned)
	}

	return data, nil
}
