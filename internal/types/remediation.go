package types

import "time"

// PatchRequest asks the patch engine to set one directive.
type PatchRequest struct {
	// Key is the directive keyword, e.g. "PasswordAuthentication".
	Key string `json:"key"`

	// Value is the desired single-token value.
	Value string `json:"value"`
}

// Backup records a timestamped copy of the configuration file.
type Backup struct {
	// SourcePath is the configuration file that was copied.
	SourcePath string `json:"source_path"`

	// Path is the backup copy.
	Path string `json:"path"`

	// CreatedAt is when the copy was taken.
	CreatedAt time.Time `json:"created_at"`
}
