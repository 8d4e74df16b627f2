package commit

import "log/slog"

// Options tunes the commit protocol.
type Options struct {
	// SchemaVersion is stamped into every manifest this committer writes.
	SchemaVersion uint32

	// Logger receives per-phase commit progress; nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the standard commit settings.
func DefaultOptions() Options {
	return Options{
		SchemaVersion: 1,
	}
}
