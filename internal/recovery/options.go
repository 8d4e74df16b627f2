package recovery

import "log/slog"

// Options tunes crash recovery.
type Options struct {
	// ManifestRetention is how many manifests to keep behind the current
	// one. Default: 2.
	ManifestRetention int

	// VerifySegmentChecksums makes recovery hash every segment file
	// against the manifest. Slower startup, catches silent corruption.
	// Default: true.
	VerifySegmentChecksums bool

	// Logger receives recovery progress; nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the recommended recovery settings.
func DefaultOptions() Options {
	return Options{
		ManifestRetention:      2,
		VerifySegmentChecksums: true,
	}
}
