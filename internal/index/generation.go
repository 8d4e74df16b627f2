package index

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"lexisearch/internal/storage"
)

var ErrManifestNotFound = errors.New("manifest not found")

// ReadCurrentGeneration parses manifest.current. A missing file means the
// index has never committed and reads as generation 0.
func ReadCurrentGeneration(dir *IndexDir) (uint64, error) {
	data, err := os.ReadFile(dir.ManifestCurrentPath())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read manifest.current: %w", err)
	}

	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, nil
	}

	gen, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse manifest.current %q: %w", s, err)
	}
	return gen, nil
}

// WriteCurrentGeneration repoints manifest.current at generation. The new
// value is staged in tmp/, fsynced, renamed over the old pointer, and the
// root directory fsynced — readers see either the old generation or the
// new one, never a torn pointer.
func WriteCurrentGeneration(dir *IndexDir, generation uint64) error {
	data := []byte(strconv.FormatUint(generation, 10))

	nextPath := dir.ManifestNextPath()
	if err := storage.WriteFileSync(nextPath, data, storage.FilePerm); err != nil {
		return fmt.Errorf("write manifest.next: %w", err)
	}

	if err := os.Rename(nextPath, dir.ManifestCurrentPath()); err != nil {
		return fmt.Errorf("rename manifest.next → manifest.current: %w", err)
	}

	if err := storage.FsyncDir(dir.Root); err != nil {
		return fmt.Errorf("fsync index root: %w", err)
	}

	return nil
}

// LoadManifest reads and checksum-verifies the manifest for generation.
func LoadManifest(dir *IndexDir, generation uint64) (*Manifest, error) {
	path := dir.ManifestPath(generation)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: generation %d", ErrManifestNotFound, generation)
		}
		return nil, fmt.Errorf("read manifest gen %d: %w", generation, err)
	}

	m, err := UnmarshalManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest gen %d: %w", generation, err)
	}
	return m, nil
}

// WriteManifest publishes m under manifests/ via the same stage-in-tmp,
// fsync, rename, fsync-dir sequence WriteCurrentGeneration uses.
func WriteManifest(dir *IndexDir, m *Manifest) error {
	data, err := MarshalManifest(m)
	if err != nil {
		return fmt.Errorf("marshal manifest gen %d: %w", m.Generation, err)
	}

	tmpPath := dir.TmpManifestPath(m.Generation)
	if err := storage.WriteFileSync(tmpPath, data, storage.FilePerm); err != nil {
		return fmt.Errorf("write tmp manifest gen %d: %w", m.Generation, err)
	}

	finalPath := dir.ManifestPath(m.Generation)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename manifest gen %d: %w", m.Generation, err)
	}

	if err := storage.FsyncDir(dir.ManifestsDir()); err != nil {
		return fmt.Errorf("fsync manifests dir: %w", err)
	}

	return nil
}

// LoadManifestWithFallback loads the manifest for generation, stepping
// back one generation at a time past unreadable or corrupt files. It
// returns the manifest together with the generation it actually came from.
func LoadManifestWithFallback(dir *IndexDir, generation uint64, logger *slog.Logger) (*Manifest, uint64, error) {
	for gen := generation; gen >= 1; gen-- {
		m, err := LoadManifest(dir, gen)
		if err == nil {
			if gen != generation {
				logger.Warn("manifest fallback",
					"requested", generation,
					"recovered", gen,
				)
			}
			return m, gen, nil
		}

		logger.Warn("manifest load failed, trying previous",
			"generation", gen,
			"error", err,
		)
	}

	return nil, 0, fmt.Errorf("no valid manifest found for generations %d through 1", generation)
}
