// Package recovery brings an index directory back to a consistent state
// after a crash: it picks the newest generation whose manifest and
// segments survive validation, then sweeps the leftovers (tmp files,
// orphaned segments, stale manifests) that an interrupted commit can
// strand on disk.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"lexisearch/internal/index"
	"lexisearch/internal/storage"
)

// ErrRecoveryImpossible means no generation — current or earlier — has
// both a loadable manifest and intact segments.
var ErrRecoveryImpossible = errors.New("recovery impossible: no valid manifest with intact segments found")

// RecoveryResult reports what Recover found and what it swept away.
type RecoveryResult struct {
	// Generation the index was recovered to (0 for an empty index).
	Generation uint64

	// Manifest validated for that generation; nil when Generation is 0.
	Manifest *index.Manifest

	// OrphansRemoved lists segment IDs deleted because no manifest
	// referenced them.
	OrphansRemoved []string

	// ManifestsRemoved lists generations whose manifest files were pruned.
	ManifestsRemoved []uint64

	// TmpFilesRemoved lists entries swept out of tmp/.
	TmpFilesRemoved []string

	// FellBack is set when the pointed-to generation was unusable and an
	// earlier one was recovered instead; FellBackFrom records the bad one.
	FellBack     bool
	FellBackFrom uint64
}

// Recover validates and repairs dir. It must run during startup, before
// the index serves any read or write.
func Recover(dir *index.IndexDir, opts Options) (*RecoveryResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	result := &RecoveryResult{}

	generation, err := index.ReadCurrentGeneration(dir)
	if err != nil {
		return nil, fmt.Errorf("recovery: read current generation: %w", err)
	}
	logger.Info("recovery: current generation", "generation", generation)

	// Generation 0 means the index has never committed; the only possible
	// garbage is tmp/ leftovers.
	if generation == 0 {
		logger.Info("recovery: index is empty, sweeping tmp only")
		swept, _ := sweepTmp(dir, logger)
		result.TmpFilesRemoved = swept
		return result, nil
	}

	manifest, actualGen, err := index.LoadManifestWithFallback(dir, generation, logger)
	if err != nil {
		return nil, fmt.Errorf("recovery: load manifest: %w", err)
	}
	if actualGen != generation {
		result.FellBack = true
		result.FellBackFrom = generation
		generation = actualGen
	}

	corrupt := verifySegments(dir, manifest, opts.VerifySegmentChecksums, logger)

	if len(corrupt) > 0 {
		badGen := generation
		manifest, generation, err = fallBackPastCorruption(dir, generation, opts.VerifySegmentChecksums, logger)
		if err != nil {
			return nil, fmt.Errorf("recovery: fall back past corrupt segments: %w", err)
		}
		result.FellBack = true
		result.FellBackFrom = badGen

		// Repoint manifest.current so the next startup lands directly on
		// the generation we just validated.
		if err := index.WriteCurrentGeneration(dir, generation); err != nil {
			return nil, fmt.Errorf("recovery: repoint manifest.current: %w", err)
		}
		logger.Info("recovery: repointed manifest.current", "generation", generation)
	}

	swept, err := sweepTmp(dir, logger)
	if err != nil {
		logger.Warn("recovery: tmp sweep incomplete", "error", err)
	}
	result.TmpFilesRemoved = swept

	orphans, err := findOrphanSegments(dir, manifest, logger)
	if err != nil {
		logger.Warn("recovery: orphan scan incomplete", "error", err)
	}
	if len(orphans) > 0 {
		if err := removeOrphanSegments(dir, orphans, logger); err != nil {
			logger.Warn("recovery: orphan removal incomplete", "error", err)
		}
		result.OrphansRemoved = orphans
	}

	pruned, err := pruneOldManifests(dir, generation, opts.ManifestRetention, logger)
	if err != nil {
		logger.Warn("recovery: manifest pruning incomplete", "error", err)
	}
	result.ManifestsRemoved = pruned

	result.Generation = generation
	result.Manifest = manifest

	logger.Info("recovery complete",
		"generation", generation,
		"segments", len(manifest.Segments),
		"orphans_removed", len(result.OrphansRemoved),
		"manifests_removed", len(result.ManifestsRemoved),
	)

	return result, nil
}

// verifySegments checks that every segment the manifest references exists
// on disk (and, optionally, that its file checksums match), returning the
// IDs that fail.
func verifySegments(dir *index.IndexDir, manifest *index.Manifest, verifyChecksums bool, logger *slog.Logger) []string {
	logger.Info("recovery: verifying segments",
		"count", len(manifest.Segments),
		"verify_checksums", verifyChecksums,
	)

	var corrupt []string
	for _, seg := range manifest.Segments {
		segDir := dir.SegmentDir(seg.ID)
		if !storage.DirExists(segDir) {
			logger.Error("segment directory missing", "segment", seg.ID, "path", segDir)
			corrupt = append(corrupt, seg.ID)
			continue
		}

		if !verifyChecksums {
			continue
		}
		for fileName, fileMeta := range seg.Files {
			path := dir.SegmentFile(seg.ID, fileName)
			if err := storage.VerifyFileChecksum(path, fileMeta.Checksum); err != nil {
				logger.Error("segment file checksum mismatch",
					"segment", seg.ID,
					"file", fileName,
					"error", err,
				)
				corrupt = append(corrupt, seg.ID)
				break // one bad file condemns the segment
			}
		}
	}
	return corrupt
}

// fallBackPastCorruption walks generations downward from just below
// currentGen until it finds one whose segments all verify.
func fallBackPastCorruption(dir *index.IndexDir, currentGen uint64, verifyChecksums bool, logger *slog.Logger) (*index.Manifest, uint64, error) {
	logger.Warn("recovery: current generation has corrupt segments, walking back")

	for gen := currentGen - 1; gen >= 1; gen-- {
		m, err := index.LoadManifest(dir, gen)
		if err != nil {
			logger.Warn("earlier manifest unreadable", "generation", gen, "error", err)
			continue
		}

		if corrupt := verifySegments(dir, m, verifyChecksums, logger); len(corrupt) == 0 {
			logger.Info("recovery: settled on earlier generation", "generation", gen)
			return m, gen, nil
		}
	}

	return nil, 0, ErrRecoveryImpossible
}

func sweepTmp(dir *index.IndexDir, logger *slog.Logger) ([]string, error) {
	swept, err := storage.RemoveDirContents(dir.TmpDir())
	if len(swept) > 0 {
		logger.Info("recovery: swept tmp", "removed", len(swept))
		for _, p := range swept {
			logger.Debug("removed tmp entry", "path", p)
		}
	}
	return swept, err
}

// findOrphanSegments lists segment directories on disk that the surviving
// manifest does not reference.
func findOrphanSegments(dir *index.IndexDir, manifest *index.Manifest, logger *slog.Logger) ([]string, error) {
	onDisk, err := storage.ListSubdirs(dir.SegmentsDir())
	if err != nil {
		return nil, err
	}

	live := make(map[string]bool, len(manifest.Segments))
	for _, seg := range manifest.Segments {
		live[seg.ID] = true
	}

	var orphans []string
	for _, name := range onDisk {
		if !live[name] {
			logger.Info("recovery: found orphan segment", "segment", name)
			orphans = append(orphans, name)
		}
	}
	return orphans, nil
}

func removeOrphanSegments(dir *index.IndexDir, orphans []string, logger *slog.Logger) error {
	var firstErr error
	for _, segID := range orphans {
		if err := os.RemoveAll(dir.SegmentDir(segID)); err != nil {
			logger.Error("failed to remove orphan segment", "segment", segID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Info("recovery: removed orphan segment", "segment", segID)
	}
	return firstErr
}

// pruneOldManifests keeps the current manifest plus retention predecessors
// and deletes the older rest. Manifests newer than currentGen (left behind
// by a fallback) are not touched.
func pruneOldManifests(dir *index.IndexDir, currentGen uint64, retention int, logger *slog.Logger) ([]uint64, error) {
	files, err := storage.ListFiles(dir.ManifestsDir())
	if err != nil {
		return nil, err
	}

	var generations []uint64
	for _, f := range files {
		if gen, ok := manifestGeneration(f); ok {
			generations = append(generations, gen)
		}
	}

	sort.Slice(generations, func(i, j int) bool {
		return generations[i] > generations[j]
	})

	var pruned []uint64
	kept := 0
	for _, gen := range generations {
		if gen > currentGen {
			continue
		}
		if kept < 1+retention {
			kept++
			continue
		}
		if err := os.Remove(dir.ManifestPath(gen)); err != nil {
			logger.Warn("failed to remove old manifest", "generation", gen, "error", err)
			continue
		}
		logger.Info("recovery: pruned old manifest", "generation", gen)
		pruned = append(pruned, gen)
	}
	return pruned, nil
}

// manifestGeneration parses N out of a manifest_gen_N.json filename.
func manifestGeneration(filename string) (uint64, bool) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	numStr, ok := strings.CutPrefix(name, "manifest_gen_")
	if !ok {
		return 0, false
	}
	gen, err := strconv.ParseUint(numStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return gen, true
}
