// Package commit turns a built segment into a durably committed
// generation. A commit stages the segment under tmp/, proves it back by
// re-reading checksums, renames it into place, and only then publishes a
// manifest and repoints manifest.current — so a crash at any moment
// leaves either the old generation or the new one, never a half state.
package commit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"lexisearch/internal/index"
	"lexisearch/internal/storage"
)

// SegmentData is a segment builder's output: logical file names (for
// example "fst.bin") mapped to their contents, plus document counters.
type SegmentData struct {
	Files         map[string][]byte
	DocCount      uint32
	DocCountAlive uint32
	DelCount      uint32
	MinDocID      uint64
	MaxDocID      uint64
}

// CommitResult describes a committed generation.
type CommitResult struct {
	Generation uint64
	SegmentID  string
	CommitID   string
	Duration   time.Duration
}

// Committer runs the staged commit protocol against one index directory.
type Committer struct {
	dir    *index.IndexDir
	opts   Options
	logger *slog.Logger
}

// NewCommitter builds a Committer over dir.
func NewCommitter(dir *index.IndexDir, opts Options) *Committer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Committer{
		dir:    dir,
		opts:   opts,
		logger: logger,
	}
}

// Commit stages segmentData, verifies it, installs it, and publishes the
// next generation. The caller must hold the index's exclusive write lock.
// prev may be nil on the first ever commit.
func (c *Committer) Commit(ctx context.Context, prev *index.Manifest, segmentData *SegmentData) (*CommitResult, error) {
	start := time.Now()

	if prev == nil {
		prev = index.EmptyManifest()
	}

	gen := prev.Generation + 1

	c.logger.Info("commit: preparing", "generation", gen)
	segmentID, segMeta, commitID, err := c.prepare(gen, segmentData)
	if err != nil {
		return nil, fmt.Errorf("commit prepare: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("commit cancelled before staging: %w", err)
	}
	c.logger.Info("commit: staging segment", "segment", segmentID)
	if err := c.stage(segmentID, segmentData); err != nil {
		c.discardStaged(segmentID)
		return nil, fmt.Errorf("commit stage: %w", err)
	}

	if err := ctx.Err(); err != nil {
		c.discardStaged(segmentID)
		return nil, fmt.Errorf("commit cancelled before verification: %w", err)
	}
	c.logger.Info("commit: verifying staged segment", "segment", segmentID)
	if err := c.verifyStaged(segmentID, segMeta.Files); err != nil {
		c.discardStaged(segmentID)
		return nil, fmt.Errorf("commit verify: %w", err)
	}

	c.logger.Info("commit: installing segment", "segment", segmentID)
	if err := c.install(segmentID); err != nil {
		c.discardStaged(segmentID)
		return nil, fmt.Errorf("commit install: %w", err)
	}

	c.logger.Info("commit: writing manifest", "generation", gen)
	next := c.nextManifest(prev, gen, segMeta, commitID)
	if err := index.WriteManifest(c.dir, next); err != nil {
		return nil, fmt.Errorf("commit manifest: %w", err)
	}

	c.logger.Info("commit: activating generation", "generation", gen)
	if err := index.WriteCurrentGeneration(c.dir, gen); err != nil {
		return nil, fmt.Errorf("commit activate: %w", err)
	}

	if err := c.sweepTmp(); err != nil {
		c.logger.Warn("commit: tmp sweep failed (non-fatal)", "error", err)
	}

	duration := time.Since(start)
	c.logger.Info("commit complete",
		"generation", gen,
		"segment", segmentID,
		"duration", duration,
	)

	return &CommitResult{
		Generation: gen,
		SegmentID:  segmentID,
		CommitID:   commitID,
		Duration:   duration,
	}, nil
}

// prepare mints the segment and commit IDs and checksums every file into
// a SegmentMeta, before anything touches disk.
func (c *Committer) prepare(generation uint64, data *SegmentData) (string, index.SegmentMeta, string, error) {
	segmentID, err := newSegmentID(generation)
	if err != nil {
		return "", index.SegmentMeta{}, "", fmt.Errorf("mint segment ID: %w", err)
	}

	commitID, err := newCommitID()
	if err != nil {
		return "", index.SegmentMeta{}, "", fmt.Errorf("mint commit ID: %w", err)
	}

	files := make(map[string]index.FileMeta, len(data.Files))
	var totalSize uint64
	for name, content := range data.Files {
		size := int64(len(content))
		files[name] = index.FileMeta{
			Size:     size,
			Checksum: storage.ComputeChecksum(content),
		}
		totalSize += uint64(size)
	}

	meta := index.SegmentMeta{
		ID:                segmentID,
		GenerationCreated: generation,
		DocCount:          data.DocCount,
		DocCountAlive:     data.DocCountAlive,
		DelCount:          data.DelCount,
		SizeBytes:         totalSize,
		MinDocID:          data.MinDocID,
		MaxDocID:          data.MaxDocID,
		Files:             files,
	}

	return segmentID, meta, commitID, nil
}

// stage writes the segment under tmp/, fsyncing each file and then the
// directory so the staged state is durable before verification.
func (c *Committer) stage(segmentID string, data *SegmentData) error {
	segDir := c.dir.TmpSegmentDir(segmentID)
	if err := storage.EnsureDir(segDir); err != nil {
		return fmt.Errorf("create tmp segment dir: %w", err)
	}

	for name, content := range data.Files {
		path := filepath.Join(segDir, name)
		if err := storage.WriteFileSync(path, content, storage.FilePerm); err != nil {
			return fmt.Errorf("write segment file %s: %w", name, err)
		}
	}

	if err := storage.FsyncDir(segDir); err != nil {
		return fmt.Errorf("fsync segment dir: %w", err)
	}

	return nil
}

// verifyStaged reads every staged file back and checks it against the
// checksum computed at prepare time.
func (c *Committer) verifyStaged(segmentID string, expected map[string]index.FileMeta) error {
	segDir := c.dir.TmpSegmentDir(segmentID)
	for name, meta := range expected {
		path := filepath.Join(segDir, name)
		if err := storage.VerifyFileChecksum(path, meta.Checksum); err != nil {
			return fmt.Errorf("verify segment file %s: %w", name, err)
		}
	}
	return nil
}

// install atomically renames the staged segment into segments/.
func (c *Committer) install(segmentID string) error {
	src := c.dir.TmpSegmentDir(segmentID)
	dst := c.dir.SegmentDir(segmentID)

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("rename segment %s → %s: %w", src, dst, err)
	}
	if err := storage.FsyncDir(c.dir.SegmentsDir()); err != nil {
		return fmt.Errorf("fsync segments dir: %w", err)
	}
	return nil
}

func (c *Committer) sweepTmp() error {
	removed, err := storage.RemoveDirContents(c.dir.TmpDir())
	if len(removed) > 0 {
		c.logger.Debug("commit: swept tmp", "count", len(removed))
	}
	return err
}

// discardStaged drops the tmp/ artifacts of a failed commit.
func (c *Committer) discardStaged(segmentID string) {
	segDir := c.dir.TmpSegmentDir(segmentID)
	if err := os.RemoveAll(segDir); err != nil {
		c.logger.Warn("commit: failed to discard staged segment", "path", segDir, "error", err)
	}
}

// nextManifest layers the new segment onto prev's segment list and
// re-derives the whole-index totals.
func (c *Committer) nextManifest(prev *index.Manifest, gen uint64, newSeg index.SegmentMeta, commitID string) *index.Manifest {
	segments := make([]index.SegmentMeta, 0, len(prev.Segments)+1)
	segments = append(segments, prev.Segments...)
	segments = append(segments, newSeg)

	var totalDocs, totalAlive, totalSize uint64
	for _, s := range segments {
		totalDocs += uint64(s.DocCount)
		totalAlive += uint64(s.DocCountAlive)
		totalSize += s.SizeBytes
	}

	return &index.Manifest{
		Generation:         gen,
		PreviousGeneration: prev.Generation,
		Timestamp:          time.Now().UTC(),
		CommitID:           commitID,
		Segments:           segments,
		SchemaVersion:      c.opts.SchemaVersion,
		TotalDocs:          totalDocs,
		TotalDocsAlive:     totalAlive,
		TotalSizeBytes:     totalSize,
	}
}

// newSegmentID mints seg_gen_<N>_<8-hex-chars>.
func newSegmentID(generation uint64) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random bytes: %w", err)
	}
	return fmt.Sprintf("seg_gen_%d_%s", generation, hex.EncodeToString(b)), nil
}

// newCommitID mints an opaque 128-bit commit identifier.
func newCommitID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
