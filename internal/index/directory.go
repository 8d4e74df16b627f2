package index

import (
	"fmt"
	"path/filepath"

	"lexisearch/internal/storage"
)

// IndexDir knows the on-disk layout of one index: segments/, manifests/,
// tmp/, the manifest.current pointer, and schema.json. Every path method
// is pure computation; only EnsureDirectories touches the filesystem.
type IndexDir struct {
	Root string
}

// NewIndexDir wraps a root path.
func NewIndexDir(root string) *IndexDir {
	return &IndexDir{Root: root}
}

// SegmentsDir is where installed segments live.
func (d *IndexDir) SegmentsDir() string {
	return filepath.Join(d.Root, "segments")
}

// ManifestsDir is where per-generation manifests live.
func (d *IndexDir) ManifestsDir() string {
	return filepath.Join(d.Root, "manifests")
}

// TmpDir is the staging area for in-flight writes.
func (d *IndexDir) TmpDir() string {
	return filepath.Join(d.Root, "tmp")
}

// ManifestCurrentPath is the generation pointer file.
func (d *IndexDir) ManifestCurrentPath() string {
	return filepath.Join(d.Root, "manifest.current")
}

// SchemaPath is the index's schema file.
func (d *IndexDir) SchemaPath() string {
	return filepath.Join(d.Root, "schema.json")
}

// SegmentDir is an installed segment's directory.
func (d *IndexDir) SegmentDir(segmentID string) string {
	return filepath.Join(d.Root, "segments", segmentID)
}

// SegmentFile is one file inside an installed segment.
func (d *IndexDir) SegmentFile(segmentID, fileName string) string {
	return filepath.Join(d.Root, "segments", segmentID, fileName)
}

// TmpSegmentDir is where a segment is staged while being built.
func (d *IndexDir) TmpSegmentDir(segmentID string) string {
	return filepath.Join(d.Root, "tmp", segmentID)
}

// ManifestPath is the installed manifest file for a generation.
func (d *IndexDir) ManifestPath(generation uint64) string {
	return filepath.Join(d.Root, "manifests", fmt.Sprintf("manifest_gen_%d.json", generation))
}

// TmpManifestPath is where a manifest is staged before installation.
func (d *IndexDir) TmpManifestPath(generation uint64) string {
	return filepath.Join(d.Root, "tmp", fmt.Sprintf("manifest_gen_%d.json", generation))
}

// ManifestNextPath is the staged generation pointer.
func (d *IndexDir) ManifestNextPath() string {
	return filepath.Join(d.Root, "tmp", "manifest.next")
}

// EnsureDirectories creates the layout's subdirectories as needed.
func (d *IndexDir) EnsureDirectories() error {
	for _, dir := range []string{d.SegmentsDir(), d.ManifestsDir(), d.TmpDir()} {
		if err := storage.EnsureDir(dir); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

// SegmentFileNames lists the well-known files a segment may contain.
func SegmentFileNames() []string {
	return []string{
		"meta.json",
		"fst.bin",
		"postings.bin",
		"positions.bin",
		"stored.bin",
		"deletions.bin",
	}
}
