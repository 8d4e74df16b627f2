// Package index defines the on-disk shape of a lexisearch index: the
// directory layout, per-generation manifests, segment metadata, and the
// field schema.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"lexisearch/internal/storage"
)

var ErrManifestCorrupt = errors.New("manifest checksum verification failed")

// Manifest is the durable record of one committed generation: which
// segments exist, whole-index totals, and a self-checksum.
type Manifest struct {
	Generation         uint64           `json:"generation"`
	PreviousGeneration uint64           `json:"previous_generation"`
	Timestamp          time.Time        `json:"timestamp"`
	CommitID           string           `json:"commit_id"`
	Segments           []SegmentMeta    `json:"segments"`
	SchemaVersion      uint32           `json:"schema_version"`
	TotalDocs          uint64           `json:"total_docs"`
	TotalDocsAlive     uint64           `json:"total_docs_alive"`
	TotalSizeBytes     uint64           `json:"total_size_bytes"`
	Checksum           storage.Checksum `json:"checksum"`
}

// SegmentMeta is a manifest's record of one segment.
type SegmentMeta struct {
	ID                string              `json:"id"`
	GenerationCreated uint64              `json:"generation_created"`
	DocCount          uint32              `json:"doc_count"`
	DocCountAlive     uint32              `json:"doc_count_alive"`
	DelCount          uint32              `json:"del_count"`
	SizeBytes         uint64              `json:"size_bytes"`
	MinDocID          uint64              `json:"min_doc_id"`
	MaxDocID          uint64              `json:"max_doc_id"`
	Files             map[string]FileMeta `json:"files"`
}

// FileMeta records one segment file's size and checksum.
type FileMeta struct {
	Size     int64            `json:"size"`
	Checksum storage.Checksum `json:"checksum"`
}

// EmptyManifest is the generation-0 manifest of a never-committed index.
func EmptyManifest() *Manifest {
	return &Manifest{
		Generation: 0,
		Segments:   []SegmentMeta{},
	}
}

// MarshalManifest serializes m with its self-checksum filled in. The
// checksum covers the JSON rendering with an empty checksum field.
func MarshalManifest(m *Manifest) ([]byte, error) {
	// Deterministic segment order keeps the checksum stable.
	sortSegments(m.Segments)

	checksum, err := computeManifestChecksum(m)
	if err != nil {
		return nil, fmt.Errorf("compute manifest checksum: %w", err)
	}
	m.Checksum = checksum

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// UnmarshalManifest parses data and verifies the embedded checksum,
// returning ErrManifestCorrupt (wrapped) on mismatch.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	savedChecksum := m.Checksum
	computed, err := computeManifestChecksum(&m)
	if err != nil {
		return nil, fmt.Errorf("compute manifest checksum for verification: %w", err)
	}
	if computed != savedChecksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrManifestCorrupt, savedChecksum, computed)
	}

	return &m, nil
}

// UnmarshalManifestNoVerify parses data without checking the checksum —
// for tooling that inspects manifests already known to be damaged.
func UnmarshalManifestNoVerify(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// computeManifestChecksum hashes m rendered with an empty checksum
// field, restoring the original value afterward.
func computeManifestChecksum(m *Manifest) (storage.Checksum, error) {
	saved := m.Checksum
	m.Checksum = ""
	defer func() { m.Checksum = saved }()

	sortSegments(m.Segments)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal for checksum: %w", err)
	}
	return storage.ComputeChecksum(data), nil
}

func sortSegments(segments []SegmentMeta) {
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].ID < segments[j].ID
	})
}
