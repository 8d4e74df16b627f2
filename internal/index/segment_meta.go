package index

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"lexisearch/internal/storage"
)

// Magic numbers stamped at the head of each segment file (8 bytes each).
const (
	MagicFST       = "LXSRFST\x00"
	MagicPostings  = "LXSRPST\x00"
	MagicPositions = "LXSRPOS\x00"
	MagicStored    = "LXSRSTO\x00"
	MagicDeletions = "LXSRDEL\x00"
)

// SegmentFormatVersion is the current segment file format.
const SegmentFormatVersion uint32 = 1

// Hard limits baked into the segment format.
const (
	MaxTermLength     = 32 * 1024 // 32KB of UTF-8 per term
	MaxDocsPerSegment = 1 << 31   // int32 doc IDs
	MaxSegmentSize    = 4 << 30   // uint32 file offsets
)

// SegmentInfo is a segment's meta.json: identity, provenance, and
// per-field statistics.
type SegmentInfo struct {
	SegmentID  string                `json:"segment_id"`
	Generation uint64                `json:"generation"`
	CreatedAt  time.Time             `json:"created_at"`
	DocCount   uint32                `json:"doc_count"`
	FieldStats map[string]FieldStats `json:"field_stats"`
	Checksum   storage.Checksum      `json:"checksum"`
}

// FieldStats aggregates one field's term statistics within a segment.
type FieldStats struct {
	TermCount     uint64 `json:"term_count"`
	TotalTermFreq uint64 `json:"total_term_freq"`
	DocCount      uint32 `json:"doc_count"`
	SumDocFreq    uint64 `json:"sum_doc_freq"`
}

// MarshalSegmentInfo serializes info with a self-checksum embedded.
func MarshalSegmentInfo(info *SegmentInfo) ([]byte, error) {
	checksum, err := computeSegmentInfoChecksum(info)
	if err != nil {
		return nil, fmt.Errorf("compute segment info checksum: %w", err)
	}
	info.Checksum = checksum

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal segment info: %w", err)
	}
	return data, nil
}

// UnmarshalSegmentInfo parses data and verifies the embedded checksum.
func UnmarshalSegmentInfo(data []byte) (*SegmentInfo, error) {
	var info SegmentInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("unmarshal segment info: %w", err)
	}

	savedChecksum := info.Checksum
	computed, err := computeSegmentInfoChecksum(&info)
	if err != nil {
		return nil, fmt.Errorf("compute segment info checksum for verification: %w", err)
	}
	if computed != savedChecksum {
		return nil, fmt.Errorf("segment info checksum mismatch: expected %s, got %s", savedChecksum, computed)
	}

	return &info, nil
}

// WriteSegmentInfo writes meta.json into segDir with fsync.
func WriteSegmentInfo(segDir string, info *SegmentInfo) error {
	data, err := MarshalSegmentInfo(info)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("%s/meta.json", segDir)
	if err := storage.WriteFileSync(path, data, storage.FilePerm); err != nil {
		return fmt.Errorf("write segment info: %w", err)
	}
	return nil
}

// LoadSegmentInfo reads and verifies segDir's meta.json.
func LoadSegmentInfo(segDir string) (*SegmentInfo, error) {
	path := fmt.Sprintf("%s/meta.json", segDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segment info: %w", err)
	}
	return UnmarshalSegmentInfo(data)
}

// computeSegmentInfoChecksum hashes info serialized with an empty
// checksum field, so the stored checksum covers everything else.
func computeSegmentInfoChecksum(info *SegmentInfo) (storage.Checksum, error) {
	saved := info.Checksum
	info.Checksum = ""
	defer func() { info.Checksum = saved }()

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal for checksum: %w", err)
	}
	return storage.ComputeChecksum(data), nil
}
