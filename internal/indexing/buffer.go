// Package indexing buffers incoming documents into an in-memory inverted
// index until a commit flushes them into a segment.
package indexing

import (
	"errors"
	"sync/atomic"
)

// Buffer limits before a flush is forced.
const (
	DefaultBufferMemoryLimit = 64 * 1024 * 1024 // 64MB
	DefaultMaxDocsPerSegment = 100_000
)

var (
	ErrBufferFull      = errors.New("write buffer memory limit reached")
	ErrDuplicateDoc    = errors.New("duplicate document ID in buffer")
	ErrUnknownField    = errors.New("unknown field in document")
	ErrWriterNotActive = errors.New("writer is not active")
)

// PostingEntry is one document's occurrence record for a term.
type PostingEntry struct {
	DocID     uint32
	Freq      uint32
	Positions []uint32
}

// PostingsList accumulates one term's entries within one field.
type PostingsList struct {
	Entries []PostingEntry
}

// WriteBuffer holds everything indexed since the last commit: the
// in-memory inverted index, stored field values, the external-to-internal
// ID mapping, and pending deletions.
type WriteBuffer struct {
	// InvertedIndex: field → term → postings.
	InvertedIndex map[string]map[string]*PostingsList

	// StoredFields: internal docID → field → stored value.
	StoredFields map[uint32]map[string][]byte

	// ExternalToInternal maps caller-supplied IDs to internal doc IDs.
	ExternalToInternal map[string]uint32

	// Deletions are external IDs to apply at commit time.
	Deletions map[string]bool

	NextDocID uint32
	DocCount  int
	TermCount int

	memoryUsed  atomic.Int64
	MemoryLimit int64
	MaxDocs     int
}

// NewWriteBuffer returns an empty buffer with the default limits.
func NewWriteBuffer() *WriteBuffer {
	return &WriteBuffer{
		InvertedIndex:      make(map[string]map[string]*PostingsList),
		StoredFields:       make(map[uint32]map[string][]byte),
		ExternalToInternal: make(map[string]uint32),
		Deletions:          make(map[string]bool),
		MemoryLimit:        DefaultBufferMemoryLimit,
		MaxDocs:            DefaultMaxDocsPerSegment,
	}
}

// AddPosting appends one occurrence record under field/term.
func (b *WriteBuffer) AddPosting(field, term string, docID uint32, freq uint32, positions []uint32) {
	fieldMap, ok := b.InvertedIndex[field]
	if !ok {
		fieldMap = make(map[string]*PostingsList)
		b.InvertedIndex[field] = fieldMap
	}

	pl, ok := fieldMap[term]
	if !ok {
		pl = &PostingsList{}
		fieldMap[term] = pl
		b.TermCount++
	}

	pl.Entries = append(pl.Entries, PostingEntry{
		DocID:     docID,
		Freq:      freq,
		Positions: positions,
	})

	// Rough accounting; exact sizes don't matter, trend does.
	b.memoryUsed.Add(int64(16 + len(positions)*4))
}

// StoreField records a stored field value for docID.
func (b *WriteBuffer) StoreField(docID uint32, field string, value []byte) {
	fields, ok := b.StoredFields[docID]
	if !ok {
		fields = make(map[string][]byte)
		b.StoredFields[docID] = fields
	}
	fields[field] = value
	b.memoryUsed.Add(int64(len(value) + len(field)))
}

// AllocateDocID assigns the next internal doc ID to externalID, rejecting
// an external ID already buffered.
func (b *WriteBuffer) AllocateDocID(externalID string) (uint32, error) {
	if _, exists := b.ExternalToInternal[externalID]; exists {
		return 0, ErrDuplicateDoc
	}

	docID := b.NextDocID
	b.NextDocID++
	b.DocCount++
	b.ExternalToInternal[externalID] = docID
	return docID, nil
}

// MemoryUsed reports the buffer's approximate footprint.
func (b *WriteBuffer) MemoryUsed() int64 {
	return b.memoryUsed.Load()
}

// IsFull reports whether either the doc-count or memory limit is reached.
func (b *WriteBuffer) IsFull() bool {
	if b.DocCount >= b.MaxDocs {
		return true
	}
	if b.memoryUsed.Load() >= b.MemoryLimit {
		return true
	}
	return false
}

// MarkDeleted queues an external ID for deletion at the next commit.
func (b *WriteBuffer) MarkDeleted(externalID string) {
	b.Deletions[externalID] = true
}

// Reset empties the buffer for reuse.
func (b *WriteBuffer) Reset() {
	b.InvertedIndex = make(map[string]map[string]*PostingsList)
	b.StoredFields = make(map[uint32]map[string][]byte)
	b.ExternalToInternal = make(map[string]uint32)
	b.Deletions = make(map[string]bool)
	b.NextDocID = 0
	b.DocCount = 0
	b.TermCount = 0
	b.memoryUsed.Store(0)
}
