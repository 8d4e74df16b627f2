package snapshot

import (
	"sync"
	"sync/atomic"
)

// SegmentRef is the concurrency-safe pin count for one segment. A
// segment stays on disk while either the current manifest references it
// or any snapshot holds a pin.
type SegmentRef struct {
	segmentID  string
	refCount   atomic.Int64
	mu         sync.Mutex // guards inManifest for the reclaim decision
	inManifest bool
}

// NewSegmentRef returns an unpinned ref for segmentID.
func NewSegmentRef(segmentID string) *SegmentRef {
	return &SegmentRef{
		segmentID: segmentID,
	}
}

// SegmentID returns the segment's identifier.
func (r *SegmentRef) SegmentID() string {
	return r.segmentID
}

// Pin adds one snapshot hold.
func (r *SegmentRef) Pin() {
	r.refCount.Add(1)
}

// Unpin removes one snapshot hold. Panics on underflow, which would mean
// a double release somewhere upstream.
func (r *SegmentRef) Unpin() {
	if r.refCount.Add(-1) < 0 {
		panic("snapshot: segment ref count went negative for " + r.segmentID)
	}
}

// RefCount returns the current number of holds.
func (r *SegmentRef) RefCount() int64 {
	return r.refCount.Load()
}

// SetInManifest records whether the current manifest references this
// segment.
func (r *SegmentRef) SetInManifest(inManifest bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inManifest = inManifest
}

// InManifest reports whether the current manifest references this segment.
func (r *SegmentRef) InManifest() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inManifest
}

// CanReclaim reports whether the segment may be deleted: zero holds and
// absent from the current manifest.
func (r *SegmentRef) CanReclaim() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refCount.Load() == 0 && !r.inManifest
}
