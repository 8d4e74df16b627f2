// Package snapshot gives readers stable point-in-time views of the index.
// A snapshot pins every segment of the generation it observes, so commits
// and merges can retire segments without pulling them out from under an
// in-flight query; a segment is reclaimed only once no manifest and no
// live snapshot references it.
package snapshot

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Manager hands out snapshots of the current generation and tracks
// per-segment reference counts for reclamation.
//
// Locking: generationMu guards the generation and its segment set
// (read-locked to acquire a snapshot, write-locked to publish a new
// generation); snapshotsMu guards the live-snapshot map. Lock order is
// generationMu, then snapshotsMu, then SegmentRef.mu — never take
// generationMu while holding either of the others.
type Manager struct {
	generationMu sync.RWMutex

	currentGeneration uint64
	currentSegments   map[string]*SegmentRef

	snapshotsMu     sync.Mutex
	activeSnapshots map[uint64]*Snapshot

	nextSnapshotID atomic.Uint64

	logger *slog.Logger

	// LeakThreshold is how long a snapshot may be held before DetectLeaks
	// flags it. Zero disables leak detection.
	LeakThreshold time.Duration
}

// NewManager builds a Manager seeded with the recovered generation and
// the segment IDs its manifest references (generation 0 and no segments
// for an empty index).
func NewManager(initialGeneration uint64, segmentIDs []string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	refs := make(map[string]*SegmentRef, len(segmentIDs))
	for _, id := range segmentIDs {
		ref := NewSegmentRef(id)
		ref.SetInManifest(true)
		refs[id] = ref
	}

	return &Manager{
		currentGeneration: initialGeneration,
		currentSegments:   refs,
		activeSnapshots:   make(map[uint64]*Snapshot),
		logger:            logger,
		LeakThreshold:     5 * time.Minute,
	}
}

// Acquire pins the current generation and returns a Snapshot over it.
// The caller owns the snapshot and must Release it.
func (m *Manager) Acquire() (*Snapshot, error) {
	m.generationMu.RLock()

	generation := m.currentGeneration
	var pinned []*SegmentRef

	if generation != 0 {
		pinned = make([]*SegmentRef, 0, len(m.currentSegments))
		for _, ref := range m.currentSegments {
			ref.Pin()
			pinned = append(pinned, ref)
		}
	}

	m.generationMu.RUnlock()

	snap := &Snapshot{
		ID:         m.nextSnapshotID.Add(1),
		Generation: generation,
		AcquiredAt: time.Now(),
		Segments:   pinned,
		manager:    m,
	}

	m.snapshotsMu.Lock()
	m.activeSnapshots[snap.ID] = snap
	m.snapshotsMu.Unlock()

	m.logger.Debug("snapshot acquired",
		"snapshot_id", snap.ID,
		"generation", snap.Generation,
		"segments", len(pinned),
	)

	return snap, nil
}

// UpdateGeneration publishes a freshly committed generation and its
// segment set, returning the IDs that became reclaimable (dropped from
// the manifest and pinned by no snapshot).
func (m *Manager) UpdateGeneration(newGeneration uint64, newSegmentIDs []string) []string {
	m.generationMu.Lock()
	defer m.generationMu.Unlock()

	if newGeneration <= m.currentGeneration {
		panic(fmt.Sprintf("snapshot: generation must be monotonically increasing: current=%d, new=%d",
			m.currentGeneration, newGeneration))
	}

	next := make(map[string]*SegmentRef, len(newSegmentIDs))
	keep := make(map[string]bool, len(newSegmentIDs))
	for _, id := range newSegmentIDs {
		keep[id] = true
		if existing, ok := m.currentSegments[id]; ok {
			// Carried over; snapshots pinning it keep their counts.
			next[id] = existing
		} else {
			ref := NewSegmentRef(id)
			ref.SetInManifest(true)
			next[id] = ref
		}
	}

	var reclaimable []string
	for id, ref := range m.currentSegments {
		if !keep[id] {
			ref.SetInManifest(false)
			if ref.CanReclaim() {
				reclaimable = append(reclaimable, id)
			}
		}
	}

	m.currentGeneration = newGeneration
	m.currentSegments = next

	m.logger.Info("generation published",
		"generation", newGeneration,
		"segments", len(newSegmentIDs),
		"reclaimable", len(reclaimable),
	)

	return reclaimable
}

// CurrentGeneration returns the generation new snapshots would observe.
func (m *Manager) CurrentGeneration() uint64 {
	m.generationMu.RLock()
	defer m.generationMu.RUnlock()
	return m.currentGeneration
}

// ActiveSnapshotCount returns how many snapshots are currently held.
func (m *Manager) ActiveSnapshotCount() int {
	m.snapshotsMu.Lock()
	defer m.snapshotsMu.Unlock()
	return len(m.activeSnapshots)
}

// SegmentRefCount reports a segment's pin count, or -1 if the current
// generation does not know the segment.
func (m *Manager) SegmentRefCount(segmentID string) int64 {
	m.generationMu.RLock()
	defer m.generationMu.RUnlock()
	if ref, ok := m.currentSegments[segmentID]; ok {
		return ref.RefCount()
	}
	return -1
}

// Reclaimable lists the segments that could be deleted right now.
func (m *Manager) Reclaimable() []string {
	m.generationMu.RLock()
	defer m.generationMu.RUnlock()

	var ids []string
	for id, ref := range m.currentSegments {
		if ref.CanReclaim() {
			ids = append(ids, id)
		}
	}
	return ids
}

// DetectLeaks returns snapshots held longer than LeakThreshold.
func (m *Manager) DetectLeaks() []*Snapshot {
	if m.LeakThreshold <= 0 {
		return nil
	}

	m.snapshotsMu.Lock()
	defer m.snapshotsMu.Unlock()

	var leaks []*Snapshot
	for _, snap := range m.activeSnapshots {
		if snap.HeldDuration() > m.LeakThreshold {
			leaks = append(leaks, snap)
		}
	}
	return leaks
}

// releaseSnapshot drops snap from the live set; called by Snapshot.Release.
func (m *Manager) releaseSnapshot(snap *Snapshot) {
	m.snapshotsMu.Lock()
	delete(m.activeSnapshots, snap.ID)
	m.snapshotsMu.Unlock()

	m.logger.Debug("snapshot released",
		"snapshot_id", snap.ID,
		"generation", snap.Generation,
		"held_duration", snap.HeldDuration(),
	)
}
