// Package server exposes the HTTP API and owns the per-index runtime
// state (schema, writer, snapshots, committer) behind it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"lexisearch/internal/analysis"
	"lexisearch/internal/commit"
	"lexisearch/internal/index"
	"lexisearch/internal/indexing"
	"lexisearch/internal/recovery"
	"lexisearch/internal/snapshot"
)

var (
	ErrIndexNotFound = errors.New("index not found")
	ErrIndexExists   = errors.New("index already exists")
	ErrWriterBusy    = errors.New("writer is held by another operation")
	ErrIndexEmpty    = errors.New("no documents to commit")
)

// IndexInstance is one index's live state inside the server process.
type IndexInstance struct {
	Name     string
	Dir      *index.IndexDir
	Schema   *index.Schema
	Registry *analysis.Registry

	// One writer at a time; writerMu guards the slot, not the writer.
	writerMu sync.Mutex
	writer   *indexing.Writer

	// Snapshots isolates readers from commits and merges.
	Snapshots *snapshot.Manager

	// Committer turns the write buffer into durable generations.
	Committer *commit.Committer

	manifestMu      sync.RWMutex
	currentManifest *index.Manifest // nil until the first commit

	logger *slog.Logger
}

// IndexManager owns every index hosted by this process.
type IndexManager struct {
	rootDir  *index.RootDir
	logger   *slog.Logger
	registry *analysis.Registry

	mu      sync.RWMutex
	indexes map[string]*IndexInstance
}

// NewIndexManager opens (and crash-recovers) every index under dataDir.
func NewIndexManager(dataDir string, logger *slog.Logger) (*IndexManager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rootDir := index.NewRootDir(dataDir)
	if err := rootDir.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure root directories: %w", err)
	}

	mgr := &IndexManager{
		rootDir:  rootDir,
		logger:   logger,
		registry: analysis.NewRegistry(),
		indexes:  make(map[string]*IndexInstance),
	}

	if err := mgr.loadExistingIndexes(); err != nil {
		return nil, fmt.Errorf("load existing indexes: %w", err)
	}

	return mgr, nil
}

// loadExistingIndexes opens everything found on disk; an index that fails
// to open is logged and skipped rather than taking the server down.
func (m *IndexManager) loadExistingIndexes() error {
	names, err := m.rootDir.ListIndexes()
	if err != nil {
		return err
	}

	for _, name := range names {
		m.logger.Info("loading index", "name", name)
		inst, err := m.openIndex(name)
		if err != nil {
			m.logger.Error("failed to load index", "name", name, "error", err)
			continue
		}
		m.indexes[name] = inst
		m.logger.Info("index loaded",
			"name", name,
			"generation", inst.Snapshots.CurrentGeneration(),
		)
	}
	return nil
}

// openIndex loads an index's schema, runs crash recovery, and builds its
// runtime state.
func (m *IndexManager) openIndex(name string) (*IndexInstance, error) {
	idxDir := m.rootDir.IndexDir(name)

	schema, err := index.LoadSchema(idxDir)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	recoveryOpts := recovery.DefaultOptions()
	recoveryOpts.Logger = m.logger.With("index", name, "phase", "recovery")
	result, err := recovery.Recover(idxDir, recoveryOpts)
	if err != nil {
		return nil, fmt.Errorf("recovery: %w", err)
	}

	var segmentIDs []string
	if result.Manifest != nil {
		segmentIDs = make([]string, len(result.Manifest.Segments))
		for i, seg := range result.Manifest.Segments {
			segmentIDs[i] = seg.ID
		}
	}

	snapLogger := m.logger.With("index", name, "component", "snapshot")
	snapMgr := snapshot.NewManager(result.Generation, segmentIDs, snapLogger)

	commitOpts := commit.Options{
		SchemaVersion: schema.Version,
		Logger:        m.logger.With("index", name, "component", "commit"),
	}
	committer := commit.NewCommitter(idxDir, commitOpts)

	return &IndexInstance{
		Name:            name,
		Dir:             idxDir,
		Schema:          schema,
		Registry:        m.registry,
		Snapshots:       snapMgr,
		Committer:       committer,
		currentManifest: result.Manifest,
		logger:          m.logger.With("index", name),
	}, nil
}

// CreateIndex validates the schema, lays out the directory, and registers
// a fresh (generation 0) index.
func (m *IndexManager) CreateIndex(name string, schema *index.Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.indexes[name]; exists {
		return ErrIndexExists
	}

	if err := schema.Validate(); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	schema.CreatedAt = time.Now().UTC()
	if schema.Version == 0 {
		schema.Version = 1
	}

	idxDir := m.rootDir.IndexDir(name)
	if err := idxDir.EnsureDirectories(); err != nil {
		return fmt.Errorf("create index directories: %w", err)
	}

	if err := index.WriteSchema(idxDir, schema); err != nil {
		_ = os.RemoveAll(idxDir.Root)
		return fmt.Errorf("write schema: %w", err)
	}

	snapLogger := m.logger.With("index", name, "component", "snapshot")
	snapMgr := snapshot.NewManager(0, nil, snapLogger)

	commitOpts := commit.Options{
		SchemaVersion: schema.Version,
		Logger:        m.logger.With("index", name, "component", "commit"),
	}
	committer := commit.NewCommitter(idxDir, commitOpts)

	inst := &IndexInstance{
		Name:      name,
		Dir:       idxDir,
		Schema:    schema,
		Registry:  m.registry,
		Snapshots: snapMgr,
		Committer: committer,
		logger:    m.logger.With("index", name),
	}

	m.indexes[name] = inst
	m.logger.Info("index created", "name", name)
	return nil
}

// DeleteIndex removes an index and its data; it refuses while readers
// still hold snapshots.
func (m *IndexManager) DeleteIndex(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, exists := m.indexes[name]
	if !exists {
		return ErrIndexNotFound
	}

	if inst.Snapshots.ActiveSnapshotCount() > 0 {
		return fmt.Errorf("cannot delete index with %d active readers", inst.Snapshots.ActiveSnapshotCount())
	}

	if err := os.RemoveAll(inst.Dir.Root); err != nil {
		return fmt.Errorf("remove index directory: %w", err)
	}

	delete(m.indexes, name)
	m.logger.Info("index deleted", "name", name)
	return nil
}

// GetIndex looks up a loaded index by name.
func (m *IndexManager) GetIndex(name string) (*IndexInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, exists := m.indexes[name]
	if !exists {
		return nil, ErrIndexNotFound
	}
	return inst, nil
}

// ListIndexes names every loaded index.
func (m *IndexManager) ListIndexes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.indexes))
	for name := range m.indexes {
		names = append(names, name)
	}
	return names
}

// AcquireWriter claims the index's single writer slot. The caller must
// pair it with ReleaseWriter.
func (inst *IndexInstance) AcquireWriter() (*indexing.Writer, error) {
	inst.writerMu.Lock()
	if inst.writer != nil {
		inst.writerMu.Unlock()
		return nil, ErrWriterBusy
	}
	w := indexing.NewWriter(inst.Schema, inst.Registry)
	inst.writer = w
	inst.writerMu.Unlock()
	return w, nil
}

// ReleaseWriter gives the writer slot back.
func (inst *IndexInstance) ReleaseWriter() {
	inst.writerMu.Lock()
	if inst.writer != nil {
		inst.writer.Release()
		inst.writer = nil
	}
	inst.writerMu.Unlock()
}

// IngestDocuments buffers docs into the held writer.
func (inst *IndexInstance) IngestDocuments(docs []indexing.Document) error {
	inst.writerMu.Lock()
	w := inst.writer
	inst.writerMu.Unlock()

	if w == nil {
		return ErrWriterBusy
	}

	return w.AddDocuments(docs)
}

// Commit flushes the write buffer into a new segment, publishes the next
// generation, reclaims whatever that frees, and resets the buffer.
func (inst *IndexInstance) Commit(ctx context.Context) (*commit.CommitResult, error) {
	inst.writerMu.Lock()
	w := inst.writer
	inst.writerMu.Unlock()

	if w == nil {
		return nil, ErrWriterBusy
	}

	buf := w.Buffer()
	if buf.DocCount == 0 {
		return nil, ErrIndexEmpty
	}

	segData := buildSegmentData(buf)

	inst.manifestMu.RLock()
	currentManifest := inst.currentManifest
	inst.manifestMu.RUnlock()

	result, err := inst.Committer.Commit(ctx, currentManifest, segData)
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	newManifest, err := index.LoadManifest(inst.Dir, result.Generation)
	if err != nil {
		return nil, fmt.Errorf("load new manifest: %w", err)
	}

	segmentIDs := make([]string, len(newManifest.Segments))
	for i, seg := range newManifest.Segments {
		segmentIDs[i] = seg.ID
	}
	reclaimable := inst.Snapshots.UpdateGeneration(result.Generation, segmentIDs)

	for _, segID := range reclaimable {
		segDir := inst.Dir.SegmentDir(segID)
		if err := os.RemoveAll(segDir); err != nil {
			inst.logger.Warn("failed to reclaim segment", "segment", segID, "error", err)
		}
	}

	inst.manifestMu.Lock()
	inst.currentManifest = newManifest
	inst.manifestMu.Unlock()

	w.Abort()

	inst.logger.Info("commit complete",
		"generation", result.Generation,
		"segment", result.SegmentID,
		"duration", result.Duration,
	)

	return result, nil
}

// buildSegmentData renders the write buffer into segment files. The
// segment file formats are JSON for now; the binary FST/postings formats
// slot in behind the same file names.
func buildSegmentData(buf *indexing.WriteBuffer) *commit.SegmentData {
	files := make(map[string][]byte)

	files["fst.bin"] = serializeTermDictionary(buf)
	files["postings.bin"] = serializePostings(buf)
	files["stored.bin"] = serializeStoredFields(buf)
	files["meta.json"] = serializeSegmentMeta(buf)

	return &commit.SegmentData{
		Files:         files,
		DocCount:      uint32(buf.DocCount),
		DocCountAlive: uint32(buf.DocCount),
		DelCount:      0,
		MinDocID:      0,
		MaxDocID:      uint64(buf.NextDocID),
	}
}

func serializeTermDictionary(buf *indexing.WriteBuffer) []byte {
	type termEntry struct {
		Field string `json:"field"`
		Term  string `json:"term"`
		Count int    `json:"count"`
	}
	var entries []termEntry
	for field, terms := range buf.InvertedIndex {
		for term, pl := range terms {
			entries = append(entries, termEntry{
				Field: field,
				Term:  term,
				Count: len(pl.Entries),
			})
		}
	}
	data, _ := encodeJSON(entries)
	return data
}

func serializePostings(buf *indexing.WriteBuffer) []byte {
	data, _ := encodeJSON(buf.InvertedIndex)
	return data
}

func serializeStoredFields(buf *indexing.WriteBuffer) []byte {
	data, _ := encodeJSON(buf.StoredFields)
	return data
}

func serializeSegmentMeta(buf *indexing.WriteBuffer) []byte {
	meta := map[string]interface{}{
		"doc_count":  buf.DocCount,
		"term_count": buf.TermCount,
	}
	data, _ := encodeJSON(meta)
	return data
}

// IndexInfo summarizes an index for the status API.
func (inst *IndexInstance) IndexInfo() map[string]interface{} {
	inst.manifestMu.RLock()
	manifest := inst.currentManifest
	inst.manifestMu.RUnlock()

	info := map[string]interface{}{
		"name":             inst.Name,
		"generation":       inst.Snapshots.CurrentGeneration(),
		"active_snapshots": inst.Snapshots.ActiveSnapshotCount(),
		"schema_version":   inst.Schema.Version,
		"fields":           len(inst.Schema.Fields),
	}

	if manifest != nil {
		info["segments"] = len(manifest.Segments)
		info["total_docs"] = manifest.TotalDocs
		info["total_docs_alive"] = manifest.TotalDocsAlive
		info["total_size_bytes"] = manifest.TotalSizeBytes
	} else {
		info["segments"] = 0
		info["total_docs"] = 0
	}

	inst.writerMu.Lock()
	if inst.writer != nil {
		buf := inst.writer.Buffer()
		info["buffer_docs"] = buf.DocCount
		info["buffer_memory_bytes"] = buf.MemoryUsed()
	}
	inst.writerMu.Unlock()

	return info
}
