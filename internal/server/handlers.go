package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"lexisearch/internal/engine"
	"lexisearch/internal/fuzzy"
	"lexisearch/internal/index"
	"lexisearch/internal/indexing"
	"lexisearch/internal/query"
	"lexisearch/internal/scoring"
)

// Handler is the HTTP surface over an IndexManager.
type Handler struct {
	mgr    *IndexManager
	logger *slog.Logger
}

// NewHandler wraps mgr; a nil logger falls back to slog.Default().
func NewHandler(mgr *IndexManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{mgr: mgr, logger: logger}
}

// RegisterRoutes mounts the API on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Index lifecycle.
	mux.HandleFunc("GET /indexes", h.handleListIndexes)
	mux.HandleFunc("POST /indexes", h.handleCreateIndex)
	mux.HandleFunc("GET /indexes/{name}", h.handleGetIndex)
	mux.HandleFunc("DELETE /indexes/{name}", h.handleDeleteIndex)

	// Document ingestion and deletion.
	mux.HandleFunc("POST /indexes/{name}/documents", h.handleIngestDocuments)
	mux.HandleFunc("DELETE /indexes/{name}/documents", h.handleDeleteDocument)

	// Commit.
	mux.HandleFunc("POST /indexes/{name}/commit", h.handleCommit)

	// Search.
	mux.HandleFunc("POST /indexes/{name}/search", h.handleSearch)
}

// lookupIndex resolves {name} from the request path, writing the error
// response itself when the index is missing. ok=false means the response
// has already been written.
func (h *Handler) lookupIndex(w http.ResponseWriter, r *http.Request) (inst *IndexInstance, ok bool) {
	name := r.PathValue("name")
	inst, err := h.mgr.GetIndex(name)
	if err != nil {
		if errors.Is(err, ErrIndexNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return inst, true
}

func (h *Handler) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	names := h.mgr.ListIndexes()

	infos := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		inst, err := h.mgr.GetIndex(name)
		if err != nil {
			continue
		}
		infos = append(infos, inst.IndexInfo())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"indexes": infos,
	})
}

func (h *Handler) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string           `json:"name"`
		DefaultAnalyzer string           `json:"default_analyzer"`
		Fields          []index.FieldDef `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "index name is required")
		return
	}

	schema := &index.Schema{
		DefaultAnalyzer: req.DefaultAnalyzer,
		Fields:          req.Fields,
	}

	if err := h.mgr.CreateIndex(req.Name, schema); err != nil {
		if errors.Is(err, ErrIndexExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"status": "created",
		"name":   req.Name,
	})
}

func (h *Handler) handleGetIndex(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupIndex(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, inst.IndexInfo())
}

func (h *Handler) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.mgr.DeleteIndex(name); err != nil {
		if errors.Is(err, ErrIndexNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"name":   name,
	})
}

func (h *Handler) handleIngestDocuments(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupIndex(w, r)
	if !ok {
		return
	}

	var req struct {
		Documents []map[string]interface{} `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "no documents provided")
		return
	}

	// Claim the writer; it stays held on the instance until commit.
	if _, err := inst.AcquireWriter(); err != nil {
		if errors.Is(err, ErrWriterBusy) {
			writeError(w, http.StatusServiceUnavailable, "writer is busy, retry later")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	docs := make([]indexing.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = indexing.Document{Fields: d}
	}

	if err := inst.IngestDocuments(docs); err != nil {
		inst.ReleaseWriter()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "accepted",
		"documents_received": len(docs),
		"errors":             []string{},
	})
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupIndex(w, r)
	if !ok {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	// A deletion needs a live writer; claim one if none is held yet.
	inst.writerMu.Lock()
	writer := inst.writer
	inst.writerMu.Unlock()

	if writer == nil {
		var err error
		writer, err = inst.AcquireWriter()
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "writer is busy, retry later")
			return
		}
	}

	if err := writer.DeleteDocument(req.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"id":     req.ID,
	})
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupIndex(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	result, err := inst.Commit(ctx)
	if err != nil {
		if errors.Is(err, ErrIndexEmpty) {
			writeError(w, http.StatusBadRequest, "no documents to commit")
			return
		}
		if errors.Is(err, ErrWriterBusy) {
			writeError(w, http.StatusServiceUnavailable, "no active writer, ingest documents first")
			return
		}
		writeError(w, http.StatusInternalServerError, "commit failed: "+err.Error())
		return
	}

	inst.ReleaseWriter()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "committed",
		"generation":  result.Generation,
		"segment_id":  result.SegmentID,
		"duration_ms": result.Duration.Milliseconds(),
	})
}

// searchRequest is the body of POST /indexes/{name}/search. The query is
// a single flat clause; max_distance/prefix_length apply to type "fuzzy".
type searchRequest struct {
	Query struct {
		Type         string `json:"type"`
		Field        string `json:"field"`
		Value        string `json:"value"`
		MaxDistance  int    `json:"max_distance"`
		PrefixLength int    `json:"prefix_length"`
	} `json:"query"`
	TopK    int  `json:"top_k"`
	Explain bool `json:"explain"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupIndex(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.TopK <= 0 {
		req.TopK = 10
	}

	start := time.Now()

	// Pin a generation so the read is stable against concurrent commits.
	snap, err := inst.Snapshots.Acquire()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to acquire snapshot: "+err.Error())
		return
	}
	defer func() { _ = snap.Release() }()

	execCtx := engine.NewExecutionContext(30*time.Second, 10000, 1000)

	// Committed-segment search (FST + postings files) is not wired yet;
	// queries currently run against the live write buffer.
	hits, err := executeSearch(inst, req, execCtx, h.logger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed: "+err.Error())
		return
	}

	took := time.Since(start)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"took_ms":    took.Milliseconds(),
		"total_hits": len(hits),
		"generation": snap.Generation,
		"timed_out":  execCtx.TimedOut,
		"hits":       hits,
	})
}

// executeSearch expands the query clause into matching terms, scores
// their postings with BM25, and formats the top-K hits.
func executeSearch(inst *IndexInstance, req searchRequest, execCtx *engine.ExecutionContext, logger *slog.Logger) ([]map[string]interface{}, error) {
	field := req.Query.Field
	value := req.Query.Value

	if field == "" || value == "" {
		return nil, nil
	}

	if err := execCtx.CheckLimits(); err != nil {
		return nil, err
	}

	inst.writerMu.Lock()
	writer := inst.writer
	inst.writerMu.Unlock()

	if writer == nil {
		return nil, nil
	}

	buf := writer.Buffer()
	fieldMap, ok := buf.InvertedIndex[field]
	if !ok {
		return nil, nil
	}

	scorer := scoring.NewBM25Scorer(int64(buf.DocCount), float32(buf.TermCount)/float32(max(buf.DocCount, 1)))
	collector := engine.NewTopKCollector(req.TopK)

	// collectTerm scores one expanded term's postings into the collector.
	// boost is 1.0 for exact/prefix expansion; fuzzy expansion passes the
	// matcher's similarity-derived boost so near matches rank below exact
	// ones.
	collectTerm := func(term string, boost float32) {
		pl := fieldMap[term]
		if pl == nil {
			return
		}
		idf := scorer.IDF(int64(len(pl.Entries)))

		docIDs := make([]uint32, len(pl.Entries))
		freqs := make([]uint32, len(pl.Entries))
		for i, e := range pl.Entries {
			docIDs[i] = e.DocID
			freqs[i] = e.Freq
		}

		it := engine.NewSlicePostingsIterator(docIDs, freqs)
		for it.Next() {
			score := scorer.Score(it.Freq(), 100, idf) * boost // approximate doc length
			collector.Collect(it.DocID(), score)
		}
	}

	var matchingTerms []string
	switch req.Query.Type {
	case "term":
		if _, ok := fieldMap[value]; ok {
			matchingTerms = []string{value}
		}
	case "prefix":
		for term := range fieldMap {
			if strings.HasPrefix(term, value) {
				matchingTerms = append(matchingTerms, term)
				execCtx.TermsMatched++
				if err := execCtx.CheckLimits(); err != nil {
					break
				}
			}
		}
	case "fuzzy":
		// The buffer's term map has no order; materialize a sorted term
		// dictionary for the fuzzy enumerator's seekable cursor contract.
		terms := make([][]byte, 0, len(fieldMap))
		for term := range fieldMap {
			terms = append(terms, []byte(term))
		}
		sort.Slice(terms, func(i, j int) bool { return bytes.Compare(terms[i], terms[j]) < 0 })
		docFreq := make([]int64, len(terms))
		for i, term := range terms {
			docFreq[i] = int64(len(fieldMap[string(term)].Entries))
		}

		cur, err := index.NewInMemoryTermCursor(terms, docFreq)
		if err != nil {
			return nil, err
		}
		fq := &query.FuzzyQuery{
			Field:        field,
			Term:         value,
			MaxDistance:  req.Query.MaxDistance,
			PrefixLength: req.Query.PrefixLength,
		}
		floor := &fuzzy.CompetitiveFloor{}
		// boostWindow tracks the best req.TopK fuzzy boosts on the
		// enumerator's own (0,1] scale. collector.MinScore() lives on the
		// BM25 document-score scale (unbounded, easily > 1); feeding it to
		// floor directly would compare across scales and collapse the edit
		// budget on the very first hit.
		boostWindow := engine.NewBoostFloor(req.TopK)
		err = engine.RunFuzzyQuery(cur, fq, floor, execCtx, logger, func(term []byte, boost float32) error {
			t := string(term)
			matchingTerms = append(matchingTerms, t)
			collectTerm(t, boost)
			floor.Set(boostWindow.Observe(boost))
			return nil
		})
		if err != nil {
			return nil, err
		}
	default:
		// Unknown types degrade to a term query.
		if _, ok := fieldMap[value]; ok {
			matchingTerms = []string{value}
		}
	}

	if len(matchingTerms) == 0 {
		return nil, nil
	}

	// The fuzzy path already collected per-term with its own boosts.
	if req.Query.Type != "fuzzy" {
		for _, term := range matchingTerms {
			collectTerm(term, 1.0)
		}
	}

	results := collector.Results()
	hits := make([]map[string]interface{}, len(results))

	// Invert the ID mapping once so hits can carry external IDs.
	internalToExternal := make(map[uint32]string, len(buf.ExternalToInternal))
	for ext, internal := range buf.ExternalToInternal {
		internalToExternal[internal] = ext
	}

	for i, doc := range results {
		hit := map[string]interface{}{
			"doc_id": doc.DocID,
			"score":  doc.Score,
		}
		if extID, ok := internalToExternal[doc.DocID]; ok {
			hit["id"] = extID
		}

		if stored, ok := buf.StoredFields[doc.DocID]; ok {
			fields := make(map[string]string, len(stored))
			for k, v := range stored {
				fields[k] = string(v)
			}
			hit["stored_fields"] = fields
		}

		if req.Explain {
			for _, term := range matchingTerms {
				pl := fieldMap[term]
				if pl == nil {
					continue
				}
				var tf uint32
				for _, e := range pl.Entries {
					if e.DocID == doc.DocID {
						tf = e.Freq
						break
					}
				}
				hit["explanation"] = scorer.Explain(field, term, tf, 100, int64(len(pl.Entries)))
				break
			}
		}

		hits[i] = hit
	}

	return hits, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
		},
	})
}
