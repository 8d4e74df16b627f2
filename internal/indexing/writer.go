package indexing

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"lexisearch/internal/analysis"
	"lexisearch/internal/index"
)

var (
	ErrWriterLocked = errors.New("writer is already held by another caller")
)

// Document is a decoded JSON document awaiting indexing.
type Document struct {
	Fields map[string]interface{}
}

// Writer is an index's single writer. Exactly one Writer may be active
// per index; the server enforces that, Writer just tracks its own
// active/released state.
type Writer struct {
	schema   *index.Schema
	registry *analysis.Registry
	buffer   *WriteBuffer

	mu     sync.Mutex
	active bool
}

// NewWriter builds an active Writer over schema and registry.
func NewWriter(schema *index.Schema, registry *analysis.Registry) *Writer {
	return &Writer{
		schema:   schema,
		registry: registry,
		buffer:   NewWriteBuffer(),
		active:   true,
	}
}

// AddDocument analyzes and buffers one document, field by field per the
// schema.
func (w *Writer) AddDocument(doc Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return ErrWriterNotActive
	}

	externalID, err := extractExternalID(doc)
	if err != nil {
		return err
	}

	docID, err := w.buffer.AllocateDocID(externalID)
	if err != nil {
		return err
	}

	for _, fieldDef := range w.schema.Fields {
		val, exists := doc.Fields[fieldDef.Name]
		if !exists {
			continue
		}

		switch fieldDef.Type {
		case index.FieldTypeText:
			if err := w.indexTextField(fieldDef, docID, val); err != nil {
				return err
			}
		case index.FieldTypeKeyword:
			if err := w.indexKeywordField(fieldDef, docID, val); err != nil {
				return err
			}
		case index.FieldTypeStoredOnly:
			// nothing to index
		}

		if fieldDef.Stored {
			data, err := marshalFieldValue(val)
			if err != nil {
				return err
			}
			w.buffer.StoreField(docID, fieldDef.Name, data)
		}
	}

	return nil
}

// AddDocuments buffers docs in order, stopping at the first failure.
func (w *Writer) AddDocuments(docs []Document) error {
	for i, doc := range docs {
		if err := w.AddDocument(doc); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}

// DeleteDocument queues a deletion by external ID, applied at commit.
func (w *Writer) DeleteDocument(externalID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return ErrWriterNotActive
	}

	w.buffer.MarkDeleted(externalID)
	return nil
}

// DocCount is how many documents are buffered.
func (w *Writer) DocCount() int {
	return w.buffer.DocCount
}

// IsFull reports whether the buffer hit a limit and should be flushed.
func (w *Writer) IsFull() bool {
	return w.buffer.IsFull()
}

// Buffer exposes the buffer for segment building at commit time.
func (w *Writer) Buffer() *WriteBuffer {
	return w.buffer
}

// Abort throws away everything buffered since the last commit.
func (w *Writer) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer.Reset()
}

// Release deactivates the writer; further writes fail with
// ErrWriterNotActive.
func (w *Writer) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = false
}

func (w *Writer) indexTextField(fieldDef index.FieldDef, docID uint32, val interface{}) error {
	text, ok := val.(string)
	if !ok {
		return errors.New("text field value must be a string")
	}

	analyzerName := fieldDef.Analyzer
	if analyzerName == "" {
		analyzerName = w.schema.DefaultAnalyzer
	}
	if analyzerName == "" {
		analyzerName = "standard"
	}

	analyzer, err := w.registry.Get(analyzerName)
	if err != nil {
		return err
	}

	tokens := analyzer.Analyze(fieldDef.Name, text)

	termFreqs := make(map[string]uint32)
	termPositions := make(map[string][]uint32)
	for _, tok := range tokens {
		termFreqs[tok.Term]++
		if fieldDef.Positions {
			termPositions[tok.Term] = append(termPositions[tok.Term], uint32(tok.Position))
		}
	}

	for term, freq := range termFreqs {
		var positions []uint32
		if fieldDef.Positions {
			positions = termPositions[term]
		}
		w.buffer.AddPosting(fieldDef.Name, term, docID, freq, positions)
	}

	return nil
}

func (w *Writer) indexKeywordField(fieldDef index.FieldDef, docID uint32, val interface{}) error {
	switch v := val.(type) {
	case string:
		w.buffer.AddPosting(fieldDef.Name, v, docID, 1, nil)
	case []interface{}:
		if !fieldDef.MultiValued {
			return errors.New("field is not multi-valued but received array")
		}
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return errors.New("keyword array values must be strings")
			}
			w.buffer.AddPosting(fieldDef.Name, s, docID, 1, nil)
		}
	default:
		return errors.New("keyword field value must be a string or string array")
	}
	return nil
}

func extractExternalID(doc Document) (string, error) {
	idVal, ok := doc.Fields["id"]
	if !ok {
		return "", errors.New("document missing 'id' field")
	}
	id, ok := idVal.(string)
	if !ok {
		return "", errors.New("document 'id' must be a string")
	}
	return id, nil
}

func marshalFieldValue(val interface{}) ([]byte, error) {
	switch v := val.(type) {
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}
