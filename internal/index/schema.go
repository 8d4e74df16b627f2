package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"lexisearch/internal/storage"
)

// Field types a schema may declare.
const (
	FieldTypeText       = "text"
	FieldTypeKeyword    = "keyword"
	FieldTypeStoredOnly = "stored_only"
)

// Built-in analyzer names.
const (
	AnalyzerStandard   = "standard"
	AnalyzerWhitespace = "whitespace"
	AnalyzerKeyword    = "keyword"
)

// Schema limits.
const (
	MaxFieldsPerSchema = 256
	MaxFieldNameLength = 255
	MaxAnalyzerCount   = 64
)

// Field names the engine claims for itself.
var reservedFieldNames = map[string]bool{
	"_id":     true,
	"_score":  true,
	"_source": true,
}

var (
	ErrSchemaCorrupt          = errors.New("schema checksum verification failed")
	ErrSchemaFieldLimit       = errors.New("schema exceeds maximum field count")
	ErrSchemaReservedField    = errors.New("field name is reserved")
	ErrSchemaDuplicateField   = errors.New("duplicate field name")
	ErrSchemaInvalidType      = errors.New("invalid field type")
	ErrSchemaInvalidAnalyzer  = errors.New("invalid analyzer")
	ErrSchemaFieldNameTooLong = errors.New("field name exceeds maximum length")
	ErrSchemaMissingAnalyzer  = errors.New("text field requires an analyzer")
)

// Schema is an index's immutable field definition set. Once written at
// index creation it never changes.
type Schema struct {
	Version         uint32           `json:"version"`
	CreatedAt       time.Time        `json:"created_at"`
	Fields          []FieldDef       `json:"fields"`
	DefaultAnalyzer string           `json:"default_analyzer"`
	Checksum        storage.Checksum `json:"checksum"`
}

// FieldDef declares one field: its type, analyzer, and storage options.
type FieldDef struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Analyzer    string `json:"analyzer,omitempty"`
	Stored      bool   `json:"stored"`
	Indexed     bool   `json:"indexed"`
	Positions   bool   `json:"positions,omitempty"`
	MultiValued bool   `json:"multi_valued,omitempty"`
}

// FieldID maps a field name to its ordinal in the schema, or -1.
func (s *Schema) FieldID(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Validate enforces the schema invariants: field count and name limits,
// no reserved or duplicate names, known types and analyzers, and the
// per-type constraints (text needs an analyzer, positions are text-only,
// stored_only is stored and unindexed).
func (s *Schema) Validate() error {
	if len(s.Fields) > MaxFieldsPerSchema {
		return fmt.Errorf("%w: %d fields (max %d)", ErrSchemaFieldLimit, len(s.Fields), MaxFieldsPerSchema)
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if reservedFieldNames[f.Name] {
			return fmt.Errorf("%w: %q", ErrSchemaReservedField, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %q", ErrSchemaDuplicateField, f.Name)
		}
		seen[f.Name] = true

		if len(f.Name) > MaxFieldNameLength {
			return fmt.Errorf("%w: %q (%d bytes, max %d)", ErrSchemaFieldNameTooLong, f.Name, len(f.Name), MaxFieldNameLength)
		}
		if err := validateFieldType(f.Type); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		if f.Analyzer != "" {
			if err := validateAnalyzer(f.Analyzer); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		if f.Type == FieldTypeText && f.Analyzer == "" {
			return fmt.Errorf("field %q: %w", f.Name, ErrSchemaMissingAnalyzer)
		}
		if f.Positions && f.Type != FieldTypeText {
			return fmt.Errorf("field %q: positions only allowed on text fields", f.Name)
		}
		if f.Type == FieldTypeStoredOnly {
			if f.Indexed {
				return fmt.Errorf("field %q: stored_only fields cannot be indexed", f.Name)
			}
			if !f.Stored {
				return fmt.Errorf("field %q: stored_only fields must be stored", f.Name)
			}
		}
	}

	if s.DefaultAnalyzer != "" {
		if err := validateAnalyzer(s.DefaultAnalyzer); err != nil {
			return fmt.Errorf("default_analyzer: %w", err)
		}
	}

	return nil
}

// MarshalSchema serializes s with its self-checksum filled in.
func MarshalSchema(s *Schema) ([]byte, error) {
	checksum, err := computeSchemaChecksum(s)
	if err != nil {
		return nil, fmt.Errorf("compute schema checksum: %w", err)
	}
	s.Checksum = checksum

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// UnmarshalSchema parses data and verifies the embedded checksum.
func UnmarshalSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	savedChecksum := s.Checksum
	computed, err := computeSchemaChecksum(&s)
	if err != nil {
		return nil, fmt.Errorf("compute schema checksum for verification: %w", err)
	}
	if computed != savedChecksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrSchemaCorrupt, savedChecksum, computed)
	}

	return &s, nil
}

// WriteSchema publishes an index's schema.json atomically, at index
// creation time only.
func WriteSchema(dir *IndexDir, s *Schema) error {
	data, err := MarshalSchema(s)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.tmp", dir.SchemaPath())
	if err := storage.WriteFileSync(tmpPath, data, storage.FilePerm); err != nil {
		return fmt.Errorf("write tmp schema: %w", err)
	}

	if err := os.Rename(tmpPath, dir.SchemaPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename schema: %w", err)
	}

	if err := storage.FsyncDir(dir.Root); err != nil {
		return fmt.Errorf("fsync index root after schema write: %w", err)
	}

	return nil
}

// LoadSchema reads and verifies schema.json.
func LoadSchema(dir *IndexDir) (*Schema, error) {
	data, err := os.ReadFile(dir.SchemaPath())
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return UnmarshalSchema(data)
}

func computeSchemaChecksum(s *Schema) (storage.Checksum, error) {
	saved := s.Checksum
	s.Checksum = ""
	defer func() { s.Checksum = saved }()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal for checksum: %w", err)
	}
	return storage.ComputeChecksum(data), nil
}

func validateFieldType(t string) error {
	switch t {
	case FieldTypeText, FieldTypeKeyword, FieldTypeStoredOnly:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrSchemaInvalidType, t)
	}
}

func validateAnalyzer(a string) error {
	switch a {
	case AnalyzerStandard, AnalyzerWhitespace, AnalyzerKeyword:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrSchemaInvalidAnalyzer, a)
	}
}
