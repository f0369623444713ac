// Package docstore persists the discovery document: the single accumulator of
// facts the validation pipeline gathers from the source Cloud Director, kept
// on disk so a rerun or a manual audit can inspect partial progress.
package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultFile is the default discovery document filename.
const DefaultFile = ".nsx-v2t-discovery.json"

// documentSchema is the JSON Schema an on-disk document must satisfy. It pins
// the top-level shape so a truncated or hand-mangled file fails loudly
// instead of silently defaulting.
const documentSchema = `{
  "type": "object",
  "properties": {
    "runID": {"type": "string"},
    "Organization": {"type": "object"},
    "sourceOrgVDC": {"type": "object"},
    "targetOrgVDC": {"type": "object"},
    "sourceProviderVDC": {"type": "object"},
    "targetProviderVDC": {"type": "object"},
    "sourceExternalNetwork": {"type": "object"},
    "targetExternalNetwork": {"type": "object"},
    "dummyExternalNetwork": {"type": "object"},
    "sourceEdgeGateway": {"type": "object"},
    "sourceOrgVDCNetworks": {"type": "array"}
  }
}`

// Document maps logical fact names to the structured values discovered from
// the remote system. Values stay raw; normalization is the consuming check's
// responsibility, not the store's.
type Document map[string]json.RawMessage

// Store is a file-backed document store. The pipeline is single-threaded so
// no locking is done, but every write replaces the file atomically so an
// external reader always sees a complete, self-consistent document.
type Store struct {
	path string
}

// New returns a store backed by path. The file need not exist yet.
func New(path string) *Store {
	if path == "" {
		path = DefaultFile
	}
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Read loads the full document. A missing file is an empty document; an
// unreadable or corrupt file is an error.
func (s *Store) Read() (Document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read discovery document %s: %w", s.path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("discovery document %s is corrupt: %w", s.path, err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("discovery document %s is corrupt: %w", s.path, err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("discovery document %s is corrupt: %s", s.path, result.Errors()[0])
	}
	return doc, nil
}

// Write merges key into the document and persists it: a scoped
// read-modify-write so unrelated keys are never truncated.
func (s *Store) Write(key string, value any) error {
	doc, err := s.Read()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	doc[key] = raw
	return s.save(doc)
}

// Get decodes the value stored under key into out. Returns os.ErrNotExist
// when the key has not been written.
func (s *Store) Get(key string, out any) error {
	doc, err := s.Read()
	if err != nil {
		return err
	}
	raw, ok := doc[key]
	if !ok {
		return fmt.Errorf("discovery document has no %q: %w", key, os.ErrNotExist)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// Reset removes the on-disk document so a fresh run starts empty.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove discovery document: %w", err)
	}
	return nil
}

// save writes the complete document to a temp file and renames it into
// place, so a concurrent external reader never observes a partial write.
func (s *Store) save(doc Document) error {
	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal discovery document: %w", err)
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write discovery document: %w", err)
	}
	if err := os.Rename(tempFile, s.path); err != nil {
		return fmt.Errorf("failed to replace discovery document: %w", err)
	}
	return nil
}
