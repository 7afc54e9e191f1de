package fs

import (
	"errors"
	"os"
	"sync"

	"github.com/bft-labs/carconsole/pkg/layout"
)

// LayoutStore reads and writes a layout document file and remembers the
// last document that parsed cleanly.
type LayoutStore struct {
	path   string
	format layout.Format

	mu       sync.Mutex
	lastGood *layout.Document
}

// NewLayoutStore creates a store for path. The format follows the file
// extension.
func NewLayoutStore(path string) *LayoutStore {
	return &LayoutStore{path: path, format: layout.FormatFromPath(path)}
}

// Path returns the layout file path.
func (s *LayoutStore) Path() string { return s.path }

// Load parses the layout file. A missing file yields layout.Default() and
// exists == false.
func (s *LayoutStore) Load() (doc *layout.Document, exists bool, err error) {
	doc, err = layout.ParseFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			doc = layout.Default()
			s.remember(doc)
			return doc, false, nil
		}
		return nil, true, err
	}
	s.remember(doc)
	return doc, true, nil
}

// Reload parses the file again. On failure it returns the last document
// that parsed cleanly together with the error, so callers can keep
// rendering while the user fixes the file.
func (s *LayoutStore) Reload() (*layout.Document, error) {
	doc, err := layout.ParseFile(s.path)
	if err != nil {
		return s.LastGood(), err
	}
	s.remember(doc)
	return doc, nil
}

// LastGood returns a copy of the last cleanly parsed document, or nil.
func (s *LayoutStore) LastGood() *layout.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastGood == nil {
		return nil
	}
	return s.lastGood.Clone()
}

// Save serializes doc in the store's format and writes it atomically.
func (s *LayoutStore) Save(doc *layout.Document) error {
	data, err := layout.Marshal(doc, s.format)
	if err != nil {
		return err
	}
	if err := writeAtomic(s.path, data, 0o644); err != nil {
		return err
	}
	s.remember(doc)
	return nil
}

func (s *LayoutStore) remember(doc *layout.Document) {
	s.mu.Lock()
	s.lastGood = doc.Clone()
	s.mu.Unlock()
}
