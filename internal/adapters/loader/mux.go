package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bft-labs/carconsole/pkg/plugin"
)

// Mux dispatches Open to a loader chosen by the path: the builtin scheme
// first, then the file extension.
type Mux struct {
	builtin *Builtin
	byExt   map[string]plugin.ModuleLoader
}

// NewMux returns a mux serving builtin paths from b (which may be nil)
// and .lua and .so files.
func NewMux(b *Builtin) *Mux {
	if b == nil {
		b = NewBuiltin()
	}
	return &Mux{
		builtin: b,
		byExt: map[string]plugin.ModuleLoader{
			".lua": NewLua(),
			".so":  NewGoPlugin(),
		},
	}
}

// Builtin returns the builtin loader behind the mux.
func (m *Mux) Builtin() *Builtin { return m.builtin }

// Handle routes files with extension ext (including the dot) to l.
func (m *Mux) Handle(ext string, l plugin.ModuleLoader) {
	m.byExt[strings.ToLower(ext)] = l
}

// Supports reports whether path can be opened by some loader.
func (m *Mux) Supports(path string) bool {
	if strings.HasPrefix(path, BuiltinScheme) {
		return true
	}
	_, ok := m.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Open implements plugin.ModuleLoader.
func (m *Mux) Open(path string) (plugin.Module, error) {
	if strings.HasPrefix(path, BuiltinScheme) {
		return m.builtin.Open(path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := m.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("no loader for %q files", ext)
	}
	return l.Open(path)
}

// Discover lists the loadable modules in dir, sorted by file name. The
// directory is created when it does not exist.
func (m *Mux) Discover(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plugin dir: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read plugin dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if m.Supports(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
