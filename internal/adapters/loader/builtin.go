package loader

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bft-labs/carconsole/pkg/plugin"
)

// BuiltinScheme prefixes the paths of compiled-in plugins.
const BuiltinScheme = "builtin:"

// BuiltinPath returns the load path of the compiled-in plugin name.
func BuiltinPath(name string) string {
	return BuiltinScheme + name
}

// Builtin serves plugins linked into the binary.
type Builtin struct {
	mu      sync.RWMutex
	entries map[string]builtinModule
}

// NewBuiltin returns an empty builtin loader.
func NewBuiltin() *Builtin {
	return &Builtin{entries: make(map[string]builtinModule)}
}

// Register makes factory loadable as BuiltinPath(m.Name). An empty ABI
// tag is filled with the host's ABI version.
func (b *Builtin) Register(m plugin.Manifest, factory plugin.Factory) {
	if m.ABI == "" {
		m.ABI = plugin.ABIVersion
	}
	b.mu.Lock()
	b.entries[m.Name] = builtinModule{manifest: m, factory: factory}
	b.mu.Unlock()
}

// Names returns the registered plugin names, sorted.
func (b *Builtin) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.entries))
	for n := range b.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Paths returns the load path of every registered plugin, sorted by name.
func (b *Builtin) Paths() []string {
	names := b.Names()
	for i, n := range names {
		names[i] = BuiltinPath(n)
	}
	return names
}

// Open implements plugin.ModuleLoader.
func (b *Builtin) Open(path string) (plugin.Module, error) {
	name, ok := strings.CutPrefix(path, BuiltinScheme)
	if !ok {
		return nil, fmt.Errorf("not a builtin path: %q", path)
	}
	b.mu.RLock()
	m, ok := b.entries[name]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no builtin plugin named %q", name)
	}
	return m, nil
}

type builtinModule struct {
	manifest plugin.Manifest
	factory  plugin.Factory
}

func (m builtinModule) Manifest() plugin.Manifest { return m.manifest }

func (m builtinModule) Factory() (plugin.Factory, error) {
	if m.factory == nil {
		return nil, plugin.ErrSymbolMissing
	}
	return m.factory, nil
}

func (builtinModule) Close() error { return nil }
