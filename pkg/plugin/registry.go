package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bft-labs/carconsole/pkg/log"
)

// State is the runtime health of a loaded plugin.
type State int

const (
	StateActive State = iota
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateFaulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}

// Descriptor is a read-only snapshot of a loaded plugin.
type Descriptor struct {
	Name     string
	Version  string
	ABI      string
	Path     string
	LoadedAt time.Time
	State    State
	Fault    error

	// Plugin is the live capability object. Callers that can race with
	// Unload must go through Registry.Invoke instead.
	Plugin Plugin
}

type entry struct {
	desc   Descriptor
	module Module
	plugin Plugin

	// gate is held for the duration of every call into the plugin.
	gate   sync.Mutex
	closed bool
}

// LoadOption modifies a single Load call.
type LoadOption func(*loadOptions)

type loadOptions struct {
	replace bool
}

// Replace allows Load to swap out an already registered plugin of the
// same name. The new instance is fully initialised before the old one is
// torn down; if the new load fails the old plugin stays registered.
func Replace() LoadOption {
	return func(o *loadOptions) { o.replace = true }
}

// Registry owns every loaded plugin, keyed by name.
//
// All methods are safe for concurrent use. The Binder is called on the
// goroutine that invokes Unload, so hosts that keep a layout tree route
// Unload through their dispatch loop.
type Registry struct {
	loader ModuleLoader
	logger log.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	binder  Binder
}

// NewRegistry creates an empty registry that opens modules with loader.
func NewRegistry(loader ModuleLoader, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Registry{
		loader:  loader,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// SetBinder registers the collaborator notified on unload.
func (r *Registry) SetBinder(b Binder) {
	r.mu.Lock()
	r.binder = b
	r.mu.Unlock()
}

// Load opens the module at path, checks its ABI tag, creates the plugin
// through its factory, runs Init and registers it.
func (r *Registry) Load(path string, opts ...LoadOption) (Descriptor, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	mod, err := r.loader.Open(path)
	if err != nil {
		return Descriptor{}, &LoadError{Kind: OpenFailed, Path: path, Err: err}
	}

	e, err := r.prepare(path, mod, o.replace)
	if err != nil {
		if cerr := mod.Close(); cerr != nil {
			r.logger.Warn("module close after failed load",
				log.String("path", path), log.Err(cerr))
		}
		r.logger.Error("plugin load failed", log.String("path", path), log.Err(err))
		return Descriptor{}, err
	}

	name := e.desc.Name
	r.mu.Lock()
	old, exists := r.entries[name]
	if exists && !o.replace {
		r.mu.Unlock()
		r.teardown(e)
		return Descriptor{}, &LoadError{Kind: DuplicateName, Path: path, Name: name,
			Err: fmt.Errorf("%q is already loaded", name)}
	}
	r.entries[name] = e
	if !exists {
		r.order = append(r.order, name)
	}
	desc := e.snapshot()
	r.mu.Unlock()

	if exists {
		r.teardown(old)
		r.logger.Info("plugin replaced",
			log.String("plugin", name),
			log.String("old_version", old.desc.Version),
			log.String("version", e.desc.Version))
	} else {
		r.logger.Info("plugin loaded",
			log.String("plugin", name),
			log.String("version", e.desc.Version),
			log.String("path", path))
	}
	return desc, nil
}

// prepare runs every load step that can fail without touching the
// registry's state.
func (r *Registry) prepare(path string, mod Module, replace bool) (*entry, error) {
	man := mod.Manifest()
	if man.Name == "" {
		return nil, &LoadError{Kind: Incompatible, Path: path,
			Err: errors.New("module declares no name")}
	}
	if err := CheckABI(man.ABI); err != nil {
		return nil, &LoadError{Kind: Incompatible, Path: path, Name: man.Name, Err: err}
	}
	if !replace && r.Has(man.Name) {
		return nil, &LoadError{Kind: DuplicateName, Path: path, Name: man.Name,
			Err: fmt.Errorf("%q is already loaded", man.Name)}
	}

	factory, err := mod.Factory()
	if err != nil {
		return nil, &LoadError{Kind: SymbolMissing, Path: path, Name: man.Name, Err: err}
	}
	if factory == nil {
		return nil, &LoadError{Kind: SymbolMissing, Path: path, Name: man.Name, Err: ErrSymbolMissing}
	}
	p, err := build(factory)
	if err != nil {
		return nil, &LoadError{Kind: SymbolMissing, Path: path, Name: man.Name, Err: err}
	}

	if err := initPlugin(man.Name, p); err != nil {
		closePlugin(p)
		return nil, &LoadError{Kind: InitFailed, Path: path, Name: man.Name, Err: err}
	}

	return &entry{
		desc: Descriptor{
			Name:     man.Name,
			Version:  man.Version,
			ABI:      man.ABI,
			Path:     path,
			LoadedAt: r.now(),
			State:    StateActive,
		},
		module: mod,
		plugin: p,
	}, nil
}

func build(factory Factory) (p Plugin, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("factory panicked: %v", v)
		}
	}()
	p = factory()
	if p == nil {
		return nil, errors.New("factory returned nil")
	}
	return p, nil
}

func initPlugin(name string, p Plugin) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &InitError{Name: name, Panic: v}
		}
	}()
	if ierr := p.Init(); ierr != nil {
		return &InitError{Name: name, Err: ierr}
	}
	return nil
}

func closePlugin(p Plugin) error {
	c, ok := p.(Closer)
	if !ok {
		return nil
	}
	return c.Close()
}

// teardown waits for any in-flight call and releases the plugin and its
// module.
func (r *Registry) teardown(e *entry) {
	e.gate.Lock()
	defer e.gate.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if err := closePlugin(e.plugin); err != nil {
		r.logger.Warn("plugin close failed", log.String("plugin", e.desc.Name), log.Err(err))
	}
	if err := e.module.Close(); err != nil {
		r.logger.Warn("module close failed", log.String("plugin", e.desc.Name), log.Err(err))
	}
}

// Unload removes the named plugin, unbinds every panel that referenced
// it and releases its module after any in-flight call has returned.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unload %q: %w", name, ErrNotFound)
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	binder := r.binder
	r.mu.Unlock()

	unbound := 0
	if binder != nil {
		unbound = binder.UnbindPlugin(name)
	}
	r.teardown(e)

	r.logger.Info("plugin unloaded",
		log.String("plugin", name),
		log.Int("panels_unbound", unbound))
	return nil
}

// UnloadAll unloads every plugin in reverse load order.
func (r *Registry) UnloadAll() error {
	r.mu.RLock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.mu.RUnlock()

	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		if err := r.Unload(names[i]); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Invoke calls fn with the named plugin while holding its gate.
func (r *Registry) Invoke(name string, fn func(Plugin)) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("invoke %q: %w", name, ErrNotFound)
	}

	e.gate.Lock()
	defer e.gate.Unlock()
	if e.closed {
		return fmt.Errorf("invoke %q: %w", name, ErrNotFound)
	}
	fn(e.plugin)
	return nil
}

// MarkFaulted records a runtime fault. It returns true only for the first
// fault of a plugin instance.
func (r *Registry) MarkFaulted(name string, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok || e.desc.State == StateFaulted {
		return false
	}
	e.desc.State = StateFaulted
	e.desc.Fault = err
	return true
}

// Faulted reports whether the named plugin is registered and faulted.
func (r *Registry) Faulted(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return ok && e.desc.State == StateFaulted
}

// Fault returns the error recorded for a faulted plugin.
func (r *Registry) Fault(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return e.desc.Fault
	}
	return nil
}

// Active reports whether the named plugin is registered and healthy.
func (r *Registry) Active(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return ok && e.desc.State == StateActive
}

// Has reports whether a plugin with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Get returns the descriptor for name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.snapshot(), true
}

// List returns descriptors sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.snapshot())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (e *entry) snapshot() Descriptor {
	d := e.desc
	d.Plugin = e.plugin
	return d
}
