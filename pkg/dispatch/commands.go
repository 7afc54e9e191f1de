package dispatch

import (
	"fmt"

	"github.com/bft-labs/carconsole/pkg/layout"
	"github.com/bft-labs/carconsole/pkg/plugin"
)

// Command is a change applied by the loop between ticks.
type Command func(l *Loop) error

// Edit applies a layout edit.
func Edit(e layout.Edit) Command {
	return func(l *Loop) error { return e.Apply(l.doc, l.reg) }
}

// Load loads a plugin module into the registry.
func Load(path string, opts ...plugin.LoadOption) Command {
	return func(l *Loop) error {
		_, err := l.reg.Load(path, opts...)
		return err
	}
}

// Unload unloads a plugin; panels bound to it become unbound.
func Unload(name string) Command {
	return func(l *Loop) error { return l.reg.Unload(name) }
}

// ReplaceLayout swaps in a new document. Panels bind to loaded plugins by
// name on the next render.
func ReplaceLayout(doc *layout.Document) Command {
	return func(l *Loop) error {
		if doc == nil {
			return fmt.Errorf("replace layout: nil document")
		}
		if err := doc.Validate(); err != nil {
			return fmt.Errorf("replace layout: %w", err)
		}
		l.doc = doc
		return nil
	}
}

// Inspect runs fn against the current document without changing it. It
// is how other goroutines read the tree safely.
func Inspect(fn func(doc *layout.Document)) Command {
	return func(l *Loop) error {
		fn(l.doc)
		return nil
	}
}
