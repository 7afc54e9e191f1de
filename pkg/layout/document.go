package layout

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTree is wrapped by every structural validation failure.
var ErrInvalidTree = errors.New("layout: invalid tree")

// Document is the whole layout: an ordered list of independent windows.
type Document struct {
	Windows []*Node
}

// NewDocument returns a document over windows.
func NewDocument(windows ...*Node) *Document {
	return &Document{Windows: windows}
}

// Default is the layout used when no document can be loaded: one window
// holding one unbound panel.
func Default() *Document {
	return NewDocument(NewWindow("carconsole", 80, 24, NewPanel("Panel", "")))
}

// Walk visits every node depth first in document order. Returning false
// from fn stops the walk.
func (d *Document) Walk(fn func(n *Node, depth int) bool) {
	for _, w := range d.Windows {
		if !w.walk(0, fn) {
			return
		}
	}
}

// Find returns the node with the given ID.
func (d *Document) Find(id string) *Node {
	var found *Node
	d.Walk(func(n *Node, _ int) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Panels returns every panel in document order.
func (d *Document) Panels() []*Node {
	var out []*Node
	d.Walk(func(n *Node, _ int) bool {
		if n.Kind == KindPanel {
			out = append(out, n)
		}
		return true
	})
	return out
}

// BoundPlugins returns the distinct plugin names panels are bound to, in
// first-seen document order.
func (d *Document) BoundPlugins() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range d.Panels() {
		if p.Plugin != "" && !seen[p.Plugin] {
			seen[p.Plugin] = true
			out = append(out, p.Plugin)
		}
	}
	return out
}

// UnbindPlugin reverts every panel bound to name to the unbound state and
// returns how many panels changed.
func (d *Document) UnbindPlugin(name string) int {
	n := 0
	for _, p := range d.Panels() {
		if p.Plugin == name {
			p.Plugin = ""
			n++
		}
	}
	return n
}

// Clone returns a deep copy with the same node IDs.
func (d *Document) Clone() *Document {
	cp := &Document{Windows: make([]*Node, len(d.Windows))}
	for i, w := range d.Windows {
		cp.Windows[i] = w.clone(nil)
	}
	return cp
}

// Equal reports whether two documents have the same structure and
// attributes. Node IDs are ignored.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.Windows) != len(o.Windows) {
		return false
	}
	for i := range d.Windows {
		if !d.Windows[i].equal(o.Windows[i]) {
			return false
		}
	}
	return true
}

// Validate checks every structural invariant of the tree.
func (d *Document) Validate() error {
	ids := make(map[string]bool)
	for i, w := range d.Windows {
		if w == nil {
			return fmt.Errorf("%w: window[%d] is nil", ErrInvalidTree, i)
		}
		if w.Kind != KindWindow {
			return fmt.Errorf("%w: root %d is a %s, not a window", ErrInvalidTree, i, w.Kind)
		}
		if w.parent != nil {
			return fmt.Errorf("%w: window %q has a parent", ErrInvalidTree, w.Title)
		}
		if err := validateNode(w, nil, ids); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n, parent *Node, ids map[string]bool) error {
	if n.ID == "" {
		return fmt.Errorf("%w: %s has no id", ErrInvalidTree, n)
	}
	if ids[n.ID] {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidTree, n.ID)
	}
	ids[n.ID] = true
	if n.parent != parent {
		return fmt.Errorf("%w: %s has an inconsistent parent link", ErrInvalidTree, n)
	}
	if parent != nil && parent.Kind == KindSplit {
		if math.IsNaN(n.Weight) || math.IsInf(n.Weight, 0) {
			return fmt.Errorf("%w: %s has a non-finite weight", ErrInvalidTree, n)
		}
	}

	switch n.Kind {
	case KindWindow:
		if parent != nil {
			return fmt.Errorf("%w: %s is nested", ErrInvalidTree, n)
		}
		if n.Title == "" {
			return fmt.Errorf("%w: window has no title", ErrInvalidTree)
		}
		if n.Width <= 0 || n.Height <= 0 {
			return fmt.Errorf("%w: %s must have a positive size", ErrInvalidTree, n)
		}
		if n.Width > MaxWindowSize || n.Height > MaxWindowSize {
			return fmt.Errorf("%w: %s exceeds %dx%d", ErrInvalidTree, n, MaxWindowSize, MaxWindowSize)
		}
		if len(n.Children) > 1 {
			return fmt.Errorf("%w: %s has %d children, want at most 1", ErrInvalidTree, n, len(n.Children))
		}
	case KindSplit:
		if len(n.Children) < 2 {
			return fmt.Errorf("%w: %s needs at least 2 children", ErrInvalidTree, n)
		}
		if !finiteSum(n.Weights()) {
			return fmt.Errorf("%w: %s weights overflow", ErrInvalidTree, n)
		}
	case KindPanel:
		if len(n.Children) != 0 {
			return fmt.Errorf("%w: %s has children", ErrInvalidTree, n)
		}
	default:
		return fmt.Errorf("%w: node %s has unknown kind %d", ErrInvalidTree, n.ID, n.Kind)
	}

	for _, c := range n.Children {
		if c == nil {
			return fmt.Errorf("%w: %s has a nil child", ErrInvalidTree, n)
		}
		if err := validateNode(c, n, ids); err != nil {
			return err
		}
	}
	return nil
}

func finiteSum(weights []float64) bool {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return !math.IsInf(sum, 0) && !math.IsNaN(sum)
}
