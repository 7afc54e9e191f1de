package layout

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidEdit is matched by every rejected layout edit.
var ErrInvalidEdit = errors.New("layout: invalid edit")

// EditError describes a rejected edit. The document is unchanged.
type EditError struct {
	Op     string
	NodeID string
	Reason string
	Err    error
}

func (e *EditError) Error() string {
	msg := fmt.Sprintf("invalid edit: %s %s: %s", e.Op, e.NodeID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EditError) Unwrap() error { return e.Err }

// Is matches ErrInvalidEdit.
func (e *EditError) Is(target error) bool { return target == ErrInvalidEdit }

// Resolver answers whether a plugin name is currently registered.
type Resolver interface {
	Has(name string) bool
}

// undoLog records the inverse of every change made by an edit so a
// failed post-validation can restore the tree without replacing nodes.
type undoLog []func()

func (u *undoLog) setChildren(n *Node, children []*Node) {
	old := n.Children
	*u = append(*u, func() { n.Children = old })
	n.Children = children
}

func (u *undoLog) setParent(n, parent *Node) {
	old := n.parent
	*u = append(*u, func() { n.parent = old })
	n.parent = parent
}

func (u *undoLog) setWeight(n *Node, w float64) {
	old := n.Weight
	*u = append(*u, func() { n.Weight = old })
	n.Weight = w
}

func (u *undoLog) setPlugin(n *Node, name string) {
	old := n.Plugin
	*u = append(*u, func() { n.Plugin = old })
	n.Plugin = name
}

func (u *undoLog) setWindows(d *Document, ws []*Node) {
	old := d.Windows
	*u = append(*u, func() { d.Windows = old })
	d.Windows = ws
}

func (u undoLog) rollback() {
	for i := len(u) - 1; i >= 0; i-- {
		u[i]()
	}
}

// edit runs fn and validates the result; on any failure every change is
// rolled back.
func (d *Document) edit(op, id string, fn func(u *undoLog) error) error {
	var u undoLog
	if err := fn(&u); err != nil {
		u.rollback()
		var ee *EditError
		if errors.As(err, &ee) {
			return ee
		}
		return &EditError{Op: op, NodeID: id, Reason: err.Error()}
	}
	if err := d.Validate(); err != nil {
		u.rollback()
		return &EditError{Op: op, NodeID: id, Reason: "result would be invalid", Err: err}
	}
	return nil
}

func (d *Document) lookup(op, id string, kinds ...Kind) (*Node, error) {
	n := d.Find(id)
	if n == nil {
		return nil, &EditError{Op: op, NodeID: id, Reason: "no such node"}
	}
	for _, k := range kinds {
		if n.Kind == k {
			return n, nil
		}
	}
	return nil, &EditError{Op: op, NodeID: id, Reason: fmt.Sprintf("node is a %s", n.Kind)}
}

func without(children []*Node, i int) []*Node {
	out := make([]*Node, 0, len(children)-1)
	out = append(out, children[:i]...)
	return append(out, children[i+1:]...)
}

func with(children []*Node, i int, n *Node) []*Node {
	out := make([]*Node, 0, len(children)+1)
	out = append(out, children[:i]...)
	out = append(out, n)
	return append(out, children[i:]...)
}

func replaced(children []*Node, i int, n *Node) []*Node {
	out := make([]*Node, len(children))
	copy(out, children)
	out[i] = n
	return out
}

// detach removes n from its parent. A split left with one child collapses
// into that child, which inherits the split's weight and position.
func detach(u *undoLog, n *Node) {
	p := n.parent
	u.setChildren(p, without(p.Children, n.Index()))
	u.setParent(n, nil)
	if p.Kind != KindSplit || len(p.Children) != 1 {
		return
	}
	only := p.Children[0]
	gp := p.parent
	u.setChildren(gp, replaced(gp.Children, p.Index(), only))
	u.setParent(only, gp)
	u.setWeight(only, p.Weight)
	u.setChildren(p, nil)
	u.setParent(p, nil)
}

// SplitPanel replaces a panel with a split holding the panel followed by
// a new unbound panel. The original panel keeps its identity; the split
// takes over its weight.
func (d *Document) SplitPanel(panelID string, dir Direction) (split, added *Node, err error) {
	const op = "split"
	panel, err := d.lookup(op, panelID, KindPanel)
	if err != nil {
		return nil, nil, err
	}
	if dir != Horizontal && dir != Vertical {
		return nil, nil, &EditError{Op: op, NodeID: panelID, Reason: "unknown direction"}
	}

	err = d.edit(op, panelID, func(u *undoLog) error {
		parent := panel.parent
		idx := panel.Index()
		split = &Node{ID: newID(), Kind: KindSplit, Direction: dir, Weight: panel.Weight, parent: parent}
		added = &Node{ID: newID(), Kind: KindPanel, parent: split}
		split.Children = []*Node{panel, added}

		u.setChildren(parent, replaced(parent.Children, idx, split))
		u.setParent(panel, split)
		u.setWeight(panel, 0)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return split, added, nil
}

// RemovePanel deletes a panel. A split left with a single child collapses
// into it; a window losing its only child becomes an empty window.
func (d *Document) RemovePanel(panelID string) error {
	const op = "remove"
	panel, err := d.lookup(op, panelID, KindPanel)
	if err != nil {
		return err
	}
	return d.edit(op, panelID, func(u *undoLog) error {
		detach(u, panel)
		return nil
	})
}

// MovePanel moves a panel or split into destSplit at index. index counts
// positions in the destination after the node has been taken out of its
// current place.
func (d *Document) MovePanel(nodeID, destSplitID string, index int) error {
	const op = "move"
	n, err := d.lookup(op, nodeID, KindPanel, KindSplit)
	if err != nil {
		return err
	}
	dest, err := d.lookup(op, destSplitID, KindSplit)
	if err != nil {
		return err
	}
	if n.Contains(dest) {
		return &EditError{Op: op, NodeID: nodeID, Reason: "destination is inside the moved node"}
	}

	if n.parent == dest {
		if index < 0 || index >= len(dest.Children) {
			return &EditError{Op: op, NodeID: nodeID, Reason: fmt.Sprintf("index %d out of range", index)}
		}
		return d.edit(op, nodeID, func(u *undoLog) error {
			u.setChildren(dest, with(without(dest.Children, n.Index()), index, n))
			return nil
		})
	}

	// Detaching from another parent never changes dest's child count.
	if index < 0 || index > len(dest.Children) {
		return &EditError{Op: op, NodeID: nodeID, Reason: fmt.Sprintf("index %d out of range", index)}
	}
	return d.edit(op, nodeID, func(u *undoLog) error {
		detach(u, n)
		u.setWeight(n, 0)
		u.setChildren(dest, with(dest.Children, index, n))
		u.setParent(n, dest)
		return nil
	})
}

// Resize replaces the weights of a split's children.
func (d *Document) Resize(splitID string, weights []float64) error {
	const op = "resize"
	split, err := d.lookup(op, splitID, KindSplit)
	if err != nil {
		return err
	}
	if len(weights) != len(split.Children) {
		return &EditError{Op: op, NodeID: splitID,
			Reason: fmt.Sprintf("got %d weights for %d children", len(weights), len(split.Children))}
	}
	for i, w := range weights {
		if !(w > 0) || math.IsInf(w, 0) {
			return &EditError{Op: op, NodeID: splitID,
				Reason: fmt.Sprintf("weight %d must be positive and finite, got %v", i, w)}
		}
	}
	if !finiteSum(weights) {
		return &EditError{Op: op, NodeID: splitID, Reason: "weights overflow"}
	}
	return d.edit(op, splitID, func(u *undoLog) error {
		for i, c := range split.Children {
			u.setWeight(c, weights[i])
		}
		return nil
	})
}

// BindPanel binds a panel to a registered plugin.
func (d *Document) BindPanel(panelID, plugin string, res Resolver) error {
	const op = "bind"
	panel, err := d.lookup(op, panelID, KindPanel)
	if err != nil {
		return err
	}
	if plugin == "" {
		return &EditError{Op: op, NodeID: panelID, Reason: "empty plugin name"}
	}
	if res != nil && !res.Has(plugin) {
		return &EditError{Op: op, NodeID: panelID, Reason: fmt.Sprintf("plugin %q is not loaded", plugin)}
	}
	return d.edit(op, panelID, func(u *undoLog) error {
		u.setPlugin(panel, plugin)
		return nil
	})
}

// UnbindPanel reverts a panel to the unbound placeholder.
func (d *Document) UnbindPanel(panelID string) error {
	const op = "unbind"
	panel, err := d.lookup(op, panelID, KindPanel)
	if err != nil {
		return err
	}
	return d.edit(op, panelID, func(u *undoLog) error {
		u.setPlugin(panel, "")
		return nil
	})
}

// AddWindow appends a window holding one unbound panel.
func (d *Document) AddWindow(title string, width, height int) (*Node, error) {
	const op = "add-window"
	if title == "" || width <= 0 || height <= 0 {
		return nil, &EditError{Op: op, Reason: "window needs a title and a positive size"}
	}
	if width > MaxWindowSize || height > MaxWindowSize {
		return nil, &EditError{Op: op, Reason: fmt.Sprintf("window exceeds %dx%d", MaxWindowSize, MaxWindowSize)}
	}
	w := NewWindow(title, width, height, NewPanel(title, ""))
	err := d.edit(op, w.ID, func(u *undoLog) error {
		ws := make([]*Node, 0, len(d.Windows)+1)
		u.setWindows(d, append(append(ws, d.Windows...), w))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// RemoveWindow deletes a top-level window and everything in it.
func (d *Document) RemoveWindow(windowID string) error {
	const op = "remove-window"
	for i, w := range d.Windows {
		if w.ID == windowID {
			return d.edit(op, windowID, func(u *undoLog) error {
				u.setWindows(d, without(d.Windows, i))
				return nil
			})
		}
	}
	return &EditError{Op: op, NodeID: windowID, Reason: "no such window"}
}
