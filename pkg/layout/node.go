package layout

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxWindowSize bounds a window's width and height in cells.
const MaxWindowSize = 4096

// Kind tags the variant a Node holds.
type Kind int

const (
	KindWindow Kind = iota
	KindSplit
	KindPanel
)

func (k Kind) String() string {
	switch k {
	case KindWindow:
		return "window"
	case KindSplit:
		return "split"
	case KindPanel:
		return "panel"
	default:
		return "unknown"
	}
}

// Direction is the axis along which a Split arranges its children.
type Direction int

const (
	// Horizontal places children left to right.
	Horizontal Direction = iota
	// Vertical places children top to bottom.
	Vertical
)

func (d Direction) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// ParseDirection parses "horizontal" or "vertical".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal":
		return Horizontal, nil
	case "vertical":
		return Vertical, nil
	default:
		return 0, fmt.Errorf("direction must be horizontal or vertical, got %q", s)
	}
}

// Node is one element of the layout tree. Which fields are meaningful
// depends on Kind:
//
//	Window: Title, Width, Height, Children (zero or one)
//	Split:  Direction, Children (two or more)
//	Panel:  Title, Plugin
//
// Weight applies to any node that is a direct child of a Split. A value
// <= 0 means unset and counts as 1.
type Node struct {
	ID        string
	Kind      Kind
	Title     string
	Width     int
	Height    int
	Direction Direction
	Weight    float64
	Plugin    string
	Children  []*Node

	parent *Node
}

func newID() string { return uuid.NewString() }

// NewWindow returns a window. child may be nil for an empty window.
func NewWindow(title string, width, height int, child *Node) *Node {
	w := &Node{ID: newID(), Kind: KindWindow, Title: title, Width: width, Height: height}
	if child != nil {
		w.adopt(child)
	}
	return w
}

// NewSplit returns a split over children.
func NewSplit(dir Direction, children ...*Node) *Node {
	s := &Node{ID: newID(), Kind: KindSplit, Direction: dir}
	for _, c := range children {
		s.adopt(c)
	}
	return s
}

// NewPanel returns a panel bound to plugin, or unbound when plugin is "".
func NewPanel(title, plugin string) *Node {
	return &Node{ID: newID(), Kind: KindPanel, Title: title, Plugin: plugin}
}

// WithWeight sets the node's weight and returns it.
func (n *Node) WithWeight(w float64) *Node {
	n.Weight = w
	return n
}

func (n *Node) adopt(child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
}

// Parent returns the node's parent, or nil for a window.
func (n *Node) Parent() *Node { return n.parent }

// Window returns the window this node belongs to.
func (n *Node) Window() *Node {
	for n != nil && n.Kind != KindWindow {
		n = n.parent
	}
	return n
}

// Bound reports whether a panel names a plugin.
func (n *Node) Bound() bool { return n.Kind == KindPanel && n.Plugin != "" }

// Index returns the node's position among its parent's children, or -1.
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for ; other != nil; other = other.parent {
		if other == n {
			return true
		}
	}
	return false
}

func (n *Node) String() string {
	switch n.Kind {
	case KindWindow:
		return fmt.Sprintf("window %q %dx%d", n.Title, n.Width, n.Height)
	case KindSplit:
		return fmt.Sprintf("split %s (%d)", n.Direction, len(n.Children))
	default:
		if n.Plugin == "" {
			return fmt.Sprintf("panel %q", n.Title)
		}
		return fmt.Sprintf("panel %q -> %s", n.Title, n.Plugin)
	}
}

func (n *Node) walk(depth int, fn func(*Node, int) bool) bool {
	if !fn(n, depth) {
		return false
	}
	for _, c := range n.Children {
		if !c.walk(depth+1, fn) {
			return false
		}
	}
	return true
}

func (n *Node) clone(parent *Node) *Node {
	cp := *n
	cp.parent = parent
	cp.Children = nil
	if len(n.Children) > 0 {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.clone(&cp)
		}
	}
	return &cp
}

func (n *Node) equal(o *Node) bool {
	if n.Kind != o.Kind || n.Title != o.Title || n.Width != o.Width ||
		n.Height != o.Height || n.Plugin != o.Plugin || setWeight(n.Weight) != setWeight(o.Weight) ||
		len(n.Children) != len(o.Children) {
		return false
	}
	if n.Kind == KindSplit && n.Direction != o.Direction {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].equal(o.Children[i]) {
			return false
		}
	}
	return true
}

func setWeight(w float64) float64 {
	if w > 0 {
		return w
	}
	return 0
}
