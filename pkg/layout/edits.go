package layout

// Edit is a queued structural change. Apply runs against the document at
// a tick boundary; res resolves plugin names for binding edits.
type Edit interface {
	Apply(d *Document, res Resolver) error
}

// SplitEdit splits a panel.
type SplitEdit struct {
	PanelID   string
	Direction Direction
}

func (e SplitEdit) Apply(d *Document, _ Resolver) error {
	_, _, err := d.SplitPanel(e.PanelID, e.Direction)
	return err
}

// MoveEdit moves a node into a split.
type MoveEdit struct {
	NodeID      string
	DestSplitID string
	Index       int
}

func (e MoveEdit) Apply(d *Document, _ Resolver) error {
	return d.MovePanel(e.NodeID, e.DestSplitID, e.Index)
}

// ResizeEdit sets a split's weights, usually from a boundary drag.
type ResizeEdit struct {
	SplitID string
	Weights []float64
}

func (e ResizeEdit) Apply(d *Document, _ Resolver) error {
	return d.Resize(e.SplitID, e.Weights)
}

// RemoveEdit removes a panel.
type RemoveEdit struct {
	PanelID string
}

func (e RemoveEdit) Apply(d *Document, _ Resolver) error {
	return d.RemovePanel(e.PanelID)
}

// BindEdit binds a panel to a plugin, or unbinds it when Plugin is empty.
type BindEdit struct {
	PanelID string
	Plugin  string
}

func (e BindEdit) Apply(d *Document, res Resolver) error {
	if e.Plugin == "" {
		return d.UnbindPanel(e.PanelID)
	}
	return d.BindPanel(e.PanelID, e.Plugin, res)
}

// AddWindowEdit appends a window.
type AddWindowEdit struct {
	Title  string
	Width  int
	Height int
}

func (e AddWindowEdit) Apply(d *Document, _ Resolver) error {
	_, err := d.AddWindow(e.Title, e.Width, e.Height)
	return err
}
