// Package terminal shows the console on a tcell screen. It implements
// dispatch.Display for the window currently selected (Tab cycles through
// windows), turns mouse drags on split boundaries into resize edits and
// quits on q, Esc or Ctrl-C.
package terminal

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/bft-labs/carconsole/pkg/dispatch"
	"github.com/bft-labs/carconsole/pkg/geom"
	"github.com/bft-labs/carconsole/pkg/layout"
	"github.com/bft-labs/carconsole/pkg/log"
	"github.com/bft-labs/carconsole/pkg/surface"
)

// Submitter queues commands for the dispatch loop.
type Submitter func(cmd dispatch.Command) <-chan error

// Terminal is a tcell-backed display.
type Terminal struct {
	screen tcell.Screen
	logger log.Logger
	submit Submitter
	onQuit func()

	mu       sync.Mutex
	seen     []string // window IDs targeted during the current tick
	active   int
	activeID string
	client   geom.Rect
	grip     *dispatch.Grip
}

// New initialises screen and enables mouse reporting. Call Close to
// restore the terminal.
func New(screen tcell.Screen, logger log.Logger) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()
	screen.HideCursor()
	screen.Clear()
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Terminal{screen: screen, logger: logger}, nil
}

// NewScreen opens the controlling terminal.
func NewScreen(logger log.Logger) (*Terminal, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return New(s, logger)
}

// Bind connects input handling to the loop and to a quit callback.
func (t *Terminal) Bind(submit Submitter, onQuit func()) {
	t.mu.Lock()
	t.submit = submit
	t.onQuit = onQuit
	t.mu.Unlock()
}

// Close restores the terminal.
func (t *Terminal) Close() {
	t.screen.Fini()
}

// Target implements dispatch.Display. Only the active window is drawn on
// screen; the others are skipped.
func (t *Terminal) Target(window *layout.Node) surface.Target {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seen = append(t.seen, window.ID)
	if len(t.seen)-1 != t.active {
		return nil
	}
	t.activeID = window.ID
	w, h := t.screen.Size()
	t.client = geom.R(0, 0, w, h)
	return screenTarget{t.screen}
}

// Present implements dispatch.Display.
func (t *Terminal) Present() error {
	t.mu.Lock()
	if t.active >= len(t.seen) {
		t.active = 0
	}
	if len(t.seen) == 0 {
		t.activeID = ""
		t.screen.Clear()
	}
	t.seen = t.seen[:0]
	t.mu.Unlock()

	t.screen.Show()
	return nil
}

// Run processes input events until ctx is done.
func (t *Terminal) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go t.screen.ChannelEvents(events, quit)
	defer close(quit)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			t.handle(ev)
		}
	}
}

func (t *Terminal) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		t.handleKey(ev)
	case *tcell.EventMouse:
		t.handleMouse(ev)
	case *tcell.EventResize:
		t.screen.Sync()
	}
}

func (t *Terminal) handleKey(ev *tcell.EventKey) {
	switch {
	case ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
		t.mu.Lock()
		onQuit := t.onQuit
		t.mu.Unlock()
		if onQuit != nil {
			onQuit()
		}
	case ev.Key() == tcell.KeyTab:
		t.mu.Lock()
		t.active++
		t.grip = nil
		t.mu.Unlock()
	}
}

func (t *Terminal) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.submit == nil || t.activeID == "" {
		return
	}

	if ev.Buttons()&tcell.Button1 == 0 {
		t.grip = nil
		return
	}
	if t.grip == nil {
		t.grip = &dispatch.Grip{}
		t.submit(dispatch.Grab(t.activeID, t.client, x, y, t.grabbed))
		return
	}
	if t.grip.SplitID == "" {
		return
	}
	pos := x
	if t.grip.Vertical {
		pos = y
	}
	t.submit(dispatch.Drag(*t.grip, pos))
}

// grabbed runs on the loop goroutine with the result of a Grab.
func (t *Terminal) grabbed(g dispatch.Grip, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.grip == nil {
		return
	}
	if !ok {
		// Keep an empty grip so the rest of this press is ignored.
		*t.grip = dispatch.Grip{}
		return
	}
	*t.grip = g
}

type screenTarget struct {
	screen tcell.Screen
}

func (s screenTarget) Size() (int, int) { return s.screen.Size() }

func (s screenTarget) SetCell(x, y int, ch rune, st surface.Style) {
	s.screen.SetContent(x, y, ch, nil, Style(st))
}

func (s screenTarget) Clear() { s.screen.Clear() }

// Style converts a surface style to a tcell style.
func Style(st surface.Style) tcell.Style {
	out := tcell.StyleDefault
	if !st.Fg.IsDefault() {
		out = out.Foreground(color(st.Fg))
	}
	if !st.Bg.IsDefault() {
		out = out.Background(color(st.Bg))
	}
	return out.Bold(st.Bold).Reverse(st.Reverse)
}

func color(c surface.Color) tcell.Color {
	r, g, b := c.RGB()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
