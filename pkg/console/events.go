package console

import (
	"errors"

	"github.com/bft-labs/carconsole/internal/app"
	"github.com/bft-labs/carconsole/pkg/plugin"
)

// Errors returned by the Console API.
var (
	ErrAlreadyRunning  = app.ErrAlreadyRunning
	ErrNotRunning      = app.ErrNotRunning
	ErrShutdownTimeout = app.ErrShutdownTimeout
	ErrInvalidConfig   = errors.New("carconsole: invalid configuration")
	ErrNotManual       = errors.New("carconsole: console is not in manual mode")
)

// State is the lifecycle state of a Console.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// PluginEvent is emitted when a plugin finished loading.
type PluginEvent struct {
	Plugin plugin.Descriptor
}

// PluginErrorEvent is emitted when a plugin fails to load or faults at
// runtime. Path is empty for runtime faults.
type PluginErrorEvent struct {
	Name  string
	Path  string
	Err   error
	Fault bool
}

// LayoutEvent is emitted when the layout file is reloaded. Err is set
// when the file did not parse and the current tree was kept.
type LayoutEvent struct {
	Path string
	Err  error
}

// SourceErrorEvent is emitted when a telemetry source fails and is about
// to be restarted.
type SourceErrorEvent struct {
	Source   string
	Err      error
	Restarts int
}

// EventHandler receives console events. Handlers are called synchronously
// from internal goroutines, including the dispatch loop, and must not
// block.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnPluginLoaded(PluginEvent)
	OnPluginError(PluginErrorEvent)
	OnLayoutChanged(LayoutEvent)
	OnSourceError(SourceErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// handle only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnPluginLoaded(PluginEvent)     {}
func (BaseEventHandler) OnPluginError(PluginErrorEvent) {}
func (BaseEventHandler) OnLayoutChanged(LayoutEvent)    {}
func (BaseEventHandler) OnSourceError(SourceErrorEvent) {}

// eventEmitter adapts EventHandler to the internal emitter interfaces.
type eventEmitter struct {
	handler EventHandler
}

func (e *eventEmitter) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitter) pluginLoaded(d plugin.Descriptor) {
	if e.handler != nil {
		e.handler.OnPluginLoaded(PluginEvent{Plugin: d})
	}
}

func (e *eventEmitter) pluginError(ev PluginErrorEvent) {
	if e.handler != nil {
		e.handler.OnPluginError(ev)
	}
}

func (e *eventEmitter) layoutChanged(ev LayoutEvent) {
	if e.handler != nil {
		e.handler.OnLayoutChanged(ev)
	}
}

func (e *eventEmitter) sourceError(ev SourceErrorEvent) {
	if e.handler != nil {
		e.handler.OnSourceError(ev)
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
