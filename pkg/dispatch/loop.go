package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/carconsole/pkg/geom"
	"github.com/bft-labs/carconsole/pkg/layout"
	"github.com/bft-labs/carconsole/pkg/log"
	"github.com/bft-labs/carconsole/pkg/plugin"
	"github.com/bft-labs/carconsole/pkg/surface"
	"github.com/bft-labs/carconsole/pkg/telemetry"
)

// DefaultFPS is the tick rate used when Run is given a non-positive rate.
const DefaultFPS = 30

// FrameSource hands out the newest telemetry frame without blocking.
type FrameSource interface {
	Acquire() telemetry.Frame
}

// FaultHandler is told about the first fault of each plugin.
type FaultHandler func(name string, err error)

// Config wires a Loop.
type Config struct {
	Document *layout.Document
	Registry *plugin.Registry
	Frames   FrameSource
	Display  Display
	Logger   log.Logger
	OnFault  FaultHandler
}

// TickReport summarises one tick.
type TickReport struct {
	Tick          uint64
	FrameSeq      uint64
	Stale         bool
	Commands      int
	CommandErrors int
	Updated       int
	Rendered      int
	Placeholders  int
	Faults        []string
	PresentErr    error
}

type queued struct {
	cmd  Command
	done chan error
}

// Loop is the single-threaded dispatch/render orchestrator.
type Loop struct {
	doc     *layout.Document
	reg     *plugin.Registry
	frames  FrameSource
	display Display
	logger  log.Logger
	onFault FaultHandler

	mu    sync.Mutex
	queue []queued

	tick uint64
}

// New creates a loop and registers it as the registry's binder so that
// unloading a plugin unbinds its panels.
func New(cfg Config) *Loop {
	if cfg.Document == nil {
		cfg.Document = layout.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	if cfg.Registry == nil {
		cfg.Registry = plugin.NewRegistry(plugin.LoaderFunc(func(path string) (plugin.Module, error) {
			return nil, fmt.Errorf("no module loader configured")
		}), cfg.Logger)
	}
	l := &Loop{
		doc:     cfg.Document,
		reg:     cfg.Registry,
		frames:  cfg.Frames,
		display: cfg.Display,
		logger:  cfg.Logger,
		onFault: cfg.OnFault,
	}
	l.reg.SetBinder(l)
	return l
}

// Document returns the current layout. It must only be used from the
// goroutine running the loop, or while the loop is stopped.
func (l *Loop) Document() *layout.Document { return l.doc }

// Registry returns the plugin registry.
func (l *Loop) Registry() *plugin.Registry { return l.reg }

// UnbindPlugin implements plugin.Binder. It is reached from Unload
// commands, which run on the loop's goroutine.
func (l *Loop) UnbindPlugin(name string) int {
	return l.doc.UnbindPlugin(name)
}

// Submit queues cmd for the next tick. The returned channel receives the
// command's result once it has run.
func (l *Loop) Submit(cmd Command) <-chan error {
	done := make(chan error, 1)
	l.mu.Lock()
	l.queue = append(l.queue, queued{cmd: cmd, done: done})
	l.mu.Unlock()
	return done
}

// Do submits cmd and waits for its result.
func (l *Loop) Do(ctx context.Context, cmd Command) error {
	select {
	case err := <-l.Submit(cmd):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run ticks at fps until ctx is done.
func (l *Loop) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	l.Tick()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick runs one complete dispatch cycle.
func (l *Loop) Tick() TickReport {
	l.tick++
	rep := TickReport{Tick: l.tick}

	l.drain(&rep)

	frame := telemetry.Frame{}.AsStale()
	if l.frames != nil {
		frame = l.frames.Acquire()
	}
	rep.FrameSeq, rep.Stale = frame.Seq(), frame.Stale()

	for _, name := range l.doc.BoundPlugins() {
		if !l.reg.Active(name) {
			continue
		}
		if l.call(name, "update", &rep, func(p plugin.Plugin) { p.Update(frame) }) {
			rep.Updated++
		}
	}

	if l.display != nil {
		for _, win := range l.doc.Windows {
			l.renderWindow(win, &rep)
		}
		if err := l.display.Present(); err != nil {
			rep.PresentErr = err
			l.logger.Warn("present failed", log.Err(err))
		}
	}
	return rep
}

func (l *Loop) drain(rep *TickReport) {
	l.mu.Lock()
	q := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, item := range q {
		err := l.apply(item.cmd)
		rep.Commands++
		if err != nil {
			rep.CommandErrors++
			l.logger.Warn("command rejected", log.Err(err))
		}
		item.done <- err
	}
}

func (l *Loop) apply(cmd Command) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("command panicked: %v", v)
		}
	}()
	return cmd(l)
}

func (l *Loop) renderWindow(win *layout.Node, rep *TickReport) {
	target := l.display.Target(win)
	if target == nil {
		return
	}
	target.Clear()
	w, h := target.Size()
	client := geom.R(0, 0, w, h)

	if len(win.Children) == 0 {
		drawEmptyWindow(surface.NewRegion(target, client), win.Title)
		rep.Placeholders++
		return
	}

	for _, p := range layout.Arrange(win, client) {
		if p.Node.Kind != layout.KindPanel {
			continue
		}
		region := surface.NewRegion(target, p.Rect)
		name := p.Node.Plugin
		switch {
		case name == "" || !l.reg.Has(name):
			drawUnbound(region, p.Node.Title, name)
			rep.Placeholders++
		case l.reg.Faulted(name):
			drawFaulted(region, p.Node.Title, name)
			rep.Placeholders++
		default:
			if l.call(name, "render", rep, func(pl plugin.Plugin) { pl.Render(region) }) {
				rep.Rendered++
				continue
			}
			region.Fill(region.Bounds(), ' ', surface.Plain)
			drawFaulted(region, p.Node.Title, name)
			rep.Placeholders++
		}
	}
}

// call invokes fn on the named plugin, recovering a panic into a fault.
// It reports whether the call completed normally.
func (l *Loop) call(name, phase string, rep *TickReport, fn func(plugin.Plugin)) bool {
	var fault error
	err := l.reg.Invoke(name, func(p plugin.Plugin) {
		defer func() {
			if v := recover(); v != nil {
				fault = &plugin.FaultError{Name: name, Phase: phase, Panic: v}
			}
		}()
		fn(p)
	})
	if err != nil {
		if !errors.Is(err, plugin.ErrNotFound) {
			l.logger.Warn("plugin call failed", log.String("plugin", name), log.Err(err))
		}
		return false
	}
	if fault == nil {
		return true
	}
	if l.reg.MarkFaulted(name, fault) {
		rep.Faults = append(rep.Faults, name)
		l.logger.Error("plugin faulted",
			log.String("plugin", name),
			log.String("phase", phase),
			log.Err(fault))
		if l.onFault != nil {
			l.onFault(name, fault)
		}
	}
	return false
}
