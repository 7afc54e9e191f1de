package app

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bft-labs/carconsole/pkg/log"
)

// State is the lifecycle state of a console.
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

// next lists the states reachable from each state. A failed start (bad
// layout I/O, extension init) and a shutdown timeout both end in Crashed,
// from which the console may be started again.
var next = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateCrashed},
	StateRunning:  {StateStopping},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// Observer is told about every state change, after it happened.
type Observer interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle tracks a console's state and the named goroutines it runs
// while Running.
type Lifecycle struct {
	mu       sync.Mutex
	state    State
	workers  map[string]int
	wg       sync.WaitGroup
	logger   log.Logger
	observer Observer
}

// NewLifecycle returns a lifecycle in StateStopped. observer may be nil.
func NewLifecycle(logger log.Logger, observer Observer) *Lifecycle {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Lifecycle{
		state:    StateStopped,
		workers:  make(map[string]int),
		logger:   logger,
		observer: observer,
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Begin enters Starting from Stopped or Crashed.
func (l *Lifecycle) Begin() error {
	return l.move(StateStarting, ErrAlreadyRunning, "start requested")
}

// Started enters Running once everything Start does has succeeded.
// manual records that ticks are driven by the caller.
func (l *Lifecycle) Started(manual bool) error {
	reason := "ticking in background"
	if manual {
		reason = "ticking on demand"
	}
	return l.move(StateRunning, ErrNotRunning, reason)
}

// BeginStop enters Stopping from Running.
func (l *Lifecycle) BeginStop() error {
	return l.move(StateStopping, ErrNotRunning, "stop requested")
}

// Stopped completes a graceful stop.
func (l *Lifecycle) Stopped() error {
	return l.move(StateStopped, ErrNotRunning, "graceful shutdown")
}

// Fail enters Crashed from Starting or Stopping.
func (l *Lifecycle) Fail(reason string) error {
	return l.move(StateCrashed, ErrNotRunning, reason)
}

func (l *Lifecycle) move(to State, refused error, reason string) error {
	l.mu.Lock()
	from := l.state
	if !slices.Contains(next[from], to) {
		l.mu.Unlock()
		return fmt.Errorf("%w: cannot go from %s to %s", refused, from, to)
	}
	l.state = to
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.OnStateChange(from, to, reason)
	}
	l.logger.Info("state transition",
		log.String("from", from.String()),
		log.String("to", to.String()),
		log.String("reason", reason),
	)
	return nil
}

// Go runs fn on a new goroutine that Wait accounts for under name.
func (l *Lifecycle) Go(name string, fn func()) {
	l.mu.Lock()
	l.workers[name]++
	l.mu.Unlock()
	l.wg.Add(1)

	go func() {
		defer func() {
			l.mu.Lock()
			if l.workers[name]--; l.workers[name] <= 0 {
				delete(l.workers, name)
			}
			l.mu.Unlock()
			l.wg.Done()
		}()
		fn()
	}()
}

// Workers returns the names of the goroutines still running, sorted.
func (l *Lifecycle) Workers() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.workers))
	for name := range l.workers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Wait blocks until every goroutine started with Go has returned. After
// timeout it gives up and returns ErrShutdownTimeout with the names of
// the goroutines still running.
func (l *Lifecycle) Wait(timeout time.Duration) ([]string, error) {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return nil, nil
	case <-t.C:
		stuck := l.Workers()
		l.logger.Warn("shutdown timeout, abandoning workers",
			log.Duration("timeout", timeout),
			log.String("workers", fmt.Sprint(stuck)),
		)
		return stuck, ErrShutdownTimeout
	}
}
