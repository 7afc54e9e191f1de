package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/carconsole/pkg/log"
)

type transition struct {
	from, to State
	reason   string
}

type recordingObserver struct {
	mu  sync.Mutex
	got []transition
}

func (o *recordingObserver) OnStateChange(previous, current State, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, transition{previous, current, reason})
}

func (o *recordingObserver) states() []State {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []State
	for _, tr := range o.got {
		out = append(out, tr.to)
	}
	return out
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "Stopped"},
		{StateStarting, "Starting"},
		{StateRunning, "Running"},
		{StateStopping, "Stopping"},
		{StateCrashed, "Crashed"},
		{State(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestLifecycle_ConsolePaths(t *testing.T) {
	tests := []struct {
		name  string
		steps func(l *Lifecycle) error
		want  []State
	}{
		{
			name: "start and stop",
			steps: func(l *Lifecycle) error {
				return errors.Join(l.Begin(), l.Started(false), l.BeginStop(), l.Stopped())
			},
			want: []State{StateStarting, StateRunning, StateStopping, StateStopped},
		},
		{
			name: "start fails then restarts",
			steps: func(l *Lifecycle) error {
				return errors.Join(l.Begin(), l.Fail("layout unreadable"), l.Begin(), l.Started(true))
			},
			want: []State{StateStarting, StateCrashed, StateStarting, StateRunning},
		},
		{
			name: "shutdown timeout",
			steps: func(l *Lifecycle) error {
				return errors.Join(l.Begin(), l.Started(false), l.BeginStop(), l.Fail("shutdown timeout"))
			},
			want: []State{StateStarting, StateRunning, StateStopping, StateCrashed},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			l := NewLifecycle(log.NewNoopLogger(), obs)
			if err := tt.steps(l); err != nil {
				t.Fatalf("steps error = %v", err)
			}
			if got := obs.states(); !equalStates(got, tt.want) {
				t.Errorf("states = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLifecycle_RefusedMoves(t *testing.T) {
	l := NewLifecycle(nil, nil)

	if err := l.BeginStop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("BeginStop() while stopped = %v, want ErrNotRunning", err)
	}
	if err := l.Started(false); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Started() while stopped = %v, want ErrNotRunning", err)
	}
	if err := l.Fail("x"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Fail() while stopped = %v, want ErrNotRunning", err)
	}

	_ = l.Begin()
	_ = l.Started(false)
	if err := l.Begin(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Begin() while running = %v, want ErrAlreadyRunning", err)
	}
	if err := l.Fail("x"); err == nil {
		t.Error("Fail() while running succeeded")
	}
	if l.State() != StateRunning {
		t.Errorf("State() = %v after refused moves, want Running", l.State())
	}
}

func TestLifecycle_StartedReasonNamesMode(t *testing.T) {
	obs := &recordingObserver{}
	l := NewLifecycle(nil, obs)
	_ = l.Begin()
	_ = l.Started(true)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if got := obs.got[len(obs.got)-1].reason; got != "ticking on demand" {
		t.Errorf("reason = %q", got)
	}
}

func TestLifecycle_WaitForWorkers(t *testing.T) {
	l := NewLifecycle(nil, nil)
	release := make(chan struct{})
	l.Go("dispatch", func() { <-release })
	l.Go("source:sim", func() {})

	deadline := time.Now().Add(time.Second)
	for len(l.Workers()) != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := l.Workers(); len(got) != 1 || got[0] != "dispatch" {
		t.Fatalf("Workers() = %v, want [dispatch]", got)
	}

	close(release)
	stuck, err := l.Wait(time.Second)
	if err != nil || len(stuck) != 0 {
		t.Errorf("Wait() = %v, %v", stuck, err)
	}
}

func TestLifecycle_WaitTimeoutNamesStuckWorkers(t *testing.T) {
	l := NewLifecycle(nil, nil)
	release := make(chan struct{})
	defer close(release)
	l.Go("dispatch", func() { <-release })
	l.Go("telemetry", func() { <-release })

	stuck, err := l.Wait(20 * time.Millisecond)
	if !errors.Is(err, ErrShutdownTimeout) {
		t.Fatalf("Wait() error = %v, want ErrShutdownTimeout", err)
	}
	if len(stuck) != 2 || stuck[0] != "dispatch" || stuck[1] != "telemetry" {
		t.Errorf("stuck = %v", stuck)
	}
}

func TestLifecycle_ConcurrentReads(t *testing.T) {
	l := NewLifecycle(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.State()
			_ = l.Workers()
		}()
	}
	_ = l.Begin()
	_ = l.Started(false)
	wg.Wait()
	if l.State() != StateRunning {
		t.Errorf("State() = %v, want Running", l.State())
	}
}
