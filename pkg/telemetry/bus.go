package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrEmptyChannel is returned when a sample has no channel name.
var ErrEmptyChannel = errors.New("telemetry: empty channel name")

// DefaultCadence is the sampling period used when BusConfig.Cadence is unset.
const DefaultCadence = 50 * time.Millisecond

// Sink accepts samples from a transport collaborator.
type Sink interface {
	Ingest(s Sample) error
}

// Source is a transport collaborator that produces samples until its
// context is canceled. Run is called on its own goroutine.
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

// BusConfig configures a Bus.
type BusConfig struct {
	// Cadence is the period at which Run seals frames.
	// Default: 50ms
	Cadence time.Duration

	// Clock returns the current time. It defaults to time.Now, whose
	// readings carry a monotonic component.
	Clock func() time.Time
}

// Bus assembles samples into frames and publishes them through a
// single-slot, overwrite-latest buffer.
type Bus struct {
	cadence time.Duration
	clock   func() time.Time

	mu      sync.Mutex
	latest  map[string]Value
	sampled map[string]time.Time
	pending bool
	seq     uint64

	slot atomic.Pointer[Frame]

	// last is only touched by the consumer goroutine.
	last Frame
}

// NewBus creates a bus with the given configuration.
func NewBus(cfg BusConfig) *Bus {
	if cfg.Cadence <= 0 {
		cfg.Cadence = DefaultCadence
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Bus{
		cadence: cfg.Cadence,
		clock:   cfg.Clock,
		latest:  make(map[string]Value),
		sampled: make(map[string]time.Time),
		last:    Frame{stale: true, channels: map[string]Value{}},
	}
}

// Cadence returns the configured sealing period.
func (b *Bus) Cadence() time.Duration { return b.cadence }

// Ingest records a sample. It is safe for concurrent use; within one
// sealing period the last sample per channel wins. A zero Timestamp is
// replaced by the bus clock.
func (b *Bus) Ingest(s Sample) error {
	if s.Channel == "" {
		return ErrEmptyChannel
	}
	ts := s.Timestamp
	if ts.IsZero() {
		ts = b.clock()
	}
	b.mu.Lock()
	b.latest[s.Channel] = s.Value
	b.sampled[s.Channel] = ts
	b.pending = true
	b.mu.Unlock()
	return nil
}

// Seed pre-loads channel values, typically from a persisted snapshot, so
// the first sealed frame is not empty. Seeding does not by itself produce
// a new frame.
func (b *Bus) Seed(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range f.channels {
		if _, ok := b.latest[k]; !ok {
			b.latest[k] = v
			b.sampled[k] = f.SampledAt(k)
		}
	}
}

// Seal assembles the latest value of every known channel into a new frame
// and publishes it, replacing any frame the consumer has not picked up yet.
// It returns false without publishing when nothing was ingested since the
// previous seal.
func (b *Bus) Seal() (Frame, bool) {
	b.mu.Lock()
	if !b.pending {
		b.mu.Unlock()
		return Frame{}, false
	}
	b.seq++
	f := NewFrame(b.seq, b.clock(), b.latest)
	f.sampled = make(map[string]time.Time, len(b.sampled))
	for k, ts := range b.sampled {
		f.sampled[k] = ts
	}
	b.pending = false
	b.mu.Unlock()

	b.slot.Store(&f)
	return f, true
}

// Run seals frames at the configured cadence until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.Seal()
		}
	}
}

// Acquire returns the newest frame without blocking. If no frame was
// published since the previous call, the previous frame is returned again
// marked stale. Acquire must only be called from the consumer goroutine.
func (b *Bus) Acquire() Frame {
	if f := b.slot.Swap(nil); f != nil {
		b.last = *f
		return *f
	}
	return b.last.AsStale()
}

// Last returns the most recently acquired frame.
func (b *Bus) Last() Frame {
	return b.last
}
