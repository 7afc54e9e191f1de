package telemetry

import (
	"sort"
	"time"
)

// Frame is an immutable snapshot of every known channel at one sampling
// tick. The zero Frame is empty and stale.
type Frame struct {
	seq       uint64
	timestamp time.Time
	channels  map[string]Value
	sampled   map[string]time.Time
	stale     bool
}

// NewFrame builds a frame from a channel map. The map is copied, so later
// changes by the caller do not leak into the frame.
func NewFrame(seq uint64, ts time.Time, channels map[string]Value) Frame {
	cp := make(map[string]Value, len(channels))
	for k, v := range channels {
		if k == "" {
			continue
		}
		cp[k] = v
	}
	return Frame{seq: seq, timestamp: ts, channels: cp}
}

// Seq returns the monotonic sequence number assigned when the frame was
// sealed. It is 0 for the empty frame.
func (f Frame) Seq() uint64 { return f.seq }

// Timestamp returns when the frame was sealed.
func (f Frame) Timestamp() time.Time { return f.timestamp }

// Stale reports whether the frame is a repeat of an already dispatched
// frame because no fresh telemetry arrived in time.
func (f Frame) Stale() bool { return f.stale }

// SampledAt returns when the value of channel was taken by its source.
// Frames built without sample times report the frame's own timestamp.
func (f Frame) SampledAt(channel string) time.Time {
	if ts, ok := f.sampled[channel]; ok {
		return ts
	}
	return f.timestamp
}

// Len returns the number of channels in the frame.
func (f Frame) Len() int { return len(f.channels) }

// Get returns the value for channel and whether it is present.
func (f Frame) Get(channel string) (Value, bool) {
	v, ok := f.channels[channel]
	return v, ok
}

// Number returns the numeric value of channel. ok is false when the
// channel is missing or holds text.
func (f Frame) Number(channel string) (float64, bool) {
	v, ok := f.channels[channel]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// NumberOr returns the numeric value of channel or def.
func (f Frame) NumberOr(channel string, def float64) float64 {
	if v, ok := f.Number(channel); ok {
		return v
	}
	return def
}

// Channels returns the channel names sorted alphabetically.
func (f Frame) Channels() []string {
	names := make([]string, 0, len(f.channels))
	for name := range f.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of the channel map.
func (f Frame) Values() map[string]Value {
	cp := make(map[string]Value, len(f.channels))
	for k, v := range f.channels {
		cp[k] = v
	}
	return cp
}

// AsStale returns the same snapshot flagged as stale. The channel map is
// shared; frames never mutate it.
func (f Frame) AsStale() Frame {
	f.stale = true
	return f
}
