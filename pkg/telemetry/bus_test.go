package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	base := time.Unix(1700000000, 0)
	var n int64
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Millisecond)
	}
}

func TestBus_AcquireBeforeAnyFrameIsEmptyAndStale(t *testing.T) {
	b := NewBus(BusConfig{})
	f := b.Acquire()
	if !f.Stale() {
		t.Error("expected stale frame before any publish")
	}
	if f.Len() != 0 {
		t.Errorf("Len = %d, want 0", f.Len())
	}
}

func TestBus_SealPublishesLatestPerChannel(t *testing.T) {
	b := NewBus(BusConfig{Clock: fixedClock()})
	_ = b.Ingest(Sample{Channel: "rpm", Value: Number(1000)})
	_ = b.Ingest(Sample{Channel: "rpm", Value: Number(1200)})
	_ = b.Ingest(Sample{Channel: "gear", Value: Text("D")})

	sealed, ok := b.Seal()
	if !ok {
		t.Fatal("Seal() = false, want true")
	}
	if sealed.Seq() != 1 {
		t.Errorf("Seq = %d, want 1", sealed.Seq())
	}

	f := b.Acquire()
	if f.Stale() {
		t.Error("fresh frame reported stale")
	}
	if rpm, _ := f.Number("rpm"); rpm != 1200 {
		t.Errorf("rpm = %v, want 1200", rpm)
	}
	if g, _ := f.Get("gear"); g.String() != "D" {
		t.Errorf("gear = %q, want D", g.String())
	}
}

func TestBus_AcquireWithoutNewFrameReusesPreviousAsStale(t *testing.T) {
	b := NewBus(BusConfig{Clock: fixedClock()})
	_ = b.Ingest(Sample{Channel: "speed_kph", Value: Number(42)})
	b.Seal()

	first := b.Acquire()
	second := b.Acquire()
	if first.Stale() {
		t.Error("first acquire should be fresh")
	}
	if !second.Stale() {
		t.Error("second acquire should be stale")
	}
	if second.Seq() != first.Seq() {
		t.Errorf("stale frame seq = %d, want %d", second.Seq(), first.Seq())
	}
	if v, _ := second.Number("speed_kph"); v != 42 {
		t.Errorf("stale frame lost data: %v", v)
	}
}

func TestBus_SlotOverwritesUnconsumedFrame(t *testing.T) {
	b := NewBus(BusConfig{Clock: fixedClock()})
	_ = b.Ingest(Sample{Channel: "rpm", Value: Number(1)})
	b.Seal()
	_ = b.Ingest(Sample{Channel: "rpm", Value: Number(2)})
	b.Seal()

	f := b.Acquire()
	if f.Seq() != 2 {
		t.Errorf("Seq = %d, want 2 (latest wins)", f.Seq())
	}
	if v, _ := f.Number("rpm"); v != 2 {
		t.Errorf("rpm = %v, want 2", v)
	}
}

func TestBus_SealWithoutSamplesDoesNothing(t *testing.T) {
	b := NewBus(BusConfig{})
	if _, ok := b.Seal(); ok {
		t.Error("Seal() on empty bus = true")
	}
	_ = b.Ingest(Sample{Channel: "rpm", Value: Number(1)})
	b.Seal()
	if _, ok := b.Seal(); ok {
		t.Error("second Seal() without new samples = true")
	}
}

func TestBus_SnapshotCarriesForwardChannels(t *testing.T) {
	b := NewBus(BusConfig{})
	_ = b.Ingest(Sample{Channel: "rpm", Value: Number(900)})
	b.Seal()
	_ = b.Ingest(Sample{Channel: "speed_kph", Value: Number(10)})
	b.Seal()

	f := b.Acquire()
	if f.Len() != 2 {
		t.Fatalf("Len = %d, want 2", f.Len())
	}
	if got := f.Channels(); got[0] != "rpm" || got[1] != "speed_kph" {
		t.Errorf("Channels = %v", got)
	}
}

func TestBus_IngestRejectsEmptyChannel(t *testing.T) {
	b := NewBus(BusConfig{})
	if err := b.Ingest(Sample{Value: Number(1)}); !errors.Is(err, ErrEmptyChannel) {
		t.Errorf("err = %v, want ErrEmptyChannel", err)
	}
}

func TestBus_SeedDoesNotOverrideLiveValues(t *testing.T) {
	b := NewBus(BusConfig{})
	_ = b.Ingest(Sample{Channel: "rpm", Value: Number(3000)})
	b.Seed(NewFrame(7, time.Now(), map[string]Value{
		"rpm":      Number(1),
		"odometer": Number(12345),
	}))
	b.Seal()
	f := b.Acquire()
	if v, _ := f.Number("rpm"); v != 3000 {
		t.Errorf("rpm = %v, want live value 3000", v)
	}
	if v, _ := f.Number("odometer"); v != 12345 {
		t.Errorf("odometer = %v, want seeded 12345", v)
	}
}

func TestBus_FrameIsImmutable(t *testing.T) {
	src := map[string]Value{"rpm": Number(1)}
	f := NewFrame(1, time.Now(), src)
	src["rpm"] = Number(2)
	vals := f.Values()
	vals["rpm"] = Number(3)
	if v, _ := f.Number("rpm"); v != 1 {
		t.Errorf("frame mutated through caller map: %v", v)
	}
}

func TestBus_RunSealsOnCadence(t *testing.T) {
	b := NewBus(BusConfig{Cadence: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	_ = b.Ingest(Sample{Channel: "rpm", Value: Number(5)})

	deadline := time.Now().Add(2 * time.Second)
	var f Frame
	for time.Now().Before(deadline) {
		f = b.Acquire()
		if !f.Stale() {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if f.Stale() {
		t.Fatal("no fresh frame produced by Run")
	}
}

func TestValue_Variants(t *testing.T) {
	n := Number(1.5)
	if f, ok := n.Float(); !ok || f != 1.5 {
		t.Errorf("Number.Float() = %v, %v", f, ok)
	}
	if _, ok := n.Text(); ok {
		t.Error("Number.Text() ok = true")
	}
	s := Text("P")
	if s.Kind() != KindText || s.String() != "P" {
		t.Errorf("Text value = %v %q", s.Kind(), s.String())
	}
	if !(Value{}).IsZero() {
		t.Error("zero Value not IsZero")
	}
}

func TestBus_SampledAtFollowsSampleTimestamp(t *testing.T) {
	b := NewBus(BusConfig{Clock: fixedClock()})
	taken := time.Unix(1600000000, 0)
	_ = b.Ingest(Sample{Channel: "speed", Value: Number(50), Timestamp: taken})
	_ = b.Ingest(Sample{Channel: "rpm", Value: Number(900)})

	first, _ := b.Seal()
	if got := first.SampledAt("speed"); !got.Equal(taken) {
		t.Errorf("SampledAt(speed) = %v, want %v", got, taken)
	}
	rpmAt := first.SampledAt("rpm")
	if rpmAt.IsZero() || rpmAt.Equal(taken) {
		t.Errorf("SampledAt(rpm) = %v, want the bus clock", rpmAt)
	}

	// speed is carried forward and keeps its original sample time
	_ = b.Ingest(Sample{Channel: "rpm", Value: Number(950)})
	second, _ := b.Seal()
	if got := second.SampledAt("speed"); !got.Equal(taken) {
		t.Errorf("carried SampledAt(speed) = %v, want %v", got, taken)
	}
	if !second.SampledAt("rpm").After(rpmAt) {
		t.Error("SampledAt(rpm) did not advance with the new sample")
	}
}

func TestFrame_SampledAtDefaultsToFrameTimestamp(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	f := NewFrame(1, ts, map[string]Value{"speed": Number(10)})
	if got := f.SampledAt("speed"); !got.Equal(ts) {
		t.Errorf("SampledAt(speed) = %v, want %v", got, ts)
	}
	if got := f.SampledAt("missing"); !got.Equal(ts) {
		t.Errorf("SampledAt(missing) = %v, want %v", got, ts)
	}
}
