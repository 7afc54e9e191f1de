package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bft-labs/carconsole/pkg/telemetry"
	"github.com/bft-labs/carconsole/pkg/vehicle"
)

type recordingSink struct {
	mu      sync.Mutex
	samples []telemetry.Sample
}

func (s *recordingSink) Ingest(sample telemetry.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

func (s *recordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

func sampleValue(t *testing.T, samples []telemetry.Sample, channel string) telemetry.Value {
	t.Helper()
	for _, s := range samples {
		if s.Channel == channel {
			return s.Value
		}
	}
	t.Fatalf("no sample for %q", channel)
	return telemetry.Value{}
}

func TestSimulator_Step(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{})

	samples := sim.Step()
	if len(samples) != 10 {
		t.Fatalf("Step() returned %d samples, want 10", len(samples))
	}
	speed, _ := sampleValue(t, samples, vehicle.ChannelSpeed).Float()
	if speed < 0.09 || speed > 0.11 {
		t.Errorf("speed after one step = %v, want 0.1", speed)
	}
	rpm, _ := sampleValue(t, samples, vehicle.ChannelRPM).Float()
	if rpm != 1010 {
		t.Errorf("rpm after one step = %v, want 1010", rpm)
	}
	if _, ok := sampleValue(t, samples, vehicle.ChannelGear).Text(); !ok {
		t.Error("gear is not text")
	}
	if w, _ := sampleValue(t, samples, vehicle.ChannelWarning).Text(); w != "Engine cold" {
		t.Errorf("warning = %q, want Engine cold", w)
	}
	for _, loc := range vehicle.TireLocations {
		psi, _ := sampleValue(t, samples, vehicle.TirePressureChannel(loc)).Float()
		if psi < 31 || psi > 33 {
			t.Errorf("tire %s = %v PSI, want about 32", loc, psi)
		}
	}
}

func TestSimulator_RPMWraps(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{RPMStep: 3000, MaxRPM: 8000, IdleRPM: 1000})

	var got []float64
	for i := 0; i < 3; i++ {
		rpm, _ := sampleValue(t, sim.Step(), vehicle.ChannelRPM).Float()
		got = append(got, rpm)
	}
	want := []float64{4000, 7000, 1000}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d rpm = %v, want %v", i+1, got[i], want[i])
		}
	}
}

func TestSimulator_Run(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{Interval: time.Millisecond})
	sink := &recordingSink{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := sim.Run(ctx, sink); err != context.DeadlineExceeded {
		t.Errorf("Run() error = %v, want DeadlineExceeded", err)
	}
	if sink.Len() < 5 {
		t.Errorf("sink got %d samples, want at least one step", sink.Len())
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    telemetry.Value
		wantTS  bool
		wantErr bool
	}{
		{"bare number", "42.5", telemetry.Number(42.5), false, false},
		{"json string", `"D"`, telemetry.Text("D"), false, false},
		{"plain text", "Reverse", telemetry.Text("Reverse"), false, false},
		{"numeric string", `"3"`, telemetry.Number(3), false, false},
		{"object", `{"value": 3100, "ts": 1700000000000}`, telemetry.Number(3100), true, false},
		{"object text", `{"value": "P"}`, telemetry.Text("P"), false, false},
		{"bool", "true", telemetry.Number(1), false, false},
		{"object without value", `{"ts": 1}`, telemetry.Value{}, false, true},
		{"array", `[1,2]`, telemetry.Value{}, false, true},
		{"empty", "  ", telemetry.Value{}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ts, err := DecodePayload([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("value = %v (%s), want %v (%s)", got, got.Kind(), tt.want, tt.want.Kind())
			}
			if ts.IsZero() == tt.wantTS {
				t.Errorf("timestamp = %v, wantTS %v", ts, tt.wantTS)
			}
		})
	}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestMQTT_HandleRoutesTopicToChannel(t *testing.T) {
	src := NewMQTT(MQTTConfig{Topic: "car/"}, nil)
	sink := &recordingSink{}

	src.handle(sink, fakeMessage{topic: "car/rpm", payload: []byte("3200")})
	src.handle(sink, fakeMessage{topic: "other/rpm", payload: []byte("1")})
	src.handle(sink, fakeMessage{topic: "car/", payload: []byte("1")})
	src.handle(sink, fakeMessage{topic: "car/speed_kph", payload: []byte("")})

	if sink.Len() != 1 {
		t.Fatalf("sink got %d samples, want 1", sink.Len())
	}
	s := sink.samples[0]
	if s.Channel != "rpm" || !s.Value.Equal(telemetry.Number(3200)) {
		t.Errorf("sample = %+v", s)
	}
	if s.Timestamp.IsZero() {
		t.Error("sample has no timestamp")
	}
}

// pendingToken never completes unless err is set.
type pendingToken struct{ err error }

func (t pendingToken) Wait() bool                     { return t.err != nil }
func (t pendingToken) WaitTimeout(time.Duration) bool { return t.err != nil }
func (t pendingToken) Done() <-chan struct{}          { return make(chan struct{}) }
func (t pendingToken) Error() error                   { return t.err }

type stalledClient struct {
	mqtt.Client
	connectErr   error
	disconnected int
}

func (c *stalledClient) Connect() mqtt.Token { return pendingToken{err: c.connectErr} }
func (c *stalledClient) Disconnect(uint)     { c.disconnected++ }

func TestMQTT_FailedConnectDisconnects(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"timeout", nil},
		{"refused", errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stalledClient{connectErr: tt.err}
			src := NewMQTT(MQTTConfig{Broker: "tcp://127.0.0.1:1", Topic: "car", ConnectTimeout: time.Millisecond}, nil)
			src.newClient = func(*mqtt.ClientOptions) mqtt.Client { return client }

			if err := src.Run(context.Background(), &recordingSink{}); err == nil {
				t.Fatal("Run() succeeded without a broker")
			}
			if client.disconnected != 1 {
				t.Errorf("Disconnect called %d times, want 1", client.disconnected)
			}
		})
	}
}
