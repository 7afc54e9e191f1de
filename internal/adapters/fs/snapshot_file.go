package fs

import (
	"context"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/bft-labs/carconsole/pkg/telemetry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type snapshotFile struct {
	Seq      uint64                   `json:"seq"`
	SavedAt  time.Time                `json:"saved_at"`
	Channels map[string]snapshotValue `json:"channels"`
}

type snapshotValue struct {
	Number *float64 `json:"number,omitempty"`
	Text   *string  `json:"text,omitempty"`
}

// SnapshotStore persists the last telemetry frame as JSON so the bus can
// be seeded with it on the next start.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore creates a store backed by the file at path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Path returns the snapshot file path.
func (s *SnapshotStore) Path() string { return s.path }

// Load reads the saved frame. It returns an empty frame and ok == false
// when no snapshot exists.
func (s *SnapshotStore) Load(ctx context.Context) (telemetry.Frame, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return telemetry.Frame{}, false, nil
		}
		return telemetry.Frame{}, false, err
	}

	var f snapshotFile
	if err := json.Unmarshal(data, &f); err != nil {
		return telemetry.Frame{}, false, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}

	values := make(map[string]telemetry.Value, len(f.Channels))
	for ch, v := range f.Channels {
		switch {
		case v.Number != nil:
			values[ch] = telemetry.Number(*v.Number)
		case v.Text != nil:
			values[ch] = telemetry.Text(*v.Text)
		}
	}
	return telemetry.NewFrame(f.Seq, f.SavedAt, values), true, nil
}

// Save writes frame atomically. Empty frames are not written.
func (s *SnapshotStore) Save(ctx context.Context, frame telemetry.Frame) error {
	if frame.Len() == 0 {
		return nil
	}

	f := snapshotFile{
		Seq:      frame.Seq(),
		SavedAt:  time.Now().UTC(),
		Channels: make(map[string]snapshotValue, frame.Len()),
	}
	for ch, v := range frame.Values() {
		switch v.Kind() {
		case telemetry.KindNumber:
			n, _ := v.Float()
			f.Channels[ch] = snapshotValue{Number: &n}
		case telemetry.KindText:
			t, _ := v.Text()
			f.Channels[ch] = snapshotValue{Text: &t}
		}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.path, data, 0o600)
}
