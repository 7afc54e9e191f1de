package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/carconsole/pkg/geom"
	"github.com/bft-labs/carconsole/pkg/log"
	"github.com/bft-labs/carconsole/pkg/plugin"
	"github.com/bft-labs/carconsole/pkg/surface"
	"github.com/bft-labs/carconsole/pkg/telemetry"
)

type stubPlugin struct{ inits int }

func (p *stubPlugin) Init() error              { p.inits++; return nil }
func (p *stubPlugin) Update(telemetry.Frame)   {}
func (p *stubPlugin) Render(s surface.Surface) { s.Text(0, 0, "stub", surface.Plain) }

const gaugeScript = `
PLUGIN_NAME = "gauge"
PLUGIN_VERSION = "0.2.0"
PLUGIN_ABI = "1.0.0"

function new_plugin()
  local p = { label = "none" }
  function p:init() self.label = "idle" end
  function p:update(frame)
    if frame.speed_kph and frame.speed_kph > 40 then
      self.label = "fast"
    else
      self.label = "slow"
    end
  end
  function p:render(s)
    s.box(0, 0, s.width(), s.height(), "#40c060")
    s.text(1, 1, self.label)
  end
  return p
end
`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestBuiltin_Open(t *testing.T) {
	b := NewBuiltin()
	b.Register(plugin.Manifest{Name: "stub", Version: "1.0.0"}, func() plugin.Plugin { return &stubPlugin{} })

	mod, err := b.Open(BuiltinPath("stub"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := mod.Manifest().ABI; got != plugin.ABIVersion {
		t.Errorf("ABI = %q, want host ABI %q", got, plugin.ABIVersion)
	}
	if _, err := mod.Factory(); err != nil {
		t.Errorf("Factory() error = %v", err)
	}

	if _, err := b.Open(BuiltinPath("missing")); err == nil {
		t.Error("Open(missing) succeeded")
	}
	if _, err := b.Open("stub"); err == nil {
		t.Error("Open without scheme succeeded")
	}
	if got := b.Paths(); len(got) != 1 || got[0] != "builtin:stub" {
		t.Errorf("Paths() = %v", got)
	}
}

func TestBuiltin_NilFactory(t *testing.T) {
	b := NewBuiltin()
	b.Register(plugin.Manifest{Name: "empty"}, nil)

	r := plugin.NewRegistry(b, log.NewNoopLogger())
	_, err := r.Load(BuiltinPath("empty"))
	if !errors.Is(err, plugin.ErrSymbolMissing) {
		t.Errorf("Load() error = %v, want ErrSymbolMissing", err)
	}
}

func TestLua_LoadUpdateRender(t *testing.T) {
	path := writeScript(t, t.TempDir(), "gauge.lua", gaugeScript)

	r := plugin.NewRegistry(NewLua(), log.NewNoopLogger())
	desc, err := r.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if desc.Name != "gauge" || desc.Version != "0.2.0" {
		t.Errorf("descriptor = %+v", desc)
	}

	canvas := surface.NewCanvas(10, 4)
	frame := telemetry.NewFrame(1, time.Now(), map[string]telemetry.Value{
		"speed_kph": telemetry.Number(88),
	})
	err = r.Invoke("gauge", func(p plugin.Plugin) {
		p.Update(frame)
		p.Render(surface.NewRegion(canvas, geom.R(0, 0, 10, 4)))
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if got := canvas.Row(1); !strings.HasPrefix(got, "│fast") {
		t.Errorf("row 1 = %q, want prefix %q", got, "│fast")
	}
	if ch, st := canvas.Cell(0, 0); ch != '┌' || st.Fg != surface.Green {
		t.Errorf("corner = %q %s", ch, st.Fg.Hex())
	}

	if err := r.Unload("gauge"); err != nil {
		t.Errorf("Unload() error = %v", err)
	}
}

func TestLua_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   error
	}{
		{
			name:   "no entry point",
			script: `PLUGIN_NAME = "x"; PLUGIN_VERSION = "1.0.0"; PLUGIN_ABI = "1.0.0"`,
			want:   plugin.ErrSymbolMissing,
		},
		{
			name:   "incompatible abi",
			script: `PLUGIN_NAME = "x"; PLUGIN_ABI = "2.0.0"; function new_plugin() return {} end`,
			want:   plugin.ErrIncompatible,
		},
		{
			name:   "init raises",
			script: `PLUGIN_NAME = "x"; PLUGIN_ABI = "1.0.0"; function new_plugin() return { init = function(self) error("no sensor") end } end`,
			want:   plugin.ErrInitFailed,
		},
		{
			name:   "syntax error",
			script: `PLUGIN_NAME = = "x"`,
			want:   plugin.ErrOpenFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, t.TempDir(), "x.lua", tt.script)
			r := plugin.NewRegistry(NewLua(), nil)

			_, err := r.Load(path)
			if !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
			if r.Len() != 0 {
				t.Errorf("registry has %d entries after failed load", r.Len())
			}
		})
	}
}

func TestLua_RuntimeErrorPanics(t *testing.T) {
	script := `PLUGIN_NAME = "bad"; PLUGIN_ABI = "1.0.0"
function new_plugin() return { render = function(self, s) error("boom") end } end`
	path := writeScript(t, t.TempDir(), "bad.lua", script)

	mod, err := NewLua().Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer mod.Close()
	factory, err := mod.Factory()
	if err != nil {
		t.Fatalf("Factory() error = %v", err)
	}
	p := factory()

	defer func() {
		if recover() == nil {
			t.Error("Render did not panic on script error")
		}
	}()
	p.Render(surface.NewRegion(surface.NewCanvas(4, 4), geom.R(0, 0, 4, 4)))
}

func TestMux_OpenAndDiscover(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plugins")
	b := NewBuiltin()
	b.Register(plugin.Manifest{Name: "stub"}, func() plugin.Plugin { return &stubPlugin{} })
	m := NewMux(b)

	paths, err := m.Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("Discover() on new dir = %v, want empty", paths)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("plugin dir not created: %v", err)
	}

	writeScript(t, dir, "b.lua", gaugeScript)
	writeScript(t, dir, "a.SO", "")
	writeScript(t, dir, "notes.txt", "")
	writeScript(t, dir, ".hidden.lua", "")

	paths, err = m.Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.SO"), filepath.Join(dir, "b.lua")}
	if len(paths) != len(want) || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("Discover() = %v, want %v", paths, want)
	}

	if _, err := m.Open(BuiltinPath("stub")); err != nil {
		t.Errorf("Open(builtin) error = %v", err)
	}
	if mod, err := m.Open(filepath.Join(dir, "b.lua")); err != nil {
		t.Errorf("Open(lua) error = %v", err)
	} else {
		mod.Close()
	}
	if _, err := m.Open(filepath.Join(dir, "notes.txt")); err == nil {
		t.Error("Open(txt) succeeded")
	}
}

func TestLua_RunawayUpdateIsCutOff(t *testing.T) {
	script := `PLUGIN_NAME = "spin"; PLUGIN_ABI = "1.0.0"
function new_plugin()
  local p = {}
  function p:update(frame) while true do end end
  return p
end`
	path := writeScript(t, t.TempDir(), "spin.lua", script)

	l := &Lua{Timeout: 50 * time.Millisecond}
	mod, err := l.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer mod.Close()
	factory, err := mod.Factory()
	if err != nil {
		t.Fatalf("Factory() error = %v", err)
	}
	p := factory()

	done := make(chan any, 1)
	go func() {
		defer func() { done <- recover() }()
		p.Update(telemetry.Frame{})
	}()
	select {
	case r := <-done:
		if r == nil {
			t.Error("runaway update returned without panicking")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runaway update still running after 2s")
	}
}

func TestLua_RestrictedLibraries(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"os", `PLUGIN_NAME = "x"; PLUGIN_ABI = "1.0.0"; os.exit(1)`},
		{"io", `PLUGIN_NAME = "x"; PLUGIN_ABI = "1.0.0"; io.open("/etc/passwd")`},
		{"dofile", `PLUGIN_NAME = "x"; PLUGIN_ABI = "1.0.0"; dofile("/etc/passwd")`},
		{"require", `PLUGIN_NAME = "x"; PLUGIN_ABI = "1.0.0"; require("os")`},
		{"top-level loop", `PLUGIN_NAME = "x"; while true do end`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, t.TempDir(), "x.lua", tt.script)
			l := &Lua{Timeout: 50 * time.Millisecond}
			if mod, err := l.Open(path); err == nil {
				mod.Close()
				t.Error("Open() succeeded")
			}
		})
	}

	path := writeScript(t, t.TempDir(), "libs.lua", `PLUGIN_NAME = "libs"; PLUGIN_ABI = "1.0.0"
LABEL = string.format("%d", math.floor(#{1, 2, 3} * 1.5)) .. table.concat({"a", "b"})
function new_plugin() return {} end`)
	mod, err := NewLua().Open(path)
	if err != nil {
		t.Fatalf("Open() with base, string, math and table = %v", err)
	}
	mod.Close()
}
