package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/carconsole/pkg/geom"
	"github.com/bft-labs/carconsole/pkg/layout"
	"github.com/bft-labs/carconsole/pkg/log"
	"github.com/bft-labs/carconsole/pkg/plugin"
	"github.com/bft-labs/carconsole/pkg/surface"
	"github.com/bft-labs/carconsole/pkg/telemetry"
)

type testPlugin struct {
	name         string
	panicUpdate  bool
	panicRender  bool
	updates      int
	renders      int
	lastStale    bool
	renderBounds []geom.Rect
}

func (p *testPlugin) Init() error { return nil }

func (p *testPlugin) Update(f telemetry.Frame) {
	p.updates++
	p.lastStale = f.Stale()
	if p.panicUpdate {
		panic("update blew up")
	}
}

func (p *testPlugin) Render(s surface.Surface) {
	p.renders++
	p.renderBounds = append(p.renderBounds, s.Bounds())
	if p.panicRender {
		s.Text(0, 0, "half drawn", surface.Plain)
		panic("render blew up")
	}
	s.Text(0, 0, p.name, surface.Plain)
}

type testModule struct {
	p *testPlugin
}

func (m testModule) Manifest() plugin.Manifest {
	return plugin.Manifest{Name: m.p.name, Version: "1.0.0", ABI: plugin.ABIVersion}
}
func (m testModule) Factory() (plugin.Factory, error) {
	return func() plugin.Plugin { return m.p }, nil
}
func (m testModule) Close() error { return nil }

func newRegistry(t *testing.T, ps ...*testPlugin) *plugin.Registry {
	t.Helper()
	mods := make(map[string]*testPlugin)
	for _, p := range ps {
		mods[p.name] = p
	}
	reg := plugin.NewRegistry(plugin.LoaderFunc(func(path string) (plugin.Module, error) {
		p, ok := mods[path]
		if !ok {
			return nil, errors.New("missing")
		}
		return testModule{p: p}, nil
	}), log.NewNoopLogger())
	for _, p := range ps {
		if _, err := reg.Load(p.name); err != nil {
			t.Fatalf("Load(%s) error = %v", p.name, err)
		}
	}
	return reg
}

type staticFrames struct {
	frame telemetry.Frame
}

func (s *staticFrames) Acquire() telemetry.Frame { return s.frame }

func TestTick_SpeedometerRPMExample(t *testing.T) {
	doc, err := layout.ParseBytes([]byte(`<layout>
  <window title="Dash" width="800" height="600">
    <split direction="horizontal">
      <panel title="Speedometer" plugin="speedometer"/>
      <panel title="RPM" plugin="rpm"/>
    </split>
  </window>
</layout>`), layout.FormatXML)
	if err != nil {
		t.Fatal(err)
	}
	speed := &testPlugin{name: "speedometer"}
	rpm := &testPlugin{name: "rpm"}
	display := NewHeadlessDisplay()
	loop := New(Config{Document: doc, Registry: newRegistry(t, speed, rpm), Display: display})

	rep := loop.Tick()
	if rep.Rendered != 2 || rep.Placeholders != 0 {
		t.Fatalf("report = %+v", rep)
	}
	want := geom.R(0, 0, 400, 600)
	if speed.renderBounds[0] != want || rpm.renderBounds[0] != want {
		t.Errorf("bounds = %v / %v, want %v", speed.renderBounds[0], rpm.renderBounds[0], want)
	}
	c, ok := display.Canvas(doc.Windows[0].ID)
	if !ok {
		t.Fatal("no canvas for window")
	}
	if row := c.Row(0); !strings.HasPrefix(row, "speedometer") || row[400:403] != "rpm" {
		t.Errorf("row 0 = %q...", row[:420])
	}
}

func TestTick_UpdatesEachBoundPluginOnce(t *testing.T) {
	shared := &testPlugin{name: "gauge"}
	idle := &testPlugin{name: "idle"}
	doc := layout.NewDocument(
		layout.NewWindow("A", 20, 5, layout.NewSplit(layout.Horizontal,
			layout.NewPanel("1", "gauge"), layout.NewPanel("2", "gauge"))),
		layout.NewWindow("B", 20, 5, layout.NewPanel("3", "gauge")),
	)
	loop := New(Config{Document: doc, Registry: newRegistry(t, shared, idle), Display: NewHeadlessDisplay()})

	loop.Tick()
	loop.Tick()
	if shared.updates != 2 {
		t.Errorf("updates = %d over 2 ticks, want 2", shared.updates)
	}
	if shared.renders != 6 {
		t.Errorf("renders = %d, want 3 panels x 2 ticks", shared.renders)
	}
	if idle.updates != 0 || idle.renders != 0 {
		t.Errorf("unbound plugin was called: %d updates, %d renders", idle.updates, idle.renders)
	}
}

func TestTick_RenderFaultIsolated(t *testing.T) {
	bad := &testPlugin{name: "bad", panicRender: true}
	good := &testPlugin{name: "good"}
	doc := layout.NewDocument(layout.NewWindow("W", 40, 10, layout.NewSplit(layout.Vertical,
		layout.NewPanel("Bad", "bad"), layout.NewPanel("Good", "good"))))

	var mu sync.Mutex
	var faults []string
	display := NewHeadlessDisplay()
	loop := New(Config{
		Document: doc,
		Registry: newRegistry(t, bad, good),
		Display:  display,
		OnFault: func(name string, err error) {
			mu.Lock()
			faults = append(faults, name)
			mu.Unlock()
			var fe *plugin.FaultError
			if !errors.As(err, &fe) || fe.Phase != "render" {
				t.Errorf("fault err = %v", err)
			}
		},
	})

	first := loop.Tick()
	if len(first.Faults) != 1 || first.Faults[0] != "bad" {
		t.Errorf("first tick faults = %v", first.Faults)
	}
	for i := 0; i < 3; i++ {
		rep := loop.Tick()
		if len(rep.Faults) != 0 {
			t.Errorf("tick %d reported faults again: %v", rep.Tick, rep.Faults)
		}
		if rep.Rendered != 1 {
			t.Errorf("tick %d rendered %d panels, want the good one", rep.Tick, rep.Rendered)
		}
	}

	if len(faults) != 1 {
		t.Errorf("fault handler called %d times, want 1", len(faults))
	}
	if bad.renders != 1 || bad.updates != 1 {
		t.Errorf("faulted plugin kept being called: %d renders, %d updates", bad.renders, bad.updates)
	}
	if good.renders != 4 {
		t.Errorf("good plugin renders = %d, want 4", good.renders)
	}
	c, _ := display.Canvas(doc.Windows[0].ID)
	if !strings.Contains(c.String(), "bad faulted") {
		t.Errorf("error placeholder missing:\n%s", c.String())
	}
	if strings.Contains(c.String(), "half drawn") {
		t.Error("partial output of faulted render left on screen")
	}
}

func TestTick_UpdateFaultSkipsRender(t *testing.T) {
	bad := &testPlugin{name: "bad", panicUpdate: true}
	doc := layout.NewDocument(layout.NewWindow("W", 30, 8, layout.NewPanel("Bad", "bad")))
	loop := New(Config{Document: doc, Registry: newRegistry(t, bad), Display: NewHeadlessDisplay()})

	rep := loop.Tick()
	if len(rep.Faults) != 1 || rep.Placeholders != 1 || bad.renders != 0 {
		t.Errorf("report = %+v, renders = %d", rep, bad.renders)
	}
	loop.Tick()
	if bad.updates != 1 {
		t.Errorf("updates = %d, want 1", bad.updates)
	}
}

func TestUnloadCommand_UnbindsAllPanels(t *testing.T) {
	gauge := &testPlugin{name: "gauge"}
	doc := layout.NewDocument(layout.NewWindow("W", 60, 10, layout.NewSplit(layout.Horizontal,
		layout.NewPanel("1", "gauge"), layout.NewPanel("2", "gauge"), layout.NewPanel("3", "gauge"))))
	display := NewHeadlessDisplay()
	loop := New(Config{Document: doc, Registry: newRegistry(t, gauge), Display: display})
	loop.Tick()

	done := loop.Submit(Unload("gauge"))
	rep := loop.Tick()
	if err := <-done; err != nil {
		t.Fatalf("unload error = %v", err)
	}
	for _, p := range doc.Panels() {
		if p.Bound() {
			t.Errorf("panel %s still bound to %q", p.Title, p.Plugin)
		}
	}
	if rep.Placeholders != 3 || rep.Rendered != 0 {
		t.Errorf("report = %+v", rep)
	}
	if gauge.renders != 3 {
		t.Errorf("renders after unload: %d", gauge.renders-3)
	}
	c, _ := display.Canvas(doc.Windows[0].ID)
	if strings.Count(c.String(), "unbound") != 3 {
		t.Errorf("want 3 unbound placeholders:\n%s", c.String())
	}
}

func TestSubmit_AppliedAtTickBoundaryInOrder(t *testing.T) {
	p := layout.NewPanel("P", "")
	doc := layout.NewDocument(layout.NewWindow("W", 40, 10, p))
	loop := New(Config{Document: doc, Registry: newRegistry(t, &testPlugin{name: "gauge"})})

	split := loop.Submit(Edit(layout.SplitEdit{PanelID: p.ID, Direction: layout.Vertical}))
	bind := loop.Submit(Edit(layout.BindEdit{PanelID: p.ID, Plugin: "gauge"}))
	bad := loop.Submit(Edit(layout.BindEdit{PanelID: p.ID, Plugin: "ghost"}))

	if doc.Windows[0].Children[0] != p {
		t.Fatal("command applied before the tick")
	}
	rep := loop.Tick()
	if rep.Commands != 3 || rep.CommandErrors != 1 {
		t.Errorf("report = %+v", rep)
	}
	if err := <-split; err != nil {
		t.Errorf("split err = %v", err)
	}
	if err := <-bind; err != nil {
		t.Errorf("bind err = %v", err)
	}
	if err := <-bad; !errors.Is(err, layout.ErrInvalidEdit) {
		t.Errorf("bind ghost err = %v", err)
	}
	if doc.Windows[0].Children[0].Kind != layout.KindSplit || p.Plugin != "gauge" {
		t.Error("edits not applied in order")
	}
}

func TestReplaceLayout(t *testing.T) {
	gauge := &testPlugin{name: "gauge"}
	loop := New(Config{Registry: newRegistry(t, gauge), Display: NewHeadlessDisplay()})

	next := layout.NewDocument(layout.NewWindow("New", 10, 5, layout.NewPanel("G", "gauge")))
	loop.Submit(ReplaceLayout(next))
	rep := loop.Tick()
	if loop.Document() != next || rep.Rendered != 1 {
		t.Errorf("layout not replaced: %+v", rep)
	}

	broken := layout.NewDocument(layout.NewWindow("", 0, 0, nil))
	done := loop.Submit(ReplaceLayout(broken))
	loop.Tick()
	if err := <-done; !errors.Is(err, layout.ErrInvalidTree) {
		t.Errorf("invalid layout err = %v", err)
	}
	if loop.Document() != next {
		t.Error("invalid layout replaced the current one")
	}
}

func TestTick_StaleFramePassedThrough(t *testing.T) {
	gauge := &testPlugin{name: "gauge"}
	bus := telemetry.NewBus(telemetry.BusConfig{})
	doc := layout.NewDocument(layout.NewWindow("W", 10, 5, layout.NewPanel("G", "gauge")))
	loop := New(Config{Document: doc, Registry: newRegistry(t, gauge), Frames: bus})

	_ = bus.Ingest(telemetry.Sample{Channel: "rpm", Value: telemetry.Number(900)})
	bus.Seal()
	if rep := loop.Tick(); rep.Stale || gauge.lastStale {
		t.Errorf("fresh frame reported stale: %+v", rep)
	}
	if rep := loop.Tick(); !rep.Stale || !gauge.lastStale {
		t.Errorf("repeated frame not stale: %+v", rep)
	}
}

func TestTick_EmptyWindowPlaceholder(t *testing.T) {
	doc := layout.NewDocument(layout.NewWindow("Idle", 30, 6, nil))
	display := NewHeadlessDisplay()
	loop := New(Config{Document: doc, Display: display})
	rep := loop.Tick()
	if rep.Placeholders != 1 {
		t.Errorf("placeholders = %d", rep.Placeholders)
	}
	c, _ := display.Canvas(doc.Windows[0].ID)
	if !strings.Contains(c.String(), "empty window") {
		t.Errorf("canvas:\n%s", c.String())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	display := NewHeadlessDisplay()
	loop := New(Config{Display: display})
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx, 100)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v", err)
	}
	if display.Presents() < 2 {
		t.Errorf("presents = %d, want several ticks", display.Presents())
	}
}

func TestHeadlessDisplay_DropsCanvasesOfReplacedWindows(t *testing.T) {
	display := NewHeadlessDisplay()
	loop := New(Config{Display: display})
	var ids []string
	for i := 0; i < 50; i++ {
		doc := layout.Default()
		ids = append(ids, doc.Windows[0].ID)
		loop.Submit(ReplaceLayout(doc))
		loop.Tick()
	}
	for _, id := range ids[:len(ids)-1] {
		if _, ok := display.Canvas(id); ok {
			t.Fatalf("canvas of replaced window %s still held", id)
		}
	}
	if _, ok := display.Canvas(ids[len(ids)-1]); !ok {
		t.Error("canvas of the current window was dropped")
	}
}

func TestTick_OversizedWindowDoesNotPanic(t *testing.T) {
	doc := layout.NewDocument(layout.NewWindow("Wide", 1<<40, 1, layout.NewPanel("P", "")))
	display := NewHeadlessDisplay()
	loop := New(Config{Document: doc, Display: display})
	rep := loop.Tick()
	if rep.Placeholders != 1 {
		t.Errorf("report = %+v, want one placeholder", rep)
	}
	c, ok := display.Canvas(doc.Windows[0].ID)
	if !ok {
		t.Fatal("no canvas for the window")
	}
	if w, _ := c.Size(); w != surface.MaxCanvasSize {
		t.Errorf("canvas width = %d, want %d", w, surface.MaxCanvasSize)
	}
}
