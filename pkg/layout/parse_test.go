package layout

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bft-labs/carconsole/pkg/geom"
)

const speedRPM = `<?xml version="1.0"?>
<layout>
  <window title="Dash" width="800" height="600">
    <split direction="horizontal">
      <panel title="Speedometer" plugin="speedometer"/>
      <panel title="RPM"/>
    </split>
  </window>
</layout>`

func TestParseXML_SpeedometerAndRPM(t *testing.T) {
	doc, err := ParseBytes([]byte(speedRPM), FormatXML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Windows) != 1 {
		t.Fatalf("windows = %d, want 1", len(doc.Windows))
	}
	win := doc.Windows[0]
	if len(win.Children) != 1 || win.Children[0].Kind != KindSplit {
		t.Fatalf("window children = %v", win.Children)
	}
	split := win.Children[0]
	if split.Direction != Horizontal || len(split.Children) != 2 {
		t.Fatalf("split = %v", split)
	}
	if split.Children[0].Title != "Speedometer" || split.Children[0].Plugin != "speedometer" {
		t.Errorf("first panel = %v", split.Children[0])
	}
	if split.Children[1].Title != "RPM" || split.Children[1].Bound() {
		t.Errorf("second panel = %v", split.Children[1])
	}

	var panels []geom.Rect
	for _, p := range Arrange(win, geom.R(0, 0, win.Width, win.Height)) {
		if p.Node.Kind == KindPanel {
			panels = append(panels, p.Rect)
		}
	}
	want := []geom.Rect{geom.R(0, 0, 400, 600), geom.R(400, 0, 400, 600)}
	if len(panels) != 2 || panels[0] != want[0] || panels[1] != want[1] {
		t.Errorf("panel rects = %v, want %v", panels, want)
	}
}

func TestParseXML_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		reason string
	}{
		{"malformed", `<layout><window title="a" width="1" height="1"></layout>`, ""},
		{"no root", ``, "missing <layout>"},
		{"wrong root", `<dash/>`, "root element"},
		{"unknown element", `<layout><window title="a" width="1" height="1"><grid/></window></layout>`, "unknown element"},
		{"missing title", `<layout><window width="1" height="1"/></layout>`, `"title"`},
		{"empty title", `<layout><window title="" width="1" height="1"/></layout>`, `"title"`},
		{"missing width", `<layout><window title="a" height="1"/></layout>`, `"width"`},
		{"bad number", `<layout><window title="a" width="wide" height="1"/></layout>`, "not an integer"},
		{"zero height", `<layout><window title="a" width="1" height="0"/></layout>`, "1..4096"},
		{"huge width", `<layout><window title="a" width="1099511627776" height="16777216"/></layout>`, "width"},
		{"width over bound", `<layout><window title="a" width="4097" height="1"/></layout>`, "1..4096"},
		{"weights overflow", `<layout><window title="a" width="10" height="1"><split direction="horizontal"><panel title="x" weight="1e308"/><panel title="y" weight="1e308"/></split></window></layout>`, "overflow"},
		{"split with one child", `<layout><window title="a" width="1" height="1"><split direction="vertical"><panel title="x"/></split></window></layout>`, "at least 2"},
		{"bad direction", `<layout><window title="a" width="1" height="1"><split direction="diagonal"><panel title="x"/><panel title="y"/></split></window></layout>`, "direction"},
		{"two window children", `<layout><window title="a" width="1" height="1"><panel title="x"/><panel title="y"/></window></layout>`, "more than one child"},
		{"nested window", `<layout><window title="a" width="1" height="1"><window title="b" width="1" height="1"/></window></layout>`, "nested"},
		{"panel with child", `<layout><window title="a" width="1" height="1"><panel title="x"><panel title="y"/></panel></window></layout>`, "panel cannot contain"},
		{"unknown attribute", `<layout><window title="a" width="1" height="1" color="red"/></layout>`, "unknown attribute"},
		{"weight outside split", `<layout><window title="a" width="1" height="1"><panel title="x" weight="2"/></window></layout>`, "unknown attribute"},
		{"bad weight", `<layout><window title="a" width="1" height="1"><split direction="vertical"><panel title="x" weight="-1"/><panel title="y"/></split></window></layout>`, "weight"},
		{"stray text", `<layout><window title="a" width="1" height="1">hello</window></layout>`, "unexpected text"},
		{"panel missing title", `<layout><window title="a" width="1" height="1"><panel/></window></layout>`, `"title"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseBytes([]byte(tt.doc), FormatXML)
			if doc != nil {
				t.Errorf("got partial document %v", doc.Windows)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if tt.reason != "" && !strings.Contains(pe.Error(), tt.reason) {
				t.Errorf("error %q does not mention %q", pe.Error(), tt.reason)
			}
		})
	}
}

func TestParseXML_ErrorCarriesLocation(t *testing.T) {
	doc := "<layout>\n  <window title=\"a\" width=\"1\" height=\"1\">\n    <split direction=\"vertical\">\n      <panel title=\"only\"/>\n    </split>\n  </window>\n</layout>"
	_, err := ParseBytes([]byte(doc), FormatXML)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v", err)
	}
	if pe.Line < 3 {
		t.Errorf("Line = %d, want the split's closing line", pe.Line)
	}
	if pe.Path != "layout/window[0]/split" {
		t.Errorf("Path = %q", pe.Path)
	}
}

const speedRPMYAML = `windows:
  - window:
      title: Dash
      width: 800
      height: 600
      child:
        split:
          direction: horizontal
          children:
            - panel: {title: Speedometer, plugin: speedometer}
            - panel: {title: RPM}
`

func TestParseYAML_MatchesXML(t *testing.T) {
	x, err := ParseBytes([]byte(speedRPM), FormatXML)
	if err != nil {
		t.Fatal(err)
	}
	y, err := ParseBytes([]byte(speedRPMYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Parse(yaml) error = %v", err)
	}
	if !x.Equal(y) {
		t.Error("YAML and XML documents differ")
	}
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		reason string
	}{
		{"syntax", "windows:\n\t- window: {}\n", ""},
		{"unknown key", "windows:\n  - window: {title: a, width: 1, height: 1, colour: red}\n", "unknown key"},
		{"missing title", "windows:\n  - window: {width: 1, height: 1}\n", "title"},
		{"bad size", "windows:\n  - window: {title: a, width: big, height: 1}\n", "not an integer"},
		{"size over bound", "windows:\n  - window: {title: a, width: 1, height: 5000}\n", "1..4096"},
		{"short split", "windows:\n  - window:\n      title: a\n      width: 1\n      height: 1\n      child:\n        split:\n          direction: vertical\n          children:\n            - panel: {title: x}\n", "at least 2"},
		{"nested window", "windows:\n  - window:\n      title: a\n      width: 1\n      height: 1\n      child:\n        window: {title: b, width: 1, height: 1}\n", "nested"},
		{"weight outside split", "windows:\n  - window:\n      title: a\n      width: 1\n      height: 1\n      child:\n        panel: {title: x, weight: 2}\n", "unknown key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.doc), FormatYAML)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if tt.reason != "" && !strings.Contains(pe.Error(), tt.reason) {
				t.Errorf("error %q does not mention %q", pe.Error(), tt.reason)
			}
			if pe.Line == 0 {
				t.Errorf("error %q has no line", pe.Error())
			}
		})
	}
}

func sampleDocuments() map[string]*Document {
	return map[string]*Document{
		"empty":        NewDocument(),
		"empty window": NewDocument(NewWindow("Idle", 40, 10, nil)),
		"single panel": NewDocument(NewWindow("One", 80, 24, NewPanel("Speed", "speedometer"))),
		"weighted nested": NewDocument(
			NewWindow("Main", 120, 40, NewSplit(Vertical,
				NewSplit(Horizontal,
					NewPanel("Speed", "speedometer").WithWeight(2),
					NewPanel("RPM", "tachometer"),
				).WithWeight(3),
				NewPanel("", "").WithWeight(0.5),
			)),
			NewWindow("Trip & <Stats>", 60, 20, NewPanel("42", "tripcomputer")),
		),
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatXML, FormatYAML} {
		for name, doc := range sampleDocuments() {
			t.Run(format.String()+"/"+name, func(t *testing.T) {
				data, err := Marshal(doc, format)
				if err != nil {
					t.Fatalf("Marshal() error = %v", err)
				}
				back, err := ParseBytes(data, format)
				if err != nil {
					t.Fatalf("Parse() error = %v\n%s", err, data)
				}
				if !doc.Equal(back) {
					t.Errorf("round trip changed the tree:\n%s", data)
				}
				again, err := Marshal(back, format)
				if err != nil {
					t.Fatal(err)
				}
				if string(again) != string(data) {
					t.Errorf("second serialization differs:\n%s\nvs\n%s", data, again)
				}
			})
		}
	}
}

func TestParseFile_PicksFormatAndSetsFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "dash.yml")
	if err := os.WriteFile(good, []byte(speedRPMYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseFile(good); err != nil {
		t.Errorf("ParseFile(yaml) error = %v", err)
	}

	bad := filepath.Join(dir, "dash.xml")
	if err := os.WriteFile(bad, []byte("<layout><bogus/></layout>"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ParseFile(bad)
	var pe *ParseError
	if !errors.As(err, &pe) || pe.File != bad {
		t.Errorf("err = %v, want ParseError for %s", err, bad)
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.xml")); err == nil || errors.As(err, &pe) {
		t.Errorf("missing file err = %v, want plain I/O error", err)
	}
}

func TestParseXML_HugeWeightArrangesWithinWindow(t *testing.T) {
	doc, err := ParseBytes([]byte(`<layout>
  <window title="W" width="800" height="600">
    <split direction="horizontal">
      <panel title="A" weight="1e306"/>
      <panel title="B"/>
    </split>
  </window>
</layout>`), FormatXML)
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	sum := 0
	for _, p := range Arrange(doc.Windows[0], geom.R(0, 0, 800, 600)) {
		if p.Node.Kind != KindPanel {
			continue
		}
		if p.Rect.Width < 0 || p.Rect.Right() > 800 {
			t.Errorf("panel %q -> %v", p.Node.Title, p.Rect)
		}
		sum += p.Rect.Width
	}
	if sum != 800 {
		t.Errorf("panel widths sum to %d, want 800", sum)
	}
}
