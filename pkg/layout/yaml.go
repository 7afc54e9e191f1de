package layout

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// The YAML form mirrors the XML one:
//
//	windows:
//	  - window:
//	      title: Main
//	      width: 800
//	      height: 600
//	      child:
//	        split:
//	          direction: horizontal
//	          children:
//	            - panel: {title: Speedometer, plugin: speedometer, weight: 2}
//	            - panel: {title: RPM}

func parseYAML(r io.Reader) (*Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return &Document{}, nil
		}
		return nil, yamlSyntaxError(err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return &Document{}, nil
	}
	return yamlDocument(root.Content[0])
}

func yamlSyntaxError(err error) *ParseError {
	msg := err.Error()
	pe := &ParseError{Reason: msg}
	var line int
	if _, serr := fmt.Sscanf(msg, "yaml: line %d:", &line); serr == nil {
		pe.Line = line
		if i := strings.Index(msg, ": "); i >= 0 {
			if j := strings.Index(msg[i+2:], ": "); j >= 0 {
				pe.Reason = msg[i+2+j+2:]
			}
		}
	}
	return pe
}

func yamlFail(n *yaml.Node, path, format string, args ...any) *ParseError {
	return &ParseError{Line: n.Line, Column: n.Column, Path: path, Reason: fmt.Sprintf(format, args...)}
}

// yamlFields returns the key/value pairs of a mapping, rejecting unknown
// and repeated keys.
func yamlFields(n *yaml.Node, path string, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, yamlFail(n, path, "expected a mapping")
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		ok := false
		for _, a := range allowed {
			if a == k.Value {
				ok = true
				break
			}
		}
		if !ok {
			return nil, yamlFail(k, path, "unknown key %q", k.Value)
		}
		if _, dup := out[k.Value]; dup {
			return nil, yamlFail(k, path, "duplicate key %q", k.Value)
		}
		out[k.Value] = v
	}
	return out, nil
}

// yamlVariant unwraps a single-key mapping such as {panel: {...}}.
func yamlVariant(n *yaml.Node, path string) (string, *yaml.Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, yamlFail(n, path, "expected a mapping with exactly one key")
	}
	return n.Content[0].Value, n.Content[1], nil
}

func yamlDocument(n *yaml.Node) (*Document, error) {
	const path = "layout"
	f, err := yamlFields(n, path, "windows")
	if err != nil {
		return nil, err
	}
	doc := &Document{}
	ws, ok := f["windows"]
	if !ok {
		return doc, nil
	}
	if ws.Kind != yaml.SequenceNode {
		return nil, yamlFail(ws, path, "windows must be a list")
	}
	for i, item := range ws.Content {
		wpath := pathOf(path, "window", i)
		key, body, err := yamlVariant(item, wpath)
		if err != nil {
			return nil, err
		}
		if key != "window" {
			return nil, yamlFail(item, wpath, "unexpected %q, want window", key)
		}
		w, err := yamlWindow(body, wpath)
		if err != nil {
			return nil, err
		}
		doc.Windows = append(doc.Windows, w)
	}
	return doc, nil
}

func yamlWindow(n *yaml.Node, path string) (*Node, error) {
	f, err := yamlFields(n, path, "title", "width", "height", "child")
	if err != nil {
		return nil, err
	}
	title, err := yamlString(f, "title", path, n, true)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, yamlFail(n, path, "missing required key \"title\"")
	}
	width, err := yamlSize(f, "width", path, n)
	if err != nil {
		return nil, err
	}
	height, err := yamlSize(f, "height", path, n)
	if err != nil {
		return nil, err
	}

	w := NewWindow(title, width, height, nil)
	if child, ok := f["child"]; ok && !(child.Kind == yaml.ScalarNode && child.Tag == "!!null") {
		key, body, err := yamlVariant(child, path)
		if err != nil {
			return nil, err
		}
		c, err := yamlNode(key, body, child, pathOf(path, key, -1), false)
		if err != nil {
			return nil, err
		}
		w.adopt(c)
	}
	return w, nil
}

func yamlNode(key string, body, at *yaml.Node, path string, inSplit bool) (*Node, error) {
	switch key {
	case "split":
		return yamlSplit(body, path, inSplit)
	case "panel":
		return yamlPanel(body, path, inSplit)
	case "window":
		return nil, yamlFail(at, path, "windows cannot be nested")
	default:
		return nil, yamlFail(at, path, "unknown element %q", key)
	}
}

func yamlSplit(n *yaml.Node, path string, inSplit bool) (*Node, error) {
	allowed := []string{"direction", "children"}
	if inSplit {
		allowed = append(allowed, "weight")
	}
	f, err := yamlFields(n, path, allowed...)
	if err != nil {
		return nil, err
	}
	raw, err := yamlString(f, "direction", path, n, true)
	if err != nil {
		return nil, err
	}
	dir, err := ParseDirection(raw)
	if err != nil {
		return nil, yamlFail(f["direction"], path, "%v", err)
	}
	s := NewSplit(dir)
	if s.Weight, err = yamlWeight(f, path); err != nil {
		return nil, err
	}

	children, ok := f["children"]
	if ok && children.Kind != yaml.SequenceNode {
		return nil, yamlFail(children, path, "children must be a list")
	}
	if ok {
		for i, item := range children.Content {
			key, body, err := yamlVariant(item, pathOf(path, "child", i))
			if err != nil {
				return nil, err
			}
			c, err := yamlNode(key, body, item, pathOf(path, key, i), true)
			if err != nil {
				return nil, err
			}
			s.adopt(c)
		}
	}
	if len(s.Children) < 2 {
		return nil, yamlFail(n, path, "split needs at least 2 children, has %d", len(s.Children))
	}
	return s, nil
}

func yamlPanel(n *yaml.Node, path string, inSplit bool) (*Node, error) {
	allowed := []string{"title", "plugin"}
	if inSplit {
		allowed = append(allowed, "weight")
	}
	f, err := yamlFields(n, path, allowed...)
	if err != nil {
		return nil, err
	}
	title, err := yamlString(f, "title", path, n, true)
	if err != nil {
		return nil, err
	}
	plugin, err := yamlString(f, "plugin", path, n, false)
	if err != nil {
		return nil, err
	}
	p := NewPanel(title, plugin)
	if p.Weight, err = yamlWeight(f, path); err != nil {
		return nil, err
	}
	return p, nil
}

func yamlString(f map[string]*yaml.Node, key, path string, at *yaml.Node, required bool) (string, error) {
	v, ok := f[key]
	if !ok {
		if required {
			return "", yamlFail(at, path, "missing required key %q", key)
		}
		return "", nil
	}
	if v.Kind != yaml.ScalarNode {
		return "", yamlFail(v, path, "%s must be a scalar", key)
	}
	return v.Value, nil
}

func yamlSize(f map[string]*yaml.Node, key, path string, at *yaml.Node) (int, error) {
	v, ok := f[key]
	if !ok {
		return 0, yamlFail(at, path, "missing required key %q", key)
	}
	n, err := strconv.Atoi(v.Value)
	if v.Kind != yaml.ScalarNode || err != nil {
		return 0, yamlFail(v, path, "%s: %q is not an integer", key, v.Value)
	}
	if n <= 0 || n > MaxWindowSize {
		return 0, yamlFail(v, path, "%s must be in 1..%d, got %d", key, MaxWindowSize, n)
	}
	return n, nil
}

func yamlWeight(f map[string]*yaml.Node, path string) (float64, error) {
	v, ok := f["weight"]
	if !ok {
		return 0, nil
	}
	w, err := strconv.ParseFloat(v.Value, 64)
	if v.Kind != yaml.ScalarNode || err != nil {
		return 0, yamlFail(v, path, "weight: %q is not a number", v.Value)
	}
	if !(w > 0) || math.IsInf(w, 0) {
		return 0, yamlFail(v, path, "weight must be positive and finite, got %s", v.Value)
	}
	return w, nil
}

// WriteYAML serializes d in the YAML layout form.
func WriteYAML(w io.Writer, d *Document) error {
	ws := &yaml.Node{Kind: yaml.SequenceNode}
	for _, win := range d.Windows {
		ws.Content = append(ws.Content, yamlMap("window", yamlEncode(win)))
	}
	root := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{yamlStr("windows"), ws}}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return err
	}
	return enc.Close()
}

func yamlStr(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func yamlInt(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}

func yamlMap(kv ...any) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(kv); i += 2 {
		m.Content = append(m.Content, yamlStr(kv[i].(string)), kv[i+1].(*yaml.Node))
	}
	return m
}

func yamlEncode(n *Node) *yaml.Node {
	var body *yaml.Node
	switch n.Kind {
	case KindWindow:
		body = yamlMap("title", yamlStr(n.Title), "width", yamlInt(n.Width), "height", yamlInt(n.Height))
		if len(n.Children) == 1 {
			c := n.Children[0]
			body.Content = append(body.Content, yamlStr("child"), yamlMap(c.Kind.String(), yamlEncode(c)))
		}
		return body
	case KindSplit:
		body = yamlMap("direction", yamlStr(n.Direction.String()))
	default:
		body = yamlMap("title", yamlStr(n.Title))
		if n.Plugin != "" {
			body.Content = append(body.Content, yamlStr("plugin"), yamlStr(n.Plugin))
		}
	}
	if n.parent != nil && n.parent.Kind == KindSplit && n.Weight > 0 {
		// Untagged so the encoder emits a plain number.
		w := &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(n.Weight, 'g', -1, 64)}
		body.Content = append(body.Content, yamlStr("weight"), w)
	}
	if n.Kind == KindSplit {
		children := &yaml.Node{Kind: yaml.SequenceNode}
		for _, c := range n.Children {
			children.Content = append(children.Content, yamlMap(c.Kind.String(), yamlEncode(c)))
		}
		body.Content = append(body.Content, yamlStr("children"), children)
	}
	return body
}
