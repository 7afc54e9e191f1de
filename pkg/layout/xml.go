package layout

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

type xmlParser struct {
	dec *xml.Decoder
}

func parseXML(r io.Reader) (*Document, error) {
	p := &xmlParser{dec: xml.NewDecoder(r)}
	p.dec.Strict = true
	return p.document()
}

func (p *xmlParser) fail(path, format string, args ...any) *ParseError {
	line, col := p.dec.InputPos()
	return &ParseError{Line: line, Column: col, Path: path, Reason: fmt.Sprintf(format, args...)}
}

func (p *xmlParser) next(path string) (xml.Token, error) {
	tok, err := p.dec.Token()
	if err == nil {
		return tok, nil
	}
	if errors.Is(err, io.EOF) {
		return nil, err
	}
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return nil, &ParseError{Line: se.Line, Path: path, Reason: se.Msg}
	}
	return nil, p.fail(path, "%v", err)
}

func (p *xmlParser) document() (*Document, error) {
	var doc *Document
	for {
		tok, err := p.next("")
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "layout" {
				return nil, p.fail(t.Name.Local, "root element must be <layout>")
			}
			if doc != nil {
				return nil, p.fail(t.Name.Local, "more than one root element")
			}
			if doc, err = p.layout(t); err != nil {
				return nil, err
			}
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, p.fail("", "unexpected text outside <layout>")
			}
		}
	}
	if doc == nil {
		return nil, &ParseError{Reason: "missing <layout> root element"}
	}
	return doc, nil
}

// children consumes tokens up to the end of the current element and calls
// fn for each child element. fn must consume the child completely.
func (p *xmlParser) children(path string, fn func(xml.StartElement) error) error {
	for {
		tok, err := p.next(path)
		if errors.Is(err, io.EOF) {
			return p.fail(path, "unexpected end of document")
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return p.fail(path, "unexpected text %q", string(bytes.TrimSpace(t)))
			}
		}
	}
}

func (p *xmlParser) attrs(se xml.StartElement, path string, allowed ...string) (map[string]string, error) {
	out := make(map[string]string, len(se.Attr))
	for _, a := range se.Attr {
		name := a.Name.Local
		if a.Name.Space != "" {
			return nil, p.fail(path, "unknown attribute %q", a.Name.Space+":"+name)
		}
		ok := false
		for _, al := range allowed {
			if al == name {
				ok = true
				break
			}
		}
		if !ok {
			return nil, p.fail(path, "unknown attribute %q on <%s>", name, se.Name.Local)
		}
		if _, dup := out[name]; dup {
			return nil, p.fail(path, "duplicate attribute %q", name)
		}
		out[name] = a.Value
	}
	return out, nil
}

func (p *xmlParser) layout(se xml.StartElement) (*Document, error) {
	const path = "layout"
	if _, err := p.attrs(se, path); err != nil {
		return nil, err
	}
	doc := &Document{}
	err := p.children(path, func(child xml.StartElement) error {
		wpath := pathOf(path, "window", len(doc.Windows))
		if child.Name.Local != "window" {
			return p.fail(wpath, "unexpected <%s>, want <window>", child.Name.Local)
		}
		w, err := p.window(child, wpath)
		if err != nil {
			return err
		}
		doc.Windows = append(doc.Windows, w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *xmlParser) window(se xml.StartElement, path string) (*Node, error) {
	a, err := p.attrs(se, path, "title", "width", "height")
	if err != nil {
		return nil, err
	}
	title, ok := a["title"]
	if !ok || title == "" {
		return nil, p.fail(path, "missing required attribute \"title\"")
	}
	width, err := p.size(a, "width", path)
	if err != nil {
		return nil, err
	}
	height, err := p.size(a, "height", path)
	if err != nil {
		return nil, err
	}

	w := NewWindow(title, width, height, nil)
	err = p.children(path, func(child xml.StartElement) error {
		if len(w.Children) == 1 {
			return p.fail(path, "window has more than one child")
		}
		c, err := p.node(child, pathOf(path, child.Name.Local, -1), false)
		if err != nil {
			return err
		}
		w.adopt(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (p *xmlParser) node(se xml.StartElement, path string, inSplit bool) (*Node, error) {
	switch se.Name.Local {
	case "split":
		return p.split(se, path, inSplit)
	case "panel":
		return p.panel(se, path, inSplit)
	case "window":
		return nil, p.fail(path, "windows cannot be nested")
	default:
		return nil, p.fail(path, "unknown element <%s>", se.Name.Local)
	}
}

func (p *xmlParser) split(se xml.StartElement, path string, inSplit bool) (*Node, error) {
	allowed := []string{"direction"}
	if inSplit {
		allowed = append(allowed, "weight")
	}
	a, err := p.attrs(se, path, allowed...)
	if err != nil {
		return nil, err
	}
	raw, ok := a["direction"]
	if !ok {
		return nil, p.fail(path, "missing required attribute \"direction\"")
	}
	dir, err := ParseDirection(raw)
	if err != nil {
		return nil, p.fail(path, "%v", err)
	}
	s := NewSplit(dir)
	if s.Weight, err = p.weight(a, path); err != nil {
		return nil, err
	}

	err = p.children(path, func(child xml.StartElement) error {
		c, err := p.node(child, pathOf(path, child.Name.Local, len(s.Children)), true)
		if err != nil {
			return err
		}
		s.adopt(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(s.Children) < 2 {
		return nil, p.fail(path, "split needs at least 2 children, has %d", len(s.Children))
	}
	return s, nil
}

func (p *xmlParser) panel(se xml.StartElement, path string, inSplit bool) (*Node, error) {
	allowed := []string{"title", "plugin"}
	if inSplit {
		allowed = append(allowed, "weight")
	}
	a, err := p.attrs(se, path, allowed...)
	if err != nil {
		return nil, err
	}
	title, ok := a["title"]
	if !ok {
		return nil, p.fail(path, "missing required attribute \"title\"")
	}
	n := NewPanel(title, a["plugin"])
	if n.Weight, err = p.weight(a, path); err != nil {
		return nil, err
	}
	err = p.children(path, func(child xml.StartElement) error {
		return p.fail(path, "panel cannot contain <%s>", child.Name.Local)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (p *xmlParser) size(a map[string]string, key, path string) (int, error) {
	raw, ok := a[key]
	if !ok {
		return 0, p.fail(path, "missing required attribute %q", key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, p.fail(path, "attribute %q: %q is not an integer", key, raw)
	}
	if v <= 0 || v > MaxWindowSize {
		return 0, p.fail(path, "attribute %q must be in 1..%d, got %s", key, MaxWindowSize, raw)
	}
	return v, nil
}

func (p *xmlParser) weight(a map[string]string, path string) (float64, error) {
	raw, ok := a["weight"]
	if !ok {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, p.fail(path, "attribute \"weight\": %q is not a number", raw)
	}
	if !(v > 0) || math.IsInf(v, 0) {
		return 0, p.fail(path, "attribute \"weight\" must be positive and finite, got %s", raw)
	}
	return v, nil
}

// WriteXML serializes d as an indented XML document.
func WriteXML(w io.Writer, d *Document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "layout"}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for _, win := range d.Windows {
		if err := encodeNode(enc, win); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func encodeNode(enc *xml.Encoder, n *Node) error {
	se := xml.StartElement{Name: xml.Name{Local: n.Kind.String()}}
	switch n.Kind {
	case KindWindow:
		se.Attr = append(se.Attr,
			attr("title", n.Title),
			attr("width", strconv.Itoa(n.Width)),
			attr("height", strconv.Itoa(n.Height)))
	case KindSplit:
		se.Attr = append(se.Attr, attr("direction", n.Direction.String()))
	case KindPanel:
		se.Attr = append(se.Attr, attr("title", n.Title))
		if n.Plugin != "" {
			se.Attr = append(se.Attr, attr("plugin", n.Plugin))
		}
	}
	if n.parent != nil && n.parent.Kind == KindSplit && n.Weight > 0 {
		se.Attr = append(se.Attr, attr("weight", strconv.FormatFloat(n.Weight, 'g', -1, 64)))
	}

	if err := enc.EncodeToken(se); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := encodeNode(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(se.End())
}
