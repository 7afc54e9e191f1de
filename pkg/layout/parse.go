package layout

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format selects the markup of a layout document.
type Format int

const (
	FormatXML Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "xml"
}

// FormatFromPath picks the format from a file extension. Anything that is
// not .yaml or .yml is read as XML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatXML
	}
}

// ParseError locates a problem in a layout document.
type ParseError struct {
	File   string
	Line   int
	Column int
	// Path names the offending element, e.g. "layout/window[0]/split/panel[1]".
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteByte(':')
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "%d:", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, "%d:", e.Column)
		}
	}
	if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Reason)
	return sb.String()
}

// Parse reads a whole document. It either returns a valid tree or a
// *ParseError; there is no partial result.
func Parse(r io.Reader, format Format) (*Document, error) {
	var (
		doc *Document
		err error
	)
	switch format {
	case FormatYAML:
		doc, err = parseYAML(r)
	default:
		doc, err = parseXML(r)
	}
	if err != nil {
		return nil, err
	}
	if verr := doc.Validate(); verr != nil {
		return nil, &ParseError{Reason: verr.Error()}
	}
	return doc, nil
}

// ParseBytes parses an in-memory document.
func ParseBytes(data []byte, format Format) (*Document, error) {
	return Parse(bytes.NewReader(data), format)
}

// ParseFile parses the file at path, choosing the format by extension.
// I/O failures are returned as-is; markup problems as *ParseError.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	doc, err := ParseBytes(data, FormatFromPath(path))
	if pe, ok := err.(*ParseError); ok {
		pe.File = path
		return nil, pe
	}
	return doc, err
}

// Write serializes d in the given format.
func Write(w io.Writer, d *Document, format Format) error {
	if format == FormatYAML {
		return WriteYAML(w, d)
	}
	return WriteXML(w, d)
}

// Marshal returns the serialized document.
func Marshal(d *Document, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, d, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pathOf builds element paths for error messages.
func pathOf(parent, elem string, index int) string {
	seg := elem
	if index >= 0 {
		seg = fmt.Sprintf("%s[%d]", elem, index)
	}
	if parent == "" {
		return seg
	}
	return parent + "/" + seg
}
