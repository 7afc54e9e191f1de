package telemetry

import (
	"strconv"
	"time"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	// KindNone is the zero Value (channel absent).
	KindNone Kind = iota
	// KindNumber holds a float64 reading.
	KindNumber
	// KindText holds a textual reading such as a gear letter or a track name.
	KindText
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "none"
	}
}

// Value is a tagged numeric-or-text telemetry reading.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Number returns a numeric Value.
func Number(v float64) Value {
	return Value{kind: KindNumber, num: v}
}

// Text returns a textual Value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v is the zero Value.
func (v Value) IsZero() bool { return v.kind == KindNone }

// Float returns the numeric reading. ok is false for text and zero values.
func (v Value) Float() (f float64, ok bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Text returns the textual reading. ok is false for numeric and zero values.
func (v Value) Text() (s string, ok bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// Equal reports whether two values hold the same variant and reading.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.num == o.num && v.text == o.text
}

// Sample is one pre-decoded reading from a transport collaborator.
type Sample struct {
	Channel   string
	Value     Value
	Timestamp time.Time
}
