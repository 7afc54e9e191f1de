package plugin

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrOpenFailed    = errors.New("plugin: module cannot be opened")
	ErrIncompatible  = errors.New("plugin: incompatible module")
	ErrSymbolMissing = errors.New("plugin: factory entry point missing")
	ErrInitFailed    = errors.New("plugin: init failed")
	ErrDuplicateName = errors.New("plugin: duplicate name")
	ErrNotFound      = errors.New("plugin: not found")
)

// LoadErrorKind classifies a load failure.
type LoadErrorKind int

const (
	OpenFailed LoadErrorKind = iota
	Incompatible
	SymbolMissing
	InitFailed
	DuplicateName
)

func (k LoadErrorKind) String() string {
	switch k {
	case OpenFailed:
		return "OpenFailed"
	case Incompatible:
		return "Incompatible"
	case SymbolMissing:
		return "SymbolMissing"
	case InitFailed:
		return "InitFailed"
	case DuplicateName:
		return "DuplicateName"
	default:
		return "Unknown"
	}
}

func (k LoadErrorKind) sentinel() error {
	switch k {
	case OpenFailed:
		return ErrOpenFailed
	case Incompatible:
		return ErrIncompatible
	case SymbolMissing:
		return ErrSymbolMissing
	case InitFailed:
		return ErrInitFailed
	case DuplicateName:
		return ErrDuplicateName
	default:
		return nil
	}
}

// LoadError describes why Registry.Load failed.
type LoadError struct {
	Kind LoadErrorKind
	Path string
	// Name is empty when the failure happened before the manifest was read.
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	who := e.Path
	if e.Name != "" {
		who = fmt.Sprintf("%s (%s)", e.Name, e.Path)
	}
	if e.Err == nil {
		return fmt.Sprintf("load %s: %s", who, e.Kind)
	}
	return fmt.Sprintf("load %s: %s: %v", who, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *LoadError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// InitError reports a failed or panicking Init.
type InitError struct {
	Name string
	// Panic holds the recovered value when Init panicked.
	Panic any
	Err   error
}

func (e *InitError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("plugin %s: init panicked: %v", e.Name, e.Panic)
	}
	return fmt.Sprintf("plugin %s: init: %v", e.Name, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// FaultError records a panic raised from Update or Render.
type FaultError struct {
	Name  string
	Phase string
	Panic any
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("plugin %s: %s panicked: %v", e.Name, e.Phase, e.Panic)
}
