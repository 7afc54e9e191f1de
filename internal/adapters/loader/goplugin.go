package loader

import (
	"fmt"
	goplugin "plugin"

	"github.com/bft-labs/carconsole/pkg/plugin"
)

// Exported symbols of a Go plugin module:
//
//	var Name = "gmeter"
//	var Version = "1.2.0"
//	var ABI = "1.0.0"
//	func NewPlugin() plugin.Plugin
const (
	goNameSymbol    = "Name"
	goVersionSymbol = "Version"
	goABISymbol     = "ABI"
	goEntryPoint    = "NewPlugin"
)

// GoPlugin loads shared objects built with -buildmode=plugin. Go plugins
// can never be unloaded from the process, so Close only drops the
// reference and a reload of the same file returns the already mapped code.
type GoPlugin struct{}

// NewGoPlugin returns the Go plugin loader.
func NewGoPlugin() *GoPlugin { return &GoPlugin{} }

// Open maps the shared object at path and reads its manifest symbols.
func (*GoPlugin) Open(path string) (plugin.Module, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &goModule{
		p: p,
		manifest: plugin.Manifest{
			Name:    stringSymbol(p, goNameSymbol),
			Version: stringSymbol(p, goVersionSymbol),
			ABI:     stringSymbol(p, goABISymbol),
		},
	}, nil
}

type goModule struct {
	p        *goplugin.Plugin
	manifest plugin.Manifest
}

func (m *goModule) Manifest() plugin.Manifest { return m.manifest }

func (m *goModule) Factory() (plugin.Factory, error) {
	sym, err := m.p.Lookup(goEntryPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", plugin.ErrSymbolMissing, err)
	}
	switch fn := sym.(type) {
	case func() plugin.Plugin:
		return fn, nil
	case *plugin.Factory:
		return *fn, nil
	default:
		return nil, fmt.Errorf("%w: %s has type %T", plugin.ErrSymbolMissing, goEntryPoint, sym)
	}
}

func (m *goModule) Close() error {
	m.p = nil
	return nil
}

func stringSymbol(p *goplugin.Plugin, name string) string {
	sym, err := p.Lookup(name)
	if err != nil {
		return ""
	}
	switch v := sym.(type) {
	case *string:
		return *v
	case func() string:
		return v()
	default:
		return ""
	}
}
