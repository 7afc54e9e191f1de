package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/bft-labs/carconsole/pkg/geom"
	"github.com/bft-labs/carconsole/pkg/plugin"
	"github.com/bft-labs/carconsole/pkg/surface"
	"github.com/bft-labs/carconsole/pkg/telemetry"
)

// Globals read from a Lua module.
const (
	luaNameGlobal    = "PLUGIN_NAME"
	luaVersionGlobal = "PLUGIN_VERSION"
	luaABIGlobal     = "PLUGIN_ABI"
	luaEntryPoint    = "new_plugin"
)

// Lua loads plugins written in Lua. A module is a script that sets
// PLUGIN_NAME, PLUGIN_VERSION and PLUGIN_ABI and defines new_plugin(),
// which returns a table with optional init, update and render methods:
//
//	PLUGIN_NAME = "coolant"
//	PLUGIN_VERSION = "0.1.0"
//	PLUGIN_ABI = "1.0.0"
//
//	function new_plugin()
//	  local p = { temp = 0 }
//	  function p:update(frame) self.temp = frame.coolant_temp_f or 0 end
//	  function p:render(s) s.text(0, 0, "coolant " .. self.temp) end
//	  return p
//	end
//
// The surface handed to render exposes text(x, y, s [, color]),
// fill(x, y, w, h [, ch [, color]]), box(x, y, w, h [, color]),
// hline(x, y, n [, ch [, color]]), width() and height(). Colors are
// "#rrggbb" strings.
type Lua struct {
	// Timeout bounds each call into a script. Default: DefaultLuaTimeout
	Timeout time.Duration
}

// DefaultLuaTimeout bounds a single call into a script.
const DefaultLuaTimeout = 200 * time.Millisecond

// NewLua returns the Lua module loader.
func NewLua() *Lua { return &Lua{Timeout: DefaultLuaTimeout} }

// Open runs the script at path in a fresh interpreter and reads its
// manifest globals. Scripts get the base, table, string and math
// libraries only, without file loading.
func (l *Lua) Open(path string) (plugin.Module, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultLuaTimeout
	}
	L, err := newLuaState()
	if err != nil {
		return nil, err
	}
	err = withDeadline(L, timeout, func() error { return L.DoFile(path) })
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("run %s: %w", path, err)
	}
	return &luaModule{
		L:       L,
		timeout: timeout,
		manifest: plugin.Manifest{
			Name:    lua.LVAsString(L.GetGlobal(luaNameGlobal)),
			Version: lua.LVAsString(L.GetGlobal(luaVersionGlobal)),
			ABI:     lua.LVAsString(L.GetGlobal(luaABIGlobal)),
		},
	}, nil
}

var luaLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// Base library functions that reach the file system or the module loader.
var luaBlocked = []string{"dofile", "loadfile", "require", "module"}

func newLuaState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range luaLibs {
		err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name))
		if err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua %s library: %w", lib.name, err)
		}
	}
	for _, name := range luaBlocked {
		L.SetGlobal(name, lua.LNil)
	}
	return L, nil
}

// withDeadline runs fn with the interpreter cancelled after timeout.
func withDeadline(L *lua.LState, timeout time.Duration, fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	L.SetContext(ctx)
	defer L.RemoveContext()
	return fn()
}

type luaModule struct {
	L        *lua.LState
	timeout  time.Duration
	manifest plugin.Manifest
}

func (m *luaModule) Manifest() plugin.Manifest { return m.manifest }

func (m *luaModule) Factory() (plugin.Factory, error) {
	fn, ok := m.L.GetGlobal(luaEntryPoint).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a function", plugin.ErrSymbolMissing, luaEntryPoint)
	}
	return func() plugin.Plugin {
		err := withDeadline(m.L, m.timeout, func() error {
			return m.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true})
		})
		if err != nil {
			panic(err)
		}
		ret := m.L.Get(-1)
		m.L.Pop(1)
		tbl, ok := ret.(*lua.LTable)
		if !ok {
			panic(fmt.Sprintf("%s returned %s, want table", luaEntryPoint, ret.Type()))
		}
		return newLuaPlugin(m.L, tbl, m.timeout)
	}, nil
}

func (m *luaModule) Close() error {
	m.L.Close()
	return nil
}

// luaPlugin adapts a Lua table to plugin.Plugin. Script errors and calls
// that run past the timeout panic during update and render so that the
// dispatch loop marks the plugin faulted.
type luaPlugin struct {
	L       *lua.LState
	self    *lua.LTable
	timeout time.Duration

	// target is the surface of the render call in progress.
	target surface.Surface
	api    *lua.LTable
}

func newLuaPlugin(L *lua.LState, self *lua.LTable, timeout time.Duration) *luaPlugin {
	p := &luaPlugin{L: L, self: self, timeout: timeout}
	p.api = p.surfaceTable()
	return p
}

func (p *luaPlugin) Init() error {
	return p.call("init")
}

func (p *luaPlugin) Update(frame telemetry.Frame) {
	tbl := p.L.NewTable()
	for ch, v := range frame.Values() {
		switch v.Kind() {
		case telemetry.KindNumber:
			f, _ := v.Float()
			tbl.RawSetString(ch, lua.LNumber(f))
		case telemetry.KindText:
			s, _ := v.Text()
			tbl.RawSetString(ch, lua.LString(s))
		}
	}
	tbl.RawSetString("_stale", lua.LBool(frame.Stale()))
	tbl.RawSetString("_seq", lua.LNumber(frame.Seq()))
	if err := p.call("update", tbl); err != nil {
		panic(err)
	}
}

func (p *luaPlugin) Render(s surface.Surface) {
	p.target = s
	defer func() { p.target = nil }()
	if err := p.call("render", p.api); err != nil {
		panic(err)
	}
}

var errLuaNoSurface = errors.New("surface used outside render")

// call invokes self[method](self, args...). Missing methods are no-ops.
func (p *luaPlugin) call(method string, args ...lua.LValue) error {
	fn, ok := p.self.RawGetString(method).(*lua.LFunction)
	if !ok {
		return nil
	}
	argv := append([]lua.LValue{p.self}, args...)
	err := withDeadline(p.L, p.timeout, func() error {
		return p.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, argv...)
	})
	if err != nil {
		return fmt.Errorf("lua %s: %w", method, err)
	}
	return nil
}

func (p *luaPlugin) surfaceTable() *lua.LTable {
	api := p.L.NewTable()
	fns := map[string]lua.LGFunction{
		"text": func(L *lua.LState) int {
			s := p.surface(L)
			s.Text(L.CheckInt(1), L.CheckInt(2), L.CheckString(3), luaStyle(L, 4))
			return 0
		},
		"fill": func(L *lua.LState) int {
			s := p.surface(L)
			r := geom.R(L.CheckInt(1), L.CheckInt(2), L.CheckInt(3), L.CheckInt(4))
			s.Fill(r, luaRune(L, 5, ' '), luaStyle(L, 6))
			return 0
		},
		"box": func(L *lua.LState) int {
			s := p.surface(L)
			r := geom.R(L.CheckInt(1), L.CheckInt(2), L.CheckInt(3), L.CheckInt(4))
			s.Box(r, luaStyle(L, 5))
			return 0
		},
		"hline": func(L *lua.LState) int {
			s := p.surface(L)
			s.HLine(L.CheckInt(1), L.CheckInt(2), L.CheckInt(3), luaRune(L, 4, '─'), luaStyle(L, 5))
			return 0
		},
		"width": func(L *lua.LState) int {
			L.Push(lua.LNumber(p.surface(L).Bounds().Width))
			return 1
		},
		"height": func(L *lua.LState) int {
			L.Push(lua.LNumber(p.surface(L).Bounds().Height))
			return 1
		},
	}
	for name, fn := range fns {
		api.RawSetString(name, p.L.NewFunction(fn))
	}
	return api
}

func (p *luaPlugin) surface(L *lua.LState) surface.Surface {
	if p.target == nil {
		L.RaiseError("%s", errLuaNoSurface)
	}
	return p.target
}

func luaStyle(L *lua.LState, n int) surface.Style {
	hex := L.OptString(n, "")
	if hex == "" {
		return surface.Plain
	}
	c, err := surface.ParseHex(hex)
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return surface.Plain.Foreground(c)
}

func luaRune(L *lua.LState, n int, def rune) rune {
	s := L.OptString(n, "")
	for _, r := range s {
		return r
	}
	return def
}
