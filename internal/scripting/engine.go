package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/riftforge/tagworld/internal/core/registry"
)

// Engine wraps a single gopher-lua VM hosting entity behavior scripts.
// Single-goroutine access only (game loop). A behavior is a global Lua table
// whose `update` / `render` functions receive the actor's self table.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
	reg *registry.Registry[*Actor]
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir.
// A missing directory is not an error; the engine just starts empty.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load behavior scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded behavior script", zap.String("file", path))
	}
	return nil
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// DoString runs a chunk of Lua directly. Intended for tests and consoles.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// Bind exposes registry operations to scripts as globals taking the entity's
// textual handle: set_state(id, state), add_flags(id, batch),
// remove_flags(id, batch), has_flags(id, query), describe(id).
// Unknown handles are no-ops, matching the registry's permissive policy.
func (e *Engine) Bind(reg *registry.Registry[*Actor]) {
	e.reg = reg

	e.vm.SetGlobal("set_state", e.vm.NewFunction(func(L *lua.LState) int {
		if a, ok := reg.Entity(registry.Handle(L.CheckString(1))); ok {
			reg.SetState(a, L.CheckString(2))
		}
		return 0
	}))
	e.vm.SetGlobal("add_flags", e.vm.NewFunction(func(L *lua.LState) int {
		if a, ok := reg.Entity(registry.Handle(L.CheckString(1))); ok {
			reg.AddFlags(a, L.CheckString(2))
		}
		return 0
	}))
	e.vm.SetGlobal("remove_flags", e.vm.NewFunction(func(L *lua.LState) int {
		if a, ok := reg.Entity(registry.Handle(L.CheckString(1))); ok {
			reg.RemoveFlags(a, L.CheckString(2))
		}
		return 0
	}))
	e.vm.SetGlobal("has_flags", e.vm.NewFunction(func(L *lua.LState) int {
		a, ok := reg.Entity(registry.Handle(L.CheckString(1)))
		L.Push(lua.LBool(ok && reg.HasFlags(a, L.CheckString(2))))
		return 1
	}))
	e.vm.SetGlobal("describe", e.vm.NewFunction(func(L *lua.LState) int {
		a, ok := reg.Entity(registry.Handle(L.CheckString(1)))
		if !ok {
			L.Push(lua.LString(""))
			return 1
		}
		L.Push(lua.LString(reg.Describe(a)))
		return 1
	}))
}

// Spawn creates an actor for the named behavior, registers it, and stores
// the issued handle in the actor's self table as `id`. Bind must have been
// called first.
func (e *Engine) Spawn(behavior string, query ...string) (*Actor, registry.Handle) {
	a := e.NewActor(behavior)
	h := e.reg.Register(a, query...)
	a.self.RawSetString("id", lua.LString(h))
	return a, h
}

// NewActor creates an unregistered actor bound to the named behavior table.
func (e *Engine) NewActor(behavior string) *Actor {
	return &Actor{eng: e, behavior: behavior, self: e.vm.NewTable()}
}

// Actor is a script-backed entity payload. Update and Render forward to the
// behavior table's functions, so scripted entities participate in pool
// capability dispatch like native Go payloads.
type Actor struct {
	eng      *Engine
	behavior string
	self     *lua.LTable
}

// Behavior returns the actor's behavior table name.
func (a *Actor) Behavior() string { return a.behavior }

// Update calls `<behavior>.update(self, dt)` if the script defines it.
func (a *Actor) Update(dt float64) {
	a.call("update", lua.LNumber(dt))
}

// Render calls `<behavior>.render(self)` if the script defines it.
func (a *Actor) Render() {
	a.call("render")
}

// Key reads a numeric field from the actor's self table, exposing script
// state to the pool's *By accessors.
func (a *Actor) Key(name string) (float64, bool) {
	v := a.self.RawGetString(name)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n), true
	}
	return 0, false
}

func (a *Actor) call(name string, args ...lua.LValue) {
	vm := a.eng.vm
	tbl := vm.GetGlobal(a.behavior)
	t, ok := tbl.(*lua.LTable)
	if !ok {
		return
	}
	fn := t.RawGetString(name)
	if fn == lua.LNil {
		return
	}
	callArgs := append([]lua.LValue{a.self}, args...)
	if err := vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, callArgs...); err != nil {
		a.eng.log.Error("behavior call failed",
			zap.String("behavior", a.behavior),
			zap.String("fn", name),
			zap.Error(err))
	}
}
