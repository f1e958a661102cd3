// Package luaengine backs internal/scripting.Engine with gopher-lua,
// mapping a script's lua_State.Yield calls onto scripting.ResultNext and
// resuming the same coroutine on the next scripting.Engine.Run call
// (spec.md §1, §4.11, §4.3.5).
package luaengine

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/justapithecus/channeld/internal/scripting"
)

// Loader resolves a script name to Lua source. Production wiring uses
// a FileLoader over a directory of .lua files; tests supply a
// map-backed loader.
type Loader interface {
	Load(script string) (src string, err error)
}

// MapLoader is a Loader backed by an in-memory map, used in tests and
// for small fixture scripts.
type MapLoader map[string]string

func (m MapLoader) Load(script string) (string, error) {
	src, ok := m[script]
	if !ok {
		return "", fmt.Errorf("luaengine: unknown script %q", script)
	}
	return src, nil
}

// Engine is a scripting.Engine backed by one *lua.LState per Instance.
// Each instance's entry function runs as a Lua coroutine so that a
// call to coroutine.yield suspends the function and
// control returns to Run, matching the reactor/quest/NPC script model
// of spec.md §4.3.5 ("script NEXT'd with the resumed coroutine").
type Engine struct {
	loader Loader
}

// New builds an Engine that loads script source via loader.
func New(loader Loader) *Engine {
	return &Engine{loader: loader}
}

type instance struct {
	name string

	// L owns the script's globals/host bindings; co is the coroutine
	// thread the entry function actually runs on. gopher-lua resumes a
	// thread by calling L.Resume(co, fn, args...) on the owning state,
	// never co.Resume(co, ...) on the thread itself.
	L      *lua.LState
	co     *lua.LState
	cancel func()
	fn     *lua.LFunction

	mu   sync.Mutex
	done bool
}

func (i *instance) Name() string { return i.name }

var _ scripting.Engine = (*Engine)(nil)
var _ scripting.Instance = (*instance)(nil)

func (e *Engine) Alloc(ctx context.Context, script, entry string, host scripting.Host) (scripting.Instance, error) {
	src, err := e.loader.Load(script)
	if err != nil {
		return nil, err
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenCoroutine(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	L.SetContext(ctx)
	registerHostBindings(L, host)

	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("luaengine: load %s: %w", script, err)
	}

	fnVal := L.GetGlobal(entry)
	fn, ok := fnVal.(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("luaengine: script %s has no function %s", script, entry)
	}

	co, cancel := L.NewThread()
	return &instance{name: script, L: L, co: co, cancel: cancel, fn: fn}, nil
}

func (e *Engine) Run(ctx context.Context, inst scripting.Instance, args ...any) (scripting.Result, error) {
	i, ok := inst.(*instance)
	if !ok {
		return scripting.ResultFailure, fmt.Errorf("luaengine: foreign instance %T", inst)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.done {
		return scripting.ResultFailure, fmt.Errorf("luaengine: instance %s already finished", i.name)
	}

	i.L.SetContext(ctx)

	lvs := make([]lua.LValue, 0, len(args))
	for _, a := range args {
		lvs = append(lvs, toLValue(a))
	}

	st, err, rets := i.L.Resume(i.co, i.fn, lvs...)

	switch st {
	case lua.ResumeYield:
		return scripting.ResultNext, nil
	case lua.ResumeOK:
		i.done = true
		if len(rets) == 0 {
			return scripting.ResultSuccess, nil
		}
		return resultFromReturn(rets[0]), nil
	default: // lua.ResumeError
		i.done = true
		return scripting.ResultFailure, err
	}
}

func (e *Engine) Free(inst scripting.Instance) error {
	i, ok := inst.(*instance)
	if !ok {
		return fmt.Errorf("luaengine: foreign instance %T", inst)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
	if i.L != nil {
		i.L.Close()
		i.L = nil
	}
	return nil
}

func resultFromReturn(v lua.LValue) scripting.Result {
	s, ok := v.(lua.LString)
	if !ok {
		return scripting.ResultSuccess
	}
	switch string(s) {
	case "failure":
		return scripting.ResultFailure
	case "kick":
		return scripting.ResultKick
	default:
		return scripting.ResultSuccess
	}
}

func toLValue(a any) lua.LValue {
	switch v := a.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int16:
		return lua.LNumber(v)
	case int32:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

// registerHostBindings exposes the Host surface to the script as Lua
// global functions. Only the subset scripting.Host declares is wired;
// a production engine would expose the complete NPC/quest/portal
// binding surface described in spec.md §1.
func registerHostBindings(L *lua.LState, host scripting.Host) {
	L.SetGlobal("warp", L.NewFunction(func(L *lua.LState) int {
		mapID := int32(L.CheckNumber(1))
		portal := L.CheckString(2)
		if err := host.Warp(mapID, portal); err != nil {
			L.RaiseError("warp: %v", err)
		}
		return 0
	}))
	L.SetGlobal("give_item", L.NewFunction(func(L *lua.LState) int {
		itemID := int32(L.CheckNumber(1))
		qty := int16(L.CheckNumber(2))
		if err := host.GiveItem(itemID, qty); err != nil {
			L.RaiseError("give_item: %v", err)
		}
		return 0
	}))
	L.SetGlobal("give_exp", L.NewFunction(func(L *lua.LState) int {
		exp := int64(L.CheckNumber(1))
		if err := host.GiveExp(exp); err != nil {
			L.RaiseError("give_exp: %v", err)
		}
		return 0
	}))
	L.SetGlobal("give_meso", L.NewFunction(func(L *lua.LState) int {
		meso := int64(L.CheckNumber(1))
		if err := host.GiveMeso(meso); err != nil {
			L.RaiseError("give_meso: %v", err)
		}
		return 0
	}))
}
