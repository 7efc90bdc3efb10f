package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/l1jgo/simcore/internal/spatial"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for body behaviour scripts.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every *.lua file in dir.
// An empty dir loads nothing.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if dir == "" {
		return e, nil
	}
	if err := e.loadDir(dir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory, in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
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
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source, typically to define hooks.
func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load lua chunk: %w", err)
	}
	return nil
}

// Has reports whether a global Lua function is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// MotionContext is the body state handed to the Lua motion hook.
type MotionContext struct {
	Entity   uint32
	Tag      int
	Tick     uint64
	Dt       float64
	Position spatial.Vec3
	Velocity spatial.Vec3
}

// Motion calls the Lua motion(body) function and returns the velocity it
// picked. ok is false when the hook is missing, fails or returns no velocity;
// the caller keeps the current velocity then.
func (e *Engine) Motion(ctx context.Context, m MotionContext) (spatial.Vec3, bool) {
	fn, ok := e.vm.GetGlobal("motion").(*lua.LFunction)
	if !ok {
		return m.Velocity, false
	}

	t := e.vm.NewTable()
	t.RawSetString("entity", lua.LNumber(m.Entity))
	t.RawSetString("tag", lua.LNumber(m.Tag))
	t.RawSetString("tick", lua.LNumber(m.Tick))
	t.RawSetString("dt", lua.LNumber(m.Dt))
	t.RawSetString("position", e.vec(m.Position))
	t.RawSetString("velocity", e.vec(m.Velocity))

	result, err := e.call(ctx, fn, t)
	if err != nil {
		e.log.Error("lua motion error", zap.Uint32("entity", m.Entity), zap.Error(err))
		return m.Velocity, false
	}
	rt, ok := result.(*lua.LTable)
	if !ok {
		return m.Velocity, false
	}
	return toVec(rt), true
}

// ContactBody is one side of a contact handed to the Lua contact hook.
type ContactBody struct {
	Entity   uint32
	Tag      int
	Position spatial.Vec3
}

// Contact calls the Lua contact(a, b) function for a newly started contact.
// The hook may return a list of entities to destroy.
func (e *Engine) Contact(ctx context.Context, a, b ContactBody) []uint32 {
	fn, ok := e.vm.GetGlobal("contact").(*lua.LFunction)
	if !ok {
		return nil
	}
	result, err := e.call(ctx, fn, e.body(a), e.body(b))
	if err != nil {
		e.log.Error("lua contact error", zap.Uint32("a", a.Entity), zap.Uint32("b", b.Entity), zap.Error(err))
		return nil
	}
	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}
	var out []uint32
	rt.ForEach(func(_, v lua.LValue) {
		if n, ok := v.(lua.LNumber); ok {
			out = append(out, uint32(n))
		}
	})
	return out
}

func (e *Engine) call(ctx context.Context, fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	if ctx != nil {
		e.vm.SetContext(ctx)
		defer e.vm.RemoveContext()
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		return lua.LNil, err
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return result, nil
}

func (e *Engine) body(b ContactBody) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("entity", lua.LNumber(b.Entity))
	t.RawSetString("tag", lua.LNumber(b.Tag))
	t.RawSetString("position", e.vec(b.Position))
	return t
}

func (e *Engine) vec(v spatial.Vec3) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("x", lua.LNumber(v.X))
	t.RawSetString("y", lua.LNumber(v.Y))
	t.RawSetString("z", lua.LNumber(v.Z))
	return t
}

// lFloat reads a number field from a Lua table.
func lFloat(t *lua.LTable, key string) float32 {
	return float32(lua.LVAsNumber(t.RawGetString(key)))
}

func toVec(t *lua.LTable) spatial.Vec3 {
	return spatial.V3(lFloat(t, "x"), lFloat(t, "y"), lFloat(t, "z"))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
