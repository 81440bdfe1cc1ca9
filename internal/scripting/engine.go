package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for game logic hooks.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// scriptDirs are loaded in order; missing directories are skipped.
var scriptDirs = []string{"core", "house"}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	for _, sub := range scriptDirs {
		if err := e.loadDir(filepath.Join(scriptsDir, sub)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

func (e *Engine) Close() { e.vm.Close() }

// loadDir loads all .lua files in a directory.
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
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// call invokes a global function if it is defined. ok is false when the
// function is absent or failed.
func (e *Engine) call(name string, nret int, args ...lua.LValue) (ret []lua.LValue, ok bool) {
	fn := e.vm.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil, false
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		e.log.Error("lua call failed", zap.String("fn", name), zap.Error(err))
		return nil, false
	}
	ret = make([]lua.LValue, nret)
	for i := nret - 1; i >= 0; i-- {
		ret[i] = e.vm.Get(-1)
		e.vm.Pop(1)
	}
	return ret, true
}

// OnRentUnpaid calls on_rent_unpaid(house_id, owner, reason). Nothing happens
// when the script does not define it.
func (e *Engine) OnRentUnpaid(houseID, owner uint32, reason string) {
	e.call("on_rent_unpaid", 0,
		lua.LNumber(houseID), lua.LNumber(owner), lua.LString(reason))
}

// RentModifier passes rent through rent_modifier(house_id, rent). The rent is
// returned unchanged when the hook is absent or returns something unusable.
func (e *Engine) RentModifier(houseID, rent uint32) uint32 {
	ret, ok := e.call("rent_modifier", 1, lua.LNumber(houseID), lua.LNumber(rent))
	if !ok {
		return rent
	}
	n, isNum := ret[0].(lua.LNumber)
	if !isNum || n < 0 || math.IsNaN(float64(n)) {
		e.log.Warn("rent_modifier returned bad value", zap.String("value", ret[0].String()))
		return rent
	}
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}
