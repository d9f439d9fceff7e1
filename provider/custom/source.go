package custom

import (
	"context"
	"fmt"
	"sync"

	"github.com/vidsan-cli/vidsan/extractor"
	"github.com/vidsan-cli/vidsan/network"
	lua "github.com/yuin/gopher-lua"
)

// Extractor is a Lua-backed extractor. A Lua state runs one call at a
// time, so calls are serialized.
type Extractor struct {
	identity extractor.Identity
	path     string
	client   *network.Client

	mu    sync.Mutex
	state *lua.LState
	// ctx belongs to the call in progress; http_tls requests use it.
	ctx context.Context
}

func (e *Extractor) Identity() extractor.Identity {
	return e.identity
}

// Path returns the script the extractor was loaded from.
func (e *Extractor) Path() string {
	return e.path
}

func (e *Extractor) String() string {
	return e.identity.Name
}

// Close releases the Lua state.
func (e *Extractor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Close()
}

// call executes a global Lua function with e.mu held.
func (e *Extractor) call(ctx context.Context, fn string, retType lua.LValueType, args ...lua.LValue) (lua.LValue, error) {
	luaFn := e.state.GetGlobal(fn)
	if luaFn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("function %s is not defined", fn)
	}

	e.ctx = ctx
	e.state.SetContext(ctx)
	defer func() {
		e.ctx = context.Background()
		e.state.RemoveContext()
	}()

	err := e.state.CallByParam(lua.P{
		Fn:      luaFn,
		NRet:    1,
		Protect: true,
	}, args...)
	if err != nil {
		return nil, err
	}

	retval := e.state.Get(-1)
	e.state.Pop(1)

	if retval.Type() != retType {
		return nil, fmt.Errorf("%s returned %s, expected %s", fn, retval.Type(), retType)
	}

	return retval, nil
}
