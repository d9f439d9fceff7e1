// Package scraper compiles and installs the Lua scripts behind custom extractors.
package scraper

import (
	"bytes"
	"crypto/sha256"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vidsan-cli/vidsan/filesystem"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

type compiled struct {
	sum   [sha256.Size]byte
	proto *lua.FunctionProto
}

var prototypes = xsync.NewMapOf[string, compiled]()

// PreCompileAndLoad runs the script at scriptPath in L.
//
// Prototypes are cached per path and keyed on the script's content, so
// several states share one parse and an edited file is compiled again.
func PreCompileAndLoad(L *lua.LState, scriptPath string) error {
	source, err := filesystem.API().ReadFile(scriptPath)
	if err != nil {
		return err
	}

	proto, err := prototype(scriptPath, source)
	if err != nil {
		return err
	}

	L.Push(L.NewFunctionFromProto(proto))
	return L.PCall(0, lua.MultRet, nil)
}

func prototype(name string, source []byte) (*lua.FunctionProto, error) {
	sum := sha256.Sum256(source)
	if c, ok := prototypes.Load(name); ok && c.sum == sum {
		return c.proto, nil
	}

	chunk, err := parse.Parse(bytes.NewReader(source), name)
	if err != nil {
		return nil, err
	}

	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, err
	}

	prototypes.Store(name, compiled{sum: sum, proto: proto})
	return proto, nil
}

// Forget drops the cached prototype of scriptPath.
func Forget(scriptPath string) {
	prototypes.Delete(scriptPath)
}
