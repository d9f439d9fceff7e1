package custom

import (
	"github.com/vidsan-cli/vidsan/crypt"
	"github.com/vidsan-cli/vidsan/packer"
	lua "github.com/yuin/gopher-lua"
)

// registerHelpers injects the "vidsan" module:
//
//	vidsan.unpack(text)                        → unpacked, or nil, err
//	vidsan.decrypt_gcm(payload, iv, key_parts) → plaintext, or nil, err
func registerHelpers(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "unpack", L.NewFunction(luaUnpack))
	L.SetField(mod, "decrypt_gcm", L.NewFunction(luaDecryptGCM))
	L.SetGlobal("vidsan", mod)
}

func luaUnpack(L *lua.LState) int {
	unpacked, err := packer.Unpack(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	L.Push(lua.LString(unpacked))
	return 1
}

func luaDecryptGCM(L *lua.LState) int {
	envelope := crypt.Envelope{
		Payload:  L.CheckString(1),
		IV:       L.CheckString(2),
		KeyParts: stringList(L.CheckAny(3)),
	}

	plain, err := decryptEnvelope(envelope)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	L.Push(lua.LString(plain))
	return 1
}

func decryptEnvelope(envelope crypt.Envelope) ([]byte, error) {
	km, err := envelope.KeyMaterial()
	if err != nil {
		return nil, err
	}
	return crypt.Decrypt(km, crypt.GCM)
}
