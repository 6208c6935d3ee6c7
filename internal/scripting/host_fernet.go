package scripting

import (
	"time"

	"github.com/fernet/fernet-go"
	lua "github.com/yuin/gopher-lua"
)

// installFernet installs the fernet module: symmetric, timestamped,
// authenticated encryption per the public Fernet spec, for scripts that
// want to hand subscribers an opaque, tamper-evident token (e.g. as a
// catch-up cursor or a signed capability) without reaching for sqlite.
func (e *Engine) installFernet() {
	t := e.ls.NewTable()
	t.RawSetString("genkey", e.ls.NewFunction(luaFernetGenkey))
	t.RawSetString("encrypt", e.ls.NewFunction(luaFernetEncrypt))
	t.RawSetString("decrypt", e.ls.NewFunction(luaFernetDecrypt))
	e.ls.SetGlobal("fernet", t)
}

func luaFernetGenkey(L *lua.LState) int {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		L.RaiseError("fernet.genkey: %s", err.Error())
		return 0
	}
	L.Push(lua.LString(k.Encode()))
	return 1
}

func luaFernetEncrypt(L *lua.LState) int {
	plaintext := L.CheckString(1)
	keyStr := L.CheckString(2)

	k, err := fernet.DecodeKey(keyStr)
	if err != nil {
		L.RaiseError("fernet.encrypt: invalid key: %s", err.Error())
		return 0
	}
	tok, err := fernet.EncryptAndSign([]byte(plaintext), k)
	if err != nil {
		L.RaiseError("fernet.encrypt: %s", err.Error())
		return 0
	}
	L.Push(lua.LString(tok))
	return 1
}

// luaFernetDecrypt takes token, key [, ttl_seconds]. A ttl of 0 disables
// expiry checking. Decryption failure (bad key, expired, tampered) returns
// nil rather than raising, so scripts can branch on it.
func luaFernetDecrypt(L *lua.LState) int {
	token := L.CheckString(1)
	keyStr := L.CheckString(2)
	ttlSeconds := int64(0)
	if L.GetTop() >= 3 {
		ttlSeconds = L.CheckInt64(3)
	}

	k, err := fernet.DecodeKey(keyStr)
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttlSeconds == 0 {
		ttl = 365 * 24 * time.Hour * 100
	}
	msg := fernet.VerifyAndDecrypt([]byte(token), ttl, []*fernet.Key{k})
	if msg == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(msg))
	return 1
}
