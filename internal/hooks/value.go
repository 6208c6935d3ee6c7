// Package hooks defines the script/host boundary: the tagged Value variant
// exchanged with script code, the per-request contexts scripts see, and the
// HookPipeline contract the broker drives at each lifecycle point.
package hooks

// Kind discriminates the variants of Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindSeq
	KindMap
	KindForeign
)

// Value is a recursive tagged variant used at the host/script boundary, per
// spec.md §9 ("Dynamic script values <-> host types"). Host code converts
// Value to typed records (Message, PublishCtx, SubscribeCtx) with explicit
// coercion; it never inspects script internals directly.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Float   float64
	Str     string
	Bytes   []byte
	Seq     []Value
	Map     map[string]Value
	Foreign interface{}
}

// Null is the canonical null Value.
var Null = Value{Kind: KindNull}

func Bool(b bool) Value       { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value       { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value   { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value   { return Value{Kind: KindString, Str: s} }
func Bytes(b []byte) Value    { return Value{Kind: KindBytes, Bytes: b} }
func Seq(v ...Value) Value    { return Value{Kind: KindSeq, Seq: v} }
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{Kind: KindMap, Map: m}
}
func Foreign(v interface{}) Value { return Value{Kind: KindForeign, Foreign: v} }

// IsNull reports whether v is the null sentinel (or the Go zero Value,
// which is also null).
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsTable reports whether v is a map or sequence, i.e. something a hook
// return-value check treats as "a table" per spec.md's hook contracts.
func (v Value) IsTable() bool { return v.Kind == KindMap || v.Kind == KindSeq }

// AsString returns the string form of a KindString value, or "" otherwise.
func (v Value) AsString() string {
	if v.Kind == KindString {
		return v.Str
	}
	return ""
}

// Get returns a named field of a KindMap value, or Null if absent or v is
// not a map.
func (v Value) Get(key string) Value {
	if v.Kind != KindMap {
		return Null
	}
	if val, ok := v.Map[key]; ok {
		return val
	}
	return Null
}

// Set returns a copy of v with key set to val. v must be KindMap or the
// zero Value (treated as an empty map).
func (v Value) Set(key string, val Value) Value {
	m := map[string]Value{}
	if v.Kind == KindMap {
		for k, existing := range v.Map {
			m[k] = existing
		}
	}
	m[key] = val
	return Map(m)
}
