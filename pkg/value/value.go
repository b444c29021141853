// Package value defines the generic, format-agnostic data representation
// used as the substrate for config migrations and codec glue.
//
// A Value is a closed tagged union: nil, bool, int, uint, float, string,
// sequence, or map with string keys. Keeping the union closed lets migration
// code switch exhaustively over kinds instead of poking at open interface
// trees. Values bridge in both directions to the interface trees produced by
// the TOML and YAML codecs, and to user-defined config structs via As/From.
package value

import (
	"fmt"
	"math"
	"reflect"
	"time"
)

// Kind identifies the variant stored in a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindSeq
	KindMap
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Map is the map variant payload. Keys are plain strings: neither TOML nor
// YAML documents in this system carry non-string keys, so the convention is
// fixed here. Key uniqueness within one node is inherent to the Go map.
type Map map[string]Value

// Seq is the sequence variant payload.
type Seq []Value

// Value is a single node of the generic representation.
// The zero Value is the nil value.
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	seq  Seq
	m    Map
}

// Nil returns the nil value.
func Nil() Value { return Value{} }

// Bool returns a bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns a signed integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint returns an unsigned integer value.
func Uint(u uint64) Value { return Value{kind: KindUint, u: u} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// SeqOf returns a sequence value holding the given elements.
func SeqOf(vs ...Value) Value { return Value{kind: KindSeq, seq: vs} }

// MapOf returns a map value holding the given entries.
// A nil map is normalized to an empty one so callers can insert immediately.
func MapOf(m Map) Value {
	if m == nil {
		m = Map{}
	}
	return Value{kind: KindMap, m: m}
}

// Kind returns the variant stored in v.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is the nil value.
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBool returns the bool payload, if v is a bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsInt returns the value as an int64. Uint values that fit are converted.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindUint:
		if v.u <= math.MaxInt64 {
			return int64(v.u), true
		}
	}
	return 0, false
}

// AsUint returns the value as a uint64. Non-negative Int values are converted.
func (v Value) AsUint() (uint64, bool) {
	switch v.kind {
	case KindUint:
		return v.u, true
	case KindInt:
		if v.i >= 0 {
			return uint64(v.i), true
		}
	}
	return 0, false
}

// AsFloat returns the value as a float64. Integer values are converted.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	}
	return 0, false
}

// AsString returns the string payload, if v is a string.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsSeq returns the sequence payload, if v is a sequence.
func (v Value) AsSeq() (Seq, bool) {
	return v.seq, v.kind == KindSeq
}

// AsMap returns the map payload, if v is a map. The returned Map aliases the
// value's storage, so mutations are visible through v. This is what lets
// migration transforms edit a document in place.
func (v Value) AsMap() (Map, bool) {
	return v.m, v.kind == KindMap
}

// Any converts v back into the plain interface tree the codecs consume:
// nil, bool, int64, uint64, float64, string, []any, map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindNil:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindSeq:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Any()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Any()
		}
		return out
	default:
		return nil
	}
}

// FromAny converts an interface tree produced by a codec into a Value.
// It accepts the scalar, slice and map shapes that yaml.v3 and go-toml/v2
// emit when unmarshalling into any, plus time.Time (rendered as RFC 3339)
// and existing Value/Map/Seq nodes. Unrepresentable types are an error.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Nil(), nil
	case Value:
		return t, nil
	case Map:
		return MapOf(t), nil
	case Seq:
		return Value{kind: KindSeq, seq: t}, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Uint(uint64(t)), nil
	case uint8:
		return Uint(uint64(t)), nil
	case uint16:
		return Uint(uint64(t)), nil
	case uint32:
		return Uint(uint64(t)), nil
	case uint64:
		return Uint(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case time.Time:
		return String(t.Format(time.RFC3339Nano)), nil
	case []any:
		seq := make(Seq, len(t))
		for i, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Nil(), fmt.Errorf("seq index %d: %w", i, err)
			}
			seq[i] = ev
		}
		return Value{kind: KindSeq, seq: seq}, nil
	case map[string]any:
		m := make(Map, len(t))
		for k, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Nil(), fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = ev
		}
		return MapOf(m), nil
	}

	// TOML array-of-tables decodes as []map[string]any, which doesn't hit
	// the []any case above. Fall back to reflection for such slices/maps.
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		seq := make(Seq, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := FromAny(rv.Index(i).Interface())
			if err != nil {
				return Nil(), fmt.Errorf("seq index %d: %w", i, err)
			}
			seq[i] = ev
		}
		return Value{kind: KindSeq, seq: seq}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Nil(), fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		m := make(Map, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			ev, err := FromAny(iter.Value().Interface())
			if err != nil {
				return Nil(), fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = ev
		}
		return MapOf(m), nil
	}
	return Nil(), fmt.Errorf("unsupported type %T", x)
}

// Equal reports deep equality of two values. Int and Uint nodes compare
// equal when they hold the same numeric value, since the codecs don't
// round-trip signedness for non-negative integers.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		// Cross-signedness numeric comparison.
		ai, aok := a.AsInt()
		bi, bok := b.AsInt()
		if aok && bok && (a.kind == KindInt || a.kind == KindUint) &&
			(b.kind == KindInt || b.kind == KindUint) {
			return ai == bi
		}
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindUint:
		return a.u == b.u
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindSeq:
		if len(a.seq) != len(b.seq) {
			return false
		}
		for i := range a.seq {
			if !Equal(a.seq[i], b.seq[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}
