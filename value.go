// Copyright (C) 2020 Michael J. Fromberger. All Rights Reserved.

// Package binn implements the Binn binary serialization format: a compact,
// typed, self-describing wire format for structured data.
//
// A Binn message is a single value, tag-prefixed on the wire: scalars,
// strings, blobs, and nested containers (List, Map, Object). Encode writes a
// Value tree as one self-describing record; Decode reverses the process,
// validating type tags, declared sizes, UTF-8, and key uniqueness as it
// goes. See https://github.com/liteserver/binn for the format this package
// implements, and daimons/binn-ir for the Rust implementation this package
// was ported from.
package binn

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Size is the wire-level size type: every declared size, byte count, and
// allocation bound in this package fits in a Size.
type Size = uint32

// MaxDataSize is the largest value any size field, byte count, or
// container total may take: 2^31-1.
const MaxDataSize Size = 0x7FFF_FFFF

// ObjectKeyMaxLen is the maximum byte length of an Object key.
const ObjectKeyMaxLen = 255

// maxNestingDepth bounds how deeply containers may nest during decode, since
// the wire format does not otherwise bound recursion. 128 matches the
// recommendation in the original implementation's concurrency notes.
const maxNestingDepth = 128

// maxOneByteSize is the largest size that fits in the 1-byte form of a size
// field (seven bits); see sizeFieldLen in size.go.
const maxOneByteSize Size = 127

// Kind-of-value tag bytes, exactly as they appear on the wire. These double
// as the Value.Kind() values, so a Kind is always a legal wire tag.
const (
	tagNull       = 0x00
	tagTrue       = 0x01
	tagFalse      = 0x02
	tagU8         = 0x20
	tagI8         = 0x21
	tagU16        = 0x40
	tagI16        = 0x41
	tagU32        = 0x60
	tagI32        = 0x61
	tagFloat      = 0x62
	tagU64        = 0x80
	tagI64        = 0x81
	tagDouble     = 0x82
	tagText       = 0xA0
	tagDateTime   = 0xA1
	tagDate       = 0xA2
	tagTime       = 0xA3
	tagDecimalStr = 0xA4
	tagBlob       = 0xC0
	tagList       = 0xE0
	tagMap        = 0xE1
	tagObject     = 0xE2
)

// ValueKind identifies which of the closed set of Binn variants a Value
// holds. It is numerically identical to the wire type tag, so dispatch by
// ValueKind and dispatch by tag byte are the same switch.
type ValueKind uint8

// The complete, closed set of value kinds.
const (
	KindValueNull ValueKind = tagNull
	KindValueTrue ValueKind = tagTrue
	KindValueFalse ValueKind = tagFalse
	KindValueU8 ValueKind = tagU8
	KindValueI8 ValueKind = tagI8
	KindValueU16 ValueKind = tagU16
	KindValueI16 ValueKind = tagI16
	KindValueU32 ValueKind = tagU32
	KindValueI32 ValueKind = tagI32
	KindValueFloat ValueKind = tagFloat
	KindValueU64 ValueKind = tagU64
	KindValueI64 ValueKind = tagI64
	KindValueDouble ValueKind = tagDouble
	KindValueText ValueKind = tagText
	KindValueDateTime ValueKind = tagDateTime
	KindValueDate ValueKind = tagDate
	KindValueTime ValueKind = tagTime
	KindValueDecimalStr ValueKind = tagDecimalStr
	KindValueBlob ValueKind = tagBlob
	KindValueList ValueKind = tagList
	KindValueMap ValueKind = tagMap
	KindValueObject ValueKind = tagObject
)

func (k ValueKind) String() string {
	switch k {
	case KindValueNull:
		return "Null"
	case KindValueTrue:
		return "True"
	case KindValueFalse:
		return "False"
	case KindValueU8:
		return "U8"
	case KindValueI8:
		return "I8"
	case KindValueU16:
		return "U16"
	case KindValueI16:
		return "I16"
	case KindValueU32:
		return "U32"
	case KindValueI32:
		return "I32"
	case KindValueFloat:
		return "Float"
	case KindValueU64:
		return "U64"
	case KindValueI64:
		return "I64"
	case KindValueDouble:
		return "Double"
	case KindValueText:
		return "Text"
	case KindValueDateTime:
		return "DateTime"
	case KindValueDate:
		return "Date"
	case KindValueTime:
		return "Time"
	case KindValueDecimalStr:
		return "DecimalStr"
	case KindValueBlob:
		return "Blob"
	case KindValueList:
		return "List"
	case KindValueMap:
		return "Map"
	case KindValueObject:
		return "Object"
	default:
		return fmt.Sprintf("Unknown(%#02x)", uint8(k))
	}
}

// validKind reports whether k is one of the closed set of tag bytes (I6).
func validKind(k ValueKind) bool {
	switch k {
	case KindValueNull, KindValueTrue, KindValueFalse,
		KindValueU8, KindValueI8, KindValueU16, KindValueI16,
		KindValueU32, KindValueI32, KindValueFloat,
		KindValueU64, KindValueI64, KindValueDouble,
		KindValueText, KindValueDateTime, KindValueDate, KindValueTime, KindValueDecimalStr,
		KindValueBlob, KindValueList, KindValueMap, KindValueObject:
		return true
	default:
		return false
	}
}

// Blob is a raw byte payload.
type Blob = []byte

// List is an ordered sequence of Values; duplicates are allowed.
type List = []Value

// Map is a mapping from signed 32-bit keys to Values. Keys are unique; the
// in-memory iteration order is Go's map order, while the encoder writes
// entries in ascending key order.
type Map = map[int32]Value

// Object is a mapping from UTF-8 string keys (at most ObjectKeyMaxLen bytes)
// to Values. Keys are unique; the in-memory iteration order is Go's map
// order, while the encoder writes entries in lexicographic ascending order.
type Object = map[string]Value

// Value is a closed tagged union of every representable Binn value. The
// zero Value is Null. Values are trees: a List/Map/Object Value owns its
// children, strings, and blobs; there are no cycles and none are
// representable.
type Value struct {
	kind ValueKind
	n    uint64 // bit pattern for every numeric kind (zigzag is NOT used; this is the raw two's-complement/IEEE-754 pattern)
	s    string // Text, DateTime, Date, Time, DecimalStr
	b    []byte // Blob
	list []Value
	mp   map[int32]Value
	obj  map[string]Value
}

// Kind returns the variant this Value holds.
func (v Value) Kind() ValueKind { return v.kind }

// Constructors. Each returns a Value guaranteed to carry a valid, matching
// Kind; there is no way to construct a Value with an inconsistent payload
// from outside this package.

// Null returns the Null value.
func Null() Value { return Value{kind: KindValueNull} }

// Bool returns True or False.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindValueTrue}
	}
	return Value{kind: KindValueFalse}
}

// NewU8 returns a U8 value.
func NewU8(u uint8) Value { return Value{kind: KindValueU8, n: uint64(u)} }

// NewI8 returns an I8 value.
func NewI8(i int8) Value { return Value{kind: KindValueI8, n: uint64(uint8(i))} }

// NewU16 returns a U16 value.
func NewU16(u uint16) Value { return Value{kind: KindValueU16, n: uint64(u)} }

// NewI16 returns an I16 value.
func NewI16(i int16) Value { return Value{kind: KindValueI16, n: uint64(uint16(i))} }

// NewU32 returns a U32 value.
func NewU32(u uint32) Value { return Value{kind: KindValueU32, n: uint64(u)} }

// NewI32 returns an I32 value.
func NewI32(i int32) Value { return Value{kind: KindValueI32, n: uint64(uint32(i))} }

// NewFloat returns a Float (32-bit) value.
func NewFloat(f float32) Value { return Value{kind: KindValueFloat, n: uint64(math.Float32bits(f))} }

// NewU64 returns a U64 value.
func NewU64(u uint64) Value { return Value{kind: KindValueU64, n: u} }

// NewI64 returns an I64 value.
func NewI64(i int64) Value { return Value{kind: KindValueI64, n: uint64(i)} }

// NewDouble returns a Double (64-bit float) value.
func NewDouble(d float64) Value { return Value{kind: KindValueDouble, n: math.Float64bits(d)} }

// Text returns a Text value.
func Text(s string) Value { return Value{kind: KindValueText, s: s} }

// DateTime returns a DateTime value (stored as UTF-8 text; format is the caller's concern).
func DateTime(s string) Value { return Value{kind: KindValueDateTime, s: s} }

// Date returns a Date value.
func Date(s string) Value { return Value{kind: KindValueDate, s: s} }

// Time returns a Time value.
func Time(s string) Value { return Value{kind: KindValueTime, s: s} }

// DecimalStr returns a DecimalStr value (an arbitrary-precision decimal, stored as text).
func DecimalStr(s string) Value { return Value{kind: KindValueDecimalStr, s: s} }

// NewBlob returns a Blob value; the provided bytes are not copied.
func NewBlob(b []byte) Value { return Value{kind: KindValueBlob, b: b} }

// NewList returns a List value containing items in order.
func NewList(items ...Value) Value { return Value{kind: KindValueList, list: items} }

// NewMap returns a Map value. The provided map is not copied; callers should
// not mutate it after passing it in if the Value escapes.
func NewMap(m map[int32]Value) Value {
	if m == nil {
		m = map[int32]Value{}
	}
	return Value{kind: KindValueMap, mp: m}
}

// NewObject returns an Object value. The provided map is not copied.
func NewObject(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindValueObject, obj: m}
}

// Accessors. Each reports ok=false if the Value is not of the matching Kind.

func (v Value) Uint8() (uint8, bool) {
	if v.kind != KindValueU8 {
		return 0, false
	}
	return uint8(v.n), true
}

func (v Value) Int8() (int8, bool) {
	if v.kind != KindValueI8 {
		return 0, false
	}
	return int8(uint8(v.n)), true
}

func (v Value) Uint16() (uint16, bool) {
	if v.kind != KindValueU16 {
		return 0, false
	}
	return uint16(v.n), true
}

func (v Value) Int16() (int16, bool) {
	if v.kind != KindValueI16 {
		return 0, false
	}
	return int16(uint16(v.n)), true
}

func (v Value) Uint32() (uint32, bool) {
	if v.kind != KindValueU32 {
		return 0, false
	}
	return uint32(v.n), true
}

func (v Value) Int32() (int32, bool) {
	if v.kind != KindValueI32 {
		return 0, false
	}
	return int32(uint32(v.n)), true
}

func (v Value) Float32() (float32, bool) {
	if v.kind != KindValueFloat {
		return 0, false
	}
	return math.Float32frombits(uint32(v.n)), true
}

func (v Value) Uint64() (uint64, bool) {
	if v.kind != KindValueU64 {
		return 0, false
	}
	return v.n, true
}

func (v Value) Int64() (int64, bool) {
	if v.kind != KindValueI64 {
		return 0, false
	}
	return int64(v.n), true
}

func (v Value) Float64() (float64, bool) {
	if v.kind != KindValueDouble {
		return 0, false
	}
	return math.Float64frombits(v.n), true
}

// IsBool reports whether v is True or False, and its value.
func (v Value) IsBool() (b, ok bool) {
	switch v.kind {
	case KindValueTrue:
		return true, true
	case KindValueFalse:
		return false, true
	default:
		return false, false
	}
}

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindValueNull }

// AsText returns the payload of any STRING-class value (Text, DateTime,
// Date, Time, DecimalStr).
func (v Value) AsText() (string, bool) {
	switch v.kind {
	case KindValueText, KindValueDateTime, KindValueDate, KindValueTime, KindValueDecimalStr:
		return v.s, true
	default:
		return "", false
	}
}

// AsBlob returns the payload of a Blob value.
func (v Value) AsBlob() ([]byte, bool) {
	if v.kind != KindValueBlob {
		return nil, false
	}
	return v.b, true
}

// AsList returns the items of a List value.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindValueList {
		return nil, false
	}
	return v.list, true
}

// AsMap returns the entries of a Map value.
func (v Value) AsMap() (map[int32]Value, bool) {
	if v.kind != KindValueMap {
		return nil, false
	}
	return v.mp, true
}

// AsObject returns the entries of an Object value.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.kind != KindValueObject {
		return nil, false
	}
	return v.obj, true
}

// sortedMapKeys returns m's keys in ascending order: the canonical Map wire
// order (see the "Canonical encoding" glossary entry in the spec).
func sortedMapKeys(m map[int32]Value) []int32 {
	keys := make([]int32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// sortedObjectKeys returns m's keys in ascending lexicographic order: the
// canonical Object wire order.
func sortedObjectKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether v and other are structurally identical. Numeric
// kinds (including Float and Double) compare by bit pattern rather than by
// numeric or IEEE equality, so two NaN payloads with the same bits compare
// equal and round-trip identity holds; this is a deliberate, surprising
// choice carried over from the original implementation (see spec notes on
// float equality).
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindValueNull, KindValueTrue, KindValueFalse:
		return true
	case KindValueU8, KindValueI8, KindValueU16, KindValueI16,
		KindValueU32, KindValueI32, KindValueFloat,
		KindValueU64, KindValueI64, KindValueDouble:
		return v.n == other.n
	case KindValueText, KindValueDateTime, KindValueDate, KindValueTime, KindValueDecimalStr:
		return v.s == other.s
	case KindValueBlob:
		return bytes.Equal(v.b, other.b)
	case KindValueList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindValueMap:
		if len(v.mp) != len(other.mp) {
			return false
		}
		for k, item := range v.mp {
			o, ok := other.mp[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	case KindValueObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, item := range v.obj {
			o, ok := other.obj[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders v for debugging: stable and human-legible. Blobs render as
// comma-separated "0x__" bytes; containers render as "Variant(k: v, ...)",
// with Object keys quoted.
func (v Value) String() string {
	switch v.kind {
	case KindValueNull:
		return "Null"
	case KindValueTrue:
		return "True"
	case KindValueFalse:
		return "False"
	case KindValueU8:
		u, _ := v.Uint8()
		return fmt.Sprintf("U8(%d)", u)
	case KindValueI8:
		i, _ := v.Int8()
		return fmt.Sprintf("I8(%d)", i)
	case KindValueU16:
		u, _ := v.Uint16()
		return fmt.Sprintf("U16(%d)", u)
	case KindValueI16:
		i, _ := v.Int16()
		return fmt.Sprintf("I16(%d)", i)
	case KindValueU32:
		u, _ := v.Uint32()
		return fmt.Sprintf("U32(%d)", u)
	case KindValueI32:
		i, _ := v.Int32()
		return fmt.Sprintf("I32(%d)", i)
	case KindValueFloat:
		f, _ := v.Float32()
		return fmt.Sprintf("Float(%s)", strconv.FormatFloat(float64(f), 'g', -1, 32))
	case KindValueU64:
		u, _ := v.Uint64()
		return fmt.Sprintf("U64(%d)", u)
	case KindValueI64:
		i, _ := v.Int64()
		return fmt.Sprintf("I64(%d)", i)
	case KindValueDouble:
		d, _ := v.Float64()
		return fmt.Sprintf("Double(%s)", strconv.FormatFloat(d, 'g', -1, 64))
	case KindValueText:
		return fmt.Sprintf("Text(%q)", v.s)
	case KindValueDateTime:
		return fmt.Sprintf("DateTime(%q)", v.s)
	case KindValueDate:
		return fmt.Sprintf("Date(%q)", v.s)
	case KindValueTime:
		return fmt.Sprintf("Time(%q)", v.s)
	case KindValueDecimalStr:
		return fmt.Sprintf("DecimalStr(%q)", v.s)
	case KindValueBlob:
		parts := make([]string, len(v.b))
		for i, b := range v.b {
			parts[i] = fmt.Sprintf("0x%02x", b)
		}
		return fmt.Sprintf("Blob(%s)", strings.Join(parts, ", "))
	case KindValueList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return fmt.Sprintf("List(%s)", strings.Join(parts, ", "))
	case KindValueMap:
		keys := sortedMapKeys(v.mp)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%d: %s", k, v.mp[k].String())
		}
		return fmt.Sprintf("Map(%s)", strings.Join(parts, ", "))
	case KindValueObject:
		keys := sortedObjectKeys(v.obj)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%q: %s", k, v.obj[k].String())
		}
		return fmt.Sprintf("Object(%s)", strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("Unknown(%#02x)", uint8(v.kind))
	}
}
