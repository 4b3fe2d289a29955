// Copyright (C) 2020 Michael J. Fromberger. All Rights Reserved.

package binn

import (
	"bytes"
	"io"
)

const helpersComponent = "helpers"

// The EncodeX/DecodeX functions below are thin, per-variant convenience
// wrappers around EncodeValue/Decoder.DecodeAs, one pair per storage class,
// mirroring the encode_u8/decode_u8-style free functions the original
// implementation attaches to every Read/Write via its EncodingFunctions and
// DecodingFunctions traits.

// EncodeNull writes a Null value to w.
func EncodeNull(w io.Writer) (Size, error) { return EncodeValue(Null(), w) }

// EncodeBool writes a True or False value to w.
func EncodeBool(w io.Writer, b bool) (Size, error) { return EncodeValue(Bool(b), w) }

// EncodeU8 writes a U8 value to w.
func EncodeU8(w io.Writer, u uint8) (Size, error) { return EncodeValue(NewU8(u), w) }

// EncodeI8 writes an I8 value to w.
func EncodeI8(w io.Writer, i int8) (Size, error) { return EncodeValue(NewI8(i), w) }

// EncodeU16 writes a U16 value to w.
func EncodeU16(w io.Writer, u uint16) (Size, error) { return EncodeValue(NewU16(u), w) }

// EncodeI16 writes an I16 value to w.
func EncodeI16(w io.Writer, i int16) (Size, error) { return EncodeValue(NewI16(i), w) }

// EncodeU32 writes a U32 value to w.
func EncodeU32(w io.Writer, u uint32) (Size, error) { return EncodeValue(NewU32(u), w) }

// EncodeI32 writes an I32 value to w.
func EncodeI32(w io.Writer, i int32) (Size, error) { return EncodeValue(NewI32(i), w) }

// EncodeFloat writes a Float value to w.
func EncodeFloat(w io.Writer, f float32) (Size, error) { return EncodeValue(NewFloat(f), w) }

// EncodeU64 writes a U64 value to w.
func EncodeU64(w io.Writer, u uint64) (Size, error) { return EncodeValue(NewU64(u), w) }

// EncodeI64 writes an I64 value to w.
func EncodeI64(w io.Writer, i int64) (Size, error) { return EncodeValue(NewI64(i), w) }

// EncodeDouble writes a Double value to w.
func EncodeDouble(w io.Writer, d float64) (Size, error) { return EncodeValue(NewDouble(d), w) }

// EncodeText writes a Text value to w.
func EncodeText(w io.Writer, s string) (Size, error) { return EncodeValue(Text(s), w) }

// EncodeBlob writes a Blob value to w.
func EncodeBlob(w io.Writer, b []byte) (Size, error) { return EncodeValue(NewBlob(b), w) }

// EncodeList writes a List value to w.
func EncodeList(w io.Writer, items ...Value) (Size, error) { return EncodeValue(NewList(items...), w) }

// EncodeMap writes a Map value to w.
func EncodeMap(w io.Writer, m map[int32]Value) (Size, error) { return EncodeValue(NewMap(m), w) }

// EncodeObject writes an Object value to w.
func EncodeObject(w io.Writer, m map[string]Value) (Size, error) { return EncodeValue(NewObject(m), w) }

// DecodeBool reads a True or False value from r.
func DecodeBool(r io.Reader) (bool, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueTrue, KindValueFalse)
	if err != nil {
		return false, err
	}
	b, _ := v.IsBool()
	return b, nil
}

// DecodeU8 reads a U8 value from r.
func DecodeU8(r io.Reader) (uint8, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueU8)
	if err != nil {
		return 0, err
	}
	u, _ := v.Uint8()
	return u, nil
}

// DecodeI8 reads an I8 value from r.
func DecodeI8(r io.Reader) (int8, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueI8)
	if err != nil {
		return 0, err
	}
	i, _ := v.Int8()
	return i, nil
}

// DecodeU16 reads a U16 value from r.
func DecodeU16(r io.Reader) (uint16, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueU16)
	if err != nil {
		return 0, err
	}
	u, _ := v.Uint16()
	return u, nil
}

// DecodeI16 reads an I16 value from r.
func DecodeI16(r io.Reader) (int16, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueI16)
	if err != nil {
		return 0, err
	}
	i, _ := v.Int16()
	return i, nil
}

// DecodeU32 reads a U32 value from r.
func DecodeU32(r io.Reader) (uint32, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueU32)
	if err != nil {
		return 0, err
	}
	u, _ := v.Uint32()
	return u, nil
}

// DecodeI32 reads an I32 value from r.
func DecodeI32(r io.Reader) (int32, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueI32)
	if err != nil {
		return 0, err
	}
	i, _ := v.Int32()
	return i, nil
}

// DecodeFloat reads a Float value from r.
func DecodeFloat(r io.Reader) (float32, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueFloat)
	if err != nil {
		return 0, err
	}
	f, _ := v.Float32()
	return f, nil
}

// DecodeU64 reads a U64 value from r.
func DecodeU64(r io.Reader) (uint64, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueU64)
	if err != nil {
		return 0, err
	}
	u, _ := v.Uint64()
	return u, nil
}

// DecodeI64 reads an I64 value from r.
func DecodeI64(r io.Reader) (int64, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueI64)
	if err != nil {
		return 0, err
	}
	i, _ := v.Int64()
	return i, nil
}

// DecodeDouble reads a Double value from r.
func DecodeDouble(r io.Reader) (float64, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueDouble)
	if err != nil {
		return 0, err
	}
	d, _ := v.Float64()
	return d, nil
}

// DecodeText reads a Text value from r.
func DecodeText(r io.Reader) (string, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueText)
	if err != nil {
		return "", err
	}
	s, _ := v.AsText()
	return s, nil
}

// DecodeBlob reads a Blob value from r.
func DecodeBlob(r io.Reader) ([]byte, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueBlob)
	if err != nil {
		return nil, err
	}
	b, _ := v.AsBlob()
	return b, nil
}

// DecodeList reads a List value from r.
func DecodeList(r io.Reader) ([]Value, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueList)
	if err != nil {
		return nil, err
	}
	items, _ := v.AsList()
	return items, nil
}

// DecodeMap reads a Map value from r.
func DecodeMap(r io.Reader) (map[int32]Value, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueMap)
	if err != nil {
		return nil, err
	}
	m, _ := v.AsMap()
	return m, nil
}

// DecodeObject reads an Object value from r.
func DecodeObject(r io.Reader) (map[string]Value, error) {
	v, err := NewDecoder(r).DecodeAs(KindValueObject)
	if err != nil {
		return nil, err
	}
	m, _ := v.AsObject()
	return m, nil
}

// At walks v through a sequence of path elements: an int selects a List
// index, an int32 selects a Map key, and a string selects an Object key.
// It stops and reports an error at the first element that does not apply
// to the Value currently being walked.
func (v Value) At(path ...interface{}) (Value, error) {
	cur := v
	for i, elem := range path {
		switch key := elem.(type) {
		case int:
			items, ok := cur.AsList()
			if !ok {
				return Value{}, errAt(KindUnexpectedType, helpersComponent, "path[%d]: %s is not a List", i, cur.Kind())
			}
			if key < 0 || key >= len(items) {
				return Value{}, errAt(KindUnexpectedType, helpersComponent, "path[%d]: index %d out of range (len %d)", i, key, len(items))
			}
			cur = items[key]
		case int32:
			m, ok := cur.AsMap()
			if !ok {
				return Value{}, errAt(KindUnexpectedType, helpersComponent, "path[%d]: %s is not a Map", i, cur.Kind())
			}
			item, ok := m[key]
			if !ok {
				return Value{}, errAt(KindUnexpectedType, helpersComponent, "path[%d]: key %d not present", i, key)
			}
			cur = item
		case string:
			m, ok := cur.AsObject()
			if !ok {
				return Value{}, errAt(KindUnexpectedType, helpersComponent, "path[%d]: %s is not an Object", i, cur.Kind())
			}
			item, ok := m[key]
			if !ok {
				return Value{}, errAt(KindUnexpectedType, helpersComponent, "path[%d]: key %q not present", i, key)
			}
			cur = item
		default:
			return Value{}, errAt(KindInternal, helpersComponent, "path[%d]: unsupported path element type %T", i, elem)
		}
	}
	return cur, nil
}

// numericValue extracts v's numeric payload as a float64 along with whether
// v is of any numeric kind (integer, Float, or Double), for use by
// CompareNumeric. It does not lose precision for any int32/uint32 or
// narrower value; U64/I64 values near the ends of their range may lose
// precision, matching the tradeoff of comparing heterogeneous numeric kinds
// at all.
func numericValue(v Value) (f float64, isNumeric bool) {
	switch v.kind {
	case KindValueU8:
		u, _ := v.Uint8()
		return float64(u), true
	case KindValueI8:
		i, _ := v.Int8()
		return float64(i), true
	case KindValueU16:
		u, _ := v.Uint16()
		return float64(u), true
	case KindValueI16:
		i, _ := v.Int16()
		return float64(i), true
	case KindValueU32:
		u, _ := v.Uint32()
		return float64(u), true
	case KindValueI32:
		i, _ := v.Int32()
		return float64(i), true
	case KindValueFloat:
		f32, _ := v.Float32()
		return float64(f32), true
	case KindValueU64:
		u, _ := v.Uint64()
		return float64(u), true
	case KindValueI64:
		i, _ := v.Int64()
		return float64(i), true
	case KindValueDouble:
		d, _ := v.Float64()
		return d, true
	default:
		return 0, false
	}
}

// CompareNumeric compares a and b as numbers regardless of which of the
// numeric Kinds each holds: -1 if a<b, 0 if a==b, 1 if a>b. ok is false if
// either Value is not a numeric kind, in which case the int result is
// meaningless.
func CompareNumeric(a, b Value) (cmp int, ok bool) {
	fa, okA := numericValue(a)
	fb, okB := numericValue(b)
	if !okA || !okB {
		return 0, false
	}
	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	default:
		return 0, true
	}
}

// bytesReader adapts a []byte to an io.Reader for the convenience
// DecodeBytes-style helpers that take a slice directly instead of a Reader.
func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// DecodeValueFromBytes decodes a single value from a byte slice, returning
// an error if the slice holds anything other than exactly one record.
func DecodeValueFromBytes(b []byte) (Value, error) {
	r := bytesReader(b)
	v, ok, err := NewDecoder(r).Decode()
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, errAt(KindTruncated, helpersComponent, "no value present in input")
	}
	var trailing [1]byte
	if n, _ := r.Read(trailing[:]); n != 0 {
		return Value{}, errAt(KindSizeMismatch, helpersComponent, "trailing bytes after decoded value")
	}
	return v, nil
}

// EncodeValueToBytes encodes v and returns the resulting bytes.
func EncodeValueToBytes(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := EncodeValue(v, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
