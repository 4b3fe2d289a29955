// Copyright (C) 2020 Michael J. Fromberger. All Rights Reserved.

package binn

import (
	"encoding/binary"
	"io"
)

const encodeComponent = "encode"

// sizeFieldHighBit marks the 4-byte form of a size field: the high bit of
// its first byte is set, leaving 31 bits (MaxDataSize) for the value.
const sizeFieldHighBit = 0x80

// countingWriter wraps an io.Writer and counts bytes actually written, so
// EncodeValue can assert the precomputed size against what really went out,
// mirroring the expected-vs-actual check in the original implementation's
// Value::encode.
type countingWriter struct {
	w io.Writer
	n Size
}

func (c *countingWriter) Write(p []byte) (int, error) {
	m, err := c.w.Write(p)
	c.n += Size(m)
	if err != nil {
		return m, err
	}
	if m != len(p) {
		return m, errAt(KindShortWrite, encodeComponent, "wrote %d of %d bytes", m, len(p))
	}
	return m, nil
}

func (c *countingWriter) writeByte(b byte) error {
	_, err := c.Write([]byte{b})
	return err
}

// writeSizeField writes n in the size-field encoding: a single byte if n
// fits in seven bits, else four bytes big-endian with the high bit of the
// first byte set.
func writeSizeField(w *countingWriter, n Size) error {
	if n <= maxOneByteSize {
		return w.writeByte(byte(n))
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], n|uint32(sizeFieldHighBit)<<24)
	_, err := w.Write(buf[:])
	return err
}

// EncodeValue writes v to dst as a single self-describing Binn record and
// returns the number of bytes written. The size of every container is
// computed before any byte is written (see size.go); if the bytes actually
// written do not match that precomputed size, EncodeValue returns a
// *Error(KindInternal), since that indicates a bug in this package rather
// than bad input.
func EncodeValue(v Value, dst io.Writer) (Size, error) {
	expected, err := sizeOf(v)
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: dst}
	if err := writeValue(cw, v); err != nil {
		return cw.n, err
	}
	if cw.n != expected {
		return cw.n, errAt(KindInternal, encodeComponent, "wrote %d bytes, precomputed size was %d for %s", cw.n, expected, v.Kind())
	}
	return cw.n, nil
}

func writeValue(w *countingWriter, v Value) error {
	switch v.kind {
	case KindValueNull, KindValueTrue, KindValueFalse:
		return w.writeByte(byte(v.kind))
	case KindValueU8, KindValueI8:
		if err := w.writeByte(byte(v.kind)); err != nil {
			return err
		}
		return w.writeByte(byte(v.n))
	case KindValueU16, KindValueI16:
		if err := w.writeByte(byte(v.kind)); err != nil {
			return err
		}
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(v.n))
		_, err := w.Write(buf[:])
		return err
	case KindValueU32, KindValueI32, KindValueFloat:
		if err := w.writeByte(byte(v.kind)); err != nil {
			return err
		}
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(v.n))
		_, err := w.Write(buf[:])
		return err
	case KindValueU64, KindValueI64, KindValueDouble:
		if err := w.writeByte(byte(v.kind)); err != nil {
			return err
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], v.n)
		_, err := w.Write(buf[:])
		return err
	case KindValueText, KindValueDateTime, KindValueDate, KindValueTime, KindValueDecimalStr:
		return writeString(w, v.kind, v.s)
	case KindValueBlob:
		return writeBlob(w, v.b)
	case KindValueList:
		return writeList(w, v.list)
	case KindValueMap:
		return writeMap(w, v.mp)
	case KindValueObject:
		return writeObject(w, v.obj)
	default:
		return errAt(KindInternal, encodeComponent, "writeValue: unhandled kind %s", v.kind)
	}
}

func writeString(w *countingWriter, kind ValueKind, s string) error {
	if err := w.writeByte(byte(kind)); err != nil {
		return err
	}
	if err := writeSizeField(w, Size(len(s))); err != nil {
		return err
	}
	if _, err := w.Write([]byte(s)); err != nil {
		return err
	}
	return w.writeByte(0) // NUL terminator
}

func writeBlob(w *countingWriter, b []byte) error {
	if err := w.writeByte(byte(KindValueBlob)); err != nil {
		return err
	}
	if err := writeSizeField(w, Size(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// writeContainerHeader writes the tag, the container's own total-size
// field, and its item-count field, given the already-computed containerSize.
func writeContainerHeader(w *countingWriter, kind ValueKind, cs containerSize) error {
	if err := w.writeByte(byte(kind)); err != nil {
		return err
	}
	if err := writeSizeField(w, cs.Total); err != nil {
		return err
	}
	return writeSizeField(w, cs.Count)
}

func writeList(w *countingWriter, items []Value) error {
	cs, err := sizeOfList(items)
	if err != nil {
		return err
	}
	if err := writeContainerHeader(w, KindValueList, cs); err != nil {
		return err
	}
	for _, item := range items {
		if err := writeValue(w, item); err != nil {
			return err
		}
	}
	return nil
}

// writeMap writes entries in canonical (ascending key) order, so encoding
// is deterministic and repeatable hashing of the wire bytes is meaningful.
func writeMap(w *countingWriter, m map[int32]Value) error {
	cs, err := sizeOfMap(m)
	if err != nil {
		return err
	}
	if err := writeContainerHeader(w, KindValueMap, cs); err != nil {
		return err
	}
	for _, k := range sortedMapKeys(m) {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(k))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
		if err := writeValue(w, m[k]); err != nil {
			return err
		}
	}
	return nil
}

// writeObject writes entries in canonical (ascending lexicographic key)
// order. Key length is always a single unsigned byte, not the general
// size-field encoding; see DESIGN.md for why this departs from the
// variable-length form the original implementation's decoder reads.
func writeObject(w *countingWriter, m map[string]Value) error {
	cs, err := sizeOfObject(m)
	if err != nil {
		return err
	}
	if err := writeContainerHeader(w, KindValueObject, cs); err != nil {
		return err
	}
	for _, k := range sortedObjectKeys(m) {
		if len(k) > ObjectKeyMaxLen {
			return errAt(KindKeyTooLong, encodeComponent, "object key %q is %d bytes, exceeds %d", k, len(k), ObjectKeyMaxLen)
		}
		if err := w.writeByte(byte(len(k))); err != nil {
			return err
		}
		if _, err := w.Write([]byte(k)); err != nil {
			return err
		}
		if err := writeValue(w, m[k]); err != nil {
			return err
		}
	}
	return nil
}
