// Copyright (C) 2020 Michael J. Fromberger. All Rights Reserved.

package binn

import (
	"bufio"
	"encoding/binary"
	"io"
	"unicode/utf8"
)

const decodeComponent = "decode"

// preallocHint caps how much capacity a container decode may ask the
// runtime for up front, based on the declared item count. The count comes
// straight off the wire before a single item has been read, so it must not
// be trusted: a 6-byte stream can claim a count near 2^31 while declaring a
// total size of only a few bytes. Growing incrementally (append/map-insert)
// still costs the right amount of memory for what is actually decoded; this
// hint only avoids repeated small reallocations for the common, honest case.
const preallocHint = 64

func preallocCount(count Size) int {
	if uint64(count) > preallocHint {
		return preallocHint
	}
	return int(count)
}

// Source is what Decode reads from: a byte-at-a-time reader plus bulk
// reads. Most io.Reader implementations do not satisfy io.ByteReader, so
// NewDecoder wraps any reader that doesn't in a bufio.Reader, exactly as
// the original implementation's NewDecoder(wrap with BufReader) does for
// std::io::Read.
type Source interface {
	io.Reader
	io.ByteReader
}

// asSource adapts r to a Source, wrapping with bufio only when necessary so
// a Source passed in directly is never double-buffered.
func asSource(r io.Reader) Source {
	if s, ok := r.(Source); ok {
		return s
	}
	return bufio.NewReader(r)
}

// Decoder reads a sequence of Binn records from a Source.
type Decoder struct {
	src Source
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{src: asSource(r)}
}

// Decode reads the next value from d. ok is false only when the source was
// exhausted cleanly before any byte of a new record was read; any other
// form of truncation is reported as a *Error(KindTruncated).
func (d *Decoder) Decode() (Value, bool, error) {
	return decodeValue(d.src, nil, 0)
}

// DecodeAs reads the next value from d and requires its Kind to be one of
// kinds; if kinds is empty, any kind is accepted. A value of a kind not in
// the filter is reported as *Error(KindUnexpectedType); by then its tag byte
// has been consumed, and the rest of the rejected value is left unread.
func (d *Decoder) DecodeAs(kinds ...ValueKind) (Value, error) {
	v, ok, err := decodeValue(d.src, kinds, 0)
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, errAt(KindTruncated, decodeComponent, "source exhausted, expected a value")
	}
	return v, nil
}

// readFull reads exactly len(buf) bytes, translating any partial read into
// *Error(KindTruncated) rather than leaving the caller to interpret io.EOF.
func readFull(src Source, buf []byte) error {
	_, err := io.ReadFull(src, buf)
	if err != nil {
		return errAt(KindTruncated, decodeComponent, "short read: %v", err)
	}
	return nil
}

// readSizeField reads a size field: a single byte if its high bit is clear,
// or that byte plus three more (with the high bit masked off) if set. It
// returns the decoded size and the number of bytes consumed, mirroring
// read_size_and_its_length in the original implementation.
func readSizeField(src Source) (size Size, consumed Size, err error) {
	b0, err := src.ReadByte()
	if err != nil {
		return 0, 0, errAt(KindTruncated, decodeComponent, "short read: %v", err)
	}
	if b0&sizeFieldHighBit == 0 {
		return Size(b0), 1, nil
	}
	rest := make([]byte, 3)
	if err := readFull(src, rest); err != nil {
		return 0, 0, err
	}
	buf := [4]byte{b0 &^ sizeFieldHighBit, rest[0], rest[1], rest[2]}
	n := binary.BigEndian.Uint32(buf[:])
	if n > MaxDataSize {
		return 0, 0, errAt(KindOverflow, decodeComponent, "declared size %d exceeds MaxDataSize", n)
	}
	return n, 4, nil
}

// kindAllowed reports whether k passes filter; an empty filter allows all kinds.
func kindAllowed(k ValueKind, filter []ValueKind) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == k {
			return true
		}
	}
	return false
}

// decodeValue reads one tagged record from src. ok is false only when src
// was exhausted before the tag byte itself could be read (a clean
// end-of-stream between records); every other failure is a non-nil error.
func decodeValue(src Source, filter []ValueKind, depth int) (Value, bool, error) {
	if depth > maxNestingDepth {
		return Value{}, false, errAt(KindOverflow, decodeComponent, "containers nested deeper than %d", maxNestingDepth)
	}
	tagByte, err := src.ReadByte()
	if err != nil {
		if err == io.EOF {
			return Value{}, false, nil
		}
		return Value{}, false, errAt(KindTruncated, decodeComponent, "short read: %v", err)
	}
	kind := ValueKind(tagByte)
	if !validKind(kind) {
		return Value{}, false, errAt(KindUnknownTag, decodeComponent, "unknown tag byte %#02x", tagByte)
	}
	if !kindAllowed(kind, filter) {
		return Value{}, false, errAt(KindUnexpectedType, decodeComponent, "got %s, not permitted by filter", kind)
	}
	v, err := decodeBody(src, kind, depth)
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

func decodeBody(src Source, kind ValueKind, depth int) (Value, error) {
	switch kind {
	case KindValueNull:
		return Null(), nil
	case KindValueTrue:
		return Bool(true), nil
	case KindValueFalse:
		return Bool(false), nil
	case KindValueU8:
		b, err := src.ReadByte()
		if err != nil {
			return Value{}, errAt(KindTruncated, decodeComponent, "short read: %v", err)
		}
		return NewU8(b), nil
	case KindValueI8:
		b, err := src.ReadByte()
		if err != nil {
			return Value{}, errAt(KindTruncated, decodeComponent, "short read: %v", err)
		}
		return NewI8(int8(b)), nil
	case KindValueU16:
		n, err := readUint(src, 2)
		if err != nil {
			return Value{}, err
		}
		return NewU16(uint16(n)), nil
	case KindValueI16:
		n, err := readUint(src, 2)
		if err != nil {
			return Value{}, err
		}
		return NewI16(int16(uint16(n))), nil
	case KindValueU32:
		n, err := readUint(src, 4)
		if err != nil {
			return Value{}, err
		}
		return NewU32(uint32(n)), nil
	case KindValueI32:
		n, err := readUint(src, 4)
		if err != nil {
			return Value{}, err
		}
		return NewI32(int32(uint32(n))), nil
	case KindValueFloat:
		n, err := readUint(src, 4)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindValueFloat, n: n}, nil
	case KindValueU64:
		n, err := readUint(src, 8)
		if err != nil {
			return Value{}, err
		}
		return NewU64(n), nil
	case KindValueI64:
		n, err := readUint(src, 8)
		if err != nil {
			return Value{}, err
		}
		return NewI64(int64(n)), nil
	case KindValueDouble:
		n, err := readUint(src, 8)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindValueDouble, n: n}, nil
	case KindValueText, KindValueDateTime, KindValueDate, KindValueTime, KindValueDecimalStr:
		s, err := readString(src)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: kind, s: s}, nil
	case KindValueBlob:
		b, err := readBlob(src)
		if err != nil {
			return Value{}, err
		}
		return NewBlob(b), nil
	case KindValueList:
		return readList(src, depth)
	case KindValueMap:
		return readMap(src, depth)
	case KindValueObject:
		return readObject(src, depth)
	default:
		return Value{}, errAt(KindInternal, decodeComponent, "decodeBody: unhandled kind %s", kind)
	}
}

// readUint reads n big-endian bytes (n in {2,4,8}) into a uint64.
func readUint(src Source, n int) (uint64, error) {
	buf := make([]byte, n)
	if err := readFull(src, buf); err != nil {
		return 0, err
	}
	switch n {
	case 2:
		return uint64(binary.BigEndian.Uint16(buf)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(buf)), nil
	case 8:
		return binary.BigEndian.Uint64(buf), nil
	default:
		return 0, errAt(KindInternal, decodeComponent, "readUint: bad width %d", n)
	}
}

// readString reads a STRING-class payload: size field, payload bytes
// (validated as UTF-8), and the trailing NUL terminator.
func readString(src Source) (string, error) {
	size, _, err := readSizeField(src)
	if err != nil {
		return "", err
	}
	buf := make([]byte, size)
	if err := readFull(src, buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", errAt(KindBadUTF8, decodeComponent, "string payload is not valid utf-8")
	}
	term, err := src.ReadByte()
	if err != nil {
		return "", errAt(KindTruncated, decodeComponent, "short read: %v", err)
	}
	if term != 0 {
		return "", errAt(KindMissingTerminator, decodeComponent, "expected NUL terminator, got %#02x", term)
	}
	return string(buf), nil
}

// readBlob reads a Blob payload: size field then raw bytes, with no terminator.
func readBlob(src Source) ([]byte, error) {
	size, _, err := readSizeField(src)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if err := readFull(src, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// minContainerDeclaredSize is the smallest legal declared total: one tag
// byte, a one-byte total-size field, and a one-byte count field, with zero
// items (an empty container's declared size is always exactly 3).
const minContainerDeclaredSize Size = 3

// containerReader tracks a container's declared total size against the
// bytes consumed after its header, reconciling them the way §4.4.5
// prescribes: read starts at bytes(declared-field)+bytes(count-field) (the
// tag byte is deliberately not yet counted), must stay strictly below
// declared while items remain, and must satisfy read+1 == declared — the
// +1 being the tag byte — once the last item has been consumed.
type containerReader struct {
	declared Size
	count    Size
	read     uint64
}

// readContainerHeader reads a container's total-size field and item-count
// field and validates the minimum declared size.
func readContainerHeader(src Source) (*containerReader, error) {
	declared, declaredLen, err := readSizeField(src)
	if err != nil {
		return nil, err
	}
	if declared < minContainerDeclaredSize {
		return nil, errAt(KindSizeMismatch, decodeComponent, "declared size %d is below the minimum %d", declared, minContainerDeclaredSize)
	}
	count, countLen, err := readSizeField(src)
	if err != nil {
		return nil, err
	}
	return &containerReader{declared: declared, count: count, read: uint64(declaredLen + countLen)}, nil
}

// addItem records that an item (plus any per-entry key framing) consuming n
// bytes was just read. more reports whether further items are still
// expected; when more is true, read must remain strictly below declared, and
// when false (the last item), read+1 must equal declared exactly.
func (c *containerReader) addItem(n Size, more bool) error {
	c.read += uint64(n)
	if more {
		if c.read >= uint64(c.declared) {
			return errAt(KindSizeMismatch, decodeComponent, "container overran declared size %d before its last item", c.declared)
		}
		return nil
	}
	if c.read+1 != uint64(c.declared) {
		return errAt(KindSizeMismatch, decodeComponent, "container size mismatch: read %d+1, declared %d", c.read, c.declared)
	}
	return nil
}

// finishEmpty verifies reconciliation for a container with zero items,
// where addItem is never called.
func (c *containerReader) finishEmpty() error {
	if c.read+1 != uint64(c.declared) {
		return errAt(KindSizeMismatch, decodeComponent, "container size mismatch: read %d+1, declared %d", c.read, c.declared)
	}
	return nil
}

func readList(src Source, depth int) (Value, error) {
	cr, err := readContainerHeader(src)
	if err != nil {
		return Value{}, err
	}
	items := make([]Value, 0, preallocCount(cr.count))
	for i := uint64(0); i < uint64(cr.count); i++ {
		v, ok, err := decodeValue(src, nil, depth+1)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, errAt(KindTruncated, decodeComponent, "source exhausted inside list")
		}
		n, err := sizeOf(v)
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
		if err := cr.addItem(n, i+1 < uint64(cr.count)); err != nil {
			return Value{}, err
		}
	}
	if cr.count == 0 {
		if err := cr.finishEmpty(); err != nil {
			return Value{}, err
		}
	}
	return NewList(items...), nil
}

func readMap(src Source, depth int) (Value, error) {
	cr, err := readContainerHeader(src)
	if err != nil {
		return Value{}, err
	}
	m := make(map[int32]Value, preallocCount(cr.count))
	for i := uint64(0); i < uint64(cr.count); i++ {
		keyBuf := make([]byte, 4)
		if err := readFull(src, keyBuf); err != nil {
			return Value{}, err
		}
		key := int32(binary.BigEndian.Uint32(keyBuf))
		v, ok, err := decodeValue(src, nil, depth+1)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, errAt(KindTruncated, decodeComponent, "source exhausted inside map")
		}
		if _, dup := m[key]; dup {
			return Value{}, errAt(KindDuplicateKey, decodeComponent, "duplicate map key %d", key)
		}
		n, err := sizeOf(v)
		if err != nil {
			return Value{}, err
		}
		entry, err := checkedAdd(4, n)
		if err != nil {
			return Value{}, err
		}
		m[key] = v
		if err := cr.addItem(entry, i+1 < uint64(cr.count)); err != nil {
			return Value{}, err
		}
	}
	if cr.count == 0 {
		if err := cr.finishEmpty(); err != nil {
			return Value{}, err
		}
	}
	return NewMap(m), nil
}

func readObject(src Source, depth int) (Value, error) {
	cr, err := readContainerHeader(src)
	if err != nil {
		return Value{}, err
	}
	m := make(map[string]Value, preallocCount(cr.count))
	for i := uint64(0); i < uint64(cr.count); i++ {
		keyLen, err := src.ReadByte()
		if err != nil {
			return Value{}, errAt(KindTruncated, decodeComponent, "short read: %v", err)
		}
		if int(keyLen) > ObjectKeyMaxLen {
			return Value{}, errAt(KindKeyTooLong, decodeComponent, "object key length %d exceeds %d", keyLen, ObjectKeyMaxLen)
		}
		keyBuf := make([]byte, keyLen)
		if err := readFull(src, keyBuf); err != nil {
			return Value{}, err
		}
		if !utf8.Valid(keyBuf) {
			return Value{}, errAt(KindBadUTF8, decodeComponent, "object key is not valid utf-8")
		}
		key := string(keyBuf)
		v, ok, err := decodeValue(src, nil, depth+1)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, errAt(KindTruncated, decodeComponent, "source exhausted inside object")
		}
		if _, dup := m[key]; dup {
			return Value{}, errAt(KindDuplicateKey, decodeComponent, "duplicate object key %q", key)
		}
		n, err := sizeOf(v)
		if err != nil {
			return Value{}, err
		}
		entry, err := checkedAddAll(1, Size(keyLen), n)
		if err != nil {
			return Value{}, err
		}
		m[key] = v
		if err := cr.addItem(entry, i+1 < uint64(cr.count)); err != nil {
			return Value{}, err
		}
	}
	if cr.count == 0 {
		if err := cr.finishEmpty(); err != nil {
			return Value{}, err
		}
	}
	return NewObject(m), nil
}
