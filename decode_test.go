// Copyright (C) 2020 Michael J. Fromberger. All Rights Reserved.

package binn_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/daimons/binn-go"
)

// roundTripValues is a representative sample spanning every Kind, used by
// several of the tests below.
func roundTripValues() []binn.Value {
	return []binn.Value{
		binn.Null(),
		binn.Bool(true),
		binn.Bool(false),
		binn.NewU8(123),
		binn.NewI8(-12),
		binn.NewU16(60000),
		binn.NewI16(-456),
		binn.NewU32(1 << 30),
		binn.NewI32(-70000),
		binn.NewFloat(1.5),
		binn.NewU64(1 << 40),
		binn.NewI64(-1),
		binn.NewDouble(2.25),
		binn.Text("Binn-IR"),
		binn.DateTime("2020-05-01T00:00:00Z"),
		binn.NewBlob([]byte("hello-jen")),
		binn.NewList(binn.NewU8(1), binn.Text("x"), binn.NewList()),
		binn.NewMap(map[int32]binn.Value{0: binn.Text("the-sun"), 1: binn.NewU64(0)}),
		binn.NewObject(map[string]binn.Value{"a": binn.NewU8(1), "bb": binn.NewI32(-2)}),
		binn.NewMap(nil),
		binn.NewObject(nil),
	}
}

// TestRoundTrip is P1: decode(encode(v)) == v for every representable Value.
func TestRoundTrip(t *testing.T) {
	for _, v := range roundTripValues() {
		var buf bytes.Buffer
		if _, err := binn.EncodeValue(v, &buf); err != nil {
			t.Fatalf("EncodeValue(%s): unexpected error: %v", v, err)
		}
		got, ok, err := binn.NewDecoder(&buf).Decode()
		if err != nil {
			t.Fatalf("Decode after encoding %s: unexpected error: %v", v, err)
		}
		if !ok {
			t.Fatalf("Decode after encoding %s: reported no value", v)
		}
		if diff := cmp.Diff(v, got); diff != "" {
			t.Errorf("round trip mismatch (-want, +got):\n%s", diff)
		}
	}
}

// TestDecodeConcreteScenarios exercises §8.2's literal byte sequences.
func TestDecodeConcreteScenarios(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want binn.Value
	}{
		{"u8-123", []byte{0x20, 0x7B}, binn.NewU8(123)},
		{"i16-neg456", []byte{0x41, 0xFE, 0x38}, binn.NewI16(-456)},
		{"text-binn-ir", []byte{0xA0, 0x07, 'B', 'i', 'n', 'n', '-', 'I', 'R', 0x00}, binn.Text("Binn-IR")},
		{"blob-hello-jen", []byte{0xC0, 0x09, 'h', 'e', 'l', 'l', 'o', '-', 'j', 'e', 'n'}, binn.NewBlob([]byte("hello-jen"))},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok, err := binn.NewDecoder(bytes.NewReader(test.in)).Decode()
			if err != nil {
				t.Fatalf("Decode: unexpected error: %v", err)
			}
			if !ok {
				t.Fatalf("Decode: reported no value")
			}
			if !got.Equal(test.want) {
				t.Errorf("Decode(% x) = %s, want %s", test.in, got, test.want)
			}
		})
	}
}

func TestDecodeLongText(t *testing.T) {
	s := strings.Repeat("a", 200)
	var buf bytes.Buffer
	if _, err := binn.EncodeValue(binn.Text(s), &buf); err != nil {
		t.Fatalf("EncodeValue: unexpected error: %v", err)
	}
	raw := buf.Bytes()
	wantSizeField := []byte{0x80, 0x00, 0x00, 0xC8}
	if !bytes.Equal(raw[1:5], wantSizeField) {
		t.Fatalf("size field = % x, want % x", raw[1:5], wantSizeField)
	}
	got, ok, err := binn.NewDecoder(bytes.NewReader(raw)).Decode()
	if err != nil || !ok {
		t.Fatalf("Decode: ok=%v err=%v", ok, err)
	}
	gotText, _ := got.AsText()
	if gotText != s {
		t.Errorf("decoded text has length %d, want %d", len(gotText), len(s))
	}
}

// TestDecodeAsFilter is P3: DecodeAs succeeds iff the wire Kind is in the filter.
func TestDecodeAsFilter(t *testing.T) {
	var buf bytes.Buffer
	if _, err := binn.EncodeValue(binn.NewU8(9), &buf); err != nil {
		t.Fatalf("EncodeValue: unexpected error: %v", err)
	}
	raw := buf.Bytes()

	v, err := binn.NewDecoder(bytes.NewReader(raw)).DecodeAs(binn.KindValueU8, binn.KindValueI8)
	if err != nil {
		t.Fatalf("DecodeAs with matching filter: unexpected error: %v", err)
	}
	if k := v.Kind(); k != binn.KindValueU8 {
		t.Errorf("got Kind %s, want U8", k)
	}

	_, err = binn.NewDecoder(bytes.NewReader(raw)).DecodeAs(binn.KindValueText)
	if !errors.Is(err, binn.ErrUnexpectedType) {
		t.Errorf("DecodeAs with non-matching filter: got %v, want ErrUnexpectedType", err)
	}
}

// TestSelfTerminating is P5: a concatenated stream decodes value-by-value,
// and the final Decode reports "no value" rather than Truncated.
func TestSelfTerminating(t *testing.T) {
	var buf bytes.Buffer
	values := []binn.Value{binn.NewU8(1), binn.Text("two"), binn.NewList(binn.NewU8(3))}
	for _, v := range values {
		if _, err := binn.EncodeValue(v, &buf); err != nil {
			t.Fatalf("EncodeValue(%s): unexpected error: %v", v, err)
		}
	}
	dec := binn.NewDecoder(&buf)
	for i, want := range values {
		got, ok, err := dec.Decode()
		if err != nil {
			t.Fatalf("Decode #%d: unexpected error: %v", i, err)
		}
		if !ok {
			t.Fatalf("Decode #%d: reported no value too early", i)
		}
		if !got.Equal(want) {
			t.Errorf("Decode #%d = %s, want %s", i, got, want)
		}
	}
	_, ok, err := dec.Decode()
	if err != nil {
		t.Fatalf("final Decode: unexpected error: %v", err)
	}
	if ok {
		t.Errorf("final Decode: expected ok=false at end of stream")
	}
}

// TestDuplicateKeyRejected is P6.
func TestDuplicateKeyRejected(t *testing.T) {
	// Map{0: U8(1), 0: U8(2)}, hand-crafted: total=1(tag)+1(size)+1(count)+2*(4+2)=15
	raw := []byte{
		0xE1,       // Map tag
		15,         // declared total size
		2,          // count
		0, 0, 0, 0, // key 0
		0x20, 1, // U8(1)
		0, 0, 0, 0, // key 0 again
		0x20, 2, // U8(2)
	}
	_, ok, err := binn.NewDecoder(bytes.NewReader(raw)).Decode()
	if ok {
		t.Fatalf("Decode: expected failure on duplicate key, got ok=true")
	}
	if !errors.Is(err, binn.ErrDuplicateKey) {
		t.Errorf("got error %v, want ErrDuplicateKey", err)
	}
}

// TestSizeReconciliation is P7: flipping the declared total by any nonzero
// delta must fail SizeMismatch.
func TestSizeReconciliation(t *testing.T) {
	var buf bytes.Buffer
	v := binn.NewMap(map[int32]binn.Value{0: binn.Text("the-sun"), 1: binn.NewU64(0)})
	if _, err := binn.EncodeValue(v, &buf); err != nil {
		t.Fatalf("EncodeValue: unexpected error: %v", err)
	}
	raw := buf.Bytes()

	for _, delta := range []int{-1, 1, 5} {
		corrupt := append([]byte(nil), raw...)
		corrupt[1] = byte(int(corrupt[1]) + delta)
		_, ok, err := binn.NewDecoder(bytes.NewReader(corrupt)).Decode()
		if ok {
			t.Errorf("delta %d: expected failure, got ok=true", delta)
			continue
		}
		if !errors.Is(err, binn.ErrSizeMismatch) {
			t.Errorf("delta %d: got error %v, want ErrSizeMismatch", delta, err)
		}
	}
}

// TestDecoderBounds is P4: adversarial byte streams never panic and are
// rejected with the expected error kind.
func TestDecoderBounds(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		wantErr error
	}{
		{"empty", []byte{}, nil}, // handled separately: expects ok=false, no error
		{"truncated-u16", []byte{0x40, 0x01}, binn.ErrTruncated},
		{"unknown-tag", []byte{0x99}, binn.ErrUnknownTag},
		{"bad-utf8-text", append([]byte{0xA0, 0x02, 0xFF, 0xFE}, 0x00), binn.ErrBadUTF8},
		{"missing-terminator", []byte{0xA0, 0x01, 'a', 'b'}, binn.ErrMissingTerminator},
		{"declared-too-small", []byte{0xE0, 2, 0}, binn.ErrSizeMismatch},
		{"truncated-four-byte-size-field", []byte{0xC0, 0x80, 0x00}, binn.ErrTruncated},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, ok, err := binn.NewDecoder(bytes.NewReader(test.in)).Decode()
			if test.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if ok {
					t.Fatalf("expected ok=false for an empty stream")
				}
				return
			}
			if ok {
				t.Fatalf("expected failure, got ok=true")
			}
			if !errors.Is(err, test.wantErr) {
				t.Errorf("got error %v, want %v", err, test.wantErr)
			}
		})
	}
}

// writeTestSizeField mirrors the wire encoding of a size field (see
// writeSizeField in encode.go), for tests that hand-construct byte streams.
func writeTestSizeField(buf *bytes.Buffer, n int) {
	if n <= 127 {
		buf.WriteByte(byte(n))
		return
	}
	buf.WriteByte(byte((n>>24)&0xFF) | 0x80)
	buf.WriteByte(byte((n >> 16) & 0xFF))
	buf.WriteByte(byte((n >> 8) & 0xFF))
	buf.WriteByte(byte(n & 0xFF))
}

func wrapInList(payload []byte) []byte {
	total := 1 + 1 + 1 + len(payload)
	if total > 127 {
		total += 3
	}
	var buf bytes.Buffer
	buf.WriteByte(0xE0)
	writeTestSizeField(&buf, total)
	writeTestSizeField(&buf, 1) // count
	buf.Write(payload)
	return buf.Bytes()
}

func TestDecodeNestingDepthBounded(t *testing.T) {
	// A deeply-nested single-element list stream, built directly as bytes so
	// it doesn't require constructing an enormous Value tree: List(List(List(...U8(0)))).
	const depth = 200
	var buf bytes.Buffer
	binn.EncodeValue(binn.NewU8(0), &buf)
	inner := buf.Bytes()
	for i := 0; i < depth; i++ {
		inner = wrapInList(inner)
	}
	_, _, err := binn.NewDecoder(bytes.NewReader(inner)).Decode()
	if !errors.Is(err, binn.ErrOverflow) {
		t.Errorf("got error %v, want ErrOverflow for excessive nesting", err)
	}
}

func TestSourceWrapping(t *testing.T) {
	// A plain io.Reader (not satisfying io.ByteReader) must still work,
	// proving NewDecoder wraps it in a buffered reader automatically.
	var buf bytes.Buffer
	binn.EncodeValue(binn.NewU8(42), &buf)
	r := struct{ io.Reader }{strings.NewReader(buf.String())}
	v, ok, err := binn.NewDecoder(r).Decode()
	if err != nil || !ok {
		t.Fatalf("Decode over a plain io.Reader: ok=%v err=%v", ok, err)
	}
	u, _ := v.Uint8()
	if u != 42 {
		t.Errorf("got %d, want 42", u)
	}
}
