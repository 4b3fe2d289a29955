// Copyright (C) 2020 Michael J. Fromberger. All Rights Reserved.

package binn_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/daimons/binn-go"
)

func TestEncodeConcreteScenarios(t *testing.T) {
	tests := []struct {
		name string
		v    binn.Value
		want []byte
	}{
		{
			name: "u8-123",
			v:    binn.NewU8(123),
			want: []byte{0x20, 0x7B},
		},
		{
			name: "i16-neg456",
			v:    binn.NewI16(-456),
			want: []byte{0x41, 0xFE, 0x38},
		},
		{
			name: "text-binn-ir",
			v:    binn.Text("Binn-IR"),
			want: []byte{0xA0, 0x07, 'B', 'i', 'n', 'n', '-', 'I', 'R', 0x00},
		},
		{
			name: "blob-hello-jen",
			v:    binn.NewBlob([]byte("hello-jen")),
			want: []byte{0xC0, 0x09, 'h', 'e', 'l', 'l', 'o', '-', 'j', 'e', 'n'},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := binn.EncodeValue(test.v, &buf)
			if err != nil {
				t.Fatalf("EncodeValue: unexpected error: %v", err)
			}
			if int(n) != len(test.want) {
				t.Errorf("wrote %d bytes, want %d", n, len(test.want))
			}
			if !bytes.Equal(buf.Bytes(), test.want) {
				t.Errorf("got bytes % x, want % x", buf.Bytes(), test.want)
			}
		})
	}
}

func TestEncodeLongTextUsesFourByteSizeField(t *testing.T) {
	s := strings.Repeat("a", 200)
	var buf bytes.Buffer
	n, err := binn.EncodeValue(binn.Text(s), &buf)
	if err != nil {
		t.Fatalf("EncodeValue: unexpected error: %v", err)
	}
	const want = 1 + 4 + 200 + 1
	if int(n) != want {
		t.Errorf("wrote %d bytes, want %d", n, want)
	}
	got := buf.Bytes()
	wantSizeField := []byte{0x80, 0x00, 0x00, 0xC8}
	if !bytes.Equal(got[1:5], wantSizeField) {
		t.Errorf("size field = % x, want % x", got[1:5], wantSizeField)
	}
}

func TestEncodeSizeExactness(t *testing.T) {
	values := []binn.Value{
		binn.Null(),
		binn.Bool(true),
		binn.NewU8(7),
		binn.NewI64(-1),
		binn.NewDouble(3.5),
		binn.Text("hi"),
		binn.NewBlob([]byte{1, 2, 3}),
		binn.NewList(binn.NewU8(1), binn.NewU8(2), binn.NewU8(3)),
		binn.NewMap(map[int32]binn.Value{0: binn.Text("the-sun"), 1: binn.NewU64(0)}),
		binn.NewObject(map[string]binn.Value{"a": binn.NewU8(1), "bb": binn.NewI32(-2)}),
	}
	for _, v := range values {
		var buf bytes.Buffer
		n, err := binn.EncodeValue(v, &buf)
		if err != nil {
			t.Fatalf("EncodeValue(%s): unexpected error: %v", v, err)
		}
		if int(n) != buf.Len() {
			t.Errorf("EncodeValue(%s) returned %d, buffer holds %d bytes", v, n, buf.Len())
		}
	}
}

func TestEncodeObjectKeyTooLong(t *testing.T) {
	key := strings.Repeat("k", binn.ObjectKeyMaxLen+1)
	var buf bytes.Buffer
	_, err := binn.EncodeValue(binn.NewObject(map[string]binn.Value{key: binn.Null()}), &buf)
	if err == nil {
		t.Fatalf("expected an error for an oversized object key")
	}
	if !errors.Is(err, binn.ErrKeyTooLong) {
		t.Errorf("got error %v, want ErrKeyTooLong", err)
	}
}
