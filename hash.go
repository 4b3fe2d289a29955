// Copyright (C) 2020 Michael J. Fromberger. All Rights Reserved.

package binn

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

// CanonicalHash returns a 64-bit hash of v's canonical encoding: Map and
// Object entries are always written in ascending key order (see writeMap
// and writeObject), so two Values that compare Equal always hash the same
// regardless of how their container fields were populated. This is what
// lets callers use a Value as a cache or dedup key without hand-rolling
// their own stable serialization first.
func CanonicalHash(v Value) (uint64, error) {
	var buf bytes.Buffer
	if _, err := EncodeValue(v, &buf); err != nil {
		return 0, err
	}
	return xxhash.Sum64(buf.Bytes()), nil
}
