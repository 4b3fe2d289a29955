// Copyright (C) 2020 Michael J. Fromberger. All Rights Reserved.

package binn

// component name used in Error.Component for functions in this file.
const sizeComponent = "size"

// checkedAdd adds b to a, reporting an *Error(KindOverflow) instead of
// wrapping if the result would exceed MaxDataSize. This mirrors the sum!
// macro in the original implementation, which bounds every running total
// against the same limit.
func checkedAdd(a, b Size) (Size, error) {
	if b > MaxDataSize-a {
		return 0, errAt(KindOverflow, sizeComponent, "size overflow: %d + %d exceeds MaxDataSize", a, b)
	}
	return a + b, nil
}

// checkedAddAll folds checkedAdd across terms, left to right.
func checkedAddAll(terms ...Size) (Size, error) {
	var total Size
	var err error
	for _, t := range terms {
		total, err = checkedAdd(total, t)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// sizeFieldLen reports how many bytes the size field for a container of
// total byte-length n will occupy: 1 byte if n fits in seven bits (the high
// bit clear signals the short form), 4 bytes otherwise. It is an error for n
// to exceed MaxDataSize.
func sizeFieldLen(n Size) (Size, error) {
	if n > MaxDataSize {
		return 0, errAt(KindOverflow, sizeComponent, "size %d exceeds MaxDataSize", n)
	}
	if n <= maxOneByteSize {
		return 1, nil
	}
	return 4, nil
}

// sizeOf returns the exact number of bytes EncodeValue will write for v,
// including v's own tag byte and any size field. Containers recompute their
// size bottom-up: each child's size is asked for independently, exactly as
// the original implementation's Value::size() does for nested values.
func sizeOf(v Value) (Size, error) {
	switch v.kind {
	case KindValueNull, KindValueTrue, KindValueFalse:
		// tag byte only; NO_BYTES storage class.
		return 1, nil
	case KindValueU8, KindValueI8:
		return 2, nil
	case KindValueU16, KindValueI16:
		return 3, nil
	case KindValueU32, KindValueI32, KindValueFloat:
		return 5, nil
	case KindValueU64, KindValueI64, KindValueDouble:
		return 9, nil
	case KindValueText, KindValueDateTime, KindValueDate, KindValueTime, KindValueDecimalStr:
		return sizeOfString(v.s)
	case KindValueBlob:
		return sizeOfBlob(v.b)
	case KindValueList:
		cs, err := sizeOfList(v.list)
		return cs.Total, err
	case KindValueMap:
		cs, err := sizeOfMap(v.mp)
		return cs.Total, err
	case KindValueObject:
		cs, err := sizeOfObject(v.obj)
		return cs.Total, err
	default:
		return 0, errAt(KindInternal, sizeComponent, "sizeOf: unhandled kind %s", v.kind)
	}
}

// sizeOfString computes tag + size-field + payload + NUL terminator for any
// STRING-class value.
func sizeOfString(s string) (Size, error) {
	if len(s) > int(MaxDataSize) {
		return 0, errAt(KindOverflow, sizeComponent, "string length %d exceeds MaxDataSize", len(s))
	}
	payload := Size(len(s))
	szLen, err := sizeFieldLen(payload)
	if err != nil {
		return 0, err
	}
	return checkedAddAll(1, szLen, payload, 1) // tag + size field + bytes + NUL
}

// sizeOfBlob computes tag + size-field + payload for a Blob value.
func sizeOfBlob(b []byte) (Size, error) {
	if len(b) > int(MaxDataSize) {
		return 0, errAt(KindOverflow, sizeComponent, "blob length %d exceeds MaxDataSize", len(b))
	}
	payload := Size(len(b))
	szLen, err := sizeFieldLen(payload)
	if err != nil {
		return 0, err
	}
	return checkedAddAll(1, szLen, payload)
}

// containerSize is the exact on-wire size of a container, split into its
// parts: Total is what EncodeValue actually writes and what sizeOf returns;
// Count is the item count, kept separate since the encoder writes it as its
// own size field.
type containerSize struct {
	Total Size
	Count Size
}

// sizeOfContainerTotal turns a container's item count and the sum of its
// item bytes into its full on-wire size: tag + total-size-field +
// count-size-field + items. The count field's width depends only on count,
// known up front; the total field's own width is chosen by first assuming 1
// byte and growing to 4 if the combined total does not fit in 7 bits once
// the field itself is counted — the "assume 1, add 3 if >127" idiom from
// the original implementation's size_of_list/map/object functions, applied
// here to the total field only.
func sizeOfContainerTotal(count, itemsSize Size) (containerSize, error) {
	countFieldLen, err := sizeFieldLen(count)
	if err != nil {
		return containerSize{}, err
	}
	// First approximation: tag(1) + total-size-field(1) + count field + items.
	total, err := checkedAddAll(1, 1, countFieldLen, itemsSize)
	if err != nil {
		return containerSize{}, err
	}
	if total > maxOneByteSize {
		total, err = checkedAdd(total, 3) // grow the total field from 1 byte to 4
		if err != nil {
			return containerSize{}, err
		}
	}
	return containerSize{Total: total, Count: count}, nil
}

// sizeOfList sums each item's size and wraps the container framing around it.
func sizeOfList(items []Value) (containerSize, error) {
	var itemsSize Size
	var err error
	for _, item := range items {
		n, err2 := sizeOf(item)
		if err2 != nil {
			return containerSize{}, err2
		}
		itemsSize, err = checkedAdd(itemsSize, n)
		if err != nil {
			return containerSize{}, err
		}
	}
	return sizeOfContainerTotal(Size(len(items)), itemsSize)
}

// sizeOfMap sums each entry's 4-byte key plus value size.
func sizeOfMap(m map[int32]Value) (containerSize, error) {
	var itemsSize Size
	var err error
	for _, item := range m {
		n, err2 := sizeOf(item)
		if err2 != nil {
			return containerSize{}, err2
		}
		entry, err2 := checkedAdd(4, n)
		if err2 != nil {
			return containerSize{}, err2
		}
		itemsSize, err = checkedAdd(itemsSize, entry)
		if err != nil {
			return containerSize{}, err
		}
	}
	return sizeOfContainerTotal(Size(len(m)), itemsSize)
}

// sizeOfObject sums each entry's 1-byte key-length, key bytes, and value
// size. Object keys are length-checked against ObjectKeyMaxLen here so a
// too-long key is reported before any bytes are written.
func sizeOfObject(m map[string]Value) (containerSize, error) {
	var itemsSize Size
	var err error
	for k, item := range m {
		if len(k) > ObjectKeyMaxLen {
			return containerSize{}, errAt(KindKeyTooLong, sizeComponent, "object key %q is %d bytes, exceeds %d", k, len(k), ObjectKeyMaxLen)
		}
		n, err2 := sizeOf(item)
		if err2 != nil {
			return containerSize{}, err2
		}
		entry, err2 := checkedAddAll(1, Size(len(k)), n)
		if err2 != nil {
			return containerSize{}, err2
		}
		itemsSize, err = checkedAdd(itemsSize, entry)
		if err != nil {
			return containerSize{}, err
		}
	}
	return sizeOfContainerTotal(Size(len(m)), itemsSize)
}
