// Copyright (C) 2020 Michael J. Fromberger. All Rights Reserved.

package binn

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a decoding or encoding failure. The set is closed: every
// failure the codec itself detects carries exactly one Kind (an error
// returned by the destination io.Writer is passed through unchanged, without
// a Kind), and callers should
// branch on Kind (via errors.Is against the sentinel of the same name, or by
// type-asserting *Error and comparing .Kind) rather than on message text,
// which is not stable.
type Kind uint8

const (
	// KindTruncated means the source was exhausted in the middle of a value.
	KindTruncated Kind = iota + 1
	// KindUnknownTag means a tag byte was not in the closed tag set.
	KindUnknownTag
	// KindUnexpectedType means a tag was not permitted by the caller's filter.
	KindUnexpectedType
	// KindBadUTF8 means string bytes were not valid UTF-8.
	KindBadUTF8
	// KindMissingTerminator means a string's trailing NUL byte was absent or wrong.
	KindMissingTerminator
	// KindKeyTooLong means an Object key exceeded ObjectKeyMaxLen bytes.
	KindKeyTooLong
	// KindDuplicateKey means a Map or Object key repeated within one container.
	KindDuplicateKey
	// KindSizeMismatch means a container's declared size did not reconcile
	// with the bytes actually read or written.
	KindSizeMismatch
	// KindOverflow means a size computation or running byte total would
	// exceed MaxDataSize, or a container nested deeper than is supported.
	KindOverflow
	// KindShortWrite means a sink accepted fewer bytes than requested without
	// returning an error.
	KindShortWrite
	// KindShortRead means a source returned fewer bytes than requested
	// without returning io.EOF or io.ErrUnexpectedEOF.
	KindShortRead
	// KindInternal means a precomputed size did not match what was actually
	// encoded; this indicates a bug in this package, not bad input.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindTruncated:
		return "Truncated"
	case KindUnknownTag:
		return "UnknownTag"
	case KindUnexpectedType:
		return "UnexpectedType"
	case KindBadUTF8:
		return "BadUtf8"
	case KindMissingTerminator:
		return "MissingTerminator"
	case KindKeyTooLong:
		return "KeyTooLong"
	case KindDuplicateKey:
		return "DuplicateKey"
	case KindSizeMismatch:
		return "SizeMismatch"
	case KindOverflow:
		return "Overflow"
	case KindShortWrite:
		return "ShortWrite"
	case KindShortRead:
		return "ShortRead"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Sentinel errors, one per Kind, for use with errors.Is. *Error.Unwrap
// returns the sentinel matching its Kind, so errors.Is(err, ErrTruncated)
// works regardless of the message or location attached to err.
var (
	ErrTruncated         = errors.New("binn: truncated")
	ErrUnknownTag        = errors.New("binn: unknown tag")
	ErrUnexpectedType    = errors.New("binn: unexpected type")
	ErrBadUTF8           = errors.New("binn: invalid utf-8")
	ErrMissingTerminator = errors.New("binn: missing string terminator")
	ErrKeyTooLong        = errors.New("binn: object key too long")
	ErrDuplicateKey      = errors.New("binn: duplicate key")
	ErrSizeMismatch      = errors.New("binn: declared size does not reconcile")
	ErrOverflow          = errors.New("binn: size exceeds MaxDataSize")
	ErrShortWrite        = errors.New("binn: short write")
	ErrShortRead         = errors.New("binn: short read")
	ErrInternal          = errors.New("binn: internal error")
)

var kindSentinel = map[Kind]error{
	KindTruncated:         ErrTruncated,
	KindUnknownTag:        ErrUnknownTag,
	KindUnexpectedType:    ErrUnexpectedType,
	KindBadUTF8:           ErrBadUTF8,
	KindMissingTerminator: ErrMissingTerminator,
	KindKeyTooLong:        ErrKeyTooLong,
	KindDuplicateKey:      ErrDuplicateKey,
	KindSizeMismatch:      ErrSizeMismatch,
	KindOverflow:          ErrOverflow,
	KindShortWrite:        ErrShortWrite,
	KindShortRead:         ErrShortRead,
	KindInternal:          ErrInternal,
}

// Error is the error type for every failure this package detects itself;
// errors from the destination io.Writer during encoding are returned as the
// writer produced them. It carries a Kind (stable, for programmatic branching), a
// module-qualified location (Component, Line), and a human-readable message
// (not stable; for logging only).
type Error struct {
	Kind      Kind
	Component string
	Line      int
	Msg       string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("[%s][%s-%d]", Tag, e.Component, e.Line)
	}
	return fmt.Sprintf("[%s][%s-%d] %s", Tag, e.Component, e.Line, e.Msg)
}

// Unwrap returns the sentinel error for e.Kind, so errors.Is(err,
// ErrSizeMismatch) and similar checks work through any wrapping.
func (e *Error) Unwrap() error {
	return kindSentinel[e.Kind]
}

// errAt builds an *Error for component, capturing the caller's line number
// the way the original implementation's __! macro captures line!().
func errAt(kind Kind, component, format string, args ...interface{}) *Error {
	_, _, line, ok := runtime.Caller(1)
	if !ok {
		line = 0
	}
	return &Error{Kind: kind, Component: component, Line: line, Msg: fmt.Sprintf(format, args...)}
}
