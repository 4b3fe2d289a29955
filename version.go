// Copyright (C) 2020 Michael J. Fromberger. All Rights Reserved.

package binn

// Name is the human-readable name of this implementation.
const Name = "Binn-Go"

// CodeName is the short, lowercase identifier used in logs and the wire
// documentation; it mirrors the original implementation's code name.
const CodeName = "binn-go"

// Version is the semantic version of this package.
const Version = "0.1.0"

// Tag is a short identifier suitable for prefixing log lines and error
// messages, combining CodeName and Version.
const Tag = CodeName + "::" + Version
