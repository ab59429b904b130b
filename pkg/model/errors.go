// Package model defines the Theia event record and its framed wire codec.
package model

import "errors"

// ErrEOF is returned by EventParser.ParseEvent when the stream yields zero
// bytes at the start of the next preamble line, signalling a clean end of
// stream rather than corruption.
var ErrEOF = errors.New("model: end of event stream")

// ErrMalformedFrame is the sentinel wrapped by every parse failure: a bad
// preamble line, a byte count that doesn't match what was actually read, or
// an unknown header property name.
var ErrMalformedFrame = errors.New("model: malformed frame")

// ErrInvalidCriteria is returned when a Criteria map contains an unknown key
// or a value of the wrong type.
var ErrInvalidCriteria = errors.New("model: invalid criteria")
