// Package oscwire implements the Open Sound Control 1.0 wire format: typed
// arguments, messages, and bundles, encoded 4-byte aligned and big-endian
// per OSC 1.0. It is a from-scratch codec — the wire format and the
// per-packet crypto framing layered on top of it (see osccrypto) are
// domain-specific enough that no ecosystem library covers them.
package oscwire

import "fmt"

// Argument is an OSC argument. Concrete types implement this as a tagged
// variant — dispatch is a type switch, not a method call.
type Argument interface {
	// Tag returns the OSC type-tag character for this argument.
	Tag() byte
}

// Int32 is the OSC 'i' type: a 32-bit signed integer.
type Int32 int32

// Tag implements Argument.
func (Int32) Tag() byte { return 'i' }

// Float32 is the OSC 'f' type: a 32-bit IEEE-754 float.
type Float32 float32

// Tag implements Argument.
func (Float32) Tag() byte { return 'f' }

// String is the OSC 's' type: a NUL-terminated, zero-padded UTF-8 string.
type String string

// Tag implements Argument.
func (String) Tag() byte { return 's' }

// Bool is the OSC 'T'/'F' type: a boolean with no payload bytes.
type Bool bool

// Tag implements Argument. Returns 'T' or 'F' depending on the value.
func (b Bool) Tag() byte {
	if b {
		return 'T'
	}
	return 'F'
}

// Blob is the OSC 'b' type: a length-prefixed, zero-padded byte string.
type Blob []byte

// Tag implements Argument.
func (Blob) Tag() byte { return 'b' }

// Timetag is the OSC 't' type, and also the bundle header's own timetag:
// a 64-bit NTP time value split into seconds-since-1900 and a fractional
// part expressed as 1/2^32ths of a second.
type Timetag struct {
	Seconds  uint32
	Fraction uint32
}

// Tag implements Argument.
func (Timetag) Tag() byte { return 't' }

// Immediate is the special timetag (seconds=0, fraction=1) that signals
// "deliver immediately" to firmware, per OSC convention.
var Immediate = Timetag{Seconds: 0, Fraction: 1}

func (t Timetag) String() string {
	return fmt.Sprintf("%d.%d", t.Seconds, t.Fraction)
}
