package oscwire

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
)

const bundleTag = "#bundle\x00"

func padLen(n int) int {
	if rem := n % 4; rem != 0 {
		return n + (4 - rem)
	}
	return n
}

func padString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
}

// Encode serialises a Packet (Message or Bundle) per OSC 1.0.
func Encode(p Packet) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeInto(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeInto(buf *bytes.Buffer, p Packet) error {
	switch v := p.(type) {
	case Message:
		return encodeMessage(buf, v)
	case Bundle:
		return encodeBundle(buf, v)
	default:
		return fleeterrors.Newf(fleeterrors.MalformedPacket, "oscwire.Encode", "unknown packet type %T", p)
	}
}

func encodeMessage(buf *bytes.Buffer, m Message) error {
	if !strings.HasPrefix(m.Address, "/") {
		return fleeterrors.Newf(fleeterrors.MalformedPacket, "oscwire.Encode", "address %q does not start with /", m.Address)
	}
	padString(buf, m.Address)

	tags := make([]byte, 0, len(m.Args)+1)
	tags = append(tags, ',')
	for _, a := range m.Args {
		tags = append(tags, a.Tag())
	}
	padString(buf, string(tags))

	for _, a := range m.Args {
		if err := encodeArg(buf, a); err != nil {
			return err
		}
	}
	return nil
}

func encodeArg(buf *bytes.Buffer, a Argument) error {
	switch v := a.(type) {
	case Int32:
		return binary.Write(buf, binary.BigEndian, int32(v))
	case Float32:
		return binary.Write(buf, binary.BigEndian, float32(v))
	case String:
		padString(buf, string(v))
		return nil
	case Bool:
		return nil
	case Blob:
		if err := binary.Write(buf, binary.BigEndian, int32(len(v))); err != nil {
			return err
		}
		buf.Write(v)
		for buf.Len()%4 != 0 {
			buf.WriteByte(0)
		}
		return nil
	case Timetag:
		if err := binary.Write(buf, binary.BigEndian, v.Seconds); err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, v.Fraction)
	default:
		return fleeterrors.Newf(fleeterrors.MalformedPacket, "oscwire.Encode", "unknown argument type %T", a)
	}
}

func encodeBundle(buf *bytes.Buffer, b Bundle) error {
	buf.WriteString(bundleTag)
	if err := binary.Write(buf, binary.BigEndian, b.Timetag.Seconds); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.BigEndian, b.Timetag.Fraction); err != nil {
		return err
	}
	for _, elem := range b.Elements {
		var elemBuf bytes.Buffer
		if err := encodeInto(&elemBuf, elem); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.BigEndian, int32(elemBuf.Len())); err != nil {
			return err
		}
		buf.Write(elemBuf.Bytes())
	}
	return nil
}

// reader walks a byte slice with bounds-checked, alignment-aware reads.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) readString() (string, error) {
	start := r.pos
	for r.pos < len(r.buf) && r.buf[r.pos] != 0 {
		r.pos++
	}
	if r.pos >= len(r.buf) {
		return "", fleeterrors.New(fleeterrors.MalformedPacket, "oscwire.Decode", "unterminated string")
	}
	s := string(r.buf[start:r.pos])
	r.pos++ // NUL
	aligned := padLen(r.pos - start)
	end := start + aligned
	if end > len(r.buf) {
		return "", fleeterrors.New(fleeterrors.MalformedPacket, "oscwire.Decode", "string padding runs past buffer end")
	}
	r.pos = end
	return s, nil
}

func (r *reader) readN(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fleeterrors.New(fleeterrors.MalformedPacket, "oscwire.Decode", "read past buffer end")
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readInt32() (int32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *reader) readUint32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) readFloat32() (float32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return float32FromBits(binary.BigEndian.Uint32(b)), nil
}

// Decode parses a single top-level Packet (Message or Bundle) from buf.
func Decode(buf []byte) (Packet, error) {
	r := &reader{buf: buf}
	return decodePacket(r)
}

func decodePacket(r *reader) (Packet, error) {
	if r.remaining() < 4 {
		return nil, fleeterrors.New(fleeterrors.MalformedPacket, "oscwire.Decode", "packet too short")
	}
	if r.buf[r.pos] == '#' && bytes.HasPrefix(r.buf[r.pos:], []byte(bundleTag)) {
		return decodeBundle(r)
	}
	return decodeMessage(r)
}

func decodeMessage(r *reader) (Message, error) {
	address, err := r.readString()
	if err != nil {
		return Message{}, err
	}
	if !strings.HasPrefix(address, "/") {
		return Message{}, fleeterrors.Newf(fleeterrors.MalformedPacket, "oscwire.Decode", "address %q does not start with /", address)
	}
	tagStr, err := r.readString()
	if err != nil {
		return Message{}, err
	}
	if len(tagStr) == 0 || tagStr[0] != ',' {
		return Message{}, fleeterrors.New(fleeterrors.MalformedPacket, "oscwire.Decode", "missing type tag string")
	}
	tags := tagStr[1:]
	args := make([]Argument, 0, len(tags))
	for _, tag := range []byte(tags) {
		arg, err := decodeArg(r, tag)
		if err != nil {
			return Message{}, err
		}
		args = append(args, arg)
	}
	return Message{Address: address, Args: args}, nil
}

func decodeArg(r *reader, tag byte) (Argument, error) {
	switch tag {
	case 'i':
		v, err := r.readInt32()
		return Int32(v), err
	case 'f':
		v, err := r.readFloat32()
		return Float32(v), err
	case 's':
		v, err := r.readString()
		return String(v), err
	case 'T':
		return Bool(true), nil
	case 'F':
		return Bool(false), nil
	case 'b':
		n, err := r.readInt32()
		if err != nil {
			return nil, err
		}
		data, err := r.readN(int(n))
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		if _, err := r.readN(padLen(int(n)) - int(n)); err != nil {
			return nil, err
		}
		return Blob(out), nil
	case 't':
		sec, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		frac, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return Timetag{Seconds: sec, Fraction: frac}, nil
	default:
		return nil, fleeterrors.Newf(fleeterrors.MalformedPacket, "oscwire.Decode", "unknown type tag %q", tag)
	}
}

func decodeBundle(r *reader) (Bundle, error) {
	if _, err := r.readN(len(bundleTag)); err != nil {
		return Bundle{}, err
	}
	sec, err := r.readUint32()
	if err != nil {
		return Bundle{}, err
	}
	frac, err := r.readUint32()
	if err != nil {
		return Bundle{}, err
	}
	b := Bundle{Timetag: Timetag{Seconds: sec, Fraction: frac}}
	for r.remaining() > 0 {
		size, err := r.readInt32()
		if err != nil {
			return Bundle{}, err
		}
		elemBytes, err := r.readN(int(size))
		if err != nil {
			return Bundle{}, err
		}
		elemReader := &reader{buf: elemBytes}
		elem, err := decodePacket(elemReader)
		if err != nil {
			return Bundle{}, err
		}
		b.Elements = append(b.Elements, elem)
	}
	return b, nil
}

func float32FromBits(bits uint32) float32 {
	return math.Float32frombits(bits)
}
