// Package proto is the replication wire format. Every packet is a one-byte
// tag followed by a little-endian payload. Entity ids are category-local
// bytes; positions are packed as a unit direction plus magnitude in four
// half-precision floats.
package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/x448/float16"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

var (
	// ErrUnknownPacket reports a tag outside the catalogue.
	ErrUnknownPacket = errors.New("proto: unknown packet")
	// ErrShortPacket reports a payload that ended early.
	ErrShortPacket = errors.New("proto: short packet")
	// ErrTrailingBytes reports a payload longer than its packet.
	ErrTrailingBytes = errors.New("proto: trailing bytes")
	// ErrEmptyPacket reports a zero-length frame.
	ErrEmptyPacket = errors.New("proto: empty packet")
)

// Malformed reports whether err came from decoding a bad frame rather than
// from the transport.
func Malformed(err error) bool {
	return errors.Is(err, ErrUnknownPacket) || errors.Is(err, ErrShortPacket) ||
		errors.Is(err, ErrTrailingBytes) || errors.Is(err, ErrEmptyPacket)
}

// Packet is any message in the catalogue.
type Packet interface {
	Tag() Tag
	encode(w *writer)
	decode(r *reader)
}

// Encode serializes p with its tag.
func Encode(p Packet) []byte {
	w := &writer{buf: make([]byte, 0, 32)}
	w.u8(uint8(p.Tag()))
	p.encode(w)
	return w.buf
}

// Decode parses one packet.
func Decode(data []byte) (Packet, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPacket
	}
	tag := Tag(data[0])
	p := newPacket(tag)
	if p == nil {
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownPacket, data[0])
	}
	r := &reader{buf: data[1:]}
	p.decode(r)
	if r.err != nil {
		return nil, fmt.Errorf("%s: %w", tag, r.err)
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("%s: %w (%d)", tag, ErrTrailingBytes, len(r.buf))
	}
	return p, nil
}

// noRef is the encoded category of an absent reference.
const noRef = 0xFF

type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *writer) i32(v int32)  { w.u32(uint32(v)) }
func (w *writer) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) half(v float32) { w.u16(float16.Fromfloat32(v).Bits()) }

func (w *writer) str(s string) {
	if len(s) > math.MaxUint8 {
		s = s[:math.MaxUint8]
	}
	w.u8(uint8(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) id(u uuid.UUID) { w.buf = append(w.buf, u[:]...) }

// position writes the unit direction and magnitude of p as four halves.
func (w *writer) position(p mgl32.Vec3) {
	mag := p.Len()
	var dir mgl32.Vec3
	if mag > 0 {
		dir = p.Mul(1 / mag)
	}
	w.half(dir[0])
	w.half(dir[1])
	w.half(dir[2])
	w.half(mag)
}

func (w *writer) ref(id registry.ID) {
	if !id.Valid() {
		w.u8(noRef)
		w.u8(0)
		return
	}
	w.u8(uint8(id.Category()))
	w.u8(id.Local())
}

func (w *writer) counts(c [cells.NumSubTypes]uint16) {
	for _, n := range c {
		w.u16(n)
	}
}

type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = ErrShortPacket
		r.buf = nil
		return nil
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) i32() int32           { return int32(r.u32()) }
func (r *reader) f32() float32         { return math.Float32frombits(r.u32()) }
func (r *reader) boolean() bool        { return r.u8() != 0 }
func (r *reader) half() float32        { return float16.Frombits(r.u16()).Float32() }
func (r *reader) cellType() cells.Type { return cells.Type(r.u8()) }

func (r *reader) str() string {
	n := int(r.u8())
	return string(r.take(n))
}

func (r *reader) id() uuid.UUID {
	var u uuid.UUID
	copy(u[:], r.take(len(u)))
	return u
}

func (r *reader) position() mgl32.Vec3 {
	dir := mgl32.Vec3{r.half(), r.half(), r.half()}
	return dir.Mul(r.half())
}

func (r *reader) ref() registry.ID {
	cat, local := r.u8(), r.u8()
	if cat == noRef {
		return registry.None
	}
	return registry.GlobalID(registry.Category(cat), local)
}

func (r *reader) counts() [cells.NumSubTypes]uint16 {
	var c [cells.NumSubTypes]uint16
	for i := range c {
		c[i] = r.u16()
	}
	return c
}

// count reads a uint16 list length and rejects lengths the remaining bytes
// cannot hold.
func (r *reader) count(minSize int) int {
	n := int(r.u16())
	if r.err == nil && n*minSize > len(r.buf) {
		r.err = ErrShortPacket
		return 0
	}
	return n
}
