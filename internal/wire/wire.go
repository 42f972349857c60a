// Package wire implements the fixed-size binary packet codec: pure
// serialize/deserialize functions with no state, no network I/O, and no
// knowledge of game semantics (§4.1). The transport and server-core
// packages are the only callers.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// PacketSize is the fixed frame size, in bytes, of every wire packet.
// Reliable frames are additionally length-prefixed by the transport; this
// constant is the length the transport expects after that prefix.
const PacketSize = 256

// headerSize is type(1) + seq(4) + sender(16) + timestamp(4).
const headerSize = 1 + 4 + 16 + 4

// payloadSize is the remaining space after the fixed header, available to
// a type-specific payload encoder.
const payloadSize = PacketSize - headerSize

// Epoch is the fixed reference point for the 32-bit wire timestamp.
var Epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// ErrUnknownType is returned by Deserialize when the type tag byte does
// not match any registered Type.
var ErrUnknownType = errors.New("wire: unknown packet type")

// ErrInvalidPayload is returned when a type-specific payload fails its
// local constraints (e.g. a NaN/infinite float field).
var ErrInvalidPayload = errors.New("wire: invalid payload")

// ErrShortFrame is returned when fewer than PacketSize bytes are
// available to decode.
var ErrShortFrame = errors.New("wire: frame shorter than PacketSize")

// Affinity selects which transport a packet type travels over.
type Affinity uint8

const (
	Reliable Affinity = iota
	Unreliable
)

// Type is the wire type tag (§6). Each constant's affinity is fixed and
// looked up via TypeAffinity — never inferred from context.
type Type uint8

const (
	TypeAuthRequest Type = iota
	TypeAuthResponse
	TypePlayerJoin
	TypePlayerLeave
	TypePlayerUpdate
	TypeHeartbeat
	TypeProjectileUpdate
	TypeItemUpdate
	TypeTileUpdate
	TypeWorldInfo
	TypeLobbyAction
	TypeGameEvent
	TypeRankedQueue
	TypeMatchHistory
	TypeLeaderboard
	TypeSnapshot
)

var affinityByType = map[Type]Affinity{
	TypeAuthRequest:      Reliable,
	TypeAuthResponse:     Reliable,
	TypePlayerJoin:       Reliable,
	TypePlayerLeave:      Reliable,
	TypePlayerUpdate:     Unreliable,
	TypeHeartbeat:        Unreliable,
	TypeProjectileUpdate: Unreliable,
	TypeItemUpdate:       Reliable,
	TypeTileUpdate:       Reliable,
	TypeWorldInfo:        Reliable,
	TypeLobbyAction:      Reliable,
	TypeGameEvent:        Reliable,
	TypeRankedQueue:      Reliable,
	TypeMatchHistory:     Reliable,
	TypeLeaderboard:      Reliable,
	TypeSnapshot:         Reliable,
}

// TypeAffinity reports whether t travels over the reliable or unreliable
// transport, and whether t is a recognized type at all.
func TypeAffinity(t Type) (Affinity, bool) {
	a, ok := affinityByType[t]
	return a, ok
}

// Packet is a decoded wire frame: header fields plus the raw,
// still-type-specific payload bytes.
type Packet struct {
	Type      Type
	Seq       uint32
	Sender    [16]byte
	Timestamp uint32
	Payload   [payloadSize]byte
}

// NowTimestamp converts the current time to the wire's 32-bit
// seconds-since-Epoch representation.
func NowTimestamp() uint32 {
	return uint32(time.Since(Epoch).Seconds())
}

// Serialize writes p into a fixed PacketSize-byte frame.
func Serialize(p Packet) []byte {
	buf := make([]byte, PacketSize)
	buf[0] = byte(p.Type)
	binary.BigEndian.PutUint32(buf[1:5], p.Seq)
	copy(buf[5:21], p.Sender[:])
	binary.BigEndian.PutUint32(buf[21:25], p.Timestamp)
	copy(buf[25:], p.Payload[:])
	return buf
}

// Deserialize parses exactly PacketSize bytes into a Packet. It validates
// the type tag but not payload-local constraints. The server-core payload
// decoders read fields without checking them: NaN/infinite projectile
// velocities are rejected later by the game's movement validator, and
// ReadBytes16 clamps a string's length to the payload.
func Deserialize(buf []byte) (Packet, error) {
	if len(buf) < PacketSize {
		return Packet{}, ErrShortFrame
	}
	t := Type(buf[0])
	if _, ok := affinityByType[t]; !ok {
		return Packet{}, ErrUnknownType
	}
	var p Packet
	p.Type = t
	p.Seq = binary.BigEndian.Uint32(buf[1:5])
	copy(p.Sender[:], buf[5:21])
	p.Timestamp = binary.BigEndian.Uint32(buf[21:25])
	copy(p.Payload[:], buf[25:PacketSize])
	return p, nil
}

// ValidFloat rejects NaN/infinite payload floats per §4.1/§7.
func ValidFloat(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// PayloadWriter is a small cursor over a packet's payload bytes, used by
// per-type encoders in the server-core glue layer so they don't each
// reimplement bounds-checked writes.
type PayloadWriter struct {
	buf [payloadSize]byte
	off int
}

// NewPayloadWriter returns an empty cursor.
func NewPayloadWriter() *PayloadWriter { return &PayloadWriter{} }

// WriteUint8/16/32/64 append a fixed-width big-endian integer.
func (w *PayloadWriter) WriteUint8(v uint8) { w.buf[w.off] = v; w.off++ }
func (w *PayloadWriter) WriteUint16(v uint16) {
	binary.BigEndian.PutUint16(w.buf[w.off:], v)
	w.off += 2
}
func (w *PayloadWriter) WriteUint32(v uint32) {
	binary.BigEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}
func (w *PayloadWriter) WriteUint64(v uint64) {
	binary.BigEndian.PutUint64(w.buf[w.off:], v)
	w.off += 8
}

// WriteFloat32 appends an IEEE-754 single-precision float.
func (w *PayloadWriter) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

// WriteBytes16 appends a length-prefixed (16-bit) byte string, truncating
// silently at payload capacity rather than overflowing the frame (§7
// "string overflow").
func (w *PayloadWriter) WriteBytes16(b []byte) {
	max := len(w.buf) - w.off - 2
	if max < 0 {
		max = 0
	}
	if len(b) > max {
		b = b[:max]
	}
	w.WriteUint16(uint16(len(b)))
	copy(w.buf[w.off:], b)
	w.off += len(b)
}

// Bytes returns the finished, zero-padded payload.
func (w *PayloadWriter) Bytes() [payloadSize]byte { return w.buf }

// PayloadReader is the read-side counterpart of PayloadWriter.
type PayloadReader struct {
	buf [payloadSize]byte
	off int
}

// NewPayloadReader wraps a packet's raw payload for structured reads.
func NewPayloadReader(buf [payloadSize]byte) *PayloadReader {
	return &PayloadReader{buf: buf}
}

func (r *PayloadReader) ReadUint8() uint8 { v := r.buf[r.off]; r.off++; return v }
func (r *PayloadReader) ReadUint16() uint16 {
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}
func (r *PayloadReader) ReadUint32() uint32 {
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}
func (r *PayloadReader) ReadUint64() uint64 {
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

// ReadFloat32 reads an IEEE-754 single-precision float.
func (r *PayloadReader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

// ReadBytes16 reads a 16-bit length-prefixed byte string.
func (r *PayloadReader) ReadBytes16() []byte {
	n := int(r.ReadUint16())
	if r.off+n > len(r.buf) {
		n = len(r.buf) - r.off
	}
	b := make([]byte, n)
	copy(b, r.buf[r.off:r.off+n])
	r.off += n
	return b
}
