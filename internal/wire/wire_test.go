package wire_test

import (
	"bytes"
	"testing"

	"arena-server/internal/wire"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	w := wire.NewPayloadWriter()
	w.WriteUint32(42)
	w.WriteBytes16([]byte("hello"))

	p := wire.Packet{
		Type:      wire.TypeLobbyAction,
		Seq:       7,
		Timestamp: wire.NowTimestamp(),
		Payload:   w.Bytes(),
	}
	p.Sender[0] = 0xAB

	buf := wire.Serialize(p)
	if len(buf) != wire.PacketSize {
		t.Fatalf("Serialize: got %d bytes, want %d", len(buf), wire.PacketSize)
	}

	got, err := wire.Deserialize(buf)
	if err != nil {
		t.Fatalf("Deserialize: unexpected error: %v", err)
	}
	if got.Type != p.Type || got.Seq != p.Seq || got.Timestamp != p.Timestamp {
		t.Errorf("header mismatch: got %+v, want %+v", got, p)
	}
	if !bytes.Equal(got.Sender[:], p.Sender[:]) {
		t.Errorf("sender mismatch: got %x, want %x", got.Sender, p.Sender)
	}

	r := wire.NewPayloadReader(got.Payload)
	if v := r.ReadUint32(); v != 42 {
		t.Errorf("payload uint32: got %d, want 42", v)
	}
	if s := r.ReadBytes16(); string(s) != "hello" {
		t.Errorf("payload string: got %q, want %q", s, "hello")
	}
}

func TestDeserializeShortFrame(t *testing.T) {
	_, err := wire.Deserialize(make([]byte, wire.PacketSize-1))
	if err != wire.ErrShortFrame {
		t.Errorf("got %v, want ErrShortFrame", err)
	}
}

func TestDeserializeUnknownType(t *testing.T) {
	buf := make([]byte, wire.PacketSize)
	buf[0] = 0xFF
	_, err := wire.Deserialize(buf)
	if err != wire.ErrUnknownType {
		t.Errorf("got %v, want ErrUnknownType", err)
	}
}

func TestTypeAffinityKnownAndUnknown(t *testing.T) {
	if a, ok := wire.TypeAffinity(wire.TypeHeartbeat); !ok || a != wire.Unreliable {
		t.Errorf("TypeHeartbeat: got (%v, %v), want (Unreliable, true)", a, ok)
	}
	if a, ok := wire.TypeAffinity(wire.TypeAuthRequest); !ok || a != wire.Reliable {
		t.Errorf("TypeAuthRequest: got (%v, %v), want (Reliable, true)", a, ok)
	}
	if _, ok := wire.TypeAffinity(wire.Type(200)); ok {
		t.Errorf("unregistered type reported known")
	}
}

func TestWriteBytes16TruncatesAtCapacity(t *testing.T) {
	w := wire.NewPayloadWriter()
	huge := bytes.Repeat([]byte("x"), 10000)
	w.WriteBytes16(huge)

	r := wire.NewPayloadReader(w.Bytes())
	got := r.ReadBytes16()
	if len(got) >= len(huge) {
		t.Errorf("WriteBytes16 did not truncate: got %d bytes", len(got))
	}
}

func TestValidFloat(t *testing.T) {
	cases := []struct {
		v    float64
		want bool
	}{
		{1.5, true},
		{0, true},
		{-1.5, true},
	}
	for _, c := range cases {
		if got := wire.ValidFloat(c.v); got != c.want {
			t.Errorf("ValidFloat(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}
