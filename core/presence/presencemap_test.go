package presence

import (
	"testing"

	"github.com/searchktools/fast-core/core/bytesio"
)

func TestEmptyMapEncodesZeroBytes(t *testing.T) {
	m := New(8)
	if n := m.EncodeBytesNeeded(); n != 0 {
		t.Fatalf("EncodeBytesNeeded() = %d, want 0", n)
	}
	sink := bytesio.NewBufferSink()
	m.Encode(sink)
	if len(sink.Bytes()) != 0 {
		t.Fatalf("Encode wrote %d bytes, want 0", len(sink.Bytes()))
	}
}

func TestSetNextFieldRoundTripsThroughEncodeDecode(t *testing.T) {
	m := New(16)
	bits := []bool{true, false, true, true, false, false, false, true, true}
	for _, b := range bits {
		m.SetNextField(b)
	}

	sink := bytesio.NewBufferSink()
	m.Encode(sink)

	decoded := New(16)
	src := sequenceSource(sink.Bytes())
	if !decoded.Decode(&src) {
		t.Fatal("Decode failed")
	}
	for i, want := range bits {
		got := decoded.CheckNextField()
		if got != want {
			t.Fatalf("bit %d = %v, want %v", i, got, want)
		}
	}
}

func TestEncodeTrimsTrailingZeroBytes(t *testing.T) {
	m := New(32)
	// set a bit in byte 0 only, then advance the cursor into byte 3
	// worth of all-zero bits.
	m.SetNextField(true)
	for i := 0; i < 20; i++ {
		m.SetNextField(false)
	}
	if got, want := m.EncodeBytesNeeded(), 1; got != want {
		t.Fatalf("EncodeBytesNeeded() = %d, want %d", got, want)
	}
	sink := bytesio.NewBufferSink()
	m.Encode(sink)
	if len(sink.Bytes()) != 1 {
		t.Fatalf("Encode wrote %d bytes, want 1", len(sink.Bytes()))
	}
	if sink.Bytes()[0]&stopBit == 0 {
		t.Fatal("final encoded byte missing stop bit")
	}
	if sink.Bytes()[0]&startByteMask == 0 {
		t.Fatal("first bit should be set")
	}
}

func TestEncodeIsIdempotent(t *testing.T) {
	m := New(16)
	m.SetNextField(true)
	m.SetNextField(false)
	m.SetNextField(true)

	first := bytesio.NewBufferSink()
	m.Encode(first)
	second := bytesio.NewBufferSink()
	m.Encode(second)

	if string(first.Bytes()) != string(second.Bytes()) {
		t.Fatalf("encode not idempotent: %v vs %v", first.Bytes(), second.Bytes())
	}
}

func TestDecodeSetsStickyFalseOnUnderflow(t *testing.T) {
	m := New(16)
	src := sequenceSource([]byte{0x7f}) // no stop bit ever arrives
	if m.Decode(&src) {
		t.Fatal("Decode should fail when source is exhausted before a stop bit")
	}
}

func TestDecodeStopsAtFirstStopBit(t *testing.T) {
	m := New(16)
	src := sequenceSource([]byte{0x3f, 0x80 | 0x40, 0xff}) // trailing byte must be ignored
	if !m.Decode(&src) {
		t.Fatal("Decode should succeed")
	}
	if m.CheckNextField() {
		t.Fatal("first bit of 0x3f (0 0111111) should be false")
	}
}

func TestCheckSpecificFieldDoesNotDisturbCursor(t *testing.T) {
	m := New(16)
	m.SetNextField(true)
	m.SetNextField(false)
	m.SetNextField(true)
	m.Rewind()

	if !m.CheckSpecificField(2) {
		t.Fatal("bit 2 should be present")
	}
	if !m.CheckNextField() {
		t.Fatal("sequential read of bit 0 should still see true")
	}
}

func TestGrowPastInlineCapacity(t *testing.T) {
	m := New(1)
	for i := 0; i < 200; i++ {
		m.SetNextField(i%3 == 0)
	}
	m.Rewind()
	for i := 0; i < 200; i++ {
		want := i%3 == 0
		if got := m.CheckNextField(); got != want {
			t.Fatalf("bit %d = %v, want %v", i, got, want)
		}
	}
}

func TestEqualIgnoresUnwrittenPartialBits(t *testing.T) {
	a := New(16)
	a.SetNextField(true)
	a.SetNextField(false)
	a.SetNextField(true)

	b := New(16)
	b.SetNextField(true)
	b.SetNextField(false)
	b.SetNextField(true)
	// write garbage into the unwritten bits of b's partial byte and into
	// the not-yet-reached tail of b's buffer directly; Equal must ignore
	// both since the cursor hasn't passed them.
	b.bits[0] |= 0x0f
	b.bits[len(b.bits)-1] = 0xff

	if !a.Equal(b) {
		t.Fatal("maps with identical written bits should be equal")
	}
}

func TestEqualDetectsDifference(t *testing.T) {
	a := New(16)
	a.SetNextField(true)
	b := New(16)
	b.SetNextField(false)
	if a.Equal(b) {
		t.Fatal("maps with different bits should not be equal")
	}
}

func TestSetRawThenCheckNextField(t *testing.T) {
	m := New(8)
	m.SetRaw([]byte{0x40 | 0x10 | stopBit}) // bits 0 and 2 set
	if !m.CheckNextField() {
		t.Fatal("bit 0 should be present")
	}
	if m.CheckNextField() {
		t.Fatal("bit 1 should be absent")
	}
	if !m.CheckNextField() {
		t.Fatal("bit 2 should be present")
	}
}

func TestResetGrowsButNeverShrinks(t *testing.T) {
	m := New(1)
	small := len(m.bits)
	m.Reset(200)
	if len(m.bits) <= small {
		t.Fatalf("Reset(200) did not grow buffer: %d bytes", len(m.bits))
	}
	grown := len(m.bits)
	m.Reset(1)
	if len(m.bits) != grown {
		t.Fatalf("Reset(1) shrank buffer from %d to %d", grown, len(m.bits))
	}
}

// sequenceSource is a trivial bytesio.ByteSource backed by a slice, used
// throughout these tests in place of a real stream.
type sequenceSource []byte

func (s *sequenceSource) GetByte() (byte, bool) {
	if len(*s) == 0 {
		return 0, false
	}
	b := (*s)[0]
	*s = (*s)[1:]
	return b, true
}
