package presence

import "github.com/searchktools/fast-core/core/bytesio"

// EncodeBytesNeeded reports how many bytes Encode would emit without
// emitting them: every byte up to and including the last one left after
// the canonical trim of trailing all-zero bytes. A map with nothing
// written (cursor still at the origin) returns 0; a map whose written bits
// are all false returns 1 (a lone stop-bit byte).
func (m *Map) EncodeBytesNeeded() int {
	if m.bytePosition == 0 && m.bitMask == startByteMask {
		return 0
	}
	bpos := m.trimPosition()
	return bpos + 1
}

// trimPosition returns the index of the last byte Encode would emit,
// before the stop bit is applied: the cursor's current byte if it has any
// bit written into it yet, otherwise the byte before it; then walked
// backwards over any trailing all-zero bytes.
func (m *Map) trimPosition() int {
	bpos := m.bytePosition
	if m.bitMask == startByteMask {
		// cursor sits at the start of a fresh byte with nothing written
		// into it yet; the last meaningful byte is the one before it.
		bpos--
	}
	for bpos > 0 && m.bits[bpos] == 0 {
		bpos--
	}
	return bpos
}

// Encode writes the canonical encoding of the map to sink: the shortest
// prefix of the buffer that carries every set bit, with the stop bit set
// on its final byte. Calling Encode does not disturb the sequential
// cursor, so a map can be read field-by-field after being encoded.
func (m *Map) Encode(sink bytesio.ByteSink) {
	if m.bytePosition == 0 && m.bitMask == startByteMask {
		m.traceEncode(nil)
		return
	}
	bpos := m.trimPosition()
	m.bits[bpos] |= stopBit
	for i := 0; i <= bpos; i++ {
		sink.PutByte(m.bits[i])
	}
	m.traceEncode(m.bits[:bpos+1])
}

// Decode reads a presence map from source: bytes accumulate into the
// buffer until one arrives with its stop bit set (that terminator byte is
// stored with the stop bit intact). Decode rewinds the cursor to the
// start so the caller can immediately begin a CheckNextField pass over
// the freshly decoded bits. Returns false if source is exhausted before a
// stop bit is seen, in which case the map's contents are undefined.
func (m *Map) Decode(source bytesio.ByteSource) bool {
	m.Reset(0)
	pos := 0
	for {
		b, ok := source.GetByte()
		if !ok {
			return false
		}
		m.appendByte(&pos, b)
		if b&stopBit != 0 {
			break
		}
	}
	m.traceDecode(m.bits[:pos])
	return true
}

func (m *Map) appendByte(pos *int, b byte) {
	if *pos >= len(m.bits) {
		m.grow()
	}
	m.bits[*pos] = b
	*pos++
}

// Equal reports whether m and other carry the same presence bits: every
// full byte up to the cursor must match in its seven data bits (a stop
// bit left by Encode is ignored), and the partial byte at the cursor is
// compared only over the bits actually written so far. Bytes beyond
// either map's allocation are treated as zero.
func (m *Map) Equal(other *Map) bool {
	aPos, aMask := normalizeCursor(m.bytePosition, m.bitMask)
	bPos, bMask := normalizeCursor(other.bytePosition, other.bitMask)
	if aPos != bPos || aMask != bMask {
		return false
	}
	for i := 0; i < aPos; i++ {
		if byteAt(m.bits, i)&dataBits != byteAt(other.bits, i)&dataBits {
			return false
		}
	}
	// mask covers the data bits already written into the partial byte at
	// the cursor; a bitMask of startByteMask here means aPos bytes are
	// fully written and nothing has been written into byte aPos yet, so
	// the mask below correctly evaluates to 0.
	partialMask := byte((-aMask) << 1) & dataBits
	if partialMask == 0 {
		return true
	}
	return (byteAt(m.bits, aPos)^byteAt(other.bits, bPos))&partialMask == 0
}

// normalizeCursor folds the degenerate bitMask==0 cursor state (which the
// invariant of advance() never actually produces, since bitMask wraps to
// startByteMask in the same call that increments bytePosition) into its
// canonical form, so Equal never has to special-case it.
func normalizeCursor(bytePosition int, bitMask byte) (int, byte) {
	if bitMask == 0 {
		return bytePosition + 1, startByteMask
	}
	return bytePosition, bitMask
}

func byteAt(buf []byte, i int) byte {
	if i < 0 || i >= len(buf) {
		return 0
	}
	return buf[i]
}
