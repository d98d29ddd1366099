package bytesio

import "io"

// BufferSink is a growable in-memory ByteSink, the destination most
// encode-and-inspect call sites want: tests, and anything assembling a
// complete message before handing it to a transport.
type BufferSink struct {
	buf []byte
}

// NewBufferSink returns an empty BufferSink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

func (s *BufferSink) PutByte(b byte) {
	s.buf = append(s.buf, b)
}

// Bytes returns the accumulated bytes. The returned slice aliases the
// sink's internal buffer and must not be retained across further writes.
func (s *BufferSink) Bytes() []byte {
	return s.buf
}

// Reset discards the accumulated bytes without releasing the backing array.
func (s *BufferSink) Reset() {
	s.buf = s.buf[:0]
}

// WriterSink adapts an io.Writer into a ByteSink, for callers that want to
// stream an encoded presence map straight onto a socket or file rather
// than buffer it. Writes are unbuffered by design; wrap w in a bufio.Writer
// upstream if that matters.
type WriterSink struct {
	w   io.Writer
	err error
}

// NewWriterSink wraps w as a ByteSink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) PutByte(b byte) {
	if s.err != nil {
		return
	}
	_, s.err = s.w.Write([]byte{b})
}

// Err returns the first write error encountered, if any.
func (s *WriterSink) Err() error {
	return s.err
}
