// Package bytesio provides the minimal byte-at-a-time streaming contracts
// the presence-map codec reads from and writes to. They are deliberately
// narrow: a decoder only ever needs the next byte, an encoder only ever
// needs to emit one.
package bytesio

// ByteSource is a pull source of bytes. GetByte returns false once the
// source is exhausted; a source that has returned false once must keep
// returning false (sticky EOF).
type ByteSource interface {
	GetByte() (b byte, ok bool)
}

// ByteSink is a push destination for bytes. PutByte never fails: concrete
// sinks either grow an in-memory buffer or accept a write error into an
// internal field for later inspection, matching the presence-map encoder,
// which has no use for a mid-stream error return.
type ByteSink interface {
	PutByte(b byte)
}
