package receiver

import (
	"encoding/json"
	"fmt"
)

// Snapshot is a read-only, point-in-time copy of every receiver counter,
// taken under a single lock acquisition so the values are mutually
// consistent. It exists so callers (metrics export, tests) don't need an
// accessor call per counter, each one separately lockable and therefore
// not actually consistent with the others.
type Snapshot struct {
	SessionID         string
	NoBufferAvailable uint64
	PacketsReceived   uint64
	ErrorPackets      uint64
	EmptyPackets      uint64
	PacketsQueued     uint64
	BatchesProcessed  uint64
	PacketsProcessed  uint64
	BytesReceived     uint64
	BytesProcessed    uint64
	LargestPacket     uint64
	DuplicatePackets  uint64
	BytesReadable     uint64
}

// Snapshot returns a consistent copy of the receiver's counters.
func (r *Receiver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		SessionID:         r.sessionID,
		NoBufferAvailable: r.noBufferAvailable,
		PacketsReceived:   r.packetsReceived,
		ErrorPackets:      r.errorPackets,
		EmptyPackets:      r.emptyPackets,
		PacketsQueued:     r.packetsQueued,
		BatchesProcessed:  r.batchesProcessed,
		PacketsProcessed:  r.packetsProcessed,
		BytesReceived:     r.bytesReceived,
		BytesProcessed:    r.bytesProcessed,
		LargestPacket:     r.largestPacket,
		DuplicatePackets:  r.duplicatePackets,
		BytesReadable:     r.bytesReadableLocked(),
	}
}

func (r *Receiver) bytesReadableLocked() uint64 {
	kernelQueued := uint64(0)
	if r.conn != nil {
		kernelQueued = uint64(queuedBytes(r.conn))
	}
	return kernelQueued + r.bytesReceived - r.bytesProcessed
}

// JSON renders the snapshot as indented JSON, for an operational status
// endpoint or log line.
func (s Snapshot) JSON() (string, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Text renders the snapshot as a short human-readable report.
func (s Snapshot) Text() string {
	return fmt.Sprintf(
		"session=%s received=%d queued=%d processed=%d batches=%d errors=%d empty=%d duplicates=%d noBuffer=%d bytesReceived=%d bytesProcessed=%d largest=%d readable=%d",
		s.SessionID, s.PacketsReceived, s.PacketsQueued, s.PacketsProcessed, s.BatchesProcessed,
		s.ErrorPackets, s.EmptyPackets, s.DuplicatePackets, s.NoBufferAvailable,
		s.BytesReceived, s.BytesProcessed, s.LargestPacket, s.BytesReadable)
}

// The individual accessors below mirror the original per-counter
// interface; Snapshot is the preferred way to read more than one of them
// together.

func (r *Receiver) NoBufferAvailable() uint64 { r.mu.Lock(); defer r.mu.Unlock(); return r.noBufferAvailable }
func (r *Receiver) PacketsReceived() uint64    { r.mu.Lock(); defer r.mu.Unlock(); return r.packetsReceived }
func (r *Receiver) PacketsQueued() uint64      { r.mu.Lock(); defer r.mu.Unlock(); return r.packetsQueued }
func (r *Receiver) BatchesProcessed() uint64   { r.mu.Lock(); defer r.mu.Unlock(); return r.batchesProcessed }
func (r *Receiver) PacketsProcessed() uint64   { r.mu.Lock(); defer r.mu.Unlock(); return r.packetsProcessed }
func (r *Receiver) PacketsWithErrors() uint64  { r.mu.Lock(); defer r.mu.Unlock(); return r.errorPackets }
func (r *Receiver) EmptyPackets() uint64       { r.mu.Lock(); defer r.mu.Unlock(); return r.emptyPackets }
func (r *Receiver) BytesReceived() uint64      { r.mu.Lock(); defer r.mu.Unlock(); return r.bytesReceived }
func (r *Receiver) BytesProcessed() uint64     { r.mu.Lock(); defer r.mu.Unlock(); return r.bytesProcessed }
func (r *Receiver) LargestPacket() uint64      { r.mu.Lock(); defer r.mu.Unlock(); return r.largestPacket }
func (r *Receiver) DuplicatePackets() uint64   { r.mu.Lock(); defer r.mu.Unlock(); return r.duplicatePackets }

// BytesReadable reports the number of bytes not yet handed to the
// consumer: bytes still sitting in the OS receive queue plus bytes
// received into our own buffers but not yet processed.
func (r *Receiver) BytesReadable() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytesReadableLocked()
}
