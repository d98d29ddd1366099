package receiver

import "github.com/searchktools/fast-core/core/buffers"

// initForTest wires up the buffer pool and posts the first receive
// exactly as Start does, without touching a real socket, so the
// queue/pool/counter machinery can be driven deterministically from
// handleReceive in tests.
func (r *Receiver) initForTest(consumer PacketConsumer, bufferSize, bufferCount int) {
	r.mu.Lock()
	r.consumer = consumer
	r.bufferSize = bufferSize
	for i := 0; i < bufferCount; i++ {
		buf := buffers.NewLinkedBuffer(bufferSize)
		r.ownedBuffers = append(r.ownedBuffers, buf)
		r.idle.Push(buf)
	}
	r.startReceiveLocked()
	r.mu.Unlock()

	r.ensureServiceLoopStarted()
}

// nextBufferForTest returns the buffer startReceiveLocked armed for the
// next receive, the same way receiveLoop would pull it out before
// issuing the real OS read. If none is armed it first tries to arm one;
// it returns nil if that fails (a read is still in progress, the idle
// pool is exhausted, or the receiver is stopping). As with receiveLoop,
// the read counts as in progress until the returned buffer is passed to
// handleReceive.
func (r *Receiver) nextBufferForTest() *buffers.LinkedBuffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingReadBuffer == nil {
		r.startReceiveLocked()
	}
	buf := r.pendingReadBuffer
	r.pendingReadBuffer = nil
	return buf
}

// popIdleForTest pulls a raw buffer straight from the idle pool, for
// tests that want to pre-load several datagrams into the queue before
// the servicer is ever started.
func (r *Receiver) popIdleForTest() *buffers.LinkedBuffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idle.Pop()
}

// queueForTest performs the packetsQueued/bytesReceived accounting and
// the enqueue of handleReceive's success branch, without arming the next
// receive; packetsReceived, largestPacket and duplicate detection are
// not updated. It
// lets a test push several datagrams into the queue before a servicer
// ever starts draining them, reproducing the race a single-servicer gate
// exists to resolve.
func (r *Receiver) queueForTest(buf *buffers.LinkedBuffer, payload []byte) bool {
	n := copy(buf.Bytes(), payload)
	buf.SetUsed(n)
	r.mu.Lock()
	r.packetsQueued++
	r.bytesReceived += uint64(n)
	needsService := r.queue.Push(buf)
	r.mu.Unlock()
	return needsService
}

// driveServiceForTest claims the servicer role if needed and runs batches
// until the role is relinquished, the synchronous equivalent of what
// serviceLoop's `for r.runServiceBatch() {}` loop does.
func (r *Receiver) driveServiceForTest() {
	r.mu.Lock()
	service := r.queue.StartService()
	r.mu.Unlock()
	for service {
		service = r.runServiceBatch()
	}
}
