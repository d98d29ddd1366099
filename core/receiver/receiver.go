package receiver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/searchktools/fast-core/core/buffers"
	"github.com/searchktools/fast-core/core/logging"
)

// DefaultBufferSize and DefaultBufferCount match the original receiver's
// defaults: large enough for a typical FAST datagram, small enough that
// two in-flight buffers rarely become a bottleneck under normal load.
const (
	DefaultBufferSize  = 1600
	DefaultBufferCount = 2
)

// Receiver is an asynchronous multicast UDP packet receiver: it posts at
// most one outstanding OS receive at a time against a fixed pool of
// buffers, and drives exactly one consumer goroutine at a time over the
// resulting FIFO of completed datagrams.
//
// receiveLoop and serviceLoop run on separate, persistent goroutines so
// that a slow consumer callback never delays the next OS-level receive:
// receiveLoop only ever posts reads and hands completed buffers to the
// queue, and serviceLoop only ever drains the queue. The two are tied
// together by cond, which each waits on for its own condition
// (pendingReadBuffer for receiveLoop, serviceNeeded for serviceLoop), and
// by the single-servicer gate in buffers.Queue, which serviceLoop holds
// for as long as there is work to drain.
//
// All counter and pool state is guarded by mu; the consumer's callbacks
// run outside it except for ReportCommunicationError, which the original
// implementation (and this one) invokes while still holding the lock,
// since it fires inline with handleReceive's own bookkeeping.
type Receiver struct {
	mu   sync.Mutex
	cond *sync.Cond

	sessionID         string
	multicastGroupIP  string
	listenInterfaceIP string
	port              int
	recvBufferBytes   int

	consumer   PacketConsumer
	bufferSize int

	ownedBuffers      []*buffers.LinkedBuffer
	idle              *buffers.IdlePool
	queue             *buffers.Queue
	readInProgress    bool
	pendingReadBuffer *buffers.LinkedBuffer
	serviceNeeded     bool
	stopping          bool
	started           bool
	serviceLoopOnce   sync.Once

	conn net.PacketConn

	dedup *dedupRing

	noBufferAvailable uint64
	packetsReceived   uint64
	errorPackets      uint64
	emptyPackets      uint64
	packetsQueued     uint64
	batchesProcessed  uint64
	packetsProcessed  uint64
	bytesReceived     uint64
	bytesProcessed    uint64
	largestPacket     uint64
	duplicatePackets  uint64
}

// New returns a Receiver for the given multicast group, bound to
// listenInterfaceIP (use "0.0.0.0" for the default interface) on port.
// The receiver is not started until Start is called.
func New(multicastGroupIP, listenInterfaceIP string, port int) *Receiver {
	r := &Receiver{
		sessionID:         uuid.NewString(),
		multicastGroupIP:  multicastGroupIP,
		listenInterfaceIP: listenInterfaceIP,
		port:              port,
		idle:              buffers.NewIdlePool(),
		queue:             buffers.NewQueue(),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// WithSessionID overrides the auto-generated session id, for correlating
// log lines and metrics series when a process runs more than one feed.
func (r *Receiver) WithSessionID(id string) *Receiver {
	if id != "" {
		r.sessionID = id
	}
	return r
}

// WithReceiveBuffer sets the OS socket receive buffer size (SO_RCVBUF)
// applied when the socket is opened. 0 (the default) leaves the OS
// default in place.
func (r *Receiver) WithReceiveBuffer(bytes int) *Receiver {
	r.recvBufferBytes = bytes
	return r
}

// WithDuplicateDetection enables fingerprinting of the last windowSize
// datagrams to count exact repeats, for redundant A/B feed deployments.
func (r *Receiver) WithDuplicateDetection(windowSize int) *Receiver {
	r.dedup = newDedupRing(windowSize)
	return r
}

// SessionID returns the receiver's session id.
func (r *Receiver) SessionID() string {
	return r.sessionID
}

// SetDedupWindow replaces the duplicate-detection window with a fresh
// one of the given size, discarding any history the previous window
// held; windowSize <= 0 disables duplicate detection. Safe to call while
// the receiver is running, for a hot-reloadable dedup window driven by
// config.Manager.
func (r *Receiver) SetDedupWindow(windowSize int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if windowSize <= 0 {
		r.dedup = nil
		return
	}
	r.dedup = newDedupRing(windowSize)
}

// Start opens the multicast socket, joins the group, allocates
// bufferCount buffers of bufferSize bytes, and begins receiving. If
// bufferSize or bufferCount are non-positive, DefaultBufferSize and
// DefaultBufferCount are used. If ctx is non-nil, cancelling it calls
// Stop.
func (r *Receiver) Start(ctx context.Context, consumer PacketConsumer, bufferSize, bufferCount int) error {
	if consumer == nil {
		return errors.New("fastcore: consumer must not be nil")
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if bufferCount <= 0 {
		bufferCount = DefaultBufferCount
	}

	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("fastcore: receiver already started")
	}
	r.started = true
	r.consumer = consumer
	r.bufferSize = bufferSize
	r.mu.Unlock()

	conn, err := r.openSocket()
	if err != nil {
		r.mu.Lock()
		r.started = false
		r.mu.Unlock()
		return err
	}
	r.conn = conn

	consumer.ReceiverStarted()
	if consumer.WantLog(logging.Info) {
		consumer.LogMessage(logging.Info, fmt.Sprintf(
			"joining multicast group %s via interface %s on port %d",
			r.multicastGroupIP, r.listenInterfaceIP, r.port))
	}

	r.mu.Lock()
	for i := 0; i < bufferCount; i++ {
		buf := buffers.NewLinkedBuffer(bufferSize)
		r.ownedBuffers = append(r.ownedBuffers, buf)
		r.idle.Push(buf)
	}
	r.startReceiveLocked()
	r.mu.Unlock()

	r.ensureServiceLoopStarted()
	go r.receiveLoop()

	if ctx != nil {
		go func() {
			<-ctx.Done()
			r.Stop()
		}()
	}
	return nil
}

// Stop asynchronously stops the receiver. In-flight completions still
// run; any buffer already queued when Stop is called may still reach the
// consumer if the per-packet stopping check hasn't yet run for it, but no
// new receive is ever posted after this call.
func (r *Receiver) Stop() {
	r.mu.Lock()
	r.stopLocked()
	r.mu.Unlock()
}

func (r *Receiver) stopLocked() {
	if r.stopping {
		return
	}
	r.stopping = true
	if r.conn != nil {
		r.conn.Close()
	}
	r.cond.Broadcast()
}

// receiveLoop is the single goroutine that ever issues a blocking receive
// against the socket. It waits for startReceiveLocked to hand it a
// buffer, performs the OS read outside the lock, and feeds the result
// back through handleReceive.
func (r *Receiver) receiveLoop() {
	for {
		r.mu.Lock()
		for r.pendingReadBuffer == nil && !r.stopping {
			r.cond.Wait()
		}
		if r.pendingReadBuffer == nil {
			r.mu.Unlock()
			return
		}
		buf := r.pendingReadBuffer
		r.pendingReadBuffer = nil
		r.mu.Unlock()

		n, _, err := r.conn.ReadFrom(buf.Bytes())
		r.handleReceive(err, buf, n)
	}
}

// startReceiveLocked attempts to post the next receive: pop an idle
// buffer and hand it to the receive loop. If none is available it counts
// the attempt (noBufferAvailable) and returns; the next buffer pushed
// back to the idle pool wakes the loop to retry. Must be called with mu
// held.
func (r *Receiver) startReceiveLocked() {
	if r.readInProgress || r.stopping {
		return
	}
	buf := r.idle.Pop()
	if buf == nil {
		r.noBufferAvailable++
		return
	}
	r.readInProgress = true
	r.pendingReadBuffer = buf
	r.cond.Broadcast()
}

// handleReceive processes the outcome of one OS receive: accounting,
// queueing on success, returning the buffer to idle on an empty datagram
// or error, and always re-arming the next receive before releasing the
// lock. If queueing triggers the need for a servicer, it marks
// serviceNeeded and wakes serviceLoop rather than draining the queue
// itself, so the caller (receiveLoop) returns immediately and is free to
// post the next OS receive while the servicer works through the batch on
// its own goroutine.
func (r *Receiver) handleReceive(err error, buf *buffers.LinkedBuffer, n int) {
	r.mu.Lock()
	r.readInProgress = false
	r.packetsReceived++

	switch {
	case err == nil && n > 0:
		r.packetsQueued++
		r.bytesReceived += uint64(n)
		if uint64(n) > r.largestPacket {
			r.largestPacket = uint64(n)
		}
		buf.SetUsed(n)
		if r.dedup != nil && r.dedup.seen(buf.Used()) {
			r.duplicatePackets++
		}
		if r.queue.Push(buf) && r.queue.StartService() {
			r.serviceNeeded = true
		}
	case err == nil:
		r.emptyPackets++
		r.idle.Push(buf)
	default:
		r.errorPackets++
		r.idle.Push(buf)
		if !r.consumer.ReportCommunicationError(err.Error()) {
			r.stopLocked()
		}
	}

	r.startReceiveLocked()
	r.cond.Broadcast()
	r.mu.Unlock()
}

// ensureServiceLoopStarted launches serviceLoop exactly once, on first use
// of the receiver, whether that use is Start or a test harness driving
// handleReceive directly.
func (r *Receiver) ensureServiceLoopStarted() {
	r.serviceLoopOnce.Do(func() {
		go r.serviceLoop()
	})
}

// serviceLoop is the single goroutine that ever drains the completed-
// buffer queue. It waits for handleReceive to mark serviceNeeded, then
// runs batches until the single-servicer gate in buffers.Queue says no
// more are needed, entirely independently of receiveLoop's OS-level
// receive cycle: a slow ConsumeBuffer call here never delays the next
// conn.ReadFrom.
func (r *Receiver) serviceLoop() {
	for {
		r.mu.Lock()
		for !r.serviceNeeded && !r.stopping {
			r.cond.Wait()
		}
		if !r.serviceNeeded {
			r.mu.Unlock()
			return
		}
		r.serviceNeeded = false
		r.mu.Unlock()

		for r.runServiceBatch() {
		}
	}
}

// runServiceBatch drains the queue once, under the single-servicer gate,
// dispatching each buffer to the consumer outside the lock, then bulk
// returns the locally accumulated idle buffers and decides whether the
// caller remains the servicer for another round.
func (r *Receiver) runServiceBatch() bool {
	r.mu.Lock()
	r.batchesProcessed++
	r.mu.Unlock()

	var localIdle buffers.List
	for {
		buf := r.queue.ServiceNext()
		if buf == nil {
			break
		}

		r.mu.Lock()
		r.packetsProcessed++
		stopping := r.stopping
		r.mu.Unlock()

		if !stopping {
			data := buf.Used()
			r.mu.Lock()
			r.bytesProcessed += uint64(len(data))
			r.mu.Unlock()

			if !r.invokeConsumeBuffer(data) {
				r.mu.Lock()
				r.stopLocked()
				r.mu.Unlock()
			}
			localIdle.Push(buf)
		}
	}

	r.mu.Lock()
	r.idle.PushList(&localIdle)
	r.startReceiveLocked()
	cont := r.queue.EndService(!r.stopping)
	r.mu.Unlock()
	return cont
}

// invokeConsumeBuffer calls the consumer's ConsumeBuffer, recovering a
// panic and routing it to ReportDecodingError the way the original
// implementation catches a C++ exception thrown from template decoding.
func (r *Receiver) invokeConsumeBuffer(data []byte) bool {
	var cont bool
	var panicMsg string
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				panicMsg = fmt.Sprintf("%v", rec)
			}
		}()
		cont = r.consumer.ConsumeBuffer(data)
	}()
	if panicMsg != "" {
		return r.consumer.ReportDecodingError(panicMsg)
	}
	return cont
}
