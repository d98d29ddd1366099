package receiver

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/searchktools/fast-core/core/logging"
)

// fakeConsumer records every callback invocation for assertion, and lets
// a test script canned return values and panics per call.
type fakeConsumer struct {
	mu sync.Mutex

	started      bool
	consumed     [][]byte
	commErrors   []string
	decodeErrors []string
	logs         []string

	consumeReturns  []bool
	consumePanics   map[int]string // call index -> panic message
	commErrReturn   bool
	decodeErrReturn bool
}

func newFakeConsumer() *fakeConsumer {
	return &fakeConsumer{commErrReturn: true, decodeErrReturn: true}
}

func (f *fakeConsumer) ReceiverStarted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

func (f *fakeConsumer) ConsumeBuffer(data []byte) bool {
	f.mu.Lock()
	idx := len(f.consumed)
	cp := append([]byte(nil), data...)
	f.consumed = append(f.consumed, cp)
	if msg, ok := f.consumePanics[idx]; ok {
		f.mu.Unlock()
		panic(msg)
	}
	ret := true
	if idx < len(f.consumeReturns) {
		ret = f.consumeReturns[idx]
	}
	f.mu.Unlock()
	return ret
}

func (f *fakeConsumer) ReportCommunicationError(msg string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commErrors = append(f.commErrors, msg)
	return f.commErrReturn
}

func (f *fakeConsumer) ReportDecodingError(msg string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decodeErrors = append(f.decodeErrors, msg)
	return f.decodeErrReturn
}

func (f *fakeConsumer) WantLog(logging.Level) bool { return true }

func (f *fakeConsumer) LogMessage(level logging.Level, msg string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, msg)
	return true
}

func (f *fakeConsumer) snapshotConsumed() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.consumed))
	copy(out, f.consumed)
	return out
}

// feed simulates one datagram completing with no error. Like a datagram
// held by the kernel until a receive is posted, it waits (up to about a
// second) for the background servicer to return a buffer to the idle pool
// when none is armed yet.
func feed(t *testing.T, r *Receiver, payload []byte) {
	t.Helper()
	buf := r.nextBufferForTest()
	for i := 0; buf == nil && i < 1000; i++ {
		time.Sleep(time.Millisecond)
		buf = r.nextBufferForTest()
	}
	if buf == nil {
		t.Fatal("no buffer available to feed datagram")
	}
	n := copy(buf.Bytes(), payload)
	r.handleReceive(nil, buf, n)
}

// waitForQuiet polls until every queued packet has been processed and the
// processed count stops growing, giving any background service goroutine
// time to finish draining.
func waitForQuiet(r *Receiver) {
	last := uint64(0)
	for i := 0; i < 50; i++ {
		snap := r.Snapshot()
		if snap.PacketsProcessed == snap.PacketsQueued && snap.PacketsProcessed == last {
			return
		}
		last = snap.PacketsProcessed
		time.Sleep(time.Millisecond)
	}
}

func TestS1_SingleDatagramDelivered(t *testing.T) {
	r := New("239.1.1.1", "0.0.0.0", 30001)
	c := newFakeConsumer()
	r.initForTest(c, 64, 2)

	feed(t, r, []byte("hello"))
	waitForQuiet(r)

	got := c.snapshotConsumed()
	if len(got) != 1 || string(got[0]) != "hello" {
		t.Fatalf("consumed = %v, want [hello]", got)
	}
	snap := r.Snapshot()
	if snap.PacketsReceived != 1 || snap.PacketsQueued != 1 || snap.PacketsProcessed != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestS2_MultipleDatagramsDeliveredInOrder(t *testing.T) {
	r := New("239.1.1.1", "0.0.0.0", 30001)
	c := newFakeConsumer()
	r.initForTest(c, 64, 2)

	payloads := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}
	for _, p := range payloads {
		feed(t, r, p)
	}
	waitForQuiet(r)

	got := c.snapshotConsumed()
	if len(got) != len(payloads) {
		t.Fatalf("consumed %d packets, want %d", len(got), len(payloads))
	}
	for i, p := range payloads {
		if string(got[i]) != string(p) {
			t.Fatalf("packet %d = %q, want %q", i, got[i], p)
		}
	}
}

func TestS3_EmptyDatagramCounted(t *testing.T) {
	r := New("239.1.1.1", "0.0.0.0", 30001)
	c := newFakeConsumer()
	r.initForTest(c, 64, 2)

	feed(t, r, nil)
	waitForQuiet(r)

	if got := c.snapshotConsumed(); len(got) != 0 {
		t.Fatalf("empty datagram should not reach the consumer, got %v", got)
	}
	snap := r.Snapshot()
	if snap.EmptyPackets != 1 {
		t.Fatalf("EmptyPackets = %d, want 1", snap.EmptyPackets)
	}
	if snap.PacketsReceived != 1 {
		t.Fatalf("PacketsReceived = %d, want 1", snap.PacketsReceived)
	}
}

func TestS4_BufferExhaustionCountedNotLost(t *testing.T) {
	r := New("239.1.1.1", "0.0.0.0", 30001)
	c := newFakeConsumer()
	r.initForTest(c, 64, 1) // exactly one buffer

	buf := r.nextBufferForTest()
	if buf == nil {
		t.Fatal("expected a buffer")
	}
	// The single buffer is now out for a receive. When it completes and is
	// queued, the idle pool is empty, so handleReceive's attempt to post
	// the next receive should count a miss.
	n := copy(buf.Bytes(), []byte("x"))
	r.handleReceive(nil, buf, n)

	if got := r.NoBufferAvailable(); got != 1 {
		t.Fatalf("NoBufferAvailable = %d, want 1", got)
	}
	waitForQuiet(r)

	got := c.snapshotConsumed()
	if len(got) != 1 || string(got[0]) != "x" {
		t.Fatalf("consumed = %v, want [x]", got)
	}
}

func TestS5_ConsumerStopRequestHaltsDelivery(t *testing.T) {
	r := New("239.1.1.1", "0.0.0.0", 30001)
	c := newFakeConsumer()
	c.consumeReturns = []bool{true, false, true}
	r.initForTest(c, 64, 4)

	// initForTest armed one buffer for the next receive; take it out the
	// way receiveLoop does, so it stands for a read still outstanding in
	// the OS when the stop arrives.
	inFlight := r.nextBufferForTest()
	if inFlight == nil {
		t.Fatal("expected a buffer armed for receive")
	}

	// Pre-load all three datagrams into the queue before a servicer ever
	// starts draining it, so packet 3 is already queued by the time
	// packet 2's consumeBuffer call requests a stop within the same
	// batch -- exactly the race the single-servicer gate exists for.
	payloads := [][]byte{[]byte("1"), []byte("2"), []byte("3")}
	for _, p := range payloads {
		buf := r.popIdleForTest()
		if buf == nil {
			t.Fatal("expected an idle buffer")
		}
		r.queueForTest(buf, p)
	}
	r.driveServiceForTest()

	got := c.snapshotConsumed()
	if len(got) != 2 {
		t.Fatalf("consumed %d packets, want exactly 2 (stop requested on the 2nd)", len(got))
	}
	if string(got[0]) != "1" || string(got[1]) != "2" {
		t.Fatalf("consumed = %q, want [1 2]", got)
	}
	snap := r.Snapshot()
	if snap.PacketsQueued != 3 {
		t.Fatalf("PacketsQueued = %d, want 3", snap.PacketsQueued)
	}
	if snap.PacketsProcessed != 3 {
		t.Fatalf("PacketsProcessed = %d, want 3 (all dequeued, 3rd not delivered)", snap.PacketsProcessed)
	}

	// Stop closes the socket, so the outstanding read completes with an
	// error and its buffer goes back to idle. Even with idle buffers on
	// hand, no new receive should be posted after stop.
	r.handleReceive(errors.New("use of closed network connection"), inFlight, 0)
	if buf := r.nextBufferForTest(); buf != nil {
		t.Fatal("expected no new buffer armed after stop")
	}
}

func TestS6_ConsumePanicRoutesToDecodingError(t *testing.T) {
	r := New("239.1.1.1", "0.0.0.0", 30001)
	c := newFakeConsumer()
	c.consumePanics = map[int]string{0: "bad template id"}
	c.decodeErrReturn = true
	r.initForTest(c, 64, 2)

	feed(t, r, []byte("boom"))
	waitForQuiet(r)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.decodeErrors) != 1 || c.decodeErrors[0] != "bad template id" {
		t.Fatalf("decodeErrors = %v, want [bad template id]", c.decodeErrors)
	}
}

func TestCommunicationErrorReturnsBufferAndCanStop(t *testing.T) {
	r := New("239.1.1.1", "0.0.0.0", 30001)
	c := newFakeConsumer()
	c.commErrReturn = false
	r.initForTest(c, 64, 2)

	buf := r.nextBufferForTest()
	r.handleReceive(errors.New("network unreachable"), buf, 0)

	if got := r.PacketsWithErrors(); got != 1 {
		t.Fatalf("PacketsWithErrors = %d, want 1", got)
	}
	c.mu.Lock()
	gotErrs := len(c.commErrors)
	c.mu.Unlock()
	if gotErrs != 1 {
		t.Fatalf("commErrors count = %d, want 1", gotErrs)
	}
	if buf := r.nextBufferForTest(); buf != nil {
		t.Fatal("expected stop() to have suppressed further receives")
	}
}

func TestLargestPacketTracksMax(t *testing.T) {
	r := New("239.1.1.1", "0.0.0.0", 30001)
	c := newFakeConsumer()
	r.initForTest(c, 64, 2)

	feed(t, r, []byte("short"))
	feed(t, r, []byte("a much longer payload than short"))
	feed(t, r, []byte("mid"))
	waitForQuiet(r)

	if got, want := r.LargestPacket(), uint64(len("a much longer payload than short")); got != want {
		t.Fatalf("LargestPacket = %d, want %d", got, want)
	}
}

func TestDuplicateDetection(t *testing.T) {
	r := New("239.1.1.1", "0.0.0.0", 30001).WithDuplicateDetection(8)
	c := newFakeConsumer()
	r.initForTest(c, 64, 2)

	feed(t, r, []byte("same"))
	feed(t, r, []byte("same"))
	feed(t, r, []byte("different"))
	waitForQuiet(r)

	if got := r.DuplicatePackets(); got != 1 {
		t.Fatalf("DuplicatePackets = %d, want 1", got)
	}
	// duplicates are still delivered to the consumer, just counted.
	if got := len(c.snapshotConsumed()); got != 3 {
		t.Fatalf("consumed %d packets, want 3", got)
	}
}

func TestSetDedupWindowTakesEffectLive(t *testing.T) {
	r := New("239.1.1.1", "0.0.0.0", 30001)
	c := newFakeConsumer()
	r.initForTest(c, 64, 2)

	feed(t, r, []byte("same"))
	feed(t, r, []byte("same"))
	waitForQuiet(r)
	if got := r.DuplicatePackets(); got != 0 {
		t.Fatalf("DuplicatePackets = %d, want 0 before SetDedupWindow", got)
	}

	r.SetDedupWindow(8)
	feed(t, r, []byte("same"))
	feed(t, r, []byte("same"))
	waitForQuiet(r)
	if got := r.DuplicatePackets(); got != 1 {
		t.Fatalf("DuplicatePackets = %d, want 1 after SetDedupWindow(8)", got)
	}

	r.SetDedupWindow(0)
	feed(t, r, []byte("same"))
	feed(t, r, []byte("same"))
	waitForQuiet(r)
	if got := r.DuplicatePackets(); got != 1 {
		t.Fatalf("DuplicatePackets = %d, want unchanged after SetDedupWindow(0) disables detection", got)
	}
}

func TestSnapshotTextAndJSON(t *testing.T) {
	r := New("239.1.1.1", "0.0.0.0", 30001)
	c := newFakeConsumer()
	r.initForTest(c, 64, 2)
	feed(t, r, []byte("x"))
	waitForQuiet(r)

	snap := r.Snapshot()
	if snap.Text() == "" {
		t.Fatal("expected non-empty text rendering")
	}
	js, err := snap.JSON()
	if err != nil || js == "" {
		t.Fatalf("JSON() = %q, %v", js, err)
	}
}
