package buffers

import "sync"

// Queue is a FIFO of completed buffers guarded by a single-servicer gate:
// at most one goroutine is ever draining it at a time, regardless of how
// many goroutines concurrently push to it. The gate is the mechanism that
// gives the downstream consumer a strict, single-threaded arrival order
// without forcing every producer to block on it.
//
// Queue carries its own mutex, separate from any lock a caller holds
// around Push/StartService/EndService, because ServiceNext is specified
// to run outside the caller's lock: the servicer drains the queue while
// other goroutines may concurrently push to it.
type Queue struct {
	mu         sync.Mutex
	head, tail *LinkedBuffer
	servicing  bool
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push enqueues b and reports whether a servicer is needed: true iff
// nobody is currently servicing the queue. The caller should follow a
// true result with StartService.
func (q *Queue) Push(b *LinkedBuffer) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	b.next = nil
	if q.tail == nil {
		q.head = b
	} else {
		q.tail.next = b
	}
	q.tail = b
	return !q.servicing
}

// StartService attempts to claim the servicer role. Returns true iff the
// caller becomes the servicer; false if another goroutine already holds
// the role.
func (q *Queue) StartService() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.servicing {
		return false
	}
	q.servicing = true
	return true
}

// ServiceNext dequeues and returns the next buffer in FIFO order, or nil
// if the queue is currently empty. Called by the servicer outside its
// caller's own lock.
func (q *Queue) ServiceNext() *LinkedBuffer {
	q.mu.Lock()
	defer q.mu.Unlock()
	b := q.head
	if b == nil {
		return nil
	}
	q.head = b.next
	if q.head == nil {
		q.tail = nil
	}
	b.next = nil
	return b
}

// EndService relinquishes the servicer role unless cont is true and a
// buffer arrived after the servicer's last ServiceNext call returned nil
// (closing the race between "queue looked empty" and "somebody pushed to
// it"), in which case the caller remains the servicer for another round.
func (q *Queue) EndService(cont bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if cont && q.head != nil {
		return true
	}
	q.servicing = false
	return false
}

// Empty reports whether the queue currently holds no buffers.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head == nil
}
