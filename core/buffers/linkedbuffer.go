// Package buffers provides the fixed-capacity receive buffer, its LIFO
// idle pool, and the single-server FIFO queue that hands completed
// datagrams to exactly one servicing goroutine at a time.
//
// Buffers are intrusively linkable: each LinkedBuffer carries its own next
// pointer, reused by whichever structure currently owns it. A buffer is
// never simultaneously referenced from both the idle pool and the queue,
// so sharing the field is safe.
package buffers

// LinkedBuffer is a fixed-capacity receive buffer with a recorded used
// length and an intrusive link for the idle pool / queue it belongs to at
// any given moment.
type LinkedBuffer struct {
	data []byte
	used int
	next *LinkedBuffer
}

// NewLinkedBuffer allocates a LinkedBuffer with the given fixed capacity.
func NewLinkedBuffer(capacity int) *LinkedBuffer {
	return &LinkedBuffer{data: make([]byte, capacity)}
}

// Capacity returns the buffer's fixed size.
func (b *LinkedBuffer) Capacity() int {
	return len(b.data)
}

// Bytes returns the full-capacity backing slice, for an OS read to fill.
func (b *LinkedBuffer) Bytes() []byte {
	return b.data
}

// Used returns the portion of the buffer actually filled by the last
// receive, as recorded by SetUsed.
func (b *LinkedBuffer) Used() []byte {
	return b.data[:b.used]
}

// UsedLen returns len(b.Used()).
func (b *LinkedBuffer) UsedLen() int {
	return b.used
}

// SetUsed records how many bytes of the buffer hold real data.
func (b *LinkedBuffer) SetUsed(n int) {
	b.used = n
}

// List is an intrusive singly linked LIFO stack of buffers, reusing each
// buffer's own next pointer rather than allocating list nodes. Used both
// as the idle pool's backing stack and as a goroutine-local staging area
// for buffers collected mid-batch before being returned in bulk.
type List struct {
	head  *LinkedBuffer
	count int
}

// Push prepends b to the list.
func (l *List) Push(b *LinkedBuffer) {
	b.next = l.head
	l.head = b
	l.count++
}

// Pop removes and returns the most recently pushed buffer, or nil if the
// list is empty.
func (l *List) Pop() *LinkedBuffer {
	b := l.head
	if b == nil {
		return nil
	}
	l.head = b.next
	b.next = nil
	l.count--
	return b
}

// Len returns the number of buffers currently in the list.
func (l *List) Len() int {
	return l.count
}
