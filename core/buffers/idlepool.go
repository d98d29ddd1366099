package buffers

// IdlePool is the LIFO stack of buffers ready to be posted for the next
// receive. Adapted from the teacher's connection pool Get/Put/Stats
// shape, but deliberately not a sync.Pool: the receiver owns a fixed set
// of buffers allocated once at start and never fabricates new ones, and
// the idle/queue ownership transfer below needs the exact intrusive
// singly-linked stack a sync.Pool can't expose.
type IdlePool struct {
	list List
	gets uint64
	puts uint64
}

// NewIdlePool returns an empty IdlePool.
func NewIdlePool() *IdlePool {
	return &IdlePool{}
}

// Push returns a single buffer to the pool.
func (p *IdlePool) Push(b *LinkedBuffer) {
	p.puts++
	p.list.Push(b)
}

// PushList bulk-returns a locally accumulated batch, draining local.
func (p *IdlePool) PushList(local *List) {
	for {
		b := local.Pop()
		if b == nil {
			return
		}
		p.puts++
		p.list.Push(b)
	}
}

// Pop removes and returns a buffer, or nil if the pool is exhausted.
func (p *IdlePool) Pop() *LinkedBuffer {
	b := p.list.Pop()
	if b == nil {
		return nil
	}
	p.gets++
	return b
}

// Len returns the number of buffers currently idle.
func (p *IdlePool) Len() int {
	return p.list.Len()
}

// Stats returns lifetime get/put counts and the get-to-put ratio, which
// should sit at or just under 1.0 for a healthy pool: every buffer
// handed out eventually comes back.
func (p *IdlePool) Stats() (gets, puts uint64, hitRate float64) {
	gets, puts = p.gets, p.puts
	if puts > 0 {
		hitRate = float64(gets) / float64(puts)
	}
	return gets, puts, hitRate
}
