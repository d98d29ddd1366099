package presence

import "sync"

// Pool recycles *Map instances across a decode loop, adapted from the
// teacher's zero-overhead sync.Pool wrapper for the hot path where every
// allocation shows up in profiles. expectedBits sizes freshly-constructed
// maps the same way New does; Get always returns a map ready for a fresh
// Decode or SetNextField pass.
type Pool struct {
	pool sync.Pool
}

// NewPool returns a Pool whose maps are sized for expectedBits presence
// bits when freshly constructed.
func NewPool(expectedBits int) *Pool {
	p := &Pool{}
	p.pool.New = func() any { return New(expectedBits) }
	return p
}

// Get returns a Map ready for reuse: its cursor is rewound and its
// buffer zeroed.
func (p *Pool) Get() *Map {
	m := p.pool.Get().(*Map)
	m.Reset(0)
	return m
}

// Put returns m to the pool. Callers must not use m afterwards.
func (p *Pool) Put(m *Map) {
	if m != nil {
		p.pool.Put(m)
	}
}
