package receiver

import "github.com/cespare/xxhash/v2"

// dedupRing fingerprints recent datagram payloads with xxhash and flags
// exact repeats within a bounded window, supporting redundant A/B
// multicast feed deployments where the same packet legitimately arrives
// twice. It does not affect FIFO delivery or invoke the consumer twice;
// it only increments a counter.
type dedupRing struct {
	capacity int
	hashes   []uint64
	refcount map[uint64]int
	pos      int
	filled   int
}

func newDedupRing(capacity int) *dedupRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &dedupRing{
		capacity: capacity,
		hashes:   make([]uint64, capacity),
		refcount: make(map[uint64]int, capacity),
	}
}

// seen reports whether payload's hash is already present in the window,
// then records it, evicting the oldest entry if the ring is full.
func (d *dedupRing) seen(payload []byte) bool {
	h := xxhash.Sum64(payload)
	_, duplicate := d.refcount[h]

	if d.filled == d.capacity {
		old := d.hashes[d.pos]
		d.refcount[old]--
		if d.refcount[old] <= 0 {
			delete(d.refcount, old)
		}
	} else {
		d.filled++
	}
	d.hashes[d.pos] = h
	d.refcount[h]++
	d.pos = (d.pos + 1) % d.capacity

	return duplicate
}
