// Package audio provides the audio transport primitives for the murmur
// dictation pipeline: a single-producer/single-consumer ring buffer that
// bridges the real-time capture callback to the polling drain loop, the
// Capture contract implemented by device backends, and PCM sample helpers.
package audio

import "sync/atomic"

// Ring is a fixed-capacity circular buffer of mono float32 samples with
// exactly one producer and exactly one consumer. Write is called from the
// capture device's real-time callback and never blocks, never allocates, and
// never overwrites unread samples — when the buffer is full, excess input is
// dropped and counted. Read is called from the drain loop and never blocks;
// it returns whatever is available.
//
// Safety relies on the SPSC discipline: a single goroutine (or callback
// context) writing, a single goroutine reading. The write and read cursors
// are monotonically increasing and only ever advanced by their owning side,
// so an atomic load of the opposing cursor yields a conservative view —
// the producer may see fewer free slots than exist and the consumer fewer
// readable samples, never more.
type Ring struct {
	buf  []float32
	mask uint64

	// wpos is advanced only by the producer, rpos only by the consumer.
	wpos    atomic.Uint64
	rpos    atomic.Uint64
	dropped atomic.Uint64
}

// NewRing creates a Ring holding at least capacity samples. The backing
// array is rounded up to the next power of two so cursor arithmetic reduces
// to a mask.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Ring{
		buf:  make([]float32, size),
		mask: uint64(size - 1),
	}
}

// Capacity returns the total number of samples the ring can hold.
func (r *Ring) Capacity() int { return len(r.buf) }

// Write copies as many samples as currently fit into the ring and returns
// the number written. Samples that do not fit are dropped, not overwritten
// onto unread data. Producer side only.
func (r *Ring) Write(samples []float32) int {
	w := r.wpos.Load()
	used := w - r.rpos.Load()
	free := uint64(len(r.buf)) - used

	n := uint64(len(samples))
	if n > free {
		r.dropped.Add(n - free)
		n = free
	}
	if n == 0 {
		return 0
	}

	start := w & r.mask
	first := uint64(len(r.buf)) - start
	if first > n {
		first = n
	}
	copy(r.buf[start:start+first], samples[:first])
	copy(r.buf[:n-first], samples[first:n])

	r.wpos.Store(w + n)
	return int(n)
}

// Read copies up to len(dst) available samples into dst and returns the
// number read, zero when the ring is empty. Consumer side only.
func (r *Ring) Read(dst []float32) int {
	rp := r.rpos.Load()
	avail := r.wpos.Load() - rp

	n := uint64(len(dst))
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}

	start := rp & r.mask
	first := uint64(len(r.buf)) - start
	if first > n {
		first = n
	}
	copy(dst[:first], r.buf[start:start+first])
	copy(dst[first:n], r.buf[:n-first])

	r.rpos.Store(rp + n)
	return int(n)
}

// Available returns the number of unread samples. Callable from the consumer
// to size read batches; the value is exact from the consumer's point of view.
func (r *Ring) Available() int {
	return int(r.wpos.Load() - r.rpos.Load())
}

// Dropped returns the total number of samples discarded because the ring was
// full. A growing value means the consumer is falling behind real time.
func (r *Ring) Dropped() uint64 {
	return r.dropped.Load()
}

// Reset discards all unread samples. It advances the read cursor and must
// only be called from the consumer side, typically while capture is stopped.
func (r *Ring) Reset() {
	r.rpos.Store(r.wpos.Load())
}
