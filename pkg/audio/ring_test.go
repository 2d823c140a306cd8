package audio_test

import (
	"sync"
	"testing"

	"github.com/MrWong99/murmur/pkg/audio"
)

func seq(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestRing_RoundsCapacityToPowerOfTwo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capacity int
		want     int
	}{
		{"exact power", 1024, 1024},
		{"rounds up", 1000, 1024},
		{"one", 1, 1},
		{"zero clamps", 0, 1},
		{"negative clamps", -5, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := audio.NewRing(tc.capacity)
			if got := r.Capacity(); got != tc.want {
				t.Errorf("Capacity() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRing_WriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	r := audio.NewRing(16)
	in := seq(0, 10)
	if n := r.Write(in); n != 10 {
		t.Fatalf("Write() = %d, want 10", n)
	}
	if got := r.Available(); got != 10 {
		t.Fatalf("Available() = %d, want 10", got)
	}

	out := make([]float32, 16)
	n := r.Read(out)
	if n != 10 {
		t.Fatalf("Read() = %d, want 10", n)
	}
	for i := range 10 {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
	if got := r.Available(); got != 0 {
		t.Errorf("Available() after drain = %d, want 0", got)
	}
}

func TestRing_FullBufferDropsExcessKeepsPrefix(t *testing.T) {
	t.Parallel()

	r := audio.NewRing(8)
	r.Write(seq(0, 6))

	// 6 of 8 slots used; only the first 2 samples of this write fit.
	n := r.Write(seq(100, 5))
	if n != 2 {
		t.Fatalf("Write() into nearly full ring = %d, want 2", n)
	}
	if got := r.Dropped(); got != 3 {
		t.Fatalf("Dropped() = %d, want 3", got)
	}

	// Unread data must be intact: the original 6 then the kept prefix.
	out := make([]float32, 8)
	if got := r.Read(out); got != 8 {
		t.Fatalf("Read() = %d, want 8", got)
	}
	want := append(seq(0, 6), 100, 101)
	for i, w := range want {
		if out[i] != w {
			t.Errorf("out[%d] = %v, want %v", i, out[i], w)
		}
	}
}

func TestRing_WriteWhenCompletelyFull(t *testing.T) {
	t.Parallel()

	r := audio.NewRing(4)
	r.Write(seq(0, 4))
	if n := r.Write(seq(10, 3)); n != 0 {
		t.Fatalf("Write() into full ring = %d, want 0", n)
	}
	if got := r.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
}

func TestRing_WrapAround(t *testing.T) {
	t.Parallel()

	r := audio.NewRing(8)
	out := make([]float32, 8)

	// Advance the cursors so the next write straddles the array end.
	r.Write(seq(0, 6))
	r.Read(out[:6])

	in := seq(50, 5)
	if n := r.Write(in); n != 5 {
		t.Fatalf("Write() = %d, want 5", n)
	}
	n := r.Read(out)
	if n != 5 {
		t.Fatalf("Read() = %d, want 5", n)
	}
	for i := range 5 {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %v, want %v (wrap corrupted data)", i, out[i], in[i])
		}
	}
}

func TestRing_ReadEmptyReturnsZero(t *testing.T) {
	t.Parallel()

	r := audio.NewRing(8)
	out := make([]float32, 4)
	if n := r.Read(out); n != 0 {
		t.Errorf("Read() on empty ring = %d, want 0", n)
	}
}

func TestRing_Reset(t *testing.T) {
	t.Parallel()

	r := audio.NewRing(8)
	r.Write(seq(0, 5))
	r.Reset()

	if got := r.Available(); got != 0 {
		t.Fatalf("Available() after Reset = %d, want 0", got)
	}
	// The ring must be writable again to full capacity.
	if n := r.Write(seq(0, 8)); n != 8 {
		t.Errorf("Write() after Reset = %d, want 8", n)
	}
}

// TestRing_ConcurrentSPSC streams a long monotonically increasing sequence
// through a small ring with one producer and one consumer goroutine and
// verifies that everything read is an in-order subsequence of what was
// written. Dropped samples are permitted (the ring is small on purpose),
// reordering or corruption is not.
func TestRing_ConcurrentSPSC(t *testing.T) {
	t.Parallel()

	const total = 200_000
	r := audio.NewRing(256)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]float32, 37)
		v := 0
		for v < total {
			n := len(buf)
			if total-v < n {
				n = total - v
			}
			for i := range n {
				buf[i] = float32(v + i)
			}
			r.Write(buf[:n])
			v += n
		}
	}()

	var read []float32
	buf := make([]float32, 61)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	producerDone := false
	for {
		n := r.Read(buf)
		if n > 0 {
			read = append(read, buf[:n]...)
			continue
		}
		if producerDone {
			// Producer finished and the ring is drained.
			break
		}
		select {
		case <-done:
			// One more drain round after the producer exits.
			producerDone = true
		default:
		}
	}

	last := float32(-1)
	for i, v := range read {
		if v <= last {
			t.Fatalf("read[%d] = %v not strictly increasing after %v", i, v, last)
		}
		last = v
	}
	if uint64(len(read))+r.Dropped() != total {
		t.Errorf("read %d + dropped %d != written %d", len(read), r.Dropped(), total)
	}
}
