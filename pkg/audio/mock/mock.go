// Package mock provides an in-memory implementation of [audio.Capture] for
// use in unit tests.
//
// The mock writes a scripted sequence of sample chunks into the ring it was
// built with, pacing them by an optional interval. It records every lifecycle
// call so that tests can assert on call counts.
//
// Typical usage:
//
//	ring := audio.NewRing(16000)
//	cap := mock.NewCapture(ring,
//	    mock.WithChunks(chunk1, chunk2),
//	    mock.WithInterval(10*time.Millisecond),
//	)
//	_ = cap.Start(ctx)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/murmur/pkg/audio"
)

// Compile-time assertion that Capture satisfies audio.Capture.
var _ audio.Capture = (*Capture)(nil)

// Option is a functional option for configuring a mock Capture.
type Option func(*Capture)

// WithChunks sets the sample chunks the capture will write, in order.
func WithChunks(chunks ...[]float32) Option {
	return func(c *Capture) { c.chunks = chunks }
}

// WithInterval sets the delay between chunk writes. Zero (the default)
// writes all chunks immediately on Start.
func WithInterval(d time.Duration) Option {
	return func(c *Capture) { c.interval = d }
}

// WithLoop makes the capture repeat its chunk script until stopped instead
// of writing it once.
func WithLoop() Option {
	return func(c *Capture) { c.loop = true }
}

// Capture is a scripted mock implementation of [audio.Capture].
type Capture struct {
	ring     *audio.Ring
	chunks   [][]float32
	interval time.Duration
	loop     bool

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool

	// StartErr, if non-nil, is returned by Start.
	StartErr error

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// NewCapture creates a mock Capture writing into ring.
func NewCapture(ring *audio.Ring, opts ...Option) *Capture {
	c := &Capture{ring: ring}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start begins writing the scripted chunks into the ring. With a zero
// interval all chunks are written synchronously before Start returns.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CallCountStart++
	if c.StartErr != nil {
		return c.StartErr
	}
	if c.started {
		return nil
	}

	if c.interval <= 0 && !c.loop {
		for _, chunk := range c.chunks {
			c.ring.Write(chunk)
		}
		return nil
	}

	c.started = true
	c.stop = make(chan struct{})
	c.wg.Add(1)
	go c.feed(ctx, c.stop)
	return nil
}

func (c *Capture) feed(ctx context.Context, stop <-chan struct{}) {
	defer c.wg.Done()
	interval := c.interval
	if interval <= 0 {
		// time.NewTicker panics on non-positive durations; looping scripts
		// without an explicit interval pace at 1ms.
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if i >= len(c.chunks) {
				if !c.loop {
					return
				}
				i = 0
			}
			c.ring.Write(c.chunks[i])
			i++
		}
	}
}

// Stop halts the chunk writer and waits for it to exit.
func (c *Capture) Stop() error {
	c.mu.Lock()
	c.CallCountStop++
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	close(c.stop)
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// Close stops the writer if it is still running.
func (c *Capture) Close() error {
	err := c.Stop()
	c.mu.Lock()
	c.CallCountClose++
	c.mu.Unlock()
	return err
}
