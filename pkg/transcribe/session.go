package transcribe

import (
	"context"
	"fmt"

	"github.com/MrWong99/murmur/pkg/audio"
)

// drainBatchSamples bounds how many samples a single ring read copies. The
// drain loop keeps reading until the ring is empty, so the bound caps the
// scratch buffer, not throughput.
const drainBatchSamples = 4096

// Session is the public façade over one dictation session: it owns the
// capture backend, the ring buffer it fills, and the Engine consuming it.
//
// The caller drives the ring on its own cadence by calling Drain — once per
// UI frame, or from a ticker — from a single goroutine. Everything else
// (pacing, inference, commits) happens on the engine's background goroutine.
type Session struct {
	capture audio.Capture
	ring    *audio.Ring
	engine  *Engine

	// batch is the drain scratch buffer; Drain is single-goroutine by
	// contract, so it is reused without synchronisation.
	batch []float32
}

// NewSession composes a Session from its parts. The capture must have been
// constructed around the same ring.
func NewSession(capture audio.Capture, ring *audio.Ring, engine *Engine) *Session {
	return &Session{
		capture: capture,
		ring:    ring,
		engine:  engine,
		batch:   make([]float32, drainBatchSamples),
	}
}

// Start launches the engine's background loop and then the capture device.
// When the device fails to start, the engine is stopped again and the error
// returned.
func (s *Session) Start(ctx context.Context) error {
	s.engine.Start()
	if err := s.capture.Start(ctx); err != nil {
		s.engine.Stop()
		return fmt.Errorf("transcribe: start capture: %w", err)
	}
	return nil
}

// Drain moves all currently available ring samples into the engine in
// bounded batches and returns the number of samples forwarded. Call it
// repeatedly from one goroutine at the application's own cadence; it never
// blocks.
func (s *Session) Drain() int {
	total := 0
	for {
		n := s.ring.Read(s.batch)
		if n == 0 {
			return total
		}
		s.engine.Process(s.batch[:n])
		total += n
	}
}

// Stop stops the capture device, forwards any samples still in the ring,
// and shuts the engine down. After Stop returns no callback fires until the
// next Start.
func (s *Session) Stop() error {
	err := s.capture.Stop()
	s.Drain()
	s.engine.Stop()
	if err != nil {
		return fmt.Errorf("transcribe: stop capture: %w", err)
	}
	return nil
}

// Reset stops the engine if needed and clears all session state: the
// accumulation window, the transcript, the sample counter, and any unread
// ring samples.
func (s *Session) Reset() {
	s.engine.Reset()
	s.ring.Reset()
}

// FullText returns the current committed-plus-pending display text.
func (s *Session) FullText() string { return s.engine.FullText() }

// RecordingSeconds returns the duration of audio received since the last
// Reset.
func (s *Session) RecordingSeconds() float64 { return s.engine.RecordingSeconds() }

// SetCallback registers the live-text callback on the engine.
func (s *Session) SetCallback(fn Callback) { s.engine.SetCallback(fn) }

// Dropped returns how many capture samples were discarded because the ring
// was full — a signal that Drain is being called too slowly.
func (s *Session) Dropped() uint64 { return s.ring.Dropped() }

// Close stops the session and releases the capture device.
func (s *Session) Close() error {
	stopErr := s.Stop()
	if err := s.capture.Close(); err != nil {
		return fmt.Errorf("transcribe: close capture: %w", err)
	}
	return stopErr
}
