// Package stt defines the Transcriber contract for speech-to-text backends.
//
// A Transcriber is a batch inference adapter: given a window of mono float32
// audio and the decoder context carried over from earlier windows, it returns
// the recognized text plus fresh context. The streaming behaviour — growing
// windows, commit policy, re-transcription — lives entirely in
// pkg/transcribe; adapters stay stateless between calls apart from the model
// they hold.
//
// Cancellation is cooperative: once the ctx passed to Transcribe is
// cancelled, the adapter must return promptly with an error satisfying
// errors.Is(err, context.Canceled). Any other error is treated by the engine
// as a failed pass — non-fatal, retried on the next scheduled window.
package stt

import "context"

// Context is the opaque decoder state carried across Transcribe calls so
// that recognition stays coherent at window boundaries (mid-sentence state,
// spelling consistency). Adapters define the meaning of the tokens; callers
// only store and pass them back.
type Context struct {
	// Tokens is the adapter-specific context token sequence. May be empty.
	Tokens []string
}

// Result is the outcome of a successful Transcribe call.
type Result struct {
	// Text is the recognized text for the whole window.
	Text string

	// Context is the decoder state to pass into a future call that should
	// continue from this window.
	Context Context
}

// Transcriber is the abstraction over any batch speech-to-text backend.
//
// Implementations must be safe for sequential reuse; murmur calls Transcribe
// from a single engine goroutine at a time. They may block for as long as
// inference takes — responsiveness is obtained through ctx cancellation, not
// internal deadlines.
type Transcriber interface {
	// Transcribe runs inference over window (mono float32 samples at the
	// configured sample rate), seeded with the prior decoder context.
	Transcribe(ctx context.Context, window []float32, prior Context) (Result, error)

	// Close releases the backend's resources (loaded models, HTTP clients).
	Close() error
}
