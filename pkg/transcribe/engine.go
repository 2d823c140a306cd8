// Package transcribe implements murmur's streaming transcription core: a
// background engine that re-runs a batch speech-to-text adapter over a
// growing audio window and commits stable text once the window exceeds a
// threshold, plus the Session façade that feeds it from a capture ring
// buffer.
//
// The engine's policy is whole-window re-transcription: every pass decodes
// the entire accumulated window so the model can self-correct earlier
// misrecognitions as more context arrives. The commit threshold bounds that
// cost — once the window outgrows it and the previous pass produced text,
// that text is frozen as committed (never re-litigated) and a fresh window
// starts, with the adapter's decoder context carried across the boundary.
package transcribe

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/murmur/pkg/provider/stt"
)

// Defaults mirror the tuning the pipeline was developed against: a fast
// first partial, then a steady cadence that bounds compute cost.
const (
	DefaultInitialInterval = 300 * time.Millisecond
	DefaultStreamInterval  = 400 * time.Millisecond
	DefaultMinWindow       = 250 * time.Millisecond
	DefaultCommitWindow    = 25 * time.Second
)

// Callback receives the full display text after each completed inference
// pass. It is invoked from the engine's background goroutine and must be
// treated as fire-and-forget: no blocking work, no thread assumptions.
type Callback func(text string)

// PostProcessor rewrites recognized text before it becomes pending text,
// e.g. dictionary-based correction. Applied after annotation stripping.
type PostProcessor func(text string) string

// Observer receives engine bookkeeping events. Implementations must be safe
// for calls from the engine goroutine. The zero engine uses a no-op.
type Observer interface {
	// PassCompleted reports one finished inference pass: the audio window
	// length it decoded, how long the adapter took, and the adapter error
	// (nil on success).
	PassCompleted(window, took time.Duration, err error)

	// Committed reports that pending text was frozen; chars is the length
	// of the full committed text afterwards.
	Committed(chars int)
}

type nopObserver struct{}

func (nopObserver) PassCompleted(time.Duration, time.Duration, error) {}
func (nopObserver) Committed(int)                                     {}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithSampleRate sets the sample rate the window thresholds are derived
// from. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(e *Engine) { e.sampleRate = rate }
}

// WithIntervals sets the wait before the first inference pass and the
// steady-state interval between subsequent passes.
func WithIntervals(initial, stream time.Duration) Option {
	return func(e *Engine) {
		e.initialInterval = initial
		e.streamInterval = stream
	}
}

// WithMinWindow sets the minimum accumulated audio duration below which a
// pass is skipped (too little audio to usefully transcribe).
func WithMinWindow(d time.Duration) Option {
	return func(e *Engine) { e.minWindow = d }
}

// WithCommitWindow sets the accumulated audio duration beyond which the
// previous pass's pending text is committed and the window cleared.
func WithCommitWindow(d time.Duration) Option {
	return func(e *Engine) { e.commitWindow = d }
}

// WithPostProcessor installs a text post-processor applied to every pass's
// recognized text before it is stored as pending.
func WithPostProcessor(p PostProcessor) Option {
	return func(e *Engine) { e.postProcess = p }
}

// WithObserver installs an Observer for pass and commit bookkeeping.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// Engine owns the accumulation window and transcript state and runs the
// background inference loop. All exported methods are safe for concurrent
// use; Process and FullText hold only a short lock and never wait on an
// inference pass.
type Engine struct {
	transcriber stt.Transcriber
	observer    Observer
	postProcess PostProcessor

	sampleRate      int
	initialInterval time.Duration
	streamInterval  time.Duration
	minWindow       time.Duration
	commitWindow    time.Duration

	// mu guards the window and transcript state. It is held only for
	// copies and small mutations, never across a Transcribe call.
	mu         sync.Mutex
	window     []float32
	committed  string
	pending    string
	pendingCtx stt.Context // adapter context from the pass that produced pending
	prior      stt.Context // context fed into passes; replaced on commit
	callback   Callback

	totalSamples atomic.Uint64

	// lifecycle guards the Stopped -> Running -> Stopped transitions.
	lifecycle sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewEngine creates an Engine running inference through t.
func NewEngine(t stt.Transcriber, opts ...Option) *Engine {
	e := &Engine{
		transcriber:     t,
		observer:        nopObserver{},
		sampleRate:      16000,
		initialInterval: DefaultInitialInterval,
		streamInterval:  DefaultStreamInterval,
		minWindow:       DefaultMinWindow,
		commitWindow:    DefaultCommitWindow,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Start launches the background inference loop. It clears the transcript
// state (committed text, pending text, carried context) and returns
// immediately. A no-op when already running.
func (e *Engine) Start() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.running {
		return
	}

	e.mu.Lock()
	e.committed = ""
	e.pending = ""
	e.pendingCtx = stt.Context{}
	e.prior = stt.Context{}
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.running = true
	e.wg.Add(1)
	go e.run(ctx)
}

// Stop cancels any in-flight inference pass, wakes the interval wait, and
// blocks until the background loop has exited. After Stop returns, no
// further callback invocations occur until the next Start. Safe to call
// from any state, including repeatedly.
func (e *Engine) Stop() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if !e.running {
		return
	}
	e.cancel()
	e.wg.Wait()
	e.cancel = nil
	e.running = false
}

// Process appends samples to the accumulation window and advances the
// sample counter. It never triggers inference itself — the background loop
// owns pacing — and is safe to call concurrently with it. Calling Process
// while stopped accumulates audio harmlessly; the next Start clears only
// text state, so pre-buffered audio is transcribed.
func (e *Engine) Process(samples []float32) {
	if len(samples) == 0 {
		return
	}
	e.mu.Lock()
	e.window = append(e.window, samples...)
	e.mu.Unlock()
	e.totalSamples.Add(uint64(len(samples)))
}

// Reset clears the accumulation window, all transcript state, and the
// sample counter. It stops the background loop first when running.
func (e *Engine) Reset() {
	e.Stop()

	e.mu.Lock()
	e.window = e.window[:0]
	e.committed = ""
	e.pending = ""
	e.pendingCtx = stt.Context{}
	e.prior = stt.Context{}
	e.mu.Unlock()
	e.totalSamples.Store(0)
}

// FullText returns the committed text joined with the current pending text.
// It is a non-blocking snapshot and never mutates state.
func (e *Engine) FullText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return joinText(e.committed, e.pending)
}

// RecordingSeconds returns the total duration of audio received via Process
// since the last Reset, regardless of how much has been transcribed.
func (e *Engine) RecordingSeconds() float64 {
	return float64(e.totalSamples.Load()) / float64(e.sampleRate)
}

// SetCallback registers fn to be invoked with the latest FullText after
// each completed inference pass. Pass nil to remove the callback.
func (e *Engine) SetCallback(fn Callback) {
	e.mu.Lock()
	e.callback = fn
	e.mu.Unlock()
}

// run is the background loop: an interruptible timed wait followed by one
// pass per wake. The first wait is shorter so partial text surfaces quickly.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	timer := time.NewTimer(e.initialInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if !e.pass(ctx) {
			return
		}
		timer.Reset(e.streamInterval)
	}
}

// pass performs the commit check, snapshots the window, and runs one
// inference over it. Returns false when the engine is stopping.
func (e *Engine) pass(ctx context.Context) bool {
	minSamples := int(e.minWindow.Seconds() * float64(e.sampleRate))
	commitSamples := int(e.commitWindow.Seconds() * float64(e.sampleRate))

	e.mu.Lock()
	// Commit check: decided on the window as measured before this pass's
	// snapshot and on the previous pass's pending text, so only text that
	// is not mid-formation in the current pass gets frozen.
	committedChars := -1
	if len(e.window) > commitSamples && e.pending != "" {
		e.committed = joinText(e.committed, e.pending)
		e.pending = ""
		e.window = e.window[:0]
		e.prior = e.pendingCtx
		e.pendingCtx = stt.Context{}
		committedChars = len(e.committed)
	}
	window := append([]float32(nil), e.window...)
	prior := e.prior
	e.mu.Unlock()

	if committedChars >= 0 {
		e.observer.Committed(committedChars)
		slog.Debug("committed transcript chunk", "committed_chars", committedChars)
	}

	if len(window) < minSamples {
		return true
	}

	start := time.Now()
	res, err := e.transcriber.Transcribe(ctx, window, prior)
	took := time.Since(start)

	if ctx.Err() != nil {
		// Stop raced this pass; the result (or error) is discarded and no
		// callback fires.
		return false
	}

	windowDur := time.Duration(len(window)) * time.Second / time.Duration(e.sampleRate)
	e.observer.PassCompleted(windowDur, took, err)

	if err != nil {
		// Failed passes are swallowed: the next scheduled pass retries
		// naturally on a larger window.
		slog.Warn("transcription pass failed",
			"err", err,
			"window_seconds", windowDur.Seconds(),
		)
		return true
	}

	text := StripAnnotations(res.Text)
	if e.postProcess != nil {
		text = e.postProcess(text)
	}
	text = strings.TrimSpace(text)

	e.mu.Lock()
	e.pending = text
	e.pendingCtx = res.Context
	full := joinText(e.committed, e.pending)
	cb := e.callback
	e.mu.Unlock()

	if cb != nil {
		cb(full)
	}
	return true
}

// joinText concatenates committed and pending text with a single separating
// space, tolerating either side being empty.
func joinText(committed, pending string) string {
	switch {
	case committed == "":
		return pending
	case pending == "":
		return committed
	default:
		return committed + " " + pending
	}
}
