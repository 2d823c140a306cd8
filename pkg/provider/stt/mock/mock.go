// Package mock provides a scripted test double for the stt.Transcriber
// contract.
//
// Set the exported fields before use; inspect the Calls slice after. The
// mock honours ctx cancellation during its optional artificial delay, which
// makes it suitable for exercising the engine's stop-during-inference path.
//
// Example:
//
//	tr := &mock.Transcriber{
//	    Results: []stt.Result{{Text: "hello"}},
//	    Delay:   20 * time.Millisecond,
//	}
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/murmur/pkg/provider/stt"
)

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Call records a single invocation of Transcribe.
type Call struct {
	// WindowLen is the number of samples in the window.
	WindowLen int

	// Prior is the decoder context passed in.
	Prior stt.Context
}

// Transcriber is a scripted mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Results are returned in order by successive Transcribe calls. When
	// exhausted, the last result repeats. When empty, Transcribe echoes
	// "window:<len>" so tests can correlate output with input size.
	Results []stt.Result

	// Err, if non-nil, is returned by every Transcribe call.
	Err error

	// Delay is slept (cancellably) inside Transcribe before returning,
	// simulating model latency.
	Delay time.Duration

	// Calls records every invocation.
	Calls []Call

	// CallCountClose records how many times Close was called.
	CallCountClose int

	next int
}

// Transcribe records the call, waits Delay (aborting on ctx cancellation),
// and returns the next scripted result.
func (t *Transcriber) Transcribe(ctx context.Context, window []float32, prior stt.Context) (stt.Result, error) {
	t.mu.Lock()
	t.Calls = append(t.Calls, Call{WindowLen: len(window), Prior: prior})
	delay := t.Delay
	err := t.Err
	var res stt.Result
	if len(t.Results) > 0 {
		i := t.next
		if i >= len(t.Results) {
			i = len(t.Results) - 1
		}
		res = t.Results[i]
		t.next++
	} else {
		res = stt.Result{Text: fmt.Sprintf("window:%d", len(window))}
	}
	t.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return stt.Result{}, fmt.Errorf("mock: transcribe aborted: %w", ctx.Err())
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("mock: transcribe aborted: %w", err)
	}
	if err != nil {
		return stt.Result{}, err
	}
	return res, nil
}

// Close records the call and returns nil.
func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CallCountClose++
	return nil
}

// CallCount returns the number of Transcribe invocations so far.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
