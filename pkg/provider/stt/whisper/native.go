// This file contains the Native adapter backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/murmur/pkg/provider/stt"
)

// Compile-time assertion that Native satisfies stt.Transcriber.
var _ stt.Transcriber = (*Native)(nil)

// maxContextTokens bounds the number of carried tokens fed back as the
// initial prompt. whisper.cpp truncates prompts around 224 tokens; staying
// well below keeps the prompt cheap to encode.
const maxContextTokens = 64

// NativeOption is a functional option for configuring a Native adapter.
type NativeOption func(*Native)

// WithNativeLanguage sets the language code for decoding (e.g. "en", "de").
// Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(n *Native) { n.language = lang }
}

// WithNativeThreads sets the inference thread count. Zero (the default)
// derives it from the CPU count, clamped to [4, 16].
func WithNativeThreads(threads int) NativeOption {
	return func(n *Native) { n.threads = threads }
}

// Native implements stt.Transcriber using the whisper.cpp Go bindings (CGO),
// with no server round-trip. The model is loaded once at construction and
// shared across calls; a fresh whisper context is created per call because
// contexts are not reusable across concurrent or aborted runs.
type Native struct {
	model    whisperlib.Model
	language string
	threads  int
}

// NewNative loads the whisper.cpp model from modelPath. The caller must call
// Close when the adapter is no longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*Native, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	n := &Native{
		model:    model,
		language: "en",
	}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Close releases the whisper model.
func (n *Native) Close() error {
	if n.model != nil {
		return n.model.Close()
	}
	return nil
}

// Transcribe runs whisper.cpp inference over the window. Cancellation is
// honoured through the encoder-begin callback: whisper.cpp consults it
// before each encoder run, so an abort takes effect within one encoder
// chunk of the cancel.
func (n *Native) Transcribe(ctx context.Context, window []float32, prior stt.Context) (stt.Result, error) {
	if len(window) == 0 {
		return stt.Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: cancelled before inference: %w", err)
	}

	wctx, err := n.model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create context: %w", err)
	}

	wctx.SetThreads(uint(inferenceThreads(n.threads)))
	if err := wctx.SetLanguage(n.language); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: set language %q: %w", n.language, err)
	}
	if len(prior.Tokens) > 0 {
		wctx.SetInitialPrompt(strings.Join(prior.Tokens, " "))
	}

	encoderBegin := func() bool {
		return ctx.Err() == nil
	}

	if err := wctx.Process(window, encoderBegin, nil, nil); err != nil {
		if ctx.Err() != nil {
			return stt.Result{}, fmt.Errorf("whisper: inference aborted: %w", ctx.Err())
		}
		return stt.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}
	// The abort callback can fire between the last encoder run and Process
	// returning cleanly; a cancelled pass must never surface text.
	if err := ctx.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: inference aborted: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, " ")
	return stt.Result{
		Text:    text,
		Context: contextFromText(text),
	}, nil
}

// contextFromText derives carry-over decoder context from recognized text,
// keeping only the trailing words so the next prompt stays bounded.
func contextFromText(text string) stt.Context {
	words := strings.Fields(text)
	if len(words) > maxContextTokens {
		words = words[len(words)-maxContextTokens:]
	}
	return stt.Context{Tokens: words}
}

// inferenceThreads picks a thread count for whisper.cpp: the configured
// value when positive, otherwise the CPU count clamped to [4, 16].
func inferenceThreads(configured int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.NumCPU()
	if n < 4 {
		n = 4
	}
	if n > 16 {
		n = 16
	}
	return n
}
