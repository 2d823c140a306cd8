// Package whisper provides the whisper.cpp-backed implementations of the
// stt.Transcriber contract.
//
// Two adapters are available: Native runs inference in-process through the
// whisper.cpp CGO bindings, Server talks to a running whisper-server binary
// (which exposes a REST API at POST /inference). Both are batch adapters —
// the streaming engine in pkg/transcribe decides when and over which window
// to call them.
package whisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/murmur/pkg/audio"
	"github.com/MrWong99/murmur/pkg/provider/stt"
)

// Compile-time assertion that Server satisfies stt.Transcriber.
var _ stt.Transcriber = (*Server)(nil)

const defaultRequestTimeout = 30 * time.Second

// ServerOption is a functional option for configuring a Server adapter.
type ServerOption func(*Server)

// WithServerLanguage sets the language code sent with each inference request
// (e.g. "en", "de"). Defaults to "en".
func WithServerLanguage(lang string) ServerOption {
	return func(s *Server) { s.language = lang }
}

// WithServerSampleRate sets the sample rate declared in the WAV payload.
// This must match the actual rate of the windows passed to Transcribe.
// Defaults to [audio.DefaultSampleRate].
func WithServerSampleRate(rate int) ServerOption {
	return func(s *Server) { s.sampleRate = rate }
}

// WithServerHTTPClient overrides the HTTP client, e.g. to adjust the
// per-request timeout in tests.
func WithServerHTTPClient(client *http.Client) ServerOption {
	return func(s *Server) { s.httpClient = client }
}

// Server implements stt.Transcriber against a whisper-server instance. Each
// Transcribe call encodes the window as a WAV file and submits it as a
// multipart inference request; carried context tokens travel in the "prompt"
// form field. Request cancellation rides on the ctx passed to Transcribe.
type Server struct {
	serverURL  string
	language   string
	sampleRate int
	httpClient *http.Client
}

// NewServer creates a Server adapter for the whisper-server at serverURL
// (e.g. "http://localhost:8080"). serverURL must be non-empty.
func NewServer(serverURL string, opts ...ServerOption) (*Server, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	s := &Server{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   "en",
		sampleRate: audio.DefaultSampleRate,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close releases idle connections held by the HTTP client.
func (s *Server) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// Transcribe submits the window to whisper-server and returns the recognized
// text. A cancelled ctx aborts the in-flight request; the returned error then
// satisfies errors.Is(err, context.Canceled).
func (s *Server) Transcribe(ctx context.Context, window []float32, prior stt.Context) (stt.Result, error) {
	if len(window) == 0 {
		return stt.Result{}, nil
	}

	wav := encodeWAV(audio.Float32ToInt16LE(window), s.sampleRate)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: write wav data: %w", err)
	}

	if s.language != "" {
		if err := mw.WriteField("language", s.language); err != nil {
			return stt.Result{}, fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if len(prior.Tokens) > 0 {
		if err := mw.WriteField("prompt", strings.Join(prior.Tokens, " ")); err != nil {
			return stt.Result{}, fmt.Errorf("whisper: write prompt field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := s.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// A cancelled ctx surfaces through the url.Error chain, so
		// errors.Is(err, context.Canceled) holds for callers.
		return stt.Result{}, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stt.Result{}, fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	return stt.Result{
		Text:    text,
		Context: contextFromText(text),
	}, nil
}

// encodeWAV wraps raw 16-bit signed little-endian mono PCM data in a
// standard RIFF/WAV container suitable for a multipart upload.
func encodeWAV(pcm []byte, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size − 8
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                 // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], 1)                  // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))   // num channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate)) // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))   // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign)) // block align
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)      // bits per sample

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}
