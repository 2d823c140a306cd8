package whisper

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/murmur/pkg/provider/stt"
)

// inferenceHandler fakes the whisper-server /inference endpoint, capturing
// the submitted form fields.
type inferenceHandler struct {
	text      string
	status    int
	gotWAV    []byte
	gotLang   string
	gotPrompt string
}

func (h *inferenceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/inference" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.gotWAV = data
	h.gotLang = r.FormValue("language")
	h.gotPrompt = r.FormValue("prompt")

	if h.status != 0 && h.status != http.StatusOK {
		http.Error(w, "inference failed", h.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"text": h.text})
}

func TestServer_Transcribe(t *testing.T) {
	t.Parallel()

	h := &inferenceHandler{text: "  hello there \n"}
	ts := httptest.NewServer(h)
	defer ts.Close()

	s, err := NewServer(ts.URL, WithServerLanguage("de"), WithServerSampleRate(16000))
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	defer s.Close()

	res, err := s.Transcribe(context.Background(), make([]float32, 1600), stt.Context{Tokens: []string{"prior", "words"}})
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}

	if res.Text != "hello there" {
		t.Errorf("Text = %q, want %q (trimmed)", res.Text, "hello there")
	}
	if got := res.Context.Tokens; len(got) != 2 || got[0] != "hello" || got[1] != "there" {
		t.Errorf("Context.Tokens = %v, want [hello there]", got)
	}
	if h.gotLang != "de" {
		t.Errorf("language field = %q, want de", h.gotLang)
	}
	if h.gotPrompt != "prior words" {
		t.Errorf("prompt field = %q, want %q", h.gotPrompt, "prior words")
	}

	// Sanity-check the uploaded WAV: RIFF header, 16 kHz mono 16-bit,
	// 2 bytes per sample of payload.
	wav := h.gotWAV
	if len(wav) != 44+1600*2 {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+1600*2)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("wav payload missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("wav sample rate = %d, want 16000", rate)
	}
	if ch := binary.LittleEndian.Uint16(wav[22:24]); ch != 1 {
		t.Errorf("wav channels = %d, want 1", ch)
	}
}

func TestServer_TranscribeEmptyWindowSkipsRequest(t *testing.T) {
	t.Parallel()

	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer ts.Close()

	s, err := NewServer(ts.URL)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	res, err := s.Transcribe(context.Background(), nil, stt.Context{})
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	if res.Text != "" || called {
		t.Errorf("empty window should yield empty result with no request; text=%q called=%v", res.Text, called)
	}
}

func TestServer_TranscribeServerError(t *testing.T) {
	t.Parallel()

	h := &inferenceHandler{status: http.StatusInternalServerError}
	ts := httptest.NewServer(h)
	defer ts.Close()

	s, _ := NewServer(ts.URL)
	_, err := s.Transcribe(context.Background(), make([]float32, 100), stt.Context{})
	if err == nil {
		t.Fatal("expected error for HTTP 500, got nil")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should mention status code, got: %v", err)
	}
}

func TestServer_TranscribeCancelled(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer ts.Close()
	defer close(block)

	s, _ := NewServer(ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := s.Transcribe(ctx, make([]float32, 100), stt.Context{})
		errCh <- err
	}()
	cancel()

	err := <-errCh
	if err == nil {
		t.Fatal("expected error from cancelled request, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should satisfy errors.Is(err, context.Canceled), got: %v", err)
	}
}

func TestNewServer_RequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(""); err == nil {
		t.Error("NewServer(\"\") succeeded, want error")
	}
}

func TestContextFromText_CapsTrailingTokens(t *testing.T) {
	t.Parallel()

	words := make([]string, 100)
	for i := range words {
		words[i] = "w"
	}
	words[99] = "last"

	got := contextFromText(strings.Join(words, " "))
	if len(got.Tokens) != maxContextTokens {
		t.Fatalf("tokens = %d, want %d", len(got.Tokens), maxContextTokens)
	}
	if got.Tokens[maxContextTokens-1] != "last" {
		t.Errorf("last token = %q, want %q (trailing words must be kept)", got.Tokens[maxContextTokens-1], "last")
	}
}

func TestInferenceThreads(t *testing.T) {
	t.Parallel()

	if got := inferenceThreads(8); got != 8 {
		t.Errorf("inferenceThreads(8) = %d, want 8", got)
	}
	if got := inferenceThreads(0); got < 4 || got > 16 {
		t.Errorf("inferenceThreads(0) = %d, want within [4, 16]", got)
	}
}
