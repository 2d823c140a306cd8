package transcribe_test

import (
	"testing"

	"github.com/MrWong99/murmur/pkg/transcribe"
)

func TestStripAnnotations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello world", "hello world"},
		{"bracket annotation removed", "[BLANK_AUDIO]", ""},
		{"paren annotation removed", "(wind blowing)", ""},
		{"annotation amid speech", "hello [NOISE] world", "hello world"},
		{"leading annotation", "[MUSIC] so anyway", "so anyway"},
		{"trailing annotation", "and done (laughs)", "and done"},
		{"multiple annotations", "[a] one (b) two [c]", "one two"},
		{"unterminated bracket kept", "array[3 is odd", "array[3 is odd"},
		{"unterminated paren kept", "f(x and more", "f(x and more"},
		{"whitespace collapsed", "  hello   [x]   world  ", "hello world"},
		{"empty input", "", ""},
		{"only whitespace", "   ", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := transcribe.StripAnnotations(tc.in); got != tc.want {
				t.Errorf("StripAnnotations(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
