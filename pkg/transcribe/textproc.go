package transcribe

import "strings"

// StripAnnotations removes non-speech markers that whisper-style models emit
// for noise or silence — bracketed or parenthesised spans such as
// "[BLANK_AUDIO]" or "(wind blowing)". Unterminated brackets are kept
// verbatim. The result is trimmed and internal runs of spaces left by
// removed spans are collapsed.
func StripAnnotations(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(text) {
		c := text[i]
		if c == '[' || c == '(' {
			close := byte(']')
			if c == '(' {
				close = ')'
			}
			if end := strings.IndexByte(text[i+1:], close); end >= 0 {
				i += end + 2
				continue
			}
		}
		b.WriteByte(c)
		i++
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
