// Package transcript corrects recognized dictation text against a
// user-supplied dictionary of proper nouns using Double Metaphone phonetic
// encoding combined with Jaro-Winkler similarity.
//
// Speech-to-text models reliably garble uncommon names ("jura" for "Jira",
// "elder nacks" for "Eldrinax"). The corrector replaces a recognized word
// with a dictionary term when the two share a phonetic code and their
// Jaro-Winkler similarity clears a threshold; when no phonetic candidate
// exists, a stricter pure-similarity fallback applies. Correction runs on
// pending text before it is displayed or committed, so committed text is
// corrected exactly once and never rewritten afterwards.
package transcript

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched term to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Corrector) { c.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the corrector falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Corrector) { c.fuzzyThreshold = threshold }
}

// term is a dictionary entry with its precomputed phonetic codes.
type term struct {
	text  string
	lower string
	codes map[string]struct{}
}

// Corrector rewrites recognized text towards a fixed dictionary. It is
// read-only after construction and safe for concurrent use.
type Corrector struct {
	terms             []term
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New creates a Corrector for the given dictionary terms. Blank terms are
// ignored. An empty dictionary yields a Corrector whose Apply is the
// identity function.
func New(dictionary []string, opts ...Option) *Corrector {
	c := &Corrector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	for _, t := range dictionary {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		lower := strings.ToLower(t)
		c.terms = append(c.terms, term{
			text:  t,
			lower: lower,
			codes: phoneticCodes(lower),
		})
	}
	return c
}

// Apply corrects each word of text against the dictionary, preserving
// surrounding punctuation. Words that already match a term exactly
// (case-insensitively) are replaced by the term's canonical casing.
func (c *Corrector) Apply(text string) string {
	if len(c.terms) == 0 || text == "" {
		return text
	}

	words := strings.Fields(text)
	for i, w := range words {
		core, prefix, suffix := trimPunct(w)
		if core == "" {
			continue
		}
		if corrected, ok := c.matchWord(strings.ToLower(core)); ok {
			words[i] = prefix + corrected + suffix
		}
	}
	return strings.Join(words, " ")
}

// matchWord finds the best dictionary term for a lowercased word, following
// the two-stage policy: phonetic candidates ranked by Jaro-Winkler, then a
// stricter pure-similarity fallback.
func (c *Corrector) matchWord(word string) (string, bool) {
	wordCodes := phoneticCodes(word)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)

	for _, t := range c.terms {
		score := matchr.JaroWinkler(word, t.lower, false)
		phonetic := codesOverlap(wordCodes, t.codes)

		if phonetic {
			if score >= c.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				best, bestScore, bestPhonetic = t.text, score, true
			}
		} else if !bestPhonetic {
			if score >= c.fuzzyThreshold && score > bestScore {
				best, bestScore = t.text, score
			}
		}
	}

	if best == "" {
		return word, false
	}
	return best, true
}

// phoneticCodes returns the Double Metaphone codes for a word, excluding
// empty codes (produced when the word is too short or has no consonants).
func phoneticCodes(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// trimPunct splits leading and trailing punctuation off a token so the core
// word can be matched and the punctuation restored around the replacement.
func trimPunct(tok string) (core, prefix, suffix string) {
	start := 0
	for start < len(tok) && isPunct(rune(tok[start])) {
		start++
	}
	end := len(tok)
	for end > start && isPunct(rune(tok[end-1])) {
		end--
	}
	return tok[start:end], tok[:start], tok[end:]
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
