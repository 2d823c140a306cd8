package transcript_test

import (
	"testing"

	"github.com/MrWong99/murmur/internal/transcript"
)

func TestCorrector_ExactMatchCanonicalizesCasing(t *testing.T) {
	t.Parallel()

	c := transcript.New([]string{"Grimjaw", "Eldrinax"})
	got := c.Apply("grimjaw waved at ELDRINAX")
	want := "Grimjaw waved at Eldrinax"
	if got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}
}

func TestCorrector_PhoneticMatch(t *testing.T) {
	t.Parallel()

	c := transcript.New([]string{"Jira", "Kubernetes"})

	// "jura" shares Double Metaphone codes with "jira" and clears the
	// similarity threshold.
	got := c.Apply("filed it in jura")
	want := "filed it in Jira"
	if got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}
}

func TestCorrector_UnrelatedWordsUntouched(t *testing.T) {
	t.Parallel()

	c := transcript.New([]string{"Eldrinax"})
	in := "hello banana world"
	if got := c.Apply(in); got != in {
		t.Errorf("Apply(%q) = %q, want unchanged", in, got)
	}
}

func TestCorrector_PreservesPunctuation(t *testing.T) {
	t.Parallel()

	c := transcript.New([]string{"Kubernetes"})
	got := c.Apply("deployed to kubernetes, then slept.")
	want := "deployed to Kubernetes, then slept."
	if got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}
}

func TestCorrector_EmptyDictionaryIsIdentity(t *testing.T) {
	t.Parallel()

	c := transcript.New(nil)
	in := "  spacing   and [brackets] stay  "
	if got := c.Apply(in); got != in {
		t.Errorf("Apply(%q) = %q, want identity", in, got)
	}
}

func TestCorrector_BlankTermsIgnored(t *testing.T) {
	t.Parallel()

	c := transcript.New([]string{"", "  ", "Grimjaw"})
	got := c.Apply("grimjaw nodded")
	want := "Grimjaw nodded"
	if got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}
}

func TestCorrector_ThresholdsRejectWeakMatches(t *testing.T) {
	t.Parallel()

	// An impossible phonetic threshold turns the corrector off for anything
	// short of an exact-scoring match.
	c := transcript.New([]string{"Jira"},
		transcript.WithPhoneticThreshold(1.01),
		transcript.WithFuzzyThreshold(1.01),
	)
	in := "filed it in jura"
	if got := c.Apply(in); got != in {
		t.Errorf("Apply(%q) = %q, want unchanged with strict thresholds", in, got)
	}
}

func TestCorrector_PunctuationOnlyTokens(t *testing.T) {
	t.Parallel()

	c := transcript.New([]string{"Jira"})
	in := "well - yes ..."
	if got := c.Apply(in); got != in {
		t.Errorf("Apply(%q) = %q, want unchanged", in, got)
	}
}
