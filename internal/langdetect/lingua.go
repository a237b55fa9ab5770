// Package langdetect wraps a shared lingua detector used by the response
// plausibility checks.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns the ISO 639-1 code of the text's language, or ""
// when the sample is too short or detection is inconclusive.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// MatchesLanguage reports whether text plausibly is the language named by
// the ISO 639-1 code or tag ("es", "pt-BR", "pt_BR"). Inconclusive
// detection counts as a match so short or mixed-script translations are
// not rejected on detector noise alone.
func MatchesLanguage(text, iso6391 string) bool {
	want := primarySubtag(iso6391)
	if len(want) != 2 {
		return true
	}
	got := DetectISO6391(text)
	if got == "" {
		return true
	}
	return got == want
}

// primarySubtag extracts the primary language subtag from a tag, so
// "pt-BR" and "pt_BR" both resolve to "pt".
func primarySubtag(raw string) string {
	tag := strings.ToLower(strings.TrimSpace(raw))
	tag = strings.ReplaceAll(tag, "_", "-")
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		tag = tag[:dash]
	}
	for _, r := range tag {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return tag
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
