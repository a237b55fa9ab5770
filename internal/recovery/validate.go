package recovery

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lingotab/lingotab/internal/langdetect"
)

// Confidence scoring: every failed check subtracts checkPenalty from a
// score starting at fullConfidence; the candidate is accepted only while
// the score stays at or above acceptThreshold.
const (
	fullConfidence  = 100
	acceptThreshold = 50
	checkPenalty    = 60
)

// Verdict is the outcome of the plausibility validation.
type Verdict struct {
	OK         bool
	Confidence int
	Reason     string
}

// Validate scores a candidate translation against the heuristics that
// catch non-translations: too short, identical to the source, a known
// failure phrase, a bare style descriptor, or text that cannot be the
// target language.
func Validate(candidate, sourceText, targetLanguage string) Verdict {
	confidence := fullConfidence
	reasons := make([]string, 0, 2)

	fail := func(reason string) {
		confidence -= checkPenalty
		reasons = append(reasons, reason)
	}

	trimmed := strings.TrimSpace(candidate)
	if len([]rune(trimmed)) < 3 {
		fail("translation shorter than 3 characters")
	}
	if strings.EqualFold(trimmed, strings.TrimSpace(sourceText)) {
		fail("translation identical to source text")
	}
	if matchesFailurePhrase(trimmed) {
		fail("AI returned a failure phrase instead of translation")
	}
	if isBareStyleDescriptor(trimmed) {
		fail("AI echoed a style descriptor instead of translation")
	}
	if !plausibleForLanguage(trimmed, targetLanguage) {
		fail(fmt.Sprintf("translation failed %s plausibility check", targetLanguage))
	}

	if confidence < acceptThreshold {
		return Verdict{
			OK:         false,
			Confidence: confidence,
			Reason:     strings.Join(reasons, "; "),
		}
	}
	return Verdict{OK: true, Confidence: confidence}
}

func isBareStyleDescriptor(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 || len(words) > 2 {
		return false
	}
	for _, word := range words {
		word = strings.Trim(word, ".,:;!?\"'")
		if _, ok := styleDescriptorWords[word]; !ok {
			return false
		}
	}
	return true
}

var spanishFunctionWords = map[string]struct{}{
	"el": {}, "la": {}, "los": {}, "las": {}, "de": {}, "del": {},
	"en": {}, "que": {}, "un": {}, "una": {}, "es": {}, "y": {},
	"o": {}, "por": {}, "con": {}, "para": {}, "no": {}, "se": {},
}

// ISO 639-1 codes for the lingua-backed fallback check, keyed by the
// language display names groups use.
var languageISOCodes = map[string]string{
	"english":    "en",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"russian":    "ru",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"arabic":     "ar",
	"turkish":    "tr",
	"vietnamese": "vi",
	"indonesian": "id",
}

// plausibleForLanguage applies a language-specific sanity check: script
// presence for Devanagari- and Kannada-script languages, function words
// for Spanish, and lingua detection for other known languages. Unknown
// language names pass.
func plausibleForLanguage(text, targetLanguage string) bool {
	lang := strings.ToLower(strings.TrimSpace(targetLanguage))
	switch lang {
	case "hindi", "marathi", "nepali":
		return containsScript(text, unicode.Devanagari)
	case "kannada":
		return containsScript(text, unicode.Kannada)
	case "tamil":
		return containsScript(text, unicode.Tamil)
	case "telugu":
		return containsScript(text, unicode.Telugu)
	case "bengali":
		return containsScript(text, unicode.Bengali)
	case "spanish":
		return plausibleSpanish(text)
	}

	if code, ok := languageISOCodes[lang]; ok {
		return langdetect.MatchesLanguage(text, code)
	}
	return true
}

func containsScript(text string, script *unicode.RangeTable) bool {
	for _, r := range text {
		if unicode.Is(script, r) {
			return true
		}
	}
	return false
}

// plausibleSpanish requires at least one common function word once the
// candidate is long enough that its absence is suspicious.
func plausibleSpanish(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) <= 3 {
		return true
	}
	for _, word := range words {
		word = strings.Trim(word, ".,:;!?\"'¿¡()")
		if _, ok := spanishFunctionWords[word]; ok {
			return true
		}
	}
	return false
}
