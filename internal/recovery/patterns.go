package recovery

import "regexp"

// Acknowledgment patterns catch responses where the model narrates what it
// is about to do instead of doing it. Checked before structural parsing:
// acknowledgment text can contain commas and superficially resemble a row.
var acknowledgmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i'?ll\s+(?:output|return|provide)`),
	regexp.MustCompile(`(?i)i\s+will\s+(?:output|return|provide)`),
	regexp.MustCompile(`(?i)format\s+you\s+(?:specified|requested)`),
	regexp.MustCompile(`(?i)four\s+csv\s+fields`),
	regexp.MustCompile(`(?i)^here\s+is\s+the\s+translation\b`),
	regexp.MustCompile(`(?i)^sure[,.!]`),
	regexp.MustCompile(`(?i)^(?:okay|ok)[,.!]`),
	regexp.MustCompile(`(?i)^understood\b`),
}

// Failure phrases mark responses where the model asked for input or refused
// instead of translating.
var failurePhrasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i'?m\s+ready\s+to\s+translate`),
	regexp.MustCompile(`(?i)i\s+am\s+ready\s+to\s+translate`),
	regexp.MustCompile(`(?i)please\s+provide`),
	regexp.MustCompile(`(?i)\bsorry\b`),
	regexp.MustCompile(`(?i)i\s+cannot\b`),
	regexp.MustCompile(`(?i)i\s+can'?t\b`),
	regexp.MustCompile(`(?i)as\s+an\s+ai\b`),
}

// Style descriptors the model sometimes echoes back instead of a
// translation ("concise", "formal tone", ...).
var styleDescriptorWords = map[string]struct{}{
	"concise":      {},
	"formal":       {},
	"informal":     {},
	"casual":       {},
	"literal":      {},
	"natural":      {},
	"professional": {},
	"friendly":     {},
	"neutral":      {},
	"tone":         {},
	"style":        {},
}

// Labeled-line prefixes used by the pattern-extraction fallback.
var labeledLineRe = regexp.MustCompile(`(?im)^\s*(?:translation|translated|result)\s*:\s*(.+)$`)

func isAcknowledgment(text string) bool {
	for _, re := range acknowledgmentPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func matchesFailurePhrase(text string) bool {
	for _, re := range failurePhrasePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
