// Package recovery turns raw model output into structured translation
// results, salvaging what it can and rejecting output that is not actually
// a translation.
package recovery

import (
	"regexp"
	"strings"
)

var (
	codeFenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\n?(.*?)```")

	boilerplatePrefixes = []string{
		"here is the translation:",
		"here's the translation:",
		"here are the translations:",
		"i've translated:",
		"i have translated:",
	}

	smartQuoteReplacer = strings.NewReplacer(
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	)
)

// Preprocess normalizes a raw model response: code fences and emphasis
// markers are stripped, smart quotes become ASCII quotes and leading
// boilerplate phrases are removed.
func Preprocess(raw string) string {
	text := strings.TrimSpace(raw)

	if m := codeFenceRe.FindStringSubmatch(text); len(m) > 1 {
		text = strings.TrimSpace(m[1])
	}

	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = strings.ReplaceAll(text, "`", "")
	text = smartQuoteReplacer.Replace(text)
	text = strings.TrimSpace(text)

	lowered := strings.ToLower(text)
	for _, prefix := range boilerplatePrefixes {
		if strings.HasPrefix(lowered, prefix) && len(text) > len(prefix) {
			text = strings.TrimSpace(text[len(prefix):])
			break
		}
	}

	return text
}
