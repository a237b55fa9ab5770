package recovery

import (
	"strings"

	"github.com/lingotab/lingotab/internal/domain"
)

// ReasonKeyMissing marks a requested key with no recoverable row in a
// batch response.
const ReasonKeyMissing = "No translation found in batch response for this key"

// BatchItem names one requested key and its original text, used for
// sentinel fill when the key cannot be recovered.
type BatchItem struct {
	Key        string
	SourceText string
}

// ParseBatch recovers a key-to-result map from a raw batch response. Every
// requested key gets an entry: recovered rows where possible, fuzzy-matched
// rows where the provider mangled the key column, and Error sentinels for
// the rest. A partial response never discards the rows that were recovered.
func ParseBatch(raw string, requested []BatchItem) map[string]domain.Result {
	results := make(map[string]domain.Result, len(requested))

	clean := Preprocess(raw)
	recovered := make(map[string]domain.Result)
	for _, row := range parseRows(clean) {
		if len(row) < 2 {
			continue
		}
		key := strings.TrimSpace(row[0])
		if key == "" {
			continue
		}
		recovered[key] = keyedRowToResult(row)
	}

	matched := make(map[string]bool, len(recovered))
	for _, item := range requested {
		if res, ok := recovered[item.Key]; ok {
			results[item.Key] = res
			matched[item.Key] = true
		}
	}

	if len(results) < len(requested) {
		fuzzyRecoverKeys(requested, recovered, matched, results)
	}

	for _, item := range requested {
		if _, ok := results[item.Key]; !ok {
			results[item.Key] = domain.ErrorResult(item.SourceText, ReasonKeyMissing)
		}
	}

	return results
}

// fuzzyRecoverKeys adopts recovered rows whose keys differ from requested
// keys only in case or punctuation, which some providers mangle.
func fuzzyRecoverKeys(
	requested []BatchItem,
	recovered map[string]domain.Result,
	matched map[string]bool,
	results map[string]domain.Result,
) {
	normalized := make(map[string]string, len(recovered))
	for key := range recovered {
		if matched[key] {
			continue
		}
		normalized[normalizeKey(key)] = key
	}

	for _, item := range requested {
		if _, ok := results[item.Key]; ok {
			continue
		}
		recoveredKey, ok := normalized[normalizeKey(item.Key)]
		if !ok {
			continue
		}
		results[item.Key] = recovered[recoveredKey]
		matched[recoveredKey] = true
	}
}

// normalizeKey lowercases and strips every non-alphanumeric rune.
func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
