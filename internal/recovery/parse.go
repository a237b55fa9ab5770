package recovery

import (
	"encoding/csv"
	"strings"

	"github.com/lingotab/lingotab/internal/domain"
)

// Reasoning strings attached to recovered and sentinel results.
const (
	ReasonAcknowledgment = "AI returned acknowledgment text instead of translation"
	ReasonParseFailure   = "Failed to parse AI response"
	ReasonNoReasoning    = "No reasoning provided"
	ReasonLabeledLine    = "Recovered from labeled line"
	ReasonCommaSalvage   = "Recovered from malformed CSV"
	ReasonPlainText      = "Recovered from plain text response"
)

// ParseSingle recovers one translation result from a raw single-task
// response. It never fails: an unrecoverable response degrades to an
// Error-category sentinel carrying the original text.
func ParseSingle(raw, expectedKey, sourceText, targetLanguage string) domain.Result {
	clean := Preprocess(raw)
	if clean == "" {
		return domain.ErrorResult(sourceText, ReasonParseFailure)
	}

	if isAcknowledgment(clean) {
		return domain.ErrorResult(sourceText, ReasonAcknowledgment)
	}

	if res, ok := parseStructured(clean, expectedKey); ok {
		return res
	}

	if m := labeledLineRe.FindStringSubmatch(clean); len(m) > 1 {
		candidate := strings.Trim(strings.TrimSpace(m[1]), `"'`)
		if candidate != "" {
			return domain.Result{
				Translation: candidate,
				Category:    domain.CategoryUnknown,
				Reasoning:   ReasonLabeledLine,
			}
		}
	}

	if strings.Contains(clean, ",") {
		if res, ok := salvageFirstComma(clean, sourceText); ok {
			return res
		}
		return domain.ErrorResult(sourceText, ReasonParseFailure)
	}

	// No comma-bearing structure: the whole cleaned text is the candidate,
	// gated by the plausibility checks when a target language is known.
	if targetLanguage != "" {
		if verdict := Validate(clean, sourceText, targetLanguage); !verdict.OK {
			return domain.ErrorResult(sourceText, verdict.Reason)
		}
	}

	return domain.Result{
		Translation: clean,
		Category:    domain.CategoryUnknown,
		Reasoning:   ReasonPlainText,
	}
}

// parseStructured treats the response as CSV rows. For a single task it
// prefers the row whose first field equals the expected key and otherwise
// falls back to the first data row.
func parseStructured(clean, expectedKey string) (domain.Result, bool) {
	rows := parseRows(clean)
	if len(rows) == 0 {
		return domain.Result{}, false
	}

	if expectedKey != "" {
		for _, r := range rows {
			if strings.TrimSpace(r[0]) == expectedKey && len(r) >= 2 {
				// The matched row starts with the key; the fields after it
				// are translation, category, reasoning.
				return keyedRowToResult(r), true
			}
		}
	}

	return rowToResult(rows[0])
}

// keyedRowToResult maps a row known to start with the record key.
func keyedRowToResult(row []string) domain.Result {
	res := domain.Result{
		Translation: strings.TrimSpace(row[1]),
		Category:    domain.CategoryUnknown,
		Reasoning:   ReasonNoReasoning,
	}
	if len(row) >= 3 {
		res.Category = defaultIfEmpty(row[2], domain.CategoryUnknown)
	}
	if len(row) >= 4 {
		res.Reasoning = defaultIfEmpty(row[3], ReasonNoReasoning)
	}
	return res
}

// rowToResult maps one CSV row onto a result. Rows with at least four
// fields are (key, translation, category, reasoning); rows with two or
// three fields start at the translation.
func rowToResult(row []string) (domain.Result, bool) {
	switch {
	case len(row) >= 4:
		return domain.Result{
			Translation: strings.TrimSpace(row[1]),
			Category:    defaultIfEmpty(row[2], domain.CategoryUnknown),
			Reasoning:   defaultIfEmpty(row[3], ReasonNoReasoning),
		}, true
	case len(row) == 3:
		return domain.Result{
			Translation: strings.TrimSpace(row[0]),
			Category:    defaultIfEmpty(row[1], domain.CategoryUnknown),
			Reasoning:   defaultIfEmpty(row[2], ReasonNoReasoning),
		}, true
	case len(row) == 2:
		return domain.Result{
			Translation: strings.TrimSpace(row[0]),
			Category:    defaultIfEmpty(row[1], domain.CategoryUnknown),
			Reasoning:   ReasonNoReasoning,
		}, true
	}
	return domain.Result{}, false
}

// parseRows splits the cleaned text into CSV data rows, dropping header
// lines and rows with fewer than two fields.
func parseRows(clean string) [][]string {
	rows := make([][]string, 0, 4)
	for _, line := range strings.Split(clean, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isHeaderLine(line) {
			continue
		}

		reader := csv.NewReader(strings.NewReader(line))
		reader.FieldsPerRecord = -1
		fields, err := reader.Read()
		if err != nil || len(fields) < 2 {
			continue
		}
		rows = append(rows, fields)
	}
	return rows
}

func isHeaderLine(line string) bool {
	lowered := strings.ToLower(line)
	if !strings.Contains(lowered, "key") {
		return false
	}
	return strings.Contains(lowered, "translation") || strings.Contains(lowered, "category")
}

// salvageFirstComma splits a comma-bearing line that failed CSV parsing and
// takes the second segment as the candidate translation, accepting it only
// when it differs from the source text.
func salvageFirstComma(clean, sourceText string) (domain.Result, bool) {
	idx := strings.Index(clean, ",")
	if idx < 0 || idx == len(clean)-1 {
		return domain.Result{}, false
	}

	candidate := strings.Trim(strings.TrimSpace(clean[idx+1:]), `"'`)
	if candidate == "" || strings.EqualFold(candidate, strings.TrimSpace(sourceText)) {
		return domain.Result{}, false
	}

	return domain.Result{
		Translation: candidate,
		Category:    domain.CategoryUnknown,
		Reasoning:   ReasonCommaSalvage,
	}, true
}

func defaultIfEmpty(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
