// Package prompt substitutes run data into group prompt templates.
package prompt

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/lingotab/lingotab/internal/domain"
)

// Recognized placeholders. {text}, {key} and {source} describe one entry;
// {csv_data} renders all entries with a header, {csv_row} without one.
const (
	PlaceholderText     = "{text}"
	PlaceholderKey      = "{key}"
	PlaceholderSource   = "{source}"
	PlaceholderLanguage = "{language}"
	PlaceholderCSVData  = "{csv_data}"
	PlaceholderCSVRow   = "{csv_row}"
	PlaceholderCount    = "{count}"
)

// Phrases that signal the template expects CSV input even though it uses
// no data placeholder.
var csvIntentPhrases = []string{
	"csv snippet",
	"csv format",
	"csv fields",
	"csv data",
	"csv rows",
	"comma-separated",
	"comma separated",
}

// Render substitutes placeholders into the group's prompts for the given
// entries. When the template's wording implies CSV input but no data
// placeholder is present, the full CSV block is appended so the template
// is never sent without the data it expects.
func Render(group *domain.Group, records []domain.Record) (system, user string) {
	replacer := newReplacer(group, records)
	system = replacer.Replace(group.SystemPrompt)
	user = replacer.Replace(group.UserPromptTemplate)

	if impliesCSVInput(group.UserPromptTemplate) && !usesDataPlaceholder(group.UserPromptTemplate) {
		user = user + "\n\n" + CSVData(records)
	}
	return system, user
}

func newReplacer(group *domain.Group, records []domain.Record) *strings.Replacer {
	var text, key, source string
	if len(records) == 1 {
		text = records[0].Text
		key = records[0].Key
		source = records[0].Source
	} else {
		texts := make([]string, len(records))
		for i, rec := range records {
			texts[i] = rec.Text
		}
		text = strings.Join(texts, "\n")
	}

	return strings.NewReplacer(
		PlaceholderText, text,
		PlaceholderKey, key,
		PlaceholderSource, source,
		PlaceholderLanguage, group.Name,
		PlaceholderCSVData, CSVData(records),
		PlaceholderCSVRow, csvRows(records),
		PlaceholderCount, strconv.Itoa(len(records)),
	)
}

func usesDataPlaceholder(template string) bool {
	return strings.Contains(template, PlaceholderText) ||
		strings.Contains(template, PlaceholderCSVData) ||
		strings.Contains(template, PlaceholderCSVRow)
}

func impliesCSVInput(template string) bool {
	lowered := strings.ToLower(template)
	for _, phrase := range csvIntentPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// CSVData renders all entries as CSV with a key,source,text header.
func CSVData(records []domain.Record) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"key", "source", "text"})
	for _, rec := range records {
		_ = w.Write([]string{rec.Key, rec.Source, rec.Text})
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func csvRows(records []domain.Record) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	for _, rec := range records {
		_ = w.Write([]string{rec.Key, rec.Source, rec.Text})
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
