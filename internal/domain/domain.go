// Package domain contains the core types shared by the translation engine
// and its boundary adapters.
package domain

// Provider names form a small fixed set; a Group referencing anything else
// is a caller error.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// KnownProvider reports whether name is one of the supported providers.
func KnownProvider(name string) bool {
	switch name {
	case ProviderOpenAI, ProviderGemini, ProviderAnthropic:
		return true
	}
	return false
}

// Record is one immutable unit of translatable content. Keys are unique
// within a run; duplicates are a caller error and are not engine-checked.
type Record struct {
	Key    string `json:"key"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Group status values reported alongside progress.
const (
	GroupStatusPending = "pending"
	GroupStatusRunning = "running"
	GroupStatusDone    = "done"
)

// Group describes one target-language configuration. The engine treats all
// fields except Status and Progress as read-only.
type Group struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Provider           string `json:"provider"`
	Model              string `json:"model"`
	SystemPrompt       string `json:"system_prompt"`
	UserPromptTemplate string `json:"user_prompt_template"`
	OutputColumn       string `json:"output_column"`

	// Ephemeral run-reporting state, mutated only by the scheduler.
	Status   string `json:"status,omitempty"`
	Progress int    `json:"progress,omitempty"`
}

// CategoryError marks a sentinel result produced for a failed task.
const CategoryError = "Error"

// CategoryUnknown is the default for best-effort metadata fields.
const CategoryUnknown = "Unknown"

// Result is the translation produced for one (record, group) pair.
// Category and Reasoning are best-effort metadata.
type Result struct {
	Translation string `json:"translation"`
	Category    string `json:"category"`
	Reasoning   string `json:"reasoning"`
}

// IsError reports whether the result is a failure sentinel.
func (r Result) IsError() bool {
	return r.Category == CategoryError
}

// ErrorResult builds a failure sentinel carrying the original text, so a
// failed task still produces a well-formed table entry.
func ErrorResult(originalText, reasoning string) Result {
	return Result{
		Translation: originalText,
		Category:    CategoryError,
		Reasoning:   reasoning,
	}
}

// Task is the atomic unit of scheduling: one (record, group) pair.
type Task struct {
	Record Record
	Group  *Group
}

// Table maps group id -> record key -> result. Every (group, record) pair
// in a run's input ends up with an entry, failures included.
type Table map[string]map[string]Result

// Set stores a result, allocating the group map on first write.
func (t Table) Set(groupID, key string, res Result) {
	group, ok := t[groupID]
	if !ok {
		group = make(map[string]Result)
		t[groupID] = group
	}
	group[key] = res
}

// Get looks up a result; ok is false for absent entries.
func (t Table) Get(groupID, key string) (Result, bool) {
	group, ok := t[groupID]
	if !ok {
		return Result{}, false
	}
	res, ok := group[key]
	return res, ok
}
