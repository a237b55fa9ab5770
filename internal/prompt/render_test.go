package prompt

import (
	"strings"
	"testing"

	"github.com/lingotab/lingotab/internal/domain"
)

func testGroup(template string) *domain.Group {
	return &domain.Group{
		ID:                 "g1",
		Name:               "Spanish",
		Provider:           domain.ProviderOpenAI,
		SystemPrompt:       "Translate into {language}.",
		UserPromptTemplate: template,
	}
}

func testRecords() []domain.Record {
	return []domain.Record{
		{Key: "greeting.hi", Source: "home screen", Text: "Hello"},
		{Key: "menu.settings", Source: "nav bar", Text: "Settings"},
	}
}

func TestRender_SingleEntryPlaceholders(t *testing.T) {
	t.Parallel()

	group := testGroup("Translate {text} (key {key}, from {source}) into {language}.")
	system, user := Render(group, testRecords()[:1])

	if system != "Translate into Spanish." {
		t.Fatalf("unexpected system prompt: %q", system)
	}
	want := "Translate Hello (key greeting.hi, from home screen) into Spanish."
	if user != want {
		t.Fatalf("unexpected user prompt: %q", user)
	}
}

func TestRender_CSVDataPlaceholder(t *testing.T) {
	t.Parallel()

	group := testGroup("Translate these {count} rows:\n{csv_data}")
	_, user := Render(group, testRecords())

	if !strings.Contains(user, "key,source,text") {
		t.Fatalf("expected CSV header in prompt: %q", user)
	}
	if !strings.Contains(user, "menu.settings,nav bar,Settings") {
		t.Fatalf("expected CSV row in prompt: %q", user)
	}
	if !strings.Contains(user, "these 2 rows") {
		t.Fatalf("expected count substitution: %q", user)
	}
}

func TestRender_AppendsCSVWhenTemplateImpliesIt(t *testing.T) {
	t.Parallel()

	group := testGroup("Translate the CSV snippet below into {language}.")
	_, user := Render(group, testRecords())

	if !strings.Contains(user, "key,source,text") {
		t.Fatalf("expected auto-appended CSV block: %q", user)
	}
}

func TestRender_NoAppendWhenDataPlaceholderPresent(t *testing.T) {
	t.Parallel()

	group := testGroup("Output four CSV fields for: {csv_data}")
	_, user := Render(group, testRecords())

	if strings.Count(user, "key,source,text") != 1 {
		t.Fatalf("CSV block must not be appended twice: %q", user)
	}
}
