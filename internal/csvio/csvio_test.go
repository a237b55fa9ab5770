package csvio

import (
	"strings"
	"testing"

	"github.com/lingotab/lingotab/internal/domain"
)

func TestReadRecords(t *testing.T) {
	t.Parallel()

	input := "key,source,text\ngreeting.hi,Hello,Hello\nfarewell.bye,Goodbye,\"Goodbye, friend\"\n"
	records, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("record count = %d", len(records))
	}
	if records[1].Text != "Goodbye, friend" {
		t.Fatalf("quoted field mishandled: %+v", records[1])
	}
}

func TestReadRecords_HeaderCaseInsensitive(t *testing.T) {
	t.Parallel()

	input := "Key,Source,Text,notes\na,En,Hello,extra\n"
	records, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if records[0].Key != "a" || records[0].Text != "Hello" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestReadRecords_RejectsDuplicateKeys(t *testing.T) {
	t.Parallel()

	input := "key,source,text\na,En,Hello\na,En,Hi\n"
	if _, err := ReadRecords(strings.NewReader(input)); err == nil {
		t.Fatal("expected duplicate-key error")
	}
}

func TestReadRecords_RejectsBadHeader(t *testing.T) {
	t.Parallel()

	if _, err := ReadRecords(strings.NewReader("id,source,text\na,En,Hello\n")); err == nil {
		t.Fatal("expected header error")
	}
	if _, err := ReadRecords(strings.NewReader("")); err == nil {
		t.Fatal("expected empty-input error")
	}
	if _, err := ReadRecords(strings.NewReader("key,source,text\n")); err == nil {
		t.Fatal("expected no-records error")
	}
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	records := []domain.Record{
		{Key: "a", Source: "En", Text: "Hello"},
		{Key: "b", Source: "En", Text: "Bye"},
	}
	groups := []*domain.Group{
		{ID: "g1", Name: "Spanish", Provider: domain.ProviderOpenAI, OutputColumn: "es"},
	}
	table := domain.Table{}
	table.Set("g1", "a", domain.Result{Translation: "Hola"})
	table.Set("g1", "b", domain.ErrorResult("Bye", "Request failed"))

	var b strings.Builder
	if err := WriteTable(&b, table, records, groups, false); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("line count = %d: %q", len(lines), b.String())
	}
	if lines[0] != "key,source,text,es" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "a,En,Hello,Hola" {
		t.Fatalf("first row = %q", lines[1])
	}
	// A sentinel still writes the original text into the output column.
	if lines[2] != "b,En,Bye,Bye" {
		t.Fatalf("second row = %q", lines[2])
	}
}

func TestWriteTable_WithMetadata(t *testing.T) {
	t.Parallel()

	records := []domain.Record{{Key: "a", Source: "En", Text: "Hello"}}
	groups := []*domain.Group{
		{ID: "g1", Name: "Spanish", Provider: domain.ProviderOpenAI, OutputColumn: "es"},
	}
	table := domain.Table{}
	table.Set("g1", "a", domain.Result{Translation: "Hola", Category: "UI", Reasoning: "greeting"})

	var b strings.Builder
	if err := WriteTable(&b, table, records, groups, true); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if lines[0] != "key,source,text,es,es Category,es Reasoning" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "a,En,Hello,Hola,UI,greeting" {
		t.Fatalf("row = %q", lines[1])
	}
}
