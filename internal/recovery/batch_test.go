package recovery

import (
	"testing"
)

func TestParseBatch_AllKeysRecovered(t *testing.T) {
	t.Parallel()

	raw := "key,translation,category,reasoning\n" +
		`greeting.hi,"¡Hola!",Onboarding,"Friendly"` + "\n" +
		`menu.settings,"Ajustes",Navigation,"Menu label"`

	results := ParseBatch(raw, []BatchItem{
		{Key: "greeting.hi", SourceText: "Hi"},
		{Key: "menu.settings", SourceText: "Settings"},
	})

	if len(results) != 2 {
		t.Fatalf("unexpected result count: %d", len(results))
	}
	if results["greeting.hi"].Translation != "¡Hola!" {
		t.Fatalf("unexpected translation: %q", results["greeting.hi"].Translation)
	}
	if results["menu.settings"].Translation != "Ajustes" {
		t.Fatalf("unexpected translation: %q", results["menu.settings"].Translation)
	}
}

func TestParseBatch_FuzzyKeyRecovery(t *testing.T) {
	t.Parallel()

	raw := `Menu_Settings,"Ajustes",Navigation,"Menu label"`
	results := ParseBatch(raw, []BatchItem{{Key: "menu.settings", SourceText: "Settings"}})

	res := results["menu.settings"]
	if res.IsError() {
		t.Fatalf("expected fuzzy-matched result, got sentinel: %+v", res)
	}
	if res.Translation != "Ajustes" {
		t.Fatalf("unexpected translation: %q", res.Translation)
	}
}

func TestParseBatch_MissingKeyGetsSentinelOthersKept(t *testing.T) {
	t.Parallel()

	raw := `greeting.hi,"¡Hola!",Onboarding,"Friendly"`
	results := ParseBatch(raw, []BatchItem{
		{Key: "greeting.hi", SourceText: "Hi"},
		{Key: "menu.settings", SourceText: "Settings"},
	})

	if results["greeting.hi"].IsError() {
		t.Fatalf("recovered sibling key must be kept: %+v", results["greeting.hi"])
	}

	missing := results["menu.settings"]
	if !missing.IsError() {
		t.Fatalf("expected sentinel for unmatched key, got %+v", missing)
	}
	if missing.Translation != "Settings" || missing.Reasoning != ReasonKeyMissing {
		t.Fatalf("unexpected sentinel: %+v", missing)
	}
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	if normalizeKey("Menu_Settings-2") != "menusettings2" {
		t.Fatalf("unexpected normalization: %q", normalizeKey("Menu_Settings-2"))
	}
}
