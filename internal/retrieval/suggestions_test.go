package retrieval

import (
	"reflect"
	"testing"
)

// TestParseSuggestions_StripsBulletsAndNumbering covers the formats models
// actually emit.
func TestParseSuggestions_StripsBulletsAndNumbering(t *testing.T) {
	raw := "1. How do I reset my password?\n" +
		"2) Where can I download invoices?\n" +
		"- What does the warranty cover?\n" +
		"• How do I contact support?\n"

	got := ParseSuggestions(raw, 4)
	want := []string{
		"How do I reset my password?",
		"Where can I download invoices?",
		"What does the warranty cover?",
		"How do I contact support?",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseSuggestions = %v, want %v", got, want)
	}
}

// TestParseSuggestions_Deduplicates tests case-insensitive dedup.
func TestParseSuggestions_Deduplicates(t *testing.T) {
	raw := "- How do I pair the device?\n- HOW DO I PAIR THE DEVICE?\n- What is the battery life?\n"

	got := ParseSuggestions(raw, 2)
	if len(got) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d: %v", len(got), got)
	}
	if got[0] != "How do I pair the device?" || got[1] != "What is the battery life?" {
		t.Errorf("Unexpected suggestions: %v", got)
	}
}

// TestParseSuggestions_PadsWithDefaults tests short output gets padded.
func TestParseSuggestions_PadsWithDefaults(t *testing.T) {
	got := ParseSuggestions("- Only one suggestion here?\n", 3)
	if len(got) != 3 {
		t.Fatalf("Expected 3 suggestions, got %d: %v", len(got), got)
	}
	if got[0] != "Only one suggestion here?" {
		t.Errorf("Parsed line lost: %v", got)
	}
}

// TestParseSuggestions_EmptyOutput tests fully-default results.
func TestParseSuggestions_EmptyOutput(t *testing.T) {
	got := ParseSuggestions("", 3)
	if !reflect.DeepEqual(got, DefaultSuggestions(3)) {
		t.Errorf("Expected defaults, got %v", got)
	}
}

// TestParseSuggestions_LimitsToN tests the cap.
func TestParseSuggestions_LimitsToN(t *testing.T) {
	raw := "- a?\n- b?\n- c?\n- d?\n"
	got := ParseSuggestions(raw, 2)
	if len(got) != 2 {
		t.Errorf("Expected 2 suggestions, got %v", got)
	}
}
