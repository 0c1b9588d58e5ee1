package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystem(t *testing.T) {
	got := ApplySystem("  Describe the message.\nMore detail.", ModeJSON)
	if !strings.HasPrefix(got, marker) {
		t.Fatalf("missing marker: %q", got)
	}
	if !strings.Contains(got, "Task summary: Describe the message.") {
		t.Fatalf("missing task summary: %q", got)
	}
	if !strings.Contains(got, "JSON object") {
		t.Fatalf("json mode guidance missing: %q", got)
	}
	if !strings.HasSuffix(got, "Describe the message.\nMore detail.") {
		t.Fatalf("original prompt not kept at the end: %q", got)
	}
	if again := ApplySystem(got, ModeJSON); again != got {
		t.Fatalf("not idempotent")
	}
	if ApplySystem("   ", ModeText) != "" {
		t.Fatalf("blank prompt should stay blank")
	}
}
