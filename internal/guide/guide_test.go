package guide

import (
	"strings"
	"testing"

	"github.com/csheth/voiceletter/internal/letter"
)

func TestBuildPersonalizesSteps(t *testing.T) {
	steps := Build(Metadata{Sender: "Ken", Recipient: "Grandma", Language: letter.LanguageJapanese})
	if len(steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(steps))
	}
	if !strings.Contains(steps[0].Description, "Grandma") {
		t.Fatalf("recipient missing from first step: %q", steps[0].Description)
	}
	if !strings.Contains(steps[2].Description, "Japanese") || !strings.Contains(steps[2].Description, "Ken") {
		t.Fatalf("review step not personalized: %q", steps[2].Description)
	}
}

func TestBuildFallsBackWithoutNames(t *testing.T) {
	steps := Build(Metadata{Sender: "  ", Language: letter.LanguageEnglish})
	if !strings.Contains(steps[0].Description, "the person you are writing to") {
		t.Fatalf("unexpected fallback recipient: %q", steps[0].Description)
	}
	if !strings.Contains(steps[2].Description, "without a signature") {
		t.Fatalf("unexpected fallback signoff: %q", steps[2].Description)
	}
}
