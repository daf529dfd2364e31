package guide

import (
	"fmt"
	"strings"

	"github.com/csheth/voiceletter/internal/letter"
)

// Step represents one actionable recommendation in the letter-writing workflow.
type Step struct {
	Title       string
	Description string
}

// Metadata carries just enough context for personalizing guide steps.
type Metadata struct {
	Sender    string
	Recipient string
	Language  letter.Language
}

// Build returns a short speak-then-polish checklist for a single letter.
func Build(meta Metadata) []Step {
	recipient := strings.TrimSpace(meta.Recipient)
	if recipient == "" {
		recipient = "the person you are writing to"
	}
	signoff := "The letter closes without a signature line."
	if sender := strings.TrimSpace(meta.Sender); sender != "" {
		signoff = fmt.Sprintf("The letter is signed as %s.", sender)
	}
	language := "English"
	if meta.Language == letter.LanguageJapanese {
		language = "Japanese"
	}

	return []Step{
		{
			Title:       "Speak freely",
			Description: fmt.Sprintf("Talk to %s as if they were in the room. Filler words and restarts are fine; the draft smooths them out.", recipient),
		},
		{
			Title:       "Cover one memory",
			Description: "A single concrete moment reads warmer than a list. Mention where it happened and how it felt.",
		},
		{
			Title:       "Stop and review",
			Description: fmt.Sprintf("The draft is written in %s. %s", language, signoff),
		},
		{
			Title:       "Polish or regenerate",
			Description: "Edit the draft directly, or regenerate from your edits when the tone is off.",
		},
		{
			Title:       "Export",
			Description: "Save as plain text, a printable PDF, or an image to share in a chat.",
		},
	}
}
