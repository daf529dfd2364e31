package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/csheth/voiceletter/internal/letter"
	"github.com/csheth/voiceletter/internal/llm"
)

func TestBuildGenericWithoutNames(t *testing.T) {
	msgs, name, err := Default().Build(letter.LanguageJapanese, letter.Context{RawText: "母へ感謝を伝えたい"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if name != Generic {
		t.Fatalf("expected generic template, got %s", name)
	}
	if len(msgs) != 2 || msgs[0].Role != llm.RoleSystem || msgs[1].Role != llm.RoleUser {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if !strings.Contains(msgs[0].Content, "手紙を代筆する専門家") {
		t.Fatalf("system prompt missing: %s", msgs[0].Content)
	}
	if !strings.HasSuffix(msgs[1].Content, "母へ感謝を伝えたい") {
		t.Fatalf("text not embedded: %s", msgs[1].Content)
	}
	if strings.Contains(msgs[1].Content, "{{") {
		t.Fatalf("unrendered placeholder: %s", msgs[1].Content)
	}
}

func TestBuildAddressedEmbedsBothNames(t *testing.T) {
	lctx := letter.Context{RawText: "thanks for the help", SenderName: "Ken", RecipientName: "Ana"}
	first, name, err := Default().Build(letter.LanguageEnglish, lctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if name != Addressed {
		t.Fatalf("expected addressed template, got %s", name)
	}
	user := first[len(first)-1].Content
	if !strings.Contains(user, `"Dear Ana,"`) || !strings.Contains(user, `"Ken"`) {
		t.Fatalf("names not in greeting/signature positions: %s", user)
	}
	second, _, _ := Default().Build(letter.LanguageEnglish, lctx)
	if second[len(second)-1].Content != user {
		t.Fatal("template rendering is not deterministic")
	}
}

func TestBuildAddressedFillsMissingName(t *testing.T) {
	msgs, name, err := Default().Build(letter.LanguageJapanese, letter.Context{RawText: "元気です", RecipientName: "母"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if name != Addressed {
		t.Fatalf("a single name should select the addressed template, got %s", name)
	}
	user := msgs[len(msgs)-1].Content
	if !strings.Contains(user, "母様") || !strings.Contains(user, "「差出人」") {
		t.Fatalf("unexpected addressed prompt: %s", user)
	}
}

func TestBuildKeepsPlaceholdersInUserText(t *testing.T) {
	msgs, _, err := Default().Build(letter.LanguageEnglish, letter.Context{RawText: "say {{sender}} literally", SenderName: "Ken"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(msgs[len(msgs)-1].Content, "say {{sender}} literally") {
		t.Fatalf("user text was rewritten: %s", msgs[len(msgs)-1].Content)
	}
}

func TestBuildRejectsEmptyText(t *testing.T) {
	_, _, err := Default().Build(letter.LanguageEnglish, letter.Context{RawText: "   "})
	if !errors.Is(err, letter.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseRejectsUnknownPlaceholder(t *testing.T) {
	_, err := Parse([]byte("en:\n  generic: \"{{text}} {{mood}}\"\n  addressed: \"{{text}}\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown placeholder")
	}
	_, err = Parse([]byte("fr:\n  generic: \"{{text}}\"\n  addressed: \"{{text}}\"\n"))
	if err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestClipTextCountsRunes(t *testing.T) {
	if got := clipText("  あいうえお  ", 3); got != "あいう" {
		t.Fatalf("unexpected clip %q", got)
	}
	if got := clipText("short", 10); got != "short" {
		t.Fatalf("unexpected clip %q", got)
	}
}
