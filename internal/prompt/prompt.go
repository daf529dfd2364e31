package prompt

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/csheth/voiceletter/internal/letter"
	"github.com/csheth/voiceletter/internal/llm"
)

// Template names recorded on drafts.
const (
	Generic   = "generic"
	Addressed = "addressed"
)

// Dictated speech is rarely long; the cap keeps a stuck recording from
// blowing the model's context window.
const maxInputChars = 20_000

//go:embed templates.yaml
var defaultTemplates []byte

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

// Set is the prompt family for one language.
type Set struct {
	System           string `yaml:"system"`
	Generic          string `yaml:"generic"`
	Addressed        string `yaml:"addressed"`
	DefaultSender    string `yaml:"default_sender"`
	DefaultRecipient string `yaml:"default_recipient"`
}

// Templates holds the prompt sets keyed by language.
type Templates struct {
	sets map[letter.Language]Set
}

// Default returns the embedded templates.
func Default() *Templates {
	t, err := Parse(defaultTemplates)
	if err != nil {
		panic(fmt.Sprintf("embedded templates: %v", err))
	}
	return t
}

// Parse loads templates from YAML keyed by language code.
func Parse(data []byte) (*Templates, error) {
	var raw map[string]Set
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	t := &Templates{sets: make(map[letter.Language]Set, len(raw))}
	for code, set := range raw {
		lang, err := letter.ParseLanguage(code)
		if err != nil {
			return nil, err
		}
		if err := set.validate(); err != nil {
			return nil, fmt.Errorf("templates %s: %w", code, err)
		}
		t.sets[lang] = set
	}
	return t, nil
}

var allowed = map[string]struct{}{"text": {}, "sender": {}, "recipient": {}}

func (s Set) validate() error {
	if strings.TrimSpace(s.Generic) == "" || strings.TrimSpace(s.Addressed) == "" {
		return fmt.Errorf("generic and addressed templates are required")
	}
	for _, body := range []string{s.System, s.Generic, s.Addressed} {
		for _, m := range placeholderRe.FindAllStringSubmatch(body, -1) {
			if _, ok := allowed[m[1]]; !ok {
				return fmt.Errorf("unknown placeholder %s", m[0])
			}
		}
	}
	if !strings.Contains(s.Generic, "{{text}}") || !strings.Contains(s.Addressed, "{{text}}") {
		return fmt.Errorf("templates must embed {{text}}")
	}
	return nil
}

// Build selects the template for lctx and renders the generation messages.
// Any non-empty name selects the addressed template; a missing name falls
// back to the language default.
func (t *Templates) Build(lang letter.Language, lctx letter.Context) ([]llm.Message, string, error) {
	set, ok := t.sets[lang]
	if !ok {
		return nil, "", letter.Errorf(letter.ErrValidation, "build prompt", "no templates for language %q", lang)
	}
	text := clipText(lctx.RawText, maxInputChars)
	if text == "" {
		return nil, "", letter.Errorf(letter.ErrValidation, "build prompt", "letter text is empty")
	}

	name, body := Generic, set.Generic
	vars := map[string]string{"text": text}
	if lctx.Addressed() {
		name, body = Addressed, set.Addressed
		vars["sender"] = orDefault(lctx.SenderName, set.DefaultSender)
		vars["recipient"] = orDefault(lctx.RecipientName, set.DefaultRecipient)
	}

	messages := make([]llm.Message, 0, 2)
	if system := strings.TrimSpace(set.System); system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: render(body, vars)})
	return messages, name, nil
}

// render substitutes placeholders in one pass so that placeholders inside
// the substituted values stay literal.
func render(body string, vars map[string]string) string {
	out := placeholderRe.ReplaceAllStringFunc(body, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return match
	})
	return strings.TrimSpace(out)
}

func orDefault(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}

func clipText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
