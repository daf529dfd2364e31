package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/voiceletter/internal/guide"
	"github.com/csheth/voiceletter/internal/letter"
)

var (
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))

	heroAccentColor = lipgloss.Color("#ff8c00")
	heroTextColor   = lipgloss.Color("#fff4d0")

	heroTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	taglineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb347")).Italic(true)
	recordingStyle = lipgloss.NewStyle().Bold(true).Foreground(heroTextColor).Background(lipgloss.Color("#c1121f")).Padding(0, 1)
	pausedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	timerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0def4"))
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	guideBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 1)
	editorBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(heroAccentColor)
)

type keyHint struct {
	key  string
	desc string
}

func (m *model) View() string {
	var body string
	switch m.stage {
	case stageIdle:
		body = m.viewIdle()
	case stageStarting:
		body = fmt.Sprintf("%s Opening the microphone…", m.spinner.View())
	case stageRecording:
		body = m.viewRecording()
	case stageDrafting:
		body = m.viewDrafting()
	case stageEditing:
		body = m.viewEditing()
	}
	return joinNonEmpty([]string{m.heroView(), body, m.noticeView(), m.footerView()})
}

func (m *model) heroView() string {
	return heroTitleStyle.Render("VoiceLetter") + "  " + taglineStyle.Render(heroTagline)
}

func (m *model) viewIdle() string {
	parts := []string{
		sectionHeaderStyle.Render("Who is this letter for?"),
		m.sender.View() + "\n" + m.recipient.View(),
	}
	if m.hasDraft {
		parts = append(parts, helperStyle.Render("Last draft: "+previewText(m.draft.Body, notePreviewLimit)))
	}
	if m.layout.guideVisible {
		parts = append(parts, m.guideView())
	}
	return joinNonEmpty(parts)
}

func (m *model) guideView() string {
	lang := letter.LanguageJapanese
	if m.config.Drafter != nil {
		lang = m.config.Drafter.Language()
	}
	steps := guide.Build(guide.Metadata{
		Sender:    m.sender.Value(),
		Recipient: m.recipient.Value(),
		Language:  lang,
	})
	wrap := m.layout.editorWidth - 8
	if wrap < 20 {
		wrap = 20
	}
	var b strings.Builder
	for idx, step := range steps {
		if idx > 0 {
			b.WriteRune('\n')
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%d. %s", idx+1, step.Title)))
		b.WriteRune('\n')
		b.WriteString(helperStyle.Render(wordwrap.String(step.Description, wrap)))
	}
	return guideBoxStyle.Render(b.String())
}

func (m *model) viewRecording() string {
	indicator := recordingStyle.Render("● REC")
	if m.paused {
		indicator = pausedStyle.Render("❚❚ PAUSED")
	}
	line := indicator + "  " + timerStyle.Render(formatElapsed(m.elapsed))
	to := strings.TrimSpace(m.recipient.Value())
	hint := "Speak your letter. Press s when you are done."
	if to != "" {
		hint = fmt.Sprintf("Speak your letter to %s. Press s when you are done.", to)
	}
	return joinNonEmpty([]string{line, helperStyle.Render(hint)})
}

func (m *model) viewDrafting() string {
	message := fmt.Sprintf("Transcribing %s of audio and drafting your letter…", formatElapsed(m.elapsed))
	if m.regenerating {
		message = "Regenerating the letter…"
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), message)
}

func (m *model) viewEditing() string {
	header := sectionHeaderStyle.Render("Draft")
	if m.draft.Template != "" {
		header += helperStyle.Render(fmt.Sprintf("  (%s letter, revision %d)", m.draft.Template, m.draft.Seq))
	}
	parts := []string{header, editorBoxStyle.Render(m.editor.View())}
	if m.pendingExport != "" {
		parts = append(parts, helperStyle.Render(fmt.Sprintf("%s Exporting %s…", m.spinner.View(), m.exporting)))
	}
	return joinNonEmpty(parts)
}

// noticeView is the single line describing the last failure or outcome.
func (m *model) noticeView() string {
	if m.notice == "" {
		return ""
	}
	if m.noticeIsError {
		return errorStyle.Render(m.notice)
	}
	return helperStyle.Render(m.notice)
}

func (m *model) footerView() string {
	lang := "-"
	if m.config.Drafter != nil {
		lang = string(m.config.Drafter.Language())
	}
	segments := []string{m.stage.String(), "lang " + lang}
	if m.config.Providers != "" {
		segments = append(segments, m.config.Providers)
	}
	if m.config.OutputDir != "" {
		segments = append(segments, "out "+m.config.OutputDir)
	}
	status := statusBarStyle.Render(strings.Join(segments, " · "))
	return status + "\n" + m.keyLegendView()
}

func (m *model) keyLegendView() string {
	hints := m.keyHints()
	rendered := make([]string, 0, len(hints))
	for _, hint := range hints {
		rendered = append(rendered, keyStyle.Render(hint.key)+" "+keyDescStyle.Render(hint.desc))
	}
	return strings.Join(rendered, "  ")
}

func (m *model) keyHints() []keyHint {
	switch m.stage {
	case stageIdle:
		if m.focus != focusNone {
			return []keyHint{{"tab", "next field"}, {"esc", "done"}}
		}
		return []keyHint{{"r", "record"}, {"tab", "names"}, {"q", "quit"}}
	case stageRecording:
		pause := "pause"
		if m.paused {
			pause = "resume"
		}
		return []keyHint{{"p", pause}, {"s", "stop"}, {"esc", "discard"}}
	case stageDrafting:
		return []keyHint{{"esc", "cancel"}, {"ctrl+c", "quit"}}
	case stageEditing:
		return []keyHint{
			{"ctrl+r", "regenerate"},
			{"ctrl+t", "text"},
			{"ctrl+p", "pdf"},
			{"ctrl+g", "image"},
			{"ctrl+n", "new"},
		}
	}
	return []keyHint{{"ctrl+c", "quit"}}
}
