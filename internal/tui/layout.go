package tui

import (
	"strings"
)

type pageLayout struct {
	windowWidth  int
	windowHeight int
	editorWidth  int
	editorHeight int
	guideVisible bool
}

func newPageLayout() pageLayout {
	return pageLayout{
		editorWidth:  76,
		editorHeight: 12,
		guideVisible: true,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - editorHorizontalPadding
	if innerWidth < minEditorWidth {
		innerWidth = minEditorWidth
	}
	l.editorWidth = innerWidth
	// hero, header, notice, status bar and key legend
	const chrome = 9
	usable := height - chrome
	if usable < 6 {
		usable = 6
	}
	l.editorHeight = usable
	l.guideVisible = height >= 30
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func previewText(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
