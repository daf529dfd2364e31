package tui

import (
	"testing"
	"time"
)

func TestPageLayoutUpdate(t *testing.T) {
	cases := []struct {
		name         string
		width        int
		height       int
		editorWidth  int
		editorHeight int
		guideVisible bool
	}{
		{name: "narrow", width: 80, height: 24, editorWidth: 76, editorHeight: 15, guideVisible: false},
		{name: "wide", width: 200, height: 40, editorWidth: 196, editorHeight: 31, guideVisible: true},
		{name: "tiny", width: 20, height: 8, editorWidth: 40, editorHeight: 6, guideVisible: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout := newPageLayout()
			layout.Update(tc.width, tc.height)
			if layout.editorWidth != tc.editorWidth {
				t.Fatalf("editor width mismatch: got %d want %d", layout.editorWidth, tc.editorWidth)
			}
			if layout.editorHeight != tc.editorHeight {
				t.Fatalf("editor height mismatch: got %d want %d", layout.editorHeight, tc.editorHeight)
			}
			if layout.guideVisible != tc.guideVisible {
				t.Fatalf("guide visibility mismatch: got %v want %v", layout.guideVisible, tc.guideVisible)
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                     "00:00",
		59 * time.Second:                      "00:59",
		61*time.Second + 900*time.Millisecond: "01:01",
		75 * time.Minute:                      "75:00",
	}
	for in, want := range cases {
		if got := formatElapsed(in); got != want {
			t.Fatalf("formatElapsed(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestPreviewText(t *testing.T) {
	if got := previewText("  hello\n  world ", 0); got != "hello world" {
		t.Fatalf("unexpected collapse: %q", got)
	}
	if got := previewText("こんにちは世界", 5); got != "こんにちは…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestJoinNonEmpty(t *testing.T) {
	if got := joinNonEmpty([]string{"a", " ", "", "b"}); got != "a\n\nb" {
		t.Fatalf("unexpected join: %q", got)
	}
}
