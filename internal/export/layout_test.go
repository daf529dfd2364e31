package export

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// monospace counts every rune as one unit.
var monospace = MeasureFunc(func(s string) float64 { return float64(utf8.RuneCountInString(s)) })

func TestWrapGreedyBreaks(t *testing.T) {
	lines := Wrap("the quick brown fox jumps", 10, monospace)
	got := make([]string, len(lines))
	for i, l := range lines {
		got[i] = l.Text
	}
	want := []string{"the quick", "brown fox", "jumps"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected lines %q", got)
	}
}

func TestWrapKeepsParagraphBreaks(t *testing.T) {
	lines := Wrap("Dear Ana,\n\nThank you.\r\nKen\n", 40, monospace)
	got := make([]string, len(lines))
	for i, l := range lines {
		got[i] = l.Text
	}
	want := []string{"Dear Ana,", "", "Thank you.", "Ken"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected lines %q", got)
	}
}

func TestWrapSplitsUnspacedText(t *testing.T) {
	body := "お母さんへ、本当にありがとう。"
	lines := Wrap(body, 4, monospace)
	for _, l := range lines {
		if l.Width > 4 {
			t.Fatalf("line %q wider than 4", l.Text)
		}
	}
	if got := Tokens(lines); !reflect.DeepEqual(got, []string{body}) {
		t.Fatalf("split token not recoverable: %q", got)
	}
	if !lines[0].Split || lines[len(lines)-1].Split {
		t.Fatalf("unexpected split flags: %+v", lines)
	}
}

func TestWrapPreservesTokensAndWidth(t *testing.T) {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		t.Fatalf("parse font: %v", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: 12, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		t.Fatalf("face: %v", err)
	}
	defer face.Close()
	measure := MeasureFunc(func(s string) float64 { return float64(font.MeasureString(face, s)) / 64 })

	words := []string{"a", "letter", "of", "thanks", "to", "my", "mother", "for", "everything", "you", "did",
		"supercalifragilisticexpialidocious", "母へ感謝を伝えたい", "ありがとう。", "\n", "\n\n"}
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		var b strings.Builder
		for i := rng.Intn(60); i >= 0; i-- {
			b.WriteString(words[rng.Intn(len(words))])
			if rng.Intn(5) == 0 {
				b.WriteString("  ")
			} else {
				b.WriteString(" ")
			}
		}
		body := b.String()
		maxWidth := 60 + float64(rng.Intn(400))
		lines := Wrap(body, maxWidth, measure)
		for _, l := range lines {
			if l.Width > maxWidth && utf8.RuneCountInString(l.Text) > 1 {
				t.Fatalf("trial %d: line %q measures %.2f > %.2f", trial, l.Text, l.Width, maxWidth)
			}
		}
		if got, want := Tokens(lines), strings.Fields(body); !reflect.DeepEqual(got, want) && !(len(got) == 0 && len(want) == 0) {
			t.Fatalf("trial %d: tokens changed\n got %q\nwant %q", trial, got, want)
		}
	}
}
