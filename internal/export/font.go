package export

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/image/font/sfnt"

	"github.com/csheth/voiceletter/internal/letter"
)

// maxReportedGlyphs caps how many uncovered runes an error names.
const maxReportedGlyphs = 8

// missingGlyphs lists the runes of body, in order of first use, that ttf
// maps to the notdef glyph. Whitespace and control runes are not drawn and
// are skipped.
func missingGlyphs(ttf []byte, body string) ([]rune, error) {
	f, err := sfnt.Parse(ttf)
	if err != nil {
		return nil, err
	}
	var (
		buf     sfnt.Buffer
		seen    = make(map[rune]bool)
		missing []rune
	)
	for _, r := range body {
		if seen[r] || unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		seen[r] = true
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil {
			return nil, err
		}
		if idx == 0 {
			missing = append(missing, r)
		}
	}
	return missing, nil
}

// checkCoverage fails when the font would draw any part of body as blank boxes.
func checkCoverage(ttf []byte, body string) error {
	missing, err := missingGlyphs(ttf, body)
	if err != nil {
		return letter.Wrap(letter.ErrExport, "parse font", err)
	}
	if len(missing) == 0 {
		return nil
	}
	shown := missing
	if len(shown) > maxReportedGlyphs {
		shown = shown[:maxReportedGlyphs]
	}
	var sample strings.Builder
	for _, r := range shown {
		sample.WriteRune(r)
	}
	more := ""
	if n := len(missing) - len(shown); n > 0 {
		more = fmt.Sprintf(" and %d more", n)
	}
	return letter.Errorf(letter.ErrExport, "check font coverage",
		"font lacks glyphs for %q%s; set -font or VOICELETTER_FONT to a font that covers the letter", sample.String(), more)
}
