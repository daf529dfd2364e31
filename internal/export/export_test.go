package export

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/csheth/voiceletter/internal/letter"
)

func TestTextExportRoundTrip(t *testing.T) {
	body := "お母さんへ、\n本当にありがとう。\n\n健より"
	artifact, err := NewRenderer().Export(context.Background(), body, letter.FormatText)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if string(artifact.Data) != body {
		t.Fatalf("round trip mismatch: %q", artifact.Data)
	}
	if artifact.Filename != "letter.txt" || artifact.MIMEType != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected metadata %s", artifact)
	}
}

func TestExportValidation(t *testing.T) {
	r := NewRenderer()
	if _, err := r.Export(context.Background(), "  \n", letter.FormatText); !errors.Is(err, letter.ErrValidation) {
		t.Fatalf("expected validation error for empty body, got %v", err)
	}
	if _, err := r.Export(context.Background(), "hello", letter.Format("docx")); !errors.Is(err, letter.ErrValidation) {
		t.Fatalf("expected validation error for unknown format, got %v", err)
	}
}

func TestExportRejectsOverlap(t *testing.T) {
	r := NewRenderer()
	if !r.busy.TryAcquire(1) {
		t.Fatal("semaphore should start free")
	}
	_, err := r.Export(context.Background(), "hello", letter.FormatText)
	r.busy.Release(1)
	if !errors.Is(err, letter.ErrExport) || !errors.Is(err, ErrBusy) {
		t.Fatalf("expected busy export error, got %v", err)
	}
	if _, err := r.Export(context.Background(), "hello", letter.FormatText); err != nil {
		t.Fatalf("export after release: %v", err)
	}
}

func readPDF(t *testing.T, data []byte) (*pdf.Reader, string) {
	t.Helper()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open pdf: %v", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		t.Fatalf("extract text: %v", err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		t.Fatalf("read text: %v", err)
	}
	return reader, string(text)
}

func TestPDFExportSinglePage(t *testing.T) {
	body := "Dear Ana,\n" + strings.Repeat("thank you for the wonderful summer ", 12)
	artifact, err := NewRenderer().Export(context.Background(), body, letter.FormatPDF)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if artifact.Filename != "letter.pdf" || artifact.MIMEType != "application/pdf" {
		t.Fatalf("unexpected metadata %s", artifact)
	}
	if !bytes.HasPrefix(artifact.Data, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", artifact.Data[:8])
	}
	reader, text := readPDF(t, artifact.Data)
	if reader.NumPage() != 1 {
		t.Fatalf("expected one page, got %d", reader.NumPage())
	}
	if !strings.Contains(text, "Dear") {
		t.Fatalf("extracted text missing greeting: %q", text)
	}
}

func TestPDFExportIsDeterministic(t *testing.T) {
	body := "Dear Ana,\n\nThank you for the wonderful summer.\n\nLove,\nMia"
	first, err := NewRenderer().Export(context.Background(), body, letter.FormatPDF)
	if err != nil {
		t.Fatalf("first export: %v", err)
	}
	second, err := NewRenderer().Export(context.Background(), body, letter.FormatPDF)
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Fatalf("same body produced different documents (%d vs %d bytes)", len(first.Data), len(second.Data))
	}
}

func TestPDFOverflowStaysOnOnePageUnlessPaginated(t *testing.T) {
	body := strings.Repeat("line\n", 80)
	single, err := NewRenderer().Export(context.Background(), body, letter.FormatPDF)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if reader, _ := readPDF(t, single.Data); reader.NumPage() != 1 {
		t.Fatalf("default layout should not paginate, got %d pages", reader.NumPage())
	}

	paged, err := NewRenderer(WithPagination(true)).Export(context.Background(), body, letter.FormatPDF)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if reader, _ := readPDF(t, paged.Data); reader.NumPage() != 2 {
		t.Fatalf("expected 2 pages with pagination, got %d", reader.NumPage())
	}
}

func TestPDFMissingFontFile(t *testing.T) {
	r := NewRenderer(WithFontFile(filepath.Join(t.TempDir(), "missing.ttf")))
	if _, err := r.Export(context.Background(), "hello", letter.FormatPDF); !errors.Is(err, letter.ErrExport) {
		t.Fatalf("expected export error, got %v", err)
	}
	if _, err := r.Export(context.Background(), "hello", letter.FormatText); err != nil {
		t.Fatalf("text export should not need a font: %v", err)
	}
}

func TestImageExport(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 3, 9, 22, 0, 0, 0, time.UTC) }
	body := "Dear Ana,\n\nThank you for everything."
	artifact, err := NewRenderer(WithClock(clock)).Export(context.Background(), body, letter.FormatImage)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if artifact.Filename != "letter-2024-03-09.png" || artifact.MIMEType != "image/png" {
		t.Fatalf("unexpected metadata %s", artifact)
	}
	img, err := png.Decode(bytes.NewReader(artifact.Data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	bounds := img.Bounds()
	wantHeight := 2*defaultImageGeometry.margin + 3*defaultImageGeometry.lineHeight
	if bounds.Dx() != 794 || bounds.Dy() != wantHeight {
		t.Fatalf("unexpected size %dx%d", bounds.Dx(), bounds.Dy())
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 0xf8 || g>>8 != 0xe8 || b>>8 != 0xc8 {
		t.Fatalf("unexpected background %x %x %x", r>>8, g>>8, b>>8)
	}
	inked := false
	for y := bounds.Min.Y; y < bounds.Max.Y && !inked; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r>>8 < 0x80 {
				inked = true
				break
			}
		}
	}
	if !inked {
		t.Fatal("no text pixels drawn")
	}
}

func TestImageExportWithoutPrintableRegion(t *testing.T) {
	r := NewRenderer(WithImageGeometry(80, 40))
	if _, err := r.Export(context.Background(), "hello", letter.FormatImage); !errors.Is(err, letter.ErrExport) {
		t.Fatalf("expected export error, got %v", err)
	}
}

func TestFontFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "font.ttf")
	if err := os.WriteFile(path, []byte("not a font"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := NewRenderer(WithFontFile(path))
	if _, err := r.Export(context.Background(), "hello", letter.FormatImage); !errors.Is(err, letter.ErrExport) {
		t.Fatalf("expected export error for a broken font, got %v", err)
	}
}
