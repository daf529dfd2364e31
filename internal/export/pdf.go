package export

import (
	"bytes"
	"time"

	"github.com/go-pdf/fpdf"
)

// A4 in points.
const (
	pdfPageWidth  = 595.28
	pdfPageHeight = 841.89
	pdfMargin     = 56.0
	pdfFontSize   = 12.0
	pdfLineHeight = 18.0
	pdfFontFamily = "letter"
)

var (
	pdfInk = [3]int{0x2d, 0x1f, 0x0e}
	// Fixed so the same body always yields the same document.
	pdfTimestamp = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
)

func renderPDF(body string, ttf []byte, paginate bool) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: pdfPageWidth, Ht: pdfPageHeight},
	})
	pdf.SetCreationDate(pdfTimestamp)
	pdf.SetModificationDate(pdfTimestamp)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddUTF8FontFromBytes(pdfFontFamily, "", ttf)
	pdf.SetFont(pdfFontFamily, "", pdfFontSize)
	pdf.SetTextColor(pdfInk[0], pdfInk[1], pdfInk[2])
	if err := pdf.Error(); err != nil {
		return nil, err
	}
	pdf.AddPage()

	lines := Wrap(body, pdfPageWidth-2*pdfMargin, MeasureFunc(pdf.GetStringWidth))
	top := pdfMargin + pdfFontSize
	y := top
	for _, line := range lines {
		if paginate && y > pdfPageHeight-pdfMargin {
			pdf.AddPage()
			y = top
		}
		if line.Text != "" {
			pdf.Text(pdfMargin, y, line.Text)
		}
		y += pdfLineHeight
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
