package export

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/csheth/voiceletter/internal/letter"
)

type imageGeometry struct {
	width      int
	margin     int
	fontSize   float64
	lineHeight int
}

var defaultImageGeometry = imageGeometry{width: 794, margin: 48, fontSize: 16, lineHeight: 26}

var (
	paper = color.RGBA{R: 0xf8, G: 0xe8, B: 0xc8, A: 0xff}
	ink   = color.RGBA{R: 0x2d, G: 0x1f, B: 0x0e, A: 0xff}
)

func renderImage(body string, ttf []byte, g imageGeometry) ([]byte, error) {
	printable := g.width - 2*g.margin
	if g.width <= 0 || printable <= 0 {
		return nil, letter.Errorf(letter.ErrExport, "render image", "no printable region in a %dpx canvas with %dpx margins", g.width, g.margin)
	}
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return nil, letter.Wrap(letter.ErrExport, "parse font", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: g.fontSize, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, letter.Wrap(letter.ErrExport, "load font face", err)
	}
	defer face.Close()

	measure := MeasureFunc(func(s string) float64 {
		return float64(font.MeasureString(face, s)) / 64
	})
	lines := Wrap(body, float64(printable), measure)
	rows := max(len(lines), 1)
	height := 2*g.margin + rows*g.lineHeight

	canvas := image.NewRGBA(image.Rect(0, 0, g.width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(paper), image.Point{}, draw.Src)

	drawer := &font.Drawer{Dst: canvas, Src: image.NewUniform(ink), Face: face}
	baseline := g.margin + face.Metrics().Ascent.Ceil()
	for i, line := range lines {
		if line.Text == "" {
			continue
		}
		drawer.Dot = fixed.P(g.margin, baseline+i*g.lineHeight)
		drawer.DrawString(line.Text)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, canvas); err != nil {
		return nil, letter.Wrap(letter.ErrExport, "encode png", err)
	}
	return buf.Bytes(), nil
}
