package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/sync/semaphore"

	"github.com/csheth/voiceletter/internal/letter"
)

// ErrBusy is wrapped into the export error returned for overlapping calls.
var ErrBusy = errors.New("another export is in progress")

// Observer receives the latency and outcome of each export.
type Observer interface {
	ObserveExport(format letter.Format, elapsed time.Duration, err error)
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithFontFile renders PDF and image exports with the TrueType font at path.
// The default Go font has no CJK glyphs, so Japanese letters need one.
func WithFontFile(path string) Option {
	return func(r *Renderer) { r.fontPath = path }
}

// WithFont renders with an in-memory TrueType font.
func WithFont(ttf []byte) Option {
	return func(r *Renderer) {
		if len(ttf) > 0 {
			r.font = ttf
		}
	}
}

// WithPagination lets PDF content continue on new pages instead of running
// off the bottom of the first one.
func WithPagination(on bool) Option {
	return func(r *Renderer) { r.paginate = on }
}

// WithClock sets the clock used for dated filenames.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithImageGeometry overrides the raster width and margin in pixels.
func WithImageGeometry(width, margin int) Option {
	return func(r *Renderer) {
		r.image.width = width
		r.image.margin = margin
	}
}

// WithObserver reports each export to obs.
func WithObserver(obs Observer) Option {
	return func(r *Renderer) { r.observer = obs }
}

// Renderer turns a letter body into downloadable artifacts. Only one export
// runs at a time; an overlapping call is rejected.
type Renderer struct {
	font     []byte
	fontPath string
	paginate bool
	now      func() time.Time
	image    imageGeometry
	observer Observer
	busy     *semaphore.Weighted
}

// NewRenderer builds a renderer with the default layout.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		font:  goregular.TTF,
		now:   time.Now,
		image: defaultImageGeometry,
		busy:  semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Export renders body in the requested format.
func (r *Renderer) Export(ctx context.Context, body string, format letter.Format) (letter.ExportArtifact, error) {
	start := time.Now()
	artifact, err := r.export(ctx, body, format)
	if r.observer != nil {
		r.observer.ObserveExport(format, time.Since(start), err)
	}
	return artifact, err
}

func (r *Renderer) export(ctx context.Context, body string, format letter.Format) (letter.ExportArtifact, error) {
	if strings.TrimSpace(body) == "" {
		return letter.ExportArtifact{}, letter.Errorf(letter.ErrValidation, "export", "letter text is empty")
	}
	format, err := letter.ParseFormat(string(format))
	if err != nil {
		return letter.ExportArtifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return letter.ExportArtifact{}, letter.Wrap(letter.ErrExport, "export", err)
	}
	if !r.busy.TryAcquire(1) {
		return letter.ExportArtifact{}, letter.Wrap(letter.ErrExport, "export", ErrBusy)
	}
	defer r.busy.Release(1)

	switch format {
	case letter.FormatText:
		return renderText(body), nil
	case letter.FormatPDF:
		ttf, err := r.loadFont(body)
		if err != nil {
			return letter.ExportArtifact{}, err
		}
		data, err := renderPDF(body, ttf, r.paginate)
		if err != nil {
			return letter.ExportArtifact{}, letter.Wrap(letter.ErrExport, "render pdf", err)
		}
		return letter.ExportArtifact{Format: format, Data: data, Filename: "letter.pdf", MIMEType: "application/pdf"}, nil
	default:
		ttf, err := r.loadFont(body)
		if err != nil {
			return letter.ExportArtifact{}, err
		}
		data, err := renderImage(body, ttf, r.image)
		if err != nil {
			return letter.ExportArtifact{}, err
		}
		return letter.ExportArtifact{
			Format:   format,
			Data:     data,
			Filename: fmt.Sprintf("letter-%s.png", r.now().Format("2006-01-02")),
			MIMEType: "image/png",
		}, nil
	}
}

// loadFont returns the configured face after checking it can draw body.
func (r *Renderer) loadFont(body string) ([]byte, error) {
	ttf := r.font
	if r.fontPath != "" {
		data, err := os.ReadFile(r.fontPath)
		if err != nil {
			return nil, letter.Wrap(letter.ErrExport, "load font", err)
		}
		ttf = data
	}
	if err := checkCoverage(ttf, body); err != nil {
		return nil, err
	}
	return ttf, nil
}

func renderText(body string) letter.ExportArtifact {
	return letter.ExportArtifact{
		Format:   letter.FormatText,
		Data:     []byte(body),
		Filename: "letter.txt",
		MIMEType: "text/plain; charset=utf-8",
	}
}
