package letter

import (
	"fmt"
	"strings"
	"time"
)

// Language selects the template family and the transcription hint.
type Language string

const (
	LanguageJapanese Language = "ja"
	LanguageEnglish  Language = "en"
)

// ParseLanguage maps a user supplied value onto one of the two supported modes.
func ParseLanguage(value string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "ja", "jp", "japanese":
		return LanguageJapanese, nil
	case "en", "english":
		return LanguageEnglish, nil
	default:
		return "", Errorf(ErrValidation, "parse language", "unsupported language %q", value)
	}
}

// AudioArtifact is the finished recording handed from capture to the pipeline.
type AudioArtifact struct {
	Data     []byte
	MIMEType string
	Filename string
	Duration time.Duration
}

// Empty reports whether the artifact carries no audio payload.
func (a AudioArtifact) Empty() bool {
	return len(a.Data) == 0
}

// Context carries the inputs that pick a prompt template for one generation call.
type Context struct {
	RawText       string
	SenderName    string
	RecipientName string
}

// Addressed reports whether any name is present, which selects the addressed template.
func (c Context) Addressed() bool {
	return strings.TrimSpace(c.SenderName) != "" || strings.TrimSpace(c.RecipientName) != ""
}

// WithText returns a copy of the context with a different raw text.
func (c Context) WithText(text string) Context {
	c.RawText = text
	return c
}

// Draft is the editable letter body; it is the only input to export.
type Draft struct {
	Body     string
	Seq      uint64
	Template string
}

// Format enumerates the export targets.
type Format string

const (
	FormatText  Format = "text"
	FormatPDF   Format = "pdf"
	FormatImage Format = "image"
)

// ParseFormat validates an export format name.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatText, "txt":
		return FormatText, nil
	case FormatPDF:
		return FormatPDF, nil
	case FormatImage, "png":
		return FormatImage, nil
	default:
		return "", Errorf(ErrValidation, "parse format", "unsupported export format %q", value)
	}
}

// ExportArtifact is one rendered export. It is never cached.
type ExportArtifact struct {
	Format   Format
	Data     []byte
	Filename string
	MIMEType string
}

func (a ExportArtifact) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", a.Filename, a.MIMEType, len(a.Data))
}
