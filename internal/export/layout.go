package export

import (
	"strings"
	"unicode/utf8"
)

// Measurer reports the rendered width of s in the unit of the target surface.
type Measurer interface {
	Width(s string) float64
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(string) float64

func (f MeasureFunc) Width(s string) float64 { return f(s) }

// Line is one committed line of a wrapped body. Split marks a line that ends
// inside a token too wide to fit on a line of its own.
type Line struct {
	Text  string
	Width float64
	Split bool
}

// Wrap lays body out greedily: each whitespace separated token is appended to
// the running line with one space and the line is committed once the
// tentative text measures wider than maxWidth. Newlines in body always break.
func Wrap(body string, maxWidth float64, m Measurer) []Line {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var lines []Line
	for _, paragraph := range strings.Split(body, "\n") {
		lines = append(lines, wrapParagraph(paragraph, maxWidth, m)...)
	}
	for len(lines) > 0 && lines[len(lines)-1].Text == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func wrapParagraph(paragraph string, maxWidth float64, m Measurer) []Line {
	tokens := strings.Fields(paragraph)
	if len(tokens) == 0 {
		return []Line{{}}
	}
	var (
		lines  []Line
		buffer string
	)
	for _, token := range tokens {
		candidate := token
		if buffer != "" {
			candidate = buffer + " " + token
		}
		if m.Width(candidate) <= maxWidth {
			buffer = candidate
			continue
		}
		if buffer != "" {
			lines = append(lines, Line{Text: buffer, Width: m.Width(buffer)})
		}
		buffer = token
		if m.Width(token) > maxWidth {
			pieces := splitToken(token, maxWidth, m)
			for _, piece := range pieces[:len(pieces)-1] {
				lines = append(lines, Line{Text: piece, Width: m.Width(piece), Split: true})
			}
			buffer = pieces[len(pieces)-1]
		}
	}
	if buffer != "" {
		lines = append(lines, Line{Text: buffer, Width: m.Width(buffer)})
	}
	return lines
}

// splitToken cuts token at rune boundaries into the longest prefixes that fit.
// A single rune wider than maxWidth is kept on a line of its own.
func splitToken(token string, maxWidth float64, m Measurer) []string {
	var pieces []string
	for token != "" {
		end := 0
		for i := range token {
			if i == 0 {
				continue
			}
			if m.Width(token[:i]) > maxWidth {
				break
			}
			end = i
		}
		if m.Width(token) <= maxWidth {
			end = len(token)
		}
		if end == 0 {
			_, size := utf8.DecodeRuneInString(token)
			end = size
		}
		pieces = append(pieces, token[:end])
		token = token[end:]
	}
	return pieces
}

// Tokens recovers the whitespace separated tokens of the text that produced
// lines, joining pieces of split tokens back together.
func Tokens(lines []Line) []string {
	var (
		tokens []string
		glue   bool
	)
	for _, line := range lines {
		fields := strings.Fields(line.Text)
		for i, field := range fields {
			if i == 0 && glue && len(tokens) > 0 {
				tokens[len(tokens)-1] += field
				continue
			}
			tokens = append(tokens, field)
		}
		glue = line.Split
	}
	return tokens
}
