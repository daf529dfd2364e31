package tuitest

import (
	"bytes"
	"io"
)

// terminalQuery pairs a capability probe with the answer a real terminal
// would give. bubbletea and termenv block on some of these at startup.
type terminalQuery struct {
	probe  []byte
	answer []byte
}

var terminalQueries = []terminalQuery{
	{probe: []byte("\x1b[6n"), answer: []byte("\x1b[1;1R")},
	{probe: []byte("\x1b]10;?\x07"), answer: []byte("\x1b]10;rgb:cccc/cccc/cccc\x07")},
	{probe: []byte("\x1b]10;?\x1b\\"), answer: []byte("\x1b]10;rgb:cccc/cccc/cccc\x1b\\")},
	{probe: []byte("\x1b]11;?\x07"), answer: []byte("\x1b]11;rgb:0000/0000/0000\x07")},
	{probe: []byte("\x1b]11;?\x1b\\"), answer: []byte("\x1b]11;rgb:0000/0000/0000\x1b\\")},
}

const (
	responderMaxBuffer = 256
	responderTail      = 64
)

type terminalResponder struct {
	w   io.Writer
	buf []byte
}

func newTerminalResponder(w io.Writer) *terminalResponder {
	return &terminalResponder{w: w, buf: make([]byte, 0, 128)}
}

func (tr *terminalResponder) Process(chunk []byte) {
	tr.buf = append(tr.buf, chunk...)
	for tr.answerNext() {
	}
	// A tail is kept so probes split across reads still match.
	if len(tr.buf) > responderMaxBuffer {
		tr.buf = tr.buf[len(tr.buf)-responderTail:]
	}
}

// answerNext replies to the earliest pending probe in the buffer.
func (tr *terminalResponder) answerNext() bool {
	first := -1
	var match terminalQuery
	for _, q := range terminalQueries {
		idx := bytes.Index(tr.buf, q.probe)
		if idx >= 0 && (first < 0 || idx < first) {
			first, match = idx, q
		}
	}
	if first < 0 {
		return false
	}
	tr.buf = tr.buf[first+len(match.probe):]
	_, _ = tr.w.Write(match.answer)
	return true
}
