package tui

import (
	"context"
	"time"

	"github.com/csheth/voiceletter/internal/capture"
	"github.com/csheth/voiceletter/internal/letter"
)

type stage int

const (
	stageIdle stage = iota
	stageStarting
	stageRecording
	stageDrafting
	stageEditing
)

func (s stage) String() string {
	switch s {
	case stageIdle:
		return "idle"
	case stageStarting:
		return "starting"
	case stageRecording:
		return "recording"
	case stageDrafting:
		return "drafting"
	case stageEditing:
		return "editing"
	default:
		return "unknown"
	}
}

const heroTagline = "Speak it. Read it. Send it."

const (
	minEditorWidth          = 40
	editorHorizontalPadding = 4
	notePreviewLimit        = 80
)

type focusField int

const (
	focusNone focusField = iota
	focusSender
	focusRecipient
)

// Recorder is the capture surface the UI drives.
type Recorder interface {
	Start(ctx context.Context) error
	Pause()
	Resume()
	Stop() *letter.AudioArtifact
	Cancel()
	Reset()
	State() capture.State
	Elapsed() time.Duration
	SessionID() string
	Err() error
	Finished() <-chan struct{}
}

// Drafter turns recordings into drafts and keeps the current letter.
type Drafter interface {
	ProduceDraft(ctx context.Context, audio letter.AudioArtifact, lctx letter.Context) (letter.Draft, error)
	Regenerate(ctx context.Context, currentText string) (letter.Draft, error)
	Edit(body string)
	Abandon()
	Reset()
	Language() letter.Language
}

// Exporter renders a letter body into a downloadable artifact.
type Exporter interface {
	Export(ctx context.Context, body string, format letter.Format) (letter.ExportArtifact, error)
}

// SessionCounter counts how capture sessions end.
type SessionCounter interface {
	CaptureSession(outcome string)
}

// Config wires the UI to the capture, drafting and export layers.
type Config struct {
	Recorder  Recorder
	Drafter   Drafter
	Exporter  Exporter
	Sessions  SessionCounter
	OutputDir string
	Providers string
	Sender    string
	Recipient string
}
