package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/voiceletter/internal/letter"
	"github.com/csheth/voiceletter/internal/observability"
)

const (
	captureStartTimeout = 10 * time.Second
	draftTimeout        = 3 * time.Minute
	exportTimeout       = 30 * time.Second
)

type captureStartedMsg struct {
	err error
}

type captureFinishedMsg struct {
	sessionID string
}

type tickMsg time.Time

type draftResultMsg struct {
	draft letter.Draft
	err   error
}

type exportResultMsg struct {
	artifact letter.ExportArtifact
	path     string
	err      error
}

func startCaptureJob(rec Recorder) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, captureStartTimeout)
		defer cancel()
		err := rec.Start(ctx)
		return captureStartedMsg{err: err}, err
	}
}

func produceDraftJob(drafter Drafter, audio letter.AudioArtifact, lctx letter.Context, sessionID string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(observability.WithSessionID(parent, sessionID), draftTimeout)
		defer cancel()
		draft, err := drafter.ProduceDraft(ctx, audio, lctx)
		return draftResultMsg{draft: draft, err: err}, err
	}
}

func regenerateJob(drafter Drafter, text string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, draftTimeout)
		defer cancel()
		draft, err := drafter.Regenerate(ctx, text)
		return draftResultMsg{draft: draft, err: err}, err
	}
}

// exportJob renders body and writes the artifact under dir with its suggested filename.
func exportJob(exporter Exporter, body string, format letter.Format, dir string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, exportTimeout)
		defer cancel()
		artifact, err := exporter.Export(ctx, body, format)
		if err != nil {
			return exportResultMsg{err: err}, err
		}
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			err = letter.Wrap(letter.ErrExport, "create output dir", err)
			return exportResultMsg{err: err}, err
		}
		path := filepath.Join(dir, artifact.Filename)
		if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
			err = letter.Wrap(letter.ErrExport, "write "+artifact.Filename, err)
			return exportResultMsg{err: err}, err
		}
		return exportResultMsg{artifact: artifact, path: path}, nil
	}
}

func tickEverySecond() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// waitForFinish reports when the capture stream ends without the user stopping it.
func waitForFinish(ch <-chan struct{}, sessionID string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		<-ch
		return captureFinishedMsg{sessionID: sessionID}
	}
}

func formatElapsed(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
