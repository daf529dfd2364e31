package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/voiceletter/internal/capture"
	"github.com/csheth/voiceletter/internal/letter"
	"github.com/csheth/voiceletter/internal/observability"
	"github.com/csheth/voiceletter/internal/pipeline"
)

// New builds the root bubbletea model.
func New(cfg Config) tea.Model {
	senderInput := textinput.New()
	senderInput.Placeholder = "Your name (optional)"
	senderInput.Prompt = "From: "
	senderInput.CharLimit = 80
	senderInput.SetValue(cfg.Sender)

	recipientInput := textinput.New()
	recipientInput.Placeholder = "Their name (optional)"
	recipientInput.Prompt = "To:   "
	recipientInput.CharLimit = 80
	recipientInput.SetValue(cfg.Recipient)

	editor := textarea.New()
	editor.Placeholder = "Your letter will appear here."
	editor.ShowLineNumbers = false
	editor.CharLimit = 0

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	layout := newPageLayout()
	editor.SetWidth(layout.editorWidth)
	editor.SetHeight(layout.editorHeight)

	return &model{
		config:    cfg,
		jobs:      newJobBus(),
		layout:    layout,
		stage:     stageIdle,
		sender:    senderInput,
		recipient: recipientInput,
		editor:    editor,
		spinner:   spin,
	}
}

type model struct {
	config Config
	jobs   *jobBus
	layout pageLayout
	stage  stage

	sender    textinput.Model
	recipient textinput.Model
	focus     focusField
	editor    textarea.Model
	spinner   spinner.Model

	sessionID string
	elapsed   time.Duration
	paused    bool

	pendingDraft  string
	regenerating  bool
	pendingExport string
	exporting     letter.Format
	draft         letter.Draft
	hasDraft      bool

	notice        string
	noticeIsError bool
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.editor.SetWidth(m.layout.editorWidth)
		m.editor.SetHeight(m.layout.editorHeight)
		return m, nil
	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tickMsg:
		if m.stage != stageRecording {
			return m, nil
		}
		m.elapsed = m.config.Recorder.Elapsed()
		return m, tickEverySecond()
	case jobSignalMsg:
		return m, nil
	case jobResultEnvelope:
		return m, m.handleJobResult(msg)
	case captureFinishedMsg:
		return m, m.handleCaptureFinished(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, m.updateInputs(msg)
}

func (m *model) busy() bool {
	return m.stage == stageStarting || m.stage == stageDrafting || m.pendingExport != ""
}

func (m *model) updateInputs(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.sender, cmd = m.sender.Update(msg)
	cmds = append(cmds, cmd)
	m.recipient, cmd = m.recipient.Update(msg)
	cmds = append(cmds, cmd)
	if m.stage == stageEditing {
		m.editor, cmd = m.editor.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit
	}
	switch m.stage {
	case stageIdle:
		return m.handleIdleKey(key)
	case stageRecording:
		return m, m.handleRecordingKey(key)
	case stageDrafting:
		if key.String() == "esc" {
			m.abandonDraft()
		}
		return m, nil
	case stageEditing:
		return m, m.handleEditingKey(key)
	}
	return m, nil
}

func (m *model) handleIdleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focus != focusNone {
		switch key.String() {
		case "tab", "enter":
			return m, m.cycleFocus()
		case "esc":
			m.setFocus(focusNone)
			return m, nil
		}
		var cmd tea.Cmd
		if m.focus == focusSender {
			m.sender, cmd = m.sender.Update(key)
		} else {
			m.recipient, cmd = m.recipient.Update(key)
		}
		return m, cmd
	}
	switch key.String() {
	case "tab":
		return m, m.cycleFocus()
	case "r":
		return m, m.startRecording()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) cycleFocus() tea.Cmd {
	switch m.focus {
	case focusSender:
		return m.setFocus(focusRecipient)
	case focusRecipient:
		return m.setFocus(focusNone)
	default:
		return m.setFocus(focusSender)
	}
}

func (m *model) setFocus(field focusField) tea.Cmd {
	m.focus = field
	m.sender.Blur()
	m.recipient.Blur()
	switch field {
	case focusSender:
		return m.sender.Focus()
	case focusRecipient:
		return m.recipient.Focus()
	}
	return nil
}

func (m *model) startRecording() tea.Cmd {
	if m.config.Recorder == nil {
		m.fail(letter.Errorf(letter.ErrPermission, "start capture", "no input device configured"))
		return nil
	}
	m.clearNotice()
	m.stage = stageStarting
	_, cmd := m.jobs.Start(jobKindCapture, startCaptureJob(m.config.Recorder))
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m *model) handleRecordingKey(key tea.KeyMsg) tea.Cmd {
	rec := m.config.Recorder
	switch key.String() {
	case "p", " ":
		if m.paused {
			rec.Resume()
		} else {
			rec.Pause()
		}
		m.paused = rec.State() == capture.Paused
		m.elapsed = rec.Elapsed()
	case "s":
		return m.stopRecording()
	case "esc":
		rec.Cancel()
		m.countSession("cancelled")
		m.stage = stageIdle
		m.info("Recording discarded.")
	}
	return nil
}

func (m *model) stopRecording() tea.Cmd {
	rec := m.config.Recorder
	sessionID := m.sessionID
	artifact := rec.Stop()
	stopErr := rec.Err()
	rec.Reset()
	m.paused = false
	if artifact == nil {
		m.stage = stageIdle
		return nil
	}
	if artifact.Empty() && stopErr != nil {
		if letter.KindOf(stopErr) == nil {
			stopErr = letter.Wrap(letter.ErrPermission, "read input device", stopErr)
		}
		m.countSession("failed")
		m.stage = stageIdle
		m.fail(stopErr)
		return nil
	}
	m.countSession("stopped")
	m.elapsed = artifact.Duration
	observability.Logger().Info("recording handed off", "session_id", sessionID, "bytes", len(artifact.Data))

	lctx := letter.Context{
		SenderName:    m.sender.Value(),
		RecipientName: m.recipient.Value(),
	}
	m.stage = stageDrafting
	m.regenerating = false
	m.clearNotice()
	id, cmd := m.jobs.Start(jobKindDraft, produceDraftJob(m.config.Drafter, *artifact, lctx, sessionID))
	m.pendingDraft = id
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m *model) handleCaptureFinished(msg captureFinishedMsg) tea.Cmd {
	if m.stage != stageRecording || msg.sessionID != m.sessionID {
		return nil
	}
	rec := m.config.Recorder
	if err := rec.Err(); err != nil {
		rec.Cancel()
		m.countSession("failed")
		m.stage = stageIdle
		m.fail(letter.Wrap(letter.ErrPermission, "read input device", err))
		return nil
	}
	return m.stopRecording()
}

func (m *model) handleEditingKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "ctrl+r":
		return m.regenerate()
	case "ctrl+t":
		return m.export(letter.FormatText)
	case "ctrl+p":
		return m.export(letter.FormatPDF)
	case "ctrl+g":
		return m.export(letter.FormatImage)
	case "ctrl+n":
		m.newLetter()
		return nil
	}
	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(key)
	if after := m.editor.Value(); after != before {
		m.config.Drafter.Edit(after)
		m.draft.Body = after
	}
	return cmd
}

func (m *model) regenerate() tea.Cmd {
	if m.pendingDraft != "" {
		return nil
	}
	m.stage = stageDrafting
	m.regenerating = true
	m.clearNotice()
	id, cmd := m.jobs.Start(jobKindRegenerate, regenerateJob(m.config.Drafter, m.editor.Value()))
	m.pendingDraft = id
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m *model) export(format letter.Format) tea.Cmd {
	if m.pendingExport != "" {
		m.info(fmt.Sprintf("Still exporting %s…", m.exporting))
		return nil
	}
	m.exporting = format
	m.clearNotice()
	id, cmd := m.jobs.Start(jobKindExport, exportJob(m.config.Exporter, m.editor.Value(), format, m.config.OutputDir))
	m.pendingExport = id
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m *model) newLetter() {
	m.config.Drafter.Reset()
	m.pendingDraft = ""
	m.draft = letter.Draft{}
	m.hasDraft = false
	m.editor.Reset()
	m.editor.Blur()
	m.elapsed = 0
	m.stage = stageIdle
	m.info("Started a new letter.")
}

// abandonDraft drops the in-flight draft job. A regeneration falls back to
// the letter being edited; a first draft returns to the idle screen.
func (m *model) abandonDraft() {
	m.pendingDraft = ""
	if m.hasDraft {
		m.config.Drafter.Abandon()
		m.config.Drafter.Edit(m.editor.Value())
		m.stage = stageEditing
		m.info("Regeneration cancelled.")
		return
	}
	m.config.Drafter.Reset()
	m.stage = stageIdle
	m.info("Draft cancelled.")
}

func (m *model) handleJobResult(env jobResultEnvelope) tea.Cmd {
	switch payload := env.Payload.(type) {
	case captureStartedMsg:
		if m.stage != stageStarting {
			return nil
		}
		if payload.err != nil {
			m.countSession("denied")
			m.stage = stageIdle
			m.fail(payload.err)
			return nil
		}
		m.stage = stageRecording
		m.sessionID = m.config.Recorder.SessionID()
		m.elapsed = 0
		m.paused = false
		return tea.Batch(tickEverySecond(), waitForFinish(m.config.Recorder.Finished(), m.sessionID))
	case draftResultMsg:
		if env.Snapshot.ID != m.pendingDraft {
			return nil
		}
		m.pendingDraft = ""
		if payload.err != nil {
			if !errors.Is(payload.err, pipeline.ErrStale) {
				m.fail(payload.err)
			}
			if m.hasDraft {
				m.stage = stageEditing
			} else {
				m.stage = stageIdle
			}
			return nil
		}
		m.draft = payload.draft
		m.hasDraft = true
		m.editor.SetValue(payload.draft.Body)
		m.stage = stageEditing
		if m.regenerating {
			m.info("Letter regenerated.")
		} else {
			m.info("Draft ready. Edit freely, then export.")
		}
		return m.editor.Focus()
	case exportResultMsg:
		if env.Snapshot.ID != m.pendingExport {
			return nil
		}
		m.pendingExport = ""
		if payload.err != nil {
			m.fail(payload.err)
			return nil
		}
		m.info(fmt.Sprintf("Saved %s (%s)", payload.path, formatSize(len(payload.artifact.Data))))
	}
	return nil
}

func (m *model) shutdown() {
	if m.config.Recorder == nil {
		return
	}
	switch m.config.Recorder.State() {
	case capture.Recording, capture.Paused:
		m.config.Recorder.Cancel()
		m.countSession("cancelled")
	}
}

func (m *model) countSession(outcome string) {
	if m.config.Sessions != nil {
		m.config.Sessions.CaptureSession(outcome)
	}
}

// fail replaces the notice line with err and the stage it came from.
func (m *model) fail(err error) {
	m.notice = fmt.Sprintf("%s: %v", letter.Stage(err), err)
	m.noticeIsError = true
	observability.Logger().Warn("stage failed", "kind", letter.KindName(err), "error", err)
}

func (m *model) info(message string) {
	m.notice = message
	m.noticeIsError = false
}

func (m *model) clearNotice() {
	m.notice = ""
	m.noticeIsError = false
}
