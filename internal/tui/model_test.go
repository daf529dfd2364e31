package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/voiceletter/internal/capture"
	"github.com/csheth/voiceletter/internal/letter"
	"github.com/csheth/voiceletter/internal/pipeline"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func (m *model) press(t *testing.T, key tea.KeyMsg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(key)
	return cmd
}

func recorderOf(m *model) *fakeRecorder { return m.config.Recorder.(*fakeRecorder) }
func drafterOf(m *model) *fakeDrafter   { return m.config.Drafter.(*fakeDrafter) }
func sessionsOf(m *model) *fakeSessions { return m.config.Sessions.(*fakeSessions) }

// startedModel returns a model that is recording.
func startedModel(t *testing.T) *model {
	t.Helper()
	m := newTestModel(t)
	if cmd := m.press(t, runes("r")); cmd == nil {
		t.Fatal("record key should start a capture job")
	}
	if m.stage != stageStarting {
		t.Fatalf("expected starting stage, got %v", m.stage)
	}
	if err := recorderOf(m).Start(context.Background()); err != nil {
		t.Fatalf("fake start: %v", err)
	}
	m.Update(jobResultEnvelope{Snapshot: jobSnapshot{ID: "capture-1"}, Payload: captureStartedMsg{}})
	if m.stage != stageRecording {
		t.Fatalf("expected recording stage, got %v", m.stage)
	}
	return m
}

// editingModel returns a model showing a received draft.
func editingModel(t *testing.T, body string) *model {
	t.Helper()
	m := startedModel(t)
	m.press(t, runes("s"))
	m.Update(jobResultEnvelope{
		Snapshot: jobSnapshot{ID: m.pendingDraft},
		Payload:  draftResultMsg{draft: letter.Draft{Body: body, Seq: 1, Template: "generic"}},
	})
	if m.stage != stageEditing {
		t.Fatalf("expected editing stage, got %v", m.stage)
	}
	return m
}

func TestRecordStartRecordsSession(t *testing.T) {
	m := startedModel(t)
	if m.sessionID != "session-1" {
		t.Fatalf("unexpected session id %q", m.sessionID)
	}
	if !strings.Contains(m.View(), "REC") {
		t.Fatal("recording view should show the REC indicator")
	}
}

func TestCaptureStartFailureShowsNotice(t *testing.T) {
	m := newTestModel(t)
	m.press(t, runes("r"))
	err := letter.Wrap(letter.ErrPermission, "acquire input device", errors.New("no device"))
	m.Update(jobResultEnvelope{Snapshot: jobSnapshot{ID: "capture-1"}, Payload: captureStartedMsg{err: err}})

	if m.stage != stageIdle {
		t.Fatalf("expected idle stage, got %v", m.stage)
	}
	if !m.noticeIsError || !strings.HasPrefix(m.notice, "Microphone access failed:") {
		t.Fatalf("unexpected notice %q", m.notice)
	}
	if got := sessionsOf(m).outcomes; len(got) != 1 || got[0] != "denied" {
		t.Fatalf("unexpected session outcomes %v", got)
	}
}

func TestPauseTogglesIndicator(t *testing.T) {
	m := startedModel(t)
	m.press(t, runes("p"))
	if !m.paused || recorderOf(m).State() != capture.Paused {
		t.Fatal("p should pause the recording")
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Fatal("paused indicator missing")
	}
	m.press(t, runes("p"))
	if m.paused || recorderOf(m).State() != capture.Recording {
		t.Fatal("p should resume the recording")
	}
}

func TestStopHandsOffToDraftJob(t *testing.T) {
	m := startedModel(t)
	if cmd := m.press(t, runes("s")); cmd == nil {
		t.Fatal("stop should start a draft job")
	}
	if m.stage != stageDrafting || m.pendingDraft == "" {
		t.Fatalf("expected pending draft, stage=%v id=%q", m.stage, m.pendingDraft)
	}
	rec := recorderOf(m)
	if rec.stops != 1 || rec.State() != capture.Idle {
		t.Fatalf("recorder should be stopped and reset, stops=%d state=%v", rec.stops, rec.State())
	}
	if got := sessionsOf(m).outcomes; len(got) != 1 || got[0] != "stopped" {
		t.Fatalf("unexpected session outcomes %v", got)
	}
}

func TestEscDiscardsRecording(t *testing.T) {
	m := startedModel(t)
	m.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	if m.stage != stageIdle || recorderOf(m).cancels != 1 {
		t.Fatalf("esc should cancel, stage=%v cancels=%d", m.stage, recorderOf(m).cancels)
	}
	if m.noticeIsError {
		t.Fatalf("discarding is not a failure: %q", m.notice)
	}
}

func TestDraftResultFillsEditor(t *testing.T) {
	m := editingModel(t, "Dear Ann,\n\nThank you.")
	if got := m.editor.Value(); got != "Dear Ann,\n\nThank you." {
		t.Fatalf("editor not filled: %q", got)
	}
	if m.pendingDraft != "" {
		t.Fatal("pending draft should clear once applied")
	}
	if !strings.Contains(m.View(), "revision 1") {
		t.Fatal("draft header missing revision")
	}
}

func TestStaleDraftResultIgnored(t *testing.T) {
	m := startedModel(t)
	m.press(t, runes("s"))
	current := m.pendingDraft
	m.Update(jobResultEnvelope{
		Snapshot: jobSnapshot{ID: "draft-old"},
		Payload:  draftResultMsg{draft: letter.Draft{Body: "stale"}},
	})
	if m.stage != stageDrafting || m.pendingDraft != current {
		t.Fatalf("stale result should be dropped, stage=%v pending=%q", m.stage, m.pendingDraft)
	}
	if m.editor.Value() != "" {
		t.Fatalf("stale body leaked into the editor: %q", m.editor.Value())
	}
}

func TestFirstDraftFailureReturnsToIdle(t *testing.T) {
	m := startedModel(t)
	m.press(t, runes("s"))
	err := letter.Errorf(letter.ErrTranscription, "transcribe", "empty transcript")
	m.Update(jobResultEnvelope{Snapshot: jobSnapshot{ID: m.pendingDraft}, Payload: draftResultMsg{err: err}})
	if m.stage != stageIdle {
		t.Fatalf("expected idle stage, got %v", m.stage)
	}
	if !strings.HasPrefix(m.notice, "Transcription failed:") {
		t.Fatalf("unexpected notice %q", m.notice)
	}
	if strings.Contains(m.notice, "\n") {
		t.Fatalf("notice should be a single line: %q", m.notice)
	}
}

func TestRegenerateFailureKeepsEdits(t *testing.T) {
	m := editingModel(t, "draft")
	m.press(t, runes("!"))
	if m.press(t, tea.KeyMsg{Type: tea.KeyCtrlR}) == nil {
		t.Fatal("ctrl+r should start a regenerate job")
	}
	if !m.regenerating || m.stage != stageDrafting {
		t.Fatalf("expected regeneration in flight, stage=%v", m.stage)
	}
	err := letter.Errorf(letter.ErrGeneration, "generate", "upstream 500")
	m.Update(jobResultEnvelope{Snapshot: jobSnapshot{ID: m.pendingDraft}, Payload: draftResultMsg{err: err}})
	if m.stage != stageEditing {
		t.Fatalf("expected editing stage, got %v", m.stage)
	}
	if m.editor.Value() != "draft!" {
		t.Fatalf("edits lost: %q", m.editor.Value())
	}
	if !strings.HasPrefix(m.notice, "Letter generation failed:") {
		t.Fatalf("unexpected notice %q", m.notice)
	}
}

func TestStaleErrorIsSilent(t *testing.T) {
	m := editingModel(t, "draft")
	m.press(t, tea.KeyMsg{Type: tea.KeyCtrlR})
	m.Update(jobResultEnvelope{Snapshot: jobSnapshot{ID: m.pendingDraft}, Payload: draftResultMsg{err: pipeline.ErrStale}})
	if m.notice != "" {
		t.Fatalf("stale results should not raise a notice: %q", m.notice)
	}
}

func TestTypingRecordsEdits(t *testing.T) {
	m := editingModel(t, "hi")
	m.press(t, runes("x"))
	edits := drafterOf(m).edits
	if len(edits) == 0 || edits[len(edits)-1] != "hix" {
		t.Fatalf("expected edit of %q, got %v", "hix", edits)
	}
}

func TestEditorShortcutsDoNotType(t *testing.T) {
	m := editingModel(t, "hi")
	m.press(t, tea.KeyMsg{Type: tea.KeyCtrlT})
	if m.pendingExport == "" || m.exporting != letter.FormatText {
		t.Fatalf("ctrl+t should export text, pending=%q format=%q", m.pendingExport, m.exporting)
	}
	m.press(t, tea.KeyMsg{Type: tea.KeyCtrlP})
	if m.exporting != letter.FormatText {
		t.Fatal("a second export should wait for the first")
	}
	if m.editor.Value() != "hi" {
		t.Fatalf("shortcut leaked into the editor: %q", m.editor.Value())
	}
}

func TestExportResultUpdatesNotice(t *testing.T) {
	m := editingModel(t, "hi")
	m.press(t, tea.KeyMsg{Type: tea.KeyCtrlG})
	id := m.pendingExport
	m.Update(jobResultEnvelope{
		Snapshot: jobSnapshot{ID: id},
		Payload:  exportResultMsg{artifact: letter.ExportArtifact{Data: make([]byte, 2048)}, path: "/tmp/letter.png"},
	})
	if m.pendingExport != "" {
		t.Fatal("pending export should clear")
	}
	if m.notice != "Saved /tmp/letter.png (2.0 KB)" {
		t.Fatalf("unexpected notice %q", m.notice)
	}
}

func TestNewLetterResetsPipeline(t *testing.T) {
	m := editingModel(t, "hi")
	m.press(t, tea.KeyMsg{Type: tea.KeyCtrlN})
	if m.stage != stageIdle || m.hasDraft || m.editor.Value() != "" {
		t.Fatalf("new letter should clear state, stage=%v value=%q", m.stage, m.editor.Value())
	}
	if drafterOf(m).resets != 1 {
		t.Fatalf("expected one pipeline reset, got %d", drafterOf(m).resets)
	}
}

func TestCaptureFinishedWithErrorCancels(t *testing.T) {
	m := startedModel(t)
	recorderOf(m).readErr = errors.New("device unplugged")
	m.Update(captureFinishedMsg{sessionID: m.sessionID})
	if m.stage != stageIdle || recorderOf(m).cancels != 1 {
		t.Fatalf("read failure should cancel, stage=%v", m.stage)
	}
	if !strings.HasPrefix(m.notice, "Microphone access failed:") {
		t.Fatalf("unexpected notice %q", m.notice)
	}
}

func TestStopWithUnencodableRecordingFails(t *testing.T) {
	m := startedModel(t)
	rec := recorderOf(m)
	rec.artifact = &letter.AudioArtifact{MIMEType: "audio/wav", Filename: "recording.wav"}
	rec.readErr = letter.Wrap(letter.ErrTranscription, "encode recording", errors.New("unsupported bits per sample 12"))
	if cmd := m.press(t, runes("s")); cmd != nil {
		t.Fatal("a failed recording should not start a draft job")
	}
	if m.stage != stageIdle || m.pendingDraft != "" {
		t.Fatalf("expected idle without a draft, stage=%v id=%q", m.stage, m.pendingDraft)
	}
	if !m.noticeIsError || !strings.HasPrefix(m.notice, "Transcription failed:") {
		t.Fatalf("unexpected notice %q", m.notice)
	}
	if got := sessionsOf(m).outcomes; len(got) != 1 || got[0] != "failed" {
		t.Fatalf("unexpected session outcomes %v", got)
	}
}

func TestCaptureFinishedStopsAtEndOfInput(t *testing.T) {
	m := startedModel(t)
	m.Update(captureFinishedMsg{sessionID: "other"})
	if m.stage != stageRecording {
		t.Fatal("finish from another session should be ignored")
	}
	m.Update(captureFinishedMsg{sessionID: m.sessionID})
	if m.stage != stageDrafting {
		t.Fatalf("end of input should hand off, stage=%v", m.stage)
	}
}

func TestTabCyclesNameInputs(t *testing.T) {
	m := newTestModel(t)
	m.press(t, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusSender {
		t.Fatalf("expected sender focus, got %v", m.focus)
	}
	m.press(t, runes("r"))
	if m.sender.Value() != "r" || m.stage != stageIdle {
		t.Fatalf("typing in a field should not start recording, value=%q stage=%v", m.sender.Value(), m.stage)
	}
	m.press(t, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusRecipient {
		t.Fatalf("expected recipient focus, got %v", m.focus)
	}
	m.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	if m.focus != focusNone {
		t.Fatalf("esc should blur, got %v", m.focus)
	}
}

func TestDraftUsesNameInputs(t *testing.T) {
	m := newTestModel(t)
	m.sender.SetValue("Ken")
	m.recipient.SetValue("Ann")
	m.press(t, runes("r"))
	if err := recorderOf(m).Start(context.Background()); err != nil {
		t.Fatalf("fake start: %v", err)
	}
	m.Update(jobResultEnvelope{Payload: captureStartedMsg{}})
	if !strings.Contains(m.View(), "to Ann") {
		t.Fatal("recording hint should name the recipient")
	}
}

func TestEscDuringRegenerateKeepsEditedLetter(t *testing.T) {
	m := editingModel(t, "draft")
	m.press(t, runes("!"))
	m.press(t, tea.KeyMsg{Type: tea.KeyCtrlR})
	m.press(t, tea.KeyMsg{Type: tea.KeyEsc})

	d := drafterOf(m)
	if m.stage != stageEditing || m.pendingDraft != "" {
		t.Fatalf("esc should return to the editor, stage=%v pending=%q", m.stage, m.pendingDraft)
	}
	if d.abandons != 1 || d.resets != 0 {
		t.Fatalf("expected one abandon and no reset, abandons=%d resets=%d", d.abandons, d.resets)
	}
	if last := d.edits[len(d.edits)-1]; last != "draft!" {
		t.Fatalf("pipeline letter should match the editor, got %q", last)
	}
}

func TestEscDuringFirstDraftResets(t *testing.T) {
	m := startedModel(t)
	m.press(t, runes("s"))
	m.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	d := drafterOf(m)
	if m.stage != stageIdle || d.resets != 1 || d.abandons != 0 {
		t.Fatalf("unexpected state stage=%v resets=%d abandons=%d", m.stage, d.resets, d.abandons)
	}
}
