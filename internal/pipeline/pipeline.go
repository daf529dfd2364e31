package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/csheth/voiceletter/internal/letter"
	"github.com/csheth/voiceletter/internal/llm"
	"github.com/csheth/voiceletter/internal/observability"
	"github.com/csheth/voiceletter/internal/prompt"
	"github.com/csheth/voiceletter/internal/stt"
)

// Generation budget. Callers cannot change either value.
const (
	MaxTokens   = 1500
	Temperature = float32(0.7)
)

// ErrStale is returned when a newer ProduceDraft or Regenerate call was
// issued while this one was waiting on a collaborator. The draft is untouched.
var ErrStale = errors.New("superseded by a newer request")

// Policy picks the text Regenerate rewrites.
type Policy int

const (
	// FromEdited rewrites the text currently in the editor.
	FromEdited Policy = iota
	// FromTranscript rewrites the original transcript of the recording.
	FromTranscript
)

// ParsePolicy maps "edited" and "transcript" onto a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "edited":
		return FromEdited, nil
	case "transcript":
		return FromTranscript, nil
	default:
		return FromEdited, letter.Errorf(letter.ErrValidation, "parse policy", "unknown regenerate policy %q", value)
	}
}

// Stage names reported to the Observer.
const (
	StageTranscription = "transcription"
	StageGeneration    = "generation"
)

// Observer receives the latency and outcome of each collaborator call.
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration, error) {}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLanguage fixes the language hint and template family.
func WithLanguage(lang letter.Language) Option {
	return func(o *Orchestrator) { o.lang = lang }
}

// WithPolicy sets the regenerate source.
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithObserver reports stage metrics to obs.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// Orchestrator turns recordings into drafts and keeps the current draft.
type Orchestrator struct {
	transcriber stt.Transcriber
	generator   llm.Client
	templates   *prompt.Templates
	lang        letter.Language
	policy      Policy
	observer    Observer

	seq atomic.Uint64

	mu         sync.Mutex
	draft      letter.Draft
	transcript string
	last       letter.Context
}

// New wires the collaborators. A nil templates value uses the embedded set.
func New(transcriber stt.Transcriber, generator llm.Client, templates *prompt.Templates, opts ...Option) *Orchestrator {
	if templates == nil {
		templates = prompt.Default()
	}
	o := &Orchestrator{
		transcriber: transcriber,
		generator:   generator,
		templates:   templates,
		lang:        letter.LanguageJapanese,
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Language reports the configured language mode.
func (o *Orchestrator) Language() letter.Language { return o.lang }

// ProduceDraft transcribes audio, rewrites the transcript as a letter and
// makes it the current draft.
func (o *Orchestrator) ProduceDraft(ctx context.Context, audio letter.AudioArtifact, lctx letter.Context) (letter.Draft, error) {
	seq := o.seq.Add(1)
	logger := observability.LoggerFromContext(ctx).With("seq", seq)

	transcript, err := o.Transcribe(ctx, audio)
	if err != nil {
		logger.Warn("transcription failed", "error", err)
		return letter.Draft{}, err
	}
	if o.stale(seq) {
		return letter.Draft{}, ErrStale
	}

	lctx = lctx.WithText(transcript)
	draft, err := o.Compose(ctx, lctx)
	if err != nil {
		logger.Warn("generation failed", "error", err)
		return letter.Draft{}, err
	}
	draft.Seq = seq
	if !o.commit(seq, draft, transcript, lctx) {
		logger.Info("dropping stale draft")
		return letter.Draft{}, ErrStale
	}
	logger.Info("draft ready", "template", draft.Template, "chars", len([]rune(draft.Body)))
	return draft, nil
}

// Regenerate re-runs the letter transform over currentText, or over the
// stored transcript under FromTranscript, reusing the last names.
func (o *Orchestrator) Regenerate(ctx context.Context, currentText string) (letter.Draft, error) {
	o.mu.Lock()
	transcript, last := o.transcript, o.last
	o.mu.Unlock()

	source := currentText
	if o.policy == FromTranscript && strings.TrimSpace(transcript) != "" {
		source = transcript
	}
	if strings.TrimSpace(source) == "" {
		return letter.Draft{}, letter.Errorf(letter.ErrValidation, "regenerate", "nothing to regenerate from")
	}
	seq := o.seq.Add(1)

	draft, err := o.Compose(ctx, last.WithText(source))
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("regenerate failed", "seq", seq, "error", err)
		return letter.Draft{}, err
	}
	draft.Seq = seq
	if !o.commit(seq, draft, transcript, last) {
		return letter.Draft{}, ErrStale
	}
	return draft, nil
}

// Transcribe runs the speech-to-text collaborator with the fixed language hint.
func (o *Orchestrator) Transcribe(ctx context.Context, audio letter.AudioArtifact) (string, error) {
	if audio.Empty() {
		return "", letter.Errorf(letter.ErrTranscription, "transcribe", "no audio captured")
	}
	start := time.Now()
	text, err := o.transcriber.Transcribe(ctx, audio, string(o.lang))
	if err == nil && strings.TrimSpace(text) == "" {
		err = letter.Errorf(letter.ErrTranscription, "transcribe", "%s returned an empty transcript", o.transcriber.Name())
	} else if err != nil {
		err = letter.Wrap(letter.ErrTranscription, "transcribe", err)
	}
	o.observer.ObserveStage(StageTranscription, time.Since(start), err)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Compose renders the template for lctx and asks the generator for a letter.
// It does not touch the current draft.
func (o *Orchestrator) Compose(ctx context.Context, lctx letter.Context) (letter.Draft, error) {
	messages, template, err := o.templates.Build(o.lang, lctx)
	if err != nil {
		return letter.Draft{}, err
	}
	start := time.Now()
	body, err := o.generator.Generate(ctx, llm.Request{
		Messages:    messages,
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
	})
	if err == nil && strings.TrimSpace(body) == "" {
		err = letter.Errorf(letter.ErrGeneration, "generate", "%s returned an empty letter", o.generator.Name())
	} else if err != nil {
		err = letter.Wrap(letter.ErrGeneration, "generate", err)
	}
	o.observer.ObserveStage(StageGeneration, time.Since(start), err)
	if err != nil {
		return letter.Draft{}, err
	}
	return letter.Draft{Body: strings.TrimSpace(body), Template: template}, nil
}

// Edit replaces the current draft body.
func (o *Orchestrator) Edit(body string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.Body = body
}

// Draft returns the current draft.
func (o *Orchestrator) Draft() letter.Draft {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.draft
}

// Transcript returns the transcript behind the current draft.
func (o *Orchestrator) Transcript() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript
}

// Abandon makes in-flight calls stale and keeps the current letter.
func (o *Orchestrator) Abandon() {
	o.seq.Add(1)
}

// Reset drops the current letter. In-flight calls become stale.
func (o *Orchestrator) Reset() {
	o.seq.Add(1)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft = letter.Draft{}
	o.transcript = ""
	o.last = letter.Context{}
}

func (o *Orchestrator) stale(seq uint64) bool {
	return o.seq.Load() != seq
}

func (o *Orchestrator) commit(seq uint64, draft letter.Draft, transcript string, lctx letter.Context) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stale(seq) {
		return false
	}
	o.draft = draft
	o.transcript = transcript
	o.last = lctx
	return true
}
