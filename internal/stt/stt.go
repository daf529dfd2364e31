package stt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/csheth/voiceletter/internal/letter"
)

const defaultSTTHTTPTimeout = 2 * time.Minute

// Transcriber turns one finished recording into text in the requested language.
type Transcriber interface {
	Transcribe(ctx context.Context, audio letter.AudioArtifact, language string) (string, error)
	Name() string
}

// Config selects and configures a transcription provider.
type Config struct {
	Provider    string
	Model       string
	OpenAIKey   string
	DeepgramKey string
	// Endpoint overrides the provider base URL (OpenAI) or websocket URL (Deepgram).
	Endpoint   string
	StaticText string
	HTTPClient *http.Client
}

// New builds the configured transcriber. With no provider named it prefers
// OpenAI, then Deepgram, depending on which key is present.
func New(cfg Config) (Transcriber, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		switch {
		case cfg.OpenAIKey != "":
			provider = "openai"
		case cfg.DeepgramKey != "":
			provider = "deepgram"
		default:
			return nil, fmt.Errorf("no speech-to-text provider configured: set OPENAI_API_KEY, DEEPGRAM_API_KEY or VOICELETTER_STT=static")
		}
	}
	switch provider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for openai transcription")
		}
		return NewOpenAI(cfg.OpenAIKey, cfg.Model, cfg.Endpoint, pickHTTPClient(cfg.HTTPClient)), nil
	case "deepgram":
		if cfg.DeepgramKey == "" {
			return nil, fmt.Errorf("DEEPGRAM_API_KEY is required for deepgram transcription")
		}
		return NewDeepgram(cfg.DeepgramKey, cfg.Model, cfg.Endpoint), nil
	case "static":
		return Static{Text: cfg.StaticText}, nil
	default:
		return nil, fmt.Errorf("unknown speech-to-text provider %q", cfg.Provider)
	}
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	return &http.Client{Timeout: defaultSTTHTTPTimeout}
}

// Static returns the same transcript for every recording.
type Static struct {
	Text string
}

func (s Static) Name() string { return "static" }

func (s Static) Transcribe(ctx context.Context, audio letter.AudioArtifact, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Text, nil
}
