package stt

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/csheth/voiceletter/internal/letter"
)

type openAITranscriber struct {
	client *openai.Client
	model  string
}

// NewOpenAI transcribes with the Whisper endpoint. baseURL may be empty.
func NewOpenAI(apiKey, model, baseURL string, httpClient *http.Client) Transcriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &openAITranscriber{client: openai.NewClientWithConfig(cfg), model: model}
}

func (t *openAITranscriber) Name() string {
	return fmt.Sprintf("OpenAI (%s)", t.model)
}

func (t *openAITranscriber) Transcribe(ctx context.Context, audio letter.AudioArtifact, language string) (string, error) {
	filename := audio.Filename
	if filename == "" {
		filename = "recording.wav"
	}
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio.Data),
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
