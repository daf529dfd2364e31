package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/csheth/voiceletter/internal/letter"
)

const (
	defaultDeepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultDeepgramModel    = "nova-2"
	deepgramFrameSize       = 8 * 1024
)

type deepgramTranscriber struct {
	apiKey   string
	model    string
	endpoint string
	dialer   *websocket.Dialer
}

// NewDeepgram streams the recording over Deepgram's live websocket and
// collects the final transcript segments.
func NewDeepgram(apiKey, model, endpoint string) Transcriber {
	if model == "" {
		model = defaultDeepgramModel
	}
	if endpoint == "" {
		endpoint = defaultDeepgramEndpoint
	}
	return &deepgramTranscriber{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
	}
}

func (t *deepgramTranscriber) Name() string {
	return fmt.Sprintf("Deepgram (%s)", t.model)
}

type deepgramResult struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (t *deepgramTranscriber) listenURL(language string) (string, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return "", fmt.Errorf("deepgram endpoint: %w", err)
	}
	q := u.Query()
	q.Set("model", t.model)
	if language != "" {
		q.Set("language", language)
	}
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (t *deepgramTranscriber) Transcribe(ctx context.Context, audio letter.AudioArtifact, language string) (string, error) {
	target, err := t.listenURL(language)
	if err != nil {
		return "", err
	}
	header := http.Header{"Authorization": {"Token " + t.apiKey}}
	conn, _, err := t.dialer.DialContext(ctx, target, header)
	if err != nil {
		return "", fmt.Errorf("deepgram dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- sendAudio(conn, audio.Data)
	}()

	var segments []string
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", fmt.Errorf("deepgram read: %w", err)
		}
		segments = append(segments, finalSegments(msg)...)
	}
	if err := <-writeErr; err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(segments, joinerFor(language))), nil
}

func sendAudio(conn *websocket.Conn, data []byte) error {
	for start := 0; start < len(data); start += deepgramFrameSize {
		end := min(start+deepgramFrameSize, len(data))
		if err := conn.WriteMessage(websocket.BinaryMessage, data[start:end]); err != nil {
			return fmt.Errorf("deepgram write: %w", err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("deepgram close stream: %w", err)
	}
	return nil
}

// finalSegments accepts a single result object or an array of them.
func finalSegments(msg []byte) []string {
	if len(msg) == 0 {
		return nil
	}
	var results []deepgramResult
	switch msg[0] {
	case '[':
		if err := json.Unmarshal(msg, &results); err != nil {
			return nil
		}
	case '{':
		var single deepgramResult
		if err := json.Unmarshal(msg, &single); err != nil {
			return nil
		}
		results = append(results, single)
	default:
		return nil
	}
	var out []string
	for _, r := range results {
		if !r.IsFinal || len(r.Channel.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(r.Channel.Alternatives[0].Transcript); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// Japanese transcripts are joined without spaces.
func joinerFor(language string) string {
	if strings.HasPrefix(strings.ToLower(language), string(letter.LanguageJapanese)) {
		return ""
	}
	return " "
}
