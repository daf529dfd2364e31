package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the process configuration resolved from .env and VOICELETTER_* variables.
// Command line flags override individual fields after Load.
type Config struct {
	Language string

	STTProvider      string
	STTModel         string
	DeepgramKey      string
	StaticTranscript string

	LLMProvider string
	LLMModel    string
	LLMEndpoint string
	OpenAIKey   string

	RecordCommand string
	AudioFile     string

	FontPath       string
	OutputDir      string
	PDFPaginate    bool
	RegenerateFrom string

	LogFile     string
	Addr        string
	CORSOrigins []string
}

const (
	RegenerateFromEdited     = "edited"
	RegenerateFromTranscript = "transcript"
)

// Load reads an optional .env file from the working directory, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// LoadFile is Load with an explicit env file. Variables already set win over the file.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return FromEnv()
}

// FromEnv builds the config from the current environment only.
func FromEnv() (*Config, error) {
	paginate, err := getBoolEnv("VOICELETTER_PDF_PAGINATE", false)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Language: getEnv("VOICELETTER_LANG", "ja"),

		STTProvider:      strings.ToLower(getEnv("VOICELETTER_STT", "")),
		STTModel:         getEnv("VOICELETTER_STT_MODEL", ""),
		DeepgramKey:      getEnv("DEEPGRAM_API_KEY", ""),
		StaticTranscript: getEnv("VOICELETTER_STATIC_TRANSCRIPT", ""),

		LLMProvider: strings.ToLower(getEnv("VOICELETTER_LLM", "")),
		LLMModel:    getEnv("VOICELETTER_LLM_MODEL", ""),
		LLMEndpoint: getEnv("VOICELETTER_LLM_ENDPOINT", ""),
		OpenAIKey:   getEnv("OPENAI_API_KEY", ""),

		RecordCommand: getEnv("VOICELETTER_RECORD_CMD", ""),
		AudioFile:     getEnv("VOICELETTER_AUDIO_FILE", ""),

		FontPath:       getEnv("VOICELETTER_FONT", ""),
		OutputDir:      getEnv("VOICELETTER_OUTPUT_DIR", "."),
		PDFPaginate:    paginate,
		RegenerateFrom: strings.ToLower(getEnv("VOICELETTER_REGENERATE_FROM", RegenerateFromEdited)),

		LogFile: getEnv("VOICELETTER_LOG_FILE", "voiceletter.log"),
		Addr:    getEnv("VOICELETTER_ADDR", ":8080"),

		CORSOrigins: splitList(getEnv("VOICELETTER_CORS_ORIGINS", "")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would only fail later at first use.
func (c *Config) Validate() error {
	switch c.RegenerateFrom {
	case RegenerateFromEdited, RegenerateFromTranscript:
	default:
		return fmt.Errorf("VOICELETTER_REGENERATE_FROM must be %q or %q, got %q", RegenerateFromEdited, RegenerateFromTranscript, c.RegenerateFrom)
	}
	switch c.STTProvider {
	case "", "openai", "deepgram", "static":
	default:
		return fmt.Errorf("unknown speech-to-text provider %q", c.STTProvider)
	}
	switch c.LLMProvider {
	case "", "openai", "ollama", "echo":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// splitList parses a comma separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
