package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/voiceletter/internal/capture"
	"github.com/csheth/voiceletter/internal/config"
	"github.com/csheth/voiceletter/internal/export"
	"github.com/csheth/voiceletter/internal/letter"
	"github.com/csheth/voiceletter/internal/llm"
	"github.com/csheth/voiceletter/internal/metrics"
	"github.com/csheth/voiceletter/internal/observability"
	"github.com/csheth/voiceletter/internal/pipeline"
	"github.com/csheth/voiceletter/internal/server"
	"github.com/csheth/voiceletter/internal/stt"
	"github.com/csheth/voiceletter/internal/tui"
)

const usage = `usage: voiceletter [flags]        record and edit a letter in the terminal
       voiceletter serve [flags]  serve the transcribe, generate and export API`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "voiceletter:", err)
		os.Exit(1)
	}
}

type options struct {
	envFile     string
	noAltScreen bool
	sender      string
	recipient   string
}

func run(args []string) error {
	serve := len(args) > 0 && args[0] == "serve"
	if serve {
		args = args[1:]
	}

	var opts options
	fs := flag.NewFlagSet("voiceletter", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.envFile, "env", "", "load settings from this env file instead of ./.env")
	lang := fs.String("lang", "", "letter language: ja or en")
	sttProvider := fs.String("stt", "", "speech-to-text provider: openai, deepgram or static")
	llmProvider := fs.String("llm", "", "letter writer: openai, ollama or echo")
	llmModel := fs.String("llm-model", "", "override the default model for the letter writer")
	llmEndpoint := fs.String("llm-endpoint", "", "custom LLM endpoint (eg. http://localhost:11434)")
	audioFile := fs.String("audio-file", "", "replay this WAV file instead of recording from the microphone")
	outputDir := fs.String("out", "", "directory exported letters are written to")
	fontPath := fs.String("font", "", "TrueType font for PDF and image export")
	paginate := fs.Bool("paginate", false, "let long letters flow onto extra PDF pages")
	regenerateFrom := fs.String("regenerate-from", "", "text the regenerate action rewrites: edited or transcript")
	logFile := fs.String("log-file", "", "file the terminal UI logs to")
	addr := fs.String("addr", "", "listen address for serve")
	fs.BoolVar(&opts.noAltScreen, "no-alt-screen", false, "disable the alternate screen buffer")
	fs.StringVar(&opts.sender, "from", "", "sender name to sign the letter with")
	fs.StringVar(&opts.recipient, "to", "", "recipient name to address the letter to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(opts.envFile)
	if err != nil {
		return err
	}
	override := func(dst *string, value string) {
		if strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}
	override(&cfg.Language, *lang)
	override(&cfg.STTProvider, strings.ToLower(*sttProvider))
	override(&cfg.LLMProvider, strings.ToLower(*llmProvider))
	override(&cfg.LLMModel, *llmModel)
	override(&cfg.LLMEndpoint, *llmEndpoint)
	override(&cfg.AudioFile, *audioFile)
	override(&cfg.OutputDir, *outputDir)
	override(&cfg.FontPath, *fontPath)
	override(&cfg.RegenerateFrom, strings.ToLower(*regenerateFrom))
	override(&cfg.LogFile, *logFile)
	override(&cfg.Addr, *addr)
	if *paginate {
		cfg.PDFPaginate = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serve {
		return runServer(ctx, cfg)
	}
	return runTUI(ctx, cfg, opts)
}

func loadConfig(envFile string) (*config.Config, error) {
	if envFile != "" {
		return config.LoadFile(envFile)
	}
	return config.Load()
}

type app struct {
	metrics   *metrics.Recorder
	pipeline  *pipeline.Orchestrator
	renderer  *export.Renderer
	providers string
}

func wire(cfg *config.Config) (*app, error) {
	lang, err := letter.ParseLanguage(cfg.Language)
	if err != nil {
		return nil, err
	}
	policy, err := pipeline.ParsePolicy(cfg.RegenerateFrom)
	if err != nil {
		return nil, err
	}
	transcriber, err := stt.New(stt.Config{
		Provider:    cfg.STTProvider,
		Model:       cfg.STTModel,
		OpenAIKey:   cfg.OpenAIKey,
		DeepgramKey: cfg.DeepgramKey,
		StaticText:  cfg.StaticTranscript,
	})
	if err != nil {
		return nil, fmt.Errorf("speech-to-text: %w", err)
	}
	generator, err := llm.NewFromEnv(llm.Config{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		Endpoint: cfg.LLMEndpoint,
		APIKey:   cfg.OpenAIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("letter writer: %w", err)
	}

	rec := metrics.New()
	orchestrator := pipeline.New(transcriber, generator, nil,
		pipeline.WithLanguage(lang),
		pipeline.WithPolicy(policy),
		pipeline.WithObserver(rec),
	)
	renderOpts := []export.Option{
		export.WithPagination(cfg.PDFPaginate),
		export.WithObserver(rec),
	}
	if cfg.FontPath != "" {
		renderOpts = append(renderOpts, export.WithFontFile(cfg.FontPath))
	} else if lang == letter.LanguageJapanese {
		observability.Logger().Warn("built-in font has no japanese glyphs; pdf and image export need -font", "language", string(lang))
	}
	return &app{
		metrics:   rec,
		pipeline:  orchestrator,
		renderer:  export.NewRenderer(renderOpts...),
		providers: fmt.Sprintf("%s → %s", transcriber.Name(), generator.Name()),
	}, nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	a, err := wire(cfg)
	if err != nil {
		return err
	}
	observability.Logger().Info("starting api", "providers", a.providers, "language", string(a.pipeline.Language()))
	return server.New(a.pipeline, a.renderer, a.metrics, server.WithAllowedOrigins(cfg.CORSOrigins...)).Listen(ctx, cfg.Addr)
}

func runTUI(ctx context.Context, cfg *config.Config, opts options) error {
	logPath, err := filepath.Abs(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("resolve log file: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	observability.SetOutput(logFile, slog.LevelInfo)

	a, err := wire(cfg)
	if err != nil {
		return err
	}

	var device capture.Device
	if cfg.AudioFile != "" {
		device = &capture.FileDevice{Path: cfg.AudioFile, Pace: true}
	} else {
		device = capture.NewMicrophone(cfg.RecordCommand)
	}
	recorder := capture.NewController(device)
	observability.Logger().Info("starting terminal ui", "providers", a.providers, "output_dir", cfg.OutputDir)

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if !opts.noAltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Recorder:  recorder,
			Drafter:   a.pipeline,
			Exporter:  a.renderer,
			Sessions:  a.metrics,
			OutputDir: cfg.OutputDir,
			Providers: a.providers,
			Sender:    opts.sender,
			Recipient: opts.recipient,
		}),
		programOpts...,
	)

	_, err = program.Run()
	if state := recorder.State(); state == capture.Recording || state == capture.Paused {
		recorder.Cancel()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
