package server

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/csheth/voiceletter/internal/export"
	"github.com/csheth/voiceletter/internal/letter"
	"github.com/csheth/voiceletter/internal/metrics"
	"github.com/csheth/voiceletter/internal/observability"
)

const maxUploadBytes = 25 << 20

// Drafter is the part of the pipeline the HTTP surface needs. The API is
// stateless: every call carries its own text.
type Drafter interface {
	Transcribe(ctx context.Context, audio letter.AudioArtifact) (string, error)
	Compose(ctx context.Context, lctx letter.Context) (letter.Draft, error)
}

// Exporter renders letters.
type Exporter interface {
	Export(ctx context.Context, body string, format letter.Format) (letter.ExportArtifact, error)
}

// Server exposes transcription, generation and export over HTTP.
type Server struct {
	app      *fiber.App
	drafter  Drafter
	exporter Exporter
	metrics  *metrics.Recorder
	origins  []string
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins lets browsers on the given origins call the API.
// Without it no CORS headers are sent and cross-origin pages are refused.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = append(s.origins, origins...) }
}

type transcribeResponse struct {
	Text string `json:"text"`
}

type generateRequest struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
}

type generateResponse struct {
	Letter   string `json:"letter"`
	Template string `json:"template"`
}

type exportRequest struct {
	Text   string `json:"text"`
	Format string `json:"format"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// New builds the fiber app. rec may be nil, which disables /metrics.
func New(drafter Drafter, exporter Exporter, rec *metrics.Recorder, opts ...Option) *Server {
	s := &Server{drafter: drafter, exporter: exporter, metrics: rec}
	for _, opt := range opts {
		opt(s)
	}
	app := fiber.New(fiber.Config{
		AppName:               "voiceletter",
		BodyLimit:             maxUploadBytes,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	if len(s.origins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(s.origins, ","),
			AllowMethods: "GET,POST,OPTIONS",
			AllowHeaders: "Content-Type",
		}))
	}
	app.Use(withLogging)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if rec != nil {
		app.Get("/metrics", adaptor.HTTPHandler(rec.Handler()))
	}
	api := app.Group("/api")
	api.Post("/transcribe", s.handleTranscribe)
	api.Post("/generate", s.handleGenerate)
	api.Post("/export", s.handleExport)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(addr) }()
	observability.Logger().Info("http server listening", "addr", addr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(10 * time.Second)
	}
}

// withLogging tags the request context with the request id and logs every request.
func withLogging(c *fiber.Ctx) error {
	start := time.Now()
	id := c.GetRespHeader(fiber.HeaderXRequestID)
	c.SetUserContext(observability.WithRequestID(c.UserContext(), id))

	err := c.Next()
	if err != nil {
		if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	observability.LoggerFromContext(c.UserContext()).Info("http request",
		"method", c.Method(), "path", c.Path(), "status", c.Response().StatusCode(),
		"duration", time.Since(start).String())
	return nil
}

func (s *Server) handleTranscribe(c *fiber.Ctx) error {
	header, err := c.FormFile("audio")
	if err != nil {
		return letter.Errorf(letter.ErrValidation, "transcribe", "multipart field \"audio\" is required")
	}
	file, err := header.Open()
	if err != nil {
		return letter.Wrap(letter.ErrValidation, "transcribe", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return letter.Wrap(letter.ErrValidation, "transcribe", err)
	}
	mime := header.Header.Get(fiber.HeaderContentType)
	if mime == "" {
		mime = "audio/wav"
	}
	text, err := s.drafter.Transcribe(c.UserContext(), letter.AudioArtifact{
		Data:     data,
		MIMEType: mime,
		Filename: header.Filename,
	})
	if err != nil {
		return err
	}
	return c.JSON(transcribeResponse{Text: text})
}

func (s *Server) handleGenerate(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return letter.Errorf(letter.ErrValidation, "generate", "invalid JSON body")
	}
	draft, err := s.drafter.Compose(c.UserContext(), letter.Context{
		RawText:       req.Text,
		SenderName:    req.Sender,
		RecipientName: req.Recipient,
	})
	if err != nil {
		return err
	}
	return c.JSON(generateResponse{Letter: draft.Body, Template: draft.Template})
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return letter.Errorf(letter.ErrValidation, "export", "invalid JSON body")
	}
	artifact, err := s.exporter.Export(c.UserContext(), req.Text, letter.Format(req.Format))
	if err != nil {
		return err
	}
	c.Attachment(artifact.Filename)
	c.Set(fiber.HeaderContentType, artifact.MIMEType)
	return c.Send(artifact.Data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, export.ErrBusy):
		return fiber.StatusConflict
	case errors.Is(err, letter.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, letter.ErrPermission):
		return fiber.StatusForbidden
	case errors.Is(err, letter.ErrTranscription), errors.Is(err, letter.ErrGeneration):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorResponse{Error: fe.Message, Kind: "http"})
	}
	status := statusFor(err)
	message := letter.Stage(err)
	if status == fiber.StatusBadRequest || status == fiber.StatusConflict {
		message = err.Error()
	}
	logger := observability.LoggerFromContext(c.UserContext())
	if status >= fiber.StatusInternalServerError {
		logger.Error("request failed", "path", c.Path(), "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(errorResponse{Error: message, Kind: letter.KindName(err)})
}
