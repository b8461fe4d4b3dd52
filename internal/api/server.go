// Package api exposes the event log over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kittclouds/babylog/internal/auth"
	"github.com/kittclouds/babylog/internal/store"
	"github.com/kittclouds/babylog/pkg/tracker"
)

// Tracker is the event-log surface the handlers call.
type Tracker interface {
	ToggleSleep(ctx context.Context) (*tracker.ToggleResult, error)
	ToggleNightWake(ctx context.Context) (*tracker.ToggleResult, error)
	AppendFeed(ctx context.Context, in tracker.FeedInput) (*store.Event, error)
	AppendDiaper(ctx context.Context, in tracker.DiaperInput) (*store.Event, error)
	AppendGrowth(ctx context.Context, in tracker.GrowthInput) (*store.Event, error)
	AppendNote(ctx context.Context, in tracker.NoteInput) (*store.Event, error)
	Status(ctx context.Context) (*tracker.Status, error)
	Summary(ctx context.Context, windowHours int) (*tracker.Summary, error)
	ListEvents(ctx context.Context, in tracker.ListInput) ([]*store.Event, error)
	UpdateEvent(ctx context.Context, id int64, p tracker.EventPatch) (*store.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// Exporter produces a JSON backup of the event log.
type Exporter interface {
	Export(ctx context.Context) ([]byte, error)
}

// Config wraps the knobs that impact runtime behavior.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Deps are the collaborators the server is wired to.
type Deps struct {
	Tracker  Tracker
	Auth     *auth.Authenticator
	Exporter Exporter
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Log      *slog.Logger
}

// Server exposes the Fiber application.
type Server struct {
	app      *fiber.App
	cfg      Config
	tracker  Tracker
	auth     *auth.Authenticator
	exporter Exporter
	log      *slog.Logger
}

const sessionKey = "session"

// NewServer wires handlers and middleware.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	log := deps.Log.With(slog.String("component", "api"))

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          errorHandler(log),
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Format: "${time} | ${status} | ${latency} | ${method} ${path}\n"}))
	app.Use(cors.New(cors.Config{AllowHeaders: "Origin, Content-Type, Accept, Authorization"}))

	srv := &Server{
		app:      app,
		cfg:      cfg,
		tracker:  deps.Tracker,
		auth:     deps.Auth,
		exporter: deps.Exporter,
		log:      log,
	}
	srv.registerRoutes(deps.Gatherer)
	return srv
}

// Run starts listening for HTTP traffic until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.app.Shutdown()
	}()

	s.log.Info("babylog listening", slog.String("addr", s.cfg.Addr))
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := s.app.Group("/api")
	api.Post("/login", s.handleLogin)

	authed := api.Group("", s.requireSession)
	authed.Post("/logout", s.handleLogout)

	authed.Post("/sleep/toggle", s.handleToggleSleep)
	authed.Post("/night-wake/toggle", s.handleToggleNightWake)
	authed.Post("/feed", s.handleAppendFeed)
	authed.Post("/diaper", s.handleAppendDiaper)
	authed.Post("/growth", s.handleAppendGrowth)
	authed.Post("/note", s.handleAppendNote)

	authed.Get("/status", s.handleStatus)
	authed.Get("/summary", s.handleSummary)

	authed.Get("/events", s.handleListEvents)
	authed.Patch("/events/:id", s.handleUpdateEvent)
	authed.Delete("/events/:id", s.handleDeleteEvent)
	authed.Get("/export", s.handleExport)
}

// requireSession rejects requests without a live bearer token.
func (s *Server) requireSession(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	sess, ok := s.auth.Authenticate(token)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "login required")
	}
	c.Locals(sessionKey, sess)
	return c.Next()
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// errorHandler maps tracker and auth errors onto HTTP status codes.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal error"

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code, msg = fe.Code, fe.Message
		case tracker.IsValidation(err):
			code, msg = fiber.StatusBadRequest, validationMessage(err)
		case tracker.IsNotFound(err):
			code, msg = fiber.StatusNotFound, notFoundMessage(err)
		case errors.Is(err, auth.ErrInvalidCredentials):
			code, msg = fiber.StatusUnauthorized, "invalid username or password"
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}

func validationMessage(err error) string {
	var ve *tracker.ValidationError
	errors.As(err, &ve)
	return ve.Error()
}

func notFoundMessage(err error) string {
	var nf *tracker.NotFoundError
	errors.As(err, &nf)
	return nf.Error()
}
