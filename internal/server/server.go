package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/config"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/middleware"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: ErrorHandler(logger),
	})

	if err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger}); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  apperr.Kind `json:"code"`
}

// ErrorHandler renders every error as {"error", "code"}. Internal errors are
// logged and their details withheld from the client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			fe  *fiber.Error
			ae  *apperr.Error
			res errorResponse
		)
		status := http.StatusInternalServerError
		switch {
		case errors.As(err, &ae):
			res = errorResponse{Error: ae.Message, Code: ae.Kind}
			status = apperr.Status(ae.Kind)
		case errors.As(err, &fe):
			res = errorResponse{Error: fe.Message, Code: kindForStatus(fe.Code)}
			status = fe.Code
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request error",
				slog.String("request_id", middleware.RequestIDFrom(c)),
				slog.String("path", c.Path()),
				slog.Any("error", err))
			res = errorResponse{Error: "internal server error", Code: apperr.Internal}
		}
		return c.Status(status).JSON(res)
	}
}

func kindForStatus(status int) apperr.Kind {
	switch status {
	case http.StatusNotFound:
		return apperr.NotFound
	case http.StatusMethodNotAllowed:
		return apperr.MethodNotSupported
	case http.StatusUnauthorized:
		return apperr.Unauthenticated
	case http.StatusForbidden:
		return apperr.Forbidden
	case http.StatusConflict:
		return apperr.Conflict
	}
	if status >= http.StatusInternalServerError {
		return apperr.Internal
	}
	return apperr.Validation
}
