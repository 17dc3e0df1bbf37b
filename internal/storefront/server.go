package storefront

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Sternrassler/storefront-cache/pkg/httpcache"
	"github.com/Sternrassler/storefront-cache/pkg/policy"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Server is the storefront HTTP server.
type Server struct {
	echo     *echo.Echo
	addr     string
	shutdown time.Duration
	logger   zerolog.Logger
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(addr string, svc *Service, p *policy.Policy, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)
	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = 15 * time.Second

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	e.Use(httpcache.Middleware(p))

	NewHandlers(svc).Register(e)

	return &Server{
		echo:     e,
		addr:     addr,
		shutdown: DefaultShutdownTimeout,
		logger:   logger,
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// SetShutdownTimeout overrides DefaultShutdownTimeout.
func (s *Server) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		s.shutdown = d
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("Storefront API listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// errorHandler renders errors as {"error": msg}. Internal causes are logged,
// never sent to the client.
func errorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			if he.Internal != nil {
				err = he.Internal
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", code).
				Msg("Request failed")
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, map[string]any{"error": msg})
	}
}

// requestLogger logs one line per request.
func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			logger.Debug().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", res.Status).
				Str("cache", res.Header().Get(httpcache.HeaderCacheStatus)).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
			return nil
		}
	}
}
