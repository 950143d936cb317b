// Package server is the reference remote authority: an echo HTTP API over a
// file-backed task repository with JWT bearer auth and a redis read cache.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
	"github.com/twiced-technology-gmbh/taskboard/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Addr      string
	DataDir   string
	Boards    []string
	WIPLimits map[task.Status]int
	Auth      Authenticator
	Redis     *redis.Client
	CacheTTL  time.Duration
	Logger    *log.Logger
	Now       func() time.Time
}

// Server owns the echo instance, the service and the directory watcher.
type Server struct {
	addr    string
	echo    *echo.Echo
	service *Service
	dataDir string
	logger  *log.Logger
}

// New builds a Server. It creates the data directory if needed.
func New(opts Options) (*Server, error) {
	if opts.Auth == nil {
		return nil, errNoVerifier
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	repo, err := NewFileRepository(opts.DataDir, logger)
	if err != nil {
		return nil, err
	}
	cache := NewCache(repo, opts.Redis, opts.CacheTTL, logger)
	svc := NewService(repo, cache, ServiceOptions{
		Boards:    opts.Boards,
		WIPLimits: opts.WIPLimits,
		Logger:    logger,
		Now:       opts.Now,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(requestLogger(logger))

	Register(e, svc, opts.Auth, logger)

	return &Server{
		addr:    opts.Addr,
		echo:    e,
		service: svc,
		dataDir: repo.Dir(),
		logger:  logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Service returns the board service behind the HTTP API.
func (s *Server) Service() *Service { return s.service }

// Run serves until ctx is canceled, then shuts down gracefully. Changes made
// to the task directory by other processes evict the read cache.
func (s *Server) Run(ctx context.Context) error {
	w, err := watcher.New([]string{s.dataDir}, watcher.Options{
		Match: watcher.MatchExt(".md"),
		OnChange: func() {
			s.logger.Debug("task directory changed, evicting cache")
			s.service.Invalidate(context.Background())
		},
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", s.dataDir, err)
	}
	defer w.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go w.Run(watchCtx, func(err error) {
		s.logger.WithError(err).Warn("watcher error")
	})

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.addr).Info("listening")
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			fields := log.Fields{
				"method":  c.Request().Method,
				"path":    c.Path(),
				"status":  c.Response().Status,
				"latency": time.Since(start),
			}
			if sub, ok := c.Get(subjectKey).(string); ok {
				fields["subject"] = sub
			}
			logger.WithFields(fields).Info("request")
			return nil
		}
	}
}

// sonicSerializer implements echo.JSONSerializer with sonic.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}
