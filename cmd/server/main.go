package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"statementlens/internal/config"
	"statementlens/internal/handlers/api"
	"statementlens/internal/handlers/report"
	apphttp "statementlens/internal/http"
	applog "statementlens/internal/log"
	"statementlens/internal/render"
	"statementlens/internal/services/analysis"
	"statementlens/internal/services/statement"
	"statementlens/internal/services/storage"
	"statementlens/internal/templates"
	"statementlens/internal/version"
	"statementlens/web"
)

const shutdownTimeout = 10 * time.Second

var (
	cfg      *config.Config
	logger   *applog.Logger
	store    *storage.Storage
	renderer *templates.Renderer
	limiter  *apphttp.RateLimiter
	static   fs.FS
)

func main() {
	cfg = config.Load()

	logger = applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentApp,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", applog.FieldError, err)
		os.Exit(1)
	}

	info := version.Get()
	logger.Info("starting statementlens", "version", info.String())
	if msg := info.Check(); msg != "" {
		logger.Warn(msg)
	}

	if err := SetupDependencies(cfg, logger); err != nil {
		logger.Error("failed to set up dependencies", applog.FieldError, err)
		os.Exit(1)
	}

	if err := run(); err != nil {
		logger.Error("server stopped", applog.FieldError, err)
		os.Exit(1)
	}
}

// run serves until SIGINT or SIGTERM, sweeping the spool in the background
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}
	report.SetEndpoint(cfg.AnalysisEndpoint(ln.Addr().String()))

	srv := &http.Server{
		Handler:           SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			"addr", ln.Addr().String(),
			applog.FieldEndpoint, cfg.AnalysisEndpoint(ln.Addr().String()),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SpoolMaxAge)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				sweepSpool()
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// SetupDependencies wires storage, parsing, analysis and rendering into the
// handler packages
func SetupDependencies(c *config.Config, l *applog.Logger) error {
	cfg = c
	logger = l

	var err error
	store, err = storage.New(cfg.DataDirectory)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if cfg.EncryptSpool {
		passphrase, err := spoolPassphrase()
		if err != nil {
			return err
		}
		if err := store.EnableEncryption(passphrase); err != nil {
			return fmt.Errorf("enable spool encryption: %w", err)
		}
		logger.Info("spool encryption enabled")
	}
	sweepSpool()

	templateFS := web.Templates()
	if cfg.TemplatesDirectory != "" {
		templateFS = os.DirFS(cfg.TemplatesDirectory)
	}
	renderer, err = templates.New(templateFS, cfg.Debug, logger)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	static = web.Static()
	if cfg.StaticDirectory != "" {
		static = os.DirFS(cfg.StaticDirectory)
	}

	limiter = apphttp.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, logger)

	// Report submissions to this server's own /upload are already limited
	// on /report; the token keeps them out of the loopback client's bucket.
	var internal http.Header
	if cfg.AnalysisURL == "" {
		token := uuid.NewString()
		internal = http.Header{apphttp.InternalTokenHeader: {token}}
		limiter.SetExempt(apphttp.InternalRequest(token))
	}

	api.Initialize(statement.New(logger), analysis.New(logger), store)
	report.Initialize(renderer, render.NewDonutRenderer(renderer), nil, internal)

	return nil
}

// SetupRouter builds the HTTP router. SetupDependencies must run first.
func SetupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(applog.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	api.RegisterHealthRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		report.RegisterRoutes(r)
		api.RegisterRoutes(r)
	})

	return r
}

// spoolPassphrase returns the configured passphrase, prompts for one on a
// terminal, or falls back to a random key that lives as long as the process
func spoolPassphrase() (string, error) {
	if cfg.SpoolPassphrase != "" {
		return cfg.SpoolPassphrase, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Spool passphrase: ")
		pass, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return string(pass), nil
	}

	logger.Warn("no spool passphrase configured, using an ephemeral key")
	return uuid.NewString(), nil
}

func sweepSpool() {
	removed, err := store.Sweep(cfg.SpoolMaxAge)
	if err != nil {
		logger.Warn("spool sweep incomplete", applog.FieldError, err)
	}
	if removed > 0 {
		logger.Info("swept stale uploads", applog.FieldCount, removed)
	}
}
