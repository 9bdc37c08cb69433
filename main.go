package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/s1natex/todo-api-GO/internal/config"
	"github.com/s1natex/todo-api-GO/internal/middleware"
	"github.com/s1natex/todo-api-GO/internal/telemetry"
	"github.com/s1natex/todo-api-GO/internal/todos"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger) // for third-party packages that use slog

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.TracingExporter, "todo-api")
	if err != nil {
		logger.Error("tracing_setup_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	gateway, closeGateway := openGateway(ctx, cfg, logger)
	defer closeGateway()

	var svc *todos.Service
	if gateway != nil {
		svc = todos.NewService(todos.Instrument(gateway, logger))
	} else {
		svc = todos.NewService(nil)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server_shutdown_error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracing_shutdown_error", slog.String("error", err.Error()))
		}
	}()

	logger.Info("server_listen",
		slog.String("addr", srv.Addr),
		slog.String("store", cfg.StoreDriver),
		slog.String("render_mode", cfg.RenderMode),
		slog.Bool("store_available", svc.Available()),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server_stopped")
}

// openGateway resolves the configured store. On failure it logs and returns
// a nil Gateway: the server still starts and every todo route answers 503.
func openGateway(ctx context.Context, cfg config.Config, logger *slog.Logger) (todos.Gateway, func()) {
	noop := func() {}
	fail := func(err error) (todos.Gateway, func()) {
		logger.Error("store_unavailable",
			slog.String("store", cfg.StoreDriver),
			slog.String("error", err.Error()),
		)
		return nil, noop
	}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		return todos.NewMemoryGateway(), noop

	case config.StoreSQLite:
		dsn, err := todos.SQLiteFileDSN(cfg.SQLitePath)
		if err != nil {
			return fail(err)
		}
		g, err := todos.NewSQLiteGateway(dsn)
		if err != nil {
			return fail(err)
		}
		if err := g.ApplyMigrations(ctx); err != nil {
			_ = g.Close()
			return fail(err)
		}
		return g, func() { _ = g.Close() }

	case config.StorePostgres:
		pool, err := todos.OpenPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail(err)
		}
		g := todos.NewPostgresGateway(pool)
		if err := g.ApplyMigrations(ctx); err != nil {
			pool.Close()
			return fail(err)
		}
		return g, pool.Close

	default:
		probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		g, err := todos.NewCosmosGateway(probeCtx, todos.CosmosOptions{
			Endpoint:  cfg.CosmosEndpoint,
			Database:  cfg.CosmosDatabase,
			Container: cfg.CosmosContainer,
		})
		if err != nil {
			return fail(err)
		}
		logger.Info("cosmos_client_ready",
			slog.String("database", cfg.CosmosDatabase),
			slog.String("container", cfg.CosmosContainer),
		)
		return g, noop
	}
}

// newRouter wires the health endpoints, todo routes, and middleware stack
func newRouter(cfg config.Config, svc *todos.Service, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, errors, etc.)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Timeouts: cancel handlers that exceed this duration
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.RateLimitMiddleware(middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	r.Use(middleware.AuthMiddleware(middleware.AuthConfig{
		Mode:        middleware.AuthMode(cfg.AuthMode),
		APIKey:      cfg.APIKey,
		BearerToken: cfg.BearerToken,
		JWTSecret:   cfg.JWTSecret,
		SkipPaths:   []string{"/health", "/ready", "/metrics"},
	}))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !svc.Available() {
			writeStatus(w, http.StatusServiceUnavailable, "store_unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	if cfg.RenderMode == config.RenderHTML {
		todos.RegisterHTMLRoutes(r, svc, logger)
	} else {
		todos.RegisterRoutes(r, svc, logger)
	}

	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, `{"status":"`+status+`"}`+"\n")
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
